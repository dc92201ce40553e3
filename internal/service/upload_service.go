package service

import (
	"context"
	"fmt"
	"sort"

	"github.com/google/uuid"
	jsoniter "github.com/json-iterator/go"
	pkgerrors "github.com/pkg/errors"
	"go.uber.org/zap"

	"go-inventory-sales/internal/apperror"
	"go-inventory-sales/internal/ingest"
	"go-inventory-sales/internal/model"
	"go-inventory-sales/internal/repository"
)

// DefaultUploadMaxBytes caps spreadsheet uploads at 5 MiB.
const DefaultUploadMaxBytes = 5 * 1024 * 1024

const (
	defaultHistoryLimit = 20
	maxHistoryLimit     = 100
)

type UploadService interface {
	Process(ctx context.Context, file UploadFile, actor Identity, importProducts bool) (*UploadResult, error)
	History(ctx context.Context, limit int) ([]model.UploadHistory, error)
}

// UploadFile is a fully read multipart upload.
type UploadFile struct {
	Filename    string
	ContentType string
	Data        []byte
}

type UploadResult struct {
	Message  string              `json:"message"`
	UploadID uuid.UUID           `json:"upload_id"`
	FileType string              `json:"file_type"`
	Rows     int                 `json:"rows"`
	Data     []map[string]string `json:"data"`
	Imported int                 `json:"imported"`
	Failed   int                 `json:"failed"`
	Errors   []ingest.RowError   `json:"errors,omitempty"`
}

type uploadService struct {
	uploadRepo repository.UploadRepository
	products   ProductService
	maxBytes   int
}

func NewUploadService(uRepo repository.UploadRepository, products ProductService, maxBytes int) UploadService {
	if maxBytes <= 0 {
		maxBytes = DefaultUploadMaxBytes
	}
	return &uploadService{
		uploadRepo: uRepo,
		products:   products,
		maxBytes:   maxBytes,
	}
}

// Process parses the file and, when importProducts is set, creates one product per row.
// Row failures are collected; they never abort the rest of the file.
func (s *uploadService) Process(ctx context.Context, file UploadFile, actor Identity, importProducts bool) (*UploadResult, error) {
	if len(file.Data) == 0 {
		return nil, apperror.Validation("No file uploaded")
	}
	if len(file.Data) > s.maxBytes {
		return nil, apperror.Validation(fmt.Sprintf("File too large. Maximum size is %dMB.", s.maxBytes/(1024*1024)))
	}
	if importProducts {
		if err := Authorize(actor, model.RoleOwner); err != nil {
			return nil, err
		}
	}

	fileType, rows, err := ingest.Parse(file.Filename, file.ContentType, file.Data)
	if err != nil {
		return nil, err
	}

	result := &UploadResult{
		Message:  "File processed successfully",
		FileType: string(fileType),
		Rows:     len(rows),
		Data:     rows,
	}

	if importProducts {
		s.importProducts(ctx, rows, actor, result)
		result.Message = fmt.Sprintf("Imported %d of %d rows", result.Imported, result.Rows)
	}

	record := &model.UploadHistory{
		Filename:       file.Filename,
		FileType:       string(fileType),
		RowsProcessed:  result.Rows,
		RowsSuccessful: result.Rows - result.Failed,
		RowsFailed:     result.Failed,
	}
	if importProducts {
		record.RowsSuccessful = result.Imported
	}
	if len(result.Errors) > 0 {
		errorLog, err := jsoniter.ConfigCompatibleWithStandardLibrary.MarshalToString(result.Errors)
		if err != nil {
			return nil, apperror.Internal(pkgerrors.Wrap(err, "encode upload errors"))
		}
		record.ErrorLog = errorLog
	}
	if actor.UserID != uuid.Nil {
		actorID := actor.UserID
		record.UploadedByID = &actorID
	}
	if err := s.uploadRepo.Create(ctx, record); err != nil {
		return nil, apperror.FromDB(err)
	}
	result.UploadID = record.ID

	zap.L().Info("upload processed",
		zap.String("filename", file.Filename),
		zap.String("file_type", record.FileType),
		zap.Int("rows", result.Rows),
		zap.Int("imported", result.Imported),
		zap.Int("failed", result.Failed),
	)
	return result, nil
}

func (s *uploadService) importProducts(ctx context.Context, rows []map[string]string, actor Identity, result *UploadResult) {
	decoded, failures := ingest.DecodeProductRows(rows)
	result.Errors = append(result.Errors, failures...)

	for _, row := range decoded {
		req := &CreateProductRequest{
			Name:         row.Name,
			Category:     row.Category,
			Description:  row.Description,
			Price:        row.Price,
			Stock:        row.Stock,
			ReorderLevel: row.ReorderLevel,
			Supplier:     row.Supplier,
		}
		if row.SKU != "" {
			sku := row.SKU
			req.SKU = &sku
		}

		if _, err := s.products.Create(ctx, req, actor); err != nil {
			result.Errors = append(result.Errors, ingest.RowError{Row: row.Row, Message: rowMessage(err)})
			continue
		}
		result.Imported++
	}

	result.Failed = len(result.Errors)
	sort.SliceStable(result.Errors, func(i, j int) bool {
		return result.Errors[i].Row < result.Errors[j].Row
	})
}

func (s *uploadService) History(ctx context.Context, limit int) ([]model.UploadHistory, error) {
	switch {
	case limit <= 0:
		limit = defaultHistoryLimit
	case limit > maxHistoryLimit:
		limit = maxHistoryLimit
	}
	records, err := s.uploadRepo.FindRecent(ctx, limit)
	if err != nil {
		return nil, apperror.FromDB(err)
	}
	return records, nil
}

func rowMessage(err error) string {
	if appErr, ok := apperror.As(err); ok {
		return appErr.Message
	}
	return err.Error()
}
