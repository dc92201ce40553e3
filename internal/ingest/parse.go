// Package ingest turns uploaded spreadsheets into header-keyed rows.
package ingest

import (
	"bytes"
	"path/filepath"
	"sort"
	"strings"

	"github.com/360EntSecGroup-Skylar/excelize"
	"github.com/gocarina/gocsv"

	"go-inventory-sales/internal/apperror"
)

// FileType is the detected spreadsheet format.
type FileType string

const (
	FileTypeCSV  FileType = "csv"
	FileTypeXLSX FileType = "xlsx"
	FileTypeXLS  FileType = "xls"
)

const (
	mimeCSV  = "text/csv"
	mimeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	mimeXLS  = "application/vnd.ms-excel"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// DetectType resolves the file type from the content type, falling back to the extension.
func DetectType(filename, contentType string) (FileType, bool) {
	mediaType := strings.ToLower(strings.TrimSpace(strings.SplitN(contentType, ";", 2)[0]))
	switch mediaType {
	case mimeCSV, "application/csv":
		return FileTypeCSV, true
	case mimeXLSX:
		return FileTypeXLSX, true
	case mimeXLS:
		// Browsers report CSV files as vnd.ms-excel on Windows.
		if strings.EqualFold(filepath.Ext(filename), ".csv") {
			return FileTypeCSV, true
		}
		return FileTypeXLS, true
	}

	switch strings.ToLower(filepath.Ext(filename)) {
	case ".csv":
		return FileTypeCSV, true
	case ".xlsx":
		return FileTypeXLSX, true
	case ".xls":
		return FileTypeXLS, true
	}
	return "", false
}

// Parse decodes a CSV or Excel upload into rows keyed by the trimmed header row.
// Rows whose cells are all blank are skipped.
func Parse(filename, contentType string, data []byte) (FileType, []map[string]string, error) {
	fileType, ok := DetectType(filename, contentType)
	if !ok {
		return "", nil, apperror.Validation("Unsupported file type")
	}

	var (
		rows []map[string]string
		err  error
	)
	switch fileType {
	case FileTypeCSV:
		rows, err = parseCSV(data)
	default:
		rows, err = parseWorkbook(data)
	}
	if err != nil {
		return fileType, nil, err
	}
	return fileType, rows, nil
}

func parseCSV(data []byte) ([]map[string]string, error) {
	data = bytes.TrimPrefix(data, utf8BOM)
	records, err := gocsv.CSVToMaps(bytes.NewReader(data))
	if err != nil {
		return nil, apperror.Wrap(apperror.KindValidation, "Error parsing file: malformed CSV", err)
	}

	rows := make([]map[string]string, 0, len(records))
	for _, record := range records {
		if row := cleanRow(record); row != nil {
			rows = append(rows, row)
		}
	}
	return rows, nil
}

func parseWorkbook(data []byte) ([]map[string]string, error) {
	book, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, apperror.Wrap(apperror.KindValidation, "Error parsing file: unreadable spreadsheet", err)
	}

	sheet := firstSheet(book.GetSheetMap())
	if sheet == "" {
		return []map[string]string{}, nil
	}

	grid := book.GetRows(sheet)
	if len(grid) == 0 {
		return []map[string]string{}, nil
	}

	header := grid[0]
	rows := make([]map[string]string, 0, len(grid)-1)
	for _, cells := range grid[1:] {
		record := make(map[string]string, len(header))
		for i, key := range header {
			if i < len(cells) {
				record[key] = cells[i]
			} else {
				record[key] = ""
			}
		}
		if row := cleanRow(record); row != nil {
			rows = append(rows, row)
		}
	}
	return rows, nil
}

// firstSheet returns the sheet with the lowest index.
func firstSheet(sheets map[int]string) string {
	if len(sheets) == 0 {
		return ""
	}
	indexes := make([]int, 0, len(sheets))
	for idx := range sheets {
		indexes = append(indexes, idx)
	}
	sort.Ints(indexes)
	return sheets[indexes[0]]
}

// cleanRow trims keys and values, drops unnamed columns and returns nil for blank rows.
func cleanRow(record map[string]string) map[string]string {
	row := make(map[string]string, len(record))
	blank := true
	for key, value := range record {
		key = strings.TrimSpace(key)
		if key == "" {
			continue
		}
		value = strings.TrimSpace(value)
		if value != "" {
			blank = false
		}
		row[key] = value
	}
	if blank {
		return nil
	}
	return row
}
