package service

import (
	"context"

	"go-inventory-sales/internal/apperror"
	"go-inventory-sales/internal/repository"
)

const (
	DefaultStatsDays = 30
	MaxStatsDays     = 366
)

type ReportService interface {
	DailySales(ctx context.Context, days int) ([]repository.DailySalesStat, error)
	Dashboard(ctx context.Context) (*repository.DashboardStats, error)
}

type reportService struct {
	saleRepo repository.SaleRepository
}

func NewReportService(sRepo repository.SaleRepository) ReportService {
	return &reportService{saleRepo: sRepo}
}

// DailySales returns one row per sale day, newest first, at most days rows.
func (s *reportService) DailySales(ctx context.Context, days int) ([]repository.DailySalesStat, error) {
	if days <= 0 {
		days = DefaultStatsDays
	}
	if days > MaxStatsDays {
		days = MaxStatsDays
	}

	stats, err := s.saleRepo.DailyStats(ctx, days)
	if err != nil {
		return nil, apperror.FromDB(err)
	}
	return stats, nil
}

func (s *reportService) Dashboard(ctx context.Context) (*repository.DashboardStats, error) {
	stats, err := s.saleRepo.GetDashboardStats(ctx)
	if err != nil {
		return nil, apperror.FromDB(err)
	}
	return stats, nil
}
