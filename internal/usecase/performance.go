package usecase

import (
	"context"
	"fmt"

	"TrendPipeline/internal/domain"
	"TrendPipeline/internal/ports"
)

// PerformanceService lists engagement metrics of live publications.
type PerformanceService struct {
	metrics ports.MetricRepository
}

func NewPerformanceService(metrics ports.MetricRepository) *PerformanceService {
	return &PerformanceService{metrics: metrics}
}

// List returns one page of metrics plus the summary over the whole filter.
func (s *PerformanceService) List(ctx context.Context, filter domain.MetricFilter) (domain.MetricPage, error) {
	filter.Page, filter.PageSize = domain.NormalizePage(filter.Page, filter.PageSize)
	if filter.From != nil && filter.To != nil && filter.From.After(*filter.To) {
		return domain.MetricPage{}, fmt.Errorf("from is after to: %w", domain.ErrInvalidInput)
	}
	page, err := s.metrics.ListMetrics(ctx, filter)
	if err != nil {
		return domain.MetricPage{}, fmt.Errorf("list metrics: %w", err)
	}
	return page, nil
}
