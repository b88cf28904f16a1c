package service

import (
	"context"
	"fmt"

	"chemdist-fulfillment/internal/core/ports"
	"chemdist-fulfillment/pkg/apperror"
)

// ReportingServiceImpl implements ports.ReportingService.
type ReportingServiceImpl struct {
	orderRepo ports.OrderRepository
}

// NewReportingService creates a new ReportingServiceImpl.
func NewReportingService(orderRepo ports.OrderRepository) *ReportingServiceImpl {
	return &ReportingServiceImpl{orderRepo: orderRepo}
}

// GetWorkflowStats counts orders per custody status for the admin dashboard.
func (s *ReportingServiceImpl) GetWorkflowStats(ctx context.Context) (*ports.WorkflowStats, error) {
	counts, err := s.orderRepo.CountByStatus(ctx)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("count orders by status: %w", err))
	}

	stats := &ports.WorkflowStats{ByStatus: counts}
	for _, n := range counts {
		stats.Total += n
	}
	return stats, nil
}
