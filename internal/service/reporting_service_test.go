package service

import (
	"context"
	"testing"

	"chemdist-fulfillment/internal/core/domain"
	"chemdist-fulfillment/internal/core/ports/mocks"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func TestReportingService_GetWorkflowStats(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	orderRepo := mocks.NewMockOrderRepository(ctrl)
	svc := NewReportingService(orderRepo)

	ctx := context.Background()
	orderRepo.EXPECT().CountByStatus(ctx).Return(map[domain.OrderStatus]int64{
		domain.StatusFinancialPending: 4,
		domain.StatusInTransit:        2,
		domain.StatusDelivered:        19,
		domain.StatusCancelled:        3,
	}, nil)

	stats, err := svc.GetWorkflowStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(28), stats.Total)
	assert.Equal(t, int64(4), stats.ByStatus[domain.StatusFinancialPending])
	assert.Equal(t, int64(19), stats.ByStatus[domain.StatusDelivered])
}
