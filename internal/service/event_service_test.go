package service

import (
	"context"
	"errors"
	"testing"

	"chemdist-fulfillment/internal/core/domain"
	"chemdist-fulfillment/internal/core/ports/mocks"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

type emitterTestDeps struct {
	svc       *EventEmitterImpl
	repo      *mocks.MockEventRepository
	publisher *mocks.MockPublisher
	sigSvc    *mocks.MockSignatureService
	ctrl      *gomock.Controller
}

func setupEventEmitter(t *testing.T) *emitterTestDeps {
	ctrl := gomock.NewController(t)
	d := &emitterTestDeps{
		repo:      mocks.NewMockEventRepository(ctrl),
		publisher: mocks.NewMockPublisher(ctrl),
		sigSvc:    mocks.NewMockSignatureService(ctrl),
		ctrl:      ctrl,
	}
	d.svc = NewEventEmitter(d.repo, d.publisher, d.sigSvc, "outbox-secret", zerolog.Nop())
	return d
}

func TestEventEmitter_Record(t *testing.T) {
	d := setupEventEmitter(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	tx := &mockTx{}
	event, err := domain.NewOrderEvent(domain.EventOrderDispatched, uuid.New(), map[string]any{"order_number": "M2511386"})
	require.NoError(t, err)

	d.repo.EXPECT().Insert(ctx, tx, event).Return(nil)

	require.NoError(t, d.svc.Record(ctx, tx, event))
}

func TestEventEmitter_Flush(t *testing.T) {
	d := setupEventEmitter(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	first, err := domain.NewOrderEvent(domain.EventPaymentConfirmed, uuid.New(), map[string]any{"order_number": "M2511386"})
	require.NoError(t, err)
	second, err := domain.NewOrderEvent(domain.EventOrderDelivered, uuid.New(), map[string]any{"order_number": "M2511387"})
	require.NoError(t, err)

	d.repo.EXPECT().FetchUnpublished(ctx, 50).Return([]domain.WorkflowEvent{*first, *second}, nil)
	d.sigSvc.EXPECT().Sign("outbox-secret", gomock.Any()).Return("sig").Times(2)
	d.publisher.EXPECT().Publish(ctx, gomock.Any(), "sig").Return(nil).Times(2)
	d.repo.EXPECT().MarkPublished(ctx, first.ID).Return(nil)
	d.repo.EXPECT().MarkPublished(ctx, second.ID).Return(nil)

	sent, err := d.svc.Flush(ctx, 50)
	require.NoError(t, err)
	assert.Equal(t, 2, sent)
}

func TestEventEmitter_Flush_PublishFailureMarksRow(t *testing.T) {
	d := setupEventEmitter(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	event, err := domain.NewOrderEvent(domain.EventOrderCancelled, uuid.New(), map[string]any{"order_number": "M2511386"})
	require.NoError(t, err)

	pubErr := errors.New("consumer unreachable")
	d.repo.EXPECT().FetchUnpublished(ctx, 10).Return([]domain.WorkflowEvent{*event}, nil)
	d.sigSvc.EXPECT().Sign("outbox-secret", gomock.Any()).Return("sig")
	d.publisher.EXPECT().Publish(ctx, gomock.Any(), "sig").Return(pubErr)
	d.repo.EXPECT().MarkFailed(ctx, event.ID, pubErr).Return(nil)

	sent, err := d.svc.Flush(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, 0, sent)
}

func TestEventEmitter_NilPublisher(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	repo := mocks.NewMockEventRepository(ctrl)
	svc := NewEventEmitter(repo, nil, NewHMACSignatureService(), "secret", zerolog.Nop())

	// Dispatch and Flush are no-ops without a publisher; nothing is fetched.
	event, err := domain.NewOrderEvent(domain.EventOrderDelivered, uuid.New(), map[string]any{})
	require.NoError(t, err)
	svc.Dispatch(event)

	sent, err := svc.Flush(context.Background(), 50)
	require.NoError(t, err)
	assert.Equal(t, 0, sent)
}
