package service

import (
	"context"
	"fmt"
	"time"

	"chemdist-fulfillment/internal/core/domain"
	"chemdist-fulfillment/internal/core/ports"

	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
)

const dispatchTimeout = 10 * time.Second

// EventEmitterImpl implements ports.EventEmitter as a transactional outbox:
// Record rides the caller's transaction, Dispatch and Flush push committed
// rows downstream. Publishing is best effort; ledger and state changes never
// wait on it.
type EventEmitterImpl struct {
	repo      ports.EventRepository
	publisher ports.Publisher
	sigSvc    ports.SignatureService
	secretKey string
	log       zerolog.Logger
}

// NewEventEmitter creates a new EventEmitterImpl. publisher may be nil, in
// which case events stay in the outbox until a consumer drains them.
func NewEventEmitter(
	repo ports.EventRepository,
	publisher ports.Publisher,
	sigSvc ports.SignatureService,
	secretKey string,
	log zerolog.Logger,
) *EventEmitterImpl {
	return &EventEmitterImpl{
		repo:      repo,
		publisher: publisher,
		sigSvc:    sigSvc,
		secretKey: secretKey,
		log:       log,
	}
}

// Record inserts the event into the outbox inside the caller's transaction.
func (s *EventEmitterImpl) Record(ctx context.Context, tx pgx.Tx, event *domain.WorkflowEvent) error {
	if err := s.repo.Insert(ctx, tx, event); err != nil {
		return fmt.Errorf("insert outbox event: %w", err)
	}
	return nil
}

// Dispatch publishes a committed event asynchronously (fire-and-forget).
func (s *EventEmitterImpl) Dispatch(event *domain.WorkflowEvent) {
	if s.publisher == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), dispatchTimeout)
		defer cancel()
		s.publish(ctx, event)
	}()
}

// Flush publishes the unpublished backlog; returns how many were sent.
func (s *EventEmitterImpl) Flush(ctx context.Context, limit int) (int, error) {
	if s.publisher == nil {
		return 0, nil
	}
	events, err := s.repo.FetchUnpublished(ctx, limit)
	if err != nil {
		return 0, fmt.Errorf("fetch unpublished events: %w", err)
	}
	sent := 0
	for i := range events {
		if s.publish(ctx, &events[i]) {
			sent++
		}
	}
	return sent, nil
}

// publish signs and delivers one event, then marks the outbox row.
func (s *EventEmitterImpl) publish(ctx context.Context, event *domain.WorkflowEvent) bool {
	signature := s.sigSvc.Sign(s.secretKey, string(event.Payload))

	if err := s.publisher.Publish(ctx, event, signature); err != nil {
		s.log.Warn().
			Err(err).
			Str("event_id", event.ID.String()).
			Str("event_type", string(event.EventType)).
			Msg("event publish failed")
		if markErr := s.repo.MarkFailed(ctx, event.ID, err); markErr != nil {
			s.log.Warn().Err(markErr).Str("event_id", event.ID.String()).Msg("failed to mark event as failed")
		}
		return false
	}

	if err := s.repo.MarkPublished(ctx, event.ID); err != nil {
		s.log.Warn().Err(err).Str("event_id", event.ID.String()).Msg("failed to mark event as published")
	}

	s.log.Debug().
		Str("event_id", event.ID.String()).
		Str("event_type", string(event.EventType)).
		Msg("event published")
	return true
}

// LogPublisher is a stub ports.Publisher that writes events to the logger.
// Real consumers (SMS dispatch, email, CRM) subscribe out of process.
type LogPublisher struct {
	log zerolog.Logger
}

// NewLogPublisher constructs a logging publisher stub.
func NewLogPublisher(log zerolog.Logger) *LogPublisher {
	return &LogPublisher{log: log}
}

// Publish writes the event to the structured logger.
func (p *LogPublisher) Publish(_ context.Context, event *domain.WorkflowEvent, signature string) error {
	p.log.Info().
		Str("event_type", string(event.EventType)).
		RawJSON("payload", event.Payload).
		Str("signature", signature).
		Msg("workflow event")
	return nil
}

// LogSMSSender is a stub ports.SMSSender used until the SMS gateway
// integration is configured.
type LogSMSSender struct {
	log zerolog.Logger
}

// NewLogSMSSender constructs a logging SMS sender stub.
func NewLogSMSSender(log zerolog.Logger) *LogSMSSender {
	return &LogSMSSender{log: log}
}

// SendVerificationCode logs the code instead of sending it.
func (s *LogSMSSender) SendVerificationCode(_ context.Context, orderNumber, code string) error {
	s.log.Info().Str("order_number", orderNumber).Str("code", code).Msg("delivery verification SMS")
	return nil
}
