package redis

import (
	"context"
	"time"

	"chemdist-fulfillment/internal/core/ports"

	"github.com/rs/zerolog"
)

// InstrumentedSMSSender wraps a ports.SMSSender and records daily send
// counters. Counter failures are logged only; the SMS outcome is what the
// workflow cares about.
type InstrumentedSMSSender struct {
	next  ports.SMSSender
	stats *SMSStatsStore
	log   zerolog.Logger
}

// NewInstrumentedSMSSender wraps next with Redis-backed daily counters.
func NewInstrumentedSMSSender(next ports.SMSSender, stats *SMSStatsStore, log zerolog.Logger) *InstrumentedSMSSender {
	return &InstrumentedSMSSender{next: next, stats: stats, log: log}
}

// SendVerificationCode delegates to the wrapped sender and counts the result.
func (s *InstrumentedSMSSender) SendVerificationCode(ctx context.Context, orderNumber, code string) error {
	today := time.Now().UTC()

	err := s.next.SendVerificationCode(ctx, orderNumber, code)
	if err != nil {
		if statsErr := s.stats.IncrFailed(ctx, today); statsErr != nil {
			s.log.Warn().Err(statsErr).Msg("failed to record sms failure counter")
		}
		return err
	}

	if statsErr := s.stats.IncrSent(ctx, today); statsErr != nil {
		s.log.Warn().Err(statsErr).Msg("failed to record sms sent counter")
	}
	return nil
}
