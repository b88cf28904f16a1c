package redis

import (
	"context"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

// SMSStatsStore tracks daily SMS delivery counters in Redis. The counters
// feed the workflow stats endpoint; the durable record of each send stays on
// the verification rows.
type SMSStatsStore struct {
	client *goredis.Client
	prefix string
	ttl    time.Duration
}

// NewSMSStatsStore creates a new Redis-backed SMS stats store.
func NewSMSStatsStore(client *goredis.Client) *SMSStatsStore {
	return &SMSStatsStore{
		client: client,
		prefix: "sms:stats:",
		ttl:    14 * 24 * time.Hour,
	}
}

// SMSStats holds one day's counters.
type SMSStats struct {
	Sent      int64 `json:"sent"`
	Delivered int64 `json:"delivered"`
	Failed    int64 `json:"failed"`
}

func (s *SMSStatsStore) key(day time.Time) string {
	return s.prefix + day.UTC().Format("2006-01-02")
}

// IncrSent bumps the sent counter for the given day.
func (s *SMSStatsStore) IncrSent(ctx context.Context, day time.Time) error {
	return s.incr(ctx, day, "sent")
}

// IncrDelivered bumps the delivered counter for the given day.
func (s *SMSStatsStore) IncrDelivered(ctx context.Context, day time.Time) error {
	return s.incr(ctx, day, "delivered")
}

// IncrFailed bumps the failed counter for the given day.
func (s *SMSStatsStore) IncrFailed(ctx context.Context, day time.Time) error {
	return s.incr(ctx, day, "failed")
}

func (s *SMSStatsStore) incr(ctx context.Context, day time.Time, field string) error {
	key := s.key(day)
	if err := s.client.HIncrBy(ctx, key, field, 1).Err(); err != nil {
		return fmt.Errorf("redis sms stats incr %s: %w", field, err)
	}
	// Refresh expiry on every write; stats older than the TTL are gone.
	s.client.Expire(ctx, key, s.ttl)
	return nil
}

// GetStats returns the counters for the given day. Missing fields read as zero.
func (s *SMSStatsStore) GetStats(ctx context.Context, day time.Time) (*SMSStats, error) {
	values, err := s.client.HGetAll(ctx, s.key(day)).Result()
	if err != nil {
		return nil, fmt.Errorf("redis sms stats get: %w", err)
	}

	stats := &SMSStats{}
	for field, raw := range values {
		var n int64
		if _, err := fmt.Sscanf(raw, "%d", &n); err != nil {
			continue
		}
		switch field {
		case "sent":
			stats.Sent = n
		case "delivered":
			stats.Delivered = n
		case "failed":
			stats.Failed = n
		}
	}
	return stats, nil
}
