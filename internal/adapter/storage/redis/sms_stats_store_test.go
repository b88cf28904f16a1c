package redis_test

import (
	"context"
	"testing"
	"time"

	"chemdist-fulfillment/internal/adapter/storage/redis"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSMSStatsStore_Counters(t *testing.T) {
	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	defer client.Close()

	store := redis.NewSMSStatsStore(client)
	ctx := context.Background()
	today := time.Date(2025, 11, 12, 10, 0, 0, 0, time.UTC)

	require.NoError(t, store.IncrSent(ctx, today))
	require.NoError(t, store.IncrSent(ctx, today))
	require.NoError(t, store.IncrDelivered(ctx, today))
	require.NoError(t, store.IncrFailed(ctx, today))

	stats, err := store.GetStats(ctx, today)
	require.NoError(t, err)
	assert.Equal(t, int64(2), stats.Sent)
	assert.Equal(t, int64(1), stats.Delivered)
	assert.Equal(t, int64(1), stats.Failed)
}

func TestSMSStatsStore_DaysAreIndependent(t *testing.T) {
	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	defer client.Close()

	store := redis.NewSMSStatsStore(client)
	ctx := context.Background()

	day1 := time.Date(2025, 11, 12, 23, 59, 0, 0, time.UTC)
	day2 := time.Date(2025, 11, 13, 0, 1, 0, 0, time.UTC)

	require.NoError(t, store.IncrSent(ctx, day1))
	require.NoError(t, store.IncrSent(ctx, day2))
	require.NoError(t, store.IncrSent(ctx, day2))

	stats1, err := store.GetStats(ctx, day1)
	require.NoError(t, err)
	assert.Equal(t, int64(1), stats1.Sent)

	stats2, err := store.GetStats(ctx, day2)
	require.NoError(t, err)
	assert.Equal(t, int64(2), stats2.Sent)
}

func TestSMSStatsStore_EmptyDay(t *testing.T) {
	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	defer client.Close()

	store := redis.NewSMSStatsStore(client)

	stats, err := store.GetStats(context.Background(), time.Now())
	require.NoError(t, err)
	assert.Zero(t, stats.Sent)
	assert.Zero(t, stats.Delivered)
	assert.Zero(t, stats.Failed)
}
