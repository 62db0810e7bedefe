package service

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"community-bot-backend/internal/features/eventlog"
	"community-bot-backend/internal/features/moderation"
	moderationredis "community-bot-backend/internal/features/moderation/repository/redis"
)

func newTestService(t *testing.T) *Service {
	t.Helper()

	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	events, err := eventlog.Open(t.TempDir(), client, zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { events.Close() })

	filter := moderation.NewFilter([]string{"spam"})
	warnings := moderationredis.NewRedisWarningRepository(client)
	return New(filter, warnings, events, zerolog.Nop())
}

func TestCheckMessageCleanContent(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	result, err := svc.CheckMessage(ctx, "hello there", "g1", "u1")
	require.NoError(t, err)
	require.False(t, result.Violation)

	count, err := svc.WarningCount(ctx, "g1", "u1")
	require.NoError(t, err)
	require.Zero(t, count)
}

func TestCheckMessageIncrementsWarningCounter(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	for i := int64(1); i <= 3; i++ {
		result, err := svc.CheckMessage(ctx, "buy my spam", "g1", "u1")
		require.NoError(t, err)
		require.True(t, result.Violation)
		require.Equal(t, "bad_word", result.Reason)
		require.Equal(t, i, result.WarningCount)
	}

	count, err := svc.WarningCount(ctx, "g1", "u1")
	require.NoError(t, err)
	require.Equal(t, int64(3), count)
}

func TestWarningCountersAreScopedPerGuildAndUser(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	_, err := svc.RecordViolation(ctx, "g1", "u1")
	require.NoError(t, err)
	_, err = svc.RecordViolation(ctx, "g1", "u1")
	require.NoError(t, err)
	_, err = svc.RecordViolation(ctx, "g2", "u1")
	require.NoError(t, err)

	count, err := svc.WarningCount(ctx, "g1", "u1")
	require.NoError(t, err)
	require.Equal(t, int64(2), count)

	count, err = svc.WarningCount(ctx, "g2", "u1")
	require.NoError(t, err)
	require.Equal(t, int64(1), count)

	count, err = svc.WarningCount(ctx, "g1", "u2")
	require.NoError(t, err)
	require.Zero(t, count)
}
