package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"community-bot-backend/internal/features/giveaway/models"
	"community-bot-backend/internal/features/giveaway/repository"
)

func newTestRepository(t *testing.T) (repository.Repository, *goredis.Client) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	return NewRedisGiveawayRepository(client), client
}

func sampleGiveaway(messageID string) *models.Giveaway {
	now := time.Now().UTC().Truncate(time.Second)
	return &models.Giveaway{
		MessageID:   messageID,
		ChannelID:   "c1",
		GuildID:     "g1",
		Prize:       "a mug",
		WinnerCount: 2,
		EndsAt:      now.Add(time.Hour),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

func TestCreateAndGetRoundTrip(t *testing.T) {
	repo, _ := newTestRepository(t)
	ctx := context.Background()

	g := sampleGiveaway("msg-1")
	require.NoError(t, repo.Create(ctx, g))

	got, err := repo.GetByID(ctx, "msg-1")
	require.NoError(t, err)
	require.Equal(t, g.Prize, got.Prize)
	require.Equal(t, g.WinnerCount, got.WinnerCount)
	require.True(t, g.EndsAt.Equal(got.EndsAt))
	require.False(t, got.Ended)

	active, err := repo.GetActiveIDs(ctx)
	require.NoError(t, err)
	require.Equal(t, []string{"msg-1"}, active)
}

func TestGetByIDNotFound(t *testing.T) {
	repo, _ := newTestRepository(t)

	_, err := repo.GetByID(context.Background(), "missing")
	require.ErrorIs(t, err, repository.ErrGiveawayNotFound)
}

func TestGetByIDCorruptRecord(t *testing.T) {
	repo, client := newTestRepository(t)
	ctx := context.Background()

	require.NoError(t, client.Set(ctx, "giveaway:broken", "{not json", 0).Err())

	_, err := repo.GetByID(ctx, "broken")
	require.ErrorIs(t, err, repository.ErrCorruptRecord)
}

func TestMarkEndedRemovesFromActiveSet(t *testing.T) {
	repo, _ := newTestRepository(t)
	ctx := context.Background()

	g := sampleGiveaway("msg-1")
	require.NoError(t, repo.Create(ctx, g))

	g.Ended = true
	g.Winners = []string{"u1"}
	require.NoError(t, repo.MarkEnded(ctx, g))

	got, err := repo.GetByID(ctx, "msg-1")
	require.NoError(t, err)
	require.True(t, got.Ended)
	require.Equal(t, []string{"u1"}, got.Winners)

	active, err := repo.GetActiveIDs(ctx)
	require.NoError(t, err)
	require.Empty(t, active)
}

func TestAddParticipantIsIdempotent(t *testing.T) {
	repo, _ := newTestRepository(t)
	ctx := context.Background()

	require.NoError(t, repo.AddParticipant(ctx, "msg-1", "u1"))
	require.NoError(t, repo.AddParticipant(ctx, "msg-1", "u1"))
	require.NoError(t, repo.AddParticipant(ctx, "msg-1", "u2"))

	participants, err := repo.GetParticipants(ctx, "msg-1")
	require.NoError(t, err)
	require.ElementsMatch(t, []string{"u1", "u2"}, participants)
}

func TestCompletionLock(t *testing.T) {
	repo, _ := newTestRepository(t)
	ctx := context.Background()

	require.NoError(t, repo.AcquireCompletionLock(ctx, "msg-1", time.Minute))

	err := repo.AcquireCompletionLock(ctx, "msg-1", time.Minute)
	require.ErrorIs(t, err, repository.ErrAlreadyLocked)

	// A different giveaway locks independently.
	require.NoError(t, repo.AcquireCompletionLock(ctx, "msg-2", time.Minute))

	require.NoError(t, repo.ReleaseCompletionLock(ctx, "msg-1"))
	require.NoError(t, repo.AcquireCompletionLock(ctx, "msg-1", time.Minute))
}
