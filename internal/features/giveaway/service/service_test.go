package service

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	apperrors "community-bot-backend/internal/common/errors"
	"community-bot-backend/internal/features/eventlog"
	"community-bot-backend/internal/features/giveaway/models"
	"community-bot-backend/internal/features/giveaway/repository"
	giveawayredis "community-bot-backend/internal/features/giveaway/repository/redis"
	"community-bot-backend/internal/platform/chat"
)

type fakeChat struct {
	mu     sync.Mutex
	nextID int
	posts  []string
	err    error
}

func (f *fakeChat) PostAnnouncement(ctx context.Context, channelID, content string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return "", f.err
	}
	f.nextID++
	f.posts = append(f.posts, content)
	return fmt.Sprintf("msg-%d", f.nextID), nil
}

func (f *fakeChat) FetchInvites(ctx context.Context, guildID string) ([]chat.Invite, error) {
	return nil, nil
}

func (f *fakeChat) postCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.posts)
}

func (f *fakeChat) lastPost() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.posts) == 0 {
		return ""
	}
	return f.posts[len(f.posts)-1]
}

func newTestService(t *testing.T) (*Service, repository.Repository, *fakeChat) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	events, err := eventlog.Open(t.TempDir(), client, zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { events.Close() })

	repo := giveawayredis.NewRedisGiveawayRepository(client)
	fc := &fakeChat{}
	svc := New(repo, fc, events, zerolog.Nop())
	t.Cleanup(svc.Stop)

	return svc, repo, fc
}

func TestStartValidation(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	cases := []struct {
		name     string
		duration int64
		winners  int
		prize    string
	}{
		{"zero duration", 0, 1, "prize"},
		{"negative duration", -5, 1, "prize"},
		{"zero winners", 60, 0, "prize"},
		{"empty prize", 60, 1, "   "},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Start(ctx, "g1", "c1", tc.duration, tc.winners, tc.prize)
			require.Error(t, err)
			appErr, ok := apperrors.AsAppError(err)
			require.True(t, ok)
			require.True(t, appErr.IsValidation())
		})
	}
}

func TestStartPersistsGiveaway(t *testing.T) {
	svc, repo, fc := newTestService(t)
	ctx := context.Background()

	g, err := svc.Start(ctx, "g1", "c1", 3600, 2, "a mug")
	require.NoError(t, err)
	require.False(t, g.Ended)
	require.Equal(t, 2, g.WinnerCount)
	require.Equal(t, 1, fc.postCount())

	stored, err := repo.GetByID(ctx, g.MessageID)
	require.NoError(t, err)
	require.Equal(t, "a mug", stored.Prize)
	require.False(t, stored.Ended)

	active, err := repo.GetActiveIDs(ctx)
	require.NoError(t, err)
	require.Contains(t, active, g.MessageID)
}

func TestCompleteDrawsDistinctWinnersFromParticipants(t *testing.T) {
	svc, repo, _ := newTestService(t)
	ctx := context.Background()

	g, err := svc.Start(ctx, "g1", "c1", 3600, 2, "a mug")
	require.NoError(t, err)

	users := []string{"u1", "u2", "u3", "u4", "u5"}
	for _, u := range users {
		require.NoError(t, svc.RegisterParticipant(ctx, g.MessageID, u))
	}

	result, err := svc.Complete(ctx, g.MessageID)
	require.NoError(t, err)
	require.True(t, result.Completed)
	require.Len(t, result.Winners, 2)

	seen := map[string]bool{}
	for _, w := range result.Winners {
		require.Contains(t, users, w)
		require.False(t, seen[w], "winner drawn twice: %s", w)
		seen[w] = true
	}

	stored, err := repo.GetByID(ctx, g.MessageID)
	require.NoError(t, err)
	require.True(t, stored.Ended)
	require.Equal(t, result.Winners, stored.Winners)

	active, err := repo.GetActiveIDs(ctx)
	require.NoError(t, err)
	require.NotContains(t, active, g.MessageID)
}

func TestCompleteIsIdempotent(t *testing.T) {
	svc, _, fc := newTestService(t)
	ctx := context.Background()

	g, err := svc.Start(ctx, "g1", "c1", 3600, 1, "a mug")
	require.NoError(t, err)
	require.NoError(t, svc.RegisterParticipant(ctx, g.MessageID, "u1"))

	first, err := svc.Complete(ctx, g.MessageID)
	require.NoError(t, err)
	require.True(t, first.Completed)

	// Start post plus one result announcement.
	require.Eventually(t, func() bool { return fc.postCount() == 2 }, 2*time.Second, 10*time.Millisecond)

	second, err := svc.Complete(ctx, g.MessageID)
	require.NoError(t, err)
	require.False(t, second.Completed)
	require.True(t, second.AlreadyEnded)
	require.Equal(t, first.Winners, second.Winners)

	// The second call performs no further side effects.
	time.Sleep(50 * time.Millisecond)
	require.Equal(t, 2, fc.postCount())
}

func TestCompleteWithNoParticipants(t *testing.T) {
	svc, repo, fc := newTestService(t)
	ctx := context.Background()

	g, err := svc.Start(ctx, "g1", "c1", 3600, 3, "a mug")
	require.NoError(t, err)

	result, err := svc.Complete(ctx, g.MessageID)
	require.NoError(t, err)
	require.True(t, result.Completed)
	require.Empty(t, result.Winners)

	stored, err := repo.GetByID(ctx, g.MessageID)
	require.NoError(t, err)
	require.True(t, stored.Ended)

	require.Eventually(t, func() bool {
		return fc.postCount() == 2 && strings.Contains(fc.lastPost(), "no participants")
	}, 2*time.Second, 10*time.Millisecond)
}

func TestCompleteUnknownGiveawayIsNoOp(t *testing.T) {
	svc, _, fc := newTestService(t)

	result, err := svc.Complete(context.Background(), "missing")
	require.NoError(t, err)
	require.True(t, result.NotFound)
	require.False(t, result.Completed)
	require.Equal(t, 0, fc.postCount())
}

func TestCompleteCapsWinnersAtParticipantCount(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	g, err := svc.Start(ctx, "g1", "c1", 3600, 5, "a mug")
	require.NoError(t, err)
	require.NoError(t, svc.RegisterParticipant(ctx, g.MessageID, "u1"))
	require.NoError(t, svc.RegisterParticipant(ctx, g.MessageID, "u2"))

	result, err := svc.Complete(ctx, g.MessageID)
	require.NoError(t, err)
	require.Len(t, result.Winners, 2)
	require.ElementsMatch(t, []string{"u1", "u2"}, result.Winners)
}

func TestRegisterParticipantNoOps(t *testing.T) {
	svc, repo, _ := newTestService(t)
	ctx := context.Background()

	// Unknown giveaway: silently ignored.
	require.NoError(t, svc.RegisterParticipant(ctx, "missing", "u1"))

	g, err := svc.Start(ctx, "g1", "c1", 3600, 1, "a mug")
	require.NoError(t, err)

	// Repeated joins count once.
	require.NoError(t, svc.RegisterParticipant(ctx, g.MessageID, "u1"))
	require.NoError(t, svc.RegisterParticipant(ctx, g.MessageID, "u1"))
	participants, err := repo.GetParticipants(ctx, g.MessageID)
	require.NoError(t, err)
	require.Len(t, participants, 1)

	// Joins after the end are ignored.
	_, err = svc.Complete(ctx, g.MessageID)
	require.NoError(t, err)
	require.NoError(t, svc.RegisterParticipant(ctx, g.MessageID, "u2"))
	participants, err = repo.GetParticipants(ctx, g.MessageID)
	require.NoError(t, err)
	require.Len(t, participants, 1)
}

func TestResumeAllCompletesOverdueGiveaway(t *testing.T) {
	svc, repo, _ := newTestService(t)
	ctx := context.Background()

	overdue := &models.Giveaway{
		MessageID:   "msg-overdue",
		ChannelID:   "c1",
		GuildID:     "g1",
		Prize:       "a mug",
		WinnerCount: 1,
		EndsAt:      time.Now().Add(-time.Minute),
		CreatedAt:   time.Now().Add(-time.Hour),
		UpdatedAt:   time.Now().Add(-time.Hour),
	}
	require.NoError(t, repo.Create(ctx, overdue))
	require.NoError(t, repo.AddParticipant(ctx, overdue.MessageID, "u1"))

	require.NoError(t, svc.ResumeAll(ctx))

	stored, err := repo.GetByID(ctx, overdue.MessageID)
	require.NoError(t, err)
	require.True(t, stored.Ended)
	require.Equal(t, []string{"u1"}, stored.Winners)
}

func TestResumeAllReschedulesFutureGiveaway(t *testing.T) {
	svc, repo, _ := newTestService(t)
	ctx := context.Background()

	future := &models.Giveaway{
		MessageID:   "msg-future",
		ChannelID:   "c1",
		GuildID:     "g1",
		Prize:       "a mug",
		WinnerCount: 1,
		EndsAt:      time.Now().Add(time.Hour),
		CreatedAt:   time.Now(),
		UpdatedAt:   time.Now(),
	}
	require.NoError(t, repo.Create(ctx, future))

	require.NoError(t, svc.ResumeAll(ctx))

	stored, err := repo.GetByID(ctx, future.MessageID)
	require.NoError(t, err)
	require.False(t, stored.Ended)
}

func TestTimedCompletionFires(t *testing.T) {
	svc, repo, _ := newTestService(t)
	ctx := context.Background()

	g, err := svc.Start(ctx, "g1", "c1", 1, 1, "a mug")
	require.NoError(t, err)
	require.NoError(t, svc.RegisterParticipant(ctx, g.MessageID, "u1"))

	require.Eventually(t, func() bool {
		stored, err := repo.GetByID(ctx, g.MessageID)
		return err == nil && stored.Ended
	}, 5*time.Second, 50*time.Millisecond)
}

func TestStartFailsWhenAnnouncementFails(t *testing.T) {
	svc, repo, fc := newTestService(t)
	fc.err = fmt.Errorf("platform down")

	_, err := svc.Start(context.Background(), "g1", "c1", 3600, 1, "a mug")
	require.Error(t, err)
	appErr, ok := apperrors.AsAppError(err)
	require.True(t, ok)
	require.Equal(t, apperrors.ErrCodeExternalAPI, appErr.Code)

	active, err := repo.GetActiveIDs(context.Background())
	require.NoError(t, err)
	require.Empty(t, active)
}
