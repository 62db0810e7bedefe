package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	apperrors "community-bot-backend/internal/common/errors"
	"community-bot-backend/internal/common/metrics"
	"community-bot-backend/internal/features/eventlog"
	"community-bot-backend/internal/features/giveaway/models"
	"community-bot-backend/internal/features/giveaway/repository"
	"community-bot-backend/internal/platform/chat"
	"community-bot-backend/internal/utils/random"
)

const (
	completionLockTTL = 30 * time.Second
	announceTimeout   = 30 * time.Second
)

// CompleteResult is the outcome of a completion attempt. Completion is
// idempotent: ended or unknown giveaways report a no-op, never an error.
type CompleteResult struct {
	Completed    bool     `json:"completed"`
	AlreadyEnded bool     `json:"already_ended"`
	NotFound     bool     `json:"not_found"`
	InFlight     bool     `json:"in_flight"`
	Winners      []string `json:"winners"`
}

// Service owns the giveaway lifecycle: creation, timed completion, manual
// early completion, winner selection and restart-time resumption. Deadlines
// are durable; timers are process-local and rebuilt by ResumeAll.
type Service struct {
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	repo   repository.Repository
	chat   chat.Client
	events *eventlog.Logger
	log    zerolog.Logger

	// messageID -> *time.Timer for the pending completion.
	timers sync.Map
}

func New(repo repository.Repository, chatClient chat.Client, events *eventlog.Logger, log zerolog.Logger) *Service {
	ctx, cancel := context.WithCancel(context.Background())
	return &Service{
		ctx:    ctx,
		cancel: cancel,
		repo:   repo,
		chat:   chatClient,
		events: events,
		log:    log,
	}
}

// Start creates a giveaway: posts the announcement to obtain the message ID,
// persists the record with ended=false and arms the completion timer.
func (s *Service) Start(ctx context.Context, guildID, channelID string, durationSeconds int64, winnerCount int, prize string) (*models.Giveaway, error) {
	if durationSeconds <= 0 {
		return nil, apperrors.NewValidationError("duration_seconds", "must be positive")
	}
	if winnerCount < 1 {
		return nil, apperrors.NewValidationError("winner_count", "must be at least 1")
	}
	if strings.TrimSpace(prize) == "" {
		return nil, apperrors.NewValidationError("prize", "must not be empty")
	}
	if guildID == "" || channelID == "" {
		return nil, apperrors.NewValidationError("guild_id", "guild and channel are required")
	}

	now := time.Now()
	duration := time.Duration(durationSeconds) * time.Second
	endsAt := now.Add(duration)

	content := fmt.Sprintf("🎉 **GIVEAWAY** 🎉\nPrize: %s\nWinners: %d\nEnds: %s",
		prize, winnerCount, endsAt.UTC().Format(time.RFC1123))

	// Without a message ID there is no giveaway identity, so a failed
	// announcement aborts the start. This is the one external call that
	// is not fire-and-forget.
	messageID, err := s.chat.PostAnnouncement(ctx, channelID, content)
	if err != nil {
		return nil, apperrors.NewExternalAPIError("post giveaway announcement", err)
	}

	giveaway := &models.Giveaway{
		MessageID:   messageID,
		ChannelID:   channelID,
		GuildID:     guildID,
		Prize:       prize,
		WinnerCount: winnerCount,
		EndsAt:      endsAt,
		Ended:       false,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.repo.Create(ctx, giveaway); err != nil {
		return nil, apperrors.NewDatabaseError("create giveaway", err)
	}

	s.scheduleCompletion(messageID, duration)
	metrics.GiveawaysStarted.Inc()
	s.events.Append(ctx, "giveaway.start", map[string]interface{}{
		"message_id": messageID,
		"guild_id":   guildID,
		"channel_id": channelID,
		"prize":      prize,
		"winners":    winnerCount,
		"ends_at":    endsAt.UTC(),
	})

	s.log.Info().
		Str("message_id", messageID).
		Str("guild_id", guildID).
		Time("ends_at", endsAt).
		Msg("Giveaway started")

	return giveaway, nil
}

// RegisterParticipant adds a user to an open giveaway. Ended, unknown or
// repeated joins are silent no-ops.
func (s *Service) RegisterParticipant(ctx context.Context, messageID, userID string) error {
	giveaway, err := s.repo.GetByID(ctx, messageID)
	if err != nil {
		if errors.Is(err, repository.ErrGiveawayNotFound) || errors.Is(err, repository.ErrCorruptRecord) {
			s.log.Debug().Str("message_id", messageID).Msg("Join for unknown giveaway ignored")
			return nil
		}
		return apperrors.NewDatabaseError("get giveaway", err)
	}
	if giveaway.Ended {
		return nil
	}

	if err := s.repo.AddParticipant(ctx, messageID, userID); err != nil {
		return apperrors.NewDatabaseError("add participant", err)
	}

	s.events.Append(ctx, "giveaway.join", map[string]interface{}{
		"message_id": messageID,
		"user_id":    userID,
	})
	return nil
}

// Complete is the single completion path, shared by the timer and the manual
// end request. The per-message lock serializes racing completions; the ended
// flag in the store makes the second one a no-op.
func (s *Service) Complete(ctx context.Context, messageID string) (*CompleteResult, error) {
	if err := s.repo.AcquireCompletionLock(ctx, messageID, completionLockTTL); err != nil {
		if errors.Is(err, repository.ErrAlreadyLocked) {
			// Another caller is completing this giveaway right now;
			// its outcome stands for both.
			return &CompleteResult{InFlight: true}, nil
		}
		return nil, apperrors.NewDatabaseError("acquire completion lock", err)
	}
	defer func() {
		if err := s.repo.ReleaseCompletionLock(context.Background(), messageID); err != nil {
			s.log.Warn().Err(err).Str("message_id", messageID).Msg("Failed to release completion lock")
		}
	}()

	start := time.Now()

	giveaway, err := s.repo.GetByID(ctx, messageID)
	if err != nil {
		if errors.Is(err, repository.ErrGiveawayNotFound) {
			return &CompleteResult{NotFound: true}, nil
		}
		if errors.Is(err, repository.ErrCorruptRecord) {
			s.log.Error().Err(err).Str("message_id", messageID).Msg("Corrupted giveaway record treated as absent")
			return &CompleteResult{NotFound: true}, nil
		}
		return nil, apperrors.NewDatabaseError("get giveaway", err)
	}

	if giveaway.Ended {
		s.stopTimer(messageID)
		return &CompleteResult{AlreadyEnded: true, Winners: giveaway.Winners}, nil
	}

	participants, err := s.repo.GetParticipants(ctx, messageID)
	if err != nil {
		return nil, apperrors.NewDatabaseError("get participants", err)
	}

	winners, err := selectWinners(participants, giveaway.WinnerCount)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeInternal, "winner selection failed")
	}

	giveaway.Winners = winners
	giveaway.Ended = true
	giveaway.UpdatedAt = time.Now()

	// The store is authoritative: the ended transition persists before any
	// announcement is attempted and regardless of its outcome.
	if err := s.repo.MarkEnded(ctx, giveaway); err != nil {
		return nil, apperrors.NewDatabaseError("mark giveaway ended", err)
	}

	s.stopTimer(messageID)
	metrics.GiveawaysCompleted.Inc()
	metrics.CompletionDuration.Observe(time.Since(start).Seconds())
	s.events.Append(ctx, "giveaway.end", map[string]interface{}{
		"message_id":   messageID,
		"guild_id":     giveaway.GuildID,
		"winners":      winners,
		"participants": len(participants),
	})

	s.wg.Add(1)
	go s.announceResult(giveaway)

	s.log.Info().
		Str("message_id", messageID).
		Int("participants", len(participants)).
		Int("winners", len(winners)).
		Msg("Giveaway completed")

	return &CompleteResult{Completed: true, Winners: winners}, nil
}

// ResumeAll rebuilds completion timers from persisted deadlines. Giveaways
// whose deadline passed while the process was down complete immediately.
// Runs once at startup, before any events are processed.
func (s *Service) ResumeAll(ctx context.Context) error {
	ids, err := s.repo.GetActiveIDs(ctx)
	if err != nil {
		return apperrors.NewDatabaseError("list active giveaways", err)
	}

	now := time.Now()
	resumed, caughtUp := 0, 0
	for _, id := range ids {
		giveaway, err := s.repo.GetByID(ctx, id)
		if err != nil {
			// A corrupted or vanished record must not stop the rest
			// of the resume pass.
			s.log.Error().Err(err).Str("message_id", id).Msg("Skipping unreadable giveaway during resume")
			continue
		}
		if giveaway.Ended {
			continue
		}

		if giveaway.Expired(now) {
			if _, err := s.Complete(ctx, id); err != nil {
				s.log.Error().Err(err).Str("message_id", id).Msg("Failed to complete overdue giveaway")
			} else {
				caughtUp++
			}
			continue
		}

		s.scheduleCompletion(id, giveaway.EndsAt.Sub(now))
		resumed++
	}

	s.log.Info().
		Int("rescheduled", resumed).
		Int("caught_up", caughtUp).
		Msg("Giveaway resume pass finished")
	return nil
}

// Stop cancels pending timers and waits for in-flight announcements.
func (s *Service) Stop() {
	s.cancel()
	s.timers.Range(func(key, value interface{}) bool {
		if timer, ok := value.(*time.Timer); ok {
			timer.Stop()
		}
		s.timers.Delete(key)
		return true
	})
	s.wg.Wait()
}

func (s *Service) scheduleCompletion(messageID string, d time.Duration) {
	if d < 0 {
		d = 0
	}
	timer := time.AfterFunc(d, func() {
		s.timers.Delete(messageID)
		if s.ctx.Err() != nil {
			return
		}
		if _, err := s.Complete(context.Background(), messageID); err != nil {
			s.log.Error().Err(err).Str("message_id", messageID).Msg("Timed completion failed")
		}
	})

	if prev, loaded := s.timers.Swap(messageID, timer); loaded {
		if prevTimer, ok := prev.(*time.Timer); ok {
			prevTimer.Stop()
		}
	}
}

func (s *Service) stopTimer(messageID string) {
	if value, loaded := s.timers.LoadAndDelete(messageID); loaded {
		if timer, ok := value.(*time.Timer); ok {
			timer.Stop()
		}
	}
}

// announceResult posts the outcome after the transition persisted. A slow or
// failing platform never blocks or reverts the state machine.
func (s *Service) announceResult(giveaway *models.Giveaway) {
	defer s.wg.Done()

	ctx, cancel := context.WithTimeout(context.Background(), announceTimeout)
	defer cancel()

	var content string
	if len(giveaway.Winners) == 0 {
		content = fmt.Sprintf("Giveaway for **%s** ended with no participants.", giveaway.Prize)
	} else {
		mentions := make([]string, len(giveaway.Winners))
		for i, w := range giveaway.Winners {
			mentions[i] = "<@" + w + ">"
		}
		content = fmt.Sprintf("🎉 Giveaway ended! Prize: **%s**\nWinners: %s", giveaway.Prize, strings.Join(mentions, ", "))
	}

	if _, err := s.chat.PostAnnouncement(ctx, giveaway.ChannelID, content); err != nil {
		metrics.AnnouncementFailures.Inc()
		s.events.Append(ctx, "giveaway.announce_error", map[string]interface{}{
			"message_id": giveaway.MessageID,
			"error":      err.Error(),
		})
		s.log.Warn().Err(err).Str("message_id", giveaway.MessageID).Msg("Failed to announce giveaway result")
	}
}

// selectWinners draws min(winnerCount, len(participants)) distinct winners
// uniformly without replacement.
func selectWinners(participants []string, winnerCount int) ([]string, error) {
	if len(participants) == 0 {
		return []string{}, nil
	}

	shuffled := make([]string, len(participants))
	copy(shuffled, participants)
	if err := random.Shuffle(shuffled); err != nil {
		return nil, err
	}

	if winnerCount > len(shuffled) {
		winnerCount = len(shuffled)
	}
	return shuffled[:winnerCount], nil
}
