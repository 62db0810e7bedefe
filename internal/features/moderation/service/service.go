package service

import (
	"context"

	"github.com/rs/zerolog"

	apperrors "community-bot-backend/internal/common/errors"
	"community-bot-backend/internal/common/metrics"
	"community-bot-backend/internal/features/eventlog"
	"community-bot-backend/internal/features/moderation"
	"community-bot-backend/internal/features/moderation/repository"
)

// Service counts rule violations. It enforces no escalation policy; the
// updated count is returned for display and any banning decision stays with
// the operators.
type Service struct {
	filter   *moderation.Filter
	warnings repository.WarningRepository
	events   *eventlog.Logger
	log      zerolog.Logger
}

func New(filter *moderation.Filter, warnings repository.WarningRepository, events *eventlog.Logger, log zerolog.Logger) *Service {
	return &Service{filter: filter, warnings: warnings, events: events, log: log}
}

// CheckResult reports the outcome of one message check.
type CheckResult struct {
	Violation    bool   `json:"violation"`
	Reason       string `json:"reason,omitempty"`
	WarningCount int64  `json:"warning_count,omitempty"`
}

// CheckMessage runs the heuristics and, on a violation, increments and
// returns the user's warning counter.
func (s *Service) CheckMessage(ctx context.Context, content, guildID, userID string) (*CheckResult, error) {
	violated, reason := s.filter.Check(content)
	if !violated {
		return &CheckResult{}, nil
	}

	count, err := s.RecordViolation(ctx, guildID, userID)
	if err != nil {
		return nil, err
	}

	s.events.Append(ctx, "moderation.warn", map[string]interface{}{
		"guild_id":      guildID,
		"user_id":       userID,
		"reason":        reason,
		"warning_count": count,
	})

	s.log.Info().
		Str("guild_id", guildID).
		Str("user_id", userID).
		Str("reason", reason).
		Int64("warning_count", count).
		Msg("Message rule violation recorded")

	return &CheckResult{Violation: true, Reason: reason, WarningCount: count}, nil
}

// RecordViolation increments and persists the warning counter for
// (guildID, userID) and returns the new count.
func (s *Service) RecordViolation(ctx context.Context, guildID, userID string) (int64, error) {
	count, err := s.warnings.Increment(ctx, guildID, userID)
	if err != nil {
		return 0, apperrors.NewDatabaseError("increment warning counter", err)
	}
	metrics.ModerationViolations.Inc()
	return count, nil
}

// WarningCount returns the current counter without incrementing it.
func (s *Service) WarningCount(ctx context.Context, guildID, userID string) (int64, error) {
	count, err := s.warnings.Get(ctx, guildID, userID)
	if err != nil {
		return 0, apperrors.NewDatabaseError("get warning counter", err)
	}
	return count, nil
}
