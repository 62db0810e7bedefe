package service

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	apperrors "community-bot-backend/internal/common/errors"
	"community-bot-backend/internal/common/metrics"
	"community-bot-backend/internal/features/archive"
	"community-bot-backend/internal/features/eventlog"
	"community-bot-backend/internal/features/invites/cache"
	"community-bot-backend/internal/features/invites/repository"
	"community-bot-backend/internal/platform/chat"
)

// Service reconciles join events against invite usage snapshots. Attribution
// is a best-effort heuristic: the invite table is read at cache time and at
// event time with no transactional guarantee in between, so concurrent joins
// in the same window can be misattributed. The platform exposes no
// authoritative join cause; this does not try to invent one.
type Service struct {
	chat    chat.Client
	cache   *cache.SnapshotCache
	credits repository.CreditRepository
	events  *eventlog.Logger
	archive *archive.Service
	log     zerolog.Logger

	// When set, attributed joins post a welcome message here.
	welcomeChannelID string
}

func New(chatClient chat.Client, snapshots *cache.SnapshotCache, credits repository.CreditRepository, events *eventlog.Logger, archiveSvc *archive.Service, welcomeChannelID string, log zerolog.Logger) *Service {
	return &Service{
		chat:             chatClient,
		cache:            snapshots,
		credits:          credits,
		events:           events,
		archive:          archiveSvc,
		welcomeChannelID: welcomeChannelID,
		log:              log,
	}
}

// JoinResult reports the attribution outcome for one join event.
type JoinResult struct {
	InviterID  string `json:"inviter_id,omitempty"`
	Attributed bool   `json:"attributed"`
	NewCredit  int64  `json:"new_credit,omitempty"`
}

// OnJoin infers which invite caused the join, credits its inviter exactly
// once and replaces the cached snapshot with the fresh table regardless of
// the outcome.
func (s *Service) OnJoin(ctx context.Context, guildID, userID, username string) (*JoinResult, error) {
	invites, err := s.chat.FetchInvites(ctx, guildID)
	if err != nil {
		// No fresh table, no diff. The stale snapshot stays so the next
		// join still has a baseline.
		s.log.Warn().Err(err).Str("guild_id", guildID).Msg("Invite fetch failed, join left unattributed")
		return nil, apperrors.NewExternalAPIError("fetch invites", err)
	}

	previous, cached := s.cache.Get(guildID)

	var used *chat.Invite
	if cached {
		// The used invite is the one whose uses count grew. If several
		// grew in the same window the first in fetch order wins; the
		// window is not precise enough to do better.
		increases := 0
		for i := range invites {
			if invites[i].Uses > previous[invites[i].Code] {
				increases++
				if used == nil {
					used = &invites[i]
				}
			}
		}
		if increases > 1 {
			s.log.Debug().Str("guild_id", guildID).Int("increases", increases).Msg("Ambiguous attribution window")
		}
	} else {
		// Cold start: best effort, first invite with any uses.
		for i := range invites {
			if invites[i].Uses > 0 {
				used = &invites[i]
				break
			}
		}
	}

	// Replace unconditionally, even when nothing matched, so the next join
	// compares against current state.
	snapshot := make(map[string]int, len(invites))
	for _, inv := range invites {
		snapshot[inv.Code] = inv.Uses
	}
	s.cache.Replace(guildID, snapshot)

	result := &JoinResult{}
	if used != nil && used.InviterID != "" {
		newCredit, err := s.credits.IncrementCredit(ctx, used.InviterID)
		if err != nil {
			return nil, apperrors.NewDatabaseError("increment inviter credit", err)
		}
		result.InviterID = used.InviterID
		result.Attributed = true
		result.NewCredit = newCredit
		metrics.InviteAttributions.WithLabelValues("attributed").Inc()
	} else {
		metrics.InviteAttributions.WithLabelValues("unattributed").Inc()
	}

	s.events.Append(ctx, "member.join", map[string]interface{}{
		"guild_id":   guildID,
		"user_id":    userID,
		"username":   username,
		"inviter_id": result.InviterID,
	})

	if err := s.archive.SaveMember(ctx, archive.Member{
		GuildID:   guildID,
		UserID:    userID,
		Username:  username,
		JoinedAt:  time.Now(),
		InviterID: result.InviterID,
	}); err != nil {
		s.log.Warn().Err(err).Str("user_id", userID).Msg("Failed to archive member")
	}

	s.postWelcome(ctx, userID, username, result.InviterID)

	return result, nil
}

// RefreshSnapshot re-fetches a guild's invite table and replaces the cached
// snapshot, giving the first join after boot a baseline to diff against.
func (s *Service) RefreshSnapshot(ctx context.Context, guildID string) error {
	invites, err := s.chat.FetchInvites(ctx, guildID)
	if err != nil {
		return apperrors.NewExternalAPIError("fetch invites", err)
	}

	snapshot := make(map[string]int, len(invites))
	for _, inv := range invites {
		snapshot[inv.Code] = inv.Uses
	}
	s.cache.Replace(guildID, snapshot)

	s.log.Debug().Str("guild_id", guildID).Int("invites", len(invites)).Msg("Invite snapshot refreshed")
	return nil
}

// WarmUp refreshes every known guild at startup. Failures are logged per
// guild; a guild without a baseline simply falls back to cold-start
// attribution on its first join.
func (s *Service) WarmUp(ctx context.Context, guildIDs []string) {
	for _, guildID := range guildIDs {
		if err := s.RefreshSnapshot(ctx, guildID); err != nil {
			s.log.Warn().Err(err).Str("guild_id", guildID).Msg("Failed to warm invite snapshot")
		}
	}
}

func (s *Service) postWelcome(ctx context.Context, userID, username, inviterID string) {
	if s.welcomeChannelID == "" {
		return
	}

	name := username
	if name == "" {
		name = "<@" + userID + ">"
	}
	content := "Welcome " + name + "!"
	if inviterID != "" {
		content = "Welcome " + name + "! Invited by <@" + inviterID + ">."
	}

	if _, err := s.chat.PostAnnouncement(ctx, s.welcomeChannelID, content); err != nil {
		metrics.AnnouncementFailures.Inc()
		s.log.Warn().Err(err).Str("user_id", userID).Msg("Failed to post welcome message")
	}
}
