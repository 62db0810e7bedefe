// Package workers consumes gateway events from a Redis Stream. Deployments
// where the gateway process pushes events through Redis instead of HTTP use
// this path; the dispatch targets are the same core services.
package workers

import (
	"context"
	"strings"
	"time"

	go_redis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"community-bot-backend/internal/features/archive"
	invitesservice "community-bot-backend/internal/features/invites/service"
	moderationservice "community-bot-backend/internal/features/moderation/service"
	"community-bot-backend/internal/platform/redis"
)

const (
	streamKey     = "bot:events"
	consumerGroup = "communitybot_consumers"
	consumerName  = "communitybot_worker_1"
)

type EventStreamWorker struct {
	rdb        *redis.Client
	invites    *invitesservice.Service
	moderation *moderationservice.Service
	archive    *archive.Service
	log        zerolog.Logger
}

func NewEventStreamWorker(rdb *redis.Client, invites *invitesservice.Service, moderation *moderationservice.Service, archiveSvc *archive.Service, log zerolog.Logger) *EventStreamWorker {
	return &EventStreamWorker{
		rdb:        rdb,
		invites:    invites,
		moderation: moderation,
		archive:    archiveSvc,
		log:        log,
	}
}

// Start blocks reading the stream until ctx is cancelled.
func (w *EventStreamWorker) Start(ctx context.Context) {
	err := w.rdb.XGroupCreateMkStream(ctx, streamKey, consumerGroup, "$").Err()
	if err != nil && !strings.Contains(err.Error(), "BUSYGROUP") {
		w.log.Error().Err(err).Msg("Failed to create consumer group")
	}

	w.log.Info().Str("stream", streamKey).Msg("Event stream worker started")

	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("Event stream worker stopped")
			return
		default:
			entries, err := w.rdb.XReadGroup(ctx, &go_redis.XReadGroupArgs{
				Group:    consumerGroup,
				Consumer: consumerName,
				Streams:  []string{streamKey, ">"},
				Count:    10,
				Block:    5 * time.Second,
			}).Result()

			if err != nil {
				if err != go_redis.Nil && ctx.Err() == nil {
					w.log.Error().Err(err).Msg("Failed to read from event stream")
					time.Sleep(time.Second)
				}
				continue
			}

			for _, stream := range entries {
				for _, msg := range stream.Messages {
					w.processMessage(ctx, msg.Values)
					w.rdb.XAck(ctx, streamKey, consumerGroup, msg.ID)
				}
			}
		}
	}
}

func (w *EventStreamWorker) processMessage(ctx context.Context, values map[string]interface{}) {
	eventType, _ := values["type"].(string)

	switch eventType {
	case "member_join":
		guildID := stringField(values, "guild_id")
		userID := stringField(values, "user_id")
		if guildID == "" || userID == "" {
			return
		}
		if _, err := w.invites.OnJoin(ctx, guildID, userID, stringField(values, "username")); err != nil {
			w.log.Warn().Err(err).Str("guild_id", guildID).Msg("Stream join event failed")
		}

	case "message":
		guildID := stringField(values, "guild_id")
		userID := stringField(values, "user_id")
		if guildID == "" || userID == "" {
			return
		}
		content := stringField(values, "content")
		if err := w.archive.SaveMessage(ctx, archive.Message{
			GuildID:   guildID,
			ChannelID: stringField(values, "channel_id"),
			UserID:    userID,
			Username:  stringField(values, "username"),
			Content:   content,
		}); err != nil {
			w.log.Warn().Err(err).Str("user_id", userID).Msg("Failed to archive streamed message")
		}
		if _, err := w.moderation.CheckMessage(ctx, content, guildID, userID); err != nil {
			w.log.Warn().Err(err).Str("guild_id", guildID).Msg("Stream message check failed")
		}

	default:
		w.log.Debug().Str("type", eventType).Msg("Ignoring unknown stream event")
	}
}

func stringField(values map[string]interface{}, key string) string {
	s, _ := values[key].(string)
	return s
}
