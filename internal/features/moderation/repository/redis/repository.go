package redis

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"community-bot-backend/internal/features/moderation/repository"
)

const keyPrefixWarnings = "warnings:"

type redisRepository struct {
	client *redis.Client
}

func NewRedisWarningRepository(client *redis.Client) repository.WarningRepository {
	return &redisRepository{client: client}
}

func makeWarningKey(guildID, userID string) string {
	return fmt.Sprintf("%s%s:%s", keyPrefixWarnings, guildID, userID)
}

// Increment bumps the violation counter. INCR is atomic, so two
// simultaneous violations by the same user both land.
func (r *redisRepository) Increment(ctx context.Context, guildID, userID string) (int64, error) {
	return r.client.Incr(ctx, makeWarningKey(guildID, userID)).Result()
}

func (r *redisRepository) Get(ctx context.Context, guildID, userID string) (int64, error) {
	value, err := r.client.Get(ctx, makeWarningKey(guildID, userID)).Int64()
	if err == redis.Nil {
		return 0, nil
	}
	return value, err
}
