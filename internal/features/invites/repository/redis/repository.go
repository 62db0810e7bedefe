package redis

import (
	"context"

	"github.com/redis/go-redis/v9"

	"community-bot-backend/internal/features/invites/repository"
)

const keyInviterCredits = "invites:credits"

type redisRepository struct {
	client *redis.Client
}

func NewRedisCreditRepository(client *redis.Client) repository.CreditRepository {
	return &redisRepository{client: client}
}

// IncrementCredit bumps the inviter's counter. HINCRBY is atomic per field,
// so concurrent joins crediting the same inviter never lose updates.
func (r *redisRepository) IncrementCredit(ctx context.Context, inviterID string) (int64, error) {
	return r.client.HIncrBy(ctx, keyInviterCredits, inviterID, 1).Result()
}

func (r *redisRepository) GetCredit(ctx context.Context, inviterID string) (int64, error) {
	value, err := r.client.HGet(ctx, keyInviterCredits, inviterID).Int64()
	if err == redis.Nil {
		return 0, nil
	}
	return value, err
}
