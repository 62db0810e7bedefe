package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"community-bot-backend/internal/features/giveaway/models"
	"community-bot-backend/internal/features/giveaway/repository"
)

const (
	keyPrefixGiveaway     = "giveaway:"
	keyPrefixParticipants = "giveaway:participants:"
	keyPrefixLock         = "lock:giveaway:"
	keyActiveGiveaways    = "giveaways:active"
)

type redisRepository struct {
	client *redis.Client
}

func NewRedisGiveawayRepository(client *redis.Client) repository.Repository {
	return &redisRepository{client: client}
}

func makeGiveawayKey(messageID string) string {
	return keyPrefixGiveaway + messageID
}

func makeParticipantsKey(messageID string) string {
	return keyPrefixParticipants + messageID
}

func makeLockKey(messageID string) string {
	return keyPrefixLock + messageID
}

func (r *redisRepository) Create(ctx context.Context, giveaway *models.Giveaway) error {
	data, err := json.Marshal(giveaway)
	if err != nil {
		return fmt.Errorf("failed to marshal giveaway: %w", err)
	}

	pipe := r.client.Pipeline()
	pipe.Set(ctx, makeGiveawayKey(giveaway.MessageID), data, 0)
	pipe.SAdd(ctx, keyActiveGiveaways, giveaway.MessageID)

	_, err = pipe.Exec(ctx)
	return err
}

func (r *redisRepository) GetByID(ctx context.Context, messageID string) (*models.Giveaway, error) {
	data, err := r.client.Get(ctx, makeGiveawayKey(messageID)).Bytes()
	if err == redis.Nil {
		return nil, repository.ErrGiveawayNotFound
	}
	if err != nil {
		return nil, err
	}

	var giveaway models.Giveaway
	if err := json.Unmarshal(data, &giveaway); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", repository.ErrCorruptRecord, messageID, err)
	}

	return &giveaway, nil
}

func (r *redisRepository) MarkEnded(ctx context.Context, giveaway *models.Giveaway) error {
	data, err := json.Marshal(giveaway)
	if err != nil {
		return fmt.Errorf("failed to marshal giveaway: %w", err)
	}

	pipe := r.client.Pipeline()
	pipe.Set(ctx, makeGiveawayKey(giveaway.MessageID), data, 0)
	pipe.SRem(ctx, keyActiveGiveaways, giveaway.MessageID)

	_, err = pipe.Exec(ctx)
	return err
}

func (r *redisRepository) GetActiveIDs(ctx context.Context) ([]string, error) {
	return r.client.SMembers(ctx, keyActiveGiveaways).Result()
}

func (r *redisRepository) AddParticipant(ctx context.Context, messageID, userID string) error {
	// SADD is idempotent, repeated joins are free.
	return r.client.SAdd(ctx, makeParticipantsKey(messageID), userID).Err()
}

func (r *redisRepository) GetParticipants(ctx context.Context, messageID string) ([]string, error) {
	return r.client.SMembers(ctx, makeParticipantsKey(messageID)).Result()
}

func (r *redisRepository) AcquireCompletionLock(ctx context.Context, messageID string, ttl time.Duration) error {
	ok, err := r.client.SetNX(ctx, makeLockKey(messageID), "locked", ttl).Result()
	if err != nil {
		return fmt.Errorf("failed to acquire lock: %w", err)
	}
	if !ok {
		return repository.ErrAlreadyLocked
	}
	return nil
}

func (r *redisRepository) ReleaseCompletionLock(ctx context.Context, messageID string) error {
	return r.client.Del(ctx, makeLockKey(messageID)).Err()
}
