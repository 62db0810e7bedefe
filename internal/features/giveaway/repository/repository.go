package repository

import (
	"context"
	"errors"
	"time"

	"community-bot-backend/internal/features/giveaway/models"
)

var (
	ErrGiveawayNotFound = errors.New("giveaway not found")

	// ErrCorruptRecord marks a persisted blob that cannot be decoded. The
	// caller treats the record as absent; availability over a corrupted
	// read.
	ErrCorruptRecord = errors.New("giveaway record corrupted")

	ErrAlreadyLocked = errors.New("giveaway is already locked")
)

// Repository is the durable store for giveaways. Participant sets live next
// to the record; the active index drives restart-time resumption.
type Repository interface {
	Create(ctx context.Context, giveaway *models.Giveaway) error
	GetByID(ctx context.Context, messageID string) (*models.Giveaway, error)

	// MarkEnded persists the ended transition and drops the giveaway from
	// the active index.
	MarkEnded(ctx context.Context, giveaway *models.Giveaway) error

	// GetActiveIDs returns the message IDs of every giveaway with
	// ended=false, in no particular order.
	GetActiveIDs(ctx context.Context) ([]string, error)

	AddParticipant(ctx context.Context, messageID, userID string) error
	GetParticipants(ctx context.Context, messageID string) ([]string, error)

	// AcquireCompletionLock serializes completion per message ID. Returns
	// ErrAlreadyLocked when another completion holds the lock.
	AcquireCompletionLock(ctx context.Context, messageID string, ttl time.Duration) error
	ReleaseCompletionLock(ctx context.Context, messageID string) error
}
