package repository

import (
	"context"
)

// WarningRepository stores the per-user violation counters, keyed by
// (guildID, userID). Counters only grow; there is no automatic reset.
type WarningRepository interface {
	Increment(ctx context.Context, guildID, userID string) (int64, error)
	Get(ctx context.Context, guildID, userID string) (int64, error)
}
