package repository

import (
	"context"
)

// CreditRepository stores cumulative attributed-join counters per inviter.
// Counters are monotonic and incremented at most once per join event.
type CreditRepository interface {
	IncrementCredit(ctx context.Context, inviterID string) (int64, error)
	GetCredit(ctx context.Context, inviterID string) (int64, error)
}
