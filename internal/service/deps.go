package service

import (
	"context"
	"time"

	"github.com/pairline/match-server-go/internal/database"
	"github.com/pairline/match-server-go/internal/sse"
)

// TxRunner runs a function inside a single store transaction.
// *database.DB satisfies it; tests substitute a fake.
type TxRunner interface {
	WithTx(ctx context.Context, fn database.TxFunc) error
}

var _ TxRunner = (*database.DB)(nil)

// PairLocker is the advisory lock guarding a specific candidate pair
// against concurrent pairing retries. The lock must expire on its own;
// the transaction, not the lock, is what protects committed state.
type PairLocker interface {
	AcquirePairLock(ctx context.Context, a, b string, ttl time.Duration) (bool, error)
	ReleasePairLock(ctx context.Context, a, b string) error
}

// EventPublisher pushes a lifecycle event to a user's subscribers.
type EventPublisher interface {
	Publish(ctx context.Context, userID string, event sse.Event) error
}

// Limiter answers whether an action is within its sliding-window rate.
type Limiter interface {
	CheckLimit(ctx context.Context, key string, limit int, window time.Duration) (allowed bool, resetAt time.Time)
}
