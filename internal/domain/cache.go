package domain

import (
	"context"
	"time"
)

// BattleCache provides fast battle metadata lookups. Finalized battles are
// immutable and may be cached without TTL concerns; open battles carry a
// short TTL because their totals move with every deposit.
type BattleCache interface {
	Set(ctx context.Context, b Battle) error
	Get(ctx context.Context, id int64) (Battle, error)
	Invalidate(ctx context.Context, id int64) error
}

// RateLimiter provides distributed rate limiting.
type RateLimiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
	Wait(ctx context.Context, key string) error
}

// LockManager provides distributed locking.
type LockManager interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (unlock func(), err error)
}

// StreamMessage represents a single entry from a Redis stream.
type StreamMessage struct {
	ID      string
	Payload []byte
}

// SignalBus provides pub/sub and durable streams for engine records.
type SignalBus interface {
	Publish(ctx context.Context, channel string, payload []byte) error
	Subscribe(ctx context.Context, channel string) (<-chan []byte, error)
	StreamAppend(ctx context.Context, stream string, payload []byte) error
	StreamRead(ctx context.Context, stream string, lastID string, count int) ([]StreamMessage, error)
}
