package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/coinarena/arenad/internal/domain"
)

// Open battles carry a short TTL because their totals move with every
// deposit; finalized battles are immutable and can live much longer.
const (
	openBattleTTL      = 30 * time.Second
	finalizedBattleTTL = 24 * time.Hour
)

// BattleCache implements domain.BattleCache using JSON-serialized battles
// under "battle:{id}" keys.
type BattleCache struct {
	rdb *redis.Client
}

// NewBattleCache creates a BattleCache backed by the given Client.
func NewBattleCache(c *Client) *BattleCache {
	return &BattleCache{rdb: c.Underlying()}
}

func battleKey(id int64) string {
	return "battle:" + strconv.FormatInt(id, 10)
}

// Set stores a battle. The TTL depends on whether the battle is finalized.
func (bc *BattleCache) Set(ctx context.Context, b domain.Battle) error {
	data, err := json.Marshal(b)
	if err != nil {
		return fmt.Errorf("redis: marshal battle %d: %w", b.ID, err)
	}

	ttl := openBattleTTL
	if b.Finalized {
		ttl = finalizedBattleTTL
	}

	if err := bc.rdb.Set(ctx, battleKey(b.ID), data, ttl).Err(); err != nil {
		return fmt.Errorf("redis: set battle %d: %w", b.ID, err)
	}
	return nil
}

// Get retrieves a battle by id. It returns domain.ErrNotFound when the key
// does not exist.
func (bc *BattleCache) Get(ctx context.Context, id int64) (domain.Battle, error) {
	data, err := bc.rdb.Get(ctx, battleKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return domain.Battle{}, domain.ErrNotFound
		}
		return domain.Battle{}, fmt.Errorf("redis: get battle %d: %w", id, err)
	}

	var b domain.Battle
	if err := json.Unmarshal(data, &b); err != nil {
		return domain.Battle{}, fmt.Errorf("redis: unmarshal battle %d: %w", id, err)
	}
	return b, nil
}

// Invalidate removes a battle from the cache.
func (bc *BattleCache) Invalidate(ctx context.Context, id int64) error {
	if err := bc.rdb.Del(ctx, battleKey(id)).Err(); err != nil {
		return fmt.Errorf("redis: invalidate battle %d: %w", id, err)
	}
	return nil
}

// Compile-time interface check.
var _ domain.BattleCache = (*BattleCache)(nil)
