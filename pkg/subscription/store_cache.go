package subscription

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const cacheKeyPrefix = "billing:subscription:"

type cachedStore struct {
	next RecordStore
	rdb  *redis.Client
	ttl  time.Duration
}

// NewCachedStore wraps a RecordStore with a Redis read-through cache. Feature
// gating reads the record on nearly every premium request, so the hot path
// should not hit Postgres each time.
//
// Cache failures are swallowed: Redis is an accelerator here, never a source
// of truth, and a cache outage must not change reconciliation behavior.
// Upserts write through to the underlying store first and then invalidate the
// key, so a racing read can at worst repopulate the just-written state.
func NewCachedStore(next RecordStore, rdb *redis.Client, ttl time.Duration) RecordStore {
	if next == nil {
		panic("subscription: underlying RecordStore is required")
	}
	if rdb == nil {
		panic("subscription: redis client is required")
	}
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &cachedStore{next: next, rdb: rdb, ttl: ttl}
}

func (s *cachedStore) Get(ctx context.Context, userID uuid.UUID) (*Record, error) {
	key := cacheKeyPrefix + userID.String()

	if raw, err := s.rdb.Get(ctx, key).Bytes(); err == nil {
		var rec Record
		if err := json.Unmarshal(raw, &rec); err == nil {
			return &rec, nil
		}
		// Corrupt entry: drop it and fall through to the source of truth.
		_ = s.rdb.Del(ctx, key).Err()
	}

	rec, err := s.next.Get(ctx, userID)
	if err != nil {
		return nil, err
	}

	if raw, err := json.Marshal(rec); err == nil {
		_ = s.rdb.Set(ctx, key, raw, s.ttl).Err()
	}
	return rec, nil
}

func (s *cachedStore) Upsert(ctx context.Context, rec *Record) error {
	if err := s.next.Upsert(ctx, rec); err != nil {
		return err
	}
	_ = s.rdb.Del(ctx, cacheKeyPrefix+rec.UserID.String()).Err()
	return nil
}
