package cart

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/bluebeachhouse/storefront-backend/pkg/redis"
)

// record is the persisted shape: items only, drawer state is ephemeral.
type record struct {
	Items []Item `json:"items"`
}

// Store persists cart snapshots per token with a rolling TTL.
type Store struct {
	cache redis.CartStore
	ttl   time.Duration
}

// NewStore builds a cart store over the shared Redis client.
func NewStore(cache redis.CartStore, ttl time.Duration) (*Store, error) {
	if cache == nil {
		return nil, errors.New("cart cache is required")
	}
	if ttl <= 0 {
		return nil, errors.New("cart ttl must be positive")
	}
	return &Store{cache: cache, ttl: ttl}, nil
}

// Load restores the snapshot for token. Absent or corrupt records restore as
// an empty cart; persistence failures other than a miss surface to the caller.
func (s *Store) Load(ctx context.Context, token string) (Snapshot, error) {
	raw, err := s.cache.Get(ctx, s.cache.CartKey(token))
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return Snapshot{Items: []Item{}}, nil
		}
		return Snapshot{}, err
	}

	var rec record
	if err := json.Unmarshal([]byte(raw), &rec); err != nil {
		return Snapshot{Items: []Item{}}, nil
	}
	if rec.Items == nil {
		rec.Items = []Item{}
	}
	return Snapshot{Items: rec.Items}, nil
}

// Save persists the snapshot's items, refreshing the TTL.
func (s *Store) Save(ctx context.Context, token string, snap Snapshot) error {
	payload, err := json.Marshal(record{Items: snap.Items})
	if err != nil {
		return err
	}
	return s.cache.Set(ctx, s.cache.CartKey(token), string(payload), s.ttl)
}

// Delete removes the persisted cart.
func (s *Store) Delete(ctx context.Context, token string) error {
	return s.cache.Del(ctx, s.cache.CartKey(token))
}
