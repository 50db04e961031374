package talks

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/confweb/talkvote/internal/model"
	redisclient "github.com/confweb/talkvote/internal/redis"
)

// Store is the subset of the redis client the cache needs.
type Store interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
}

// CachedSource serves the talk list from redis and falls back to the
// upstream source on a miss. A redis failure is logged and bypassed.
type CachedSource struct {
	upstream Source
	store    Store
	ttl      time.Duration
}

func NewCachedSource(upstream Source, store Store, ttl time.Duration) *CachedSource {
	return &CachedSource{
		upstream: upstream,
		store:    store,
		ttl:      ttl,
	}
}

func (c *CachedSource) Talks(ctx context.Context) ([]model.Talk, error) {
	key := redisclient.TalksCacheKey()

	raw, err := c.store.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var talks []model.Talk
		jsonErr := json.Unmarshal(raw, &talks)
		if jsonErr == nil {
			return talks, nil
		}
		log.Warn().Err(jsonErr).Str("key", key).Msg("discarding malformed cached talks")
	case errors.Is(err, redis.Nil):
	default:
		log.Warn().Err(err).Str("key", key).Msg("talk cache read failed")
	}

	return c.Refresh(ctx)
}

// Refresh loads the list from upstream and overwrites the cached copy.
func (c *CachedSource) Refresh(ctx context.Context) ([]model.Talk, error) {
	talks, err := c.upstream.Talks(ctx)
	if err != nil {
		return nil, err
	}

	data, err := json.Marshal(talks)
	if err != nil {
		return nil, fmt.Errorf("marshal talks: %w", err)
	}
	if err := c.store.Set(ctx, redisclient.TalksCacheKey(), data, c.ttl).Err(); err != nil {
		log.Warn().Err(err).Msg("talk cache write failed")
	}

	return talks, nil
}
