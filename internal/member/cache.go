package member

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/partnerdesk/partnerdesk/internal/domain"
)

// CachedClient decorates a Client with a Redis cache. Members are
// read-mostly, so cached records are served until the TTL expires; cache
// failures degrade to the backing client rather than failing the lookup.
type CachedClient struct {
	next   Client
	rdb    *redis.Client
	ttl    time.Duration
	logger *slog.Logger
}

// NewCachedClient wraps next with a Redis cache.
func NewCachedClient(next Client, rdb *redis.Client, ttl time.Duration, logger *slog.Logger) *CachedClient {
	return &CachedClient{next: next, rdb: rdb, ttl: ttl, logger: logger}
}

func cacheKey(id string) string {
	return "member:" + id
}

func (c *CachedClient) GetMember(ctx context.Context, id string) (*domain.Member, error) {
	raw, err := c.rdb.Get(ctx, cacheKey(id)).Bytes()
	if err == nil {
		var m domain.Member
		if jsonErr := json.Unmarshal(raw, &m); jsonErr == nil {
			return &m, nil
		}
	} else if err != redis.Nil {
		c.logger.Warn("member cache read failed", "member_id", id, "error", err)
	}

	m, err := c.next.GetMember(ctx, id)
	if err != nil || m == nil {
		return m, err
	}

	if raw, jsonErr := json.Marshal(m); jsonErr == nil {
		if setErr := c.rdb.Set(ctx, cacheKey(id), raw, c.ttl).Err(); setErr != nil {
			c.logger.Warn("member cache write failed", "member_id", id, "error", setErr)
		}
	}
	return m, nil
}
