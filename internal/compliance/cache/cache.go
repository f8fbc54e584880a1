// Package cache provides a Redis read-through cache for the party state the
// transfer authorization path reads on every hook invocation.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"custodia/internal/compliance"
	"custodia/internal/ledger"
	"custodia/pkg/platform/sentinel"
)

const (
	whitelistKeyPrefix = "cmp:wl:"
	blacklistKeyPrefix = "cmp:bl:"

	// notFoundMarker caches misses so an unlisted address does not hit the
	// store on every transfer.
	notFoundMarker = "-"
)

// PartyCache is a read-through compliance.PartyReader. Reads go to Redis
// first and fall back to the backing store; list mutations evict through
// InvalidateParty. Cache failures degrade to the store, never to a denial.
type PartyCache struct {
	client *redis.Client
	store  compliance.PartyReader
	ttl    time.Duration
	logger *slog.Logger
}

// Option configures a PartyCache.
type Option func(*PartyCache)

// WithTTL overrides the default entry TTL.
func WithTTL(ttl time.Duration) Option {
	return func(c *PartyCache) { c.ttl = ttl }
}

// WithLogger attaches a logger for cache degradation warnings.
func WithLogger(logger *slog.Logger) Option {
	return func(c *PartyCache) { c.logger = logger }
}

func New(client *redis.Client, store compliance.PartyReader, opts ...Option) *PartyCache {
	c := &PartyCache{
		client: client,
		store:  store,
		ttl:    30 * time.Second,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// GetWhitelist implements compliance.PartyReader.
func (c *PartyCache) GetWhitelist(ctx context.Context, investor ledger.Address) (compliance.WhitelistEntry, error) {
	var entry compliance.WhitelistEntry
	err := c.readThrough(ctx, whitelistKeyPrefix+investor.String(), &entry, func() (any, error) {
		wl, err := c.store.GetWhitelist(ctx, investor)
		return wl, err
	})
	return entry, err
}

// GetBlacklist implements compliance.PartyReader.
func (c *PartyCache) GetBlacklist(ctx context.Context, addr ledger.Address) (compliance.BlacklistEntry, error) {
	var entry compliance.BlacklistEntry
	err := c.readThrough(ctx, blacklistKeyPrefix+addr.String(), &entry, func() (any, error) {
		bl, err := c.store.GetBlacklist(ctx, addr)
		return bl, err
	})
	return entry, err
}

// InvalidateParty evicts both list entries for an address. Called by the
// service after any mutation touching the address.
func (c *PartyCache) InvalidateParty(ctx context.Context, addr ledger.Address) {
	keys := []string{whitelistKeyPrefix + addr.String(), blacklistKeyPrefix + addr.String()}
	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		c.logger.Warn("party cache invalidation failed", "addr", addr.String(), "error", err)
	}
}

func (c *PartyCache) readThrough(ctx context.Context, key string, dst any, load func() (any, error)) error {
	raw, err := c.client.Get(ctx, key).Result()
	switch {
	case err == nil:
		if raw == notFoundMarker {
			return sentinel.ErrNotFound
		}
		if err := json.Unmarshal([]byte(raw), dst); err == nil {
			return nil
		}
		// Corrupt entry: fall through to the store and rewrite.
	case !errors.Is(err, redis.Nil):
		c.logger.Warn("party cache read failed, falling back to store", "key", key, "error", err)
	}

	value, err := load()
	if errors.Is(err, sentinel.ErrNotFound) {
		c.set(ctx, key, notFoundMarker)
		return sentinel.ErrNotFound
	}
	if err != nil {
		return err
	}

	encoded, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode cache entry: %w", err)
	}
	c.set(ctx, key, string(encoded))

	return json.Unmarshal(encoded, dst)
}

func (c *PartyCache) set(ctx context.Context, key, value string) {
	if err := c.client.Set(ctx, key, value, c.ttl).Err(); err != nil {
		c.logger.Warn("party cache write failed", "key", key, "error", err)
	}
}
