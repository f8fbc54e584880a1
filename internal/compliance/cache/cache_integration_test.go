//go:build integration

package cache_test

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"custodia/internal/compliance"
	"custodia/internal/compliance/cache"
	"custodia/internal/ledger"
	"custodia/pkg/platform/sentinel"
	"custodia/pkg/testutil/containers"
)

func newCache(t *testing.T) (*cache.PartyCache, compliance.Store) {
	t.Helper()
	redis := containers.NewRedisContainer(t)
	store := compliance.NewInMemoryStore()
	c := cache.New(redis.Client, store,
		cache.WithTTL(time.Minute),
		cache.WithLogger(slog.New(slog.DiscardHandler)))
	return c, store
}

func TestReadThroughServesCachedEntry(t *testing.T) {
	ctx := context.Background()
	c, store := newCache(t)
	investor := ledger.Derive(ledger.KindWhitelist, []byte("investor"))

	entry := compliance.WhitelistEntry{
		Investor:     investor,
		Jurisdiction: "US",
		KYCVerified:  true,
		KYCExpiry:    time.Date(2027, 3, 1, 0, 0, 0, 0, time.UTC),
		Active:       true,
	}
	require.NoError(t, store.PutWhitelist(ctx, entry))

	got, err := c.GetWhitelist(ctx, investor)
	require.NoError(t, err)
	assert.Equal(t, "US", got.Jurisdiction)

	// A store mutation without invalidation is invisible until the TTL
	// elapses; the cached copy answers.
	entry.Jurisdiction = "GB"
	require.NoError(t, store.PutWhitelist(ctx, entry))

	got, err = c.GetWhitelist(ctx, investor)
	require.NoError(t, err)
	assert.Equal(t, "US", got.Jurisdiction)
}

func TestInvalidatePartyEvicts(t *testing.T) {
	ctx := context.Background()
	c, store := newCache(t)
	investor := ledger.Derive(ledger.KindWhitelist, []byte("investor"))

	entry := compliance.WhitelistEntry{Investor: investor, Jurisdiction: "US", Active: true}
	require.NoError(t, store.PutWhitelist(ctx, entry))
	_, err := c.GetWhitelist(ctx, investor)
	require.NoError(t, err)

	entry.Jurisdiction = "GB"
	require.NoError(t, store.PutWhitelist(ctx, entry))
	c.InvalidateParty(ctx, investor)

	got, err := c.GetWhitelist(ctx, investor)
	require.NoError(t, err)
	assert.Equal(t, "GB", got.Jurisdiction)
}

func TestNegativeCaching(t *testing.T) {
	ctx := context.Background()
	c, store := newCache(t)
	addr := ledger.Derive(ledger.KindWhitelist, []byte("nobody"))

	_, err := c.GetBlacklist(ctx, addr)
	require.ErrorIs(t, err, sentinel.ErrNotFound)

	// The miss is cached: adding an entry without invalidation still
	// reports not found.
	require.NoError(t, store.PutBlacklist(ctx, compliance.BlacklistEntry{
		Address: addr, Reason: "late addition", Active: true,
	}))
	_, err = c.GetBlacklist(ctx, addr)
	require.ErrorIs(t, err, sentinel.ErrNotFound)

	c.InvalidateParty(ctx, addr)
	got, err := c.GetBlacklist(ctx, addr)
	require.NoError(t, err)
	assert.Equal(t, "late addition", got.Reason)
}
