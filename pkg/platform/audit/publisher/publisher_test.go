package publisher_test

import (
	"context"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	audit "custodia/pkg/platform/audit"
	"custodia/pkg/platform/audit/publisher"
	memorystore "custodia/pkg/platform/audit/store/memory"
)

func TestSyncEmitStampsAndAppends(t *testing.T) {
	ctx := context.Background()
	store := memorystore.NewInMemoryStore()
	p := publisher.NewPublisher(store, publisher.WithLogger(slog.New(slog.DiscardHandler)))
	defer p.Close()

	require.NoError(t, p.Emit(ctx, audit.Event{
		Action:  audit.ActionEscrowCreated,
		Actor:   "buyer",
		Subject: "escrow-1",
		Amount:  500,
	}))

	events, err := p.List(ctx, "escrow-1")
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.NotZero(t, events[0].ID)
	assert.False(t, events[0].Timestamp.IsZero())
	assert.Equal(t, audit.ActionEscrowCreated, events[0].Action)
}

func TestAsyncDrainsOnClose(t *testing.T) {
	ctx := context.Background()
	store := memorystore.NewInMemoryStore()
	p := publisher.NewPublisher(store,
		publisher.WithAsyncBuffer(16),
		publisher.WithLogger(slog.New(slog.DiscardHandler)))

	for i := 0; i < 10; i++ {
		require.NoError(t, p.Emit(ctx, audit.Event{
			Action:  audit.ActionBidPlaced,
			Subject: "auction-1",
		}))
	}
	p.Close()

	events, err := store.ListBySubject(ctx, "auction-1")
	require.NoError(t, err)
	assert.Len(t, events, 10)
}

// blockingStore holds Append until released, so the test can fill the
// publisher's buffer deterministically.
type blockingStore struct {
	started chan struct{}
	release chan struct{}
	mu      sync.Mutex
	events  []audit.Event
}

func (s *blockingStore) Append(_ context.Context, event audit.Event) error {
	s.started <- struct{}{}
	<-s.release
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
	return nil
}

func (s *blockingStore) ListBySubject(context.Context, string) ([]audit.Event, error) {
	return nil, nil
}

func TestAsyncDropsWhenBufferFull(t *testing.T) {
	ctx := context.Background()
	store := &blockingStore{
		started: make(chan struct{}, 3),
		release: make(chan struct{}),
	}
	p := publisher.NewPublisher(store,
		publisher.WithAsyncBuffer(1),
		publisher.WithLogger(slog.New(slog.DiscardHandler)))

	// First event reaches the worker and blocks in Append.
	require.NoError(t, p.Emit(ctx, audit.Event{Action: audit.ActionBidPlaced, Subject: "a"}))
	select {
	case <-store.started:
	case <-time.After(2 * time.Second):
		t.Fatal("worker never picked up first event")
	}

	// Second fills the buffer, third is dropped.
	require.NoError(t, p.Emit(ctx, audit.Event{Action: audit.ActionBidPlaced, Subject: "b"}))
	require.NoError(t, p.Emit(ctx, audit.Event{Action: audit.ActionBidPlaced, Subject: "c"}))

	close(store.release)
	p.Close()

	store.mu.Lock()
	defer store.mu.Unlock()
	require.Len(t, store.events, 2)
	assert.Equal(t, "a", store.events[0].Subject)
	assert.Equal(t, "b", store.events[1].Subject)
}

func TestFanoutWritesAllSinksReadsPrimary(t *testing.T) {
	ctx := context.Background()
	primary := memorystore.NewInMemoryStore()
	secondary := memorystore.NewInMemoryStore()
	store := audit.Fanout(primary, secondary)

	require.NoError(t, store.Append(ctx, audit.Event{Action: audit.ActionAssetRegistered, Subject: "mint-1"}))

	for _, s := range []*memorystore.InMemoryStore{primary, secondary} {
		events, err := s.ListBySubject(ctx, "mint-1")
		require.NoError(t, err)
		assert.Len(t, events, 1)
	}
	events, err := store.ListBySubject(ctx, "mint-1")
	require.NoError(t, err)
	assert.Len(t, events, 1)
}
