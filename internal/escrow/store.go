package escrow

import (
	"context"
	"sort"
	"sync"

	"custodia/internal/ledger"
	"custodia/pkg/platform/sentinel"
)

// Store persists escrow records. Implementations return sentinel.ErrNotFound
// for missing records.
type Store interface {
	Put(ctx context.Context, e Escrow) error
	Get(ctx context.Context, addr ledger.Address) (Escrow, error)
	// GetLive returns the unresolved escrow for a (buyer, asset mint) pair,
	// or sentinel.ErrNotFound when none is open.
	GetLive(ctx context.Context, buyer, assetMint ledger.Address) (Escrow, error)
	ListByParty(ctx context.Context, party ledger.Address) ([]Escrow, error)
}

// InMemoryStore keeps escrow records in a map keyed by derived address.
type InMemoryStore struct {
	mu      sync.RWMutex
	escrows map[ledger.Address]Escrow
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{escrows: make(map[ledger.Address]Escrow)}
}

func (s *InMemoryStore) Put(_ context.Context, e Escrow) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.escrows[e.Address] = e
	return nil
}

func (s *InMemoryStore) Get(_ context.Context, addr ledger.Address) (Escrow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.escrows[addr]
	if !ok {
		return Escrow{}, sentinel.ErrNotFound
	}
	return e, nil
}

func (s *InMemoryStore) GetLive(_ context.Context, buyer, assetMint ledger.Address) (Escrow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.escrows[EscrowAddress(buyer, assetMint)]
	if !ok || e.Status.Terminal() {
		return Escrow{}, sentinel.ErrNotFound
	}
	return e, nil
}

func (s *InMemoryStore) ListByParty(_ context.Context, party ledger.Address) ([]Escrow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Escrow
	for _, e := range s.escrows {
		if e.Buyer == party || e.Seller == party {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}
