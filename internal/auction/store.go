package auction

import (
	"context"
	"sort"
	"sync"

	"custodia/internal/ledger"
	"custodia/pkg/platform/sentinel"
)

// Store persists auction and bid records. Implementations return
// sentinel.ErrNotFound for missing records.
type Store interface {
	PutAuction(ctx context.Context, a Auction) error
	GetAuction(ctx context.Context, addr ledger.Address) (Auction, error)
	ListAuctions(ctx context.Context, filter Filter) ([]Auction, error)
	PutBid(ctx context.Context, b Bid) error
	GetBid(ctx context.Context, addr ledger.Address) (Bid, error)
	ListBids(ctx context.Context, auction ledger.Address) ([]Bid, error)
}

// Filter narrows ListAuctions. Zero fields match everything.
type Filter struct {
	Seller ledger.Address
	Status *Status
}

func (f Filter) Matches(a Auction) bool {
	if !f.Seller.IsZero() && a.Seller != f.Seller {
		return false
	}
	if f.Status != nil && a.Status != *f.Status {
		return false
	}
	return true
}

// InMemoryStore keeps auctions and bids in maps keyed by derived address.
type InMemoryStore struct {
	mu       sync.RWMutex
	auctions map[ledger.Address]Auction
	bids     map[ledger.Address]Bid
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		auctions: make(map[ledger.Address]Auction),
		bids:     make(map[ledger.Address]Bid),
	}
}

func (s *InMemoryStore) PutAuction(_ context.Context, a Auction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.auctions[a.Address] = a
	return nil
}

func (s *InMemoryStore) GetAuction(_ context.Context, addr ledger.Address) (Auction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.auctions[addr]
	if !ok {
		return Auction{}, sentinel.ErrNotFound
	}
	return a, nil
}

func (s *InMemoryStore) ListAuctions(_ context.Context, filter Filter) ([]Auction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Auction
	for _, a := range s.auctions {
		if filter.Matches(a) {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *InMemoryStore) PutBid(_ context.Context, b Bid) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.bids[b.Address] = b
	return nil
}

func (s *InMemoryStore) GetBid(_ context.Context, addr ledger.Address) (Bid, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.bids[addr]
	if !ok {
		return Bid{}, sentinel.ErrNotFound
	}
	return b, nil
}

func (s *InMemoryStore) ListBids(_ context.Context, auction ledger.Address) ([]Bid, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Bid
	for _, b := range s.bids {
		if b.Auction == auction {
			out = append(out, b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PlacedAt.Before(out[j].PlacedAt) })
	return out, nil
}
