package registry

import (
	"context"
	"sort"
	"sync"

	"custodia/internal/ledger"
	"custodia/pkg/platform/sentinel"
)

// InMemoryStore keeps registry records in maps keyed by mint. Used in tests
// and single-node deployments.
type InMemoryStore struct {
	mu     sync.RWMutex
	config *Config
	assets map[ledger.Address]Asset
	mints  map[ledger.Address]MintConfig
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		assets: make(map[ledger.Address]Asset),
		mints:  make(map[ledger.Address]MintConfig),
	}
}

func (s *InMemoryStore) SaveConfig(_ context.Context, cfg Config) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.config = &cfg
	return nil
}

func (s *InMemoryStore) GetConfig(_ context.Context) (Config, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.config == nil {
		return Config{}, sentinel.ErrNotFound
	}
	return *s.config, nil
}

func (s *InMemoryStore) PutAsset(_ context.Context, asset Asset) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.assets[asset.Mint] = asset
	return nil
}

func (s *InMemoryStore) GetAsset(_ context.Context, mint ledger.Address) (Asset, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	asset, ok := s.assets[mint]
	if !ok {
		return Asset{}, sentinel.ErrNotFound
	}
	return asset, nil
}

func (s *InMemoryStore) ListAssets(_ context.Context, filter AssetFilter) ([]Asset, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Asset, 0, len(s.assets))
	for _, asset := range s.assets {
		if filter.Matches(asset) {
			out = append(out, asset)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *InMemoryStore) PutMintConfig(_ context.Context, cfg MintConfig) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.mints[cfg.Mint] = cfg
	return nil
}

func (s *InMemoryStore) GetMintConfig(_ context.Context, mint ledger.Address) (MintConfig, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	cfg, ok := s.mints[mint]
	if !ok {
		return MintConfig{}, sentinel.ErrNotFound
	}
	return cfg, nil
}

func (s *InMemoryStore) ListMintConfigs(_ context.Context) ([]MintConfig, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]MintConfig, 0, len(s.mints))
	for _, cfg := range s.mints {
		out = append(out, cfg)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}
