package compliance

import (
	"context"
	"sync"

	"custodia/internal/ledger"
	"custodia/pkg/platform/sentinel"
)

// InMemoryStore keeps compliance records in maps keyed the same way the
// derived-address layout keys them. Used in tests and single-node deployments.
type InMemoryStore struct {
	mu        sync.RWMutex
	config    *Config
	whitelist map[ledger.Address]WhitelistEntry
	blacklist map[ledger.Address]BlacklistEntry
	rules     map[string]JurisdictionRule // key: from+to
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		whitelist: make(map[ledger.Address]WhitelistEntry),
		blacklist: make(map[ledger.Address]BlacklistEntry),
		rules:     make(map[string]JurisdictionRule),
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

func (s *InMemoryStore) PutWhitelist(_ context.Context, entry WhitelistEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.whitelist[entry.Investor] = entry
	return nil
}

func (s *InMemoryStore) GetWhitelist(_ context.Context, investor ledger.Address) (WhitelistEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entry, ok := s.whitelist[investor]
	if !ok {
		return WhitelistEntry{}, sentinel.ErrNotFound
	}
	return entry, nil
}

func (s *InMemoryStore) ListWhitelist(_ context.Context) ([]WhitelistEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]WhitelistEntry, 0, len(s.whitelist))
	for _, entry := range s.whitelist {
		out = append(out, entry)
	}
	return out, nil
}

func (s *InMemoryStore) PutBlacklist(_ context.Context, entry BlacklistEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.blacklist[entry.Address] = entry
	return nil
}

func (s *InMemoryStore) GetBlacklist(_ context.Context, addr ledger.Address) (BlacklistEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entry, ok := s.blacklist[addr]
	if !ok {
		return BlacklistEntry{}, sentinel.ErrNotFound
	}
	return entry, nil
}

func (s *InMemoryStore) ListBlacklist(_ context.Context) ([]BlacklistEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]BlacklistEntry, 0, len(s.blacklist))
	for _, entry := range s.blacklist {
		out = append(out, entry)
	}
	return out, nil
}

func (s *InMemoryStore) PutRule(_ context.Context, rule JurisdictionRule) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rules[rule.From+rule.To] = rule
	return nil
}

func (s *InMemoryStore) GetRule(_ context.Context, from, to string) (JurisdictionRule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rule, ok := s.rules[from+to]
	if !ok {
		return JurisdictionRule{}, sentinel.ErrNotFound
	}
	return rule, nil
}

func (s *InMemoryStore) ListRules(_ context.Context) ([]JurisdictionRule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]JurisdictionRule, 0, len(s.rules))
	for _, rule := range s.rules {
		out = append(out, rule)
	}
	return out, nil
}
