package compliance

import (
	"context"

	"custodia/internal/ledger"
)

// Store persists compliance records. Implementations return
// sentinel.ErrNotFound for missing records and sentinel.ErrConflict when a
// create collides; services translate those into domain errors.
type Store interface {
	SaveConfig(ctx context.Context, cfg Config) error
	GetConfig(ctx context.Context) (Config, error)

	PutWhitelist(ctx context.Context, entry WhitelistEntry) error
	GetWhitelist(ctx context.Context, investor ledger.Address) (WhitelistEntry, error)
	ListWhitelist(ctx context.Context) ([]WhitelistEntry, error)

	PutBlacklist(ctx context.Context, entry BlacklistEntry) error
	GetBlacklist(ctx context.Context, addr ledger.Address) (BlacklistEntry, error)
	ListBlacklist(ctx context.Context) ([]BlacklistEntry, error)

	PutRule(ctx context.Context, rule JurisdictionRule) error
	GetRule(ctx context.Context, from, to string) (JurisdictionRule, error)
	ListRules(ctx context.Context) ([]JurisdictionRule, error)
}

// PartyReader is the read surface the authorization path needs. The Redis
// cache implements it in front of the store for the off-chain pre-check.
type PartyReader interface {
	GetWhitelist(ctx context.Context, investor ledger.Address) (WhitelistEntry, error)
	GetBlacklist(ctx context.Context, addr ledger.Address) (BlacklistEntry, error)
}
