package registry

import (
	"context"

	"custodia/internal/ledger"
)

// Store persists registry records. Implementations return
// sentinel.ErrNotFound for missing records; services translate into domain
// errors.
type Store interface {
	SaveConfig(ctx context.Context, cfg Config) error
	GetConfig(ctx context.Context) (Config, error)

	PutAsset(ctx context.Context, asset Asset) error
	GetAsset(ctx context.Context, mint ledger.Address) (Asset, error)
	ListAssets(ctx context.Context, filter AssetFilter) ([]Asset, error)

	PutMintConfig(ctx context.Context, cfg MintConfig) error
	GetMintConfig(ctx context.Context, mint ledger.Address) (MintConfig, error)
	ListMintConfigs(ctx context.Context) ([]MintConfig, error)
}

// AssetFilter narrows ListAssets. Zero value lists everything.
type AssetFilter struct {
	Authority ledger.Address
	Status    *AssetStatus
	Type      *AssetType
}

// Matches reports whether an asset passes the filter.
func (f AssetFilter) Matches(a Asset) bool {
	if !f.Authority.IsZero() && a.Authority != f.Authority {
		return false
	}
	if f.Status != nil && a.Status != *f.Status {
		return false
	}
	if f.Type != nil && a.Type != *f.Type {
		return false
	}
	return true
}
