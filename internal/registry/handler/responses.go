package handler

import (
	"time"

	"custodia/internal/registry"
)

type configDTO struct {
	Authority      string `json:"authority"`
	PlatformFeeBps uint16 `json:"platform_fee_bps"`
	TotalAssets    uint64 `json:"total_assets"`
}

func configResponse(cfg registry.Config) configDTO {
	return configDTO{
		Authority:      cfg.Authority.String(),
		PlatformFeeBps: cfg.PlatformFeeBps,
		TotalAssets:    cfg.TotalAssets,
	}
}

type assetDTO struct {
	Mint        string `json:"mint"`
	Authority   string `json:"authority"`
	Name        string `json:"name"`
	AssetType   string `json:"asset_type"`
	TotalValue  uint64 `json:"total_value"`
	TotalSupply uint64 `json:"total_supply"`
	MetadataURI string `json:"metadata_uri,omitempty"`
	Status      string `json:"status"`
	CreatedAt   string `json:"created_at"`
	UpdatedAt   string `json:"updated_at"`
}

func assetResponse(a registry.Asset) assetDTO {
	return assetDTO{
		Mint:        a.Mint.String(),
		Authority:   a.Authority.String(),
		Name:        a.Name,
		AssetType:   a.Type.String(),
		TotalValue:  a.TotalValue,
		TotalSupply: a.TotalSupply,
		MetadataURI: a.MetadataURI,
		Status:      a.Status.String(),
		CreatedAt:   a.CreatedAt.Format(time.RFC3339),
		UpdatedAt:   a.UpdatedAt.Format(time.RFC3339),
	}
}

type mintDTO struct {
	Mint              string `json:"mint"`
	Authority         string `json:"authority"`
	PermanentDelegate string `json:"permanent_delegate,omitempty"`
	TransferHook      bool   `json:"transfer_hook"`
	Name              string `json:"name"`
	Symbol            string `json:"symbol"`
	URI               string `json:"uri,omitempty"`
	Decimals          uint8  `json:"decimals"`
	Frozen            bool   `json:"frozen"`
	CreatedAt         string `json:"created_at"`
}

func mintResponse(cfg registry.MintConfig) mintDTO {
	return mintDTO{
		Mint:              cfg.Mint.String(),
		Authority:         cfg.Authority.String(),
		PermanentDelegate: cfg.PermanentDelegate.String(),
		TransferHook:      cfg.TransferHook,
		Name:              cfg.Name,
		Symbol:            cfg.Symbol,
		URI:               cfg.URI,
		Decimals:          cfg.Decimals,
		Frozen:            cfg.Frozen,
		CreatedAt:         cfg.CreatedAt.Format(time.RFC3339),
	}
}

func parseAssetStatus(s string) (registry.AssetStatus, bool) {
	switch s {
	case "pending":
		return registry.StatusPending, true
	case "active":
		return registry.StatusActive, true
	case "frozen":
		return registry.StatusFrozen, true
	case "burned":
		return registry.StatusBurned, true
	}
	return 0, false
}
