package sdk

import (
	"context"
	"net/http"
	"net/url"
)

// InitializeRegistryParams configures the asset registry once.
type InitializeRegistryParams struct {
	Authority      string `json:"authority"`
	PlatformFeeBps uint16 `json:"platform_fee_bps"`
}

func (c *Client) InitializeRegistry(ctx context.Context, p InitializeRegistryParams) (RegistryConfig, error) {
	return do[RegistryConfig](ctx, c, http.MethodPost, "/v1/registry/init", p)
}

func (c *Client) RegistryConfig(ctx context.Context) (RegistryConfig, error) {
	return do[RegistryConfig](ctx, c, http.MethodGet, "/v1/registry/config", nil)
}

// RegisterAssetParams registers a tokenized asset in Pending.
type RegisterAssetParams struct {
	Authority   string `json:"authority"`
	Mint        string `json:"mint"`
	Name        string `json:"name"`
	AssetType   string `json:"asset_type"`
	TotalValue  uint64 `json:"total_value"`
	TotalSupply uint64 `json:"total_supply"`
	MetadataURI string `json:"metadata_uri,omitempty"`
}

func (c *Client) RegisterAsset(ctx context.Context, p RegisterAssetParams) (Asset, error) {
	return do[Asset](ctx, c, http.MethodPost, "/v1/assets", p)
}

func (c *Client) Asset(ctx context.Context, mint string) (Asset, error) {
	return do[Asset](ctx, c, http.MethodGet, "/v1/assets/"+mint, nil)
}

// AssetFilter narrows Assets listings; empty fields match everything.
type AssetFilter struct {
	Authority string
	Status    string
	Type      string
}

func (c *Client) Assets(ctx context.Context, filter AssetFilter) ([]Asset, error) {
	q := url.Values{}
	if filter.Authority != "" {
		q.Set("authority", filter.Authority)
	}
	if filter.Status != "" {
		q.Set("status", filter.Status)
	}
	if filter.Type != "" {
		q.Set("type", filter.Type)
	}
	path := "/v1/assets"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}
	return do[[]Asset](ctx, c, http.MethodGet, path, nil)
}

// UpdateAssetParams updates mutable asset fields; nil fields keep their
// current value.
type UpdateAssetParams struct {
	Authority   string  `json:"authority"`
	MetadataURI *string `json:"metadata_uri,omitempty"`
	TotalValue  *uint64 `json:"total_value,omitempty"`
}

func (c *Client) UpdateAsset(ctx context.Context, mint string, p UpdateAssetParams) (Asset, error) {
	return do[Asset](ctx, c, http.MethodPatch, "/v1/assets/"+mint, p)
}

func (c *Client) ActivateAsset(ctx context.Context, authority, mint string) (Asset, error) {
	return c.assetTransition(ctx, authority, mint, "activate")
}

func (c *Client) FreezeAsset(ctx context.Context, authority, mint string) (Asset, error) {
	return c.assetTransition(ctx, authority, mint, "freeze")
}

func (c *Client) UnfreezeAsset(ctx context.Context, authority, mint string) (Asset, error) {
	return c.assetTransition(ctx, authority, mint, "unfreeze")
}

func (c *Client) BurnAsset(ctx context.Context, authority, mint string) (Asset, error) {
	return c.assetTransition(ctx, authority, mint, "burn")
}

func (c *Client) assetTransition(ctx context.Context, authority, mint, action string) (Asset, error) {
	return do[Asset](ctx, c, http.MethodPost, "/v1/assets/"+mint+"/"+action, authorityBody{authority})
}

// CreateMintParams provisions a token mint, optionally binding the transfer
// hook at creation. The binding is immutable once made.
type CreateMintParams struct {
	Authority         string `json:"authority"`
	PermanentDelegate string `json:"permanent_delegate,omitempty"`
	Name              string `json:"name"`
	Symbol            string `json:"symbol"`
	URI               string `json:"uri,omitempty"`
	Decimals          uint8  `json:"decimals"`
	BindTransferHook  bool   `json:"bind_transfer_hook"`
}

func (c *Client) CreateMint(ctx context.Context, p CreateMintParams) (Mint, error) {
	return do[Mint](ctx, c, http.MethodPost, "/v1/mints", p)
}

func (c *Client) Mint(ctx context.Context, mint string) (Mint, error) {
	return do[Mint](ctx, c, http.MethodGet, "/v1/mints/"+mint, nil)
}

func (c *Client) Mints(ctx context.Context) ([]Mint, error) {
	return do[[]Mint](ctx, c, http.MethodGet, "/v1/mints", nil)
}

// SetTransferHook binds the compliance hook to a mint created without one.
// Fails once a hook is bound.
func (c *Client) SetTransferHook(ctx context.Context, authority, mint string) (Mint, error) {
	return c.mintTransition(ctx, authority, mint, "transfer-hook")
}

func (c *Client) FreezeMint(ctx context.Context, authority, mint string) (Mint, error) {
	return c.mintTransition(ctx, authority, mint, "freeze")
}

func (c *Client) UnfreezeMint(ctx context.Context, authority, mint string) (Mint, error) {
	return c.mintTransition(ctx, authority, mint, "unfreeze")
}

func (c *Client) mintTransition(ctx context.Context, authority, mint, action string) (Mint, error) {
	return do[Mint](ctx, c, http.MethodPost, "/v1/mints/"+mint+"/"+action, authorityBody{authority})
}

// MintTokens issues supply to a destination account.
func (c *Client) MintTokens(ctx context.Context, authority, mint, destination string, amount uint64) error {
	body := map[string]any{
		"authority":   authority,
		"destination": destination,
		"amount":      amount,
	}
	return c.post(ctx, "/v1/mints/"+mint+"/mint-tokens", body)
}
