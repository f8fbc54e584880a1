// Package handler exposes the asset registry over HTTP.
package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"custodia/internal/ledger"
	"custodia/internal/registry"
	domainerrors "custodia/pkg/domain-errors"
	"custodia/pkg/platform/httputil"
)

// Service defines the registry operations the handler needs.
type Service interface {
	Initialize(ctx context.Context, authority ledger.Address, platformFeeBps uint16) (registry.Config, error)
	RegisterAsset(ctx context.Context, p registry.RegisterAssetParams) (registry.Asset, error)
	UpdateAsset(ctx context.Context, authority, mint ledger.Address, p registry.UpdateAssetParams) (registry.Asset, error)
	ActivateAsset(ctx context.Context, authority, mint ledger.Address) (registry.Asset, error)
	FreezeAsset(ctx context.Context, authority, mint ledger.Address) (registry.Asset, error)
	UnfreezeAsset(ctx context.Context, authority, mint ledger.Address) (registry.Asset, error)
	BurnAsset(ctx context.Context, authority, mint ledger.Address) (registry.Asset, error)
	CreateTokenMint(ctx context.Context, p registry.CreateTokenMintParams) (registry.MintConfig, error)
	SetTransferHook(ctx context.Context, authority, mint ledger.Address) (registry.MintConfig, error)
	FreezeMint(ctx context.Context, authority, mint ledger.Address) (registry.MintConfig, error)
	UnfreezeMint(ctx context.Context, authority, mint ledger.Address) (registry.MintConfig, error)
	MintTokens(ctx context.Context, authority, mint, destination ledger.Address, amount uint64) error

	GetConfig(ctx context.Context) (registry.Config, error)
	GetAsset(ctx context.Context, mint ledger.Address) (registry.Asset, error)
	ListAssets(ctx context.Context, filter registry.AssetFilter) ([]registry.Asset, error)
	GetMintConfig(ctx context.Context, mint ledger.Address) (registry.MintConfig, error)
	ListMintConfigs(ctx context.Context) ([]registry.MintConfig, error)
}

// Handler handles registry endpoints.
type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts the registry routes.
func (h *Handler) Register(r chi.Router) {
	r.Post("/registry/init", h.handleInitialize)
	r.Get("/registry/config", h.handleGetConfig)

	r.Route("/assets", func(r chi.Router) {
		r.Post("/", h.handleRegisterAsset)
		r.Get("/", h.handleListAssets)
		r.Get("/{mint}", h.handleGetAsset)
		r.Patch("/{mint}", h.handleUpdateAsset)
		r.Post("/{mint}/activate", h.assetTransition(Service.ActivateAsset))
		r.Post("/{mint}/freeze", h.assetTransition(Service.FreezeAsset))
		r.Post("/{mint}/unfreeze", h.assetTransition(Service.UnfreezeAsset))
		r.Post("/{mint}/burn", h.assetTransition(Service.BurnAsset))
	})

	r.Route("/mints", func(r chi.Router) {
		r.Post("/", h.handleCreateMint)
		r.Get("/", h.handleListMints)
		r.Get("/{mint}", h.handleGetMint)
		r.Post("/{mint}/transfer-hook", h.mintTransition(Service.SetTransferHook))
		r.Post("/{mint}/freeze", h.mintTransition(Service.FreezeMint))
		r.Post("/{mint}/unfreeze", h.mintTransition(Service.UnfreezeMint))
		r.Post("/{mint}/mint-tokens", h.handleMintTokens)
	})
}

type initializeRequest struct {
	Authority      string `json:"authority"`
	PlatformFeeBps uint16 `json:"platform_fee_bps"`
}

func (h *Handler) handleInitialize(w http.ResponseWriter, r *http.Request) {
	req, ok := httputil.Decode[initializeRequest](w, r, h.logger)
	if !ok {
		return
	}
	cfg, err := h.service.Initialize(r.Context(), ledger.Address(req.Authority), req.PlatformFeeBps)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, configResponse(cfg))
}

func (h *Handler) handleGetConfig(w http.ResponseWriter, r *http.Request) {
	cfg, err := h.service.GetConfig(r.Context())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, configResponse(cfg))
}

type registerAssetRequest struct {
	Authority   string `json:"authority"`
	Mint        string `json:"mint"`
	Name        string `json:"name"`
	AssetType   string `json:"asset_type"`
	TotalValue  uint64 `json:"total_value"`
	TotalSupply uint64 `json:"total_supply"`
	MetadataURI string `json:"metadata_uri,omitempty"`
}

func (h *Handler) handleRegisterAsset(w http.ResponseWriter, r *http.Request) {
	req, ok := httputil.Decode[registerAssetRequest](w, r, h.logger)
	if !ok {
		return
	}
	assetType, ok := registry.ParseAssetType(req.AssetType)
	if !ok {
		httputil.WriteError(w, domainerrors.NewField("asset_type", "unknown asset type"))
		return
	}
	asset, err := h.service.RegisterAsset(r.Context(), registry.RegisterAssetParams{
		Authority:   ledger.Address(req.Authority),
		Mint:        ledger.Address(req.Mint),
		Name:        req.Name,
		Type:        assetType,
		TotalValue:  req.TotalValue,
		TotalSupply: req.TotalSupply,
		MetadataURI: req.MetadataURI,
	})
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, assetResponse(asset))
}

type updateAssetRequest struct {
	Authority   string  `json:"authority"`
	MetadataURI *string `json:"metadata_uri,omitempty"`
	TotalValue  *uint64 `json:"total_value,omitempty"`
}

func (h *Handler) handleUpdateAsset(w http.ResponseWriter, r *http.Request) {
	req, ok := httputil.Decode[updateAssetRequest](w, r, h.logger)
	if !ok {
		return
	}
	asset, err := h.service.UpdateAsset(r.Context(),
		ledger.Address(req.Authority), ledger.Address(chi.URLParam(r, "mint")),
		registry.UpdateAssetParams{MetadataURI: req.MetadataURI, TotalValue: req.TotalValue})
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, assetResponse(asset))
}

type authorityRequest struct {
	Authority string `json:"authority"`
}

// assetTransition adapts the four lifecycle transitions to one handler shape.
func (h *Handler) assetTransition(op func(Service, context.Context, ledger.Address, ledger.Address) (registry.Asset, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		req, ok := httputil.Decode[authorityRequest](w, r, h.logger)
		if !ok {
			return
		}
		asset, err := op(h.service, r.Context(),
			ledger.Address(req.Authority), ledger.Address(chi.URLParam(r, "mint")))
		if err != nil {
			httputil.WriteError(w, err)
			return
		}
		httputil.WriteJSON(w, http.StatusOK, assetResponse(asset))
	}
}

func (h *Handler) mintTransition(op func(Service, context.Context, ledger.Address, ledger.Address) (registry.MintConfig, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		req, ok := httputil.Decode[authorityRequest](w, r, h.logger)
		if !ok {
			return
		}
		cfg, err := op(h.service, r.Context(),
			ledger.Address(req.Authority), ledger.Address(chi.URLParam(r, "mint")))
		if err != nil {
			httputil.WriteError(w, err)
			return
		}
		httputil.WriteJSON(w, http.StatusOK, mintResponse(cfg))
	}
}

func (h *Handler) handleGetAsset(w http.ResponseWriter, r *http.Request) {
	asset, err := h.service.GetAsset(r.Context(), ledger.Address(chi.URLParam(r, "mint")))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, assetResponse(asset))
}

func (h *Handler) handleListAssets(w http.ResponseWriter, r *http.Request) {
	filter := registry.AssetFilter{
		Authority: ledger.Address(r.URL.Query().Get("authority")),
	}
	if s := r.URL.Query().Get("status"); s != "" {
		status, ok := parseAssetStatus(s)
		if !ok {
			httputil.WriteError(w, domainerrors.NewField("status", "unknown asset status"))
			return
		}
		filter.Status = &status
	}
	if t := r.URL.Query().Get("type"); t != "" {
		assetType, ok := registry.ParseAssetType(t)
		if !ok {
			httputil.WriteError(w, domainerrors.NewField("type", "unknown asset type"))
			return
		}
		filter.Type = &assetType
	}

	assets, err := h.service.ListAssets(r.Context(), filter)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	out := make([]assetDTO, 0, len(assets))
	for _, a := range assets {
		out = append(out, assetResponse(a))
	}
	httputil.WriteJSON(w, http.StatusOK, out)
}

type createMintRequest struct {
	Authority         string `json:"authority"`
	PermanentDelegate string `json:"permanent_delegate,omitempty"`
	Name              string `json:"name"`
	Symbol            string `json:"symbol"`
	URI               string `json:"uri,omitempty"`
	Decimals          uint8  `json:"decimals"`
	BindTransferHook  bool   `json:"bind_transfer_hook"`
}

func (h *Handler) handleCreateMint(w http.ResponseWriter, r *http.Request) {
	req, ok := httputil.Decode[createMintRequest](w, r, h.logger)
	if !ok {
		return
	}
	cfg, err := h.service.CreateTokenMint(r.Context(), registry.CreateTokenMintParams{
		Authority:         ledger.Address(req.Authority),
		PermanentDelegate: ledger.Address(req.PermanentDelegate),
		Name:              req.Name,
		Symbol:            req.Symbol,
		URI:               req.URI,
		Decimals:          req.Decimals,
		BindTransferHook:  req.BindTransferHook,
	})
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, mintResponse(cfg))
}

func (h *Handler) handleGetMint(w http.ResponseWriter, r *http.Request) {
	cfg, err := h.service.GetMintConfig(r.Context(), ledger.Address(chi.URLParam(r, "mint")))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, mintResponse(cfg))
}

func (h *Handler) handleListMints(w http.ResponseWriter, r *http.Request) {
	configs, err := h.service.ListMintConfigs(r.Context())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	out := make([]mintDTO, 0, len(configs))
	for _, cfg := range configs {
		out = append(out, mintResponse(cfg))
	}
	httputil.WriteJSON(w, http.StatusOK, out)
}

type mintTokensRequest struct {
	Authority   string `json:"authority"`
	Destination string `json:"destination"`
	Amount      uint64 `json:"amount"`
}

func (h *Handler) handleMintTokens(w http.ResponseWriter, r *http.Request) {
	req, ok := httputil.Decode[mintTokensRequest](w, r, h.logger)
	if !ok {
		return
	}
	err := h.service.MintTokens(r.Context(),
		ledger.Address(req.Authority), ledger.Address(chi.URLParam(r, "mint")),
		ledger.Address(req.Destination), req.Amount)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
