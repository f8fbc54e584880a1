// Package handler exposes the compliance engine over HTTP.
package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"custodia/internal/compliance"
	"custodia/internal/ledger"
	domainerrors "custodia/pkg/domain-errors"
	"custodia/pkg/platform/httputil"
)

// Service defines the compliance operations the handler needs.
type Service interface {
	Initialize(ctx context.Context, p compliance.InitializeParams) (compliance.Config, error)
	AddToWhitelist(ctx context.Context, p compliance.AddToWhitelistParams) (compliance.WhitelistEntry, error)
	RemoveFromWhitelist(ctx context.Context, authority, investor ledger.Address) error
	AddToBlacklist(ctx context.Context, authority, addr ledger.Address, reason string) (compliance.BlacklistEntry, error)
	RemoveFromBlacklist(ctx context.Context, authority, addr ledger.Address) error
	AddJurisdictionRule(ctx context.Context, authority ledger.Address, rule compliance.JurisdictionRule) (compliance.JurisdictionRule, error)
	UpdateConfig(ctx context.Context, authority ledger.Address, p compliance.UpdateConfigParams) (compliance.Config, error)
	RenewKYC(ctx context.Context, gatekeeper, investor ledger.Address) (compliance.WhitelistEntry, error)
	CheckTransfer(ctx context.Context, t ledger.TransferParties) error

	GetConfig(ctx context.Context) (compliance.Config, error)
	GetWhitelistEntry(ctx context.Context, investor ledger.Address) (compliance.WhitelistEntry, error)
	ListWhitelist(ctx context.Context) ([]compliance.WhitelistEntry, error)
	GetBlacklistEntry(ctx context.Context, addr ledger.Address) (compliance.BlacklistEntry, error)
	ListBlacklist(ctx context.Context) ([]compliance.BlacklistEntry, error)
	ListRules(ctx context.Context) ([]compliance.JurisdictionRule, error)
}

// Handler handles compliance endpoints.
type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts the compliance routes.
func (h *Handler) Register(r chi.Router) {
	r.Post("/init", h.handleInitialize)
	r.Get("/config", h.handleGetConfig)
	r.Post("/config", h.handleUpdateConfig)

	r.Post("/whitelist", h.handleAddToWhitelist)
	r.Get("/whitelist", h.handleListWhitelist)
	r.Get("/whitelist/{addr}", h.handleGetWhitelist)
	r.Delete("/whitelist/{addr}", h.handleRemoveFromWhitelist)

	r.Post("/blacklist", h.handleAddToBlacklist)
	r.Get("/blacklist", h.handleListBlacklist)
	r.Get("/blacklist/{addr}", h.handleGetBlacklist)
	r.Delete("/blacklist/{addr}", h.handleRemoveFromBlacklist)

	r.Post("/jurisdiction", h.handleAddRule)
	r.Get("/jurisdiction", h.handleListRules)

	r.Post("/kyc/renew", h.handleRenewKYC)
	r.Post("/check", h.handleCheckTransfer)
}

type initializeRequest struct {
	Authority         string `json:"authority"`
	Gatekeeper        string `json:"gatekeeper,omitempty"`
	MaxTransferAmount uint64 `json:"max_transfer_amount"`
	CooldownSeconds   int64  `json:"cooldown_seconds"`
	Paused            bool   `json:"paused"`
}

func (h *Handler) handleInitialize(w http.ResponseWriter, r *http.Request) {
	req, ok := httputil.Decode[initializeRequest](w, r, h.logger)
	if !ok {
		return
	}
	cfg, err := h.service.Initialize(r.Context(), compliance.InitializeParams{
		Authority:         ledger.Address(req.Authority),
		Gatekeeper:        ledger.Address(req.Gatekeeper),
		MaxTransferAmount: req.MaxTransferAmount,
		Cooldown:          time.Duration(req.CooldownSeconds) * time.Second,
		Paused:            req.Paused,
	})
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, configResponse(cfg))
}

type whitelistRequest struct {
	Authority    string `json:"authority"`
	Investor     string `json:"investor"`
	InvestorType string `json:"investor_type"`
	Jurisdiction string `json:"jurisdiction"`
	KYCVerified  bool   `json:"kyc_verified"`
	KYCExpiry    string `json:"kyc_expiry"` // RFC 3339
}

func (h *Handler) handleAddToWhitelist(w http.ResponseWriter, r *http.Request) {
	req, ok := httputil.Decode[whitelistRequest](w, r, h.logger)
	if !ok {
		return
	}
	investorType, ok := compliance.ParseInvestorType(req.InvestorType)
	if !ok {
		httputil.WriteError(w, domainerrors.NewField("investor_type", "unknown investor type"))
		return
	}
	expiry, err := time.Parse(time.RFC3339, req.KYCExpiry)
	if err != nil {
		httputil.WriteError(w, domainerrors.NewField("kyc_expiry", "must be an RFC 3339 timestamp"))
		return
	}

	entry, err := h.service.AddToWhitelist(r.Context(), compliance.AddToWhitelistParams{
		Authority:    ledger.Address(req.Authority),
		Investor:     ledger.Address(req.Investor),
		Type:         investorType,
		Jurisdiction: req.Jurisdiction,
		KYCVerified:  req.KYCVerified,
		KYCExpiry:    expiry,
	})
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, whitelistResponse(entry))
}

type removeRequest struct {
	Authority string `json:"authority"`
}

func (h *Handler) handleRemoveFromWhitelist(w http.ResponseWriter, r *http.Request) {
	req, ok := httputil.Decode[removeRequest](w, r, h.logger)
	if !ok {
		return
	}
	investor := ledger.Address(chi.URLParam(r, "addr"))
	if err := h.service.RemoveFromWhitelist(r.Context(), ledger.Address(req.Authority), investor); err != nil {
		httputil.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type blacklistRequest struct {
	Authority string `json:"authority"`
	Address   string `json:"address"`
	Reason    string `json:"reason"`
}

func (h *Handler) handleAddToBlacklist(w http.ResponseWriter, r *http.Request) {
	req, ok := httputil.Decode[blacklistRequest](w, r, h.logger)
	if !ok {
		return
	}
	entry, err := h.service.AddToBlacklist(r.Context(),
		ledger.Address(req.Authority), ledger.Address(req.Address), req.Reason)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, blacklistResponse(entry))
}

func (h *Handler) handleRemoveFromBlacklist(w http.ResponseWriter, r *http.Request) {
	req, ok := httputil.Decode[removeRequest](w, r, h.logger)
	if !ok {
		return
	}
	addr := ledger.Address(chi.URLParam(r, "addr"))
	if err := h.service.RemoveFromBlacklist(r.Context(), ledger.Address(req.Authority), addr); err != nil {
		httputil.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type ruleRequest struct {
	Authority string  `json:"authority"`
	From      string  `json:"from"`
	To        string  `json:"to"`
	Allowed   bool    `json:"allowed"`
	MaxAmount *uint64 `json:"max_amount,omitempty"`
}

func (h *Handler) handleAddRule(w http.ResponseWriter, r *http.Request) {
	req, ok := httputil.Decode[ruleRequest](w, r, h.logger)
	if !ok {
		return
	}
	rule, err := h.service.AddJurisdictionRule(r.Context(), ledger.Address(req.Authority), compliance.JurisdictionRule{
		From:      req.From,
		To:        req.To,
		Allowed:   req.Allowed,
		MaxAmount: req.MaxAmount,
	})
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, ruleResponse(rule))
}

type updateConfigRequest struct {
	Authority         string  `json:"authority"`
	MaxTransferAmount *uint64 `json:"max_transfer_amount,omitempty"`
	CooldownSeconds   *int64  `json:"cooldown_seconds,omitempty"`
	Paused            *bool   `json:"paused,omitempty"`
	Gatekeeper        *string `json:"gatekeeper,omitempty"`
}

func (h *Handler) handleUpdateConfig(w http.ResponseWriter, r *http.Request) {
	req, ok := httputil.Decode[updateConfigRequest](w, r, h.logger)
	if !ok {
		return
	}
	params := compliance.UpdateConfigParams{
		MaxTransferAmount: req.MaxTransferAmount,
		Paused:            req.Paused,
	}
	if req.CooldownSeconds != nil {
		cooldown := time.Duration(*req.CooldownSeconds) * time.Second
		params.Cooldown = &cooldown
	}
	if req.Gatekeeper != nil {
		gk := ledger.Address(*req.Gatekeeper)
		params.Gatekeeper = &gk
	}
	cfg, err := h.service.UpdateConfig(r.Context(), ledger.Address(req.Authority), params)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, configResponse(cfg))
}

type renewKYCRequest struct {
	Gatekeeper string `json:"gatekeeper"`
	Investor   string `json:"investor"`
}

func (h *Handler) handleRenewKYC(w http.ResponseWriter, r *http.Request) {
	req, ok := httputil.Decode[renewKYCRequest](w, r, h.logger)
	if !ok {
		return
	}
	entry, err := h.service.RenewKYC(r.Context(), ledger.Address(req.Gatekeeper), ledger.Address(req.Investor))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, whitelistResponse(entry))
}

type checkRequest struct {
	Mint              string `json:"mint"`
	Sender            string `json:"sender"`
	Receiver          string `json:"receiver"`
	SenderCustodial   bool   `json:"sender_custodial,omitempty"`
	ReceiverCustodial bool   `json:"receiver_custodial,omitempty"`
	Amount            uint64 `json:"amount"`
}

type checkResponse struct {
	Allowed bool   `json:"allowed"`
	Reason  string `json:"reason,omitempty"`
	Message string `json:"message,omitempty"`
}

// handleCheckTransfer answers the off-chain pre-check. Denials are a 200
// with Allowed=false: the check itself succeeded.
func (h *Handler) handleCheckTransfer(w http.ResponseWriter, r *http.Request) {
	req, ok := httputil.Decode[checkRequest](w, r, h.logger)
	if !ok {
		return
	}
	err := h.service.CheckTransfer(r.Context(), ledger.TransferParties{
		Mint:              ledger.Address(req.Mint),
		Sender:            ledger.Address(req.Sender),
		Receiver:          ledger.Address(req.Receiver),
		SenderCustodial:   req.SenderCustodial,
		ReceiverCustodial: req.ReceiverCustodial,
		Amount:            req.Amount,
	})
	if err == nil {
		httputil.WriteJSON(w, http.StatusOK, checkResponse{Allowed: true})
		return
	}
	var de *domainerrors.Error
	if errors.As(err, &de) {
		httputil.WriteJSON(w, http.StatusOK, checkResponse{
			Allowed: false,
			Reason:  string(de.Code),
			Message: de.Message,
		})
		return
	}
	httputil.WriteError(w, err)
}

func (h *Handler) handleGetConfig(w http.ResponseWriter, r *http.Request) {
	cfg, err := h.service.GetConfig(r.Context())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, configResponse(cfg))
}

func (h *Handler) handleGetWhitelist(w http.ResponseWriter, r *http.Request) {
	entry, err := h.service.GetWhitelistEntry(r.Context(), ledger.Address(chi.URLParam(r, "addr")))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, whitelistResponse(entry))
}

func (h *Handler) handleListWhitelist(w http.ResponseWriter, r *http.Request) {
	entries, err := h.service.ListWhitelist(r.Context())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	out := make([]whitelistDTO, 0, len(entries))
	for _, e := range entries {
		out = append(out, whitelistResponse(e))
	}
	httputil.WriteJSON(w, http.StatusOK, out)
}

func (h *Handler) handleGetBlacklist(w http.ResponseWriter, r *http.Request) {
	entry, err := h.service.GetBlacklistEntry(r.Context(), ledger.Address(chi.URLParam(r, "addr")))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, blacklistResponse(entry))
}

func (h *Handler) handleListBlacklist(w http.ResponseWriter, r *http.Request) {
	entries, err := h.service.ListBlacklist(r.Context())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	out := make([]blacklistDTO, 0, len(entries))
	for _, e := range entries {
		out = append(out, blacklistResponse(e))
	}
	httputil.WriteJSON(w, http.StatusOK, out)
}

func (h *Handler) handleListRules(w http.ResponseWriter, r *http.Request) {
	rules, err := h.service.ListRules(r.Context())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	out := make([]ruleDTO, 0, len(rules))
	for _, rule := range rules {
		out = append(out, ruleResponse(rule))
	}
	httputil.WriteJSON(w, http.StatusOK, out)
}
