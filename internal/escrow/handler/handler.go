// Package handler exposes the escrow protocol over HTTP.
package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"custodia/internal/escrow"
	"custodia/internal/ledger"
	domainerrors "custodia/pkg/domain-errors"
	"custodia/pkg/platform/httputil"
)

// Service defines the escrow operations the handler needs.
type Service interface {
	Create(ctx context.Context, p escrow.CreateParams) (escrow.Escrow, error)
	DepositPayment(ctx context.Context, caller, escrowAddr ledger.Address) (escrow.Escrow, error)
	DepositAsset(ctx context.Context, caller, escrowAddr ledger.Address) (escrow.Escrow, error)
	Release(ctx context.Context, escrowAddr ledger.Address) (escrow.Escrow, error)
	Refund(ctx context.Context, escrowAddr ledger.Address) (escrow.Escrow, error)
	Get(ctx context.Context, addr ledger.Address) (escrow.Escrow, error)
	ListByParty(ctx context.Context, party ledger.Address) ([]escrow.Escrow, error)
}

// Handler handles escrow endpoints.
type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts the escrow routes.
func (h *Handler) Register(r chi.Router) {
	r.Post("/", h.handleCreate)
	r.Get("/", h.handleList)
	r.Get("/{addr}", h.handleGet)
	r.Post("/{addr}/deposit-payment", h.handleDepositPayment)
	r.Post("/{addr}/deposit-asset", h.handleDepositAsset)
	r.Post("/{addr}/release", h.handleRelease)
	r.Post("/{addr}/refund", h.handleRefund)
}

type createRequest struct {
	Buyer         string `json:"buyer"`
	Seller        string `json:"seller"`
	AssetMint     string `json:"asset_mint"`
	PaymentMint   string `json:"payment_mint"`
	AssetAmount   uint64 `json:"asset_amount"`
	PaymentAmount uint64 `json:"payment_amount"`
	ExpiresAt     string `json:"expires_at"` // RFC 3339
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	req, ok := httputil.Decode[createRequest](w, r, h.logger)
	if !ok {
		return
	}
	expiresAt, err := time.Parse(time.RFC3339, req.ExpiresAt)
	if err != nil {
		httputil.WriteError(w, domainerrors.NewField("expires_at", "must be an RFC 3339 timestamp"))
		return
	}
	e, err := h.service.Create(r.Context(), escrow.CreateParams{
		Buyer:         ledger.Address(req.Buyer),
		Seller:        ledger.Address(req.Seller),
		AssetMint:     ledger.Address(req.AssetMint),
		PaymentMint:   ledger.Address(req.PaymentMint),
		AssetAmount:   req.AssetAmount,
		PaymentAmount: req.PaymentAmount,
		ExpiresAt:     expiresAt,
	})
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, escrowResponse(e))
}

type callerRequest struct {
	Caller string `json:"caller"`
}

func (h *Handler) handleDepositPayment(w http.ResponseWriter, r *http.Request) {
	req, ok := httputil.Decode[callerRequest](w, r, h.logger)
	if !ok {
		return
	}
	e, err := h.service.DepositPayment(r.Context(),
		ledger.Address(req.Caller), ledger.Address(chi.URLParam(r, "addr")))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, escrowResponse(e))
}

func (h *Handler) handleDepositAsset(w http.ResponseWriter, r *http.Request) {
	req, ok := httputil.Decode[callerRequest](w, r, h.logger)
	if !ok {
		return
	}
	e, err := h.service.DepositAsset(r.Context(),
		ledger.Address(req.Caller), ledger.Address(chi.URLParam(r, "addr")))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, escrowResponse(e))
}

func (h *Handler) handleRelease(w http.ResponseWriter, r *http.Request) {
	e, err := h.service.Release(r.Context(), ledger.Address(chi.URLParam(r, "addr")))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, escrowResponse(e))
}

func (h *Handler) handleRefund(w http.ResponseWriter, r *http.Request) {
	e, err := h.service.Refund(r.Context(), ledger.Address(chi.URLParam(r, "addr")))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, escrowResponse(e))
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	e, err := h.service.Get(r.Context(), ledger.Address(chi.URLParam(r, "addr")))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, escrowResponse(e))
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	party := ledger.Address(r.URL.Query().Get("party"))
	if party.IsZero() {
		httputil.WriteError(w, domainerrors.NewField("party", "party query parameter is required"))
		return
	}
	escrows, err := h.service.ListByParty(r.Context(), party)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	out := make([]escrowDTO, 0, len(escrows))
	for _, e := range escrows {
		out = append(out, escrowResponse(e))
	}
	httputil.WriteJSON(w, http.StatusOK, out)
}

type escrowDTO struct {
	Address       string `json:"address"`
	Buyer         string `json:"buyer"`
	Seller        string `json:"seller"`
	AssetMint     string `json:"asset_mint"`
	PaymentMint   string `json:"payment_mint"`
	AssetAmount   uint64 `json:"asset_amount"`
	PaymentAmount uint64 `json:"payment_amount"`
	Status        string `json:"status"`
	CreatedAt     string `json:"created_at"`
	ExpiresAt     string `json:"expires_at"`
}

func escrowResponse(e escrow.Escrow) escrowDTO {
	return escrowDTO{
		Address:       e.Address.String(),
		Buyer:         e.Buyer.String(),
		Seller:        e.Seller.String(),
		AssetMint:     e.AssetMint.String(),
		PaymentMint:   e.PaymentMint.String(),
		AssetAmount:   e.AssetAmount,
		PaymentAmount: e.PaymentAmount,
		Status:        e.Status.String(),
		CreatedAt:     e.CreatedAt.Format(time.RFC3339),
		ExpiresAt:     e.ExpiresAt.Format(time.RFC3339),
	}
}
