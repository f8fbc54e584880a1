// Package handler exposes the auction protocol over HTTP.
package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"custodia/internal/auction"
	"custodia/internal/ledger"
	domainerrors "custodia/pkg/domain-errors"
	"custodia/pkg/platform/httputil"
)

// Service defines the auction operations the handler needs.
type Service interface {
	Create(ctx context.Context, p auction.CreateParams) (auction.Auction, error)
	PlaceBid(ctx context.Context, bidder, auctionAddr ledger.Address, amount uint64) (auction.Bid, error)
	CancelBid(ctx context.Context, bidder, auctionAddr ledger.Address) (auction.Bid, error)
	Settle(ctx context.Context, auctionAddr ledger.Address) (auction.Auction, error)
	Cancel(ctx context.Context, caller, auctionAddr ledger.Address) (auction.Auction, error)
	Extend(ctx context.Context, caller, auctionAddr ledger.Address, newEnd time.Time) (auction.Auction, error)
	Get(ctx context.Context, addr ledger.Address) (auction.Auction, error)
	List(ctx context.Context, filter auction.Filter) ([]auction.Auction, error)
	GetBid(ctx context.Context, auctionAddr, bidder ledger.Address) (auction.Bid, error)
	ListBids(ctx context.Context, auctionAddr ledger.Address) ([]auction.Bid, error)
}

// Handler handles auction endpoints.
type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts the auction routes.
func (h *Handler) Register(r chi.Router) {
	r.Post("/", h.handleCreate)
	r.Get("/", h.handleList)
	r.Get("/{addr}", h.handleGet)
	r.Post("/{addr}/bids", h.handlePlaceBid)
	r.Get("/{addr}/bids", h.handleListBids)
	r.Get("/{addr}/bids/{bidder}", h.handleGetBid)
	r.Delete("/{addr}/bids/{bidder}", h.handleCancelBid)
	r.Post("/{addr}/settle", h.handleSettle)
	r.Post("/{addr}/cancel", h.handleCancel)
	r.Post("/{addr}/extend", h.handleExtend)
}

type createRequest struct {
	Seller          string `json:"seller"`
	AssetMint       string `json:"asset_mint"`
	PaymentMint     string `json:"payment_mint"`
	AssetAmount     uint64 `json:"asset_amount"`
	StartingPrice   uint64 `json:"starting_price"`
	ReservePrice    uint64 `json:"reserve_price"`
	MinBidIncrement uint64 `json:"min_bid_increment"`
	StartTime       string `json:"start_time"` // RFC 3339
	EndTime         string `json:"end_time"`
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	req, ok := httputil.Decode[createRequest](w, r, h.logger)
	if !ok {
		return
	}
	start, err := time.Parse(time.RFC3339, req.StartTime)
	if err != nil {
		httputil.WriteError(w, domainerrors.NewField("start_time", "must be an RFC 3339 timestamp"))
		return
	}
	end, err := time.Parse(time.RFC3339, req.EndTime)
	if err != nil {
		httputil.WriteError(w, domainerrors.NewField("end_time", "must be an RFC 3339 timestamp"))
		return
	}
	a, err := h.service.Create(r.Context(), auction.CreateParams{
		Seller:          ledger.Address(req.Seller),
		AssetMint:       ledger.Address(req.AssetMint),
		PaymentMint:     ledger.Address(req.PaymentMint),
		AssetAmount:     req.AssetAmount,
		StartingPrice:   req.StartingPrice,
		ReservePrice:    req.ReservePrice,
		MinBidIncrement: req.MinBidIncrement,
		StartTime:       start,
		EndTime:         end,
	})
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, auctionResponse(a))
}

type bidRequest struct {
	Bidder string `json:"bidder"`
	Amount uint64 `json:"amount"`
}

func (h *Handler) handlePlaceBid(w http.ResponseWriter, r *http.Request) {
	req, ok := httputil.Decode[bidRequest](w, r, h.logger)
	if !ok {
		return
	}
	b, err := h.service.PlaceBid(r.Context(),
		ledger.Address(req.Bidder), ledger.Address(chi.URLParam(r, "addr")), req.Amount)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, bidResponse(b))
}

func (h *Handler) handleCancelBid(w http.ResponseWriter, r *http.Request) {
	b, err := h.service.CancelBid(r.Context(),
		ledger.Address(chi.URLParam(r, "bidder")), ledger.Address(chi.URLParam(r, "addr")))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, bidResponse(b))
}

func (h *Handler) handleSettle(w http.ResponseWriter, r *http.Request) {
	a, err := h.service.Settle(r.Context(), ledger.Address(chi.URLParam(r, "addr")))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, auctionResponse(a))
}

type callerRequest struct {
	Caller string `json:"caller"`
}

func (h *Handler) handleCancel(w http.ResponseWriter, r *http.Request) {
	req, ok := httputil.Decode[callerRequest](w, r, h.logger)
	if !ok {
		return
	}
	a, err := h.service.Cancel(r.Context(),
		ledger.Address(req.Caller), ledger.Address(chi.URLParam(r, "addr")))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, auctionResponse(a))
}

type extendRequest struct {
	Caller  string `json:"caller"`
	EndTime string `json:"end_time"` // RFC 3339
}

func (h *Handler) handleExtend(w http.ResponseWriter, r *http.Request) {
	req, ok := httputil.Decode[extendRequest](w, r, h.logger)
	if !ok {
		return
	}
	end, err := time.Parse(time.RFC3339, req.EndTime)
	if err != nil {
		httputil.WriteError(w, domainerrors.NewField("end_time", "must be an RFC 3339 timestamp"))
		return
	}
	a, err := h.service.Extend(r.Context(),
		ledger.Address(req.Caller), ledger.Address(chi.URLParam(r, "addr")), end)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, auctionResponse(a))
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	a, err := h.service.Get(r.Context(), ledger.Address(chi.URLParam(r, "addr")))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, auctionResponse(a))
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	filter := auction.Filter{
		Seller: ledger.Address(r.URL.Query().Get("seller")),
	}
	if raw := r.URL.Query().Get("status"); raw != "" {
		status, ok := parseStatus(raw)
		if !ok {
			httputil.WriteError(w, domainerrors.NewField("status", "unknown auction status"))
			return
		}
		filter.Status = &status
	}
	auctions, err := h.service.List(r.Context(), filter)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	out := make([]auctionDTO, 0, len(auctions))
	for _, a := range auctions {
		out = append(out, auctionResponse(a))
	}
	httputil.WriteJSON(w, http.StatusOK, out)
}

func (h *Handler) handleGetBid(w http.ResponseWriter, r *http.Request) {
	b, err := h.service.GetBid(r.Context(),
		ledger.Address(chi.URLParam(r, "addr")), ledger.Address(chi.URLParam(r, "bidder")))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, bidResponse(b))
}

func (h *Handler) handleListBids(w http.ResponseWriter, r *http.Request) {
	bids, err := h.service.ListBids(r.Context(), ledger.Address(chi.URLParam(r, "addr")))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	out := make([]bidDTO, 0, len(bids))
	for _, b := range bids {
		out = append(out, bidResponse(b))
	}
	httputil.WriteJSON(w, http.StatusOK, out)
}
