// Package httptransport assembles the HTTP surface: per-module handlers,
// the wire-record endpoint, health, and metrics.
package httptransport

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	auctionhandler "custodia/internal/auction/handler"
	compliancehandler "custodia/internal/compliance/handler"
	escrowhandler "custodia/internal/escrow/handler"
	"custodia/internal/platform/middleware"
	registryhandler "custodia/internal/registry/handler"
)

// Deps carries everything the router needs. Auth is optional; when nil the
// /v1 surface is open, which is only acceptable for local development.
type Deps struct {
	Logger     *slog.Logger
	Compliance compliancehandler.Service
	Registry   registryhandler.Service
	Escrow     escrowhandler.Service
	Auction    auctionhandler.Service
	Records    []RecordResolver
	Auth       func(http.Handler) http.Handler
}

// NewRouter wires all public endpoints.
func NewRouter(deps Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/v1", func(r chi.Router) {
		if deps.Auth != nil {
			r.Use(deps.Auth)
		}
		r.Route("/compliance", compliancehandler.New(deps.Compliance, deps.Logger).Register)
		registryhandler.New(deps.Registry, deps.Logger).Register(r)
		r.Route("/escrows", escrowhandler.New(deps.Escrow, deps.Logger).Register)
		r.Route("/auctions", auctionhandler.New(deps.Auction, deps.Logger).Register)
		r.Get("/records/{address}", recordHandler(deps.Records))
	})

	return r
}
