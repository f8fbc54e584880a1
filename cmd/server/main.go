// Custodia server: wires the ledger substrate, the four protocol services,
// and the HTTP transport. Business logic lives in internal packages; main
// only assembles dependencies and owns the process lifecycle.
package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/lib/pq"
	"golang.org/x/sync/errgroup"

	"custodia/internal/auction"
	auctionmetrics "custodia/internal/auction/metrics"
	"custodia/internal/compliance"
	"custodia/internal/compliance/cache"
	compliancemetrics "custodia/internal/compliance/metrics"
	"custodia/internal/escrow"
	escrowmetrics "custodia/internal/escrow/metrics"
	"custodia/internal/jwttoken"
	"custodia/internal/ledger"
	"custodia/internal/platform/config"
	"custodia/internal/platform/httpserver"
	"custodia/internal/platform/logger"
	"custodia/internal/platform/middleware"
	platformredis "custodia/internal/platform/redis"
	"custodia/internal/registry"
	registrymetrics "custodia/internal/registry/metrics"
	httptransport "custodia/internal/transport/http"
	"custodia/pkg/platform/audit"
	"custodia/pkg/platform/audit/publisher"
	kafkastore "custodia/pkg/platform/audit/store/kafka"
	memorystore "custodia/pkg/platform/audit/store/memory"
	"custodia/pkg/platform/sentinel"
)

func main() {
	cfg := config.FromEnv()
	log := logger.New()
	ctx := context.Background()

	tokens := ledger.NewTokenLedger()

	// Record stores: postgres when configured, in-memory otherwise.
	complianceStore, registryStore, cleanup, err := buildStores(ctx, cfg)
	if err != nil {
		log.Error("store setup failed", "error", err)
		os.Exit(1)
	}
	defer cleanup()

	// Audit trail: always the queryable in-memory store, fanned out to Kafka
	// when brokers are configured.
	var auditStore audit.Store = memorystore.NewInMemoryStore()
	if len(cfg.Kafka.Brokers) > 0 {
		ks, err := kafkastore.New(ctx, cfg.Kafka.Brokers, cfg.Kafka.Topic)
		if err != nil {
			log.Error("kafka audit store setup failed", "error", err)
			os.Exit(1)
		}
		defer ks.Close()
		auditStore = audit.Fanout(auditStore, ks)
	}
	auditor := publisher.NewPublisher(auditStore, publisher.WithLogger(log))
	defer auditor.Close()

	complianceOpts := []compliance.Option{
		compliance.WithMetrics(compliancemetrics.New()),
		compliance.WithAuditor(auditor),
	}
	redisClient, err := platformredis.New(cfg.Redis)
	if err != nil {
		log.Error("redis setup failed", "error", err)
		os.Exit(1)
	}
	if redisClient != nil {
		defer redisClient.Close()
		partyCache := cache.New(redisClient.Client, complianceStore,
			cache.WithTTL(cfg.Redis.CacheTTL), cache.WithLogger(log))
		complianceOpts = append(complianceOpts, compliance.WithPartyReader(partyCache))
	}
	complianceSvc := compliance.NewService(complianceStore, complianceOpts...)

	registrySvc := registry.NewService(registryStore, tokens, complianceSvc,
		registry.WithMetrics(registrymetrics.New()),
		registry.WithAuditor(auditor))
	escrowSvc := escrow.NewService(escrow.NewInMemoryStore(), tokens,
		escrow.WithMetrics(escrowmetrics.New()),
		escrow.WithAuditor(auditor))
	auctionSvc := auction.NewService(auction.NewInMemoryStore(), tokens,
		auction.WithMetrics(auctionmetrics.New()),
		auction.WithAuditor(auditor))

	jwtService := jwttoken.NewService(cfg.JWTSigningKey, "custodia", "custodia-api")
	router := httptransport.NewRouter(httptransport.Deps{
		Logger:     log,
		Compliance: complianceSvc,
		Registry:   registrySvc,
		Escrow:     escrowSvc,
		Auction:    auctionSvc,
		Records:    recordResolvers(complianceStore, registryStore, escrowSvc, auctionSvc),
		Auth:       middleware.RequireAuth(jwtService, log),
	})

	srv := httpserver.New(cfg.Addr, router)

	runCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(runCtx)
	g.Go(func() error {
		log.Info("starting custodia server", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Error("server exited", "error", err)
		os.Exit(1)
	}
}

// buildStores selects record-store implementations. The same DATABASE_URL
// backs both: compliance through database/sql and registry through pgx.
func buildStores(ctx context.Context, cfg config.Server) (compliance.Store, registry.Store, func(), error) {
	if cfg.DatabaseURL == "" {
		return compliance.NewInMemoryStore(), registry.NewInMemoryStore(), func() {}, nil
	}

	db, err := sql.Open("postgres", cfg.DatabaseURL)
	if err != nil {
		return nil, nil, nil, err
	}
	complianceStore := compliance.NewPostgres(db)
	if err := complianceStore.Migrate(ctx); err != nil {
		db.Close()
		return nil, nil, nil, err
	}

	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		db.Close()
		return nil, nil, nil, err
	}
	registryStore := registry.NewPostgres(pool)
	if err := registryStore.Migrate(ctx); err != nil {
		pool.Close()
		db.Close()
		return nil, nil, nil, err
	}

	cleanup := func() {
		pool.Close()
		db.Close()
	}
	return complianceStore, registryStore, cleanup, nil
}

// recordResolvers exposes every record family through the wire-record
// endpoint. Resolvers are tried in order until one recognizes the address.
func recordResolvers(
	complianceStore compliance.Store,
	registryStore registry.Store,
	escrowSvc *escrow.Service,
	auctionSvc *auction.Service,
) []httptransport.RecordResolver {
	return []httptransport.RecordResolver{
		func(ctx context.Context, addr ledger.Address) ([]byte, error) {
			e, err := escrowSvc.Get(ctx, addr)
			if err != nil {
				return nil, err
			}
			return e.Encode(), nil
		},
		func(ctx context.Context, addr ledger.Address) ([]byte, error) {
			a, err := auctionSvc.Get(ctx, addr)
			if err != nil {
				return nil, err
			}
			return a.Encode(), nil
		},
		func(ctx context.Context, addr ledger.Address) ([]byte, error) {
			a, err := registryStore.GetAsset(ctx, addr)
			if err != nil {
				return nil, err
			}
			return a.Encode(), nil
		},
		func(ctx context.Context, addr ledger.Address) ([]byte, error) {
			m, err := registryStore.GetMintConfig(ctx, addr)
			if err != nil {
				return nil, err
			}
			return m.Encode(), nil
		},
		func(ctx context.Context, addr ledger.Address) ([]byte, error) {
			if addr != compliance.ConfigAddress() {
				return nil, sentinel.ErrNotFound
			}
			cfg, err := complianceStore.GetConfig(ctx)
			if err != nil {
				return nil, err
			}
			return cfg.Encode(), nil
		},
		func(ctx context.Context, addr ledger.Address) ([]byte, error) {
			wl, err := complianceStore.GetWhitelist(ctx, addr)
			if err != nil {
				return nil, err
			}
			return wl.Encode(), nil
		},
		func(ctx context.Context, addr ledger.Address) ([]byte, error) {
			bl, err := complianceStore.GetBlacklist(ctx, addr)
			if err != nil {
				return nil, err
			}
			return bl.Encode(), nil
		},
	}
}
