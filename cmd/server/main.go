package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/atmx/offer-engine/internal/api"
	"github.com/atmx/offer-engine/internal/auth"
	"github.com/atmx/offer-engine/internal/config"
	"github.com/atmx/offer-engine/internal/events"
	"github.com/atmx/offer-engine/internal/filter"
	"github.com/atmx/offer-engine/internal/identity"
	"github.com/atmx/offer-engine/internal/lifecycle"
	"github.com/atmx/offer-engine/internal/logging"
	"github.com/atmx/offer-engine/internal/metrics"
	"github.com/atmx/offer-engine/internal/model"
	"github.com/atmx/offer-engine/internal/payment"
	"github.com/atmx/offer-engine/internal/pricefeed"
	"github.com/atmx/offer-engine/internal/registry"
	"github.com/atmx/offer-engine/internal/store"
	"github.com/atmx/offer-engine/internal/wallet"
)

func main() {
	logging.Setup()
	cfg := config.Load()

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	// --- Initialize store ---
	var st store.Store
	var cleanup []func()

	if cfg.DatabaseURL != "" {
		pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
		if err != nil {
			slog.Error("database connection failed", "err", err)
			os.Exit(1)
		}
		cleanup = append(cleanup, pool.Close)
		pg := store.NewPostgresStore(pool)
		if err := pg.EnsureSchema(ctx); err != nil {
			slog.Error("schema migration failed", "err", err)
			os.Exit(1)
		}
		st = pg
		slog.Info("connected to PostgreSQL")

		// Wrap with Redis read-through cache if configured.
		if cfg.RedisURL != "" {
			opt, err := redis.ParseURL(cfg.RedisURL)
			if err != nil {
				slog.Error("invalid REDIS_URL", "err", err)
				os.Exit(1)
			}
			rdb := redis.NewClient(opt)
			cleanup = append(cleanup, func() { rdb.Close() })
			st = store.NewCachedStore(st, rdb, cfg.CacheTTL)
			slog.Info("Redis cache enabled", "ttl", cfg.CacheTTL.String())
		}
	} else {
		slog.Warn("DATABASE_URL not set, using in-memory store (data will not persist)")
		st = store.NewMemoryStore()
	}

	defer func() {
		for i := len(cleanup) - 1; i >= 0; i-- {
			cleanup[i]()
		}
	}()

	// --- Offer events ---
	wsHub := events.NewHub()
	go wsHub.Run(ctx)
	publishers := events.Multi{wsHub}
	if len(cfg.KafkaBrokers) > 0 {
		kp := events.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaTopic)
		cleanup = append(cleanup, func() {
			if err := kp.Close(); err != nil {
				slog.Error("kafka writer close failed", "err", err)
			}
		})
		publishers = append(publishers, kp)
		slog.Info("Kafka offer events enabled", "brokers", cfg.KafkaBrokers, "topic", cfg.KafkaTopic)
	}

	// --- Offer registry ---
	feed := pricefeed.NewService(cfg.PriceMaxAge)
	regCfg := registry.DefaultConfig(cfg.NodeFingerprint)
	regCfg.MakerFeeRate = cfg.MakerFeeRate
	regCfg.MinSecurityDeposit = cfg.MinSecurityDeposit
	regCfg.MaxSecurityDeposit = cfg.MaxSecurityDeposit
	regCfg.MaxTradeAmount = cfg.MaxTradeAmount
	reg := registry.New(st, publishers, feed, regCfg)

	// --- Lifecycle service ---
	gate := wallet.NewGate(cfg.WalletAvailable, cfg.WalletPasswordHash)
	compat := payment.NewCompatibility()
	offerFilter := filter.NewOfferFilter(filter.Rules{
		DisableAPI:           cfg.DisableAPI,
		BannedOfferIDs:       cfg.BannedOfferIDs,
		BannedCurrencies:     cfg.BannedCurrencies,
		BannedPaymentMethods: cfg.BannedPaymentMethods,
	}, st, compat)
	offers := lifecycle.NewService(lifecycle.Deps{
		Registry:      reg,
		Wallet:        gate,
		Accounts:      st,
		Compatibility: compat,
		Takeability:   offerFilter,
		Identity:      identity.NewLocal(cfg.NodeFingerprint),
		PriceFeed:     feed,
	})

	// --- Auth ---
	if cfg.APIPasswordHash != "" && cfg.JWTSecret == "" {
		slog.Error("JWT_SECRET is required when API_PASSWORD_HASH is set")
		os.Exit(1)
	}
	authSvc := auth.NewService(cfg.APIPasswordHash, cfg.JWTSecret, cfg.TokenTTL)
	if !authSvc.Enabled() {
		slog.Warn("API_PASSWORD_HASH not set, API authentication disabled")
	}

	handler := api.NewHandler(offers, st, gate, feed, authSvc)

	// --- HTTP router ---
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Timeout(30 * time.Second))
	r.Use(metrics.Middleware)

	// CORS middleware for frontend cross-origin requests.
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Access-Control-Allow-Origin", "*")
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
			if r.Method == "OPTIONS" {
				w.WriteHeader(http.StatusNoContent)
				return
			}
			next.ServeHTTP(w, r)
		})
	})

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"status":"ok","service":"offer-engine","version":%q}`, model.Version)
	})

	// Prometheus metrics endpoint.
	r.Handle("/metrics", metrics.Handler())

	// WebSocket endpoint for offer events, behind the same bearer check.
	r.With(authSvc.Middleware).Get("/api/v1/ws", wsHub.HandleWS)
	r.Mount("/api/v1", handler.Routes())

	// --- Server ---
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 35 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		slog.Info("offer-engine listening", "port", cfg.Port, "fingerprint", cfg.NodeFingerprint)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "err", err)
			os.Exit(1)
		}
	}()

	// Graceful shutdown.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	slog.Info("shutting down offer-engine...")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown error", "err", err)
	}
	reg.Wait()
	stop()
	fmt.Println("offer-engine stopped")
}
