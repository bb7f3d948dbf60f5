package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"skillchain/internal/apitoken"
	"skillchain/internal/credential/handler"
	"skillchain/internal/credential/issuer"
	"skillchain/internal/credential/metrics"
	"skillchain/internal/credential/store"
	"skillchain/internal/credential/store/cache"
	"skillchain/internal/credential/tracer"
	"skillchain/internal/credential/verifier"
	"skillchain/internal/platform/config"
	"skillchain/internal/platform/database"
	"skillchain/internal/platform/health"
	"skillchain/internal/platform/httpserver"
	"skillchain/internal/platform/kafka/producer"
	"skillchain/internal/platform/logger"
	platformredis "skillchain/internal/platform/redis"
	"skillchain/internal/sharelink"
	"skillchain/internal/signer"
	"skillchain/internal/signer/local"
	"skillchain/internal/signer/resilient"
	"skillchain/internal/signer/walletrpc"
	"skillchain/pkg/platform/audit"
	auditkafka "skillchain/pkg/platform/audit/store/kafka"
	auditmemory "skillchain/pkg/platform/audit/store/memory"
	auditpostgres "skillchain/pkg/platform/audit/store/postgres"
	"skillchain/pkg/platform/audit/publisher"
	"skillchain/pkg/platform/middleware/auth"
	"skillchain/pkg/platform/middleware/metadata"
	"skillchain/pkg/platform/middleware/ratelimit"
	"skillchain/pkg/platform/middleware/requesttime"
)

// main wires high-level dependencies, exposes the HTTP router, and keeps the
// server lifecycle small. Business logic lives in internal services packages.
func main() {
	cfg := config.FromEnv()
	log := logger.New()

	log.Info("initializing skillchain",
		"addr", cfg.Addr,
		"environment", cfg.Environment,
	)

	m := metrics.New()
	checks := health.New(cfg.Environment)

	// Persistence. Falls back to in-memory when DATABASE_URL is absent.
	pool, err := database.New(databaseConfig(cfg))
	if err != nil {
		log.Error("database init failed", "error", err)
		os.Exit(1)
	}

	var credStore store.Store
	if pool != nil {
		credStore = store.NewPostgres(pool.DB())
		checks.RegisterCheck("postgres", func() error {
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			return pool.Health(ctx)
		})
		defer pool.Close()
		log.Info("credential store: postgres")
	} else {
		credStore = store.NewInMemoryStore()
		log.Warn("credential store: in-memory, data will not survive restarts")
	}

	// Optional read-through cache in front of the store.
	rdb, err := platformredis.New(cfg.Redis)
	if err != nil {
		log.Error("redis init failed", "error", err)
		os.Exit(1)
	}
	if rdb != nil {
		credStore = cache.New(credStore, rdb.Client, cfg.CacheTTL, m)
		checks.RegisterCheck("redis", func() error {
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			return rdb.Health(ctx)
		})
		defer rdb.Close()
		log.Info("credential cache enabled", "ttl", cfg.CacheTTL)
	}

	// Audit pipeline: durable sink (postgres) when available, memory
	// otherwise, optionally fanned out to Kafka.
	var auditSink audit.Store
	if pool != nil {
		auditSink = auditpostgres.New(pool.DB())
	} else {
		auditSink = auditmemory.NewInMemoryStore()
	}
	if cfg.KafkaBrokers != "" {
		prod, err := producer.New(producer.Config{Brokers: cfg.KafkaBrokers}, log)
		if err != nil {
			log.Error("kafka producer init failed", "error", err)
			os.Exit(1)
		}
		defer prod.Close()
		checks.RegisterCheck("kafka", func() error {
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			if !prod.Healthy(ctx) {
				return errors.New("kafka unreachable")
			}
			return nil
		})
		auditSink = audit.NewMultiStore(auditSink, auditkafka.New(prod, cfg.AuditTopic))
		log.Info("audit events published to kafka", "topic", cfg.AuditTopic)
	}
	auditPub := publisher.NewPublisher(auditSink, publisher.WithLogger(log))
	defer auditPub.Close()

	gateway := buildSigner(cfg, log)

	tr := tracer.NewOTel()
	issuerSvc := issuer.New(credStore, gateway,
		issuer.WithLogger(log),
		issuer.WithMetrics(m),
		issuer.WithTracer(tr),
		issuer.WithAuditEmitter(auditPub),
	)
	verifierSvc := verifier.New(credStore,
		verifier.WithLogger(log),
		verifier.WithMetrics(m),
		verifier.WithTracer(tr),
		verifier.WithAuditEmitter(auditPub),
	)

	tokens := apitoken.NewService(cfg.APISigningKey, "skillchain", cfg.APITokenTTL)
	h := handler.New(issuerSvc, verifierSvc, sharelink.NewBuilder(cfg.VerifyBaseURL), log)

	r := chi.NewRouter()
	r.Use(requesttime.Middleware)
	r.Use(metadata.ClientMetadata)
	checks.Register(r)
	r.Handle("/metrics", promhttp.Handler())

	limiter := ratelimit.New(ratelimit.NewInMemoryStore(), cfg.VerifyRateLimit, cfg.VerifyRateWindow, log)
	h.Register(r, auth.RequireIssuer(tokens, log), limiter.PerIP)

	srv := httpserver.New(cfg.Addr, r)

	g, ctx := errgroup.WithContext(context.Background())

	g.Go(func() error {
		log.Info("starting http server", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
		select {
		case sig := <-quit:
			log.Info("shutting down", "signal", sig.String())
		case <-ctx.Done():
			return ctx.Err()
		}

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		log.Error("server error", "error", err)
		os.Exit(1)
	}

	log.Info("server stopped")
}

func databaseConfig(cfg config.Server) database.Config {
	dbCfg := database.DefaultConfig()
	dbCfg.URL = cfg.DatabaseURL
	return dbCfg
}

// buildSigner selects the signing gateway: an external wallet agent when
// configured, otherwise an in-process dev key.
func buildSigner(cfg config.Server, log *slog.Logger) signer.Gateway {
	if cfg.SignerAgentURL != "" {
		log.Info("signer: wallet agent", "endpoint", cfg.SignerAgentURL)
		return resilient.New(walletrpc.New(cfg.SignerAgentURL, 30*time.Second), log)
	}
	dev, err := local.New("skillchain-dev")
	if err != nil {
		log.Error("dev signer init failed", "error", err)
		os.Exit(1)
	}
	log.Info("signer: local dev key", "identity", dev.Identity())
	return dev
}
