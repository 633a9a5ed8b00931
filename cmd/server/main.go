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

	"pageguard/internal/anchor"
	"pageguard/internal/audit"
	"pageguard/internal/classifier"
	"pageguard/internal/event"
	eventhandler "pageguard/internal/event/handler"
	"pageguard/internal/feedback"
	feedbackhandler "pageguard/internal/feedback/handler"
	"pageguard/internal/platform/config"
	"pageguard/internal/platform/httpserver"
	"pageguard/internal/platform/logger"
	"pageguard/internal/platform/middleware"
	"pageguard/internal/platform/postgres"
	"pageguard/internal/platform/redis"
	"pageguard/internal/policy"
	policyhandler "pageguard/internal/policy/handler"
	"pageguard/internal/ratelimit"
	ratelimitmetrics "pageguard/internal/ratelimit/metrics"
	"pageguard/internal/scan"
	scanhandler "pageguard/internal/scan/handler"
	scanmetrics "pageguard/internal/scan/metrics"
)

func main() {
	log := logger.New()
	if err := run(log); err != nil {
		log.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func run(log *slog.Logger) error {
	cfg := config.FromEnv()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Stores: postgres when configured, in-memory otherwise.
	var (
		eventStore    event.Store
		policyStore   policy.Store
		feedbackStore feedback.Store
	)
	if cfg.DatabaseURL != "" {
		db, err := postgres.Open(ctx, cfg.DatabaseURL)
		if err != nil {
			return err
		}
		defer db.Close()

		es := event.NewPostgresStore(db)
		if err := es.Migrate(ctx); err != nil {
			return err
		}
		ps := policy.NewPostgresStore(db)
		if err := ps.Migrate(ctx); err != nil {
			return err
		}
		fs := feedback.NewPostgresStore(db)
		if err := fs.Migrate(ctx); err != nil {
			return err
		}
		eventStore, policyStore, feedbackStore = es, ps, fs
		log.Info("using postgres stores")
	} else {
		eventStore = event.NewInMemoryStore()
		policyStore = policy.NewInMemoryStore()
		feedbackStore = feedback.NewInMemoryStore()
		log.Warn("DATABASE_URL not set, using in-memory stores")
	}

	// Rate-limit buckets: redis when configured.
	var bucketStore ratelimit.BucketStore = ratelimit.NewInMemoryBucketStore()
	redisClient, err := redis.New(ctx, cfg.RedisURL)
	if err != nil {
		return err
	}
	if redisClient != nil {
		defer redisClient.Close()
		bucketStore = ratelimit.NewRedisBucketStore(redisClient.Client)
		log.Info("using redis rate-limit buckets")
	}

	// Audit trail: log sink always, Kafka when brokers are configured.
	auditPublisher := audit.NewPublisher(256, log)
	sinks := []audit.Sink{audit.NewLogSink(log)}
	if len(cfg.Audit.KafkaBrokers) > 0 {
		kafkaSink, err := audit.NewKafkaSink(ctx, cfg.Audit.KafkaBrokers, cfg.Audit.KafkaTopic)
		if err != nil {
			return err
		}
		defer kafkaSink.Close()
		sinks = append(sinks, kafkaSink)
		log.Info("audit trail publishing to kafka", "topic", cfg.Audit.KafkaTopic)
	}
	auditWorker := audit.NewWorker(auditPublisher.Inbox(), log, sinks...)
	go func() {
		if err := auditWorker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			log.Error("audit worker stopped", "error", err)
		}
	}()

	// Anchoring: no-op ledger unless a gateway is configured.
	var ledger anchor.Ledger = anchor.NoopLedger{}
	if cfg.Ledger.URL != "" {
		ledger = anchor.NewHTTPLedger(cfg.Ledger.URL, cfg.Ledger.APIToken, cfg.Ledger.Chain)
		log.Info("anchoring to ledger gateway", "chain", cfg.Ledger.Chain)
	}
	anchorWorker := anchor.NewWorker(cfg.Ledger.QueueCap, ledger, eventStore, auditPublisher, log)
	go func() {
		if err := anchorWorker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			log.Error("anchor worker stopped", "error", err)
		}
	}()

	engine := scan.NewService(
		eventStore,
		policyStore,
		classifier.NewHTTPClassifier(cfg.Classifier.BaseURL, cfg.Classifier.Timeout),
		scan.WithAnchorer(anchorWorker),
		scan.WithAuditPublisher(auditPublisher),
		scan.WithMetrics(scanmetrics.New()),
		scan.WithLogger(log),
		scan.WithClassifyTimeout(cfg.Classifier.Timeout),
	)

	limiter := ratelimit.NewMiddleware(
		bucketStore,
		cfg.ScanRateLimit,
		cfg.ScanRateWindow,
		auditPublisher,
		ratelimitmetrics.New(),
		log,
	)

	router := buildRouter(cfg, log, engine, eventStore, policyStore, feedbackStore, auditPublisher, limiter)

	srv := httpserver.New(cfg.Addr, router)
	errCh := make(chan error, 1)
	go func() {
		log.Info("scan API listening", "addr", cfg.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func buildRouter(
	cfg config.Server,
	log *slog.Logger,
	engine *scan.Service,
	eventStore event.Store,
	policyStore policy.Store,
	feedbackStore feedback.Store,
	auditPublisher *audit.Publisher,
	limiter *ratelimit.Middleware,
) http.Handler {
	validator := middleware.NewTokenValidator(cfg.JWTSigningKey, cfg.JWTIssuer)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api", func(api chi.Router) {
		api.Use(middleware.RequireAuth(validator, log))

		api.Group(func(scans chi.Router) {
			scans.Use(limiter.Limit)
			scanhandler.New(engine, log).Register(scans)
		})

		eventhandler.New(eventStore, auditPublisher, log).Register(api)
		policyhandler.New(policyStore, auditPublisher, log).Register(api)
		feedbackhandler.New(eventStore, feedbackStore, auditPublisher, log).Register(api)
	})

	return r
}
