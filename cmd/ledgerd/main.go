package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"

	"github.com/jmerrifield20/tourledger/internal/config"
	"github.com/jmerrifield20/tourledger/internal/events"
	"github.com/jmerrifield20/tourledger/internal/handler"
	"github.com/jmerrifield20/tourledger/internal/health"
	"github.com/jmerrifield20/tourledger/internal/identity"
	"github.com/jmerrifield20/tourledger/internal/ledger"
	"github.com/jmerrifield20/tourledger/internal/logging"
	"github.com/jmerrifield20/tourledger/internal/telemetry"
)

const serviceName = "ledgerd"

func main() {
	configFile := flag.String("config", "", "path to config file (default: configs/ledgerd.yaml or ./ledgerd.yaml)")
	flag.Parse()

	cfg, err := config.Load(*configFile)
	if err != nil {
		fmt.Fprintln(os.Stderr, "ledgerd:", err)
		os.Exit(1)
	}

	logger, err := logging.New(logging.Config{
		Level:       cfg.Log.Level,
		Format:      cfg.Log.Format,
		File:        cfg.Log.File,
		MaxSizeMB:   cfg.Log.MaxSizeMB,
		MaxBackups:  cfg.Log.MaxBackups,
		MaxAgeDays:  cfg.Log.MaxAgeDays,
		Service:     serviceName,
		Environment: cfg.Telemetry.Environment,
	})
	if err != nil {
		fmt.Fprintln(os.Stderr, "ledgerd:", err)
		os.Exit(1)
	}
	defer logger.Sync() //nolint:errcheck

	if err := run(cfg, logger); err != nil {
		logger.Fatal("ledgerd exited with error", zap.Error(err))
	}
}

func run(cfg *config.Config, logger *zap.Logger) error {
	if cfg.File == "" {
		logger.Warn("no config file found, using defaults and env vars")
	} else {
		logger.Info("config loaded", zap.String("file", cfg.File))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ── Telemetry ─────────────────────────────────────────────────────────────
	shutdownTelemetry, err := telemetry.Init(ctx, telemetry.Config{
		ServiceName: serviceName,
		Environment: cfg.Telemetry.Environment,
		Endpoint:    cfg.Telemetry.Endpoint,
		Insecure:    cfg.Telemetry.Insecure,
		Headers:     telemetry.ParseHeaders(cfg.Telemetry.Headers),
		SampleRatio: cfg.Telemetry.SampleRatio,
		Metrics:     cfg.Telemetry.Metrics,
	})
	if err != nil {
		return fmt.Errorf("init telemetry: %w", err)
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTelemetry(sctx); err != nil {
			logger.Warn("telemetry shutdown", zap.Error(err))
		}
	}()

	// ── Store ─────────────────────────────────────────────────────────────────
	store, closeStore, err := openStore(ctx, cfg.Database, logger)
	if err != nil {
		return err
	}
	defer closeStore()

	// ── Ledger ────────────────────────────────────────────────────────────────
	hasher, err := ledger.HasherByName(cfg.Ledger.Hash)
	if err != nil {
		return err
	}
	l := ledger.New(store, hasher, logger)

	var pubs events.Multi
	if cfg.Events.AMQPURL != "" {
		amqpPub, err := events.NewAMQPPublisher(cfg.Events.AMQPURL, cfg.Events.Exchange, logger)
		if err != nil {
			return fmt.Errorf("connect event broker: %w", err)
		}
		pubs = append(pubs, amqpPub)
	}
	if len(cfg.Events.WebhookURLs) > 0 {
		wh := events.NewWebhookPublisher(cfg.Events.WebhookURLs, cfg.Events.WebhookSecret, logger)
		wh.SetDeliveryRecorder(handler.RecordWebhookDelivery)
		pubs = append(pubs, wh)
		logger.Info("webhook targets configured", zap.Int("count", len(cfg.Events.WebhookURLs)))
	}
	var pub events.Publisher = events.NoopPublisher{}
	if len(pubs) > 0 {
		pub = pubs
	}
	defer pub.Close() //nolint:errcheck
	l.SetPublisher(pub)

	if cfg.Ledger.Rehydrate {
		n, err := l.Rehydrate(ctx)
		if err != nil {
			return err
		}
		logger.Info("ledger rehydrated from store", zap.Int("records", n))
	}
	if cfg.Ledger.VerifyOnStart {
		if err := l.VerifyStored(ctx); err != nil {
			logger.Warn("stored ledger integrity check FAILED", zap.Error(err))
			handler.SetChainValid("store", false)
		} else {
			logger.Info("ledger verified",
				zap.Int("entries", l.Len()),
				zap.String("root", l.Root()),
				zap.String("hash", hasher.Name()),
			)
			handler.SetChainValid("store", true)
		}
	}

	// ── Integrity audit ───────────────────────────────────────────────────────
	var degraded func() bool
	if cfg.Ledger.AuditInterval > 0 {
		checker := health.New(l, health.Config{
			CheckInterval: cfg.Ledger.AuditInterval,
			FailThreshold: cfg.Ledger.AuditFailThreshold,
		}, logger)
		checker.SetMetricsFunc(func(probe string, ok bool) {
			handler.RecordHealthCheck(probe, ok)
			switch probe {
			case health.ProbeMemoryChain:
				handler.SetChainValid("memory", ok)
			case health.ProbeStoredChain:
				handler.SetChainValid("store", ok)
			}
		})
		checker.SetEventFunc(func(ctx context.Context, key string, payload map[string]string) {
			if err := pub.Publish(ctx, key, payload); err != nil {
				logger.Warn("integrity event publish failed", zap.String("key", key), zap.Error(err))
			}
		})
		degraded = checker.Degraded
		go checker.Start(ctx)
		logger.Info("integrity audit scheduled", zap.Duration("interval", cfg.Ledger.AuditInterval))
	}

	// ── Identity ──────────────────────────────────────────────────────────────
	var tokens *identity.TokenIssuer
	if cfg.Auth.JWTSecret != "" {
		tokens, err = identity.NewTokenIssuer(cfg.Auth.JWTSecret, cfg.Auth.Issuer, cfg.Auth.TokenTTL)
		if err != nil {
			return err
		}
	} else {
		logger.Warn("auth.jwt_secret not set: API is open and writes are recorded as anonymous")
	}

	// ── HTTP Router ───────────────────────────────────────────────────────────
	if os.Getenv("GIN_MODE") == "" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := handler.NewRouter(ctx, handler.RouterConfig{
		CORSOrigins:  cfg.Server.CORSOrigins,
		RateLimitRPS: cfg.Server.RateLimitRPS,
		MaxBodyBytes: cfg.Server.MaxBodyBytes,
		Degraded:     degraded,
	}, l, tokens, logger)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           otelhttp.NewHandler(router, serviceName),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("ledgerd HTTP listening",
			zap.Int("port", cfg.Server.Port),
			zap.String("driver", cfg.Database.Driver),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	// ── Graceful shutdown ─────────────────────────────────────────────────────
	select {
	case <-ctx.Done():
	case err := <-errCh:
		return fmt.Errorf("http listen: %w", err)
	}
	logger.Info("shutting down ledgerd...")

	sctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(sctx); err != nil {
		logger.Error("HTTP shutdown error", zap.Error(err))
	}

	logger.Info("ledgerd stopped")
	return nil
}

// openStore connects the configured store and returns its close function.
func openStore(ctx context.Context, cfg config.Database, logger *zap.Logger) (ledger.Store, func(), error) {
	switch cfg.Driver {
	case config.DriverPostgres:
		pool, err := pgxpool.New(ctx, cfg.URL)
		if err != nil {
			return nil, nil, fmt.Errorf("connect to postgres: %w", err)
		}
		if err := pool.Ping(ctx); err != nil {
			pool.Close()
			return nil, nil, fmt.Errorf("ping postgres: %w", err)
		}
		logger.Info("connected to postgres")
		return ledger.NewPostgresStore(pool, logger), pool.Close, nil

	case config.DriverSQLite:
		s, err := ledger.OpenSQLiteStore(cfg.SQLitePath, logger)
		if err != nil {
			return nil, nil, err
		}
		logger.Info("opened sqlite store", zap.String("path", cfg.SQLitePath))
		return s, func() { _ = s.Close() }, nil

	default:
		logger.Warn("using in-memory store: records will not survive a restart")
		return ledger.NewMemoryStore(), func() {}, nil
	}
}
