// Command cardscored is the cardscore scoring service.
// It serves the REST API, Prometheus metrics, and a health check.
package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog"

	"github.com/cardscore/cardscore/internal/api"
	"github.com/cardscore/cardscore/internal/evaluations"
	"github.com/cardscore/cardscore/internal/events"
	"github.com/cardscore/cardscore/internal/metrics"
	"github.com/cardscore/cardscore/internal/modelstore"
	"github.com/cardscore/cardscore/internal/platform"
	"github.com/cardscore/cardscore/internal/registry"
	"github.com/cardscore/cardscore/pkg/config"
)

func main() {
	cfg, err := loadConfig()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	logger := newLogger(cfg.Logging)

	if err := run(cfg, logger); err != nil {
		logger.Fatal().Err(err).Msg("cardscored exited")
	}
}

// loadConfig reads CARDSCORE_CONFIG (or .cardscore/config.yaml found from
// the working directory), then applies environment overrides.
func loadConfig() (*config.Config, error) {
	path := os.Getenv("CARDSCORE_CONFIG")
	if path == "" {
		if wd, err := os.Getwd(); err == nil {
			path = config.FindConfigFile(wd)
		}
	}

	cfg := config.DefaultConfig()
	if path != "" {
		loaded, err := config.Load(path)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}
	if err := cfg.ApplyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func newLogger(cfg config.LoggingConfig) zerolog.Logger {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	if cfg.Format == "console" {
		return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).
			With().Timestamp().Logger()
	}
	return zerolog.New(os.Stdout).With().Timestamp().Str("service", "cardscored").Logger()
}

func run(cfg *config.Config, logger zerolog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := sql.Open("postgres", cfg.Database.URL)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	if err := db.PingContext(ctx); err != nil {
		return fmt.Errorf("ping database: %w", err)
	}
	if err := platform.AutoMigrate(db, logger); err != nil {
		return err
	}

	store, closeStore, err := newStore(ctx, cfg.Storage)
	if err != nil {
		return err
	}
	defer closeStore()

	var publisher events.Publisher = events.Nop{}
	if cfg.Events.NATSURL != "" {
		p, err := events.NewNATSPublisher(ctx, cfg.Events.NATSURL, cfg.Events.Stream, logger)
		if err != nil {
			return fmt.Errorf("connect nats: %w", err)
		}
		publisher = p
	}
	defer publisher.Close()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	svc := evaluations.NewService(evaluations.Options{
		Registry:         registry.NewService(db),
		Store:            store,
		Publisher:        publisher,
		Metrics:          metrics.New(reg),
		Logger:           logger,
		CacheSize:        cfg.Evaluation.CacheSize,
		BatchConcurrency: cfg.Evaluation.BatchConcurrency,
		MaxBatchSize:     cfg.Evaluation.MaxBatchSize,
	})
	handler := api.NewHandler(svc, api.Options{
		Logger:           logger,
		PersistByDefault: cfg.Evaluation.PersistByDefault,
	})

	mux := http.NewServeMux()
	handler.RegisterRoutes(mux, api.APIKeyAuth(cfg.Server.APIKey))
	mux.Handle("GET /metrics", metrics.Handler(reg))
	mux.HandleFunc("GET /healthz", healthHandler(db))

	srv := &http.Server{
		Addr: ":" + cfg.Server.Port,
		Handler: api.Chain(mux,
			api.RequestLogger(logger),
			api.CORS(cfg.Server.CORSOrigin),
			api.RateLimit(cfg.Server.RateLimit, cfg.Server.RateBurst),
		),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info().Str("port", cfg.Server.Port).Str("storage", cfg.Storage.Backend).Msg("starting cardscored")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("listen: %w", err)
	case <-ctx.Done():
	}

	logger.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.Server.ShutdownTimeout)*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

// newStore builds the configured blob store and its cleanup func.
func newStore(ctx context.Context, cfg config.StorageConfig) (modelstore.Store, func(), error) {
	switch strings.ToLower(cfg.Backend) {
	case "gcs":
		s, err := modelstore.NewGCSStorage(ctx, cfg.GCSBucket)
		if err != nil {
			return nil, nil, fmt.Errorf("gcs storage: %w", err)
		}
		return s, func() { _ = s.Close() }, nil
	case "s3":
		s, err := modelstore.NewS3Storage(ctx, modelstore.S3Config{
			Bucket:    cfg.S3Bucket,
			Region:    cfg.S3Region,
			Endpoint:  cfg.S3Endpoint,
			AccessKey: cfg.S3AccessKey,
			SecretKey: cfg.S3SecretKey,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("s3 storage: %w", err)
		}
		return s, func() {}, nil
	default:
		return modelstore.NewLocalStorage(cfg.LocalDir), func() {}, nil
	}
}

func healthHandler(db *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if err := db.PingContext(r.Context()); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"status":"database unreachable"}`))
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	}
}
