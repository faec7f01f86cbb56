package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"golang.org/x/sync/errgroup"

	httpadapter "github.com/couchcryptid/blast-vibration-service/internal/adapter/http"
	kafkaadapter "github.com/couchcryptid/blast-vibration-service/internal/adapter/kafka"
	"github.com/couchcryptid/blast-vibration-service/internal/adapter/predictor"
	"github.com/couchcryptid/blast-vibration-service/internal/adapter/sqlite"
	"github.com/couchcryptid/blast-vibration-service/internal/config"
	"github.com/couchcryptid/blast-vibration-service/internal/domain"
	"github.com/couchcryptid/blast-vibration-service/internal/mine"
	"github.com/couchcryptid/blast-vibration-service/internal/observability"
	"github.com/couchcryptid/blast-vibration-service/internal/pipeline"
	"github.com/couchcryptid/blast-vibration-service/internal/prediction"
)

// queueBatches is how many publish batches the in-memory event queue holds.
const queueBatches = 20

// readinessChecks is ready when every check passes.
type readinessChecks []sharedobs.ReadinessChecker

func (rc readinessChecks) CheckReadiness(ctx context.Context) error {
	for _, c := range rc {
		if err := c.CheckReadiness(ctx); err != nil {
			return err
		}
	}
	return nil
}

func main() {
	if err := run(); err != nil {
		slog.Error("blastwatch exited", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger := sharedobs.NewLogger(cfg.LogLevel, cfg.LogFormat)
	metrics := observability.NewMetrics()

	store, err := sqlite.Open(cfg.DatabasePath)
	if err != nil {
		return err
	}
	defer store.Close() //nolint:errcheck // closed on exit

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := store.Migrate(ctx); err != nil {
		return err
	}
	logger.Info("database ready", "path", cfg.DatabasePath, "sites", cfg.Sites.Len())

	opts := prediction.Options{Fallback: cfg.PredictorFallback}
	if cfg.PredictorEnabled {
		client := predictor.NewClient(cfg.PredictorURL, cfg.PredictorTimeout, cfg.PredictorRateLimit, metrics, logger)
		opts.Remote = predictor.NewCachedPredictor(client, cfg.PredictorCacheSize, metrics)
		logger.Info("remote predictor enabled", "url", cfg.PredictorURL, "cache_size", cfg.PredictorCacheSize, "fallback", cfg.PredictorFallback)
	} else {
		logger.Info("remote predictor disabled, using local estimator")
	}

	ready := readinessChecks{store}

	var (
		publisher *pipeline.Pipeline
		writer    *kafkaadapter.Writer
	)
	if cfg.KafkaEnabled {
		queue := pipeline.NewQueue(cfg.BatchSize*queueBatches, cfg.BatchFlushInterval)
		writer = kafkaadapter.NewWriter(cfg, logger)
		publisher = pipeline.New(queue, pipeline.NewTransformer(), writer, logger, metrics, cfg.BatchSize)
		opts.Queue = queue
		ready = append(ready, publisher)
		logger.Info("prediction publishing enabled", "topic", cfg.KafkaPredictionTopic, "brokers", cfg.KafkaBrokers)
	}

	svc := prediction.NewService(domain.NewEstimator(cfg.Sites), store, logger, metrics, opts)
	api := httpadapter.NewAPI(svc, mine.NewRegistry(domain.DefaultMines()), logger)
	srv := httpadapter.NewServer(cfg.HTTPAddr, api, ready, cfg.CORSAllowedOrigins, logger)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	if publisher != nil {
		g.Go(func() error {
			return publisher.Run(gctx)
		})
	}

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("http server shutdown error", "error", err)
		}
		return nil
	})

	err = g.Wait()

	if writer != nil {
		if cerr := writer.Close(); cerr != nil {
			logger.Error("kafka writer close error", "error", cerr)
		}
	}
	logger.Info("shutdown complete")
	return err
}
