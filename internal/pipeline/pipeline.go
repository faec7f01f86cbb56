package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"time"

	sharedretry "github.com/couchcryptid/storm-data-shared/retry"

	"github.com/couchcryptid/blast-vibration-service/internal/domain"
	"github.com/couchcryptid/blast-vibration-service/internal/observability"
)

// BatchExtractor reads up to batchSize prediction records from the source.
type BatchExtractor interface {
	ExtractBatch(ctx context.Context, batchSize int) ([]domain.PredictionRecord, error)
}

// Transformer converts a prediction record into an output event.
type Transformer interface {
	Transform(rec domain.PredictionRecord) (domain.OutputEvent, error)
}

// BatchLoader writes multiple output events to the destination.
type BatchLoader interface {
	LoadBatch(ctx context.Context, events []domain.OutputEvent) error
}

// Pipeline orchestrates the extract-transform-load loop that publishes predictions.
type Pipeline struct {
	extractor   BatchExtractor
	transformer Transformer
	loader      BatchLoader
	logger      *slog.Logger
	metrics     *observability.Metrics
	running     atomic.Bool
	batchSize   int
}

// New creates a Pipeline with the given stages and observability.
func New(e BatchExtractor, t Transformer, l BatchLoader, logger *slog.Logger, metrics *observability.Metrics, batchSize int) *Pipeline {
	return &Pipeline{
		extractor:   e,
		transformer: t,
		loader:      l,
		logger:      logger,
		metrics:     metrics,
		batchSize:   batchSize,
	}
}

// CheckReadiness returns nil while the publishing loop is running.
func (p *Pipeline) CheckReadiness(_ context.Context) error {
	if !p.running.Load() {
		return errors.New("event publisher is not running")
	}
	return nil
}

// Run executes the batch publishing loop until the context is cancelled.
func (p *Pipeline) Run(ctx context.Context) error {
	p.logger.Info("publisher started", "batch_size", p.batchSize)
	p.running.Store(true)
	p.metrics.PublisherReady.Set(1)
	defer func() {
		p.running.Store(false)
		p.metrics.PublisherReady.Set(0)
	}()

	// Exponential backoff: start at 200ms, double each retry, cap at 5s.
	backoff := 200 * time.Millisecond
	maxBackoff := 5 * time.Second

	for {
		select {
		case <-ctx.Done():
			p.logger.Info("publisher stopping", "reason", ctx.Err())
			return nil
		default:
		}

		if !p.processBatch(ctx, &backoff, maxBackoff) {
			return nil
		}
	}
}

// processBatch runs one extract-transform-load cycle. Returns false if the pipeline should stop.
func (p *Pipeline) processBatch(ctx context.Context, backoff *time.Duration, maxBackoff time.Duration) bool {
	batch, err := p.extractor.ExtractBatch(ctx, p.batchSize)
	if err != nil {
		if ctx.Err() != nil {
			return false
		}
		p.logger.Error("extract batch failed", "error", err)
		return p.backoffOrStop(ctx, backoff, maxBackoff)
	}
	if len(batch) == 0 {
		return ctx.Err() == nil
	}

	start := time.Now()
	p.metrics.BatchSize.Observe(float64(len(batch)))

	events := make([]domain.OutputEvent, 0, len(batch))
	for _, rec := range batch {
		ev, err := p.transformer.Transform(rec)
		if err != nil {
			p.logger.Warn("transform failed, skipping prediction", "error", err, "prediction_id", rec.ID)
			continue
		}
		events = append(events, ev)
	}
	if len(events) == 0 {
		return true
	}

	// Retry the same batch until it is written or the context ends, so a
	// broker outage delays events instead of losing them.
	for {
		err := p.loader.LoadBatch(ctx, events)
		if err == nil {
			break
		}
		p.metrics.PublishErrors.Inc()
		p.logger.Error("load batch failed", "error", err, "batch_size", len(events))
		if !p.backoffOrStop(ctx, backoff, maxBackoff) {
			return false
		}
	}

	*backoff = 200 * time.Millisecond
	p.metrics.EventsPublished.Add(float64(len(events)))
	p.metrics.BatchProcessingDuration.Observe(time.Since(start).Seconds())
	return true
}

// backoffOrStop checks for context cancellation, sleeps with the current backoff,
// and advances the backoff. Returns false if the pipeline should stop.
func (p *Pipeline) backoffOrStop(ctx context.Context, backoff *time.Duration, maxBackoff time.Duration) bool {
	if ctx.Err() != nil {
		return false
	}
	if !sharedretry.SleepWithContext(ctx, *backoff) {
		return false
	}
	*backoff = sharedretry.NextBackoff(*backoff, maxBackoff)
	return true
}
