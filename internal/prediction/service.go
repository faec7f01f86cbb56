// Package prediction coordinates PPV predictions, field measurements and
// site calibration on top of the domain estimator.
package prediction

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/couchcryptid/blast-vibration-service/internal/domain"
	"github.com/couchcryptid/blast-vibration-service/internal/observability"
)

// ErrPredictorUnavailable is wrapped when the remote model fails and local
// fallback is disabled.
var ErrPredictorUnavailable = errors.New("prediction model unavailable")

// Store persists predictions and field measurements.
type Store interface {
	SavePrediction(ctx context.Context, rec domain.PredictionRecord) (domain.PredictionRecord, error)
	ListPredictions(ctx context.Context, mine string, limit int) ([]domain.PredictionRecord, error)
	SaveMeasurement(ctx context.Context, m domain.Measurement) (domain.Measurement, error)
	ListMeasurements(ctx context.Context, mine string) ([]domain.Measurement, error)
	DeleteMeasurement(ctx context.Context, id string) error
}

// EventQueue accepts prediction records for asynchronous publishing.
type EventQueue interface {
	Enqueue(rec domain.PredictionRecord) bool
}

// Options holds the optional collaborators of a Service.
type Options struct {
	// Remote is consulted before the local estimator. Nil disables it.
	Remote domain.RemotePredictor
	// Fallback answers from the local estimator when Remote fails.
	Fallback bool
	// Queue receives every prediction for publishing. Nil disables it.
	Queue EventQueue
	// Clock stamps records; defaults to the wall clock.
	Clock domain.Clock
}

// Service answers prediction and measurement requests.
type Service struct {
	estimator *domain.Estimator
	store     Store
	remote    domain.RemotePredictor
	fallback  bool
	queue     EventQueue
	clock     domain.Clock
	logger    *slog.Logger
	metrics   *observability.Metrics
}

// NewService creates a Service backed by the estimator and store.
func NewService(est *domain.Estimator, store Store, logger *slog.Logger, metrics *observability.Metrics, opts Options) *Service {
	clock := opts.Clock
	if clock == nil {
		clock = domain.NewRealClock()
	}
	return &Service{
		estimator: est,
		store:     store,
		remote:    opts.Remote,
		fallback:  opts.Fallback,
		queue:     opts.Queue,
		clock:     clock,
		logger:    logger,
		metrics:   metrics,
	}
}

// Estimator returns the local estimator the service falls back to.
func (s *Service) Estimator() *domain.Estimator { return s.estimator }

// Predict produces a PPV prediction for the blast design. The remote model is
// preferred when configured. The record is stored and queued for publishing;
// failures of either are logged and do not fail the request.
func (s *Service) Predict(ctx context.Context, params domain.BlastParameters) (domain.PredictionRecord, error) {
	if err := params.Validate(); err != nil {
		s.metrics.InvalidInputs.Inc()
		return domain.PredictionRecord{}, err
	}

	rec, err := s.predict(ctx, params)
	if err != nil {
		if domain.IsInvalidInput(err) {
			s.metrics.InvalidInputs.Inc()
		}
		return domain.PredictionRecord{}, err
	}
	rec.ID = uuid.New().String()
	rec.Parameters = params
	rec.CreatedAt = s.clock.Now().UTC()

	if _, err := s.store.SavePrediction(ctx, rec); err != nil {
		s.metrics.StoreErrors.WithLabelValues("save_prediction").Inc()
		s.logger.Error("store prediction failed", "error", err, "prediction_id", rec.ID)
	}
	if s.queue != nil && !s.queue.Enqueue(rec) {
		s.metrics.EventsDropped.Inc()
		s.logger.Warn("publish queue full, dropping prediction event", "prediction_id", rec.ID)
	}

	s.metrics.Predictions.WithLabelValues(string(rec.Source), rec.Level.String()).Inc()
	return rec, nil
}

func (s *Service) predict(ctx context.Context, params domain.BlastParameters) (domain.PredictionRecord, error) {
	if s.remote != nil {
		rec, err := s.predictRemote(ctx, params)
		if err == nil {
			return rec, nil
		}
		if !s.fallback {
			return domain.PredictionRecord{}, fmt.Errorf("%w: %w", ErrPredictorUnavailable, err)
		}
		s.metrics.FallbackUsed.Inc()
		s.logger.Warn("remote prediction failed, using local estimator", "error", err, "mine", params.SelectedMine)
	}
	return s.predictLocal(params)
}

func (s *Service) predictRemote(ctx context.Context, params domain.BlastParameters) (domain.PredictionRecord, error) {
	r, err := s.remote.Predict(ctx, params)
	if err != nil {
		return domain.PredictionRecord{}, err
	}
	a, err := s.estimator.ClassifyDamage(r.PredictedPPV)
	if err != nil {
		// A bad value from the model is an upstream fault, not caller input.
		return domain.PredictionRecord{}, fmt.Errorf("classify remote prediction: %v", err)
	}
	sd := r.PredictedSD
	if sd <= 0 {
		if sd, err = domain.ScaledDistance(params.Distance, params.MaxChargeWeight); err != nil {
			return domain.PredictionRecord{}, err
		}
	}
	return domain.PredictionRecord{
		PredictedPPV:   a.PPV,
		ScaledDistance: sd,
		Level:          a.Level,
		Description:    a.Description,
		Source:         domain.SourceRemote,
	}, nil
}

func (s *Service) predictLocal(params domain.BlastParameters) (domain.PredictionRecord, error) {
	p, err := s.estimator.PredictImpact(params.BlastInput())
	if err != nil {
		return domain.PredictionRecord{}, err
	}
	return domain.PredictionRecord{
		PredictedPPV:   p.PPV,
		ScaledDistance: p.ScaledDistance,
		Level:          p.Level,
		Description:    p.Description,
		Source:         domain.SourceLocal,
	}, nil
}

// SaveMeasurement validates and stores a field reading, stamping it with the
// current time.
func (s *Service) SaveMeasurement(ctx context.Context, m domain.Measurement) (domain.Measurement, error) {
	if err := m.Validate(); err != nil {
		s.metrics.InvalidInputs.Inc()
		return domain.Measurement{}, err
	}
	m.ID = ""
	m.RecordedAt = s.clock.Now().UTC()

	saved, err := s.store.SaveMeasurement(ctx, m)
	if err != nil {
		s.metrics.StoreErrors.WithLabelValues("save_measurement").Inc()
		return domain.Measurement{}, fmt.Errorf("save measurement: %w", err)
	}
	s.metrics.Measurements.Inc()
	s.logger.Info("measurement saved", "id", saved.ID, "mine", saved.Mine)
	return saved, nil
}

// History returns the measurements recorded for a mine, oldest first.
func (s *Service) History(ctx context.Context, mine string) ([]domain.Measurement, error) {
	if strings.TrimSpace(mine) == "" {
		return nil, &domain.InvalidInputError{Field: "mine", Reason: "Mine name is required"}
	}
	ms, err := s.store.ListMeasurements(ctx, mine)
	if err != nil {
		s.metrics.StoreErrors.WithLabelValues("list_measurements").Inc()
		return nil, fmt.Errorf("list measurements: %w", err)
	}
	return ms, nil
}

// DeleteMeasurement removes a stored measurement. Unknown IDs yield an error
// wrapping domain.ErrNotFound.
func (s *Service) DeleteMeasurement(ctx context.Context, id string) error {
	if err := s.store.DeleteMeasurement(ctx, id); err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			s.metrics.StoreErrors.WithLabelValues("delete_measurement").Inc()
		}
		return fmt.Errorf("delete measurement: %w", err)
	}
	s.logger.Info("measurement deleted", "id", id)
	return nil
}

// Predictions lists stored predictions, newest first.
func (s *Service) Predictions(ctx context.Context, mine string, limit int) ([]domain.PredictionRecord, error) {
	recs, err := s.store.ListPredictions(ctx, mine, limit)
	if err != nil {
		s.metrics.StoreErrors.WithLabelValues("list_predictions").Inc()
		return nil, fmt.Errorf("list predictions: %w", err)
	}
	return recs, nil
}

// Calibrate fits site constants to the measurements of a mine that carry a
// distance and charge weight.
func (s *Service) Calibrate(ctx context.Context, mine string) (domain.SiteFit, error) {
	ms, err := s.History(ctx, mine)
	if err != nil {
		return domain.SiteFit{}, err
	}
	samples := make([]domain.Sample, 0, len(ms))
	for _, m := range ms {
		if sample, ok := m.Sample(); ok {
			samples = append(samples, sample)
		}
	}
	fit, err := domain.FitSiteLaw(samples)
	if err != nil {
		return domain.SiteFit{}, fmt.Errorf("calibrate %s: %w", mine, err)
	}
	return fit, nil
}
