package prediction

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/blast-vibration-service/internal/domain"
	"github.com/couchcryptid/blast-vibration-service/internal/observability"
)

// --- fakes ---

type memStore struct {
	mu           sync.Mutex
	predictions  []domain.PredictionRecord
	measurements []domain.Measurement
	failSave     bool
	nextID       int
}

func (s *memStore) SavePrediction(_ context.Context, rec domain.PredictionRecord) (domain.PredictionRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failSave {
		return domain.PredictionRecord{}, errors.New("disk full")
	}
	s.predictions = append(s.predictions, rec)
	return rec, nil
}

func (s *memStore) ListPredictions(_ context.Context, mine string, limit int) ([]domain.PredictionRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.PredictionRecord
	for _, rec := range s.predictions {
		if mine == "" || rec.Parameters.SelectedMine == mine {
			out = append(out, rec)
		}
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *memStore) SaveMeasurement(_ context.Context, m domain.Measurement) (domain.Measurement, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failSave {
		return domain.Measurement{}, errors.New("disk full")
	}
	s.nextID++
	m.ID = fmt.Sprintf("m-%d", s.nextID)
	s.measurements = append(s.measurements, m)
	return m, nil
}

func (s *memStore) ListMeasurements(_ context.Context, mine string) ([]domain.Measurement, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []domain.Measurement{}
	for _, m := range s.measurements {
		if m.Mine == mine {
			out = append(out, m)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].RecordedAt.Before(out[j].RecordedAt) })
	return out, nil
}

func (s *memStore) DeleteMeasurement(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, m := range s.measurements {
		if m.ID == id {
			s.measurements = append(s.measurements[:i], s.measurements[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("measurement %s: %w", id, domain.ErrNotFound)
}

type stubRemote struct {
	resp  domain.RemotePrediction
	err   error
	calls int
}

func (r *stubRemote) Predict(_ context.Context, _ domain.BlastParameters) (domain.RemotePrediction, error) {
	r.calls++
	return r.resp, r.err
}

type recordingQueue struct {
	full bool
	recs []domain.PredictionRecord
}

func (q *recordingQueue) Enqueue(rec domain.PredictionRecord) bool {
	if q.full {
		return false
	}
	q.recs = append(q.recs, rec)
	return true
}

var testNow = time.Date(2024, 3, 14, 9, 30, 0, 0, time.UTC)

type fixture struct {
	svc     *Service
	store   *memStore
	queue   *recordingQueue
	metrics *observability.Metrics
	clock   *clockwork.FakeClock
}

func newFixture(opts Options) *fixture {
	f := &fixture{
		store:   &memStore{},
		queue:   &recordingQueue{},
		metrics: observability.NewMetricsForTesting(),
		clock:   clockwork.NewFakeClockAt(testNow),
	}
	opts.Clock = f.clock
	if opts.Queue == nil {
		opts.Queue = f.queue
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	f.svc = NewService(domain.NewEstimator(domain.DefaultSiteTable()), f.store, logger, f.metrics, opts)
	return f
}

func params(distance, charge float64) domain.BlastParameters {
	return domain.BlastParameters{SelectedMine: "Jayanta OCP", Distance: distance, MaxChargeWeight: charge}
}

// --- Predict ---

func TestPredict_Local(t *testing.T) {
	f := newFixture(Options{})

	rec, err := f.svc.Predict(context.Background(), params(100, 100))
	require.NoError(t, err)

	assert.NotEmpty(t, rec.ID)
	assert.InDelta(t, 27.63, rec.PredictedPPV, 1e-9)
	assert.InDelta(t, 10.0, rec.ScaledDistance, 1e-9)
	assert.Equal(t, domain.DamageModerate, rec.Level)
	assert.Equal(t, domain.SourceLocal, rec.Source)
	assert.Equal(t, testNow, rec.CreatedAt)
	assert.Equal(t, params(100, 100), rec.Parameters)

	require.Len(t, f.store.predictions, 1)
	assert.Equal(t, rec, f.store.predictions[0])
	require.Len(t, f.queue.recs, 1)
	assert.Equal(t, rec.ID, f.queue.recs[0].ID)
	assert.InDelta(t, 1.0, testutil.ToFloat64(f.metrics.Predictions.WithLabelValues("local", "Moderate")), 1e-9)
}

func TestPredict_LocalAdvancedTiming(t *testing.T) {
	f := newFixture(Options{})
	p := params(100, 100)
	p.NumHoles = 25
	p.RowDelay = 25
	p.HoleDelay = 17

	rec, err := f.svc.Predict(context.Background(), p)
	require.NoError(t, err)
	assert.InDelta(t, 29.99, rec.PredictedPPV, 1e-9)
}

func TestPredict_InvalidInput(t *testing.T) {
	tests := []struct {
		name   string
		params domain.BlastParameters
	}{
		{"zero distance", params(0, 100)},
		{"negative charge", params(100, -5)},
		{"zero combined delay", domain.BlastParameters{Distance: 100, MaxChargeWeight: 100, NumHoles: 10}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(Options{})
			_, err := f.svc.Predict(context.Background(), tt.params)
			require.Error(t, err)
			assert.True(t, domain.IsInvalidInput(err))
			assert.Empty(t, f.store.predictions)
			assert.InDelta(t, 1.0, testutil.ToFloat64(f.metrics.InvalidInputs), 1e-9)
		})
	}
}

func TestPredict_Remote(t *testing.T) {
	remote := &stubRemote{resp: domain.RemotePrediction{PredictedPPV: 12.5, PredictedSD: 9.5}}
	f := newFixture(Options{Remote: remote})

	rec, err := f.svc.Predict(context.Background(), params(100, 100))
	require.NoError(t, err)

	assert.Equal(t, domain.SourceRemote, rec.Source)
	assert.InDelta(t, 12.5, rec.PredictedPPV, 1e-9)
	assert.InDelta(t, 9.5, rec.ScaledDistance, 1e-9)
	assert.Equal(t, domain.DamageMinor, rec.Level)
	assert.Equal(t, 1, remote.calls)
}

func TestPredict_RemoteWithoutScaledDistance(t *testing.T) {
	remote := &stubRemote{resp: domain.RemotePrediction{PredictedPPV: 4}}
	f := newFixture(Options{Remote: remote})

	rec, err := f.svc.Predict(context.Background(), params(350, 49))
	require.NoError(t, err)
	assert.InDelta(t, 50.0, rec.ScaledDistance, 1e-9)
}

func TestPredict_RemoteFailureFallsBack(t *testing.T) {
	remote := &stubRemote{err: errors.New("connection refused")}
	f := newFixture(Options{Remote: remote, Fallback: true})

	rec, err := f.svc.Predict(context.Background(), params(100, 100))
	require.NoError(t, err)
	assert.Equal(t, domain.SourceLocal, rec.Source)
	assert.InDelta(t, 27.63, rec.PredictedPPV, 1e-9)
	assert.InDelta(t, 1.0, testutil.ToFloat64(f.metrics.FallbackUsed), 1e-9)
}

func TestPredict_RemoteFailureWithoutFallback(t *testing.T) {
	remote := &stubRemote{err: errors.New("connection refused")}
	f := newFixture(Options{Remote: remote})

	_, err := f.svc.Predict(context.Background(), params(100, 100))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrPredictorUnavailable)
	assert.Contains(t, err.Error(), "connection refused")
	assert.Empty(t, f.store.predictions)
}

func TestPredict_RemoteInvalidValueIsUpstreamFault(t *testing.T) {
	remote := &stubRemote{resp: domain.RemotePrediction{PredictedPPV: -4}}
	f := newFixture(Options{Remote: remote})

	_, err := f.svc.Predict(context.Background(), params(100, 100))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrPredictorUnavailable)
	assert.False(t, domain.IsInvalidInput(err))
	assert.InDelta(t, 0.0, testutil.ToFloat64(f.metrics.InvalidInputs), 1e-9)

	f = newFixture(Options{Remote: remote, Fallback: true})
	rec, err := f.svc.Predict(context.Background(), params(100, 100))
	require.NoError(t, err)
	assert.Equal(t, domain.SourceLocal, rec.Source)
}

func TestPredict_StoreFailureIsNotFatal(t *testing.T) {
	f := newFixture(Options{})
	f.store.failSave = true

	rec, err := f.svc.Predict(context.Background(), params(100, 100))
	require.NoError(t, err)
	assert.NotEmpty(t, rec.ID)
	assert.Len(t, f.queue.recs, 1)
	assert.InDelta(t, 1.0, testutil.ToFloat64(f.metrics.StoreErrors.WithLabelValues("save_prediction")), 1e-9)
}

func TestPredict_FullQueueDropsEvent(t *testing.T) {
	q := &recordingQueue{full: true}
	f := newFixture(Options{Queue: q})

	_, err := f.svc.Predict(context.Background(), params(100, 100))
	require.NoError(t, err)
	assert.Len(t, f.store.predictions, 1)
	assert.InDelta(t, 1.0, testutil.ToFloat64(f.metrics.EventsDropped), 1e-9)
}

// --- measurements ---

func measurement(mine string, ppv float64) domain.Measurement {
	return domain.Measurement{
		Mine:        mine,
		Date:        "2024-03-14",
		Time:        "09:30",
		Location:    "Village school",
		MeasuredPPV: ppv,
	}
}

func TestSaveMeasurement(t *testing.T) {
	f := newFixture(Options{})
	m := measurement("Khadia OCP", 4.2)
	m.ID = "client-supplied"

	saved, err := f.svc.SaveMeasurement(context.Background(), m)
	require.NoError(t, err)
	assert.Equal(t, "m-1", saved.ID)
	assert.Equal(t, testNow, saved.RecordedAt)
	assert.InDelta(t, 1.0, testutil.ToFloat64(f.metrics.Measurements), 1e-9)
}

func TestSaveMeasurement_MissingField(t *testing.T) {
	f := newFixture(Options{})
	m := measurement("Khadia OCP", 4.2)
	m.Location = ""

	_, err := f.svc.SaveMeasurement(context.Background(), m)
	var invalid *domain.InvalidInputError
	require.ErrorAs(t, err, &invalid)
	assert.Equal(t, "Missing required field: location", invalid.Reason)
	assert.Empty(t, f.store.measurements)
}

func TestSaveMeasurement_StoreError(t *testing.T) {
	f := newFixture(Options{})
	f.store.failSave = true

	_, err := f.svc.SaveMeasurement(context.Background(), measurement("Khadia OCP", 4.2))
	require.Error(t, err)
	assert.False(t, domain.IsInvalidInput(err))
}

func TestHistory(t *testing.T) {
	f := newFixture(Options{})
	ctx := context.Background()

	_, err := f.svc.SaveMeasurement(ctx, measurement("Khadia OCP", 1))
	require.NoError(t, err)
	f.clock.Advance(time.Hour)
	_, err = f.svc.SaveMeasurement(ctx, measurement("Khadia OCP", 2))
	require.NoError(t, err)
	_, err = f.svc.SaveMeasurement(ctx, measurement("Beena OCP", 3))
	require.NoError(t, err)

	got, err := f.svc.History(ctx, "Khadia OCP")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.InDelta(t, 1.0, got[0].MeasuredPPV, 1e-9)
	assert.Equal(t, testNow.Add(time.Hour), got[1].RecordedAt)

	_, err = f.svc.History(ctx, "  ")
	assert.True(t, domain.IsInvalidInput(err))
}

func TestDeleteMeasurement(t *testing.T) {
	f := newFixture(Options{})
	ctx := context.Background()
	saved, err := f.svc.SaveMeasurement(ctx, measurement("Khadia OCP", 1))
	require.NoError(t, err)

	require.NoError(t, f.svc.DeleteMeasurement(ctx, saved.ID))

	err = f.svc.DeleteMeasurement(ctx, saved.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestPredictions(t *testing.T) {
	f := newFixture(Options{})
	ctx := context.Background()
	for _, d := range []float64{100, 200, 300} {
		_, err := f.svc.Predict(ctx, params(d, 100))
		require.NoError(t, err)
	}

	got, err := f.svc.Predictions(ctx, "Jayanta OCP", 2)
	require.NoError(t, err)
	assert.Len(t, got, 2)

	got, err = f.svc.Predictions(ctx, "Beena OCP", 0)
	require.NoError(t, err)
	assert.Empty(t, got)
}

// --- calibration ---

func TestCalibrate(t *testing.T) {
	f := newFixture(Options{})
	ctx := context.Background()
	est := f.svc.Estimator()

	for _, d := range []float64{80, 150, 300, 600} {
		ppv, err := est.CalculatePPV("Khadia OCP", d, 120)
		require.NoError(t, err)
		m := measurement("Khadia OCP", ppv)
		m.DistanceFromBlast = d
		m.ChargeWeight = 120
		_, err = f.svc.SaveMeasurement(ctx, m)
		require.NoError(t, err)
	}
	// Readings without geometry are ignored.
	_, err := f.svc.SaveMeasurement(ctx, measurement("Khadia OCP", 99))
	require.NoError(t, err)

	fit, err := f.svc.Calibrate(ctx, "Khadia OCP")
	require.NoError(t, err)
	assert.Equal(t, 4, fit.Samples)
	assert.InDelta(t, -1.5, fit.Constants.B, 0.01)
	assert.InDelta(t, 950, fit.Constants.K, 15)
	assert.Greater(t, fit.R2, 0.99)
}

func TestCalibrate_NotEnoughSamples(t *testing.T) {
	f := newFixture(Options{})
	m := measurement("Beena OCP", 5)
	m.DistanceFromBlast = 200
	m.ChargeWeight = 100
	_, err := f.svc.SaveMeasurement(context.Background(), m)
	require.NoError(t, err)

	_, err = f.svc.Calibrate(context.Background(), "Beena OCP")
	require.Error(t, err)
	assert.True(t, domain.IsInvalidInput(err))
}
