package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/blast-vibration-service/internal/domain"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	st, err := Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() }) //nolint:errcheck
	require.NoError(t, st.Migrate(context.Background()))
	return st
}

func ptr[T any](v T) *T { return &v }

func testMeasurement(mine string, at time.Time) domain.Measurement {
	return domain.Measurement{
		Mine:              mine,
		Date:              "2023-10-15",
		Time:              "14:30",
		Location:          "North Face, Block A",
		MeasuredPPV:       12.5,
		Notes:             "clear day",
		DistanceFromBlast: 350,
		ChargeWeight:      85,
		BlastGeometry: domain.BlastGeometry{
			Burden:        ptr(3.5),
			Spacing:       ptr(4.2),
			ExplosiveType: ptr("ANFO"),
		},
		RecordedAt: at,
	}
}

func TestStore_MeasurementRoundTrip(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()
	at := time.Date(2023, 10, 15, 14, 35, 0, 0, time.UTC)

	saved, err := st.SaveMeasurement(ctx, testMeasurement("Jayanta OCP", at))
	require.NoError(t, err)
	require.NotEmpty(t, saved.ID)

	got, err := st.ListMeasurements(ctx, "Jayanta OCP")
	require.NoError(t, err)
	require.Len(t, got, 1)
	if diff := cmp.Diff(saved, got[0]); diff != "" {
		t.Errorf("measurement mismatch (-want +got):\n%s", diff)
	}
}

func TestStore_ListMeasurementsFiltersAndOrders(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()
	base := time.Date(2023, 10, 15, 0, 0, 0, 0, time.UTC)

	_, err := st.SaveMeasurement(ctx, testMeasurement("Jayanta OCP", base.Add(2*time.Hour)))
	require.NoError(t, err)
	_, err = st.SaveMeasurement(ctx, testMeasurement("Khadia OCP", base.Add(time.Hour)))
	require.NoError(t, err)
	_, err = st.SaveMeasurement(ctx, testMeasurement("Jayanta OCP", base))
	require.NoError(t, err)

	got, err := st.ListMeasurements(ctx, "Jayanta OCP")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.True(t, got[0].RecordedAt.Before(got[1].RecordedAt))

	none, err := st.ListMeasurements(ctx, "Beena OCP")
	require.NoError(t, err)
	assert.NotNil(t, none)
	assert.Empty(t, none)
}

func TestStore_DeleteMeasurement(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	saved, err := st.SaveMeasurement(ctx, testMeasurement("Jayanta OCP", time.Now()))
	require.NoError(t, err)

	require.NoError(t, st.DeleteMeasurement(ctx, saved.ID))
	require.ErrorIs(t, st.DeleteMeasurement(ctx, saved.ID), ErrNotFound)

	got, err := st.ListMeasurements(ctx, "Jayanta OCP")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestStore_Predictions(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()
	base := time.Date(2024, 1, 2, 8, 0, 0, 0, time.UTC)

	for i, mine := range []string{"Jayanta OCP", "Khadia OCP", "Jayanta OCP"} {
		_, err := st.SavePrediction(ctx, domain.PredictionRecord{
			Parameters:     domain.BlastParameters{SelectedMine: mine, Distance: 350, MaxChargeWeight: 85, Burden: 3.5},
			PredictedPPV:   3.27 + float64(i),
			ScaledDistance: 37.96,
			Level:          domain.DamageNone,
			Description:    domain.DamageNone.Description(),
			Source:         domain.SourceLocal,
			CreatedAt:      base.Add(time.Duration(i) * time.Minute),
		})
		require.NoError(t, err)
	}

	all, err := st.ListPredictions(ctx, "", 0)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	jayanta, err := st.ListPredictions(ctx, "Jayanta OCP", 10)
	require.NoError(t, err)
	require.Len(t, jayanta, 2)
	assert.InDelta(t, 5.27, jayanta[0].PredictedPPV, 1e-9, "newest first")
	assert.Equal(t, domain.SourceLocal, jayanta[0].Source)
	assert.Equal(t, domain.DamageNone, jayanta[0].Level)
	assert.InDelta(t, 3.5, jayanta[0].Parameters.Burden, 1e-9)
	assert.Equal(t, base.Add(2*time.Minute), jayanta[0].CreatedAt)

	limited, err := st.ListPredictions(ctx, "", 1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}

func TestStore_CheckReadiness(t *testing.T) {
	st := newTestStore(t)
	require.NoError(t, st.CheckReadiness(context.Background()))

	require.NoError(t, st.Close())
	require.Error(t, st.CheckReadiness(context.Background()))
}
