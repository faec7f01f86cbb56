// Package sqlite persists field measurements and predictions in SQLite.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/couchcryptid/blast-vibration-service/internal/domain"
)

// ErrNotFound is returned when a record does not exist.
var ErrNotFound = fmt.Errorf("record %w", domain.ErrNotFound)

// timeLayout is fixed-width so stored timestamps sort lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

// Store implements measurement and prediction persistence using modernc.org/sqlite.
type Store struct {
	db *sql.DB
}

// Open opens a SQLite database at dsn and configures WAL mode.
func Open(dsn string) (*Store, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	// A single connection keeps :memory: databases coherent and serialises writers.
	db.SetMaxOpenConns(1)
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &Store{db: db}, nil
}

const migration = `
CREATE TABLE IF NOT EXISTS measurements (
	id            TEXT PRIMARY KEY,
	mine          TEXT NOT NULL,
	date          TEXT NOT NULL,
	time          TEXT NOT NULL,
	location      TEXT NOT NULL,
	measured_ppv  REAL NOT NULL,
	notes         TEXT NOT NULL DEFAULT '',
	distance      REAL NOT NULL DEFAULT 0,
	charge_weight REAL NOT NULL DEFAULT 0,
	geometry      TEXT NOT NULL DEFAULT '{}',
	recorded_at   TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS predictions (
	id              TEXT PRIMARY KEY,
	mine            TEXT NOT NULL,
	parameters      TEXT NOT NULL,
	predicted_ppv   REAL NOT NULL,
	scaled_distance REAL NOT NULL,
	damage_level    TEXT NOT NULL,
	description     TEXT NOT NULL,
	source          TEXT NOT NULL,
	created_at      TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_measurements_mine ON measurements(mine, recorded_at);
CREATE INDEX IF NOT EXISTS idx_predictions_mine ON predictions(mine, created_at);
`

// Migrate creates the schema if it does not exist.
func (s *Store) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, migration)
	return eris.Wrap(err, "sqlite: migrate")
}

// Close releases the database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// CheckReadiness pings the database.
func (s *Store) CheckReadiness(ctx context.Context) error {
	return eris.Wrap(s.db.PingContext(ctx), "sqlite: ping")
}

// SaveMeasurement stores m and returns it with an ID assigned.
func (s *Store) SaveMeasurement(ctx context.Context, m domain.Measurement) (domain.Measurement, error) {
	if m.ID == "" {
		m.ID = uuid.New().String()
	}
	geometry, err := json.Marshal(m.BlastGeometry)
	if err != nil {
		return domain.Measurement{}, eris.Wrap(err, "sqlite: marshal geometry")
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO measurements (id, mine, date, time, location, measured_ppv, notes, distance, charge_weight, geometry, recorded_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		m.ID, m.Mine, m.Date, m.Time, m.Location, m.MeasuredPPV, m.Notes,
		m.DistanceFromBlast, m.ChargeWeight, string(geometry), m.RecordedAt.UTC().Format(timeLayout),
	)
	if err != nil {
		return domain.Measurement{}, eris.Wrap(err, "sqlite: insert measurement")
	}
	return m, nil
}

// ListMeasurements returns the measurements for mine, oldest first.
func (s *Store) ListMeasurements(ctx context.Context, mine string) ([]domain.Measurement, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, mine, date, time, location, measured_ppv, notes, distance, charge_weight, geometry, recorded_at
		 FROM measurements WHERE mine = ? ORDER BY recorded_at, id`,
		mine,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: query measurements")
	}
	defer rows.Close()

	out := []domain.Measurement{}
	for rows.Next() {
		var (
			m          domain.Measurement
			geometry   string
			recordedAt string
		)
		if err := rows.Scan(&m.ID, &m.Mine, &m.Date, &m.Time, &m.Location, &m.MeasuredPPV, &m.Notes,
			&m.DistanceFromBlast, &m.ChargeWeight, &geometry, &recordedAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan measurement")
		}
		if err := json.Unmarshal([]byte(geometry), &m.BlastGeometry); err != nil {
			return nil, eris.Wrapf(err, "sqlite: unmarshal geometry %s", m.ID)
		}
		if m.RecordedAt, err = time.Parse(timeLayout, recordedAt); err != nil {
			return nil, eris.Wrapf(err, "sqlite: parse recorded_at %s", m.ID)
		}
		out = append(out, m)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: iterate measurements")
}

// DeleteMeasurement removes the measurement with the given ID.
func (s *Store) DeleteMeasurement(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM measurements WHERE id = ?`, id)
	if err != nil {
		return eris.Wrapf(err, "sqlite: delete measurement %s", id)
	}
	return checkRowsAffected(res, "measurement", id)
}

// SavePrediction stores a prediction record and returns it with an ID assigned.
func (s *Store) SavePrediction(ctx context.Context, rec domain.PredictionRecord) (domain.PredictionRecord, error) {
	if rec.ID == "" {
		rec.ID = uuid.New().String()
	}
	params, err := json.Marshal(rec.Parameters)
	if err != nil {
		return domain.PredictionRecord{}, eris.Wrap(err, "sqlite: marshal parameters")
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO predictions (id, mine, parameters, predicted_ppv, scaled_distance, damage_level, description, source, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.Parameters.SelectedMine, string(params), rec.PredictedPPV, rec.ScaledDistance,
		rec.Level.String(), rec.Description, string(rec.Source), rec.CreatedAt.UTC().Format(timeLayout),
	)
	if err != nil {
		return domain.PredictionRecord{}, eris.Wrap(err, "sqlite: insert prediction")
	}
	return rec, nil
}

// ListPredictions returns up to limit predictions, newest first. An empty
// mine matches every mine; a non-positive limit means no limit.
func (s *Store) ListPredictions(ctx context.Context, mine string, limit int) ([]domain.PredictionRecord, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, parameters, predicted_ppv, scaled_distance, damage_level, description, source, created_at
		 FROM predictions WHERE (? = '' OR mine = ?) ORDER BY created_at DESC, id LIMIT ?`,
		mine, mine, limit,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: query predictions")
	}
	defer rows.Close()

	out := []domain.PredictionRecord{}
	for rows.Next() {
		var (
			rec       domain.PredictionRecord
			params    string
			level     string
			source    string
			createdAt string
		)
		if err := rows.Scan(&rec.ID, &params, &rec.PredictedPPV, &rec.ScaledDistance, &level,
			&rec.Description, &source, &createdAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan prediction")
		}
		if err := json.Unmarshal([]byte(params), &rec.Parameters); err != nil {
			return nil, eris.Wrapf(err, "sqlite: unmarshal parameters %s", rec.ID)
		}
		if rec.Level, err = domain.ParseDamageLevel(level); err != nil {
			return nil, eris.Wrapf(err, "sqlite: parse damage level %s", rec.ID)
		}
		rec.Source = domain.PredictionSource(source)
		if rec.CreatedAt, err = time.Parse(timeLayout, createdAt); err != nil {
			return nil, eris.Wrapf(err, "sqlite: parse created_at %s", rec.ID)
		}
		out = append(out, rec)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: iterate predictions")
}

func checkRowsAffected(res sql.Result, kind, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrapf(err, "sqlite: rows affected for %s %s", kind, id)
	}
	if n == 0 {
		return eris.Wrapf(ErrNotFound, "sqlite: %s %s", kind, id)
	}
	return nil
}
