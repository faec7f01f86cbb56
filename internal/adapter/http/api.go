// Package http serves the blast vibration REST API.
package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	sharedobs "github.com/couchcryptid/storm-data-shared/observability"

	"github.com/couchcryptid/blast-vibration-service/internal/domain"
	"github.com/couchcryptid/blast-vibration-service/internal/mine"
	"github.com/couchcryptid/blast-vibration-service/internal/prediction"
)

const maxBodyBytes = 1 << 20

// PredictionService is the application layer behind the prediction and
// measurement routes.
type PredictionService interface {
	Estimator() *domain.Estimator
	Predict(ctx context.Context, params domain.BlastParameters) (domain.PredictionRecord, error)
	SaveMeasurement(ctx context.Context, m domain.Measurement) (domain.Measurement, error)
	History(ctx context.Context, mine string) ([]domain.Measurement, error)
	DeleteMeasurement(ctx context.Context, id string) error
	Predictions(ctx context.Context, mine string, limit int) ([]domain.PredictionRecord, error)
	Calibrate(ctx context.Context, mine string) (domain.SiteFit, error)
}

// MineRegistry manages the mines listed in the admin area.
type MineRegistry interface {
	List() []domain.Mine
	Get(id int) (domain.Mine, error)
	Create(m domain.Mine) (domain.Mine, error)
	Update(id int, m domain.Mine) (domain.Mine, error)
	Delete(id int) error
}

// API holds the handlers of the REST routes.
type API struct {
	predictions PredictionService
	mines       MineRegistry
	logger      *slog.Logger
}

// NewAPI creates the route handlers.
func NewAPI(predictions PredictionService, mines MineRegistry, logger *slog.Logger) *API {
	return &API{predictions: predictions, mines: mines, logger: logger}
}

func (a *API) register(mux *http.ServeMux) {
	mux.HandleFunc("POST /predict", a.handlePredict)
	mux.HandleFunc("POST /estimate", a.handleEstimate)
	mux.HandleFunc("POST /classify", a.handleClassify)
	mux.HandleFunc("GET /sites", a.handleSites)
	mux.HandleFunc("GET /damage-categories", a.handleDamageCategories)

	mux.HandleFunc("POST /save-measurement", a.handleSaveMeasurement)
	mux.HandleFunc("GET /get-blast-history", a.handleHistory)
	mux.HandleFunc("DELETE /measurements/{id}", a.handleDeleteMeasurement)
	mux.HandleFunc("GET /predictions", a.handlePredictions)
	mux.HandleFunc("GET /calibration", a.handleCalibration)

	mux.HandleFunc("GET /mines", a.handleListMines)
	mux.HandleFunc("POST /mines", a.handleCreateMine)
	mux.HandleFunc("GET /mines/{id}", a.handleGetMine)
	mux.HandleFunc("PUT /mines/{id}", a.handleUpdateMine)
	mux.HandleFunc("DELETE /mines/{id}", a.handleDeleteMine)
}

type errorResponse struct {
	Error string `json:"error"`
}

// decodeJSON reads a JSON request body into v.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return &domain.InvalidInputError{Field: "body", Reason: fmt.Sprintf("malformed JSON: %v", err)}
	}
	return nil
}

// writeError maps err to a status code and a JSON error body.
func (a *API) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var invalid *domain.InvalidInputError
	switch {
	case errors.As(err, &invalid):
		msg := err.Error()
		if invalid.Value == nil {
			// Missing-value errors read best as their reason alone.
			msg = invalid.Reason
		}
		sharedobs.WriteJSON(w, http.StatusBadRequest, errorResponse{Error: msg})
	case errors.Is(err, domain.ErrNotFound):
		sharedobs.WriteJSON(w, http.StatusNotFound, errorResponse{Error: err.Error()})
	case errors.Is(err, mine.ErrDuplicate):
		sharedobs.WriteJSON(w, http.StatusConflict, errorResponse{Error: err.Error()})
	case errors.Is(err, prediction.ErrPredictorUnavailable):
		a.logger.Warn("prediction model unavailable", "error", err, "path", r.URL.Path)
		sharedobs.WriteJSON(w, http.StatusBadGateway, errorResponse{Error: err.Error()})
	default:
		a.logger.Error("request failed", "error", err, "method", r.Method, "path", r.URL.Path)
		sharedobs.WriteJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal server error"})
	}
}
