package http

import (
	"net/http"

	sharedobs "github.com/couchcryptid/storm-data-shared/observability"

	"github.com/couchcryptid/blast-vibration-service/internal/domain"
)

type saveMeasurementResponse struct {
	Message    string `json:"message"`
	InsertedID string `json:"inserted_id"`
}

type historyResponse struct {
	Success bool                 `json:"success"`
	Data    []domain.Measurement `json:"data"`
}

func (a *API) handleSaveMeasurement(w http.ResponseWriter, r *http.Request) {
	var m domain.Measurement
	if err := decodeJSON(w, r, &m); err != nil {
		a.writeError(w, r, err)
		return
	}
	saved, err := a.predictions.SaveMeasurement(r.Context(), m)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	sharedobs.WriteJSON(w, http.StatusCreated, saveMeasurementResponse{
		Message:    "Measurement saved successfully",
		InsertedID: saved.ID,
	})
}

func (a *API) handleHistory(w http.ResponseWriter, r *http.Request) {
	ms, err := a.predictions.History(r.Context(), r.URL.Query().Get("mine"))
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	sharedobs.WriteJSON(w, http.StatusOK, historyResponse{Success: true, Data: ms})
}

func (a *API) handleDeleteMeasurement(w http.ResponseWriter, r *http.Request) {
	if err := a.predictions.DeleteMeasurement(r.Context(), r.PathValue("id")); err != nil {
		a.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
