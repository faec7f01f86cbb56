package http

import (
	"net/http"
	"strconv"

	sharedobs "github.com/couchcryptid/storm-data-shared/observability"

	"github.com/couchcryptid/blast-vibration-service/internal/domain"
)

type predictResponse struct {
	ID           string                  `json:"id"`
	PredictedPPV float64                 `json:"predicted_ppv"`
	PredictedSD  float64                 `json:"predicted_sd"`
	DamageLevel  domain.DamageLevel      `json:"damage_level"`
	Description  string                  `json:"description"`
	Source       domain.PredictionSource `json:"source"`
}

func (a *API) handlePredict(w http.ResponseWriter, r *http.Request) {
	var params domain.BlastParameters
	if err := decodeJSON(w, r, &params); err != nil {
		a.writeError(w, r, err)
		return
	}
	rec, err := a.predictions.Predict(r.Context(), params)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	sharedobs.WriteJSON(w, http.StatusOK, predictResponse{
		ID:           rec.ID,
		PredictedPPV: rec.PredictedPPV,
		PredictedSD:  rec.ScaledDistance,
		DamageLevel:  rec.Level,
		Description:  rec.Description,
		Source:       rec.Source,
	})
}

func (a *API) handleEstimate(w http.ResponseWriter, r *http.Request) {
	var in domain.BlastInput
	if err := decodeJSON(w, r, &in); err != nil {
		a.writeError(w, r, err)
		return
	}
	pred, err := a.predictions.Estimator().PredictImpact(in)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	sharedobs.WriteJSON(w, http.StatusOK, pred)
}

type classifyRequest struct {
	PPV *float64 `json:"ppv"`
}

func (a *API) handleClassify(w http.ResponseWriter, r *http.Request) {
	var req classifyRequest
	if err := decodeJSON(w, r, &req); err != nil {
		a.writeError(w, r, err)
		return
	}
	if req.PPV == nil {
		a.writeError(w, r, &domain.InvalidInputError{Field: "ppv", Reason: "Missing required field: ppv"})
		return
	}
	assessment, err := a.predictions.Estimator().ClassifyDamage(*req.PPV)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	sharedobs.WriteJSON(w, http.StatusOK, assessment)
}

type sitesResponse struct {
	Sites   map[string]domain.SiteConstants `json:"sites"`
	Default domain.SiteConstants            `json:"default"`
}

func (a *API) handleSites(w http.ResponseWriter, _ *http.Request) {
	table := a.predictions.Estimator().Sites()
	resp := sitesResponse{
		Sites:   make(map[string]domain.SiteConstants, table.Len()),
		Default: domain.DefaultSiteConstants,
	}
	for _, name := range table.Names() {
		resp.Sites[name], _ = table.Lookup(name)
	}
	sharedobs.WriteJSON(w, http.StatusOK, resp)
}

func (a *API) handleDamageCategories(w http.ResponseWriter, _ *http.Request) {
	sharedobs.WriteJSON(w, http.StatusOK, domain.DamageCategories())
}

func (a *API) handlePredictions(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if s := r.URL.Query().Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 0 {
			a.writeError(w, r, &domain.InvalidInputError{Field: "limit", Value: s, Reason: "must be a non-negative integer"})
			return
		}
		limit = n
	}
	recs, err := a.predictions.Predictions(r.Context(), r.URL.Query().Get("mine"), limit)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	sharedobs.WriteJSON(w, http.StatusOK, recs)
}

func (a *API) handleCalibration(w http.ResponseWriter, r *http.Request) {
	fit, err := a.predictions.Calibrate(r.Context(), r.URL.Query().Get("mine"))
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	sharedobs.WriteJSON(w, http.StatusOK, fit)
}
