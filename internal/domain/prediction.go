package domain

import (
	"context"
	"time"
)

// BlastParameters is the blast design submitted for a prediction. Field names
// follow the JSON the prediction form and the remote model exchange.
type BlastParameters struct {
	SelectedMine      string  `json:"selectedMine"`
	Distance          float64 `json:"distance"`
	MaxChargeWeight   float64 `json:"maxChargeWeight"`
	Burden            float64 `json:"burden"`
	Spacing           float64 `json:"spacing"`
	Depth             float64 `json:"depth"`
	Stemming          float64 `json:"stemming"`
	TotalChargeLength float64 `json:"totalChargeLength"`
	ExplosivePerHole  float64 `json:"explosivePerHole"`
	TotalExplosive    float64 `json:"totalExplosive"`
	TotalRockBlasted  float64 `json:"totalRockBlasted"`
	PowderFactor      float64 `json:"powderFactor"`
	Frequency         float64 `json:"frequency"`

	// Used only by the local estimator.
	BuildingsPresent bool    `json:"buildingsPresent,omitempty"`
	NumHoles         int     `json:"numHoles,omitempty"`
	RowDelay         float64 `json:"rowDelay,omitempty"`
	HoleDelay        float64 `json:"holeDelay,omitempty"`
}

// Validate checks the two inputs every prediction needs.
func (p BlastParameters) Validate() error {
	if err := requirePositive("distance", p.Distance); err != nil {
		return err
	}
	return requirePositive("maxChargeWeight", p.MaxChargeWeight)
}

// BlastInput converts the parameters for the local estimator. Timing is set
// only when a hole count or a delay was supplied.
func (p BlastParameters) BlastInput() BlastInput {
	in := BlastInput{
		Site:             p.SelectedMine,
		Distance:         p.Distance,
		ChargePerDelay:   p.MaxChargeWeight,
		BuildingsPresent: p.BuildingsPresent,
	}
	if p.NumHoles != 0 || p.RowDelay != 0 || p.HoleDelay != 0 {
		in.Timing = &DelayTiming{
			NumHoles:    p.NumHoles,
			RowDelayMS:  p.RowDelay,
			HoleDelayMS: p.HoleDelay,
		}
	}
	return in
}

// RemotePrediction is the answer of the external prediction model.
type RemotePrediction struct {
	PredictedPPV float64 `json:"predicted_ppv"`
	PredictedSD  float64 `json:"predicted_sd"`
}

// RemotePredictor asks an external model for a PPV prediction.
type RemotePredictor interface {
	Predict(ctx context.Context, params BlastParameters) (RemotePrediction, error)
}

// PredictionSource records which model produced a prediction.
type PredictionSource string

const (
	SourceRemote PredictionSource = "remote"
	SourceLocal  PredictionSource = "local"
)

// PredictionRecord is a stored prediction together with its inputs.
type PredictionRecord struct {
	ID             string           `json:"id"`
	Parameters     BlastParameters  `json:"parameters"`
	PredictedPPV   float64          `json:"predicted_ppv"`
	ScaledDistance float64          `json:"predicted_sd"`
	Level          DamageLevel      `json:"damage_level"`
	Description    string           `json:"description"`
	Source         PredictionSource `json:"source"`
	CreatedAt      time.Time        `json:"created_at"`
}

// Mine is an operating site managed from the admin area.
type Mine struct {
	ID       int    `json:"id"`
	Name     string `json:"name"`
	Location string `json:"location"`
	Type     string `json:"type"`
}

// DefaultMines returns the mines the registry starts with.
func DefaultMines() []Mine {
	return []Mine{
		{ID: 1, Name: "Jayanta OCP", Location: "Eastern Region", Type: "Open Cast"},
		{ID: 2, Name: "Khadia OCP", Location: "Central Region", Type: "Open Cast"},
		{ID: 3, Name: "Beena OCP", Location: "Western Region", Type: "Open Cast"},
	}
}
