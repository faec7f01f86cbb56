package domain

import "math"

const (
	// buildingFactor inflates PPV when structures stand near the blast.
	buildingFactor = 1.2

	// delayReference and delayScale shape the timed-delay attenuation:
	// min(1, delayReference/(rowDelay+holeDelay) × delayScale).
	delayReference = 50.0
	delayScale     = 0.8

	// holeScale weights log10(numHoles) in the hole-count factor.
	holeScale = 0.1
)

// DelayTiming describes the initiation pattern of a multi-hole blast.
type DelayTiming struct {
	NumHoles    int     `json:"num_holes"`
	RowDelayMS  float64 `json:"row_delay_ms"`
	HoleDelayMS float64 `json:"hole_delay_ms"`
}

// BlastInput holds the parameters of a single blast prediction.
type BlastInput struct {
	Site             string       `json:"site"`
	Distance         float64      `json:"distance_m"`
	ChargePerDelay   float64      `json:"charge_per_delay_kg"`
	BuildingsPresent bool         `json:"buildings_present"`
	Timing           *DelayTiming `json:"timing,omitempty"`
}

// Prediction is the classified outcome of a blast prediction.
type Prediction struct {
	Site           string        `json:"site"`
	Constants      SiteConstants `json:"constants"`
	KnownSite      bool          `json:"known_site"`
	ScaledDistance float64       `json:"scaled_distance"`
	BasePPV        float64       `json:"base_ppv"`
	PPV            float64       `json:"ppv"`
	Level          DamageLevel   `json:"damage_level"`
	Description    string        `json:"description"`
}

// Estimator computes PPV estimates from a fixed site table.
type Estimator struct {
	sites SiteTable
}

// NewEstimator creates an Estimator bound to sites.
func NewEstimator(sites SiteTable) *Estimator {
	return &Estimator{sites: sites}
}

// Sites returns the table the estimator was built with.
func (e *Estimator) Sites() SiteTable { return e.sites }

// ScaledDistance returns distance / √chargeMass.
func ScaledDistance(distance, chargeMass float64) (float64, error) {
	if err := requirePositive("distance", distance); err != nil {
		return 0, err
	}
	if err := requirePositive("charge mass", chargeMass); err != nil {
		return 0, err
	}
	return distance / math.Sqrt(chargeMass), nil
}

// CalculatePPV applies the site's attenuation law and rounds to two decimals.
func (e *Estimator) CalculatePPV(site string, distance, chargeMass float64) (float64, error) {
	sd, err := ScaledDistance(distance, chargeMass)
	if err != nil {
		return 0, err
	}
	c, _ := e.sites.Lookup(site)
	return round2(c.K * math.Pow(sd, c.B)), nil
}

// ClassifyDamage classifies ppv. It exists on Estimator so callers holding
// one need no second dependency.
func (e *Estimator) ClassifyDamage(ppv float64) (Assessment, error) {
	return ClassifyDamage(ppv)
}

// PredictImpact estimates and classifies PPV for a blast. Without Timing the
// base PPV is only adjusted for buildings; with Timing the delay and hole
// factors apply too and the product is rounded to two decimals.
func (e *Estimator) PredictImpact(in BlastInput) (Prediction, error) {
	sd, err := ScaledDistance(in.Distance, in.ChargePerDelay)
	if err != nil {
		return Prediction{}, err
	}
	c, known := e.sites.Lookup(in.Site)
	base := round2(c.K * math.Pow(sd, c.B))

	bf := 1.0
	if in.BuildingsPresent {
		bf = buildingFactor
	}

	ppv := base * bf
	if in.Timing != nil {
		df, err := DelayFactor(in.Timing.RowDelayMS, in.Timing.HoleDelayMS)
		if err != nil {
			return Prediction{}, err
		}
		hf, err := HoleFactor(in.Timing.NumHoles)
		if err != nil {
			return Prediction{}, err
		}
		ppv = round2(base * df * hf * bf)
	}

	a, err := ClassifyDamage(ppv)
	if err != nil {
		return Prediction{}, err
	}

	return Prediction{
		Site:           in.Site,
		Constants:      c,
		KnownSite:      known,
		ScaledDistance: sd,
		BasePPV:        base,
		PPV:            a.PPV,
		Level:          a.Level,
		Description:    a.Description,
	}, nil
}

// DelayFactor approximates the attenuation gained from timed delays. A zero
// combined delay is rejected since the factor is undefined there.
func DelayFactor(rowDelayMS, holeDelayMS float64) (float64, error) {
	if err := requireNonNegative("row delay", rowDelayMS); err != nil {
		return 0, err
	}
	if err := requireNonNegative("hole delay", holeDelayMS); err != nil {
		return 0, err
	}
	total := rowDelayMS + holeDelayMS
	if total == 0 {
		return 0, invalidInput("combined delay", total, "row and hole delay must not both be zero")
	}
	return math.Min(1.0, delayReference/total*delayScale), nil
}

// HoleFactor grows vibration with the number of holes fired in the blast.
func HoleFactor(numHoles int) (float64, error) {
	if numHoles < 1 {
		return 0, invalidInput("hole count", numHoles, "must be at least 1")
	}
	return 1.0 + math.Log10(float64(numHoles))*holeScale, nil
}
