package domain

import (
	"strings"
	"time"
)

// BlastGeometry holds the optional drilling and initiation details recorded
// alongside a field measurement. Nil fields were not reported.
type BlastGeometry struct {
	DrillDiameter     *float64 `json:"drilldia,omitempty"`
	Bench             *float64 `json:"bench,omitempty"`
	Burden            *float64 `json:"burden,omitempty"`
	Spacing           *float64 `json:"spacing,omitempty"`
	Stemming          *float64 `json:"stemming,omitempty"`
	Subgrade          *float64 `json:"subgrade,omitempty"`
	HolesPerRow       *float64 `json:"holesperrow,omitempty"`
	Rows              *float64 `json:"noofrows,omitempty"`
	ExplosiveCharge   *float64 `json:"explosivecharge,omitempty"`
	ExplosiveType     *string  `json:"Explosivetype,omitempty"`
	DelayBetweenHoles *float64 `json:"Delaybetweenholes,omitempty"`
	DelayBetweenRows  *float64 `json:"Delaybetweenrows,omitempty"`
	Frequency         *float64 `json:"frequency,omitempty"`
}

// Measurement is a PPV reading taken in the field after a blast.
type Measurement struct {
	ID                string    `json:"id,omitempty"`
	Mine              string    `json:"mine"`
	Date              string    `json:"date"`
	Time              string    `json:"time"`
	Location          string    `json:"location"`
	MeasuredPPV       float64   `json:"measuredPPV"`
	Notes             string    `json:"notes,omitempty"`
	DistanceFromBlast float64   `json:"distancefromblast,omitempty"`
	ChargeWeight      float64   `json:"chargeWeight,omitempty"`
	RecordedAt        time.Time `json:"timestamp"`

	// Drilling fields travel at the top level of the JSON body.
	BlastGeometry
}

// Validate checks the fields every stored measurement must carry. The first
// missing field is reported.
func (m Measurement) Validate() error {
	required := []struct {
		name  string
		value string
	}{
		{"mine", m.Mine},
		{"date", m.Date},
		{"time", m.Time},
		{"location", m.Location},
	}
	for _, f := range required {
		if strings.TrimSpace(f.value) == "" {
			return &InvalidInputError{Field: f.name, Reason: "Missing required field: " + f.name}
		}
	}
	if m.MeasuredPPV == 0 {
		return &InvalidInputError{Field: "measuredPPV", Reason: "Missing required field: measuredPPV"}
	}
	if err := requirePositive("measuredPPV", m.MeasuredPPV); err != nil {
		return err
	}
	if err := requireNonNegative("distancefromblast", m.DistanceFromBlast); err != nil {
		return err
	}
	return requireNonNegative("chargeWeight", m.ChargeWeight)
}

// Sample converts the measurement into a calibration sample. It reports false
// when distance or charge weight were not recorded.
func (m Measurement) Sample() (Sample, bool) {
	if m.DistanceFromBlast <= 0 || m.ChargeWeight <= 0 || m.MeasuredPPV <= 0 {
		return Sample{}, false
	}
	return Sample{
		Distance:       m.DistanceFromBlast,
		ChargePerDelay: m.ChargeWeight,
		PPV:            m.MeasuredPPV,
	}, true
}
