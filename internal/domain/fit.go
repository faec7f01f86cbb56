package domain

import (
	"fmt"
	"math"
)

// Sample is one field observation used to calibrate a site.
type Sample struct {
	Distance       float64 `json:"distance_m"`
	ChargePerDelay float64 `json:"charge_per_delay_kg"`
	PPV            float64 `json:"ppv"`
}

// SiteFit is the result of calibrating site constants against samples.
type SiteFit struct {
	Constants SiteConstants `json:"constants"`
	R2        float64       `json:"r2"`
	Samples   int           `json:"samples"`
}

// FitSiteLaw fits PPV = K · SD^B by least squares on ln PPV = ln K + B·ln SD.
// R² is reported on the PPV scale, not the log scale.
func FitSiteLaw(samples []Sample) (SiteFit, error) {
	if len(samples) < 2 {
		return SiteFit{}, invalidInput("samples", len(samples), "at least two samples are required")
	}

	xs := make([]float64, len(samples))
	ys := make([]float64, len(samples))
	for i, s := range samples {
		sd, err := ScaledDistance(s.Distance, s.ChargePerDelay)
		if err != nil {
			return SiteFit{}, fmt.Errorf("sample %d: %w", i, err)
		}
		if err := requirePositive("ppv", s.PPV); err != nil {
			return SiteFit{}, fmt.Errorf("sample %d: %w", i, err)
		}
		xs[i] = math.Log(sd)
		ys[i] = math.Log(s.PPV)
	}

	n := float64(len(samples))
	var xMean, yMean float64
	for i := range xs {
		xMean += xs[i]
		yMean += ys[i]
	}
	xMean /= n
	yMean /= n

	var sxx, sxy float64
	for i := range xs {
		dx := xs[i] - xMean
		sxx += dx * dx
		sxy += dx * (ys[i] - yMean)
	}
	if sxx == 0 {
		return SiteFit{}, invalidInput("samples", nil, "scaled distances must not all be equal")
	}

	c := SiteConstants{
		B: sxy / sxx,
		K: math.Exp(yMean - sxy/sxx*xMean),
	}
	if err := c.Validate(); err != nil {
		return SiteFit{}, fmt.Errorf("fitted constants: %w", err)
	}

	return SiteFit{
		Constants: c,
		R2:        rSquared(samples, c),
		Samples:   len(samples),
	}, nil
}

func rSquared(samples []Sample, c SiteConstants) float64 {
	var mean float64
	for _, s := range samples {
		mean += s.PPV
	}
	mean /= float64(len(samples))

	var ssRes, ssTot float64
	for _, s := range samples {
		pred := c.K * math.Pow(s.Distance/math.Sqrt(s.ChargePerDelay), c.B)
		ssRes += (s.PPV - pred) * (s.PPV - pred)
		ssTot += (s.PPV - mean) * (s.PPV - mean)
	}
	if ssTot == 0 {
		return 1
	}
	return 1 - ssRes/ssTot
}
