// Command genmock writes a synthetic blast vibration survey workbook for a
// site. Readings follow the site's attenuation law with log-normal scatter,
// so `ppv fit` on the output should recover constants close to the site's.
//
// Usage:
//
//	go run ./cmd/genmock -site "Khadia OCP" -n 40 -out data/mock/khadia_survey.xlsx
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"math"
	"math/rand/v2"
	"os"

	"github.com/couchcryptid/blast-vibration-service/internal/adapter/workbook"
	"github.com/couchcryptid/blast-vibration-service/internal/config"
	"github.com/couchcryptid/blast-vibration-service/internal/domain"
)

type options struct {
	site      string
	sitesFile string
	out       string
	n         int
	seed      uint64
	noise     float64
	minDist   float64
	maxDist   float64
	minCharge float64
	maxCharge float64
}

func main() {
	var o options
	flag.StringVar(&o.site, "site", "Jayanta OCP", "site whose constants generate the readings")
	flag.StringVar(&o.sitesFile, "sites", os.Getenv("SITE_CONSTANTS_FILE"), "YAML file of site constants")
	flag.StringVar(&o.out, "out", "survey.xlsx", "output workbook path")
	flag.IntVar(&o.n, "n", 30, "number of readings")
	flag.Uint64Var(&o.seed, "seed", 1, "random seed")
	flag.Float64Var(&o.noise, "noise", 0.15, "standard deviation of ln(PPV) scatter")
	flag.Float64Var(&o.minDist, "min-distance", 50, "minimum distance in metres")
	flag.Float64Var(&o.maxDist, "max-distance", 800, "maximum distance in metres")
	flag.Float64Var(&o.minCharge, "min-charge", 20, "minimum charge per delay in kg")
	flag.Float64Var(&o.maxCharge, "max-charge", 200, "maximum charge per delay in kg")
	flag.Parse()

	if err := run(o); err != nil {
		slog.Error("genmock failed", "error", err)
		os.Exit(1)
	}
}

func run(o options) error {
	table := domain.DefaultSiteTable()
	if o.sitesFile != "" {
		t, err := config.LoadSiteTable(o.sitesFile)
		if err != nil {
			return err
		}
		table = t
	}
	c, known := table.Lookup(o.site)
	if !known {
		slog.Warn("unknown site, using default constants", "site", o.site)
	}

	samples, err := generate(c, o)
	if err != nil {
		return err
	}
	if err := workbook.WriteSamples(o.out, "Survey", samples); err != nil {
		return err
	}
	slog.Info("wrote survey", "path", o.out, "site", o.site, "readings", len(samples), "k", c.K, "b", c.B)
	return nil
}

// generate draws distances and charges uniformly in log space and scatters
// the law's PPV by exp(N(0, noise)).
func generate(c domain.SiteConstants, o options) ([]domain.Sample, error) {
	if o.n < 2 {
		return nil, fmt.Errorf("-n must be at least 2, got %d", o.n)
	}
	if o.minDist <= 0 || o.maxDist < o.minDist || o.minCharge <= 0 || o.maxCharge < o.minCharge {
		return nil, fmt.Errorf("distance and charge ranges must be positive and ordered")
	}

	rng := rand.New(rand.NewPCG(o.seed, o.seed^0x9e3779b97f4a7c15))
	logUniform := func(lo, hi float64) float64 {
		return math.Exp(math.Log(lo) + rng.Float64()*(math.Log(hi)-math.Log(lo)))
	}
	round := func(v float64) float64 { return math.Round(v*100) / 100 }

	samples := make([]domain.Sample, 0, o.n)
	for range o.n {
		d := round(logUniform(o.minDist, o.maxDist))
		q := round(logUniform(o.minCharge, o.maxCharge))
		sd, err := domain.ScaledDistance(d, q)
		if err != nil {
			return nil, err
		}
		ppv := c.K * math.Pow(sd, c.B) * math.Exp(rng.NormFloat64()*o.noise)
		samples = append(samples, domain.Sample{Distance: d, ChargePerDelay: q, PPV: round(ppv)})
	}
	return samples, nil
}
