package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/couchcryptid/blast-vibration-service/internal/domain"
)

func newEstimateCmd(a *app) *cobra.Command {
	var (
		in       domain.BlastInput
		timing   domain.DelayTiming
		asJSON   bool
		distance float64
		charge   float64
	)
	cmd := &cobra.Command{
		Use:   "estimate",
		Short: "Predict PPV and damage level for a blast",
		Long: `Predict PPV and damage level for a blast.

Passing --holes, --row-delay or --hole-delay applies the delay and hole-count
adjustments on top of the attenuation law.

Examples:
  ppv estimate --site "Jayanta OCP" --distance 350 --charge 85
  ppv estimate --distance 100 --charge 100 --buildings --holes 25 --row-delay 25 --hole-delay 17`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			in.Distance = distance
			in.ChargePerDelay = charge
			f := cmd.Flags()
			if f.Changed("holes") || f.Changed("row-delay") || f.Changed("hole-delay") {
				in.Timing = &timing
			}

			pred, err := a.estimator.PredictImpact(in)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(pred)
			}
			site := pred.Site
			if !pred.KnownSite {
				site += " (default constants)"
			}
			fmt.Fprintf(out, "Site:            %s\n", site)
			fmt.Fprintf(out, "Constants:       K=%g B=%g\n", pred.Constants.K, pred.Constants.B)
			fmt.Fprintf(out, "Scaled distance: %.2f m/kg^0.5\n", pred.ScaledDistance)
			fmt.Fprintf(out, "PPV:             %.2f mm/s\n", pred.PPV)
			fmt.Fprintf(out, "Damage:          %s - %s\n", pred.Level, pred.Description)
			return nil
		},
	}

	f := cmd.Flags()
	f.StringVar(&in.Site, "site", "", "mine or site name")
	f.Float64Var(&distance, "distance", 0, "distance from the blast in metres")
	f.Float64Var(&charge, "charge", 0, "maximum charge per delay in kg")
	f.BoolVar(&in.BuildingsPresent, "buildings", false, "structures are present near the blast")
	f.IntVar(&timing.NumHoles, "holes", 1, "number of blast holes")
	f.Float64Var(&timing.RowDelayMS, "row-delay", 0, "delay between rows in ms")
	f.Float64Var(&timing.HoleDelayMS, "hole-delay", 0, "delay between holes in ms")
	f.BoolVar(&asJSON, "json", false, "print the prediction as JSON")
	_ = cmd.MarkFlagRequired("distance")
	_ = cmd.MarkFlagRequired("charge")
	return cmd
}
