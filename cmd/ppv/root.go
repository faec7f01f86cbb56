package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/couchcryptid/blast-vibration-service/internal/config"
	"github.com/couchcryptid/blast-vibration-service/internal/domain"
)

// app carries state shared by the subcommands.
type app struct {
	sitesFile string
	estimator *domain.Estimator
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:   "ppv",
		Short: "Blast vibration (PPV) estimates and site calibration",
		Long: `Estimate peak particle velocity from blast geometry using the scaled-distance
attenuation law PPV = K * (D / sqrt(Q))^B, classify the expected structural
damage, and fit site constants K and B from survey spreadsheets.

Site constants come from the built-in table unless --sites (or
SITE_CONSTANTS_FILE) names a YAML file.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			table := domain.DefaultSiteTable()
			if a.sitesFile != "" {
				t, err := config.LoadSiteTable(a.sitesFile)
				if err != nil {
					return fmt.Errorf("load sites: %w", err)
				}
				table = t
			}
			a.estimator = domain.NewEstimator(table)
			return nil
		},
	}
	root.PersistentFlags().StringVar(&a.sitesFile, "sites", os.Getenv("SITE_CONSTANTS_FILE"), "YAML file of site constants")

	root.AddCommand(
		newEstimateCmd(a),
		newClassifyCmd(a),
		newSitesCmd(a),
		newFitCmd(),
	)
	return root
}
