package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/couchcryptid/blast-vibration-service/internal/adapter/workbook"
	"github.com/couchcryptid/blast-vibration-service/internal/config"
	"github.com/couchcryptid/blast-vibration-service/internal/domain"
)

func newFitCmd() *cobra.Command {
	var (
		file  string
		sheet string
		site  string
	)
	cmd := &cobra.Command{
		Use:   "fit",
		Short: "Fit site constants K and B from a survey workbook",
		Long: `Fit site constants K and B by least squares on a survey workbook.

The sheet needs the columns "Distance (m)", "Maximum charge weight per delay
(kg)" and "PPV". The fitted constants are printed in the site constants file
layout; the fit quality goes to stderr. The output is a complete file with
its own "sites" key, so merge it into an existing table by hand.

Example:
  ppv fit --file survey.xlsx --site "Khadia OCP" > khadia.yaml`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			samples, err := workbook.ReadSamples(file, sheet)
			if err != nil {
				return err
			}
			fit, err := domain.FitSiteLaw(samples)
			if err != nil {
				return err
			}
			data, err := config.MarshalSites(map[string]domain.SiteConstants{site: fit.Constants})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "fitted %d samples, R² = %.4f\n", fit.Samples, fit.R2)
			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	}
	f := cmd.Flags()
	f.StringVar(&file, "file", "", "survey workbook (.xlsx)")
	f.StringVar(&sheet, "sheet", "", "sheet name (default: first sheet)")
	f.StringVar(&site, "site", "fitted", "site name for the output")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}
