package main

import (
	"github.com/spf13/cobra"

	"github.com/couchcryptid/blast-vibration-service/internal/config"
	"github.com/couchcryptid/blast-vibration-service/internal/domain"
)

func newSitesCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "sites",
		Short: "Print the site constants table as YAML",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			table := a.estimator.Sites()
			sites := make(map[string]domain.SiteConstants, table.Len())
			for _, name := range table.Names() {
				sites[name], _ = table.Lookup(name)
			}
			data, err := config.MarshalSites(sites)
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	}
}
