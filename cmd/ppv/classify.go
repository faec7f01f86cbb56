package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/couchcryptid/blast-vibration-service/internal/domain"
)

func newClassifyCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "classify PPV",
		Short: "Classify a PPV value (mm/s) into a damage level",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ppv, err := strconv.ParseFloat(args[0], 64)
			if err != nil {
				return &domain.InvalidInputError{Field: "ppv", Value: args[0], Reason: "must be a number"}
			}
			assessment, err := a.estimator.ClassifyDamage(ppv)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", assessment.Level, assessment.Description)
			return nil
		},
	}
}
