package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/smartmap-fr/smartmap/internal/app"
	"github.com/smartmap-fr/smartmap/internal/dataset"
)

var yearsCmd = &cobra.Command{
	Use:   "years",
	Short: "List the years with price data",
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := initEnv(cmd.Context(), cfg, "years")
		if err != nil {
			return err
		}
		defer env.Close()

		years, err := env.Client.Years(cmd.Context())
		if err != nil {
			return err
		}
		def, ok := dataset.DefaultYear(years)
		if !ok {
			return app.ErrNoYears
		}

		out := cmd.OutOrStdout()
		for _, y := range years {
			marker := ""
			if y == def {
				marker = " (default)"
			}
			fmt.Fprintf(out, "%d%s\n", y, marker)
		}
		return nil
	},
}

// resolveYear returns year, or the default year when year is 0.
func resolveYear(ctx context.Context, env *mapEnv, year int) (int, error) {
	if year != 0 {
		return year, nil
	}
	years, err := env.Client.Years(ctx)
	if err != nil {
		return 0, err
	}
	def, ok := dataset.DefaultYear(years)
	if !ok {
		return 0, app.ErrNoYears
	}
	return def, nil
}

func init() {
	rootCmd.AddCommand(yearsCmd)
}
