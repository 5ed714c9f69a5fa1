package main

import (
	"fmt"
	"io"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/smartmap-fr/smartmap/internal/export"
	"github.com/smartmap-fr/smartmap/internal/region"
)

var (
	exportMode   string
	exportYear   int
	exportFormat string
	exportOutput string
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export the joined region table as CSV or XLSX",
	RunE: func(cmd *cobra.Command, args []string) error {
		g, err := region.ParseGranularity(exportMode)
		if err != nil {
			return err
		}
		format, err := export.ParseFormat(exportFormat)
		if err != nil {
			return err
		}
		if format == export.XLSX && (exportOutput == "" || exportOutput == "-") {
			return eris.New("xlsx export needs --output")
		}

		env, err := initEnv(cmd.Context(), cfg, "export")
		if err != nil {
			return err
		}
		defer env.Close()

		year, err := resolveYear(cmd.Context(), env, exportYear)
		if err != nil {
			return err
		}
		ds, err := env.Loader.Load(cmd.Context(), g, year)
		if err != nil {
			return err
		}

		if err := writeOutput(exportOutput, cmd.OutOrStdout(), func(w io.Writer) error {
			return export.Write(w, format, ds.Collection)
		}); err != nil {
			return err
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "exported %d regions (%d matched) for %s %d\n",
			len(ds.Collection.Regions), ds.Matched, g, year)
		return nil
	},
}

func init() {
	exportCmd.Flags().StringVar(&exportMode, "mode", "paris", "granularity: paris, quartiers or france")
	exportCmd.Flags().IntVar(&exportYear, "year", 0, "year (default: latest preferred year)")
	exportCmd.Flags().StringVar(&exportFormat, "format", "csv", "output format: csv or xlsx")
	exportCmd.Flags().StringVarP(&exportOutput, "output", "o", "", "output file (default stdout, required for xlsx)")
	rootCmd.AddCommand(exportCmd)
}
