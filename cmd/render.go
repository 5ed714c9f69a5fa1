package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/smartmap-fr/smartmap/internal/app"
	"github.com/smartmap-fr/smartmap/internal/region"
)

var (
	renderMode   string
	renderYear   int
	renderFormat string
	renderOutput string
	renderStyle  string
)

var renderCmd = &cobra.Command{
	Use:   "render",
	Short: "Render a granularity and year into a map style document",
	RunE: func(cmd *cobra.Command, args []string) error {
		g, err := region.ParseGranularity(renderMode)
		if err != nil {
			return err
		}
		if renderFormat != "json" && renderFormat != "yaml" {
			return eris.Errorf("unknown format %q", renderFormat)
		}

		env, err := initEnv(cmd.Context(), cfg, "render")
		if err != nil {
			return err
		}
		defer env.Close()

		year, err := resolveYear(cmd.Context(), env, renderYear)
		if err != nil {
			return err
		}

		opts := controllerOptions(cfg)
		if renderStyle != "" {
			opts.StyleURL = renderStyle
		}
		doc, res, err := app.Snapshot(cmd.Context(), env.Loader, opts, g, year)
		if err != nil {
			return err
		}

		style := doc.Style(region.MustLookup(g).DisplayName + " " + strconv.Itoa(year))
		if err := writeOutput(renderOutput, cmd.OutOrStdout(), func(w io.Writer) error {
			return encodeDocument(w, renderFormat, style)
		}); err != nil {
			return err
		}

		printLegend(cmd.ErrOrStderr(), res)
		return nil
	},
}

// encodeDocument writes v as indented JSON or YAML. YAML goes through the JSON
// form so custom MarshalJSON methods are honored.
func encodeDocument(w io.Writer, format string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return eris.Wrap(err, "encode json")
	}
	if format == "json" {
		if _, err := w.Write(append(data, '\n')); err != nil {
			return eris.Wrap(err, "write json")
		}
		return nil
	}

	var generic any
	if err := json.Unmarshal(data, &generic); err != nil {
		return eris.Wrap(err, "decode json")
	}
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(generic); err != nil {
		return eris.Wrap(err, "encode yaml")
	}
	return enc.Close()
}

// writeOutput runs write against path, or stdout when path is empty or "-".
func writeOutput(path string, stdout io.Writer, write func(io.Writer) error) error {
	if path == "" || path == "-" {
		return write(stdout)
	}
	f, err := os.Create(path)
	if err != nil {
		return eris.Wrapf(err, "create %s", path)
	}
	if err := write(f); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return eris.Wrapf(err, "close %s", path)
	}
	return nil
}

func printLegend(w io.Writer, res *app.Result) {
	l := res.Legend
	fmt.Fprintf(w, "%s %d: %d regions (%d with price), op=%s\n",
		l.Title, res.Dataset.Collection.Year, len(res.Dataset.Collection.Regions), len(res.Dataset.Collection.Prices()), res.Op)
	fmt.Fprintf(w, "legend: %s .. %s\n", l.MinLabel, l.MaxLabel)
}

func init() {
	renderCmd.Flags().StringVar(&renderMode, "mode", "paris", "granularity: paris, quartiers or france")
	renderCmd.Flags().IntVar(&renderYear, "year", 0, "year (default: latest preferred year)")
	renderCmd.Flags().StringVar(&renderFormat, "format", "json", "output format: json or yaml")
	renderCmd.Flags().StringVarP(&renderOutput, "output", "o", "", "output file (default stdout)")
	renderCmd.Flags().StringVar(&renderStyle, "style", "", "base style URL (default from config)")
	rootCmd.AddCommand(renderCmd)
}
