package app

import (
	"github.com/smartmap-fr/smartmap/internal/encode"
	"github.com/smartmap-fr/smartmap/internal/locale"
	"github.com/smartmap-fr/smartmap/internal/region"
)

// Legend is what the legend panel displays.
type Legend struct {
	Mode     region.Granularity    `json:"mode" yaml:"mode"`
	Title    string                `json:"title" yaml:"title"`
	Range    encode.LegendRange    `json:"range" yaml:"range"`
	MinLabel string                `json:"min_label" yaml:"min_label"`
	MaxLabel string                `json:"max_label" yaml:"max_label"`
	Gradient []encode.GradientStop `json:"gradient" yaml:"gradient"`
	// Empty is set when no region had a price and the default range is shown.
	Empty bool `json:"empty" yaml:"empty"`
}

// BuildLegend computes the legend of p for the present prices. Labels are
// always formatted the French way, whatever the interface language.
func BuildLegend(p region.Profile, prices []float64) Legend {
	r := encode.ComputeLegend(prices, p.Legend)
	return Legend{
		Mode:     p.Granularity,
		Title:    p.DisplayName,
		Range:    r,
		MinLabel: locale.French.Price(&r.Min),
		MaxLabel: locale.French.Price(&r.Max),
		Gradient: encode.LegendGradient(),
		Empty:    len(prices) == 0,
	}
}
