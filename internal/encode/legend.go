package encode

import (
	"math"
	"slices"
)

// LegendBounds are a granularity's legend constants.
type LegendBounds struct {
	Floor   float64
	Ceiling float64
	MinPad  float64 // subtracted from the observed minimum
	MaxPad  float64 // added to the observed maximum
	Bump    float64 // added to max when the range collapses
}

// LegendRange is the price interval shown on the legend. Min < Max.
type LegendRange struct {
	Min float64 `json:"min" yaml:"min"`
	Max float64 `json:"max" yaml:"max"`
}

// ComputeLegend derives the legend range from the present prices. With no
// prices it returns (Floor, Ceiling). The result always satisfies
// Floor <= Min < Max <= Ceiling.
func ComputeLegend(prices []float64, b LegendBounds) LegendRange {
	prices = slices.DeleteFunc(slices.Clone(prices), func(p float64) bool { return math.IsNaN(p) })
	if len(prices) == 0 {
		return LegendRange{Min: b.Floor, Max: b.Ceiling}
	}

	lo := math.Max(b.Floor, slices.Min(prices)-b.MinPad)
	hi := math.Min(b.Ceiling, slices.Max(prices)+b.MaxPad)

	// Data entirely outside the bounds would otherwise invert the range.
	lo = math.Min(lo, b.Ceiling)
	hi = math.Max(hi, b.Floor)

	if lo >= hi {
		hi = lo + b.Bump
		if hi > b.Ceiling {
			hi = b.Ceiling
			lo = math.Max(b.Floor, b.Ceiling-b.Bump)
		}
	}
	return LegendRange{Min: lo, Max: hi}
}
