package encode

// Stop is one (threshold, color) pair of a Ramp.
type Stop struct {
	Value float64 `json:"value" yaml:"value"`
	Color string  `json:"color" yaml:"color"`
}

// Ramp is a linear color interpolation over a numeric feature property. The
// map surface evaluates it per feature; Default stands in for absent values.
type Ramp struct {
	Property string
	Default  float64
	Stops    []Stop
}

// PriceRamp is the gradient used for the price/m² choropleth.
func PriceRamp() Ramp {
	return Ramp{
		Property: "avg_price_m2",
		Default:  1000,
		Stops: []Stop{
			{1000, "#003d7a"},
			{1500, "#0066CC"},
			{2500, "#0099FF"},
			{3500, "#00CCFF"},
			{5000, "#00FFCC"},
			{7000, "#66FF00"},
			{9000, "#CCFF00"},
			{11000, "#FFCC00"},
			{13000, "#FF6600"},
			{15000, "#CC0000"},
		},
	}
}

// Expression renders the ramp in the Mapbox GL expression syntax:
//
//	["interpolate", ["linear"], ["coalesce", ["get", prop], default], v1, c1, ...]
func (r Ramp) Expression() []any {
	expr := make([]any, 0, 3+2*len(r.Stops))
	expr = append(expr,
		"interpolate",
		[]any{"linear"},
		[]any{"coalesce", []any{"get", r.Property}, r.Default},
	)
	for _, s := range r.Stops {
		expr = append(expr, s.Value, s.Color)
	}
	return expr
}

// GradientStop is one color of the legend bar with its position in percent.
type GradientStop struct {
	Color   string `json:"color" yaml:"color"`
	Percent int    `json:"percent" yaml:"percent"`
}

var legendPositions = []int{0, 12, 25, 37, 50, 62, 75, 87, 95, 100}

// LegendGradient returns the legend bar stops for the price ramp.
func LegendGradient() []GradientStop {
	ramp := PriceRamp()
	out := make([]GradientStop, len(ramp.Stops))
	for i, s := range ramp.Stops {
		out[i] = GradientStop{Color: s.Color, Percent: legendPositions[i]}
	}
	return out
}
