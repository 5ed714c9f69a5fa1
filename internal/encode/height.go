package encode

import "math"

// Height returns the extrusion height for a price: price/divisor, or 0 when
// the price is absent, zero or NaN.
func Height(price *float64, divisor float64) float64 {
	if price == nil || *price == 0 || math.IsNaN(*price) || divisor == 0 {
		return 0
	}
	return *price / divisor
}

// HeightExpression is Height in the Mapbox GL expression syntax.
func HeightExpression(property string, divisor float64) []any {
	return []any{
		"case",
		[]any{"to-boolean", []any{"get", property}},
		[]any{"/", []any{"get", property}, divisor},
		0,
	}
}
