// Package encode turns prices into visual encodings: bucket colors, the
// color ramp the map surface evaluates per feature, extrusion heights and the
// legend range.
package encode

import (
	"fmt"
	"math"
	"strconv"
)

// RGBA is a CSS color with an alpha channel.
type RGBA struct {
	R, G, B uint8
	A       float64
}

// String renders the color as a CSS rgba() value.
func (c RGBA) String() string {
	return fmt.Sprintf("rgba(%d, %d, %d, %s)", c.R, c.G, c.B, strconv.FormatFloat(c.A, 'f', -1, 64))
}

// Breakpoints are the inclusive upper bounds of the paid buckets. Prices above
// the last one fall into the overflow bucket.
var Breakpoints = []float64{1000, 1500, 2500, 3500, 5000, 7000, 9000, 11000, 13000}

var bucketRGB = [...][3]uint8{
	{0, 61, 122},
	{0, 102, 204},
	{0, 153, 255},
	{0, 204, 255},
	{0, 255, 204},
	{102, 255, 0},
	{204, 255, 0},
	{255, 204, 0},
	{255, 102, 0},
	{204, 0, 0},
}

const (
	fillAlpha         = 0.5
	borderAlpha       = 0.75
	noDataFillAlpha   = 0.45
	noDataBorderAlpha = 0.7
)

var noDataRGB = [3]uint8{59, 130, 246}

// NoDataFill and NoDataBorder are used for regions without a price.
var (
	NoDataFill   = RGBA{R: noDataRGB[0], G: noDataRGB[1], B: noDataRGB[2], A: noDataFillAlpha}
	NoDataBorder = RGBA{R: noDataRGB[0], G: noDataRGB[1], B: noDataRGB[2], A: noDataBorderAlpha}
)

// Buckets is the number of color buckets, overflow included.
const Buckets = len(bucketRGB)

// Bucket returns the index of the bucket price falls into.
func Bucket(price float64) int {
	for i, limit := range Breakpoints {
		if price <= limit {
			return i
		}
	}
	return len(Breakpoints)
}

func bucketColor(i int, alpha float64) RGBA {
	rgb := bucketRGB[i]
	return RGBA{R: rgb[0], G: rgb[1], B: rgb[2], A: alpha}
}

// FillColor returns the fill color for a price. An absent price gets the
// no-data color; zero is a real price and lands in the first bucket.
func FillColor(price *float64) RGBA {
	if price == nil || math.IsNaN(*price) {
		return NoDataFill
	}
	return bucketColor(Bucket(*price), fillAlpha)
}

// BorderColor is FillColor for borders.
func BorderColor(price *float64) RGBA {
	if price == nil || math.IsNaN(*price) {
		return NoDataBorder
	}
	return bucketColor(Bucket(*price), borderAlpha)
}

// Colors returns the fill and border colors for a price.
func Colors(price *float64) (fill, border RGBA) {
	return FillColor(price), BorderColor(price)
}
