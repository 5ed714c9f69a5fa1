package region

import (
	"bytes"
	"encoding/json"
	"maps"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/geojson"
)

// GeometryFeature is one polygon feature of a granularity's static geometry.
type GeometryFeature struct {
	Properties map[string]any
	Geometry   geom.T
}

// GeometrySet is a decoded GeoJSON FeatureCollection.
type GeometrySet struct {
	Features []GeometryFeature
}

type rawFeature struct {
	Properties map[string]any  `json:"properties"`
	Geometry   json.RawMessage `json:"geometry"`
}

// UnmarshalJSON decodes a FeatureCollection. Features with a null geometry are
// kept so they still show up in tables; they render as nothing.
func (s *GeometrySet) UnmarshalJSON(b []byte) error {
	var raw struct {
		Type     string       `json:"type"`
		Features []rawFeature `json:"features"`
	}
	if err := json.Unmarshal(b, &raw); err != nil {
		return eris.Wrap(err, "region: decode feature collection")
	}
	if raw.Type != "" && raw.Type != "FeatureCollection" {
		return eris.Errorf("region: expected FeatureCollection, got %q", raw.Type)
	}

	s.Features = make([]GeometryFeature, 0, len(raw.Features))
	for i, f := range raw.Features {
		gf := GeometryFeature{Properties: f.Properties}
		if gf.Properties == nil {
			gf.Properties = map[string]any{}
		}
		if trimmed := bytes.TrimSpace(f.Geometry); len(trimmed) > 0 && !bytes.Equal(trimmed, []byte("null")) {
			if err := geojson.Unmarshal(trimmed, &gf.Geometry); err != nil {
				return eris.Wrapf(err, "region: decode geometry of feature %d", i)
			}
		}
		s.Features = append(s.Features, gf)
	}
	return nil
}

// Region is one geometry feature joined with its statistics.
type Region struct {
	Code             string
	Name             string
	AvgPriceM2       *float64
	TransactionCount *int64
	Geometry         geom.T
	// Properties are the source feature's properties, untouched.
	Properties map[string]any
}

// FeatureProperties returns the properties the region is published with on
// the map surface: the source properties plus price, count and name. Absent
// statistics are published as JSON null.
func (r *Region) FeatureProperties() map[string]any {
	props := make(map[string]any, len(r.Properties)+3)
	maps.Copy(props, r.Properties)
	if r.AvgPriceM2 != nil {
		props[PriceProperty] = *r.AvgPriceM2
	} else {
		props[PriceProperty] = nil
	}
	if r.TransactionCount != nil {
		props[TransactionsProperty] = *r.TransactionCount
	} else {
		props[TransactionsProperty] = nil
	}
	props[NameProperty] = r.Name
	return props
}

// Collection is the joined dataset for one (granularity, year) pair.
type Collection struct {
	Granularity Granularity
	Year        int
	Regions     []*Region
}

// Prices returns the present prices, zero included.
func (c *Collection) Prices() []float64 {
	prices := make([]float64, 0, len(c.Regions))
	for _, r := range c.Regions {
		if r.AvgPriceM2 != nil {
			prices = append(prices, *r.AvgPriceM2)
		}
	}
	return prices
}

// Bounds returns the XY extent of every region geometry.
func (c *Collection) Bounds() *geom.Bounds {
	b := geom.NewBounds(geom.XY)
	for _, r := range c.Regions {
		if r.Geometry != nil {
			b.Extend(r.Geometry)
		}
	}
	return b
}

type featureJSON struct {
	Type       string          `json:"type"`
	Properties map[string]any  `json:"properties"`
	Geometry   json.RawMessage `json:"geometry"`
}

type collectionJSON struct {
	Type     string        `json:"type"`
	BBox     []float64     `json:"bbox,omitempty"`
	Features []featureJSON `json:"features"`
}

// MarshalJSON encodes the collection as a GeoJSON FeatureCollection.
func (c *Collection) MarshalJSON() ([]byte, error) {
	out := collectionJSON{Type: "FeatureCollection", Features: make([]featureJSON, 0, len(c.Regions))}
	if b := c.Bounds(); !b.IsEmpty() {
		out.BBox = []float64{b.Min(0), b.Min(1), b.Max(0), b.Max(1)}
	}
	for _, r := range c.Regions {
		geometry := json.RawMessage("null")
		if r.Geometry != nil {
			data, err := geojson.Marshal(r.Geometry)
			if err != nil {
				return nil, eris.Wrapf(err, "region: encode geometry of %s", r.Code)
			}
			geometry = data
		}
		out.Features = append(out.Features, featureJSON{
			Type:       "Feature",
			Properties: r.FeatureProperties(),
			Geometry:   geometry,
		})
	}
	return json.Marshal(out)
}
