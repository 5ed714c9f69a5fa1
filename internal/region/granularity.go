// Package region models the geographic aggregation levels of the price map and
// the regions joined from a geometry collection and a statistics payload.
package region

import (
	"strings"

	"github.com/rotisserie/eris"

	"github.com/smartmap-fr/smartmap/internal/encode"
)

// Granularity is one of the geographic aggregation levels the map can display.
type Granularity string

const (
	// Arrondissement is the Paris arrondissement level (20 regions).
	Arrondissement Granularity = "paris"
	// Quartier is the Paris administrative quartier level (80 regions).
	Quartier Granularity = "quartiers"
	// Department is the metropolitan France department level.
	Department Granularity = "france"
)

// PriceProperty is the feature property carrying the average price per m².
const PriceProperty = "avg_price_m2"

// TransactionsProperty is the feature property carrying the transaction count.
const TransactionsProperty = "transaction_count"

// NameProperty is the feature property carrying the display name.
const NameProperty = "name"

// LayerIDs names the map-surface sources and layers owned by one granularity.
type LayerIDs struct {
	Fill          string // fill-extrusion layer
	FillSource    string
	Outline       string // line layer
	OutlineSource string
}

// Sources returns the source ids in removal order.
func (l LayerIDs) Sources() []string {
	return []string{l.FillSource, l.OutlineSource}
}

// Profile carries everything that differs between granularities.
type Profile struct {
	Granularity Granularity
	DisplayName string

	GeometryPath string
	StatsPath    string

	// GeometryCodeProp is the code property on geometry features, StatsCodeProp
	// the one on statistics records.
	GeometryCodeProp string
	StatsCodeProp    string
	// CodeWidth left-pads codes with zeros when > 0.
	CodeWidth int

	// StatsNameFields are tried first, then GeometryNameFields.
	StatsNameFields    []string
	GeometryNameFields []string

	HeightDivisor float64
	Legend        encode.LegendBounds
	OutlineWidth  float64
	Layers        LayerIDs
}

var profiles = []Profile{
	{
		Granularity:        Arrondissement,
		DisplayName:        "Paris",
		GeometryPath:       "/api/arrondissements/",
		StatsPath:          "/api/prices/",
		GeometryCodeProp:   "c_arinsee",
		StatsCodeProp:      "arrondissement_code",
		CodeWidth:          5,
		GeometryNameFields: []string{"l_ar"},
		HeightDivisor:      90,
		Legend:             encode.LegendBounds{Floor: 700, Ceiling: 150000, MinPad: 500, MaxPad: 2000, Bump: 1000},
		OutlineWidth:       1,
		Layers: LayerIDs{
			Fill:          "arr-extrusion",
			FillSource:    "arr",
			Outline:       "arr-outline",
			OutlineSource: "arr-outline-src",
		},
	},
	{
		Granularity:        Quartier,
		DisplayName:        "Quartiers de Paris",
		GeometryPath:       "/api/quartiers/",
		StatsPath:          "/api/quartiers/prices/",
		GeometryCodeProp:   "c_qu",
		StatsCodeProp:      "quartier_code",
		StatsNameFields:    []string{"full_name"},
		GeometryNameFields: []string{"l_qu", "nom"},
		HeightDivisor:      120,
		Legend:             encode.LegendBounds{Floor: 500, Ceiling: 200000, MinPad: 1000, MaxPad: 3000, Bump: 1000},
		OutlineWidth:       0.8,
		Layers: LayerIDs{
			Fill:          "quartiers-extrusion",
			FillSource:    "quartiers",
			Outline:       "quartiers-outline",
			OutlineSource: "quartiers-outline-src",
		},
	},
	{
		Granularity:        Department,
		DisplayName:        "France",
		GeometryPath:       "/api/france/departements/",
		StatsPath:          "/api/france/prices/",
		GeometryCodeProp:   "code",
		StatsCodeProp:      "department_code",
		GeometryNameFields: []string{"nom"},
		HeightDivisor:      60,
		Legend:             encode.LegendBounds{Floor: 1000, Ceiling: 15000, MinPad: 200, MaxPad: 1000, Bump: 500},
		OutlineWidth:       0.8,
		Layers: LayerIDs{
			Fill:          "dept-extrusion",
			FillSource:    "dept",
			Outline:       "dept-outline",
			OutlineSource: "dept-outline-src",
		},
	},
}

// Profiles returns every granularity profile.
func Profiles() []Profile {
	out := make([]Profile, len(profiles))
	copy(out, profiles)
	return out
}

// Lookup returns the profile of g.
func Lookup(g Granularity) (Profile, error) {
	for _, p := range profiles {
		if p.Granularity == g {
			return p, nil
		}
	}
	return Profile{}, eris.Errorf("region: unknown granularity %q", string(g))
}

// MustLookup is Lookup for compile-time constants.
func MustLookup(g Granularity) Profile {
	p, err := Lookup(g)
	if err != nil {
		panic(err)
	}
	return p
}

// ParseGranularity parses a mode string. An empty string selects Arrondissement,
// matching the default mode of the map.
func ParseGranularity(s string) (Granularity, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "paris", "arrondissement", "arrondissements":
		return Arrondissement, nil
	case "quartiers", "quartier":
		return Quartier, nil
	case "france", "department", "departments", "departement", "departements":
		return Department, nil
	default:
		return "", eris.Errorf("region: unknown mode %q", s)
	}
}

// IsParis reports whether g is displayed with the city camera preset.
func (g Granularity) IsParis() bool {
	return g != Department
}

func (g Granularity) String() string { return string(g) }
