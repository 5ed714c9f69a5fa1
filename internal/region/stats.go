package region

import (
	"bytes"
	"encoding/json"

	"github.com/rotisserie/eris"
)

// StatsShape tells which wrapper a statistics response arrived in.
type StatsShape int

const (
	// ShapeList is the `{"data": [...]}` wrapper.
	ShapeList StatsShape = iota
	// ShapeFeatureCollection is a GeoJSON-like `{"features": [{"properties": {...}}]}` wrapper.
	ShapeFeatureCollection
)

func (s StatsShape) String() string {
	if s == ShapeFeatureCollection {
		return "feature_collection"
	}
	return "list"
}

// LegendHint is the server-side min/max some stats endpoints attach.
type LegendHint struct {
	MinPrice float64 `json:"min_price"`
	MaxPrice float64 `json:"max_price"`
}

// StatsPayload is a statistics response normalized to a flat record sequence.
type StatsPayload struct {
	Shape   StatsShape
	Records []map[string]any
	Year    int
	Legend  *LegendHint
}

type rawStatsPayload struct {
	Features json.RawMessage  `json:"features"`
	Data     []map[string]any `json:"data"`
	Year     int              `json:"year"`
	Legend   *LegendHint      `json:"legend"`
}

// UnmarshalJSON accepts both wrappers. A present `features` key wins over
// `data`; feature items contribute their `properties` object, or themselves
// when they have none.
func (p *StatsPayload) UnmarshalJSON(b []byte) error {
	var raw rawStatsPayload
	if err := json.Unmarshal(b, &raw); err != nil {
		return eris.Wrap(err, "region: decode stats payload")
	}
	p.Year = raw.Year
	p.Legend = raw.Legend

	if len(raw.Features) > 0 && !bytes.Equal(bytes.TrimSpace(raw.Features), []byte("null")) {
		var items []map[string]any
		if err := json.Unmarshal(raw.Features, &items); err != nil {
			return eris.Wrap(err, "region: decode stats features")
		}
		p.Shape = ShapeFeatureCollection
		p.Records = make([]map[string]any, 0, len(items))
		for _, item := range items {
			if props, ok := item["properties"].(map[string]any); ok {
				p.Records = append(p.Records, props)
				continue
			}
			p.Records = append(p.Records, item)
		}
		return nil
	}

	p.Shape = ShapeList
	p.Records = raw.Data
	if p.Records == nil {
		p.Records = []map[string]any{}
	}
	return nil
}

// Stat is one region's statistics for a (granularity, year) pair.
type Stat struct {
	Code             string
	AvgPriceM2       *float64
	TransactionCount *int64
	Name             string
}

// StatsIndex maps region codes to their statistics. It is built once per
// render and not mutated afterwards.
type StatsIndex struct {
	byCode map[string]Stat
}

// BuildIndex keys records by the profile's stats code property. Records
// without a code are skipped; a repeated code keeps the last record.
func BuildIndex(p Profile, records []map[string]any) StatsIndex {
	idx := StatsIndex{byCode: make(map[string]Stat, len(records))}
	for _, rec := range records {
		code := CodeString(rec[p.StatsCodeProp], p.CodeWidth)
		if code == "" {
			continue
		}
		st := Stat{
			Code:             code,
			AvgPriceM2:       Number(rec[PriceProperty]),
			TransactionCount: Count(rec[TransactionsProperty]),
		}
		for _, field := range p.StatsNameFields {
			if name := Text(rec[field]); name != "" {
				st.Name = name
				break
			}
		}
		idx.byCode[code] = st
	}
	return idx
}

// Get returns the statistics for code.
func (i StatsIndex) Get(code string) (Stat, bool) {
	st, ok := i.byCode[code]
	return st, ok
}

// Len returns the number of indexed codes.
func (i StatsIndex) Len() int { return len(i.byCode) }
