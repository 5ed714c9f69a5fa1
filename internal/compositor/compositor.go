// Package compositor owns the price layers on a map surface. At most one
// granularity's layer set exists at a time; switching granularity removes the
// other sets first, while a new year for the same granularity updates the
// existing layers in place.
package compositor

import (
	"sync"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/smartmap-fr/smartmap/internal/encode"
	"github.com/smartmap-fr/smartmap/internal/region"
	"github.com/smartmap-fr/smartmap/internal/surface"
)

// Paint property names.
const (
	PaintExtrusionColor    = "fill-extrusion-color"
	PaintExtrusionHeight   = "fill-extrusion-height"
	PaintExtrusionBase     = "fill-extrusion-base"
	PaintExtrusionOpacity  = "fill-extrusion-opacity"
	PaintExtrusionGradient = "fill-extrusion-vertical-gradient"
	PaintLineColor         = "line-color"
	PaintLineWidth         = "line-width"
)

const (
	extrusionOpacity = 0.7
	outlineColor     = "#2c3e50"
)

// Unloaded is the state before the first Apply and after Reset.
const Unloaded = "unloaded"

// Op says what Apply did to the target layer set.
type Op string

const (
	// OpCreate means the layer set was built from scratch.
	OpCreate Op = "create"
	// OpUpdate means the data and paint expressions were replaced in place.
	OpUpdate Op = "update"
)

// Compositor tracks which sources and layers it created on a surface. It
// trusts its own bookkeeping instead of querying the surface.
type Compositor struct {
	mu      sync.Mutex
	layers  surface.Layers
	ramp    encode.Ramp
	present map[string]bool
	active  region.Granularity
}

// New returns a Compositor in the Unloaded state.
func New(layers surface.Layers) *Compositor {
	return &Compositor{
		layers:  layers,
		ramp:    encode.PriceRamp(),
		present: make(map[string]bool),
	}
}

// State returns the active granularity, or Unloaded.
func (c *Compositor) State() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.active == "" {
		return Unloaded
	}
	return string(c.active)
}

// Active returns the displayed granularity and whether anything is displayed.
func (c *Compositor) Active() (region.Granularity, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.active, c.active != ""
}

// Reset forgets every tracked source and layer. Call it after the surface
// dropped them on its own, e.g. on a base style change.
func (c *Compositor) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.present = make(map[string]bool)
	c.active = ""
}

// Apply displays data with p's layer set.
func (c *Compositor) Apply(p region.Profile, data *region.Collection) (Op, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, other := range region.Profiles() {
		if other.Granularity == p.Granularity {
			continue
		}
		if err := c.ensureAbsent(other.Layers); err != nil {
			return "", err
		}
	}

	ids := p.Layers
	op := OpCreate
	if c.present[ids.Fill] && c.present[ids.FillSource] && c.present[ids.Outline] && c.present[ids.OutlineSource] {
		op = OpUpdate
	}

	if err := c.ensureSource(ids.OutlineSource, data); err != nil {
		return "", err
	}
	if err := c.ensureLayer(surface.Layer{
		ID:     ids.Outline,
		Type:   surface.LayerLine,
		Source: ids.OutlineSource,
		Paint: map[string]any{
			PaintLineColor: outlineColor,
			PaintLineWidth: p.OutlineWidth,
		},
	}); err != nil {
		return "", err
	}

	if err := c.ensureSource(ids.FillSource, data); err != nil {
		return "", err
	}
	height := encode.HeightExpression(region.PriceProperty, p.HeightDivisor)
	color := c.ramp.Expression()
	if c.present[ids.Fill] {
		if err := c.layers.SetPaintProperty(ids.Fill, PaintExtrusionHeight, height); err != nil {
			return "", eris.Wrapf(err, "compositor: update height of %s", ids.Fill)
		}
		if err := c.layers.SetPaintProperty(ids.Fill, PaintExtrusionColor, color); err != nil {
			return "", eris.Wrapf(err, "compositor: update color of %s", ids.Fill)
		}
	} else if err := c.ensureLayer(surface.Layer{
		ID:     ids.Fill,
		Type:   surface.LayerFillExtrusion,
		Source: ids.FillSource,
		Paint: map[string]any{
			PaintExtrusionColor:    color,
			PaintExtrusionHeight:   height,
			PaintExtrusionBase:     0,
			PaintExtrusionOpacity:  extrusionOpacity,
			PaintExtrusionGradient: true,
		},
	}); err != nil {
		return "", err
	}

	if c.active != p.Granularity {
		zap.L().Debug("compositor: granularity switched",
			zap.String("from", string(c.active)),
			zap.String("to", string(p.Granularity)),
		)
	}
	c.active = p.Granularity
	return op, nil
}

// ensureSource adds the source or replaces its data.
func (c *Compositor) ensureSource(id string, data *region.Collection) error {
	if c.present[id] {
		if err := c.layers.SetSourceData(id, data); err != nil {
			return eris.Wrapf(err, "compositor: set data of %s", id)
		}
		return nil
	}
	if err := c.layers.AddSource(id, surface.Source{Type: surface.SourceGeoJSON, Data: data}); err != nil {
		return eris.Wrapf(err, "compositor: add source %s", id)
	}
	c.present[id] = true
	return nil
}

func (c *Compositor) ensureLayer(l surface.Layer) error {
	if c.present[l.ID] {
		return nil
	}
	if err := c.layers.AddLayer(l); err != nil {
		return eris.Wrapf(err, "compositor: add layer %s", l.ID)
	}
	c.present[l.ID] = true
	return nil
}

// ensureAbsent removes a layer set, each layer before its source.
func (c *Compositor) ensureAbsent(ids region.LayerIDs) error {
	steps := []struct {
		id     string
		remove func(string) error
	}{
		{ids.Fill, c.layers.RemoveLayer},
		{ids.FillSource, c.layers.RemoveSource},
		{ids.Outline, c.layers.RemoveLayer},
		{ids.OutlineSource, c.layers.RemoveSource},
	}
	for _, s := range steps {
		if !c.present[s.id] {
			continue
		}
		if err := s.remove(s.id); err != nil {
			return eris.Wrapf(err, "compositor: remove %s", s.id)
		}
		delete(c.present, s.id)
	}
	return nil
}
