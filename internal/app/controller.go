// Package app holds the map state and the controller that renders a
// (granularity, year) selection onto a map surface.
package app

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/smartmap-fr/smartmap/internal/compositor"
	"github.com/smartmap-fr/smartmap/internal/dataset"
	"github.com/smartmap-fr/smartmap/internal/locale"
	"github.com/smartmap-fr/smartmap/internal/metrics"
	"github.com/smartmap-fr/smartmap/internal/overlay"
	"github.com/smartmap-fr/smartmap/internal/region"
	"github.com/smartmap-fr/smartmap/internal/surface"
	"github.com/smartmap-fr/smartmap/internal/view"
)

// ErrSuperseded is returned for a render whose result arrived after a newer
// render was started. Its result is dropped.
var ErrSuperseded = eris.New("app: render superseded by a newer selection")

// ErrNoYears is returned when the API offers no year to display.
var ErrNoYears = eris.New("app: no years available")

// Loader loads joined datasets.
type Loader interface {
	Load(ctx context.Context, g region.Granularity, year int) (*dataset.Dataset, error)
}

// YearLister lists the available years.
type YearLister interface {
	Years(ctx context.Context) ([]int, error)
}

// Selection is a (granularity, year) pair.
type Selection struct {
	Mode region.Granularity
	Year int
}

// MapState is the mutable state of one map view. Mode and Year describe what
// is displayed; Pending is the latest requested selection, which may still be
// loading or may have failed to load.
type MapState struct {
	Language locale.Language
	Mode     region.Granularity
	Year     int
	Pending  Selection
	StyleURL string
	Legend   *Legend
	Dataset  *dataset.Dataset
}

// Result describes a completed render.
type Result struct {
	Dataset *dataset.Dataset
	Legend  Legend
	Op      compositor.Op
}

// Options configure a Controller.
type Options struct {
	Language locale.Language
	StyleURL string
}

// Controller serializes state changes of one map view. Renders may overlap;
// only the most recently started one is applied.
type Controller struct {
	surf    surface.Surface
	loader  Loader
	comp    *compositor.Compositor
	view    *view.Controller
	overlay *overlay.Overlay

	mu    sync.Mutex
	state MapState
	token uint64
}

// NewController wires the components onto surf and binds the gestures.
func NewController(surf surface.Surface, loader Loader, opts Options) *Controller {
	if opts.Language == "" {
		opts.Language = locale.French
	}
	c := &Controller{
		surf:    surf,
		loader:  loader,
		comp:    compositor.New(surf),
		view:    view.New(surf),
		overlay: overlay.New(surf, opts.Language),
		state:   MapState{Language: opts.Language, StyleURL: opts.StyleURL},
	}
	c.view.Bind(surf)
	return c
}

// State returns a copy of the map state.
func (c *Controller) State() MapState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Start renders the default year of the default mode.
func (c *Controller) Start(ctx context.Context, years YearLister) (*Result, error) {
	list, err := years.Years(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "app: list years")
	}
	year, ok := dataset.DefaultYear(list)
	if !ok {
		return nil, ErrNoYears
	}
	return c.Render(ctx, region.Arrondissement, year)
}

// Render loads (g, year) and applies it. On failure the surface keeps its
// previous content.
func (c *Controller) Render(ctx context.Context, g region.Granularity, year int) (*Result, error) {
	return c.render(ctx, func(Selection) Selection { return Selection{Mode: g, Year: year} })
}

// render derives the next selection from the pending one and applies it. The
// preset is re-applied whenever the mode differs from the pending mode, which
// is the mode the camera was last moved for.
func (c *Controller) render(ctx context.Context, next func(pending Selection) Selection) (*Result, error) {
	c.mu.Lock()
	prev := c.state.Pending
	sel := next(prev)
	p, err := region.Lookup(sel.Mode)
	if err != nil {
		c.mu.Unlock()
		return nil, err
	}
	c.token++
	token := c.token
	c.state.Pending = sel
	c.mu.Unlock()

	g, year := sel.Mode, sel.Year
	if prev.Mode != g {
		c.view.ApplyPreset(g)
	}

	start := time.Now()
	ds, err := c.loader.Load(ctx, g, year)
	if err != nil {
		metrics.Renders.WithLabelValues(string(g), "error").Inc()
		zap.L().Error("render failed",
			zap.String("granularity", string(g)),
			zap.Int("year", year),
			zap.Error(err),
		)
		return nil, eris.Wrapf(err, "app: render %s %d", g, year)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if token != c.token {
		metrics.Renders.WithLabelValues(string(g), "superseded").Inc()
		zap.L().Debug("render superseded",
			zap.String("granularity", string(g)),
			zap.Int("year", year),
		)
		return nil, ErrSuperseded
	}

	legend := BuildLegend(p, ds.Collection.Prices())
	op, err := c.comp.Apply(p, ds.Collection)
	if err != nil {
		metrics.Renders.WithLabelValues(string(g), "error").Inc()
		zap.L().Error("render failed", zap.String("granularity", string(g)), zap.Error(err))
		return nil, eris.Wrapf(err, "app: apply %s %d", g, year)
	}
	if c.overlay.Layer() != p.Layers.Fill {
		c.overlay.Attach(p.Layers.Fill)
	}

	c.state.Mode = g
	c.state.Year = year
	c.state.Legend = &legend
	c.state.Dataset = ds

	priced := len(ds.Collection.Prices())
	metrics.Renders.WithLabelValues(string(g), "ok").Inc()
	metrics.RenderDuration.WithLabelValues(string(g)).Observe(time.Since(start).Seconds())
	metrics.LayerOps.WithLabelValues(string(g), string(op)).Inc()
	metrics.RegionsRendered.WithLabelValues(string(g), "true").Set(float64(priced))
	metrics.RegionsRendered.WithLabelValues(string(g), "false").Set(float64(len(ds.Collection.Regions) - priced))
	zap.L().Info("rendered",
		zap.String("granularity", string(g)),
		zap.Int("year", year),
		zap.String("op", string(op)),
		zap.Int("regions", len(ds.Collection.Regions)),
		zap.Float64("legend_min", legend.Range.Min),
		zap.Float64("legend_max", legend.Range.Max),
	)
	return &Result{Dataset: ds, Legend: legend, Op: op}, nil
}

// SetMode renders the latest selected year with another granularity.
func (c *Controller) SetMode(ctx context.Context, g region.Granularity) (*Result, error) {
	return c.render(ctx, func(pending Selection) Selection {
		return Selection{Mode: g, Year: pending.Year}
	})
}

// SetYear renders another year with the latest selected granularity.
func (c *Controller) SetYear(ctx context.Context, year int) (*Result, error) {
	return c.render(ctx, func(pending Selection) Selection {
		return Selection{Mode: pending.Mode, Year: year}
	})
}

// SetStyle swaps the base style. The surface drops every layer with the old
// style, so the compositor starts over, the preset is re-applied and the
// current selection re-rendered.
func (c *Controller) SetStyle(ctx context.Context, url string) (*Result, error) {
	if err := c.surf.SetStyle(url); err != nil {
		return nil, eris.Wrap(err, "app: set style")
	}

	c.mu.Lock()
	c.comp.Reset()
	c.overlay.Detach()
	c.state.StyleURL = url
	mode := c.state.Pending.Mode
	c.mu.Unlock()

	if mode == "" {
		return nil, nil
	}
	c.view.ApplyPreset(mode)
	return c.render(ctx, func(pending Selection) Selection { return pending })
}

// SetLanguage switches the tooltip language.
func (c *Controller) SetLanguage(lang locale.Language) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state.Language = lang
	c.overlay.SetLanguage(lang)
}

// ResetView eases back to the preset of the current mode.
func (c *Controller) ResetView() {
	mode := c.State().Pending.Mode
	if mode == "" {
		mode = region.Arrondissement
	}
	c.view.Reset(mode)
}

// IsSuperseded reports whether err came from a dropped stale render.
func IsSuperseded(err error) bool {
	return errors.Is(err, ErrSuperseded)
}
