// Package view drives the camera: per-mode presets and the zoom gestures.
package view

import (
	"time"

	"github.com/smartmap-fr/smartmap/internal/region"
	"github.com/smartmap-fr/smartmap/internal/surface"
)

// Preset is a named camera position.
type Preset struct {
	Name    string
	Center  surface.LngLat
	Zoom    float64
	Pitch   float64
	Bearing float64
}

// Camera presets.
var (
	ParisPreset = Preset{
		Name:    "paris",
		Center:  surface.LngLat{Lng: 2.3522, Lat: 48.8566},
		Zoom:    11.2,
		Pitch:   45,
		Bearing: -17.6,
	}
	FrancePreset = Preset{
		Name:    "france",
		Center:  surface.LngLat{Lng: 2.5, Lat: 46.7},
		Zoom:    4.6,
		Pitch:   45,
		Bearing: -10,
	}
)

// Gesture zoom steps.
const (
	DoubleClickZoom = 2.5
	ContextMenuZoom = 3.5
	ClickZoom       = 2.0
	presetDuration  = 800 * time.Millisecond
	doubleClickEase = 320 * time.Millisecond
	contextMenuEase = 380 * time.Millisecond
	clickEase       = 300 * time.Millisecond
)

// PresetFor returns the preset used for g.
func PresetFor(g region.Granularity) Preset {
	if g.IsParis() {
		return ParisPreset
	}
	return FrancePreset
}

// State is the camera state a preset describes.
func (p Preset) State() surface.CameraState {
	return surface.CameraState{Center: p.Center, Zoom: p.Zoom, Pitch: p.Pitch, Bearing: p.Bearing}
}

// Controller moves the camera.
type Controller struct {
	camera surface.Camera
	subs   []surface.Subscription
}

// New returns a Controller over camera.
func New(camera surface.Camera) *Controller {
	return &Controller{camera: camera}
}

// ApplyPreset eases to the preset of g.
func (c *Controller) ApplyPreset(g region.Granularity) {
	p := PresetFor(g)
	pitch, bearing := p.Pitch, p.Bearing
	center := p.Center
	c.camera.EaseTo(surface.EaseOptions{
		Center:   &center,
		Zoom:     p.Zoom,
		Pitch:    &pitch,
		Bearing:  &bearing,
		Duration: presetDuration,
	})
}

// Reset is ApplyPreset for the current mode.
func (c *Controller) Reset(g region.Granularity) {
	c.ApplyPreset(g)
}

// Bind disables the native double-click zoom and registers the gesture
// handlers map-wide. Calling it again replaces the previous bindings.
func (c *Controller) Bind(events surface.Events) {
	c.Unbind(events)
	c.camera.DisableDoubleClickZoom()
	c.subs = []surface.Subscription{
		events.On(surface.EventDoubleClick, "", c.OnDoubleClick),
		events.On(surface.EventContextMenu, "", c.OnContextMenu),
		events.On(surface.EventClick, "", c.OnClick),
	}
}

// Unbind removes the gesture handlers.
func (c *Controller) Unbind(events surface.Events) {
	for _, s := range c.subs {
		events.Off(s)
	}
	c.subs = nil
}

// OnDoubleClick zooms in by DoubleClickZoom at the pointer.
func (c *Controller) OnDoubleClick(ev surface.PointerEvent) {
	c.zoomAt(ev.LngLat, DoubleClickZoom, doubleClickEase)
}

// OnContextMenu zooms in by ContextMenuZoom at the pointer.
func (c *Controller) OnContextMenu(ev surface.PointerEvent) {
	c.zoomAt(ev.LngLat, ContextMenuZoom, contextMenuEase)
}

// OnClick zooms in by ClickZoom at the pointer. Clicks that are part of a
// multi-click gesture are left to OnDoubleClick.
func (c *Controller) OnClick(ev surface.PointerEvent) {
	if ev.Detail > 1 {
		return
	}
	c.zoomAt(ev.LngLat, ClickZoom, clickEase)
}

func (c *Controller) zoomAt(at surface.LngLat, step float64, d time.Duration) {
	c.camera.EaseTo(surface.EaseOptions{
		Center:   &at,
		Zoom:     c.camera.Zoom() + step,
		Duration: d,
	})
}
