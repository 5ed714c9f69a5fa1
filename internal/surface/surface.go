// Package surface defines the map-surface interface the renderer drives and a
// headless implementation that records state as a Mapbox GL style document.
package surface

import "time"

// Pointer events understood by Events.On.
const (
	EventClick       = "click"
	EventDoubleClick = "dblclick"
	EventContextMenu = "contextmenu"
	EventMouseMove   = "mousemove"
	EventMouseLeave  = "mouseleave"
)

// Layer types.
const (
	LayerFillExtrusion = "fill-extrusion"
	LayerLine          = "line"
)

// SourceGeoJSON is the only source type the renderer registers.
const SourceGeoJSON = "geojson"

// LngLat is a geographic coordinate.
type LngLat struct {
	Lng float64 `json:"lng" yaml:"lng"`
	Lat float64 `json:"lat" yaml:"lat"`
}

// Source is a data source registered on the surface. Data must marshal to
// GeoJSON.
type Source struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

// Layer is a styled view over a source.
type Layer struct {
	ID     string         `json:"id"`
	Type   string         `json:"type"`
	Source string         `json:"source"`
	Paint  map[string]any `json:"paint,omitempty"`
}

// Layers mutates the surface's sources and layers.
type Layers interface {
	AddSource(id string, src Source) error
	RemoveSource(id string) error
	SetSourceData(id string, data any) error
	AddLayer(l Layer) error
	RemoveLayer(id string) error
	SetPaintProperty(layerID, name string, value any) error
}

// EaseOptions describes an animated camera transition. Nil fields keep the
// current value.
type EaseOptions struct {
	Center   *LngLat
	Zoom     float64
	Pitch    *float64
	Bearing  *float64
	Duration time.Duration
}

// Camera controls the viewport.
type Camera interface {
	Zoom() float64
	EaseTo(opts EaseOptions)
	DisableDoubleClickZoom()
}

// Feature is a rendered feature under the pointer.
type Feature struct {
	LayerID    string
	Properties map[string]any
}

// PointerEvent is delivered to event handlers. Detail is the click count of
// the gesture (2 for the second click of a double-click).
type PointerEvent struct {
	LngLat   LngLat
	Detail   int
	Features []Feature
}

// Handler receives pointer events.
type Handler func(PointerEvent)

// Subscription identifies a registered handler.
type Subscription uint64

// Events registers pointer handlers. An empty layerID binds map-wide.
type Events interface {
	On(event, layerID string, h Handler) Subscription
	Off(sub Subscription)
	SetCursor(cursor string)
}

// PopupOptions configure a new popup.
type PopupOptions struct {
	CloseButton  bool
	CloseOnClick bool
	ClassName    string
}

// Popup is an HTML bubble anchored at a coordinate.
type Popup interface {
	SetLngLat(ll LngLat)
	SetHTML(html string)
	Show()
	Remove()
}

// Popups creates popups.
type Popups interface {
	NewPopup(opts PopupOptions) Popup
}

// Styles swaps the base map style. Replacing the style drops every source and
// layer added on top of it.
type Styles interface {
	SetStyle(url string) error
}

// Surface is everything the renderer needs from a map widget.
type Surface interface {
	Layers
	Camera
	Events
	Popups
	Styles
}
