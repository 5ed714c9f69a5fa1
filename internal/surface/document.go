package surface

import (
	"encoding/json"
	"slices"
	"sync"

	"github.com/rotisserie/eris"
)

// Sentinel errors returned by Document.
var (
	ErrSourceExists   = eris.New("surface: source already exists")
	ErrSourceNotFound = eris.New("surface: source not found")
	ErrSourceInUse    = eris.New("surface: source is used by a layer")
	ErrLayerExists    = eris.New("surface: layer already exists")
	ErrLayerNotFound  = eris.New("surface: layer not found")
)

// CameraState is the viewport of a Document.
type CameraState struct {
	Center  LngLat  `json:"center" yaml:"center"`
	Zoom    float64 `json:"zoom" yaml:"zoom"`
	Pitch   float64 `json:"pitch" yaml:"pitch"`
	Bearing float64 `json:"bearing" yaml:"bearing"`
}

type binding struct {
	event   string
	layerID string
	handler Handler
}

// Document is a headless Surface. It keeps sources and layers in insertion
// order, applies camera transitions instantly and dispatches synthetic
// pointer events. It is safe for concurrent use; handlers run without the
// lock held so they may call back into the Document.
type Document struct {
	mu           sync.Mutex
	styleURL     string
	sources      map[string]Source
	sourceOrder  []string
	layers       []Layer
	camera       CameraState
	lastEase     *EaseOptions
	dblClickZoom bool
	bindings     map[Subscription]binding
	nextSub      Subscription
	cursor       string
	popups       map[*documentPopup]struct{}
}

// NewDocument creates an empty Document over the given base style.
func NewDocument(styleURL string, camera CameraState) *Document {
	return &Document{
		styleURL:     styleURL,
		sources:      make(map[string]Source),
		camera:       camera,
		dblClickZoom: true,
		bindings:     make(map[Subscription]binding),
		popups:       make(map[*documentPopup]struct{}),
	}
}

// AddSource registers a source.
func (d *Document) AddSource(id string, src Source) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.sources[id]; ok {
		return eris.Wrapf(ErrSourceExists, "add source %q", id)
	}
	d.sources[id] = src
	d.sourceOrder = append(d.sourceOrder, id)
	return nil
}

// RemoveSource removes a source. Layers must be removed first.
func (d *Document) RemoveSource(id string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.sources[id]; !ok {
		return eris.Wrapf(ErrSourceNotFound, "remove source %q", id)
	}
	for _, l := range d.layers {
		if l.Source == id {
			return eris.Wrapf(ErrSourceInUse, "remove source %q (layer %q)", id, l.ID)
		}
	}
	delete(d.sources, id)
	d.sourceOrder = slices.DeleteFunc(d.sourceOrder, func(s string) bool { return s == id })
	return nil
}

// SetSourceData replaces a source's data in place.
func (d *Document) SetSourceData(id string, data any) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	src, ok := d.sources[id]
	if !ok {
		return eris.Wrapf(ErrSourceNotFound, "set data of %q", id)
	}
	src.Data = data
	d.sources[id] = src
	return nil
}

// AddLayer appends a layer on top of the existing ones.
func (d *Document) AddLayer(l Layer) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.layerIndex(l.ID) >= 0 {
		return eris.Wrapf(ErrLayerExists, "add layer %q", l.ID)
	}
	if _, ok := d.sources[l.Source]; !ok {
		return eris.Wrapf(ErrSourceNotFound, "add layer %q", l.ID)
	}
	paint := make(map[string]any, len(l.Paint))
	for k, v := range l.Paint {
		paint[k] = v
	}
	l.Paint = paint
	d.layers = append(d.layers, l)
	return nil
}

// RemoveLayer removes a layer.
func (d *Document) RemoveLayer(id string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	i := d.layerIndex(id)
	if i < 0 {
		return eris.Wrapf(ErrLayerNotFound, "remove layer %q", id)
	}
	d.layers = slices.Delete(d.layers, i, i+1)
	return nil
}

// SetPaintProperty assigns one paint property of a layer.
func (d *Document) SetPaintProperty(layerID, name string, value any) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	i := d.layerIndex(layerID)
	if i < 0 {
		return eris.Wrapf(ErrLayerNotFound, "set paint %s of %q", name, layerID)
	}
	d.layers[i].Paint[name] = value
	return nil
}

func (d *Document) layerIndex(id string) int {
	return slices.IndexFunc(d.layers, func(l Layer) bool { return l.ID == id })
}

// Zoom returns the current zoom level.
func (d *Document) Zoom() float64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.camera.Zoom
}

// EaseTo jumps straight to the transition's end state.
func (d *Document) EaseTo(opts EaseOptions) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if opts.Center != nil {
		d.camera.Center = *opts.Center
	}
	d.camera.Zoom = opts.Zoom
	if opts.Pitch != nil {
		d.camera.Pitch = *opts.Pitch
	}
	if opts.Bearing != nil {
		d.camera.Bearing = *opts.Bearing
	}
	d.lastEase = &opts
}

// DisableDoubleClickZoom turns off the native double-click zoom.
func (d *Document) DisableDoubleClickZoom() {
	d.mu.Lock()
	d.dblClickZoom = false
	d.mu.Unlock()
}

// On registers a handler.
func (d *Document) On(event, layerID string, h Handler) Subscription {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.nextSub++
	d.bindings[d.nextSub] = binding{event: event, layerID: layerID, handler: h}
	return d.nextSub
}

// Off unregisters a handler. Unknown subscriptions are ignored.
func (d *Document) Off(sub Subscription) {
	d.mu.Lock()
	delete(d.bindings, sub)
	d.mu.Unlock()
}

// SetCursor sets the pointer cursor.
func (d *Document) SetCursor(cursor string) {
	d.mu.Lock()
	d.cursor = cursor
	d.mu.Unlock()
}

// SetStyle swaps the base style and drops every source and layer. Event
// bindings survive.
func (d *Document) SetStyle(url string) error {
	if url == "" {
		return eris.New("surface: empty style url")
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.styleURL = url
	d.sources = make(map[string]Source)
	d.sourceOrder = nil
	d.layers = nil
	return nil
}

// Dispatch delivers a synthetic event. Map-wide handlers always fire; layer
// handlers fire when layerID matches. Handlers run in registration order.
func (d *Document) Dispatch(event, layerID string, ev PointerEvent) int {
	d.mu.Lock()
	subs := make([]Subscription, 0, len(d.bindings))
	for sub, b := range d.bindings {
		if b.event == event && (b.layerID == "" || b.layerID == layerID) {
			subs = append(subs, sub)
		}
	}
	slices.Sort(subs)
	handlers := make([]Handler, len(subs))
	for i, sub := range subs {
		handlers[i] = d.bindings[sub].handler
	}
	d.mu.Unlock()

	for _, h := range handlers {
		h(ev)
	}
	return len(handlers)
}

// HandlerCount returns how many handlers are bound to event on layerID.
func (d *Document) HandlerCount(event, layerID string) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	n := 0
	for _, b := range d.bindings {
		if b.event == event && b.layerID == layerID {
			n++
		}
	}
	return n
}

// SourceIDs returns source ids in insertion order.
func (d *Document) SourceIDs() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return slices.Clone(d.sourceOrder)
}

// LayerIDs returns layer ids bottom to top.
func (d *Document) LayerIDs() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	ids := make([]string, len(d.layers))
	for i, l := range d.layers {
		ids[i] = l.ID
	}
	return ids
}

// Layer returns a copy of a layer.
func (d *Document) Layer(id string) (Layer, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	i := d.layerIndex(id)
	if i < 0 {
		return Layer{}, false
	}
	l := d.layers[i]
	paint := make(map[string]any, len(l.Paint))
	for k, v := range l.Paint {
		paint[k] = v
	}
	l.Paint = paint
	return l, true
}

// SourceData returns the current data of a source.
func (d *Document) SourceData(id string) (any, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	src, ok := d.sources[id]
	return src.Data, ok
}

// Camera returns the viewport.
func (d *Document) Camera() CameraState {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.camera
}

// LastEase returns the most recent transition, if any.
func (d *Document) LastEase() (EaseOptions, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.lastEase == nil {
		return EaseOptions{}, false
	}
	return *d.lastEase, true
}

// DoubleClickZoom reports whether native double-click zoom is enabled.
func (d *Document) DoubleClickZoom() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.dblClickZoom
}

// Cursor returns the pointer cursor.
func (d *Document) Cursor() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.cursor
}

// StyleURL returns the base style.
func (d *Document) StyleURL() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.styleURL
}

// StyleDocument is a Mapbox GL style (version 8) describing the overlay
// sources and layers on top of the base style.
type StyleDocument struct {
	Version  int               `json:"version"`
	Name     string            `json:"name"`
	Metadata map[string]any    `json:"metadata"`
	Center   [2]float64        `json:"center"`
	Zoom     float64           `json:"zoom"`
	Pitch    float64           `json:"pitch"`
	Bearing  float64           `json:"bearing"`
	Sources  map[string]Source `json:"sources"`
	Layers   []Layer           `json:"layers"`
}

// Style snapshots the document.
func (d *Document) Style(name string) StyleDocument {
	d.mu.Lock()
	defer d.mu.Unlock()
	sources := make(map[string]Source, len(d.sources))
	for id, src := range d.sources {
		sources[id] = src
	}
	layers := make([]Layer, len(d.layers))
	copy(layers, d.layers)
	return StyleDocument{
		Version:  8,
		Name:     name,
		Metadata: map[string]any{"smartmap:base-style": d.styleURL},
		Center:   [2]float64{d.camera.Center.Lng, d.camera.Center.Lat},
		Zoom:     d.camera.Zoom,
		Pitch:    d.camera.Pitch,
		Bearing:  d.camera.Bearing,
		Sources:  sources,
		Layers:   layers,
	}
}

// MarshalJSON encodes the current style.
func (d *Document) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.Style(""))
}

type documentPopup struct {
	doc    *Document
	opts   PopupOptions
	lngLat LngLat
	html   string
}

// PopupState describes an open popup.
type PopupState struct {
	LngLat    LngLat
	HTML      string
	ClassName string
}

// NewPopup creates a detached popup.
func (d *Document) NewPopup(opts PopupOptions) Popup {
	return &documentPopup{doc: d, opts: opts}
}

func (p *documentPopup) SetLngLat(ll LngLat) {
	p.doc.mu.Lock()
	p.lngLat = ll
	p.doc.mu.Unlock()
}

func (p *documentPopup) SetHTML(html string) {
	p.doc.mu.Lock()
	p.html = html
	p.doc.mu.Unlock()
}

func (p *documentPopup) Show() {
	p.doc.mu.Lock()
	p.doc.popups[p] = struct{}{}
	p.doc.mu.Unlock()
}

func (p *documentPopup) Remove() {
	p.doc.mu.Lock()
	delete(p.doc.popups, p)
	p.doc.mu.Unlock()
}

// OpenPopups returns every popup currently shown.
func (d *Document) OpenPopups() []PopupState {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]PopupState, 0, len(d.popups))
	for p := range d.popups {
		out = append(out, PopupState{LngLat: p.lngLat, HTML: p.html, ClassName: p.opts.ClassName})
	}
	return out
}

var _ Surface = (*Document)(nil)
