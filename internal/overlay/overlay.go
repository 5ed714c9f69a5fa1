// Package overlay shows the hover tooltip over the active price layer.
package overlay

import (
	"bytes"
	"html/template"
	"sync"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/smartmap-fr/smartmap/internal/encode"
	"github.com/smartmap-fr/smartmap/internal/locale"
	"github.com/smartmap-fr/smartmap/internal/region"
	"github.com/smartmap-fr/smartmap/internal/surface"
)

// TooltipClass is the CSS class of the tooltip popup.
const TooltipClass = "region-tooltip"

var nameFields = []string{region.NameProperty, "l_ar", "nom"}

var cardTemplate = template.Must(template.New("card").Parse(
	`<div class="region-card" style="background: {{.Fill}}; border: 2px solid {{.Border}};">` +
		`<strong>{{.Name}}</strong><br>` +
		`{{.PriceLabel}}: {{.Price}}<br>` +
		`{{.CountLabel}}: {{.Count}}` +
		`</div>`))

type card struct {
	Name       string
	PriceLabel string
	Price      string
	CountLabel string
	Count      string
	Fill       template.CSS
	Border     template.CSS
}

var labels = map[locale.Language][2]string{
	locale.French:  {"Prix moyen", "Volume"},
	locale.English: {"Average price", "Volume"},
}

// Card renders the tooltip body for a feature's properties.
func Card(lang locale.Language, props map[string]any) (string, error) {
	price := region.Number(props[region.PriceProperty])
	count := region.Count(props[region.TransactionsProperty])
	fill, border := encode.Colors(price)
	l := labels[lang]

	name := ""
	for _, f := range nameFields {
		if name = region.Text(props[f]); name != "" {
			break
		}
	}

	var buf bytes.Buffer
	err := cardTemplate.Execute(&buf, card{
		Name:       name,
		PriceLabel: l[0],
		Price:      lang.Price(price),
		CountLabel: l[1],
		Count:      lang.Transactions(count),
		Fill:       template.CSS(fill.String()),
		Border:     template.CSS(border.String()),
	})
	if err != nil {
		return "", eris.Wrap(err, "overlay: render card")
	}
	return buf.String(), nil
}

// Target is the part of a surface the overlay needs.
type Target interface {
	surface.Events
	surface.Popups
}

// Overlay owns a single shared tooltip bound to one layer at a time.
type Overlay struct {
	mu      sync.Mutex
	target  Target
	lang    locale.Language
	popup   surface.Popup
	layerID string
	subs    []surface.Subscription
}

// New returns an Overlay that is not attached to any layer.
func New(target Target, lang locale.Language) *Overlay {
	return &Overlay{
		target: target,
		lang:   lang,
		popup: target.NewPopup(surface.PopupOptions{
			CloseButton:  false,
			CloseOnClick: false,
			ClassName:    TooltipClass,
		}),
	}
}

// SetLanguage switches the tooltip language.
func (o *Overlay) SetLanguage(lang locale.Language) {
	o.mu.Lock()
	o.lang = lang
	o.mu.Unlock()
}

// Attach binds the tooltip to layerID, unbinding the previous layer first.
func (o *Overlay) Attach(layerID string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.detachLocked()
	o.layerID = layerID
	o.subs = []surface.Subscription{
		o.target.On(surface.EventMouseMove, layerID, o.onMove),
		o.target.On(surface.EventMouseLeave, layerID, o.onLeave),
	}
}

// Detach unbinds the tooltip and hides it.
func (o *Overlay) Detach() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.detachLocked()
}

func (o *Overlay) detachLocked() {
	for _, s := range o.subs {
		o.target.Off(s)
	}
	o.subs = nil
	o.layerID = ""
	o.popup.Remove()
}

// Layer returns the layer the tooltip is bound to.
func (o *Overlay) Layer() string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.layerID
}

func (o *Overlay) onMove(ev surface.PointerEvent) {
	if len(ev.Features) == 0 {
		return
	}
	o.mu.Lock()
	lang := o.lang
	o.mu.Unlock()

	html, err := Card(lang, ev.Features[0].Properties)
	if err != nil {
		zap.L().Warn("overlay: tooltip", zap.Error(err))
		return
	}
	o.target.SetCursor("pointer")
	o.popup.SetLngLat(ev.LngLat)
	o.popup.SetHTML(html)
	o.popup.Show()
}

func (o *Overlay) onLeave(surface.PointerEvent) {
	o.target.SetCursor("")
	o.popup.Remove()
}
