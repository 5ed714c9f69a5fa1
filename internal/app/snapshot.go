package app

import (
	"context"

	"github.com/smartmap-fr/smartmap/internal/region"
	"github.com/smartmap-fr/smartmap/internal/surface"
	"github.com/smartmap-fr/smartmap/internal/view"
)

// Snapshot renders (g, year) onto a fresh headless document, positioned at
// the granularity's preset.
func Snapshot(ctx context.Context, loader Loader, opts Options, g region.Granularity, year int) (*surface.Document, *Result, error) {
	doc := surface.NewDocument(opts.StyleURL, view.PresetFor(g).State())
	res, err := NewController(doc, loader, opts).Render(ctx, g, year)
	if err != nil {
		return nil, nil, err
	}
	return doc, res, nil
}
