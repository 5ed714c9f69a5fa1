package dataset

import (
	"context"
	"encoding/json"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/smartmap-fr/smartmap/internal/region"
)

// Source is the remote side of the loader.
type Source interface {
	GeometryRaw(ctx context.Context, p region.Profile) ([]byte, error)
	Stats(ctx context.Context, p region.Profile, year int) (*region.StatsPayload, error)
}

// Dataset is a joined collection plus what the stats response said about
// itself.
type Dataset struct {
	Collection *region.Collection
	Shape      region.StatsShape
	Hint       *region.LegendHint
	// Matched counts regions that found a statistics record.
	Matched int
}

// Loader fetches geometry and statistics concurrently and joins them.
type Loader struct {
	src   Source
	cache GeometryCache
}

// NewLoader returns a Loader. cache may be nil.
func NewLoader(src Source, cache GeometryCache) *Loader {
	return &Loader{src: src, cache: cache}
}

// Load returns the dataset for (g, year). A failure of either fetch fails the
// whole load.
func (l *Loader) Load(ctx context.Context, g region.Granularity, year int) (*Dataset, error) {
	p, err := region.Lookup(g)
	if err != nil {
		return nil, err
	}

	var (
		geo   *region.GeometrySet
		stats *region.StatsPayload
	)
	eg, gctx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		var err error
		geo, err = l.geometry(gctx, p)
		return err
	})
	eg.Go(func() error {
		var err error
		stats, err = l.src.Stats(gctx, p, year)
		return err
	})
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	idx := region.BuildIndex(p, stats.Records)
	c := region.Join(p, year, geo, idx)

	ds := &Dataset{Collection: c, Shape: stats.Shape, Hint: stats.Legend}
	for _, r := range c.Regions {
		if _, ok := idx.Get(r.Code); ok {
			ds.Matched++
		}
	}
	zap.L().Debug("dataset: loaded",
		zap.String("granularity", string(g)),
		zap.Int("year", year),
		zap.Int("regions", len(c.Regions)),
		zap.Int("matched", ds.Matched),
		zap.Stringer("shape", stats.Shape),
	)
	return ds, nil
}

func (l *Loader) geometry(ctx context.Context, p region.Profile) (*region.GeometrySet, error) {
	key := "geometry/" + string(p.Granularity)
	if l.cache != nil {
		data, ok, err := l.cache.Get(ctx, key)
		if err != nil {
			zap.L().Warn("dataset: geometry cache", zap.String("key", key), zap.Error(err))
		}
		if ok {
			var geo region.GeometrySet
			if err := json.Unmarshal(data, &geo); err == nil {
				return &geo, nil
			}
			zap.L().Warn("dataset: discarding undecodable cached geometry", zap.String("key", key))
		}
	}

	data, err := l.src.GeometryRaw(ctx, p)
	if err != nil {
		return nil, err
	}
	var geo region.GeometrySet
	if err := json.Unmarshal(data, &geo); err != nil {
		return nil, eris.Wrapf(err, "dataset: decode %s geometry", p.Granularity)
	}
	if l.cache != nil {
		if err := l.cache.Put(ctx, key, data); err != nil {
			zap.L().Warn("dataset: store geometry", zap.String("key", key), zap.Error(err))
		}
	}
	return &geo, nil
}
