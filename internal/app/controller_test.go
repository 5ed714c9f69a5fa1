package app

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smartmap-fr/smartmap/internal/compositor"
	"github.com/smartmap-fr/smartmap/internal/dataset"
	"github.com/smartmap-fr/smartmap/internal/locale"
	"github.com/smartmap-fr/smartmap/internal/region"
	"github.com/smartmap-fr/smartmap/internal/surface"
	"github.com/smartmap-fr/smartmap/internal/view"
)

type loaderFunc func(ctx context.Context, g region.Granularity, year int) (*dataset.Dataset, error)

func (f loaderFunc) Load(ctx context.Context, g region.Granularity, year int) (*dataset.Dataset, error) {
	return f(ctx, g, year)
}

type yearsFunc func(ctx context.Context) ([]int, error)

func (f yearsFunc) Years(ctx context.Context) ([]int, error) { return f(ctx) }

func fixture(g region.Granularity, year int, prices ...float64) *dataset.Dataset {
	c := &region.Collection{Granularity: g, Year: year}
	for i, p := range prices {
		p := p
		c.Regions = append(c.Regions, &region.Region{
			Code:       string(rune('a' + i)),
			Name:       "r",
			AvgPriceM2: &p,
			Properties: map[string]any{},
		})
	}
	return &dataset.Dataset{Collection: c, Matched: len(prices)}
}

func staticLoader() Loader {
	return loaderFunc(func(_ context.Context, g region.Granularity, year int) (*dataset.Dataset, error) {
		return fixture(g, year, 9000, 12000), nil
	})
}

func newTestController(t *testing.T, loader Loader) (*Controller, *surface.Document) {
	t.Helper()
	doc := surface.NewDocument("mapbox://styles/mapbox/light-v11", view.ParisPreset.State())
	return NewController(doc, loader, Options{StyleURL: doc.StyleURL()}), doc
}

func TestController_StartRendersDefaultYear(t *testing.T) {
	c, doc := newTestController(t, staticLoader())

	res, err := c.Start(context.Background(), yearsFunc(func(context.Context) ([]int, error) {
		return []int{2021, 2024, 2025}, nil
	}))
	require.NoError(t, err)
	assert.Equal(t, compositor.OpCreate, res.Op)

	st := c.State()
	assert.Equal(t, region.Arrondissement, st.Mode)
	assert.Equal(t, 2024, st.Year)
	require.NotNil(t, st.Legend)
	assert.Equal(t, 8500.0, st.Legend.Range.Min)
	assert.Equal(t, 14000.0, st.Legend.Range.Max)

	p := region.MustLookup(region.Arrondissement)
	assert.ElementsMatch(t, []string{p.Layers.Fill, p.Layers.Outline}, doc.LayerIDs())
	assert.Equal(t, 1, doc.HandlerCount(surface.EventMouseMove, p.Layers.Fill))
	assert.False(t, doc.DoubleClickZoom())

	ease, ok := doc.LastEase()
	require.True(t, ok)
	require.NotNil(t, ease.Center)
	assert.Equal(t, view.ParisPreset.Center, *ease.Center)
}

func TestController_StartWithoutYears(t *testing.T) {
	c, _ := newTestController(t, staticLoader())
	_, err := c.Start(context.Background(), yearsFunc(func(context.Context) ([]int, error) { return nil, nil }))
	assert.ErrorIs(t, err, ErrNoYears)
}

func TestController_ModeSwitchMovesOverlay(t *testing.T) {
	c, doc := newTestController(t, staticLoader())
	ctx := context.Background()

	_, err := c.Render(ctx, region.Arrondissement, 2024)
	require.NoError(t, err)
	res, err := c.SetMode(ctx, region.Department)
	require.NoError(t, err)
	assert.Equal(t, compositor.OpCreate, res.Op)

	arr := region.MustLookup(region.Arrondissement)
	dept := region.MustLookup(region.Department)
	assert.ElementsMatch(t, []string{dept.Layers.Fill, dept.Layers.Outline}, doc.LayerIDs())
	assert.Zero(t, doc.HandlerCount(surface.EventMouseMove, arr.Layers.Fill))
	assert.Equal(t, 1, doc.HandlerCount(surface.EventMouseMove, dept.Layers.Fill))
	assert.Equal(t, 2024, c.State().Year)

	ease, _ := doc.LastEase()
	assert.Equal(t, view.FrancePreset.Center, *ease.Center)

	res, err = c.SetYear(ctx, 2023)
	require.NoError(t, err)
	assert.Equal(t, compositor.OpUpdate, res.Op)
	assert.Equal(t, 1, doc.HandlerCount(surface.EventMouseMove, dept.Layers.Fill))
}

func TestController_FailedLoadKeepsState(t *testing.T) {
	fail := false
	loader := loaderFunc(func(_ context.Context, g region.Granularity, year int) (*dataset.Dataset, error) {
		if fail {
			return nil, errors.New("stats: 500")
		}
		return fixture(g, year, 9000), nil
	})
	c, doc := newTestController(t, loader)
	ctx := context.Background()

	_, err := c.Render(ctx, region.Arrondissement, 2024)
	require.NoError(t, err)
	before := doc.LayerIDs()

	fail = true
	_, err = c.Render(ctx, region.Quartier, 2024)
	require.Error(t, err)
	assert.Equal(t, before, doc.LayerIDs())
	assert.Equal(t, region.Arrondissement, c.State().Mode)
}

func TestController_StaleRenderIsDropped(t *testing.T) {
	entered := make(chan struct{})
	release := make(chan struct{})
	loader := loaderFunc(func(_ context.Context, g region.Granularity, year int) (*dataset.Dataset, error) {
		if g == region.Arrondissement {
			close(entered)
			<-release
		}
		return fixture(g, year, 5000), nil
	})
	c, doc := newTestController(t, loader)
	ctx := context.Background()

	errc := make(chan error, 1)
	go func() {
		_, err := c.Render(ctx, region.Arrondissement, 2024)
		errc <- err
	}()
	<-entered

	_, err := c.Render(ctx, region.Department, 2024)
	require.NoError(t, err)
	close(release)

	err = <-errc
	assert.True(t, IsSuperseded(err))
	assert.Equal(t, region.Department, c.State().Mode)
	dept := region.MustLookup(region.Department)
	assert.ElementsMatch(t, []string{dept.Layers.Fill, dept.Layers.Outline}, doc.LayerIDs())
}

// blockingLoader holds the load of (g, year) until release is closed.
func blockingLoader(g region.Granularity, year int, entered, release chan struct{}) Loader {
	return loaderFunc(func(_ context.Context, gotG region.Granularity, gotYear int) (*dataset.Dataset, error) {
		if gotG == g && gotYear == year {
			close(entered)
			<-release
		}
		return fixture(gotG, gotYear, 5000), nil
	})
}

func TestController_SetYearDuringModeSwitchKeepsNewMode(t *testing.T) {
	entered := make(chan struct{})
	release := make(chan struct{})
	c, doc := newTestController(t, blockingLoader(region.Department, 2024, entered, release))
	ctx := context.Background()

	_, err := c.Render(ctx, region.Arrondissement, 2024)
	require.NoError(t, err)

	errc := make(chan error, 1)
	go func() {
		_, err := c.SetMode(ctx, region.Department)
		errc <- err
	}()
	<-entered

	assert.Equal(t, Selection{Mode: region.Department, Year: 2024}, c.State().Pending)
	assert.Equal(t, region.Arrondissement, c.State().Mode)

	res, err := c.SetYear(ctx, 2023)
	require.NoError(t, err)
	assert.Equal(t, compositor.OpCreate, res.Op)
	close(release)
	assert.True(t, IsSuperseded(<-errc))

	st := c.State()
	assert.Equal(t, region.Department, st.Mode)
	assert.Equal(t, 2023, st.Year)
	assert.Equal(t, Selection{Mode: region.Department, Year: 2023}, st.Pending)
	dept := region.MustLookup(region.Department)
	assert.ElementsMatch(t, []string{dept.Layers.Fill, dept.Layers.Outline}, doc.LayerIDs())
	assert.Equal(t, view.FrancePreset.Center, doc.Camera().Center)
}

func TestController_OverlappingModeSwitchRestoresPreset(t *testing.T) {
	entered := make(chan struct{})
	release := make(chan struct{})
	c, doc := newTestController(t, blockingLoader(region.Department, 2024, entered, release))
	ctx := context.Background()

	_, err := c.Render(ctx, region.Arrondissement, 2024)
	require.NoError(t, err)

	errc := make(chan error, 1)
	go func() {
		_, err := c.Render(ctx, region.Department, 2024)
		errc <- err
	}()
	<-entered
	assert.Equal(t, view.FrancePreset.Center, doc.Camera().Center)

	_, err = c.Render(ctx, region.Arrondissement, 2024)
	require.NoError(t, err)
	close(release)
	assert.True(t, IsSuperseded(<-errc))

	assert.Equal(t, region.Arrondissement, c.State().Mode)
	assert.Equal(t, view.ParisPreset.Center, doc.Camera().Center)
	arr := region.MustLookup(region.Arrondissement)
	assert.ElementsMatch(t, []string{arr.Layers.Fill, arr.Layers.Outline}, doc.LayerIDs())
}

func TestController_SetStyleRerenders(t *testing.T) {
	c, doc := newTestController(t, staticLoader())
	ctx := context.Background()

	_, err := c.Render(ctx, region.Quartier, 2022)
	require.NoError(t, err)

	res, err := c.SetStyle(ctx, "mapbox://styles/mapbox/dark-v11")
	require.NoError(t, err)
	assert.Equal(t, compositor.OpCreate, res.Op)
	assert.Equal(t, "mapbox://styles/mapbox/dark-v11", c.State().StyleURL)

	q := region.MustLookup(region.Quartier)
	assert.ElementsMatch(t, []string{q.Layers.Fill, q.Layers.Outline}, doc.LayerIDs())
	assert.Equal(t, 1, doc.HandlerCount(surface.EventMouseMove, q.Layers.Fill))
}

func TestController_SetStyleBeforeRender(t *testing.T) {
	c, doc := newTestController(t, staticLoader())
	res, err := c.SetStyle(context.Background(), "mapbox://styles/mapbox/streets-v12")
	require.NoError(t, err)
	assert.Nil(t, res)
	assert.Empty(t, doc.LayerIDs())
}

func TestController_SetLanguageKeepsFrenchLegend(t *testing.T) {
	loader := loaderFunc(func(_ context.Context, g region.Granularity, year int) (*dataset.Dataset, error) {
		return fixture(g, year, 10000, 11000), nil
	})
	c, _ := newTestController(t, loader)
	_, err := c.Render(context.Background(), region.Department, 2024)
	require.NoError(t, err)

	c.SetLanguage(locale.English)
	st := c.State()
	assert.Equal(t, locale.English, st.Language)
	assert.Equal(t, 9800.0, st.Legend.Range.Min)
	assert.Equal(t, 12000.0, st.Legend.Range.Max)
	assert.Equal(t, locale.French.Price(&st.Legend.Range.Min), st.Legend.MinLabel)
}

func TestBuildLegend_EmptyUsesDefaults(t *testing.T) {
	p := region.MustLookup(region.Arrondissement)
	l := BuildLegend(p, nil)
	assert.True(t, l.Empty)
	assert.Equal(t, 700.0, l.Range.Min)
	assert.Equal(t, 150000.0, l.Range.Max)
	assert.Equal(t, "Paris", l.Title)
	assert.Len(t, l.Gradient, 10)
}
