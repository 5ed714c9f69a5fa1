package dataset

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smartmap-fr/smartmap/internal/fetcher"
	"github.com/smartmap-fr/smartmap/internal/region"
)

const deptGeometry = `{"type":"FeatureCollection","features":[
 {"type":"Feature","properties":{"code":"75","nom":"Paris"},
  "geometry":{"type":"Polygon","coordinates":[[[2.22,48.81],[2.47,48.81],[2.47,48.90],[2.22,48.81]]]}},
 {"type":"Feature","properties":{"code":"2A","nom":"Corse-du-Sud"},
  "geometry":{"type":"Polygon","coordinates":[[[8.5,41.4],[9.4,41.4],[9.4,42.4],[8.5,41.4]]]}}
]}`

const arrGeometry = `{"type":"FeatureCollection","features":[
 {"type":"Feature","properties":{"c_arinsee":7,"l_ar":"7ème Ardt"},"geometry":null}
]}`

type fakeAPI struct {
	*httptest.Server
	geometryHits atomic.Int32
	statsStatus  int
}

func newFakeAPI(t *testing.T) *fakeAPI {
	t.Helper()
	api := &fakeAPI{statsStatus: http.StatusOK}
	mux := http.NewServeMux()
	mux.HandleFunc("/api/years/", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"years":[2022,2020,2024,2023,2022]}`))
	})
	mux.HandleFunc("/api/france/departements/", func(w http.ResponseWriter, r *http.Request) {
		api.geometryHits.Add(1)
		w.Write([]byte(deptGeometry))
	})
	mux.HandleFunc("/api/france/prices/", func(w http.ResponseWriter, r *http.Request) {
		if api.statsStatus != http.StatusOK {
			w.WriteHeader(api.statsStatus)
			return
		}
		assert.Equal(t, "2023", r.URL.Query().Get("year"))
		w.Write([]byte(`{"type":"FeatureCollection","features":[
		  {"type":"Feature","properties":{"department_code":"75","avg_price_m2":10450.5,"transaction_count":31000}}
		], "legend":{"min_price":10450.5,"max_price":10450.5}}`))
	})
	mux.HandleFunc("/api/arrondissements/", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(arrGeometry))
	})
	mux.HandleFunc("/api/prices/", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"data":[{"arrondissement_code":"00007","avg_price_m2":14500,"transaction_count":250}]}`))
	})
	api.Server = httptest.NewServer(mux)
	t.Cleanup(api.Close)
	return api
}

func newClient(api *fakeAPI) *Client {
	return NewClient(api.URL+"/", fetcher.NewHTTPFetcher(fetcher.HTTPOptions{Timeout: 5 * time.Second, RateLimit: 1000}))
}

func TestClient_Years(t *testing.T) {
	api := newFakeAPI(t)
	years, err := newClient(api).Years(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []int{2020, 2022, 2023, 2024}, years)
}

func TestDefaultYear(t *testing.T) {
	y, ok := DefaultYear([]int{2020, 2024, 2025})
	assert.True(t, ok)
	assert.Equal(t, 2024, y)

	y, ok = DefaultYear([]int{2019, 2021, 2020})
	assert.True(t, ok)
	assert.Equal(t, 2021, y)

	_, ok = DefaultYear(nil)
	assert.False(t, ok)
}

func TestLoader_Departments(t *testing.T) {
	api := newFakeAPI(t)
	l := NewLoader(newClient(api), nil)

	ds, err := l.Load(context.Background(), region.Department, 2023)
	require.NoError(t, err)
	assert.Equal(t, region.ShapeFeatureCollection, ds.Shape)
	require.NotNil(t, ds.Hint)
	assert.Equal(t, 10450.5, ds.Hint.MaxPrice)
	assert.Equal(t, 1, ds.Matched)

	regions := ds.Collection.Regions
	require.Len(t, regions, 2)
	assert.Equal(t, "75", regions[0].Code)
	assert.Equal(t, 10450.5, *regions[0].AvgPriceM2)
	assert.Equal(t, int64(31000), *regions[0].TransactionCount)
	assert.Equal(t, "Corse-du-Sud", regions[1].Name)
	assert.Nil(t, regions[1].AvgPriceM2)
}

func TestLoader_ArrondissementPadding(t *testing.T) {
	api := newFakeAPI(t)
	ds, err := NewLoader(newClient(api), nil).Load(context.Background(), region.Arrondissement, 2024)
	require.NoError(t, err)
	require.Len(t, ds.Collection.Regions, 1)
	assert.Equal(t, "00007", ds.Collection.Regions[0].Code)
	assert.Equal(t, 14500.0, *ds.Collection.Regions[0].AvgPriceM2)
	assert.Equal(t, region.ShapeList, ds.Shape)
}

func TestLoader_StatsFailureRejectsRender(t *testing.T) {
	api := newFakeAPI(t)
	api.statsStatus = http.StatusInternalServerError
	_, err := NewLoader(newClient(api), nil).Load(context.Background(), region.Department, 2023)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "france stats")
}

func TestLoader_CachesGeometry(t *testing.T) {
	api := newFakeAPI(t)
	mem := NewMemoryCache(8, time.Hour)
	l := NewLoader(newClient(api), mem)

	for range 3 {
		_, err := l.Load(context.Background(), region.Department, 2023)
		require.NoError(t, err)
	}
	assert.Equal(t, int32(1), api.geometryHits.Load())
	stats := mem.Stats()
	assert.Equal(t, int64(2), stats.Hits)
	assert.Equal(t, int64(1), stats.Misses)
}

func TestMemoryCache_LRUAndTTL(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCache(2, time.Hour)
	require.NoError(t, c.Put(ctx, "a", []byte("1")))
	require.NoError(t, c.Put(ctx, "b", []byte("2")))
	_, ok, _ := c.Get(ctx, "a")
	assert.True(t, ok)
	require.NoError(t, c.Put(ctx, "c", []byte("3")))

	_, ok, _ = c.Get(ctx, "b")
	assert.False(t, ok, "b was least recently used")
	_, ok, _ = c.Get(ctx, "a")
	assert.True(t, ok)

	expiring := NewMemoryCache(2, time.Nanosecond)
	require.NoError(t, expiring.Put(ctx, "k", []byte("v")))
	time.Sleep(time.Millisecond)
	_, ok, _ = expiring.Get(ctx, "k")
	assert.False(t, ok)
}

func newTestSQLiteCache(t *testing.T, ttl time.Duration) *SQLiteCache {
	t.Helper()
	c, err := NewSQLiteCache(filepath.Join(t.TempDir(), "cache.db"), ttl)
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() }) //nolint:errcheck
	require.NoError(t, c.Migrate(context.Background()))
	return c
}

func TestSQLiteCache_SetAndGet(t *testing.T) {
	ctx := context.Background()
	c := newTestSQLiteCache(t, time.Hour)

	_, ok, err := c.Get(ctx, "geometry/paris")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, c.Put(ctx, "geometry/paris", []byte("v1")))
	require.NoError(t, c.Put(ctx, "geometry/paris", []byte("v2")))
	data, ok, err := c.Get(ctx, "geometry/paris")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "v2", string(data))
}

func TestSQLiteCache_Expired(t *testing.T) {
	ctx := context.Background()
	c := newTestSQLiteCache(t, -time.Hour)

	require.NoError(t, c.Put(ctx, "geometry/france", []byte("old")))
	_, ok, err := c.Get(ctx, "geometry/france")
	require.NoError(t, err)
	assert.False(t, ok)

	n, err := c.DeleteExpired(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestTiered_Backfills(t *testing.T) {
	ctx := context.Background()
	mem := NewMemoryCache(4, time.Hour)
	disk := newTestSQLiteCache(t, time.Hour)
	require.NoError(t, disk.Put(ctx, "geometry/quartiers", []byte("q")))

	tiers := Tiered{mem, disk}
	data, ok, err := tiers.Get(ctx, "geometry/quartiers")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "q", string(data))

	data, ok, _ = mem.Get(ctx, "geometry/quartiers")
	assert.True(t, ok)
	assert.Equal(t, "q", string(data))

	require.NoError(t, tiers.Put(ctx, "geometry/paris", []byte("p")))
	_, ok, _ = disk.Get(ctx, "geometry/paris")
	assert.True(t, ok)
}
