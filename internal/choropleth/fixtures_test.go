package choropleth

import (
	"context"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/ctessum/geom"
	"github.com/stretchr/testify/require"

	"github.com/i474232898/heat-stress-dashboard/internal/forecast"
	"github.com/i474232898/heat-stress-dashboard/internal/regions"
)

func square(x0, y0, x1, y1 float64) geom.Polygon {
	return geom.Polygon{{
		{X: x0, Y: y0}, {X: x1, Y: y0}, {X: x1, Y: y1}, {X: x0, Y: y1}, {X: x0, Y: y0},
	}}
}

// testGrid is lat [15,16] x lon [75,76] with values [[30,31],[32,33]].
func testGrid(t *testing.T) forecast.Grid {
	t.Helper()
	g, err := forecast.NewGrid([]float64{15, 16}, []float64{75, 76}, []float64{30, 31, 32, 33})
	require.NoError(t, err)
	return g
}

// testRegions: A holds both lon-75 cells, B the (76,15) cell, C nothing.
func testRegions(t *testing.T) *regions.Set {
	t.Helper()
	set, err := regions.NewSet([]regions.Region{
		{ID: "A", Geometry: square(74.5, 14.5, 75.5, 16.5)},
		{ID: "B", Geometry: square(75.5, 14.5, 76.5, 15.5)},
		{ID: "C", Geometry: square(80, 10, 81, 11)},
	})
	require.NoError(t, err)
	return set
}

func testSnapshot(t *testing.T, version string) *Snapshot {
	t.Helper()
	day0 := time.Date(2025, time.February, 28, 12, 0, 0, 0, time.UTC)
	ds, err := forecast.NewDataset(forecast.Series{
		Times:            []time.Time{day0, day0.Add(24 * time.Hour)},
		Lat:              []float64{15, 16},
		Lon:              []float64{75, 76},
		Temperature:      [][]float64{{30, 31, 32, 33}, {math.NaN(), math.NaN(), math.NaN(), math.NaN()}},
		Humidity:         [][]float64{{50, 50, 50, 50}, {50, 50, 50, 50}},
		HeatIndex:        [][]float64{{31, 32, 33, 34}, {35, 36, 37, 38}},
		TemperatureUnits: "degC",
	})
	require.NoError(t, err)
	snap, err := NewSnapshot(version, ds, testRegions(t))
	require.NoError(t, err)
	return snap
}

type countingCache struct {
	mu     sync.Mutex
	data   map[string]Result
	hits   int
	puts   int
	purges int
}

func newCountingCache() *countingCache {
	return &countingCache{data: make(map[string]Result)}
}

func (c *countingCache) Get(_ context.Context, key string) (Result, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	r, ok := c.data[key]
	if ok {
		c.hits++
	}
	return r, ok
}

func (c *countingCache) Put(_ context.Context, key string, r Result) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[key] = r
	c.puts++
}

func (c *countingCache) Purge(context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data = make(map[string]Result)
	c.purges++
}

type fixedGeocoder struct{ lat, lon float64 }

func (g fixedGeocoder) Geocode(context.Context, string) (float64, float64, error) {
	return g.lat, g.lon, nil
}
