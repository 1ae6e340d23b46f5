package choropleth

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/i474232898/heat-stress-dashboard/internal/forecast"
	"github.com/i474232898/heat-stress-dashboard/internal/regions"
)

func TestAggregateGridSingleCell(t *testing.T) {
	set, err := regions.NewSet([]regions.Region{
		{ID: "first", Geometry: square(74.5, 14.5, 75.5, 15.5)},
	})
	require.NoError(t, err)

	got := AggregateGrid(testGrid(t), set)
	require.Len(t, got, 1)
	assert.Equal(t, Aggregate{Mean: 30, Count: 1, Min: 30, Max: 30}, got["first"])
}

func TestAggregateGridMeansAndBounds(t *testing.T) {
	got := AggregateGrid(testGrid(t), testRegions(t))

	require.Contains(t, got, "A")
	assert.Equal(t, 31.0, got["A"].Mean)
	assert.Equal(t, 2, got["A"].Count)
	assert.Equal(t, 30.0, got["A"].Min)
	assert.Equal(t, 32.0, got["A"].Max)

	assert.Equal(t, Aggregate{Mean: 31, Count: 1, Min: 31, Max: 31}, got["B"])
	assert.NotContains(t, got, "C", "regions without samples are absent")

	for id, a := range got {
		assert.GreaterOrEqual(t, a.Mean, a.Min, id)
		assert.LessOrEqual(t, a.Mean, a.Max, id)
	}
}

func TestAggregateGridIsIdempotent(t *testing.T) {
	g, set := testGrid(t), testRegions(t)
	assert.Equal(t, AggregateGrid(g, set), AggregateGrid(g, set))
}

func TestAggregateGridSkipsUndefinedAndBoundary(t *testing.T) {
	g, err := forecast.NewGrid([]float64{15, 16}, []float64{75, 76}, []float64{math.NaN(), 31, 32, 33})
	require.NoError(t, err)
	set, err := regions.NewSet([]regions.Region{
		// (75,15) is NaN and the lon-76 cells sit on the east edge.
		{ID: "edge", Geometry: square(74.5, 14.5, 76, 16.5)},
	})
	require.NoError(t, err)

	got := AggregateGrid(g, set)
	require.Contains(t, got, "edge")
	assert.Equal(t, 1, got["edge"].Count)
	assert.Equal(t, 32.0, got["edge"].Mean)
}

func TestSamplesDropsNaN(t *testing.T) {
	g, err := forecast.NewGrid([]float64{15}, []float64{75, 76}, []float64{math.NaN(), 7})
	require.NoError(t, err)
	assert.Equal(t, []Sample{{Lon: 76, Lat: 15, Value: 7}}, Samples(g))
}
