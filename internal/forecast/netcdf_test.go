package forecast

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeCFTimes(t *testing.T) {
	cases := []struct {
		name  string
		units string
		raw   []float64
		want  time.Time
	}{
		{"hours", "hours since 2025-02-28 00:00:00", []float64{6}, time.Date(2025, 2, 28, 6, 0, 0, 0, time.UTC)},
		{"seconds iso", "seconds since 1970-01-01T00:00:00Z", []float64{86400}, time.Date(1970, 1, 2, 0, 0, 0, 0, time.UTC)},
		{"days date only", "days since 2025-03-01", []float64{0.5}, time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)},
		{"minutes utc suffix", "minutes since 2025-03-01 00:00:00 UTC", []float64{90}, time.Date(2025, 3, 1, 1, 30, 0, 0, time.UTC)},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			got, err := DecodeCFTimes(c.raw, c.units)
			require.NoError(t, err)
			require.Len(t, got, 1)
			assert.True(t, c.want.Equal(got[0]), "got %v, want %v", got[0], c.want)
		})
	}

	_, err := DecodeCFTimes([]float64{1}, "fortnights since 2025-01-01")
	assert.Error(t, err)
	_, err = DecodeCFTimes([]float64{1}, "hours")
	assert.Error(t, err)
}

func TestFlattenFieldUnpacksAndMasks(t *testing.T) {
	raw := [][][]int16{
		{{10, -32767}, {20, 30}},
	}
	p := packing{scale: 0.5, offset: 273.15, fill: []float64{-32767}}
	steps, err := flattenField(raw, p, fieldShape{rows: 2, cols: 2})
	require.NoError(t, err)
	require.Len(t, steps, 1)
	require.Len(t, steps[0], 4)
	assert.InDelta(t, 278.15, steps[0][0], 1e-9)
	assert.True(t, math.IsNaN(steps[0][1]))
	assert.InDelta(t, 288.15, steps[0][3], 1e-9)

	_, err = flattenField([]float64{1}, p, fieldShape{rows: 1, cols: 1})
	assert.Error(t, err)
}

func TestFlattenFieldTransposesLonMajor(t *testing.T) {
	// Stored as (time, lon, lat): lon 75 holds lat 15 and 16, then lon 76.
	raw := [][][]float32{{{1, 3}, {2, 4}}}
	shape, err := fieldShapeOf([]string{"time", "longitude", "latitude"}, [3]string{"time", "latitude", "longitude"}, 2, 2)
	require.NoError(t, err)
	assert.True(t, shape.transposed)

	steps, err := flattenField(raw, packing{scale: 1}, shape)
	require.NoError(t, err)
	// lat-major: (15,75) (15,76) (16,75) (16,76)
	assert.Equal(t, []float64{1, 2, 3, 4}, steps[0])
}

func TestFlattenFieldRejectsAxisMismatch(t *testing.T) {
	want := [3]string{"time", "latitude", "longitude"}

	_, err := fieldShapeOf([]string{"time", "level", "longitude"}, want, 2, 3)
	assert.ErrorIs(t, err, ErrShapeMismatch)
	_, err = fieldShapeOf([]string{"latitude", "longitude"}, want, 2, 3)
	assert.ErrorIs(t, err, ErrShapeMismatch)

	shape, err := fieldShapeOf([]string{"time", "latitude", "longitude"}, want, 2, 3)
	require.NoError(t, err)
	_, err = flattenField([][][]float64{{{1, 2}, {3, 4}}}, packing{scale: 1}, shape)
	assert.ErrorIs(t, err, ErrShapeMismatch)
	_, err = flattenField([][][]float64{{{1, 2, 3}}}, packing{scale: 1}, shape)
	assert.ErrorIs(t, err, ErrShapeMismatch)
}

func TestFlattenFieldWideUnsigned(t *testing.T) {
	shape := fieldShape{rows: 1, cols: 2}
	steps, err := flattenField([][][]uint32{{{7, 8}}}, packing{scale: 1}, shape)
	require.NoError(t, err)
	assert.Equal(t, []float64{7, 8}, steps[0])

	steps, err = flattenField([][][]uint64{{{9, 10}}}, packing{scale: 0.5}, shape)
	require.NoError(t, err)
	assert.Equal(t, []float64{4.5, 5}, steps[0])
}

func TestToFloats(t *testing.T) {
	got, err := toFloats([]float32{15.5, 16})
	require.NoError(t, err)
	assert.Equal(t, []float64{15.5, 16}, got)

	got, err = toFloats([]int64{1, 2})
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 2}, got)

	_, err = toFloats([]string{"a"})
	assert.Error(t, err)
}

func TestHeatIndexF(t *testing.T) {
	// NWS table: 90°F at 50% RH feels like ~95°F.
	assert.InDelta(t, 94.6, HeatIndexF(90, 50), 0.5)
	// Below the regression threshold the simple formula applies.
	assert.InDelta(t, 68.6, HeatIndexF(70, 40), 0.5)
}
