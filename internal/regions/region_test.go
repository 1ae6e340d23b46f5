package regions

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/ctessum/geom"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func square(x0, y0, x1, y1 float64) geom.Polygon {
	return geom.Polygon{{
		{X: x0, Y: y0}, {X: x1, Y: y0}, {X: x1, Y: y1}, {X: x0, Y: y1}, {X: x0, Y: y0},
	}}
}

func TestLocateStrictContainment(t *testing.T) {
	set, err := NewSet([]Region{
		{ID: "west", Geometry: square(74, 14, 75.5, 17)},
		{ID: "east", Geometry: square(75.5, 14, 77, 17)},
	})
	require.NoError(t, err)
	require.Equal(t, 2, set.Len())

	i, ok := set.Locate(75, 15)
	require.True(t, ok)
	assert.Equal(t, "west", set.At(i).ID)

	i, ok = set.Locate(76, 16)
	require.True(t, ok)
	assert.Equal(t, "east", set.At(i).ID)

	_, ok = set.Locate(75.5, 15)
	assert.False(t, ok, "shared boundary belongs to neither region")

	_, ok = set.Locate(80, 15)
	assert.False(t, ok)
}

func TestLocateOverlapPrefersFirstLoaded(t *testing.T) {
	set, err := NewSet([]Region{
		{ID: "b", Geometry: square(0, 0, 10, 10)},
		{ID: "a", Geometry: square(2, 2, 8, 8)},
	})
	require.NoError(t, err)

	i, ok := set.Locate(5, 5)
	require.True(t, ok)
	assert.Equal(t, "b", set.At(i).ID)
}

func TestNewSetDissolvesDuplicateIDs(t *testing.T) {
	set, err := NewSet([]Region{
		{ID: "x", Geometry: square(0, 0, 1, 1)},
		{ID: "y", Geometry: square(5, 5, 6, 6)},
		{ID: "x", Geometry: square(2, 0, 3, 1)},
	})
	require.NoError(t, err)
	require.Equal(t, 2, set.Len())
	assert.Len(t, set.At(0).Geometry.Polygons(), 2)

	i, ok := set.Locate(2.5, 0.5)
	require.True(t, ok)
	assert.Equal(t, "x", set.At(i).ID)

	idx, ok := set.Index("y")
	require.True(t, ok)
	assert.Equal(t, 1, idx)
}

func TestNewSetEmpty(t *testing.T) {
	_, err := NewSet(nil)
	assert.True(t, errors.Is(err, ErrNoRegions))
}

const taluks = `{
  "type": "FeatureCollection",
  "features": [
    {"type": "Feature", "properties": {"KGISTalukN": "Hubli"},
     "geometry": {"type": "Polygon", "coordinates": [[[74,15],[76,15],[76,16],[74,16],[74,15]]]}},
    {"type": "Feature", "properties": {"KGISTalukN": "Nowhere"},
     "geometry": {"type": "Point", "coordinates": [74,15]}},
    {"type": "Feature", "id": 7, "properties": {},
     "geometry": {"type": "Polygon", "coordinates": [[[74,16],[76,16],[76,17],[74,17],[74,16]]]}}
  ]
}`

func TestLoadGeoJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "taluks.geojson")
	require.NoError(t, os.WriteFile(path, []byte(taluks), 0o644))

	set, err := Load(path, LoadOptions{IDField: "KGISTalukN"})
	require.NoError(t, err)
	require.Equal(t, 2, set.Len())
	assert.Equal(t, "Hubli", set.At(0).ID)
	assert.Equal(t, "7", set.At(1).ID)

	i, ok := set.Locate(75, 15.5)
	require.True(t, ok)
	assert.Equal(t, "Hubli", set.At(i).ID)
}

func TestLoadUnsupportedExtension(t *testing.T) {
	_, err := Load("regions.kml", LoadOptions{IDField: "id"})
	assert.Error(t, err)
}

func TestCleanField(t *testing.T) {
	assert.Equal(t, "Dharwad", cleanField(" Dharwad\x00\x00 "))
}
