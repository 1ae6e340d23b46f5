package regions

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ctessum/geom"
	"github.com/ctessum/geom/encoding/shp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type talukRecord struct {
	geom.Polygon
	KGISTalukN string
}

const wgs84PRJ = `GEOGCS["GCS_WGS_1984",DATUM["D_WGS_1984",SPHEROID["WGS_1984",6378137.0,298.257223563]],PRIMEM["Greenwich",0.0],UNIT["Degree",0.0174532925199433]]`

// writeShapefile writes recs to dir/Taluk.shp, with a .prj when prj is set.
func writeShapefile(t *testing.T, recs []talukRecord, prj string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "Taluk.shp")
	enc, err := shp.NewEncoder(path, talukRecord{})
	require.NoError(t, err)
	for _, r := range recs {
		require.NoError(t, enc.Encode(r))
	}
	enc.Close()
	if prj != "" {
		require.NoError(t, os.WriteFile(strings.TrimSuffix(path, ".shp")+".prj", []byte(prj), 0o644))
	}
	return path
}

// jagged is a square whose south edge carries small zig-zags.
func jagged(x0, y0, size float64) geom.Polygon {
	ring := []geom.Point{{X: x0, Y: y0}}
	for i := 1; i < 20; i++ {
		dy := 0.001
		if i%2 == 0 {
			dy = -0.001
		}
		ring = append(ring, geom.Point{X: x0 + size*float64(i)/20, Y: y0 + dy})
	}
	ring = append(ring,
		geom.Point{X: x0 + size, Y: y0},
		geom.Point{X: x0 + size, Y: y0 + size},
		geom.Point{X: x0, Y: y0 + size},
		geom.Point{X: x0, Y: y0},
	)
	return geom.Polygon{ring}
}

func vertices(p geom.Polygonal) int {
	n := 0
	for _, poly := range p.Polygons() {
		for _, ring := range poly {
			n += len(ring)
		}
	}
	return n
}

func TestLoadShapefileWithoutProjection(t *testing.T) {
	path := writeShapefile(t, []talukRecord{
		{Polygon: square(74, 14, 75, 15), KGISTalukN: "Hubli"},
		{Polygon: square(76, 14, 77, 15), KGISTalukN: "Gadag"},
		{Polygon: square(75, 16, 76, 17), KGISTalukN: "Hubli"},
		{Polygon: square(78, 14, 79, 15), KGISTalukN: ""},
	}, "")

	set, err := Load(path, LoadOptions{IDField: "KGISTalukN"})
	require.NoError(t, err)
	require.Equal(t, 2, set.Len())
	assert.Equal(t, "Hubli", set.At(0).ID)
	assert.Equal(t, "Gadag", set.At(1).ID)
	assert.Len(t, set.At(0).Geometry.Polygons(), 2)

	i, ok := set.Locate(75.5, 16.5)
	require.True(t, ok)
	assert.Equal(t, "Hubli", set.At(i).ID)

	_, ok = set.Locate(78.5, 14.5)
	assert.False(t, ok, "rows without an id are skipped")
}

func TestLoadShapefileReprojects(t *testing.T) {
	path := writeShapefile(t, []talukRecord{
		{Polygon: square(74, 14, 75, 15), KGISTalukN: "Dharwad"},
	}, wgs84PRJ)

	set, err := LoadShapefile(path, LoadOptions{IDField: "KGISTalukN"})
	require.NoError(t, err)
	require.Equal(t, 1, set.Len())

	b := set.Bounds()
	assert.InDelta(t, 74, b.Min.X, 1e-6)
	assert.InDelta(t, 14, b.Min.Y, 1e-6)
	assert.InDelta(t, 75, b.Max.X, 1e-6)
	assert.InDelta(t, 15, b.Max.Y, 1e-6)

	i, ok := set.Locate(74.5, 14.5)
	require.True(t, ok)
	assert.Equal(t, "Dharwad", set.At(i).ID)
}

func TestLoadShapefileSimplifies(t *testing.T) {
	recs := []talukRecord{{Polygon: jagged(74, 14, 1), KGISTalukN: "Kalghatgi"}}

	raw, err := LoadShapefile(writeShapefile(t, recs, ""), LoadOptions{IDField: "KGISTalukN"})
	require.NoError(t, err)
	simplified, err := LoadShapefile(writeShapefile(t, recs, ""), LoadOptions{IDField: "KGISTalukN", SimplifyTolerance: 0.01})
	require.NoError(t, err)

	before, after := vertices(raw.At(0).Geometry), vertices(simplified.At(0).Geometry)
	assert.Less(t, after, before)

	i, ok := simplified.Locate(74.5, 14.5)
	require.True(t, ok)
	assert.Equal(t, "Kalghatgi", simplified.At(i).ID)
}

func TestRowRegion(t *testing.T) {
	_, err := rowRegion("Hubli", nil, nil, 0)
	assert.ErrorIs(t, err, ErrNullShape)

	_, err = rowRegion("Hubli", geom.Point{X: 75, Y: 15}, nil, 0)
	assert.ErrorIs(t, err, ErrNotPolygonal)

	r, err := rowRegion("Hubli", square(74, 14, 75, 15), nil, 0)
	require.NoError(t, err)
	assert.Equal(t, "Hubli", r.ID)
	assert.InDelta(t, 74, r.Geometry.Bounds().Min.X, 1e-9)
}
