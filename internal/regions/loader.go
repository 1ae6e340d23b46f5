package regions

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/ctessum/geom"
	"github.com/ctessum/geom/encoding/geojson"
	"github.com/ctessum/geom/encoding/shp"
	"github.com/ctessum/geom/proj"
	"github.com/sirupsen/logrus"
)

// WGS84 is the reference system every region is returned in.
const WGS84 = "+proj=longlat +datum=WGS84 +no_defs"

// LoadOptions controls how a boundary file is read.
type LoadOptions struct {
	// IDField is the attribute used as region identifier.
	IDField string
	// SimplifyTolerance in degrees; zero keeps the geometry as is.
	SimplifyTolerance float64
}

// Load reads a shapefile or GeoJSON FeatureCollection depending on the
// file extension.
func Load(path string, opts LoadOptions) (*Set, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".shp":
		return LoadShapefile(path, opts)
	case ".geojson", ".json":
		return LoadGeoJSON(path, opts)
	}
	return nil, fmt.Errorf("unsupported region file %q", path)
}

// LoadShapefile reads polygon records keyed by opts.IDField, reprojecting
// them to lon/lat when the shapefile carries a .prj.
func LoadShapefile(path string, opts LoadOptions) (*Set, error) {
	dec, err := shp.NewDecoder(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer dec.Close()

	trans, err := shapefileTransform(dec, path)
	if err != nil {
		return nil, err
	}

	var in []Region
	row := 0
	for {
		g, fields, more := dec.DecodeRowFields(opts.IDField)
		if !more {
			break
		}
		row++
		id := cleanField(fields[opts.IDField])
		if id == "" {
			logrus.Warnf("regions: %s row %d has empty %s, skipped", path, row, opts.IDField)
			continue
		}
		r, err := rowRegion(id, g, trans, opts.SimplifyTolerance)
		switch {
		case errors.Is(err, ErrNullShape), errors.Is(err, ErrNotPolygonal):
			logrus.Warnf("regions: %s row %d: %v", path, row, err)
			continue
		case err != nil:
			return nil, fmt.Errorf("%s row %d: %w", path, row, err)
		}
		in = append(in, r)
	}
	if err := dec.Error(); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}

	set, err := NewSet(in)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	logrus.Infof("regions: loaded %d regions from %s (%d records)", set.Len(), path, row)
	return set, nil
}

// rowRegion builds the region of one shapefile record in lon/lat.
func rowRegion(id string, g geom.Geom, trans proj.Transformer, tolerance float64) (Region, error) {
	if g == nil {
		return Region{}, fmt.Errorf("%w: %q", ErrNullShape, id)
	}
	if trans != nil {
		var err error
		if g, err = g.Transform(trans); err != nil {
			return Region{}, fmt.Errorf("reproject %q: %w", id, err)
		}
	}
	return newRegion(id, g, tolerance)
}

func shapefileTransform(dec *shp.Decoder, path string) (proj.Transformer, error) {
	src, err := dec.SR()
	if err != nil {
		logrus.Warnf("regions: %s has no usable projection (%v), assuming lon/lat", path, err)
		return nil, nil
	}
	dst, err := proj.Parse(WGS84)
	if err != nil {
		return nil, err
	}
	trans, err := src.NewTransform(dst)
	if err != nil {
		return nil, fmt.Errorf("projection of %s: %w", path, err)
	}
	return trans, nil
}

// shapefile DBF values are fixed width and may be NUL padded.
func cleanField(s string) string {
	return strings.TrimSpace(strings.ReplaceAll(s, "\x00", ""))
}

type featureCollection struct {
	Type     string    `json:"type"`
	Features []feature `json:"features"`
}

type feature struct {
	ID         interface{}            `json:"id,omitempty"`
	Geometry   *geojson.Geometry      `json:"geometry"`
	Properties map[string]interface{} `json:"properties"`
}

// LoadGeoJSON reads a lon/lat FeatureCollection. The region id is taken
// from properties[opts.IDField], falling back to the feature id.
func LoadGeoJSON(path string, opts LoadOptions) (*Set, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var fc featureCollection
	if err := json.Unmarshal(b, &fc); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if fc.Type != "FeatureCollection" {
		return nil, fmt.Errorf("%s: expected FeatureCollection, got %q", path, fc.Type)
	}

	in := make([]Region, 0, len(fc.Features))
	for i, f := range fc.Features {
		id := propertyString(f.Properties[opts.IDField])
		if id == "" {
			id = propertyString(f.ID)
		}
		if id == "" || f.Geometry == nil {
			logrus.Warnf("regions: %s feature %d has no id or geometry, skipped", path, i)
			continue
		}
		g, err := geojson.FromGeoJSON(f.Geometry)
		if err != nil {
			return nil, fmt.Errorf("%s feature %d: %w", path, i, err)
		}
		r, err := newRegion(id, g, opts.SimplifyTolerance)
		if err != nil {
			logrus.Warnf("regions: %s feature %d: %v", path, i, err)
			continue
		}
		in = append(in, r)
	}

	set, err := NewSet(in)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	logrus.Infof("regions: loaded %d regions from %s", set.Len(), path)
	return set, nil
}

func propertyString(v interface{}) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	}
	return fmt.Sprint(v)
}

func newRegion(id string, g geom.Geom, tolerance float64) (Region, error) {
	poly, ok := g.(geom.Polygonal)
	if !ok {
		return Region{}, fmt.Errorf("%w: %q is %T", ErrNotPolygonal, id, g)
	}
	if tolerance > 0 {
		if s, ok := poly.Simplify(tolerance).(geom.Polygonal); ok && len(s.Polygons()) > 0 {
			poly = s
		}
	}
	return Region{ID: id, Geometry: poly}, nil
}
