package regions

import (
	"errors"
	"fmt"

	"github.com/ctessum/geom"
	"github.com/ctessum/geom/index/rtree"
	"github.com/sirupsen/logrus"
)

var (
	// ErrNoRegions is returned when a source yields no usable polygons.
	ErrNoRegions = errors.New("no regions loaded")
	// ErrNotPolygonal is returned for features whose geometry has no area.
	ErrNotPolygonal = errors.New("geometry is not polygonal")
	// ErrNullShape is returned for shapefile records without geometry.
	ErrNullShape = errors.New("null shape")
)

// Region is one administrative unit in lon/lat degrees.
type Region struct {
	ID       string
	Geometry geom.Polygonal
}

// indexed is the R-tree entry; it carries the load order so that
// overlapping candidates resolve deterministically.
type indexed struct {
	geom.Polygonal
	order int
}

// Set is an immutable, ordered collection of regions with a spatial index.
// Geometries are shared with callers and must be treated as read-only.
type Set struct {
	regions []Region
	byID    map[string]int
	tree    *rtree.Rtree
}

// NewSet builds a Set. Regions sharing an ID are dissolved into one
// multi-part region at the position of the first occurrence.
func NewSet(in []Region) (*Set, error) {
	s := &Set{
		byID: make(map[string]int, len(in)),
		tree: rtree.NewTree(25, 50),
	}
	for _, r := range in {
		if r.Geometry == nil {
			return nil, fmt.Errorf("%w: region %q", ErrNotPolygonal, r.ID)
		}
		if i, ok := s.byID[r.ID]; ok {
			s.regions[i].Geometry = dissolve(s.regions[i].Geometry, r.Geometry)
			continue
		}
		s.byID[r.ID] = len(s.regions)
		s.regions = append(s.regions, r)
	}
	if len(s.regions) == 0 {
		return nil, ErrNoRegions
	}
	if dup := len(in) - len(s.regions); dup > 0 {
		logrus.Debugf("regions: dissolved %d duplicate-id parts", dup)
	}
	for i, r := range s.regions {
		s.tree.Insert(&indexed{Polygonal: r.Geometry, order: i})
	}
	return s, nil
}

func dissolve(a, b geom.Polygonal) geom.Polygonal {
	mp := make(geom.MultiPolygon, 0, len(a.Polygons())+len(b.Polygons()))
	mp = append(mp, a.Polygons()...)
	mp = append(mp, b.Polygons()...)
	return mp
}

// Len is the number of distinct regions.
func (s *Set) Len() int { return len(s.regions) }

// At returns the region at load position i.
func (s *Set) At(i int) Region { return s.regions[i] }

// Regions returns the regions in load order.
func (s *Set) Regions() []Region {
	return append([]Region(nil), s.regions...)
}

// Index returns the load position of id.
func (s *Set) Index(id string) (int, bool) {
	i, ok := s.byID[id]
	return i, ok
}

// Bounds is the extent of every region.
func (s *Set) Bounds() *geom.Bounds {
	b := geom.NewBounds()
	for _, r := range s.regions {
		b.Extend(r.Geometry.Bounds())
	}
	return b
}

// Locate returns the load position of the region strictly containing
// (lon, lat). Points on a boundary are not contained. When regions
// overlap the earliest loaded one wins.
func (s *Set) Locate(lon, lat float64) (int, bool) {
	p := geom.Point{X: lon, Y: lat}
	best := -1
	for _, c := range s.tree.SearchIntersect(p.Bounds()) {
		e := c.(*indexed)
		if best >= 0 && e.order > best {
			continue
		}
		if contains(e.Polygonal, p) {
			best = e.order
		}
	}
	return best, best >= 0
}

func contains(poly geom.Polygonal, p geom.Point) bool {
	for _, part := range poly.Polygons() {
		if p.Within(part) == geom.Inside {
			return true
		}
	}
	return false
}
