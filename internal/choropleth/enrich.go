package choropleth

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"

	"github.com/ctessum/geom"
	"github.com/ctessum/geom/encoding/geojson"

	"github.com/i474232898/heat-stress-dashboard/internal/regions"
)

// NullFloat marshals NaN as JSON null.
type NullFloat float64

func (f NullFloat) MarshalJSON() ([]byte, error) {
	v := float64(f)
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return []byte("null"), nil
	}
	return json.Marshal(v)
}

func (f *NullFloat) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*f = NullFloat(math.NaN())
		return nil
	}
	var v float64
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	*f = NullFloat(v)
	return nil
}

// Defined reports whether the value is a number.
func (f NullFloat) Defined() bool { return !math.IsNaN(float64(f)) }

// EmptyPolicy decides what happens to regions that received no samples.
type EmptyPolicy int

const (
	// EmptyOmit drops regions without samples.
	EmptyOmit EmptyPolicy = iota
	// EmptyNull keeps them with an undefined value and zero count.
	EmptyNull
)

// ParseEmptyPolicy accepts "omit" (or "") and "null".
func ParseEmptyPolicy(s string) (EmptyPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "omit":
		return EmptyOmit, nil
	case "null":
		return EmptyNull, nil
	}
	return EmptyOmit, fmt.Errorf("unknown empty region policy %q", s)
}

func (p EmptyPolicy) String() string {
	if p == EmptyNull {
		return "null"
	}
	return "omit"
}

// AggregatedRegion is a region joined with its aggregate.
type AggregatedRegion struct {
	ID       string
	Geometry geom.Polygonal
	Value    NullFloat
	Count    int
}

// Enrich joins aggregates onto regions in load order.
func Enrich(set *regions.Set, aggs map[string]Aggregate, policy EmptyPolicy) []AggregatedRegion {
	out := make([]AggregatedRegion, 0, len(aggs))
	for i := 0; i < set.Len(); i++ {
		r := set.At(i)
		a, ok := aggs[r.ID]
		switch {
		case ok:
			out = append(out, AggregatedRegion{ID: r.ID, Geometry: r.Geometry, Value: NullFloat(a.Mean), Count: a.Count})
		case policy == EmptyNull:
			out = append(out, AggregatedRegion{ID: r.ID, Geometry: r.Geometry, Value: NullFloat(math.NaN())})
		}
	}
	return out
}

// FeatureCollection is a GeoJSON FeatureCollection.
type FeatureCollection struct {
	Type     string    `json:"type"`
	Features []Feature `json:"features"`
}

// Feature is a GeoJSON Feature with a string id.
type Feature struct {
	Type       string                 `json:"type"`
	ID         string                 `json:"id"`
	Geometry   *geojson.Geometry      `json:"geometry"`
	Properties map[string]interface{} `json:"properties"`
}

// NewFeatureCollection renders enriched regions. Each feature is keyed by
// the region id both as feature id and as properties[idField].
func NewFeatureCollection(recs []AggregatedRegion, idField string) (*FeatureCollection, error) {
	fc := &FeatureCollection{Type: "FeatureCollection", Features: make([]Feature, 0, len(recs))}
	for _, r := range recs {
		g, err := geojson.ToGeoJSON(r.Geometry)
		if err != nil {
			return nil, fmt.Errorf("encode region %q: %w", r.ID, err)
		}
		fc.Features = append(fc.Features, Feature{
			Type:     "Feature",
			ID:       r.ID,
			Geometry: g,
			Properties: map[string]interface{}{
				idField: r.ID,
				"value": r.Value,
				"count": r.Count,
			},
		})
	}
	return fc, nil
}

// NewBoundaryCollection renders region outlines without values.
func NewBoundaryCollection(set *regions.Set, idField string) (*FeatureCollection, error) {
	fc := &FeatureCollection{Type: "FeatureCollection", Features: make([]Feature, 0, set.Len())}
	for _, r := range set.Regions() {
		g, err := geojson.ToGeoJSON(r.Geometry)
		if err != nil {
			return nil, fmt.Errorf("encode region %q: %w", r.ID, err)
		}
		fc.Features = append(fc.Features, Feature{
			Type:       "Feature",
			ID:         r.ID,
			Geometry:   g,
			Properties: map[string]interface{}{idField: r.ID},
		})
	}
	return fc, nil
}
