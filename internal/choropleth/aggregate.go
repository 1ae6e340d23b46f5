package choropleth

import (
	"math"

	"github.com/i474232898/heat-stress-dashboard/internal/forecast"
	"github.com/i474232898/heat-stress-dashboard/internal/regions"
)

// Sample is one defined grid cell.
type Sample struct {
	Lon   float64 `json:"lon"`
	Lat   float64 `json:"lat"`
	Value float64 `json:"value"`
}

// Aggregate summarises the samples that fall inside one region.
type Aggregate struct {
	Mean  float64 `json:"mean"`
	Count int     `json:"count"`
	Min   float64 `json:"min"`
	Max   float64 `json:"max"`
}

// Samples flattens the grid to one point per defined cell, latitude-major.
func Samples(g forecast.Grid) []Sample {
	nLat, nLon := g.Shape()
	out := make([]Sample, 0, nLat*nLon)
	for i := 0; i < nLat; i++ {
		for j := 0; j < nLon; j++ {
			v := g.At(i, j)
			if math.IsNaN(v) {
				continue
			}
			out = append(out, Sample{Lon: g.Lon(j), Lat: g.Lat(i), Value: v})
		}
	}
	return out
}

// AggregateGrid assigns every defined cell to the region strictly
// containing it and averages per region. Regions without samples are
// absent from the result.
func AggregateGrid(g forecast.Grid, set *regions.Set) map[string]Aggregate {
	type acc struct {
		sum      float64
		n        int
		min, max float64
	}
	accs := make(map[int]*acc)

	for _, s := range Samples(g) {
		idx, ok := set.Locate(s.Lon, s.Lat)
		if !ok {
			continue
		}
		a, ok := accs[idx]
		if !ok {
			a = &acc{min: s.Value, max: s.Value}
			accs[idx] = a
		}
		a.sum += s.Value
		a.n++
		a.min = math.Min(a.min, s.Value)
		a.max = math.Max(a.max, s.Value)
	}

	out := make(map[string]Aggregate, len(accs))
	for idx, a := range accs {
		out[set.At(idx).ID] = Aggregate{
			Mean:  a.sum / float64(a.n),
			Count: a.n,
			Min:   a.min,
			Max:   a.max,
		}
	}
	return out
}
