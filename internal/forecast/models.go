package forecast

import (
	"fmt"
	"math"
	"time"
)

// Variable identifies one of the precomputed daily fields.
type Variable string

const (
	MaxTemperature   Variable = "max_2t"
	MinTemperature   Variable = "min_2t"
	AvgTemperature   Variable = "avg_2t"
	AvgHumidity      Variable = "avg_rh"
	MaxHeatIndex     Variable = "max_hi"
	AvgHeatIndex     Variable = "avg_hi"
	DiurnalTempRange Variable = "dtr"
)

// VariableInfo pairs a variable id with its display label.
type VariableInfo struct {
	ID    Variable `json:"value"`
	Label string   `json:"label"`
}

// Variables is the fixed, ordered catalogue offered to clients.
var Variables = []VariableInfo{
	{ID: MaxTemperature, Label: "Max Temperature"},
	{ID: MinTemperature, Label: "Min Temperature"},
	{ID: AvgTemperature, Label: "Avg Temperature"},
	{ID: AvgHumidity, Label: "Avg Relative Humidity"},
	{ID: MaxHeatIndex, Label: "Max Heat Index"},
	{ID: AvgHeatIndex, Label: "Avg Heat Index"},
	{ID: DiurnalTempRange, Label: "Diurnal Temp Range"},
}

// ParseVariable resolves a client supplied id.
func ParseVariable(s string) (Variable, error) {
	for _, v := range Variables {
		if string(v.ID) == s {
			return v.ID, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownVariable, s)
}

// Label returns the display label, or the raw id if unknown.
func (v Variable) Label() string {
	for _, info := range Variables {
		if info.ID == v {
			return info.Label
		}
	}
	return string(v)
}

// DayLabel formats a day the way the date slider shows it ("Feb28").
func DayLabel(t time.Time) string {
	return t.UTC().Format("Jan02")
}

// Grid is a 2D scalar field, row-major by latitude. NaN marks an undefined
// cell. A Grid returned by Dataset.Sample shares storage with the dataset
// and must be treated as read-only.
type Grid struct {
	lat    []float64
	lon    []float64
	values []float64
}

// NewGrid validates the axes and the value count.
func NewGrid(lat, lon, values []float64) (Grid, error) {
	if err := checkAxis("latitude", lat); err != nil {
		return Grid{}, err
	}
	if err := checkAxis("longitude", lon); err != nil {
		return Grid{}, err
	}
	if len(values) != len(lat)*len(lon) {
		return Grid{}, fmt.Errorf("%w: %d values for %dx%d axes", ErrShapeMismatch, len(values), len(lat), len(lon))
	}
	return Grid{lat: lat, lon: lon, values: values}, nil
}

// Shape returns (len(lat), len(lon)).
func (g Grid) Shape() (int, int) {
	return len(g.lat), len(g.lon)
}

// At returns the value at latitude index i and longitude index j.
func (g Grid) At(i, j int) float64 {
	return g.values[i*len(g.lon)+j]
}

func (g Grid) Lat(i int) float64 { return g.lat[i] }
func (g Grid) Lon(j int) float64 { return g.lon[j] }

// Defined counts the cells holding a value.
func (g Grid) Defined() int {
	n := 0
	for _, v := range g.values {
		if !math.IsNaN(v) {
			n++
		}
	}
	return n
}

// Range returns the min and max of the defined cells. ok is false when
// every cell is undefined.
func (g Grid) Range() (lo, hi float64, ok bool) {
	lo, hi = math.Inf(1), math.Inf(-1)
	for _, v := range g.values {
		if math.IsNaN(v) {
			continue
		}
		ok = true
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	if !ok {
		return math.NaN(), math.NaN(), false
	}
	return lo, hi, true
}

func checkAxis(name string, axis []float64) error {
	if len(axis) == 0 {
		return fmt.Errorf("%w: empty %s axis", ErrShapeMismatch, name)
	}
	if len(axis) == 1 {
		return nil
	}
	increasing := axis[1] > axis[0]
	for i := 1; i < len(axis); i++ {
		if increasing && !(axis[i] > axis[i-1]) || !increasing && !(axis[i] < axis[i-1]) {
			return fmt.Errorf("%w: %s axis is not strictly monotonic at index %d", ErrShapeMismatch, name, i)
		}
	}
	return nil
}
