package forecast

import (
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
)

// Series is the raw sub-daily input, one slice per timestep, each holding
// len(Lat)*len(Lon) values row-major by latitude.
type Series struct {
	Times []time.Time
	Lat   []float64
	Lon   []float64

	Temperature [][]float64
	Humidity    [][]float64
	// HeatIndex may be nil, in which case it is derived from Temperature
	// and Humidity.
	HeatIndex [][]float64

	// TemperatureUnits is the CF units string of Temperature ("K", "degC", ...).
	TemperatureUnits string
}

// Dataset holds the daily fields derived from a Series. It is built once
// per load and never mutated afterwards.
type Dataset struct {
	lat    []float64
	lon    []float64
	days   []time.Time
	fields map[Variable][][]float64
}

// NewDataset validates the series and precomputes every catalogue variable.
func NewDataset(s Series) (*Dataset, error) {
	if _, err := NewGrid(s.Lat, s.Lon, make([]float64, len(s.Lat)*len(s.Lon))); err != nil {
		return nil, err
	}
	nCells := len(s.Lat) * len(s.Lon)
	if s.Temperature == nil {
		return nil, fmt.Errorf("%w: temperature", ErrMissingField)
	}
	if s.Humidity == nil {
		return nil, fmt.Errorf("%w: relative humidity", ErrMissingField)
	}
	if s.HeatIndex == nil {
		logrus.Info("forecast: heat index not present in source, deriving from temperature and humidity")
		hi, err := deriveHeatIndex(s.Temperature, s.Humidity, s.TemperatureUnits)
		if err != nil {
			return nil, err
		}
		s.HeatIndex = hi
	}
	for name, f := range map[string][][]float64{"temperature": s.Temperature, "humidity": s.Humidity, "heat index": s.HeatIndex} {
		if err := checkSteps(name, f, len(s.Times), nCells); err != nil {
			return nil, err
		}
	}

	days, bins, err := dayBins(s.Times)
	if err != nil {
		return nil, err
	}

	t := resampleDaily(s.Temperature, bins, len(days), nCells)
	rh := resampleDaily(s.Humidity, bins, len(days), nCells)
	hi := resampleDaily(s.HeatIndex, bins, len(days), nCells)

	ds := &Dataset{
		lat:  append([]float64(nil), s.Lat...),
		lon:  append([]float64(nil), s.Lon...),
		days: days,
		fields: map[Variable][][]float64{
			MaxTemperature:   t.max,
			MinTemperature:   t.min,
			AvgTemperature:   t.mean,
			AvgHumidity:      rh.mean,
			MaxHeatIndex:     hi.max,
			AvgHeatIndex:     hi.mean,
			DiurnalTempRange: difference(t.max, t.min),
		},
	}
	logrus.WithFields(logrus.Fields{
		"steps": len(s.Times),
		"days":  len(days),
		"lat":   len(s.Lat),
		"lon":   len(s.Lon),
	}).Info("forecast: dataset built")
	return ds, nil
}

// Sample returns the field of variable v on day index d.
func (ds *Dataset) Sample(v Variable, d int) (Grid, error) {
	field, ok := ds.fields[v]
	if !ok {
		return Grid{}, fmt.Errorf("%w: %q", ErrUnknownVariable, v)
	}
	if d < 0 || d >= len(ds.days) {
		return Grid{}, fmt.Errorf("%w: %d not in [0, %d)", ErrOutOfRange, d, len(ds.days))
	}
	return Grid{lat: ds.lat, lon: ds.lon, values: field[d]}, nil
}

// NumDays is the length of the daily time axis.
func (ds *Dataset) NumDays() int { return len(ds.days) }

// Day returns the start of day index d.
func (ds *Dataset) Day(d int) (time.Time, error) {
	if d < 0 || d >= len(ds.days) {
		return time.Time{}, fmt.Errorf("%w: %d not in [0, %d)", ErrOutOfRange, d, len(ds.days))
	}
	return ds.days[d], nil
}

// Days returns a copy of the daily time axis.
func (ds *Dataset) Days() []time.Time {
	return append([]time.Time(nil), ds.days...)
}

// DayLabels formats every day like DayLabel.
func (ds *Dataset) DayLabels() []string {
	labels := make([]string, len(ds.days))
	for i, d := range ds.days {
		labels[i] = DayLabel(d)
	}
	return labels
}

// Shape returns the fixed (lat, lon) axis lengths.
func (ds *Dataset) Shape() (int, int) { return len(ds.lat), len(ds.lon) }

func checkSteps(name string, steps [][]float64, nTimes, nCells int) error {
	if len(steps) != nTimes {
		return fmt.Errorf("%w: %s has %d steps, time axis has %d", ErrShapeMismatch, name, len(steps), nTimes)
	}
	for i, s := range steps {
		if len(s) != nCells {
			return fmt.Errorf("%w: %s step %d has %d cells, want %d", ErrShapeMismatch, name, i, len(s), nCells)
		}
	}
	return nil
}
