package forecast

import (
	"errors"
	"fmt"
	"math"
	"reflect"
	"strings"
	"time"

	"github.com/batchatco/go-native-netcdf/netcdf"
	"github.com/batchatco/go-native-netcdf/netcdf/api"
	"github.com/sirupsen/logrus"
)

// NetCDFConfig names the variables read from a forecast file.
type NetCDFConfig struct {
	TimeVar      string
	LatVar       string
	LonVar       string
	TempVar      string
	HumidityVar  string
	HeatIndexVar string
}

// DefaultNetCDFConfig matches the AIFS heat-stress product layout.
func DefaultNetCDFConfig() NetCDFConfig {
	return NetCDFConfig{
		TimeVar:      "time",
		LatVar:       "latitude",
		LonVar:       "longitude",
		TempVar:      "2t",
		HumidityVar:  "rh",
		HeatIndexVar: "hi",
	}
}

// LoadNetCDF reads a (time, latitude, longitude) forecast file and builds
// its daily Dataset. Both classic CDF and NetCDF-4/HDF5 files are accepted.
func LoadNetCDF(path string, cfg NetCDFConfig) (*Dataset, error) {
	nc, err := netcdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer nc.Close()

	s, err := readSeries(nc, cfg)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return NewDataset(s)
}

func readSeries(nc api.Group, cfg NetCDFConfig) (Series, error) {
	var s Series

	latVar, err := nc.GetVariable(cfg.LatVar)
	if err != nil {
		return s, fmt.Errorf("%w: %s: %v", ErrMissingField, cfg.LatVar, err)
	}
	if s.Lat, err = toFloats(latVar.Values); err != nil {
		return s, fmt.Errorf("%s: %w", cfg.LatVar, err)
	}
	lonVar, err := nc.GetVariable(cfg.LonVar)
	if err != nil {
		return s, fmt.Errorf("%w: %s: %v", ErrMissingField, cfg.LonVar, err)
	}
	if s.Lon, err = toFloats(lonVar.Values); err != nil {
		return s, fmt.Errorf("%s: %w", cfg.LonVar, err)
	}

	timeVar, err := nc.GetVariable(cfg.TimeVar)
	if err != nil {
		return s, fmt.Errorf("%w: %s: %v", ErrMissingField, cfg.TimeVar, err)
	}
	raw, err := toFloats(timeVar.Values)
	if err != nil {
		return s, fmt.Errorf("%s: %w", cfg.TimeVar, err)
	}
	units, _ := attrString(timeVar.Attributes, "units")
	if s.Times, err = DecodeCFTimes(raw, units); err != nil {
		return s, fmt.Errorf("%s: %w", cfg.TimeVar, err)
	}

	dims := [3]string{cfg.TimeVar, cfg.LatVar, cfg.LonVar}
	nLat, nLon := len(s.Lat), len(s.Lon)
	if s.Temperature, err = readField(nc, cfg.TempVar, dims, nLat, nLon); err != nil {
		return s, err
	}
	tv, _ := nc.GetVariable(cfg.TempVar)
	s.TemperatureUnits, _ = attrString(tv.Attributes, "units")

	if s.Humidity, err = readField(nc, cfg.HumidityVar, dims, nLat, nLon); err != nil {
		return s, err
	}
	if cfg.HeatIndexVar != "" {
		s.HeatIndex, err = readField(nc, cfg.HeatIndexVar, dims, nLat, nLon)
		if err != nil && !errors.Is(err, ErrMissingField) {
			return s, err
		}
	}
	return s, nil
}

func readField(nc api.Group, name string, dims [3]string, nLat, nLon int) ([][]float64, error) {
	vr, err := nc.GetVariable(name)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrMissingField, name, err)
	}
	shape, err := fieldShapeOf(vr.Dimensions, dims, nLat, nLon)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	if shape.transposed {
		logrus.Debugf("forecast: %s is stored lon-major, transposing", name)
	}
	steps, err := flattenField(vr.Values, packingOf(vr.Attributes), shape)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	return steps, nil
}

// fieldShape is the stored layout of one time step. rows and cols are in
// storage order; transposed means the field is (time, lon, lat).
type fieldShape struct {
	rows, cols int
	transposed bool
}

func fieldShapeOf(got []string, want [3]string, nLat, nLon int) (fieldShape, error) {
	if len(got) != 3 || got[0] != want[0] {
		return fieldShape{}, fmt.Errorf("%w: dimensions %v, want %v", ErrShapeMismatch, got, want)
	}
	switch {
	case got[1] == want[1] && got[2] == want[2]:
		return fieldShape{rows: nLat, cols: nLon}, nil
	case got[1] == want[2] && got[2] == want[1]:
		return fieldShape{rows: nLon, cols: nLat, transposed: true}, nil
	}
	return fieldShape{}, fmt.Errorf("%w: dimensions %v, want %v", ErrShapeMismatch, got, want)
}

// packing carries the CF attributes that turn stored values into physical ones.
type packing struct {
	scale  float64
	offset float64
	fill   []float64
}

func packingOf(attrs api.AttributeMap) packing {
	p := packing{scale: 1}
	if v, ok := attrFloat(attrs, "scale_factor"); ok {
		p.scale = v
	}
	if v, ok := attrFloat(attrs, "add_offset"); ok {
		p.offset = v
	}
	for _, k := range []string{"_FillValue", "missing_value"} {
		if v, ok := attrFloat(attrs, k); ok {
			p.fill = append(p.fill, v)
		}
	}
	return p
}

func (p packing) unpack(raw float64) float64 {
	if math.IsNaN(raw) {
		return raw
	}
	for _, f := range p.fill {
		if raw == f {
			return math.NaN()
		}
	}
	return raw*p.scale + p.offset
}

type number interface {
	~float32 | ~float64 | ~int8 | ~int16 | ~int32 | ~int64 | ~uint8 | ~uint16 | ~uint32 | ~uint64
}

// flatten returns one lat-major slice per time step.
func flatten[T number](v [][][]T, p packing, shape fieldShape) ([][]float64, error) {
	steps := make([][]float64, len(v))
	for t, plane := range v {
		if len(plane) != shape.rows {
			return nil, fmt.Errorf("%w: step %d has %d rows, want %d", ErrShapeMismatch, t, len(plane), shape.rows)
		}
		cells := make([]float64, shape.rows*shape.cols)
		for r, row := range plane {
			if len(row) != shape.cols {
				return nil, fmt.Errorf("%w: step %d row %d has %d values, want %d", ErrShapeMismatch, t, r, len(row), shape.cols)
			}
			for c, x := range row {
				i := r*shape.cols + c
				if shape.transposed {
					i = c*shape.rows + r
				}
				cells[i] = p.unpack(float64(x))
			}
		}
		steps[t] = cells
	}
	return steps, nil
}

func flattenField(values interface{}, p packing, shape fieldShape) ([][]float64, error) {
	switch v := values.(type) {
	case [][][]float32:
		return flatten(v, p, shape)
	case [][][]float64:
		return flatten(v, p, shape)
	case [][][]int8:
		return flatten(v, p, shape)
	case [][][]int16:
		return flatten(v, p, shape)
	case [][][]int32:
		return flatten(v, p, shape)
	case [][][]int64:
		return flatten(v, p, shape)
	case [][][]uint8:
		return flatten(v, p, shape)
	case [][][]uint16:
		return flatten(v, p, shape)
	case [][][]uint32:
		return flatten(v, p, shape)
	case [][][]uint64:
		return flatten(v, p, shape)
	}
	return nil, fmt.Errorf("unsupported field type %T", values)
}

// toFloats converts a 1D numeric variable to float64.
func toFloats(values interface{}) ([]float64, error) {
	rv := reflect.ValueOf(values)
	if rv.Kind() != reflect.Slice {
		if f, ok := scalarFloat(rv); ok {
			return []float64{f}, nil
		}
		return nil, fmt.Errorf("unsupported axis type %T", values)
	}
	out := make([]float64, rv.Len())
	for i := range out {
		f, ok := scalarFloat(rv.Index(i))
		if !ok {
			return nil, fmt.Errorf("unsupported axis element type %s", rv.Index(i).Type())
		}
		out[i] = f
	}
	return out, nil
}

func scalarFloat(rv reflect.Value) (float64, bool) {
	switch rv.Kind() {
	case reflect.Float32, reflect.Float64:
		return rv.Float(), true
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(rv.Int()), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return float64(rv.Uint()), true
	}
	return 0, false
}

func attrFloat(attrs api.AttributeMap, key string) (float64, bool) {
	if attrs == nil {
		return 0, false
	}
	v, ok := attrs.Get(key)
	if !ok {
		return 0, false
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Slice {
		if rv.Len() == 0 {
			return 0, false
		}
		rv = rv.Index(0)
	}
	return scalarFloat(rv)
}

func attrString(attrs api.AttributeMap, key string) (string, bool) {
	if attrs == nil {
		return "", false
	}
	v, ok := attrs.Get(key)
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

var cfReferenceLayouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05Z07:00",
	time.RFC3339,
	"2006-01-02 15:04",
	"2006-01-02T15:04",
	"2006-01-02",
}

// DecodeCFTimes converts CF "<unit> since <reference>" offsets to UTC times.
func DecodeCFTimes(raw []float64, units string) ([]time.Time, error) {
	unit, ref, ok := strings.Cut(strings.TrimSpace(units), " since ")
	if !ok {
		return nil, fmt.Errorf("time units %q are not of the form '<unit> since <date>'", units)
	}

	var step time.Duration
	switch strings.ToLower(strings.TrimSpace(unit)) {
	case "seconds", "second", "secs", "sec", "s":
		step = time.Second
	case "minutes", "minute", "mins", "min":
		step = time.Minute
	case "hours", "hour", "hrs", "hr", "h":
		step = time.Hour
	case "days", "day", "d":
		step = 24 * time.Hour
	default:
		return nil, fmt.Errorf("unsupported time unit %q", unit)
	}

	ref = strings.TrimSpace(ref)
	ref = strings.TrimSuffix(ref, " UTC")
	ref = strings.TrimSuffix(ref, "Z")
	var base time.Time
	var err error
	for _, layout := range cfReferenceLayouts {
		if base, err = time.Parse(layout, ref); err == nil {
			break
		}
	}
	if err != nil {
		return nil, fmt.Errorf("unparseable reference date %q", ref)
	}

	times := make([]time.Time, len(raw))
	for i, v := range raw {
		times[i] = base.Add(time.Duration(v * float64(step))).UTC()
	}
	return times, nil
}
