package forecast

import (
	"fmt"
	"math"
	"strings"

	"github.com/sirupsen/logrus"
)

type tempUnit int

const (
	kelvin tempUnit = iota
	celsius
	fahrenheit
)

func parseTempUnit(units string) (tempUnit, error) {
	switch strings.ToLower(strings.TrimSpace(units)) {
	case "":
		logrus.Warn("forecast: temperature has no units attribute, assuming kelvin")
		return kelvin, nil
	case "k", "kelvin", "kelvins":
		return kelvin, nil
	case "c", "degc", "deg_c", "celsius", "degrees_celsius", "°c":
		return celsius, nil
	case "f", "degf", "deg_f", "fahrenheit", "degrees_fahrenheit", "°f":
		return fahrenheit, nil
	}
	return 0, fmt.Errorf("unsupported temperature units %q", units)
}

func toFahrenheit(v float64, u tempUnit) float64 {
	switch u {
	case kelvin:
		return (v-273.15)*9/5 + 32
	case celsius:
		return v*9/5 + 32
	}
	return v
}

func fromFahrenheit(f float64, u tempUnit) float64 {
	switch u {
	case kelvin:
		return (f-32)*5/9 + 273.15
	case celsius:
		return (f - 32) * 5 / 9
	}
	return f
}

// HeatIndexF is the NWS heat index in °F for air temperature tf (°F) and
// relative humidity rh (%), using the Rothfusz regression with the NWS
// low/high humidity adjustments.
func HeatIndexF(tf, rh float64) float64 {
	simple := 0.5 * (tf + 61.0 + (tf-68.0)*1.2 + rh*0.094)
	if (simple+tf)/2 < 80 {
		return simple
	}
	hi := -42.379 + 2.04901523*tf + 10.14333127*rh -
		0.22475541*tf*rh - 0.00683783*tf*tf -
		0.05481717*rh*rh + 0.00122874*tf*tf*rh +
		0.00085282*tf*rh*rh - 0.00000199*tf*tf*rh*rh
	switch {
	case rh < 13 && tf >= 80 && tf <= 112:
		hi -= ((13 - rh) / 4) * math.Sqrt((17-math.Abs(tf-95))/17)
	case rh > 85 && tf >= 80 && tf <= 87:
		hi += ((rh - 85) / 10) * ((87 - tf) / 5)
	}
	return hi
}

// deriveHeatIndex computes a heat index field in the temperature's units.
func deriveHeatIndex(temp, rh [][]float64, units string) ([][]float64, error) {
	u, err := parseTempUnit(units)
	if err != nil {
		return nil, err
	}
	if len(temp) != len(rh) {
		return nil, fmt.Errorf("%w: temperature has %d steps, humidity %d", ErrShapeMismatch, len(temp), len(rh))
	}
	out := make([][]float64, len(temp))
	for s := range temp {
		if len(temp[s]) != len(rh[s]) {
			return nil, fmt.Errorf("%w: step %d temperature/humidity cell counts differ", ErrShapeMismatch, s)
		}
		out[s] = make([]float64, len(temp[s]))
		for c, t := range temp[s] {
			h := rh[s][c]
			if math.IsNaN(t) || math.IsNaN(h) {
				out[s][c] = math.NaN()
				continue
			}
			out[s][c] = fromFahrenheit(HeatIndexF(toFahrenheit(t, u), h), u)
		}
	}
	return out, nil
}
