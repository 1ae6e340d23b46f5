package choropleth

import (
	"errors"

	"github.com/i474232898/heat-stress-dashboard/internal/forecast"
)

var (
	// ErrUnknownVariable and ErrOutOfRange come from the sampler.
	ErrUnknownVariable = forecast.ErrUnknownVariable
	ErrOutOfRange      = forecast.ErrOutOfRange

	// ErrEmptySelection is returned when no variable was selected.
	ErrEmptySelection = errors.New("no variable selected")
	// ErrNoData is returned when every sample of the requested slice is undefined.
	ErrNoData = errors.New("no defined data for selection")
	// ErrNotLoaded is returned before the first snapshot is installed.
	ErrNotLoaded = errors.New("dataset not loaded")
	// ErrNoGeocoder is returned for place lookups when geocoding is disabled.
	ErrNoGeocoder = errors.New("place lookup is not configured")
)
