package geocode

import (
	"context"
	"errors"
	"testing"

	"github.com/kelvins/geocoder"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGeocodeCachesByPlace(t *testing.T) {
	calls := 0
	c := newClient(Config{State: "Karnataka", Country: "India"}, func(a geocoder.Address) (geocoder.Location, error) {
		calls++
		assert.Equal(t, "Dharwad", a.City)
		assert.Equal(t, "Karnataka", a.State)
		return geocoder.Location{Latitude: 15.46, Longitude: 75.01}, nil
	})

	lat, lon, err := c.Geocode(context.Background(), " Dharwad ")
	require.NoError(t, err)
	assert.Equal(t, 15.46, lat)
	assert.Equal(t, 75.01, lon)

	lat, _, err = c.Geocode(context.Background(), "DHARWAD")
	require.NoError(t, err)
	assert.Equal(t, 15.46, lat)
	assert.Equal(t, 1, calls)
}

func TestGeocodeErrors(t *testing.T) {
	c := newClient(Config{}, func(geocoder.Address) (geocoder.Location, error) {
		return geocoder.Location{}, errors.New("ZERO_RESULTS")
	})

	_, _, err := c.Geocode(context.Background(), "  ")
	assert.ErrorIs(t, err, ErrEmptyPlace)

	_, _, err = c.Geocode(context.Background(), "Atlantis")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestNewWithoutKey(t *testing.T) {
	assert.Nil(t, New(Config{}))
}
