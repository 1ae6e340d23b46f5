package geocode

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/kelvins/geocoder"
	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"

	"github.com/i474232898/heat-stress-dashboard/internal/source"
)

var (
	ErrEmptyPlace = errors.New("empty place name")
	ErrNotFound   = errors.New("place not found")
)

// Config narrows lookups to one state and country.
type Config struct {
	APIKey  string
	State   string
	Country string
}

type lookupFunc func(geocoder.Address) (geocoder.Location, error)

// Client resolves place names through the Google geocoding API behind a
// circuit breaker. Results are kept for the life of the process.
type Client struct {
	cfg    Config
	cb     *gobreaker.CircuitBreaker
	lookup lookupFunc

	mu    sync.RWMutex
	cache map[string][2]float64
}

// New returns nil when no API key is configured.
func New(cfg Config) *Client {
	if cfg.APIKey == "" {
		return nil
	}
	geocoder.ApiKey = cfg.APIKey
	return newClient(cfg, geocoder.Geocoding)
}

func newClient(cfg Config, lookup lookupFunc) *Client {
	return &Client{
		cfg:    cfg,
		cb:     source.NewBreaker("geocoder"),
		lookup: lookup,
		cache:  make(map[string][2]float64),
	}
}

// Geocode returns the coordinates of place.
func (c *Client) Geocode(ctx context.Context, place string) (float64, float64, error) {
	place = strings.TrimSpace(place)
	if place == "" {
		return 0, 0, ErrEmptyPlace
	}
	key := strings.ToLower(place)

	c.mu.RLock()
	ll, ok := c.cache[key]
	c.mu.RUnlock()
	if ok {
		return ll[0], ll[1], nil
	}
	if err := ctx.Err(); err != nil {
		return 0, 0, err
	}

	res, err := c.cb.Execute(func() (interface{}, error) {
		return c.lookup(geocoder.Address{City: place, State: c.cfg.State, Country: c.cfg.Country})
	})
	if err != nil {
		logrus.Warnf("geocode: %q: %v", place, err)
		return 0, 0, fmt.Errorf("%w: %v", ErrNotFound, err)
	}
	loc := res.(geocoder.Location)
	if loc.Latitude == 0 && loc.Longitude == 0 {
		return 0, 0, ErrNotFound
	}

	c.mu.Lock()
	c.cache[key] = [2]float64{loc.Latitude, loc.Longitude}
	c.mu.Unlock()
	return loc.Latitude, loc.Longitude, nil
}
