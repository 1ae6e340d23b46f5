package choropleth

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"

	"github.com/i474232898/heat-stress-dashboard/internal/forecast"
	"github.com/i474232898/heat-stress-dashboard/internal/metrics"
)

// Result is the memoised aggregation of one (snapshot, variable, day).
type Result struct {
	Version    string               `json:"version"`
	Variable   forecast.Variable    `json:"variable"`
	Day        int                  `json:"day"`
	Aggregates map[string]Aggregate `json:"aggregates"`
}

// Cache memoises aggregation results. Implementations must be safe for
// concurrent use; a failing backend reports a miss.
type Cache interface {
	Get(ctx context.Context, key string) (Result, bool)
	Put(ctx context.Context, key string, r Result)
	Purge(ctx context.Context)
}

// Geocoder resolves a place name to coordinates.
type Geocoder interface {
	Geocode(ctx context.Context, place string) (lat, lon float64, err error)
}

// Config holds service-wide settings.
type Config struct {
	IDField     string
	EmptyPolicy EmptyPolicy
}

// Service answers choropleth queries against the active snapshot.
type Service struct {
	snap     atomic.Pointer[Snapshot]
	cache    Cache
	geocoder Geocoder
	group    singleflight.Group
	cfg      Config
}

// NewService creates a Service. cache and geocoder may be nil.
func NewService(cfg Config, cache Cache, geocoder Geocoder) *Service {
	return &Service{cfg: cfg, cache: cache, geocoder: geocoder}
}

// Config returns the service settings.
func (s *Service) Config() Config { return s.cfg }

// Snapshot returns the active snapshot, or nil before the first Swap.
func (s *Service) Snapshot() *Snapshot { return s.snap.Load() }

// Swap installs snap as the active snapshot and purges the cache.
func (s *Service) Swap(ctx context.Context, snap *Snapshot) {
	old := s.snap.Swap(snap)
	if s.cache != nil {
		s.cache.Purge(ctx)
	}
	metrics.RegionsLoaded.Set(float64(snap.Regions().Len()))
	metrics.DaysLoaded.Set(float64(snap.Dataset().NumDays()))

	fields := logrus.Fields{"version": snap.Version(), "days": snap.Dataset().NumDays(), "regions": snap.Regions().Len()}
	if old != nil {
		fields["previous"] = old.Version()
	}
	logrus.WithFields(fields).Info("choropleth: snapshot installed")
}

func (s *Service) current() (*Snapshot, error) {
	snap := s.snap.Load()
	if snap == nil {
		return nil, ErrNotLoaded
	}
	return snap, nil
}

func cacheKey(version string, v forecast.Variable, day int) string {
	return fmt.Sprintf("%s:%s:%d", version, v, day)
}

// Aggregates returns the per-region aggregates of variable v on day d,
// computing them at most once per snapshot.
func (s *Service) Aggregates(ctx context.Context, v forecast.Variable, d int) (map[string]Aggregate, error) {
	snap, err := s.current()
	if err != nil {
		return nil, err
	}
	r, err := s.aggregates(ctx, snap, v, d)
	if err != nil {
		return nil, err
	}
	return r.Aggregates, nil
}

func (s *Service) aggregates(ctx context.Context, snap *Snapshot, v forecast.Variable, d int) (Result, error) {
	key := cacheKey(snap.Version(), v, d)
	if s.cache != nil {
		if r, ok := s.cache.Get(ctx, key); ok {
			return r, nil
		}
	}

	res, err, shared := s.group.Do(key, func() (interface{}, error) {
		start := time.Now()
		grid, err := snap.Dataset().Sample(v, d)
		if err != nil {
			return Result{}, err
		}
		if grid.Defined() == 0 {
			return Result{}, fmt.Errorf("%w: %s day %d", ErrNoData, v, d)
		}
		r := Result{
			Version:    snap.Version(),
			Variable:   v,
			Day:        d,
			Aggregates: AggregateGrid(grid, snap.Regions()),
		}
		metrics.PipelineDuration.WithLabelValues(string(v)).Observe(time.Since(start).Seconds())
		if s.cache != nil {
			s.cache.Put(ctx, key, r)
		}
		return r, nil
	})
	if err != nil {
		return Result{}, err
	}
	if shared {
		logrus.Debugf("choropleth: coalesced computation for %s", key)
	}
	return res.(Result), nil
}

// Choropleth is one rendered variable/day map.
type Choropleth struct {
	Title    string             `json:"title"`
	Variable forecast.Variable  `json:"variable"`
	Label    string             `json:"label"`
	Day      int                `json:"day"`
	DayLabel string             `json:"dayLabel"`
	Date     time.Time          `json:"date"`
	Min      NullFloat          `json:"min"`
	Max      NullFloat          `json:"max"`
	Regions  *FeatureCollection `json:"regions"`
}

// Choropleth samples, aggregates and enriches variable v on day d.
func (s *Service) Choropleth(ctx context.Context, v forecast.Variable, d int) (*Choropleth, error) {
	snap, err := s.current()
	if err != nil {
		return nil, err
	}
	return s.choropleth(ctx, snap, v, d)
}

func (s *Service) choropleth(ctx context.Context, snap *Snapshot, v forecast.Variable, d int) (*Choropleth, error) {
	r, err := s.aggregates(ctx, snap, v, d)
	if err != nil {
		return nil, err
	}
	date, err := snap.Dataset().Day(d)
	if err != nil {
		return nil, err
	}
	recs := Enrich(snap.Regions(), r.Aggregates, s.cfg.EmptyPolicy)
	fc, err := NewFeatureCollection(recs, s.cfg.IDField)
	if err != nil {
		return nil, err
	}

	lo, hi := NullFloat(math.NaN()), NullFloat(math.NaN())
	for _, rec := range recs {
		if !rec.Value.Defined() {
			continue
		}
		if !lo.Defined() || rec.Value < lo {
			lo = rec.Value
		}
		if !hi.Defined() || rec.Value > hi {
			hi = rec.Value
		}
	}

	return &Choropleth{
		Title:    fmt.Sprintf("%s on %s", v.Label(), forecast.DayLabel(date)),
		Variable: v,
		Label:    v.Label(),
		Day:      d,
		DayLabel: forecast.DayLabel(date),
		Date:     date,
		Min:      lo,
		Max:      hi,
		Regions:  fc,
	}, nil
}

// Placeholder messages shown instead of a map.
const (
	MsgEmptySelection = "Please select at least one variable."
	MsgDayOutOfRange  = "Date index out of range."
)

// Panel is one dashboard cell: a map, or a message when it cannot be drawn.
type Panel struct {
	Variable   forecast.Variable `json:"variable,omitempty"`
	Day        int               `json:"day"`
	Message    string            `json:"message,omitempty"`
	Choropleth *Choropleth       `json:"choropleth,omitempty"`
}

// Dashboard is the set of panels for a selection.
type Dashboard struct {
	Message string  `json:"message,omitempty"`
	Panels  []Panel `json:"panels"`
}

// Dashboard renders one panel per (variable, day). Unknown variable ids
// are skipped. An empty selection or an invalid day yields a single
// placeholder message together with ErrEmptySelection or ErrOutOfRange.
func (s *Service) Dashboard(ctx context.Context, variables []string, days []int) (*Dashboard, error) {
	snap, err := s.current()
	if err != nil {
		return nil, err
	}

	var vars []forecast.Variable
	for _, id := range variables {
		v, err := forecast.ParseVariable(id)
		if err != nil {
			logrus.Debugf("choropleth: dashboard skips %v", err)
			continue
		}
		vars = append(vars, v)
	}
	if len(vars) == 0 {
		return &Dashboard{Message: MsgEmptySelection, Panels: []Panel{}},
			fmt.Errorf("dashboard: %w", ErrEmptySelection)
	}
	if len(days) == 0 {
		days = []int{0}
	}
	for _, d := range days {
		if d < 0 || d >= snap.Dataset().NumDays() {
			return &Dashboard{Message: MsgDayOutOfRange, Panels: []Panel{}},
				fmt.Errorf("dashboard day %d: %w", d, ErrOutOfRange)
		}
	}

	db := &Dashboard{Panels: make([]Panel, 0, len(vars)*len(days))}
	for _, d := range days {
		for _, v := range vars {
			p := Panel{Variable: v, Day: d}
			c, err := s.choropleth(ctx, snap, v, d)
			switch {
			case err == nil:
				p.Choropleth = c
			case errors.Is(err, ErrNoData):
				p.Message = fmt.Sprintf("No data for %s.", v.Label())
			default:
				return nil, err
			}
			db.Panels = append(db.Panels, p)
		}
	}
	return db, nil
}

// DayOption is one selectable forecast day.
type DayOption struct {
	Index int       `json:"value"`
	Label string    `json:"label"`
	Date  time.Time `json:"date"`
}

// Options lists what can be requested from the active snapshot.
type Options struct {
	Version   string                  `json:"version"`
	Days      []DayOption             `json:"days"`
	Variables []forecast.VariableInfo `json:"variables"`
	Regions   int                     `json:"regions"`
}

// Options describes the days and variables of the active snapshot.
func (s *Service) Options() (*Options, error) {
	snap, err := s.current()
	if err != nil {
		return nil, err
	}
	days := snap.Dataset().Days()
	opts := &Options{
		Version:   snap.Version(),
		Days:      make([]DayOption, len(days)),
		Variables: append([]forecast.VariableInfo(nil), forecast.Variables...),
		Regions:   snap.Regions().Len(),
	}
	for i, d := range days {
		opts.Days[i] = DayOption{Index: i, Label: forecast.DayLabel(d), Date: d}
	}
	return opts, nil
}

// Heatmap is the raw defined grid of one variable/day.
type Heatmap struct {
	Title  string   `json:"title"`
	ZMin   float64  `json:"zmin"`
	ZMax   float64  `json:"zmax"`
	Points []Sample `json:"points"`
}

// Heatmap returns every defined sample of variable v on day d.
func (s *Service) Heatmap(v forecast.Variable, d int) (*Heatmap, error) {
	snap, err := s.current()
	if err != nil {
		return nil, err
	}
	grid, err := snap.Dataset().Sample(v, d)
	if err != nil {
		return nil, err
	}
	lo, hi, ok := grid.Range()
	if !ok {
		return nil, fmt.Errorf("%w: %s day %d", ErrNoData, v, d)
	}
	date, _ := snap.Dataset().Day(d)
	return &Heatmap{
		Title:  fmt.Sprintf("%s on %s", v.Label(), forecast.DayLabel(date)),
		ZMin:   lo,
		ZMax:   hi,
		Points: Samples(grid),
	}, nil
}

// Boundaries returns the region outlines of the active snapshot.
func (s *Service) Boundaries() (*FeatureCollection, error) {
	snap, err := s.current()
	if err != nil {
		return nil, err
	}
	return NewBoundaryCollection(snap.Regions(), s.cfg.IDField)
}

// LocateQuery selects a point by coordinates or by place name. Variable
// is optional; when set the region's aggregate on Day is included.
type LocateQuery struct {
	Lat, Lon *float64
	Place    string
	Variable string
	Day      int
}

// Location is the answer to a LocateQuery.
type Location struct {
	Lat      float64    `json:"lat"`
	Lon      float64    `json:"lon"`
	Place    string     `json:"place,omitempty"`
	Found    bool       `json:"found"`
	RegionID string     `json:"regionId,omitempty"`
	Value    *NullFloat `json:"value,omitempty"`
	Count    int        `json:"count,omitempty"`
}

// Locate finds the region containing a point and optionally its value.
func (s *Service) Locate(ctx context.Context, q LocateQuery) (*Location, error) {
	snap, err := s.current()
	if err != nil {
		return nil, err
	}

	loc := &Location{Place: q.Place}
	switch {
	case q.Lat != nil && q.Lon != nil:
		loc.Lat, loc.Lon = *q.Lat, *q.Lon
	case q.Place != "":
		if s.geocoder == nil {
			return nil, ErrNoGeocoder
		}
		if loc.Lat, loc.Lon, err = s.geocoder.Geocode(ctx, q.Place); err != nil {
			return nil, fmt.Errorf("geocode %q: %w", q.Place, err)
		}
	default:
		return nil, errors.New("either lat/lon or place is required")
	}

	idx, ok := snap.Regions().Locate(loc.Lon, loc.Lat)
	if !ok {
		return loc, nil
	}
	loc.Found = true
	loc.RegionID = snap.Regions().At(idx).ID

	if q.Variable == "" {
		return loc, nil
	}
	v, err := forecast.ParseVariable(q.Variable)
	if err != nil {
		return nil, err
	}
	r, err := s.aggregates(ctx, snap, v, q.Day)
	if err != nil {
		return nil, err
	}
	val := NullFloat(math.NaN())
	if a, ok := r.Aggregates[loc.RegionID]; ok {
		val = NullFloat(a.Mean)
		loc.Count = a.Count
	}
	loc.Value = &val
	return loc, nil
}
