package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/go-co-op/gocron"
	"github.com/sirupsen/logrus"

	"github.com/i474232898/heat-stress-dashboard/internal/choropleth"
	"github.com/i474232898/heat-stress-dashboard/internal/metrics"
	"github.com/i474232898/heat-stress-dashboard/internal/regions"
	"github.com/i474232898/heat-stress-dashboard/internal/source"
)

// LoadFunc builds a snapshot from a local dataset. set is nil on the
// first load and the current region set afterwards.
type LoadFunc func(version, path string, set *regions.Set) (*choropleth.Snapshot, error)

// DiskLoader loads snapshots according to cfg, reading the regions only once.
func DiskLoader(cfg choropleth.SnapshotConfig) LoadFunc {
	return func(version, path string, set *regions.Set) (*choropleth.Snapshot, error) {
		c := cfg
		c.DatasetPath = path
		if set == nil {
			return choropleth.LoadSnapshot(version, c)
		}
		return choropleth.LoadDataset(version, c, set)
	}
}

// Scheduler periodically checks the dataset source and swaps in a new
// snapshot when it changed.
type Scheduler struct {
	scheduler *gocron.Scheduler
	fetcher   source.Fetcher
	service   *choropleth.Service
	load      LoadFunc
	interval  time.Duration
}

// New creates a new Scheduler.
func New(fetcher source.Fetcher, service *choropleth.Service, load LoadFunc, interval time.Duration) *Scheduler {
	s := gocron.NewScheduler(time.UTC)
	return &Scheduler{
		scheduler: s,
		fetcher:   fetcher,
		service:   service,
		load:      load,
		interval:  interval,
	}
}

// Reload fetches the dataset and installs a new snapshot if its version
// differs from the active one or nothing is loaded yet. A version whose
// load failed is retried on the next call. It reports whether a swap happened.
func (s *Scheduler) Reload(ctx context.Context) (bool, error) {
	f, err := s.fetcher.Fetch(ctx)
	if err != nil {
		metrics.DatasetReloadsTotal.WithLabelValues("error").Inc()
		return false, fmt.Errorf("fetch dataset: %w", err)
	}

	current := s.service.Snapshot()
	if current != nil && f.Version == current.Version() {
		metrics.DatasetReloadsTotal.WithLabelValues("unchanged").Inc()
		return false, nil
	}

	var set *regions.Set
	if current != nil {
		set = current.Regions()
	}
	snap, err := s.load(f.Version, f.Path, set)
	if err != nil {
		metrics.DatasetReloadsTotal.WithLabelValues("error").Inc()
		return false, err
	}
	s.service.Swap(ctx, snap)
	metrics.DatasetReloadsTotal.WithLabelValues("swapped").Inc()
	return true, nil
}

// Start schedules the periodic reload and starts the underlying scheduler.
func (s *Scheduler) Start() error {
	if s.interval <= 0 {
		logrus.Info("scheduler: reload interval not set; dataset will not be refreshed")
		return nil
	}

	_, err := s.scheduler.Every(s.interval).WaitForSchedule().SingletonMode().Do(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
		defer cancel()

		swapped, err := s.Reload(ctx)
		if err != nil {
			logrus.Errorf("scheduler: reload failed, keeping current snapshot: %v", err)
			return
		}
		logrus.Debugf("scheduler: reload check done, swapped=%t", swapped)
	})
	if err != nil {
		return err
	}

	logrus.Infof("scheduler: checking dataset every %s", s.interval)
	s.scheduler.StartAsync()
	return nil
}

// Stop stops the scheduler and cancels any future jobs.
func (s *Scheduler) Stop() {
	if s.scheduler != nil {
		s.scheduler.Stop()
	}
}
