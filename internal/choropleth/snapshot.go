package choropleth

import (
	"fmt"
	"time"

	"github.com/i474232898/heat-stress-dashboard/internal/forecast"
	"github.com/i474232898/heat-stress-dashboard/internal/regions"
)

// Snapshot pairs a forecast dataset with the region set it is aggregated
// over. It is immutable once built.
type Snapshot struct {
	version  string
	dataset  *forecast.Dataset
	regions  *regions.Set
	loadedAt time.Time
}

// NewSnapshot builds a snapshot. version identifies the dataset content
// and becomes part of every cache key.
func NewSnapshot(version string, ds *forecast.Dataset, set *regions.Set) (*Snapshot, error) {
	if ds == nil || set == nil {
		return nil, fmt.Errorf("snapshot %q: dataset and regions are required", version)
	}
	return &Snapshot{version: version, dataset: ds, regions: set, loadedAt: time.Now().UTC()}, nil
}

// Version identifies the dataset content.
func (s *Snapshot) Version() string { return s.version }

// Dataset is the daily forecast.
func (s *Snapshot) Dataset() *forecast.Dataset { return s.dataset }

// Regions is the region set aggregates are keyed by.
func (s *Snapshot) Regions() *regions.Set { return s.regions }

// LoadedAt is when the snapshot was built.
func (s *Snapshot) LoadedAt() time.Time { return s.loadedAt }

// SnapshotConfig locates the inputs of a snapshot on local disk.
type SnapshotConfig struct {
	DatasetPath string
	NetCDF      forecast.NetCDFConfig
	RegionsPath string
	Regions     regions.LoadOptions
}

// LoadSnapshot reads the dataset and the regions from disk.
func LoadSnapshot(version string, cfg SnapshotConfig) (*Snapshot, error) {
	set, err := regions.Load(cfg.RegionsPath, cfg.Regions)
	if err != nil {
		return nil, fmt.Errorf("load regions: %w", err)
	}
	return LoadDataset(version, cfg, set)
}

// LoadDataset reads only the dataset, reusing an already loaded region set.
func LoadDataset(version string, cfg SnapshotConfig, set *regions.Set) (*Snapshot, error) {
	ds, err := forecast.LoadNetCDF(cfg.DatasetPath, cfg.NetCDF)
	if err != nil {
		return nil, fmt.Errorf("load dataset: %w", err)
	}
	return NewSnapshot(version, ds, set)
}
