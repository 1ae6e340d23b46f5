package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/i474232898/heat-stress-dashboard/internal/choropleth"
	"github.com/i474232898/heat-stress-dashboard/internal/forecast"
	"github.com/i474232898/heat-stress-dashboard/internal/regions"
	"github.com/i474232898/heat-stress-dashboard/internal/source"
)

type AppConfig struct {
	Port string

	// Dataset source and local download directory.
	DatasetURI      string
	DatasetCacheDir string
	NetCDF          forecast.NetCDFConfig

	// Region boundaries.
	RegionsPath string
	Regions     regions.LoadOptions
	EmptyPolicy choropleth.EmptyPolicy

	// ReloadInterval controls how often the dataset source is checked (0 = never).
	ReloadInterval time.Duration

	// In-process result cache bound and optional shared redis tier.
	CacheMaxEntries int
	RedisAddr       string
	RedisPass       string
	RedisDB         int
	RedisTTL        time.Duration

	S3          source.S3Config
	HTTPTimeout time.Duration

	GeocoderAPIKey  string
	GeocoderState   string
	GeocoderCountry string

	LogLevel logrus.Level
}

// Load reads configuration from environment with sensible defaults.
func Load() (*AppConfig, error) {
	if err := godotenv.Load(); err != nil {
		logrus.Debugf("config: no .env file loaded: %v", err)
	}
	cfg := &AppConfig{}

	cfg.Port = getenvDefault("PORT", "8067")

	cfg.DatasetURI = getenvDefault("DATASET_URI", "aifs_forecast_heat_stress.nc")
	cfg.DatasetCacheDir = getenvDefault("DATASET_CACHE_DIR", "data/cache")
	nc := forecast.DefaultNetCDFConfig()
	cfg.NetCDF = forecast.NetCDFConfig{
		TimeVar:      getenvDefault("NC_TIME_VAR", nc.TimeVar),
		LatVar:       getenvDefault("NC_LAT_VAR", nc.LatVar),
		LonVar:       getenvDefault("NC_LON_VAR", nc.LonVar),
		TempVar:      getenvDefault("NC_TEMP_VAR", nc.TempVar),
		HumidityVar:  getenvDefault("NC_RH_VAR", nc.HumidityVar),
		HeatIndexVar: getenvDefault("NC_HI_VAR", nc.HeatIndexVar),
	}

	cfg.RegionsPath = getenvDefault("REGIONS_PATH", "karnataka_shape_files_taluk_district/Taluk/Taluk.shp")
	cfg.Regions.IDField = getenvDefault("REGION_ID_FIELD", "KGISTalukN")
	tol, err := strconv.ParseFloat(getenvDefault("REGION_SIMPLIFY_TOLERANCE", "0.01"), 64)
	if err != nil || tol < 0 {
		return nil, fmt.Errorf("invalid REGION_SIMPLIFY_TOLERANCE: %q", os.Getenv("REGION_SIMPLIFY_TOLERANCE"))
	}
	cfg.Regions.SimplifyTolerance = tol

	if cfg.EmptyPolicy, err = choropleth.ParseEmptyPolicy(os.Getenv("EMPTY_REGION_POLICY")); err != nil {
		return nil, fmt.Errorf("invalid EMPTY_REGION_POLICY: %w", err)
	}

	if cfg.ReloadInterval, err = getenvDuration("RELOAD_INTERVAL", "0"); err != nil {
		return nil, err
	}

	cfg.CacheMaxEntries = getenvInt("CACHE_MAX_ENTRIES", 256)
	cfg.RedisAddr = os.Getenv("REDIS_ADDR")
	cfg.RedisPass = os.Getenv("REDIS_PASS")
	cfg.RedisDB = getenvInt("REDIS_DB", 0)
	if cfg.RedisTTL, err = getenvDuration("REDIS_TTL", "6h"); err != nil {
		return nil, err
	}

	cfg.S3 = source.S3Config{
		Endpoint:        os.Getenv("S3_ENDPOINT"),
		Region:          getenvDefault("S3_REGION", "us-east-1"),
		AccessKeyID:     os.Getenv("AWS_ACCESS_KEY_ID"),
		SecretAccessKey: os.Getenv("AWS_SECRET_ACCESS_KEY"),
	}
	if cfg.HTTPTimeout, err = getenvDuration("HTTP_TIMEOUT", "30s"); err != nil {
		return nil, err
	}

	cfg.GeocoderAPIKey = os.Getenv("GEOCODER_API_KEY")
	cfg.GeocoderState = getenvDefault("GEOCODER_STATE", "Karnataka")
	cfg.GeocoderCountry = getenvDefault("GEOCODER_COUNTRY", "India")

	if cfg.LogLevel, err = logrus.ParseLevel(getenvDefault("LOG_LEVEL", "info")); err != nil {
		return nil, fmt.Errorf("invalid LOG_LEVEL: %w", err)
	}

	return cfg, nil
}

// Snapshot returns the on-disk inputs of a snapshot for datasetPath.
func (c *AppConfig) Snapshot(datasetPath string) choropleth.SnapshotConfig {
	return choropleth.SnapshotConfig{
		DatasetPath: datasetPath,
		NetCDF:      c.NetCDF,
		RegionsPath: c.RegionsPath,
		Regions:     c.Regions,
	}
}

// Source returns the dataset fetcher configuration.
func (c *AppConfig) Source() source.Config {
	return source.Config{
		URI:         c.DatasetURI,
		CacheDir:    c.DatasetCacheDir,
		HTTPTimeout: c.HTTPTimeout,
		S3:          c.S3,
	}
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		n, err := strconv.Atoi(v)
		if err == nil {
			return n
		}
	}
	return def
}

func getenvDuration(key, def string) (time.Duration, error) {
	d, err := time.ParseDuration(getenvDefault(key, def))
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}
