package main

import (
	"context"
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/i474232898/heat-stress-dashboard/internal/choropleth"
	"github.com/i474232898/heat-stress-dashboard/internal/forecast"
	"github.com/i474232898/heat-stress-dashboard/internal/regions"
	"github.com/i474232898/heat-stress-dashboard/internal/source"
)

var Verbose bool
var Debug bool

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "regionagg",
	Short: "Aggregate gridded heat-stress forecasts over administrative regions",
	Long: `Offline access to the same pipeline the dashboard serves:

	regionagg info      days, variables and regions of a dataset
	regionagg aggregate per-region values of one variable and day as CSV or Parquet`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func bindFlag(cmd *cobra.Command, name string, persistent bool) {
	flags := cmd.Flags()
	if persistent {
		flags = cmd.PersistentFlags()
	}
	if err := viper.BindPFlag(name, flags.Lookup(name)); err != nil {
		logrus.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&Verbose, "verbose", "v", false, "Verbose output")
	bindFlag(rootCmd, "verbose", true)
	rootCmd.PersistentFlags().BoolVarP(&Debug, "debug", "d", false, "Debug output")
	bindFlag(rootCmd, "debug", true)

	rootCmd.PersistentFlags().String("dataset", "aifs_forecast_heat_stress.nc", "NetCDF dataset: path, http(s) URL or s3://bucket/key")
	bindFlag(rootCmd, "dataset", true)
	rootCmd.PersistentFlags().String("regions", "karnataka_shape_files_taluk_district/Taluk/Taluk.shp", "Region boundaries (.shp or .geojson)")
	bindFlag(rootCmd, "regions", true)
	rootCmd.PersistentFlags().String("id-field", "KGISTalukN", "Attribute used as region id")
	bindFlag(rootCmd, "id-field", true)
	rootCmd.PersistentFlags().Float64("tolerance", 0.01, "Boundary simplification tolerance in degrees (0 disables)")
	bindFlag(rootCmd, "tolerance", true)
	rootCmd.PersistentFlags().String("cache-dir", "data/cache", "Download directory for remote datasets")
	bindFlag(rootCmd, "cache-dir", true)

	for key, env := range map[string]string{
		"dataset":   "DATASET_URI",
		"regions":   "REGIONS_PATH",
		"id-field":  "REGION_ID_FIELD",
		"tolerance": "REGION_SIMPLIFY_TOLERANCE",
		"cache-dir": "DATASET_CACHE_DIR",
	} {
		if err := viper.BindEnv(key, env); err != nil {
			logrus.Exit(1)
		}
	}
}

func setLogLevels() {
	if viper.GetBool("debug") {
		logrus.SetLevel(logrus.DebugLevel)
	} else if viper.GetBool("verbose") {
		logrus.SetLevel(logrus.InfoLevel)
	} else {
		logrus.SetLevel(logrus.WarnLevel)
	}
}

// loadSnapshot fetches the dataset if remote and loads it with the regions.
func loadSnapshot(ctx context.Context) (*choropleth.Snapshot, error) {
	fetcher, err := source.NewFetcher(ctx, source.Config{
		URI:      viper.GetString("dataset"),
		CacheDir: viper.GetString("cache-dir"),
		S3: source.S3Config{
			Endpoint:        os.Getenv("S3_ENDPOINT"),
			Region:          os.Getenv("S3_REGION"),
			AccessKeyID:     os.Getenv("AWS_ACCESS_KEY_ID"),
			SecretAccessKey: os.Getenv("AWS_SECRET_ACCESS_KEY"),
		},
	})
	if err != nil {
		return nil, err
	}
	f, err := fetcher.Fetch(ctx)
	if err != nil {
		return nil, err
	}
	snap, err := choropleth.LoadSnapshot(f.Version, choropleth.SnapshotConfig{
		DatasetPath: f.Path,
		NetCDF:      forecast.DefaultNetCDFConfig(),
		RegionsPath: viper.GetString("regions"),
		Regions: regions.LoadOptions{
			IDField:           viper.GetString("id-field"),
			SimplifyTolerance: viper.GetFloat64("tolerance"),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", f.Path, err)
	}
	return snap, nil
}
