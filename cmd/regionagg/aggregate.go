package main

import (
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/i474232898/heat-stress-dashboard/internal/choropleth"
	"github.com/i474232898/heat-stress-dashboard/internal/export"
	"github.com/i474232898/heat-stress-dashboard/internal/forecast"
)

// aggregateCmd represents the aggregate command
var aggregateCmd = &cobra.Command{
	Use:   "aggregate [output_path]",
	Short: "Aggregate one variable and day over every region",
	Long: `Samples the variable on the given day, assigns every defined grid cell to
	the region containing it and writes one row per region.

	The output format follows the file extension (.csv or .parquet) unless
	--format is given.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		setLogLevels()

		v, err := forecast.ParseVariable(viper.GetString("variable"))
		if err != nil {
			logrus.Fatal(err)
		}
		policy, err := choropleth.ParseEmptyPolicy(viper.GetString("empty"))
		if err != nil {
			logrus.Fatal(err)
		}
		day := viper.GetInt("day")

		snap, err := loadSnapshot(cmd.Context())
		if err != nil {
			logrus.Fatal(err)
		}
		grid, err := snap.Dataset().Sample(v, day)
		if err != nil {
			logrus.Fatal(err)
		}
		date, _ := snap.Dataset().Day(day)

		aggs := choropleth.AggregateGrid(grid, snap.Regions())
		recs := choropleth.Enrich(snap.Regions(), aggs, policy)
		rows := export.Rows(v, date.Format("2006-01-02"), recs, aggs)
		logrus.Infof("%d of %d regions received samples", len(aggs), snap.Regions().Len())

		out := args[0]
		switch outputFormat(viper.GetString("format"), out) {
		case "parquet":
			err = export.WriteParquetFile(out, rows)
		default:
			err = export.WriteCSVFile(out, rows)
		}
		if err != nil {
			logrus.Fatal(err)
		}
	},
}

func outputFormat(flag, path string) string {
	if flag != "" {
		return strings.ToLower(flag)
	}
	if strings.EqualFold(filepath.Ext(path), ".parquet") {
		return "parquet"
	}
	return "csv"
}

func init() {
	rootCmd.AddCommand(aggregateCmd)

	aggregateCmd.Flags().StringP("variable", "V", string(forecast.MaxTemperature), "Variable id, see 'regionagg info'")
	bindFlag(aggregateCmd, "variable", false)
	aggregateCmd.Flags().IntP("day", "D", 0, "Day index")
	bindFlag(aggregateCmd, "day", false)
	aggregateCmd.Flags().StringP("format", "f", "", "Output format: csv or parquet (default from extension)")
	bindFlag(aggregateCmd, "format", false)
	aggregateCmd.Flags().String("empty", "omit", "Regions without samples: omit or null")
	bindFlag(aggregateCmd, "empty", false)
}
