package main

import (
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/i474232898/heat-stress-dashboard/internal/forecast"
)

// infoCmd represents the info command
var infoCmd = &cobra.Command{
	Use:   "info",
	Short: "Print the days, variables and regions available",
	Run: func(cmd *cobra.Command, args []string) {
		setLogLevels()

		snap, err := loadSnapshot(cmd.Context())
		if err != nil {
			logrus.Fatal(err)
		}
		ds := snap.Dataset()
		nLat, nLon := ds.Shape()
		out := cmd.OutOrStdout()

		fmt.Fprintf(out, "version: %s\n", snap.Version())
		fmt.Fprintf(out, "grid:    %d x %d (lat x lon)\n", nLat, nLon)
		fmt.Fprintf(out, "regions: %d\n", snap.Regions().Len())
		fmt.Fprintln(out, "days:")
		for i, d := range ds.Days() {
			fmt.Fprintf(out, "  %2d  %s  %s\n", i, forecast.DayLabel(d), d.Format("2006-01-02"))
		}
		fmt.Fprintln(out, "variables:")
		for _, v := range forecast.Variables {
			fmt.Fprintf(out, "  %-7s %s\n", v.ID, v.Label)
		}
	},
}

func init() {
	rootCmd.AddCommand(infoCmd)
}
