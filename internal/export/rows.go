package export

import (
	"github.com/i474232898/heat-stress-dashboard/internal/choropleth"
	"github.com/i474232898/heat-stress-dashboard/internal/forecast"
)

// RegionRow is one region's aggregate in tabular form. Value, Min and
// Max are nil for regions without samples.
type RegionRow struct {
	RegionID string   `parquet:"region_id"`
	Variable string   `parquet:"variable"`
	Date     string   `parquet:"date"`
	Value    *float64 `parquet:"value,optional"`
	Count    int64    `parquet:"count"`
	Min      *float64 `parquet:"min,optional"`
	Max      *float64 `parquet:"max,optional"`
}

// Rows flattens enriched regions in region order.
func Rows(v forecast.Variable, date string, recs []choropleth.AggregatedRegion, aggs map[string]choropleth.Aggregate) []RegionRow {
	rows := make([]RegionRow, 0, len(recs))
	for _, r := range recs {
		row := RegionRow{RegionID: r.ID, Variable: string(v), Date: date, Count: int64(r.Count)}
		if a, ok := aggs[r.ID]; ok {
			mean, lo, hi := a.Mean, a.Min, a.Max
			row.Value, row.Min, row.Max = &mean, &lo, &hi
		}
		rows = append(rows, row)
	}
	return rows
}
