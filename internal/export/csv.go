package export

import (
	"encoding/csv"
	"io"
	"os"
	"strconv"

	"github.com/sirupsen/logrus"
)

var csvHeader = []string{"region_id", "variable", "date", "value", "count", "min", "max"}

// WriteCSV writes rows with a header line. Undefined values are empty.
func WriteCSV(w io.Writer, rows []RegionRow) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return err
	}
	for _, r := range rows {
		rec := []string{
			r.RegionID,
			r.Variable,
			r.Date,
			formatOptional(r.Value),
			strconv.FormatInt(r.Count, 10),
			formatOptional(r.Min),
			formatOptional(r.Max),
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteCSVFile creates path and writes rows to it.
func WriteCSVFile(path string, rows []RegionRow) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		if err := f.Close(); err != nil {
			logrus.Error(err)
		}
	}()

	if err := WriteCSV(f, rows); err != nil {
		return err
	}
	return f.Sync()
}

func formatOptional(v *float64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}
