package export

import (
	"os"

	"github.com/parquet-go/parquet-go"
	"github.com/sirupsen/logrus"
)

// WriteParquetFile writes rows as a Snappy-compressed parquet file.
func WriteParquetFile(path string, rows []RegionRow) error {
	output, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		if err := output.Close(); err != nil {
			logrus.Error(err)
		}
	}()

	schema := parquet.SchemaOf(new(RegionRow))
	writer := parquet.NewGenericWriter[RegionRow](output, schema, parquet.Compression(&parquet.Snappy))
	if _, err := writer.Write(rows); err != nil {
		writer.Close()
		return err
	}
	if err := writer.Close(); err != nil {
		return err
	}
	logrus.Infof("export: wrote %d rows to %s", len(rows), path)
	return nil
}
