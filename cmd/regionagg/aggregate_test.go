package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOutputFormat(t *testing.T) {
	assert.Equal(t, "parquet", outputFormat("", "out/max_2t.PARQUET"))
	assert.Equal(t, "csv", outputFormat("", "out/max_2t.csv"))
	assert.Equal(t, "csv", outputFormat("CSV", "out/max_2t.parquet"))
}
