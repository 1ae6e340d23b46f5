package choropleth

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnrichOmitKeepsLoadOrder(t *testing.T) {
	set := testRegions(t)
	recs := Enrich(set, AggregateGrid(testGrid(t), set), EmptyOmit)

	require.Len(t, recs, 2)
	assert.Equal(t, "A", recs[0].ID)
	assert.Equal(t, NullFloat(31), recs[0].Value)
	assert.Equal(t, 2, recs[0].Count)
	assert.Equal(t, "B", recs[1].ID)
}

func TestEnrichNullIncludesEmptyRegions(t *testing.T) {
	set := testRegions(t)
	recs := Enrich(set, AggregateGrid(testGrid(t), set), EmptyNull)

	require.Len(t, recs, 3)
	assert.Equal(t, "C", recs[2].ID)
	assert.False(t, recs[2].Value.Defined())
	assert.Equal(t, 0, recs[2].Count)
}

func TestFeatureCollectionJoinsByIDField(t *testing.T) {
	set := testRegions(t)
	aggs := AggregateGrid(testGrid(t), set)
	recs := Enrich(set, aggs, EmptyNull)

	fc, err := NewFeatureCollection(recs, "KGISTalukN")
	require.NoError(t, err)
	require.Len(t, fc.Features, 3)

	b, err := json.Marshal(fc)
	require.NoError(t, err)

	var decoded struct {
		Type     string `json:"type"`
		Features []struct {
			ID       string `json:"id"`
			Geometry struct {
				Type        string          `json:"type"`
				Coordinates json.RawMessage `json:"coordinates"`
			} `json:"geometry"`
			Properties map[string]interface{} `json:"properties"`
		} `json:"features"`
	}
	require.NoError(t, json.Unmarshal(b, &decoded))
	assert.Equal(t, "FeatureCollection", decoded.Type)

	for i, f := range decoded.Features {
		assert.Equal(t, set.At(i).ID, f.ID)
		assert.Equal(t, f.ID, f.Properties["KGISTalukN"])
		assert.Contains(t, []string{"Polygon", "MultiPolygon"}, f.Geometry.Type)
		assert.NotEmpty(t, f.Geometry.Coordinates)
		if a, ok := aggs[f.ID]; ok {
			assert.Equal(t, a.Mean, f.Properties["value"])
			assert.Equal(t, float64(a.Count), f.Properties["count"])
		} else {
			assert.Nil(t, f.Properties["value"])
		}
	}
}

func TestNullFloatJSON(t *testing.T) {
	b, err := json.Marshal([]NullFloat{NullFloat(math.NaN()), 1.5})
	require.NoError(t, err)
	assert.Equal(t, "[null,1.5]", string(b))

	var back []NullFloat
	require.NoError(t, json.Unmarshal(b, &back))
	assert.False(t, back[0].Defined())
	assert.Equal(t, NullFloat(1.5), back[1])
}

func TestParseEmptyPolicy(t *testing.T) {
	p, err := ParseEmptyPolicy("")
	require.NoError(t, err)
	assert.Equal(t, EmptyOmit, p)

	p, err = ParseEmptyPolicy("NULL")
	require.NoError(t, err)
	assert.Equal(t, EmptyNull, p)
	assert.Equal(t, "null", p.String())

	_, err = ParseEmptyPolicy("zero")
	assert.Error(t, err)
}
