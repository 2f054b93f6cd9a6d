package sumoxml

import (
	"bytes"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jengzang/sumo-flow-backend/internal/models"
)

func TestEdgeDataRoundTrip(t *testing.T) {
	iv := models.EdgeInterval{
		Begin: 0,
		End:   7200,
		Edges: []models.EdgeCount{
			{EdgeID: "e1", Entered: 240},
			{EdgeID: "-e2#1", Entered: 0},
			{EdgeID: "e3", Entered: 17},
		},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteEdgeData(&buf, iv))
	text := buf.String()
	assert.True(t, strings.HasPrefix(text, "<?xml"))
	assert.Contains(t, text, `<interval begin="0" end="7200">`)
	assert.Contains(t, text, `<edge id="e1" entered="240"></edge>`)

	back, err := ReadEdgeData(&buf)
	require.NoError(t, err)
	require.Len(t, back, 1)
	assert.Equal(t, iv.Counts(), back[0].Counts())
	assert.Equal(t, iv.Begin, back[0].Begin)
	assert.Equal(t, iv.End, back[0].End)
}

func TestWriteEdgeDataRejectsEmptyID(t *testing.T) {
	var buf bytes.Buffer
	err := WriteEdgeData(&buf, models.EdgeInterval{End: 3600, Edges: []models.EdgeCount{{Entered: 3}}})
	assert.Error(t, err)
}

func TestReadEdgeDataSumoSpelling(t *testing.T) {
	doc := `<data><interval id="x" begin="0.00" end="3600.00"><edge id="a" entered="12" left="10"/></interval></data>`
	back, err := ReadEdgeData(strings.NewReader(doc))
	require.NoError(t, err)
	require.Len(t, back, 1)
	assert.Equal(t, 3600, back[0].End)
	assert.Equal(t, map[string]int{"a": 12}, back[0].Counts())

	_, err = ReadEdgeData(strings.NewReader(`<data><interval begin="0" end="1"><edge id="a" entered="x"/></interval></data>`))
	var formatErr *models.FormatError
	assert.True(t, errors.As(err, &formatErr))
}

func TestEdgeDataFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "edgedata.xml")
	iv := models.EdgeInterval{End: 3600, Edges: []models.EdgeCount{{EdgeID: "e1", Entered: 5}}}
	require.NoError(t, WriteEdgeDataFile(path, iv))

	back, err := ReadEdgeDataFile(path)
	require.NoError(t, err)
	assert.Equal(t, iv.Counts(), back[0].Counts())

	_, err = ReadEdgeDataFile(filepath.Join(t.TempDir(), "absent.xml"))
	var missing *models.MissingInputError
	assert.True(t, errors.As(err, &missing))
}

func TestDetectorsRoundTrip(t *testing.T) {
	loops := []InductionLoop{
		{ID: "0_0", Lane: "e1_0", Pos: DefaultLoopPos, Freq: DefaultLoopFreq, File: DefaultLoopFile},
		{ID: "7_0", Lane: "e9_0", Pos: -5, Freq: 900, File: "out.xml"},
	}
	var buf bytes.Buffer
	require.NoError(t, WriteDetectors(&buf, loops))
	assert.Contains(t, buf.String(), `<inductionLoop id="0_0" lane="e1_0" pos="-5" freq="1800" file="e1_real_output.xml">`)

	back, err := ReadDetectors(&buf)
	require.NoError(t, err)
	assert.Equal(t, loops, back)
}
