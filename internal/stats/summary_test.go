package stats

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSummarize(t *testing.T) {
	s := Summarize([]float64{4, 1, 3, 2})
	assert.Equal(t, 4, s.Count)
	assert.Equal(t, 1.0, s.Min)
	assert.Equal(t, 4.0, s.Max)
	assert.InDelta(t, 2.5, s.Mean, 1e-9)
	assert.InDelta(t, 2.5, s.Median, 1e-9)
	assert.InDelta(t, 3.85, s.P95, 1e-9)

	assert.Equal(t, Summary{}, Summarize(nil))
}

func TestQuantile(t *testing.T) {
	values := []float64{10, 0, 5}
	assert.Equal(t, 0.0, Quantile(values, -1))
	assert.Equal(t, 5.0, Quantile(values, 0.5))
	assert.Equal(t, 10.0, Quantile(values, 2))
	assert.Equal(t, []float64{10, 0, 5}, values)
	assert.Zero(t, Quantile(nil, 0.5))
}
