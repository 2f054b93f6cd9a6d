package config

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jengzang/sumo-flow-backend/internal/models"
)

func baseConfig(t *testing.T) *Config {
	t.Helper()
	cfg, err := Load()
	require.NoError(t, err)
	return cfg
}

func TestWithOverridesAppliesRunParams(t *testing.T) {
	base := baseConfig(t)

	// decoded the way gin binds a request body
	var params map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(`{
		"threshold": 75,
		"range_start": "02/01/2024",
		"range_end": "02/07/2024",
		"edgedata_date": "03/02/2024",
		"edgedata_slot": "08:00-09:00",
		"edgedata_duration": 1800
	}`), &params))

	cfg, err := base.WithOverrides(params)
	require.NoError(t, err)
	assert.Equal(t, 75, cfg.Pipeline.AccuracyThreshold)
	assert.Equal(t, "02/01/2024", cfg.Pipeline.RangeStart)
	assert.Equal(t, "02/07/2024", cfg.Pipeline.RangeEnd)
	assert.Equal(t, "03/02/2024", cfg.Pipeline.EdgeDataDate)
	assert.Equal(t, "08:00-09:00", cfg.Pipeline.EdgeDataSlot)
	assert.Equal(t, 1800, cfg.Pipeline.EdgeDataDuration)

	assert.Equal(t, 90, base.Pipeline.AccuracyThreshold)
	assert.Equal(t, "01/02/2024", base.Pipeline.EdgeDataDate)
}

func TestWithOverridesCopiesConfig(t *testing.T) {
	base := baseConfig(t)

	cfg, err := base.WithOverrides(nil)
	require.NoError(t, err)
	require.NotSame(t, base, cfg)
	assert.Equal(t, base.Pipeline, cfg.Pipeline)

	cfg.Pipeline.ExcludedTypes[0] = "highway.motorway"
	assert.Equal(t, DefaultExcludedTypes[0], base.Pipeline.ExcludedTypes[0])
}

func TestWithOverridesRejectsInvalidParams(t *testing.T) {
	tests := []struct {
		name   string
		params map[string]interface{}
		field  string
	}{
		{"unknown key", map[string]interface{}{"radius": 10.0}, "params"},
		{"threshold as string", map[string]interface{}{"threshold": "80"}, "params.threshold"},
		{"fractional threshold", map[string]interface{}{"threshold": 80.5}, "params.threshold"},
		{"threshold out of range", map[string]interface{}{"threshold": 120.0}, "params"},
		{"slot as number", map[string]interface{}{"edgedata_slot": 7.0}, "params.edgedata_slot"},
		{"half range", map[string]interface{}{"range_start": "02/01/2024"}, "params"},
		{"negative duration", map[string]interface{}{"edgedata_duration": -60.0}, "params"},
	}

	base := baseConfig(t)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := base.WithOverrides(tt.params)
			var formatErr *models.FormatError
			require.True(t, errors.As(err, &formatErr), "got %v", err)
			assert.Equal(t, tt.field, formatErr.Field)
		})
	}
}
