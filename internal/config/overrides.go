package config

import (
	"fmt"
	"math"
	"sort"

	"github.com/jengzang/sumo-flow-backend/internal/models"
)

// Run parameters accepted by WithOverrides
const (
	ParamThreshold        = "threshold"
	ParamRangeStart       = "range_start"
	ParamRangeEnd         = "range_end"
	ParamEdgeDataDate     = "edgedata_date"
	ParamEdgeDataSlot     = "edgedata_slot"
	ParamEdgeDataDuration = "edgedata_duration"
)

// WithOverrides returns a copy of c with the recognised run parameters
// applied. Unknown keys, values of the wrong type and combinations Validate
// rejects come back as *models.FormatError. c itself is never modified.
func (c *Config) WithOverrides(params map[string]interface{}) (*Config, error) {
	out := *c
	out.Pipeline.ExcludedTypes = append([]string(nil), c.Pipeline.ExcludedTypes...)
	if len(params) == 0 {
		return &out, nil
	}

	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	p := &out.Pipeline
	for _, key := range keys {
		v := params[key]
		var err error
		switch key {
		case ParamThreshold:
			p.AccuracyThreshold, err = intParam(key, v)
		case ParamEdgeDataDuration:
			p.EdgeDataDuration, err = intParam(key, v)
		case ParamRangeStart:
			p.RangeStart, err = stringParam(key, v)
		case ParamRangeEnd:
			p.RangeEnd, err = stringParam(key, v)
		case ParamEdgeDataDate:
			p.EdgeDataDate, err = stringParam(key, v)
		case ParamEdgeDataSlot:
			p.EdgeDataSlot, err = stringParam(key, v)
		default:
			err = &models.FormatError{Field: "params", Value: key, Reason: "unknown run parameter"}
		}
		if err != nil {
			return nil, err
		}
	}

	if err := out.Validate(); err != nil {
		return nil, &models.FormatError{Field: "params", Value: fmt.Sprint(params), Reason: err.Error()}
	}
	return &out, nil
}

// intParam accepts JSON numbers holding an integral value
func intParam(key string, v interface{}) (int, error) {
	switch n := v.(type) {
	case int:
		return n, nil
	case int64:
		return int(n), nil
	case float64:
		if n == math.Trunc(n) && math.Abs(n) < math.MaxInt32 {
			return int(n), nil
		}
	}
	return 0, &models.FormatError{Field: "params." + key, Value: fmt.Sprint(v), Reason: "expected an integer"}
}

func stringParam(key string, v interface{}) (string, error) {
	s, ok := v.(string)
	if !ok {
		return "", &models.FormatError{Field: "params." + key, Value: fmt.Sprint(v), Reason: "expected a string"}
	}
	return s, nil
}
