package models

import (
	"fmt"
)

// MissingInputError indicates a required input file is absent.
type MissingInputError struct {
	Path       string
	WrappedErr error
}

func (e *MissingInputError) Error() string {
	if e.WrappedErr != nil {
		return fmt.Sprintf("missing input '%s': %v", e.Path, e.WrappedErr)
	}
	return fmt.Sprintf("missing input '%s'", e.Path)
}
func (e *MissingInputError) Unwrap() error { return e.WrappedErr }

// FormatError indicates a field that does not parse under its expected pattern
// (dates, accuracy percentages, time slots, geopoints).
type FormatError struct {
	Field  string
	Value  string
	Row    int // 1-based data row, 0 when not tied to a row
	Reason string
}

func (e *FormatError) Error() string {
	if e.Row > 0 {
		return fmt.Sprintf("invalid %s '%s' at row %d: %s", e.Field, e.Value, e.Row, e.Reason)
	}
	return fmt.Sprintf("invalid %s '%s': %s", e.Field, e.Value, e.Reason)
}

// UnresolvedMappingError reports road/geopoint pairs left without an edge id.
// It is informational: the pipeline records it and carries on.
type UnresolvedMappingError struct {
	Count int
	Keys  []RoadKey
}

func (e *UnresolvedMappingError) Error() string {
	return fmt.Sprintf("%d road name entries without edge id", e.Count)
}

// EmptyResultError indicates a stage produced zero rows where at least one was expected.
type EmptyResultError struct {
	Stage  string
	Detail string
}

func (e *EmptyResultError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("stage %s produced no rows: %s", e.Stage, e.Detail)
	}
	return fmt.Sprintf("stage %s produced no rows", e.Stage)
}
