// Package aggregate projects the linked flow table into per-edge vehicle
// counts for a time window.
package aggregate

import (
	"fmt"
	"regexp"
	"strconv"

	"github.com/jengzang/sumo-flow-backend/internal/models"
)

var slotPattern = regexp.MustCompile(`^(\d{2}):(\d{2})-(\d{2}):(\d{2})$`)

// Slot is a window of whole hours, Start inclusive and End exclusive
type Slot struct {
	Start int
	End   int
}

// ParseSlot parses "HH:MM-HH:MM". Minutes must be 00 and 0 <= start < end <= 24.
func ParseSlot(value string) (Slot, error) {
	m := slotPattern.FindStringSubmatch(value)
	if m == nil {
		return Slot{}, &models.FormatError{Field: "time slot", Value: value, Reason: "expected HH:MM-HH:MM"}
	}
	if m[2] != "00" || m[4] != "00" {
		return Slot{}, &models.FormatError{Field: "time slot", Value: value, Reason: "slot must start and end on the hour"}
	}
	start, _ := strconv.Atoi(m[1])
	end, _ := strconv.Atoi(m[3])
	if start >= end || end > models.HoursPerDay {
		return Slot{}, &models.FormatError{Field: "time slot", Value: value, Reason: "expected 00 <= start < end <= 24"}
	}
	return Slot{Start: start, End: end}, nil
}

// HourSlot returns the one-hour slot starting at hour h
func HourSlot(h int) Slot {
	return Slot{Start: h, End: h + 1}
}

// Hours returns the number of hours spanned
func (s Slot) Hours() int {
	return s.End - s.Start
}

// Seconds returns the slot duration in seconds
func (s Slot) Seconds() int {
	return s.Hours() * 3600
}

func (s Slot) String() string {
	return fmt.Sprintf("%02d:00-%02d:00", s.Start, s.End)
}
