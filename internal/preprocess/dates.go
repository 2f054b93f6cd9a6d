package preprocess

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/jengzang/sumo-flow-backend/internal/models"
)

// ParseRangeBound parses a date range bound written as mm/dd/yyyy
func ParseRangeBound(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	t, err := time.Parse(models.DateLayoutMDY, value)
	if err != nil {
		return time.Time{}, &models.FormatError{Field: "date range", Value: value, Reason: "expected mm/dd/yyyy"}
	}
	return t, nil
}

// FilterDateRange keeps records whose date lies within [start, end], both
// inclusive and given as mm/dd/yyyy
func FilterDateRange(t *models.FlowTable, start, end string) (*models.FlowTable, error) {
	from, err := ParseRangeBound(start)
	if err != nil {
		return nil, err
	}
	to, err := ParseRangeBound(end)
	if err != nil {
		return nil, err
	}
	if to.Before(from) {
		return nil, fmt.Errorf("date range end %s is before start %s", end, start)
	}

	out := &models.FlowTable{}
	if t == nil {
		return out, nil
	}
	for _, rec := range t.Records {
		if rec.Date.Before(from) || rec.Date.After(to) {
			continue
		}
		out.Records = append(out.Records, rec)
	}
	return out, nil
}

// Reorder sorts records ascending by date; records of the same date keep
// their relative order
func Reorder(t *models.FlowTable) {
	if t == nil {
		return
	}
	sort.SliceStable(t.Records, func(i, j int) bool {
		return t.Records[i].Date.Before(t.Records[j].Date)
	})
}

// DailyFilter returns the records of a single calendar date
func DailyFilter(t *models.FlowTable, date time.Time) *models.FlowTable {
	out := &models.FlowTable{}
	if t == nil {
		return out
	}
	key := date.Format(models.DateLayoutISO)
	for _, rec := range t.Records {
		if rec.DateKey() == key {
			out.Records = append(out.Records, rec)
		}
	}
	return out
}

// Dates returns the distinct record dates in ascending order
func Dates(t *models.FlowTable) []time.Time {
	if t == nil {
		return nil
	}
	seen := make(map[string]struct{})
	var out []time.Time
	for _, rec := range t.Records {
		key := rec.DateKey()
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, rec.Date)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Before(out[j]) })
	return out
}

// DailyFileName returns the per-day file name, e.g. daily_flow_01-02-2024.csv
func DailyFileName(date time.Time) string {
	return "daily_flow_" + date.Format("02-01-2006") + ".csv"
}
