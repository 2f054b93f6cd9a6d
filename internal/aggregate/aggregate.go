package aggregate

import (
	"fmt"
	"path/filepath"
	"sort"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/jengzang/sumo-flow-backend/internal/models"
	"github.com/jengzang/sumo-flow-backend/internal/sumoxml"
)

// Options tunes the emitted interval
type Options struct {
	// Duration overrides the interval end offset in seconds; 0 uses the slot length
	Duration int
}

// Aggregate sums, for every record of date, the hourly counts spanned by
// slot. Records resolving to the same edge are summed and the edge keeps the
// position of its first appearance. Records without an edge id are ignored.
func Aggregate(t *models.FlowTable, date time.Time, slot Slot, opts Options) models.EdgeInterval {
	end := slot.Seconds()
	if opts.Duration > 0 {
		end = opts.Duration
	}
	iv := models.EdgeInterval{Begin: 0, End: end, Edges: []models.EdgeCount{}}
	if t == nil {
		return iv
	}

	key := date.Format(models.DateLayoutISO)
	pos := make(map[string]int)
	for i := range t.Records {
		rec := &t.Records[i]
		if rec.EdgeID == "" || rec.DateKey() != key {
			continue
		}
		count := 0
		for h := slot.Start; h < slot.End; h++ {
			count += rec.Counts[h]
		}
		if at, ok := pos[rec.EdgeID]; ok {
			iv.Edges[at].Entered += count
			continue
		}
		pos[rec.EdgeID] = len(iv.Edges)
		iv.Edges = append(iv.Edges, models.EdgeCount{EdgeID: rec.EdgeID, Entered: count})
	}
	return iv
}

// Hourly is the interval of one hour of one date
type Hourly struct {
	Date     time.Time
	Hour     int
	Interval models.EdgeInterval
}

// FileName returns edgedata_dd-mm-yyyy_hh.xml
func (h Hourly) FileName() string {
	return HourlyFileName(h.Date, h.Hour)
}

// HourlyFileName returns the per-hour edge data file name
func HourlyFileName(date time.Time, hour int) string {
	return fmt.Sprintf("edgedata_%s_%02d.xml", date.Format("02-01-2006"), hour)
}

// AggregateHourly produces one interval per hour for every date in
// [from, to] that has records. Dates are compared on their calendar value.
func AggregateHourly(t *models.FlowTable, from, to time.Time) []Hourly {
	if t == nil {
		return nil
	}
	lo, hi := from.Format(models.DateLayoutISO), to.Format(models.DateLayoutISO)

	var dates []time.Time
	seen := make(map[string]struct{})
	for _, rec := range t.Records {
		key := rec.DateKey()
		if key < lo || key > hi {
			continue
		}
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		dates = append(dates, rec.Date)
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })

	out := make([]Hourly, 0, len(dates)*models.HoursPerDay)
	for _, d := range dates {
		for h := 0; h < models.HoursPerDay; h++ {
			out = append(out, Hourly{Date: d, Hour: h, Interval: Aggregate(t, d, HourSlot(h), Options{})})
		}
	}
	return out
}

// WriteHourly writes every interval to dir and returns the written paths
func WriteHourly(dir string, items []Hourly, log logrus.FieldLogger) ([]string, error) {
	paths := make([]string, 0, len(items))
	for _, item := range items {
		path := filepath.Join(dir, item.FileName())
		if err := sumoxml.WriteEdgeDataFile(path, item.Interval); err != nil {
			return paths, err
		}
		paths = append(paths, path)
	}
	log.WithFields(logrus.Fields{"dir": dir, "files": len(paths)}).Info("hourly edge data written")
	return paths, nil
}
