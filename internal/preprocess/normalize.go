package preprocess

import (
	"github.com/sirupsen/logrus"

	"github.com/jengzang/sumo-flow-backend/internal/models"
	"github.com/jengzang/sumo-flow-backend/internal/spatial"
)

// DefaultGeoTolerance is the accepted disagreement, in meters, between the
// geopoint column and the latitude/longitude columns
const DefaultGeoTolerance = 50.0

// NormalizeOptions configures Normalize
type NormalizeOptions struct {
	GeoTolerance float64
}

// NormalizeReport counts the fills applied by Normalize
type NormalizeReport struct {
	DirectionsFilled  int `json:"directions_filled"`
	DirectionsMissing int `json:"directions_missing"`
	GeoPointsFilled   int `json:"geopoints_filled"`
	GeoPointsMissing  int `json:"geopoints_missing"`
	GeoMismatches     int `json:"geo_mismatches"`
}

// Normalize rewrites dates to year-month-day, fills missing directions from
// another record of the same sensor and fills missing geopoints from the
// coordinate columns. Records are modified in place.
func Normalize(t *models.FlowTable, opts NormalizeOptions, log logrus.FieldLogger) NormalizeReport {
	var report NormalizeReport
	if t == nil {
		return report
	}
	tolerance := opts.GeoTolerance
	if tolerance <= 0 {
		tolerance = DefaultGeoTolerance
	}

	directions := make(map[string]string)
	for _, rec := range t.Records {
		if rec.Direction == "" {
			continue
		}
		if _, ok := directions[rec.SensorCode]; !ok {
			directions[rec.SensorCode] = rec.Direction
		}
	}

	for i := range t.Records {
		rec := &t.Records[i]
		rec.DateLayout = models.DateLayoutISO

		if rec.Direction == "" {
			if dir, ok := directions[rec.SensorCode]; ok {
				rec.Direction = dir
				report.DirectionsFilled++
			} else {
				report.DirectionsMissing++
			}
		}

		switch {
		case rec.GeoPoint == "" && rec.HasCoords:
			rec.GeoPoint = spatial.GeoPoint{Lat: rec.Latitude, Lon: rec.Longitude}.String()
			report.GeoPointsFilled++
		case rec.GeoPoint == "":
			report.GeoPointsMissing++
		case rec.HasCoords:
			p, err := spatial.ParseGeoPoint(rec.GeoPoint)
			if err != nil {
				// left for the mapper to report as unresolved
				continue
			}
			d := spatial.HaversineDistance(p.Lat, p.Lon, rec.Latitude, rec.Longitude)
			if d > tolerance {
				report.GeoMismatches++
				log.WithFields(logrus.Fields{
					"row":      rec.Row + 1,
					"sensor":   rec.SensorCode,
					"geopoint": rec.GeoPoint,
					"meters":   int(d),
				}).Warn("geopoint disagrees with coordinate columns")
			}
		}
	}

	if report.DirectionsMissing > 0 || report.GeoPointsMissing > 0 {
		log.WithFields(logrus.Fields{
			"directions_missing": report.DirectionsMissing,
			"geopoints_missing":  report.GeoPointsMissing,
		}).Warn("records left without metadata")
	}
	return report
}
