package spatial

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/golang/geo/s2"
)

// GeoPoint is a WGS84 coordinate
type GeoPoint struct {
	Lat float64
	Lon float64
}

// ParseGeoPoint parses the open-data "lat,lon" geopoint string
func ParseGeoPoint(value string) (GeoPoint, error) {
	parts := strings.Split(value, ",")
	if len(parts) != 2 {
		return GeoPoint{}, fmt.Errorf("geopoint %q: expected \"lat,lon\"", value)
	}

	lat, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	if err != nil {
		return GeoPoint{}, fmt.Errorf("geopoint %q: latitude: %w", value, err)
	}
	lon, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil {
		return GeoPoint{}, fmt.Errorf("geopoint %q: longitude: %w", value, err)
	}

	p := GeoPoint{Lat: lat, Lon: lon}
	if !p.Valid() {
		return GeoPoint{}, fmt.Errorf("geopoint %q: coordinates out of range", value)
	}
	return p, nil
}

// Valid reports whether the coordinate lies within WGS84 bounds
func (p GeoPoint) Valid() bool {
	return s2.LatLngFromDegrees(p.Lat, p.Lon).IsValid()
}

// String formats the point the way the open-data feed writes it
func (p GeoPoint) String() string {
	return strconv.FormatFloat(p.Lat, 'f', -1, 64) + "," + strconv.FormatFloat(p.Lon, 'f', -1, 64)
}
