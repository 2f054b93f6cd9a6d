package network

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	utm "github.com/im7mortal/UTM"
)

// ErrNoProjection is returned when the network carries no georeference
var ErrNoProjection = errors.New("network has no geo projection")

// Projection converts lon/lat degrees to planar meters
type Projection interface {
	Forward(lon, lat float64) (x, y float64, err error)
}

// ParseProjection interprets a SUMO projParameter string. "!" or an empty
// string yields a nil projection; only UTM is supported otherwise.
func ParseProjection(param string) (Projection, error) {
	param = strings.TrimSpace(param)
	if param == "" || param == "!" {
		return nil, nil
	}

	var proj string
	u := UTM{}
	for _, field := range strings.Fields(param) {
		key, value, _ := strings.Cut(strings.TrimPrefix(field, "+"), "=")
		switch key {
		case "proj":
			proj = value
		case "zone":
			zone, err := strconv.Atoi(value)
			if err != nil || zone < 1 || zone > 60 {
				return nil, fmt.Errorf("invalid utm zone %q", value)
			}
			u.Zone = zone
		case "south":
			u.South = true
		}
	}

	if proj != "utm" {
		return nil, fmt.Errorf("unsupported projection %q", param)
	}
	if u.Zone == 0 {
		return nil, fmt.Errorf("utm projection without zone: %q", param)
	}
	return u, nil
}

// UTM is a Universal Transverse Mercator zone on WGS84
type UTM struct {
	Zone  int
	South bool
}

// referenceZone has regular 6 degree bounds at every latitude
const referenceZone = 30

// Forward projects lon/lat (degrees) to easting/northing (meters) in zone
// u.Zone. The library derives the zone from the longitude, so the offset from
// the configured central meridian is evaluated around referenceZone.
func (u UTM) Forward(lon, lat float64) (float64, float64, error) {
	offset := lon - centralMeridian(u.Zone)
	if offset <= -3 || offset >= 3 {
		return 0, 0, fmt.Errorf("longitude %v outside utm zone %d", lon, u.Zone)
	}
	x, y, _, _, err := utm.FromLatLon(lat, centralMeridian(referenceZone)+offset, !u.South)
	if err != nil {
		return 0, 0, fmt.Errorf("utm zone %d: %w", u.Zone, err)
	}
	return x, y, nil
}

func centralMeridian(zone int) float64 {
	return float64((zone-1)*6 - 180 + 3)
}
