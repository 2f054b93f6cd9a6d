package spatial

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseGeoPoint(t *testing.T) {
	p, err := ParseGeoPoint("44.4949, 11.3426")
	require.NoError(t, err)
	assert.InDelta(t, 44.4949, p.Lat, 1e-9)
	assert.InDelta(t, 11.3426, p.Lon, 1e-9)
	assert.Equal(t, "44.4949,11.3426", p.String())
}

func TestParseGeoPointErrors(t *testing.T) {
	for _, in := range []string{"", "44.49", "a,b", "44.49,11.34,0", "91,11", "44,181"} {
		_, err := ParseGeoPoint(in)
		assert.Error(t, err, in)
	}
}

func TestHaversineDistance(t *testing.T) {
	// Bologna, Piazza Maggiore -> Due Torri, roughly 280 m apart
	d := HaversineDistance(44.49381, 11.34265, 44.49415, 11.34617)
	assert.InDelta(t, 282, d, 20)

	assert.InDelta(t, 0, Distance(GeoPoint{44.5, 11.3}, GeoPoint{44.5, 11.3}), 1e-6)

	// one degree of latitude is about 111.2 km
	assert.InDelta(t, 111195, HaversineDistance(0, 0, 1, 0), 50)
}
