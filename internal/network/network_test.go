package network

import (
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jengzang/sumo-flow-backend/internal/models"
)

const sampleNet = `<?xml version="1.0" encoding="UTF-8"?>
<net version="1.16">
    <location netOffset="-686000.00,-4929000.00" convBoundary="0.00,0.00,1000.00,1000.00" projParameter="+proj=utm +zone=32 +ellps=WGS84 +datum=WGS84 +units=m +no_defs"/>
    <edge id=":J1_0" function="internal">
        <lane id=":J1_0_0" index="0" speed="13.89" length="5.00" shape="100.00,0.00 100.00,5.00"/>
    </edge>
    <edge id="E1" from="J0" to="J1" name="Via Roma" priority="-1" type="highway.residential">
        <lane id="E1_0" index="0" speed="13.89" length="100.00" shape="0.00,0.00 100.00,0.00"/>
        <lane id="E1_1" index="1" speed="13.89" length="100.00" shape="0.00,3.20 100.00,3.20"/>
    </edge>
    <edge id="E2" from="J1" to="J2" name="Via Emilia" type="highway.primary" shape="100.00,0.00 100.00,200.00">
        <param key="origId" value="123"/>
        <lane id="E2_0" index="0" speed="13.89" length="200.00" shape="101.60,0.00 101.60,200.00"/>
    </edge>
    <edge id="F1" from="J2" to="J3" type="highway.footway">
        <lane id="F1_0" index="0" speed="2.00" length="50.00" shape="0.00,10.00 50.00,10.00"/>
    </edge>
</net>`

func TestLoad(t *testing.T) {
	n, err := Load(strings.NewReader(sampleNet))
	require.NoError(t, err)

	require.Len(t, n.Edges, 3)
	for _, e := range n.Edges {
		assert.NotEqual(t, ":J1_0", e.ID)
	}

	e1 := n.Edges[0]
	require.Equal(t, "E1", e1.ID)
	assert.Equal(t, "Via Roma", e1.Name)
	assert.Equal(t, "highway.residential", e1.Type)
	assert.Equal(t, orb.LineString{{0, 0}, {100, 0}}, e1.Shape)
	assert.Equal(t, "E1_0", e1.FirstLaneID())
	assert.Len(t, e1.Lanes, 2)

	e2 := n.Edges[1]
	require.Equal(t, "E2", e2.ID)
	assert.Equal(t, orb.LineString{{100, 0}, {100, 200}}, e2.Shape)

	assert.Equal(t, orb.Point{-686000, -4929000}, n.Location.NetOffset)
}

func TestLoadFileMissing(t *testing.T) {
	_, err := LoadFile(filepath.Join(t.TempDir(), "absent.net.xml"))
	var missing *models.MissingInputError
	assert.True(t, errors.As(err, &missing))
}

func TestNearestEdges(t *testing.T) {
	n, err := Load(strings.NewReader(sampleNet))
	require.NoError(t, err)

	got := n.NearestEdges(orb.Point{50, 4}, 25)
	require.Len(t, got, 2)
	assert.Equal(t, "E1", got[0].Edge.ID)
	assert.InDelta(t, 4, got[0].Distance, 1e-9)
	assert.Equal(t, "F1", got[1].Edge.ID)
	assert.InDelta(t, 6, got[1].Distance, 1e-9)

	got = n.NearestEdges(orb.Point{90, 100}, 25)
	require.Len(t, got, 1)
	assert.Equal(t, "E2", got[0].Edge.ID)

	assert.Empty(t, n.NearestEdges(orb.Point{500, 500}, 25))
}

func TestIndexEmpty(t *testing.T) {
	idx := NewIndex(nil)
	assert.Equal(t, 0, idx.Len())
	assert.Nil(t, idx.Within(orb.Point{0, 0}, 100))
}

func TestParseProjection(t *testing.T) {
	p, err := ParseProjection("+proj=utm +zone=33 +south +ellps=WGS84")
	require.NoError(t, err)
	assert.Equal(t, UTM{Zone: 33, South: true}, p)

	p, err = ParseProjection("!")
	require.NoError(t, err)
	assert.Nil(t, p)

	_, err = ParseProjection("+proj=merc")
	assert.Error(t, err)
	_, err = ParseProjection("+proj=utm +zone=99")
	assert.Error(t, err)
}

func TestUTMForward(t *testing.T) {
	zone32 := UTM{Zone: 32}

	// central meridian of zone 32 is 9°E
	x, y, err := zone32.Forward(9, 0)
	require.NoError(t, err)
	assert.InDelta(t, 500000, x, 1e-3)
	assert.InDelta(t, 0, y, 1e-3)

	// meridian arc to 45°N is 4984944 m, scaled by k0
	x, y, err = zone32.Forward(9, 45)
	require.NoError(t, err)
	assert.InDelta(t, 500000, x, 1e-3)
	assert.InDelta(t, 4982950, y, 5)

	// symmetric about the central meridian
	xe, ye, err := zone32.Forward(10, 44.5)
	require.NoError(t, err)
	xw, yw, err := zone32.Forward(8, 44.5)
	require.NoError(t, err)
	assert.InDelta(t, 500000-xw, xe-500000, 1e-3)
	assert.InDelta(t, ye, yw, 1e-3)

	// 12.5°E belongs to zone 33 but is projected in the configured zone
	xz, yz, err := zone32.Forward(12.5, 44.5)
	require.NoError(t, err)
	xm, ym, err := zone32.Forward(5.5, 44.5)
	require.NoError(t, err)
	assert.InDelta(t, 500000-xm, xz-500000, 1e-3)
	assert.InDelta(t, ym, yz, 1e-3)
	assert.Greater(t, xz, xe)

	_, yn, err := zone32.Forward(9, 10)
	require.NoError(t, err)
	_, ys, err := UTM{Zone: 32, South: true}.Forward(9, -10)
	require.NoError(t, err)
	assert.InDelta(t, 10000000-yn, ys, 1e-3)

	_, _, err = zone32.Forward(15, 44)
	assert.Error(t, err)
	_, _, err = zone32.Forward(9, 89)
	assert.Error(t, err)
}

func TestConvertLonLat(t *testing.T) {
	n, err := Load(strings.NewReader(sampleNet))
	require.NoError(t, err)

	p, err := n.ConvertLonLat(11.3426, 44.4949)
	require.NoError(t, err)
	x, y, err := UTM{Zone: 32}.Forward(11.3426, 44.4949)
	require.NoError(t, err)
	assert.InDelta(t, x-686000, p[0], 1e-6)
	assert.InDelta(t, y-4929000, p[1], 1e-6)

	plain, err := New(Location{ProjParameter: "!"}, nil)
	require.NoError(t, err)
	_, err = plain.ConvertLonLat(11, 44)
	assert.ErrorIs(t, err, ErrNoProjection)
}
