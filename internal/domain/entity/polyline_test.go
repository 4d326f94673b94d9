package entity

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// encodePolylineForTest encodes coordinates at precision 1e6, the inverse
// of DecodePolyline, used only to build fixtures for the round-trip test
// below.
func encodePolylineForTest(coords []Coordinate) string {
	var out []byte
	lastLat, lastLon := 0, 0

	encodeValue := func(value int) {
		value <<= 1
		if value < 0 {
			value = ^value
		}
		for value >= 0x20 {
			out = append(out, byte((0x20|(value&0x1f))+63))
			value >>= 5
		}
		out = append(out, byte(value+63))
	}

	for _, c := range coords {
		lat := int(c.Lat * polylinePrecision)
		lon := int(c.Lon * polylinePrecision)
		encodeValue(lat - lastLat)
		encodeValue(lon - lastLon)
		lastLat, lastLon = lat, lon
	}
	return string(out)
}

func TestDecodePolyline_Empty(t *testing.T) {
	_, err := DecodePolyline("")
	assert.ErrorIs(t, err, ErrEmptyPolyline)
}

func TestDecodePolyline_RoundTrip(t *testing.T) {
	original := []Coordinate{
		{Lat: 37.5665, Lon: 126.9780},
		{Lat: 37.5700, Lon: 126.9820},
		{Lat: 37.5600, Lon: 126.9900},
	}

	encoded := encodePolylineForTest(original)
	decoded, err := DecodePolyline(encoded)

	require.NoError(t, err)
	require.Len(t, decoded, len(original))
	for i, c := range original {
		assert.InDelta(t, c.Lat, decoded[i].Lat, 1e-5)
		assert.InDelta(t, c.Lon, decoded[i].Lon, 1e-5)
	}
}

func TestDecodePolyline_SinglePoint(t *testing.T) {
	original := []Coordinate{{Lat: 37.5665, Lon: 126.9780}}
	decoded, err := DecodePolyline(encodePolylineForTest(original))

	require.NoError(t, err)
	require.Len(t, decoded, 1)
	assert.InDelta(t, original[0].Lat, decoded[0].Lat, 1e-5)
	assert.InDelta(t, original[0].Lon, decoded[0].Lon, 1e-5)
}
