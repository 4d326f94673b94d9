package trafficproxy

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSpeedTable_SwapIsAtomic(t *testing.T) {
	table := NewSpeedTable()
	assert.Equal(t, 0, table.Len())

	table.Swap(map[string]float64{"123": 42.0})
	snap := table.Snapshot()
	assert.Equal(t, 1, len(snap))
	assert.Equal(t, 42.0, snap["123"])
}

func TestLoadLinkMapping(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "mapping.csv")
	content := "service_link_id,osm_way_id\n" +
		"1001,2001.0\n" +
		"1002,NaN\n" +
		"1003,\n" +
		",2004\n" +
		"1005,not-a-number\n" +
		"1006,2006\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	mapping, err := LoadLinkMapping(path)
	require.NoError(t, err)

	assert.Equal(t, 2, mapping.Loaded)
	assert.Equal(t, 4, mapping.Skipped)
	assert.Equal(t, "2001", mapping.ServiceToOSM["1001"])
	assert.Equal(t, "2006", mapping.ServiceToOSM["1006"])
}

func TestLoadLinkMapping_MissingFile(t *testing.T) {
	_, err := LoadLinkMapping("/nonexistent/mapping.csv")
	assert.Error(t, err)
}

func TestDistrictCentroidFor_KnownDistrict(t *testing.T) {
	lat, lon, name, confidence, district := districtCentroidFor("서울 강남구 테헤란로 152")
	assert.Equal(t, 37.5172, lat)
	assert.Equal(t, 127.0473, lon)
	assert.Equal(t, "강남구 역삼동", name)
	assert.Equal(t, 0.5, confidence)
	assert.Equal(t, "강남구", district)
}

func TestDistrictCentroidFor_UnknownFallsBackToCityCentroid(t *testing.T) {
	lat, lon, name, confidence, district := districtCentroidFor("알 수 없는 주소")
	assert.Equal(t, cityCentroidLat, lat)
	assert.Equal(t, cityCentroidLon, lon)
	assert.Equal(t, cityCentroidName, name)
	assert.Equal(t, 0.1, confidence)
	assert.Equal(t, "", district)
}
