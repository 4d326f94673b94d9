// Package trafficproxy fronts the external routing engine (spec §4.A):
// it rewrites routed responses with observed road speeds, adapts an
// external geocoder behind a centroid fallback ladder, and transparently
// proxies everything else. Grounded on original_source/traffic_proxy.py.
package trafficproxy

import (
	"encoding/csv"
	"io"
	"os"
	"strconv"
	"strings"
	"sync/atomic"
)

// SpeedTable is the live road-speed mapping (OSM way id -> km/h), replaced
// atomically at the end of each ingestion cycle (spec §4.A: "readers...
// must see either the prior complete table or the new complete table,
// never a partial one").
type SpeedTable struct {
	table atomic.Pointer[map[string]float64]
}

// NewSpeedTable returns an empty table, safe to read from immediately.
func NewSpeedTable() *SpeedTable {
	t := &SpeedTable{}
	empty := map[string]float64{}
	t.table.Store(&empty)
	return t
}

// Swap atomically replaces the table contents. The single ingestion
// goroutine is the only writer, so no write-side lock is needed.
func (t *SpeedTable) Swap(next map[string]float64) {
	t.table.Store(&next)
}

// Snapshot returns the current table. Callers must not mutate it.
func (t *SpeedTable) Snapshot() map[string]float64 {
	return *t.table.Load()
}

// Len reports the current table size.
func (t *SpeedTable) Len() int {
	return len(t.Snapshot())
}

// LinkMapping is the municipal service-link id -> OSM way id table loaded
// once at startup from service_to_osm_mapping.csv (spec §6: columns
// service_link_id, osm_way_id).
type LinkMapping struct {
	ServiceToOSM map[string]string
	Loaded       int
	Skipped      int
}

// LoadLinkMapping reads the CSV mapping file, skipping blank, "NaN", or
// non-numeric osm_way_id rows (spec §4.A ingestion-loop bullet 1).
// encoding/csv is used because no pack library exists for this one-shot,
// header-driven CSV read (see DESIGN.md).
func LoadLinkMapping(path string) (*LinkMapping, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	header, err := r.Read()
	if err != nil {
		return nil, err
	}
	serviceCol, osmCol := -1, -1
	for i, h := range header {
		switch strings.TrimSpace(h) {
		case "service_link_id":
			serviceCol = i
		case "osm_way_id":
			osmCol = i
		}
	}

	m := &LinkMapping{ServiceToOSM: map[string]string{}}
	for {
		row, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			m.Skipped++
			continue
		}
		if serviceCol < 0 || osmCol < 0 || serviceCol >= len(row) || osmCol >= len(row) {
			m.Skipped++
			continue
		}

		serviceID := strings.TrimSpace(row[serviceCol])
		osmRaw := strings.TrimSpace(row[osmCol])
		if serviceID == "" || osmRaw == "" || strings.EqualFold(osmRaw, "nan") {
			m.Skipped++
			continue
		}

		osmFloat, err := strconv.ParseFloat(osmRaw, 64)
		if err != nil {
			m.Skipped++
			continue
		}

		m.ServiceToOSM[serviceID] = strconv.Itoa(int(osmFloat))
		m.Loaded++
	}
	return m, nil
}

// districtCentroid is one row of the static district->coordinate fallback
// table used when the external geocoder cannot resolve an address (spec
// §4.A confidence tier 0.5).
type districtCentroid struct {
	lat, lon float64
	name     string
}

// districtCentroids mirrors original_source/traffic_proxy.py's
// get_default_coordinates_by_district table.
var districtCentroids = map[string]districtCentroid{
	"강남구":  {37.5172, 127.0473, "강남구 역삼동"},
	"서초구":  {37.4837, 127.0324, "서초구 서초동"},
	"송파구":  {37.5145, 127.1059, "송파구 잠실동"},
	"강동구":  {37.5301, 127.1238, "강동구 천호동"},
	"성동구":  {37.5634, 127.0369, "성동구 성수동"},
	"광진구":  {37.5384, 127.0822, "광진구 광장동"},
	"동대문구": {37.5744, 127.0396, "동대문구 전농동"},
	"중랑구":  {37.6063, 127.0927, "중랑구 면목동"},
	"종로구":  {37.5735, 126.9790, "종로구 종로"},
	"중구":   {37.5641, 126.9979, "중구 명동"},
	"용산구":  {37.5311, 126.9810, "용산구 한강로"},
	"성북구":  {37.5894, 127.0167, "성북구 성북동"},
	"강북구":  {37.6396, 127.0253, "강북구 번동"},
	"도봉구":  {37.6687, 127.0472, "도봉구 방학동"},
	"노원구":  {37.6543, 127.0568, "노원구 상계동"},
	"은평구":  {37.6176, 126.9269, "은평구 불광동"},
	"서대문구": {37.5791, 126.9368, "서대문구 신촌동"},
	"마포구":  {37.5638, 126.9084, "마포구 공덕동"},
	"양천구":  {37.5170, 126.8667, "양천구 목동"},
	"강서구":  {37.5509, 126.8496, "강서구 화곡동"},
	"구로구":  {37.4954, 126.8877, "구로구 구로동"},
	"금천구":  {37.4564, 126.8955, "금천구 가산동"},
	"영등포구": {37.5263, 126.8966, "영등포구 영등포동"},
	"동작구":  {37.5124, 126.9393, "동작구 상도동"},
	"관악구":  {37.4784, 126.9516, "관악구 봉천동"},
}

// cityCentroidLat/Lon/Name is the last-resort fallback when no district
// token is found in the address at all (spec §4.A confidence tier 0.1).
const (
	cityCentroidLat  = 37.5665
	cityCentroidLon  = 126.9780
	cityCentroidName = "서울시청"
)

// districtCentroidFor finds the district token in addr and returns its
// centroid, falling back to the city centroid (and confidence 0.1) if no
// configured district appears in the text.
func districtCentroidFor(addr string) (lat, lon float64, name string, confidence float64, district string) {
	for d, c := range districtCentroids {
		if strings.Contains(addr, d) {
			return c.lat, c.lon, c.name, 0.5, d
		}
	}
	return cityCentroidLat, cityCentroidLon, cityCentroidName, 0.1, ""
}
