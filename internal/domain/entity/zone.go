package entity

import "strings"

// Zone is one of five operational regions. Each zone maps to exactly one
// pickup driver (1-5) and one delivery driver (6-10).
type Zone struct {
	Name               string
	PickupDriverID     int64
	DeliveryDriverID   int64
}

// zones is the static configuration table from spec §3: 25 districts
// grouped into 5 zones. This is a lookup table, not a core algorithm, but
// resolving a district string to a driver id is a required operation.
var zones = []struct {
	name      string
	districts []string
}{
	{"northeast", []string{"성북구", "강북구", "도봉구", "노원구", "중랑구"}},
	{"central", []string{"종로구", "중구", "용산구", "서대문구", "은평구"}},
	{"east", []string{"성동구", "광진구", "동대문구", "강동구", "송파구"}},
	{"west", []string{"마포구", "양천구", "강서구", "구로구", "금천구"}},
	{"south", []string{"영등포구", "동작구", "관악구", "서초구", "강남구"}},
}

// districtToZone and zoneToDrivers are derived once at init from the zones
// table above, so the rest of the code deals in simple map lookups.
var (
	districtToZone = make(map[string]string, 25)
	zoneToDrivers  = make(map[string]Zone, 5)
)

func init() {
	for i, z := range zones {
		zone := Zone{
			Name:             z.name,
			PickupDriverID:   int64(i + 1),
			DeliveryDriverID: int64(i + 6),
		}
		zoneToDrivers[z.name] = zone
		for _, d := range z.districts {
			districtToZone[d] = z.name
		}
	}
}

// PickupDriverIDMin/Max and DeliveryDriverIDMin/Max are the fixed identity
// ranges (inclusive) for pickup and delivery drivers.
const (
	PickupDriverIDMin = 1
	PickupDriverIDMax = 5

	DeliveryDriverIDMin = 6
	DeliveryDriverIDMax = 10
)

// IsPickupDriver reports whether id is a valid pickup driver identity.
func IsPickupDriver(id int64) bool {
	return id >= PickupDriverIDMin && id <= PickupDriverIDMax
}

// IsDeliveryDriver reports whether id is a valid delivery driver identity.
func IsDeliveryDriver(id int64) bool {
	return id >= DeliveryDriverIDMin && id <= DeliveryDriverIDMax
}

// ErrDistrictUnresolvable is returned when no district can be extracted from
// an address and no zone can therefore be assigned.
type ErrDistrictUnresolvable struct {
	Addr string
}

func (e *ErrDistrictUnresolvable) Error() string {
	return "district unresolvable from address: " + e.Addr
}

// DistrictFromText extracts the last "...구" token from free-form address
// text, the fallback path used when the geocoder is unavailable or a
// district-2-depth name isn't returned. Returns "" if no such token exists.
func DistrictFromText(addr string) string {
	fields := strings.Fields(addr)
	for i := len(fields) - 1; i >= 0; i-- {
		if strings.HasSuffix(fields[i], "구") {
			return fields[i]
		}
	}
	return ""
}

// ResolvePickupDriver maps a district name to its pickup driver id.
func ResolvePickupDriver(district string) (int64, error) {
	zoneName, ok := districtToZone[district]
	if !ok {
		return 0, &ErrDistrictUnresolvable{Addr: district}
	}
	return zoneToDrivers[zoneName].PickupDriverID, nil
}

// ResolveDeliveryDriver maps a district name to its delivery driver id.
func ResolveDeliveryDriver(district string) (int64, error) {
	zoneName, ok := districtToZone[district]
	if !ok {
		return 0, &ErrDistrictUnresolvable{Addr: district}
	}
	return zoneToDrivers[zoneName].DeliveryDriverID, nil
}

// Districts returns every configured district name, in no particular
// order.
func Districts() []string {
	out := make([]string, 0, len(districtToZone))
	for d := range districtToZone {
		out = append(out, d)
	}
	return out
}
