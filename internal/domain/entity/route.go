package entity

// Coordinate is a decoded lat/lon pair, precision-6 polylines decode to a
// list of these.
type Coordinate struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Maneuver is one routing-engine instruction step. BeginShapeIndex anchors
// it into the trip's decoded shape, the index used to derive a waypoint.
type Maneuver struct {
	Instruction     string   `json:"instruction"`
	StreetNames     []string `json:"street_names,omitempty"`
	Length          float64  `json:"length"`
	Time            float64  `json:"time"`
	OriginalTime    float64  `json:"original_time,omitempty"`
	BeginShapeIndex int      `json:"begin_shape_index"`
}

// Leg groups the maneuvers between two consecutive break locations.
type Leg struct {
	Summary   Summary    `json:"summary"`
	Maneuvers []Maneuver `json:"maneuvers"`
	Shape     string     `json:"shape"`
}

// Summary is the aggregate time/length of a trip or leg.
type Summary struct {
	Time   float64 `json:"time"`
	Length float64 `json:"length"`
}

// Waypoint is a user-facing stop derived from one maneuver.
type Waypoint struct {
	Lat         float64 `json:"lat"`
	Lon         float64 `json:"lon"`
	Name        string  `json:"name,omitempty"`
	Instruction string  `json:"instruction"`
}

// Trip is the routing engine's top-level route response.
type Trip struct {
	Summary Summary `json:"summary"`
	Legs    []Leg   `json:"legs"`
}

// Route is the ephemeral value returned to dispatch clients: the raw trip
// plus derived, fully decoded conveniences.
type Route struct {
	Trip        Trip         `json:"trip"`
	Waypoints   []Waypoint   `json:"waypoints"`
	Coordinates []Coordinate `json:"coordinates"`
}

// Location is a named point: a geocoded address, the hub, or a driver's
// last-completed stop.
type Location struct {
	Lat  float64 `json:"lat"`
	Lon  float64 `json:"lon"`
	Name string  `json:"name,omitempty"`
}
