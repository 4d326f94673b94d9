// Package routingclient is the dispatchers' window onto the Traffic Proxy:
// geocoding, matrix building and turn-by-turn routes, all spoken over the
// shared httpclient.Client. Grounded on the valhalla-http-client-go pack
// repo's request/response shapes (route.go, defs.go), rehosted on this
// system's own rate-limited client instead of that repo's fasthttp stack,
// to stay consistent with the chosen teacher's net/http-based integrations.
package routingclient

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/saan-system/dispatch/internal/domain/entity"
	"github.com/saan-system/dispatch/internal/platform/httpclient"
)

// Client talks to the Traffic Proxy's /route, /sources_to_targets and
// /search endpoints.
type Client struct {
	http *httpclient.Client
}

func New(baseURL string) *Client {
	return &Client{
		http: httpclient.New(baseURL, 30*time.Second),
	}
}

type routeRequest struct {
	Locations      []locationReq  `json:"locations"`
	CostingOptions map[string]any `json:"costing_options,omitempty"`
}

type locationReq struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

type routeResponse struct {
	Trip entity.Trip `json:"trip"`
}

// Route fetches turn-by-turn directions over locations (at least two
// points: current location first, destination last), decodes every leg's
// shape, and derives one waypoint per maneuver. useLiveTraffic is
// forwarded as costing_options.auto.use_live_traffic so the proxy knows
// to rewrite maneuver times (spec §4.A).
func (c *Client) Route(ctx context.Context, locations []entity.Location, useLiveTraffic bool) (*entity.Route, error) {
	if len(locations) < 2 {
		return nil, fmt.Errorf("route requires at least 2 locations, got %d", len(locations))
	}

	req := routeRequest{Locations: make([]locationReq, len(locations))}
	for i, l := range locations {
		req.Locations[i] = locationReq{Lat: l.Lat, Lon: l.Lon}
	}
	if useLiveTraffic {
		req.CostingOptions = map[string]any{
			"auto": map[string]any{"use_live_traffic": true},
		}
	}

	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	var resp routeResponse
	if err := c.http.Do(ctx, "POST", "/route", req, &resp); err != nil {
		return nil, fmt.Errorf("routing engine route: %w", err)
	}

	route := &entity.Route{Trip: resp.Trip}
	for _, leg := range resp.Trip.Legs {
		coords, err := entity.DecodePolyline(leg.Shape)
		if err == nil {
			route.Coordinates = append(route.Coordinates, coords...)
		}
		for _, m := range leg.Maneuvers {
			wp := entity.Waypoint{Instruction: m.Instruction}
			if m.BeginShapeIndex >= 0 && m.BeginShapeIndex < len(coords) {
				wp.Lat = coords[m.BeginShapeIndex].Lat
				wp.Lon = coords[m.BeginShapeIndex].Lon
			}
			route.Waypoints = append(route.Waypoints, wp)
		}
	}
	return route, nil
}

type matrixRequest struct {
	Sources []locationReq `json:"sources"`
	Targets []locationReq `json:"targets"`
}

type matrixResponse struct {
	SourcesToTargets [][]*entity.MatrixCell `json:"sources_to_targets"`
}

// unreachablePenalty stands in for the routing engine's "null" cell: large
// enough that the TSP solver never prefers it over a real edge, but still
// finite, per spec §4.C's "tie-break" note and §8's boundary behavior.
const unreachablePenalty = 1 << 20

// Matrix builds a square travel-time matrix (seconds) over locations,
// sources and targets both equal to locations. Unreachable pairs (nil
// cells) are replaced with a large finite sentinel so the TSP solver
// always receives a complete matrix.
func (c *Client) Matrix(ctx context.Context, locations []entity.Location) ([][]int, error) {
	reqLocs := make([]locationReq, len(locations))
	for i, l := range locations {
		reqLocs[i] = locationReq{Lat: l.Lat, Lon: l.Lon}
	}

	ctx, cancel := context.WithTimeout(ctx, 60*time.Second)
	defer cancel()

	var resp matrixResponse
	req := matrixRequest{Sources: reqLocs, Targets: reqLocs}
	if err := c.http.Do(ctx, "POST", "/sources_to_targets", req, &resp); err != nil {
		return nil, fmt.Errorf("routing engine matrix: %w", err)
	}

	n := len(locations)
	matrix := make([][]int, n)
	for i := 0; i < n; i++ {
		matrix[i] = make([]int, n)
		var row []*entity.MatrixCell
		if i < len(resp.SourcesToTargets) {
			row = resp.SourcesToTargets[i]
		}
		for j := 0; j < n; j++ {
			if i == j {
				matrix[i][j] = 0
				continue
			}
			var cell *entity.MatrixCell
			if j < len(row) {
				cell = row[j]
			}
			if cell == nil {
				matrix[i][j] = unreachablePenalty
				continue
			}
			matrix[i][j] = int(cell.Time)
		}
	}
	return matrix, nil
}

type searchResponse struct {
	Coordinates [2]float64 `json:"coordinates"`
	Confidence  float64    `json:"confidence"`
	DisplayName string     `json:"display_name"`
	District    string     `json:"district"`
}

// Search geocodes free-form text via the Traffic Proxy's /search, which
// never fails — it always returns at least a city-centroid fallback.
func (c *Client) Search(ctx context.Context, text string) (*entity.GeocodeResult, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	var resp searchResponse
	path := fmt.Sprintf("/search?text=%s", url.QueryEscape(text))
	if err := c.http.Do(ctx, "GET", path, nil, &resp); err != nil {
		return nil, fmt.Errorf("geocoder search: %w", err)
	}

	return &entity.GeocodeResult{
		Lon:         resp.Coordinates[0],
		Lat:         resp.Coordinates[1],
		Coordinates: resp.Coordinates,
		Confidence:  resp.Confidence,
		DisplayName: resp.DisplayName,
		District:    resp.District,
	}, nil
}
