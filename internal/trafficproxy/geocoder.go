package trafficproxy

import (
	"context"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/saan-system/dispatch/internal/domain/entity"
	"github.com/saan-system/dispatch/internal/platform/cache"
	"github.com/saan-system/dispatch/internal/platform/httpclient"
)

// geocodeCacheTTL bounds how long a resolved address is trusted: long enough
// that repeat lookups of the same address (the common case — a handful of
// recurring pickup/delivery addresses per zone) skip the upstream API, short
// enough that a kakao-side correction isn't pinned forever.
const geocodeCacheTTL = 24 * time.Hour

// Geocoder adapts an external address/keyword search API behind the
// confidence-tiered fallback ladder in spec §4.A. Grounded on
// original_source/traffic_proxy.py's kakao_geocoding /
// get_default_coordinates_by_district pair.
type Geocoder struct {
	http  *httpclient.Client
	cache *cache.Cache
}

// NewGeocoder builds a Geocoder against the kakao API. cache may be nil —
// every lookup still works, just without the read-through cache.
func NewGeocoder(apiKey string, geocodeCache *cache.Cache) *Geocoder {
	c := httpclient.New(
		"https://dapi.kakao.com",
		10*time.Second,
		httpclient.WithHeader("Authorization", "KakaoAK "+apiKey),
	)
	return &Geocoder{http: c, cache: geocodeCache}
}

type kakaoDocument struct {
	X           string `json:"x"`
	Y           string `json:"y"`
	AddressName string `json:"address_name"`
	PlaceName   string `json:"place_name"`
	Address     struct {
		Region2DepthName string `json:"region_2depth_name"`
	} `json:"address"`
}

type kakaoResponse struct {
	Documents []kakaoDocument `json:"documents"`
}

// Resolve never fails (spec §4.A: "/search ... never fails: always returns
// a feature"). It tries a cached result first, then the address API, then
// the keyword API, then the static district/city centroid fallback.
func (g *Geocoder) Resolve(ctx context.Context, text string) entity.GeocodeResult {
	key := geocodeCacheKey(text)

	if g.cache != nil {
		var cached entity.GeocodeResult
		if hit, err := g.cache.GetJSON(ctx, key, &cached); err == nil && hit {
			return cached
		}
	}

	result := g.resolveUncached(ctx, text)

	if g.cache != nil {
		_ = g.cache.SetJSON(ctx, key, result, geocodeCacheTTL)
	}
	return result
}

func (g *Geocoder) resolveUncached(ctx context.Context, text string) entity.GeocodeResult {
	if doc, ok := g.search(ctx, "/v2/local/search/address.json", text); ok {
		return g.toResult(doc, text, entity.ConfidenceAPIHit)
	}
	if doc, ok := g.search(ctx, "/v2/local/search/keyword.json", text); ok {
		return g.toResult(doc, text, entity.ConfidenceKeywordFallback)
	}

	lat, lon, name, confidence, district := districtCentroidFor(text)
	if district == "" {
		district = entity.DistrictFromText(text)
	}
	return entity.GeocodeResult{
		Lat:         lat,
		Lon:         lon,
		Coordinates: [2]float64{lon, lat},
		Confidence:  confidence,
		DisplayName: name,
		District:    district,
	}
}

// geocodeCacheKey normalizes free-form address text to a stable cache key.
func geocodeCacheKey(text string) string {
	return "geocode:" + strings.Join(strings.Fields(text), " ")
}

func (g *Geocoder) search(ctx context.Context, path, text string) (kakaoDocument, bool) {
	var resp kakaoResponse
	fullPath := path + "?query=" + url.QueryEscape(text)
	if err := g.http.Do(ctx, "GET", fullPath, nil, &resp); err != nil {
		return kakaoDocument{}, false
	}
	if len(resp.Documents) == 0 {
		return kakaoDocument{}, false
	}
	return resp.Documents[0], true
}

func (g *Geocoder) toResult(doc kakaoDocument, original string, confidence float64) entity.GeocodeResult {
	lat, _ := strconv.ParseFloat(doc.Y, 64)
	lon, _ := strconv.ParseFloat(doc.X, 64)

	displayName := doc.AddressName
	if displayName == "" {
		displayName = doc.PlaceName
	}
	if displayName == "" {
		displayName = original
	}

	district := doc.Address.Region2DepthName
	if district == "" {
		district = entity.DistrictFromText(original)
	}

	return entity.GeocodeResult{
		Lat:         lat,
		Lon:         lon,
		Coordinates: [2]float64{lon, lat},
		Confidence:  confidence,
		DisplayName: displayName,
		District:    district,
	}
}
