package trafficproxy

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/saan-system/dispatch/internal/domain/entity"
	"github.com/saan-system/dispatch/internal/platform/httpclient"
)

func TestGeocoder_Resolve_AddressAPIHit(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"documents":[{"x":"127.0473","y":"37.5172","address_name":"서울 강남구 역삼동","address":{"region_2depth_name":"강남구"}}]}`)
	}))
	defer server.Close()

	g := &Geocoder{http: httpclient.New(server.URL, 5*time.Second)}
	result := g.Resolve(context.Background(), "서울 강남구 테헤란로 152")

	assert.Equal(t, entity.ConfidenceAPIHit, result.Confidence)
	assert.Equal(t, "강남구", result.District)
	assert.InDelta(t, 37.5172, result.Lat, 0.0001)
	assert.InDelta(t, 127.0473, result.Lon, 0.0001)
}

func TestGeocoder_Resolve_FallsBackToDistrictCentroid(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"documents":[]}`)
	}))
	defer server.Close()

	g := &Geocoder{http: httpclient.New(server.URL, 5*time.Second)}
	result := g.Resolve(context.Background(), "서울 송파구 잠실동 어딘가")

	assert.Equal(t, entity.ConfidenceDistrictCentroid, result.Confidence)
	assert.Equal(t, "송파구", result.District)
}

func TestGeocoder_Resolve_UpstreamDownFallsBackToCityCentroid(t *testing.T) {
	g := &Geocoder{http: httpclient.New("http://127.0.0.1:1", 1*time.Second)}
	result := g.Resolve(context.Background(), "알 수 없는 주소")

	assert.Equal(t, entity.ConfidenceCityCentroid, result.Confidence)
	assert.Equal(t, cityCentroidName, result.DisplayName)
}

func TestGeocoder_Resolve_NilCacheStillWorks(t *testing.T) {
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		fmt.Fprint(w, `{"documents":[{"x":"127.0473","y":"37.5172","address_name":"서울 강남구 역삼동","address":{"region_2depth_name":"강남구"}}]}`)
	}))
	defer server.Close()

	g := &Geocoder{http: httpclient.New(server.URL, 5*time.Second)}
	g.Resolve(context.Background(), "서울 강남구 테헤란로 152")
	g.Resolve(context.Background(), "서울 강남구 테헤란로 152")

	assert.Equal(t, 2, calls, "without a cache, every Resolve call must hit the upstream")
}

func TestGeocodeCacheKey_NormalizesWhitespace(t *testing.T) {
	assert.Equal(t, geocodeCacheKey("서울  강남구   테헤란로 152"), geocodeCacheKey("서울 강남구 테헤란로 152"))
	assert.Equal(t, "geocode:서울 강남구", geocodeCacheKey("  서울   강남구  "))
}
