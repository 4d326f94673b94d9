package routingclient

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/saan-system/dispatch/internal/domain/entity"
)

func TestClient_Matrix_FillsUnreachableCellsWithPenalty(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"sources_to_targets":[[{"time":0,"distance":0},null],[{"time":42,"distance":5},{"time":0,"distance":0}]]}`)
	}))
	defer server.Close()

	c := New(server.URL)
	matrix, err := c.Matrix(context.Background(), []entity.Location{{Lat: 1, Lon: 1}, {Lat: 2, Lon: 2}})
	require.NoError(t, err)

	assert.Equal(t, 0, matrix[0][0])
	assert.Equal(t, unreachablePenalty, matrix[0][1])
	assert.Equal(t, 42, matrix[1][0])
}

func TestClient_Search_DecodesFlattenedResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"coordinates":[127.05,37.52],"confidence":0.95,"display_name":"test place","district":"강남구"}`)
	}))
	defer server.Close()

	c := New(server.URL)
	result, err := c.Search(context.Background(), "서울 강남구 테헤란로 152")
	require.NoError(t, err)

	assert.InDelta(t, 127.05, result.Lon, 1e-9)
	assert.InDelta(t, 37.52, result.Lat, 1e-9)
	assert.Equal(t, "강남구", result.District)
}

func TestClient_Route_RequiresAtLeastTwoLocations(t *testing.T) {
	c := New("http://example.invalid")
	_, err := c.Route(context.Background(), []entity.Location{{Lat: 1, Lon: 1}}, false)
	require.Error(t, err)
}
