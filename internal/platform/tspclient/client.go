// Package tspclient calls the TSP Solver Adapter's POST /solve, grounded
// on the same httpclient.Client pattern as routingclient.
package tspclient

import (
	"context"
	"fmt"
	"time"

	"github.com/saan-system/dispatch/internal/platform/httpclient"
)

type Client struct {
	http *httpclient.Client
}

func New(baseURL string) *Client {
	return &Client{http: httpclient.New(baseURL, 30*time.Second)}
}

type solveRequest struct {
	Matrix [][]int `json:"matrix"`
}

type solveResponse struct {
	Tour       []int   `json:"tour"`
	TourLength float64 `json:"tour_length"`
}

// Solve submits a square cost matrix and returns the tour (a permutation
// of [0,N) starting at 0) and its total length.
func (c *Client) Solve(ctx context.Context, matrix [][]int) ([]int, float64, error) {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	var resp solveResponse
	if err := c.http.Do(ctx, "POST", "/solve", solveRequest{Matrix: matrix}, &resp); err != nil {
		return nil, 0, fmt.Errorf("tsp solve: %w", err)
	}
	return resp.Tour, resp.TourLength, nil
}
