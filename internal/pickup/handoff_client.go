package pickup

import (
	"context"
	"time"

	"github.com/saan-system/dispatch/internal/platform/httpclient"
)

// HTTPHandoff calls the Delivery Dispatcher's cutover endpoints over HTTP,
// since pickup and delivery are separate deployable processes (spec §2's
// five cooperating services) rather than sharing an in-process call.
type HTTPHandoff struct {
	http *httpclient.Client
}

func NewHTTPHandoff(deliveryServiceURL string) *HTTPHandoff {
	return &HTTPHandoff{http: httpclient.New(deliveryServiceURL, 30*time.Second)}
}

type cutoverResponse struct {
	TransitionedCount int `json:"transitioned_count"`
	AssignedCount     int `json:"assigned_count"`
}

func (h *HTTPHandoff) Import(ctx context.Context, today time.Time) (int, error) {
	var resp cutoverResponse
	if err := h.http.Do(ctx, "POST", "/delivery/import", nil, &resp); err != nil {
		return 0, err
	}
	return resp.TransitionedCount, nil
}

func (h *HTTPHandoff) Assign(ctx context.Context, today time.Time) (int, error) {
	var resp cutoverResponse
	if err := h.http.Do(ctx, "POST", "/delivery/assign", nil, &resp); err != nil {
		return 0, err
	}
	return resp.AssignedCount, nil
}
