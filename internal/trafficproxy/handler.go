package trafficproxy

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httputil"
	"net/url"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// Handler exposes the Traffic Proxy's HTTP surface (spec §4.A): a
// geocoding adapter, a live-traffic-aware /route, pass-through
// /matrix and /sources_to_targets, introspection endpoints, and a
// catch-all reverse proxy for everything else.
type Handler struct {
	upstream     *url.URL
	httpClient   *http.Client
	table        *SpeedTable
	geocoder     *Geocoder
	reverseProxy *httputil.ReverseProxy
	log          *logrus.Entry
}

func NewHandler(upstreamURL string, table *SpeedTable, geocoder *Geocoder, log *logrus.Entry) (*Handler, error) {
	u, err := url.Parse(upstreamURL)
	if err != nil {
		return nil, err
	}
	return &Handler{
		upstream:     u,
		httpClient:   &http.Client{},
		table:        table,
		geocoder:     geocoder,
		reverseProxy: httputil.NewSingleHostReverseProxy(u),
		log:          log,
	}, nil
}

// Search handles GET /search?text=<addr>. It never fails (spec §4.A).
func (h *Handler) Search(c *gin.Context) {
	text := c.Query("text")
	if text == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "text parameter required"})
		return
	}

	result := h.geocoder.Resolve(c.Request.Context(), text)
	c.JSON(http.StatusOK, gin.H{
		"coordinates":  result.Coordinates,
		"confidence":   result.Confidence,
		"display_name": result.DisplayName,
		"district":     result.District,
	})
}

// Route handles POST /route: forwards to the upstream engine, then
// rewrites maneuver times with observed speeds when the caller opted in.
func (h *Handler) Route(c *gin.Context) {
	var body map[string]interface{}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	useTraffic := extractUseLiveTraffic(body)

	respBody, status, err := h.forwardJSON(c.Request.Context(), "/route", body, 30*time.Second)
	if err != nil {
		h.log.WithError(err).Error("route proxy error")
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if status >= 400 {
		c.Data(status, "application/json", respBody)
		return
	}

	var decoded map[string]interface{}
	if err := json.Unmarshal(respBody, &decoded); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "malformed upstream response"})
		return
	}

	applyLiveTraffic(decoded, h.table.Snapshot(), useTraffic)
	c.JSON(http.StatusOK, decoded)
}

// Matrix handles POST /matrix, aliasing the upstream's sources_to_targets
// endpoint. Live-traffic rewriting is deliberately not applied here: the
// Python original's matrix path referenced a rewriting method that was
// never defined, so this path is treated as pass-through only (spec §9
// open question).
func (h *Handler) Matrix(c *gin.Context) {
	h.passthroughJSON(c, "/sources_to_targets", 60*time.Second)
}

// SourcesToTargets handles POST /sources_to_targets: pure pass-through.
func (h *Handler) SourcesToTargets(c *gin.Context) {
	h.passthroughJSON(c, "/sources_to_targets", 60*time.Second)
}

func (h *Handler) passthroughJSON(c *gin.Context, upstreamPath string, timeout time.Duration) {
	var body map[string]interface{}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	respBody, status, err := h.forwardJSON(c.Request.Context(), upstreamPath, body, timeout)
	if err != nil {
		h.log.WithError(err).Error("matrix proxy error")
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.Data(status, "application/json", respBody)
}

// Status handles GET /status by forwarding to the upstream engine.
func (h *Handler) Status(c *gin.Context) {
	h.reverseProxy.ServeHTTP(c.Writer, c.Request)
}

// ProxyAll forwards any unmapped path transparently to the upstream engine
// (spec §4.A: "Unmapped paths are transparently proxied").
func (h *Handler) ProxyAll(c *gin.Context) {
	h.reverseProxy.ServeHTTP(c.Writer, c.Request)
}

// Health handles GET /health.
func (h *Handler) Health(c *gin.Context) {
	speeds := h.table.Snapshot()
	stats := gin.H{}
	if len(speeds) > 0 {
		var sum, min, max float64
		slow, fast := 0, 0
		first := true
		for _, s := range speeds {
			sum += s
			if first || s < min {
				min = s
			}
			if first || s > max {
				max = s
			}
			first = false
			if s < 20 {
				slow++
			}
			if s > 50 {
				fast++
			}
		}
		stats = gin.H{
			"avg_speed":  sum / float64(len(speeds)),
			"min_speed":  min,
			"max_speed":  max,
			"slow_roads": slow,
			"fast_roads": fast,
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"status":              "healthy",
		"traffic_data_count":  len(speeds),
		"traffic_stats":       stats,
		"upstream_routing_url": h.upstream.String(),
		"geocoding_method":    "kakao",
		"intercept_method":    "response_modification",
	})
}

// TrafficDebug handles GET /traffic-debug: a speed-distribution snapshot.
func (h *Handler) TrafficDebug(c *gin.Context) {
	speeds := h.table.Snapshot()
	if len(speeds) == 0 {
		c.JSON(http.StatusOK, gin.H{"message": "교통 데이터 없음"})
		return
	}

	var sum, min, max float64
	distribution := gin.H{"very_slow": 0, "slow": 0, "normal": 0, "fast": 0}
	first := true
	sample := gin.H{}
	i := 0
	for osmID, s := range speeds {
		sum += s
		if first || s < min {
			min = s
		}
		if first || s > max {
			max = s
		}
		first = false

		switch {
		case s < 15:
			distribution["very_slow"] = distribution["very_slow"].(int) + 1
		case s < 30:
			distribution["slow"] = distribution["slow"].(int) + 1
		case s < 50:
			distribution["normal"] = distribution["normal"].(int) + 1
		default:
			distribution["fast"] = distribution["fast"].(int) + 1
		}

		if i < 10 {
			sample[osmID] = s
			i++
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"total_roads": len(speeds),
		"speed_stats": gin.H{
			"avg": sum / float64(len(speeds)),
			"min": min,
			"max": max,
		},
		"speed_distribution": distribution,
		"sample_data":        sample,
	})
}

// forwardJSON posts body to the upstream engine and returns the raw
// response bytes and status, leaving interpretation to the caller.
func (h *Handler) forwardJSON(ctx context.Context, path string, body interface{}, timeout time.Duration) ([]byte, int, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	buf, err := json.Marshal(body)
	if err != nil {
		return nil, 0, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.upstream.String()+path, bytes.NewReader(buf))
	if err != nil {
		return nil, 0, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := h.httpClient.Do(req)
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, 0, err
	}
	return respBody, resp.StatusCode, nil
}

// extractUseLiveTraffic reads costing_options[costing].use_live_traffic
// from a decoded /route request body, defaulting costing to "auto" as the
// routing engine does.
func extractUseLiveTraffic(body map[string]interface{}) bool {
	costing, _ := body["costing"].(string)
	if costing == "" {
		costing = "auto"
	}
	costingOptions, ok := body["costing_options"].(map[string]interface{})
	if !ok {
		return false
	}
	opts, ok := costingOptions[costing].(map[string]interface{})
	if !ok {
		return false
	}
	useTraffic, _ := opts["use_live_traffic"].(bool)
	return useTraffic
}
