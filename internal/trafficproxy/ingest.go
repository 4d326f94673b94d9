package trafficproxy

import (
	"context"
	"encoding/xml"
	"fmt"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/saan-system/dispatch/internal/platform/httpclient"
)

const (
	perCallSpacing = 50 * time.Millisecond
	perCallTimeout = 5 * time.Second
)

// trafficInfoResponse is the municipal feed's per-link XML payload (spec
// §6: "{RESULT/CODE, row/{link_id, prcs_spd}}").
type trafficInfoResponse struct {
	Result struct {
		Code string `xml:"CODE"`
	} `xml:"RESULT"`
	Row struct {
		LinkID  string `xml:"link_id"`
		PrcsSpd string `xml:"prcs_spd"`
	} `xml:"row"`
}

// Ingestor runs the traffic proxy's single long-lived background refresh
// worker (spec §4.A: immediate first fetch, then sleep-and-repeat).
type Ingestor struct {
	mapping  *LinkMapping
	table    *SpeedTable
	client   *httpclient.Client
	apiKey   string
	interval time.Duration
	log      *logrus.Entry
}

func NewIngestor(mapping *LinkMapping, table *SpeedTable, feedBaseURL, apiKey string, interval time.Duration, log *logrus.Entry) *Ingestor {
	return &Ingestor{
		mapping:  mapping,
		table:    table,
		client:   httpclient.New(feedBaseURL, perCallTimeout, httpclient.WithRateLimit(perCallSpacing, 1)),
		apiKey:   apiKey,
		interval: interval,
		log:      log,
	}
}

// Start launches the background refresh loop. It returns immediately; the
// worker runs until ctx is cancelled.
func (ig *Ingestor) Start(ctx context.Context) {
	go func() {
		ig.log.Info("첫 번째 교통 데이터 수집 시작")
		ig.runCycle(ctx)

		ticker := time.NewTicker(ig.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				ig.log.Info("주기적 교통 데이터 업데이트 시작")
				ig.runCycle(ctx)
			}
		}
	}()
}

// runCycle fetches every configured service link once and atomically
// swaps in the resulting table (spec §4.A: "At cycle end, the new table
// replaces the old table atomically").
func (ig *Ingestor) runCycle(ctx context.Context) {
	next := make(map[string]float64, len(ig.mapping.ServiceToOSM))
	success, fail := 0, 0

	for serviceLink, osmID := range ig.mapping.ServiceToOSM {
		if ctx.Err() != nil {
			return
		}

		speed, err := ig.fetchOne(ctx, serviceLink)
		if err != nil {
			fail++
		} else {
			next[osmID] = speed
			success++
		}
	}

	ig.table.Swap(next)
	ig.log.WithFields(logrus.Fields{"success": success, "fail": fail, "total": len(next)}).
		Info("교통 데이터 수집 완료")
}

func (ig *Ingestor) fetchOne(ctx context.Context, serviceLink string) (float64, error) {
	callCtx, cancel := context.WithTimeout(ctx, perCallTimeout)
	defer cancel()

	path := fmt.Sprintf("/%s/xml/TrafficInfo/1/1/%s", ig.apiKey, serviceLink)
	body, err := ig.client.DoRaw(callCtx, "GET", path, nil)
	if err != nil {
		return 0, err
	}

	var parsed trafficInfoResponse
	if err := xml.Unmarshal(body, &parsed); err != nil {
		return 0, err
	}
	if parsed.Result.Code != "INFO-000" {
		return 0, fmt.Errorf("traffic feed code %q", parsed.Result.Code)
	}

	speed, err := strconv.ParseFloat(parsed.Row.PrcsSpd, 64)
	if err != nil {
		return 0, err
	}
	return speed, nil
}
