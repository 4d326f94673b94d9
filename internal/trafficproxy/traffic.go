package trafficproxy

import "strings"

// congestionThresholdKmh is the average-speed cutoff below which the
// global-average fallback is considered informative (spec §4.A: "the
// proxy may fall back to the global average... only if that average
// indicates congestion (< 40 km/h)").
const congestionThresholdKmh = 40.0

// applyLiveTraffic rewrites resp's trip/leg/maneuver times in place using
// table, mirroring original_source/traffic_proxy.py's
// apply_real_traffic_to_response. resp is left untouched structurally
// (only numeric fields and traffic bookkeeping are mutated) so every other
// field the routing engine returned survives unmodified.
func applyLiveTraffic(resp map[string]interface{}, table map[string]float64, useTraffic bool) {
	trip, ok := resp["trip"].(map[string]interface{})
	if !ok {
		return
	}

	if !useTraffic || len(table) == 0 {
		trip["has_traffic"] = false
		trip["traffic_data_count"] = len(table)
		trip["real_traffic_applied"] = false
		return
	}

	appliedSegments, totalSegments := 0, 0
	totalOriginal, totalNew := 0.0, 0.0

	legs, _ := trip["legs"].([]interface{})
	for _, legRaw := range legs {
		leg, ok := legRaw.(map[string]interface{})
		if !ok {
			continue
		}

		legOriginal, legNew := 0.0, 0.0
		maneuvers, _ := leg["maneuvers"].([]interface{})
		for _, mRaw := range maneuvers {
			maneuver, ok := mRaw.(map[string]interface{})
			if !ok {
				continue
			}
			totalSegments++

			originalTime := toFloat(maneuver["time"])
			length := toFloat(maneuver["length"])
			legOriginal += originalTime

			if speed, ok := findRealSpeedForSegment(maneuver, table); ok && speed > 0 && length > 0 {
				newTime := (length / speed) * 3600
				maneuver["time"] = newTime
				maneuver["original_time"] = originalTime
				maneuver["real_speed_applied"] = speed
				legNew += newTime
				appliedSegments++
			} else {
				legNew += originalTime
			}
		}

		if summary, ok := leg["summary"].(map[string]interface{}); ok {
			summary["original_time"] = legOriginal
			summary["time"] = legNew
		}
		totalOriginal += legOriginal
		totalNew += legNew
	}

	if summary, ok := trip["summary"].(map[string]interface{}); ok {
		summary["original_time"] = totalOriginal
		summary["time"] = totalNew
		summary["traffic_time"] = totalNew
	}

	trip["has_traffic"] = true
	trip["traffic_data_count"] = len(table)
	trip["real_traffic_applied"] = true
	trip["applied_segments"] = appliedSegments
	trip["total_segments"] = totalSegments
}

// findRealSpeedForSegment attributes an observed speed to a maneuver by
// street name; the routing engine's response carries no OSM way id; this
// is a deliberately lossy heuristic (spec §4.A design note).
func findRealSpeedForSegment(maneuver map[string]interface{}, table map[string]float64) (float64, bool) {
	if len(table) == 0 {
		return 0, false
	}

	streetNames, _ := maneuver["street_names"].([]interface{})
	for _, snRaw := range streetNames {
		sn, _ := snRaw.(string)
		if sn == "" {
			continue
		}
		if strings.Contains(sn, "강남대로") || strings.Contains(strings.ToLower(sn), "gangnam") {
			for _, speed := range table {
				if speed > 0 {
					return speed, true
				}
			}
		}
	}

	var sum float64
	var n int
	for _, speed := range table {
		if speed >= 5 && speed <= 100 {
			sum += speed
			n++
		}
	}
	if n > 0 {
		avg := sum / float64(n)
		if avg < congestionThresholdKmh {
			return avg, true
		}
	}
	return 0, false
}

func toFloat(v interface{}) float64 {
	f, _ := v.(float64)
	return f
}
