package metrics

import (
	"fmt"
	"net/http"
	"sort"
	"strings"
)

const (
	eventsMetric      = "signaling_relay_events_total"
	activePeersMetric = "signaling_relay_active_peers"
)

// GaugeFunc reports a point-in-time value at scrape time.
type GaugeFunc func() int64

// PrometheusHandler exposes Metrics in Prometheus' text exposition format.
//
// All counters share one metric with an `event` label. activePeers, when
// non-nil, is exported as a gauge.
func PrometheusHandler(m *Metrics, activePeers GaugeFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if m == nil {
			http.Error(w, "metrics not configured", http.StatusInternalServerError)
			return
		}

		snap := m.Snapshot()
		keys := make([]string, 0, len(snap))
		for k := range snap {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		escaper := strings.NewReplacer("\\", "\\\\", "\"", "\\\"")

		w.Header().Set("Content-Type", "text/plain; version=0.0.4; charset=utf-8")
		_, _ = fmt.Fprintf(w, "# HELP %s Internal event counters.\n", eventsMetric)
		_, _ = fmt.Fprintf(w, "# TYPE %s counter\n", eventsMetric)
		for _, k := range keys {
			_, _ = fmt.Fprintf(w, "%s{event=\"%s\"} %d\n", eventsMetric, escaper.Replace(k), snap[k])
		}

		if activePeers != nil {
			_, _ = fmt.Fprintf(w, "# HELP %s Peers currently registered.\n", activePeersMetric)
			_, _ = fmt.Fprintf(w, "# TYPE %s gauge\n", activePeersMetric)
			_, _ = fmt.Fprintf(w, "%s %d\n", activePeersMetric, activePeers())
		}
	})
}
