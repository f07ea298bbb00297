package observability

import (
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce sync.Once

	remapTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "regsync",
			Subsystem: "registry",
			Name:      "remaps_total",
			Help:      "Remap calls by registry, mode and result.",
		},
		[]string{"registry", "mode", "result"},
	)
	remapDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "regsync",
			Subsystem: "registry",
			Name:      "remap_duration_seconds",
			Help:      "Remap duration in seconds.",
			Buckets:   prometheus.ExponentialBuckets(0.00005, 4, 8),
		},
		[]string{"registry", "mode"},
	)
	mintedIDs = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "regsync",
			Subsystem: "registry",
			Name:      "minted_ids_total",
			Help:      "Raw IDs minted for names absent from the remote table.",
		},
		[]string{"registry", "mode"},
	)
	unmapTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "regsync",
			Subsystem: "registry",
			Name:      "unmaps_total",
			Help:      "Unmap calls by registry and result.",
		},
		[]string{"registry", "result"},
	)
	restoredEntries = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "regsync",
			Subsystem: "registry",
			Name:      "restored_entries_total",
			Help:      "Culled entries re-announced by unmap.",
		},
		[]string{"registry"},
	)
	aliasTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "regsync",
			Subsystem: "registry",
			Name:      "aliases_total",
			Help:      "Aliases registered.",
		},
		[]string{"registry"},
	)
	moddedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "regsync",
			Subsystem: "registry",
			Name:      "modded_total",
			Help:      "Registries flagged modded.",
		},
		[]string{"registry"},
	)
	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "regsync",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests.",
		},
		[]string{"node", "method", "path", "status"},
	)
	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "regsync",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"node", "method", "path", "status"},
	)
)

func RegisterMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			remapTotal, remapDuration, mintedIDs,
			unmapTotal, restoredEntries,
			aliasTotal, moddedTotal,
			httpRequests, httpDuration,
		)
	})
}

func RecordRemap(registry, mode string, minted int, err error, duration time.Duration) {
	RegisterMetrics()
	remapTotal.WithLabelValues(registry, mode, resultLabel(err)).Inc()
	remapDuration.WithLabelValues(registry, mode).Observe(duration.Seconds())
	if minted > 0 {
		mintedIDs.WithLabelValues(registry, mode).Add(float64(minted))
	}
}

func RecordUnmap(registry string, restored int, err error) {
	RegisterMetrics()
	unmapTotal.WithLabelValues(registry, resultLabel(err)).Inc()
	if restored > 0 {
		restoredEntries.WithLabelValues(registry).Add(float64(restored))
	}
}

func RecordAlias(registry string) {
	RegisterMetrics()
	aliasTotal.WithLabelValues(registry).Inc()
}

func RecordModded(registry string) {
	RegisterMetrics()
	moddedTotal.WithLabelValues(registry).Inc()
}

func RecordHTTPRequest(node, method, path string, status int, duration time.Duration) {
	RegisterMetrics()
	statusLabel := strconv.Itoa(status)
	httpRequests.WithLabelValues(node, method, path, statusLabel).Inc()
	httpDuration.WithLabelValues(node, method, path, statusLabel).Observe(duration.Seconds())
}

func resultLabel(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
