// Package metrics exposes Prometheus counters for the image store.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Load outcomes used as the "outcome" label of LoadsTotal.
const (
	OutcomeLoaded         = "loaded"
	OutcomeDecodeFailed   = "decode_failed"
	OutcomeEmpty          = "empty"
	OutcomeFetchFailed    = "fetch_failed"
	OutcomeAlreadyLoading = "already_loading"
	OutcomeAlreadyLoaded  = "already_loaded"
)

// Metrics groups the store instruments.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	LoadsTotal   *prometheus.CounterVec
	FetchBytes   prometheus.Counter
	CacheEntries prometheus.Gauge
	InFlight     prometheus.Gauge
}

// New creates the instruments and registers them with reg.
func New(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		LoadsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "remoteimage",
			Name:      "loads_total",
			Help:      "Store load calls by outcome.",
		}, []string{"outcome"}),
		FetchBytes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "remoteimage",
			Name:      "fetch_bytes_total",
			Help:      "Bytes received from the network collaborator.",
		}),
		CacheEntries: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "remoteimage",
			Name:      "cache_entries",
			Help:      "Cache entries written, including failed decodes.",
		}),
		InFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "remoteimage",
			Name:      "in_flight",
			Help:      "URLs currently being fetched.",
		}),
	}

	for _, c := range []prometheus.Collector{m.LoadsTotal, m.FetchBytes, m.CacheEntries, m.InFlight} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// Outcome counts one load with the given outcome label.
func (m *Metrics) Outcome(outcome string) {
	if m == nil {
		return
	}
	m.LoadsTotal.WithLabelValues(outcome).Inc()
}

// Fetched records a completed fetch of n bytes.
func (m *Metrics) Fetched(n int) {
	if m == nil {
		return
	}
	m.FetchBytes.Add(float64(n))
}

// SetInFlight records the in-flight set size.
func (m *Metrics) SetInFlight(n int) {
	if m == nil {
		return
	}
	m.InFlight.Set(float64(n))
}

// SetEntries records the cache size.
func (m *Metrics) SetEntries(n int) {
	if m == nil {
		return
	}
	m.CacheEntries.Set(float64(n))
}

// Handler returns an HTTP handler serving the metrics gathered by g.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
