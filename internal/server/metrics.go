package server

import (
	"net/http"

	"vestingdapp/internal/vesting"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics is a private prometheus registry. It implements vesting.Observer so
// the session can report into it directly.
type Metrics struct {
	registry      *prometheus.Registry
	transitions   *prometheus.CounterVec
	inFlight      *prometheus.GaugeVec
	ownerPolls    *prometheus.CounterVec
	vestedLookups *prometheus.CounterVec
	writeRequests *prometheus.CounterVec
}

func NewMetrics() *Metrics {
	transitions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "vestingd_transaction_transitions_total",
		Help: "Lifecycle transitions of submitted transactions",
	}, []string{"kind", "phase"})

	inFlight := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "vestingd_transactions_in_flight",
		Help: "1 while a transaction of the kind is submitting or awaiting confirmation",
	}, []string{"kind"})

	ownerPolls := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "vestingd_owner_fetches_total",
		Help: "Contract owner fetches by result",
	}, []string{"result"})

	lookups := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "vestingd_vested_lookups_total",
		Help: "Vested amount lookups by result",
	}, []string{"result"})

	writes := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "vestingd_write_requests_total",
		Help: "Write API requests by endpoint and outcome",
	}, []string{"endpoint", "status"})

	r := prometheus.NewRegistry()
	r.MustRegister(transitions, inFlight, ownerPolls, lookups, writes)

	return &Metrics{
		registry:      r,
		transitions:   transitions,
		inFlight:      inFlight,
		ownerPolls:    ownerPolls,
		vestedLookups: lookups,
		writeRequests: writes,
	}
}

func (m *Metrics) handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) TransactionTransitioned(h vesting.Handle) {
	kind := h.Kind.String()
	m.transitions.WithLabelValues(kind, h.Phase.String()).Inc()
	if h.Phase.Busy() {
		m.inFlight.WithLabelValues(kind).Set(1)
	} else {
		m.inFlight.WithLabelValues(kind).Set(0)
	}
}

func (m *Metrics) OwnerFetched(err error) {
	m.ownerPolls.WithLabelValues(result(err)).Inc()
}

func (m *Metrics) VestedChecked(err error) {
	m.vestedLookups.WithLabelValues(result(err)).Inc()
}

func (m *Metrics) incWrite(endpoint, status string) {
	m.writeRequests.WithLabelValues(endpoint, status).Inc()
}

func result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
