package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics bundles the process collectors. Components hold the whole
// struct; collectors are registered once per registry.
type Metrics struct {
	ConnectionsActive     prometheus.Gauge
	BroadcastsTotal       prometheus.Counter
	ExchangeCommandsTotal prometheus.Counter
	FetchErrorsTotal      prometheus.Counter
}

func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		ConnectionsActive: factory.NewGauge(prometheus.GaugeOpts{
			Name: "chat_connections_active",
			Help: "Number of currently registered peer connections",
		}),
		BroadcastsTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "chat_broadcasts_total",
			Help: "Total messages fanned out to peers",
		}),
		ExchangeCommandsTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "exchange_commands_total",
			Help: "Total exchange commands received from peers",
		}),
		FetchErrorsTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "exchange_fetch_errors_total",
			Help: "Per-day rate fetches that ended with an error marker",
		}),
	}
}
