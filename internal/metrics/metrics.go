package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Registry holds every fleet-live collector plus the Go runtime and process collectors.
	Registry = prometheus.NewRegistry()

	// Sessions is the number of open realtime sessions, labelled by role (publisher/subscriber).
	Sessions = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "fleet_sessions",
			Help: "Number of open realtime sessions.",
		},
		[]string{"role"},
	)

	// RegistrySize is the number of vehicles currently live.
	RegistrySize = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "fleet_registry_vehicles",
			Help: "Number of vehicles in the active fleet registry.",
		},
	)

	ReportsReceived = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "fleet_reports_received_total",
			Help: "Telemetry reports accepted into the registry.",
		},
	)

	// ReportsDropped counts inbound frames discarded before reaching the registry.
	ReportsDropped = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fleet_reports_dropped_total",
			Help: "Inbound realtime messages dropped, by reason.",
		},
		[]string{"reason"}, // reason: decode/malformed/unknown_event
	)

	BroadcastDrops = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "fleet_broadcast_drops_total",
			Help: "Outbound messages discarded because a session queue was full.",
		},
	)

	// TripOperations counts start/end trip calls by outcome (ok/not_found/forbidden/conflict/error).
	TripOperations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fleet_trip_operations_total",
			Help: "Trip lifecycle operations by operation and outcome.",
		},
		[]string{"op", "outcome"},
	)

	SinkFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fleet_sink_failures_total",
			Help: "Fleet events that an export sink failed to deliver.",
		},
		[]string{"sink"},
	)
)

func init() {
	Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		Sessions,
		RegistrySize,
		ReportsReceived,
		ReportsDropped,
		BroadcastDrops,
		TripOperations,
		SinkFailures,
	)
}

func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{Registry: Registry})
}
