package metrics

import "github.com/prometheus/client_golang/prometheus"

// ScreenMetrics holds Prometheus metrics for the screen hub and its router.
type ScreenMetrics struct {
	KnownScreens         prometheus.Gauge
	ConnectedScreens     prometheus.Gauge
	DashboardSubscribers prometheus.Gauge
	CommandChannelDepth  prometheus.Gauge
	Registrations        *prometheus.CounterVec
	StatusEvents         *prometheus.CounterVec
	LayoutPushes         *prometheus.CounterVec
	IgnoredEvents        *prometheus.CounterVec
	PrunedSubscribers    prometheus.Counter
	Panics               prometheus.Counter
}

// NewScreenMetrics creates and registers screen metrics on the given registry.
func NewScreenMetrics(reg prometheus.Registerer) *ScreenMetrics {
	m := &ScreenMetrics{
		KnownScreens: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "screens",
			Name:      "known",
			Help:      "Number of screens in the registry.",
		}),
		ConnectedScreens: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "screens",
			Name:      "connected",
			Help:      "Number of screens with a live connection.",
		}),
		DashboardSubscribers: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "dashboards",
			Name:      "subscribers",
			Help:      "Number of dashboard connections subscribed to status fan-out.",
		}),
		CommandChannelDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "hub",
			Name:      "command_channel_depth",
			Help:      "Current depth of the hub command channel.",
		}),
		Registrations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "screens",
			Name:      "registrations_total",
			Help:      "Screen registrations by kind (new, returning).",
		}, []string{"kind"}),
		StatusEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "screens",
			Name:      "status_events_total",
			Help:      "screen_status events fanned out, by resulting state.",
		}, []string{"state"}),
		LayoutPushes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "layouts",
			Name:      "pushes_total",
			Help:      "Targeted layout pushes by result (delivered, not_connected).",
		}, []string{"result"}),
		IgnoredEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "hub",
			Name:      "ignored_events_total",
			Help:      "Inbound events absorbed without mutation, by reason.",
		}, []string{"reason"}),
		PrunedSubscribers: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "dashboards",
			Name:      "pruned_total",
			Help:      "Dashboard subscribers dropped after a failed fan-out delivery.",
		}),
		Panics: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "hub",
			Name:      "panics_total",
			Help:      "Hub goroutine panic recoveries.",
		}),
	}

	reg.MustRegister(
		m.KnownScreens, m.ConnectedScreens, m.DashboardSubscribers, m.CommandChannelDepth,
		m.Registrations, m.StatusEvents, m.LayoutPushes, m.IgnoredEvents,
		m.PrunedSubscribers, m.Panics,
	)
	return m
}
