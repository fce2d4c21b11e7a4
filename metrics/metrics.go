// Package metrics exposes the server's prometheus instrumentation:
// connection/session counts, channel actor queue depth, and dropped
// deliveries. No teacher analog (9P has no metrics layer); grounded
// on cc-backend and gravwell's shared use of
// github.com/prometheus/client_golang for exactly this kind of
// gauge/counter instrumentation of a long-running daemon.
package metrics

import "github.com/prometheus/client_golang/prometheus"

// Registry bundles every metric slircd exports, constructed once at
// startup and threaded through the components that update it.
type Registry struct {
	Connections      prometheus.Gauge
	Sessions         prometheus.Gauge
	AlwaysOnSessions prometheus.Gauge
	Channels         prometheus.Gauge

	ChannelQueueDepth *prometheus.GaugeVec // labeled by channel
	QueueDrops        *prometheus.CounterVec
	LaggedDisconnects prometheus.Counter

	MessagesIn  prometheus.Counter
	MessagesOut prometheus.Counter

	HandshakeFailures *prometheus.CounterVec // labeled by reason
	BanHits           *prometheus.CounterVec // labeled by x-line kind
}

// NewRegistry constructs every metric and registers it with reg. Pass
// prometheus.NewRegistry() for an isolated registry (tests) or
// prometheus.DefaultRegisterer in production.
func NewRegistry(reg prometheus.Registerer) *Registry {
	r := &Registry{
		Connections: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "slircd_connections", Help: "Currently open client connections.",
		}),
		Sessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "slircd_sessions", Help: "Currently registered logical sessions.",
		}),
		AlwaysOnSessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "slircd_always_on_sessions", Help: "Sessions surviving with zero live connections.",
		}),
		Channels: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "slircd_channels", Help: "Currently live channel actors.",
		}),
		ChannelQueueDepth: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "slircd_channel_queue_depth", Help: "In-flight events queued for a channel actor.",
		}, []string{"channel"}),
		QueueDrops: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "slircd_queue_drops_total", Help: "Deliveries dropped due to a full outbound queue.",
		}, []string{"reason"}),
		LaggedDisconnects: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "slircd_lagged_disconnects_total", Help: "Clients disconnected for sustained queue overflow.",
		}),
		MessagesIn: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "slircd_messages_in_total", Help: "Messages parsed from clients.",
		}),
		MessagesOut: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "slircd_messages_out_total", Help: "Messages written to clients.",
		}),
		HandshakeFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "slircd_handshake_failures_total", Help: "Handshake attempts that ended in Terminated.",
		}, []string{"reason"}),
		BanHits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "slircd_ban_hits_total", Help: "Connections refused by an X-line match.",
		}, []string{"kind"}),
	}
	reg.MustRegister(
		r.Connections, r.Sessions, r.AlwaysOnSessions, r.Channels,
		r.ChannelQueueDepth, r.QueueDrops, r.LaggedDisconnects,
		r.MessagesIn, r.MessagesOut, r.HandshakeFailures, r.BanHits,
	)
	return r
}
