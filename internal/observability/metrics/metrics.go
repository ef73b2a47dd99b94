package metrics

import "github.com/prometheus/client_golang/prometheus"

// BookingMetrics exposes counters/histograms for the booking flows.
type BookingMetrics struct {
	inboundTotal      *prometheus.CounterVec
	outboundTotal     *prometheus.CounterVec
	reservationsTotal *prometheus.CounterVec
	remindersTotal    prometheus.Counter
	dialogLatency     *prometheus.HistogramVec
}

func NewBookingMetrics(reg prometheus.Registerer) *BookingMetrics {
	m := &BookingMetrics{
		inboundTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "bookingbot",
			Subsystem: "channels",
			Name:      "inbound_total",
			Help:      "Total inbound customer messages",
		}, []string{"channel", "kind"}),
		outboundTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "bookingbot",
			Subsystem: "channels",
			Name:      "outbound_total",
			Help:      "Total outbound messages to customers",
		}, []string{"channel", "status"}),
		reservationsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "bookingbot",
			Subsystem: "reservation",
			Name:      "decisions_total",
			Help:      "Total reservation decisions applied",
		}, []string{"status"}),
		remindersTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "bookingbot",
			Subsystem: "reservation",
			Name:      "reminders_sent_total",
			Help:      "Total appointment reminders sent",
		}),
		dialogLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "bookingbot",
			Subsystem: "dialog",
			Name:      "handle_latency_seconds",
			Help:      "Latency of dialog message handling",
			Buckets:   prometheus.DefBuckets,
		}, []string{"channel"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.inboundTotal, m.outboundTotal, m.reservationsTotal, m.remindersTotal, m.dialogLatency)
	return m
}

func (m *BookingMetrics) ObserveInbound(channel, kind string) {
	if m == nil {
		return
	}
	m.inboundTotal.WithLabelValues(channel, kind).Inc()
}

func (m *BookingMetrics) ObserveOutbound(channel, status string) {
	if m == nil {
		return
	}
	m.outboundTotal.WithLabelValues(channel, status).Inc()
}

func (m *BookingMetrics) ObserveDecision(status string) {
	if m == nil {
		return
	}
	m.reservationsTotal.WithLabelValues(status).Inc()
}

func (m *BookingMetrics) ObserveReminder() {
	if m == nil {
		return
	}
	m.remindersTotal.Inc()
}

func (m *BookingMetrics) ObserveDialogLatency(channel string, seconds float64) {
	if m == nil {
		return
	}
	m.dialogLatency.WithLabelValues(channel).Observe(seconds)
}
