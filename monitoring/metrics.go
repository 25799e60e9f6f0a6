package monitoring

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	invoicesCreated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pos_invoices_created_total",
			Help: "Total invoices created",
		},
		[]string{"source"},
	)

	openInvoices = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "pos_invoices_open",
			Help: "Invoices currently waiting for payment",
		},
	)

	payAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pos_pay_attempts_total",
			Help: "Pay attempts by outcome",
		},
		[]string{"outcome"},
	)

	subscribers = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "pos_event_subscribers",
			Help: "Currently connected cashier displays",
		},
	)

	eventsDelivered = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pos_events_delivered_total",
			Help: "Events queued to subscribers, and subscribers dropped as stale",
		},
		[]string{"event", "result"},
	)

	relayPublishes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pos_relay_publishes_total",
			Help: "Events mirrored to external relays",
		},
		[]string{"relay", "status"},
	)
)

// Monitor records service metrics. A nil *Monitor is valid and records nothing.
type Monitor struct{}

func NewMonitor() *Monitor {
	return &Monitor{}
}

// Handler exposes the default registry in the Prometheus text format.
func Handler() http.Handler {
	return promhttp.Handler()
}

func (m *Monitor) TrackInvoiceCreated(source string) {
	if m == nil {
		return
	}
	invoicesCreated.WithLabelValues(source).Inc()
	openInvoices.Inc()
}

// TrackPayment counts a pay attempt; outcome is one of paid, already_paid,
// not_found or invalid_amount.
func (m *Monitor) TrackPayment(outcome string) {
	if m == nil {
		return
	}
	payAttempts.WithLabelValues(outcome).Inc()
	if outcome == "paid" {
		openInvoices.Dec()
	}
}

func (m *Monitor) SetSubscribers(n int) {
	if m == nil {
		return
	}
	subscribers.Set(float64(n))
}

func (m *Monitor) TrackBroadcast(event string, delivered, dropped int) {
	if m == nil {
		return
	}
	eventsDelivered.WithLabelValues(event, "delivered").Add(float64(delivered))
	eventsDelivered.WithLabelValues(event, "dropped").Add(float64(dropped))
}

func (m *Monitor) TrackRelay(relay, status string) {
	if m == nil {
		return
	}
	relayPublishes.WithLabelValues(relay, status).Inc()
}
