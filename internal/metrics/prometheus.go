package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "ledger"

// Metrics used in monitoring service.
var (
	eventsCreated = prometheus.NewCounter(
		prometheus.CounterOpts{
			Help:      "Number of events created",
			Name:      "events_created_total",
			Namespace: namespace,
		},
	)

	eventsCancelled = prometheus.NewCounter(
		prometheus.CounterOpts{
			Help:      "Number of events cancelled",
			Name:      "events_cancelled_total",
			Namespace: namespace,
		},
	)

	ticketsSold = prometheus.NewCounter(
		prometheus.CounterOpts{
			Help:      "Number of tickets sold on the primary market",
			Name:      "tickets_sold_total",
			Namespace: namespace,
		},
	)

	refundsPaid = prometheus.NewCounter(
		prometheus.CounterOpts{
			Help:      "Number of buyer refunds paid on cancellation",
			Name:      "refunds_paid_total",
			Namespace: namespace,
		},
	)

	refundedAmount = prometheus.NewCounter(
		prometheus.CounterOpts{
			Help:      "Sum of refunded amounts in minor units",
			Name:      "refunded_amount_total",
			Namespace: namespace,
		},
	)

	resales = prometheus.NewCounter(
		prometheus.CounterOpts{
			Help:      "Number of completed marketplace resales",
			Name:      "resales_total",
			Namespace: namespace,
		},
	)

	rejected = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Help:      "Rejected ledger operations by error code",
			Name:      "rejected_operations_total",
			Namespace: namespace,
		},
		[]string{"operation", "code"},
	)
)

func init() {
	prometheus.MustRegister(
		eventsCreated,
		eventsCancelled,
		ticketsSold,
		refundsPaid,
		refundedAmount,
		resales,
		rejected,
	)
}

func EventCreated() { eventsCreated.Inc() }

func EventCancelled() { eventsCancelled.Inc() }

func TicketSold() { ticketsSold.Inc() }

func RefundPaid(amount int64) {
	refundsPaid.Inc()
	refundedAmount.Add(float64(amount))
}

func Resale() { resales.Inc() }

// Rejected 記錄被拒絕的操作，code 為 apperrors 代碼
func Rejected(operation, code string) {
	rejected.WithLabelValues(operation, code).Inc()
}
