package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	OrdersCreated = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "orders_created_total",
			Help: "Total number of created orders",
		},
	)

	PaymentInitiations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "payment_initiations_total",
			Help: "Total number of payment initiations by result",
		},
		[]string{"result"},
	)

	PaymentCallbacks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "payment_callbacks_total",
			Help: "Total number of payment callbacks by outcome",
		},
		[]string{"outcome"},
	)

	OrdersReady = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "orders_ready_total",
			Help: "Total number of orders moved to Ready",
		},
	)

	PickupNotifications = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pickup_notifications_total",
			Help: "Total number of pickup notifications by result",
		},
		[]string{"result"},
	)

	QuotesSubmitted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "quotes_submitted_total",
			Help: "Total number of stored quote requests",
		},
	)

	SweepDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "ready_sweep_duration_seconds",
			Help:    "Duration of ready orders sweep",
			Buckets: prometheus.DefBuckets,
		},
	)
)
