package util

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	OrdersCreatedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "orders_created_total",
		Help: "Total number of orders created",
	})

	OrdersPaidTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "orders_paid_total",
		Help: "Total number of orders successfully paid",
	})

	OrdersFailedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "orders_failed_total",
		Help: "Total number of rejected order creations",
	}, []string{"reason"})

	OrdersCancelledTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "orders_cancelled_total",
		Help: "Total number of cancelled orders",
	}, []string{"actor"})

	OrderStatusTransitionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "order_status_transitions_total",
		Help: "Total number of committed order status transitions",
	}, []string{"from", "to"})

	StockReserveLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "stock_reserve_latency_seconds",
		Help:    "Latency of stock reservation operations",
		Buckets: prometheus.DefBuckets,
	})

	StockReservationsFailed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "stock_reservations_failed_total",
		Help: "Total number of failed stock reservations",
	}, []string{"reason"})

	StockReleasedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "stock_released_units_total",
		Help: "Total number of stock units returned by cancellations",
	})

	PaymentAttemptsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "payment_attempts_total",
		Help: "Total number of payment attempts",
	})

	PaymentFailedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "payment_failed_total",
		Help: "Total number of rejected payment attempts",
	}, []string{"reason"})

	PaymentProcessingLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "payment_processing_latency_seconds",
		Help:    "Latency of payment processing",
		Buckets: prometheus.DefBuckets,
	})

	CartItemsAddedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "cart_items_added_total",
		Help: "Total number of add-to-cart operations",
	})

	ReviewsCreatedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "reviews_created_total",
		Help: "Total number of product reviews created",
	})

	ReviewsRejectedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "reviews_rejected_total",
		Help: "Total number of review attempts refused by the eligibility gate",
	}, []string{"reason"})

	EventsPublishFailedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "events_publish_failed_total",
		Help: "Total number of domain events that could not be published",
	}, []string{"event_type"})

	EventsConsumedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "events_consumed_total",
		Help: "Total number of domain events consumed by the auditor",
	}, []string{"event_type"})

	EventAnomaliesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "event_anomalies_total",
		Help: "Total number of consumed events that contradict the order lifecycle",
	}, []string{"kind"})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "HTTP request latency",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})
)
