package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	OrdersCreatedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "milk_orders_created_total",
		Help: "Total number of orders successfully placed.",
	})

	OrdersDeletedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "milk_orders_deleted_total",
		Help: "Total number of orders cancelled before delivery.",
	})

	OrderStatusTransitionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "milk_order_status_transitions_total",
		Help: "Total number of order status transitions, by target status.",
	},
		[]string{"status"},
	)

	CapacityRecordsCreatedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "milk_capacity_records_created_total",
		Help: "Total number of daily capacity records created on first access.",
	})

	CapacityUnitsReservedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "milk_capacity_units_reserved_total",
		Help: "Units of capacity taken by placed orders.",
	})

	CapacityUnitsReleasedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "milk_capacity_units_released_total",
		Help: "Units of capacity returned by cancelled orders.",
	})

	OperationErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "milk_operation_errors_total",
		Help: "Total number of errors encountered during specific operations.",
	},
		[]string{"operation"},
	)

	DeliveredOrderCacheItems = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "milk_delivered_order_cache_items",
		Help: "Current number of delivered orders held in the in-memory cache.",
	})

	OutboxTasksPublishedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "milk_outbox_tasks_published_total",
		Help: "Outbox tasks handed to the producer, by result.",
	},
		[]string{"result"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "milk_http_request_duration_seconds",
		Help:    "HTTP request latency by route, method and status code.",
		Buckets: prometheus.DefBuckets,
	},
		[]string{"route", "method", "code"},
	)
)
