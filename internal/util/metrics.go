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

	OrdersCompletedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "orders_completed_total",
		Help: "Total number of orders marked completed",
	})

	OrdersFailedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "orders_failed_total",
		Help: "Total number of rejected or failed order operations",
	}, []string{"reason"})

	OrderValue = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "order_value_rupees",
		Help:    "Distribution of order totals",
		Buckets: []float64{100, 250, 500, 1000, 2500, 5000, 10000},
	})

	LedgerAppendLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "ledger_append_latency_seconds",
		Help:    "Latency of appending a row to the order ledger",
		Buckets: prometheus.DefBuckets,
	})

	StatsWriteLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "stats_write_latency_seconds",
		Help:    "Latency of rewriting the stats document",
		Buckets: prometheus.DefBuckets,
	})

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
