package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Domain counters exposed on /metrics.
var (
	OrdersCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "gasmarket_orders_created_total",
		Help: "Number of orders placed.",
	})

	OrdersApproved = promauto.NewCounter(prometheus.CounterOpts{
		Name: "gasmarket_orders_approved_total",
		Help: "Number of orders approved.",
	})

	StockRejections = promauto.NewCounter(prometheus.CounterOpts{
		Name: "gasmarket_stock_rejections_total",
		Help: "Number of approvals rejected for insufficient stock.",
	})

	InvoicesPaid = promauto.NewCounter(prometheus.CounterOpts{
		Name: "gasmarket_invoices_paid_total",
		Help: "Number of invoices settled.",
	})

	OutboxPublished = promauto.NewCounter(prometheus.CounterOpts{
		Name: "gasmarket_outbox_published_total",
		Help: "Number of outbox messages published to the broker.",
	})

	OutboxFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "gasmarket_outbox_failures_total",
		Help: "Number of outbox messages that exhausted their attempts.",
	})

	HTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gasmarket_http_requests_total",
		Help: "Number of HTTP requests by method, route and status code.",
	}, []string{"method", "route", "code"})
)
