package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Collectors for the trading cycles. Registered on the default
// registry and exposed by the HTTP server at /metrics.
var (
	CyclesRun = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "trader_cycles_total",
		Help: "Trading cycles run, by cycle type and outcome.",
	}, []string{"cycle", "outcome"})

	OrdersPlaced = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "trader_orders_placed_total",
		Help: "Orders confirmed by the broker, by side.",
	}, []string{"side"})

	OrdersFailed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "trader_orders_failed_total",
		Help: "Orders rejected by the broker, by side.",
	}, []string{"side"})

	SymbolsSkipped = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "trader_symbols_skipped_total",
		Help: "Symbols skipped during a cycle, by reason.",
	}, []string{"reason"})
)
