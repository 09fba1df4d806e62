package metrics

import (
	"log"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	ordersSubmitted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wte_orders_submitted_total",
			Help: "Orders submitted to the gateway",
		},
		[]string{"kind"},
	)
	cancelsRequested = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wte_cancels_requested_total",
			Help: "Cancellation requests issued",
		},
		[]string{"reason"},
	)
	orderEvents = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wte_order_events_total",
			Help: "Order status events received",
		},
		[]string{"status"},
	)
	bracketsOpened = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "wte_brackets_opened_total",
			Help: "Brackets created from entry fills",
		},
	)
	bracketsClosed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wte_brackets_closed_total",
			Help: "Brackets removed, by exit reason",
		},
		[]string{"reason"},
	)
	cyclesSkipped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wte_cycles_skipped_total",
			Help: "Scheduled cycles skipped without a trade",
		},
		[]string{"reason"},
	)
)

func OrderSubmitted(kind string)    { ordersSubmitted.WithLabelValues(kind).Inc() }
func CancelRequested(reason string) { cancelsRequested.WithLabelValues(reason).Inc() }
func OrderEvent(status string)      { orderEvents.WithLabelValues(status).Inc() }
func BracketOpened()                { bracketsOpened.Inc() }
func BracketClosed(reason string)   { bracketsClosed.WithLabelValues(reason).Inc() }
func CycleSkipped(reason string)    { cyclesSkipped.WithLabelValues(reason).Inc() }

// Serve exposes /metrics on addr in the background.
func Serve(addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	go func() {
		if err := http.ListenAndServe(addr, mux); err != nil {
			log.Printf("metrics server stopped: %v", err)
		}
	}()
}
