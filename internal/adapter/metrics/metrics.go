package metrics

import (
	"errors"
	"net/http"

	"github.com/niksmo/storefront/internal/core/domain"
	"github.com/niksmo/storefront/internal/core/port"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var _ port.CartMetrics = (*CartMetrics)(nil)

const namespace = "storefront"

// CartMetrics exports cart operation counters and the cart size.
type CartMetrics struct {
	reg      *prometheus.Registry
	ops      *prometheus.CounterVec
	cartSize prometheus.Gauge
}

func NewCartMetrics() *CartMetrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	factory := promauto.With(reg)
	return &CartMetrics{
		reg: reg,
		ops: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cart",
			Name:      "operations_total",
			Help:      "Cart operations by operation and result.",
		}, []string{"op", "result"}),
		cartSize: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "cart",
			Name:      "units",
			Help:      "Units currently reserved by the cart.",
		}),
	}
}

func (m *CartMetrics) ObserveCartOp(op string, err error) {
	m.ops.WithLabelValues(op, result(err)).Inc()
}

func (m *CartMetrics) SetCartSize(units int) {
	m.cartSize.Set(float64(units))
}

// Handler serves the registry in the Prometheus text format.
func (m *CartMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{Registry: m.reg})
}

func result(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, domain.ErrOutOfStock):
		return "out_of_stock"
	case errors.Is(err, domain.ErrNotFound):
		return "not_found"
	case errors.Is(err, domain.ErrInvalidState):
		return "invalid_state"
	default:
		return "error"
	}
}
