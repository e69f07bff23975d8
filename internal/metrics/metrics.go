package metrics

import (
	"strconv"

	"github.com/bilgisen/staticd/internal/middleware"
	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the server
type Metrics struct {
	requestsTotal *prometheus.CounterVec
	responseBytes prometheus.Counter
	inFlight      prometheus.Gauge
}

// New creates the metrics and registers them on reg
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		requestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "staticd_requests_total",
			Help: "Requests handled, by method and status code",
		}, []string{"method", "code"}),
		responseBytes: factory.NewCounter(prometheus.CounterOpts{
			Name: "staticd_response_bytes_total",
			Help: "Total response body bytes served",
		}),
		inFlight: factory.NewGauge(prometheus.GaugeOpts{
			Name: "staticd_requests_in_flight",
			Help: "Requests currently being served",
		}),
	}
}

// Middleware records every request that passes through it
func (m *Metrics) Middleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		m.inFlight.Inc()
		defer m.inFlight.Dec()

		err := c.Next()

		code := middleware.StatusCode(c, err)
		m.requestsTotal.WithLabelValues(c.Method(), strconv.Itoa(code)).Inc()
		if n := middleware.BodySize(c); n > 0 && err == nil {
			m.responseBytes.Add(float64(n))
		}

		return err
	}
}
