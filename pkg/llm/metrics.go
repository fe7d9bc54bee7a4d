package llm

import (
	"context"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the gateway collectors.
type Metrics struct {
	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

// NewMetrics creates and registers gateway collectors on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "notebook",
			Subsystem: "llm",
			Name:      "requests_total",
			Help:      "LLM gateway requests by model and HTTP status (0 for transport errors, 200 for success).",
		}, []string{"model", "status"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "notebook",
			Subsystem: "llm",
			Name:      "request_duration_seconds",
			Help:      "LLM gateway request latency.",
			Buckets:   []float64{0.5, 1, 2, 5, 10, 20, 40, 60},
		}, []string{"model"}),
	}
	reg.MustRegister(m.requests, m.duration)
	return m
}

// InstrumentedClient records request counts and latency around another client.
type InstrumentedClient struct {
	inner   LLMClient
	metrics *Metrics
}

// Instrument wraps inner so every call is observed by metrics.
func Instrument(inner LLMClient, metrics *Metrics) *InstrumentedClient {
	return &InstrumentedClient{inner: inner, metrics: metrics}
}

func (c *InstrumentedClient) GenerateResponse(ctx context.Context, prompt string, systemMessage string, temperature float64) (string, error) {
	start := time.Now()
	resp, err := c.inner.GenerateResponse(ctx, prompt, systemMessage, temperature)

	model := c.inner.GetModel()
	status := 200
	if err != nil {
		status = StatusCode(err)
	}
	c.metrics.requests.WithLabelValues(model, strconv.Itoa(status)).Inc()
	c.metrics.duration.WithLabelValues(model).Observe(time.Since(start).Seconds())

	return resp, err
}

func (c *InstrumentedClient) GetModel() string {
	return c.inner.GetModel()
}

func (c *InstrumentedClient) GetEndpoint() string {
	return c.inner.GetEndpoint()
}
