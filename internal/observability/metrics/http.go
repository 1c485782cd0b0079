package metrics

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// HTTPMetrics records request counts and latency per route.
type HTTPMetrics struct {
	requests metric.Int64Counter
	duration metric.Float64Histogram
}

func NewHTTPMetrics(cfg Config, provider metric.MeterProvider) (*HTTPMetrics, error) {
	meter := provider.Meter(meterName(cfg))

	requests, err := meter.Int64Counter("shopdesk_http_requests_total")
	if err != nil {
		return nil, err
	}
	duration, err := meter.Float64Histogram("shopdesk_http_request_duration_seconds",
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10),
	)
	if err != nil {
		return nil, err
	}

	return &HTTPMetrics{requests: requests, duration: duration}, nil
}

func (m *HTTPMetrics) Record(ctx context.Context, method, route string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(
		attribute.String("method", strings.ToUpper(method)),
		attribute.String("route", route),
		attribute.String("status_code", strconv.Itoa(status)),
	)
	m.requests.Add(ctx, 1, metric.WithAttributes(attrs...))
	m.duration.Record(ctx, elapsed.Seconds(), metric.WithAttributes(attrs...))
}

// GinMiddleware records every request under its route template so ids in the
// path never become label values.
func (m *HTTPMetrics) GinMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unknown"
		}
		m.Record(c.Request.Context(), c.Request.Method, route, c.Writer.Status(), time.Since(start))
	}
}
