package metrics

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Config configures the metrics provider.
type Config struct {
	Enabled          bool
	ExporterEndpoint string
	ExporterProtocol string
	ServiceName      string
	Environment      string
}

// Metrics exposes application-level instruments.
type Metrics struct {
	subscriptionSwitch metric.Int64Counter
	duplicateDetected  metric.Int64Counter
	usageCompute       metric.Int64Counter
}

// NewProvider configures and registers the meter provider.
func NewProvider(lc fx.Lifecycle, cfg Config, log *zap.Logger) (metric.MeterProvider, error) {
	if !cfg.Enabled {
		provider := noop.NewMeterProvider()
		otel.SetMeterProvider(provider)
		return provider, nil
	}

	exporter, err := newExporter(cfg.ExporterProtocol, cfg.ExporterEndpoint)
	if err != nil {
		return nil, err
	}

	reader := sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(10*time.Second))
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	otel.SetMeterProvider(provider)

	if lc != nil {
		lc.Append(fx.Hook{
			OnStop: func(ctx context.Context) error {
				if log != nil {
					log.Info("shutting down meter provider")
				}
				return provider.Shutdown(ctx)
			},
		})
	}

	if log != nil {
		log.Info("metrics initialized",
			zap.String("endpoint", cfg.ExporterEndpoint),
			zap.String("protocol", cfg.ExporterProtocol),
		)
	}

	return provider, nil
}

// New configures the domain metrics instruments.
func New(cfg Config, provider metric.MeterProvider) (*Metrics, error) {
	meter := provider.Meter(meterName(cfg))

	subscriptionSwitch, err := meter.Int64Counter("shopdesk_subscription_switch_total",
		metric.WithDescription("Subscription switch attempts by path and outcome."))
	if err != nil {
		return nil, err
	}
	duplicateDetected, err := meter.Int64Counter("shopdesk_subscription_duplicate_detected_total",
		metric.WithDescription("Owners observed with more than one active subscription."))
	if err != nil {
		return nil, err
	}
	usageCompute, err := meter.Int64Counter("shopdesk_usage_compute_total")
	if err != nil {
		return nil, err
	}

	return &Metrics{
		subscriptionSwitch: subscriptionSwitch,
		duplicateDetected:  duplicateDetected,
		usageCompute:       usageCompute,
	}, nil
}

// RecordSwitch counts one switch attempt. path is procedure, transaction,
// saga or none; outcome is success or a failure kind.
func (m *Metrics) RecordSwitch(ctx context.Context, path, outcome string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(
		attribute.String("path", strings.TrimSpace(path)),
		attribute.String("outcome", strings.TrimSpace(outcome)),
	)
	m.subscriptionSwitch.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordDuplicate counts an owner found holding several active subscriptions.
func (m *Metrics) RecordDuplicate(ctx context.Context, reason string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(attribute.String("reason", strings.TrimSpace(reason)))
	m.duplicateDetected.Add(ctx, 1, metric.WithAttributes(attrs...))
}

func (m *Metrics) RecordUsageCompute(ctx context.Context, outcome string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(attribute.String("outcome", strings.TrimSpace(outcome)))
	m.usageCompute.Add(ctx, 1, metric.WithAttributes(attrs...))
}

func meterName(cfg Config) string {
	name := strings.TrimSpace(cfg.ServiceName)
	if name == "" {
		name = "shopdesk"
	}
	return name
}

func newExporter(protocol, endpoint string) (sdkmetric.Exporter, error) {
	protocol = strings.ToLower(strings.TrimSpace(protocol))
	switch protocol {
	case "http", "http/protobuf":
		opts := []otlpmetrichttp.Option{}
		if endpoint != "" {
			opts = append(opts, otlpmetrichttp.WithEndpoint(endpoint))
		}
		return otlpmetrichttp.New(context.Background(), opts...)
	case "grpc", "grpc/protobuf", "":
		opts := []otlpmetricgrpc.Option{otlpmetricgrpc.WithInsecure()}
		if endpoint != "" {
			opts = append(opts, otlpmetricgrpc.WithEndpoint(endpoint))
		}
		return otlpmetricgrpc.New(context.Background(), opts...)
	default:
		return nil, fmt.Errorf("unsupported OTLP protocol %q", protocol)
	}
}

var allowedLabelKeys = map[attribute.Key]struct{}{
	"path":        {},
	"outcome":     {},
	"reason":      {},
	"route":       {},
	"method":      {},
	"status_code": {},
}

// FilterAttributes strips disallowed labels to keep metrics low-cardinality.
func FilterAttributes(attrs ...attribute.KeyValue) []attribute.KeyValue {
	filtered := make([]attribute.KeyValue, 0, len(attrs))
	for _, attr := range attrs {
		if _, ok := allowedLabelKeys[attr.Key]; !ok {
			continue
		}
		filtered = append(filtered, attr)
	}
	return filtered
}
