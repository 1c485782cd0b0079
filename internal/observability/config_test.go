package observability

import (
	"testing"

	"github.com/smallbiznis/shopdesk/internal/config"
	"github.com/stretchr/testify/assert"
)

func TestLoadConfigNormalises(t *testing.T) {
	cfg := LoadConfig(config.Config{
		AppVersion:  " 1.2.0 ",
		Environment: "Production",
		Telemetry: config.TelemetryConfig{
			LogLevel:      "INFO",
			LogFormat:     "Console",
			Enabled:       true,
			OTLPEndpoint:  " collector:4318 ",
			OTLPProtocol:  "HTTP/protobuf",
			SamplingRatio: 3,
		},
	})

	assert.Equal(t, "shopdesk", cfg.ServiceName)
	assert.Equal(t, "production", cfg.Environment)
	assert.Equal(t, "1.2.0", cfg.Version)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "console", cfg.LogFormat)
	assert.Equal(t, "collector:4318", cfg.OtelExporterEndpoint)
	assert.Equal(t, "http/protobuf", cfg.OtelExporterProtocol)
	assert.Equal(t, 1.0, cfg.OtelSamplingRatio)
	assert.False(t, cfg.Debug())
}

func TestLoadConfigDefaultsProtocolAndDebug(t *testing.T) {
	cfg := LoadConfig(config.Config{AppName: "panel", Environment: "local"})

	assert.Equal(t, "panel", cfg.ServiceName)
	assert.Equal(t, "grpc", cfg.OtelExporterProtocol)
	assert.True(t, cfg.Debug())
}
