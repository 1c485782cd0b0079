package observability

import (
	"strings"

	"github.com/smallbiznis/shopdesk/internal/config"
)

// Config is the observability view of config.Config, normalised once so the
// logger, tracer and meter providers agree on names and protocol.
type Config struct {
	ServiceName string
	Environment string
	Version     string

	LogLevel  string
	LogFormat string

	OtelEnabled          bool
	OtelExporterEndpoint string
	OtelExporterProtocol string
	OtelSamplingRatio    float64
}

func LoadConfig(cfg config.Config) Config {
	serviceName := strings.TrimSpace(cfg.AppName)
	if serviceName == "" {
		serviceName = "shopdesk"
	}

	protocol := strings.ToLower(strings.TrimSpace(cfg.Telemetry.OTLPProtocol))
	if protocol == "" {
		protocol = "grpc"
	}

	ratio := cfg.Telemetry.SamplingRatio
	switch {
	case ratio < 0:
		ratio = 0
	case ratio > 1:
		ratio = 1
	}

	return Config{
		ServiceName:          serviceName,
		Environment:          strings.ToLower(strings.TrimSpace(cfg.Environment)),
		Version:              strings.TrimSpace(cfg.AppVersion),
		LogLevel:             strings.ToLower(strings.TrimSpace(cfg.Telemetry.LogLevel)),
		LogFormat:            strings.ToLower(strings.TrimSpace(cfg.Telemetry.LogFormat)),
		OtelEnabled:          cfg.Telemetry.Enabled,
		OtelExporterEndpoint: strings.TrimSpace(cfg.Telemetry.OTLPEndpoint),
		OtelExporterProtocol: protocol,
		OtelSamplingRatio:    ratio,
	}
}

// Debug turns on caller and stack output for debug level or a local
// environment.
func (c Config) Debug() bool {
	if c.LogLevel == "debug" {
		return true
	}
	switch c.Environment {
	case "dev", "development", "local", "test":
		return true
	}
	return false
}
