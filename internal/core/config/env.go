package config

import (
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

// ApplyEnvOverrides applies environment variable overrides to the configuration.
// Pattern: SYMBOLICATOR_[SECTION]_[KEY] (e.g., SYMBOLICATOR_SERVER_LOG_LEVEL).
func ApplyEnvOverrides(cfg *Config) {
	setEnvString(&cfg.Server.LogLevel, "SYMBOLICATOR_SERVER_LOG_LEVEL")
	setEnvString(&cfg.Server.LogFile, "SYMBOLICATOR_SERVER_LOG_FILE")

	setEnvBoolPtr(&cfg.Symbolication.Enabled, "SYMBOLICATOR_SYMBOLICATION_ENABLED")
	setEnvBool(&cfg.Symbolication.TriggerOnChange, "SYMBOLICATOR_SYMBOLICATION_TRIGGER_ON_CHANGE")

	setEnvDuration(&cfg.Watch.Debounce, "SYMBOLICATOR_WATCH_DEBOUNCE")

	setEnvBool(&cfg.History.Enabled, "SYMBOLICATOR_HISTORY_ENABLED")
	setEnvString(&cfg.History.Path, "SYMBOLICATOR_HISTORY_PATH")

	setEnvString(&cfg.Observability.MetricsAddress, "SYMBOLICATOR_OBSERVABILITY_METRICS_ADDRESS")
	setEnvString(&cfg.Observability.TraceExporter, "SYMBOLICATOR_OBSERVABILITY_TRACE_EXPORTER")
	setEnvString(&cfg.Observability.OTLPEndpoint, "SYMBOLICATOR_OBSERVABILITY_OTLP_ENDPOINT")

	setEnvInt(&cfg.RateLimit.RequestsPerMinute, "SYMBOLICATOR_RATE_LIMIT_REQUESTS_PER_MINUTE")
}

func setEnvString(target *string, key string) {
	if val, ok := os.LookupEnv(key); ok {
		slog.Debug("applying env override", "key", key, "value", val)
		*target = val
	}
}

func setEnvInt(target *int, key string) {
	if val, ok := os.LookupEnv(key); ok {
		if i, err := strconv.Atoi(val); err == nil {
			slog.Debug("applying env override", "key", key, "value", val)
			*target = i
		}
	}
}

func setEnvBool(target *bool, key string) {
	if val, ok := os.LookupEnv(key); ok {
		if b, err := strconv.ParseBool(strings.ToLower(val)); err == nil {
			slog.Debug("applying env override", "key", key, "value", val)
			*target = b
		}
	}
}

func setEnvBoolPtr(target **bool, key string) {
	if val, ok := os.LookupEnv(key); ok {
		if b, err := strconv.ParseBool(strings.ToLower(val)); err == nil {
			slog.Debug("applying env override", "key", key, "value", val)
			*target = &b
		}
	}
}

func setEnvDuration(target *time.Duration, key string) {
	if val, ok := os.LookupEnv(key); ok {
		if d, err := time.ParseDuration(val); err == nil {
			slog.Debug("applying env override", "key", key, "value", val)
			*target = d
		}
	}
}
