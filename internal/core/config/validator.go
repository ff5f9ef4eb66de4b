package config

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/gobwas/glob"
)

func validate(cfg *Config) error {
	if err := validateVersion(cfg); err != nil {
		return err
	}
	if err := validateServer(cfg); err != nil {
		return err
	}
	if err := validateSymbolication(cfg); err != nil {
		return err
	}
	if err := validateExclude(cfg); err != nil {
		return err
	}
	if err := validateDiagnostics(cfg); err != nil {
		return err
	}
	if err := validateObservability(cfg); err != nil {
		return err
	}
	return nil
}

func validateVersion(cfg *Config) error {
	if cfg.Version != 1 {
		return fmt.Errorf("unsupported config version %d; supported version is 1", cfg.Version)
	}
	return nil
}

func validateServer(cfg *Config) error {
	if _, err := ParseLogLevel(cfg.Server.LogLevel); err != nil {
		return err
	}
	switch cfg.Server.LogFormat {
	case "text", "json":
	default:
		return fmt.Errorf("server.log_format must be one of: text, json")
	}
	return nil
}

func validateSymbolication(cfg *Config) error {
	if cfg.Symbolication.Concurrency < 0 {
		return fmt.Errorf("symbolication.concurrency must not be negative")
	}
	return nil
}

func validateExclude(cfg *Config) error {
	for _, pattern := range cfg.Exclude.Dirs {
		if _, err := glob.Compile(pattern); err != nil {
			return fmt.Errorf("exclude.dirs pattern %q: %w", pattern, err)
		}
	}
	for _, pattern := range cfg.Exclude.Files {
		if _, err := glob.Compile(pattern); err != nil {
			return fmt.Errorf("exclude.files pattern %q: %w", pattern, err)
		}
	}
	return nil
}

func validateDiagnostics(cfg *Config) error {
	if cfg.Diagnostics.FlushInterval > time.Minute {
		return fmt.Errorf("diagnostics.flush_interval (%s) must not exceed 1m", cfg.Diagnostics.FlushInterval)
	}
	return nil
}

func validateObservability(cfg *Config) error {
	switch cfg.Observability.TraceExporter {
	case "none", "otlp":
	default:
		return fmt.Errorf("observability.trace_exporter must be one of: none, otlp")
	}
	return nil
}

// ParseLogLevel maps server.log_level to a slog level.
func ParseLogLevel(level string) (slog.Level, error) {
	switch level {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("server.log_level must be one of: debug, info, warn, error")
	}
}
