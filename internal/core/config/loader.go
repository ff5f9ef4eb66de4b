package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

const (
	DefaultDebounce        = 300 * time.Millisecond
	DefaultMaxFileBytes    = 2 << 20
	DefaultCompletionLimit = 100
	DefaultBatchSize       = 16
	DefaultFlushInterval   = 50 * time.Millisecond
)

var defaultExcludeDirs = []string{".git", ".hg", ".svn", "node_modules", "vendor", "target", "dist", "build", "__pycache__", ".venv"}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if _, err := toml.Decode(string(data), &cfg); err != nil {
		return nil, err
	}

	ApplyEnvOverrides(&cfg)
	applyDefaults(&cfg)
	normalize(&cfg)
	if err := validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadOrDefault loads path when it is set and falls back to DefaultConfig.
func LoadOrDefault(path string) (*Config, error) {
	if strings.TrimSpace(path) == "" {
		cfg := &Config{}
		ApplyEnvOverrides(cfg)
		applyDefaults(cfg)
		normalize(cfg)
		if err := validate(cfg); err != nil {
			return nil, err
		}
		return cfg, nil
	}
	return Load(path)
}

func applyDefaults(cfg *Config) {
	if cfg.Version == 0 {
		cfg.Version = 1
	}

	if strings.TrimSpace(cfg.Server.Name) == "" {
		cfg.Server.Name = "symbolicator"
	}
	if strings.TrimSpace(cfg.Server.LogLevel) == "" {
		cfg.Server.LogLevel = "info"
	}
	if strings.TrimSpace(cfg.Server.LogFormat) == "" {
		cfg.Server.LogFormat = "text"
	}

	if cfg.Symbolication.MaxFileBytes <= 0 {
		cfg.Symbolication.MaxFileBytes = DefaultMaxFileBytes
	}
	if cfg.Symbolication.CompletionLimit <= 0 {
		cfg.Symbolication.CompletionLimit = DefaultCompletionLimit
	}

	if cfg.Exclude.Dirs == nil {
		cfg.Exclude.Dirs = append([]string(nil), defaultExcludeDirs...)
	}

	if cfg.Watch.Debounce == 0 {
		cfg.Watch.Debounce = DefaultDebounce
	}

	if cfg.Diagnostics.BatchSize <= 0 {
		cfg.Diagnostics.BatchSize = DefaultBatchSize
	}
	if cfg.Diagnostics.FlushInterval <= 0 {
		cfg.Diagnostics.FlushInterval = DefaultFlushInterval
	}

	if strings.TrimSpace(cfg.History.Path) == "" {
		cfg.History.Path = defaultHistoryPath()
	}

	if strings.TrimSpace(cfg.Observability.TraceExporter) == "" {
		cfg.Observability.TraceExporter = "none"
	}
	if strings.TrimSpace(cfg.Observability.OTLPEndpoint) == "" {
		cfg.Observability.OTLPEndpoint = "localhost:4317"
	}
	if strings.TrimSpace(cfg.Observability.ServiceName) == "" {
		cfg.Observability.ServiceName = cfg.Server.Name
	}

	if cfg.RateLimit.RequestsPerMinute <= 0 {
		cfg.RateLimit.RequestsPerMinute = 6000
	}
	if cfg.RateLimit.Burst <= 0 {
		cfg.RateLimit.Burst = 100
	}
}

func defaultHistoryPath() string {
	dir, err := os.UserCacheDir()
	if err != nil || dir == "" {
		dir = os.TempDir()
	}
	return filepath.Join(dir, "symbolicator", "history.db")
}

func normalize(cfg *Config) {
	cfg.Server.LogLevel = strings.ToLower(strings.TrimSpace(cfg.Server.LogLevel))
	cfg.Server.LogFormat = strings.ToLower(strings.TrimSpace(cfg.Server.LogFormat))
	cfg.Server.LogFile = strings.TrimSpace(cfg.Server.LogFile)
	cfg.Observability.TraceExporter = strings.ToLower(strings.TrimSpace(cfg.Observability.TraceExporter))
	cfg.Observability.MetricsAddress = strings.TrimSpace(cfg.Observability.MetricsAddress)
	cfg.History.Path = strings.TrimSpace(cfg.History.Path)

	roots := make([]string, 0, len(cfg.Projects.Roots))
	seen := make(map[string]bool, len(cfg.Projects.Roots))
	for _, root := range cfg.Projects.Roots {
		root = strings.TrimSpace(root)
		if root == "" {
			continue
		}
		if abs, err := filepath.Abs(root); err == nil {
			root = abs
		}
		root = filepath.Clean(root)
		if seen[root] {
			continue
		}
		seen[root] = true
		roots = append(roots, root)
	}
	cfg.Projects.Roots = roots

	if len(cfg.Languages) > 0 {
		normalized := make(map[string]Language, len(cfg.Languages))
		for id, lang := range cfg.Languages {
			normalized[strings.ToLower(strings.TrimSpace(id))] = lang
		}
		cfg.Languages = normalized
	}
}
