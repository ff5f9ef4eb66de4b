package config

import (
	"time"
)

type Config struct {
	Version       int                 `toml:"version"`
	Server        Server              `toml:"server"`
	Symbolication Symbolication       `toml:"symbolication"`
	Projects      Projects            `toml:"projects"`
	Languages     map[string]Language `toml:"languages"`
	Exclude       Exclude             `toml:"exclude"`
	Watch         Watch               `toml:"watch"`
	Diagnostics   Diagnostics         `toml:"diagnostics"`
	History       History             `toml:"history"`
	Observability Observability       `toml:"observability"`
	RateLimit     RateLimit           `toml:"rate_limit"`
}

type Server struct {
	Name      string `toml:"name"`
	LogLevel  string `toml:"log_level"`
	LogFormat string `toml:"log_format"` // text or json
	LogFile   string `toml:"log_file"`   // empty means stderr
}

type Symbolication struct {
	Enabled         *bool `toml:"enabled"`
	DefsAndRefs     *bool `toml:"defs_and_refs"`
	TriggerOnChange bool  `toml:"trigger_on_change"`
	MaxFileBytes    int64 `toml:"max_file_bytes"`
	CompletionLimit int   `toml:"completion_limit"`
	// Concurrency bounds the files parsed in parallel per pass; 0 means GOMAXPROCS.
	Concurrency int `toml:"concurrency"`
}

func (s Symbolication) IsEnabled() bool {
	return s.Enabled == nil || *s.Enabled
}

// DefinitionsAndReferences reports whether go-to-definition and
// find-references are advertised to the editor.
func (s Symbolication) DefinitionsAndReferences() bool {
	return s.DefsAndRefs == nil || *s.DefsAndRefs
}

type Projects struct {
	Roots []string `toml:"roots"`
}

type Language struct {
	Enabled    *bool    `toml:"enabled"`
	Extensions []string `toml:"extensions"`
}

type Exclude struct {
	Dirs  []string `toml:"dirs"`
	Files []string `toml:"files"`
}

type Watch struct {
	Enabled  *bool         `toml:"enabled"`
	Debounce time.Duration `toml:"debounce"`
}

func (w Watch) IsEnabled() bool {
	return w.Enabled == nil || *w.Enabled
}

type Diagnostics struct {
	BatchSize     int           `toml:"batch_size"`
	FlushInterval time.Duration `toml:"flush_interval"`
}

type History struct {
	Enabled bool   `toml:"enabled"`
	Path    string `toml:"path"`
}

type Observability struct {
	MetricsAddress string `toml:"metrics_address"`
	TraceExporter  string `toml:"trace_exporter"` // none or otlp
	OTLPEndpoint   string `toml:"otlp_endpoint"`
	OTLPInsecure   bool   `toml:"otlp_insecure"`
	ServiceName    string `toml:"service_name"`
}

type RateLimit struct {
	Enabled           bool `toml:"enabled"`
	RequestsPerMinute int  `toml:"requests_per_minute"`
	Burst             int  `toml:"burst"`
}

// DefaultConfig is the configuration used when no file is given.
func DefaultConfig() *Config {
	cfg := &Config{}
	applyDefaults(cfg)
	normalize(cfg)
	return cfg
}
