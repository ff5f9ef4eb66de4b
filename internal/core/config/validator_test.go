package config

import (
	"log/slog"
	"strings"
	"testing"
)

func TestLoadRejectsInvalidConfig(t *testing.T) {
	cases := []struct {
		name    string
		content string
		wantErr string
	}{
		{name: "Version", content: "version = 3", wantErr: "unsupported config version"},
		{name: "LogLevel", content: "[server]\nlog_level = \"loud\"", wantErr: "server.log_level"},
		{name: "LogFormat", content: "[server]\nlog_format = \"xml\"", wantErr: "server.log_format"},
		{name: "ExcludeGlob", content: "[exclude]\ndirs = [\"[oops\"]", wantErr: "exclude.dirs"},
		{name: "FlushInterval", content: "[diagnostics]\nflush_interval = \"5m\"", wantErr: "diagnostics.flush_interval"},
		{name: "Concurrency", content: "[symbolication]\nconcurrency = -1", wantErr: "symbolication.concurrency"},
		{name: "Exporter", content: "[observability]\ntrace_exporter = \"zipkin\"", wantErr: "observability.trace_exporter"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tc.content))
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tc.wantErr) {
				t.Fatalf("expected error containing %q, got %v", tc.wantErr, err)
			}
		})
	}
}

func TestParseLogLevel(t *testing.T) {
	level, err := ParseLogLevel("warning")
	if err != nil || level != slog.LevelWarn {
		t.Fatalf("expected warn, got %v (%v)", level, err)
	}
	if _, err := ParseLogLevel("verbose"); err == nil {
		t.Fatal("expected error for unknown level")
	}
}
