package cli

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"symbolicator/internal/core/config"
	"symbolicator/internal/shared/util"
)

// configureLogging builds the process logger. Logs never go to stdout, which
// carries the LSP stream in serve mode.
func configureLogging(server config.Server, verbose bool, stderr io.Writer) (*slog.Logger, func(), error) {
	level, err := config.ParseLogLevel(server.LogLevel)
	if err != nil {
		return nil, nil, err
	}
	if verbose {
		level = slog.LevelDebug
	}

	output := stderr
	cleanup := func() {}
	if server.LogFile != "" {
		f, err := util.OpenFileWithDirs(server.LogFile, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o600)
		if err != nil {
			return nil, nil, fmt.Errorf("open log file %q: %w", server.LogFile, err)
		}
		output = f
		cleanup = func() { _ = f.Close() }
	}

	handlerOpts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if server.LogFormat == "json" {
		handler = slog.NewJSONHandler(output, handlerOpts)
	} else {
		handler = slog.NewTextHandler(output, handlerOpts)
	}
	return slog.New(handler), cleanup, nil
}
