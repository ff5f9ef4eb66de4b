package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"symbolicator/internal/core/app"
	"symbolicator/internal/core/config"
	"symbolicator/internal/lsp/publish"
	"symbolicator/internal/lsp/server"
	"symbolicator/internal/lsp/transport"
	"symbolicator/internal/shared/observability"
)

const shutdownTimeout = 10 * time.Second

func runServe(ctx context.Context, opts *options, stdin io.Reader, stdout, stderr io.Writer) error {
	cfg, err := config.LoadOrDefault(opts.configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logger, cleanupLogs, err := configureLogging(cfg.Server, opts.verbose, stderr)
	if err != nil {
		return err
	}
	defer cleanupLogs()
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := observability.InitTracing(ctx, observability.TracingConfig{
		ServiceName:  cfg.Observability.ServiceName,
		Version:      versionString,
		Exporter:     cfg.Observability.TraceExporter,
		OTLPEndpoint: cfg.Observability.OTLPEndpoint,
		OTLPInsecure: cfg.Observability.OTLPInsecure,
	})
	if err != nil {
		return fmt.Errorf("init tracing: %w", err)
	}
	defer func() {
		tctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := shutdownTracing(tctx); err != nil {
			logger.Warn("tracing shutdown failed", "error", err)
		}
	}()

	connOpts := []transport.Option{transport.WithLogger(logger)}
	if cfg.RateLimit.Enabled {
		connOpts = append(connOpts, transport.WithRateLimit(float64(cfg.RateLimit.RequestsPerMinute), cfg.RateLimit.Burst))
	}
	conn := transport.NewConn(stdin, stdout, connOpts...)

	a, err := app.New(cfg, app.WithLogger(logger))
	if err != nil {
		return fmt.Errorf("initialize app: %w", err)
	}
	pub := publish.New(a.Queue, conn,
		publish.WithLogger(logger),
		publish.WithBatchSize(cfg.Diagnostics.BatchSize),
		publish.WithFlushInterval(cfg.Diagnostics.FlushInterval),
	)

	// The publisher outlives ctx so the outcomes of the final passes still
	// reach the client; it stops once the queue is closed.
	pubCtx, cancelPub := context.WithCancel(context.WithoutCancel(ctx))
	defer cancelPub()
	pubDone := make(chan error, 1)
	go func() { pubDone <- pub.Run(pubCtx) }()

	var metrics *observability.Server
	if addr := cfg.Observability.MetricsAddress; addr != "" {
		metrics = observability.NewServer(addr, func(ctx context.Context) any { return a.Status(ctx) })
		if err := metrics.Start(ctx); err != nil {
			logger.Warn("observability server unavailable", "addr", addr, "error", err)
			metrics = nil
		}
	}

	if err := a.OpenConfiguredProjects(); err != nil {
		logger.Warn("some configured projects could not be opened", "error", err)
	}

	dispatcher := server.NewDispatcher(a, a.Buffers, a.Store, server.Options{
		Name:                     cfg.Server.Name,
		Version:                  versionString,
		DefinitionsAndReferences: cfg.Symbolication.DefinitionsAndReferences(),
		TriggerOnChange:          cfg.Symbolication.TriggerOnChange,
		CompletionLimit:          cfg.Symbolication.CompletionLimit,
	}, logger)

	logger.Info("language server started", "version", versionString, "projects", len(cfg.Projects.Roots))
	serveErr := conn.Serve(ctx, dispatcher)
	if serveErr != nil && ctx.Err() != nil {
		logger.Info("signal received, shutting down")
		serveErr = nil
	}

	sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := a.Close(sctx); err != nil {
		logger.Warn("shutdown incomplete", "error", err)
	}
	select {
	case err := <-pubDone:
		if err != nil {
			logger.Warn("publisher stopped with error", "error", err)
		}
	case <-sctx.Done():
		logger.Warn("publisher did not drain before the shutdown timeout")
	}
	if metrics != nil {
		_ = metrics.Stop(sctx)
	}

	if serveErr != nil {
		return serveErr
	}
	if ctx.Err() == nil && !dispatcher.ShutdownReceived() {
		logger.Warn("client exited without shutdown")
		return &exitError{code: 1}
	}
	logger.Info("language server stopped")
	return nil
}
