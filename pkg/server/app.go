package server

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"GammaDesk/internal/jobs"
	"GammaDesk/pkg/config"
	xhttp "GammaDesk/pkg/http"
	applogger "GammaDesk/pkg/logger"
)

// App encapsulates the entire application lifecycle.
type App struct {
	cfg         *config.Config
	log         *applogger.Logger
	httpHandler xhttp.Handler
	scheduler   *jobs.Runner
	httpServer  *xhttp.Server
}

// New creates a new App instance with all dependencies.
func New(cfg *config.Config, l *applogger.Logger, h xhttp.Handler, scheduler *jobs.Runner) *App {
	if l == nil {
		l = applogger.NewNop()
	}
	return &App{cfg: cfg, log: l, httpHandler: h, scheduler: scheduler}
}

// Run starts the HTTP server and scheduler and blocks until interrupted.
func (a *App) Run() error {
	metricsPath := ""
	if a.cfg.Metrics.Enabled {
		metricsPath = a.cfg.Metrics.Path
	}
	a.httpServer = xhttp.NewServer(a.httpHandler,
		xhttp.WithPort(a.cfg.Server.Port),
		xhttp.WithTimeouts(a.cfg.Server.ReadTimeout, a.cfg.Server.WriteTimeout, a.cfg.Server.ShutdownTimeout),
		xhttp.WithMetricsPath(metricsPath),
		xhttp.WithCORS(a.cfg.Server.CORSOrigins...),
		xhttp.WithCompression(a.cfg.Server.Compression),
		xhttp.WithLogger(a.log),
	)

	if err := a.httpServer.Start(); err != nil {
		a.log.Error("http server start error", applogger.Error(err))
		return err
	}
	a.log.Info("http server started", applogger.Int("port", a.cfg.Server.Port))

	if a.scheduler != nil {
		a.scheduler.Start()
	}

	// Wait for interrupt
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	a.log.Info("shutdown signal received")
	return a.shutdown(context.Background())
}

// shutdown stops the scheduler first so no job starts against a closing server.
func (a *App) shutdown(ctx context.Context) error {
	if a.scheduler != nil {
		a.scheduler.Stop()
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, a.cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := a.httpServer.Stop(shutdownCtx); err != nil {
		a.log.Error("http shutdown error", applogger.Error(err))
		return err
	}

	a.log.RemoveCollector()
	a.log.Info("shutdown complete")
	return nil
}
