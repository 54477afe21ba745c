package app

import (
	"errors"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"
)

// Run starts the application and blocks until shutdown.
func (a *App) Run() error {
	a.logger.Info("application-starting",
		zap.String("storage-mode", a.cfg.StorageMode),
		zap.Float64("fee-cushion", a.cfg.FeeCushion),
		zap.Duration("refresh-interval", a.cfg.RefreshInterval),
		zap.Bool("odds-api-enabled", a.components.Odds != nil),
		zap.String("log-level", a.cfg.LogLevel))

	a.startComponents()

	a.logger.Info("application-started",
		zap.String("http-addr", ":"+a.cfg.HTTPPort),
		zap.String("polymarket-url", a.cfg.PolymarketBaseURL))

	// Wait for shutdown signal
	return a.waitForShutdown()
}

func (a *App) startComponents() {
	// Start HTTP server
	a.wg.Add(1)
	go a.runHTTPServer()

	// Start refresher
	a.wg.Add(1)
	go a.runRefresher()

	// Flip readiness after the first successful refresh
	a.wg.Add(1)
	go a.markReady()
}

func (a *App) runHTTPServer() {
	defer a.wg.Done()
	err := a.httpServer.Start()
	if err != nil {
		a.logger.Error("http-server-error", zap.Error(err))
	}
}

func (a *App) runRefresher() {
	defer a.wg.Done()
	err := a.refresher.Run(a.ctx)
	if err != nil && !errors.Is(err, a.ctx.Err()) {
		a.logger.Error("refresher-error", zap.Error(err))
	}
}

func (a *App) markReady() {
	defer a.wg.Done()
	select {
	case <-a.refresher.Ready():
		a.healthChecker.SetReady(true)
		a.logger.Info("application-ready")
	case <-a.ctx.Done():
	}
}

func (a *App) waitForShutdown() error {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		a.logger.Info("shutdown-signal-received", zap.String("signal", sig.String()))
	case <-a.ctx.Done():
		a.logger.Info("context-cancelled")
	}

	return a.Shutdown()
}
