package app

import (
	"context"
	"sync"

	"github.com/mselser95/polymarket-edge/internal/opportunity"
	"github.com/mselser95/polymarket-edge/internal/refresher"
	"github.com/mselser95/polymarket-edge/internal/storage"
	"github.com/mselser95/polymarket-edge/pkg/cache"
	"github.com/mselser95/polymarket-edge/pkg/config"
	"github.com/mselser95/polymarket-edge/pkg/healthprobe"
	"github.com/mselser95/polymarket-edge/pkg/httpserver"
	"go.uber.org/zap"
)

// App is the main application orchestrator for the serve command.
type App struct {
	cfg           *config.Config
	logger        *zap.Logger
	components    *Components
	healthChecker *healthprobe.HealthChecker
	httpServer    *httpserver.Server
	refresher     *refresher.Service
	storage       storage.Storage
	ctx           context.Context
	cancel        context.CancelFunc
	wg            sync.WaitGroup
}

// Options holds application options.
type Options struct {
	// IncludeNonSports keeps events whose sport cannot be resolved.
	IncludeNonSports bool
}

func (o Options) engineOptions() opportunity.Options {
	return opportunity.Options{IncludeNonSports: o.IncludeNonSports}
}

// closeCache releases the shared cache, if any.
func closeCache(c cache.Cache) {
	if c != nil {
		c.Close()
	}
}
