package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/mselser95/polymarket-edge/internal/oddsapi"
	"github.com/mselser95/polymarket-edge/internal/opportunity"
	"github.com/mselser95/polymarket-edge/internal/polymarket"
	"github.com/mselser95/polymarket-edge/internal/refresher"
	"github.com/mselser95/polymarket-edge/internal/storage"
	"github.com/mselser95/polymarket-edge/pkg/cache"
	"github.com/mselser95/polymarket-edge/pkg/config"
	"github.com/mselser95/polymarket-edge/pkg/fetcher"
	"github.com/mselser95/polymarket-edge/pkg/healthprobe"
	"github.com/mselser95/polymarket-edge/pkg/httpserver"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Components are the venue clients and engine shared by the server and the one-shot commands.
type Components struct {
	Cache      cache.Cache
	Polymarket *polymarket.Client
	Odds       *oddsapi.Client // nil when ODDS_API_KEY is unset
	Engine     *opportunity.Engine
}

// Close releases the shared cache.
func (c *Components) Close() {
	closeCache(c.Cache)
}

// BuildComponents wires fetchers, cache, venue clients and the engine from cfg.
// A missing Odds API key is not fatal: the engine then scores every market with basis "none".
func BuildComponents(cfg *config.Config, logger *zap.Logger) (*Components, error) {
	ttlCache, err := setupCache(cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("setup cache: %w", err)
	}

	leagues, err := setupLeagues(cfg)
	if err != nil {
		ttlCache.Close()
		return nil, fmt.Errorf("setup leagues: %w", err)
	}

	pmClient := setupPolymarketClient(cfg, logger, ttlCache)

	oddsClient, err := setupOddsClient(cfg, logger, ttlCache)
	if err != nil {
		ttlCache.Close()
		return nil, fmt.Errorf("setup odds client: %w", err)
	}

	engineCfg := &opportunity.Config{
		Markets:     pmClient,
		FeeCushion:  cfg.FeeCushion,
		Concurrency: cfg.OddsFetchConcurrency,
		Leagues:     leagues,
		Logger:      logger,
	}
	// keep the interface nil rather than holding a nil *oddsapi.Client
	if oddsClient != nil {
		engineCfg.Odds = oddsClient
	}

	return &Components{
		Cache:      ttlCache,
		Polymarket: pmClient,
		Odds:       oddsClient,
		Engine:     opportunity.New(engineCfg),
	}, nil
}

// New creates a new application instance.
func New(cfg *config.Config, logger *zap.Logger, opts *Options) (*App, error) {
	if opts == nil {
		opts = &Options{}
	}

	ctx, cancel := context.WithCancel(context.Background())

	components, err := BuildComponents(cfg, logger)
	if err != nil {
		cancel()
		return nil, err
	}

	snapStorage, err := setupStorage(ctx, cfg, logger)
	if err != nil {
		components.Close()
		cancel()
		return nil, fmt.Errorf("setup storage: %w", err)
	}

	healthChecker := setupHealthChecker()
	refresh := setupRefresher(cfg, logger, components.Engine, snapStorage, healthChecker, opts)
	httpServer := setupHTTPServer(cfg, logger, healthChecker, refresh, components.Odds)

	return &App{
		cfg:           cfg,
		logger:        logger,
		components:    components,
		healthChecker: healthChecker,
		httpServer:    httpServer,
		refresher:     refresh,
		storage:       snapStorage,
		ctx:           ctx,
		cancel:        cancel,
	}, nil
}

func setupHealthChecker() *healthprobe.HealthChecker {
	return healthprobe.New()
}

func setupCache(cfg *config.Config, logger *zap.Logger) (*cache.TTLCache, error) {
	return cache.NewTTLCache(&cache.TTLConfig{
		TTL:         cfg.RefreshInterval,
		NumCounters: cfg.CacheMaxItems * 10, // 10x expected max items
		MaxCost:     cfg.CacheMaxItems,
		BufferItems: 64,
		Logger:      logger,
	})
}

func setupLeagues(cfg *config.Config) ([]opportunity.League, error) {
	if cfg.LeaguesFile == "" {
		return opportunity.DefaultLeagues(), nil
	}
	return opportunity.LoadLeagues(cfg.LeaguesFile)
}

func setupFetcher(cfg *config.Config, logger *zap.Logger, baseURL, venue string, limiter *rate.Limiter) *fetcher.Fetcher {
	return fetcher.New(&fetcher.Config{
		BaseURL:     baseURL,
		Venue:       venue,
		Retries:     cfg.HTTPRetries,
		BackoffBase: cfg.HTTPBackoffBase,
		Timeout:     cfg.HTTPTimeout,
		Limiter:     limiter,
		Logger:      logger,
	})
}

func setupPolymarketClient(cfg *config.Config, logger *zap.Logger, ttlCache cache.Cache) *polymarket.Client {
	return polymarket.NewClient(&polymarket.Config{
		Getter:         setupFetcher(cfg, logger, cfg.PolymarketBaseURL, polymarket.Venue, nil),
		Cache:          ttlCache,
		PageLimit:      cfg.PolymarketPageLimit,
		MaxPages:       cfg.PolymarketMaxPages,
		FeeCushion:     cfg.FeeCushion,
		SportAllowlist: cfg.SportAllowlist,
		Logger:         logger,
	})
}

func setupOddsClient(cfg *config.Config, logger *zap.Logger, ttlCache cache.Cache) (*oddsapi.Client, error) {
	var limiter *rate.Limiter
	if cfg.OddsAPIRatePerSec > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.OddsAPIRatePerSec), 1)
	}

	client, err := oddsapi.NewClient(&oddsapi.Config{
		Getter:     setupFetcher(cfg, logger, cfg.OddsAPIBaseURL, oddsapi.Venue, limiter),
		Cache:      ttlCache,
		APIKey:     cfg.OddsAPIKey,
		Regions:    cfg.OddsAPIRegions,
		Markets:    cfg.OddsAPIMarkets,
		Bookmakers: cfg.OddsAPIBookmakers,
		Logger:     logger,
	})
	if errors.Is(err, oddsapi.ErrMissingAPIKey) {
		logger.Warn("odds-api-disabled",
			zap.String("reason", "ODDS_API_KEY not set, opportunities will have no sportsbook reference"))
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return client, nil
}

func setupStorage(ctx context.Context, cfg *config.Config, logger *zap.Logger) (storage.Storage, error) {
	switch cfg.StorageMode {
	case config.StoragePostgres:
		pgStorage, err := storage.NewPostgresStorage(ctx, &storage.PostgresConfig{
			Host:     cfg.PostgresHost,
			Port:     cfg.PostgresPort,
			User:     cfg.PostgresUser,
			Password: cfg.PostgresPass,
			Database: cfg.PostgresDB,
			SSLMode:  cfg.PostgresSSL,
			Logger:   logger,
		})
		if err != nil {
			return nil, fmt.Errorf("create postgres storage: %w", err)
		}
		return pgStorage, nil
	case config.StorageSQLite:
		sqliteStorage, err := storage.NewSQLiteStorage(cfg.SQLitePath, logger)
		if err != nil {
			return nil, fmt.Errorf("create sqlite storage: %w", err)
		}
		return sqliteStorage, nil
	case config.StorageRedis:
		redisStorage, err := storage.NewRedisStorage(ctx, &storage.RedisConfig{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
			TTL:      2 * cfg.RefreshInterval,
			Logger:   logger,
		})
		if err != nil {
			return nil, fmt.Errorf("create redis storage: %w", err)
		}
		return redisStorage, nil
	case config.StorageNone:
		return storage.NopStorage{}, nil
	}

	return storage.NewConsoleStorage(logger), nil
}

func setupRefresher(
	cfg *config.Config,
	logger *zap.Logger,
	engine *opportunity.Engine,
	snapStorage storage.Storage,
	healthChecker *healthprobe.HealthChecker,
	opts *Options,
) *refresher.Service {
	return refresher.New(&refresher.Config{
		Runner:   engine,
		Storage:  snapStorage,
		Interval: cfg.RefreshInterval,
		Options:  opts.engineOptions(),
		Logger:   logger,
		OnRefresh: func(err error) {
			if err != nil {
				healthChecker.SetDegraded(err.Error())
				return
			}
			healthChecker.SetDegraded("")
		},
	})
}

func setupHTTPServer(
	cfg *config.Config,
	logger *zap.Logger,
	healthChecker *healthprobe.HealthChecker,
	refresh *refresher.Service,
	oddsClient *oddsapi.Client,
) *httpserver.Server {
	serverCfg := &httpserver.Config{
		Port:          cfg.HTTPPort,
		Logger:        logger,
		HealthChecker: healthChecker,
		Opportunities: refresh,
		CORSOrigins:   cfg.CORSOrigins,
	}
	if oddsClient != nil {
		serverCfg.Odds = oddsClient
	}
	return httpserver.New(serverCfg)
}
