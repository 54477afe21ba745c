package refresher

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/mselser95/polymarket-edge/internal/opportunity"
	"github.com/mselser95/polymarket-edge/internal/storage"
	"github.com/mselser95/polymarket-edge/pkg/types"
	"go.uber.org/zap"
)

// ErrNotReady is reported while no refresh has completed.
var ErrNotReady = errors.New("opportunities not computed yet")

// Runner computes one opportunity run. *opportunity.Engine satisfies it.
type Runner interface {
	FetchDetailed(ctx context.Context, opts opportunity.Options) (*opportunity.Result, error)
}

// View is a read-only copy of the latest run with staleness applied.
type View struct {
	AsOf          time.Time
	Age           time.Duration
	Stale         bool
	Opportunities []types.Opportunity
	Lines         map[string][]types.EventLines
	Failures      []opportunity.SportFailure
}

// Find returns the opportunity with the given id.
func (v View) Find(id string) (*types.Opportunity, bool) {
	for i := range v.Opportunities {
		if v.Opportunities[i].ID == id {
			return &v.Opportunities[i], true
		}
	}
	return nil, false
}

// Failure returns the sportsbook fetch failure recorded for sport, if any.
func (v View) Failure(sport string) (opportunity.SportFailure, bool) {
	for _, f := range v.Failures {
		if f.Sport == sport {
			return f, true
		}
	}
	return opportunity.SportFailure{}, false
}

// Service recomputes opportunities on a fixed interval and keeps the latest result.
type Service struct {
	runner   Runner
	storage  storage.Storage
	interval time.Duration
	opts     opportunity.Options
	logger   *zap.Logger
	now      func() time.Time
	notify   func(err error)

	mu      sync.RWMutex
	latest  *opportunity.Result
	lastErr error

	readyOnce sync.Once
	readyCh   chan struct{}
}

// Config holds refresher configuration.
type Config struct {
	Runner   Runner
	Storage  storage.Storage // optional
	Interval time.Duration   // refresh period and staleness threshold
	Options  opportunity.Options
	Logger   *zap.Logger
	Now      func() time.Time
	// OnRefresh, if set, is called after every refresh with its error (nil on success).
	OnRefresh func(err error)
}

// New creates a new refresher.
func New(cfg *Config) *Service {
	s := &Service{
		runner:   cfg.Runner,
		storage:  cfg.Storage,
		interval: cfg.Interval,
		opts:     cfg.Options,
		logger:   cfg.Logger,
		now:      cfg.Now,
		notify:   cfg.OnRefresh,
		readyCh:  make(chan struct{}),
	}
	if s.storage == nil {
		s.storage = storage.NopStorage{}
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.notify == nil {
		s.notify = func(error) {}
	}
	return s
}

// Run refreshes immediately and then on every tick until ctx is cancelled.
func (s *Service) Run(ctx context.Context) error {
	s.logger.Info("refresher-starting",
		zap.Duration("interval", s.interval),
		zap.Bool("include-non-sports", s.opts.IncludeNonSports))

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	err := s.Refresh(ctx)
	if err != nil {
		s.logger.Error("initial-refresh-failed", zap.Error(err))
	}

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("refresher-stopping")
			return ctx.Err()
		case <-ticker.C:
			err := s.Refresh(ctx)
			if err != nil {
				s.logger.Error("refresh-failed", zap.Error(err))
			}
		}
	}
}

// Refresh runs the engine once, swaps in the result and persists a snapshot.
// On failure the previous result is kept.
func (s *Service) Refresh(ctx context.Context) error {
	start := time.Now()
	defer func() {
		RefreshDurationSeconds.Observe(time.Since(start).Seconds())
	}()

	res, err := s.runner.FetchDetailed(ctx, s.opts)
	if err != nil {
		RefreshesTotal.WithLabelValues("error").Inc()
		s.mu.Lock()
		s.lastErr = err
		s.mu.Unlock()
		err = fmt.Errorf("run engine: %w", err)
		s.notify(err)
		return err
	}

	RefreshesTotal.WithLabelValues("ok").Inc()
	LastRefreshTimestamp.Set(float64(res.FetchedAt.Unix()))

	s.mu.Lock()
	s.latest = res
	s.lastErr = nil
	s.mu.Unlock()

	s.readyOnce.Do(func() { close(s.readyCh) })
	s.notify(nil)

	failed := make([]string, 0, len(res.Failures))
	for _, f := range res.Failures {
		failed = append(failed, f.Sport)
	}

	snap := storage.NewSnapshot(res.FetchedAt, res.Opportunities, res.Lines, failed)
	err = s.storage.StoreSnapshot(ctx, snap)
	if err != nil {
		StorageErrorsTotal.Inc()
		s.logger.Error("store-snapshot-failed",
			zap.String("run-id", snap.RunID.String()),
			zap.Error(err))
	}

	s.logger.Info("refresh-complete",
		zap.String("run-id", snap.RunID.String()),
		zap.Int("opportunities", len(res.Opportunities)),
		zap.Int("sport-failures", len(res.Failures)),
		zap.Duration("duration", time.Since(start)))

	return nil
}

// Ready is closed after the first successful refresh.
func (s *Service) Ready() <-chan struct{} {
	return s.readyCh
}

// LastError returns the error of the most recent refresh, nil after a success.
func (s *Service) LastError() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastErr
}

// Snapshot returns the latest run. ok is false until the first successful refresh.
// Every opportunity is marked stale once its age exceeds the refresh interval.
func (s *Service) Snapshot() (View, bool) {
	s.mu.RLock()
	res := s.latest
	s.mu.RUnlock()

	if res == nil {
		return View{}, false
	}

	now := s.now().UTC()
	opps := make([]types.Opportunity, len(res.Opportunities))
	copy(opps, res.Opportunities)
	for i := range opps {
		opps[i].IsStale = s.isStale(opps[i].UpdatedAt, now)
	}

	return View{
		AsOf:          res.FetchedAt,
		Age:           now.Sub(res.FetchedAt),
		Stale:         s.isStale(res.FetchedAt, now),
		Opportunities: opps,
		Lines:         res.Lines,
		Failures:      res.Failures,
	}, true
}

func (s *Service) isStale(updatedAt, now time.Time) bool {
	if updatedAt.IsZero() {
		return true
	}
	return now.Sub(updatedAt) > s.interval
}
