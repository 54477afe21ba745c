package opportunity

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/mselser95/polymarket-edge/pkg/canonical"
	"github.com/mselser95/polymarket-edge/pkg/oddsmath"
	"github.com/mselser95/polymarket-edge/pkg/types"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// missingEVPercent is the sort key used for opportunities without an EV percent.
const missingEVPercent = -1e9

// DefaultConcurrency bounds parallel sportsbook fetches.
const DefaultConcurrency = 4

const (
	attributionPolymarket = "Polymarket Gamma API"
	attributionWithOdds   = "Polymarket Gamma API; The Odds API (vig-free h2h)"
)

// MarketSource provides normalized Polymarket events. *polymarket.Client satisfies it.
type MarketSource interface {
	FetchEvents(ctx context.Context) ([]types.MarketEvent, error)
}

// OddsSource provides sportsbook lines per sport key. *oddsapi.Client satisfies it.
type OddsSource interface {
	FetchSportOdds(ctx context.Context, sportKey string) ([]types.EventLines, error)
}

// Options controls a single engine run.
type Options struct {
	// IncludeNonSports keeps events whose sport cannot be resolved.
	IncludeNonSports bool
}

// SportFailure records a sportsbook fetch that degraded to "no reference data".
type SportFailure struct {
	Sport   string `json:"sport"`
	Message string `json:"error"`
	Err     error  `json:"-"`
}

// Result is the output of a run together with the inputs it was computed from.
type Result struct {
	Opportunities []types.Opportunity           `json:"opportunities"`
	Events        []types.MarketEvent           `json:"events"`
	Lines         map[string][]types.EventLines `json:"lines"`
	Failures      []SportFailure                `json:"failures"`
	FetchedAt     time.Time                     `json:"fetched_at"`
}

// Config holds engine configuration.
type Config struct {
	Markets     MarketSource
	Odds        OddsSource // optional; nil means every opportunity has basis "none"
	FeeCushion  float64
	Concurrency int
	Leagues     []League // defaults to DefaultLeagues
	Logger      *zap.Logger
	Now         func() time.Time
}

// Engine joins Polymarket prices with sportsbook fair probabilities and ranks them by EV.
type Engine struct {
	markets     MarketSource
	odds        OddsSource
	feeCushion  float64
	concurrency int
	leagues     *leagueTable
	logger      *zap.Logger
	now         func() time.Time
}

// New creates a new opportunity engine.
func New(cfg *Config) *Engine {
	e := &Engine{
		markets:     cfg.Markets,
		odds:        cfg.Odds,
		feeCushion:  oddsmath.ClampUnit(cfg.FeeCushion),
		concurrency: cfg.Concurrency,
		logger:      cfg.Logger,
		now:         cfg.Now,
	}

	leagues := cfg.Leagues
	if len(leagues) == 0 {
		leagues = DefaultLeagues()
	}
	e.leagues = newLeagueTable(leagues)

	if e.concurrency <= 0 {
		e.concurrency = DefaultConcurrency
	}
	if e.logger == nil {
		e.logger = zap.NewNop()
	}
	if e.now == nil {
		e.now = time.Now
	}

	return e
}

// Fetch returns opportunities sorted by EV percent, highest first.
func (e *Engine) Fetch(ctx context.Context, opts Options) ([]types.Opportunity, error) {
	res, err := e.FetchDetailed(ctx, opts)
	if err != nil {
		return nil, err
	}
	return res.Opportunities, nil
}

// FetchDetailed runs the engine and keeps the intermediate events, lines and failures.
//
// A Polymarket failure fails the run. Sportsbook failures never do: each failing sport
// is recorded in Result.Failures and its markets are scored with basis "none".
func (e *Engine) FetchDetailed(ctx context.Context, opts Options) (*Result, error) {
	start := time.Now()
	defer func() {
		RunDurationSeconds.Observe(time.Since(start).Seconds())
	}()

	events, err := e.markets.FetchEvents(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch polymarket events: %w", err)
	}

	retained := e.resolveSports(events, opts)
	sports := distinctSports(retained)

	lines, failures := e.fetchOdds(ctx, sports)
	fairByKey := fairProbabilitiesByKey(lines)

	now := e.now().UTC()
	opps := make([]types.Opportunity, 0)
	for i := range retained {
		ev := &retained[i]
		key := canonical.EventKey(ev.Sport, ev.Title, "")
		for j := range ev.Markets {
			opp, ok := e.score(ev, &ev.Markets[j], key, fairByKey[key], now)
			if ok {
				opps = append(opps, opp)
			}
		}
	}

	SortByEV(opps)
	e.recordMetrics(opps)

	e.logger.Info("opportunities-computed",
		zap.Int("events", len(retained)),
		zap.Int("sports", len(sports)),
		zap.Int("sport-failures", len(failures)),
		zap.Int("opportunities", len(opps)))

	return &Result{
		Opportunities: opps,
		Events:        retained,
		Lines:         lines,
		Failures:      failures,
		FetchedAt:     now,
	}, nil
}

// resolveSports maps every event onto a sportsbook sport key.
// A sport that is already a known league code is kept. Otherwise the league table is
// matched against the sport label, market questions, title and ticker. An explicit
// sport that matches nothing is kept as-is.
func (e *Engine) resolveSports(events []types.MarketEvent, opts Options) []types.MarketEvent {
	retained := make([]types.MarketEvent, 0, len(events))
	for _, ev := range events {
		if !e.leagues.known(ev.Sport) {
			texts := make([]string, 0, len(ev.Markets)+3)
			texts = append(texts, ev.Sport)
			for _, m := range ev.Markets {
				texts = append(texts, m.Question)
			}
			texts = append(texts, ev.Title, ev.Ticker)

			if inferred := e.leagues.infer(texts...); inferred != "" {
				ev.Sport = inferred
			}
		}

		if ev.Sport == "" && !opts.IncludeNonSports {
			EventsDroppedTotal.Inc()
			continue
		}
		retained = append(retained, ev)
	}
	return retained
}

// fetchOdds fetches each sport in parallel. A failing sport is recorded and skipped.
func (e *Engine) fetchOdds(ctx context.Context, sports []string) (map[string][]types.EventLines, []SportFailure) {
	lines := make(map[string][]types.EventLines, len(sports))
	if e.odds == nil || len(sports) == 0 {
		return lines, nil
	}

	results := make([][]types.EventLines, len(sports))
	errs := make([]error, len(sports))

	var g errgroup.Group
	g.SetLimit(e.concurrency)
	for i, sport := range sports {
		g.Go(func() error {
			results[i], errs[i] = e.odds.FetchSportOdds(ctx, sport)
			return nil
		})
	}
	_ = g.Wait()

	var failures []SportFailure
	for i, sport := range sports {
		if errs[i] != nil {
			SportFailuresTotal.WithLabelValues(sport).Inc()
			e.logger.Warn("odds-fetch-failed",
				zap.String("sport", sport),
				zap.Error(errs[i]))
			failures = append(failures, SportFailure{Sport: sport, Message: errs[i].Error(), Err: errs[i]})
			continue
		}
		lines[sport] = results[i]
	}
	return lines, failures
}

// score prices one market. ok is false when the market is not a Yes/No pair or its
// recovered price is unusable.
func (e *Engine) score(ev *types.MarketEvent, m *types.BinaryMarket, key string, fair map[string]float64, now time.Time) (types.Opportunity, bool) {
	if len(m.Outcomes) != 2 {
		return types.Opportunity{}, false
	}
	yes, no := m.OutcomeByName("yes"), m.OutcomeByName("no")
	if yes == nil || no == nil {
		return types.Opportunity{}, false
	}

	pTrue := yes.Price
	denom := 1 - e.feeCushion
	if denom <= 0 {
		denom = 1
	}
	price := oddsmath.ClampUnit(pTrue / denom)
	if price <= 0 || pTrue < 0 || pTrue > 1 {
		return types.Opportunity{}, false
	}

	opp := types.Opportunity{
		ID:                types.SourcePolymarket + ":" + m.MarketID,
		Source:            types.SourcePolymarket,
		Title:             m.Question,
		Sport:             ev.Sport,
		EventID:           ev.EventID,
		MarketID:          m.MarketID,
		CanonicalEventKey: key,
		YesProbability:    pTrue,
		Price:             price,
		ComparisonBasis:   types.BasisNone,
		ComparisonSources: []string{},
		SourceAttribution: attributionPolymarket,
		UpdatedAt:         now,
	}

	if fair == nil {
		zero, zeroPct := 0.0, 0.0
		opp.EVUSDPerShare = &zero
		opp.EVPercent = &zeroPct
		return opp, true
	}

	// The higher fair probability is assumed to be the Yes side. No shared identifier
	// links sportsbook sides to Polymarket outcomes.
	pRef := 0.0
	for _, p := range fair {
		if p > pRef {
			pRef = p
		}
	}

	evUSD := pRef*(1-price) - (1-pRef)*price
	evPct := evUSD / price * 100

	opp.EVUSDPerShare = &evUSD
	opp.EVPercent = &evPct
	opp.ComparisonBasis = types.BasisSportsbookFair
	opp.ComparisonSources = []string{types.SourceOddsAPI}
	opp.SourceAttribution = attributionWithOdds
	opp.Inputs = &types.Inputs{
		PMPrice:          price,
		PMYesProbability: pTrue,
		FeeCushion:       e.feeCushion,
		SBFairProbs:      fair,
	}
	opp.CalcNotes = fmt.Sprintf(
		"p_true=max(sportsbook fair)=%.4f (favourite assumed to be Yes); price=yes/(1-fee)=%.4f; "+
			"ev=p_true*(1-price)-(1-p_true)*price=%.4f; ev%%=ev/price*100=%.2f",
		pRef, price, evUSD, evPct)

	return opp, true
}

func (e *Engine) recordMetrics(opps []types.Opportunity) {
	counts := map[types.ComparisonBasis]int{
		types.BasisNone:           0,
		types.BasisSportsbookFair: 0,
	}
	for i := range opps {
		counts[opps[i].ComparisonBasis]++
		if opps[i].ComparisonBasis == types.BasisSportsbookFair {
			OpportunityEVPercent.Observe(opps[i].EVPercentOr(0))
		}
	}
	for basis, n := range counts {
		OpportunitiesTotal.WithLabelValues(string(basis)).Set(float64(n))
	}
}

// SortByEV stable-sorts opportunities by EV percent, highest first.
// A missing EV percent sorts last.
func SortByEV(opps []types.Opportunity) {
	sort.SliceStable(opps, func(i, j int) bool {
		return opps[i].EVPercentOr(missingEVPercent) > opps[j].EVPercentOr(missingEVPercent)
	})
}

func distinctSports(events []types.MarketEvent) []string {
	seen := make(map[string]struct{})
	var sports []string
	for _, ev := range events {
		if ev.Sport == "" {
			continue
		}
		if _, ok := seen[ev.Sport]; ok {
			continue
		}
		seen[ev.Sport] = struct{}{}
		sports = append(sports, ev.Sport)
	}
	return sports
}

// fairProbabilitiesByKey indexes events with exactly two fair probabilities by canonical key.
// A later event with the same key replaces an earlier one.
func fairProbabilitiesByKey(lines map[string][]types.EventLines) map[string]map[string]float64 {
	byKey := make(map[string]map[string]float64)
	for _, events := range lines {
		for i := range events {
			fair := events[i].FairProbabilities()
			if len(fair) != 2 || events[i].CanonicalEventKey == "" {
				continue
			}
			byKey[events[i].CanonicalEventKey] = fair
		}
	}
	return byKey
}
