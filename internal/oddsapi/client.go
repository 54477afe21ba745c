package oddsapi

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/mselser95/polymarket-edge/pkg/cache"
	"github.com/mselser95/polymarket-edge/pkg/canonical"
	"github.com/mselser95/polymarket-edge/pkg/oddsmath"
	"github.com/mselser95/polymarket-edge/pkg/payload"
	"github.com/mselser95/polymarket-edge/pkg/types"
	"go.uber.org/zap"
)

// Venue is the label used in errors, logs and metrics for The Odds API.
const Venue = "odds_api"

// ErrMissingAPIKey is returned by NewClient when no API key is configured.
var ErrMissingAPIKey = errors.New("odds api key is required")

// JSONGetter performs a GET and decodes the JSON body.
// *fetcher.Fetcher satisfies it.
type JSONGetter interface {
	GetJSON(ctx context.Context, path string, params url.Values) (any, error)
}

// Config holds configuration for The Odds API client.
type Config struct {
	Getter     JSONGetter
	Cache      cache.Cache // optional
	APIKey     string
	Regions    string // e.g. "us"
	Markets    string // e.g. "h2h" or "h2h,spreads"
	Bookmakers string // optional comma separated filter
	Logger     *zap.Logger
}

// Client fetches sportsbook odds and annotates head-to-head lines with vig-free probabilities.
type Client struct {
	getter     JSONGetter
	cache      cache.Cache
	apiKey     string
	regions    string
	markets    string
	bookmakers string
	logger     *zap.Logger
}

// NewClient creates a new Odds API client.
func NewClient(cfg *Config) (*Client, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, ErrMissingAPIKey
	}

	c := &Client{
		getter:     cfg.Getter,
		cache:      cfg.Cache,
		apiKey:     cfg.APIKey,
		regions:    cfg.Regions,
		markets:    cfg.Markets,
		bookmakers: cfg.Bookmakers,
		logger:     cfg.Logger,
	}

	if c.regions == "" {
		c.regions = "us"
	}
	if c.markets == "" {
		c.markets = types.MarketH2H
	}
	if c.logger == nil {
		c.logger = zap.NewNop()
	}

	return c, nil
}

// FetchSportOdds returns every event currently quoted for sportKey.
func (c *Client) FetchSportOdds(ctx context.Context, sportKey string) ([]types.EventLines, error) {
	key := cache.Key("odds_api.sport_odds", map[string]string{
		"sport":      sportKey,
		"regions":    c.regions,
		"markets":    c.markets,
		"bookmakers": c.bookmakers,
	})
	if c.cache != nil {
		if cached, ok := c.cache.Get(key); ok {
			if events, ok := cached.([]types.EventLines); ok {
				return events, nil
			}
		}
	}

	start := time.Now()
	defer func() {
		FetchDurationSeconds.WithLabelValues(sportKey).Observe(time.Since(start).Seconds())
	}()

	params := url.Values{}
	params.Set("regions", c.regions)
	params.Set("markets", c.markets)
	params.Set("oddsFormat", "american")
	if c.bookmakers != "" {
		params.Set("bookmakers", c.bookmakers)
	}
	params.Set("apiKey", c.apiKey)

	c.logger.Debug("fetching-sport-odds",
		zap.String("sport", sportKey),
		zap.String("regions", c.regions),
		zap.String("markets", c.markets))

	data, err := c.getter.GetJSON(ctx, "/sports/"+url.PathEscape(sportKey)+"/odds", params)
	if err != nil {
		FetchErrorsTotal.WithLabelValues(sportKey).Inc()
		return nil, fmt.Errorf("fetch odds for %s: %w", sportKey, err)
	}

	raw, ok := payload.AsList(data)
	if !ok {
		FetchErrorsTotal.WithLabelValues(sportKey).Inc()
		return nil, types.NewDataShapeError(Venue, "unexpected odds response shape for %s; expected list", sportKey)
	}

	events := make([]types.EventLines, 0, len(raw))
	for _, item := range raw {
		ev, ok := payload.AsObject(item)
		if !ok {
			continue
		}
		events = append(events, parseEvent(sportKey, ev))
	}

	EventsFetchedTotal.WithLabelValues(sportKey).Add(float64(len(events)))
	c.logger.Debug("fetched-sport-odds",
		zap.String("sport", sportKey),
		zap.Int("events", len(events)))

	if c.cache != nil {
		c.cache.Set(key, events)
	}
	return events, nil
}

// parseEvent flattens bookmaker -> market -> outcome records into BookLines.
func parseEvent(sportKey string, ev payload.Object) types.EventLines {
	lines := types.EventLines{
		Sport:        sportKey,
		EventID:      ev.String("id", "event_id", "commence_time"),
		Title:        ev.String("home_team", "title"),
		CommenceTime: ev.String("commence_time"),
	}

	books, _ := ev.List("bookmakers")
	for _, rawBook := range books {
		book, ok := payload.AsObject(rawBook)
		if !ok {
			continue
		}
		bookmaker := book.String("key", "title")

		markets, _ := book.List("markets")
		for _, rawMarket := range markets {
			market, ok := payload.AsObject(rawMarket)
			if !ok {
				continue
			}
			marketType := market.String("key")

			outcomes, _ := market.List("outcomes")
			for _, rawOutcome := range outcomes {
				outcome, ok := payload.AsObject(rawOutcome)
				if !ok {
					continue
				}
				if line, ok := parseOutcome(bookmaker, marketType, outcome); ok {
					lines.Lines = append(lines.Lines, line)
				}
			}
		}
	}

	annotateFairProbabilities(lines.Lines)
	lines.CanonicalEventKey = canonical.EventKey(sportKey, lines.Title, "")
	return lines
}

// parseOutcome builds one BookLine. An outcome without a price is kept with its point only;
// a non-integer or zero price makes the outcome unusable.
func parseOutcome(bookmaker, marketType string, o payload.Object) (types.BookLine, bool) {
	line := types.BookLine{
		Bookmaker:  bookmaker,
		MarketType: marketType,
		Side:       o.String("name", "description"),
	}

	if marketType == types.MarketSpreads || marketType == types.MarketTotals {
		if p, ok := o.Float("point"); ok {
			line.Point = &p
		}
	}

	rawPrice, present := o.Raw("price")
	if !present {
		return line, true
	}

	american, ok := payload.ToInt(rawPrice)
	if !ok {
		return types.BookLine{}, false
	}
	decimal, err := oddsmath.AmericanToDecimal(american)
	if err != nil {
		return types.BookLine{}, false
	}

	line.AmericanOdds = &american
	line.DecimalOdds = &decimal
	return line, true
}

// annotateFairProbabilities picks the best h2h price per side across bookmakers and, when
// exactly two sides were quoted, writes the vig-free probability onto every h2h line.
func annotateFairProbabilities(lines []types.BookLine) {
	var (
		sides []string
		best  = make(map[string]int)
	)

	for _, line := range lines {
		if line.MarketType != types.MarketH2H || line.AmericanOdds == nil {
			continue
		}
		price := *line.AmericanOdds
		current, seen := best[line.Side]
		if !seen {
			sides = append(sides, line.Side)
			best[line.Side] = price
			continue
		}
		if oddsmath.BetterAmericanPrice(price, current) {
			best[line.Side] = price
		}
	}

	if len(sides) != 2 {
		return
	}

	implied := make([]float64, 2)
	for i, side := range sides {
		p, err := oddsmath.ImpliedProbabilityFromAmerican(best[side])
		if err != nil {
			return
		}
		implied[i] = p
	}

	fairA, fairB, err := oddsmath.RemoveVigTwoOutcomes(implied[0], implied[1])
	if err != nil {
		return
	}
	fair := map[string]float64{sides[0]: fairA, sides[1]: fairB}

	for i := range lines {
		if lines[i].MarketType != types.MarketH2H || lines[i].AmericanOdds == nil {
			continue
		}
		p, ok := fair[lines[i].Side]
		if !ok {
			continue
		}
		fairProb := p
		fairDecimal := 1 / p
		lines[i].FairProbability = &fairProb
		lines[i].FairDecimalOdds = &fairDecimal
	}
}
