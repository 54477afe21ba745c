package polymarket

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/mselser95/polymarket-edge/pkg/cache"
	"github.com/mselser95/polymarket-edge/pkg/canonical"
	"github.com/mselser95/polymarket-edge/pkg/payload"
	"github.com/mselser95/polymarket-edge/pkg/types"
	"go.uber.org/zap"
)

// Venue is the label used in errors, logs and metrics for the Gamma API.
const Venue = "polymarket"

const (
	// DefaultPageLimit is the page size requested from /markets.
	DefaultPageLimit = 500
	// DefaultMaxPages bounds pagination.
	DefaultMaxPages = 5
)

// JSONGetter performs a GET and decodes the JSON body.
// *fetcher.Fetcher satisfies it.
type JSONGetter interface {
	GetJSON(ctx context.Context, path string, params url.Values) (any, error)
}

// Config holds configuration for the Gamma client.
type Config struct {
	Getter         JSONGetter
	Cache          cache.Cache // optional
	PageLimit      int
	MaxPages       int
	FeeCushion     float64
	SportAllowlist []string
	Logger         *zap.Logger
	Now            func() time.Time // optional clock for the liveness filter
}

// Client fetches and normalizes Polymarket markets from the Gamma API.
type Client struct {
	getter     JSONGetter
	cache      cache.Cache
	pageLimit  int
	maxPages   int
	feeCushion float64
	allowlist  map[string]struct{}
	logger     *zap.Logger
	now        func() time.Time
}

// NewClient creates a new Gamma API client.
func NewClient(cfg *Config) *Client {
	c := &Client{
		getter:     cfg.Getter,
		cache:      cfg.Cache,
		pageLimit:  cfg.PageLimit,
		maxPages:   cfg.MaxPages,
		feeCushion: cfg.FeeCushion,
		logger:     cfg.Logger,
		now:        cfg.Now,
	}

	if c.pageLimit <= 0 {
		c.pageLimit = DefaultPageLimit
	}
	if c.maxPages <= 0 {
		c.maxPages = DefaultMaxPages
	}
	if c.logger == nil {
		c.logger = zap.NewNop()
	}
	if c.now == nil {
		c.now = time.Now
	}

	if len(cfg.SportAllowlist) > 0 {
		c.allowlist = make(map[string]struct{}, len(cfg.SportAllowlist))
		for _, s := range cfg.SportAllowlist {
			code := canonical.SportCode(s)
			if code != "" {
				c.allowlist[code] = struct{}{}
			}
		}
	}

	return c
}

// FetchMarkets returns raw market objects across up to MaxPages pages of /markets.
// Markets are deduplicated by id, marketId or slug with the first occurrence winning.
// Pagination stops on a short page or on a page that adds no unseen id.
func (c *Client) FetchMarkets(ctx context.Context) ([]payload.Object, error) {
	key := cache.Key("polymarket.markets", map[string]string{
		"limit": strconv.Itoa(c.pageLimit),
		"pages": strconv.Itoa(c.maxPages),
	})
	if cached, ok := c.cacheGet(key); ok {
		if markets, ok := cached.([]payload.Object); ok {
			return markets, nil
		}
	}

	var (
		all    []payload.Object
		seen   = make(map[string]struct{})
		offset = 0
	)

	for page := 0; page < c.maxPages; page++ {
		params := url.Values{}
		params.Set("limit", strconv.Itoa(c.pageLimit))
		params.Set("closed", "false")
		if offset > 0 {
			params.Set("offset", strconv.Itoa(offset))
		}

		c.logger.Debug("fetching-markets-page",
			zap.Int("page", page+1),
			zap.Int("offset", offset),
			zap.Int("limit", c.pageLimit))

		data, err := c.getter.GetJSON(ctx, "/markets", params)
		if err != nil {
			return nil, fmt.Errorf("fetch markets page %d: %w", page+1, err)
		}

		batch, ok := payload.ListOrWrapped(data, "markets")
		if !ok {
			return nil, types.NewDataShapeError(Venue,
				`unexpected /markets response format; expected list or {"markets": [...]}`)
		}
		if len(batch) == 0 {
			break
		}

		newCount := 0
		for _, raw := range batch {
			m, ok := payload.AsObject(raw)
			if !ok {
				continue
			}
			id := marketID(m)
			if id == "" {
				continue
			}
			if _, dup := seen[id]; dup {
				continue
			}
			seen[id] = struct{}{}
			all = append(all, m)
			newCount++
		}

		MarketsFetchedTotal.Add(float64(newCount))

		if len(batch) < c.pageLimit || newCount == 0 {
			break
		}
		offset += c.pageLimit
	}

	if len(all) == 0 {
		return nil, types.NewNoUsableDataError(Venue,
			"no markets returned from /markets (closed=false)")
	}

	c.logger.Debug("fetched-markets", zap.Int("count", len(all)))
	c.cacheSet(key, all)
	return all, nil
}

// FetchSportsTaxonomy returns a mapping from tag id to normalized sport code.
//
// Two payload shapes are understood: entries naming a single tag
// ({id|tagId|tag, name|key|slug}) and Gamma's {sport, tags: "1,745"} entries.
// A tag id claimed by more than one sport is ambiguous and left out.
func (c *Client) FetchSportsTaxonomy(ctx context.Context) (map[string]string, error) {
	key := sportsTaxonomyKey
	if cached, ok := c.cacheGet(key); ok {
		if taxonomy, ok := cached.(map[string]string); ok {
			return taxonomy, nil
		}
	}

	data, err := c.getter.GetJSON(ctx, "/sports", nil)
	if err != nil {
		return nil, fmt.Errorf("fetch sports taxonomy: %w", err)
	}

	entries, ok := payload.ListOrWrapped(data, "sports")
	if !ok {
		return nil, types.NewDataShapeError(Venue,
			`unexpected /sports response format; expected list or {"sports": [...]}`)
	}

	taxonomy := make(map[string]string)
	ambiguous := make(map[string]struct{})
	add := func(tagID, sport string) {
		if tagID == "" || sport == "" {
			return
		}
		if _, bad := ambiguous[tagID]; bad {
			return
		}
		if existing, ok := taxonomy[tagID]; ok && existing != sport {
			delete(taxonomy, tagID)
			ambiguous[tagID] = struct{}{}
			return
		}
		taxonomy[tagID] = sport
	}

	for _, raw := range entries {
		e, ok := payload.AsObject(raw)
		if !ok {
			continue
		}

		if tags, ok := e["tags"].(string); ok {
			sport := sportCode(e.String("sport", "name", "key", "slug"))
			for _, id := range strings.Split(tags, ",") {
				add(strings.TrimSpace(id), sport)
			}
			continue
		}

		add(e.String("id", "tagId", "tag"), sportCode(e.String("name", "key", "slug")))
	}

	c.logger.Debug("fetched-sports-taxonomy", zap.Int("tags", len(taxonomy)))
	c.cacheSet(key, taxonomy)
	return taxonomy, nil
}

// FetchEvents fetches markets and normalizes them into events of binary markets.
// Filtering can leave zero events; that is an empty result, not an error.
func (c *Client) FetchEvents(ctx context.Context) ([]types.MarketEvent, error) {
	start := time.Now()
	defer func() {
		NormalizeDurationSeconds.Observe(time.Since(start).Seconds())
	}()

	markets, err := c.FetchMarkets(ctx)
	if err != nil {
		return nil, err
	}

	taxonomy, err := c.FetchSportsTaxonomy(ctx)
	if err != nil {
		c.logger.Warn("sports-taxonomy-unavailable", zap.Error(err))
		// an empty taxonomy is cached so runs within the TTL do not retry /sports
		taxonomy = map[string]string{}
		c.cacheSet(sportsTaxonomyKey, taxonomy)
	}

	n := &normalizer{
		taxonomy:   newTaxonomy(taxonomy),
		allowlist:  c.allowlist,
		feeCushion: c.feeCushion,
		now:        c.now(),
	}
	events := n.normalize(markets)

	for reason, count := range n.stats.skipped {
		MarketsSkippedTotal.WithLabelValues(reason).Add(float64(count))
	}
	MarketsKeptTotal.Add(float64(n.stats.kept))

	c.logger.Info("normalized-markets",
		zap.Int("examined", n.stats.examined),
		zap.Int("kept", n.stats.kept),
		zap.Int("events", len(events)),
		zap.Any("skipped", n.stats.skipped))

	return events, nil
}

var sportsTaxonomyKey = cache.Key("polymarket.sports", nil)

func (c *Client) cacheGet(key string) (interface{}, bool) {
	if c.cache == nil {
		return nil, false
	}
	return c.cache.Get(key)
}

func (c *Client) cacheSet(key string, value interface{}) {
	if c.cache == nil {
		return
	}
	c.cache.Set(key, value)
}

func marketID(m payload.Object) string {
	return m.String("id", "marketId", "slug")
}

func sportCode(name string) string {
	return canonical.SportCode(canonical.Normalize(name))
}
