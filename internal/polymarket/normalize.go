package polymarket

import (
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/mselser95/polymarket-edge/pkg/canonical"
	"github.com/mselser95/polymarket-edge/pkg/oddsmath"
	"github.com/mselser95/polymarket-edge/pkg/payload"
	"github.com/mselser95/polymarket-edge/pkg/types"
)

// Skip reasons reported in logs and metrics.
const (
	skipNoEvent    = "no_event"
	skipSport      = "sport_not_allowed"
	skipNotLive    = "not_live"
	skipNoPrice    = "no_price"
	skipDegenerate = "degenerate_price"
)

// Field precedence. Order matters.
var (
	outcomeNameKeys  = []string{"name", "label", "outcome"}
	outcomePriceKeys = []string{"price", "lastPrice", "yesPrice", "probability"}
	marketPriceKeys  = []string{"lastTradePrice", "bestBid", "bestAsk"}
	endDateKeys      = []string{"endDate", "endDateIso", "endTime"}
	marketTagKeys    = []string{"tags", "eventTags", "sportsTags"}
	tagIDKeys        = []string{"id", "tagId", "tag"}
	tagLabelKeys     = []string{"slug", "label"}
)

// epochMillisThreshold separates epoch seconds from epoch milliseconds.
const epochMillisThreshold = 1e12

type normalizeStats struct {
	examined int
	kept     int
	skipped  map[string]int
}

type normalizer struct {
	taxonomy   *taxonomy
	allowlist  map[string]struct{}
	feeCushion float64
	now        time.Time
	stats      normalizeStats
}

// normalize groups live binary markets under their embedded event, in first-seen order.
func (n *normalizer) normalize(markets []payload.Object) []types.MarketEvent {
	n.stats = normalizeStats{skipped: make(map[string]int)}

	var (
		order  []string
		groups = make(map[string]*types.MarketEvent)
	)

	for _, m := range markets {
		n.stats.examined++

		sport := n.taxonomy.resolve(m)
		if n.allowlist != nil {
			if _, ok := n.allowlist[sport]; !ok {
				n.stats.skipped[skipSport]++
				continue
			}
		}

		eventID, title, ticker, ok := eventInfo(m)
		if !ok {
			n.stats.skipped[skipNoEvent]++
			continue
		}

		if !isLive(m, n.now) {
			n.stats.skipped[skipNotLive]++
			continue
		}

		yes, ok := yesProbability(m)
		if !ok {
			n.stats.skipped[skipNoPrice]++
			continue
		}
		yes = oddsmath.ClampUnit(yes)
		if yes == 0 || yes == 1 {
			n.stats.skipped[skipDegenerate]++
			continue
		}

		market := types.BinaryMarket{
			MarketID: marketID(m),
			EventID:  eventID,
			Question: m.String("question", "title", "name"),
			// Each leg is discounted on its own; the pair need not sum to 1.
			Outcomes: []types.Outcome{
				{Name: "Yes", Price: oddsmath.ApplyFeeToProbability(yes, n.feeCushion)},
				{Name: "No", Price: oddsmath.ApplyFeeToProbability(1-yes, n.feeCushion)},
			},
		}

		ev, exists := groups[eventID]
		if !exists {
			ev = &types.MarketEvent{
				EventID: eventID,
				Title:   title,
				Ticker:  ticker,
			}
			groups[eventID] = ev
			order = append(order, eventID)
		}
		if ev.Sport == "" {
			ev.Sport = sport
		}
		ev.Markets = append(ev.Markets, market)
		n.stats.kept++
	}

	events := make([]types.MarketEvent, 0, len(order))
	for _, id := range order {
		events = append(events, *groups[id])
	}
	return events
}

// eventInfo reads the grouping key from the first embedded event.
// Title precedence: event title, event name, market eventName, market title, market question.
func eventInfo(m payload.Object) (id, title, ticker string, ok bool) {
	events, ok := m.List("events")
	if !ok || len(events) == 0 {
		return "", "", "", false
	}

	ev, _ := payload.AsObject(events[0])
	id = ev.String("id", "slug", "eventId")
	if id == "" {
		return "", "", "", false
	}

	title = ev.String("title", "name")
	if title == "" {
		title = m.String("eventName", "title", "question")
	}

	return id, title, ev.String("ticker"), true
}

// isLive drops archived and closed markets and those whose end date is strictly in the past.
// A missing or unparseable end date counts as live.
func isLive(m payload.Object, now time.Time) bool {
	if m.Bool("archived") || m.Bool("closed") {
		return false
	}

	raw, ok := m.Raw(endDateKeys...)
	if !ok {
		return true
	}

	end, ok := parseEndDate(raw)
	if !ok {
		return true
	}
	return !end.Before(now)
}

func parseEndDate(v any) (time.Time, bool) {
	if s, isString := v.(string); isString {
		s = strings.TrimSpace(s)
		if s == "" {
			return time.Time{}, false
		}
		if _, err := strconv.ParseFloat(s, 64); err != nil {
			return parseISO(s)
		}
	}

	f, ok := payload.ToFloat(v)
	if !ok {
		return time.Time{}, false
	}
	if math.Abs(f) >= epochMillisThreshold {
		return time.UnixMilli(int64(f)).UTC(), true
	}
	sec, frac := math.Modf(f)
	return time.Unix(int64(sec), int64(frac*1e9)).UTC(), true
}

var isoLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

func parseISO(s string) (time.Time, bool) {
	for _, layout := range isoLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// yesProbability extracts the raw Yes price. A two-outcome array wins; otherwise the
// market-level fields lastTradePrice, bestBid and bestAsk are tried in order.
func yesProbability(m payload.Object) (float64, bool) {
	if p, ok := yesFromOutcomeRecords(m["outcomes"]); ok {
		return p, true
	}
	if p, ok := yesFromStringifiedOutcomes(m); ok {
		return p, true
	}
	return m.Float(marketPriceKeys...)
}

// yesFromOutcomeRecords handles [{name, price}, {name, price}]. The outcome named "yes"
// is used when present, else the first outcome with a usable price.
func yesFromOutcomeRecords(raw any) (float64, bool) {
	list, ok := payload.AsList(raw)
	if !ok || len(list) != 2 {
		return 0, false
	}

	names := make([]string, 2)
	prices := make([]*float64, 2)
	for i, item := range list {
		o, ok := payload.AsObject(item)
		if !ok {
			return 0, false
		}
		names[i] = strings.ToLower(o.String(outcomeNameKeys...))
		if p, ok := o.Float(outcomePriceKeys...); ok {
			prices[i] = &p
		}
	}

	return pickYes(names, prices)
}

// yesFromStringifiedOutcomes handles Gamma's outcomes and outcomePrices fields, which
// arrive as JSON-encoded arrays inside strings.
func yesFromStringifiedOutcomes(m payload.Object) (float64, bool) {
	names, ok := decodeEmbeddedList(m["outcomes"])
	if !ok || len(names) != 2 {
		return 0, false
	}
	rawPrices, ok := decodeEmbeddedList(m["outcomePrices"])
	if !ok || len(rawPrices) != 2 {
		return 0, false
	}

	lowered := make([]string, 2)
	prices := make([]*float64, 2)
	for i := range names {
		s, isString := names[i].(string)
		if !isString {
			return 0, false
		}
		lowered[i] = strings.ToLower(strings.TrimSpace(s))
		if p, ok := payload.ToFloat(rawPrices[i]); ok {
			prices[i] = &p
		}
	}

	return pickYes(lowered, prices)
}

func pickYes(names []string, prices []*float64) (float64, bool) {
	for i, name := range names {
		if name == "yes" {
			if prices[i] == nil {
				return 0, false
			}
			return *prices[i], true
		}
	}
	for _, p := range prices {
		if p != nil {
			return *p, true
		}
	}
	return 0, false
}

func decodeEmbeddedList(raw any) ([]any, bool) {
	switch v := raw.(type) {
	case []any:
		return v, true
	case string:
		decoded, err := payload.Decode([]byte(v))
		if err != nil {
			return nil, false
		}
		return payload.AsList(decoded)
	default:
		return nil, false
	}
}

// taxonomy resolves market tags to sport codes.
type taxonomy struct {
	byID  map[string]string
	codes map[string]struct{}
}

func newTaxonomy(byID map[string]string) *taxonomy {
	t := &taxonomy{
		byID:  byID,
		codes: make(map[string]struct{}, len(byID)),
	}
	for _, code := range byID {
		t.codes[code] = struct{}{}
	}
	return t
}

// resolve checks the market's own tags, then the embedded event's tags.
// Returns "" when nothing matches.
func (t *taxonomy) resolve(m payload.Object) string {
	if len(t.byID) == 0 {
		return ""
	}

	for _, key := range marketTagKeys {
		if sport := t.resolveTags(m[key]); sport != "" {
			return sport
		}
	}

	if events, ok := m.List("events"); ok && len(events) > 0 {
		if ev, ok := payload.AsObject(events[0]); ok {
			return t.resolveTags(ev["tags"])
		}
	}
	return ""
}

func (t *taxonomy) resolveTags(raw any) string {
	tags, ok := payload.AsList(raw)
	if !ok {
		return ""
	}

	for _, tag := range tags {
		var id, label string
		if o, isObject := payload.AsObject(tag); isObject {
			id = o.String(tagIDKeys...)
			label = o.String(tagLabelKeys...)
		} else {
			id = payload.Object{"tag": tag}.String("tag")
			label = id
		}

		if sport, ok := t.byID[id]; ok {
			return sport
		}
		if code := canonical.SportCode(canonical.Normalize(label)); code != "" {
			if _, ok := t.codes[code]; ok {
				return code
			}
		}
	}
	return ""
}
