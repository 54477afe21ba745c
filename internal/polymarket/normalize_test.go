package polymarket

import (
	"testing"
	"time"

	"github.com/mselser95/polymarket-edge/pkg/payload"
)

func mustObject(t *testing.T, body string) payload.Object {
	t.Helper()

	v, err := payload.Decode([]byte(body))
	if err != nil {
		t.Fatalf("decode %s: %v", body, err)
	}
	o, ok := payload.AsObject(v)
	if !ok {
		t.Fatalf("not an object: %s", body)
	}
	return o
}

func TestYesProbability(t *testing.T) {
	tests := []struct {
		name   string
		market string
		want   float64
		wantOK bool
	}{
		{
			name:   "yes by name",
			market: `{"outcomes": [{"name": "No", "price": 0.3}, {"name": "YES", "price": 0.7}]}`,
			want:   0.7, wantOK: true,
		},
		{
			name:   "first priced outcome when no yes",
			market: `{"outcomes": [{"label": "Lakers"}, {"label": "Celtics", "lastPrice": "0.45"}]}`,
			want:   0.45, wantOK: true,
		},
		{
			name:   "price precedence",
			market: `{"outcomes": [{"outcome": "Yes", "probability": 0.9, "yesPrice": 0.8}, {"outcome": "No"}]}`,
			want:   0.8, wantOK: true,
		},
		{
			name:   "yes without price yields nothing from outcomes",
			market: `{"outcomes": [{"name": "Yes"}, {"name": "No", "price": 0.4}]}`,
			wantOK: false,
		},
		{
			name:   "three outcomes fall back to market fields",
			market: `{"outcomes": [{"name": "A", "price": 0.2}, {"name": "B", "price": 0.3}, {"name": "C", "price": 0.5}], "bestAsk": 0.33}`,
			want:   0.33, wantOK: true,
		},
		{
			name:   "market field precedence",
			market: `{"bestAsk": 0.6, "bestBid": 0.5, "lastTradePrice": 0.55}`,
			want:   0.55, wantOK: true,
		},
		{
			name:   "stringified gamma outcomes",
			market: `{"outcomes": "[\"Yes\", \"No\"]", "outcomePrices": "[\"0.62\", \"0.38\"]"}`,
			want:   0.62, wantOK: true,
		},
		{
			name:   "stringified outcomes without yes",
			market: `{"outcomes": "[\"Over\", \"Under\"]", "outcomePrices": "[\"0.51\", \"0.49\"]"}`,
			want:   0.51, wantOK: true,
		},
		{
			name:   "no price anywhere",
			market: `{"question": "?"}`,
			wantOK: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := yesProbability(mustObject(t, tt.market))
			if ok != tt.wantOK {
				t.Fatalf("expected ok=%v, got %v (value %v)", tt.wantOK, ok, got)
			}
			if ok && got != tt.want {
				t.Errorf("expected %v, got %v", tt.want, got)
			}
		})
	}
}

func TestIsLive(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name   string
		market string
		want   bool
	}{
		{name: "no end date", market: `{}`, want: true},
		{name: "archived", market: `{"archived": true}`, want: false},
		{name: "closed", market: `{"closed": true}`, want: false},
		{name: "closed false", market: `{"closed": false}`, want: true},
		{name: "closed string zero", market: `{"closed": "0"}`, want: true},
		{name: "closed string no", market: `{"closed": "no"}`, want: true},
		{name: "closed string one", market: `{"closed": "1"}`, want: false},
		{name: "future iso", market: `{"endDate": "2025-06-02T00:00:00Z"}`, want: true},
		{name: "past iso", market: `{"endDate": "2025-05-31T23:59:59Z"}`, want: false},
		{name: "exactly now is live", market: `{"endDate": "2025-06-01T12:00:00Z"}`, want: true},
		{name: "date only", market: `{"endDateIso": "2025-05-01"}`, want: false},
		{name: "epoch seconds past", market: `{"endDate": 1700000000}`, want: false},
		{name: "epoch seconds future", market: `{"endTime": 1800000000}`, want: true},
		{name: "epoch millis future", market: `{"endDate": 1800000000000}`, want: true},
		{name: "epoch millis past", market: `{"endDate": 1700000000000}`, want: false},
		{name: "numeric string", market: `{"endDate": "1700000000"}`, want: false},
		{name: "unparseable", market: `{"endDate": "soon"}`, want: true},
		{name: "end date precedence", market: `{"endDate": "2025-07-01T00:00:00Z", "endTime": 1700000000}`, want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isLive(mustObject(t, tt.market), now); got != tt.want {
				t.Errorf("expected %v, got %v", tt.want, got)
			}
		})
	}
}

func TestEventInfo(t *testing.T) {
	tests := []struct {
		name      string
		market    string
		wantID    string
		wantTitle string
		wantOK    bool
	}{
		{name: "event id and title", market: `{"events": [{"id": 12, "title": "A vs B"}]}`, wantID: "12", wantTitle: "A vs B", wantOK: true},
		{name: "slug and name", market: `{"events": [{"slug": "a-b", "name": "A v B"}]}`, wantID: "a-b", wantTitle: "A v B", wantOK: true},
		{name: "title from question", market: `{"question": "Will A win?", "events": [{"eventId": "x"}]}`, wantID: "x", wantTitle: "Will A win?", wantOK: true},
		{name: "no events", market: `{"question": "?"}`, wantOK: false},
		{name: "events not a list", market: `{"events": {"id": "1"}}`, wantOK: false},
		{name: "event without id", market: `{"events": [{"title": "A vs B"}]}`, wantOK: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id, title, _, ok := eventInfo(mustObject(t, tt.market))
			if ok != tt.wantOK {
				t.Fatalf("expected ok=%v, got %v", tt.wantOK, ok)
			}
			if id != tt.wantID || title != tt.wantTitle {
				t.Errorf("expected (%q, %q), got (%q, %q)", tt.wantID, tt.wantTitle, id, title)
			}
		})
	}
}

func TestNormalize_FeeLegsIndependent(t *testing.T) {
	n := &normalizer{
		taxonomy:   newTaxonomy(nil),
		feeCushion: 0.1,
		now:        time.Now(),
	}

	events := n.normalize([]payload.Object{
		mustObject(t, `{"id": "m1", "events": [{"id": "e1", "title": "T"}], "lastTradePrice": 0.7}`),
	})
	if len(events) != 1 || len(events[0].Markets) != 1 {
		t.Fatalf("expected one market, got %+v", events)
	}

	outcomes := events[0].Markets[0].Outcomes
	yes, no := outcomes[0].Price, outcomes[1].Price
	if diff := yes - 0.63; diff > 1e-9 || diff < -1e-9 {
		t.Errorf("expected yes 0.63, got %v", yes)
	}
	if diff := no - 0.27; diff > 1e-9 || diff < -1e-9 {
		t.Errorf("expected no 0.27, got %v", no)
	}
	if sum := yes + no; sum > 0.9+1e-9 || sum < 0.9-1e-9 {
		t.Errorf("expected legs to sum to 0.9, got %v", sum)
	}
}
