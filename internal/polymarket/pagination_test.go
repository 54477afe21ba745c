package polymarket

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync/atomic"
	"testing"
	"time"

	json "github.com/goccy/go-json"
	"github.com/mselser95/polymarket-edge/pkg/cache"
	"github.com/mselser95/polymarket-edge/pkg/fetcher"
	"github.com/mselser95/polymarket-edge/pkg/types"
	"go.uber.org/zap"
)

// pageServer serves /markets from pages(offset), counting requests.
func pageServer(t *testing.T, pages func(offset int) any) (*httptest.Server, *atomic.Int32) {
	t.Helper()

	var requests atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/markets" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		requests.Add(1)

		offset := 0
		if raw := r.URL.Query().Get("offset"); raw != "" {
			offset, _ = strconv.Atoi(raw)
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(pages(offset))
	}))
	t.Cleanup(server.Close)
	return server, &requests
}

func marketsRange(from, to int) []map[string]any {
	markets := make([]map[string]any, 0, to-from)
	for i := from; i < to; i++ {
		markets = append(markets, map[string]any{
			"id":       fmt.Sprintf("m%d", i),
			"question": fmt.Sprintf("Question %d", i),
		})
	}
	return markets
}

func newPagingClient(server *httptest.Server, pageLimit, maxPages int, c cache.Cache) *Client {
	return NewClient(&Config{
		Getter: fetcher.New(&fetcher.Config{
			BaseURL:     server.URL,
			Venue:       Venue,
			BackoffBase: time.Millisecond,
			HTTPClient:  server.Client(),
			Logger:      zap.NewNop(),
		}),
		Cache:     c,
		PageLimit: pageLimit,
		MaxPages:  maxPages,
		Logger:    zap.NewNop(),
	})
}

// TestFetchMarkets_StopsOnShortPage tests that pagination ends on the first page smaller than the limit.
func TestFetchMarkets_StopsOnShortPage(t *testing.T) {
	server, requests := pageServer(t, func(offset int) any {
		switch offset {
		case 0:
			return marketsRange(0, 2)
		case 2:
			return marketsRange(2, 4)
		default:
			return marketsRange(4, 5)
		}
	})

	markets, err := newPagingClient(server, 2, 5, nil).FetchMarkets(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(markets) != 5 {
		t.Errorf("expected 5 markets, got %d", len(markets))
	}

	if requests.Load() != 3 {
		t.Errorf("expected 3 requests, got %d", requests.Load())
	}
}

// TestFetchMarkets_StopsWhenOffsetIgnored tests that a page adding no unseen ids ends pagination.
func TestFetchMarkets_StopsWhenOffsetIgnored(t *testing.T) {
	server, requests := pageServer(t, func(int) any {
		return marketsRange(0, 2)
	})

	markets, err := newPagingClient(server, 2, 5, nil).FetchMarkets(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(markets) != 2 {
		t.Errorf("expected 2 markets, got %d", len(markets))
	}

	if requests.Load() != 2 {
		t.Errorf("expected 2 requests, got %d", requests.Load())
	}
}

// TestFetchMarkets_MaxPages tests that pagination never exceeds MaxPages.
func TestFetchMarkets_MaxPages(t *testing.T) {
	server, requests := pageServer(t, func(offset int) any {
		return marketsRange(offset, offset+2)
	})

	markets, err := newPagingClient(server, 2, 3, nil).FetchMarkets(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(markets) != 6 {
		t.Errorf("expected 6 markets, got %d", len(markets))
	}

	if requests.Load() != 3 {
		t.Errorf("expected 3 requests, got %d", requests.Load())
	}
}

// TestFetchMarkets_DedupFirstWins tests that a market repeated on a later page keeps its first payload.
func TestFetchMarkets_DedupFirstWins(t *testing.T) {
	server, _ := pageServer(t, func(offset int) any {
		if offset == 0 {
			return []map[string]any{
				{"id": "a", "question": "first"},
				{"id": "b", "question": "b"},
			}
		}
		return []map[string]any{
			{"id": "a", "question": "second"},
		}
	})

	markets, err := newPagingClient(server, 2, 5, nil).FetchMarkets(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(markets) != 2 {
		t.Fatalf("expected 2 markets, got %d", len(markets))
	}

	if q := markets[0].String("question"); q != "first" {
		t.Errorf("expected first occurrence to win, got %q", q)
	}
}

// TestFetchMarkets_WrappedPayload tests the {"markets": [...]} response shape.
func TestFetchMarkets_WrappedPayload(t *testing.T) {
	server, _ := pageServer(t, func(int) any {
		return map[string]any{"markets": marketsRange(0, 1)}
	})

	markets, err := newPagingClient(server, 2, 5, nil).FetchMarkets(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(markets) != 1 {
		t.Errorf("expected 1 market, got %d", len(markets))
	}
}

// TestFetchMarkets_Errors tests the error kinds returned for empty and malformed payloads.
func TestFetchMarkets_Errors(t *testing.T) {
	tests := []struct {
		name    string
		payload any
		want    error
	}{
		{name: "empty list", payload: []any{}, want: types.ErrNoUsableData},
		{name: "unexpected object", payload: map[string]any{"data": []any{}}, want: types.ErrDataShape},
		{name: "scalar", payload: "nope", want: types.ErrDataShape},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server, _ := pageServer(t, func(int) any { return tt.payload })

			_, err := newPagingClient(server, 2, 5, nil).FetchMarkets(context.Background())
			if err == nil {
				t.Fatal("expected error")
			}

			if !errors.Is(err, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, err)
			}
		})
	}
}

// TestFetchMarkets_FirstPageHasNoOffset tests the query of the first and second pages.
func TestFetchMarkets_FirstPageHasNoOffset(t *testing.T) {
	var queries []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		queries = append(queries, r.URL.RawQuery)
		offset := 0
		if raw := r.URL.Query().Get("offset"); raw != "" {
			offset, _ = strconv.Atoi(raw)
		}
		_ = json.NewEncoder(w).Encode(marketsRange(offset, offset+2-offset/2))
	}))
	defer server.Close()

	_, err := newPagingClient(server, 2, 5, nil).FetchMarkets(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(queries) != 2 {
		t.Fatalf("expected 2 requests, got %d", len(queries))
	}

	if queries[0] != "closed=false&limit=2" {
		t.Errorf("unexpected first query %q", queries[0])
	}

	if queries[1] != "closed=false&limit=2&offset=2" {
		t.Errorf("unexpected second query %q", queries[1])
	}
}

// TestFetchMarkets_Cached tests that a second fetch within the TTL is served from cache.
func TestFetchMarkets_Cached(t *testing.T) {
	server, requests := pageServer(t, func(int) any {
		return marketsRange(0, 1)
	})

	ttlCache, err := cache.NewTTLCache(&cache.TTLConfig{
		TTL:         time.Minute,
		NumCounters: 100,
		MaxCost:     10,
		BufferItems: 64,
		Logger:      zap.NewNop(),
	})
	if err != nil {
		t.Fatalf("failed to create cache: %v", err)
	}
	defer ttlCache.Close()

	client := newPagingClient(server, 2, 5, ttlCache)

	for i := 0; i < 2; i++ {
		if _, err := client.FetchMarkets(context.Background()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	if requests.Load() != 1 {
		t.Errorf("expected 1 request, got %d", requests.Load())
	}
}
