package testutil

import (
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"

	json "github.com/goccy/go-json"
)

// MockGammaAPI is a mock HTTP server that simulates the Polymarket Gamma API.
type MockGammaAPI struct {
	*httptest.Server
	Markets  []map[string]any
	Sports   []map[string]any // served on /sports; nil answers 404
	Requests atomic.Int32
	mu       sync.RWMutex
}

// NewMockGammaAPI creates a new mock Gamma API server.
func NewMockGammaAPI(markets []map[string]any) *MockGammaAPI {
	mock := &MockGammaAPI{
		Markets: markets,
	}

	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mock.Requests.Add(1)
		mock.mu.RLock()
		defer mock.mu.RUnlock()

		switch r.URL.Path {
		case "/markets":
			// Gamma API returns a direct array, not wrapped in an object
			writeJSON(w, page(mock.Markets, r))
		case "/sports":
			if mock.Sports == nil {
				w.WriteHeader(http.StatusNotFound)
				return
			}
			writeJSON(w, mock.Sports)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	})

	mock.Server = httptest.NewServer(handler)
	return mock
}

// SetMarkets replaces the served markets.
func (m *MockGammaAPI) SetMarkets(markets []map[string]any) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Markets = markets
}

// MockOddsAPI is a mock HTTP server that simulates The Odds API.
type MockOddsAPI struct {
	*httptest.Server
	APIKey   string
	Events   map[string][]map[string]any // by sport key
	Status   map[string]int              // forced status by sport key
	Requests atomic.Int32
	mu       sync.RWMutex
}

// NewMockOddsAPI creates a new mock Odds API server that requires apiKey.
func NewMockOddsAPI(apiKey string, events map[string][]map[string]any) *MockOddsAPI {
	mock := &MockOddsAPI{
		APIKey: apiKey,
		Events: events,
		Status: make(map[string]int),
	}

	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mock.Requests.Add(1)
		mock.mu.RLock()
		defer mock.mu.RUnlock()

		sport, ok := sportFromPath(r.URL.Path)
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		if r.URL.Query().Get("apiKey") != mock.APIKey {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"message":"invalid api key"}`))
			return
		}
		if status, forced := mock.Status[sport]; forced {
			w.WriteHeader(status)
			return
		}
		events, found := mock.Events[sport]
		if !found {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		writeJSON(w, events)
	})

	mock.Server = httptest.NewServer(handler)
	return mock
}

// FailSport makes every request for sport answer status.
func (m *MockOddsAPI) FailSport(sport string, status int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Status[sport] = status
}

// sportFromPath extracts the key from /sports/{key}/odds.
func sportFromPath(path string) (string, bool) {
	parts := strings.Split(strings.Trim(path, "/"), "/")
	if len(parts) != 3 || parts[0] != "sports" || parts[2] != "odds" {
		return "", false
	}
	return parts[1], true
}

func page(markets []map[string]any, r *http.Request) []map[string]any {
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
	limit, err := strconv.Atoi(r.URL.Query().Get("limit"))
	if err != nil || limit <= 0 {
		limit = len(markets)
	}
	if offset >= len(markets) {
		return []map[string]any{}
	}
	end := offset + limit
	if end > len(markets) {
		end = len(markets)
	}
	return markets[offset:end]
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
