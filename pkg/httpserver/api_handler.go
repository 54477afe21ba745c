package httpserver

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	json "github.com/goccy/go-json"
	"github.com/mselser95/polymarket-edge/internal/refresher"
	"github.com/mselser95/polymarket-edge/pkg/types"
	"go.uber.org/zap"
)

// OpportunityProvider serves the latest computed run. *refresher.Service satisfies it.
type OpportunityProvider interface {
	Snapshot() (refresher.View, bool)
}

// OddsSource fetches sportsbook lines for one sport key. *oddsapi.Client satisfies it.
type OddsSource interface {
	FetchSportOdds(ctx context.Context, sportKey string) ([]types.EventLines, error)
}

// ErrorResponse represents an HTTP error response.
type ErrorResponse struct {
	Error string `json:"error"`
}

// MetaResponse wraps opportunities with freshness information.
type MetaResponse struct {
	AsOf             time.Time           `json:"as_of"`
	StalenessSeconds float64             `json:"staleness_seconds"`
	IsStale          bool                `json:"is_stale"`
	FailedSports     []string            `json:"failed_sports"`
	Items            []types.Opportunity `json:"items"`
}

// DebugTrace is one opportunity with the sportsbook inputs it was joined against.
type DebugTrace struct {
	types.Opportunity
	TraceInfo TraceInfo `json:"trace_info"`
}

// TraceInfo holds the provenance of a DebugTrace.
type TraceInfo struct {
	SportFetchError string            `json:"sport_fetch_error,omitempty"`
	SportsbookEvent *types.EventLines `json:"sportsbook_event,omitempty"`
	Note            string            `json:"note"`
}

// APIHandler handles the opportunities, odds and debug routes.
type APIHandler struct {
	opps   OpportunityProvider
	odds   OddsSource
	logger *zap.Logger
}

// NewAPIHandler creates a new API handler.
func NewAPIHandler(opps OpportunityProvider, odds OddsSource, logger *zap.Logger) *APIHandler {
	return &APIHandler{
		opps:   opps,
		odds:   odds,
		logger: logger,
	}
}

// HandleOpportunities handles GET /api/opportunities.
func (h *APIHandler) HandleOpportunities(w http.ResponseWriter, r *http.Request) {
	view, ok := h.opps.Snapshot()
	if !ok {
		h.writeError(w, refresher.ErrNotReady.Error(), http.StatusServiceUnavailable)
		return
	}

	h.writeJSON(w, http.StatusOK, view.Opportunities)
}

// HandleOpportunitiesMeta handles GET /api/opportunities/meta.
func (h *APIHandler) HandleOpportunitiesMeta(w http.ResponseWriter, r *http.Request) {
	view, ok := h.opps.Snapshot()
	if !ok {
		h.writeError(w, refresher.ErrNotReady.Error(), http.StatusServiceUnavailable)
		return
	}

	failed := make([]string, 0, len(view.Failures))
	for _, f := range view.Failures {
		failed = append(failed, f.Sport)
	}

	h.writeJSON(w, http.StatusOK, MetaResponse{
		AsOf:             view.AsOf,
		StalenessSeconds: view.Age.Seconds(),
		IsStale:          view.Stale,
		FailedSports:     failed,
		Items:            view.Opportunities,
	})
}

// HandleOdds handles GET /api/odds/{sport}.
func (h *APIHandler) HandleOdds(w http.ResponseWriter, r *http.Request) {
	if h.odds == nil {
		h.writeError(w, "odds api is not configured", http.StatusServiceUnavailable)
		return
	}

	sport := chi.URLParam(r, "sport")
	h.logger.Debug("odds-request-received", zap.String("sport", sport))

	lines, err := h.odds.FetchSportOdds(r.Context(), sport)
	if err != nil {
		status := StatusForError(err)
		h.logger.Warn("odds-request-failed",
			zap.String("sport", sport),
			zap.Int("status", status),
			zap.Error(err))
		h.writeError(w, err.Error(), status)
		return
	}
	if lines == nil {
		lines = []types.EventLines{}
	}

	h.writeJSON(w, http.StatusOK, lines)
}

// HandleDebugOpportunity handles GET /api/debug/opportunity/{id}.
func (h *APIHandler) HandleDebugOpportunity(w http.ResponseWriter, r *http.Request) {
	view, ok := h.opps.Snapshot()
	if !ok {
		h.writeError(w, refresher.ErrNotReady.Error(), http.StatusServiceUnavailable)
		return
	}

	found, ok := view.Find(chi.URLParam(r, "id"))
	if !ok {
		h.writeError(w, "Opportunity not found", http.StatusNotFound)
		return
	}

	trace := DebugTrace{Opportunity: *found}
	if f, failed := view.Failure(found.Sport); failed {
		trace.TraceInfo.SportFetchError = f.Message
	}
	for _, ev := range view.Lines[found.Sport] {
		if found.CanonicalEventKey != "" && ev.CanonicalEventKey == found.CanonicalEventKey {
			matched := ev
			trace.TraceInfo.SportsbookEvent = &matched
		}
	}
	switch {
	case trace.TraceInfo.SportsbookEvent != nil:
		trace.TraceInfo.Note = "joined on canonical event key; EV uses the higher fair probability"
	case trace.TraceInfo.SportFetchError != "":
		trace.TraceInfo.Note = "sportsbook fetch failed for this sport; EV defaults to zero"
	default:
		trace.TraceInfo.Note = "no sportsbook event matched the canonical event key"
	}

	h.writeJSON(w, http.StatusOK, trace)
}

// StatusForError maps an upstream failure onto the status returned to API clients.
// Upstream 4xx pass through, other upstream statuses and bad payloads become 502,
// transport failures 503 and empty results 404.
func StatusForError(err error) int {
	var apiErr *types.APIError
	if !errors.As(err, &apiErr) {
		return http.StatusServiceUnavailable
	}

	switch apiErr.Kind {
	case types.KindUpstreamStatus:
		if apiErr.StatusCode >= 400 && apiErr.StatusCode < 500 {
			return apiErr.StatusCode
		}
		return http.StatusBadGateway
	case types.KindDataShape:
		return http.StatusBadGateway
	case types.KindNoUsableData:
		return http.StatusNotFound
	default:
		return http.StatusServiceUnavailable
	}
}

func (h *APIHandler) writeJSON(w http.ResponseWriter, statusCode int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	err := json.NewEncoder(w).Encode(body)
	if err != nil {
		h.logger.Error("failed-to-encode-response", zap.Error(err))
	}
}

// writeError writes a JSON error response.
func (h *APIHandler) writeError(w http.ResponseWriter, message string, statusCode int) {
	h.writeJSON(w, statusCode, ErrorResponse{Error: message})
}
