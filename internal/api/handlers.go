package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"

	"github.com/vovakirdan/netpong/internal/storage"
)

const (
	defaultLimit = 20
	maxLimit     = 100
)

type handler struct {
	store ResultStore
	relay Relay
	log   *log.Logger
}

type healthResponse struct {
	Status        string `json:"status"`
	Waiting       int    `json:"waiting"`
	ActiveMatches int    `json:"active_matches"`
}

type matchResponse struct {
	MatchID    string    `json:"match_id"`
	Mode       string    `json:"mode"`
	Players    [2]string `json:"players"`
	Score      [2]int    `json:"score"`
	Winner     string    `json:"winner,omitempty"`
	EndReason  string    `json:"end_reason"`
	DurationMs int64     `json:"duration_ms"`
	EndedAt    time.Time `json:"ended_at"`
}

type statsResponse struct {
	Total    int            `json:"total"`
	ByReason map[string]int `json:"by_reason"`
	ByMode   map[string]int `json:"by_mode"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func toMatchResponses(results []storage.OnlineMatchResult) []matchResponse {
	out := make([]matchResponse, len(results))
	for i, r := range results {
		out[i] = matchResponse{
			MatchID:    r.MatchID,
			Mode:       string(r.Mode),
			Players:    [2]string{r.Player1Name, r.Player2Name},
			Score:      [2]int{r.Score1, r.Score2},
			Winner:     r.WinnerName,
			EndReason:  r.EndReason,
			DurationMs: r.Duration.Milliseconds(),
			EndedAt:    r.CreatedAt.UTC(),
		}
	}
	return out
}

func (h *handler) health(w http.ResponseWriter, _ *http.Request) {
	resp := healthResponse{Status: "ok"}
	if h.relay != nil {
		resp.Waiting = h.relay.QueueLen()
		resp.ActiveMatches = h.relay.MatchCount()
	}
	h.writeJSON(w, http.StatusOK, resp)
}

func (h *handler) matches(w http.ResponseWriter, r *http.Request) {
	limit, ok := h.limit(w, r)
	if !ok || !h.requireStore(w) {
		return
	}
	results, err := h.store.RecentOnlineMatches(limit)
	if err != nil {
		h.internalError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, toMatchResponses(results))
}

func (h *handler) playerMatches(w http.ResponseWriter, r *http.Request) {
	limit, ok := h.limit(w, r)
	if !ok || !h.requireStore(w) {
		return
	}
	results, err := h.store.PlayerMatchHistory(chi.URLParam(r, "name"), limit)
	if err != nil {
		h.internalError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, toMatchResponses(results))
}

func (h *handler) stats(w http.ResponseWriter, _ *http.Request) {
	if !h.requireStore(w) {
		return
	}
	stats, err := h.store.GetMatchStats()
	if err != nil {
		h.internalError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, statsResponse{
		Total:    stats.Total,
		ByReason: stats.ByReason,
		ByMode:   stats.ByMode,
	})
}

// limit parses ?limit=N, writing a 400 when it is not a positive integer.
func (h *handler) limit(w http.ResponseWriter, r *http.Request) (int, bool) {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return defaultLimit, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		h.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "limit must be a positive integer"})
		return 0, false
	}
	return min(n, maxLimit), true
}

func (h *handler) requireStore(w http.ResponseWriter) bool {
	if h.store == nil {
		h.writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: "results store unavailable"})
		return false
	}
	return true
}

func (h *handler) internalError(w http.ResponseWriter, err error) {
	h.log.Error("api request failed", "err", err)
	h.writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal error"})
}

func (h *handler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.log.Debug("failed to write response", "err", err)
	}
}
