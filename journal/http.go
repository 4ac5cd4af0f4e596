package journal

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"holdem-autopilot/card"
)

type HTTPHandler struct {
	journal Service
}

type errorResponse struct {
	Error string `json:"error"`
}

// handView adds the decoded capture to each row.
type handView struct {
	Record
	Hole  string `json:"hole,omitempty"`
	Board string `json:"board,omitempty"`
	Stack int64  `json:"stack"`
	Pot   int64  `json:"pot"`
}

func NewHTTPHandler(svc Service) *HTTPHandler {
	return &HTTPHandler{journal: svc}
}

func (h *HTTPHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/api/journal/recent", h.handleRecent)
	mux.HandleFunc("/api/journal/hands/", h.handleHand)
}

func (h *HTTPHandler) handleRecent(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	q := r.URL.Query()
	limit := parseLimit(q.Get("limit"))
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()
	items, err := h.journal.ListRecent(ctx, strings.TrimSpace(q.Get("table")), limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "query recent decisions failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"items": items,
	})
}

func (h *HTTPHandler) handleHand(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	handID := strings.TrimSpace(strings.TrimPrefix(r.URL.Path, "/api/journal/hands/"))
	if handID == "" || strings.Contains(handID, "/") {
		writeError(w, http.StatusNotFound, "not found")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()
	records, err := h.journal.GetHand(ctx, handID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			writeError(w, http.StatusNotFound, "hand not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "query hand failed")
		return
	}
	views := make([]handView, 0, len(records))
	for _, rec := range records {
		v := handView{Record: rec}
		if s, err := rec.Snapshot(); err == nil {
			v.Hole = knownCards(s.Hole[:])
			v.Board = knownCards(s.Board[:])
			v.Stack = s.Stack
			v.Pot = s.TotalPot
		}
		views = append(views, v)
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"hand_id":   handID,
		"decisions": views,
	})
}

func knownCards(cards []card.Card) string {
	parts := make([]string, 0, len(cards))
	for _, c := range cards {
		if c.Known() {
			parts = append(parts, c.String())
		}
	}
	return strings.Join(parts, " ")
}

func parseLimit(raw string) int {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return defaultRecentLimit
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return defaultRecentLimit
	}
	return clampLimit(n)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
