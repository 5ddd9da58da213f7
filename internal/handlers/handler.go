package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

type Handler struct {
	dbpool *pgxpool.Pool
	logger *slog.Logger
}

func New(db *pgxpool.Pool, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{dbpool: db, logger: logger}
}

type transitionDTO struct {
	Host       string `json:"host"`
	At         string `json:"at"`
	Up         bool   `json:"up"`
	StatusCode *int   `json:"status_code,omitempty"`
	Reason     string `json:"reason,omitempty"`
}

// GetTransitions returns the most recent stability transitions for a host.
func (h *Handler) GetTransitions(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	if h.dbpool == nil {
		http.Error(w, "history not configured", http.StatusServiceUnavailable)
		return
	}

	host := strings.TrimSpace(r.URL.Query().Get("host"))
	if host == "" {
		http.Error(w, "missing host", http.StatusBadRequest)
		return
	}

	limit := 50
	if raw := strings.TrimSpace(r.URL.Query().Get("limit")); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 || n > 500 {
			http.Error(w, "invalid limit", http.StatusBadRequest)
			return
		}
		limit = n
	}

	rows, err := h.dbpool.Query(r.Context(), `
		SELECT at, is_up, status_code, COALESCE(reason, '')
		  FROM reach_transitions
		 WHERE host = $1
		 ORDER BY at DESC
		 LIMIT $2`,
		host, limit,
	)
	if err != nil {
		h.logger.Error("transitions query failed", "host", host, "error", err)
		http.Error(w, "transitions query failed", http.StatusInternalServerError)
		return
	}
	defer rows.Close()

	out := make([]transitionDTO, 0, limit)
	for rows.Next() {
		var (
			at   time.Time
			up   bool
			code *int
			why  string
		)
		if err := rows.Scan(&at, &up, &code, &why); err != nil {
			h.logger.Error("transitions scan failed", "host", host, "error", err)
			http.Error(w, "transitions query failed", http.StatusInternalServerError)
			return
		}
		out = append(out, transitionDTO{
			Host:       host,
			At:         at.UTC().Format(time.RFC3339),
			Up:         up,
			StatusCode: code,
			Reason:     why,
		})
	}

	if err := json.NewEncoder(w).Encode(out); err != nil {
		http.Error(w, "failed to encode transitions", http.StatusInternalServerError)
	}
}

// GetUptime returns the fraction of a sliding window (default 24h) a host
// spent in the debounced up state. Time before the first recorded
// transition counts as not-up, which undercounts hosts that were already
// up when recording began.
func (h *Handler) GetUptime(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	if h.dbpool == nil {
		http.Error(w, "history not configured", http.StatusServiceUnavailable)
		return
	}

	host := strings.TrimSpace(r.URL.Query().Get("host"))
	if host == "" {
		http.Error(w, "missing host", http.StatusBadRequest)
		return
	}

	window := 24 * time.Hour
	if raw := strings.TrimSpace(r.URL.Query().Get("window")); raw != "" {
		d, err := time.ParseDuration(raw)
		if err != nil || d <= 0 {
			http.Error(w, "invalid window duration", http.StatusBadRequest)
			return
		}
		window = d
	}

	now := time.Now().UTC()
	from := now.Add(-window)

	// State at the window's left edge comes from the last transition
	// before it, if any.
	var (
		startUp bool
		startAt = from
	)
	err := h.dbpool.QueryRow(r.Context(), `
		SELECT is_up
		  FROM reach_transitions
		 WHERE host = $1 AND at < $2
		 ORDER BY at DESC
		 LIMIT 1`,
		host, from,
	).Scan(&startUp)
	if err != nil {
		startUp = false // no prior transition: treat as not-up
	}

	rows, err := h.dbpool.Query(r.Context(), `
		SELECT at, is_up
		  FROM reach_transitions
		 WHERE host = $1 AND at >= $2
		 ORDER BY at ASC`,
		host, from,
	)
	if err != nil {
		h.logger.Error("uptime query failed", "host", host, "error", err)
		http.Error(w, "uptime query failed", http.StatusInternalServerError)
		return
	}
	defer rows.Close()

	var (
		upDur       time.Duration
		transitions int
		curUp       = startUp
		curAt       = startAt
	)
	for rows.Next() {
		var (
			at time.Time
			up bool
		)
		if err := rows.Scan(&at, &up); err != nil {
			h.logger.Error("uptime scan failed", "host", host, "error", err)
			http.Error(w, "uptime query failed", http.StatusInternalServerError)
			return
		}
		transitions++
		if curUp {
			upDur += at.Sub(curAt)
		}
		curUp = up
		curAt = at
	}
	if curUp {
		upDur += now.Sub(curAt)
	}

	pct := (float64(upDur) / float64(window)) * 100

	resp := map[string]any{
		"host":         host,
		"window":       window.String(),
		"from":         from.Format(time.RFC3339),
		"transitions":  transitions,
		"uptime_pct":   pct,
		"generated_at": now.Format(time.RFC3339),
	}

	if err := json.NewEncoder(w).Encode(resp); err != nil {
		http.Error(w, "failed to encode uptime", http.StatusInternalServerError)
	}
}
