package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/finbright/daytrade/backend/internal/contracts"
	"github.com/finbright/daytrade/backend/internal/scoring"
	"github.com/finbright/daytrade/backend/internal/universe"
	"github.com/finbright/daytrade/backend/pkg/logger"
)

const (
	defaultPicksLimit = 10
	maxPicksLimit     = 50
)

// UniverseView exposes the last built universe for read paths.
type UniverseView interface {
	Latest(mode contracts.Mode, now time.Time) (*universe.Universe, bool)
}

// PicksHandler serves the current day's ranked picks. Read-only: it
// never triggers generation or a universe rebuild.
type PicksHandler struct {
	signals  contracts.SignalRepository
	universe UniverseView
	logger   *logger.Logger
	now      func() time.Time
}

// NewPicksHandler creates a new picks handler
func NewPicksHandler(signals contracts.SignalRepository, uv UniverseView, log *logger.Logger) *PicksHandler {
	return &PicksHandler{
		signals:  signals,
		universe: uv,
		logger:   log,
		now:      time.Now,
	}
}

// GetPicks returns today's accepted picks for a mode, best first.
// GET /api/v1/picks?mode=SAFE|AGGRESSIVE&limit=N
func (h *PicksHandler) GetPicks(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	mode := contracts.Mode(r.URL.Query().Get("mode"))
	if mode == "" {
		mode = contracts.ModeSafe
	}
	if !mode.IsValid() {
		respondError(w, http.StatusBadRequest, "Invalid mode (valid: SAFE, AGGRESSIVE)")
		return
	}

	limit := defaultPicksLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			respondError(w, http.StatusBadRequest, "Invalid limit")
			return
		}
		limit = parsed
	}
	if limit > maxPicksLimit {
		limit = maxPicksLimit
	}

	now := h.now()
	since := sessionDayStart(now)

	picks, err := h.signals.ListRecent(ctx, mode, since, limit)
	if err != nil {
		h.logger.WithError(err).Error("Failed to list picks")
		respondError(w, http.StatusInternalServerError, "Failed to list picks")
		return
	}

	universeSize := 0
	if h.universe != nil {
		if u, ok := h.universe.Latest(mode, now); ok {
			universeSize = len(u.Candidates)
		}
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"data": map[string]interface{}{
			"mode":          mode,
			"as_of":         now.Format(time.RFC3339),
			"threshold":     scoring.ThresholdFor(mode),
			"universe_size": universeSize,
			"count":         len(picks),
			"picks":         picks,
		},
	})
}

// sessionDayStart returns midnight of the current exchange-calendar
// day, so picks roll over with the trading day rather than UTC.
func sessionDayStart(now time.Time) time.Time {
	et := now.In(contracts.MarketLocation())
	return time.Date(et.Year(), et.Month(), et.Day(), 0, 0, 0, 0, et.Location())
}
