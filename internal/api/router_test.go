package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/finbright/daytrade/backend/internal/api/handlers"
	"github.com/finbright/daytrade/backend/internal/contracts"
	"github.com/finbright/daytrade/backend/internal/universe"
	"github.com/finbright/daytrade/backend/pkg/config"
	"github.com/finbright/daytrade/backend/pkg/database"
	"github.com/finbright/daytrade/backend/pkg/logger"
)

type stubSignals struct{}

func (stubSignals) Insert(ctx context.Context, signal *contracts.Signal) error { return nil }

func (stubSignals) ListRecent(ctx context.Context, mode contracts.Mode, since time.Time, limit int) ([]contracts.Signal, error) {
	return nil, nil
}

func (stubSignals) ListUnevaluated(ctx context.Context, horizon contracts.Horizon, now time.Time) ([]contracts.Signal, error) {
	return nil, nil
}

func (stubSignals) ListWithPerformance(ctx context.Context, horizon contracts.Horizon, start, end time.Time) ([]contracts.SignalWithPerformance, error) {
	return nil, nil
}

type stubUniverse struct{}

func (stubUniverse) Latest(mode contracts.Mode, now time.Time) (*universe.Universe, bool) {
	return nil, false
}

type stubDB struct{}

func (stubDB) HealthCheck(ctx context.Context) (*database.HealthStatus, error) {
	return &database.HealthStatus{Healthy: true}, nil
}

func testRouter() http.Handler {
	log := logger.New(&config.Config{Env: "test", LogLevel: "error", LogFormat: "json"})
	picks := handlers.NewPicksHandler(stubSignals{}, stubUniverse{}, log)
	health := handlers.NewHealthHandler(stubDB{}, log)
	return NewRouter(picks, health, log)
}

func TestRouterRoutes(t *testing.T) {
	router := testRouter()

	tests := []struct {
		method string
		path   string
		want   int
	}{
		{http.MethodGet, "/health", http.StatusOK},
		{http.MethodGet, "/api/v1/picks", http.StatusOK},
		{http.MethodGet, "/api/v1/picks?mode=AGGRESSIVE", http.StatusOK},
		{http.MethodPost, "/api/v1/picks", http.StatusMethodNotAllowed},
		{http.MethodGet, "/api/v1/nope", http.StatusNotFound},
	}

	for _, tt := range tests {
		req := httptest.NewRequest(tt.method, tt.path, nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.Equal(t, tt.want, rec.Code, "%s %s", tt.method, tt.path)
	}
}

func TestRouterContentType(t *testing.T) {
	router := testRouter()

	req := httptest.NewRequest(http.MethodGet, "/api/v1/picks", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
}
