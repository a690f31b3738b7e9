package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"SafePlan/internal/config"
	"SafePlan/internal/database"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubAI struct{}

func (stubAI) GenerateWorkoutPlan(context.Context, database.UserProfile) (*database.WorkoutPlanResponse, error) {
	return nil, errors.New("not used")
}

func (stubAI) GenerateExerciseImage(context.Context, string, string) (*string, error) {
	return nil, nil
}

func testServer(t *testing.T, perMin int) *Server {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "index.html"), []byte("<html>NeuroFit</html>"), 0o644))

	store, err := database.NewMemoryStore(10)
	require.NoError(t, err)

	cfg := &config.Config{
		Port:             8080,
		Env:              "development",
		GeminiTimeout:    time.Second,
		ImageConcurrency: 1,
		AllowedOrigins:   []string{"http://localhost:5173"},
		RateLimitPerMin:  perMin,
		StaticDir:        dir,
	}
	return New(cfg, store, stubAI{})
}

func TestHealthHandler(t *testing.T) {
	s := testServer(t, 0)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "up", body["status"])
	assert.Contains(t, body, "runtime")
	assert.Contains(t, body, "memory")

	store, ok := body["store"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "memory", store["backend"])
}

func TestRequestIDHeader(t *testing.T) {
	s := testServer(t, 0)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("X-Request-ID", "abc-123")
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	assert.Equal(t, "abc-123", rec.Header().Get("X-Request-ID"))

	rec = httptest.NewRecorder()
	s.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}

func TestStaticFrontend(t *testing.T) {
	s := testServer(t, 0)

	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "NeuroFit")
}

func TestPlanGenerationIsRateLimited(t *testing.T) {
	s := testServer(t, 1)

	post := func() int {
		req := httptest.NewRequest(http.MethodPost, "/api/plans", strings.NewReader(`{}`))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("X-Real-IP", "10.0.0.7")
		rec := httptest.NewRecorder()
		s.ServeHTTP(rec, req)
		return rec.Code
	}

	assert.Equal(t, http.StatusBadRequest, post())
	assert.Equal(t, http.StatusTooManyRequests, post())

	// Other endpoints are not throttled.
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/plans", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestCORSPreflight(t *testing.T) {
	s := testServer(t, 0)

	req := httptest.NewRequest(http.MethodOptions, "/api/plans", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	req.Header.Set("Access-Control-Request-Method", "POST")
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "http://localhost:5173", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestNewServerAddr(t *testing.T) {
	cfg := &config.Config{Port: 9090, GeminiTimeout: time.Second, ImageConcurrency: 1}
	store, err := database.NewMemoryStore(1)
	require.NoError(t, err)

	srv := NewServer(cfg, store, stubAI{})
	assert.Equal(t, ":9090", srv.Addr)
	assert.NotNil(t, srv.Handler)
}
