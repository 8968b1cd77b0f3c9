package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"portfolio/internal/engine"
	"portfolio/internal/logger"
	"portfolio/internal/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubCounter struct {
	value      uint64
	increments int
}

func (c *stubCounter) Get(context.Context) uint64 { return c.value }

func (c *stubCounter) Increment(context.Context) uint64 {
	c.increments++
	c.value++
	return c.value
}

func do(t *testing.T, h http.Handler, method, target string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(method, target, nil))
	return rec
}

func decodeCount(t *testing.T, rec *httptest.ResponseRecorder) VisitorCount {
	t.Helper()
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	var body VisitorCount
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	return body
}

func TestHealth(t *testing.T) {
	h := NewServer(&stubCounter{}, logger.Nop())

	rec := do(t, h, http.MethodGet, "/health")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestGetVisitorCount(t *testing.T) {
	counter := &stubCounter{value: 7}
	h := NewServer(counter, logger.Nop())

	rec := do(t, h, http.MethodGet, "/api/visitor-count")
	assert.JSONEq(t, `{"count":7}`, strings.TrimSpace(rec.Body.String()))
	assert.Equal(t, uint64(7), decodeCount(t, rec).Count)
	assert.Zero(t, counter.increments)
}

func TestGetVisitorCountCompact(t *testing.T) {
	h := NewServer(&stubCounter{value: 1720}, logger.Nop())

	body := decodeCount(t, do(t, h, http.MethodGet, "/api/visitor-count?format=compact"))
	require.NotNil(t, body.Display)
	assert.Equal(t, "1.5K+", *body.Display)
	assert.Equal(t, uint64(1720), body.Count)

	body = decodeCount(t, do(t, h, http.MethodGet, "/api/visitor-count?format=raw"))
	assert.Nil(t, body.Display)
}

func TestGetVisitorCountInvalidFormat(t *testing.T) {
	h := NewServer(&stubCounter{}, logger.Nop())

	rec := do(t, h, http.MethodGet, "/api/visitor-count?format=roman")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	var body Error
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Contains(t, body.Message, "format")
}

func TestIncrementVisitorCount(t *testing.T) {
	counter := &stubCounter{value: 41}
	h := NewServer(counter, logger.Nop())

	body := decodeCount(t, do(t, h, http.MethodPost, "/api/visitor-count"))
	assert.Equal(t, uint64(42), body.Count)
	assert.Equal(t, 1, counter.increments)
}

func TestMethodNotAllowed(t *testing.T) {
	h := NewServer(&stubCounter{}, logger.Nop())

	rec := do(t, h, http.MethodDelete, "/api/visitor-count")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestRequestIDPropagation(t *testing.T) {
	h := NewServer(&stubCounter{}, logger.Nop())

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set(RequestIDHeader, "visit-123")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, "visit-123", rec.Header().Get(RequestIDHeader))

	rec = do(t, h, http.MethodGet, "/health")
	assert.Len(t, rec.Header().Get(RequestIDHeader), 36)
}

func TestUnimplemented(t *testing.T) {
	h := Handler(Unimplemented{})

	assert.Equal(t, http.StatusNotImplemented, do(t, h, http.MethodGet, "/api/visitor-count").Code)
	assert.Equal(t, http.StatusNotImplemented, do(t, h, http.MethodPost, "/api/visitor-count").Code)
}

func TestVisitorCountScenarioWithFileStore(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	store := storage.NewFileStore(filepath.Join(t.TempDir(), "data", "visitor-count.json"))
	mgr, stop, err := engine.NewCounterManager(ctx, store, engine.CounterCfg{}, logger.Nop())
	require.NoError(t, err)
	t.Cleanup(func() {
		stop()
		cancel()
		<-mgr.Done()
	})

	h := NewServer(mgr, logger.Nop())

	assert.Equal(t, uint64(0), decodeCount(t, do(t, h, http.MethodGet, "/api/visitor-count")).Count)
	for want := uint64(1); want <= 3; want++ {
		assert.Equal(t, want, decodeCount(t, do(t, h, http.MethodPost, "/api/visitor-count")).Count)
	}
	assert.Equal(t, uint64(3), decodeCount(t, do(t, h, http.MethodGet, "/api/visitor-count")).Count)
}
