package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pitchradar/radar-cli/internal/model"
	"github.com/pitchradar/radar-cli/internal/store"
)

type fakeStore struct {
	collections map[string][]model.Opportunity
	outcomes    []model.BatchOutcome
}

func (f *fakeStore) GetCollection(_ context.Context, key string) ([]model.Opportunity, error) {
	return f.collections[key], nil
}

func (f *fakeStore) SetCollection(_ context.Context, key string, items []model.Opportunity) error {
	f.collections[key] = items
	return nil
}

func (f *fakeStore) LastUpdated(_ context.Context, _ string) (time.Time, error) {
	return time.Date(2026, 2, 10, 9, 0, 0, 0, time.UTC), nil
}

func (f *fakeStore) ListKeys(_ context.Context) ([]string, error) {
	keys := make([]string, 0, len(f.collections))
	for k := range f.collections {
		keys = append(keys, k)
	}
	return keys, nil
}

func (f *fakeStore) SaveOutcome(_ context.Context, o model.BatchOutcome) error {
	f.outcomes = append(f.outcomes, o)
	return nil
}

func (f *fakeStore) ListOutcomes(_ context.Context, limit int) ([]model.BatchOutcome, error) {
	if limit > len(f.outcomes) {
		limit = len(f.outcomes)
	}
	return f.outcomes[:limit], nil
}

func (f *fakeStore) Migrate(_ context.Context) error { return nil }
func (f *fakeStore) Close() error                    { return nil }

func newTestServer(opts ...Option) (*fakeStore, http.Handler) {
	st := &fakeStore{
		collections: map[string][]model.Opportunity{
			store.AggregateKey: {
				{Title: "Aggregate item", Source: "qwoted", Tags: []string{}},
			},
			store.SourceKey("qwoted"): {
				{Title: "Qwoted item", Source: "qwoted", Tags: []string{}},
			},
		},
		outcomes: []model.BatchOutcome{
			{RunID: "run-1", Source: "qwoted", Added: 3},
			{RunID: "run-2", Source: "sourcebottle", Added: 1},
		},
	}
	return st, New(st, opts...).Handler()
}

func TestHealth(t *testing.T) {
	_, h := newTestServer()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestGetOpportunities(t *testing.T) {
	_, h := newTestServer()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/opportunities", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Opportunities []model.Opportunity `json:"opportunities"`
		Count         int                 `json:"count"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, 1, body.Count)
	assert.Equal(t, "Aggregate item", body.Opportunities[0].Title)
}

func TestGetSourceOpportunities(t *testing.T) {
	_, h := newTestServer()

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/opportunities/qwoted", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Qwoted item")

	// Unknown source returns an empty collection, not an error.
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/opportunities/featured", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"count":0`)
}

func TestGetRunsLimit(t *testing.T) {
	_, h := newTestServer()

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/runs?limit=1", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Runs []model.BatchOutcome `json:"runs"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Len(t, body.Runs, 1)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/runs?limit=zero", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPostIngest(t *testing.T) {
	var mu sync.Mutex
	var triggered []string
	done := make(chan struct{})

	_, h := newTestServer(WithIngestTrigger([]string{"qwoted"}, func(source string) {
		mu.Lock()
		triggered = append(triggered, source)
		mu.Unlock()
		close(done)
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/ingest", strings.NewReader(`{"source":"qwoted"}`)))
	require.Equal(t, http.StatusAccepted, rec.Code)

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("ingest trigger never fired")
	}
	mu.Lock()
	assert.Equal(t, []string{"qwoted"}, triggered)
	mu.Unlock()

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/ingest", strings.NewReader(`{"source":"unknown"}`)))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/ingest", strings.NewReader(`{}`)))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestIngestDisabledWithoutTrigger(t *testing.T) {
	_, h := newTestServer()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/ingest", strings.NewReader(`{"source":"qwoted"}`)))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCORSHeaders(t *testing.T) {
	_, h := newTestServer()
	req := httptest.NewRequest(http.MethodOptions, "/api/opportunities", nil)
	req.Header.Set("Origin", "chrome-extension://abcdef")
	req.Header.Set("Access-Control-Request-Method", http.MethodGet)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}
