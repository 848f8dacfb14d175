package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/bakkerme/api-aggregator/internal/aggregator"
	"github.com/bakkerme/api-aggregator/internal/core"
	"github.com/bakkerme/api-aggregator/internal/metrics"
	"github.com/bakkerme/api-aggregator/internal/sources/mock"
	"github.com/prometheus/client_golang/prometheus"
)

type fakeEngine struct {
	mu      sync.Mutex
	items   []core.Item
	sources []core.Source
	queries []aggregator.Query
}

func (f *fakeEngine) Fetch(ctx context.Context, q aggregator.Query) []core.Item {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queries = append(f.queries, q)
	return f.items
}

func (f *fakeEngine) Sources() []core.Source {
	return f.sources
}

func (f *fakeEngine) lastQuery(t *testing.T) aggregator.Query {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.queries) == 0 {
		t.Fatalf("engine was not called")
	}
	return f.queries[len(f.queries)-1]
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func do(t *testing.T, s *Server, target string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	return rec
}

func TestAggregatedBindsQuery(t *testing.T) {
	engine := &fakeEngine{items: []core.Item{}}
	s := NewServer(Config{Engine: engine, Logger: testLogger()})

	rec := do(t, s, "/api/aggregated?searchTerm=dotnet&dateOrder=Ascending&dataSources=GitHub&dataSources=newsapi,DevToApi")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d body=%s", rec.Code, rec.Body.String())
	}

	q := engine.lastQuery(t)
	if q.SearchTerm != "dotnet" || q.Order != core.Ascending {
		t.Fatalf("unexpected query: %+v", q)
	}
	want := []core.Source{core.SourceGitHub, core.SourceNewsAPI, core.SourceDevTo}
	if len(q.Sources) != len(want) {
		t.Fatalf("sources = %v, want %v", q.Sources, want)
	}
	for i := range want {
		if q.Sources[i] != want[i] {
			t.Fatalf("sources = %v, want %v", q.Sources, want)
		}
	}
}

func TestAggregatedDefaults(t *testing.T) {
	engine := &fakeEngine{items: []core.Item{}}
	s := NewServer(Config{Engine: engine, Logger: testLogger()})

	rec := do(t, s, "/api/aggregated")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if strings.TrimSpace(rec.Body.String()) != "[]" {
		t.Fatalf("expected empty array, got %q", rec.Body.String())
	}
	q := engine.lastQuery(t)
	if q.SearchTerm != "" || q.Order != core.Descending || len(q.Sources) != 0 {
		t.Fatalf("unexpected query: %+v", q)
	}
}

func TestAggregatedRejectsUnknownValues(t *testing.T) {
	engine := &fakeEngine{}
	s := NewServer(Config{Engine: engine, Logger: testLogger()})

	for _, target := range []string{
		"/api/aggregated?dateOrder=sideways",
		"/api/aggregated?dataSources=Twitter",
		"/api/aggregated?dataSources=GitHub,Myspace",
	} {
		rec := do(t, s, target)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("%s: status = %d", target, rec.Code)
		}
		var body map[string]string
		if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil || body["message"] == "" {
			t.Fatalf("%s: expected message body, got %q", target, rec.Body.String())
		}
	}
	if len(engine.queries) != 0 {
		t.Fatalf("engine should not be called for invalid requests")
	}
}

func TestAggregatedJSONShape(t *testing.T) {
	date := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	engine := &fakeEngine{items: []core.Item{
		{Source: "GitHub", Title: "golang/go", Link: "https://github.com/golang/go", Date: &date},
		{Source: "DevToApi", Title: "No Title", Link: ""},
	}}
	s := NewServer(Config{Engine: engine, Logger: testLogger()})

	rec := do(t, s, "/api/aggregated")
	var got []map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 items, got %d", len(got))
	}
	if got[0]["source"] != "GitHub" || got[0]["title"] != "golang/go" || got[0]["date"] != "2024-01-02T03:04:05Z" {
		t.Fatalf("unexpected first item: %v", got[0])
	}
	if _, ok := got[1]["date"]; ok {
		t.Fatalf("undated item should omit date: %v", got[1])
	}
	if rec.Header().Get(echoRequestIDHeader) == "" {
		t.Fatalf("expected a request id header")
	}
}

const echoRequestIDHeader = "X-Request-Id"

func TestDevToPassthrough(t *testing.T) {
	devTo := &mock.Provider{ID: core.SourceDevTo, Items: []core.Item{{Source: "DevToApi", Title: "Minimal APIs"}}}
	s := NewServer(Config{Engine: &fakeEngine{}, DevTo: devTo, Logger: testLogger()})

	rec := do(t, s, "/api/devto")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if devTo.LastTerm() != "dotnet" {
		t.Fatalf("default filter = %q", devTo.LastTerm())
	}

	do(t, s, "/api/devto?filter=go")
	do(t, s, "/api/devto?filter=go")
	if devTo.LastTerm() != "go" || devTo.Calls() != 3 {
		t.Fatalf("passthrough should call the provider each time: term=%q calls=%d", devTo.LastTerm(), devTo.Calls())
	}
}

func TestDevToFailureIsBadGateway(t *testing.T) {
	devTo := &mock.Provider{ID: core.SourceDevTo, Err: errors.New("dial tcp: refused")}
	s := NewServer(Config{Engine: &fakeEngine{}, DevTo: devTo, Logger: testLogger()})

	if rec := do(t, s, "/api/devto"); rec.Code != http.StatusBadGateway {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestDevToNotConfigured(t *testing.T) {
	s := NewServer(Config{Engine: &fakeEngine{}, Logger: testLogger()})
	if rec := do(t, s, "/api/devto"); rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestSourcesAndHealth(t *testing.T) {
	engine := &fakeEngine{sources: []core.Source{core.SourceGitHub, core.SourceRSS}}
	s := NewServer(Config{Engine: engine, Logger: testLogger(), Version: "1.2.3"})

	rec := do(t, s, "/api/sources")
	if strings.TrimSpace(rec.Body.String()) != `["GitHub","Rss"]` {
		t.Fatalf("sources body = %q", rec.Body.String())
	}

	rec = do(t, s, "/api/v1/health")
	var health map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &health); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if health["status"] != "healthy" || health["service"] != "api-aggregator" || health["version"] != "1.2.3" {
		t.Fatalf("unexpected health: %v", health)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.New("aggregator", reg)
	m.RecordCacheLookup("GitHub", true)
	s := NewServer(Config{Engine: &fakeEngine{}, Gatherer: reg, Logger: testLogger()})

	rec := do(t, s, "/metrics")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `aggregator_cache_lookups_total{result="hit",source="GitHub"} 1`) {
		t.Fatalf("missing metric in %s", rec.Body.String())
	}
}

func TestRequestContextCarriesRequestID(t *testing.T) {
	var seen string
	engine := &contextEngine{onFetch: func(ctx context.Context) { seen = core.RequestIDFromContext(ctx) }}
	s := NewServer(Config{Engine: engine, Logger: testLogger()})

	rec := do(t, s, "/api/aggregated")
	if seen == "" || seen != rec.Header().Get(echoRequestIDHeader) {
		t.Fatalf("request id in context %q, header %q", seen, rec.Header().Get(echoRequestIDHeader))
	}
}

type contextEngine struct {
	onFetch func(ctx context.Context)
}

func (e *contextEngine) Fetch(ctx context.Context, q aggregator.Query) []core.Item {
	e.onFetch(ctx)
	return []core.Item{}
}

func (e *contextEngine) Sources() []core.Source { return nil }
