package newsapi

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/bakkerme/api-aggregator/internal/core"
	"github.com/bakkerme/api-aggregator/internal/sources/httpjson"
)

func TestFetchMapsArticles(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v2/everything" {
			t.Errorf("path = %q", r.URL.Path)
		}
		if r.URL.Query().Get("q") != "golang" || r.URL.Query().Get("sortBy") != "publishedAt" {
			t.Errorf("query = %v", r.URL.Query())
		}
		if r.URL.Query().Get("apiKey") != "" {
			t.Errorf("api key leaked into the query string")
		}
		if got := r.Header.Get("X-Api-Key"); got != "k" {
			t.Errorf("X-Api-Key = %q", got)
		}
		_, _ = w.Write([]byte(`{"status":"ok","articles":[
			{"title":"Go 1.24 released","url":"https://example.com/go","publishedAt":"2025-02-11T17:00:00Z"},
			{"title":null,"url":null,"publishedAt":null}
		]}`))
	}))
	defer srv.Close()

	p := New(httpjson.NewClient(httpjson.Config{RetryMax: -1}), Config{BaseURL: srv.URL, APIKey: "k"})
	items, err := p.Fetch(context.Background(), "golang")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(items))
	}
	if items[0].Source != "NewsApi" || items[0].Title != "Go 1.24 released" || items[0].Date == nil {
		t.Fatalf("unexpected item: %+v", items[0])
	}
	if items[1].Title != core.DefaultTitle || items[1].Link != "" || items[1].Date != nil {
		t.Fatalf("unexpected defaults: %+v", items[1])
	}
}

func TestFetchMissingArticlesIsEmpty(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"status":"ok","totalResults":0}`))
	}))
	defer srv.Close()

	p := New(httpjson.NewClient(httpjson.Config{RetryMax: -1}), Config{BaseURL: srv.URL, APIKey: "k"})
	items, err := p.Fetch(context.Background(), "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if items == nil || len(items) != 0 {
		t.Fatalf("expected empty non-nil items, got %#v", items)
	}
}

func TestFetchWithoutAPIKeyFailsWithoutCalling(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
	}))
	defer srv.Close()

	p := New(httpjson.NewClient(httpjson.Config{RetryMax: -1}), Config{BaseURL: srv.URL})
	if _, err := p.Fetch(context.Background(), "go"); !errors.Is(err, ErrMissingAPIKey) {
		t.Fatalf("expected ErrMissingAPIKey, got %v", err)
	}
	if calls.Load() != 0 {
		t.Fatalf("expected no upstream calls")
	}
}

func TestFetchFailsOnUnauthorized(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"status":"error","code":"apiKeyInvalid"}`))
	}))
	defer srv.Close()

	p := New(httpjson.NewClient(httpjson.Config{RetryMax: -1}), Config{BaseURL: srv.URL, APIKey: "bad"})
	_, err := p.Fetch(context.Background(), "go")
	var statusErr *httpjson.StatusError
	if !errors.As(err, &statusErr) || statusErr.Status != http.StatusUnauthorized {
		t.Fatalf("expected 401 status error, got %v", err)
	}
}
