package reddit

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/bakkerme/api-aggregator/internal/retry"
	goreddit "github.com/vartanbeno/go-reddit/v2/reddit"
)

const listingJSON = `{"kind":"Listing","data":{"after":"","before":"","children":[
	{"kind":"t3","data":{"id":"abc","name":"t3_abc","title":"Generics in practice","author":"gopher","score":42,
	 "permalink":"/r/golang/comments/abc/generics_in_practice/","created_utc":1706774400}}
]}}`

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestFetcherReadsListingWithoutQuery(t *testing.T) {
	var path string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(listingJSON))
	}))
	defer srv.Close()

	f := NewFetcher(testLogger(), 2*time.Second, "api-aggregator/test", Credentials{}, srv.URL)
	posts, err := f.Fetch(context.Background(), Request{Config: Config{Subreddits: []string{"golang", "rust"}, Sort: "new"}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.HasPrefix(path, "/r/golang+rust/new") {
		t.Fatalf("path = %q", path)
	}
	if len(posts) != 1 {
		t.Fatalf("expected 1 post, got %d", len(posts))
	}
	post := posts[0]
	if post.Title != "Generics in practice" || post.URL != "https://www.reddit.com/r/golang/comments/abc/generics_in_practice/" || post.Score != 42 {
		t.Fatalf("unexpected post: %+v", post)
	}
	if post.CreatedAt == nil || !post.CreatedAt.Equal(time.Unix(1706774400, 0)) {
		t.Fatalf("created = %v", post.CreatedAt)
	}
}

func TestFetcherSearchesWithQuery(t *testing.T) {
	var path, q string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		q = r.URL.Query().Get("q")
		_, _ = w.Write([]byte(listingJSON))
	}))
	defer srv.Close()

	f := NewFetcher(testLogger(), 2*time.Second, "", Credentials{}, srv.URL)
	if _, err := f.Fetch(context.Background(), Request{Config: Config{Subreddits: []string{"golang"}}, Query: "generics"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(path, "/r/golang/search") || q != "generics" {
		t.Fatalf("unexpected search request path=%q q=%q", path, q)
	}
}

func TestFetcherRejectsUnknownSortWithoutRetry(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
	}))
	defer srv.Close()

	f := NewFetcher(testLogger(), time.Second, "", Credentials{}, srv.URL)
	_, err := f.Fetch(context.Background(), Request{Config: Config{Subreddits: []string{"golang"}, Sort: "best"}})
	if err == nil || !strings.Contains(err.Error(), "unsupported reddit sort") {
		t.Fatalf("expected unsupported sort error, got %v", err)
	}
	if calls != 0 {
		t.Fatalf("expected no upstream calls, got %d", calls)
	}
}

func TestClassify(t *testing.T) {
	base := errors.New("boom")
	if got := classify(nil, base); got != base {
		t.Fatalf("network errors should pass through unchanged")
	}

	notFound := &goreddit.Response{Response: &http.Response{StatusCode: http.StatusNotFound}}
	err := classify(notFound, base)
	calls := 0
	_ = retry.Do(context.Background(), retry.Policy{Attempts: 3, Jitter: -1}, func(context.Context) error {
		calls++
		return err
	})
	if calls != 1 {
		t.Fatalf("404 should not be retried, got %d calls", calls)
	}

	unavailable := &goreddit.Response{Response: &http.Response{StatusCode: http.StatusServiceUnavailable}}
	if err := classify(unavailable, base); !errors.Is(err, base) || !strings.HasPrefix(err.Error(), "reddit transient error") {
		t.Fatalf("unexpected transient classification: %v", err)
	}
}

func TestCanonicalPostURL(t *testing.T) {
	cases := map[string]string{
		"":                          "",
		"/r/golang/comments/x/y/":   "https://www.reddit.com/r/golang/comments/x/y/",
		"r/golang/comments/x/y/":    "https://www.reddit.com/r/golang/comments/x/y/",
		"https://old.reddit.com/r/": "https://old.reddit.com/r/",
	}
	for in, want := range cases {
		if got := canonicalPostURL(in); got != want {
			t.Fatalf("canonicalPostURL(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestTimestampToTime(t *testing.T) {
	if timestampToTime(nil) != nil {
		t.Fatalf("nil timestamp should map to nil")
	}
	if timestampToTime(&goreddit.Timestamp{}) != nil {
		t.Fatalf("zero timestamp should map to nil")
	}
	ts := &goreddit.Timestamp{Time: time.Unix(100, 0).In(time.FixedZone("X", 3600))}
	got := timestampToTime(ts)
	if got == nil || got.Location() != time.UTC || got.Unix() != 100 {
		t.Fatalf("unexpected time: %v", got)
	}
}
