package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	m.RecordCacheLookup("GitHub", true)
	m.SetCacheEntries("GitHub", 3)
	m.RecordProviderCall("GitHub", time.Second, nil)
	m.RecordFetch(time.Second, 3)
}

func TestRecordsLabelledCounters(t *testing.T) {
	m := New("test", prometheus.NewRegistry())

	m.RecordCacheLookup("GitHub", true)
	m.RecordCacheLookup("GitHub", false)
	m.RecordCacheLookup("GitHub", false)
	m.RecordProviderCall("NewsApi", 10*time.Millisecond, errors.New("boom"))
	m.SetCacheEntries("GitHub", 4)

	if got := testutil.ToFloat64(m.CacheLookups.WithLabelValues("GitHub", "hit")); got != 1 {
		t.Fatalf("hits=%v, want 1", got)
	}
	if got := testutil.ToFloat64(m.CacheLookups.WithLabelValues("GitHub", "miss")); got != 2 {
		t.Fatalf("misses=%v, want 2", got)
	}
	if got := testutil.ToFloat64(m.ProviderRequests.WithLabelValues("NewsApi", "failure")); got != 1 {
		t.Fatalf("failures=%v, want 1", got)
	}
	if got := testutil.ToFloat64(m.CacheEntries.WithLabelValues("GitHub")); got != 4 {
		t.Fatalf("entries=%v, want 4", got)
	}
}
