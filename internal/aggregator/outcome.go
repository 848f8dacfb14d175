package aggregator

import (
	"strings"
	"time"

	"github.com/bakkerme/api-aggregator/internal/core"
)

// DefaultCacheKey is used when a request carries no search term.
const DefaultCacheKey = "default"

const fallbackTitleSuffix = " unavailable - fallback response"

// CacheKey normalizes a search term into the key used for both cache reads
// and writes.
func CacheKey(searchTerm string) string {
	key := strings.ToLower(strings.TrimSpace(searchTerm))
	if key == "" {
		return DefaultCacheKey
	}
	return key
}

// FallbackItem is the placeholder contributed by a provider whose fetch failed.
func FallbackItem(source core.Source, at time.Time) core.Item {
	at = at.UTC()
	return core.Item{
		Source: source.String(),
		Title:  source.String() + fallbackTitleSuffix,
		Link:   "",
		Date:   &at,
	}
}

// outcome is the result of resolving one provider: either the items it
// contributed or the error it failed with.
type outcome struct {
	source   core.Source
	items    []core.Item
	err      error
	failedAt time.Time
}

func succeeded(source core.Source, items []core.Item) outcome {
	return outcome{source: source, items: items}
}

func failed(source core.Source, err error, at time.Time) outcome {
	return outcome{source: source, err: err, failedAt: at}
}

// contribution folds the outcome into the items it adds to the merged result.
// A failure always contributes exactly one fallback item.
func (o outcome) contribution() []core.Item {
	if o.err != nil {
		return []core.Item{FallbackItem(o.source, o.failedAt)}
	}
	return o.items
}
