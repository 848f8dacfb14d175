package aggregator

import (
	"slices"
	"time"

	"github.com/bakkerme/api-aggregator/internal/core"
)

// sortByDate orders items in place. Items without a date compare lower than
// any dated item, so they lead ascending results and trail descending ones.
func sortByDate(items []core.Item, order core.SortOrder) {
	slices.SortStableFunc(items, func(a, b core.Item) int {
		c := compareDates(a.Date, b.Date)
		if order == core.Descending {
			return -c
		}
		return c
	})
}

func compareDates(a, b *time.Time) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return -1
	case b == nil:
		return 1
	default:
		return a.Compare(*b)
	}
}
