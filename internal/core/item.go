package core

import (
	"fmt"
	"strings"
	"time"
)

// Item is a single entry in an aggregated result set. Items are produced by
// providers (or synthesized as fallbacks) and never modified afterwards.
type Item struct {
	Source string     `json:"source" yaml:"source"`
	Title  string     `json:"title" yaml:"title"`
	Link   string     `json:"link" yaml:"link"`
	Date   *time.Time `json:"date,omitempty" yaml:"date,omitempty"`
}

// DefaultTitle is used by providers when an upstream record has no title.
const DefaultTitle = "No Title"

// Source identifies a provider kind. The set is closed; see Sources.
type Source string

const (
	SourceGitHub  Source = "GitHub"
	SourceNewsAPI Source = "NewsApi"
	SourceDevTo   Source = "DevToApi"
	SourceRSS     Source = "Rss"
	SourceReddit  Source = "Reddit"
)

// Sources lists every known provider identity.
func Sources() []Source {
	return []Source{SourceGitHub, SourceNewsAPI, SourceDevTo, SourceRSS, SourceReddit}
}

func (s Source) String() string {
	return string(s)
}

// Valid reports whether s is one of the known identities.
func (s Source) Valid() bool {
	for _, known := range Sources() {
		if s == known {
			return true
		}
	}
	return false
}

// ParseSource resolves a provider identity by name, ignoring case.
func ParseSource(raw string) (Source, error) {
	raw = strings.TrimSpace(raw)
	for _, known := range Sources() {
		if strings.EqualFold(raw, string(known)) {
			return known, nil
		}
	}
	return "", fmt.Errorf("unknown source %q", raw)
}

// SortOrder controls how aggregated items are ordered by date.
// The zero value is Descending.
type SortOrder int

const (
	Descending SortOrder = iota
	Ascending
)

func (o SortOrder) String() string {
	if o == Ascending {
		return "Ascending"
	}
	return "Descending"
}

// ParseSortOrder accepts "Ascending"/"Descending" (any case) and the short
// forms "asc"/"desc". An empty string yields Descending.
func ParseSortOrder(raw string) (SortOrder, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", "descending", "desc":
		return Descending, nil
	case "ascending", "asc":
		return Ascending, nil
	default:
		return Descending, fmt.Errorf("unknown sort order %q", raw)
	}
}

// TitleOrDefault returns title, or DefaultTitle when it is blank.
func TitleOrDefault(title string) string {
	if strings.TrimSpace(title) == "" {
		return DefaultTitle
	}
	return title
}

// timestampLayouts are tried in order. Layouts without an offset are read as UTC.
var timestampLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	time.DateOnly,
}

// ParseTimestamp parses an upstream ISO 8601 timestamp. Blank or unparsable
// input yields nil rather than an error.
func ParseTimestamp(raw string) *time.Time {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	for _, layout := range timestampLayouts {
		t, err := time.Parse(layout, raw)
		if err != nil {
			continue
		}
		t = t.UTC()
		return &t
	}
	return nil
}
