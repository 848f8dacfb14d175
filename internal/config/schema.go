package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"
)

const DefaultCacheCapacity = 10

// Document represents the top-level structure of an aggregator.yaml file.
type Document struct {
	Cache     CacheConfig     `yaml:"cache"`
	Providers ProvidersConfig `yaml:"providers"`
	Warmup    *WarmupConfig   `yaml:"warmup,omitempty"`
}

type CacheConfig struct {
	// Capacity is the number of search terms each provider cache holds.
	Capacity int `yaml:"capacity,omitempty"`
}

type ProvidersConfig struct {
	// Timeout bounds each provider call. Zero means unbounded.
	Timeout Duration        `yaml:"timeout,omitempty"`
	GitHub  GitHubProvider  `yaml:"github"`
	NewsAPI NewsAPIProvider `yaml:"newsapi"`
	DevTo   DevToProvider   `yaml:"devto"`
	RSS     RSSProvider     `yaml:"rss"`
	Reddit  RedditProvider  `yaml:"reddit"`
}

// Toggle is an optional enable flag. Unset falls back to the provider's default.
type Toggle struct {
	Enabled *bool `yaml:"enabled,omitempty"`
}

func (t Toggle) enabled(fallback bool) bool {
	if t.Enabled == nil {
		return fallback
	}
	return *t.Enabled
}

type GitHubProvider struct {
	Toggle       `yaml:",inline"`
	DefaultQuery string `yaml:"default_query,omitempty"`
}

type NewsAPIProvider struct {
	Toggle       `yaml:",inline"`
	DefaultQuery string `yaml:"default_query,omitempty"`
}

type DevToProvider struct {
	Toggle `yaml:",inline"`
}

// RSSProvider defines RSS/Atom feed configuration.
type RSSProvider struct {
	Toggle `yaml:",inline"`
	Feeds  []string `yaml:"feeds,omitempty"`
	Limit  int      `yaml:"limit,omitempty"`
}

// RedditProvider defines Reddit data source configuration.
type RedditProvider struct {
	Toggle     `yaml:",inline"`
	Subreddits []string `yaml:"subreddits,omitempty"`
	Limit      int      `yaml:"limit,omitempty"`
	Sort       string   `yaml:"sort,omitempty"`
	TimeFilter string   `yaml:"time_filter,omitempty"`
	MinScore   int      `yaml:"min_score,omitempty"`
}

// WarmupConfig schedules background fetches that keep popular terms cached.
type WarmupConfig struct {
	Cron  CronTrigger `yaml:"cron"`
	Terms []string    `yaml:"terms,omitempty"`
}

// CronTrigger defines a scheduled trigger.
type CronTrigger struct {
	Schedule string `yaml:"schedule"`
	Timezone string `yaml:"timezone,omitempty"`
}

func (p GitHubProvider) IsEnabled() bool  { return p.enabled(true) }
func (p NewsAPIProvider) IsEnabled() bool { return p.enabled(true) }
func (p DevToProvider) IsEnabled() bool   { return p.enabled(true) }

// IsEnabled defaults to true once feeds are configured.
func (p RSSProvider) IsEnabled() bool { return p.enabled(len(p.Feeds) > 0) }

// IsEnabled defaults to true once subreddits are configured.
func (p RedditProvider) IsEnabled() bool { return p.enabled(len(p.Subreddits) > 0) }

// DefaultDocument is used when no configuration file exists.
func DefaultDocument() *Document {
	return &Document{Cache: CacheConfig{Capacity: DefaultCacheCapacity}}
}

// LoadDocument reads and validates path. A missing file yields DefaultDocument.
func LoadDocument(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return DefaultDocument(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return ParseDocument(data)
}

// ParseDocument decodes a YAML document, applies defaults and validates it.
func ParseDocument(data []byte) (*Document, error) {
	var doc Document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	doc.applyDefaults()
	if err := doc.Validate(); err != nil {
		return nil, err
	}
	return &doc, nil
}

func (d *Document) applyDefaults() {
	if d.Cache.Capacity == 0 {
		d.Cache.Capacity = DefaultCacheCapacity
	}
	if d.Providers.Reddit.Sort == "" {
		d.Providers.Reddit.Sort = "hot"
	}
}

var redditSorts = map[string]bool{"hot": true, "new": true, "rising": true, "top": true}

// Validate reports every problem in the document at once.
func (d *Document) Validate() error {
	var errs *multierror.Error

	if d.Cache.Capacity <= 0 {
		errs = multierror.Append(errs, fmt.Errorf("cache.capacity must be greater than zero, got %d", d.Cache.Capacity))
	}
	if d.Providers.Timeout < 0 {
		errs = multierror.Append(errs, fmt.Errorf("providers.timeout must not be negative"))
	}

	rss := d.Providers.RSS
	if rss.IsEnabled() && len(rss.Feeds) == 0 {
		errs = multierror.Append(errs, fmt.Errorf("providers.rss: at least one feed is required when enabled"))
	}
	for i, feed := range rss.Feeds {
		if !strings.HasPrefix(feed, "http://") && !strings.HasPrefix(feed, "https://") {
			errs = multierror.Append(errs, fmt.Errorf("providers.rss.feeds[%d]: %q is not an http(s) url", i, feed))
		}
	}
	if rss.Limit < 0 {
		errs = multierror.Append(errs, fmt.Errorf("providers.rss.limit must not be negative"))
	}

	reddit := d.Providers.Reddit
	if reddit.IsEnabled() && len(reddit.Subreddits) == 0 {
		errs = multierror.Append(errs, fmt.Errorf("providers.reddit: at least one subreddit is required when enabled"))
	}
	if reddit.Sort != "" && !redditSorts[strings.ToLower(reddit.Sort)] {
		errs = multierror.Append(errs, fmt.Errorf("providers.reddit.sort: unsupported value %q", reddit.Sort))
	}
	if reddit.Limit < 0 {
		errs = multierror.Append(errs, fmt.Errorf("providers.reddit.limit must not be negative"))
	}

	if w := d.Warmup; w != nil {
		if _, err := cron.ParseStandard(w.Cron.Schedule); err != nil {
			errs = multierror.Append(errs, fmt.Errorf("warmup.cron.schedule: %w", err))
		}
		if w.Cron.Timezone != "" {
			if _, err := time.LoadLocation(w.Cron.Timezone); err != nil {
				errs = multierror.Append(errs, fmt.Errorf("warmup.cron.timezone: %w", err))
			}
		}
	}

	return errs.ErrorOrNil()
}
