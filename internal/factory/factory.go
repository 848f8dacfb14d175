// Package factory builds providers and the aggregation engine from the
// environment and the YAML document.
package factory

import (
	"log/slog"

	"github.com/bakkerme/api-aggregator/internal/aggregator"
	"github.com/bakkerme/api-aggregator/internal/config"
	"github.com/bakkerme/api-aggregator/internal/metrics"
	"github.com/bakkerme/api-aggregator/internal/sources/devto"
	"github.com/bakkerme/api-aggregator/internal/sources/github"
	"github.com/bakkerme/api-aggregator/internal/sources/httpjson"
	"github.com/bakkerme/api-aggregator/internal/sources/newsapi"
	"github.com/bakkerme/api-aggregator/internal/sources/reddit"
	"github.com/bakkerme/api-aggregator/internal/sources/rss"
	rssimpl "github.com/bakkerme/api-aggregator/internal/sources/rss/impl"
)

type Factory struct {
	Logger        *slog.Logger
	Env           config.EnvConfig
	HTTPClient    *httpjson.Client
	RedditFetcher reddit.Fetcher
	RSSFetcher    rss.Fetcher
}

func NewFromEnvConfig(logger *slog.Logger, env config.EnvConfig) *Factory {
	if logger == nil {
		logger = slog.Default()
	}
	creds := reddit.Credentials{
		ClientID:     env.Reddit.ClientID,
		ClientSecret: env.Reddit.ClientSecret,
		Username:     env.Reddit.Username,
		Password:     env.Reddit.Password,
	}
	retryMax := env.HTTP.RetryMax
	if retryMax == 0 {
		// httpjson treats zero as "use the default"; an explicit 0 means off.
		retryMax = -1
	}
	return &Factory{
		Logger: logger,
		Env:    env,
		HTTPClient: httpjson.NewClient(httpjson.Config{
			Timeout:   env.HTTP.Timeout,
			RetryMax:  retryMax,
			UserAgent: env.HTTP.UserAgent,
			Logger:    logger.With("component", "httpjson"),
		}),
		RedditFetcher: reddit.NewFetcher(logger, env.Reddit.HTTPTimeout, env.Reddit.UserAgent, creds, ""),
		RSSFetcher:    rssimpl.NewFetcher(env.RSS.HTTPTimeout, env.RSS.UserAgent),
	}
}

// Providers returns the enabled providers in a fixed order: GitHub, NewsAPI,
// Dev.to, RSS, Reddit.
func (f *Factory) Providers(doc *config.Document) []aggregator.Provider {
	p := doc.Providers
	var providers []aggregator.Provider
	if p.GitHub.IsEnabled() {
		providers = append(providers, github.New(f.HTTPClient, github.Config{
			BaseURL:      f.Env.GitHub.BaseURL,
			Token:        f.Env.GitHub.Token,
			DefaultQuery: p.GitHub.DefaultQuery,
		}))
	}
	if p.NewsAPI.IsEnabled() {
		if f.Env.NewsAPI.APIKey == "" {
			f.Logger.Warn("newsapi enabled without NEWSAPI_API_KEY; it will always serve a fallback")
		}
		providers = append(providers, newsapi.New(f.HTTPClient, newsapi.Config{
			BaseURL:      f.Env.NewsAPI.BaseURL,
			APIKey:       f.Env.NewsAPI.APIKey,
			DefaultQuery: p.NewsAPI.DefaultQuery,
		}))
	}
	if p.DevTo.IsEnabled() {
		providers = append(providers, devto.New(f.HTTPClient, devto.Config{BaseURL: f.Env.DevTo.BaseURL}))
	}
	if p.RSS.IsEnabled() {
		providers = append(providers, rss.New(f.RSSFetcher, rss.Config{Feeds: p.RSS.Feeds, Limit: p.RSS.Limit}))
	}
	if p.Reddit.IsEnabled() {
		providers = append(providers, reddit.New(f.RedditFetcher, reddit.Config{
			Subreddits: p.Reddit.Subreddits,
			Limit:      p.Reddit.Limit,
			Sort:       p.Reddit.Sort,
			TimeFilter: p.Reddit.TimeFilter,
			MinScore:   p.Reddit.MinScore,
		}))
	}
	return providers
}

// NewEngine builds the engine for doc. PROVIDER_TIMEOUT, when set, overrides
// providers.timeout.
func (f *Factory) NewEngine(doc *config.Document, m *metrics.Metrics) (*aggregator.Engine, []aggregator.Provider, error) {
	timeout := doc.Providers.Timeout.Std()
	if f.Env.ProviderTimeout > 0 {
		timeout = f.Env.ProviderTimeout
	}
	providers := f.Providers(doc)
	engine, err := aggregator.New(providers,
		aggregator.WithCacheCapacity(doc.Cache.Capacity),
		aggregator.WithProviderTimeout(timeout),
		aggregator.WithLogger(f.Logger),
		aggregator.WithMetrics(m),
	)
	if err != nil {
		return nil, nil, err
	}
	return engine, providers, nil
}
