// Package newsapi searches articles through newsapi.org.
package newsapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/bakkerme/api-aggregator/internal/core"
	"github.com/bakkerme/api-aggregator/internal/sources/httpjson"
)

const (
	DefaultBaseURL = "https://newsapi.org"
	DefaultQuery   = "technology"
)

// ErrMissingAPIKey is returned by Fetch when no key is configured.
var ErrMissingAPIKey = errors.New("newsapi: missing api key (set NEWSAPI_API_KEY)")

type Config struct {
	BaseURL      string
	APIKey       string
	DefaultQuery string
}

type Provider struct {
	client       *httpjson.Client
	baseURL      string
	apiKey       string
	defaultQuery string
}

func New(client *httpjson.Client, cfg Config) *Provider {
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	query := strings.TrimSpace(cfg.DefaultQuery)
	if query == "" {
		query = DefaultQuery
	}
	return &Provider{
		client:       client,
		baseURL:      baseURL,
		apiKey:       strings.TrimSpace(cfg.APIKey),
		defaultQuery: query,
	}
}

func (p *Provider) Source() core.Source {
	return core.SourceNewsAPI
}

type everythingResponse struct {
	Status   string    `json:"status"`
	Articles []article `json:"articles"`
}

type article struct {
	Title       string `json:"title"`
	URL         string `json:"url"`
	PublishedAt string `json:"publishedAt"`
}

func (p *Provider) Fetch(ctx context.Context, searchTerm string) ([]core.Item, error) {
	if p.apiKey == "" {
		return nil, ErrMissingAPIKey
	}
	term := strings.TrimSpace(searchTerm)
	if term == "" {
		term = p.defaultQuery
	}
	q := url.Values{}
	q.Set("q", term)
	q.Set("sortBy", "publishedAt")
	endpoint := p.baseURL + "/v2/everything?" + q.Encode()

	header := http.Header{}
	header.Set("X-Api-Key", p.apiKey)

	var resp everythingResponse
	if err := p.client.GetJSON(ctx, endpoint, header, &resp); err != nil {
		return nil, fmt.Errorf("newsapi everything: %w", err)
	}

	items := make([]core.Item, 0, len(resp.Articles))
	for _, a := range resp.Articles {
		items = append(items, core.Item{
			Source: core.SourceNewsAPI.String(),
			Title:  core.TitleOrDefault(a.Title),
			Link:   a.URL,
			Date:   core.ParseTimestamp(a.PublishedAt),
		})
	}
	return items, nil
}
