// Package devto lists articles from the Dev.to public API.
package devto

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"github.com/bakkerme/api-aggregator/internal/core"
	"github.com/bakkerme/api-aggregator/internal/sources/httpjson"
)

const DefaultBaseURL = "https://dev.to"

type Config struct {
	BaseURL string
}

type Provider struct {
	client  *httpjson.Client
	baseURL string
}

func New(client *httpjson.Client, cfg Config) *Provider {
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Provider{client: client, baseURL: baseURL}
}

func (p *Provider) Source() core.Source {
	return core.SourceDevTo
}

type article struct {
	Title       string `json:"title"`
	URL         string `json:"url"`
	PublishedAt string `json:"published_at"`
}

// Fetch lists articles tagged with searchTerm, or the latest articles when
// no term is given.
func (p *Provider) Fetch(ctx context.Context, searchTerm string) ([]core.Item, error) {
	endpoint := p.baseURL + "/api/articles"
	if tag := strings.TrimSpace(searchTerm); tag != "" {
		endpoint += "?" + url.Values{"tag": {tag}}.Encode()
	}

	body, err := p.client.Get(ctx, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("devto articles: %w", err)
	}
	body = bytes.TrimSpace(body)
	if len(body) == 0 || body[0] != '[' {
		return []core.Item{}, nil
	}

	var articles []article
	if err := json.Unmarshal(body, &articles); err != nil {
		return nil, fmt.Errorf("devto articles: decode: %w", err)
	}

	items := make([]core.Item, 0, len(articles))
	for _, a := range articles {
		items = append(items, core.Item{
			Source: core.SourceDevTo.String(),
			Title:  core.TitleOrDefault(a.Title),
			Link:   a.URL,
			Date:   core.ParseTimestamp(a.PublishedAt),
		})
	}
	return items, nil
}
