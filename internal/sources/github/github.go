// Package github searches public repositories through the GitHub REST API.
package github

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/bakkerme/api-aggregator/internal/core"
	"github.com/bakkerme/api-aggregator/internal/sources/httpjson"
)

const (
	DefaultBaseURL = "https://api.github.com"
	// DefaultQuery is searched when a request carries no term.
	DefaultQuery = "stars:>10000"
)

type Config struct {
	BaseURL      string
	Token        string
	DefaultQuery string
}

type Provider struct {
	client       *httpjson.Client
	baseURL      string
	token        string
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
		token:        strings.TrimSpace(cfg.Token),
		defaultQuery: query,
	}
}

func (p *Provider) Source() core.Source {
	return core.SourceGitHub
}

type searchResponse struct {
	Items []repository `json:"items"`
}

type repository struct {
	FullName  string `json:"full_name"`
	HTMLURL   string `json:"html_url"`
	CreatedAt string `json:"created_at"`
}

func (p *Provider) Fetch(ctx context.Context, searchTerm string) ([]core.Item, error) {
	term := strings.TrimSpace(searchTerm)
	if term == "" {
		term = p.defaultQuery
	}
	q := url.Values{}
	q.Set("q", term)
	q.Set("sort", "stars")
	q.Set("order", "desc")
	endpoint := p.baseURL + "/search/repositories?" + q.Encode()

	header := http.Header{}
	header.Set("Accept", "application/vnd.github+json")
	if p.token != "" {
		header.Set("Authorization", "Bearer "+p.token)
	}

	var resp searchResponse
	if err := p.client.GetJSON(ctx, endpoint, header, &resp); err != nil {
		return nil, fmt.Errorf("github search: %w", err)
	}

	items := make([]core.Item, 0, len(resp.Items))
	for _, repo := range resp.Items {
		items = append(items, core.Item{
			Source: core.SourceGitHub.String(),
			Title:  core.TitleOrDefault(repo.FullName),
			Link:   repo.HTMLURL,
			Date:   core.ParseTimestamp(repo.CreatedAt),
		})
	}
	return items, nil
}
