package reddit

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/bakkerme/api-aggregator/internal/retry"
	goreddit "github.com/vartanbeno/go-reddit/v2/reddit"
)

const (
	defaultSort  = "hot"
	defaultLimit = 25
)

// Credentials enable the authenticated client. When any field is empty the
// read-only client is used.
type Credentials struct {
	ClientID     string
	ClientSecret string
	Username     string
	Password     string
}

func (c Credentials) complete() bool {
	return c.ClientID != "" && c.ClientSecret != "" && c.Username != "" && c.Password != ""
}

type RedditFetcher struct {
	client  *goreddit.Client
	initErr error
	logger  *slog.Logger
	policy  retry.Policy
}

// NewFetcher builds a go-reddit backed fetcher. baseURL overrides the API
// endpoint and is only used in tests.
func NewFetcher(logger *slog.Logger, timeout time.Duration, userAgent string, creds Credentials, baseURL string) *RedditFetcher {
	if logger == nil {
		logger = slog.Default()
	}
	if userAgent == "" {
		userAgent = "api-aggregator/0.1"
	}

	opts := []goreddit.Opt{
		goreddit.WithHTTPClient(&http.Client{Timeout: timeout}),
		goreddit.WithUserAgent(userAgent),
	}
	if baseURL != "" {
		opts = append(opts, goreddit.WithBaseURL(baseURL))
	}

	var (
		client *goreddit.Client
		err    error
	)
	if creds.complete() {
		logger.Info("using authenticated reddit client", slog.String("client_id", creds.ClientID))
		client, err = goreddit.NewClient(goreddit.Credentials{
			ID:       creds.ClientID,
			Secret:   creds.ClientSecret,
			Username: creds.Username,
			Password: creds.Password,
		}, opts...)
	} else {
		logger.Info("using readonly reddit client")
		client, err = goreddit.NewReadonlyClient(opts...)
	}

	return &RedditFetcher{
		client:  client,
		initErr: err,
		logger:  logger,
		policy:  retry.Policy{Attempts: 3, BaseDelay: 200 * time.Millisecond},
	}
}

func (f *RedditFetcher) Fetch(ctx context.Context, req Request) ([]Post, error) {
	if f.initErr != nil {
		return nil, fmt.Errorf("reddit client: %w", f.initErr)
	}
	if len(req.Subreddits) == 0 {
		return nil, ErrNoSubreddits
	}

	sort := strings.ToLower(strings.TrimSpace(req.Sort))
	if sort == "" {
		sort = defaultSort
	}
	limit := req.Limit
	if limit <= 0 {
		limit = defaultLimit
	}
	subreddits := strings.Join(req.Subreddits, "+")

	f.logger.Debug("fetching reddit posts",
		slog.String("subreddits", subreddits),
		slog.String("sort", sort),
		slog.String("query", req.Query),
		slog.Int("limit", limit),
	)

	var posts []*goreddit.Post
	err := retry.Do(ctx, f.policy, func(ctx context.Context) error {
		var (
			resp *goreddit.Response
			err  error
		)
		if req.Query != "" {
			posts, resp, err = f.client.Subreddit.SearchPosts(ctx, req.Query, subreddits, &goreddit.ListPostSearchOptions{
				ListPostOptions: goreddit.ListPostOptions{
					ListOptions: goreddit.ListOptions{Limit: limit},
					Time:        req.TimeFilter,
				},
				Sort: "new",
			})
		} else {
			posts, resp, err = f.listing(ctx, subreddits, sort, limit, req.TimeFilter)
		}
		if err != nil {
			return classify(resp, err)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("fetch reddit posts: %w", err)
	}

	out := make([]Post, 0, len(posts))
	for _, post := range posts {
		if post == nil {
			continue
		}
		out = append(out, postFromAPI(post))
	}
	return out, nil
}

func (f *RedditFetcher) listing(ctx context.Context, subreddits, sort string, limit int, timeFilter string) ([]*goreddit.Post, *goreddit.Response, error) {
	list := &goreddit.ListOptions{Limit: limit}
	switch sort {
	case "hot":
		return f.client.Subreddit.HotPosts(ctx, subreddits, list)
	case "new":
		return f.client.Subreddit.NewPosts(ctx, subreddits, list)
	case "rising":
		return f.client.Subreddit.RisingPosts(ctx, subreddits, list)
	case "top":
		return f.client.Subreddit.TopPosts(ctx, subreddits, &goreddit.ListPostOptions{
			ListOptions: *list,
			Time:        timeFilter,
		})
	default:
		return nil, nil, retry.Permanent(fmt.Errorf("unsupported reddit sort: %q", sort))
	}
}

// classify marks errors that a retry cannot fix as permanent.
func classify(resp *goreddit.Response, err error) error {
	if resp == nil {
		return err
	}
	if resp.StatusCode >= http.StatusInternalServerError || resp.StatusCode == http.StatusTooManyRequests {
		return fmt.Errorf("reddit transient error: %w", err)
	}
	return retry.Permanent(err)
}

func postFromAPI(post *goreddit.Post) Post {
	return Post{
		ID:        post.ID,
		Title:     post.Title,
		URL:       canonicalPostURL(post.Permalink),
		Author:    post.Author,
		Score:     post.Score,
		CreatedAt: timestampToTime(post.Created),
	}
}

func canonicalPostURL(permalink string) string {
	if permalink == "" {
		return ""
	}
	if strings.HasPrefix(permalink, "http://") || strings.HasPrefix(permalink, "https://") {
		return permalink
	}
	if strings.HasPrefix(permalink, "/") {
		return "https://www.reddit.com" + permalink
	}
	return "https://www.reddit.com/" + permalink
}

func timestampToTime(ts *goreddit.Timestamp) *time.Time {
	if ts == nil || ts.Time.IsZero() {
		return nil
	}
	t := ts.Time.UTC()
	return &t
}
