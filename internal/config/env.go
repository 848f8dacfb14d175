package config

import (
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

type EnvConfig struct {
	ConfigPath      string
	HTTPAddr        string
	LogLevel        string
	ProviderTimeout time.Duration
	HTTP            HTTPEnvConfig
	GitHub          GitHubEnvConfig
	NewsAPI         NewsAPIEnvConfig
	DevTo           DevToEnvConfig
	RSS             RSSEnvConfig
	Reddit          RedditEnvConfig
	OTel            OTelEnvConfig
}

// HTTPEnvConfig is shared by the JSON providers.
type HTTPEnvConfig struct {
	Timeout   time.Duration
	RetryMax  int
	UserAgent string
}

type GitHubEnvConfig struct {
	BaseURL string
	Token   string
}

type NewsAPIEnvConfig struct {
	BaseURL string
	APIKey  string
}

type DevToEnvConfig struct {
	BaseURL string
}

type OTelEnvConfig struct {
	Enabled     bool
	ServiceName string
	Endpoint    string
	Protocol    string // "grpc" or "http/protobuf"
	Headers     map[string]string
	Insecure    bool
	SampleRatio float64
}

type RedditEnvConfig struct {
	HTTPTimeout  time.Duration
	UserAgent    string
	ClientID     string
	ClientSecret string
	Username     string
	Password     string
}

type RSSEnvConfig struct {
	HTTPTimeout time.Duration
	UserAgent   string
}

const defaultUserAgent = "api-aggregator/0.1"

func LoadEnv() EnvConfig {
	otlpEndpoint := strings.TrimSpace(envString("OTEL_EXPORTER_OTLP_ENDPOINT", ""))
	userAgent := envString("USER_AGENT", defaultUserAgent)

	return EnvConfig{
		ConfigPath:      envString("AGGREGATOR_CONFIG", "aggregator.yaml"),
		HTTPAddr:        httpAddr(),
		LogLevel:        strings.ToLower(envString("LOG_LEVEL", "info")),
		ProviderTimeout: envDuration("PROVIDER_TIMEOUT", 0),
		HTTP: HTTPEnvConfig{
			Timeout:   envDuration("HTTP_TIMEOUT", 15*time.Second),
			RetryMax:  envInt("HTTP_RETRY_MAX", 2),
			UserAgent: userAgent,
		},
		GitHub: GitHubEnvConfig{
			BaseURL: envString("GITHUB_BASE_URL", ""),
			Token:   envString("GITHUB_TOKEN", ""),
		},
		NewsAPI: NewsAPIEnvConfig{
			BaseURL: envString("NEWSAPI_BASE_URL", ""),
			APIKey:  envString("NEWSAPI_API_KEY", ""),
		},
		DevTo: DevToEnvConfig{
			BaseURL: envString("DEVTO_BASE_URL", ""),
		},
		OTel: OTelEnvConfig{
			Enabled:     envBool("OTEL_ENABLED", false),
			ServiceName: strings.TrimSpace(envString("OTEL_SERVICE_NAME", "api-aggregator")),
			Endpoint:    otlpEndpoint,
			Protocol:    strings.ToLower(strings.TrimSpace(envString("OTEL_EXPORTER_OTLP_PROTOCOL", "grpc"))),
			Headers:     parseHeaders(envString("OTEL_EXPORTER_OTLP_HEADERS", "")),
			Insecure:    envBool("OTEL_EXPORTER_OTLP_INSECURE", defaultInsecure(otlpEndpoint)),
			SampleRatio: clamp01(envFloat("OTEL_TRACES_SAMPLE_RATIO", 1.0)),
		},
		Reddit: RedditEnvConfig{
			HTTPTimeout:  envDuration("REDDIT_HTTP_TIMEOUT", 10*time.Second),
			UserAgent:    envString("REDDIT_USER_AGENT", userAgent),
			ClientID:     envString("REDDIT_CLIENT_ID", ""),
			ClientSecret: envString("REDDIT_CLIENT_SECRET", ""),
			Username:     envString("REDDIT_USERNAME", ""),
			Password:     envString("REDDIT_PASSWORD", ""),
		},
		RSS: RSSEnvConfig{
			HTTPTimeout: envDuration("RSS_HTTP_TIMEOUT", 10*time.Second),
			UserAgent:   envString("RSS_USER_AGENT", userAgent),
		},
	}
}

// httpAddr prefers HTTP_ADDR, then a bare PORT, then :8080.
func httpAddr() string {
	if addr := envString("HTTP_ADDR", ""); addr != "" {
		return addr
	}
	if port := envString("PORT", ""); port != "" {
		return ":" + strings.TrimPrefix(port, ":")
	}
	return ":8080"
}

func envString(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	switch strings.ToLower(v) {
	case "1", "true", "yes", "y", "on":
		return true
	default:
		return false
	}
}

func envInt(key string, fallback int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return i
}

func envFloat(key string, fallback float64) float64 {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fallback
	}
	return f
}

func envDuration(key string, fallback time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	d, err := parseDurationExtended(v)
	if err != nil {
		return fallback
	}
	return d
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func parseHeaders(raw string) map[string]string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	out := map[string]string{}
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		k, v, ok := strings.Cut(part, "=")
		if !ok {
			continue
		}
		k = strings.TrimSpace(k)
		v = strings.TrimSpace(v)
		if k == "" || v == "" {
			continue
		}
		out[k] = v
	}
	return out
}

func defaultInsecure(endpoint string) bool {
	endpoint = strings.TrimSpace(endpoint)
	if endpoint == "" {
		return true
	}
	if strings.Contains(endpoint, "://") {
		u, err := url.Parse(endpoint)
		if err != nil {
			return false
		}
		return u.Scheme == "http"
	}
	return strings.HasPrefix(endpoint, "localhost:") ||
		strings.HasPrefix(endpoint, "127.0.0.1:") ||
		strings.HasPrefix(endpoint, "0.0.0.0:")
}
