// Package songlink resolves track links across platforms through the song.link (Odesli) API.
package songlink

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/m3rciful/muzposter/core/logger"
	"github.com/m3rciful/muzposter/core/telegram/netutil"
	"github.com/m3rciful/muzposter/internal/music"
)

// DefaultBaseURL is the public API root.
const DefaultBaseURL = "https://api.song.link/v1-alpha.1"

// Config configures the client. Zero values use the defaults.
type Config struct {
	BaseURL     string `yaml:"base_url" envconfig:"SONGLINK_BASE_URL"`
	UserCountry string `yaml:"user_country" envconfig:"SONGLINK_USER_COUNTRY"`
	// TimeoutSeconds bounds a single lookup including retries.
	TimeoutSeconds int `yaml:"timeout_seconds" envconfig:"SONGLINK_TIMEOUT_SECONDS"`
}

// APIError is returned for non-2xx responses. Code is the API's own error code, if any.
type APIError struct {
	StatusCode int
	Code       string
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("songlink: status %d: %s", e.StatusCode, e.Code)
	}
	return fmt.Sprintf("songlink: status %d", e.StatusCode)
}

// ErrNoPage is returned when a successful response lacks the aggregator page URL.
var ErrNoPage = errors.New("songlink: response has no pageUrl")

// Client calls the /links endpoint. Concurrent lookups of the same query share one request.
type Client struct {
	baseURL     string
	userCountry string
	http        *http.Client
	group       singleflight.Group
}

// Option customizes a Client.
type Option func(*Client)

// WithHTTPClient replaces the retrying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// New builds a client from cfg.
func New(cfg Config, opts ...Option) *Client {
	base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if base == "" {
		base = DefaultBaseURL
	}
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	c := &Client{
		baseURL:     base,
		userCountry: strings.TrimSpace(cfg.UserCountry),
		http: netutil.NewClient(netutil.ClientOptions{
			Timeout:       timeout,
			RetryAttempts: 2,
			RetryBackoff:  500 * time.Millisecond,
			RetryStatuses: []int{http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout},
		}),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ResolveByURL looks up any supported track or song.link URL.
func (c *Client) ResolveByURL(ctx context.Context, link string) (music.Links, error) {
	return c.lookup(ctx, url.Values{"url": {link}})
}

// ResolveByPlatformID looks up a track by its platform id.
func (c *Client) ResolveByPlatformID(ctx context.Context, service music.Service, id string) (music.Links, error) {
	return c.lookup(ctx, url.Values{
		"platform": {string(service)},
		"type":     {"song"},
		"id":       {id},
	})
}

type linksResponse struct {
	PageURL         string `json:"pageUrl"`
	LinksByPlatform map[string]struct {
		URL string `json:"url"`
	} `json:"linksByPlatform"`
}

type errorResponse struct {
	Code string `json:"code"`
}

func (c *Client) lookup(ctx context.Context, q url.Values) (music.Links, error) {
	if c.userCountry != "" {
		q.Set("userCountry", c.userCountry)
	}
	endpoint := c.baseURL + "/links?" + q.Encode()

	v, err, shared := c.group.Do(endpoint, func() (any, error) {
		return c.fetch(ctx, endpoint)
	})
	if err != nil {
		return nil, err
	}
	if shared {
		logger.Debug(ctx, logger.CompSongLink, "lookup.shared", slog.String("status", "ok"))
	}
	// Callers may mutate the result; shared results must not alias.
	return v.(music.Links).Clone(), nil
}

func (c *Client) fetch(ctx context.Context, endpoint string) (music.Links, error) {
	start := time.Now()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("songlink: build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		logger.Warn(ctx, logger.CompSongLink, "lookup",
			slog.String("status", "fail"),
			slog.String("err", err.Error()),
			slog.Duration("duration", time.Since(start)),
		)
		return nil, fmt.Errorf("songlink: request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("songlink: read body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		var er errorResponse
		if json.Unmarshal(body, &er) == nil {
			apiErr.Code = er.Code
		}
		logger.Warn(ctx, logger.CompSongLink, "lookup",
			slog.String("status", "fail"),
			slog.Int("http_code", resp.StatusCode),
			slog.String("api_code", apiErr.Code),
			slog.Duration("duration", time.Since(start)),
		)
		return nil, apiErr
	}

	var lr linksResponse
	if err := json.Unmarshal(body, &lr); err != nil {
		return nil, fmt.Errorf("songlink: decode response: %w", err)
	}
	if lr.PageURL == "" {
		return nil, ErrNoPage
	}

	links := music.Links{music.Self: lr.PageURL}
	for _, s := range music.Services {
		if p, ok := lr.LinksByPlatform[string(s)]; ok && p.URL != "" {
			links[s] = p.URL
		}
	}
	logger.Debug(ctx, logger.CompSongLink, "lookup",
		slog.String("status", "ok"),
		slog.Int("links", len(links)),
		slog.Duration("duration", time.Since(start)),
	)
	return links, nil
}
