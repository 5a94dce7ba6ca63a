package reddit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/storyforge-labs/storyforge-core/internal/core/domain"
)

const (
	defaultBaseURL  = "https://oauth.reddit.com"
	defaultTokenURL = "https://www.reddit.com/api/v1/access_token"
)

// Client performs authenticated requests against the Reddit API using the
// OAuth2 client-credentials flow. Tokens are cached and refreshed shortly
// before expiry.
type Client struct {
	clientID     string
	clientSecret string
	userAgent    string
	baseURL      string
	tokenURL     string
	httpClient   *http.Client
	maxRetries   int

	mu          sync.Mutex
	accessToken string
	tokenExpiry time.Time
}

// ClientConfig holds the settings for NewClient.
type ClientConfig struct {
	ClientID     string
	ClientSecret string

	// UserAgent identifies this application to Reddit. Required by their
	// API terms; requests with generic agents get aggressively throttled.
	UserAgent string

	// BaseURL and TokenURL override the Reddit endpoints, for tests.
	BaseURL  string
	TokenURL string

	// MaxRetries bounds retries on rate limits and server errors. Zero
	// means the default of 3.
	MaxRetries int

	HTTPClient *http.Client
}

// NewClient creates a new Reddit API client.
func NewClient(cfg ClientConfig) (*Client, error) {
	if cfg.ClientID == "" || cfg.ClientSecret == "" {
		return nil, errors.New("reddit client ID and secret are required")
	}
	if cfg.UserAgent == "" {
		return nil, errors.New("reddit user agent is required")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if cfg.TokenURL == "" {
		cfg.TokenURL = defaultTokenURL
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Timeout: 30 * time.Second}
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}

	return &Client{
		clientID:     cfg.ClientID,
		clientSecret: cfg.ClientSecret,
		userAgent:    cfg.UserAgent,
		baseURL:      strings.TrimSuffix(cfg.BaseURL, "/"),
		tokenURL:     cfg.TokenURL,
		httpClient:   cfg.HTTPClient,
		maxRetries:   cfg.MaxRetries,
	}, nil
}

// token returns a valid access token, refreshing it when needed.
func (c *Client) token(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.accessToken != "" && time.Now().Before(c.tokenExpiry) {
		return c.accessToken, nil
	}

	form := url.Values{"grant_type": {"client_credentials"}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.tokenURL,
		strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("create token request: %w", err)
	}
	req.SetBasicAuth(c.clientID, c.clientSecret)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrSourceUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return "", fmt.Errorf("%w: token endpoint returned %d", domain.ErrSourceAuth, resp.StatusCode)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: token endpoint returned %d", domain.ErrSourceUnavailable, resp.StatusCode)
	}

	var tok struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int    `json:"expires_in"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&tok); err != nil {
		return "", fmt.Errorf("decode token response: %w", err)
	}
	if tok.AccessToken == "" {
		return "", fmt.Errorf("%w: empty access token", domain.ErrSourceAuth)
	}

	c.accessToken = tok.AccessToken
	// Refresh a minute early to avoid racing the expiry.
	c.tokenExpiry = time.Now().Add(time.Duration(tok.ExpiresIn)*time.Second - time.Minute)

	return c.accessToken, nil
}

// get performs an authenticated GET and decodes the JSON response into out.
func (c *Client) get(ctx context.Context, path string, out any) error {
	resp, err := c.doRequest(ctx, path)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response for %s: %w", path, err)
	}
	return nil
}

// doRequest performs an authenticated request with retry on rate limits and
// server errors. HTTP status codes are mapped to domain sentinel errors.
func (c *Client) doRequest(ctx context.Context, path string) (*http.Response, error) {
	token, err := c.token(ctx)
	if err != nil {
		return nil, err
	}

	var resp *http.Response
	for attempt := 0; ; attempt++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
		if err != nil {
			return nil, fmt.Errorf("create request: %w", err)
		}

		req.Header.Set("Authorization", "Bearer "+token)
		req.Header.Set("User-Agent", c.userAgent)

		resp, err = c.httpClient.Do(req)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", domain.ErrSourceUnavailable, err)
		}

		if resp.StatusCode == http.StatusTooManyRequests {
			wait := retryAfter(resp)
			resp.Body.Close()
			if wait > 0 && wait < 2*time.Minute && attempt < c.maxRetries {
				select {
				case <-ctx.Done():
					return nil, ctx.Err()
				case <-time.After(wait):
					continue
				}
			}
			return nil, fmt.Errorf("%w: rate limited", domain.ErrSourceUnavailable)
		}

		// The last attempt's response falls through with its body open so
		// the status switch below can read and close it exactly once.
		if resp.StatusCode < 500 || attempt >= c.maxRetries {
			break
		}

		// Server error, retry with backoff
		resp.Body.Close()
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(time.Duration(attempt+1) * time.Second):
		}
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		resp.Body.Close()
		return nil, fmt.Errorf("%w: status %d for %s", domain.ErrSourceAuth, resp.StatusCode, path)
	case resp.StatusCode == http.StatusNotFound:
		resp.Body.Close()
		return nil, fmt.Errorf("%w: %s", domain.ErrSourceNotFound, path)
	case resp.StatusCode >= 400:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		resp.Body.Close()
		return nil, fmt.Errorf("%w: status %d for %s: %s",
			domain.ErrSourceUnavailable, resp.StatusCode, path, string(body))
	}

	return resp, nil
}

func retryAfter(resp *http.Response) time.Duration {
	header := resp.Header.Get("Retry-After")
	if header == "" {
		header = resp.Header.Get("X-Ratelimit-Reset")
	}
	seconds, err := strconv.ParseFloat(header, 64)
	if err != nil {
		return 0
	}
	return time.Duration(seconds * float64(time.Second))
}
