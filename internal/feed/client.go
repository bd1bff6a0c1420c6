// Package feed fetches upstream match records and adapts them into typed matches.
package feed

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rewired-gh/oddsaudit/internal/logger"
	"github.com/rewired-gh/oddsaudit/internal/models"
)

// Client provides access to the upstream match feed
type Client struct {
	baseURL      string
	httpClient   *http.Client
	config       ClientConfig
	mockFallback bool
	now          func() time.Time
}

// ClientConfig tunes retries and connection pooling.
type ClientConfig struct {
	MaxRetries          int
	RetryDelayBase      time.Duration
	MaxIdleConns        int
	MaxIdleConnsPerHost int
	IdleConnTimeout     time.Duration
	MockFallback        bool
}

// NewClient creates a new feed client
func NewClient(baseURL string, timeout time.Duration, cfg ClientConfig) *Client {
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}
	if cfg.RetryDelayBase <= 0 {
		cfg.RetryDelayBase = time.Second
	}
	transport := &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		MaxIdleConns:        cfg.MaxIdleConns,
		MaxIdleConnsPerHost: cfg.MaxIdleConnsPerHost,
		IdleConnTimeout:     cfg.IdleConnTimeout,
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout:   timeout,
			Transport: transport,
		},
		config:       cfg,
		mockFallback: cfg.MockFallback,
		now:          time.Now,
	}
}

// FetchMatches retrieves and adapts matches for every league.
// Records that fail adaptation are logged and skipped. A league that fails or returns nothing
// is replaced by sample matches when mock fallback is on. An error is returned only when
// every league failed.
func (c *Client) FetchMatches(ctx context.Context, leagueIDs []string) ([]models.Match, error) {
	var matches []models.Match
	var errs []error

	for _, leagueID := range leagueIDs {
		leagueMatches, err := c.fetchLeague(ctx, leagueID)
		if err != nil {
			if ctx.Err() != nil {
				return nil, fmt.Errorf("failed to fetch league %s: %w", leagueID, ctx.Err())
			}
			logger.Warn("Failed to fetch league %s: %v", leagueID, err)
			if !c.mockFallback {
				errs = append(errs, fmt.Errorf("league %s: %w", leagueID, err))
				continue
			}
		}
		if len(leagueMatches) == 0 && c.mockFallback {
			logger.Debug("No upstream matches for league %s, using sample matches", leagueID)
			leagueMatches = MockMatches([]string{leagueID}, c.now())
		}
		matches = append(matches, leagueMatches...)
	}

	if len(errs) > 0 && len(errs) == len(leagueIDs) {
		return nil, fmt.Errorf("failed to fetch matches: %w", errors.Join(errs...))
	}
	return matches, nil
}

func (c *Client) fetchLeague(ctx context.Context, leagueID string) ([]models.Match, error) {
	u, err := url.Parse(c.baseURL + "/matches")
	if err != nil {
		return nil, fmt.Errorf("failed to parse URL: %w", err)
	}
	q := u.Query()
	q.Set("league", leagueID)
	u.RawQuery = q.Encode()

	resp, err := c.doRequest(ctx, u.String())
	if err != nil {
		return nil, fmt.Errorf("failed to fetch matches: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status: %d", resp.StatusCode)
	}

	raws, err := DecodeMatches(resp.Body)
	if err != nil {
		return nil, err
	}

	matches := make([]models.Match, 0, len(raws))
	for i, raw := range raws {
		m, err := ToMatch(raw)
		if err != nil {
			logger.Warn("Skipping record %d of league %s: %v", i, leagueID, err)
			continue
		}
		if m.LeagueID == "" {
			m.LeagueID = leagueID
		}
		matches = append(matches, m)
	}
	return matches, nil
}

// doRequest performs an HTTP GET with linear-backoff retry on transport errors and 5xx responses.
func (c *Client) doRequest(ctx context.Context, urlStr string) (*http.Response, error) {
	var lastErr error

	for i := 0; i < c.config.MaxRetries; i++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, urlStr, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Accept", "application/json")

		resp, err := c.httpClient.Do(req)
		switch {
		case err != nil:
			lastErr = err
		case resp.StatusCode >= 500:
			resp.Body.Close()
			lastErr = fmt.Errorf("server error: %d", resp.StatusCode)
		default:
			return resp, nil
		}

		if i == c.config.MaxRetries-1 {
			break
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(c.config.RetryDelayBase * time.Duration(i+1)):
		}
	}

	return nil, fmt.Errorf("max retries exceeded: %w", lastErr)
}
