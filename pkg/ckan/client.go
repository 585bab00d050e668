// Package ckan provides a minimal client for the CKAN action API
// (package_search and package_show).
package ckan

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"
)

// DefaultBaseURL points at the dati.gov.it CKAN action API.
const DefaultBaseURL = "https://dati.gov.it/opendata/api/3/action"

// Client talks to a CKAN catalog.
type Client interface {
	// SearchPackages runs package_search with the given keyword and returns
	// matched packages in the catalog's relevance order.
	SearchPackages(ctx context.Context, keyword string, rows int) ([]Package, error)

	// ShowPackage runs package_show for a single package id.
	ShowPackage(ctx context.Context, packageID string) (*Package, error)
}

// Option configures the client.
type Option func(*client)

// WithBaseURL overrides the CKAN action API base URL.
func WithBaseURL(baseURL string) Option {
	return func(c *client) {
		c.baseURL = baseURL
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *client) {
		c.httpClient = hc
	}
}

// WithUserAgent sets the User-Agent header sent on every request.
func WithUserAgent(ua string) Option {
	return func(c *client) {
		c.userAgent = ua
	}
}

// WithRateLimit sets the requests-per-second limit for catalog calls.
func WithRateLimit(rps float64) Option {
	return func(c *client) {
		c.limiter = rate.NewLimiter(rate.Limit(rps), burstFor(rps))
	}
}

// burstFor sizes the limiter burst from the configured rate. Rates below
// one request per second still need a burst of one or Wait never admits a
// request.
func burstFor(rps float64) int {
	if rps < 1 {
		return 1
	}
	return int(rps)
}

type client struct {
	baseURL    string
	httpClient *http.Client
	userAgent  string
	limiter    *rate.Limiter
}

// NewClient creates a CKAN client with the given options.
func NewClient(opts ...Option) Client {
	c := &client{
		baseURL:    DefaultBaseURL,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		userAgent:  "opendata-cli/1.0",
		limiter:    rate.NewLimiter(5, 5),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *client) SearchPackages(ctx context.Context, keyword string, rows int) ([]Package, error) {
	if rows <= 0 {
		rows = 100
	}
	params := url.Values{
		"q":    {keyword},
		"rows": {strconv.Itoa(rows)},
	}

	body, err := c.get(ctx, "package_search", params)
	if err != nil {
		return nil, err
	}

	var resp searchResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, eris.Wrap(err, "ckan: parse package_search response")
	}
	if !resp.Success {
		return nil, eris.New("ckan: package_search reported failure")
	}

	return resp.Result.Results, nil
}

func (c *client) ShowPackage(ctx context.Context, packageID string) (*Package, error) {
	params := url.Values{"id": {packageID}}

	body, err := c.get(ctx, "package_show", params)
	if err != nil {
		return nil, err
	}

	var resp showResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, eris.Wrap(err, "ckan: parse package_show response")
	}
	if !resp.Success {
		return nil, eris.Errorf("ckan: package_show reported failure for %s", packageID)
	}

	return &resp.Result, nil
}

func (c *client) get(ctx context.Context, action string, params url.Values) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, eris.Wrap(err, "ckan: rate limit")
	}

	reqURL := c.baseURL + "/" + action + "?" + params.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, eris.Wrapf(err, "ckan: build %s request", action)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, eris.Wrapf(err, "ckan: %s request", action)
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		return nil, eris.Errorf("ckan: %s returned status %d", action, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrapf(err, "ckan: read %s body", action)
	}

	return body, nil
}
