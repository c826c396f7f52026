// Package targetron provides a client for the Targetron business lead
// data API: an estimate (count) endpoint and a paginated data endpoint.
package targetron

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/rotisserie/eris"

	"github.com/BlendBerisha/businessscrapper/internal/model"
)

// Query holds the location and business-type filters shared by both
// endpoints.
type Query struct {
	Country      string
	City         string
	State        string
	PostalCode   string
	BusinessType string
}

// Client defines the lead provider operations.
type Client interface {
	// Estimate returns the number of records matching the query.
	Estimate(ctx context.Context, q Query) (int, error)
	// FetchPlaces returns up to limit matching records, skipping the
	// first skip.
	FetchPlaces(ctx context.Context, q Query, limit, skip int) ([]model.RawRecord, error)
}

// APIError is returned for non-2xx provider responses.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("targetron: status %d: %s", e.StatusCode, e.Body)
}

// IsTransient reports whether err signals a transient upstream condition
// worth retrying (HTTP 503 only).
func IsTransient(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusServiceUnavailable
}

// Option configures the Targetron client.
type Option func(*httpClient)

// WithBaseURL sets a custom base URL (for testing).
func WithBaseURL(url string) Option {
	return func(c *httpClient) {
		c.baseURL = url
	}
}

// WithTimeout overrides the per-call timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *httpClient) {
		c.timeout = d
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

type httpClient struct {
	apiKey  string
	baseURL string
	timeout time.Duration
	http    *http.Client
}

// NewClient creates a Targetron client authenticated by apiKey.
func NewClient(apiKey string, opts ...Option) Client {
	c := &httpClient{
		apiKey:  apiKey,
		baseURL: "https://dahab.app.outscraper.com",
		timeout: 5 * time.Second,
		http: &http.Client{
			Transport: &http.Transport{
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// estimateResponse is the parsed count endpoint payload.
type estimateResponse struct {
	Total int `json:"total"`
}

// dataResponse is the parsed data endpoint payload.
type dataResponse struct {
	Data []model.RawRecord `json:"data"`
}

func (q Query) values() url.Values {
	return url.Values{
		"cc":         {q.Country},
		"city":       {q.City},
		"state":      {q.State},
		"postalCode": {q.PostalCode},
		"type":       {q.BusinessType},
	}
}

func (c *httpClient) Estimate(ctx context.Context, q Query) (int, error) {
	body, err := c.get(ctx, "/estimate/places", q.values())
	if err != nil {
		return 0, eris.Wrap(err, "targetron: estimate")
	}

	var resp estimateResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return 0, eris.Wrap(err, "targetron: decode estimate")
	}
	return resp.Total, nil
}

func (c *httpClient) FetchPlaces(ctx context.Context, q Query, limit, skip int) ([]model.RawRecord, error) {
	values := q.values()
	values.Set("limit", fmt.Sprintf("%d", limit))
	values.Set("skip", fmt.Sprintf("%d", skip))

	body, err := c.get(ctx, "/data/places", values)
	if err != nil {
		return nil, eris.Wrap(err, "targetron: fetch places")
	}

	var resp dataResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, eris.Wrap(err, "targetron: decode places")
	}
	return resp.Data, nil
}

// get performs one GET with the client's per-call timeout. Each call is
// bounded independently; exceeding the timeout aborts only that call.
func (c *httpClient) get(ctx context.Context, path string, values url.Values) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		c.baseURL+path+"?"+values.Encode(), nil)
	if err != nil {
		return nil, eris.Wrap(err, "create request")
	}
	req.Header.Set("X-API-KEY", c.apiKey)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close() //nolint:errcheck

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "read response")
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &APIError{StatusCode: resp.StatusCode, Body: string(body)}
	}
	return body, nil
}
