// Package millionverifier provides a client for the MillionVerifier
// single-email verification API.
package millionverifier

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/rotisserie/eris"

	"github.com/BlendBerisha/businessscrapper/internal/model"
)

// Client verifies a single email address per call.
type Client interface {
	Verify(ctx context.Context, email string) (*model.VerificationResult, error)
}

// Option configures the MillionVerifier client.
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

type httpClient struct {
	apiKey  string
	baseURL string
	timeout time.Duration
	http    *http.Client
}

// NewClient creates a MillionVerifier client authenticated by apiKey.
func NewClient(apiKey string, opts ...Option) Client {
	c := &httpClient{
		apiKey:  apiKey,
		baseURL: "https://api.millionverifier.com",
		timeout: 15 * time.Second,
		http:    &http.Client{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *httpClient) Verify(ctx context.Context, email string) (*model.VerificationResult, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	values := url.Values{
		"api":   {c.apiKey},
		"email": {email},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		c.baseURL+"/api/v3/?"+values.Encode(), nil)
	if err != nil {
		return nil, eris.Wrap(err, "millionverifier: create request")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, eris.Wrapf(err, "millionverifier: verify %s", email)
	}
	defer resp.Body.Close() //nolint:errcheck

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "millionverifier: read response")
	}
	if resp.StatusCode != http.StatusOK {
		return nil, eris.New(fmt.Sprintf("millionverifier: status %d: %s", resp.StatusCode, body))
	}

	var result model.VerificationResult
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, eris.Wrap(err, "millionverifier: decode response")
	}
	return &result, nil
}
