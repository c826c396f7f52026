// Package instantly pushes finished leads into an Instantly outreach
// campaign.
package instantly

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/BlendBerisha/businessscrapper/internal/model"
)

// Credentials identify the target list and campaign.
type Credentials struct {
	APIKey     string
	ListID     string
	CampaignID string
}

// Lead is one outreach contact.
type Lead struct {
	Email           string         `json:"email"`
	CompanyName     string         `json:"company_name"`
	Phone           string         `json:"phone"`
	Website         string         `json:"website"`
	Personalization string         `json:"personalization"`
	FirstName       string         `json:"first_name"`
	LastName        string         `json:"last_name"`
	CustomVariables map[string]any `json:"custom_variables,omitempty"`
}

// leadPayload is the wire shape, adding the list and campaign ids.
type leadPayload struct {
	ListID   string `json:"list_id"`
	Campaign string `json:"campaign"`
	Lead
}

// Option configures the Instantly client.
type Option func(*Client)

// WithBaseURL sets a custom endpoint (for testing).
func WithBaseURL(url string) Option {
	return func(c *Client) {
		c.baseURL = url
	}
}

// Client uploads leads one at a time.
type Client struct {
	creds   Credentials
	baseURL string
	http    *http.Client
}

// NewClient creates an Instantly client for the given credentials.
func NewClient(creds Credentials, opts ...Option) *Client {
	c := &Client{
		creds:   creds,
		baseURL: "https://api.instantly.ai/api/v2/leads",
		http:    &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// AddLead uploads one lead to the configured list and campaign.
func (c *Client) AddLead(ctx context.Context, lead Lead) error {
	if lead.Email == "" {
		return eris.New("instantly: lead has no email")
	}

	body, err := json.Marshal(leadPayload{
		ListID:   c.creds.ListID,
		Campaign: c.creds.CampaignID,
		Lead:     lead,
	})
	if err != nil {
		return eris.Wrap(err, "instantly: encode lead")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, bytes.NewReader(body))
	if err != nil {
		return eris.Wrap(err, "instantly: create request")
	}
	req.Header.Set("Authorization", "Bearer "+c.creds.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return eris.Wrapf(err, "instantly: upload lead %s", lead.Email)
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		text, _ := io.ReadAll(resp.Body)
		return eris.New(fmt.Sprintf("instantly: upload lead %s: status %d: %s", lead.Email, resp.StatusCode, text))
	}
	return nil
}

// AddLeadsFromRecords uploads every record with an email. A failed
// upload never aborts the batch; the caller gets both outcome lists.
func (c *Client) AddLeadsFromRecords(ctx context.Context, records []model.EnrichedRecord) (ok, failed []string) {
	for i := range records {
		r := &records[i]
		if r.Email == "" {
			continue
		}

		lead := Lead{
			Email:           r.Email,
			CompanyName:     orDefault(r.Record.DisplayName, "N/A"),
			Phone:           orDefault(r.Record.Phone, "N/A"),
			Website:         orDefault(r.Record.Site, "N/A"),
			Personalization: fmt.Sprintf("Hello %s, I wanted to connect.", orDefault(r.EmailFirstName, "there")),
			FirstName:       orDefault(r.EmailFirstName, "Unknown"),
			LastName:        orDefault(r.EmailLastName, "Unknown"),
			CustomVariables: map[string]any{
				"display_name": r.Record.DisplayName,
				"first_name":   r.EmailFirstName,
				"last_name":    r.EmailLastName,
			},
		}

		if err := c.AddLead(ctx, lead); err != nil {
			zap.L().Warn("instantly lead upload failed",
				zap.String("email", r.Email),
				zap.Error(err),
			)
			failed = append(failed, r.Email)
			continue
		}
		ok = append(ok, r.Email)
	}

	zap.L().Info("instantly batch finished",
		zap.Int("ok", len(ok)),
		zap.Int("failed", len(failed)),
	)
	return ok, failed
}

func orDefault(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}
