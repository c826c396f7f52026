package model

import "github.com/rotisserie/eris"

// Settings holds the provider credentials stored in the settings table
// under the scraper settings key.
type Settings struct {
	TargetronAPIKey       string `json:"targetronApiKey"`
	MillionVerifierAPIKey string `json:"millionVerifierApiKey"`

	// Optional downstream campaign sink credentials.
	InstantlyAPIKey     string `json:"instantlyApiKey,omitempty"`
	InstantlyListID     string `json:"instantlyListId,omitempty"`
	InstantlyCampaignID string `json:"instantlyCampaignId,omitempty"`
}

// RequireTargetron returns the lead provider key or a fatal
// configuration error when it is absent.
func (s *Settings) RequireTargetron() (string, error) {
	if s == nil || s.TargetronAPIKey == "" {
		return "", eris.New("missing Targetron API key in settings")
	}
	return s.TargetronAPIKey, nil
}

// RequireMillionVerifier returns the verification provider key or a
// fatal configuration error when it is absent.
func (s *Settings) RequireMillionVerifier() (string, error) {
	if s == nil || s.MillionVerifierAPIKey == "" {
		return "", eris.New("missing Million Verifier API key in settings")
	}
	return s.MillionVerifierAPIKey, nil
}
