package model

// VerificationResult is the verification provider's judgment for a
// single email address.
type VerificationResult struct {
	Result     string `json:"result"`
	Quality    string `json:"quality"`
	ResultCode int    `json:"resultcode"`
	Free       bool   `json:"free"`
	Role       bool   `json:"role"`
	Email      string `json:"email"`
}

// deliverableResults are provider result codes that indicate the address
// accepts mail.
var deliverableResults = map[string]bool{
	"ok":        true,
	"valid":     true,
	"catch_all": true,
}

// IsValid reports whether the address is deliverable and not classified
// as risky or unknown.
func (v *VerificationResult) IsValid() bool {
	switch v.Quality {
	case "risky", "unknown":
		return false
	}
	return deliverableResults[v.Result]
}
