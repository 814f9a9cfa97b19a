package domain

import "time"

// SigningIdentity holds the provider credentials used on behalf of one
// organization, along with its cached bearer token. Exactly one identity is
// flagged as the default; organizations with no identity of their own fall
// back to it.
type SigningIdentity struct {
	ID           string
	OrgKey       string
	APIUsername  string
	AccountID    string
	Default      bool
	AccessToken  string
	TokenExpires time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// TokenValid reports whether the cached token can still be used at now.
func (s SigningIdentity) TokenValid(now time.Time) bool {
	return s.AccessToken != "" && s.TokenExpires.After(now)
}
