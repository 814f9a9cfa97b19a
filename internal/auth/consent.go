package auth

import (
	"net/url"
	"strings"
)

// ScopeSignature is the base scope requested for every token exchange.
const ScopeSignature = "signature"

// ScopeImpersonation is required for assertion-based exchanges; consent URLs
// always carry it.
const ScopeImpersonation = "impersonation"

// BuildConsentURL constructs the authorization-code redirect an operator must
// visit to grant consent for a signing identity. The impersonation scope is
// appended when the caller did not request it; duplicates are removed.
func BuildConsentURL(authServerHost string, scopes []string, clientID, redirectURI string) string {
	q := url.Values{}
	q.Set("response_type", "code")
	q.Set("scope", strings.Join(withImpersonation(scopes), " "))
	q.Set("client_id", clientID)
	q.Set("redirect_uri", redirectURI)

	u := url.URL{
		Scheme:   "https",
		Host:     authServerHost,
		Path:     "/oauth/auth",
		RawQuery: q.Encode(),
	}
	return u.String()
}

func withImpersonation(scopes []string) []string {
	out := make([]string, 0, len(scopes)+1)
	seen := make(map[string]struct{}, len(scopes)+1)
	for _, scope := range scopes {
		if _, ok := seen[scope]; ok {
			continue
		}
		seen[scope] = struct{}{}
		out = append(out, scope)
	}
	if _, ok := seen[ScopeImpersonation]; !ok {
		out = append(out, ScopeImpersonation)
	}
	return out
}
