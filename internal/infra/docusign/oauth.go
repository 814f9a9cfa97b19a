// Package docusign is the outbound transport collaborator for the
// e-signature provider's OAuth endpoints.
package docusign

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"signtrack/internal/domain"
)

const assertionLifetime = time.Hour

// OAuthClient exchanges a signed JWT assertion for a bearer token at the
// provider's authorization server.
type OAuthClient struct {
	httpClient *http.Client
	clientID   string
	// baseURL is https://<auth-server-host> unless overridden for tests.
	baseURL        string
	authServerHost string
	now            func() time.Time
}

func NewOAuthClient(authServerHost, clientID string) *OAuthClient {
	return &OAuthClient{
		httpClient:     &http.Client{Timeout: 30 * time.Second},
		clientID:       clientID,
		baseURL:        "https://" + authServerHost,
		authServerHost: authServerHost,
		now:            time.Now,
	}
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
}

// ExchangeJWTAssertion signs an RS256 assertion for the given API user and
// posts it to the token endpoint. Returns domain.ErrConsentRequired when the
// provider rejects the exchange pending interactive consent,
// domain.ErrTransport on network failure, and domain.ErrAuth for any other
// provider rejection.
func (c *OAuthClient) ExchangeJWTAssertion(ctx context.Context, apiUsername string, scopes []string, privateKey []byte) (string, error) {
	key, err := jwt.ParseRSAPrivateKeyFromPEM(privateKey)
	if err != nil {
		return "", fmt.Errorf("%w: parse private key: %v", domain.ErrTransport, err)
	}

	now := c.now()
	claims := jwt.MapClaims{
		"iss":   c.clientID,
		"sub":   apiUsername,
		"aud":   c.authServerHost,
		"iat":   now.Unix(),
		"exp":   now.Add(assertionLifetime).Unix(),
		"scope": strings.Join(scopes, " "),
	}
	assertion, err := jwt.NewWithClaims(jwt.SigningMethodRS256, claims).SignedString(key)
	if err != nil {
		return "", fmt.Errorf("%w: sign assertion: %v", domain.ErrTransport, err)
	}

	form := url.Values{}
	form.Set("grant_type", "urn:ietf:params:oauth:grant-type:jwt-bearer")
	form.Set("assertion", assertion)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/oauth/token", strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("%w: build token request: %v", domain.ErrTransport, err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: token endpoint: %v", domain.ErrTransport, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("%w: read token response: %v", domain.ErrTransport, err)
	}

	if resp.StatusCode != http.StatusOK {
		if strings.Contains(string(body), "consent_required") {
			return "", domain.ErrConsentRequired
		}
		return "", fmt.Errorf("%w: token endpoint returned %d: %s", domain.ErrAuth, resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var token tokenResponse
	if err := json.Unmarshal(body, &token); err != nil {
		return "", fmt.Errorf("%w: decode token response: %v", domain.ErrAuth, err)
	}
	if token.AccessToken == "" {
		return "", fmt.Errorf("%w: token response missing access_token", domain.ErrAuth)
	}
	return token.AccessToken, nil
}
