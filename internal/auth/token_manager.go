// Package auth manages provider access tokens for signing identities:
// cached bearer tokens with expiry-based refresh, the interactive-consent
// probe, and organization-to-identity resolution.
package auth

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"signtrack/internal/domain"
)

// IdentityStore resolves signing identities and persists their token cache.
type IdentityStore interface {
	GetByOrgKey(ctx context.Context, orgKey string) (*domain.SigningIdentity, error)
	GetDefault(ctx context.Context) (*domain.SigningIdentity, error)
	SaveTokenCache(ctx context.Context, identityID, accessToken string, expiresAt time.Time) error
}

// TokenExchanger performs the signed-assertion exchange against the
// provider's authorization endpoint. Implementations return
// domain.ErrConsentRequired when the provider demands interactive consent.
type TokenExchanger interface {
	ExchangeJWTAssertion(ctx context.Context, apiUsername string, scopes []string, privateKey []byte) (string, error)
}

type ManagerConfig struct {
	AuthServerHost string
	ClientID       string
	// PrivateKey is either a path to a PEM file or the PEM material itself
	// with escaped newlines.
	PrivateKey  string
	RedirectURI string
	TokenTTL    time.Duration
}

type Manager struct {
	cfg        ManagerConfig
	identities IdentityStore
	exchanger  TokenExchanger
	log        *zap.Logger
	now        func() time.Time

	mu      sync.Mutex
	refresh map[string]*sync.Mutex
}

func NewManager(cfg ManagerConfig, identities IdentityStore, exchanger TokenExchanger, log *zap.Logger) *Manager {
	if log == nil {
		log = zap.NewNop()
	}
	if cfg.TokenTTL <= 0 {
		cfg.TokenTTL = time.Hour
	}
	return &Manager{
		cfg:        cfg,
		identities: identities,
		exchanger:  exchanger,
		log:        log,
		now:        time.Now,
		refresh:    make(map[string]*sync.Mutex),
	}
}

// ResolveIdentity returns the identity stored for the organization, falling
// back to the designated default identity. Returns domain.ErrNotFound when
// neither exists.
func (m *Manager) ResolveIdentity(ctx context.Context, orgKey string) (*domain.SigningIdentity, error) {
	ident, err := m.identities.GetByOrgKey(ctx, orgKey)
	if err == nil {
		return ident, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}
	ident, err = m.identities.GetDefault(ctx)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("%w: no identity for org %q and no default identity", domain.ErrNotFound, orgKey)
		}
		return nil, err
	}
	return ident, nil
}

// GetAccessToken returns the identity's cached bearer token when it has not
// expired, otherwise performs one assertion exchange, caches the new token
// with a fresh expiry, and returns it. At most one refresh per identity is
// in flight at a time.
func (m *Manager) GetAccessToken(ctx context.Context, ident *domain.SigningIdentity) (string, error) {
	lock := m.refreshLock(ident.ID)
	lock.Lock()
	defer lock.Unlock()

	if ident.TokenValid(m.now()) {
		return ident.AccessToken, nil
	}

	token, err := m.exchange(ctx, ident)
	if err != nil {
		return "", err
	}

	expiresAt := m.now().Add(m.cfg.TokenTTL)
	if err := m.identities.SaveTokenCache(ctx, ident.ID, token, expiresAt); err != nil {
		return "", fmt.Errorf("cache token for identity %s: %w", ident.ID, err)
	}
	ident.AccessToken = token
	ident.TokenExpires = expiresAt

	m.log.Debug("access token refreshed",
		zap.String("identity_id", ident.ID),
		zap.Time("expires_at", expiresAt))
	return token, nil
}

// CheckConsent probes whether the organization's identity still needs an
// interactive consent grant. It returns a consent URL when the provider
// demands consent and the empty string when no consent is needed. The probe
// never returns a token; any exchange failure other than the consent branch
// is reported as domain.ErrAuth.
func (m *Manager) CheckConsent(ctx context.Context, orgKey string) (string, error) {
	ident, err := m.ResolveIdentity(ctx, orgKey)
	if err != nil {
		return "", err
	}
	_, err = m.exchange(ctx, ident)
	if err == nil {
		return "", nil
	}
	if errors.Is(err, domain.ErrConsentRequired) {
		scopes := withImpersonation([]string{ScopeSignature})
		return BuildConsentURL(m.cfg.AuthServerHost, scopes, m.cfg.ClientID, m.cfg.RedirectURI), nil
	}
	if errors.Is(err, domain.ErrTransport) {
		return "", err
	}
	return "", fmt.Errorf("%w: consent probe for org %q: %v", domain.ErrAuth, orgKey, err)
}

func (m *Manager) exchange(ctx context.Context, ident *domain.SigningIdentity) (string, error) {
	key, err := m.privateKey()
	if err != nil {
		return "", err
	}
	scopes := withImpersonation([]string{ScopeSignature})
	return m.exchanger.ExchangeJWTAssertion(ctx, ident.APIUsername, scopes, key)
}

// privateKey resolves the configured key value: a readable file path wins,
// anything else is treated as inline PEM with escaped newlines.
func (m *Manager) privateKey() ([]byte, error) {
	if info, err := os.Stat(m.cfg.PrivateKey); err == nil && !info.IsDir() {
		data, err := os.ReadFile(m.cfg.PrivateKey)
		if err != nil {
			return nil, fmt.Errorf("%w: read private key file: %v", domain.ErrTransport, err)
		}
		return data, nil
	}
	unescaped := strings.ReplaceAll(m.cfg.PrivateKey, `\n`, "\n")
	return []byte(unescaped), nil
}

func (m *Manager) refreshLock(identityID string) *sync.Mutex {
	m.mu.Lock()
	defer m.mu.Unlock()
	lock, ok := m.refresh[identityID]
	if !ok {
		lock = &sync.Mutex{}
		m.refresh[identityID] = lock
	}
	return lock
}
