// Package auth identifies callers from a JWT issued by the identity provider.
// A missing or invalid token yields an anonymous Identity, never an error
// visible to the caller.
package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
)

// DefaultCookieName is the session cookie checked when no Bearer header is sent.
const DefaultCookieName = "idToken"

// jwksPath is the well-known suffix stripped from a JWKS URL to get the issuer.
const jwksPath = "/.well-known/jwks.json"

// Identity is the resolved caller.
type Identity struct {
	Authenticated bool
	Subject       string
	Email         string
}

// Anonymous is the identity of an unauthenticated caller.
var Anonymous = Identity{}

// Config configures an Authenticator.
type Config struct {
	JWKSURL string
	KeyTTL  time.Duration
	// MinRefresh bounds how often an unknown kid can trigger a JWKS fetch.
	MinRefresh time.Duration
	// Issuer defaults to the JWKS URL without its well-known suffix.
	Issuer     string
	Audience   string
	CookieName string
	HTTPClient *http.Client
}

// claims is the token payload we read.
type claims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// Authenticator validates tokens against the identity provider's keys.
type Authenticator struct {
	keys       *KeySet
	parser     *jwt.Parser
	cookieName string
	logger     *zap.Logger
}

// New creates an Authenticator. JWKSURL and Audience are required; the
// issuer must be set or derivable from JWKSURL. Both are always checked.
func New(cfg Config, log *zap.Logger) (*Authenticator, error) {
	if cfg.JWKSURL == "" {
		return nil, errors.New("auth: jwks_url is required")
	}
	if cfg.Audience == "" {
		return nil, errors.New("auth: audience is required")
	}
	issuer := cfg.Issuer
	if issuer == "" {
		issuer = IssuerFromJWKSURL(cfg.JWKSURL)
	}
	if issuer == "" {
		return nil, fmt.Errorf("auth: issuer is required when jwks_url does not end in %s", jwksPath)
	}
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{"RS256", "RS384", "RS512", "ES256", "ES384"}),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(30 * time.Second),
		jwt.WithIssuer(issuer),
		jwt.WithAudience(cfg.Audience),
	}
	cookie := cfg.CookieName
	if cookie == "" {
		cookie = DefaultCookieName
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Authenticator{
		keys:       NewKeySet(cfg.JWKSURL, cfg.KeyTTL, cfg.MinRefresh, cfg.HTTPClient),
		parser:     jwt.NewParser(opts...),
		cookieName: cookie,
		logger:     log,
	}, nil
}

// IssuerFromJWKSURL returns the issuer an OIDC provider publishes keys for,
// or "" when url is not a well-known JWKS location.
func IssuerFromJWKSURL(url string) string {
	issuer, ok := strings.CutSuffix(url, jwksPath)
	if !ok || issuer == "" {
		return ""
	}
	return issuer
}

// Identify resolves the caller of r. Any failure yields Anonymous.
func (a *Authenticator) Identify(r *http.Request) Identity {
	token := a.tokenFrom(r)
	if token == "" {
		return Anonymous
	}
	id, err := a.Verify(r.Context(), token)
	if err != nil {
		a.logger.Debug("Token rejected, continuing anonymously", zap.Error(err))
		return Anonymous
	}
	return id
}

// Verify validates a raw token and returns its identity.
func (a *Authenticator) Verify(ctx context.Context, raw string) (Identity, error) {
	var c claims
	_, err := a.parser.ParseWithClaims(raw, &c, func(t *jwt.Token) (any, error) {
		kid, _ := t.Header["kid"].(string)
		if kid == "" {
			return nil, errors.New("token has no kid")
		}
		return a.keys.Key(ctx, kid)
	})
	if err != nil {
		return Anonymous, fmt.Errorf("verify token: %w", err)
	}
	if c.Subject == "" {
		return Anonymous, errors.New("verify token: missing subject")
	}
	return Identity{Authenticated: true, Subject: c.Subject, Email: c.Email}, nil
}

// tokenFrom prefers the Authorization header over the session cookie.
func (a *Authenticator) tokenFrom(r *http.Request) string {
	if h := r.Header.Get("Authorization"); h != "" {
		scheme, token, ok := strings.Cut(h, " ")
		if ok && strings.EqualFold(scheme, "bearer") {
			return strings.TrimSpace(token)
		}
		return ""
	}
	if c, err := r.Cookie(a.cookieName); err == nil {
		return c.Value
	}
	return ""
}
