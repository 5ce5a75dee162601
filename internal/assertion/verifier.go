// Package assertion authenticates the citizen behind a request from the
// identity assertion (a JWT) issued by the login gateway.
package assertion

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"wmoned/pkg/domain"
	dErrors "wmoned/pkg/domain-errors"
)

// Config describes how assertions are checked. Exactly one of PublicKeyPEM
// and HMACSecret is needed when VerifySignature is set.
type Config struct {
	// PublicKeyPEM is the gateway's RSA public key or certificate.
	PublicKeyPEM []byte
	HMACSecret   []byte
	// VerifySignature false accepts unsigned or foreign-signed assertions.
	// Development only.
	VerifySignature bool
	Issuer          string
	Audience        string
	Leeway          time.Duration
}

// Claims is what the adapter needs from an assertion.
type Claims struct {
	BSN       domain.BSN
	JTI       string
	ExpiresAt time.Time
}

type assertionClaims struct {
	BSN string `json:"bsn"`
	jwt.RegisteredClaims
}

// Verifier validates assertions. Safe for concurrent use.
type Verifier struct {
	key             any
	methods         []string
	verifySignature bool
	issuer          string
	audience        string
	leeway          time.Duration
	now             func() time.Time
}

// VerifierOption configures a Verifier.
type VerifierOption func(*Verifier)

// WithClock sets the time source, for tests.
func WithClock(now func() time.Time) VerifierOption {
	return func(v *Verifier) {
		if now != nil {
			v.now = now
		}
	}
}

func NewVerifier(cfg Config, opts ...VerifierOption) (*Verifier, error) {
	v := &Verifier{
		verifySignature: cfg.VerifySignature,
		issuer:          cfg.Issuer,
		audience:        cfg.Audience,
		leeway:          cfg.Leeway,
		now:             time.Now,
	}
	switch {
	case len(cfg.PublicKeyPEM) > 0:
		key, err := jwt.ParseRSAPublicKeyFromPEM(cfg.PublicKeyPEM)
		if err != nil {
			return nil, fmt.Errorf("parse assertion public key: %w", err)
		}
		v.key = key
		v.methods = []string{"RS256", "RS384", "RS512"}
	case len(cfg.HMACSecret) > 0:
		v.key = cfg.HMACSecret
		v.methods = []string{"HS256", "HS384", "HS512"}
	case cfg.VerifySignature:
		return nil, errors.New("assertion verification needs a public key or a shared secret")
	}
	for _, opt := range opts {
		if opt != nil {
			opt(v)
		}
	}
	return v, nil
}

// Verify validates token and returns its claims. Every failure is a
// CodeUnauthorized error.
func (v *Verifier) Verify(token string) (*Claims, error) {
	var c assertionClaims
	if v.verifySignature {
		if err := v.parseVerified(token, &c); err != nil {
			return nil, err
		}
	} else {
		if err := v.parseUnverified(token, &c); err != nil {
			return nil, err
		}
	}

	raw := c.BSN
	if raw == "" {
		raw = c.Subject
	}
	bsn, err := domain.ParseBSN(raw)
	if err != nil {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "assertion carries no valid bsn")
	}

	claims := &Claims{BSN: bsn, JTI: c.ID}
	if c.ExpiresAt != nil {
		claims.ExpiresAt = c.ExpiresAt.Time
	}
	return claims, nil
}

func (v *Verifier) parseVerified(token string, c *assertionClaims) error {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods(v.methods),
		jwt.WithLeeway(v.leeway),
		jwt.WithTimeFunc(v.now),
	}
	if v.issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.issuer))
	}
	if v.audience != "" {
		opts = append(opts, jwt.WithAudience(v.audience))
	}

	parsed, err := jwt.ParseWithClaims(token, c, func(t *jwt.Token) (any, error) {
		return v.key, nil
	}, opts...)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return dErrors.New(dErrors.CodeUnauthorized, "assertion has expired")
		}
		return dErrors.New(dErrors.CodeUnauthorized, "invalid assertion")
	}
	if !parsed.Valid {
		return dErrors.New(dErrors.CodeUnauthorized, "invalid assertion")
	}
	return nil
}

// parseUnverified still rejects expired assertions.
func (v *Verifier) parseUnverified(token string, c *assertionClaims) error {
	if _, _, err := jwt.NewParser().ParseUnverified(token, c); err != nil {
		return dErrors.New(dErrors.CodeUnauthorized, "invalid assertion")
	}
	if c.ExpiresAt != nil && v.now().After(c.ExpiresAt.Add(v.leeway)) {
		return dErrors.New(dErrors.CodeUnauthorized, "assertion has expired")
	}
	return nil
}
