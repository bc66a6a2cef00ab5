package token

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	apperrors "github.com/jrsteele09/go-sso-server/internal/errors"
	"github.com/jrsteele09/go-sso-server/token/keys"
)

// Claims carried by access tokens. TenantID and Role are only set on tokens minted
// for an app session.
type Claims struct {
	jwt.RegisteredClaims
	Email    string `json:"email,omitempty"`
	TenantID string `json:"tid,omitempty"`
	Role     string `json:"role,omitempty"`
	ClientID string `json:"client_id,omitempty"`
}

// AppScoped reports whether the token was minted for an app by the code
// exchange rather than for the portal.
func (c *Claims) AppScoped() bool {
	return c.TenantID != ""
}

// Issuer signs and verifies RS256 access tokens with a single active key.
// Until LoadKey is called every operation fails with ErrKeystoreNotInitialized.
type Issuer struct {
	issuer   string
	audience string
	signer   atomic.Pointer[keys.KeyPairSigner]
	nowFunc  func() time.Time
}

type IssuerOption func(*Issuer)

func WithNowFunc(now func() time.Time) IssuerOption {
	return func(i *Issuer) {
		i.nowFunc = now
	}
}

func NewIssuer(issuer, audience string, options ...IssuerOption) *Issuer {
	i := &Issuer{
		issuer:   issuer,
		audience: audience,
		nowFunc:  time.Now,
	}
	for _, opt := range options {
		opt(i)
	}
	return i
}

// LoadKey installs kp as the active signing key.
func (i *Issuer) LoadKey(kp *keys.KeyPair) error {
	if kp == nil || kp.PrivateKey == nil {
		return fmt.Errorf("[Issuer LoadKey] key pair is required")
	}
	i.signer.Store(keys.NewKeyPairSigner(kp))
	return nil
}

// Ready reports whether a signing key has been loaded.
func (i *Issuer) Ready() error {
	if i.signer.Load() == nil {
		return apperrors.ErrKeystoreNotInitialized
	}
	return nil
}

func (i *Issuer) KeyID() string {
	if s := i.signer.Load(); s != nil {
		return s.KeyID()
	}
	return ""
}

func (i *Issuer) Issuer() string {
	return i.issuer
}

func (i *Issuer) Audience() string {
	return i.audience
}

// Issue stamps iss, aud, iat, nbf, exp and jti onto claims and signs them.
func (i *Issuer) Issue(claims Claims, ttl time.Duration) (string, error) {
	signer := i.signer.Load()
	if signer == nil {
		return "", apperrors.ErrKeystoreNotInitialized
	}
	if ttl <= 0 {
		return "", fmt.Errorf("[Issuer Issue] ttl must be positive")
	}

	now := i.nowFunc()
	claims.Issuer = i.issuer
	claims.Audience = jwt.ClaimStrings{i.audience}
	claims.IssuedAt = jwt.NewNumericDate(now)
	claims.NotBefore = jwt.NewNumericDate(now)
	claims.ExpiresAt = jwt.NewNumericDate(now.Add(ttl))
	if claims.ID == "" {
		claims.ID = uuid.New().String()
	}

	signed, err := signer.Sign(claims)
	if err != nil {
		return "", fmt.Errorf("[Issuer Issue] %w", err)
	}
	return signed, nil
}

// Verify checks signature, algorithm, kid, issuer, audience and expiry.
func (i *Issuer) Verify(raw string) (*Claims, error) {
	signer := i.signer.Load()
	if signer == nil {
		return nil, apperrors.ErrKeystoreNotInitialized
	}

	claims := &Claims{}
	token, err := jwt.ParseWithClaims(raw, claims, signer.GetVerificationKey,
		jwt.WithValidMethods([]string{keys.RS256}),
		jwt.WithIssuer(i.issuer),
		jwt.WithAudience(i.audience),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(i.nowFunc),
	)
	if err != nil || !token.Valid {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrInvalidToken, err)
	}
	return claims, nil
}

// PublishJWKS returns the public key set containing exactly the active key.
func (i *Issuer) PublishJWKS() (keys.JWKS, error) {
	signer := i.signer.Load()
	if signer == nil {
		return keys.JWKS{}, apperrors.ErrKeystoreNotInitialized
	}
	return signer.JWKS(), nil
}
