// Package appclient is what a downstream app backend links against to redeem
// authorization codes and verify access tokens issued by the SSO server.
package appclient

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/coreos/go-oidc/v3/oidc"
	apperrors "github.com/jrsteele09/go-sso-server/internal/errors"
	"golang.org/x/oauth2"
)

const (
	tokenPath = "/oauth2/token"
	jwksPath  = "/.well-known/jwks.json"
)

type Config struct {
	// BaseURL is where the SSO server is reachable, e.g. https://sso.example.com.
	BaseURL string
	// Issuer and Audience must match the server's JWT_ISSUER and JWT_AUDIENCE.
	Issuer   string
	Audience string
	// AppID is the registered app this backend acts as.
	AppID       string
	RedirectURI string
	HTTPClient  *http.Client
}

// Identity is the result of a successful code exchange.
type Identity struct {
	UserID      string
	TenantID    string
	AppID       string
	Role        string
	Email       string
	Name        string
	AccessToken string
	Expiry      time.Time
}

// Claims are the access token claims an app backend cares about.
type Claims struct {
	Subject  string    `json:"sub"`
	Email    string    `json:"email"`
	TenantID string    `json:"tid"`
	Role     string    `json:"role"`
	ClientID string    `json:"client_id"`
	Audience []string  `json:"-"`
	Expiry   time.Time `json:"-"`
}

type Client struct {
	oauth    *oauth2.Config
	verifier *oidc.IDTokenVerifier
	http     *http.Client
}

// New builds a client. The JWKS is fetched lazily on first verification and
// refetched when an unknown kid is seen.
func New(ctx context.Context, cfg Config) (*Client, error) {
	base := strings.TrimRight(cfg.BaseURL, "/")
	if base == "" {
		return nil, errors.New("[appclient New] BaseURL is required")
	}
	if cfg.AppID == "" {
		return nil, errors.New("[appclient New] AppID is required")
	}
	if cfg.Issuer == "" {
		cfg.Issuer = base
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}

	keyCtx := oidc.ClientContext(context.WithoutCancel(ctx), httpClient)
	keySet := oidc.NewRemoteKeySet(keyCtx, base+jwksPath)

	return &Client{
		oauth: &oauth2.Config{
			ClientID:    cfg.AppID,
			RedirectURL: cfg.RedirectURI,
			Endpoint: oauth2.Endpoint{
				TokenURL:  base + tokenPath,
				AuthStyle: oauth2.AuthStyleInParams,
			},
		},
		verifier: oidc.NewVerifier(cfg.Issuer, keySet, &oidc.Config{
			ClientID:             cfg.Audience,
			SkipClientIDCheck:    cfg.Audience == "",
			SupportedSigningAlgs: []string{oidc.RS256},
		}),
		http: httpClient,
	}, nil
}

// Exchange redeems a one-time code. Errors reported by the server are returned
// wrapping the matching sentinel from internal/errors when there is one.
func (c *Client) Exchange(ctx context.Context, code string) (*Identity, error) {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, c.http)
	tok, err := c.oauth.Exchange(ctx, code)
	if err != nil {
		var re *oauth2.RetrieveError
		if errors.As(err, &re) {
			if sentinel := apperrors.FromCode(re.ErrorCode); sentinel != nil {
				return nil, fmt.Errorf("[appclient Exchange] %s: %w", re.ErrorDescription, sentinel)
			}
		}
		return nil, fmt.Errorf("[appclient Exchange] %w", err)
	}

	return &Identity{
		UserID:      extra(tok, "user_id"),
		TenantID:    extra(tok, "tenant_id"),
		AppID:       extra(tok, "app_id"),
		Role:        extra(tok, "role"),
		Email:       extra(tok, "email"),
		Name:        extra(tok, "name"),
		AccessToken: tok.AccessToken,
		Expiry:      tok.Expiry,
	}, nil
}

// Verify checks an access token's signature against the server's JWKS along
// with its issuer, audience and expiry.
func (c *Client) Verify(ctx context.Context, rawAccessToken string) (*Claims, error) {
	ctx = oidc.ClientContext(ctx, c.http)
	tok, err := c.verifier.Verify(ctx, rawAccessToken)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrInvalidToken, err)
	}
	var claims Claims
	if err := tok.Claims(&claims); err != nil {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrInvalidToken, err)
	}
	claims.Audience = tok.Audience
	claims.Expiry = tok.Expiry
	return &claims, nil
}

func extra(tok *oauth2.Token, key string) string {
	v, _ := tok.Extra(key).(string)
	return v
}
