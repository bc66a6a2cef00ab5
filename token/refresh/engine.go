package refresh

import (
	"context"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/jrsteele09/go-sso-server/internal/config"
	apperrors "github.com/jrsteele09/go-sso-server/internal/errors"
	"github.com/jrsteele09/go-sso-server/internal/logging"
	"github.com/jrsteele09/go-sso-server/internal/metrics"
	"github.com/jrsteele09/go-sso-server/internal/securetoken"
	"github.com/jrsteele09/go-sso-server/token"
)

const TokenTypeBearer = "Bearer"

// AccessTokenMinter signs access tokens. *token.Issuer satisfies it.
type AccessTokenMinter interface {
	Issue(claims token.Claims, ttl time.Duration) (string, error)
}

// Meta is request metadata recorded against new refresh tokens.
type Meta struct {
	IP        string
	UserAgent string
}

// Pair is returned to the client after signin or rotation.
type Pair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"`
	TokenType    string `json:"token_type"`
}

// Engine issues, rotates and revokes refresh tokens.
type Engine struct {
	repo        Repo
	minter      AccessTokenMinter
	accessTTL   time.Duration
	refreshTTL  time.Duration
	tokenLength int
	nowFunc     func() time.Time
}

type EngineOption func(*Engine)

func WithNowFunc(now func() time.Time) EngineOption {
	return func(e *Engine) {
		e.nowFunc = now
	}
}

func NewEngine(repo Repo, minter AccessTokenMinter, cfg config.TokenConfig, options ...EngineOption) (*Engine, error) {
	if repo == nil {
		return nil, fmt.Errorf("[NewEngine] refresh token repo is required")
	}
	if minter == nil {
		return nil, fmt.Errorf("[NewEngine] access token minter is required")
	}
	e := &Engine{
		repo:        repo,
		minter:      minter,
		accessTTL:   cfg.GetAccessTokenTTL(),
		refreshTTL:  cfg.GetRefreshTokenTTL(),
		tokenLength: cfg.GetRefreshTokenLength(),
		nowFunc:     time.Now,
	}
	for _, opt := range options {
		opt(e)
	}
	return e, nil
}

// Issue starts a new rotation chain for userID and returns the first token pair.
func (e *Engine) Issue(ctx context.Context, userID, clientID string, meta Meta) (*Pair, error) {
	if userID == "" {
		return nil, fmt.Errorf("[Engine Issue] %w: user id is required", apperrors.ErrInvalidRequest)
	}

	plaintext, rec, err := e.newRecord(userID, clientID, uuid.NewString(), "", meta)
	if err != nil {
		return nil, err
	}

	access, err := e.mintAccessToken(userID, clientID)
	if err != nil {
		return nil, err
	}

	if err := e.repo.Insert(ctx, rec); err != nil {
		return nil, fmt.Errorf("[Engine Issue] failed to store refresh token: %w", err)
	}
	return e.pair(access, plaintext), nil
}

// Rotate exchanges a presented refresh token for a new pair. Presenting a token
// that has already been rotated revokes its whole chain.
func (e *Engine) Rotate(ctx context.Context, presented string, meta Meta) (pair *Pair, err error) {
	defer func() { metrics.RefreshRotation(err) }()

	if presented == "" {
		return nil, apperrors.ErrInvalidRefreshToken
	}

	current, err := e.repo.GetByHash(ctx, securetoken.Hash(presented))
	if err != nil {
		if apperrors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.ErrInvalidRefreshToken
		}
		return nil, fmt.Errorf("[Engine Rotate] failed to look up refresh token: %w", err)
	}

	now := e.nowFunc()
	if !now.Before(current.ExpiresAt) {
		return nil, apperrors.ErrRefreshTokenExpired
	}
	if current.Revoked {
		return nil, e.reuseDetected(ctx, current)
	}

	plaintext, next, err := e.newRecord(current.UserID, current.ClientID, current.ChainID, current.ID, meta)
	if err != nil {
		return nil, err
	}

	// Minted before the rotation commits so a committed rotation always has a token to return.
	access, err := e.mintAccessToken(current.UserID, current.ClientID)
	if err != nil {
		return nil, err
	}

	rotated, err := e.repo.Rotate(ctx, current.ID, next)
	if err != nil {
		return nil, fmt.Errorf("[Engine Rotate] failed to rotate refresh token: %w", err)
	}
	if !rotated {
		// A concurrent rotation of the same token won the conditional update.
		return nil, e.reuseDetected(ctx, current)
	}

	return e.pair(access, plaintext), nil
}

func (e *Engine) reuseDetected(ctx context.Context, rec *Record) error {
	revoked, err := e.repo.RevokeChain(ctx, rec.ChainID)
	if err != nil {
		return fmt.Errorf("[Engine Rotate] failed to revoke chain %s: %w", rec.ChainID, err)
	}
	logging.FromContext(ctx).Warn().
		Str("user_id", rec.UserID).
		Str("chain_id", rec.ChainID).
		Str("token_id", rec.ID).
		Int64("revoked", revoked).
		Msg("refresh token reuse detected, chain revoked")
	return apperrors.ErrTokenReuseDetected
}

// RevokeOne revokes a single record. Unknown or already revoked ids succeed.
func (e *Engine) RevokeOne(ctx context.Context, id string) error {
	if err := e.repo.Revoke(ctx, id); err != nil {
		return fmt.Errorf("[Engine RevokeOne] %w", err)
	}
	return nil
}

// RevokeByToken revokes the record matching a plaintext token. Unknown tokens succeed.
func (e *Engine) RevokeByToken(ctx context.Context, presented string) error {
	if presented == "" {
		return nil
	}
	rec, err := e.repo.GetByHash(ctx, securetoken.Hash(presented))
	if err != nil {
		if apperrors.Is(err, apperrors.ErrNotFound) {
			return nil
		}
		return fmt.Errorf("[Engine RevokeByToken] %w", err)
	}
	return e.RevokeOne(ctx, rec.ID)
}

func (e *Engine) RevokeAllForUser(ctx context.Context, userID string) error {
	n, err := e.repo.RevokeAllForUser(ctx, userID)
	if err != nil {
		return fmt.Errorf("[Engine RevokeAllForUser] %w", err)
	}
	logging.FromContext(ctx).Info().Str("user_id", userID).Int64("revoked", n).Msg("revoked all refresh tokens for user")
	return nil
}

// CleanupExpired deletes records that expired more than retention ago.
func (e *Engine) CleanupExpired(ctx context.Context, retention time.Duration) (int64, error) {
	if retention < 0 {
		retention = 0
	}
	n, err := e.repo.DeleteExpiredBefore(ctx, e.nowFunc().Add(-retention))
	if err != nil {
		return 0, fmt.Errorf("[Engine CleanupExpired] %w", err)
	}
	return n, nil
}

func (e *Engine) newRecord(userID, clientID, chainID, previousID string, meta Meta) (string, *Record, error) {
	plaintext, err := securetoken.Generate(e.tokenLength)
	if err != nil {
		return "", nil, fmt.Errorf("[Engine] %w", err)
	}
	now := e.nowFunc()
	return plaintext, &Record{
		ID:              uuid.NewString(),
		UserID:          userID,
		TokenHash:       securetoken.Hash(plaintext),
		ClientID:        clientID,
		ChainID:         chainID,
		PreviousTokenID: previousID,
		CreatedAt:       now,
		ExpiresAt:       now.Add(e.refreshTTL),
		IP:              meta.IP,
		UserAgent:       meta.UserAgent,
	}, nil
}

func (e *Engine) mintAccessToken(userID, clientID string) (string, error) {
	access, err := e.minter.Issue(token.Claims{
		RegisteredClaims: jwt.RegisteredClaims{Subject: userID},
		ClientID:         clientID,
	}, e.accessTTL)
	if err != nil {
		return "", fmt.Errorf("[Engine] failed to mint access token: %w", err)
	}
	return access, nil
}

func (e *Engine) pair(access, refresh string) *Pair {
	return &Pair{
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresIn:    int64(e.accessTTL.Seconds()),
		TokenType:    TokenTypeBearer,
	}
}
