package otp

import (
	"context"
	"crypto/rand"
	"encoding/base32"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jrsteele09/go-sso-server/internal/config"
	apperrors "github.com/jrsteele09/go-sso-server/internal/errors"
	"github.com/jrsteele09/go-sso-server/internal/metrics"
	"github.com/jrsteele09/go-sso-server/internal/securetoken"
	pqotp "github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
)

const (
	BackupCodeCount = 10
	backupCodeBytes = 5 // 8 base32 characters

	// One step either side of now absorbs authenticator clock skew.
	validationSkew = 1
	period         = 30
)

var backupEncoding = base32.StdEncoding.WithPadding(base32.NoPadding)

// Engine manages TOTP enrolment and verification. Bad codes are reported as
// false with a nil error; only datastore failures return errors.
type Engine struct {
	repo    Repo
	issuer  string
	nowFunc func() time.Time
}

type EngineOption func(*Engine)

func WithNowFunc(now func() time.Time) EngineOption {
	return func(e *Engine) {
		e.nowFunc = now
	}
}

func NewEngine(repo Repo, cfg config.SecurityConfig, options ...EngineOption) (*Engine, error) {
	if repo == nil {
		return nil, fmt.Errorf("[NewEngine] otp repo is required")
	}
	e := &Engine{
		repo:    repo,
		issuer:  cfg.GetOTPIssuer(),
		nowFunc: time.Now,
	}
	for _, opt := range options {
		opt(e)
	}
	return e, nil
}

// GenerateSecret enrols userID with a fresh unverified secret and backup codes,
// replacing any earlier unverified enrolment.
func (e *Engine) GenerateSecret(ctx context.Context, userID, label string) (*Setup, error) {
	existing, err := e.repo.Get(ctx, userID)
	switch {
	case err == nil && existing.Verified:
		return nil, apperrors.ErrOTPAlreadyEnabled
	case err != nil && !apperrors.Is(err, apperrors.ErrNotFound):
		return nil, fmt.Errorf("[Engine GenerateSecret] %w", err)
	}

	if label == "" {
		label = userID
	}
	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      e.issuer,
		AccountName: label,
		Period:      period,
		Digits:      pqotp.DigitsSix,
		Algorithm:   pqotp.AlgorithmSHA1,
	})
	if err != nil {
		return nil, fmt.Errorf("[Engine GenerateSecret] failed to generate TOTP key: %w", err)
	}

	codes, err := generateBackupCodes(BackupCodeCount)
	if err != nil {
		return nil, fmt.Errorf("[Engine GenerateSecret] %w", err)
	}
	hashes := make([]string, len(codes))
	for i, c := range codes {
		hashes[i] = hashBackupCode(c)
	}

	if err := e.repo.Upsert(ctx, &Secret{
		ID:          uuid.NewString(),
		UserID:      userID,
		Secret:      key.Secret(),
		BackupCodes: hashes,
		CreatedAt:   e.nowFunc(),
	}); err != nil {
		return nil, fmt.Errorf("[Engine GenerateSecret] failed to store secret: %w", err)
	}

	return &Setup{
		Secret:        key.Secret(),
		QRCodePayload: key.URL(),
		BackupCodes:   codes,
	}, nil
}

// VerifyAndActivate checks code against the pending secret and marks it verified.
func (e *Engine) VerifyAndActivate(ctx context.Context, userID, code string) (bool, error) {
	s, err := e.load(ctx, userID)
	if err != nil || s == nil {
		return false, err
	}
	ok := e.check(s.Secret, code)
	metrics.OTPCheck("activate", ok)
	if !ok {
		return false, nil
	}
	if !s.Verified {
		if err := e.repo.MarkVerified(ctx, userID); err != nil {
			return false, fmt.Errorf("[Engine VerifyAndActivate] %w", err)
		}
	}
	return true, nil
}

// ValidateLogin checks a signin code. The secret must already be verified.
func (e *Engine) ValidateLogin(ctx context.Context, userID, code string) (bool, error) {
	s, err := e.load(ctx, userID)
	if err != nil || s == nil {
		return false, err
	}
	ok := s.Verified && e.check(s.Secret, code)
	metrics.OTPCheck("login", ok)
	return ok, nil
}

// ConsumeBackupCode matches code case-insensitively and removes it on success.
func (e *Engine) ConsumeBackupCode(ctx context.Context, userID, code string) (bool, error) {
	normalized := normalizeBackupCode(code)
	if normalized == "" {
		metrics.OTPCheck("backup", false)
		return false, nil
	}
	removed, err := e.repo.RemoveBackupCode(ctx, userID, hashBackupCode(normalized))
	if err != nil {
		if apperrors.Is(err, apperrors.ErrNotFound) {
			metrics.OTPCheck("backup", false)
			return false, nil
		}
		return false, fmt.Errorf("[Engine ConsumeBackupCode] %w", err)
	}
	metrics.OTPCheck("backup", removed)
	return removed, nil
}

// Disable removes the enrolment entirely. Disabling twice is not an error.
func (e *Engine) Disable(ctx context.Context, userID string) error {
	if err := e.repo.Delete(ctx, userID); err != nil {
		return fmt.Errorf("[Engine Disable] %w", err)
	}
	return nil
}

// Enabled reports whether the user has a verified second factor.
func (e *Engine) Enabled(ctx context.Context, userID string) (bool, error) {
	s, err := e.load(ctx, userID)
	if err != nil || s == nil {
		return false, err
	}
	return s.Verified, nil
}

func (e *Engine) load(ctx context.Context, userID string) (*Secret, error) {
	s, err := e.repo.Get(ctx, userID)
	if err != nil {
		if apperrors.Is(err, apperrors.ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("[Engine] failed to load otp secret: %w", err)
	}
	return s, nil
}

func (e *Engine) check(secret, code string) bool {
	code = strings.TrimSpace(code)
	if code == "" {
		return false
	}
	ok, err := totp.ValidateCustom(code, secret, e.nowFunc().UTC(), totp.ValidateOpts{
		Period:    period,
		Skew:      validationSkew,
		Digits:    pqotp.DigitsSix,
		Algorithm: pqotp.AlgorithmSHA1,
	})
	return err == nil && ok
}

func generateBackupCodes(count int) ([]string, error) {
	codes := make([]string, count)
	for i := range codes {
		b := make([]byte, backupCodeBytes)
		if _, err := rand.Read(b); err != nil {
			return nil, fmt.Errorf("failed to generate backup code: %w", err)
		}
		codes[i] = backupEncoding.EncodeToString(b)
	}
	return codes, nil
}

func normalizeBackupCode(code string) string {
	return strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(code), "-", ""))
}

func hashBackupCode(code string) string {
	return securetoken.Hash(normalizeBackupCode(code))
}
