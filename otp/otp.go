// Package otp implements the TOTP second factor and its single-use backup codes.
package otp

import (
	"context"
	"time"
)

// Secret is a user's second-factor enrolment. BackupCodes holds hashes of the
// normalised codes; plaintext codes are only returned at generation.
type Secret struct {
	ID          string
	UserID      string
	Secret      string // base32
	Verified    bool
	BackupCodes []string
	CreatedAt   time.Time
}

// Setup is returned once by GenerateSecret.
type Setup struct {
	Secret        string   `json:"secret"`
	QRCodePayload string   `json:"qr_code_payload"`
	BackupCodes   []string `json:"backup_codes"`
}

// Repo stores one secret per user. Get returns errors.ErrNotFound when the user
// has none.
type Repo interface {
	// Upsert replaces any existing secret for s.UserID.
	Upsert(ctx context.Context, s *Secret) error
	Get(ctx context.Context, userID string) (*Secret, error)
	MarkVerified(ctx context.Context, userID string) error

	// RemoveBackupCode removes codeHash from the user's list and reports whether
	// it was present. Two concurrent calls for the same code see one true.
	RemoveBackupCode(ctx context.Context, userID, codeHash string) (bool, error)
	Delete(ctx context.Context, userID string) error
}
