package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	apperrors "github.com/jrsteele09/go-sso-server/internal/errors"
	"github.com/jrsteele09/go-sso-server/otp"
)

var _ otp.Repo = (*OTPRepo)(nil)

type OTPRepo struct {
	pool *pgxpool.Pool
}

func NewOTPRepo(pool *pgxpool.Pool) *OTPRepo {
	return &OTPRepo{pool: pool}
}

// Upsert replaces the user's secret and backup codes.
func (r *OTPRepo) Upsert(ctx context.Context, s *otp.Secret) error {
	const q = `
INSERT INTO otp_secrets (id, user_id, secret, verified, backup_codes, created_at)
VALUES ($1, $2, $3, $4, $5, $6)
ON CONFLICT (user_id) DO UPDATE
SET id = EXCLUDED.id, secret = EXCLUDED.secret, verified = EXCLUDED.verified,
    backup_codes = EXCLUDED.backup_codes, created_at = EXCLUDED.created_at`
	codes := s.BackupCodes
	if codes == nil {
		codes = []string{}
	}
	_, err := r.pool.Exec(ctx, q, s.ID, s.UserID, s.Secret, s.Verified, codes, s.CreatedAt)
	return wrapExec("OTPRepo.Upsert", err)
}

func (r *OTPRepo) Get(ctx context.Context, userID string) (*otp.Secret, error) {
	const q = `
SELECT id, user_id, secret, verified, backup_codes, created_at
FROM otp_secrets
WHERE user_id = $1`
	var s otp.Secret
	err := r.pool.QueryRow(ctx, q, userID).Scan(&s.ID, &s.UserID, &s.Secret, &s.Verified, &s.BackupCodes, &s.CreatedAt)
	if err != nil {
		return nil, notFound(err)
	}
	return &s, nil
}

func (r *OTPRepo) MarkVerified(ctx context.Context, userID string) error {
	tag, err := r.pool.Exec(ctx, `UPDATE otp_secrets SET verified = true WHERE user_id = $1`, userID)
	if err != nil {
		return fmt.Errorf("[OTPRepo.MarkVerified] %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

// RemoveBackupCode deletes codeHash from the user's list only if it is present,
// so a backup code can be spent once even under concurrent sign-ins.
func (r *OTPRepo) RemoveBackupCode(ctx context.Context, userID, codeHash string) (bool, error) {
	removed := false
	err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `
UPDATE otp_secrets SET backup_codes = array_remove(backup_codes, $2)
WHERE user_id = $1 AND $2 = ANY(backup_codes)`, userID, codeHash)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 1 {
			removed = true
			return nil
		}
		var exists bool
		if err := tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM otp_secrets WHERE user_id = $1)`, userID).Scan(&exists); err != nil {
			return err
		}
		if !exists {
			return apperrors.ErrNotFound
		}
		return nil
	})
	if err != nil {
		if apperrors.Is(err, apperrors.ErrNotFound) {
			return false, err
		}
		return false, fmt.Errorf("[OTPRepo.RemoveBackupCode] %w", err)
	}
	return removed, nil
}

func (r *OTPRepo) Delete(ctx context.Context, userID string) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM otp_secrets WHERE user_id = $1`, userID)
	return wrapExec("OTPRepo.Delete", err)
}
