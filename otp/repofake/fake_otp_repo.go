package otprepofake

import (
	"context"
	"sync"

	apperrors "github.com/jrsteele09/go-sso-server/internal/errors"
	"github.com/jrsteele09/go-sso-server/otp"
)

var _ otp.Repo = (*FakeOTPRepo)(nil)

type FakeOTPRepo struct {
	secrets map[string]*otp.Secret // user id -> secret
	lock    sync.RWMutex
}

func NewFakeOTPRepo() otp.Repo {
	return &FakeOTPRepo{
		secrets: make(map[string]*otp.Secret),
	}
}

func (r *FakeOTPRepo) Upsert(_ context.Context, s *otp.Secret) error {
	r.lock.Lock()
	defer r.lock.Unlock()
	cp := *s
	cp.BackupCodes = append([]string(nil), s.BackupCodes...)
	r.secrets[s.UserID] = &cp
	return nil
}

func (r *FakeOTPRepo) Get(_ context.Context, userID string) (*otp.Secret, error) {
	r.lock.RLock()
	defer r.lock.RUnlock()
	s, ok := r.secrets[userID]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	cp := *s
	cp.BackupCodes = append([]string(nil), s.BackupCodes...)
	return &cp, nil
}

func (r *FakeOTPRepo) MarkVerified(_ context.Context, userID string) error {
	r.lock.Lock()
	defer r.lock.Unlock()
	s, ok := r.secrets[userID]
	if !ok {
		return apperrors.ErrNotFound
	}
	s.Verified = true
	return nil
}

func (r *FakeOTPRepo) RemoveBackupCode(_ context.Context, userID, codeHash string) (bool, error) {
	r.lock.Lock()
	defer r.lock.Unlock()
	s, ok := r.secrets[userID]
	if !ok {
		return false, apperrors.ErrNotFound
	}
	for i, h := range s.BackupCodes {
		if h == codeHash {
			s.BackupCodes = append(s.BackupCodes[:i], s.BackupCodes[i+1:]...)
			return true, nil
		}
	}
	return false, nil
}

func (r *FakeOTPRepo) Delete(_ context.Context, userID string) error {
	r.lock.Lock()
	defer r.lock.Unlock()
	delete(r.secrets, userID)
	return nil
}
