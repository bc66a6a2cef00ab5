package sessionrepofakes

import (
	"context"
	"sync"
	"time"

	apperrors "github.com/jrsteele09/go-sso-server/internal/errors"
	"github.com/jrsteele09/go-sso-server/sessions"
)

var _ sessions.AppRepo = (*FakeAppSessionRepo)(nil)

type FakeAppSessionRepo struct {
	sessions map[string]*sessions.AppSession // id -> session
	hashes   map[string]string               // token hash -> id
	lock     sync.RWMutex
}

func NewFakeAppSessionRepo() *FakeAppSessionRepo {
	return &FakeAppSessionRepo{
		sessions: make(map[string]*sessions.AppSession),
		hashes:   make(map[string]string),
	}
}

func (r *FakeAppSessionRepo) Insert(_ context.Context, s *sessions.AppSession) error {
	r.lock.Lock()
	defer r.lock.Unlock()
	cp := *s
	r.sessions[s.ID] = &cp
	r.hashes[s.TokenHash] = s.ID
	return nil
}

func (r *FakeAppSessionRepo) GetByTokenHash(_ context.Context, tokenHash string) (*sessions.AppSession, error) {
	r.lock.RLock()
	defer r.lock.RUnlock()
	id, ok := r.hashes[tokenHash]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	cp := *r.sessions[id]
	return &cp, nil
}

func (r *FakeAppSessionRepo) Touch(_ context.Context, id string, lastActivityAt, expiresAt time.Time) error {
	r.lock.Lock()
	defer r.lock.Unlock()
	if s, ok := r.sessions[id]; ok {
		s.LastActivityAt = lastActivityAt
		s.ExpiresAt = expiresAt
	}
	return nil
}

func (r *FakeAppSessionRepo) DeleteByID(_ context.Context, id string) error {
	r.lock.Lock()
	defer r.lock.Unlock()
	r.delete(id)
	return nil
}

func (r *FakeAppSessionRepo) DeleteByTokenHash(_ context.Context, tokenHash string) error {
	r.lock.Lock()
	defer r.lock.Unlock()
	if id, ok := r.hashes[tokenHash]; ok {
		r.delete(id)
	}
	return nil
}

func (r *FakeAppSessionRepo) DeleteAllForUser(_ context.Context, userID string) (int64, error) {
	return r.deleteWhere(func(s *sessions.AppSession) bool { return s.UserID == userID }), nil
}

func (r *FakeAppSessionRepo) DeleteForTenantApp(_ context.Context, userID, appID, tenantID string) (int64, error) {
	return r.deleteWhere(func(s *sessions.AppSession) bool {
		return s.UserID == userID && s.AppID == appID && s.TenantID == tenantID
	}), nil
}

func (r *FakeAppSessionRepo) DeleteExpired(_ context.Context, now time.Time) (int64, error) {
	return r.deleteWhere(func(s *sessions.AppSession) bool { return !now.Before(s.ExpiresAt) }), nil
}

func (r *FakeAppSessionRepo) deleteWhere(match func(*sessions.AppSession) bool) int64 {
	r.lock.Lock()
	defer r.lock.Unlock()
	var n int64
	for id, s := range r.sessions {
		if match(s) {
			r.delete(id)
			n++
		}
	}
	return n
}

func (r *FakeAppSessionRepo) delete(id string) {
	s, ok := r.sessions[id]
	if !ok {
		return
	}
	delete(r.hashes, s.TokenHash)
	delete(r.sessions, id)
}

// Len returns the number of stored sessions. Test helper.
func (r *FakeAppSessionRepo) Len() int {
	r.lock.RLock()
	defer r.lock.RUnlock()
	return len(r.sessions)
}
