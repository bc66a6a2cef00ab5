package sessionrepofakes

import (
	"context"
	"sync"
	"time"

	apperrors "github.com/jrsteele09/go-sso-server/internal/errors"
	"github.com/jrsteele09/go-sso-server/sessions"
)

var _ sessions.SSORepo = (*FakeSSOSessionRepo)(nil)

type FakeSSOSessionRepo struct {
	sessions map[string]*sessions.SSOSession // id -> session
	hashes   map[string]string               // token hash -> id
	lock     sync.RWMutex
}

func NewFakeSSOSessionRepo() *FakeSSOSessionRepo {
	return &FakeSSOSessionRepo{
		sessions: make(map[string]*sessions.SSOSession),
		hashes:   make(map[string]string),
	}
}

func (r *FakeSSOSessionRepo) Insert(_ context.Context, s *sessions.SSOSession) error {
	r.lock.Lock()
	defer r.lock.Unlock()
	cp := *s
	r.sessions[s.ID] = &cp
	r.hashes[s.TokenHash] = s.ID
	return nil
}

func (r *FakeSSOSessionRepo) GetByTokenHash(_ context.Context, tokenHash string) (*sessions.SSOSession, error) {
	r.lock.RLock()
	defer r.lock.RUnlock()
	id, ok := r.hashes[tokenHash]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	cp := *r.sessions[id]
	return &cp, nil
}

func (r *FakeSSOSessionRepo) Touch(_ context.Context, id string, lastActivityAt, expiresAt time.Time) error {
	r.lock.Lock()
	defer r.lock.Unlock()
	if s, ok := r.sessions[id]; ok {
		s.LastActivityAt = lastActivityAt
		s.ExpiresAt = expiresAt
	}
	return nil
}

func (r *FakeSSOSessionRepo) DeleteByID(_ context.Context, id string) error {
	r.lock.Lock()
	defer r.lock.Unlock()
	r.delete(id)
	return nil
}

func (r *FakeSSOSessionRepo) DeleteByTokenHash(_ context.Context, tokenHash string) error {
	r.lock.Lock()
	defer r.lock.Unlock()
	if id, ok := r.hashes[tokenHash]; ok {
		r.delete(id)
	}
	return nil
}

func (r *FakeSSOSessionRepo) DeleteAllForUser(_ context.Context, userID string) (int64, error) {
	return r.deleteWhere(func(s *sessions.SSOSession) bool { return s.UserID == userID }), nil
}

func (r *FakeSSOSessionRepo) DeleteExpired(_ context.Context, now time.Time) (int64, error) {
	return r.deleteWhere(func(s *sessions.SSOSession) bool { return !now.Before(s.ExpiresAt) }), nil
}

func (r *FakeSSOSessionRepo) deleteWhere(match func(*sessions.SSOSession) bool) int64 {
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

func (r *FakeSSOSessionRepo) delete(id string) {
	s, ok := r.sessions[id]
	if !ok {
		return
	}
	delete(r.hashes, s.TokenHash)
	delete(r.sessions, id)
}

// Len returns the number of stored sessions. Test helper.
func (r *FakeSSOSessionRepo) Len() int {
	r.lock.RLock()
	defer r.lock.RUnlock()
	return len(r.sessions)
}
