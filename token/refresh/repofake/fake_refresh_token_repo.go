package refreshrepofake

import (
	"context"
	"sync"
	"time"

	apperrors "github.com/jrsteele09/go-sso-server/internal/errors"
	"github.com/jrsteele09/go-sso-server/token/refresh"
)

var _ refresh.Repo = (*FakeRefreshTokenRepo)(nil)

// FakeRefreshTokenRepo keeps records in memory. One lock guards every write so
// Rotate behaves like the conditional update in the SQL repo.
type FakeRefreshTokenRepo struct {
	records map[string]*refresh.Record // id -> record
	hashes  map[string]string          // token hash -> id
	lock    sync.RWMutex
}

func NewFakeRefreshTokenRepo() *FakeRefreshTokenRepo {
	return &FakeRefreshTokenRepo{
		records: make(map[string]*refresh.Record),
		hashes:  make(map[string]string),
	}
}

func (r *FakeRefreshTokenRepo) Insert(_ context.Context, rec *refresh.Record) error {
	r.lock.Lock()
	defer r.lock.Unlock()
	return r.insert(rec)
}

func (r *FakeRefreshTokenRepo) insert(rec *refresh.Record) error {
	if _, exists := r.hashes[rec.TokenHash]; exists {
		return apperrors.Wrapf(apperrors.ErrInvalidRequest, "duplicate token hash")
	}
	cp := *rec
	r.records[rec.ID] = &cp
	r.hashes[rec.TokenHash] = rec.ID
	return nil
}

func (r *FakeRefreshTokenRepo) GetByHash(_ context.Context, tokenHash string) (*refresh.Record, error) {
	r.lock.RLock()
	defer r.lock.RUnlock()

	id, ok := r.hashes[tokenHash]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	cp := *r.records[id]
	return &cp, nil
}

func (r *FakeRefreshTokenRepo) Rotate(_ context.Context, currentID string, next *refresh.Record) (bool, error) {
	r.lock.Lock()
	defer r.lock.Unlock()

	current, ok := r.records[currentID]
	if !ok || current.Revoked {
		return false, nil
	}
	if err := r.insert(next); err != nil {
		return false, err
	}
	current.Revoked = true
	return true, nil
}

func (r *FakeRefreshTokenRepo) Revoke(_ context.Context, id string) error {
	r.lock.Lock()
	defer r.lock.Unlock()

	if rec, ok := r.records[id]; ok {
		rec.Revoked = true
	}
	return nil
}

func (r *FakeRefreshTokenRepo) RevokeChain(_ context.Context, chainID string) (int64, error) {
	return r.revokeWhere(func(rec *refresh.Record) bool { return rec.ChainID == chainID }), nil
}

func (r *FakeRefreshTokenRepo) RevokeAllForUser(_ context.Context, userID string) (int64, error) {
	return r.revokeWhere(func(rec *refresh.Record) bool { return rec.UserID == userID }), nil
}

func (r *FakeRefreshTokenRepo) revokeWhere(match func(*refresh.Record) bool) int64 {
	r.lock.Lock()
	defer r.lock.Unlock()

	var n int64
	for _, rec := range r.records {
		if !rec.Revoked && match(rec) {
			rec.Revoked = true
			n++
		}
	}
	return n
}

func (r *FakeRefreshTokenRepo) DeleteExpiredBefore(_ context.Context, cutoff time.Time) (int64, error) {
	r.lock.Lock()
	defer r.lock.Unlock()

	var n int64
	for id, rec := range r.records {
		if rec.ExpiresAt.Before(cutoff) {
			delete(r.hashes, rec.TokenHash)
			delete(r.records, id)
			n++
		}
	}
	return n, nil
}

// Get returns a copy of the record with id. Test helper.
func (r *FakeRefreshTokenRepo) Get(id string) (*refresh.Record, bool) {
	r.lock.RLock()
	defer r.lock.RUnlock()

	rec, ok := r.records[id]
	if !ok {
		return nil, false
	}
	cp := *rec
	return &cp, true
}

// ForUser returns copies of every record belonging to userID. Test helper.
func (r *FakeRefreshTokenRepo) ForUser(userID string) []*refresh.Record {
	r.lock.RLock()
	defer r.lock.RUnlock()

	var out []*refresh.Record
	for _, rec := range r.records {
		if rec.UserID == userID {
			cp := *rec
			out = append(out, &cp)
		}
	}
	return out
}

// Len returns the number of stored records. Test helper.
func (r *FakeRefreshTokenRepo) Len() int {
	r.lock.RLock()
	defer r.lock.RUnlock()
	return len(r.records)
}
