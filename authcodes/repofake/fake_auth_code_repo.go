package authcoderepofake

import (
	"context"
	"sync"
	"time"

	"github.com/jrsteele09/go-sso-server/authcodes"
	apperrors "github.com/jrsteele09/go-sso-server/internal/errors"
)

var _ authcodes.Repo = (*FakeAuthCodeRepo)(nil)

type FakeAuthCodeRepo struct {
	codes map[string]*authcodes.Code // id -> code
	index map[string]string          // code -> id
	lock  sync.RWMutex
}

func NewFakeAuthCodeRepo() *FakeAuthCodeRepo {
	return &FakeAuthCodeRepo{
		codes: make(map[string]*authcodes.Code),
		index: make(map[string]string),
	}
}

func (r *FakeAuthCodeRepo) Insert(_ context.Context, code *authcodes.Code) error {
	r.lock.Lock()
	defer r.lock.Unlock()
	cp := *code
	r.codes[code.ID] = &cp
	r.index[code.Code] = code.ID
	return nil
}

func (r *FakeAuthCodeRepo) GetByCode(_ context.Context, code string) (*authcodes.Code, error) {
	r.lock.RLock()
	defer r.lock.RUnlock()
	id, ok := r.index[code]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	cp := *r.codes[id]
	return &cp, nil
}

func (r *FakeAuthCodeRepo) MarkUsed(_ context.Context, id string) (bool, error) {
	r.lock.Lock()
	defer r.lock.Unlock()
	code, ok := r.codes[id]
	if !ok || code.Used {
		return false, nil
	}
	code.Used = true
	return true, nil
}

func (r *FakeAuthCodeRepo) Delete(_ context.Context, id string) error {
	r.lock.Lock()
	defer r.lock.Unlock()
	r.delete(id)
	return nil
}

func (r *FakeAuthCodeRepo) DeleteExpiredOrUsed(_ context.Context, now time.Time) (int64, error) {
	r.lock.Lock()
	defer r.lock.Unlock()
	var n int64
	for id, code := range r.codes {
		if code.Used || !now.Before(code.ExpiresAt) {
			r.delete(id)
			n++
		}
	}
	return n, nil
}

func (r *FakeAuthCodeRepo) delete(id string) {
	code, ok := r.codes[id]
	if !ok {
		return
	}
	delete(r.index, code.Code)
	delete(r.codes, id)
}

// Len returns the number of stored codes. Test helper.
func (r *FakeAuthCodeRepo) Len() int {
	r.lock.RLock()
	defer r.lock.RUnlock()
	return len(r.codes)
}
