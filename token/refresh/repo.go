package refresh

import (
	"context"
	"time"
)

// Record is the server-side state of one refresh token. The client only ever
// receives the plaintext token; TokenHash is what gets stored.
//
// Records sharing a ChainID form one rotation lineage. PreviousTokenID points at
// the record this one replaced and is empty for the first record of a chain.
type Record struct {
	ID              string
	UserID          string
	TokenHash       string
	ClientID        string
	ChainID         string
	PreviousTokenID string
	CreatedAt       time.Time
	ExpiresAt       time.Time
	Revoked         bool
	IP              string
	UserAgent       string
}

// Repo stores refresh token records. Implementations return errors.ErrNotFound
// when a lookup matches nothing.
type Repo interface {
	Insert(ctx context.Context, rec *Record) error
	GetByHash(ctx context.Context, tokenHash string) (*Record, error)

	// Rotate revokes currentID and inserts next as one atomic unit. The revoke is
	// conditional on currentID not already being revoked; when it is, nothing is
	// written and Rotate returns false.
	Rotate(ctx context.Context, currentID string, next *Record) (bool, error)

	// Revoke marks one record revoked. Unknown or already revoked ids are a no-op.
	Revoke(ctx context.Context, id string) error
	RevokeChain(ctx context.Context, chainID string) (int64, error)
	RevokeAllForUser(ctx context.Context, userID string) (int64, error)

	// DeleteExpiredBefore removes records whose expiry is older than cutoff.
	DeleteExpiredBefore(ctx context.Context, cutoff time.Time) (int64, error)
}
