package session

import (
	"context"
	"errors"
)

var ErrNoSession = errors.New("no persisted session")

// Record is the durable session state: the raw token and the identity
// derived from it. The two entries are written and removed together, never
// one without the other.
type Record struct {
	Token string   `json:"abisal_token"`
	User  Identity `json:"abisal_user"`
}

type Persistence interface {
	Save(ctx context.Context, rec Record) error
	// Load returns ErrNoSession when nothing is stored.
	Load(ctx context.Context) (Record, error)
	// Clear is a no-op when nothing is stored.
	Clear(ctx context.Context) error
}
