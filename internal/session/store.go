package session

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
)

// ErrStoreClosed is returned by stores used after Close.
var ErrStoreClosed = errors.New("session store closed")

// Store keeps session state on the server, keyed by an opaque id.
type Store interface {
	Save(ctx context.Context, id string, st State, ttl time.Duration) error
	// Load returns false when the id is unknown or expired.
	Load(ctx context.Context, id string) (State, bool, error)
	Delete(ctx context.Context, id string) error
	Close() error
}

// NewID returns a random session id.
func NewID() string {
	return uuid.NewString()
}

type storedState struct {
	State     State     `json:"state"`
	ExpiresAt time.Time `json:"expires_at"`
}

func encodeState(st State, expiresAt time.Time) ([]byte, error) {
	return json.Marshal(storedState{State: st, ExpiresAt: expiresAt})
}

func decodeState(b []byte, now time.Time) (State, bool, error) {
	var stored storedState
	if err := json.Unmarshal(b, &stored); err != nil {
		return Anonymous, false, err
	}
	if !stored.ExpiresAt.IsZero() && !now.Before(stored.ExpiresAt) {
		return Anonymous, false, nil
	}
	return stored.State, true, nil
}
