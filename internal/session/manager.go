package session

import (
	"context"
	"fmt"
	"time"
)

// Manager persists State between requests: the client holds a signed
// token, the server holds the State it points to.
type Manager struct {
	store  Store
	tokens *TokenCodec
}

// NewManager combines a store and a token codec.
func NewManager(store Store, tokens *TokenCodec) *Manager {
	return &Manager{store: store, tokens: tokens}
}

// Load returns the session behind token. Missing, forged, expired and
// unknown tokens all yield an Anonymous State and an empty id.
func (m *Manager) Load(ctx context.Context, token string) (string, State, error) {
	if token == "" {
		return "", Anonymous, nil
	}
	id, err := m.tokens.SessionID(token)
	if err != nil {
		return "", Anonymous, nil
	}
	st, ok, err := m.store.Load(ctx, id)
	if err != nil {
		return "", Anonymous, err
	}
	if !ok {
		return "", Anonymous, nil
	}
	return id, st, nil
}

// Begin stores st under a brand new id, dropping previousID first, and
// returns the token for the client.
func (m *Manager) Begin(ctx context.Context, previousID string, st State) (string, time.Time, error) {
	if previousID != "" {
		if err := m.store.Delete(ctx, previousID); err != nil {
			return "", time.Time{}, err
		}
	}
	id := NewID()
	if err := m.store.Save(ctx, id, st, m.tokens.TTL()); err != nil {
		return "", time.Time{}, fmt.Errorf("save session: %w", err)
	}
	token, expiresAt, err := m.tokens.Issue(id)
	if err != nil {
		_ = m.store.Delete(ctx, id)
		return "", time.Time{}, err
	}
	return token, expiresAt, nil
}

// End forgets the session id.
func (m *Manager) End(ctx context.Context, id string) error {
	if id == "" {
		return nil
	}
	return m.store.Delete(ctx, id)
}

// TTL is how long a session lives.
func (m *Manager) TTL() time.Duration {
	return m.tokens.TTL()
}
