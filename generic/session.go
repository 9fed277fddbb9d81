package generic

import (
	"context"
	"fmt"
	"sync"

	"github.com/bjaus/consumers"
)

// Session is the state kept for one connection across its messages.
type Session map[string]any

// Store persists sessions by key.
type Store interface {
	// Load returns the session for key, or an empty session if none exists.
	Load(ctx context.Context, key string) (Session, error)

	// Save replaces the session for key.
	Save(ctx context.Context, key string, s Session) error
}

type sessionKey struct{}

// ChannelSession loads the session of the message's reply channel before the
// wrapped handler runs and saves it afterwards, also when the handler fails.
// Messages without a reply channel run without a session.
//
// Handlers reach the session with SessionFrom.
func ChannelSession(store Store) consumers.Middleware {
	return func(next consumers.HandlerFunc) consumers.HandlerFunc {
		return func(ctx context.Context, inv *consumers.Invocation) error {
			if inv.ReplyChannel == nil {
				return next(ctx, inv)
			}
			key := inv.ReplyChannel.Name()

			s, err := store.Load(ctx, key)
			if err != nil {
				return fmt.Errorf("load session %s: %w", key, err)
			}
			if s == nil {
				s = Session{}
			}
			inv.Set(sessionKey{}, s)

			herr := next(ctx, inv)
			if err := store.Save(ctx, key, s); err != nil && herr == nil {
				return fmt.Errorf("save session %s: %w", key, err)
			}
			return herr
		}
	}
}

// SessionFrom returns the session loaded by ChannelSession, or nil.
func SessionFrom(inv *consumers.Invocation) Session {
	s, _ := inv.Value(sessionKey{}).(Session)
	return s
}

// MemoryStore is an in-process Store. It is safe for concurrent use.
type MemoryStore struct {
	mu       sync.Mutex
	sessions map[string]Session
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sessions: make(map[string]Session)}
}

// Load returns a copy of the stored session.
func (m *MemoryStore) Load(_ context.Context, key string) (Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return clone(m.sessions[key]), nil
}

// Save stores a copy of s.
func (m *MemoryStore) Save(_ context.Context, key string, s Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[key] = clone(s)
	return nil
}

// Delete removes the session for key.
func (m *MemoryStore) Delete(key string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, key)
}

func clone(s Session) Session {
	out := make(Session, len(s))
	for k, v := range s {
		out[k] = v
	}
	return out
}
