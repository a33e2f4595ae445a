package session

import (
	"context"
	"errors"
	"sync"

	"medconsult-be/internal/repository/memory"
	"medconsult-be/pkg/llm"
	"medconsult-be/pkg/store"

	"github.com/google/uuid"
)

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrAccessDenied    = errors.New("session belongs to another user")
)

// Manager hands out sessions and serializes turns on each one.
type Manager struct {
	sessionRepo *memory.SessionRepository
	locks       sync.Map // session id -> *sync.Mutex
}

// NewManager creates a new session manager. A session's lock is dropped
// when the repository evicts the session.
func NewManager(sessionRepo *memory.SessionRepository) *Manager {
	m := &Manager{sessionRepo: sessionRepo}
	sessionRepo.OnEvicted(func(sessionID string) {
		m.locks.Delete(sessionID)
	})
	return m
}

// Create starts a fresh session on the given backend.
func (m *Manager) Create(userID string, backend store.Backend) *store.Session {
	s := store.NewSession(uuid.NewString(), userID, backend)
	m.sessionRepo.Save(s)
	return s
}

// Get returns a snapshot of the session for read-only use.
func (m *Manager) Get(sessionID, userID string) (store.Session, error) {
	var snapshot store.Session
	err := m.With(context.Background(), sessionID, userID, func(s *store.Session) error {
		snapshot = *s
		snapshot.Transcript = s.History()
		snapshot.RetrievalLog = append([]llm.Message(nil), s.RetrievalLog...)
		return nil
	})
	return snapshot, err
}

// With runs fn while holding the session's lock and saves the session after
// fn returns, even when fn fails. A second caller for the same session waits.
func (m *Manager) With(ctx context.Context, sessionID, userID string, fn func(*store.Session) error) error {
	// Unknown ids never get a lock entry.
	if _, found := m.sessionRepo.Get(sessionID); !found {
		return ErrSessionNotFound
	}

	mu := m.lockFor(sessionID)
	if err := acquire(ctx, mu); err != nil {
		return err
	}
	defer mu.Unlock()

	s, found := m.sessionRepo.Get(sessionID)
	if !found {
		// evicted while we waited
		m.locks.CompareAndDelete(sessionID, mu)
		return ErrSessionNotFound
	}
	if s.UserID != userID {
		return ErrAccessDenied
	}

	err := fn(s)
	m.sessionRepo.Save(s)
	return err
}

func (m *Manager) Delete(sessionID string) {
	m.sessionRepo.Delete(sessionID)
}

func (m *Manager) lockFor(sessionID string) *sync.Mutex {
	mu, _ := m.locks.LoadOrStore(sessionID, &sync.Mutex{})
	return mu.(*sync.Mutex)
}

// acquire blocks on mu unless ctx is done first.
func acquire(ctx context.Context, mu *sync.Mutex) error {
	if mu.TryLock() {
		return nil
	}
	locked := make(chan struct{})
	go func() {
		mu.Lock()
		close(locked)
	}()
	select {
	case <-locked:
		return nil
	case <-ctx.Done():
		// hand the lock back once the waiter gets it
		go func() {
			<-locked
			mu.Unlock()
		}()
		return ctx.Err()
	}
}
