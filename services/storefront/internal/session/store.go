package session

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/utafrali/CosmeticsGo/services/storefront/internal/domain"
)

// DefaultIdleTTL is how long an untouched session survives.
const DefaultIdleTTL = 30 * time.Minute

// Store holds open sessions in memory. Sessions are not persisted.
type Store struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	idleTTL  time.Duration
	now      func() time.Time
	logger   *slog.Logger
}

// NewStore creates a store evicting sessions idle for longer than idleTTL.
func NewStore(idleTTL time.Duration, logger *slog.Logger) *Store {
	if idleTTL <= 0 {
		idleTTL = DefaultIdleTTL
	}
	return &Store{
		sessions: make(map[string]*Session),
		idleTTL:  idleTTL,
		now:      time.Now,
		logger:   logger,
	}
}

// Create opens a new session for page.
func (st *Store) Create(page domain.PageKind, query string, scope domain.Scope) *Session {
	s := newSession(page, query, scope, st.now())

	st.mu.Lock()
	st.sessions[s.ID] = s
	st.mu.Unlock()
	return s
}

// Get returns the session and marks it as used.
func (st *Store) Get(id string) (*Session, error) {
	st.mu.RLock()
	s, ok := st.sessions[id]
	st.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}

	now := st.now()
	if s.idleSince(now) > st.idleTTL {
		st.Delete(id)
		return nil, ErrNotFound
	}
	s.touch(now)
	return s, nil
}

// Delete discards a session. Unknown ids are ignored.
func (st *Store) Delete(id string) bool {
	st.mu.Lock()
	defer st.mu.Unlock()
	_, ok := st.sessions[id]
	delete(st.sessions, id)
	return ok
}

// Len returns the number of open sessions.
func (st *Store) Len() int {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return len(st.sessions)
}

// Sweep evicts idle sessions and returns how many were removed.
func (st *Store) Sweep() int {
	now := st.now()

	st.mu.Lock()
	defer st.mu.Unlock()

	removed := 0
	for id, s := range st.sessions {
		if s.idleSince(now) > st.idleTTL {
			delete(st.sessions, id)
			removed++
		}
	}
	return removed
}

// RunSweeper calls Sweep every interval until ctx is done.
func (st *Store) RunSweeper(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := st.Sweep(); n > 0 {
				st.logger.Debug("evicted idle sessions", slog.Int("count", n))
			}
		}
	}
}
