// Package session keeps per-page state between requests: the loaded
// candidates, the lookup tables and the user's facet selection.
package session

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/utafrali/CosmeticsGo/services/storefront/internal/domain"
	"github.com/utafrali/CosmeticsGo/services/storefront/internal/facet"
	"github.com/utafrali/CosmeticsGo/services/storefront/internal/pipeline"
)

// ErrNotFound is returned for unknown or expired session ids.
var ErrNotFound = errors.New("session not found")

// Session is the state of one open storefront page. Each session has its
// own lock; sessions never share candidates or selections.
type Session struct {
	mu sync.Mutex

	ID    string
	Page  domain.PageKind
	Query string
	Scope domain.Scope

	selection  *facet.Selection
	candidates []domain.ScoredProduct
	catalog    *domain.Catalog
	generation uint64
	memo       pipeline.Memo
	loadErr    error

	loadedAt time.Time
	lastSeen time.Time
}

// Snapshot is a consistent copy of a session's inputs, safe to use after
// the lock is released. Candidates are shared read-only.
type Snapshot struct {
	ID         string
	Page       domain.PageKind
	Query      string
	Scope      domain.Scope
	Selection  *facet.Selection
	Candidates []domain.ScoredProduct
	Catalog    *domain.Catalog
	Generation uint64
	LoadedAt   time.Time
	// LoadErr is set while the last load failed. Candidates are empty then.
	LoadErr error
}

// Loaded is the result of fetching candidates for a page.
type Loaded struct {
	Candidates []domain.ScoredProduct
	Catalog    *domain.Catalog
}

func newSession(page domain.PageKind, query string, scope domain.Scope, now time.Time) *Session {
	return &Session{
		ID:        uuid.NewString(),
		Page:      page,
		Query:     query,
		Scope:     scope,
		selection: facet.NewSelection(page),
		lastSeen:  now,
	}
}

// Update runs fn on the session's selection under the session lock.
func (s *Session) Update(fn func(sel *facet.Selection) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(s.selection)
}

// SetLoaded replaces the candidates and lookup tables and bumps the
// generation so memoized results are recomputed. The selection is kept.
func (s *Session) SetLoaded(l Loaded, now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.candidates = l.Candidates
	s.catalog = l.Catalog
	s.generation++
	s.loadedAt = now
	s.loadErr = nil
	s.memo.Reset()
}

// SetFailed records a failed load. The previous candidates are dropped so
// the page never shows a partial or stale list next to the error.
func (s *Session) SetFailed(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.candidates = nil
	s.catalog = nil
	s.generation++
	s.loadErr = err
	s.memo.Reset()
}

// SetSelection replaces the selection, e.g. with one decoded from a request.
func (s *Session) SetSelection(sel *facet.Selection) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.selection = sel
}

// Snapshot copies the session's inputs.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Snapshot{
		ID:         s.ID,
		Page:       s.Page,
		Query:      s.Query,
		Scope:      s.Scope,
		Selection:  s.selection.Clone(),
		Candidates: s.candidates,
		Catalog:    s.catalog,
		Generation: s.generation,
		LoadedAt:   s.loadedAt,
		LoadErr:    s.loadErr,
	}
}

func (s *Session) touch(now time.Time) {
	s.mu.Lock()
	s.lastSeen = now
	s.mu.Unlock()
}

func (s *Session) idleSince(now time.Time) time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return now.Sub(s.lastSeen)
}

// Render returns a snapshot together with the pipeline result computed from
// that same snapshot.
func (s *Session) Render() (Snapshot, []domain.ScoredProduct, bool) {
	snap := s.Snapshot()
	results, hit := s.memo.Apply(snap.Generation, pipeline.Input{
		Candidates: snap.Candidates,
		Selection:  snap.Selection,
		Catalog:    snap.Catalog,
		Scope:      snap.Scope,
	})
	return snap, results, hit
}
