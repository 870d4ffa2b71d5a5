package session

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/utafrali/CosmeticsGo/services/storefront/internal/domain"
	"github.com/utafrali/CosmeticsGo/services/storefront/internal/facet"
)

func newTestStore(ttl time.Duration) (*Store, *time.Time) {
	st := NewStore(ttl, slog.New(slog.NewTextHandler(io.Discard, nil)))
	now := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	st.now = func() time.Time { return now }
	return st, &now
}

func loaded() Loaded {
	return Loaded{
		Candidates: domain.Unscored([]domain.Product{
			{ID: "a", Brand: "nivea", Price: 30},
			{ID: "b", Brand: "vichy", Price: 120},
		}),
		Catalog: domain.NewCatalog([]domain.Brand{{Slug: "nivea", Name: "Nivea"}}, nil, nil),
	}
}

func TestStore_CreateGetDelete(t *testing.T) {
	st, _ := newTestStore(time.Minute)

	s := st.Create(domain.PageSearch, "creme", domain.Scope{})
	require.NotEmpty(t, s.ID)
	assert.Equal(t, 1, st.Len())

	got, err := st.Get(s.ID)
	require.NoError(t, err)
	assert.Same(t, s, got)

	assert.True(t, st.Delete(s.ID))
	assert.False(t, st.Delete(s.ID))

	_, err = st.Get(s.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStore_IdleExpiry(t *testing.T) {
	st, now := newTestStore(time.Minute)
	idle := st.Create(domain.PageSearch, "a", domain.Scope{})
	active := st.Create(domain.PageSearch, "b", domain.Scope{})

	*now = now.Add(50 * time.Second)
	_, err := st.Get(active.ID)
	require.NoError(t, err)

	*now = now.Add(20 * time.Second)
	assert.Equal(t, 1, st.Sweep())
	_, err = st.Get(idle.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = st.Get(active.ID)
	assert.NoError(t, err)

	*now = now.Add(2 * time.Minute)
	_, err = st.Get(active.ID)
	assert.ErrorIs(t, err, ErrNotFound, "expired on access")
	assert.Zero(t, st.Len())
}

func TestStore_DefaultTTL(t *testing.T) {
	st := NewStore(0, nil)
	assert.Equal(t, DefaultIdleTTL, st.idleTTL)
}

func TestSession_RenderMemoized(t *testing.T) {
	st, now := newTestStore(time.Minute)
	s := st.Create(domain.PageSearch, "x", domain.Scope{})
	s.SetLoaded(loaded(), *now)

	_, all, hit := s.Render()
	assert.False(t, hit)
	assert.Len(t, all, 2)

	_, _, hit = s.Render()
	assert.True(t, hit)

	require.NoError(t, s.Update(func(sel *facet.Selection) error {
		sel.ToggleBrand("Nivea")
		return nil
	}))
	_, filtered, hit := s.Render()
	assert.False(t, hit)
	require.Len(t, filtered, 1)
	assert.Equal(t, "a", filtered[0].ID)

	s.SetLoaded(loaded(), *now)
	_, _, hit = s.Render()
	assert.False(t, hit, "reload invalidates")
	assert.Equal(t, uint64(2), s.Snapshot().Generation)
}

func TestSession_SnapshotIsIsolated(t *testing.T) {
	st, now := newTestStore(time.Minute)
	s := st.Create(domain.PageCategory, "", domain.Scope{Category: "cheveux"})
	s.SetLoaded(loaded(), *now)

	snap := s.Snapshot()
	snap.Selection.ToggleBrand("Nivea")

	assert.Empty(t, s.Snapshot().Selection.Brands())
	assert.Equal(t, domain.Scope{Category: "cheveux"}, snap.Scope)
	assert.Equal(t, *now, snap.LoadedAt)
}

func TestSession_ConcurrentUpdates(t *testing.T) {
	st, now := newTestStore(time.Minute)
	s := st.Create(domain.PageSearch, "x", domain.Scope{})
	s.SetLoaded(loaded(), *now)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = s.Update(func(sel *facet.Selection) error {
				sel.ToggleBrand("Nivea")
				return nil
			})
			_, _, _ = s.Render()
		}()
	}
	wg.Wait()

	assert.Empty(t, s.Snapshot().Selection.Brands(), "an even number of toggles cancels out")
}

func TestStore_RunSweeper(t *testing.T) {
	st, _ := newTestStore(time.Nanosecond)
	st.now = time.Now
	st.Create(domain.PageSearch, "x", domain.Scope{})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		st.RunSweeper(ctx, time.Millisecond)
		close(done)
	}()

	assert.Eventually(t, func() bool { return st.Len() == 0 }, time.Second, 5*time.Millisecond)
	cancel()
	<-done
}

func TestSession_FailedLoadDropsCandidates(t *testing.T) {
	st, now := newTestStore(time.Minute)
	s := st.Create(domain.PagePromotions, "", domain.Scope{})
	s.SetLoaded(loaded(), *now)

	s.SetFailed(assert.AnError)
	snap := s.Snapshot()
	assert.ErrorIs(t, snap.LoadErr, assert.AnError)
	assert.Empty(t, snap.Candidates)
	_, results, _ := s.Render()
	assert.Empty(t, results)

	s.SetLoaded(loaded(), *now)
	assert.NoError(t, s.Snapshot().LoadErr)
}

func TestSession_SetSelection(t *testing.T) {
	st, _ := newTestStore(time.Minute)
	s := st.Create(domain.PageSearch, "creme", domain.Scope{})

	sel, err := facet.FromValues(domain.PageSearch, facet.Values{Brands: []string{"Vichy"}, Sort: "name"})
	require.NoError(t, err)
	s.SetSelection(sel)

	got := s.Snapshot().Selection
	assert.Equal(t, []string{"Vichy"}, got.Brands())
	assert.Equal(t, domain.SortName, got.Sort())
}
