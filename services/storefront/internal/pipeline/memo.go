package pipeline

import (
	"sync"

	"github.com/utafrali/CosmeticsGo/services/storefront/internal/domain"
)

// Memo remembers the last pipeline result so that re-rendering a page with
// an unchanged selection skips filtering and sorting. The key is the
// candidate generation, bumped on every reload, and the selection
// fingerprint.
type Memo struct {
	mu          sync.Mutex
	valid       bool
	generation  uint64
	fingerprint uint64
	result      []domain.ScoredProduct
}

// Apply returns the memoized result for (generation, in.Selection) or runs
// the pipeline and stores it. The returned slice is shared and must be
// treated as read-only. The second return value reports a cache hit.
func (m *Memo) Apply(generation uint64, in Input) ([]domain.ScoredProduct, bool) {
	var fp uint64
	if in.Selection != nil {
		fp = in.Selection.Fingerprint()
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.valid && m.generation == generation && m.fingerprint == fp {
		return m.result, true
	}

	m.result = Apply(in)
	m.generation = generation
	m.fingerprint = fp
	m.valid = true
	return m.result, false
}

// Reset drops the memoized result.
func (m *Memo) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.valid = false
	m.result = nil
}
