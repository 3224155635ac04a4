// Package dedup prevents repeated full-page extraction of the same URL
// within one agent session.
package dedup

import "sync"

// Guard is a session-scoped set of canonical URLs already submitted for
// page-data capture. It is not persisted: a restart clears it, so a page
// may be re-extracted in the next session.
//
// The guard applies only to page-data capture. Visit aggregation and
// remember actions are recorded every time and never consult it.
type Guard struct {
	mu   sync.Mutex
	seen map[string]struct{}
}

// NewGuard returns an empty guard.
func NewGuard() *Guard {
	return &Guard{seen: make(map[string]struct{})}
}

// ShouldProcess reports whether url has not been seen this session, marking
// it as seen. Exactly the first call per URL returns true.
func (g *Guard) ShouldProcess(url string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	if _, ok := g.seen[url]; ok {
		return false
	}
	g.seen[url] = struct{}{}
	return true
}

// Len returns the number of URLs seen this session.
func (g *Guard) Len() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.seen)
}
