package httpapi

import (
	"context"
	"fmt"
	"sync"

	"github.com/dmitrijs2005/webtrail/internal/common"
)

// TabRegistry is the agent's view of the host browser's tabs, maintained
// from the tab_updated events the extension posts. It backs the tracker's
// flush-time URL lookups: a tab the registry does not know about makes the
// tracker drop the interval.
type TabRegistry struct {
	mu   sync.RWMutex
	urls map[int]string
}

// NewTabRegistry returns an empty registry.
func NewTabRegistry() *TabRegistry {
	return &TabRegistry{urls: make(map[int]string)}
}

// Set records the URL a tab is currently showing.
func (r *TabRegistry) Set(tabID int, url string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.urls[tabID] = url
}

// Remove forgets a closed tab.
func (r *TabRegistry) Remove(tabID int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.urls, tabID)
}

// URL implements tracker.TabResolver.
func (r *TabRegistry) URL(_ context.Context, tabID int) (string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	url, ok := r.urls[tabID]
	if !ok {
		return "", fmt.Errorf("tab %d: %w", tabID, common.ErrorNotFound)
	}
	return url, nil
}
