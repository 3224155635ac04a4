// Package tracker measures how long a user dwells on each browser tab
// across activation, navigation and removal events.
package tracker

import (
	"context"
	"sync"
	"time"

	"github.com/dmitrijs2005/webtrail/internal/logging"
)

// TabResolver answers what URL a tab is currently showing. The intake layer
// implements it from the tab_updated events it has seen; a browser platform
// binding would query the browser directly.
type TabResolver interface {
	URL(ctx context.Context, tabID int) (string, error)
}

// VisitSink receives completed dwell intervals. ts is the moment the
// interval ended.
type VisitSink interface {
	RecordVisit(ctx context.Context, url string, ts time.Time, durationMs int64) error
}

const noTab = -1

// Tracker is the tab-timing state machine. All state is volatile: a restart
// loses any in-flight interval.
type Tracker struct {
	resolver TabResolver
	sink     VisitSink
	log      logging.Logger

	mu          sync.Mutex
	activeTabID int
	startTimes  map[int]time.Time
}

// New returns a tracker with no active tab.
func New(resolver TabResolver, sink VisitSink, log logging.Logger) *Tracker {
	return &Tracker{
		resolver:    resolver,
		sink:        sink,
		log:         log,
		activeTabID: noTab,
		startTimes:  make(map[int]time.Time),
	}
}

// OnTabActivated flushes the interval of the previously active tab and
// starts timing tabID from now.
func (t *Tracker) OnTabActivated(ctx context.Context, tabID int, now time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.activeTabID != noTab {
		t.flushLocked(ctx, t.activeTabID, now)
	}
	t.activeTabID = tabID
	t.startTimes[tabID] = now
}

// OnTabUpdatedURL handles an in-tab navigation: the prior interval of the
// currently active tab is flushed and timing restarts for tabID, exactly as
// on activation.
func (t *Tracker) OnTabUpdatedURL(ctx context.Context, tabID int, now time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.activeTabID != noTab {
		t.flushLocked(ctx, t.activeTabID, now)
	}
	t.activeTabID = tabID
	t.startTimes[tabID] = now
}

// OnTabRemoved flushes the tab's interval, if any, and forgets its timing
// state.
func (t *Tracker) OnTabRemoved(ctx context.Context, tabID int, now time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.flushLocked(ctx, tabID, now)
	delete(t.startTimes, tabID)
	if t.activeTabID == tabID {
		t.activeTabID = noTab
	}
}

// flushLocked emits the completed interval for tabID ending at now.
// Flushing a tab with no recorded start is a no-op. The interval is
// attributed to the tab's URL at flush time; if the tab cannot be resolved
// the interval is dropped rather than misattributed.
func (t *Tracker) flushLocked(ctx context.Context, tabID int, now time.Time) {
	start, ok := t.startTimes[tabID]
	if !ok {
		return
	}
	delete(t.startTimes, tabID)

	elapsed := now.Sub(start)
	if elapsed < 0 {
		return
	}

	url, err := t.resolver.URL(ctx, tabID)
	if err != nil {
		t.log.Warn(ctx, "dropping dwell interval, tab unresolvable",
			"tab_id", tabID, "elapsed_ms", elapsed.Milliseconds(), "error", err)
		return
	}

	if err := t.sink.RecordVisit(ctx, url, now, elapsed.Milliseconds()); err != nil {
		t.log.Error(ctx, "failed to record visit",
			"tab_id", tabID, "url", url, "error", err)
	}
}
