// Package engine wires the capture components together and exposes the
// command surface: automatic page capture, user "remember" actions and
// tab-driven visit events.
package engine

import (
	"context"
	"sync"
	"time"

	"github.com/dmitrijs2005/webtrail/internal/agent/aggregator"
	"github.com/dmitrijs2005/webtrail/internal/agent/backend"
	"github.com/dmitrijs2005/webtrail/internal/agent/dedup"
	"github.com/dmitrijs2005/webtrail/internal/agent/models"
	"github.com/dmitrijs2005/webtrail/internal/agent/storage"
	"github.com/dmitrijs2005/webtrail/internal/agent/syncer"
	"github.com/dmitrijs2005/webtrail/internal/agent/tracker"
	"github.com/dmitrijs2005/webtrail/internal/logging"
)

// Notifier fans out store-change notifications to presentation-surface
// subscribers. Sends never block: a slow subscriber just coalesces
// notifications.
type Notifier struct {
	mu   sync.Mutex
	subs []chan struct{}
}

// Subscribe returns a channel that receives a signal after every store
// change.
func (n *Notifier) Subscribe() <-chan struct{} {
	n.mu.Lock()
	defer n.mu.Unlock()

	ch := make(chan struct{}, 1)
	n.subs = append(n.subs, ch)
	return ch
}

// Notify signals all subscribers.
func (n *Notifier) Notify() {
	n.mu.Lock()
	defer n.mu.Unlock()

	for _, ch := range n.subs {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

// Engine is the capture and sync core. All event handlers run to
// completion and handle their own failures; nothing here surfaces an error
// to the user.
type Engine struct {
	guard    *dedup.Guard
	agg      *aggregator.Aggregator
	syn      *syncer.Engine
	tracker  *tracker.Tracker
	client   backend.Client
	records  *storage.Records
	notifier *Notifier
	log      logging.Logger
}

// New assembles the engine over the given store adapter, backend client and
// tab resolver. maxQueueAge is the retention age for unsynced records.
func New(adapter storage.Adapter, client backend.Client, resolver tracker.TabResolver,
	maxQueueAge time.Duration, log logging.Logger) *Engine {

	notifier := &Notifier{}
	records := storage.NewRecords(adapter)

	e := &Engine{
		guard:    dedup.NewGuard(),
		client:   client,
		records:  records,
		notifier: notifier,
		log:      log,
	}
	e.agg = aggregator.New(records, log, notifier.Notify)
	e.syn = syncer.New(records, client, log, maxQueueAge, notifier.Notify)
	e.tracker = tracker.New(resolver, e, log)

	return e
}

// Subscribe exposes the change-notification channel for the presentation
// surface.
func (e *Engine) Subscribe() <-chan struct{} {
	return e.notifier.Subscribe()
}

// Records returns the full record collection, read-only.
func (e *Engine) Records(ctx context.Context) ([]*models.Item, error) {
	return e.records.List(ctx)
}

// RunSweeper runs the sync engine's retry/eviction loop until ctx is
// cancelled.
func (e *Engine) RunSweeper(ctx context.Context, interval time.Duration) {
	e.syn.Run(ctx, interval)
}

// Sweep triggers one retry/eviction pass immediately.
func (e *Engine) Sweep(ctx context.Context) {
	e.syn.Sweep(ctx)
}

// HandleEvent dispatches one raw browser event to the matching handler.
// Unknown event types are dropped with a log line.
func (e *Engine) HandleEvent(ctx context.Context, ev models.BrowserEvent) {
	ts := ev.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}

	switch ev.Type {
	case models.EventTabActivated:
		e.tracker.OnTabActivated(ctx, ev.TabID, ts)
	case models.EventTabUpdated:
		e.tracker.OnTabUpdatedURL(ctx, ev.TabID, ts)
	case models.EventTabRemoved:
		e.tracker.OnTabRemoved(ctx, ev.TabID, ts)
	case models.EventPageLoaded:
		if ev.Page != nil {
			e.HandlePageLoaded(ctx, ev.Page)
		}
	case models.EventRememberText:
		if ev.Selection != nil {
			e.HandleRememberText(ctx, ev.Selection)
		}
	case models.EventRememberImage:
		if ev.Image != nil {
			e.HandleRememberImage(ctx, ev.Image)
		}
	default:
		e.log.Debug(ctx, "ignoring unknown event", "type", ev.Type)
	}
}

// HandlePageLoaded is the automatic capture path: the dedup guard gates the
// extracted page, and a page passing the gate is stored and submitted for
// delivery.
func (e *Engine) HandlePageLoaded(ctx context.Context, page *models.PageCapture) {
	canonical, err := models.CanonicalURL(page.URL)
	if err != nil {
		e.log.Debug(ctx, "dropping page load without usable url", "url", page.URL)
		return
	}

	if !e.guard.ShouldProcess(canonical) {
		e.log.Debug(ctx, "page already captured this session", "url", canonical)
		return
	}

	if page.AccessedAt.IsZero() {
		page.AccessedAt = time.Now()
	}

	item, err := e.agg.RecordPageData(ctx, page)
	if err != nil {
		e.log.Error(ctx, "failed to record page data", "url", canonical, "error", err)
		return
	}
	if item != nil {
		e.syn.Submit(ctx, item)
	}
}

// HandleRememberText records a user-selected text snippet. Remember actions
// bypass the dedup guard: every action yields a new record.
func (e *Engine) HandleRememberText(ctx context.Context, sel *models.TextSelection) {
	e.recordHighlight(ctx, &models.HighlightRecord{
		Content:      sel.Text,
		OriginalType: models.HighlightText,
		URL:          sel.URL,
		Timestamp:    sel.Timestamp,
	})
}

// HandleRememberImage records a right-clicked image by its URL.
func (e *Engine) HandleRememberImage(ctx context.Context, img *models.ImageCapture) {
	e.recordHighlight(ctx, &models.HighlightRecord{
		Content:      img.ImageURL,
		OriginalType: models.HighlightImage,
		URL:          img.URL,
		Timestamp:    img.Timestamp,
	})
}

func (e *Engine) recordHighlight(ctx context.Context, record *models.HighlightRecord) {
	if record.Content == "" {
		e.log.Debug(ctx, "dropping empty remember action", "url", record.URL)
		return
	}
	if record.Timestamp.IsZero() {
		record.Timestamp = time.Now()
	}

	item, err := e.agg.RecordHighlight(ctx, record)
	if err != nil {
		e.log.Error(ctx, "failed to record highlight", "url", record.URL, "error", err)
		return
	}
	e.syn.Submit(ctx, item)
}

// RecordVisit implements tracker.VisitSink: the merged visit is stored
// locally and, when the page is already known to the backend, the dwell
// time is reported there best-effort as well.
func (e *Engine) RecordVisit(ctx context.Context, url string, ts time.Time, durationMs int64) error {
	if err := e.agg.RecordVisit(ctx, url, ts, durationMs); err != nil {
		return err
	}

	e.reportTimeSpent(ctx, url, durationMs)
	return nil
}

// reportTimeSpent pushes a dwell increment for url to the backend if a
// synced page-data record exists for it. Failures are logged and dropped;
// visit records stay local-first and are never queued for delivery.
func (e *Engine) reportTimeSpent(ctx context.Context, url string, durationMs int64) {
	seconds := int(durationMs / 1000)
	if seconds < 1 {
		return
	}

	canonical, err := models.CanonicalURL(url)
	if err != nil {
		return
	}

	items, err := e.records.List(ctx)
	if err != nil {
		e.log.Warn(ctx, "failed to list records for time-spent report", "error", err)
		return
	}

	for _, item := range items {
		if item.Type != models.TypePageData || !item.Synced || item.URL != canonical {
			continue
		}
		if err := e.client.ReportTimeSpent(ctx, item.BackendID, seconds); err != nil {
			e.log.Debug(ctx, "time-spent report failed",
				"url", canonical, "backend_id", item.BackendID, "error", err)
		}
		return
	}
}
