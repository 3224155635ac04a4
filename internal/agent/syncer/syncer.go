// Package syncer delivers captured records to the collection backend and
// maintains the durable retry queue for anything that failed.
//
// Per-record lifecycle: captured items start out queued (full payload kept
// in pending_data). A successful delivery marks the item synced, stores the
// backend id and drops the bulky payload, leaving only preview metadata; a
// failed one leaves it queued for the next sweep. The periodic sweep
// retries every queued item and evicts those older than the retention age.
package syncer

import (
	"context"
	"sync"
	"time"

	"github.com/dmitrijs2005/webtrail/internal/agent/backend"
	"github.com/dmitrijs2005/webtrail/internal/agent/models"
	"github.com/dmitrijs2005/webtrail/internal/agent/storage"
	"github.com/dmitrijs2005/webtrail/internal/logging"
	"github.com/dmitrijs2005/webtrail/internal/syncx"
)

// Engine drives delivery and retries.
type Engine struct {
	records *storage.Records
	client  backend.Client
	locks   *syncx.KeyMutex
	log     logging.Logger
	maxAge  time.Duration
	notify  func()
	now     func() time.Time

	// delivering marks keys with an attempt in flight so a concurrent
	// sweep skips them instead of double-delivering.
	mu         sync.Mutex
	delivering map[string]struct{}
}

// New returns an engine over records. maxAge is the retention age for
// unsynced queue entries; notify, if non-nil, is invoked after every store
// mutation.
func New(records *storage.Records, client backend.Client, log logging.Logger, maxAge time.Duration, notify func()) *Engine {
	if notify == nil {
		notify = func() {}
	}
	return &Engine{
		records:    records,
		client:     client,
		locks:      syncx.NewKeyMutex(),
		log:        log,
		maxAge:     maxAge,
		notify:     notify,
		now:        time.Now,
		delivering: make(map[string]struct{}),
	}
}

// Submit makes one immediate delivery attempt for the already-stored item.
// On failure the item simply stays queued; the sweep picks it up later.
// Failures are never surfaced to the user.
func (e *Engine) Submit(ctx context.Context, item *models.Item) {
	if item == nil || !item.Pending() {
		return
	}
	e.deliver(ctx, item.Key)
}

// Run executes a sweep every interval until ctx is cancelled. Each sweep
// runs under its own timeout so a hung backend cannot stall the loop.
func (e *Engine) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			sweepCtx, cancel := context.WithTimeout(context.Background(), interval)
			e.Sweep(sweepCtx)
			cancel()
		case <-ctx.Done():
			return
		}
	}
}

// Sweep retries every queued entry and evicts those older than the
// retention age. Eviction does not attempt a final delivery.
func (e *Engine) Sweep(ctx context.Context) {
	items, err := e.records.List(ctx)
	if err != nil {
		e.log.Error(ctx, "sweep failed to list records", "error", err)
		return
	}

	cutoff := e.now().Add(-e.maxAge)

	for _, item := range items {
		if !item.Pending() {
			continue
		}

		if item.AccessedAt.Before(cutoff) {
			e.evict(ctx, item.Key)
			continue
		}

		e.deliver(ctx, item.Key)
	}
}

// deliver performs one delivery attempt for key. The item is re-read under
// its key lock so the attempt always works on the latest stored state; a key
// already being delivered elsewhere is skipped.
func (e *Engine) deliver(ctx context.Context, key string) {
	e.mu.Lock()
	if _, busy := e.delivering[key]; busy {
		e.mu.Unlock()
		return
	}
	e.delivering[key] = struct{}{}
	e.mu.Unlock()

	defer func() {
		e.mu.Lock()
		delete(e.delivering, key)
		e.mu.Unlock()
	}()

	e.locks.Lock(key)
	defer e.locks.Unlock(key)

	item, err := e.records.Get(ctx, key)
	if err != nil {
		e.log.Error(ctx, "failed to load queued item", "key", key, "error", err)
		return
	}
	if item == nil || !item.Pending() {
		return
	}

	backendID, err := e.client.CreatePage(ctx, item.PendingData)
	if err != nil {
		e.log.Warn(ctx, "delivery failed, item stays queued", "key", key, "error", err)
		return
	}

	item.Synced = true
	item.BackendID = backendID
	item.PendingData = nil

	if err := e.records.Put(ctx, item); err != nil {
		// The backend has the record but we could not persist the id;
		// the item stays queued and will be re-sent next sweep.
		e.log.Error(ctx, "failed to mark item synced", "key", key, "error", err)
		return
	}

	e.log.Info(ctx, "record synced", "key", key, "backend_id", backendID)
	e.notify()
}

// evict drops the stale entry for key. The item is re-read under the key
// lock first: a concurrent delivery may have just marked it synced, and
// synced items are never age-evicted.
func (e *Engine) evict(ctx context.Context, key string) {
	e.locks.Lock(key)
	defer e.locks.Unlock(key)

	item, err := e.records.Get(ctx, key)
	if err != nil {
		e.log.Error(ctx, "failed to load item for eviction", "key", key, "error", err)
		return
	}
	if item == nil || !item.Pending() {
		return
	}

	if err := e.records.Delete(ctx, key); err != nil {
		e.log.Error(ctx, "failed to evict stale item", "key", key, "error", err)
		return
	}

	e.log.Info(ctx, "evicted stale unsynced item", "key", key)
	e.notify()
}
