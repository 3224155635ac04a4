// Package aggregator merges incoming visit, page-data and highlight records
// into the persistent store. It owns the merge-key invariant: the canonical
// URL is the merge key for visit records and is never used as a merge key
// for the other two record types.
package aggregator

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrijs2005/webtrail/internal/agent/models"
	"github.com/dmitrijs2005/webtrail/internal/agent/storage"
	"github.com/dmitrijs2005/webtrail/internal/logging"
	"github.com/dmitrijs2005/webtrail/internal/syncx"
)

// Aggregator writes records through the persistent store adapter. Visit
// merges are read-modify-write cycles serialized per canonical URL; without
// that discipline two close-together flushes for the same URL could lose an
// increment.
type Aggregator struct {
	records *storage.Records
	locks   *syncx.KeyMutex
	log     logging.Logger
	notify  func()
}

// New returns an aggregator over records. notify, if non-nil, is invoked
// after every successful store mutation so the presentation surface can
// refresh.
func New(records *storage.Records, log logging.Logger, notify func()) *Aggregator {
	if notify == nil {
		notify = func() {}
	}
	return &Aggregator{
		records: records,
		locks:   syncx.NewKeyMutex(),
		log:     log,
		notify:  notify,
	}
}

// VisitKey returns the store key for the visit record of a canonical URL.
func VisitKey(canonical string) string {
	return "visit:" + canonical
}

// RecordVisit merges a completed dwell interval into the visit record for
// url. The first interval creates the record with visit_count 1; every
// later one adds the duration and increments the count, never overwriting.
// Events without a usable URL are dropped silently.
func (a *Aggregator) RecordVisit(ctx context.Context, url string, ts time.Time, durationMs int64) error {
	canonical, err := models.CanonicalURL(url)
	if err != nil {
		a.log.Debug(ctx, "dropping visit without usable url", "url", url)
		return nil
	}
	if durationMs < 0 {
		durationMs = 0
	}

	key := VisitKey(canonical)
	a.locks.Lock(key)
	defer a.locks.Unlock(key)

	item, err := a.records.Get(ctx, key)
	if err != nil {
		return fmt.Errorf("failed to load visit record: %w", err)
	}

	if item == nil || item.Visit == nil {
		item = &models.Item{
			Key:        key,
			Type:       models.TypeVisit,
			URL:        canonical,
			AccessedAt: ts,
			Visit: &models.VisitRecord{
				URL:         canonical,
				VisitCount:  1,
				TotalTimeMs: durationMs,
				LastVisit:   ts,
				Type:        models.TypeVisit,
			},
		}
	} else {
		item.Visit.VisitCount++
		item.Visit.TotalTimeMs += durationMs
		item.Visit.LastVisit = ts
		item.AccessedAt = ts
	}

	if err := a.records.Put(ctx, item); err != nil {
		return fmt.Errorf("failed to store visit record: %w", err)
	}

	a.notify()
	return nil
}

// RecordPageData appends a new page-data item. The caller must have passed
// the URL through the dedup guard first; the aggregator itself never merges
// page data. Returns the stored item for delivery submission.
func (a *Aggregator) RecordPageData(ctx context.Context, capture *models.PageCapture) (*models.Item, error) {
	canonical, err := models.CanonicalURL(capture.URL)
	if err != nil {
		a.log.Debug(ctx, "dropping page data without usable url", "url", capture.URL)
		return nil, nil
	}

	record := &models.PageDataRecord{
		URL:         canonical,
		Title:       capture.Title,
		ContentHTML: capture.Content,
		Text:        capture.Text,
		Meta:        capture.Meta,
		Images:      capture.Images,
		AccessedAt:  capture.AccessedAt,
		Type:        models.TypePageData,
	}
	payload, err := json.Marshal(record)
	if err != nil {
		return nil, fmt.Errorf("failed to encode page data: %w", err)
	}

	item := &models.Item{
		Key:         "page:" + uuid.NewString(),
		Type:        models.TypePageData,
		AccessedAt:  capture.AccessedAt,
		PendingData: payload,
		Title:       capture.Title,
		URL:         canonical,
		Preview:     models.MakePreview(capture.Text),
		Timestamp:   capture.AccessedAt,
	}

	if err := a.records.Put(ctx, item); err != nil {
		return nil, fmt.Errorf("failed to store page data: %w", err)
	}

	a.notify()
	return item, nil
}

// RecordHighlight appends a new highlight item. Highlights are immutable:
// every remember action yields a distinct record regardless of URL or
// content. Returns the stored item for delivery submission.
func (a *Aggregator) RecordHighlight(ctx context.Context, record *models.HighlightRecord) (*models.Item, error) {
	record.Priority = true
	record.Type = models.TypeHighlight

	payload, err := json.Marshal(record)
	if err != nil {
		return nil, fmt.Errorf("failed to encode highlight: %w", err)
	}

	item := &models.Item{
		Key:         "hl:" + uuid.NewString(),
		Type:        models.TypeHighlight,
		AccessedAt:  record.Timestamp,
		PendingData: payload,
		URL:         record.URL,
		Preview:     models.MakePreview(record.Content),
		Timestamp:   record.Timestamp,
	}

	if err := a.records.Put(ctx, item); err != nil {
		return nil, fmt.Errorf("failed to store highlight: %w", err)
	}

	a.notify()
	return item, nil
}

// List exposes the full record collection for the presentation surface.
func (a *Aggregator) List(ctx context.Context) ([]*models.Item, error) {
	return a.records.List(ctx)
}
