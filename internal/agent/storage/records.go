package storage

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/dmitrijs2005/webtrail/internal/agent/models"
)

// RecordsBucket is the single named collection holding all captured records.
const RecordsBucket = "records"

// Records is a typed view of the record collection: items are stored as JSON
// under their key in RecordsBucket.
type Records struct {
	adapter Adapter
}

// NewRecords wraps adapter with the typed record API.
func NewRecords(adapter Adapter) *Records {
	return &Records{adapter: adapter}
}

// Get returns the item stored under key, or nil if absent.
func (r *Records) Get(ctx context.Context, key string) (*models.Item, error) {
	data, err := r.adapter.Get(ctx, RecordsBucket, key)
	if err != nil {
		return nil, err
	}
	if data == nil {
		return nil, nil
	}

	var item models.Item
	if err := json.Unmarshal(data, &item); err != nil {
		return nil, fmt.Errorf("failed to decode item %s: %w", key, err)
	}
	return &item, nil
}

// Put stores item under its key, replacing any previous version atomically.
func (r *Records) Put(ctx context.Context, item *models.Item) error {
	data, err := json.Marshal(item)
	if err != nil {
		return fmt.Errorf("failed to encode item %s: %w", item.Key, err)
	}
	return r.adapter.Set(ctx, RecordsBucket, item.Key, data)
}

// Delete removes the item stored under key.
func (r *Records) Delete(ctx context.Context, key string) error {
	return r.adapter.Delete(ctx, RecordsBucket, key)
}

// List returns every stored item. Entries that fail to decode are skipped;
// a corrupt row must not take the whole collection down with it.
func (r *Records) List(ctx context.Context) ([]*models.Item, error) {
	raw, err := r.adapter.List(ctx, RecordsBucket)
	if err != nil {
		return nil, err
	}

	items := make([]*models.Item, 0, len(raw))
	for key, data := range raw {
		var item models.Item
		if err := json.Unmarshal(data, &item); err != nil {
			continue
		}
		if item.Key == "" {
			item.Key = key
		}
		items = append(items, &item)
	}
	return items, nil
}
