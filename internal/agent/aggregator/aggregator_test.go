package aggregator

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/webtrail/internal/agent/models"
	"github.com/dmitrijs2005/webtrail/internal/agent/storage"
	"github.com/dmitrijs2005/webtrail/internal/logging"
)

func newTestAggregator(t *testing.T) (*Aggregator, *storage.Records) {
	t.Helper()
	records := storage.NewRecords(storage.NewMemoryAdapter())
	log := logging.NewSlogLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
	return New(records, log, nil), records
}

func TestRecordVisit_CreateThenMerge(t *testing.T) {
	agg, records := newTestAggregator(t)
	ctx := context.Background()
	ts := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	require.NoError(t, agg.RecordVisit(ctx, "https://a.test", ts, 4000))
	require.NoError(t, agg.RecordVisit(ctx, "https://a.test", ts.Add(10*time.Second), 2000))

	item, err := records.Get(ctx, VisitKey("https://a.test"))
	require.NoError(t, err)
	require.NotNil(t, item)
	require.NotNil(t, item.Visit)

	assert.Equal(t, "https://a.test", item.Visit.URL)
	assert.Equal(t, 2, item.Visit.VisitCount)
	assert.Equal(t, int64(6000), item.Visit.TotalTimeMs)
	assert.Equal(t, ts.Add(10*time.Second), item.Visit.LastVisit)
	assert.False(t, item.Pending(), "visit records never enter the sync queue")
}

func TestRecordVisit_MergeIsAdditiveUnderReplay(t *testing.T) {
	agg, records := newTestAggregator(t)
	ctx := context.Background()
	ts := time.Now()

	require.NoError(t, agg.RecordVisit(ctx, "https://a.test", ts, 1500))
	before, err := records.Get(ctx, VisitKey("https://a.test"))
	require.NoError(t, err)

	require.NoError(t, agg.RecordVisit(ctx, "https://a.test", ts, 1500))
	require.NoError(t, agg.RecordVisit(ctx, "https://a.test", ts, 1500))

	after, err := records.Get(ctx, VisitKey("https://a.test"))
	require.NoError(t, err)
	assert.Equal(t, before.Visit.VisitCount+2, after.Visit.VisitCount)
	assert.Equal(t, before.Visit.TotalTimeMs+3000, after.Visit.TotalTimeMs)
}

func TestRecordVisit_URLVariantsShareOneRecord(t *testing.T) {
	agg, records := newTestAggregator(t)
	ctx := context.Background()
	ts := time.Now()

	require.NoError(t, agg.RecordVisit(ctx, "https://a.test/page#top", ts, 1000))
	require.NoError(t, agg.RecordVisit(ctx, "https://A.TEST/page?utm_source=mail", ts, 1000))

	items, err := records.List(ctx)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, 2, items[0].Visit.VisitCount)
	assert.Equal(t, int64(2000), items[0].Visit.TotalTimeMs)
}

func TestRecordVisit_ConcurrentMergesLoseNothing(t *testing.T) {
	agg, records := newTestAggregator(t)
	ctx := context.Background()

	const n = 60
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = agg.RecordVisit(ctx, "https://a.test", time.Now(), 100)
		}()
	}
	wg.Wait()

	item, err := records.Get(ctx, VisitKey("https://a.test"))
	require.NoError(t, err)
	assert.Equal(t, n, item.Visit.VisitCount, "no increment may be lost to a merge race")
	assert.Equal(t, int64(n*100), item.Visit.TotalTimeMs)
}

func TestRecordVisit_MalformedURLDroppedSilently(t *testing.T) {
	agg, records := newTestAggregator(t)
	ctx := context.Background()

	require.NoError(t, agg.RecordVisit(ctx, "not a url", time.Now(), 1000))

	items, err := records.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestRecordPageData_AppendsQueuedItem(t *testing.T) {
	agg, records := newTestAggregator(t)
	ctx := context.Background()
	ts := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	item, err := agg.RecordPageData(ctx, &models.PageCapture{
		URL:        "https://a.test/article?utm_source=x",
		Title:      "Article",
		Text:       "body text",
		AccessedAt: ts,
	})
	require.NoError(t, err)
	require.NotNil(t, item)

	assert.Equal(t, models.TypePageData, item.Type)
	assert.Equal(t, "https://a.test/article", item.URL, "stored under the canonical URL")
	assert.True(t, item.Pending())

	stored, err := records.Get(ctx, item.Key)
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, "Article", stored.Title)
}

func TestRecordHighlight_EveryActionYieldsDistinctRecord(t *testing.T) {
	agg, records := newTestAggregator(t)
	ctx := context.Background()
	ts := time.Now()

	first, err := agg.RecordHighlight(ctx, &models.HighlightRecord{
		Content: "first snippet", OriginalType: models.HighlightText,
		URL: "https://a.test", Timestamp: ts,
	})
	require.NoError(t, err)
	second, err := agg.RecordHighlight(ctx, &models.HighlightRecord{
		Content: "second snippet", OriginalType: models.HighlightText,
		URL: "https://a.test", Timestamp: ts,
	})
	require.NoError(t, err)

	assert.NotEqual(t, first.Key, second.Key)

	items, err := records.List(ctx)
	require.NoError(t, err)
	assert.Len(t, items, 2, "highlights are never merged or dropped")
	for _, item := range items {
		assert.True(t, item.Pending())
	}
}

func TestAggregator_NotifyFiresOnWrites(t *testing.T) {
	records := storage.NewRecords(storage.NewMemoryAdapter())
	log := logging.NewSlogLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))

	notified := 0
	agg := New(records, log, func() { notified++ })
	ctx := context.Background()

	require.NoError(t, agg.RecordVisit(ctx, "https://a.test", time.Now(), 500))
	_, err := agg.RecordHighlight(ctx, &models.HighlightRecord{
		Content: "x", OriginalType: models.HighlightText, URL: "https://a.test", Timestamp: time.Now(),
	})
	require.NoError(t, err)

	assert.Equal(t, 2, notified)
}
