package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/webtrail/internal/agent/engine"
	"github.com/dmitrijs2005/webtrail/internal/agent/models"
	"github.com/dmitrijs2005/webtrail/internal/agent/storage"
	"github.com/dmitrijs2005/webtrail/internal/common"
	"github.com/dmitrijs2005/webtrail/internal/logging"
)

type fakeBackend struct {
	nextID int64
}

func (c *fakeBackend) CreatePage(_ context.Context, _ json.RawMessage) (int64, error) {
	c.nextID++
	return c.nextID, nil
}
func (c *fakeBackend) ReportTimeSpent(_ context.Context, _ int64, _ int) error { return nil }
func (c *fakeBackend) Ping(_ context.Context) error                            { return nil }

func newTestServer(t *testing.T) (*httptest.Server, *TabRegistry) {
	t.Helper()

	log := logging.NewSlogLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
	tabs := NewTabRegistry()
	eng := engine.New(storage.NewMemoryAdapter(), &fakeBackend{}, tabs, time.Hour, log)
	srv := httptest.NewServer(New(eng, tabs, "127.0.0.1:0", log).Handler())
	t.Cleanup(srv.Close)
	return srv, tabs
}

func postEvents(t *testing.T, srv *httptest.Server, batch models.EventBatch) *http.Response {
	t.Helper()
	body, err := json.Marshal(batch)
	require.NoError(t, err)

	resp, err := http.Post(srv.URL+"/events", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func getRecords(t *testing.T, srv *httptest.Server) []*models.Item {
	t.Helper()
	resp, err := http.Get(srv.URL + "/records")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body struct {
		Records []*models.Item `json:"records"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	return body.Records
}

func TestHandleEvents_FullCaptureFlow(t *testing.T) {
	srv, _ := newTestServer(t)

	t0 := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	resp := postEvents(t, srv, models.EventBatch{Events: []models.BrowserEvent{
		{Type: models.EventTabUpdated, TabID: 1, URL: "https://a.test", Timestamp: t0},
		{Type: models.EventTabActivated, TabID: 1, Timestamp: t0},
		{Type: models.EventPageLoaded, Timestamp: t0, Page: &models.PageCapture{
			URL: "https://a.test", Title: "A", Text: "hello", AccessedAt: t0,
		}},
		{Type: models.EventRememberText, Timestamp: t0, Selection: &models.TextSelection{
			Text: "keep this", URL: "https://a.test", Timestamp: t0,
		}},
		{Type: models.EventTabRemoved, TabID: 1, Timestamp: t0.Add(4 * time.Second)},
	}})

	require.Equal(t, http.StatusAccepted, resp.StatusCode)

	records := getRecords(t, srv)

	byType := map[models.RecordType]int{}
	var visit *models.VisitRecord
	for _, item := range records {
		byType[item.Type]++
		if item.Visit != nil {
			visit = item.Visit
		}
	}

	assert.Equal(t, 1, byType[models.TypePageData])
	assert.Equal(t, 1, byType[models.TypeHighlight])
	assert.Equal(t, 1, byType[models.TypeVisit])

	require.NotNil(t, visit)
	assert.Equal(t, 1, visit.VisitCount)
	assert.Equal(t, int64(4000), visit.TotalTimeMs)
}

func TestHandleEvents_RemovedTabForgotten(t *testing.T) {
	srv, tabs := newTestServer(t)

	t0 := time.Now()
	postEvents(t, srv, models.EventBatch{Events: []models.BrowserEvent{
		{Type: models.EventTabUpdated, TabID: 7, URL: "https://a.test", Timestamp: t0},
		{Type: models.EventTabRemoved, TabID: 7, Timestamp: t0},
	}})

	_, err := tabs.URL(context.Background(), 7)
	assert.Error(t, err)
}

func TestHandleEvents_InvalidBody(t *testing.T) {
	srv, _ := newTestServer(t)

	resp, err := http.Post(srv.URL+"/events", "application/json", bytes.NewReader([]byte("{nope")))
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestHealth(t *testing.T) {
	srv, _ := newTestServer(t)

	resp, err := http.Get(srv.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestTabRegistry(t *testing.T) {
	r := NewTabRegistry()
	ctx := context.Background()

	_, err := r.URL(ctx, 1)
	require.ErrorIs(t, err, common.ErrorNotFound)

	r.Set(1, "https://a.test")
	url, err := r.URL(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "https://a.test", url)

	r.Set(1, "https://a.test/next")
	url, _ = r.URL(ctx, 1)
	assert.Equal(t, "https://a.test/next", url)

	r.Remove(1)
	_, err = r.URL(ctx, 1)
	assert.Error(t, err)
}
