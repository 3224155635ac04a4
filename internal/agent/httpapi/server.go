// Package httpapi is the localhost intake for the capture agent: the
// browser extension posts raw event batches here, and the presentation
// surface reads the aggregated record collection back.
package httpapi

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"time"

	"github.com/dmitrijs2005/webtrail/internal/agent/engine"
	"github.com/dmitrijs2005/webtrail/internal/agent/models"
	"github.com/dmitrijs2005/webtrail/internal/logging"
)

// Server accepts browser events and serves read-only record access.
type Server struct {
	engine *engine.Engine
	tabs   *TabRegistry
	log    logging.Logger
	addr   string

	ready     chan struct{}
	boundAddr string
}

// New returns a server bound to addr. tabs must be the same registry the
// engine's tracker resolves URLs from.
func New(e *engine.Engine, tabs *TabRegistry, addr string, log logging.Logger) *Server {
	return &Server{engine: e, tabs: tabs, log: log, addr: addr, ready: make(chan struct{})}
}

// Ready is closed once the listener accepts connections.
func (s *Server) Ready() <-chan struct{} {
	return s.ready
}

// Addr returns the bound listen address. Valid only after Ready.
func (s *Server) Addr() string {
	return s.boundAddr
}

// Handler builds the route table.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /events", s.handleEvents)
	mux.HandleFunc("GET /records", s.handleRecords)
	mux.HandleFunc("GET /health", s.handleHealth)

	return mux
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return err
	}
	s.boundAddr = ln.Addr().String()
	close(s.ready)

	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

// handleEvents ingests one batch of browser events. Events are applied in
// order; the tab registry is updated alongside so that flush-time URL
// lookups see the platform state at the moment of each event.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	var batch models.EventBatch
	if err := json.NewDecoder(r.Body).Decode(&batch); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid batch"})
		return
	}

	ctx := r.Context()
	for _, ev := range batch.Events {
		if ev.Type == models.EventTabUpdated && ev.URL != "" {
			s.tabs.Set(ev.TabID, ev.URL)
		}

		s.engine.HandleEvent(ctx, ev)

		// Forget the tab only after the engine flushed its interval.
		if ev.Type == models.EventTabRemoved {
			s.tabs.Remove(ev.TabID)
		}
	}

	writeJSON(w, http.StatusAccepted, map[string]int{"accepted": len(batch.Events)})
}

func (s *Server) handleRecords(w http.ResponseWriter, r *http.Request) {
	items, err := s.engine.Records(r.Context())
	if err != nil {
		s.log.Error(r.Context(), "failed to list records", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "store unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"records": items})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
