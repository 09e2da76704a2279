// Package compareserver implements a local SmartUI comparison server:
// the development/test stand-in for the hosted service the capture client
// talks to. It honors the same HTTP contract (healthcheck, domserializer,
// snapshot) and produces real warnings by diffing each upload against the
// previous upload of the same name.
package compareserver

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	httpSwagger "github.com/swaggo/http-swagger/v2"

	_ "github.com/smartui-sdk/smartui-go/internal/compareserver/docs" // swagger spec
	"github.com/smartui-sdk/smartui-go/internal/interfaces"
	"github.com/smartui-sdk/smartui-go/internal/logging"
	"github.com/smartui-sdk/smartui-go/internal/model"
)

// BuildEvent is pushed to websocket subscribers for every accepted upload.
type BuildEvent struct {
	SnapshotID string    `json:"snapshot_id"`
	Name       string    `json:"name"`
	TestType   string    `json:"test_type"`
	URL        string    `json:"url"`
	Warnings   []string  `json:"warnings"`
	CreatedAt  time.Time `json:"created_at"`
}

// Server is the HTTP + WebSocket surface of the comparison server.
type Server struct {
	cfg      Config
	router   chi.Router
	store    *snapshotStore
	logger   interfaces.Logger
	upgrader websocket.Upgrader

	subMu       sync.Mutex
	subscribers map[*websocket.Conn]chan BuildEvent
}

// subscriberBuffer bounds the per-subscriber event queue. Events beyond it
// are dropped for that subscriber rather than stalling uploads.
const subscriberBuffer = 64

// NewServer creates a Server with its own snapshot store.
func NewServer(cfg Config) (*Server, error) {
	logger := logging.OrNop(cfg.Logger).With(interfaces.Field{Key: "component", Value: "compareserver"})

	if cfg.StoragePath == "" {
		cfg.StoragePath = DefaultConfig().StoragePath
	}
	if cfg.ChangeWarnPercent <= 0 {
		cfg.ChangeWarnPercent = DefaultConfig().ChangeWarnPercent
	}

	store, err := newSnapshotStore(cfg.StoragePath)
	if err != nil {
		return nil, fmt.Errorf("creating snapshot store: %w", err)
	}

	s := &Server{
		cfg:    cfg,
		router: chi.NewRouter(),
		store:  store,
		logger: logger,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				// Local development server; all origins accepted.
				return true
			},
		},
		subscribers: make(map[*websocket.Conn]chan BuildEvent),
	}
	s.routes()
	return s, nil
}

// Router returns the HTTP handler for mounting or tests.
func (s *Server) Router() http.Handler { return s.router }

// Start serves until the listener fails.
func (s *Server) Start() error {
	s.logger.Info("comparison server listening",
		interfaces.Field{Key: "addr", Value: s.cfg.Addr})
	return http.ListenAndServe(s.cfg.Addr, s.router)
}

// Close releases the snapshot store.
func (s *Server) Close() error {
	return s.store.Close()
}

func (s *Server) routes() {
	r := s.router

	r.Get("/healthcheck", s.handleHealthcheck)
	r.Get("/domserializer", s.handleSerializer)
	r.Post("/snapshot", s.handleSnapshot)
	r.Get("/ws/builds", s.handleBuildEvents)

	r.Get("/swagger/*", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
	))
}

// handleHealthcheck godoc
// @Summary Liveness and version probe
// @Produce json
// @Success 200 {object} model.HealthEnvelope
// @Router /healthcheck [get]
func (s *Server) handleHealthcheck(w http.ResponseWriter, r *http.Request) {
	var env model.HealthEnvelope
	env.Data.CLIVersion = s.cfg.CLIVersion
	s.writeJSON(w, http.StatusOK, env)
}

// handleSerializer godoc
// @Summary Fetch the injectable DOM serializer source
// @Produce json
// @Success 200 {object} model.SerializerEnvelope
// @Router /domserializer [get]
func (s *Server) handleSerializer(w http.ResponseWriter, r *http.Request) {
	var env model.SerializerEnvelope
	env.Data.DOM = serializerSource
	s.writeJSON(w, http.StatusOK, env)
}

// handleSnapshot godoc
// @Summary Upload a captured snapshot
// @Accept json
// @Produce json
// @Success 200 {object} model.UploadEnvelope
// @Failure 400 {object} model.ErrorEnvelope
// @Router /snapshot [post]
func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	var req model.SnapshotRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid snapshot payload: "+err.Error())
		return
	}
	if req.Snapshot == nil || strings.TrimSpace(req.Snapshot.Name) == "" {
		s.writeError(w, http.StatusBadRequest, "snapshot name is required")
		return
	}
	if req.Snapshot.DOM == "" {
		s.writeError(w, http.StatusBadRequest, "snapshot dom is required")
		return
	}

	warnings := []string{}
	if req.TestType == "" {
		warnings = append(warnings, fmt.Sprintf("snapshot %q: missing testType; attribution unknown", req.Snapshot.Name))
	}

	prev, err := s.store.latestByName(r.Context(), req.Snapshot.Name)
	if err != nil {
		s.logger.Error("baseline lookup failed",
			interfaces.Field{Key: "snapshot", Value: req.Snapshot.Name},
			interfaces.Field{Key: "error", Value: err.Error()})
		s.writeError(w, http.StatusInternalServerError, "baseline lookup failed")
		return
	}
	if prev != nil {
		changed := changePercent(normalizeDOM(prev.DOM), normalizeDOM(req.Snapshot.DOM))
		if changed >= s.cfg.ChangeWarnPercent {
			warnings = append(warnings, fmt.Sprintf("snapshot %q: DOM changed %.1f%% since previous upload", req.Snapshot.Name, changed))
		}
		if prev.URL != "" && req.Snapshot.URL != "" && prev.URL != req.Snapshot.URL {
			warnings = append(warnings, fmt.Sprintf("snapshot %q: url changed from %s to %s", req.Snapshot.Name, prev.URL, req.Snapshot.URL))
		}
	}

	stored, err := s.store.insert(r.Context(), &req)
	if err != nil {
		s.logger.Error("storing snapshot failed",
			interfaces.Field{Key: "snapshot", Value: req.Snapshot.Name},
			interfaces.Field{Key: "error", Value: err.Error()})
		s.writeError(w, http.StatusInternalServerError, "storing snapshot failed")
		return
	}

	s.logger.Info("snapshot accepted",
		interfaces.Field{Key: "snapshot", Value: stored.Name},
		interfaces.Field{Key: "test_type", Value: stored.TestType},
		interfaces.Field{Key: "warnings", Value: len(warnings)})

	s.broadcast(BuildEvent{
		SnapshotID: stored.ID,
		Name:       stored.Name,
		TestType:   stored.TestType,
		URL:        stored.URL,
		Warnings:   warnings,
		CreatedAt:  stored.CreatedAt,
	})

	var env model.UploadEnvelope
	env.Data.Warnings = warnings
	s.writeJSON(w, http.StatusOK, env)
}

// handleBuildEvents upgrades to a websocket and streams BuildEvents until
// the peer goes away. Each subscriber gets its own event channel drained by
// a single goroutine: gorilla connections allow only one concurrent writer,
// so concurrent upload handlers must never touch the conn directly.
func (s *Server) handleBuildEvents(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed",
			interfaces.Field{Key: "error", Value: err.Error()})
		return
	}

	events := make(chan BuildEvent, subscriberBuffer)
	s.subMu.Lock()
	s.subscribers[conn] = events
	s.subMu.Unlock()

	// Sole writer for this connection. Exits when dropSubscriber closes
	// the channel or the peer stops accepting frames.
	go func() {
		for ev := range events {
			if err := conn.WriteJSON(ev); err != nil {
				s.dropSubscriber(conn)
				return
			}
		}
	}()

	// Reader loop only to detect close; the server never expects input.
	go func() {
		defer s.dropSubscriber(conn)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}

// dropSubscriber is idempotent; the writer goroutine and the reader loop
// may both reach it for the same connection.
func (s *Server) dropSubscriber(conn *websocket.Conn) {
	s.subMu.Lock()
	if events, ok := s.subscribers[conn]; ok {
		delete(s.subscribers, conn)
		close(events)
	}
	s.subMu.Unlock()
	_ = conn.Close()
}

// broadcast fans the event out to every subscriber queue. Sends happen
// under subMu so no queue can be closed mid-send; a full queue drops the
// event for that subscriber instead of stalling the upload handler.
func (s *Server) broadcast(ev BuildEvent) {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	for _, events := range s.subscribers {
		select {
		case events <- ev:
		default:
		}
	}
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Warn("writing response failed",
			interfaces.Field{Key: "error", Value: err.Error()})
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, msg string) {
	s.writeJSON(w, status, model.ErrorEnvelope{Error: &model.APIError{Message: msg}})
}
