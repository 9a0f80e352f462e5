// Package bridge runs the optional loopback diagnostics server. It exposes
// health, prometheus metrics, the latest engine snapshot, and accepts remote
// decisions that are forwarded into the UI loop.
package bridge

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"
	"github.com/go-chi/render"
	"github.com/rs/zerolog"

	"github.com/kingrea/devmatch/internal/gesture"
)

// ServerStatus reports runtime lifecycle states for the HTTP server.
type ServerStatus string

const (
	StatusStarting ServerStatus = "starting"
	StatusReady    ServerStatus = "ready"
	StatusDraining ServerStatus = "draining"
)

// ErrDisabled is returned by Start when the settings leave the bridge off.
var ErrDisabled = errors.New("bridge: server disabled")

// Dispatcher forwards messages into the running program. *tea.Program
// satisfies it.
type Dispatcher interface {
	Send(msg tea.Msg)
}

// CommitRequest asks the UI to commit a decision for the presented
// candidate. The UI applies the usual head guard.
type CommitRequest struct {
	CandidateID string
	Action      gesture.Action
}

// Server wraps the HTTP listener and handlers.
type Server struct {
	settings   Settings
	state      *StateStore
	metrics    http.Handler
	dispatcher Dispatcher
	log        zerolog.Logger
	clock      func() time.Time

	mu        sync.RWMutex
	server    *http.Server
	listener  net.Listener
	status    ServerStatus
	startTime time.Time
}

// Option customizes server construction.
type Option func(*Server)

// WithMetrics mounts h at /metrics.
func WithMetrics(h http.Handler) Option {
	return func(s *Server) {
		s.metrics = h
	}
}

// WithDispatcher enables POST /decisions.
func WithDispatcher(d Dispatcher) Option {
	return func(s *Server) {
		s.dispatcher = d
	}
}

// WithLogger sets the diagnostic logger.
func WithLogger(log zerolog.Logger) Option {
	return func(s *Server) {
		s.log = log
	}
}

// WithClock allows tests to control timestamps.
func WithClock(clock func() time.Time) Option {
	return func(s *Server) {
		if clock != nil {
			s.clock = clock
		}
	}
}

// NewServer prepares a bridge server serving snapshots from state.
func NewServer(settings Settings, state *StateStore, opts ...Option) *Server {
	if state == nil {
		state = &StateStore{}
	}
	s := &Server{
		settings: settings,
		state:    state,
		log:      zerolog.Nop(),
		clock:    func() time.Time { return time.Now().UTC() },
		status:   StatusStarting,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// Handler builds the router. It is exported for tests that do not need a
// listener.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(httprate.LimitByIP(s.settings.RateLimit, time.Minute))

	r.Get("/health", s.handleHealth)
	r.Get("/state", s.handleState)
	if s.metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.metrics)
	}
	r.Post("/decisions", s.handleDecision)
	return r
}

// Start binds the TCP listener and begins serving HTTP traffic.
func (s *Server) Start(ctx context.Context) error {
	if s == nil {
		return fmt.Errorf("bridge: server is nil")
	}
	if !s.settings.Enabled {
		return ErrDisabled
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener != nil {
		return fmt.Errorf("bridge: server already started")
	}
	addr := s.settings.Address()
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("bridge: listen %s: %w", addr, err)
	}
	s.listener = listener
	s.startTime = s.clock()
	server := &http.Server{
		Handler:      s.Handler(),
		ReadTimeout:  s.settings.ReadTimeout,
		WriteTimeout: s.settings.WriteTimeout,
		IdleTimeout:  s.settings.IdleTimeout,
	}
	if ctx != nil {
		server.BaseContext = func(net.Listener) context.Context { return ctx }
	}
	s.server = server
	s.status = StatusReady
	go func() {
		if err := server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.Error().Err(err).Msg("bridge_serve_failed")
		}
	}()
	s.log.Info().Str("addr", listener.Addr().String()).Msg("bridge_listening")
	return nil
}

// Shutdown stops accepting new connections and waits for in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	if s == nil {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil || s.server == nil {
		return nil
	}
	s.status = StatusDraining
	if ctx == nil {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
	}
	if err := s.server.Shutdown(ctx); err != nil {
		return err
	}
	s.listener = nil
	s.server = nil
	return nil
}

// Addr returns the bound TCP address once the server has started.
func (s *Server) Addr() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// BaseURL returns the HTTP base URL for the running server.
func (s *Server) BaseURL() string {
	addr := s.Addr()
	if addr == "" {
		return s.settings.URL()
	}
	return "http://" + addr
}

// Status reports the server's lifecycle state.
func (s *Server) Status() ServerStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.status
}

func (s *Server) uptimeSeconds() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.startTime.IsZero() {
		return 0
	}
	return int64(s.clock().Sub(s.startTime).Seconds())
}

type healthResponse struct {
	Status        string `json:"status"`
	UptimeSeconds int64  `json:"uptime_seconds"`
	Decisions     bool   `json:"decisions_enabled"`
}

type decisionRequest struct {
	CandidateID string `json:"candidate_id"`
	Action      string `json:"action"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, healthResponse{
		Status:        string(s.Status()),
		UptimeSeconds: s.uptimeSeconds(),
		Decisions:     s.dispatcher != nil,
	})
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	snap, ok := s.state.Latest()
	if !ok {
		render.Status(r, http.StatusServiceUnavailable)
		render.JSON(w, r, errorResponse{Error: "no state published yet"})
		return
	}
	render.JSON(w, r, snap)
}

func (s *Server) handleDecision(w http.ResponseWriter, r *http.Request) {
	if s.dispatcher == nil {
		render.Status(r, http.StatusServiceUnavailable)
		render.JSON(w, r, errorResponse{Error: "decisions are not accepted"})
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, s.settings.MaxBodyBytes)
	var req decisionRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, errorResponse{Error: "invalid JSON"})
		return
	}
	action := gesture.Action(strings.ToLower(strings.TrimSpace(req.Action)))
	if !action.Valid() {
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, errorResponse{Error: "action must be interested or ignored"})
		return
	}
	id := strings.TrimSpace(req.CandidateID)
	if id == "" {
		if snap, ok := s.state.Latest(); ok && snap.Head != nil {
			id = snap.Head.ID
		}
	}
	if id == "" {
		render.Status(r, http.StatusConflict)
		render.JSON(w, r, errorResponse{Error: "no candidate is presented"})
		return
	}
	s.log.Info().Str("candidate_id", id).Str("action", string(action)).
		Str("request_id", middleware.GetReqID(r.Context())).Msg("bridge_decision_received")
	s.dispatcher.Send(CommitRequest{CandidateID: id, Action: action})
	render.Status(r, http.StatusAccepted)
	render.JSON(w, r, map[string]string{"status": "accepted", "candidate_id": id})
}
