// Package server publishes solver progress over HTTP.
//
// The server is a valueiter.SweepObserver. Every sweep replaces the latest
// [Snapshot], which is served as JSON on /api/run and pushed to websocket
// clients on /ws at most once per publish interval.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/san-kum/dynprog/internal/valueiter"
)

const shutdownTimeout = 5 * time.Second

// Snapshot summarizes the engine after one sweep.
type Snapshot struct {
	Title     string  `json:"title"`
	Iteration int     `json:"iteration"`
	Norm      float64 `json:"norm"`
	Phase     string  `json:"phase"`
	Done      bool    `json:"done"`
	Tolerance float64 `json:"tolerance"`
	Budget    int     `json:"max_iterations"`
}

type Server struct {
	addr   string
	logger *zap.Logger
	router *mux.Router

	mu     sync.RWMutex
	latest Snapshot
	subs   map[int]chan Snapshot
	nextID int
}

type Option func(*Server)

func WithLogger(l *zap.Logger) Option {
	return func(s *Server) { s.logger = l }
}

// New builds a server for a run described by title and solver cfg.
func New(addr, title string, cfg valueiter.Config, opts ...Option) *Server {
	s := &Server{
		addr:   addr,
		logger: zap.NewNop(),
		subs:   make(map[int]chan Snapshot),
		latest: Snapshot{
			Title:     title,
			Phase:     valueiter.PhaseInitializing.String(),
			Tolerance: cfg.Tolerance,
			Budget:    cfg.MaxIterations,
		},
	}
	for _, opt := range opts {
		opt(s)
	}

	r := mux.NewRouter()
	r.HandleFunc("/", s.serveIndex).Methods(http.MethodGet)
	r.HandleFunc("/api/run", s.serveRun).Methods(http.MethodGet)
	r.HandleFunc("/ws", s.serveWebsocket).Methods(http.MethodGet)
	s.router = r
	return s
}

func (s *Server) Handler() http.Handler { return s.router }

// Latest returns the most recent snapshot.
func (s *Server) Latest() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.latest
}

// OnSweep records the sweep and hands it to every subscriber without
// blocking. A slow subscriber only ever sees the newest snapshot.
func (s *Server) OnSweep(sw valueiter.Sweep) error {
	s.mu.Lock()
	s.latest.Iteration = sw.Iteration
	s.latest.Norm = sw.Norm
	s.latest.Phase = sw.Phase.String()
	s.latest.Done = sw.Phase.Done()
	snap := s.latest
	for _, ch := range s.subs {
		offer(ch, snap)
	}
	s.mu.Unlock()
	return nil
}

func offer(ch chan Snapshot, snap Snapshot) {
	select {
	case ch <- snap:
		return
	default:
	}
	select {
	case <-ch:
	default:
	}
	select {
	case ch <- snap:
	default:
	}
}

func (s *Server) subscribe() (<-chan Snapshot, func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextID
	s.nextID++
	ch := make(chan Snapshot, 1)
	s.subs[id] = ch
	return ch, func() {
		s.mu.Lock()
		delete(s.subs, id)
		s.mu.Unlock()
	}
}

// Subscribers is the number of connected websocket clients.
func (s *Server) Subscribers() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.subs)
}

func (s *Server) serveRun(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(s.Latest()); err != nil {
		s.logger.Warn("encode snapshot", zap.Error(err))
	}
}

// Serve listens on the server address until ctx is cancelled, then shuts
// down. Open websocket streams end with ctx.
func (s *Server) Serve(ctx context.Context) error {
	group, gctx := errgroup.WithContext(ctx)
	srv := &http.Server{
		Addr:        s.addr,
		Handler:     s.router,
		BaseContext: func(net.Listener) context.Context { return gctx },
	}

	group.Go(func() error {
		s.logger.Info("serving", zap.String("addr", s.addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serve: %w", err)
		}
		return nil
	})
	group.Go(func() error {
		<-gctx.Done()
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(sctx)
	})
	return group.Wait()
}
