// Package api provides HTTP handlers and the main API server logic for icpflow.
//
// It exposes RESTful endpoints for creating intake conversations, sending
// messages through the dialogue engine, and reading conversation state.
package api

import (
	"fmt"
	"log/slog"
	"net/http"
	"sync"

	"github.com/leadpilot/icpflow/internal/genai"
	"github.com/leadpilot/icpflow/internal/icp"
	"github.com/leadpilot/icpflow/internal/store"
)

// DefaultAddr is the default listen address for the API server.
const DefaultAddr = ":8080"

// Opts holds configuration options for the API server.
type Opts struct {
	Addr string
}

// Option configures the API server.
type Option func(*Opts)

// WithAddr sets the listen address.
func WithAddr(addr string) Option {
	return func(o *Opts) { o.Addr = addr }
}

// Server wires the dialogue engine to HTTP transport and storage. Turns for
// the same conversation are serialized with a per-conversation lock; turns
// for different conversations run concurrently.
type Server struct {
	st     store.Store
	engine *icp.Engine
	addr   string

	mu    sync.Mutex
	locks map[string]*conversationLock
}

// conversationLock serializes turns for one conversation. Entries are
// reference counted so the lock map does not grow with every conversation
// ever touched.
type conversationLock struct {
	mu   sync.Mutex
	refs int
}

// NewServer creates an API server around the given store and engine.
func NewServer(st store.Store, engine *icp.Engine, opts ...Option) *Server {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.Addr == "" {
		cfg.Addr = DefaultAddr
	}
	return &Server{
		st:     st,
		engine: engine,
		addr:   cfg.Addr,
		locks:  make(map[string]*conversationLock),
	}
}

// lockConversation acquires the turn lock for one conversation, creating the
// entry on first use.
func (s *Server) lockConversation(conversationID string) *conversationLock {
	s.mu.Lock()
	lock, ok := s.locks[conversationID]
	if !ok {
		lock = &conversationLock{}
		s.locks[conversationID] = lock
	}
	lock.refs++
	s.mu.Unlock()
	lock.mu.Lock()
	return lock
}

// unlockConversation releases the turn lock and evicts the entry once no
// other request holds or waits on it.
func (s *Server) unlockConversation(conversationID string, lock *conversationLock) {
	lock.mu.Unlock()
	s.mu.Lock()
	lock.refs--
	if lock.refs == 0 {
		delete(s.locks, conversationID)
	}
	s.mu.Unlock()
}

// Handler builds the HTTP routing table.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /conversations", s.createConversationHandler)
	mux.HandleFunc("POST /conversations/{id}/messages", s.sendMessageHandler)
	mux.HandleFunc("GET /conversations/{id}", s.getConversationHandler)
	return mux
}

// Run assembles the store, the optional generative client, and the server,
// then serves until the listener fails.
func Run(storeOpts []store.Option, genaiOpts []genai.Option, apiOpts []Option) error {
	st, err := buildStore(storeOpts)
	if err != nil {
		return fmt.Errorf("failed to initialize store: %w", err)
	}
	defer st.Close()

	var client genai.ClientInterface
	if len(genaiOpts) > 0 {
		c, err := genai.NewClient(genaiOpts...)
		if err != nil {
			slog.Warn("api.Run: generative client unavailable, running deterministic tiers only", "error", err)
		} else {
			client = c
		}
	} else {
		slog.Info("api.Run: no generative client configured, running deterministic tiers only")
	}

	server := NewServer(st, icp.NewEngine(client), apiOpts...)
	slog.Info("api.Run: listening", "addr", server.addr)
	return http.ListenAndServe(server.addr, server.Handler())
}

// buildStore selects a backend from the provided options: a configured DSN
// picks SQLite or Postgres, no options means in-memory.
func buildStore(storeOpts []store.Option) (store.Store, error) {
	var cfg store.Opts
	for _, opt := range storeOpts {
		opt(&cfg)
	}
	if cfg.DSN == "" {
		slog.Info("api.buildStore: no DSN configured, using in-memory store")
		return store.NewInMemoryStore(), nil
	}
	if store.DetectDSNType(cfg.DSN) == "postgres" {
		slog.Info("api.buildStore: using Postgres store")
		return store.NewPostgresStore(storeOpts...)
	}
	slog.Info("api.buildStore: using SQLite store")
	return store.NewSQLiteStore(storeOpts...)
}
