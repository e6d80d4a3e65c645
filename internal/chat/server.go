package chat

import (
	"context"
	"errors"
	"sync"
	"time"

	"kindred-sheets/backend/internal/analytics"
	"kindred-sheets/backend/pkg/logger"
)

// Authorization outcomes surfaced by a CoterieAuthorizer
var (
	ErrGroupNotFound = errors.New("coterie not found")
	ErrAccessDenied  = errors.New("access to coterie denied")
)

// CoterieAuthorizer gates coterie session joins against the external
// membership store. It must be consulted before any session state is
// created or mutated for the join.
type CoterieAuthorizer interface {
	AuthorizeSessionAccess(ctx context.Context, coterieID string, userID string) error
}

// Config holds the chat server limits and cadences
type Config struct {
	RateLimitWindow time.Duration
	RateLimitMax    int
	SessionExpiry   time.Duration
	SweepInterval   time.Duration
	SendBuffer      int
}

// DefaultConfig returns the production defaults
func DefaultConfig() Config {
	return Config{
		RateLimitWindow: time.Minute,
		RateLimitMax:    60,
		SessionExpiry:   24 * time.Hour,
		SweepInterval:   time.Hour,
		SendBuffer:      256,
	}
}

// Server is the chat subsystem context object: it owns the session
// registry and rate limiter maps and composes the collaborators every
// handler needs. Nothing in this package is ambient global state.
type Server struct {
	cfg        Config
	registry   *Registry
	limiter    *Limiter
	broadcast  *Broadcaster
	authorizer CoterieAuthorizer
	analytics  analytics.Recorder
	log        *logger.Logger

	mu      sync.Mutex
	clients map[*Client]bool
}

// NewServer creates a chat server
func NewServer(cfg Config, authorizer CoterieAuthorizer, recorder analytics.Recorder, log *logger.Logger) *Server {
	if recorder == nil {
		recorder = analytics.NopRecorder{}
	}
	registry := NewRegistry(cfg.SessionExpiry)
	return &Server{
		cfg:        cfg,
		registry:   registry,
		limiter:    NewLimiter(cfg.RateLimitWindow, cfg.RateLimitMax),
		broadcast:  NewBroadcaster(registry, log),
		authorizer: authorizer,
		analytics:  recorder,
		log:        log,
		clients:    make(map[*Client]bool),
	}
}

// Registry exposes the session registry, primarily for listings and tests
func (s *Server) Registry() *Registry {
	return s.registry
}

// Run drives the two background sweeps until the context is cancelled:
// temporary-session expiry and rate-limit entry garbage collection.
func (s *Server) Run(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			now := time.Now()
			if removed := s.registry.SweepExpired(now); removed > 0 {
				s.log.Info("Expired idle temporary sessions", "removed", removed)
			}
			if purged := s.limiter.Sweep(now); purged > 0 {
				s.log.Debug("Purged expired rate limit entries", "purged", purged)
			}
			s.updateSessionGauges()
		}
	}
}

// Shutdown closes every live connection with a going-away code
func (s *Server) Shutdown() {
	s.mu.Lock()
	clients := make([]*Client, 0, len(s.clients))
	for c := range s.clients {
		clients = append(clients, c)
	}
	s.mu.Unlock()

	for _, c := range clients {
		c.Close(closeGoingAway, "server shutting down")
	}
}

func (s *Server) register(c *Client) {
	s.mu.Lock()
	s.clients[c] = true
	s.mu.Unlock()
	activeConnections.Inc()
}

func (s *Server) unregister(c *Client) {
	s.mu.Lock()
	delete(s.clients, c)
	s.mu.Unlock()
	activeConnections.Dec()
}

func (s *Server) updateSessionGauges() {
	temporary, coterie := s.registry.Counts()
	activeSessions.WithLabelValues(string(SessionTemporary)).Set(float64(temporary))
	activeSessions.WithLabelValues(string(SessionCoterie)).Set(float64(coterie))
}
