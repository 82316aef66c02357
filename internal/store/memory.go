package store

import (
	"context"
	"errors"
	"sync"
	"time"

	"voxelhunt/internal/gameid"
	"voxelhunt/internal/logger"
	"voxelhunt/internal/match"
)

var ErrGameNotFound = errors.New("game not found")

// Store is the process-wide registry of match sessions.
type Store interface {
	// Create inserts a new session under the normalized id, replacing any
	// session already stored there. An empty id gets a generated one.
	Create(id, creator string) *match.Session
	// Get looks a session up by any case/whitespace variant of its id.
	Get(id string) (*match.Session, error)
	Len() int
}

// MemoryStore keeps sessions in a map for the lifetime of the process.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]*match.Session
	opts     match.Options
	ttl      time.Duration
}

// NewMemoryStore creates a store. ttl <= 0 keeps sessions forever.
func NewMemoryStore(opts match.Options, ttl time.Duration) *MemoryStore {
	return &MemoryStore{
		sessions: make(map[string]*match.Session),
		opts:     opts,
		ttl:      ttl,
	}
}

func (s *MemoryStore) Create(id, creator string) *match.Session {
	if id == "" {
		id = gameid.Generate()
	}
	id = gameid.Normalize(id)
	session := match.New(id, creator, s.opts)

	s.mu.Lock()
	_, replaced := s.sessions[id]
	s.sessions[id] = session
	n := len(s.sessions)
	s.mu.Unlock()

	SessionsActive.Set(float64(n))
	if replaced {
		logger.Warn("game id reused, previous session replaced", "game_id", id)
	}
	return session
}

func (s *MemoryStore) Get(id string) (*match.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	session, ok := s.sessions[gameid.Normalize(id)]
	if !ok {
		return nil, ErrGameNotFound
	}
	return session, nil
}

func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// Reap drops sessions idle for longer than the TTL and returns how many
// were removed.
func (s *MemoryStore) Reap(now time.Time) int {
	if s.ttl <= 0 {
		return 0
	}

	s.mu.Lock()
	removed := 0
	for id, session := range s.sessions {
		if now.Sub(session.LastActivity()) > s.ttl {
			delete(s.sessions, id)
			removed++
		}
	}
	n := len(s.sessions)
	s.mu.Unlock()

	if removed > 0 {
		SessionsReaped.Add(float64(removed))
		SessionsActive.Set(float64(n))
		logger.Info("reaped idle sessions", "removed", removed, "remaining", n)
	}
	return removed
}

// StartCleanup runs Reap every interval until ctx is done.
func (s *MemoryStore) StartCleanup(ctx context.Context, interval time.Duration) {
	if s.ttl <= 0 || interval <= 0 {
		return
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case now := <-ticker.C:
				s.Reap(now)
			}
		}
	}()
}
