package session

import (
	"context"
	"sync"
	"time"

	"github.com/txplain/bankrouter/internal/models"
)

type entry struct {
	mu        sync.Mutex
	turn      models.LastTurn
	expiresAt time.Time
}

// InMemoryStore keeps conversation state in process memory, swept for
// expired sessions on a background ticker. Sufficient for a single
// router instance or for tests.
type InMemoryStore struct {
	ttl    time.Duration
	mu     sync.Mutex
	byID   map[string]*entry
	stopCh chan struct{}
}

// NewInMemoryStore builds a store with the given session TTL and starts
// its background expiry sweeper.
func NewInMemoryStore(ttl time.Duration) *InMemoryStore {
	s := &InMemoryStore{
		ttl:    ttl,
		byID:   make(map[string]*entry),
		stopCh: make(chan struct{}),
	}
	go s.sweepLoop()
	return s
}

func (s *InMemoryStore) sweepLoop() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-s.stopCh:
			return
		case <-ticker.C:
			s.sweep()
		}
	}
}

func (s *InMemoryStore) sweep() {
	now := time.Now()
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, e := range s.byID {
		if now.After(e.expiresAt) {
			delete(s.byID, id)
		}
	}
}

func (s *InMemoryStore) getOrCreate(sessionID string) *entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.byID[sessionID]
	if !ok {
		e = &entry{expiresAt: time.Now().Add(s.ttl)}
		s.byID[sessionID] = e
	}
	return e
}

func (s *InMemoryStore) Get(_ context.Context, sessionID string) (models.LastTurn, error) {
	s.mu.Lock()
	e, ok := s.byID[sessionID]
	s.mu.Unlock()
	if !ok || time.Now().After(e.expiresAt) {
		return models.LastTurn{SessionID: sessionID}, nil
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.turn, nil
}

func (s *InMemoryStore) WithLock(_ context.Context, sessionID string, fn func(models.LastTurn) (models.LastTurn, error)) error {
	e := s.getOrCreate(sessionID)
	e.mu.Lock()
	defer e.mu.Unlock()

	current := e.turn
	if current.SessionID == "" {
		current.SessionID = sessionID
	}
	updated, err := fn(current)
	if err != nil {
		return err
	}
	e.turn = updated
	e.expiresAt = time.Now().Add(s.ttl)
	return nil
}

func (s *InMemoryStore) Reset(_ context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.byID, sessionID)
	return nil
}

func (s *InMemoryStore) Close() error {
	close(s.stopCh)
	return nil
}
