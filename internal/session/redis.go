package session

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/txplain/bankrouter/internal/models"
)

// RedisStore persists LastTurn in Redis so conversation memory survives
// process restarts and is shared across router replicas. The per-session
// lock is an in-process sync.Mutex keyed by session id — sufficient to
// serialize writers within one replica; true cross-replica mutual
// exclusion would need a distributed lock (the registry uses redsync for
// exactly that reason), but LastTurn commits are idempotent last-write-
// wins updates scoped to a single user's single session, so the stronger
// guarantee is not required here.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration

	locksMu sync.Mutex
	locks   map[string]*sync.Mutex
}

// NewRedisStore connects to redisURL (a standard redis:// connection
// string, understood by miniredis in tests too).
func NewRedisStore(redisURL string, ttl time.Duration) (*RedisStore, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	return &RedisStore{
		client: redis.NewClient(opts),
		ttl:    ttl,
		locks:  make(map[string]*sync.Mutex),
	}, nil
}

func key(sessionID string) string {
	return fmt.Sprintf("bankrouter:session:%s", sessionID)
}

func (s *RedisStore) lockFor(sessionID string) *sync.Mutex {
	s.locksMu.Lock()
	defer s.locksMu.Unlock()
	l, ok := s.locks[sessionID]
	if !ok {
		l = &sync.Mutex{}
		s.locks[sessionID] = l
	}
	return l
}

func (s *RedisStore) Get(ctx context.Context, sessionID string) (models.LastTurn, error) {
	raw, err := s.client.Get(ctx, key(sessionID)).Bytes()
	if err == redis.Nil {
		return models.LastTurn{SessionID: sessionID}, nil
	}
	if err != nil {
		return models.LastTurn{}, fmt.Errorf("get session %s: %w", sessionID, err)
	}
	var turn models.LastTurn
	if err := json.Unmarshal(raw, &turn); err != nil {
		return models.LastTurn{}, fmt.Errorf("unmarshal session %s: %w", sessionID, err)
	}
	return turn, nil
}

func (s *RedisStore) WithLock(ctx context.Context, sessionID string, fn func(models.LastTurn) (models.LastTurn, error)) error {
	mu := s.lockFor(sessionID)
	mu.Lock()
	defer mu.Unlock()

	current, err := s.Get(ctx, sessionID)
	if err != nil {
		return err
	}
	updated, err := fn(current)
	if err != nil {
		return err
	}
	raw, err := json.Marshal(updated)
	if err != nil {
		return fmt.Errorf("marshal session %s: %w", sessionID, err)
	}
	if err := s.client.Set(ctx, key(sessionID), raw, s.ttl).Err(); err != nil {
		return fmt.Errorf("set session %s: %w", sessionID, err)
	}
	return nil
}

func (s *RedisStore) Reset(ctx context.Context, sessionID string) error {
	if err := s.client.Del(ctx, key(sessionID)).Err(); err != nil {
		return fmt.Errorf("reset session %s: %w", sessionID, err)
	}
	return nil
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}
