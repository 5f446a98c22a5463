package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"social-publisher/domain/model"
	"social-publisher/domain/repository"
)

const (
	stateKeyPrefix = "oauth:state:"

	// Expired states stay around a little longer so a late callback can be
	// reported as expired rather than unknown.
	expiredGrace = 10 * time.Minute
)

func invalidState(msg string) error {
	return model.NewError(model.ErrInvalidState, "", "consume_state", msg)
}

type RedisStateStore struct {
	rdb redis.UniversalClient
}

func NewRedisStateStore(rdb redis.UniversalClient) repository.IStateStore {
	return &RedisStateStore{rdb: rdb}
}

func (s *RedisStateStore) Save(ctx context.Context, token string, state model.OAuthState, ttl time.Duration) error {
	payload, err := json.Marshal(state)
	if err != nil {
		return err
	}
	if err := s.rdb.Set(ctx, stateKeyPrefix+token, payload, ttl+expiredGrace).Err(); err != nil {
		return fmt.Errorf("save oauth state: %w", err)
	}
	return nil
}

// Consume uses GETDEL so two callbacks racing on one token cannot both win.
func (s *RedisStateStore) Consume(ctx context.Context, token string) (model.OAuthState, error) {
	raw, err := s.rdb.GetDel(ctx, stateKeyPrefix+token).Bytes()
	if errors.Is(err, redis.Nil) {
		return model.OAuthState{}, invalidState("unknown or already used state")
	}
	if err != nil {
		return model.OAuthState{}, fmt.Errorf("consume oauth state: %w", err)
	}
	var state model.OAuthState
	if err := json.Unmarshal(raw, &state); err != nil {
		return model.OAuthState{}, invalidState("corrupt state record")
	}
	return state, nil
}

type memoryEntry struct {
	state   model.OAuthState
	evictAt time.Time
}

// MemoryStateStore serves single-instance deployments and tests.
type MemoryStateStore struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	now     func() time.Time
}

func NewMemoryStateStore() *MemoryStateStore {
	return &MemoryStateStore{entries: make(map[string]memoryEntry), now: time.Now}
}

func (s *MemoryStateStore) Save(_ context.Context, token string, state model.OAuthState, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	s.evict(now)
	s.entries[token] = memoryEntry{state: state, evictAt: now.Add(ttl + expiredGrace)}
	return nil
}

func (s *MemoryStateStore) Consume(_ context.Context, token string) (model.OAuthState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.evict(s.now())
	entry, ok := s.entries[token]
	if !ok {
		return model.OAuthState{}, invalidState("unknown or already used state")
	}
	delete(s.entries, token)
	return entry.state, nil
}

func (s *MemoryStateStore) evict(now time.Time) {
	for token, e := range s.entries {
		if !now.Before(e.evictAt) {
			delete(s.entries, token)
		}
	}
}

func (s *MemoryStateStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}
