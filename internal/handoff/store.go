package handoff

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

type MemoryStore struct {
	mu     sync.Mutex
	values map[string]map[Channel][]byte
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{values: make(map[string]map[Channel][]byte)}
}

func (s *MemoryStore) Put(ctx context.Context, scope string, ch Channel, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.values[scope] == nil {
		s.values[scope] = make(map[Channel][]byte)
	}
	s.values[scope][ch] = append([]byte(nil), data...)
	return nil
}

func (s *MemoryStore) Take(ctx context.Context, scope string, ch Channel) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, ok := s.values[scope][ch]
	if !ok {
		return nil, nil
	}
	delete(s.values[scope], ch)
	return data, nil
}

func (s *MemoryStore) Clear(ctx context.Context, scope string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.values, scope)
	return nil
}

// RedisStore keeps values under kolstudio:handoff:<scope>:<channel>.
type RedisStore struct {
	Client *redis.Client
	TTL    time.Duration
}

func (s *RedisStore) key(scope string, ch Channel) string {
	return fmt.Sprintf("kolstudio:handoff:%s:%s", scope, ch)
}

func (s *RedisStore) Put(ctx context.Context, scope string, ch Channel, data []byte) error {
	return s.Client.Set(ctx, s.key(scope, ch), data, s.TTL).Err()
}

func (s *RedisStore) Take(ctx context.Context, scope string, ch Channel) ([]byte, error) {
	data, err := s.Client.GetDel(ctx, s.key(scope, ch)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return data, nil
}

func (s *RedisStore) Clear(ctx context.Context, scope string) error {
	keys := make([]string, 0, len(channels))
	for _, ch := range channels {
		keys = append(keys, s.key(scope, ch))
	}
	return s.Client.Del(ctx, keys...).Err()
}
