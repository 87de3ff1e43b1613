package library

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// RedisPersister stores each owner's library as one JSON value.
type RedisPersister struct {
	Client *redis.Client
	Prefix string
}

func (p *RedisPersister) key(owner string) string {
	prefix := p.Prefix
	if prefix == "" {
		prefix = "kolstudio:library:"
	}
	return prefix + owner
}

func (p *RedisPersister) Load(ctx context.Context, owner string) (Library, error) {
	raw, err := p.Client.Get(ctx, p.key(owner)).Result()
	if errors.Is(err, redis.Nil) {
		return Library{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("redis get: %w", err)
	}
	var lib Library
	if err := json.Unmarshal([]byte(raw), &lib); err != nil {
		return nil, fmt.Errorf("decode library: %w", err)
	}
	return lib, nil
}

func (p *RedisPersister) Save(ctx context.Context, owner string, lib Library) error {
	if lib == nil {
		lib = Library{}
	}
	data, err := json.Marshal(lib)
	if err != nil {
		return fmt.Errorf("encode library: %w", err)
	}
	if err := p.Client.Set(ctx, p.key(owner), data, 0).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}
