// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Marquee Contributors

package prefs

import (
	"context"
	"encoding/json"
	"errors"
	"sync"

	"github.com/redis/go-redis/v9"
	"github.com/samber/oops"

	"github.com/marquee-player/marquee/internal/message"
)

// RedisStore keeps preferences in a Redis hash, one per plugin, with values
// encoded as JSON. Set buffers values; Sync writes them in one transaction.
type RedisStore struct {
	rdb      *redis.Client
	key      string
	defaults map[string]any

	mu      sync.Mutex
	pending map[string]any
}

// NewRedisStore creates a store for plugin using rdb.
func NewRedisStore(rdb *redis.Client, plugin string, defaults map[string]any) *RedisStore {
	return &RedisStore{
		rdb:      rdb,
		key:      HashKey(plugin),
		defaults: copyDefaults(defaults),
		pending:  make(map[string]any),
	}
}

// HashKey returns the Redis hash that holds plugin's preferences.
func HashKey(plugin string) string {
	return "marquee:prefs:" + plugin
}

// Get returns the unsynced, stored or default value for key.
func (s *RedisStore) Get(ctx context.Context, key string) (any, bool, error) {
	if err := checkKey(key); err != nil {
		return nil, false, err
	}

	s.mu.Lock()
	v, ok := s.pending[key]
	s.mu.Unlock()
	if ok {
		return v, true, nil
	}

	raw, err := s.rdb.HGet(ctx, s.key, key).Result()
	if errors.Is(err, redis.Nil) {
		v, ok := s.defaults[key]
		return v, ok, nil
	}
	if err != nil {
		return nil, false, oops.In("prefs").With("key", key).Wrapf(err, "read preference")
	}

	var out any
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return nil, false, oops.In("prefs").With("key", key).Wrapf(err, "decode preference")
	}
	return out, true, nil
}

// Set buffers value for key until Sync.
func (s *RedisStore) Set(_ context.Context, key string, value any) error {
	if err := checkKey(key); err != nil {
		return err
	}
	cloned, err := message.Clone(value)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending[key] = cloned
	return nil
}

// Sync writes buffered values.
func (s *RedisStore) Sync(ctx context.Context) error {
	s.mu.Lock()
	pending := s.pending
	s.pending = make(map[string]any)
	s.mu.Unlock()
	if len(pending) == 0 {
		return nil
	}

	fields := make(map[string]any, len(pending))
	for k, v := range pending {
		data, err := json.Marshal(v)
		if err != nil {
			s.restore(pending)
			return oops.In("prefs").With("key", k).Wrapf(err, "encode preference")
		}
		fields[k] = string(data)
	}

	_, err := s.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, s.key, fields)
		return nil
	})
	if err != nil {
		s.restore(pending)
		return oops.In("prefs").With("hash", s.key).Wrapf(err, "write preferences")
	}
	return nil
}

// restore puts unsynced values back without overwriting newer ones.
func (s *RedisStore) restore(pending map[string]any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for k, v := range pending {
		if _, ok := s.pending[k]; !ok {
			s.pending[k] = v
		}
	}
}
