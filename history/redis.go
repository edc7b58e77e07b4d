// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package history

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/fxamacker/cbor/v2"
	"github.com/poiesic/ragtime/core"
	"github.com/redis/go-redis/v9"
)

// DefaultKeyPrefix namespaces session keys.
const DefaultKeyPrefix = "ragtime:session:"

// RedisStore keeps session windows in Redis lists so several processes
// can serve the same conversation. Turns are stored CBOR-encoded. Each
// append pushes and trims inside one MULTI transaction, so the list never
// exceeds the limit.
type RedisStore struct {
	client    redis.UniversalClient
	limit     int
	ttl       time.Duration
	keyPrefix string
	logger    *slog.Logger
}

var _ Store = (*RedisStore)(nil)

// RedisOption configures a RedisStore.
type RedisOption func(*RedisStore) error

// WithTTL expires idle sessions after d. Zero keeps them forever.
func WithTTL(d time.Duration) RedisOption {
	return func(s *RedisStore) error {
		s.ttl = d
		return nil
	}
}

// WithKeyPrefix sets the key namespace. Default is DefaultKeyPrefix.
func WithKeyPrefix(prefix string) RedisOption {
	return func(s *RedisStore) error {
		if prefix != "" {
			s.keyPrefix = prefix
		}
		return nil
	}
}

// WithRedisLogger sets a custom logger.
// Default is slog.Default().
func WithRedisLogger(logger *slog.Logger) RedisOption {
	return func(s *RedisStore) error {
		if logger == nil {
			logger = slog.Default()
		}
		s.logger = logger
		return nil
	}
}

// NewRedisStore creates a store over client whose windows hold at most
// limit turns. The caller owns client.
func NewRedisStore(client redis.UniversalClient, limit int, opts ...RedisOption) (*RedisStore, error) {
	if client == nil {
		return nil, ErrClientRequired
	}
	if limit < 0 {
		return nil, ErrInvalidLimit
	}

	s := &RedisStore{
		client:    client,
		limit:     limit,
		keyPrefix: DefaultKeyPrefix,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}
	s.logger = s.logger.With("component", "redis-history")

	return s, nil
}

func (s *RedisStore) turnsKey(sessionID string) string {
	return s.keyPrefix + sessionID + ":turns"
}

func (s *RedisStore) seqKey(sessionID string) string {
	return s.keyPrefix + sessionID + ":seq"
}

// Append implements Store.
func (s *RedisStore) Append(ctx context.Context, sessionID string, turns ...core.Turn) error {
	if sessionID == "" {
		return ErrSessionIDRequired
	}
	if len(turns) == 0 {
		return nil
	}
	if s.limit == 0 {
		return s.Reset(ctx, sessionID)
	}

	last, err := s.client.IncrBy(ctx, s.seqKey(sessionID), int64(len(turns))).Result()
	if err != nil {
		return fmt.Errorf("allocating sequence numbers: %w", err)
	}
	first := uint64(last) - uint64(len(turns)) + 1

	values := make([]any, len(turns))
	for i, t := range turns {
		t.Seq = first + uint64(i)
		data, err := cbor.Marshal(t)
		if err != nil {
			return fmt.Errorf("encoding turn: %w", err)
		}
		values[i] = data
	}

	key := s.turnsKey(sessionID)
	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.RPush(ctx, key, values...)
		pipe.LTrim(ctx, key, int64(-s.limit), -1)
		if s.ttl > 0 {
			pipe.Expire(ctx, key, s.ttl)
			pipe.Expire(ctx, s.seqKey(sessionID), s.ttl)
		}
		return nil
	})
	if err != nil {
		s.logger.Error("failed to append turns", "turns", len(turns), "err", err)
		return fmt.Errorf("appending turns: %w", err)
	}
	return nil
}

// Snapshot implements Store.
func (s *RedisStore) Snapshot(ctx context.Context, sessionID string) ([]core.Turn, error) {
	if sessionID == "" {
		return nil, ErrSessionIDRequired
	}

	raw, err := s.client.LRange(ctx, s.turnsKey(sessionID), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("reading turns: %w", err)
	}

	turns := make([]core.Turn, 0, len(raw))
	for _, item := range raw {
		var t core.Turn
		if err := cbor.Unmarshal([]byte(item), &t); err != nil {
			s.logger.Warn("skipping undecodable turn", "length", len(item), "err", err)
			continue
		}
		turns = append(turns, t)
	}
	return turns, nil
}

// Reset implements Store.
func (s *RedisStore) Reset(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return ErrSessionIDRequired
	}
	return s.client.Del(ctx, s.turnsKey(sessionID), s.seqKey(sessionID)).Err()
}
