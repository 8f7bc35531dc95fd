// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package gateway

import (
	"context"
	"errors"

	"github.com/redis/go-redis/v9"
)

// RedisFlagSource reads flags stored as Redis strings under prefix+path.
type RedisFlagSource struct {
	client *redis.Client
	prefix string
}

// NewRedisFlagSource wraps an existing client.
func NewRedisFlagSource(client *redis.Client, prefix string) *RedisFlagSource {
	return &RedisFlagSource{client: client, prefix: prefix}
}

func (s *RedisFlagSource) Lookup(ctx context.Context, path string) (string, bool, error) {
	v, err := s.client.Get(ctx, s.prefix+path).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return v, true, nil
}

// Close releases the underlying client.
func (s *RedisFlagSource) Close() error { return s.client.Close() }
