// Copyright (c) 2026 Identra. All rights reserved.
// Author: platform@identra.dev

package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/identra/identra/internal/platform/constants"
)

// # Revocation Cache

// RedisRevocationCache implements RevocationCache using Redis tombstones.
//
// A tombstone lives exactly as long as the session it shadows would have,
// after which the Postgres expiry check makes it redundant anyway.
type RedisRevocationCache struct {
	client *redis.Client
}

// NewRevocationCache creates a new Redis-backed RevocationCache.
func NewRevocationCache(client *redis.Client) *RedisRevocationCache {
	return &RedisRevocationCache{client: client}
}

/*
MarkRevoked stores a revocation tombstone for the session.

Parameters:
  - context: context.Context
  - sessionID: int64
  - ttl: time.Duration

Returns:
  - error: Storage failures
*/
func (cache *RedisRevocationCache) MarkRevoked(context context.Context, sessionID int64, ttl time.Duration) error {
	if ttl <= 0 {
		// Session already past its deadline; Postgres will reject it anyway.
		return nil
	}

	key := fmt.Sprintf("%srevoked:%d", constants.RedisPrefixSession, sessionID)

	if err := cache.client.Set(context, key, "1", ttl).Err(); err != nil {
		return fmt.Errorf("redis_revocation_cache_set_failed: %w", err)
	}

	return nil
}

/*
IsRevoked reports whether a revocation tombstone exists.

Parameters:
  - context: context.Context
  - sessionID: int64

Returns:
  - bool: Tombstone present
  - error: Connectivity failures
*/
func (cache *RedisRevocationCache) IsRevoked(context context.Context, sessionID int64) (bool, error) {
	key := fmt.Sprintf("%srevoked:%d", constants.RedisPrefixSession, sessionID)

	if err := cache.client.Get(context, key).Err(); err != nil {
		if errors.Is(err, redis.Nil) {
			return false, nil
		}
		return false, fmt.Errorf("redis_revocation_cache_get_failed: %w", err)
	}

	return true, nil
}
