package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrNoSession is returned when no live refresh credential exists for a
// username (never set, rotated away, logged out, or TTL elapsed).
var ErrNoSession = errors.New("no session on record")

// ErrStoreUnavailable is returned when the backing store cannot be reached
// within the configured timeout. It is an infrastructure failure, distinct
// from any authentication outcome.
var ErrStoreUnavailable = errors.New("session store unavailable")

// Store holds the single live refresh credential per username with
// TTL-based expiry.
type Store interface {
	Put(ctx context.Context, username, refreshToken string, ttl time.Duration) error
	Get(ctx context.Context, username string) (string, error)
	Delete(ctx context.Context, username string) error
}

// RedisStore implements Store on Redis. Each user owns one hash at
// "username:<u>" whose single field holds the raw refresh credential; the
// key TTL equals the refresh lifetime, so records vanish on their own.
type RedisStore struct {
	client  *redis.Client
	field   string
	timeout time.Duration
}

// NewRedisStore builds a store. field names the hash field the refresh
// credential lives under (conventionally the refresh cookie name).
func NewRedisStore(client *redis.Client, field string, timeout time.Duration) *RedisStore {
	if field == "" {
		field = "refresh"
	}
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	return &RedisStore{client: client, field: field, timeout: timeout}
}

func sessionKey(username string) string {
	return "username:" + username
}

// Put overwrites the record for username and resets its TTL. This is the
// only write path: exactly one call per login and per successful renewal,
// superseding whatever was stored before.
func (s *RedisStore) Put(ctx context.Context, username, refreshToken string, ttl time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	key := sessionKey(username)
	pipe := s.client.TxPipeline()
	pipe.HSet(ctx, key, s.field, refreshToken)
	pipe.Expire(ctx, key, ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return nil
}

// Get returns the live refresh credential for username, or ErrNoSession.
func (s *RedisStore) Get(ctx context.Context, username string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	val, err := s.client.HGet(ctx, sessionKey(username), s.field).Result()
	if err == redis.Nil {
		return "", ErrNoSession
	}
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return val, nil
}

// Delete removes the record for username. Deleting an absent record is not
// an error.
func (s *RedisStore) Delete(ctx context.Context, username string) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	if err := s.client.Del(ctx, sessionKey(username)).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return nil
}
