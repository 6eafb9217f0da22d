// Package store provides the pluggable key-value backend used for
// sessions, OAuth state, and issued tokens. Entries are opaque byte
// payloads addressed by namespaced string keys, each with an optional
// time-to-live enforced by the backend.
package store

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrNotFound is returned when a key does not exist or has expired.
var ErrNotFound = errors.New("store: key not found")

// Backend is the storage contract shared by all token store implementations.
type Backend interface {
	// Put stores value under key. A zero ttl means the entry does not expire.
	Put(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Get returns the value stored under key, or ErrNotFound.
	Get(ctx context.Context, key string) ([]byte, error)

	// Take atomically removes and returns the value stored under key.
	// At most one concurrent caller observes the value; everyone else
	// gets ErrNotFound.
	Take(ctx context.Context, key string) ([]byte, error)

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Close releases backend resources.
	Close() error
}

// Config selects and configures a backend.
type Config struct {
	// Backend is one of "memory" (default), "redis", or "firestore".
	Backend string

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	FirestoreProject    string
	FirestoreCollection string

	// DefaultTTL caps the lifetime of durable entries when no explicit
	// TTL is given. Zero selects the backend default.
	DefaultTTL time.Duration
}

// New creates the backend named by cfg.Backend.
func New(ctx context.Context, cfg Config) (Backend, error) {
	switch cfg.Backend {
	case "", "memory":
		return NewMemory(), nil
	case "redis":
		if cfg.RedisAddr == "" {
			return nil, fmt.Errorf("redis backend requires REDIS_ADDR")
		}
		return NewRedis(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	case "firestore":
		if cfg.FirestoreProject == "" {
			return nil, fmt.Errorf("firestore backend requires FIRESTORE_PROJECT")
		}
		collection := cfg.FirestoreCollection
		if collection == "" {
			collection = "strava_sessions"
		}
		return NewFirestore(ctx, cfg.FirestoreProject, collection, cfg.DefaultTTL)
	default:
		return nil, fmt.Errorf("unknown session backend %q (expected memory, redis, or firestore)", cfg.Backend)
	}
}
