package cachestore

import (
	"context"
)

// Key/value cache with a fixed TTL. A miss returns the empty string and no error.
type CacheStore interface {
	Get(ctx context.Context, name, key string) (string, error)
	Set(ctx context.Context, name, key string, val string) error
	Purge(ctx context.Context, name, key string) error
}
