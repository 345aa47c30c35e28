/* Package cache is a small key/value cache abstraction with per-entry TTL.
 * Injected into the components that need it rather than reached through
 * static state.
 */
package cache

import (
	"context"
	"time"
)

// Cache stores opaque bytes under string keys with an expiry
type Cache interface {
	// Get returns the cached value and whether the key was present
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}
