// Package cache provides a small generic TTL+LRU cache. Its one production
// consumer is the learned-mapping index, which is cached read-through and
// invalidated on every mapping write.
package cache

// Cache defines a generic cache interface.
type Cache[T any] interface {
	// Get retrieves a value from the cache.
	Get(key string) (T, bool)

	// Set stores a value in the cache.
	Set(key string, data T)

	// Delete removes a key from the cache.
	Delete(key string)

	// Size returns the current number of items in the cache.
	Size() int
}
