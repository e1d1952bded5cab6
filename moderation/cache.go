package moderation

import "time"

// RulesCache caches the active regex rule set between classifications so
// the engine does not hit the store on every call. Caching policy and its
// invalidation on rule add/deactivate live here, outside the pipeline.
type RulesCache interface {
	// Get retrieves cached rules, nil on miss or expiry.
	Get() []*Rule

	// Set stores rules in cache.
	Set(rules []*Rule)

	// Invalidate clears the cache, forcing a store read on next Get.
	Invalidate()

	// IsValid returns true if the cache has valid data.
	IsValid() bool
}

// CacheConfig holds configuration for cache behavior.
type CacheConfig struct {
	// TTL is the time-to-live for cached entries.
	// Zero means no expiration (manual invalidation only).
	TTL time.Duration
}

// DefaultCacheConfig returns the default caching policy: no TTL, the cache
// is only invalidated when a rule is added or deactivated.
func DefaultCacheConfig() CacheConfig {
	return CacheConfig{TTL: 0}
}
