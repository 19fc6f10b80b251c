// Package cache provides a small generic cache with soft-limit LRU eviction.
//
//	c := cache.New[aaline.Transport, []uint32](4)
//	spirv, err := c.GetOrCompute(t, func() ([]uint32, error) {
//	    return compile(t)
//	})
//
// Cache is safe for concurrent use and must not be copied after creation.
package cache
