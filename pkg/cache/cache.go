package cache

import (
	"sort"
	"strings"
)

// Cache memoizes upstream fetch results keyed by request shape.
type Cache interface {
	// Get retrieves a live value from the cache.
	// Returns (value, true) if found and not expired, (nil, false) otherwise.
	Get(key string) (interface{}, bool)

	// Set stores a value, overwriting any previous entry.
	Set(key string, value interface{}) bool

	// Close closes the cache and releases resources.
	Close()
}

// Key builds an immutable cache key from an operation name and its request parameters.
// Parameters are sorted so the key does not depend on map iteration order.
func Key(op string, params map[string]string) string {
	names := make([]string, 0, len(params))
	for k := range params {
		names = append(names, k)
	}
	sort.Strings(names)

	var b strings.Builder
	b.WriteString(op)
	for _, k := range names {
		b.WriteByte('|')
		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(params[k])
	}
	return b.String()
}
