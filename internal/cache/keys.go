package cache

import "time"

const (
	// PageKeyPrefix namespaces every cached page body.
	PageKeyPrefix = "page:"
	// HomePageTTL is how long the home page stays cached.
	HomePageTTL = 20 * time.Minute
)

// PageKey maps a request URI (path plus query) to its cache key.
func PageKey(requestURI string) string {
	return PageKeyPrefix + requestURI
}
