package cache

import (
	"fmt"
	"net/url"
	"sort"
	"strings"
)

// keyPrefix namespaces all cache keys in Redis.
const keyPrefix = "rickmorty:http"

// Key identifies a cached GET response.
type Key struct {
	Host  string
	Path  string
	Query url.Values
}

// KeyForURL builds a Key from an absolute request URL.
func KeyForURL(rawURL string) (Key, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return Key{}, fmt.Errorf("parse url: %w", err)
	}
	if u.Host == "" {
		return Key{}, fmt.Errorf("url %q has no host", rawURL)
	}
	return Key{
		Host:  strings.ToLower(u.Host),
		Path:  u.Path,
		Query: u.Query(),
	}, nil
}

// String renders the key deterministically: query parameters are sorted and
// a trailing slash on the path is ignored, so "/character?page=2&status=dead"
// and "/character/?status=dead&page=2" share an entry.
//
// Example:
//
//	rickmorty:http:rickandmortyapi.com/api/character:page=2:status=dead
func (k Key) String() string {
	parts := []string{keyPrefix, k.Host + "/" + strings.Trim(k.Path, "/")}

	if len(k.Query) > 0 {
		names := make([]string, 0, len(k.Query))
		for name := range k.Query {
			names = append(names, name)
		}
		sort.Strings(names)

		for _, name := range names {
			values := append([]string(nil), k.Query[name]...)
			sort.Strings(values)
			parts = append(parts, fmt.Sprintf("%s=%s", name, strings.Join(values, ",")))
		}
	}

	return strings.Join(parts, ":")
}
