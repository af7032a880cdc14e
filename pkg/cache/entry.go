package cache

import (
	"time"
)

// Entry is a cached response body with its validators.
type Entry struct {
	Body         []byte    `json:"body"`
	ETag         string    `json:"etag,omitempty"`
	LastModified string    `json:"last_modified,omitempty"`
	Expires      time.Time `json:"expires"`
	StoredAt     time.Time `json:"stored_at"`
}

// IsFresh reports whether the entry may be served without contacting the server.
func (e *Entry) IsFresh(now time.Time) bool {
	return now.Before(e.Expires)
}

// CanRevalidate reports whether a conditional request can be built from the entry.
func (e *Entry) CanRevalidate() bool {
	return e.ETag != "" || e.LastModified != ""
}

// TTL returns the remaining freshness lifetime, or 0 once stale.
func (e *Entry) TTL(now time.Time) time.Duration {
	ttl := e.Expires.Sub(now)
	if ttl < 0 {
		return 0
	}
	return ttl
}
