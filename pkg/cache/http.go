package cache

import (
	"net/http"
	"strconv"
	"strings"
	"time"
)

// NewEntry builds an Entry from a 200 response and its already-read body.
// Returns nil when the response forbids storage (Cache-Control: no-store).
func NewEntry(header http.Header, body []byte, defaultTTL time.Duration, now time.Time) *Entry {
	expires, ok := Expiry(header, defaultTTL, now)
	if !ok {
		return nil
	}
	return &Entry{
		Body:         body,
		ETag:         header.Get("ETag"),
		LastModified: header.Get("Last-Modified"),
		Expires:      expires,
		StoredAt:     now,
	}
}

// Expiry computes when a response goes stale. Cache-Control max-age wins over
// Expires; with neither present the default TTL applies. The second return
// value is false when the response must not be stored.
func Expiry(header http.Header, defaultTTL time.Duration, now time.Time) (time.Time, bool) {
	if cc := header.Get("Cache-Control"); cc != "" {
		for _, directive := range strings.Split(cc, ",") {
			directive = strings.TrimSpace(strings.ToLower(directive))
			switch {
			case directive == "no-store":
				return time.Time{}, false
			case directive == "no-cache":
				return now, true
			case strings.HasPrefix(directive, "max-age="):
				if secs, err := strconv.Atoi(strings.TrimPrefix(directive, "max-age=")); err == nil && secs >= 0 {
					return now.Add(time.Duration(secs) * time.Second), true
				}
			}
		}
	}

	if v := header.Get("Expires"); v != "" {
		expires, err := http.ParseTime(v)
		if err != nil || expires.Before(now) {
			// Invalid or past Expires means already stale.
			return now, true
		}
		return expires, true
	}

	return now.Add(defaultTTL), true
}

// AddConditionalHeaders adds If-None-Match or If-Modified-Since from the entry.
func AddConditionalHeaders(req *http.Request, entry *Entry) {
	if entry == nil || req == nil {
		return
	}

	// Prefer ETag over Last-Modified
	if entry.ETag != "" {
		req.Header.Set("If-None-Match", entry.ETag)
	} else if entry.LastModified != "" {
		req.Header.Set("If-Modified-Since", entry.LastModified)
	}
}
