package model

import (
	"net/http"
	"time"
)

// CacheEntry is one cached response, keyed by (store, URL). Entries are never
// evicted individually; superseded stores are dropped wholesale when the
// versioned store name changes.
type CacheEntry struct {
	Store     string
	URL       string
	Status    int
	Header    http.Header
	Body      []byte
	FetchedAt time.Time
}
