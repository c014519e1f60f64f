// Package worker implements the offline cache worker: versioned asset
// caching, request strategies, background sync, and the client message
// protocol.
package worker

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/ericfisherdev/promptvault/internal/domain/model"
	"github.com/ericfisherdev/promptvault/internal/domain/port/driven"
)

// storePrefix names cache generations. Activate drops every store whose name
// does not match the current generation.
const storePrefix = "promptvault-"

// rootDocument is the navigation fallback served when the network is down
// and no exact cache match exists.
const rootDocument = "/index.html"

// Request is the worker's view of an incoming fetch.
type Request struct {
	Method     string
	URL        string // Path, or absolute URL for cross-origin requests.
	Navigation bool   // The client expects an HTML document.
}

// Response is what the worker serves, from cache or network.
type Response struct {
	Status int
	Header http.Header
	Body   []byte
	Source string // "cache" or "network".
}

// Fetcher retrieves a resource from the origin. The worker never reads
// assets directly; everything goes through this seam so tests can script it.
type Fetcher interface {
	Fetch(ctx context.Context, req Request) (*Response, error)
}

// Broadcaster fans a message out to all connected clients.
type Broadcaster interface {
	Broadcast(message any)
}

// Worker fronts asset fetches with a versioned cache. One Worker instance
// serves the whole daemon; its methods are safe for concurrent use.
type Worker struct {
	cache        driven.CacheStore
	fetcher      Fetcher
	hub          Broadcaster
	store        string
	origin       string
	assets       []string
	networkFirst []string
	cacheFirst   []string

	refreshGroup singleflight.Group
}

// New creates a Worker for the given cache generation tag. assets are the
// paths pre-cached on Install; networkFirst and cacheFirst are path prefixes
// selecting those strategies, everything else uses the default strategy.
func New(
	cache driven.CacheStore,
	fetcher Fetcher,
	hub Broadcaster,
	versionTag string,
	origin string,
	assets []string,
	networkFirst []string,
	cacheFirst []string,
) *Worker {
	return &Worker{
		cache:        cache,
		fetcher:      fetcher,
		hub:          hub,
		store:        storePrefix + versionTag,
		origin:       origin,
		assets:       assets,
		networkFirst: networkFirst,
		cacheFirst:   cacheFirst,
	}
}

// Store returns the name of the current cache generation.
func (w *Worker) Store() string { return w.store }

// Install pre-populates the current generation's store with the core assets.
// It does not wait on or interact with prior generations; a failed asset
// fails the install so a broken generation never goes live.
func (w *Worker) Install(ctx context.Context) error {
	start := time.Now()

	for _, asset := range w.assets {
		if err := w.cacheAsset(ctx, asset); err != nil {
			return fmt.Errorf("install: cache %s: %w", asset, err)
		}
	}

	slog.Info("worker installed",
		"store", w.store,
		"assets", len(w.assets),
		"duration", time.Since(start).Round(time.Millisecond),
	)
	return nil
}

// Activate drops every cache store belonging to another generation. After
// Activate returns, fetches are served from the current generation only.
func (w *Worker) Activate(ctx context.Context) error {
	stores, err := w.cache.ListStores(ctx)
	if err != nil {
		return fmt.Errorf("activate: list stores: %w", err)
	}

	var dropped int
	for _, name := range stores {
		if name == w.store || name == promptDataStore {
			continue
		}
		if err := w.cache.DropStore(ctx, name); err != nil {
			return fmt.Errorf("activate: drop store %s: %w", name, err)
		}
		dropped++
	}

	slog.Info("worker activated", "store", w.store, "dropped_stores", dropped)
	return nil
}

// Fetch serves one request using the strategy its URL classifies into.
// Cross-origin requests pass straight through to the network.
func (w *Worker) Fetch(ctx context.Context, req Request) (*Response, error) {
	if !w.sameOrigin(req.URL) {
		return w.fetcher.Fetch(ctx, req)
	}

	switch w.classify(req.URL) {
	case model.StrategyNetworkFirst:
		return w.fetchNetworkFirst(ctx, req)
	case model.StrategyCacheFirst:
		return w.fetchCacheFirst(ctx, req)
	default:
		return w.fetchDefault(ctx, req)
	}
}

// Sync handles a background sync wake-up for the given tag. Unknown tags are
// ignored.
func (w *Worker) Sync(ctx context.Context, tag string) {
	switch tag {
	case SyncBackground:
		var failed int
		for _, asset := range w.assets {
			if err := w.cacheAsset(ctx, asset); err != nil {
				slog.Warn("background sync: asset refresh failed", "asset", asset, "error", err)
				failed++
			}
		}
		slog.Info("background sync complete", "assets", len(w.assets), "failed", failed)
	case SyncGitHubBackup:
		w.hub.Broadcast(Message{
			Type:    MsgPerformBackup,
			Payload: mustJSON(map[string]bool{"background": true}),
		})
		slog.Info("backup sync broadcast sent")
	default:
		slog.Debug("unknown sync tag ignored", "tag", tag)
	}
}

// classify selects the strategy for a same-origin URL by prefix match.
func (w *Worker) classify(rawURL string) model.CacheStrategy {
	path := urlPath(rawURL)
	for _, prefix := range w.networkFirst {
		if strings.HasPrefix(path, prefix) {
			return model.StrategyNetworkFirst
		}
	}
	for _, prefix := range w.cacheFirst {
		if strings.HasPrefix(path, prefix) {
			return model.StrategyCacheFirst
		}
	}
	return model.StrategyDefault
}

// fetchNetworkFirst prefers a live response and refreshes the cache; the
// cache is consulted only when the network fails.
func (w *Worker) fetchNetworkFirst(ctx context.Context, req Request) (*Response, error) {
	resp, err := w.fetcher.Fetch(ctx, req)
	if err == nil {
		w.maybeCache(ctx, req, resp)
		return resp, nil
	}

	entry, cacheErr := w.cache.Get(ctx, w.store, urlPath(req.URL))
	if cacheErr == nil && entry != nil {
		slog.Debug("network-first served from cache", "url", req.URL, "network_error", err)
		return entryResponse(entry), nil
	}
	return nil, err
}

// fetchCacheFirst serves a hit immediately and refreshes it in the
// background. Concurrent refreshes of the same URL are deduplicated.
func (w *Worker) fetchCacheFirst(ctx context.Context, req Request) (*Response, error) {
	entry, err := w.cache.Get(ctx, w.store, urlPath(req.URL))
	if err == nil && entry != nil {
		w.refreshInBackground(ctx, req)
		return entryResponse(entry), nil
	}

	resp, err := w.fetcher.Fetch(ctx, req)
	if err != nil {
		return nil, err
	}
	w.maybeCache(ctx, req, resp)
	return resp, nil
}

// fetchDefault is cache, then network-and-cache, then the cached root
// document for navigation requests.
func (w *Worker) fetchDefault(ctx context.Context, req Request) (*Response, error) {
	entry, err := w.cache.Get(ctx, w.store, urlPath(req.URL))
	if err == nil && entry != nil {
		return entryResponse(entry), nil
	}

	resp, err := w.fetcher.Fetch(ctx, req)
	if err == nil {
		w.maybeCache(ctx, req, resp)
		return resp, nil
	}

	if req.Navigation {
		root, rootErr := w.cache.Get(ctx, w.store, rootDocument)
		if rootErr == nil && root != nil {
			slog.Debug("navigation served cached root document", "url", req.URL)
			return entryResponse(root), nil
		}
	}
	return nil, err
}

// refreshInBackground re-fetches req and updates the cache without blocking
// the caller. The request context may end with the caller; the refresh
// carries its own timeout.
func (w *Worker) refreshInBackground(ctx context.Context, req Request) {
	key := urlPath(req.URL)
	go func() {
		_, _, _ = w.refreshGroup.Do(key, func() (any, error) {
			refreshCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 30*time.Second)
			defer cancel()

			resp, err := w.fetcher.Fetch(refreshCtx, req)
			if err != nil {
				slog.Debug("background refresh failed", "url", req.URL, "error", err)
				return nil, err
			}
			w.maybeCache(refreshCtx, req, resp)
			return nil, nil
		})
	}()
}

// cacheAsset fetches one asset from the origin and stores it.
func (w *Worker) cacheAsset(ctx context.Context, asset string) error {
	resp, err := w.fetcher.Fetch(ctx, Request{Method: http.MethodGet, URL: asset})
	if err != nil {
		return err
	}
	if resp.Status != http.StatusOK {
		return fmt.Errorf("unexpected status %d", resp.Status)
	}
	return w.cache.Put(ctx, model.CacheEntry{
		Store:     w.store,
		URL:       urlPath(asset),
		Status:    resp.Status,
		Header:    resp.Header,
		Body:      resp.Body,
		FetchedAt: time.Now().UTC(),
	})
}

// maybeCache stores successful GET responses. Anything else is never cached.
func (w *Worker) maybeCache(ctx context.Context, req Request, resp *Response) {
	if req.Method != "" && req.Method != http.MethodGet {
		return
	}
	if resp.Status != http.StatusOK {
		return
	}
	err := w.cache.Put(ctx, model.CacheEntry{
		Store:     w.store,
		URL:       urlPath(req.URL),
		Status:    resp.Status,
		Header:    resp.Header,
		Body:      resp.Body,
		FetchedAt: time.Now().UTC(),
	})
	if err != nil {
		slog.Warn("cache write failed", "url", req.URL, "error", err)
	}
}

// sameOrigin reports whether rawURL targets this daemon. Relative URLs are
// always same-origin; absolute ones must match the configured origin host.
func (w *Worker) sameOrigin(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	if u.Host == "" {
		return true
	}
	return u.Host == w.origin
}

// urlPath normalizes a URL to its path for use as a cache key.
func urlPath(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Path == "" {
		return rawURL
	}
	return u.Path
}

// entryResponse converts a cache entry into a servable response.
func entryResponse(entry *model.CacheEntry) *Response {
	return &Response{
		Status: entry.Status,
		Header: entry.Header,
		Body:   entry.Body,
		Source: "cache",
	}
}
