package fetcher

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/alorle/iptv-livecheck/cache"
)

// DefaultMaxBytes caps how much of a candidate list is read.
const DefaultMaxBytes = 16 << 20

// ErrTooLarge is returned when a response exceeds the size cap.
var ErrTooLarge = errors.New("response exceeds size limit")

// Result describes where fetched content came from.
type Result struct {
	Content   []byte
	FromCache bool
	// Stale is set when expired cache was served because the upstream failed.
	Stale     bool
	FetchedAt time.Time
}

// Fetcher handles fetching candidate lists with cache fallback.
type Fetcher struct {
	client   *http.Client
	storage  cache.Storage
	cacheTTL time.Duration
	maxBytes int64
	logger   *slog.Logger
}

// New creates a new Fetcher with the specified timeout and cache configuration.
// A zero cacheTTL always revalidates against the upstream.
func New(timeout time.Duration, storage cache.Storage, cacheTTL time.Duration, logger *slog.Logger) *Fetcher {
	return &Fetcher{
		client: &http.Client{
			Timeout: timeout,
		},
		storage:  storage,
		cacheTTL: cacheTTL,
		maxBytes: DefaultMaxBytes,
		logger:   logger,
	}
}

// Fetch implements Interface with a cache-first strategy:
// fresh cache is served directly, otherwise the upstream is asked with a
// conditional request, and stale cache is the last resort.
func (f *Fetcher) Fetch(ctx context.Context, url string) (Result, error) {
	key := cache.DeriveKeyFromURL(url)
	log := f.logger.With("source", url)

	entry, cacheErr := f.storage.Get(key)
	if cacheErr == nil {
		expired, err := f.storage.IsExpired(key, f.cacheTTL)
		if err != nil {
			log.Warn("cache expiration check failed", "error", err)
		} else if !expired {
			log.Debug("serving fresh cache", "age", entry.Age())
			return Result{Content: entry.Content, FromCache: true, FetchedAt: entry.Timestamp}, nil
		}
	} else if !errors.Is(cacheErr, cache.ErrNotFound) {
		log.Warn("cache read failed", "error", cacheErr)
		entry = nil
	}

	fresh, notModified, fetchErr := f.fetchFromURL(ctx, url, entry)
	switch {
	case fetchErr == nil && notModified:
		entry.Timestamp = time.Now()
		if err := f.storage.Set(key, *entry); err != nil {
			log.Warn("failed to refresh cache timestamp", "error", err)
		}
		log.Debug("upstream not modified")
		return Result{Content: entry.Content, FromCache: true, FetchedAt: entry.Timestamp}, nil
	case fetchErr == nil:
		fresh.Source = url
		fresh.Timestamp = time.Now()
		if err := f.storage.Set(key, fresh); err != nil {
			log.Warn("failed to update cache", "error", err)
		}
		log.Info("fetched candidate list", "bytes", len(fresh.Content))
		return Result{Content: fresh.Content, FetchedAt: fresh.Timestamp}, nil
	}

	if entry == nil {
		return Result{}, fmt.Errorf("upstream fetch failed and no cache available: %w", fetchErr)
	}
	log.Warn("serving stale cache", "error", fetchErr, "cached_at", entry.Timestamp.Format(time.RFC3339))
	return Result{Content: entry.Content, FromCache: true, Stale: true, FetchedAt: entry.Timestamp}, nil
}

// fetchFromURL performs a GET, conditional on cached's validators when set.
func (f *Fetcher) fetchFromURL(ctx context.Context, url string, cached *cache.Entry) (cache.Entry, bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return cache.Entry{}, false, fmt.Errorf("build request: %w", err)
	}
	if cached != nil {
		if cached.ETag != "" {
			req.Header.Set("If-None-Match", cached.ETag)
		}
		if cached.LastModified != "" {
			req.Header.Set("If-Modified-Since", cached.LastModified)
		}
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return cache.Entry{}, false, fmt.Errorf("HTTP request failed: %w", err)
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			f.logger.Warn("failed to close response body", "error", closeErr)
		}
	}()

	if resp.StatusCode == http.StatusNotModified && cached != nil {
		return cache.Entry{}, true, nil
	}
	if resp.StatusCode != http.StatusOK {
		return cache.Entry{}, false, fmt.Errorf("HTTP request returned status %d: %s", resp.StatusCode, resp.Status)
	}

	content, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBytes+1))
	if err != nil {
		return cache.Entry{}, false, fmt.Errorf("failed to read response body: %w", err)
	}
	if int64(len(content)) > f.maxBytes {
		return cache.Entry{}, false, ErrTooLarge
	}

	return cache.Entry{
		Content:      content,
		ETag:         resp.Header.Get("ETag"),
		LastModified: resp.Header.Get("Last-Modified"),
	}, false, nil
}
