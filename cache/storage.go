package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/goccy/go-json"
)

// ErrNotFound is returned by Get when nothing is cached for the key.
var ErrNotFound = errors.New("cache entry not found")

// Storage persists downloaded candidate lists between runs.
type Storage interface {
	Get(key string) (*Entry, error)
	Set(key string, entry Entry) error
	IsExpired(key string, ttl time.Duration) (bool, error)
}

// Entry is one cached download with the validators needed for a
// conditional refresh.
type Entry struct {
	Source       string    `json:"source"`
	Content      []byte    `json:"content"`
	ETag         string    `json:"etag,omitempty"`
	LastModified string    `json:"last_modified,omitempty"`
	Timestamp    time.Time `json:"timestamp"`
}

// Age reports how long ago the entry was stored or revalidated.
func (e *Entry) Age() time.Duration {
	return time.Since(e.Timestamp)
}

// FileStorage keeps one JSON file per key under baseDir.
type FileStorage struct {
	baseDir string
}

// NewFileStorage creates a new file-based cache storage.
// It ensures the cache directory exists before returning.
func NewFileStorage(baseDir string) (*FileStorage, error) {
	if baseDir == "" {
		return nil, fmt.Errorf("cache directory cannot be empty")
	}

	if err := os.MkdirAll(baseDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}

	return &FileStorage{
		baseDir: baseDir,
	}, nil
}

// Get retrieves a cached entry by key.
func (fs *FileStorage) Get(key string) (*Entry, error) {
	data, err := os.ReadFile(fs.getFilePath(key))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, key)
		}
		return nil, fmt.Errorf("failed to read cache file: %w", err)
	}

	var entry Entry
	if err := json.Unmarshal(data, &entry); err != nil {
		return nil, fmt.Errorf("failed to unmarshal cache entry: %w", err)
	}

	return &entry, nil
}

// Set stores entry under key. A zero Timestamp is replaced with the
// current time.
func (fs *FileStorage) Set(key string, entry Entry) error {
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now()
	}

	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to marshal cache entry: %w", err)
	}

	path := fs.getFilePath(key)
	tmp, err := os.CreateTemp(fs.baseDir, ".cache-*")
	if err != nil {
		return fmt.Errorf("failed to create cache file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write cache file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write cache file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("failed to write cache file: %w", err)
	}

	return nil
}

// IsExpired checks if a cache entry has exceeded the TTL. A missing entry
// counts as expired.
func (fs *FileStorage) IsExpired(key string, ttl time.Duration) (bool, error) {
	entry, err := fs.Get(key)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return true, nil
		}
		return false, fmt.Errorf("failed to check expiration: %w", err)
	}

	return entry.Age() > ttl, nil
}

// getFilePath hashes the key into a safe filename.
func (fs *FileStorage) getFilePath(key string) string {
	hash := sha256.Sum256([]byte(key))
	filename := hex.EncodeToString(hash[:]) + ".json"
	return filepath.Join(fs.baseDir, filename)
}

// DeriveKeyFromURL creates a cache key from a source URL.
func DeriveKeyFromURL(url string) string {
	return "candidates:" + url
}
