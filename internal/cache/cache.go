// Package cache memoizes fill results keyed by request content.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/rotisserie/eris"

	"github.com/ppiankov/fieldscout/internal/model"
)

// Cache is a byte-level TTL cache
type Cache interface {
	Get(key string) ([]byte, bool)
	Set(key string, value []byte, ttl time.Duration) error
	Delete(key string) error
	Clear() error
}

// keyVersion changes whenever matching semantics change so stale entries miss
const keyVersion = "fieldscout:v1:"

// RequestKey derives a stable key from a domain and any JSON-encodable parts
// (fields, documents, matching config)
func RequestKey(domain string, parts ...any) (string, error) {
	h := sha256.New()
	h.Write([]byte(domain))
	enc := json.NewEncoder(h)
	for _, p := range parts {
		if err := enc.Encode(p); err != nil {
			return "", eris.Wrap(err, "encode cache key part")
		}
	}
	return keyVersion + hex.EncodeToString(h.Sum(nil)), nil
}

// GetJSON decodes a cached value into v. Undecodable entries count as misses.
func GetJSON(c Cache, key string, v any) bool {
	data, ok := c.Get(key)
	if !ok {
		return false
	}
	return json.Unmarshal(data, v) == nil
}

// SetJSON encodes v and stores it
func SetJSON(c Cache, key string, v any, ttl time.Duration) error {
	data, err := json.Marshal(v)
	if err != nil {
		return eris.Wrap(err, "encode cache value")
	}
	return c.Set(key, data, ttl)
}

// New builds the configured cache: memory only when no directory is
// resolvable, memory plus disk otherwise. A disabled cache is a no-op.
func New(cfg model.CacheConfig) Cache {
	if !cfg.Enabled {
		return Nop{}
	}
	dir := cfg.Dir
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return NewMemoryCache(cfg.MemoryTTL, time.Minute)
		}
		dir = filepath.Join(home, ".fieldscout", "cache")
	}
	return NewLayeredCache(cfg.MemoryTTL, dir, cfg.DiskTTL)
}

// Nop never stores anything
type Nop struct{}

func (Nop) Get(string) ([]byte, bool)               { return nil, false }
func (Nop) Set(string, []byte, time.Duration) error { return nil }
func (Nop) Delete(string) error                     { return nil }
func (Nop) Clear() error                            { return nil }
