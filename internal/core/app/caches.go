package app

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"

	"loom/internal/engine/parser"
)

// parseCache memoizes parse trees by path and content hash. Watch-mode
// rebuilds re-parse only files whose bytes actually changed; everything
// else is served from the cache. Cached modules are shared, so callers
// must not mutate them.
type parseCache struct {
	extension string
	entries   *lru.Cache[string, *parser.Module]
}

func newParseCache(extension string, capacity int) (*parseCache, error) {
	if capacity <= 0 {
		capacity = 512
	}
	entries, err := lru.New[string, *parser.Module](capacity)
	if err != nil {
		return nil, err
	}
	return &parseCache{extension: extension, entries: entries}, nil
}

func cacheKey(path, text string) string {
	sum := sha256.Sum256([]byte(text))
	return path + "\x00" + hex.EncodeToString(sum[:])
}

// Parse satisfies frontend.SourceParser.
func (c *parseCache) Parse(path, text string) (*parser.Module, error) {
	key := cacheKey(path, text)
	if mod, ok := c.entries.Get(key); ok {
		return mod, nil
	}
	mod, err := parser.Parse(path, text)
	if err != nil {
		return nil, err
	}
	c.entries.Add(key, mod)
	return mod, nil
}

// ParseModule satisfies ports.ModuleParser.
func (c *parseCache) ParseModule(path string, content []byte) (*parser.Module, error) {
	return c.Parse(path, string(content))
}

func (c *parseCache) IsSupportedPath(path string) bool {
	return strings.HasSuffix(path, c.extension)
}

func (c *parseCache) Len() int { return c.entries.Len() }

func (c *parseCache) Purge() { c.entries.Purge() }

// Prune evicts the oldest percentage of cached entries and reports how
// many were removed.
func (c *parseCache) Prune(percentage int) int {
	if percentage <= 0 {
		return 0
	}
	if percentage > 100 {
		percentage = 100
	}
	target := c.entries.Len() * percentage / 100
	removed := 0
	for removed < target {
		if _, _, ok := c.entries.RemoveOldest(); !ok {
			break
		}
		removed++
	}
	return removed
}
