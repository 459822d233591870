// Package tools implements the SQL toolkit the database agent calls, plus tool-level result caching.
package tools

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"sync"
	"time"

	agent "github.com/hrygo/gridiron/ai/agents"
	"github.com/hrygo/gridiron/ai/cache"
)

// CacheKey identifies one tool invocation.
type CacheKey struct {
	ToolName  string
	InputHash string
}

// String returns the string representation of the cache key.
func (k CacheKey) String() string {
	return fmt.Sprintf("tool:%s:hash:%s", k.ToolName, k.InputHash)
}

// NewCacheKey hashes the raw tool arguments.
func NewCacheKey(toolName, input string) CacheKey {
	hash := sha256.Sum256([]byte(input))
	return CacheKey{ToolName: toolName, InputHash: hex.EncodeToString(hash[:])}
}

// ToolResultCache caches outputs of read-only tools.
// The stats database is static between loads, so schema lookups are cached the longest.
type ToolResultCache struct {
	lru *cache.LRUCache[string, string]

	mu     sync.RWMutex
	ttlMap map[string]time.Duration
}

// NewToolResultCache creates a new tool result cache with default TTLs.
func NewToolResultCache(maxEntries int) *ToolResultCache {
	if maxEntries <= 0 {
		maxEntries = 200
	}
	c := &ToolResultCache{lru: cache.NewLRUCache[string, string](maxEntries, time.Minute)}
	c.SetDefaultTTLs()
	return c
}

// SetDefaultTTLs configures TTL per tool.
// run_query stays uncached so every statement reaches the QueryLog.
func (c *ToolResultCache) SetDefaultTTLs() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ttlMap = map[string]time.Duration{
		ListTablesName:     30 * time.Minute,
		DescribeTablesName: 30 * time.Minute,
		RunQueryName:       0,
		CheckQueryName:     0,
	}
}

// GetTTL returns the TTL for a specific tool, or 0 if not cacheable.
func (c *ToolResultCache) GetTTL(toolName string) time.Duration {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.ttlMap[toolName]
}

// SetTTL allows runtime configuration of tool TTL.
func (c *ToolResultCache) SetTTL(toolName string, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ttlMap[toolName] = ttl
}

// Get returns a cached output.
func (c *ToolResultCache) Get(toolName, input string) (string, bool) {
	return c.lru.Get(NewCacheKey(toolName, input).String())
}

// Set stores output when the tool is cacheable.
func (c *ToolResultCache) Set(toolName, input, output string) {
	ttl := c.GetTTL(toolName)
	if ttl <= 0 {
		return
	}
	c.lru.Set(NewCacheKey(toolName, input).String(), output, ttl)
}

// Stats returns hit/miss counters.
func (c *ToolResultCache) Stats() cache.Stats {
	return c.lru.Stats()
}

// Wrap returns a tool that consults the cache before running t.
// A nil cache returns t unchanged.
func (c *ToolResultCache) Wrap(t agent.Tool) agent.Tool {
	if c == nil || c.GetTTL(t.Name()) <= 0 {
		return t
	}
	return &cachedTool{Tool: t, cache: c}
}

type cachedTool struct {
	agent.Tool
	cache *ToolResultCache
}

func (t *cachedTool) Run(ctx context.Context, input string) (string, error) {
	key := normalizeJSONFields(input)
	if out, ok := t.cache.Get(t.Name(), key); ok {
		slog.Debug("tool cache hit", "tool", t.Name())
		return out, nil
	}
	out, err := t.Tool.Run(ctx, input)
	if err != nil {
		return "", err
	}
	t.cache.Set(t.Name(), key, out)
	return out, nil
}
