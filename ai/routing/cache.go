package routing

import (
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"time"

	"github.com/hrygo/gridiron/ai/cache"
	"github.com/hrygo/gridiron/internal/strutil"
)

// VerdictCache caches relevance verdicts per normalized question.
// Classifier verdicts get a longer TTL than keyword verdicts because they cost an LLM call.
type VerdictCache struct {
	lru          *cache.LRUCache[string, Verdict]
	defaultTTL   time.Duration
	llmResultTTL time.Duration
}

// CacheConfig contains configuration for VerdictCache.
type CacheConfig struct {
	Capacity     int           // Maximum number of entries (default: 500)
	DefaultTTL   time.Duration // TTL for keyword verdicts (default: 5min)
	LLMResultTTL time.Duration // TTL for classifier verdicts (default: 30min)
}

// NewVerdictCache creates a verdict cache.
func NewVerdictCache(cfg CacheConfig) *VerdictCache {
	if cfg.Capacity <= 0 {
		cfg.Capacity = 500
	}
	if cfg.DefaultTTL <= 0 {
		cfg.DefaultTTL = 5 * time.Minute
	}
	if cfg.LLMResultTTL <= 0 {
		cfg.LLMResultTTL = 30 * time.Minute
	}
	return &VerdictCache{
		lru:          cache.NewLRUCache[string, Verdict](cfg.Capacity, cfg.DefaultTTL),
		defaultTTL:   cfg.DefaultTTL,
		llmResultTTL: cfg.LLMResultTTL,
	}
}

// Get returns the cached verdict for question.
func (c *VerdictCache) Get(question string) (Verdict, bool) {
	v, ok := c.lru.Get(hashKey(question))
	if ok {
		v.Cached = true
		slog.Debug("relevance cache hit", "question", truncate(question, 50), "relevant", v.Relevant, "stage", v.Stage)
	}
	return v, ok
}

// Set stores v. Fallback verdicts are not cached so the classifier gets another chance.
func (c *VerdictCache) Set(question string, v Verdict) {
	ttl := c.defaultTTL
	switch v.Stage {
	case StageFallback:
		return
	case StageLLM:
		ttl = c.llmResultTTL
	}
	v.Cached = false
	c.lru.Set(hashKey(question), v, ttl)
}

// Stats returns cache statistics.
func (c *VerdictCache) Stats() cache.Stats {
	return c.lru.Stats()
}

// hashKey creates a stable key; the first 8 bytes of SHA-256 are enough at this size.
func hashKey(question string) string {
	hash := sha256.Sum256([]byte(strutil.NormalizeQuestion(question)))
	return "relevance:" + hex.EncodeToString(hash[:8])
}
