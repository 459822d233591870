package routing

import (
	"context"
	"time"

	"github.com/hrygo/gridiron/ai/cache"
	"github.com/hrygo/gridiron/ai/core/llm"
	"github.com/hrygo/gridiron/ai/prompts"
)

// Service bundles relevance filtering, source routing and table routing.
type Service struct {
	relevance   *RelevanceFilter
	ruleMatcher *RuleMatcher
	tables      *TableRouter
	cache       *VerdictCache
}

// Config contains the configuration for the router service.
type Config struct {
	Classifier  llm.Service // LLM used for undecided relevance checks (optional)
	Prompts     *prompts.Prompts
	EnableCache bool // Enable relevance verdict cache (default: true)
	Cache       CacheConfig
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		EnableCache: true,
		Cache: CacheConfig{
			Capacity:     500,
			DefaultTTL:   5 * time.Minute,
			LLMResultTTL: 30 * time.Minute,
		},
	}
}

// NewService creates a new router service.
func NewService(cfg Config) *Service {
	svc := &Service{
		ruleMatcher: NewRuleMatcher(),
		tables:      NewTableRouter(),
	}
	if cfg.EnableCache {
		svc.cache = NewVerdictCache(cfg.Cache)
	}
	svc.relevance = NewRelevanceFilter(cfg.Classifier, cfg.Prompts, svc.cache)
	return svc
}

func (s *Service) CheckRelevance(ctx context.Context, question string) (Verdict, error) {
	return s.relevance.CheckRelevance(ctx, question)
}

func (s *Service) SelectSource(question string) MatchResult {
	return s.ruleMatcher.Match(question)
}

func (s *Service) SelectTable(question string) TableContext {
	return s.tables.Select(question)
}

// CacheStats returns verdict cache statistics; zero when the cache is disabled.
func (s *Service) CacheStats() cache.Stats {
	if s.cache == nil {
		return cache.Stats{}
	}
	return s.cache.Stats()
}
