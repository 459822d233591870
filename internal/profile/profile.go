package profile

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// Profile is configuration to start the gridiron server and its agents.
type Profile struct {
	// Unified LLM configuration (OpenAI-compatible protocol).
	LLMProvider string // together, openai, deepseek, openrouter, ollama, generic
	LLMAPIKey   string
	LLMBaseURL  string // optional, has default per provider
	LLMModel    string
	JudgeModel  string // model used by the answer judge and relevance classifier, defaults to LLMModel
	LLMTimeout  int    // seconds

	// Embedding configuration. Empty model disables similar-question reuse.
	EmbeddingModel   string
	EmbeddingAPIKey  string
	EmbeddingBaseURL string

	// Stats database (nflfastR play-by-play and derived tables), opened read-only.
	StatsDriver string
	StatsDSN    string

	// Agent tuning.
	RoutingMode        string  // hybrid, route, database, web
	ScoreMargin        float64 // heuristic gap under which the LLM judge decides
	AgentMaxIterations int
	QueryTopK          int
	MaxResultRows      int
	SearchMaxResults   int
	NewsFeeds          []string
	PromptDir          string

	// Answer cache.
	RedisURL        string
	CacheTTLSeconds int

	// Server.
	Mode              string
	Addr              string
	Port              int
	Data              string
	Driver            string
	DSN               string
	Version           string
	InstanceURL       string
	JWTSecret         string
	RateLimit         float64 // requests per second per client
	MaxConcurrentAsks int

	TelegramToken string

	LogLevel  string
	LogFormat string
}

// Provider default configurations for LLM.
// Used when GRIDIRON_LLM_BASE_URL is not explicitly set.
var llmProviderDefaults = map[string]struct {
	BaseURL string
	Model   string
}{
	"together": {
		BaseURL: "https://api.together.xyz/v1",
		Model:   "meta-llama/Llama-3.3-70B-Instruct-Turbo",
	},
	"openai": {
		BaseURL: "https://api.openai.com/v1",
		Model:   "gpt-4o",
	},
	"deepseek": {
		BaseURL: "https://api.deepseek.com",
		Model:   "deepseek-chat",
	},
	"openrouter": {
		BaseURL: "https://openrouter.ai/api/v1",
		Model:   "deepseek/deepseek-chat",
	},
	"ollama": {
		BaseURL: "http://localhost:11434/v1",
		Model:   "llama3.1",
	},
}

// DefaultNewsFeeds are polled by the web agent for news-like questions.
var DefaultNewsFeeds = []string{
	"https://www.espn.com/espn/rss/nfl/news",
}

var routingModes = map[string]bool{"hybrid": true, "route": true, "database": true, "web": true}

func (p *Profile) IsDev() bool {
	return p.Mode != "prod"
}

// IsAIEnabled returns true if an LLM API key is configured.
// ollama runs without a key.
func (p *Profile) IsAIEnabled() bool {
	return p.LLMAPIKey != "" || p.LLMProvider == "ollama"
}

// IsEmbeddingEnabled returns true if similar-question reuse can run.
func (p *Profile) IsEmbeddingEnabled() bool {
	return p.EmbeddingModel != "" && (p.EmbeddingAPIKey != "" || p.LLMAPIKey != "")
}

// getEnvOrDefault returns the first non-empty environment variable among keys, or defaultValue.
func getEnvOrDefault(defaultValue string, keys ...string) string {
	for _, key := range keys {
		if value := os.Getenv(key); value != "" {
			return value
		}
	}
	return defaultValue
}

// getEnvOrDefaultInt returns environment variable value as int or default value.
func getEnvOrDefaultInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvOrDefaultFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

// FromEnv loads configuration from environment variables.
// TOGETHER_API_KEY, OPENAI_API_KEY, DB_PATH and LOG_LEVEL are honoured for compatibility
// with existing deployments.
func (p *Profile) FromEnv() {
	p.LLMProvider = getEnvOrDefault("together", "GRIDIRON_LLM_PROVIDER")
	p.LLMAPIKey = getEnvOrDefault("", "GRIDIRON_LLM_API_KEY", "TOGETHER_API_KEY", "OPENAI_API_KEY")
	p.LLMBaseURL = getEnvOrDefault("", "GRIDIRON_LLM_BASE_URL")
	p.LLMModel = getEnvOrDefault("", "GRIDIRON_LLM_MODEL")
	p.JudgeModel = getEnvOrDefault("", "GRIDIRON_JUDGE_MODEL")
	p.LLMTimeout = getEnvOrDefaultInt("GRIDIRON_LLM_TIMEOUT_SECONDS", 120)

	if _, ok := llmProviderDefaults[p.LLMProvider]; !ok && p.LLMProvider != "generic" {
		slog.Warn("Unknown LLM provider, using default: together", "provider", p.LLMProvider)
		p.LLMProvider = "together"
	}
	if defaults, ok := llmProviderDefaults[p.LLMProvider]; ok {
		if p.LLMBaseURL == "" {
			p.LLMBaseURL = defaults.BaseURL
		}
		if p.LLMModel == "" {
			p.LLMModel = defaults.Model
		}
	}
	if p.JudgeModel == "" {
		p.JudgeModel = p.LLMModel
	}

	p.EmbeddingModel = getEnvOrDefault("", "GRIDIRON_EMBEDDING_MODEL")
	p.EmbeddingAPIKey = getEnvOrDefault(p.LLMAPIKey, "GRIDIRON_EMBEDDING_API_KEY")
	p.EmbeddingBaseURL = getEnvOrDefault(p.LLMBaseURL, "GRIDIRON_EMBEDDING_BASE_URL")

	if p.StatsDriver == "" {
		p.StatsDriver = getEnvOrDefault("sqlite", "GRIDIRON_STATS_DRIVER")
	}
	if p.StatsDSN == "" {
		p.StatsDSN = getEnvOrDefault("data/pbp_db", "GRIDIRON_STATS_DSN", "DB_PATH")
	}

	if p.RoutingMode == "" {
		p.RoutingMode = getEnvOrDefault("hybrid", "GRIDIRON_ROUTING_MODE")
	}
	p.ScoreMargin = getEnvOrDefaultFloat("GRIDIRON_SCORE_MARGIN", 1.5)
	p.AgentMaxIterations = getEnvOrDefaultInt("GRIDIRON_AGENT_MAX_ITERATIONS", 10)
	p.QueryTopK = getEnvOrDefaultInt("GRIDIRON_QUERY_TOP_K", 10)
	p.MaxResultRows = getEnvOrDefaultInt("GRIDIRON_MAX_RESULT_ROWS", 50)
	p.SearchMaxResults = getEnvOrDefaultInt("GRIDIRON_SEARCH_MAX_RESULTS", 5)
	p.NewsFeeds = DefaultNewsFeeds
	if feeds := os.Getenv("GRIDIRON_NEWS_FEEDS"); feeds != "" {
		p.NewsFeeds = splitList(feeds)
	}
	p.PromptDir = getEnvOrDefault("", "GRIDIRON_PROMPT_DIR")

	p.RedisURL = getEnvOrDefault("", "GRIDIRON_REDIS_URL")
	p.CacheTTLSeconds = getEnvOrDefaultInt("GRIDIRON_CACHE_TTL_SECONDS", 600)

	p.JWTSecret = getEnvOrDefault("", "GRIDIRON_JWT_SECRET")
	p.RateLimit = getEnvOrDefaultFloat("GRIDIRON_RATE_LIMIT", 2)
	p.MaxConcurrentAsks = getEnvOrDefaultInt("GRIDIRON_MAX_CONCURRENT_ASKS", 8)
	p.TelegramToken = getEnvOrDefault("", "GRIDIRON_TELEGRAM_TOKEN")

	p.LogLevel = getEnvOrDefault("INFO", "GRIDIRON_LOG_LEVEL", "LOG_LEVEL")
	p.LogFormat = getEnvOrDefault("text", "GRIDIRON_LOG_FORMAT")
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func checkDataDir(dataDir string) (string, error) {
	// Convert to absolute path if relative path is supplied.
	if !filepath.IsAbs(dataDir) {
		absDir, err := filepath.Abs(dataDir)
		if err != nil {
			return "", err
		}
		dataDir = absDir
	}

	// Trim trailing \ or / in case user supplies
	dataDir = strings.TrimRight(dataDir, "\\/")
	if _, err := os.Stat(dataDir); err != nil {
		return "", errors.Wrapf(err, "unable to access data folder %s", dataDir)
	}
	return dataDir, nil
}

func (p *Profile) Validate() error {
	if p.Mode != "demo" && p.Mode != "dev" && p.Mode != "prod" {
		p.Mode = "demo"
	}
	if !routingModes[p.RoutingMode] {
		return errors.Errorf("unknown routing mode %q", p.RoutingMode)
	}
	if p.ScoreMargin < 0 {
		return errors.Errorf("score margin must not be negative, got %v", p.ScoreMargin)
	}

	if p.Data == "" {
		p.Data = "."
	}
	dataDir, err := checkDataDir(p.Data)
	if err != nil {
		slog.Error("failed to check data dir", slog.String("data", p.Data), slog.String("error", err.Error()))
		return err
	}
	p.Data = dataDir

	switch p.Driver {
	case "sqlite":
		if p.DSN == "" {
			p.DSN = filepath.Join(dataDir, fmt.Sprintf("gridiron_%s.db", p.Mode))
		}
	case "postgres":
		if p.DSN == "" {
			return errors.New("postgres driver requires a DSN")
		}
	default:
		return errors.Errorf("unsupported history driver %q", p.Driver)
	}

	switch p.StatsDriver {
	case "sqlite":
		if _, err := os.Stat(p.StatsDSN); err != nil {
			return errors.Wrapf(err, "unable to access stats database %s", p.StatsDSN)
		}
	case "postgres":
		if p.StatsDSN == "" {
			return errors.New("postgres stats driver requires a DSN")
		}
	default:
		return errors.Errorf("unsupported stats driver %q", p.StatsDriver)
	}

	return nil
}
