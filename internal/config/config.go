// Package config loads the gateway's environment-backed configuration,
// optionally seeded from a local .env file in dev. Missing required
// variables in a non-test environment is a fatal startup condition.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/agentauri/gateway/internal/errs"
)

// Config is the full set of environment-backed settings the gateway
// needs to boot.
type Config struct {
	// Upstream chain indexer (GraphQL subgraph).
	UpstreamGraphQLURL string
	ChainRPCURLs       map[int64]string

	// Relational store.
	PostgresDSN   string
	RunMigrations bool

	// Vector store.
	QdrantURL        string
	QdrantAPIKey     string
	QdrantCollection string

	// LLM / embedding providers.
	AnthropicAPIKey       string
	OpenAIAPIKey          string
	OpenAIEmbeddingModel  string
	FallbackEmbeddingName string
	FallbackEmbeddingKey  string
	FallbackEmbeddingURL  string
	FallbackEmbeddingModel string

	// Feature flags.
	HydeEnabled     bool
	RerankerEnabled bool
	HydeModel       string

	// HTTP surface.
	HTTPAddr string

	// Rate-limit tier overrides (requests/minute), keyed by tier name.
	RateLimitTiers map[string]int
}

// Load reads configuration from the environment, optionally seeded by
// a local .env file (ignored if absent, since production environments
// inject real env vars directly). requireAll controls whether missing
// required variables are fatal; pass false only from tests.
func Load(envFile string, requireAll bool) (Config, error) {
	if envFile != "" {
		_ = godotenv.Load(envFile)
	}

	var missing []string
	req := func(key string) string {
		v := os.Getenv(key)
		if v == "" && requireAll {
			missing = append(missing, key)
		}
		return v
	}

	cfg := Config{
		UpstreamGraphQLURL: req("UPSTREAM_GRAPHQL_URL"),
		PostgresDSN:        req("DATABASE_URL"),
		QdrantURL:          req("QDRANT_URL"),
		QdrantAPIKey:       os.Getenv("QDRANT_API_KEY"),
		QdrantCollection:   getEnvOrDefault("QDRANT_COLLECTION", "agents"),

		AnthropicAPIKey:      req("ANTHROPIC_API_KEY"),
		OpenAIAPIKey:         os.Getenv("OPENAI_API_KEY"),
		OpenAIEmbeddingModel: getEnvOrDefault("OPENAI_EMBEDDING_MODEL", "text-embedding-3-small"),

		FallbackEmbeddingName:  os.Getenv("FALLBACK_EMBEDDING_NAME"),
		FallbackEmbeddingKey:   os.Getenv("FALLBACK_EMBEDDING_KEY"),
		FallbackEmbeddingURL:   os.Getenv("FALLBACK_EMBEDDING_URL"),
		FallbackEmbeddingModel: os.Getenv("FALLBACK_EMBEDDING_MODEL"),

		HydeEnabled:     getEnvBoolOrDefault("HYDE_ENABLED", true),
		RerankerEnabled: getEnvBoolOrDefault("RERANKER_ENABLED", false),
		HydeModel:       getEnvOrDefault("HYDE_MODEL", "claude-haiku-4-5"),

		RunMigrations: getEnvBoolOrDefault("RUN_MIGRATIONS", true),
		HTTPAddr:      getEnvOrDefault("HTTP_ADDR", ":8080"),
	}

	cfg.ChainRPCURLs = parseChainRPCURLs(os.Getenv("CHAIN_RPC_URLS"))
	cfg.RateLimitTiers = parseRateLimitTiers(os.Getenv("RATE_LIMIT_TIERS"))

	if requireAll && len(cfg.ChainRPCURLs) == 0 {
		missing = append(missing, "CHAIN_RPC_URLS")
	}

	if len(missing) > 0 {
		return Config{}, errs.Wrap(errs.Fatal, fmt.Errorf("config: missing required environment variables: %s", strings.Join(missing, ", ")))
	}

	return cfg, nil
}

func getEnvOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvBoolOrDefault(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

// parseChainRPCURLs parses "chainID=url,chainID=url" pairs.
func parseChainRPCURLs(raw string) map[int64]string {
	out := make(map[int64]string)
	if raw == "" {
		return out
	}
	for _, pair := range strings.Split(raw, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		kv := strings.SplitN(pair, "=", 2)
		if len(kv) != 2 {
			continue
		}
		chainID, err := strconv.ParseInt(strings.TrimSpace(kv[0]), 10, 64)
		if err != nil {
			continue
		}
		out[chainID] = strings.TrimSpace(kv[1])
	}
	return out
}

// parseRateLimitTiers parses "tier=rpm,tier=rpm" pairs, feeding the
// API server's ingress limiter.
func parseRateLimitTiers(raw string) map[string]int {
	out := make(map[string]int)
	if raw == "" {
		return out
	}
	for _, pair := range strings.Split(raw, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		kv := strings.SplitN(pair, "=", 2)
		if len(kv) != 2 {
			continue
		}
		rpm, err := strconv.Atoi(strings.TrimSpace(kv[1]))
		if err != nil {
			continue
		}
		out[strings.TrimSpace(kv[0])] = rpm
	}
	return out
}

// KnownChains returns the set of configured chain IDs, used by
// agent.ParseIdentifier's validation.
func (c Config) KnownChains() map[int64]struct{} {
	out := make(map[int64]struct{}, len(c.ChainRPCURLs))
	for id := range c.ChainRPCURLs {
		out[id] = struct{}{}
	}
	return out
}

// StartupTimeout bounds how long the composition root waits for each
// dependency (store ping, vector store collection check) during boot.
const StartupTimeout = 30 * time.Second
