// Package config loads Quaero configuration from YAML files and
// QUAERO_-prefixed environment variables.
package config

import (
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

type Config struct {
	Server    ServerConfig    `koanf:"server"`
	Log       LogConfig       `koanf:"log"`
	LLM       LLMConfig       `koanf:"llm"`
	Search    SearchConfig    `koanf:"search"`
	Memory    MemoryConfig    `koanf:"memory"`
	Store     StoreConfig     `koanf:"store"`
	Pipeline  PipelineConfig  `koanf:"pipeline"`
	Telemetry TelemetryConfig `koanf:"telemetry"`
}

type ServerConfig struct {
	Addr string `koanf:"addr"`
}

type LogConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"` // json, text
}

type LLMConfig struct {
	Provider string `koanf:"provider"` // openai, ollama
	Model    string `koanf:"model"`
	BaseURL  string `koanf:"base_url"`
	APIKey   string `koanf:"api_key"`
}

type SearchConfig struct {
	APIKey  string `koanf:"api_key"`
	BaseURL string `koanf:"base_url"`
}

type MemoryConfig struct {
	Enabled          bool   `koanf:"enabled"`
	Provider         string `koanf:"provider"` // qdrant, inmemory
	QdrantAddr       string `koanf:"qdrant_addr"`
	Collection       string `koanf:"collection"`
	EmbedderModel    string `koanf:"embedder_model"`
	EmbedderAPIKey   string `koanf:"embedder_api_key"`
	EmbedderBaseURL  string `koanf:"embedder_base_url"`
	EmbedderProvider string `koanf:"embedder_provider"` // openai
}

type StoreConfig struct {
	Driver string `koanf:"driver"` // memory, sqlite
	Path   string `koanf:"path"`
}

type PipelineConfig struct {
	// GraphPath optionally points at a YAML/JSON workflow graph; empty runs
	// the built-in research graph.
	GraphPath string `koanf:"graph_path"`
}

type TelemetryConfig struct {
	Exporter     string `koanf:"exporter"` // stdout, otlp
	OTLPEndpoint string `koanf:"otlp_endpoint"`
	OTLPInsecure bool   `koanf:"otlp_insecure"`
}

// Load reads configuration with precedence defaults < file < environment.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	k.Set("server.addr", ":8000")
	k.Set("log.level", "info")
	k.Set("log.format", "text")

	k.Set("llm.provider", "openai")
	k.Set("llm.model", "gpt-4o-mini")

	k.Set("search.base_url", "https://api.tavily.com")

	k.Set("memory.enabled", false)
	k.Set("memory.provider", "qdrant")
	k.Set("memory.qdrant_addr", "localhost:6334")
	k.Set("memory.collection", "research_snippets")
	k.Set("memory.embedder_provider", "openai")
	k.Set("memory.embedder_model", "text-embedding-3-small")

	k.Set("store.driver", "memory")

	k.Set("telemetry.exporter", "stdout")

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, err
		}
	}

	// QUAERO_LLM_API_KEY -> llm.api_key
	if err := k.Load(env.Provider("QUAERO_", ".", envKeyMapper), nil); err != nil {
		return nil, err
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// envKeyMapper turns QUAERO_SECTION_SOME_KEY into section.some_key: only the
// first underscore becomes a separator, the rest stay part of the leaf key.
func envKeyMapper(s string) string {
	key := strings.ToLower(strings.TrimPrefix(s, "QUAERO_"))
	return strings.Replace(key, "_", ".", 1)
}
