package config

import (
	"fmt"
	"os"
	"regexp"

	"gopkg.in/yaml.v3"
)

// Config is the top-level configuration structure.
type Config struct {
	Server    ServerConfig     `yaml:"server"`
	Clock     ClockConfig      `yaml:"clock"`
	Engine    EngineConfig     `yaml:"engine"`
	Agents    AgentsConfig     `yaml:"agents"`
	Narrator  NarratorConfig   `yaml:"narrator"`
	Providers []ProviderConfig `yaml:"providers"`
	LLM       LLMConfig        `yaml:"llm"`
	Embedding EmbeddingConfig  `yaml:"embedding"`
	Retrieval RetrievalConfig  `yaml:"retrieval"`
	Database  DatabaseConfig   `yaml:"database"`
	Gateway   GatewayConfig    `yaml:"gateway"`
}

type ServerConfig struct {
	Port     int    `yaml:"port"`
	LogLevel string `yaml:"log_level"`
}

// ClockConfig controls the simulated clock.
type ClockConfig struct {
	StartDate    string `yaml:"start_date"` // e.g. 2024-01-01
	StartTime    string `yaml:"start_time"` // e.g. 05:00:00
	IncrementSec int    `yaml:"increment_sec"`
	TimerMillis  int    `yaml:"timer_millis"`
}

// EngineConfig controls the timer periods and stop conditions.
type EngineConfig struct {
	AgentTimerMillis  int `yaml:"agent_timer_millis"`
	WorkerTimerMillis int `yaml:"worker_timer_millis"`
	DebugTimerSec     int `yaml:"debug_timer_sec"`
	StopAfterCycles   int `yaml:"stop_after_cycles"`
	StopAfterDays     int `yaml:"stop_after_days"`
}

type AgentsConfig struct {
	Count            int    `yaml:"count"`
	PersonaDir       string `yaml:"persona_dir"`
	SharedMemoryFile string `yaml:"shared_memory_file"`
}

type NarratorConfig struct {
	Enabled  bool `yaml:"enabled"`
	TimerSec int  `yaml:"timer_sec"`
}

type ProviderConfig struct {
	ID       string `yaml:"id"`
	Type     string `yaml:"type"` // openai | anthropic
	Name     string `yaml:"name"`
	Endpoint string `yaml:"endpoint"`
	APIKey   string `yaml:"api_key"`
}

// LLMConfig selects the provider/model used for narrative generation.
type LLMConfig struct {
	ProviderID string `yaml:"provider_id"`
	Model      string `yaml:"model"`
	Static     bool   `yaml:"static"` // use the offline static client
}

type EmbeddingConfig struct {
	Provider  string `yaml:"provider"` // api | local
	Endpoint  string `yaml:"endpoint"`
	Model     string `yaml:"model"`
	APIKey    string `yaml:"api_key"`
	Dimension int    `yaml:"dimension"`
}

// RetrievalConfig tunes the memory retriever.
type RetrievalConfig struct {
	MaxRetrieval int     `yaml:"max_retrieval"`
	MaxContext   int     `yaml:"max_context"`
	RecencyDecay float64 `yaml:"recency_decay"`
}

type DatabaseConfig struct {
	Postgres PostgresConfig `yaml:"postgres"`
	Neo4j    Neo4jConfig    `yaml:"neo4j"`
	Redis    RedisConfig    `yaml:"redis"`
	Qdrant   QdrantConfig   `yaml:"qdrant"`
}

type PostgresConfig struct {
	DSN string `yaml:"dsn"`
}

type Neo4jConfig struct {
	URI      string `yaml:"uri"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
}

type RedisConfig struct {
	URL string `yaml:"url"`
}

type QdrantConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

type GatewayConfig struct {
	Slack   SlackGatewayConfig   `yaml:"slack"`
	Discord DiscordGatewayConfig `yaml:"discord"`
}

type SlackGatewayConfig struct {
	Enabled  bool   `yaml:"enabled"`
	BotToken string `yaml:"bot_token"`
	Channel  string `yaml:"channel"`
}

type DiscordGatewayConfig struct {
	Enabled   bool   `yaml:"enabled"`
	BotToken  string `yaml:"bot_token"`
	ChannelID string `yaml:"channel_id"`
}

// envVarRe matches ${VAR} and ${VAR:default} patterns.
var envVarRe = regexp.MustCompile(`\$\{(\w+)(?::([^}]*))?\}`)

// Load reads a YAML config file and substitutes environment variable references.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	resolved := envVarRe.ReplaceAllStringFunc(string(data), func(match string) string {
		parts := envVarRe.FindStringSubmatch(match)
		name := parts[1]
		defaultVal := parts[2]
		if v := os.Getenv(name); v != "" {
			return v
		}
		return defaultVal
	})

	cfg := Default()
	if err := yaml.Unmarshal([]byte(resolved), cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

// Default returns a config populated with workable defaults. Load starts
// from these, so absent keys fall back rather than zeroing out.
func Default() *Config {
	return &Config{
		Server: ServerConfig{Port: 3210, LogLevel: "info"},
		Clock: ClockConfig{
			StartDate:    "2024-01-01",
			StartTime:    "05:00:00",
			IncrementSec: 20,
			TimerMillis:  500,
		},
		Engine: EngineConfig{
			AgentTimerMillis:  5000,
			WorkerTimerMillis: 100,
		},
		Agents:   AgentsConfig{Count: 4, PersonaDir: "configs/personas"},
		Narrator: NarratorConfig{Enabled: true, TimerSec: 120},
		Retrieval: RetrievalConfig{
			MaxRetrieval: 1000,
			MaxContext:   5,
			RecencyDecay: 0.995,
		},
		Embedding: EmbeddingConfig{Provider: "local", Dimension: 1024},
	}
}
