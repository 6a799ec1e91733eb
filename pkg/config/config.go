/*
Package config builds the single process-wide configuration for goldmine.
Every component receives this struct explicitly; nothing reads the
environment on its own.
*/
package config

import (
	"fmt"

	"github.com/cohesivestack/valgo"
	"github.com/spf13/viper"
)

// Config carries every externally supplied setting, resolved once at
// process start.
type Config struct {
	QdrantHost       string
	QdrantPort       int
	SourceCollection string
	GoldenCollection string
	SnapshotDir      string

	LLMEnabled   bool
	LLMEndpoint  string
	LLMAPIKey    string
	LLMModel     string
	LLMBatchSize int
}

// QdrantEndpoint returns the base URL of the Qdrant HTTP API.
func (cfg *Config) QdrantEndpoint() string {
	return fmt.Sprintf("http://%s:%d", cfg.QdrantHost, cfg.QdrantPort)
}

// setDefaults registers every recognized key with its default value.
func setDefaults(v *viper.Viper) {
	v.SetDefault("qdrant_host", "localhost")
	v.SetDefault("qdrant_port", 6333)
	v.SetDefault("source_collection", "agent_memories")
	v.SetDefault("golden_collection", "golden_memories")
	v.SetDefault("snapshot_dir", "./snapshots")
	v.SetDefault("llm_enabled", false)
	v.SetDefault("llm_endpoint", "https://api.openai.com/v1")
	v.SetDefault("llm_api_key", "")
	v.SetDefault("llm_model", "gpt-4o-mini")
	v.SetDefault("llm_batch_size", 10)
}

// Load resolves the configuration from the environment via viper and
// validates it. A validation failure is returned before any processing
// can begin.
func Load() (*Config, error) {
	v := viper.New()
	setDefaults(v)
	v.AutomaticEnv()

	cfg := &Config{
		QdrantHost:       v.GetString("qdrant_host"),
		QdrantPort:       v.GetInt("qdrant_port"),
		SourceCollection: v.GetString("source_collection"),
		GoldenCollection: v.GetString("golden_collection"),
		SnapshotDir:      v.GetString("snapshot_dir"),
		LLMEnabled:       v.GetBool("llm_enabled"),
		LLMEndpoint:      v.GetString("llm_endpoint"),
		LLMAPIKey:        v.GetString("llm_api_key"),
		LLMModel:         v.GetString("llm_model"),
		LLMBatchSize:     v.GetInt("llm_batch_size"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks the structural constraints on the configuration.
func (cfg *Config) Validate() error {
	val := valgo.Is(valgo.String(cfg.QdrantHost, "qdrant_host").Not().Blank()).
		Is(valgo.Number(cfg.QdrantPort, "qdrant_port").Between(1, 65535)).
		Is(valgo.String(cfg.SourceCollection, "source_collection").Not().Blank()).
		Is(valgo.String(cfg.GoldenCollection, "golden_collection").Not().Blank()).
		Is(valgo.Number(cfg.LLMBatchSize, "llm_batch_size").GreaterThan(0))

	if !val.Valid() {
		return fmt.Errorf("invalid configuration: %w", val.Error())
	}

	return nil
}
