// Package config loads station configuration from a YAML file and the
// environment, the way briefly's config package does: viper defaults,
// then file, then environment overrides, unmarshaled into a typed struct.
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds everything the engine needs to start a broadcast run.
type Config struct {
	App       App       `mapstructure:"app"`
	Milvus    Milvus    `mapstructure:"milvus"`
	OpenAI    OpenAI    `mapstructure:"openai"`
	Scheduler Scheduler `mapstructure:"scheduler"`
	Logging   Logging   `mapstructure:"logging"`
}

// App holds general run configuration.
type App struct {
	Debug        bool   `mapstructure:"debug"`
	DataDir       string `mapstructure:"data_dir"`
	SnapshotPath  string `mapstructure:"snapshot_path"`
	DJRosterPath  string `mapstructure:"dj_roster_path"`
	CanonTablesPath string `mapstructure:"canon_tables_path"`
}

// Milvus holds the vector store connection configuration.
type Milvus struct {
	Address    string `mapstructure:"address"`
	Collection string `mapstructure:"collection"`
	Timeout    string `mapstructure:"timeout"`
}

// OpenAI holds the embedding-model configuration used to query the lore
// collection.
type OpenAI struct {
	APIKey         string `mapstructure:"api_key"`
	EmbeddingModel string `mapstructure:"embedding_model"`
	Timeout        string `mapstructure:"timeout"`
}

// Scheduler holds the tunables the Story Scheduler reads at startup,
// layered on top of the compiled-in Policies table.
type Scheduler struct {
	Seed            int64 `mapstructure:"seed"`
	ExtractionLimit int   `mapstructure:"extraction_limit"`
}

// Logging configures zerolog's global level and output format.
type Logging struct {
	Level  string `mapstructure:"level"`
	Pretty bool   `mapstructure:"pretty"`
}

var globalConfig *Config

// Load reads configuration from configFile (or ./.deadwave.yaml and
// $HOME/.deadwave.yaml if empty), applies defaults, then environment
// variable overrides (DEADWAVE_ prefixed, "." replaced with "_"), and
// validates the result. Repeated calls return the first successfully
// loaded Config.
func Load(configFile string) (*Config, error) {
	if globalConfig != nil {
		return globalConfig, nil
	}

	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(".env"); err != nil {
			fmt.Printf("warning: error loading .env file: %v\n", err)
		}
	}

	v := viper.New()
	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME")
		v.SetConfigName(".deadwave")
		v.SetConfigType("yaml")
	}

	setDefaults(v)

	v.SetEnvPrefix("deadwave")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("config: reading config file: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("config: unmarshaling: %w", err)
	}

	if err := validate(cfg); err != nil {
		return nil, err
	}

	globalConfig = cfg
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.debug", false)
	v.SetDefault("app.data_dir", ".deadwave")
	v.SetDefault("app.snapshot_path", ".deadwave/state.json")
	v.SetDefault("app.dj_roster_path", "configs/djroster.yaml")
	v.SetDefault("app.canon_tables_path", "configs/canon.yaml")

	v.SetDefault("milvus.address", "localhost:19530")
	v.SetDefault("milvus.collection", "wasteland_lore")
	v.SetDefault("milvus.timeout", "10s")

	v.SetDefault("openai.embedding_model", "text-embedding-3-small")
	v.SetDefault("openai.timeout", "30s")

	v.SetDefault("scheduler.seed", 1)
	v.SetDefault("scheduler.extraction_limit", 50)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.pretty", true)
}

func validate(cfg *Config) error {
	if cfg.Milvus.Address == "" {
		return fmt.Errorf("config: milvus.address must not be empty")
	}
	if cfg.Milvus.Collection == "" {
		return fmt.Errorf("config: milvus.collection must not be empty")
	}
	if cfg.Scheduler.ExtractionLimit <= 0 {
		return fmt.Errorf("config: scheduler.extraction_limit must be positive")
	}
	return nil
}

// Reset clears the cached global config, for tests that need to reload
// with a different environment.
func Reset() {
	globalConfig = nil
}
