// Package config loads settings from defaults, an optional TOML file and the
// environment, in increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/pelletier/go-toml/v2"
)

var ErrInvalid = errors.New("invalid configuration")

// Duration is a time.Duration written as "1s" or "500ms" in files and the
// environment.
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

type Config struct {
	// Storage
	KBDir       string   `toml:"kb_dir" envconfig:"KB_DIR"`
	Collection  string   `toml:"collection" envconfig:"KB_COLLECTION"`
	QdrantHost  string   `toml:"qdrant_host" envconfig:"QDRANT_HOST"`
	QdrantPort  int      `toml:"qdrant_port" envconfig:"QDRANT_PORT"`
	QdrantRetry Duration `toml:"qdrant_retry" envconfig:"QDRANT_RETRY"`
	DisableDisk bool     `toml:"disable_disk" envconfig:"KB_DISABLE_DISK"`

	// Ingestion
	ChunkSize    int      `toml:"chunk_size" envconfig:"CHUNK_SIZE"`
	ChunkOverlap int      `toml:"chunk_overlap" envconfig:"CHUNK_OVERLAP"`
	FetchDelay   Duration `toml:"fetch_delay" envconfig:"FETCH_DELAY"`
	FetchTimeout Duration `toml:"fetch_timeout" envconfig:"FETCH_TIMEOUT"`
	UserAgent    string   `toml:"user_agent" envconfig:"KB_USER_AGENT"`
	TrainingData string   `toml:"training_data" envconfig:"TRAINING_DATA"`
	GitHubToken  string   `toml:"github_token" envconfig:"GITHUB_TOKEN"`

	// Auto-training
	WatchDirs     []string `toml:"watch_dirs" envconfig:"WATCH_DIRS"`
	WatchDebounce Duration `toml:"watch_debounce" envconfig:"WATCH_DEBOUNCE"`
	JournalPath   string   `toml:"journal_path" envconfig:"KB_JOURNAL"`

	// Server
	Port       int  `toml:"port" envconfig:"PORT"`
	ServerMode bool `toml:"server_mode" envconfig:"SERVER_MODE"`
}

// Default returns the built-in settings.
func Default() Config {
	return Config{
		KBDir:         "./knowledge_base",
		Collection:    "smart_building_docs",
		QdrantPort:    6334,
		QdrantRetry:   Duration{30 * time.Second},
		ChunkSize:     1000,
		ChunkOverlap:  200,
		FetchDelay:    Duration{time.Second},
		FetchTimeout:  Duration{30 * time.Second},
		UserAgent:     "Smart Building AI Assistant/1.0 (Educational Research)",
		TrainingData:  "ai_training_data.json",
		WatchDirs:     []string{"smart_building_data", "documents", "."},
		WatchDebounce: Duration{5 * time.Second},
		Port:          8080,
	}
}

// Load builds the configuration. A .env file in the working directory is
// loaded into the environment first. path names an optional TOML file; an
// empty path or a missing file is not an error.
func Load(path string) (*Config, error) {
	// Ignore errors, as env vars might be set in the shell
	_ = godotenv.Load()

	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case os.IsNotExist(err):
		case err != nil:
			return nil, fmt.Errorf("read config: %w", err)
		default:
			if err := toml.Unmarshal(data, &cfg); err != nil {
				return nil, fmt.Errorf("parse %s: %w", path, err)
			}
		}
	}

	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	if c.KBDir == "" && !c.DisableDisk {
		return fmt.Errorf("%w: KB_DIR is required unless the disk tier is disabled", ErrInvalid)
	}
	if c.ChunkSize <= 0 {
		return fmt.Errorf("%w: CHUNK_SIZE must be positive, got %d", ErrInvalid, c.ChunkSize)
	}
	if c.ChunkOverlap < 0 || c.ChunkOverlap >= c.ChunkSize {
		return fmt.Errorf("%w: CHUNK_OVERLAP must be in [0, CHUNK_SIZE), got %d", ErrInvalid, c.ChunkOverlap)
	}
	if c.QdrantHost != "" && (c.QdrantPort <= 0 || c.QdrantPort > 65535) {
		return fmt.Errorf("%w: QDRANT_PORT out of range: %d", ErrInvalid, c.QdrantPort)
	}
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("%w: PORT out of range: %d", ErrInvalid, c.Port)
	}
	if c.FetchDelay.Duration < 0 || c.WatchDebounce.Duration < 0 {
		return fmt.Errorf("%w: durations must not be negative", ErrInvalid)
	}
	return nil
}

// Journal returns the journal file path, defaulting to a file in the
// knowledge base directory.
func (c *Config) Journal() string {
	if c.JournalPath != "" {
		return c.JournalPath
	}
	return filepath.Join(c.KBDir, "training_log.db")
}
