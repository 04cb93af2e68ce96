package gosquit

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/brunobiangulo/gosquit/bank"
	"github.com/brunobiangulo/gosquit/dedup"
	"github.com/brunobiangulo/gosquit/grammar"
)

// Config holds all configuration for the GoSQuIT engine.
type Config struct {
	// DataDir holds the predicate, type-list and entity files.
	DataDir string `json:"data_dir" yaml:"data_dir"`

	// Bank controls the file names read from DataDir.
	Bank bank.LoadOptions `json:"bank" yaml:"bank"`

	// DBPath is the full path to the SQLite database file.
	// If empty, defaults to ~/.gosquit/<DBName>.db
	DBPath string `json:"db_path" yaml:"db_path"`

	// DBName is the name for the database (used when DBPath is empty).
	// Defaults to "gosquit".
	DBName string `json:"db_name" yaml:"db_name"`

	// StorageDir controls where the database is created when DBPath
	// is not explicitly set. Options: "home" (default) uses ~/.gosquit/,
	// "local" uses the current working directory.
	StorageDir string `json:"storage_dir" yaml:"storage_dir"`

	// SkipStore disables persistence; generated records are only returned.
	SkipStore bool `json:"skip_store" yaml:"skip_store"`

	// Grammar preset: "default" or "hard".
	Preset string `json:"preset" yaml:"preset"`

	// Generation
	Seed         uint64   `json:"seed" yaml:"seed"`
	Workers      int      `json:"workers" yaml:"workers"`
	BindTries    int      `json:"bind_tries" yaml:"bind_tries"`
	Patience     int      `json:"patience" yaml:"patience"`
	AttemptRatio int      `json:"attempt_ratio" yaml:"attempt_ratio"` // attempts allowed per requested record
	BatchSize    int      `json:"batch_size" yaml:"batch_size"`       // records per store transaction
	StartDomains []string `json:"start_domains,omitempty" yaml:"start_domains,omitempty"`

	// Exclusions lists types that may not bridge two chains. Nil uses the
	// built-in list.
	Exclusions []string `json:"exclusions,omitempty" yaml:"exclusions,omitempty"`

	// Entity resolution
	Cutoff float64 `json:"cutoff" yaml:"cutoff"`

	// Redis-backed deduplication, shared across processes. Nil keeps the
	// seen-set in memory.
	Redis *dedup.RedisOptions `json:"redis,omitempty" yaml:"redis,omitempty"`
}

// DefaultConfig returns a Config with sensible defaults.
// Database is stored in ~/.gosquit/gosquit.db by default.
func DefaultConfig() Config {
	return Config{
		DataDir:      "data",
		Bank:         bank.DefaultLoadOptions(),
		DBName:       "gosquit",
		StorageDir:   "home",
		Preset:       grammar.PresetDefault,
		Seed:         1,
		Workers:      4,
		BindTries:    10,
		Patience:     50,
		AttemptRatio: 20,
		BatchSize:    500,
		Cutoff:       80,
	}
}

// LoadConfig reads a YAML or JSON (by extension) config file over the
// defaults and applies environment overrides. A missing file yields the
// defaults.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			cfg.ApplyEnv()
			return cfg, nil
		}
		return cfg, fmt.Errorf("gosquit.LoadConfig: reading %s: %w", path, err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		err = json.Unmarshal(data, &cfg)
	default:
		err = yaml.Unmarshal(data, &cfg)
	}
	if err != nil {
		return cfg, fmt.Errorf("gosquit.LoadConfig: parsing %s: %w", path, err)
	}

	cfg.ApplyEnv()
	return cfg, nil
}

// ApplyEnv applies GOSQUIT_* environment overrides.
func (c *Config) ApplyEnv() {
	if v := os.Getenv("GOSQUIT_DATA_DIR"); v != "" {
		c.DataDir = v
	}
	if v := os.Getenv("GOSQUIT_DB_PATH"); v != "" {
		c.DBPath = v
	}
	if v := os.Getenv("GOSQUIT_PRESET"); v != "" {
		c.Preset = v
	}
	if v := os.Getenv("GOSQUIT_SEED"); v != "" {
		if n, err := strconv.ParseUint(v, 10, 64); err == nil {
			c.Seed = n
		}
	}
	if v := os.Getenv("GOSQUIT_WORKERS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Workers = n
		}
	}
	if v := os.Getenv("GOSQUIT_SKIP_STORE"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			c.SkipStore = b
		}
	}
	if v := os.Getenv("GOSQUIT_REDIS_ADDR"); v != "" {
		if c.Redis == nil {
			c.Redis = &dedup.RedisOptions{}
		}
		c.Redis.Addr = v
	}
}

// Validate checks the config for values the engine cannot run with.
func (c *Config) Validate() error {
	var problems []string
	if c.DataDir == "" {
		problems = append(problems, "data_dir is empty")
	}
	if _, err := grammar.Lookup(c.Preset); err != nil {
		problems = append(problems, fmt.Sprintf("unknown preset %q", c.Preset))
	}
	if c.Workers < 1 {
		problems = append(problems, "workers must be at least 1")
	}
	if c.BindTries < 1 {
		problems = append(problems, "bind_tries must be at least 1")
	}
	if c.Patience < 1 {
		problems = append(problems, "patience must be at least 1")
	}
	if c.AttemptRatio < 1 {
		problems = append(problems, "attempt_ratio must be at least 1")
	}
	if c.BatchSize < 1 {
		problems = append(problems, "batch_size must be at least 1")
	}
	if c.Cutoff < 0 || c.Cutoff > 100 {
		problems = append(problems, "cutoff must be within [0, 100]")
	}
	if c.Redis != nil && c.Redis.Addr == "" {
		problems = append(problems, "redis.addr is empty")
	}
	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalidConfig, strings.Join(problems, "; "))
	}
	return nil
}

// resolveDBPath computes the final database path from config fields.
func (c *Config) resolveDBPath() string {
	if c.DBPath != "" {
		return c.DBPath
	}

	name := c.DBName
	if name == "" {
		name = "gosquit"
	}

	switch c.StorageDir {
	case "local", "cwd":
		return name + ".db"
	default: // "home" or empty
		home, err := os.UserHomeDir()
		if err != nil {
			return name + ".db" // fallback to cwd
		}
		return filepath.Join(home, ".gosquit", name+".db")
	}
}

// redacted returns a copy safe to persist, without credentials.
func (c Config) redacted() Config {
	if c.Redis != nil {
		r := *c.Redis
		r.Password = ""
		c.Redis = &r
	}
	return c
}
