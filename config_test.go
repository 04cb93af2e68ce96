package gosquit

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brunobiangulo/gosquit/dedup"
	"github.com/brunobiangulo/gosquit/grammar"
)

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, grammar.PresetDefault, cfg.Preset)
	assert.Equal(t, 20, cfg.AttemptRatio)
	assert.Equal(t, 80.0, cfg.Cutoff)
}

func TestValidateCollectsProblems(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Preset = "nope"
	cfg.Workers = 0
	cfg.Cutoff = 120
	cfg.Redis = &dedup.RedisOptions{}

	err := cfg.Validate()
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidConfig))
	for _, want := range []string{`unknown preset "nope"`, "workers", "cutoff", "redis.addr"} {
		assert.Contains(t, err.Error(), want)
	}
}

func TestValidateRejectsZeroPatience(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Patience = 0

	err := cfg.Validate()
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidConfig))
	assert.Contains(t, err.Error(), "patience must be at least 1")

	cfg.Patience = 1
	assert.NoError(t, cfg.Validate())
}

func TestLoadConfigMissingFile(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestLoadConfigYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gosquit.yaml")
	src := strings.Join([]string{
		"data_dir: /srv/bank",
		"preset: hard",
		"workers: 2",
		"seed: 7",
		"exclusions: [text, id]",
		"redis:",
		"  addr: localhost:6379",
		"  key: corpus",
	}, "\n")
	require.NoError(t, os.WriteFile(path, []byte(src), 0644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "/srv/bank", cfg.DataDir)
	assert.Equal(t, grammar.PresetHard, cfg.Preset)
	assert.Equal(t, 2, cfg.Workers)
	assert.Equal(t, uint64(7), cfg.Seed)
	assert.Equal(t, []string{"text", "id"}, cfg.Exclusions)
	require.NotNil(t, cfg.Redis)
	assert.Equal(t, "corpus", cfg.Redis.Key)

	// Untouched fields keep their defaults.
	assert.Equal(t, 50, cfg.Patience)
	assert.Equal(t, "*-props-preprocessed.json", cfg.Bank.PropertyGlob)
	require.NoError(t, cfg.Validate())
}

func TestLoadConfigJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gosquit.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"skip_store": true, "cutoff": 90}`), 0644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.True(t, cfg.SkipStore)
	assert.Equal(t, 90.0, cfg.Cutoff)
}

func TestLoadConfigMalformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gosquit.yaml")
	require.NoError(t, os.WriteFile(path, []byte("workers: [1, 2"), 0644))

	_, err := LoadConfig(path)
	assert.Error(t, err)
}

func TestApplyEnv(t *testing.T) {
	t.Setenv("GOSQUIT_DATA_DIR", "/env/data")
	t.Setenv("GOSQUIT_SEED", "99")
	t.Setenv("GOSQUIT_WORKERS", "not-a-number")
	t.Setenv("GOSQUIT_SKIP_STORE", "true")
	t.Setenv("GOSQUIT_REDIS_ADDR", "redis:6379")

	cfg := DefaultConfig()
	cfg.ApplyEnv()
	assert.Equal(t, "/env/data", cfg.DataDir)
	assert.Equal(t, uint64(99), cfg.Seed)
	assert.Equal(t, 4, cfg.Workers, "unparseable values are ignored")
	assert.True(t, cfg.SkipStore)
	require.NotNil(t, cfg.Redis)
	assert.Equal(t, "redis:6379", cfg.Redis.Addr)
}

func TestResolveDBPath(t *testing.T) {
	cfg := Config{DBPath: "/tmp/explicit.db", DBName: "ignored"}
	assert.Equal(t, "/tmp/explicit.db", cfg.resolveDBPath())

	cfg = Config{DBName: "corpus", StorageDir: "local"}
	assert.Equal(t, "corpus.db", cfg.resolveDBPath())

	cfg = Config{StorageDir: "home"}
	assert.True(t, strings.HasSuffix(cfg.resolveDBPath(), filepath.Join(".gosquit", "gosquit.db")))
}

func TestRedactedDropsPassword(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Redis = &dedup.RedisOptions{Addr: "x:1", Password: "secret"}

	r := cfg.redacted()
	assert.Empty(t, r.Redis.Password)
	assert.Equal(t, "secret", cfg.Redis.Password)
}
