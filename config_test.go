package ragstore

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, "ragstore", cfg.Database)
	assert.Equal(t, "http://localhost:11434/v1", cfg.Embedding.Host)
	assert.Equal(t, "embeddinggemma", cfg.Embedding.Model)
	assert.Equal(t, 768, cfg.Embedding.Dimensions)
	assert.Equal(t, float32(0.2), cfg.VectorThreshold)
	assert.Equal(t, 32, cfg.MaxBatchSize)
}

func TestLoadConfigFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
path: /var/lib/ragstore
database: testdb
embedding:
  host: http://embedhost:9100/v1
  model: text-embedding-3-small
  dimensions: 1536
vector_threshold: 0.5
max_batch_size: 16
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "/var/lib/ragstore", cfg.Path)
	assert.Equal(t, "testdb", cfg.Database)
	assert.Equal(t, "http://embedhost:9100/v1", cfg.Embedding.Host)
	assert.Equal(t, "text-embedding-3-small", cfg.Embedding.Model)
	assert.Equal(t, 1536, cfg.Embedding.Dimensions)
	assert.Equal(t, float32(0.5), cfg.VectorThreshold)
	assert.Equal(t, 16, cfg.MaxBatchSize)
	assert.NoError(t, cfg.Validate())
}

func TestLoadConfigEnvPrecedence(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
path: /from/file
embedding:
  model: file-model
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	t.Setenv("RAGSTORE_PATH", "/from/env")
	t.Setenv("RAGSTORE_EMBEDDING_MODEL", "env-model")
	t.Setenv("RAGSTORE_EMBEDDING_DIMENSIONS", "1024")
	t.Setenv("RAGSTORE_VECTOR_THRESHOLD", "0.75")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	// Environment wins over the file; the file wins over defaults.
	assert.Equal(t, "/from/env", cfg.Path)
	assert.Equal(t, "env-model", cfg.Embedding.Model)
	assert.Equal(t, 1024, cfg.Embedding.Dimensions)
	assert.Equal(t, float32(0.75), cfg.VectorThreshold)
	assert.Equal(t, "http://localhost:11434/v1", cfg.Embedding.Host)
}

func TestLoadConfigBadEnv(t *testing.T) {
	t.Setenv("RAGSTORE_EMBEDDING_DIMENSIONS", "not-a-number")

	_, err := LoadConfig("")
	assert.Error(t, err)
}

func TestLoadConfigMissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestConfigValidate(t *testing.T) {
	valid := func() *Config {
		cfg := DefaultConfig()
		cfg.Path = "/tmp/ragstore"
		return cfg
	}

	assert.NoError(t, valid().Validate())

	t.Run("missing path", func(t *testing.T) {
		cfg := valid()
		cfg.Path = ""
		assert.Error(t, cfg.Validate())
	})

	t.Run("missing database", func(t *testing.T) {
		cfg := valid()
		cfg.Database = ""
		assert.Error(t, cfg.Validate())
	})

	t.Run("bad dimensions", func(t *testing.T) {
		cfg := valid()
		cfg.Embedding.Dimensions = 0
		assert.Error(t, cfg.Validate())
	})

	t.Run("threshold out of range", func(t *testing.T) {
		cfg := valid()
		cfg.VectorThreshold = 1.5
		assert.Error(t, cfg.Validate())
	})

	t.Run("bad batch size", func(t *testing.T) {
		cfg := valid()
		cfg.MaxBatchSize = 0
		assert.Error(t, cfg.Validate())
	})
}
