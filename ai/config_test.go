package ai

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.NotNil(t, cfg)
	assert.Equal(t, "http://localhost:11434/v1", cfg.EmbeddingHost)
	assert.Equal(t, "embeddinggemma", cfg.EmbeddingModel)
	assert.Equal(t, 768, cfg.Dimensions)
}

func TestNewConfig(t *testing.T) {
	t.Run("with no options", func(t *testing.T) {
		cfg := NewConfig()

		assert.NotNil(t, cfg)
		// Should have default values
		assert.Equal(t, "http://localhost:11434/v1", cfg.EmbeddingHost)
		assert.Equal(t, 768, cfg.Dimensions)
	})

	t.Run("with custom host", func(t *testing.T) {
		cfg := NewConfig(WithEmbeddingHost("http://custom:8080/v1"))

		assert.Equal(t, "http://custom:8080/v1", cfg.EmbeddingHost)
	})

	t.Run("with custom model and dimensions", func(t *testing.T) {
		cfg := NewConfig(
			WithEmbeddingModel("text-embedding-3-small"),
			WithDimensions(1536),
		)

		assert.Equal(t, "text-embedding-3-small", cfg.EmbeddingModel)
		assert.Equal(t, 1536, cfg.Dimensions)
	})
}

func TestConfigNormalize(t *testing.T) {
	t.Run("adds v1 suffix", func(t *testing.T) {
		cfg := NewConfig(WithEmbeddingHost("http://localhost:11434"))
		cfg.Normalize()

		assert.Equal(t, "http://localhost:11434/v1", cfg.EmbeddingHost)
	})

	t.Run("strips trailing slash before adding suffix", func(t *testing.T) {
		cfg := NewConfig(WithEmbeddingHost("http://localhost:11434/"))
		cfg.Normalize()

		assert.Equal(t, "http://localhost:11434/v1", cfg.EmbeddingHost)
	})

	t.Run("leaves canonical host alone", func(t *testing.T) {
		cfg := NewConfig(WithEmbeddingHost("http://localhost:11434/v1"))
		cfg.Normalize()

		assert.Equal(t, "http://localhost:11434/v1", cfg.EmbeddingHost)
	})
}

func TestConfigValidate(t *testing.T) {
	t.Run("valid config", func(t *testing.T) {
		cfg := NewConfig()
		assert.NoError(t, cfg.Validate())
	})

	t.Run("missing host", func(t *testing.T) {
		cfg := NewConfig(WithEmbeddingHost(""))
		assert.Error(t, cfg.Validate())
	})

	t.Run("missing model", func(t *testing.T) {
		cfg := NewConfig(WithEmbeddingModel(""))
		assert.Error(t, cfg.Validate())
	})

	t.Run("invalid dimensions", func(t *testing.T) {
		cfg := NewConfig(WithDimensions(0))
		assert.Error(t, cfg.Validate())
	})

	t.Run("validate normalizes", func(t *testing.T) {
		cfg := NewConfig(WithEmbeddingHost("http://localhost:11434"))
		assert.NoError(t, cfg.Validate())
		assert.Equal(t, "http://localhost:11434/v1", cfg.EmbeddingHost)
	})
}
