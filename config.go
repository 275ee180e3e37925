// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package ragstore

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// EmbeddingConfig configures the embedding service behind the vector stores.
type EmbeddingConfig struct {
	Host       string `yaml:"host"`
	Model      string `yaml:"model"`
	Dimensions int    `yaml:"dimensions"`
}

// Config holds the settings of a ragstore database. Values come from an
// optional YAML file overlaid with RAGSTORE_* environment variables;
// environment wins.
type Config struct {
	// Path is the database directory. Empty with no in-memory flag is an error.
	Path string `yaml:"path"`

	// Database names the workspace; it prefixes nothing on disk but shows up
	// in logs to tell instances apart.
	Database string `yaml:"database"`

	Embedding EmbeddingConfig `yaml:"embedding"`

	// VectorThreshold is the minimum cosine similarity for query results.
	VectorThreshold float32 `yaml:"vector_threshold"`

	// MaxBatchSize caps texts per embedding request.
	MaxBatchSize int `yaml:"max_batch_size"`
}

// DefaultConfig returns a Config with defaults for a local setup.
func DefaultConfig() *Config {
	return &Config{
		Database: "ragstore",
		Embedding: EmbeddingConfig{
			Host:       "http://localhost:11434/v1",
			Model:      "embeddinggemma",
			Dimensions: 768,
		},
		VectorThreshold: 0.2,
		MaxBatchSize:    32,
	}
}

// LoadConfig builds a Config from defaults, an optional YAML file, and
// environment overrides, in that precedence order. An empty path skips the
// file layer.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config %s: %w", path, err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	if v := os.Getenv("RAGSTORE_PATH"); v != "" {
		c.Path = v
	}
	if v := os.Getenv("RAGSTORE_DATABASE"); v != "" {
		c.Database = v
	}
	if v := os.Getenv("RAGSTORE_EMBEDDING_HOST"); v != "" {
		c.Embedding.Host = v
	}
	if v := os.Getenv("RAGSTORE_EMBEDDING_MODEL"); v != "" {
		c.Embedding.Model = v
	}
	if v := os.Getenv("RAGSTORE_EMBEDDING_DIMENSIONS"); v != "" {
		dims, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("RAGSTORE_EMBEDDING_DIMENSIONS: %w", err)
		}
		c.Embedding.Dimensions = dims
	}
	if v := os.Getenv("RAGSTORE_VECTOR_THRESHOLD"); v != "" {
		threshold, err := strconv.ParseFloat(v, 32)
		if err != nil {
			return fmt.Errorf("RAGSTORE_VECTOR_THRESHOLD: %w", err)
		}
		c.VectorThreshold = float32(threshold)
	}
	if v := os.Getenv("RAGSTORE_MAX_BATCH_SIZE"); v != "" {
		size, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("RAGSTORE_MAX_BATCH_SIZE: %w", err)
		}
		c.MaxBatchSize = size
	}
	return nil
}

// Validate checks that the configuration is complete.
func (c *Config) Validate() error {
	if c.Path == "" {
		return errors.New("config: path is required")
	}
	if c.Database == "" {
		return errors.New("config: database is required")
	}
	if c.Embedding.Host == "" {
		return errors.New("config: embedding host is required")
	}
	if c.Embedding.Model == "" {
		return errors.New("config: embedding model is required")
	}
	if c.Embedding.Dimensions < 1 {
		return errors.New("config: embedding dimensions must be positive")
	}
	if c.VectorThreshold < -1 || c.VectorThreshold > 1 {
		return errors.New("config: vector threshold must be within [-1, 1]")
	}
	if c.MaxBatchSize < 1 {
		return errors.New("config: max batch size must be positive")
	}
	return nil
}
