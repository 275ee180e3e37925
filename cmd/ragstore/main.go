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

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"log/slog"
	"os"
	"strings"

	"github.com/poiesic/ragstore"
	"github.com/poiesic/ragstore/storage"
	"github.com/urfave/cli/v2"
)

func main() {
	app := &cli.App{
		Name:  "ragstore",
		Usage: "Multi-model storage engine for retrieval-augmented pipelines",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Set logging level (debug, info, warn, error)",
				Value:   "info",
			},
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to YAML config file (RAGSTORE_* env vars take precedence)",
			},
		},
		Before: setupLogger,
		Commands: []*cli.Command{
			{
				Name:   "stats",
				Usage:  "Show document status counts and graph size",
				Action: statsCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "db",
						Aliases: []string{"d"},
						Usage:   "Path to database directory (overrides config)",
					},
				},
			},
			{
				Name:   "export-graph",
				Usage:  "Export the whole property graph as JSON",
				Action: exportGraphCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "db",
						Aliases: []string{"d"},
						Usage:   "Path to database directory (overrides config)",
					},
				},
			},
			{
				Name:   "drop",
				Usage:  "Drop one collection",
				Action: dropCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "db",
						Aliases: []string{"d"},
						Usage:   "Path to database directory (overrides config)",
					},
					&cli.StringFlag{
						Name:     "store",
						Usage:    "Collection to drop (full_docs, text_chunks, llm_response_cache, doc_status, chunk_entity_relation, entities, relationships, chunks)",
						Required: true,
					},
				},
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func openDatabase(c *cli.Context) (*ragstore.Database, error) {
	cfg, err := ragstore.LoadConfig(c.String("config"))
	if err != nil {
		return nil, err
	}
	if db := c.String("db"); db != "" {
		cfg.Path = db
	}
	return ragstore.NewDatabase(cfg)
}

func statsCommand(c *cli.Context) error {
	ctx := context.Background()

	db, err := openDatabase(c)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	counts, err := db.DocStatus().StatusCounts(ctx)
	if err != nil {
		return fmt.Errorf("failed to count document statuses: %w", err)
	}

	nodeIDs, err := db.Graph().AllNodeIDs(ctx)
	if err != nil {
		return fmt.Errorf("failed to list graph nodes: %w", err)
	}

	fmt.Println("Document statuses:")
	for status, count := range counts {
		fmt.Printf("  %-12s %d\n", status, count)
	}
	fmt.Printf("Graph nodes: %d\n", len(nodeIDs))
	return nil
}

func exportGraphCommand(c *cli.Context) error {
	ctx := context.Background()

	db, err := openDatabase(c)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	graph, err := db.Graph().Subgraph(ctx, "*", 0)
	if err != nil {
		return fmt.Errorf("failed to export graph: %w", err)
	}

	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(graph)
}

func dropCommand(c *cli.Context) error {
	ctx := context.Background()

	db, err := openDatabase(c)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	var store storage.Store
	switch name := c.String("store"); name {
	case ragstore.NamespaceFullDocs:
		store = db.FullDocs()
	case ragstore.NamespaceTextChunks:
		store = db.TextChunks()
	case ragstore.NamespaceLLMCache:
		store = db.LLMCache()
	case ragstore.NamespaceDocStatus:
		store = db.DocStatus()
	case ragstore.NamespaceGraph:
		store = db.Graph()
	case ragstore.NamespaceEntities:
		store = db.Entities()
	case ragstore.NamespaceRelationships:
		store = db.Relationships()
	case ragstore.NamespaceChunks:
		store = db.Chunks()
	default:
		return fmt.Errorf("unknown store %q", name)
	}

	removed, err := store.Drop(ctx)
	if err != nil {
		return fmt.Errorf("failed to drop store: %w", err)
	}
	fmt.Fprintf(os.Stderr, "Removed %d records\n", removed)
	return nil
}

func setupLogger(c *cli.Context) error {
	// Get log level from flag and normalize to lowercase
	levelStr := strings.ToLower(c.String("log-level"))

	// Map string to slog.Level
	var level slog.Level
	switch levelStr {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		return fmt.Errorf("invalid log level %q: must be one of debug, info, warn, error", levelStr)
	}

	// Configure slog with the specified level
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	return nil
}
