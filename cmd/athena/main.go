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
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/poiesic/athena"
	"github.com/poiesic/athena/core"
	"github.com/poiesic/athena/pipeline"
	"github.com/poiesic/athena/search"
	"github.com/urfave/cli/v2"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newApp(os.Stdout, os.Stderr).RunContext(ctx, os.Args); err != nil {
		log.Fatal(err)
	}
}

func newApp(stdout, stderr io.Writer) *cli.App {
	return &cli.App{
		Name:      "athena",
		Usage:     "Chunk, embed and search conversation transcripts",
		Writer:    stdout,
		ErrWriter: stderr,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Set logging level (debug, info, warn, error)",
				Value:   "info",
			},
			&cli.StringFlag{
				Name:  "env-file",
				Usage: "Load environment variables from this file if it exists",
				Value: ".env",
			},
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "YAML or TOML configuration file",
			},
			&cli.StringFlag{
				Name:    "provider",
				Aliases: []string{"p"},
				Usage:   "Embedding provider (openai|remote, ollama|local)",
			},
			&cli.StringFlag{
				Name:  "model",
				Usage: "Embedding model of the selected provider",
			},
			&cli.StringFlag{
				Name:  "embeddings-dir",
				Usage: "Directory holding vector artifacts",
			},
			&cli.StringFlag{
				Name:  "source-dir",
				Usage: "Directory holding sessions/, todos/ and shell-snapshots/",
			},
			&cli.Float64Flag{
				Name:  "rps",
				Usage: "Maximum embedding requests per second (0 disables the limit)",
			},
			&cli.BoolFlag{
				Name:  "ledger",
				Usage: "Record processed documents in the ledger",
				Value: true,
			},
		},
		Before: setupLogger,
		Commands: []*cli.Command{
			{
				Name:   "test",
				Usage:  "Embed a test sentence to check the provider connection",
				Action: testCommand,
			},
			{
				Name:      "search",
				Usage:     "Search stored embeddings for text similar to the query",
				ArgsUsage: "<query>",
				Action:    searchCommand,
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:    "top-k",
						Aliases: []string{"k"},
						Usage:   "Maximum number of results",
					},
					&cli.Float64Flag{
						Name:  "threshold",
						Usage: "Minimum cosine similarity",
					},
					&cli.StringSliceFlag{
						Name:  "categories",
						Usage: "Only search these categories",
					},
					&cli.StringSliceFlag{
						Name:  "session",
						Usage: "Only search these session ids",
					},
				},
			},
			{
				Name:   "stats",
				Usage:  "Show vector store statistics",
				Action: statsCommand,
			},
			{
				Name:   "batch",
				Usage:  "Embed every source document that has no artifact yet",
				Action: batchCommand,
				Flags: []cli.Flag{
					&cli.StringSliceFlag{
						Name:  "categories",
						Usage: "Categories to process (conversation, task-history, environment)",
					},
					&cli.IntFlag{
						Name:    "max-documents",
						Aliases: []string{"n"},
						Usage:   "Process at most this many documents (0 for all)",
					},
					&cli.DurationFlag{
						Name:  "delay",
						Usage: "Pause between documents",
					},
					&cli.IntFlag{
						Name:  "concurrency",
						Usage: "Documents processed at once",
					},
					&cli.BoolFlag{
						Name:  "reprocess-changed",
						Usage: "Reprocess documents whose content changed since they were embedded",
					},
				},
			},
			{
				Name:      "single",
				Usage:     "Embed one file, replacing its artifact",
				ArgsUsage: "<path>",
				Action:    singleCommand,
			},
		},
	}
}

// loadConfig layers defaults, the config file, the environment and flags.
func loadConfig(c *cli.Context) (*athena.Config, error) {
	if err := athena.LoadDotEnv(c.String("env-file")); err != nil {
		return nil, err
	}

	cfg := athena.DefaultConfig()
	if path := c.String("config"); path != "" {
		if err := cfg.MergeFile(path); err != nil {
			return nil, err
		}
	}
	if err := cfg.ApplyEnv(); err != nil {
		return nil, err
	}

	if c.IsSet("provider") {
		cfg.Provider = c.String("provider")
	}
	if c.IsSet("model") {
		if strings.EqualFold(cfg.Provider, "openai") || strings.EqualFold(cfg.Provider, "remote") {
			cfg.OpenAI.Model = c.String("model")
		} else {
			cfg.Ollama.Model = c.String("model")
		}
	}
	if c.IsSet("embeddings-dir") {
		cfg.EmbeddingsDir = c.String("embeddings-dir")
	}
	if c.IsSet("source-dir") {
		cfg.SourceDir = c.String("source-dir")
	}
	if c.IsSet("rps") {
		cfg.RequestsPerSecond = c.Float64("rps")
	}
	if c.IsSet("ledger") {
		cfg.UseLedger = c.Bool("ledger")
	}
	return cfg, nil
}

func openEngine(c *cli.Context, mutate func(*athena.Config)) (*athena.Engine, error) {
	cfg, err := loadConfig(c)
	if err != nil {
		return nil, err
	}
	if mutate != nil {
		mutate(cfg)
	}
	return athena.NewEngine(cfg, athena.WithLogger(slog.Default()))
}

func parseCategories(names []string) ([]core.Category, error) {
	var categories []core.Category
	for _, name := range names {
		for _, part := range strings.Split(name, ",") {
			if strings.TrimSpace(part) == "" {
				continue
			}
			category, err := core.ParseCategory(part)
			if err != nil {
				return nil, err
			}
			categories = append(categories, category)
		}
	}
	return categories, nil
}

func testCommand(c *cli.Context) error {
	engine, err := openEngine(c, nil)
	if err != nil {
		return err
	}
	defer engine.Close()

	out := c.App.Writer
	fmt.Fprintf(out, "Testing %s connection...\n", strings.ToUpper(engine.Provider().Name()))
	report, err := engine.TestConnection(c.Context)
	if err != nil {
		return cli.Exit(fmt.Sprintf("connection test failed: %v", err), 1)
	}

	samples := make([]string, len(report.Sample))
	for i, v := range report.Sample {
		samples[i] = fmt.Sprintf("%.4f", v)
	}
	fmt.Fprintf(out, "Success! Embedding dimensions: %d\n", report.Dimensions)
	fmt.Fprintf(out, "Sample values: [%s]\n", strings.Join(samples, ", "))
	fmt.Fprintf(out, "Provider: %s\n", report.Provider)
	fmt.Fprintf(out, "Model: %s\n", report.Model)
	return nil
}

func searchCommand(c *cli.Context) error {
	query := strings.TrimSpace(strings.Join(c.Args().Slice(), " "))
	if query == "" {
		return cli.Exit("search requires a query", 2)
	}
	categories, err := parseCategories(c.StringSlice("categories"))
	if err != nil {
		return err
	}

	engine, err := openEngine(c, func(cfg *athena.Config) {
		if c.IsSet("top-k") {
			cfg.TopK = c.Int("top-k")
		}
		if c.IsSet("threshold") {
			cfg.Threshold = c.Float64("threshold")
		}
	})
	if err != nil {
		return err
	}
	defer engine.Close()

	searcher, err := engine.NewSearcher()
	if err != nil {
		return err
	}

	var opts []search.QueryOption
	if len(categories) > 0 {
		opts = append(opts, search.WithCategories(categories...))
	}
	if sessions := c.StringSlice("session"); len(sessions) > 0 {
		opts = append(opts, search.WithDocumentIDs(sessions...))
	}

	results, err := searcher.Search(c.Context, query, opts...)
	if err != nil {
		return err
	}

	out := c.App.Writer
	if len(results) == 0 {
		fmt.Fprintln(out, "No relevant results found.")
		return nil
	}
	fmt.Fprintf(out, "Search Results for: %q\n", query)
	for i, result := range results {
		fmt.Fprintf(out, "\n%d. Similarity: %.3f\n", i+1, result.Similarity)
		fmt.Fprintf(out, "Session: %s\n", result.DocumentID)
		if result.Metadata.Category != "" {
			fmt.Fprintf(out, "Category: %s\n", result.Metadata.Category)
		}
		fmt.Fprintf(out, "Text: %s\n", preview(result.Text, 200))
	}
	return nil
}

func preview(text string, limit int) string {
	runes := []rune(text)
	if len(runes) <= limit {
		return text
	}
	return string(runes[:limit]) + "..."
}

func statsCommand(c *cli.Context) error {
	engine, err := openEngine(c, nil)
	if err != nil {
		return err
	}
	defer engine.Close()

	stats, err := engine.Stats(c.Context)
	if err != nil {
		return err
	}

	out := c.App.Writer
	fmt.Fprintln(out, "Embedding Database Statistics:")
	fmt.Fprintf(out, "Total Sessions: %d\n", stats.TotalDocuments)
	fmt.Fprintf(out, "Total Embeddings: %d\n", stats.TotalEmbeddings)
	fmt.Fprintf(out, "Average per Session: %d\n", stats.AveragePerDocument)
	fmt.Fprintf(out, "Directory: %s\n", stats.Directory)
	if stats.Oldest != "" {
		fmt.Fprintf(out, "Oldest: %s\n", stats.Oldest)
	}
	if stats.Newest != "" {
		fmt.Fprintf(out, "Newest: %s\n", stats.Newest)
	}
	if stats.Unreadable > 0 {
		fmt.Fprintf(out, "Unreadable: %d\n", stats.Unreadable)
	}
	if stats.LedgerEntries >= 0 {
		fmt.Fprintf(out, "Ledger Entries: %d\n", stats.LedgerEntries)
	}
	return nil
}

func batchCommand(c *cli.Context) error {
	categories, err := parseCategories(c.StringSlice("categories"))
	if err != nil {
		return err
	}

	engine, err := openEngine(c, func(cfg *athena.Config) {
		if c.IsSet("max-documents") {
			cfg.MaxDocuments = c.Int("max-documents")
		}
		if c.IsSet("delay") {
			cfg.BatchDelay = athena.Duration(c.Duration("delay"))
		}
		if c.IsSet("concurrency") {
			cfg.Concurrency = c.Int("concurrency")
		}
		if c.IsSet("reprocess-changed") {
			cfg.ReprocessChanged = c.Bool("reprocess-changed")
		}
	})
	if err != nil {
		return err
	}
	defer engine.Close()

	p, err := engine.NewPipeline(pipeline.WithProgress(c.App.ErrWriter))
	if err != nil {
		return err
	}
	defer p.Release()

	fmt.Fprintf(c.App.ErrWriter, "Provider: %s (%s)\n", engine.Provider().Name(), engine.Provider().Model())
	report, runErr := p.Run(c.Context, categories...)
	if report != nil {
		report.WriteSummary(c.App.Writer)
	}
	return runErr
}

func singleCommand(c *cli.Context) error {
	path := c.Args().First()
	if path == "" {
		return cli.Exit("single requires a file path", 2)
	}

	engine, err := openEngine(c, nil)
	if err != nil {
		return err
	}
	defer engine.Close()

	p, err := engine.NewPipeline()
	if err != nil {
		return err
	}
	defer p.Release()

	report, err := p.ProcessFile(c.Context, path)
	if report != nil {
		report.WriteSummary(c.App.Writer)
	}
	if err != nil {
		return err
	}
	if len(report.Errors) > 0 {
		return cli.Exit(fmt.Sprintf("processing %s failed: %s", path, report.Errors[0].Error), 1)
	}
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
	logger := slog.New(slog.NewTextHandler(c.App.ErrWriter, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	return nil
}
