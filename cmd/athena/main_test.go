package main

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v2"
)

// ollamaServer answers /api/embeddings with a keyword count vector.
func ollamaServer(t *testing.T) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/embeddings" {
			http.NotFound(w, r)
			return
		}
		var req struct {
			Model  string `json:"model"`
			Prompt string `json:"prompt"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		calls.Add(1)
		text := strings.ToLower(req.Prompt)
		vector := []float32{
			float32(strings.Count(text, "deploy")),
			float32(strings.Count(text, "database")),
			0.1,
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{"embedding": vector})
	}))
	t.Cleanup(srv.Close)
	return srv, &calls
}

type cliFixture struct {
	root       string
	sourceDir  string
	embeddings string
	server     *httptest.Server
	calls      *atomic.Int32
}

func newCLIFixture(t *testing.T) *cliFixture {
	t.Helper()
	previous := slog.Default()
	t.Cleanup(func() { slog.SetDefault(previous) })

	root := t.TempDir()
	srv, calls := ollamaServer(t)
	for _, name := range []string{"ATHENA_EMBEDDING_PROVIDER", "OLLAMA_MODEL", "ATHENA_BATCH_DELAY", "ATHENA_TOP_K", "ATHENA_THRESHOLD"} {
		t.Setenv(name, "")
	}
	t.Setenv("OLLAMA_URL", srv.URL)

	f := &cliFixture{
		root:       root,
		sourceDir:  filepath.Join(root, "claudelogs"),
		embeddings: filepath.Join(root, "claudelogs", "embeddings"),
		server:     srv,
		calls:      calls,
	}
	sessions := filepath.Join(f.sourceDir, "sessions")
	require.NoError(t, os.MkdirAll(sessions, 0o755))
	write := func(name, body string) {
		require.NoError(t, os.WriteFile(filepath.Join(sessions, name), []byte(body), 0o644))
	}
	write("001_2025-09-10_deploy.md", "# Deploy\nUser: how do I deploy the api\nAssistant: run the deploy job")
	write("002_2025-09-11_database.md", "# Database\nUser: the database migration failed\nAssistant: roll back the database schema")
	return f
}

// run executes the app and returns stdout and stderr.
func (f *cliFixture) run(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	app := newApp(&stdout, &stderr)
	app.ExitErrHandler = func(*cli.Context, error) {}

	full := append([]string{"athena",
		"--env-file", filepath.Join(f.root, "missing.env"),
		"--source-dir", f.sourceDir,
		"--embeddings-dir", f.embeddings,
		"--provider", "local",
	}, args...)
	err := app.Run(full)
	return stdout.String(), stderr.String(), err
}

func findFlag(flags []cli.Flag, name string) cli.Flag {
	for _, flag := range flags {
		for _, n := range flag.Names() {
			if n == name {
				return flag
			}
		}
	}
	return nil
}

func findCommand(app *cli.App, name string) *cli.Command {
	for _, cmd := range app.Commands {
		if cmd.Name == name {
			return cmd
		}
	}
	return nil
}

func TestAppFlags(t *testing.T) {
	app := newApp(&bytes.Buffer{}, &bytes.Buffer{})

	t.Run("log-level defaults to info", func(t *testing.T) {
		flag, ok := findFlag(app.Flags, "log-level").(*cli.StringFlag)
		require.True(t, ok)
		assert.Equal(t, "info", flag.Value)
		assert.Contains(t, flag.Aliases, "l")
	})

	t.Run("ledger is on by default", func(t *testing.T) {
		flag, ok := findFlag(app.Flags, "ledger").(*cli.BoolFlag)
		require.True(t, ok)
		assert.True(t, flag.Value)
	})

	t.Run("every command is registered", func(t *testing.T) {
		for _, name := range []string{"test", "search", "stats", "batch", "single"} {
			assert.NotNil(t, findCommand(app, name), name)
		}
	})

	t.Run("batch flags", func(t *testing.T) {
		batch := findCommand(app, "batch")
		require.NotNil(t, batch)
		for _, name := range []string{"categories", "max-documents", "delay", "concurrency", "reprocess-changed"} {
			assert.NotNil(t, findFlag(batch.Flags, name), name)
		}
	})
}

func TestSetupLogger(t *testing.T) {
	f := newCLIFixture(t)

	t.Run("rejects unknown level", func(t *testing.T) {
		_, _, err := f.run(t, "--log-level", "verbose", "stats")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid log level")
	})

	t.Run("accepts mixed case", func(t *testing.T) {
		_, _, err := f.run(t, "--log-level", "WARN", "stats")
		require.NoError(t, err)
	})
}

func TestTestCommand(t *testing.T) {
	f := newCLIFixture(t)

	stdout, _, err := f.run(t, "test")
	require.NoError(t, err)
	assert.Contains(t, stdout, "Success! Embedding dimensions: 3")
	assert.Contains(t, stdout, "Provider: ollama")
	assert.Equal(t, int32(1), f.calls.Load())
}

func TestRemoteProviderRequiresKey(t *testing.T) {
	f := newCLIFixture(t)
	t.Setenv("OPENAI_API_KEY", "")

	_, _, err := f.run(t, "--provider", "openai", "test")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "OPENAI_API_KEY")
	assert.Zero(t, f.calls.Load())
}

func TestBatchThenSearch(t *testing.T) {
	f := newCLIFixture(t)

	stdout, stderr, err := f.run(t, "--ledger=false", "batch", "--delay", "0s")
	require.NoError(t, err)
	assert.Contains(t, stdout, "Processing Statistics:")
	assert.Contains(t, stdout, "Processed: 2")
	assert.Contains(t, stderr, "Progress: 2/2")

	_, err = os.Stat(filepath.Join(f.embeddings, "conversation", "2025-09-10-T0001.json"))
	require.NoError(t, err)

	t.Run("second batch skips everything", func(t *testing.T) {
		before := f.calls.Load()
		stdout, _, err := f.run(t, "--ledger=false", "batch", "--delay", "0s")
		require.NoError(t, err)
		assert.Contains(t, stdout, "Skipped: 2")
		assert.Equal(t, before, f.calls.Load())
	})

	t.Run("search ranks the matching session first", func(t *testing.T) {
		stdout, _, err := f.run(t, "--ledger=false", "search", "--top-k", "1", "database", "schema")
		require.NoError(t, err)
		assert.Contains(t, stdout, "1. Similarity:")
		assert.Contains(t, stdout, "Session: 2025-09-11-T0002")
		assert.NotContains(t, stdout, "2. Similarity:")
	})

	t.Run("high threshold finds nothing", func(t *testing.T) {
		stdout, _, err := f.run(t, "--ledger=false", "search", "--threshold", "1", "--categories", "environment", "deploy")
		require.NoError(t, err)
		assert.Contains(t, stdout, "No relevant results found.")
	})

	t.Run("stats", func(t *testing.T) {
		stdout, _, err := f.run(t, "--ledger=false", "stats")
		require.NoError(t, err)
		assert.Contains(t, stdout, "Total Sessions: 2")
		assert.NotContains(t, stdout, "Ledger Entries")
	})
}

func TestSingleCommand(t *testing.T) {
	f := newCLIFixture(t)
	path := filepath.Join(f.sourceDir, "sessions", "001_2025-09-10_deploy.md")

	stdout, _, err := f.run(t, "single", path)
	require.NoError(t, err)
	assert.Contains(t, stdout, "Processed: 1")

	t.Run("ledger records the run", func(t *testing.T) {
		stdout, _, err := f.run(t, "stats")
		require.NoError(t, err)
		assert.Contains(t, stdout, "Ledger Entries: 1")
	})

	t.Run("missing file fails", func(t *testing.T) {
		_, _, err := f.run(t, "single", filepath.Join(f.sourceDir, "sessions", "nope.md"))
		require.Error(t, err)
	})

	t.Run("requires a path", func(t *testing.T) {
		_, _, err := f.run(t, "single")
		require.Error(t, err)
	})
}

func TestParseCategories(t *testing.T) {
	categories, err := parseCategories([]string{"conversation,todos", " "})
	require.NoError(t, err)
	assert.Len(t, categories, 2)

	_, err = parseCategories([]string{"bogus"})
	assert.Error(t, err)
}

func TestPreview(t *testing.T) {
	assert.Equal(t, "short", preview("short", 10))
	assert.Equal(t, "abc...", preview("abcdef", 3))
}
