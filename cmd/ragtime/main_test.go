package main

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/chzyer/readline"
	"github.com/fatih/color"
	"github.com/poiesic/ragtime"
	"github.com/poiesic/ragtime/config"
	"github.com/poiesic/ragtime/core"
	"github.com/poiesic/ragtime/history"
	"github.com/poiesic/ragtime/prompt"
	"github.com/poiesic/ragtime/search"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v2"
)

func TestMain(m *testing.M) {
	color.NoColor = true
	os.Exit(m.Run())
}

// runProbe runs the app with a throwaway command that calls fn with the
// parsed context.
func runProbe(t *testing.T, args []string, fn func(c *cli.Context) error) error {
	t.Helper()
	app := newApp()
	app.Commands = append(app.Commands, &cli.Command{
		Name:   "probe",
		Action: fn,
		Flags:  reembedCommand().Flags,
	})
	return app.Run(append([]string{"ragtime"}, args...))
}

func findFlag[T cli.Flag](flags []cli.Flag, name string) T {
	var zero T
	for _, f := range flags {
		if typed, ok := f.(T); ok && f.Names()[0] == name {
			return typed
		}
	}
	return zero
}

func TestNewApp(t *testing.T) {
	app := newApp()

	t.Run("registers every command", func(t *testing.T) {
		var names []string
		for _, cmd := range app.Commands {
			names = append(names, cmd.Name)
		}
		assert.ElementsMatch(t, []string{"ask", "chat", "index", "reembed", "search", "serve", "prompts"}, names)
	})

	t.Run("log-level defaults to info", func(t *testing.T) {
		flag := findFlag[*cli.StringFlag](app.Flags, "log-level")
		require.NotNil(t, flag)
		assert.Equal(t, "info", flag.Value)
	})

	t.Run("config reads RAGTIME_CONFIG", func(t *testing.T) {
		flag := findFlag[*cli.StringFlag](app.Flags, "config")
		require.NotNil(t, flag)
		assert.Equal(t, []string{"RAGTIME_CONFIG"}, flag.EnvVars)
	})

	t.Run("model flags have no defaults", func(t *testing.T) {
		for _, name := range []string{"host", "chat-model", "embedding-model", "collection", "db"} {
			flag := findFlag[*cli.StringFlag](app.Flags, name)
			require.NotNil(t, flag, name)
			assert.Empty(t, flag.Value, name)
		}
	})
}

func TestSetupLogger(t *testing.T) {
	previous := slog.Default()
	t.Cleanup(func() { slog.SetDefault(previous) })
	t.Setenv("RAGTIME_CONFIG", "")

	levels := map[string]slog.Level{
		"debug": slog.LevelDebug,
		"INFO":  slog.LevelInfo,
		"warn":  slog.LevelWarn,
		"error": slog.LevelError,
	}
	for name, level := range levels {
		t.Run(name, func(t *testing.T) {
			err := runProbe(t, []string{"--log-level", name, "probe"}, func(c *cli.Context) error {
				return nil
			})
			require.NoError(t, err)
			assert.True(t, slog.Default().Enabled(context.Background(), level))
			if level > slog.LevelDebug {
				assert.False(t, slog.Default().Enabled(context.Background(), level-4))
			}
		})
	}

	t.Run("rejects unknown level", func(t *testing.T) {
		err := runProbe(t, []string{"--log-level", "verbose", "probe"}, func(c *cli.Context) error {
			return nil
		})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid log level")
	})
}

func TestLoadConfig(t *testing.T) {
	t.Setenv("RAGTIME_CONFIG", "")
	t.Setenv(config.APIKeyEnv, "")

	path := filepath.Join(t.TempDir(), "ragtime.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
ai:
  chat_model: file-model
pipeline:
  top_k: 3
storage:
  path: from-file.db
`), 0o600))

	t.Run("file values without overrides", func(t *testing.T) {
		var cfg *config.File
		err := runProbe(t, []string{"--config", path, "probe"}, func(c *cli.Context) (err error) {
			cfg, err = loadConfig(c)
			return err
		})
		require.NoError(t, err)
		assert.Equal(t, "file-model", cfg.AI.ChatModel)
		assert.Equal(t, 3, cfg.Pipeline.TopK)
		assert.Equal(t, "from-file.db", cfg.Storage.Path)
	})

	t.Run("flags win over the file", func(t *testing.T) {
		var cfg *config.File
		args := []string{
			"--config", path,
			"--db", "flag.db",
			"--host", "http://models:8000",
			"--chat-model", "flag-chat",
			"--embedding-model", "flag-embed",
			"--collection", "podcasts",
			"probe",
		}
		err := runProbe(t, args, func(c *cli.Context) (err error) {
			cfg, err = loadConfig(c)
			return err
		})
		require.NoError(t, err)
		assert.Equal(t, "flag.db", cfg.Storage.Path)
		assert.Equal(t, "http://models:8000/v1", cfg.AI.ChatHost)
		assert.Equal(t, "http://models:8000/v1", cfg.AI.EmbeddingHost)
		assert.Equal(t, "flag-chat", cfg.AI.ChatModel)
		assert.Equal(t, "flag-embed", cfg.AI.EmbeddingModel)
		assert.Equal(t, "podcasts", cfg.Pipeline.Collection)
		assert.Equal(t, "podcasts", cfg.Ingestion.Collection)
		assert.Equal(t, 3, cfg.Pipeline.TopK)
	})

	t.Run("missing file", func(t *testing.T) {
		err := runProbe(t, []string{"--config", filepath.Join(t.TempDir(), "nope.yaml"), "probe"}, func(c *cli.Context) error {
			_, err := loadConfig(c)
			return err
		})
		require.Error(t, err)
	})
}

func TestReembedConfig(t *testing.T) {
	t.Setenv("RAGTIME_CONFIG", "")

	t.Run("defaults", func(t *testing.T) {
		err := runProbe(t, []string{"probe"}, func(c *cli.Context) error {
			cfg, err := reembedConfig(c, "podcasts")
			require.NoError(t, err)
			assert.Equal(t, "podcasts", cfg.Collection)
			assert.Equal(t, 100, cfg.BatchSize)
			assert.Equal(t, 100, cfg.ReportInterval)
			assert.Equal(t, 3, cfg.MaxRetries)
			assert.Equal(t, time.Second, cfg.RetryDelay)
			assert.True(t, cfg.Resume)
			return nil
		})
		require.NoError(t, err)
	})

	t.Run("no-resume", func(t *testing.T) {
		err := runProbe(t, []string{"probe", "--no-resume"}, func(c *cli.Context) error {
			cfg, err := reembedConfig(c, "default")
			require.NoError(t, err)
			assert.False(t, cfg.Resume)
			return nil
		})
		require.NoError(t, err)
	})

	invalid := map[string][]string{
		"batch-size":      {"probe", "--batch-size", "0"},
		"report-interval": {"probe", "--report-interval", "-1"},
		"max-retries":     {"probe", "--max-retries", "0"},
	}
	for name, args := range invalid {
		t.Run("rejects "+name, func(t *testing.T) {
			err := runProbe(t, args, func(c *cli.Context) error {
				_, err := reembedConfig(c, "default")
				return err
			})
			require.Error(t, err)
			assert.Contains(t, err.Error(), name)
		})
	}
}

func TestNewSessionStore(t *testing.T) {
	ctx := context.Background()

	t.Run("memory store without redis", func(t *testing.T) {
		store, closeStore, err := newSessionStore(ctx, config.Default())
		require.NoError(t, err)
		defer closeStore()
		assert.IsType(t, &history.MemoryStore{}, store)
	})

	t.Run("redis store", func(t *testing.T) {
		mr := miniredis.RunT(t)
		cfg := config.Default()
		cfg.Redis.Addr = mr.Addr()

		store, closeStore, err := newSessionStore(ctx, cfg)
		require.NoError(t, err)
		defer closeStore()
		require.IsType(t, &history.RedisStore{}, store)

		require.NoError(t, store.Append(ctx, "s1", core.Turn{Role: core.RoleUser, Content: "hello"}))
		turns, err := store.Snapshot(ctx, "s1")
		require.NoError(t, err)
		require.Len(t, turns, 1)
		assert.Equal(t, "hello", turns[0].Content)
	})

	t.Run("unreachable redis", func(t *testing.T) {
		mr := miniredis.RunT(t)
		cfg := config.Default()
		cfg.Redis.Addr = mr.Addr()
		mr.Close()

		_, _, err := newSessionStore(ctx, cfg)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to connect to redis")
	})
}

func TestNewRegistry(t *testing.T) {
	reg, collector := newRegistry()
	require.NotNil(t, collector)

	collector.ObserveAsk(ragtime.AskEvent{Outcome: search.OutcomeConfident})
	assert.Positive(t, testutil.CollectAndCount(reg, "ragtime_asks_total"))

	families, err := reg.Gather()
	require.NoError(t, err)
	var names []string
	for _, f := range families {
		names = append(names, f.GetName())
	}
	assert.Contains(t, names, "go_goroutines")
}

// scriptedReader replays lines, then reports EOF.
type scriptedReader struct {
	lines []string
	errs  map[int]error
	pos   int
}

func (r *scriptedReader) Readline() (string, error) {
	defer func() { r.pos++ }()
	if err, ok := r.errs[r.pos]; ok {
		return "", err
	}
	if r.pos >= len(r.lines) {
		return "", io.EOF
	}
	return r.lines[r.pos], nil
}

type fakeConversation struct {
	turns    []core.Turn
	resets   int
	opts     []ragtime.AskOptions
	resetErr error
}

func (f *fakeConversation) ID() string { return "session-1" }

func (f *fakeConversation) AskWithOptions(_ context.Context, question string, opts ragtime.AskOptions) (*core.Answer, error) {
	f.opts = append(f.opts, opts)
	if question == "fail" {
		return nil, core.Upstream("synthesizer", errors.New("connection refused"))
	}
	f.turns = append(f.turns,
		core.Turn{Role: core.RoleUser, Content: question},
		core.Turn{Role: core.RoleAssistant, Content: "answer to " + question})
	return &core.Answer{Answer: "answer to " + question}, nil
}

func (f *fakeConversation) History(context.Context) ([]core.Turn, error) {
	return f.turns, nil
}

func (f *fakeConversation) Reset(context.Context) error {
	if f.resetErr != nil {
		return f.resetErr
	}
	f.resets++
	f.turns = nil
	return nil
}

func TestRunChat(t *testing.T) {
	ctx := context.Background()

	t.Run("answers questions until EOF", func(t *testing.T) {
		conv := &fakeConversation{}
		var out bytes.Buffer
		rl := &scriptedReader{lines: []string{"what is focus?", "", "and habits?"}}

		err := runChat(ctx, rl, &out, conv, ragtime.AskOptions{Language: "de"})
		require.NoError(t, err)

		assert.Contains(t, out.String(), "Session session-1")
		assert.Contains(t, out.String(), "answer to what is focus?")
		assert.Contains(t, out.String(), "answer to and habits?")
		assert.Contains(t, out.String(), "Goodbye!")
		require.Len(t, conv.opts, 2)
		assert.Equal(t, "de", conv.opts[0].Language)
	})

	t.Run("commands", func(t *testing.T) {
		conv := &fakeConversation{}
		var out bytes.Buffer
		rl := &scriptedReader{lines: []string{"first", "/history", "/reset", "/history", "/help", "/bogus", "/quit", "never asked"}}

		require.NoError(t, runChat(ctx, rl, &out, conv, ragtime.AskOptions{}))

		text := out.String()
		assert.Contains(t, text, "user: first")
		assert.Contains(t, text, "History cleared.")
		assert.Contains(t, text, "No history yet.")
		assert.Contains(t, text, "/reset")
		assert.Contains(t, text, "unknown command /bogus")
		assert.NotContains(t, text, "never asked")
		assert.Equal(t, 1, conv.resets)
	})

	t.Run("failures keep the loop going", func(t *testing.T) {
		conv := &fakeConversation{resetErr: errors.New("store down")}
		var out bytes.Buffer
		rl := &scriptedReader{lines: []string{"fail", "/reset", "ok"}}

		require.NoError(t, runChat(ctx, rl, &out, conv, ragtime.AskOptions{}))

		text := out.String()
		assert.Contains(t, text, "Error: "+core.ErrUpstreamUnavailable.Message)
		assert.NotContains(t, text, "connection refused")
		assert.Contains(t, text, "Error: store down")
		assert.Contains(t, text, "answer to ok")
	})

	t.Run("interrupt is ignored", func(t *testing.T) {
		conv := &fakeConversation{}
		rl := &scriptedReader{
			lines: []string{"", "after interrupt"},
			errs:  map[int]error{0: readline.ErrInterrupt},
		}
		require.NoError(t, runChat(ctx, rl, io.Discard, conv, ragtime.AskOptions{}))
		require.Len(t, conv.turns, 2)
		assert.Equal(t, "after interrupt", conv.turns[0].Content)
	})

	t.Run("reader errors end the loop", func(t *testing.T) {
		boom := errors.New("terminal gone")
		rl := &scriptedReader{errs: map[int]error{0: boom}}
		err := runChat(ctx, rl, io.Discard, &fakeConversation{}, ragtime.AskOptions{})
		assert.ErrorIs(t, err, boom)
	})
}

func TestPrintAnswer(t *testing.T) {
	t.Run("sources and flags", func(t *testing.T) {
		var out bytes.Buffer
		printAnswer(&out, &core.Answer{
			Answer:              "Deep work needs long blocks.",
			LowConfidence:       true,
			TranslationDegraded: true,
			Sources: []core.Source{
				{SourceID: "ep-1.txt", Title: "Focus", Score: 0.91},
				{SourceID: "ep-2.txt", Score: 0.5},
			},
		})

		text := out.String()
		assert.Contains(t, text, "[low confidence")
		assert.Contains(t, text, "Deep work needs long blocks.")
		assert.Contains(t, text, "1. Focus [0.910]")
		assert.Contains(t, text, "2. ep-2.txt [0.500]")
		assert.Contains(t, text, "[translation unavailable")
	})

	t.Run("confident answer without sources", func(t *testing.T) {
		var out bytes.Buffer
		printAnswer(&out, &core.Answer{Answer: "No."})
		assert.Equal(t, "No.\n", out.String())
	})
}

func TestPrintSearch(t *testing.T) {
	a := core.Candidate{Fragment: &core.Fragment{ID: 1, Text: "alpha"}, Score: 0.4, QueryIndex: 0}
	b := core.Candidate{Fragment: &core.Fragment{ID: 2, Text: "beta"}, Score: 0.3, QueryIndex: 1}

	var out bytes.Buffer
	printSearch(&out, &search.Result{
		Queries: []string{"q one", "q two"},
		Fused:   []core.Candidate{a, b},
		FilterResult: search.FilterResult{
			Candidates:    []core.Candidate{a},
			LowConfidence: true,
			Outcome:       search.OutcomeFallback,
		},
	})

	text := out.String()
	assert.Contains(t, text, "1. q one")
	assert.Contains(t, text, "Candidates (fallback):")
	assert.Contains(t, text, "* 0.400  q0  alpha")
	assert.Contains(t, text, "  0.300  q1  beta")
	assert.Contains(t, text, "[low confidence")
}

func TestPrintVersions(t *testing.T) {
	registry, err := prompt.DefaultRegistry(ragtime.DefaultConfig().PromptVersion)
	require.NoError(t, err)

	var out bytes.Buffer
	printVersions(&out, registry.Versions())
	assert.Contains(t, out.String(), "* "+ragtime.DefaultConfig().PromptVersion)
}

func TestLoadDocuments(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "focus.txt"), []byte("on focus"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "image.png"), []byte{0x89}, 0o600))
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "season2"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "season2", "habits.md"), []byte("on habits"), 0o600))
	single := filepath.Join(t.TempDir(), "notes.log")
	require.NoError(t, os.WriteFile(single, []byte("explicit file"), 0o600))

	t.Run("walks directories and reads files", func(t *testing.T) {
		docs, err := loadDocuments([]string{dir, single})
		require.NoError(t, err)
		require.Len(t, docs, 3)

		bySource := map[string]string{}
		for _, d := range docs {
			bySource[d.SourceID] = d.Title + "|" + d.Text
		}
		assert.Equal(t, "focus|on focus", bySource["focus.txt"])
		assert.Equal(t, "habits|on habits", bySource["habits.md"])
		assert.Equal(t, "notes|explicit file", bySource["notes.log"])
	})

	t.Run("missing path", func(t *testing.T) {
		_, err := loadDocuments([]string{filepath.Join(dir, "missing.txt")})
		require.Error(t, err)
	})
}
