package internal

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/starford/waystation/internal/apperr"
	"github.com/starford/waystation/internal/testutil"
)

func testApp(t *testing.T, mutate func(*Config)) *App {
	t.Helper()
	cfg := NewDefaultConfig()
	cfg.Storage.Directory = t.TempDir()
	if mutate != nil {
		mutate(cfg)
	}
	app, err := Open(context.Background(),
		WithConfig(cfg),
		WithLogger(testutil.Logger()),
		WithWorkingDir(t.TempDir()),
		WithIDGenerator(testutil.SequentialIDs()),
	)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { app.Close() })
	return app
}

func TestOpen_RequiresConfig(t *testing.T) {
	if _, err := Open(context.Background()); err == nil {
		t.Fatal("expected error without config")
	}
}

func TestOpen_WiresPersistenceAndIndex(t *testing.T) {
	app := testApp(t, nil)
	ctx := context.Background()

	w, _, err := app.Service.AddMark(ctx, "notes about the parser", "")
	if err != nil {
		t.Fatalf("AddMark: %v", err)
	}
	if _, err := os.Stat(filepath.Join(app.Config.Storage.Directory, "current.json")); err != nil {
		t.Errorf("current.json not written: %v", err)
	}
	if _, err := os.Stat(filepath.Join(app.Config.Storage.Directory, w.ID+".json")); err != nil {
		t.Errorf("backup not written: %v", err)
	}
	if _, err := os.Stat(app.Config.Index.Path); err != nil {
		t.Errorf("index not created: %v", err)
	}
	results, err := app.Service.Search(ctx, "parser", 5)
	if err != nil || len(results) != 1 {
		t.Errorf("search = %+v, %v", results, err)
	}
	if w.Configuration.Directory != app.Config.Storage.Directory {
		t.Errorf("configuration directory = %q", w.Configuration.Directory)
	}
}

func TestOpen_IndexDisabled(t *testing.T) {
	app := testApp(t, func(c *Config) { c.Index.Enabled = false })
	if _, err := app.Service.Search(context.Background(), "x", 1); !errors.Is(err, apperr.ErrIndexDisabled) {
		t.Errorf("err = %v, want ErrIndexDisabled", err)
	}
	if err := app.Watch(context.Background()); !errors.Is(err, apperr.ErrIndexDisabled) {
		t.Errorf("watch err = %v, want ErrIndexDisabled", err)
	}
}

func TestOpen_LogsToOutput(t *testing.T) {
	var buf bytes.Buffer
	cfg := NewDefaultConfig()
	cfg.Storage.Directory = t.TempDir()
	cfg.Index.Enabled = false
	cfg.App.LogLevel = -4
	app, err := Open(context.Background(), WithConfig(cfg), WithLogOutput(&buf), WithWorkingDir(t.TempDir()))
	if err != nil {
		t.Fatal(err)
	}
	defer app.Close()
	if !strings.Contains(buf.String(), "Configuration loaded") {
		t.Errorf("log output = %q", buf.String())
	}
}

func TestWatch_StopsOnCancel(t *testing.T) {
	app := testApp(t, nil)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- app.Watch(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Watch: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("watch did not stop")
	}
}

func TestPathResolver(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "main.go"), []byte("package main\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	resolve := PathResolver(dir)

	if got := resolve("main.go"); got != filepath.Join(dir, "main.go") {
		t.Errorf("existing file = %q", got)
	}
	if got := resolve("just a thought"); got != "just a thought" {
		t.Errorf("free text = %q", got)
	}
	if got := resolve("/abs/file.go"); got != "/abs/file.go" {
		t.Errorf("absolute = %q", got)
	}
}
