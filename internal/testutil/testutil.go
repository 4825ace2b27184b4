// Package testutil provides shared test helpers for setting up stores,
// databases and fully wired services.
package testutil

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"
	"testing"

	"github.com/starford/waystation/internal/index"
	"github.com/starford/waystation/internal/listeners"
	"github.com/starford/waystation/internal/notify"
	"github.com/starford/waystation/internal/stationservice"
	"github.com/starford/waystation/internal/storage"
	"github.com/starford/waystation/internal/waystation"
)

// SequentialIDs returns a deterministic, goroutine-safe id generator
// producing "id-1", "id-2", ...
func SequentialIDs() func() string {
	var mu sync.Mutex
	n := 0
	return func() string {
		mu.Lock()
		defer mu.Unlock()
		n++
		return fmt.Sprintf("id-%d", n)
	}
}

// Logger returns a logger that discards everything.
func Logger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

// TestDB creates a temporary SQLite database that is automatically cleaned up.
func TestDB(t *testing.T) *index.DB {
	t.Helper()
	dbFile, err := os.CreateTemp("", "waystation-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	dbFile.Close()
	t.Cleanup(func() { os.Remove(dbFile.Name()) })

	db, err := index.Open(dbFile.Name())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// TestStore creates a temporary storage directory with a storage.Provider.
func TestStore(t *testing.T) (string, storage.Provider) {
	t.Helper()
	dir := t.TempDir()
	store, err := storage.NewFS(dir)
	if err != nil {
		t.Fatal(err)
	}
	return dir, store
}

// Env is a service wired the way the application wires it, over temporary
// storage and a temporary index.
type Env struct {
	Dir       string
	Engine    *waystation.Engine
	Documents *storage.Documents
	Notifier  *notify.Notifier
	DB        *index.DB
	Service   *stationservice.Service
}

// NewEnv builds an Env with deterministic ids.
func NewEnv(t *testing.T) *Env {
	t.Helper()
	dir, store := TestStore(t)
	engine := waystation.New(waystation.WithIDGenerator(SequentialIDs()))
	docs := storage.NewDocuments(store, engine.Defaults())
	db := TestDB(t)
	n := notify.New()
	t.Cleanup(n.Close)

	persister := &listeners.Persister{
		Documents: docs,
		Index:     db,
		Enrichers: []listeners.Enricher{listeners.FileContext{Engine: engine, Lines: 1}},
		Logger:    Logger(),
	}
	persister.Register(n)

	svc := stationservice.New(engine, docs, n,
		stationservice.WithIndex(db),
		stationservice.WithExportDirectory(dir+"/markdown"),
		stationservice.WithLogger(Logger()),
	)
	return &Env{Dir: dir, Engine: engine, Documents: docs, Notifier: n, DB: db, Service: svc}
}
