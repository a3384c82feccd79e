package repository

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/starford/laguz/internal/models"
)

// eventually polls fn every tick until it returns true or timeout elapses.
func eventually(t *testing.T, timeout, tick time.Duration, fn func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if fn() {
			return
		}
		time.Sleep(tick)
	}
	t.Error(msg)
}

func TestWatcherReloadsOnExternalWrite(t *testing.T) {
	repo, store := testRepo(t, 100)
	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var mu sync.Mutex
	var events []string

	go func() {
		_ = repo.Watch(ctx, store, logger, func(kind string) {
			mu.Lock()
			events = append(events, kind)
			mu.Unlock()
		})
	}()

	time.Sleep(100 * time.Millisecond)

	// Simulate another process rewriting the notes key directly.
	external := []models.Note{{
		ID: "ext-1", Title: "Written Externally",
		CreatedAt: time.Now().UTC(), UpdatedAt: time.Now().UTC(),
	}}
	data, _ := json.Marshal(external)
	if err := os.WriteFile(filepath.Join(store.Root(), NotesKey+".json"), data, 0o644); err != nil {
		t.Fatal(err)
	}

	eventually(t, 5*time.Second, 50*time.Millisecond, func() bool {
		mu.Lock()
		defer mu.Unlock()
		for _, e := range events {
			if e == "notes.reloaded" {
				return true
			}
		}
		return false
	}, "expected notes.reloaded callback")

	// The derived index follows the external write.
	eventually(t, 5*time.Second, 50*time.Millisecond, func() bool {
		raw, err := store.Get(IndexKey)
		if err != nil {
			return false
		}
		var entries []models.IndexEntry
		if json.Unmarshal(raw, &entries) != nil {
			return false
		}
		return len(entries) == 1 && entries[0].Title == "written externally"
	}, "index not refreshed after external write")
}

func TestWatcherIgnoresUnrelatedFiles(t *testing.T) {
	repo, store := testRepo(t, 100)
	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var mu sync.Mutex
	calls := 0

	go func() {
		_ = repo.Watch(ctx, store, logger, func(string) {
			mu.Lock()
			calls++
			mu.Unlock()
		})
	}()

	time.Sleep(100 * time.Millisecond)

	if err := os.WriteFile(filepath.Join(store.Root(), "settings.json"), []byte(`{}`), 0o644); err != nil {
		t.Fatal(err)
	}

	time.Sleep(500 * time.Millisecond)
	mu.Lock()
	defer mu.Unlock()
	if calls != 0 {
		t.Errorf("unrelated file triggered %d reloads", calls)
	}
}
