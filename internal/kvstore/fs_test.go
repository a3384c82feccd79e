package kvstore

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func tempFS(t *testing.T) *FS {
	t.Helper()
	fs, err := NewFS(t.TempDir())
	if err != nil {
		t.Fatalf("NewFS: %v", err)
	}
	return fs
}

func TestSetAndGet(t *testing.T) {
	s := tempFS(t)
	value := []byte(`{"hello":"world"}`)
	if err := s.Set("notes", value); err != nil {
		t.Fatalf("Set: %v", err)
	}
	got, err := s.Get("notes")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if string(got) != string(value) {
		t.Errorf("value mismatch: got %q", got)
	}
}

func TestGetMissingKey(t *testing.T) {
	s := tempFS(t)
	_, err := s.Get("absent")
	if err == nil {
		t.Fatal("expected error for missing key")
	}
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("expected os.ErrNotExist, got %v", err)
	}
}

func TestSetOverwrites(t *testing.T) {
	s := tempFS(t)
	_ = s.Set("k", []byte("old"))
	if err := s.Set("k", []byte("new")); err != nil {
		t.Fatalf("Set: %v", err)
	}
	got, _ := s.Get("k")
	if string(got) != "new" {
		t.Errorf("value = %q, want new", got)
	}
}

func TestRemoveIdempotent(t *testing.T) {
	s := tempFS(t)
	_ = s.Set("gone", []byte("x"))
	if err := s.Remove("gone"); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if err := s.Remove("gone"); err != nil {
		t.Errorf("second Remove should be a no-op, got %v", err)
	}
	if _, err := s.Get("gone"); err == nil {
		t.Error("expected error reading removed key")
	}
}

func TestKeysPrefix(t *testing.T) {
	s := tempFS(t)
	_ = s.Set("backup_data_1", []byte("a"))
	_ = s.Set("backup_data_2", []byte("b"))
	_ = s.Set("notes", []byte("c"))

	keys, err := s.Keys("backup_data_")
	if err != nil {
		t.Fatalf("Keys: %v", err)
	}
	if len(keys) != 2 {
		t.Errorf("len = %d, want 2", len(keys))
	}

	all, _ := s.Keys("")
	if len(all) != 3 {
		t.Errorf("all keys len = %d, want 3", len(all))
	}
}

func TestInvalidKeysRejected(t *testing.T) {
	s := tempFS(t)

	cases := []string{
		"",
		"../escape",
		"a/b",
		"dots.not.allowed",
	}
	for _, k := range cases {
		if err := s.Set(k, []byte("x")); err == nil {
			t.Errorf("expected error for key %q", k)
		}
		if _, err := s.Get(k); err == nil {
			t.Errorf("expected error for get %q", k)
		}
	}
}

func TestAtomicWriteNoLeftovers(t *testing.T) {
	s := tempFS(t)
	_ = s.Set("atomic", []byte("first"))
	if err := s.Set("atomic", []byte("second")); err != nil {
		t.Fatalf("Set: %v", err)
	}
	got, _ := s.Get("atomic")
	if string(got) != "second" {
		t.Errorf("expected updated value, got %q", got)
	}

	matches, _ := filepath.Glob(filepath.Join(s.Root(), ".laguz-tmp-*"))
	if len(matches) != 0 {
		t.Errorf("leftover temp files: %v", matches)
	}
}

func TestNewFS_NonExistentDir(t *testing.T) {
	_, err := NewFS("/tmp/laguz-does-not-exist-" + t.Name())
	if err == nil {
		t.Error("expected error for non-existent dir")
	}
}

func TestNewFS_FileNotDir(t *testing.T) {
	f, _ := os.CreateTemp("", "laguz-test-*")
	_ = f.Close()
	defer os.Remove(f.Name())
	_, err := NewFS(f.Name())
	if err == nil {
		t.Error("expected error when root is a file")
	}
}
