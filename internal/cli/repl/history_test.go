package repl

import (
	"os"
	"path/filepath"
	"testing"
)

func TestHistory_AddGet(t *testing.T) {
	h := NewHistory("")
	h.Add("ping")
	h.Add("get a")
	h.Add("get a")

	if h.Len() != 2 {
		t.Fatalf("Len() = %d, want 2 (repeat skipped)", h.Len())
	}
	if h.Get(0) != "get a" || h.Get(1) != "ping" {
		t.Errorf("Get = %q, %q", h.Get(0), h.Get(1))
	}
	if h.Get(-1) != "" || h.Get(2) != "" {
		t.Error("out of range Get should return empty")
	}
}

func TestHistory_MaxSize(t *testing.T) {
	h := NewHistory("")
	h.maxSize = 3
	for _, line := range []string{"a", "b", "c", "d", "e"} {
		h.Add(line)
	}
	if h.Len() != 3 || h.Get(2) != "c" || h.Get(0) != "e" {
		t.Errorf("entries = %v", h.entries)
	}
}

func TestHistory_SaveLoad(t *testing.T) {
	file := filepath.Join(t.TempDir(), "nested", "history")

	h := NewHistory(file)
	h.Add("ping")
	h.Add("set k v")
	if err := h.Save(); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	info, err := os.Stat(file)
	if err != nil {
		t.Fatal(err)
	}
	if perm := info.Mode().Perm(); perm != 0o600 {
		t.Errorf("mode = %o, want 600", perm)
	}

	loaded := NewHistory(file)
	if err := loaded.Load(); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if loaded.Len() != 2 || loaded.Get(0) != "set k v" {
		t.Errorf("loaded entries = %v", loaded.entries)
	}
}

func TestHistory_LoadMissing(t *testing.T) {
	h := NewHistory(filepath.Join(t.TempDir(), "none"))
	if err := h.Load(); err != nil {
		t.Errorf("Load() on missing file = %v", err)
	}
	if err := NewHistory("").Save(); err != nil {
		t.Errorf("Save() in memory = %v", err)
	}
}

func TestDefaultHistoryFile(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	if got := DefaultHistoryFile(); got != filepath.Join(home, ".kvwire", "history") {
		t.Errorf("DefaultHistoryFile() = %q", got)
	}
}
