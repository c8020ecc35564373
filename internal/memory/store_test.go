package memory

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/cuken/overseer/pkg/types"
)

func textEntry(mode types.Mode, text string, tags ...string) types.MemoryEntry {
	t := text
	return types.MemoryEntry{Mode: mode, Type: "note", Content: types.Content{Text: &t}, Tags: tags}
}

func TestStore_GetContextFiltersByModeAndOrdersDescending(t *testing.T) {
	s := New(filepath.Join(t.TempDir(), "memory.json"), time.Hour, 1000, 0)

	s.Store("agent-1", textEntry(types.ModeAsk, "first"))
	time.Sleep(2 * time.Millisecond)
	s.Store("agent-1", textEntry(types.ModeCoder, "wrong mode"))
	time.Sleep(2 * time.Millisecond)
	s.Store("agent-2", textEntry(types.ModeAsk, "second"))

	ctx := s.GetContext(types.ModeAsk)
	if len(ctx) != 2 {
		t.Fatalf("expected 2 entries for mode ask, got %d", len(ctx))
	}
	if ctx[0].Summary != "second" {
		t.Errorf("expected most recent entry first, got %q", ctx[0].Summary)
	}
}

func TestStore_GetContextCapsAtTen(t *testing.T) {
	s := New(filepath.Join(t.TempDir(), "memory.json"), time.Hour, 1000, 0)
	for i := 0; i < 15; i++ {
		s.Store("agent-1", textEntry(types.ModeAsk, "entry"))
	}
	if len(s.GetContext(types.ModeAsk)) != 10 {
		t.Errorf("expected context capped at 10, got %d", len(s.GetContext(types.ModeAsk)))
	}
}

func TestStore_TruncatesLongContent(t *testing.T) {
	s := New(filepath.Join(t.TempDir(), "memory.json"), time.Hour, 1000, 0)
	long := make([]byte, 300)
	for i := range long {
		long[i] = 'x'
	}
	s.Store("agent-1", textEntry(types.ModeAsk, string(long)))
	ctx := s.GetContext(types.ModeAsk)
	if len(ctx[0].Summary) != 203 {
		t.Errorf("expected truncated summary of 200 chars + ellipsis, got len %d", len(ctx[0].Summary))
	}
}

func TestStore_SearchIsCaseInsensitiveSubstring(t *testing.T) {
	s := New(filepath.Join(t.TempDir(), "memory.json"), time.Hour, 1000, 0)
	s.Store("agent-1", textEntry(types.ModeAsk, "The Quick Brown Fox"))

	if results := s.Search("quick"); len(results) != 1 {
		t.Errorf("expected case-insensitive match, got %d results", len(results))
	}
	if results := s.Search("slow"); len(results) != 0 {
		t.Errorf("expected no match, got %d", len(results))
	}
}

func TestStore_EmptyQueryMatchesNothing(t *testing.T) {
	s := New(filepath.Join(t.TempDir(), "memory.json"), time.Hour, 1000, 0)
	s.Store("agent-1", textEntry(types.ModeAsk, "anything"))
	if results := s.Search(""); len(results) != 0 {
		t.Errorf("expected empty query to match nothing, got %d", len(results))
	}
}

func TestStore_SearchFiltersByTags(t *testing.T) {
	s := New(filepath.Join(t.TempDir(), "memory.json"), time.Hour, 1000, 0)
	s.Store("agent-1", textEntry(types.ModeAsk, "tagged entry", "important"))
	s.Store("agent-1", textEntry(types.ModeAsk, "tagged entry too"))

	results := s.Search("tagged", "important")
	if len(results) != 1 {
		t.Fatalf("expected tag filter to narrow to 1 result, got %d", len(results))
	}
}

func TestStore_FlushAndReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "memory.json")
	s := New(path, time.Hour, 1000, 0)
	s.Store("agent-1", textEntry(types.ModeAsk, "persisted"))
	if err := s.Stop(); err != nil {
		t.Fatalf("Stop: %v", err)
	}

	reloaded := New(path, time.Hour, 1000, 0)
	if err := reloaded.Initialize(); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	if len(reloaded.Search("persisted")) != 1 {
		t.Errorf("expected reloaded store to find the persisted entry")
	}
}

func TestStore_InitializeToleratesMalformedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "memory.json")
	if err := writeJSONAtomic(path, "not a valid entries map"); err != nil {
		t.Fatalf("setup: %v", err)
	}

	s := New(path, time.Hour, 1000, 0)
	if err := s.Initialize(); err != nil {
		t.Fatalf("expected malformed file to be tolerated, got error: %v", err)
	}
}

func TestStore_EvictsOldestWhenOverSoftCap(t *testing.T) {
	s := New(filepath.Join(t.TempDir(), "memory.json"), time.Hour, 2, 0)
	s.Store("agent-1", textEntry(types.ModeAsk, "one"))
	s.Store("agent-1", textEntry(types.ModeAsk, "two"))
	s.Store("agent-1", textEntry(types.ModeAsk, "three"))

	total := 0
	for _, bucket := range s.entries {
		total += len(bucket)
	}
	if total > 2 {
		t.Errorf("expected eviction to enforce the soft cap of 2, got %d entries", total)
	}
}
