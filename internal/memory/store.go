// Package memory implements the on-disk memory store: a single JSON file
// of per-agent entries, written through a debounced async flush.
package memory

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/cuken/overseer/internal/logger"
	"github.com/cuken/overseer/pkg/types"
)

// StorageError wraps a failure reading or writing the backing file.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string { return fmt.Sprintf("memory store %s: %s", e.Op, e.Err) }
func (e *StorageError) Unwrap() error { return e.Err }

const defaultContextLimit = 10

// Store holds every agent's memory entries, keyed by agent id, flushed to
// a single JSON file on disk.
type Store struct {
	mu      sync.Mutex
	path    string
	entries map[string][]types.MemoryEntry

	debounce time.Duration
	maxEntries int
	maxAge     time.Duration

	timer    *time.Timer
	dirty    bool
	flushing bool
	wg       sync.WaitGroup

	log *logger.Logger
}

// New creates a Store writing to path with the given debounce interval,
// soft entry cap, and max age before eviction.
func New(path string, debounce time.Duration, maxEntries int, maxAge time.Duration) *Store {
	return &Store{
		path:       path,
		entries:    make(map[string][]types.MemoryEntry),
		debounce:   debounce,
		maxEntries: maxEntries,
		maxAge:     maxAge,
		log:        logger.New("Memory", ""),
	}
}

// Initialize loads the backing file if present. A missing file is not an
// error — the store simply starts empty and creates the file on first
// flush. A malformed file is logged and treated the same way, never
// raised to the caller.
func (s *Store) Initialize() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return &StorageError{Op: "initialize", Err: err}
	}

	var loaded map[string][]types.MemoryEntry
	if err := json.Unmarshal(data, &loaded); err != nil {
		s.log.Warn("memory file %s is malformed, starting empty: %v", s.path, err)
		return nil
	}
	s.entries = loaded
	return nil
}

// Store appends entry under agentID's bucket, assigning an id and
// timestamp, and schedules a debounced flush. Eviction runs synchronously
// afterward so the soft cap and max age are enforced before Store
// returns.
func (s *Store) Store(agentID string, entry types.MemoryEntry) types.MemoryEntry {
	entry.ID = uuid.New().String()
	entry.Timestamp = time.Now().UTC()

	s.mu.Lock()
	s.entries[agentID] = append(s.entries[agentID], entry)
	s.markDirtyLocked()
	s.mu.Unlock()

	s.evict()
	return entry
}

// GetContext returns up to the 10 most recent entries for mode across all
// agents, most-recent first, each trimmed to its 200-character summary.
func (s *Store) GetContext(mode types.Mode) []types.ContextItem {
	s.mu.Lock()
	defer s.mu.Unlock()

	var matching []types.MemoryEntry
	for _, bucket := range s.entries {
		for _, e := range bucket {
			if e.Mode == mode {
				matching = append(matching, e)
			}
		}
	}

	sort.Slice(matching, func(i, j int) bool {
		return matching[i].Timestamp.After(matching[j].Timestamp)
	})

	if len(matching) > defaultContextLimit {
		matching = matching[:defaultContextLimit]
	}

	out := make([]types.ContextItem, len(matching))
	for i, e := range matching {
		out[i] = types.ContextItem{Type: e.Type, Summary: e.Content.Truncated()}
	}
	return out
}

// Search returns every entry whose content contains query as a
// case-insensitive substring, optionally restricted to entries carrying
// at least one of tags. An empty query matches nothing.
func (s *Store) Search(query string, tags ...string) []types.MemoryEntry {
	s.mu.Lock()
	defer s.mu.Unlock()

	if query == "" {
		return nil
	}

	var out []types.MemoryEntry
	for _, bucket := range s.entries {
		for _, e := range bucket {
			if !e.MatchesQuery(query) {
				continue
			}
			if len(tags) > 0 && !hasAnyTag(e, tags) {
				continue
			}
			out = append(out, e)
		}
	}
	return out
}

func hasAnyTag(e types.MemoryEntry, tags []string) bool {
	for _, t := range tags {
		if e.HasTag(t) {
			return true
		}
	}
	return false
}

// markDirtyLocked schedules a debounced flush. Caller must hold the
// mutex.
func (s *Store) markDirtyLocked() {
	s.dirty = true
	if s.timer != nil {
		s.timer.Stop()
	}
	s.timer = time.AfterFunc(s.debounce, func() {
		if err := s.Flush(); err != nil {
			s.log.Warn("debounced flush failed: %v", err)
		}
	})
}

// Flush rewrites the backing file in full. On failure, the in-memory
// state is retained and the next call (debounced or explicit) will try
// again.
func (s *Store) Flush() (err error) {
	s.mu.Lock()
	if s.flushing {
		s.mu.Unlock()
		return nil
	}
	if !s.dirty {
		s.mu.Unlock()
		return nil
	}

	s.flushing = true
	s.wg.Add(1)
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.dirty = false
	snapshot := s.cloneLocked()
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.flushing = false
		if err != nil {
			s.dirty = true
		}
		if s.dirty && s.timer == nil {
			s.timer = time.AfterFunc(s.debounce, func() {
				if err := s.Flush(); err != nil {
					s.log.Warn("debounced flush failed: %v", err)
				}
			})
		}
		s.mu.Unlock()
		s.wg.Done()
	}()

	return writeJSONAtomic(s.path, snapshot)
}

func (s *Store) cloneLocked() map[string][]types.MemoryEntry {
	out := make(map[string][]types.MemoryEntry, len(s.entries))
	for k, v := range s.entries {
		out[k] = append([]types.MemoryEntry(nil), v...)
	}
	return out
}

// Stop performs a final synchronous flush and waits for any in-flight
// flush to finish.
func (s *Store) Stop() error {
	err := s.Flush()
	s.wg.Wait()
	return err
}

// evict trims entries older than maxAge, then oldest-first down to
// maxEntries total across all agents.
func (s *Store) evict() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.maxAge > 0 {
		cutoff := time.Now().Add(-s.maxAge)
		changed := false
		for id, bucket := range s.entries {
			kept := bucket[:0:0]
			for _, e := range bucket {
				if e.Timestamp.After(cutoff) {
					kept = append(kept, e)
				} else {
					changed = true
				}
			}
			s.entries[id] = kept
			_ = changed
		}
	}

	if s.maxEntries <= 0 {
		return
	}

	total := 0
	for _, bucket := range s.entries {
		total += len(bucket)
	}
	if total <= s.maxEntries {
		return
	}

	type ref struct {
		agent string
		idx   int
		ts    time.Time
	}
	var all []ref
	for id, bucket := range s.entries {
		for i, e := range bucket {
			all = append(all, ref{agent: id, idx: i, ts: e.Timestamp})
		}
	}
	sort.Slice(all, func(i, j int) bool { return all[i].ts.Before(all[j].ts) })

	toDrop := total - s.maxEntries
	drop := make(map[string]map[int]bool)
	for i := 0; i < toDrop && i < len(all); i++ {
		r := all[i]
		if drop[r.agent] == nil {
			drop[r.agent] = make(map[int]bool)
		}
		drop[r.agent][r.idx] = true
	}
	for id, idxs := range drop {
		bucket := s.entries[id]
		kept := bucket[:0:0]
		for i, e := range bucket {
			if !idxs[i] {
				kept = append(kept, e)
			}
		}
		s.entries[id] = kept
	}

	if len(drop) > 0 {
		s.markDirtyLocked()
	}
}

func writeJSONAtomic(path string, v interface{}) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return &StorageError{Op: "flush", Err: err}
	}

	tmp := path + ".tmp"
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return &StorageError{Op: "flush", Err: err}
	}
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return &StorageError{Op: "flush", Err: err}
	}
	if err := os.Rename(tmp, path); err != nil {
		return &StorageError{Op: "flush", Err: err}
	}
	return nil
}
