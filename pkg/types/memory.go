package types

import (
	"encoding/json"
	"strings"
	"time"
)

const contextTruncateLen = 200

// Content is the tagged-sum payload a memory entry carries. Exactly one of
// Text or Structured should be set; Serialize gives the single stable
// string form used by both truncation and search.
type Content struct {
	Text       *string `json:"text,omitempty"`
	Structured any     `json:"structured,omitempty"`
}

// Serialize returns the stable string form of the content.
func (c Content) Serialize() string {
	if c.Text != nil {
		return *c.Text
	}
	if c.Structured == nil {
		return ""
	}
	b, err := json.Marshal(c.Structured)
	if err != nil {
		return ""
	}
	return string(b)
}

// Truncated returns Serialize(), cut to 200 characters with a trailing
// ellipsis if it was longer.
func (c Content) Truncated() string {
	s := c.Serialize()
	if len(s) <= contextTruncateLen {
		return s
	}
	return s[:contextTruncateLen] + "..."
}

// MemoryEntry is one record stored in an agent's bucket (keyed by agent
// id) of the memory store.
type MemoryEntry struct {
	ID        string    `json:"id"`
	Mode      Mode      `json:"mode"`
	Type      string    `json:"type"`
	Content   Content   `json:"content"`
	Tags      []string  `json:"tags,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// HasTag reports whether e carries tag, case-sensitively (tags are
// expected to be written consistently by callers).
func (e MemoryEntry) HasTag(tag string) bool {
	for _, t := range e.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

// MatchesQuery reports whether e's serialized content contains query as a
// case-insensitive substring. An empty query never matches.
func (e MemoryEntry) MatchesQuery(query string) bool {
	if query == "" {
		return false
	}
	return strings.Contains(strings.ToLower(e.Content.Serialize()), strings.ToLower(query))
}

// ContextItem is the trimmed view of a MemoryEntry returned by GetContext.
type ContextItem struct {
	Type    string `json:"type"`
	Summary string `json:"summary"`
}
