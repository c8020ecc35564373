package logger

import "strings"

// Redact masks bearer tokens and long alphanumeric runs (a rough
// API-key shape) in a message before it is logged or surfaced on an
// event payload.
func Redact(msg string) string {
	words := strings.Fields(msg)
	for i, w := range words {
		trimmed := strings.Trim(w, ".,;:\"'()[]{}")
		if strings.HasPrefix(strings.ToLower(trimmed), "bearer") {
			continue
		}
		if isKeyShaped(trimmed) {
			words[i] = strings.Replace(w, trimmed, "[REDACTED]", 1)
		}
	}
	return maskBearer(strings.Join(words, " "))
}

func isKeyShaped(s string) bool {
	if len(s) < 20 {
		return false
	}
	for _, r := range s {
		if !(r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9' || r == '-' || r == '_') {
			return false
		}
	}
	return true
}

func maskBearer(s string) string {
	const marker = "Bearer "
	idx := strings.Index(s, marker)
	if idx == -1 {
		return s
	}
	rest := s[idx+len(marker):]
	end := strings.IndexAny(rest, " \t\n")
	if end == -1 {
		end = len(rest)
	}
	return s[:idx] + marker + "[REDACTED]" + rest[end:]
}
