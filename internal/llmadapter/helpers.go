package llmadapter

import (
	"encoding/base64"
	"time"
)

const (
	minuteWindow = time.Minute
	dayWindow    = 24 * time.Hour
)

func msOrDefault(ms, def int) time.Duration {
	if ms <= 0 {
		ms = def
	}
	return time.Duration(ms) * time.Millisecond
}

func encodeBase64(data []byte) string {
	return base64.StdEncoding.EncodeToString(data)
}
