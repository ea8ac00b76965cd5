package pipeline

import (
	"path/filepath"
	"strings"
	"time"
)

// Origin records which producer submitted an intake item.
type Origin string

const (
	OriginWatcher Origin = "watcher"
	OriginDirect  Origin = "direct"
)

// IntakeItem is one file awaiting ingestion. It is ephemeral: it exists only
// until a worker consumes it. Data may be nil, in which case the worker
// reads the bytes from Path.
type IntakeItem struct {
	ID           string
	Path         string
	Data         []byte
	Extension    string
	Origin       Origin
	DiscoveredAt time.Time

	reply chan Outcome
}

// ExtensionFor derives a normalized storage extension from a file path.
func ExtensionFor(path string) string {
	ext := strings.TrimPrefix(filepath.Ext(path), ".")
	return strings.ToLower(ext)
}
