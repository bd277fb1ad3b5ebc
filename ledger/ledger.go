// Package ledger keeps a durable record of article IDs that have already
// been notified, so repeated runs never re-send the same item.
package ledger

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"time"

	"go.uber.org/zap"
)

// document is the JSON shape persisted to disk.
type document struct {
	SeenIDs   []string  `json:"seen_ids"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Ledger is an in-memory seen set backed by a single JSON file. The set only
// grows; each insertion rewrites the whole document, and a failed write
// never rolls back the in-memory state.
type Ledger struct {
	path string
	seen map[string]struct{}
	log  *zap.Logger
}

// Open loads the ledger stored at path. A missing, unreadable or malformed
// file is treated as an empty ledger, never a startup failure.
func Open(path string, log *zap.Logger) *Ledger {
	if log == nil {
		log = zap.NewNop()
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		log.Warn("failed to create ledger directory", zap.String("dir", dir), zap.Error(err))
	}

	l := &Ledger{
		path: path,
		seen: make(map[string]struct{}),
		log:  log,
	}
	l.load()
	return l
}

func (l *Ledger) load() {
	data, err := os.ReadFile(l.path)
	if err != nil {
		if !os.IsNotExist(err) {
			l.log.Warn("failed to read ledger file", zap.String("path", l.path), zap.Error(err))
		}
		return
	}

	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		l.log.Warn("ledger file is malformed, starting empty",
			zap.String("path", l.path), zap.Error(err))
		return
	}

	for _, id := range doc.SeenIDs {
		l.seen[id] = struct{}{}
	}
	l.log.Info("loaded seen article IDs", zap.Int("count", len(l.seen)))
}

// IsSeen reports whether id has already been notified.
func (l *Ledger) IsSeen(id string) bool {
	_, ok := l.seen[id]
	return ok
}

// MarkSeen inserts id and persists the whole set with a fresh timestamp. A
// write failure is logged and ignored; the in-memory set keeps the new entry
// either way.
func (l *Ledger) MarkSeen(id string) {
	l.seen[id] = struct{}{}
	l.save()
}

// Count returns the number of recorded IDs.
func (l *Ledger) Count() int {
	return len(l.seen)
}

func (l *Ledger) save() {
	doc := document{
		SeenIDs:   make([]string, 0, len(l.seen)),
		UpdatedAt: time.Now().UTC(),
	}
	for id := range l.seen {
		doc.SeenIDs = append(doc.SeenIDs, id)
	}
	sort.Strings(doc.SeenIDs)

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		l.log.Error("failed to marshal ledger", zap.Error(err))
		return
	}
	if err := os.WriteFile(l.path, data, 0o644); err != nil {
		l.log.Error("failed to write ledger file", zap.String("path", l.path), zap.Error(err))
	}
}
