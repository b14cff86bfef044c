package activity

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryLog is an in-memory, thread-safe Log implementation.
type MemoryLog struct {
	mu      sync.RWMutex
	entries []*Entry
}

// NewMemoryLog creates an empty in-memory activity log.
func NewMemoryLog() *MemoryLog {
	return &MemoryLog{}
}

// Append implements Log.
func (l *MemoryLog) Append(_ context.Context, agentID, entryType, description, actor string, metadata map[string]string) (*Entry, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	entry := &Entry{
		ID:          uuid.New().String(),
		AgentID:     agentID,
		Type:        entryType,
		Description: description,
		Actor:       actor,
		Metadata:    metadata,
		Timestamp:   time.Now().UTC(),
	}
	l.entries = append(l.entries, entry)
	return entry, nil
}

// ListByAgent implements Log. Entries come back newest first.
func (l *MemoryLog) ListByAgent(_ context.Context, agentID string, limit, offset int) ([]*Entry, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if limit <= 0 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	var matched []*Entry
	for i := len(l.entries) - 1; i >= 0; i-- {
		if l.entries[i].AgentID == agentID {
			matched = append(matched, l.entries[i])
		}
	}

	if offset >= len(matched) {
		return []*Entry{}, nil
	}
	end := offset + limit
	if end > len(matched) {
		end = len(matched)
	}
	return matched[offset:end], nil
}

// Len implements Log.
func (l *MemoryLog) Len(_ context.Context) (int, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.entries), nil
}
