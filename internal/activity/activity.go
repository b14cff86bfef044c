// Package activity records per-agent lifecycle events: deployments, status
// changes, configuration changes, and errors. Entries are append-only and
// readable per agent.
//
// Two implementations of the Log interface are provided:
//   - MemoryLog: in-process, for testing and single-process deployments.
//   - PostgresLog: durable, for production use.
package activity

import (
	"context"
	"time"
)

// Entry types.
const (
	TypeDeployment    = "deployment"
	TypeTransaction   = "transaction"
	TypeConfiguration = "configuration_change"
	TypeStatusChange  = "status_change"
	TypeError         = "error"
)

// Entry is a single recorded agent event.
type Entry struct {
	ID          string            `json:"id"`
	AgentID     string            `json:"agentId"`
	Type        string            `json:"type"`
	Description string            `json:"description"`
	Actor       string            `json:"actor,omitempty"` // owner id or "system"
	Metadata    map[string]string `json:"metadata,omitempty"`
	Timestamp   time.Time         `json:"timestamp"`
}

// Log is an append-only activity record.
type Log interface {
	Append(ctx context.Context, agentID, entryType, description, actor string, metadata map[string]string) (*Entry, error)
	ListByAgent(ctx context.Context, agentID string, limit, offset int) ([]*Entry, error)
	Len(ctx context.Context) (int, error)
}
