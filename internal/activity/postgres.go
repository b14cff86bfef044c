package activity

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// PostgresLog is a durable Log backed by the agent_activity table.
type PostgresLog struct {
	db     *pgxpool.Pool
	logger *zap.Logger
}

// NewPostgresLog creates a PostgresLog. The schema is applied by cmd/migrate.
func NewPostgresLog(db *pgxpool.Pool, logger *zap.Logger) *PostgresLog {
	return &PostgresLog{db: db, logger: logger}
}

// Append implements Log.
func (l *PostgresLog) Append(ctx context.Context, agentID, entryType, description, actor string, metadata map[string]string) (*Entry, error) {
	entry := &Entry{
		ID:          uuid.New().String(),
		AgentID:     agentID,
		Type:        entryType,
		Description: description,
		Actor:       actor,
		Metadata:    metadata,
		Timestamp:   time.Now().UTC(),
	}

	meta, err := json.Marshal(metadata)
	if err != nil {
		return nil, fmt.Errorf("marshal metadata: %w", err)
	}

	_, err = l.db.Exec(ctx, `
		INSERT INTO agent_activity (id, agent_id, type, description, actor, metadata, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		entry.ID, entry.AgentID, entry.Type, entry.Description, entry.Actor, meta, entry.Timestamp,
	)
	if err != nil {
		return nil, fmt.Errorf("insert activity entry: %w", err)
	}
	return entry, nil
}

// ListByAgent implements Log. Entries come back newest first.
func (l *PostgresLog) ListByAgent(ctx context.Context, agentID string, limit, offset int) ([]*Entry, error) {
	if limit <= 0 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	rows, err := l.db.Query(ctx, `
		SELECT id, agent_id, type, description, actor, metadata, created_at
		FROM agent_activity
		WHERE agent_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3`,
		agentID, limit, offset,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := []*Entry{}
	for rows.Next() {
		var (
			e    Entry
			meta []byte
		)
		if err := rows.Scan(&e.ID, &e.AgentID, &e.Type, &e.Description, &e.Actor, &meta, &e.Timestamp); err != nil {
			return nil, fmt.Errorf("scan activity entry: %w", err)
		}
		if len(meta) > 0 {
			if err := json.Unmarshal(meta, &e.Metadata); err != nil {
				l.logger.Warn("corrupt activity metadata", zap.String("entry_id", e.ID), zap.Error(err))
			}
		}
		entries = append(entries, &e)
	}
	return entries, rows.Err()
}

// Len implements Log.
func (l *PostgresLog) Len(ctx context.Context) (int, error) {
	var n int
	err := l.db.QueryRow(ctx, `SELECT count(*) FROM agent_activity`).Scan(&n)
	return n, err
}
