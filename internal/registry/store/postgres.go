package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/solace-protocol/acp/internal/registry/model"
)

// Postgres is a durable Store backed by pgx. Mutate serializes concurrent
// writers per record with SELECT ... FOR UPDATE; the (owner_id, name)
// uniqueness invariant is enforced by a unique index and surfaced as
// ErrConflict.
type Postgres struct {
	db *pgxpool.Pool
}

// NewPostgres creates a Postgres store. The schema is applied by cmd/migrate.
func NewPostgres(db *pgxpool.Pool) *Postgres {
	return &Postgres{db: db}
}

const agentColumns = `
	id, name, description, type, status, owner_id, owner_wallet,
	network, contract_address, program_id, deployed_at,
	capabilities, configuration, reputation, statistics,
	version, tags, is_public, created_at, updated_at, last_active_at`

// Insert implements Store.
func (p *Postgres) Insert(ctx context.Context, agent *model.Agent) error {
	caps, cfg, rep, stats, err := marshalDocs(agent)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO agents (` + agentColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11,
		        $12, $13, $14, $15, $16, $17, $18, $19, $20, $21)`

	_, err = p.db.Exec(ctx, query,
		agent.ID, agent.Name, agent.Description, agent.Type, agent.Status,
		agent.OwnerID, agent.OwnerWallet, agent.Network,
		nullable(agent.ContractAddress), nullable(agent.ProgramID), agent.DeployedAt,
		caps, cfg, rep, stats,
		agent.Version, agent.Tags, agent.IsPublic,
		agent.CreatedAt, agent.UpdatedAt, agent.LastActiveAt,
	)
	if isUniqueViolation(err) {
		return ErrConflict
	}
	return err
}

// Get implements Store.
func (p *Postgres) Get(ctx context.Context, id string) (*model.Agent, error) {
	row := p.db.QueryRow(ctx, `SELECT `+agentColumns+` FROM agents WHERE id = $1`, id)
	return scanAgent(row)
}

// Mutate implements Store.
func (p *Postgres) Mutate(ctx context.Context, id string, fn func(*model.Agent) error) (*model.Agent, error) {
	tx, err := p.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	row := tx.QueryRow(ctx, `SELECT `+agentColumns+` FROM agents WHERE id = $1 FOR UPDATE`, id)
	agent, err := scanAgent(row)
	if err != nil {
		return nil, err
	}

	if err := fn(agent); err != nil {
		return nil, err
	}

	caps, cfg, rep, stats, err := marshalDocs(agent)
	if err != nil {
		return nil, err
	}

	_, err = tx.Exec(ctx, `
		UPDATE agents SET
			name = $2, description = $3, type = $4, status = $5,
			network = $6, contract_address = $7, program_id = $8, deployed_at = $9,
			capabilities = $10, configuration = $11, reputation = $12, statistics = $13,
			version = $14, tags = $15, is_public = $16,
			updated_at = $17, last_active_at = $18
		WHERE id = $1`,
		agent.ID, agent.Name, agent.Description, agent.Type, agent.Status,
		agent.Network, nullable(agent.ContractAddress), nullable(agent.ProgramID), agent.DeployedAt,
		caps, cfg, rep, stats,
		agent.Version, agent.Tags, agent.IsPublic,
		agent.UpdatedAt, agent.LastActiveAt,
	)
	if isUniqueViolation(err) {
		return nil, ErrConflict
	}
	if err != nil {
		return nil, fmt.Errorf("update agent: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return agent, nil
}

// Delete implements Store. The row is locked with SELECT ... FOR UPDATE
// before the guard runs, so the check and the removal commit together.
func (p *Postgres) Delete(ctx context.Context, id string, guard func(*model.Agent) error) error {
	tx, err := p.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	row := tx.QueryRow(ctx, `SELECT `+agentColumns+` FROM agents WHERE id = $1 FOR UPDATE`, id)
	agent, err := scanAgent(row)
	if err != nil {
		return err
	}
	if guard != nil {
		if err := guard(agent); err != nil {
			return err
		}
	}

	if _, err := tx.Exec(ctx, `DELETE FROM agents WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete agent: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// Scan implements Store. Rows come back in creation order; the service
// treats scan order as unspecified.
func (p *Postgres) Scan(ctx context.Context) ([]*model.Agent, error) {
	rows, err := p.db.Query(ctx, `SELECT `+agentColumns+` FROM agents ORDER BY created_at`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var agents []*model.Agent
	for rows.Next() {
		a, err := scanAgent(rows)
		if err != nil {
			return nil, err
		}
		agents = append(agents, a)
	}
	return agents, rows.Err()
}

// Count implements Store.
func (p *Postgres) Count(ctx context.Context) (int, error) {
	var n int
	err := p.db.QueryRow(ctx, `SELECT count(*) FROM agents`).Scan(&n)
	return n, err
}

// rowScanner is satisfied by both pgx.Row and pgx.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanAgent(row rowScanner) (*model.Agent, error) {
	var (
		a                    model.Agent
		contractAddr, progID *string
		caps, cfg, rep, st   []byte
	)

	err := row.Scan(
		&a.ID, &a.Name, &a.Description, &a.Type, &a.Status,
		&a.OwnerID, &a.OwnerWallet, &a.Network,
		&contractAddr, &progID, &a.DeployedAt,
		&caps, &cfg, &rep, &st,
		&a.Version, &a.Tags, &a.IsPublic,
		&a.CreatedAt, &a.UpdatedAt, &a.LastActiveAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan agent: %w", err)
	}

	if contractAddr != nil {
		a.ContractAddress = *contractAddr
	}
	if progID != nil {
		a.ProgramID = *progID
	}
	if err := json.Unmarshal(caps, &a.Capabilities); err != nil {
		return nil, fmt.Errorf("decode capabilities: %w", err)
	}
	if err := json.Unmarshal(cfg, &a.Configuration); err != nil {
		return nil, fmt.Errorf("decode configuration: %w", err)
	}
	if err := json.Unmarshal(rep, &a.Reputation); err != nil {
		return nil, fmt.Errorf("decode reputation: %w", err)
	}
	if err := json.Unmarshal(st, &a.Statistics); err != nil {
		return nil, fmt.Errorf("decode statistics: %w", err)
	}
	if a.Tags == nil {
		a.Tags = []string{}
	}
	return &a, nil
}

func marshalDocs(a *model.Agent) (caps, cfg, rep, stats []byte, err error) {
	if caps, err = json.Marshal(a.Capabilities); err != nil {
		return nil, nil, nil, nil, fmt.Errorf("marshal capabilities: %w", err)
	}
	if cfg, err = json.Marshal(a.Configuration); err != nil {
		return nil, nil, nil, nil, fmt.Errorf("marshal configuration: %w", err)
	}
	if rep, err = json.Marshal(a.Reputation); err != nil {
		return nil, nil, nil, nil, fmt.Errorf("marshal reputation: %w", err)
	}
	if stats, err = json.Marshal(a.Statistics); err != nil {
		return nil, nil, nil, nil, fmt.Errorf("marshal statistics: %w", err)
	}
	return caps, cfg, rep, stats, nil
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
