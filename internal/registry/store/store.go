// Package store provides the persistence abstraction behind the agent
// registry. Filtering, sorting, and pagination are registry logic and stay
// in the service layer; a Store only needs point lookups, a full scan, and
// an atomic mutation primitive.
//
// Two implementations are provided:
//   - Memory: in-process, the default and the test implementation.
//   - Postgres: durable, for production use.
package store

import (
	"context"
	"errors"

	"github.com/solace-protocol/acp/internal/registry/model"
)

// ErrNotFound is returned when no agent exists under the given id.
var ErrNotFound = errors.New("agent not found")

// ErrConflict is returned when an insert or rename would violate the
// (name, ownerId) uniqueness invariant.
var ErrConflict = errors.New("agent name already exists for owner")

// Store is the persistence interface for agent records.
//
// Mutate is the only write path for existing records: implementations must
// apply fn to the current record and persist the result atomically with
// respect to concurrent Mutate calls on the same id. If fn returns an
// error, no change is persisted and that error is returned unchanged.
//
// Delete follows the same contract for removal: guard runs against the
// current record under the same serialization as Mutate, and the record is
// removed only if guard returns nil. A non-nil guard error aborts the
// removal and is returned unchanged, so a status check and the removal it
// authorizes cannot interleave with a concurrent Mutate.
type Store interface {
	Insert(ctx context.Context, agent *model.Agent) error
	Get(ctx context.Context, id string) (*model.Agent, error)
	Mutate(ctx context.Context, id string, fn func(*model.Agent) error) (*model.Agent, error)
	Delete(ctx context.Context, id string, guard func(*model.Agent) error) error
	Scan(ctx context.Context) ([]*model.Agent, error)
	Count(ctx context.Context) (int, error)
}
