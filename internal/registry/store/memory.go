package store

import (
	"context"
	"sync"

	"github.com/solace-protocol/acp/internal/registry/model"
)

// Memory is an in-process, thread-safe Store. A single mutex serializes
// every mutating operation, so read-modify-write sequences through Mutate
// cannot interleave. All agents are lost on process exit.
type Memory struct {
	mu     sync.RWMutex
	agents map[string]*model.Agent
	byName map[nameKey]string // (name, ownerId) -> agent id
}

type nameKey struct {
	name    string
	ownerID string
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		agents: make(map[string]*model.Agent),
		byName: make(map[nameKey]string),
	}
}

// Insert implements Store. It enforces (name, ownerId) uniqueness.
func (m *Memory) Insert(_ context.Context, agent *model.Agent) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := nameKey{agent.Name, agent.OwnerID}
	if _, exists := m.byName[key]; exists {
		return ErrConflict
	}

	m.agents[agent.ID] = agent.Clone()
	m.byName[key] = agent.ID
	return nil
}

// Get implements Store.
func (m *Memory) Get(_ context.Context, id string) (*model.Agent, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	a, ok := m.agents[id]
	if !ok {
		return nil, ErrNotFound
	}
	return a.Clone(), nil
}

// Mutate implements Store. fn runs under the store mutex against a copy of
// the current record; the copy replaces the original only if fn succeeds.
func (m *Memory) Mutate(_ context.Context, id string, fn func(*model.Agent) error) (*model.Agent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	current, ok := m.agents[id]
	if !ok {
		return nil, ErrNotFound
	}

	next := current.Clone()
	if err := fn(next); err != nil {
		return nil, err
	}

	// A rename must keep the (name, ownerId) index consistent and unique.
	if next.Name != current.Name {
		newKey := nameKey{next.Name, next.OwnerID}
		if _, taken := m.byName[newKey]; taken {
			return nil, ErrConflict
		}
		delete(m.byName, nameKey{current.Name, current.OwnerID})
		m.byName[newKey] = id
	}

	m.agents[id] = next
	return next.Clone(), nil
}

// Delete implements Store. The guard sees the current record under the
// store mutex, so no Mutate can slip between the check and the removal.
func (m *Memory) Delete(_ context.Context, id string, guard func(*model.Agent) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	a, ok := m.agents[id]
	if !ok {
		return ErrNotFound
	}
	if guard != nil {
		if err := guard(a.Clone()); err != nil {
			return err
		}
	}
	delete(m.byName, nameKey{a.Name, a.OwnerID})
	delete(m.agents, id)
	return nil
}

// Scan implements Store. Order is unspecified.
func (m *Memory) Scan(_ context.Context) ([]*model.Agent, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]*model.Agent, 0, len(m.agents))
	for _, a := range m.agents {
		out = append(out, a.Clone())
	}
	return out, nil
}

// Count implements Store.
func (m *Memory) Count(_ context.Context) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.agents), nil
}
