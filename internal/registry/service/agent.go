// Package service implements the registry's business rules: validation,
// ownership, visibility, the status state machine, and reputation scoring.
// Persistence is delegated to a store.Store and on-chain deployment to a
// solana.Deployer so both can be swapped in tests.
package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/solace-protocol/acp/internal/activity"
	"github.com/solace-protocol/acp/internal/registry/model"
	"github.com/solace-protocol/acp/internal/registry/store"
	"github.com/solace-protocol/acp/internal/solana"
)

const (
	defaultListLimit = 50

	// actorSystem marks activity entries written without a requesting user,
	// such as admin suspensions and reputation recomputations.
	actorSystem = "system"
)

// AgentService coordinates agent lifecycle operations.
type AgentService struct {
	store    store.Store
	deployer solana.Deployer
	activity activity.Log
	logger   *zap.Logger
}

// NewAgentService wires an AgentService from its dependencies.
func NewAgentService(st store.Store, dep solana.Deployer, log activity.Log, logger *zap.Logger) *AgentService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AgentService{store: st, deployer: dep, activity: log, logger: logger}
}

// Create validates and registers a new agent owned by ownerID. The agent
// starts in pending status with zeroed reputation and statistics.
func (s *AgentService) Create(ctx context.Context, input model.CreateAgentInput, ownerID, ownerWallet string) (*model.Agent, error) {
	if err := validateCreateInput(input); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	agent := &model.Agent{
		ID:            model.NewAgentID(),
		Name:          input.Name,
		Description:   input.Description,
		Type:          input.Type,
		Status:        model.AgentStatusPending,
		OwnerID:       ownerID,
		OwnerWallet:   ownerWallet,
		Network:       input.Network,
		Configuration: input.Configuration,
		Reputation: model.Reputation{
			LastUpdated: now,
			Reviews:     []model.Review{},
		},
		Statistics: model.Statistics{
			CreatedAt: now,
			UpdatedAt: now,
		},
		Version:   "1.0.0",
		Tags:      input.Tags,
		IsPublic:  input.IsPublic,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if agent.Tags == nil {
		agent.Tags = []string{}
	}
	agent.Capabilities = make([]model.Capability, 0, len(input.Capabilities))
	for _, cap := range input.Capabilities {
		agent.Capabilities = append(agent.Capabilities, model.Capability{
			ID:          model.NewCapabilityID(),
			Name:        cap.Name,
			Description: cap.Description,
			Version:     cap.Version,
			Parameters:  cap.Parameters,
		})
	}

	if err := s.store.Insert(ctx, agent); err != nil {
		if errors.Is(err, store.ErrConflict) {
			return nil, model.NewConflictError(
				fmt.Sprintf("Agent with name '%s' already exists", input.Name),
				map[string]any{"agentName": input.Name, "ownerId": ownerID},
			)
		}
		return nil, model.NewInternalError(err)
	}

	s.record(ctx, agent.ID, activity.TypeStatusChange, "Agent registered", ownerID, map[string]string{
		"status": string(agent.Status),
	})
	s.logger.Info("agent created",
		zap.String("agent_id", agent.ID),
		zap.String("owner_id", ownerID),
		zap.String("name", agent.Name),
		zap.String("type", string(agent.Type)))

	return agent, nil
}

// Get returns an agent visible to requesterID. Private agents owned by
// someone else surface as not found so their existence is not leaked.
// An empty requesterID means an anonymous caller.
func (s *AgentService) Get(ctx context.Context, id, requesterID string) (*model.Agent, error) {
	agent, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, s.storeErr(err, id)
	}
	if !agent.IsPublic && agent.OwnerID != requesterID {
		return nil, notFound(id)
	}
	return agent, nil
}

// Update applies partial changes to an agent owned by requesterID. Status
// is not updatable here; lifecycle operations own status.
func (s *AgentService) Update(ctx context.Context, id string, input model.UpdateAgentInput, requesterID string) (*model.Agent, error) {
	updated, err := s.store.Mutate(ctx, id, func(agent *model.Agent) error {
		if err := requireOwner(agent, requesterID); err != nil {
			return err
		}

		if input.Name != nil && !model.ValidName(*input.Name) {
			return model.NewValidationError("Invalid agent name format", nil)
		}
		if input.Description != nil && !model.ValidDescription(*input.Description) {
			return model.NewValidationError("Invalid agent description", nil)
		}

		cfg := agent.Configuration
		if input.Configuration != nil {
			cfg = input.Configuration.ApplyTo(cfg)
			if errs := model.ValidateConfiguration(cfg); len(errs) > 0 {
				return model.NewValidationError("Configuration errors: "+strings.Join(errs, ", "), nil)
			}
		}

		if input.Name != nil {
			agent.Name = *input.Name
		}
		if input.Description != nil {
			agent.Description = *input.Description
		}
		agent.Configuration = cfg
		if input.Tags != nil {
			agent.Tags = append([]string(nil), (*input.Tags)...)
		}
		if input.IsPublic != nil {
			agent.IsPublic = *input.IsPublic
		}
		agent.UpdatedAt = time.Now().UTC()
		return nil
	})
	if err != nil {
		if errors.Is(err, store.ErrConflict) {
			name := ""
			if input.Name != nil {
				name = *input.Name
			}
			return nil, model.NewConflictError(
				fmt.Sprintf("Agent with name '%s' already exists", name),
				map[string]any{"agentName": name},
			)
		}
		return nil, s.storeErr(err, id)
	}

	if input.Configuration != nil {
		s.record(ctx, id, activity.TypeConfiguration, "Agent configuration updated", requesterID, nil)
	}
	s.logger.Info("agent updated", zap.String("agent_id", id), zap.String("owner_id", requesterID))
	return updated, nil
}

// Delete removes a non-active agent owned by requesterID. Active agents
// must be paused first. The status check rides inside the store's guarded
// removal, so a concurrent deploy cannot activate the agent between the
// check and the delete.
func (s *AgentService) Delete(ctx context.Context, id, requesterID string) error {
	err := s.store.Delete(ctx, id, func(agent *model.Agent) error {
		if err := requireOwner(agent, requesterID); err != nil {
			return err
		}
		if agent.Status == model.AgentStatusActive {
			return model.NewAgentError("Cannot delete active agent. Please pause it first.", map[string]any{
				"agentId": id,
				"status":  string(agent.Status),
			})
		}
		return nil
	})
	if err != nil {
		return s.storeErr(err, id)
	}

	s.logger.Info("agent deleted", zap.String("agent_id", id), zap.String("owner_id", requesterID))
	return nil
}

// List returns agents matching the filters plus the pre-pagination total.
// Without an ownerId filter only public agents are returned.
func (s *AgentService) List(ctx context.Context, filters model.QueryFilters) ([]*model.Agent, int, error) {
	all, err := s.store.Scan(ctx)
	if err != nil {
		return nil, 0, model.NewInternalError(err)
	}

	matched := make([]*model.Agent, 0, len(all))
	for _, agent := range all {
		if matchesFilters(agent, filters) {
			matched = append(matched, agent)
		}
	}
	total := len(matched)

	sortAgents(matched, filters.SortBy, filters.SortOrder)

	offset := filters.Offset
	if offset < 0 {
		offset = 0
	}
	limit := filters.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}
	if offset >= len(matched) {
		return []*model.Agent{}, total, nil
	}
	end := offset + limit
	if end > len(matched) {
		end = len(matched)
	}
	return matched[offset:end], total, nil
}

// Deploy pushes a pending agent on-chain through the configured deployer.
// On success the agent becomes active with its contract address recorded;
// any deployment failure moves the agent to error status.
func (s *AgentService) Deploy(ctx context.Context, id string, cfg model.DeploymentConfig, requesterID string) (*model.DeploymentResult, error) {
	if !model.ValidNetwork(cfg.Network) {
		return nil, model.NewValidationError("Invalid network", map[string]any{"network": string(cfg.Network)})
	}
	if !model.ValidWalletAddress(cfg.Wallet) {
		return nil, model.NewValidationError("Invalid wallet address format", nil)
	}

	agent, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, s.storeErr(err, id)
	}
	if err := requireOwner(agent, requesterID); err != nil {
		return nil, err
	}
	if _, ok := nextStatus(opDeploy, agent.Status); !ok {
		return nil, model.NewAgentError(
			fmt.Sprintf("Agent must be in pending status to deploy. Current status: %s", agent.Status),
			map[string]any{"agentId": id, "currentStatus": string(agent.Status)},
		)
	}

	s.logger.Info("agent deployment started",
		zap.String("agent_id", id),
		zap.String("owner_id", requesterID),
		zap.String("network", string(cfg.Network)),
		zap.String("wallet", model.MaskWallet(cfg.Wallet)))

	result, deployErr := s.deployer.Deploy(ctx, agent, cfg)
	if deployErr != nil {
		s.failDeployment(ctx, id, requesterID, deployErr)
		return nil, model.NewAgentErrorWrap("Agent deployment failed", map[string]any{"agentId": id}, deployErr)
	}

	if _, err := s.store.Mutate(ctx, id, func(a *model.Agent) error {
		next, ok := nextStatus(opDeploy, a.Status)
		if !ok {
			return model.NewAgentError(
				fmt.Sprintf("Agent must be in pending status to deploy. Current status: %s", a.Status),
				map[string]any{"agentId": id, "currentStatus": string(a.Status)},
			)
		}
		deployedAt := result.DeployedAt
		a.Status = next
		a.ContractAddress = result.ContractAddress
		a.ProgramID = cfg.ProgramID
		a.DeployedAt = &deployedAt
		a.UpdatedAt = time.Now().UTC()
		return nil
	}); err != nil {
		return nil, s.storeErr(err, id)
	}

	s.record(ctx, id, activity.TypeDeployment, "Agent deployed", requesterID, map[string]string{
		"network":         string(cfg.Network),
		"contractAddress": result.ContractAddress,
		"transactionId":   result.TransactionID,
	})
	s.logger.Info("agent deployment succeeded",
		zap.String("agent_id", id),
		zap.String("contract_address", result.ContractAddress),
		zap.String("transaction_id", result.TransactionID))

	return result, nil
}

// failDeployment moves an agent to error status after a failed deploy.
// Best effort: the caller already has a deployment error to return.
func (s *AgentService) failDeployment(ctx context.Context, id, requesterID string, cause error) {
	if _, err := s.store.Mutate(ctx, id, func(a *model.Agent) error {
		a.Status = model.AgentStatusError
		a.UpdatedAt = time.Now().UTC()
		return nil
	}); err != nil {
		s.logger.Error("failed to mark agent errored after deployment failure",
			zap.String("agent_id", id), zap.Error(err))
	}
	s.record(ctx, id, activity.TypeError, "Agent deployment failed", requesterID, map[string]string{
		"error": cause.Error(),
	})
	s.logger.Error("agent deployment failed",
		zap.String("agent_id", id),
		zap.String("owner_id", requesterID),
		zap.Error(cause))
}

// Pause stops an active agent.
func (s *AgentService) Pause(ctx context.Context, id, requesterID string) (*model.Agent, error) {
	return s.transition(ctx, opPause, id, requesterID,
		"Agent must be active to pause. Current status: %s")
}

// Resume reactivates a paused agent.
func (s *AgentService) Resume(ctx context.Context, id, requesterID string) (*model.Agent, error) {
	return s.transition(ctx, opResume, id, requesterID,
		"Agent must be paused to resume. Current status: %s")
}

// transition applies an owner-gated status change per the transition table.
func (s *AgentService) transition(ctx context.Context, operation op, id, requesterID, errFormat string) (*model.Agent, error) {
	var previous model.AgentStatus
	updated, err := s.store.Mutate(ctx, id, func(agent *model.Agent) error {
		if err := requireOwner(agent, requesterID); err != nil {
			return err
		}
		next, ok := nextStatus(operation, agent.Status)
		if !ok {
			return model.NewAgentError(
				fmt.Sprintf(errFormat, agent.Status),
				map[string]any{"agentId": id, "currentStatus": string(agent.Status)},
			)
		}
		previous = agent.Status
		agent.Status = next
		agent.UpdatedAt = time.Now().UTC()
		return nil
	})
	if err != nil {
		return nil, s.storeErr(err, id)
	}

	s.record(ctx, id, activity.TypeStatusChange,
		fmt.Sprintf("Agent status changed from %s to %s", previous, updated.Status),
		requesterID, map[string]string{
			"previousStatus": string(previous),
			"newStatus":      string(updated.Status),
		})
	s.logger.Info("agent status updated",
		zap.String("agent_id", id),
		zap.String("owner_id", requesterID),
		zap.String("previous_status", string(previous)),
		zap.String("new_status", string(updated.Status)))

	return updated, nil
}

// Suspend forces an agent to suspended status regardless of its current
// state. Administrative: no ownership check. The reason is recorded in the
// activity log, not on the agent.
func (s *AgentService) Suspend(ctx context.Context, id, reason string) (*model.Agent, error) {
	var previous model.AgentStatus
	updated, err := s.store.Mutate(ctx, id, func(agent *model.Agent) error {
		next, _ := nextStatus(opSuspend, agent.Status)
		previous = agent.Status
		agent.Status = next
		agent.UpdatedAt = time.Now().UTC()
		return nil
	})
	if err != nil {
		return nil, s.storeErr(err, id)
	}

	s.record(ctx, id, activity.TypeStatusChange, "Agent suspended", actorSystem, map[string]string{
		"previousStatus": string(previous),
		"reason":         reason,
	})
	s.logger.Warn("agent suspended",
		zap.String("agent_id", id),
		zap.String("previous_status", string(previous)),
		zap.String("reason", reason))

	return updated, nil
}

// Statistics returns the commercial statistics of an agent visible to
// requesterID.
func (s *AgentService) Statistics(ctx context.Context, id, requesterID string) (*model.Statistics, error) {
	agent, err := s.Get(ctx, id, requesterID)
	if err != nil {
		return nil, err
	}
	stats := agent.Statistics
	return &stats, nil
}

// UpdateReputation recomputes an agent's reputation score from raw metrics.
// Administrative: callers are trusted to supply accurate metrics.
func (s *AgentService) UpdateReputation(ctx context.Context, id string, metrics model.ReputationMetrics) (*model.Agent, error) {
	score := model.ReputationScore(metrics)

	updated, err := s.store.Mutate(ctx, id, func(agent *model.Agent) error {
		now := time.Now().UTC()
		agent.Reputation.Score = score
		agent.Reputation.AverageResponseTime = metrics.ResponseTime
		agent.Reputation.Uptime = metrics.Uptime
		agent.Reputation.LastUpdated = now
		agent.LastActiveAt = &now
		agent.UpdatedAt = now
		return nil
	})
	if err != nil {
		return nil, s.storeErr(err, id)
	}

	s.logger.Info("agent reputation updated",
		zap.String("agent_id", id),
		zap.Int("score", score),
		zap.Float64("success_rate", metrics.SuccessRate),
		zap.Float64("uptime", metrics.Uptime))

	return updated, nil
}

// Activity returns the newest-first activity entries for an agent visible
// to requesterID.
func (s *AgentService) Activity(ctx context.Context, id, requesterID string, limit, offset int) ([]*activity.Entry, error) {
	if _, err := s.Get(ctx, id, requesterID); err != nil {
		return nil, err
	}
	entries, err := s.activity.ListByAgent(ctx, id, limit, offset)
	if err != nil {
		return nil, model.NewInternalError(err)
	}
	return entries, nil
}

// record appends an activity entry. Activity is observability, not state:
// failures are logged and swallowed.
func (s *AgentService) record(ctx context.Context, agentID, entryType, description, actor string, metadata map[string]string) {
	if s.activity == nil {
		return
	}
	if _, err := s.activity.Append(ctx, agentID, entryType, description, actor, metadata); err != nil {
		s.logger.Warn("failed to record agent activity",
			zap.String("agent_id", agentID),
			zap.String("type", entryType),
			zap.Error(err))
	}
}

// storeErr converts store sentinels into API errors. Errors already typed
// as *model.AppError (from Mutate callbacks) pass through unchanged.
func (s *AgentService) storeErr(err error, id string) error {
	var appErr *model.AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	if errors.Is(err, store.ErrNotFound) {
		return notFound(id)
	}
	return model.NewInternalError(err)
}

func notFound(id string) *model.AppError {
	return model.NewNotFoundError("Agent", map[string]any{"agentId": id})
}

// requireOwner rejects non-owners with a not-found error so private agents
// are indistinguishable from missing ones.
func requireOwner(agent *model.Agent, requesterID string) error {
	if requesterID == "" || agent.OwnerID != requesterID {
		return notFound(agent.ID)
	}
	return nil
}

func validateCreateInput(input model.CreateAgentInput) error {
	if !model.ValidName(input.Name) {
		return model.NewValidationError("Invalid agent name format", nil)
	}
	if !model.ValidDescription(input.Description) {
		return model.NewValidationError("Invalid agent description", nil)
	}
	if !model.ValidAgentType(input.Type) {
		return model.NewValidationError("Invalid agent type", map[string]any{"type": string(input.Type)})
	}
	if !model.ValidNetwork(input.Network) {
		return model.NewValidationError("Invalid network", map[string]any{"network": string(input.Network)})
	}
	if len(input.Capabilities) == 0 {
		return model.NewValidationError("Agent must have at least one capability", nil)
	}
	if errs := model.ValidateConfiguration(input.Configuration); len(errs) > 0 {
		return model.NewValidationError("Configuration errors: "+strings.Join(errs, ", "), nil)
	}
	return nil
}

// matchesFilters applies every filter with AND semantics; multi-valued
// fields match with OR within the field.
func matchesFilters(agent *model.Agent, f model.QueryFilters) bool {
	if len(f.Types) > 0 && !containsType(f.Types, agent.Type) {
		return false
	}
	if len(f.Statuses) > 0 && !containsStatus(f.Statuses, agent.Status) {
		return false
	}
	if len(f.Networks) > 0 && !containsNetwork(f.Networks, agent.Network) {
		return false
	}
	if f.OwnerID != "" && agent.OwnerID != f.OwnerID {
		return false
	}
	if f.IsPublic != nil && agent.IsPublic != *f.IsPublic {
		return false
	}
	if len(f.Tags) > 0 && !anyTagMatch(f.Tags, agent.Tags) {
		return false
	}
	if f.MinReputation != nil && agent.Reputation.Score < *f.MinReputation {
		return false
	}
	if f.Search != "" {
		term := strings.ToLower(f.Search)
		if !strings.Contains(strings.ToLower(agent.Name), term) &&
			!strings.Contains(strings.ToLower(agent.Description), term) {
			return false
		}
	}
	// Unscoped listings only see public agents.
	if f.OwnerID == "" && !agent.IsPublic {
		return false
	}
	return true
}

func containsType(haystack []model.AgentType, needle model.AgentType) bool {
	for _, t := range haystack {
		if t == needle {
			return true
		}
	}
	return false
}

func containsStatus(haystack []model.AgentStatus, needle model.AgentStatus) bool {
	for _, s := range haystack {
		if s == needle {
			return true
		}
	}
	return false
}

func containsNetwork(haystack []model.Network, needle model.Network) bool {
	for _, n := range haystack {
		if n == needle {
			return true
		}
	}
	return false
}

func anyTagMatch(wanted, have []string) bool {
	for _, w := range wanted {
		for _, h := range have {
			if w == h {
				return true
			}
		}
	}
	return false
}

// sortAgents orders agents by the requested key. Ascending unless order is
// "desc". The sort is stable so equal keys keep scan order.
func sortAgents(agents []*model.Agent, sortBy, sortOrder string) {
	if sortBy == "" {
		return
	}

	key := func(a *model.Agent) float64 {
		switch sortBy {
		case "reputation":
			return float64(a.Reputation.Score)
		case "earnings":
			return a.Statistics.TotalEarnings
		case "activity":
			if a.LastActiveAt == nil {
				return 0
			}
			return float64(a.LastActiveAt.UnixMilli())
		default: // createdAt
			return float64(a.CreatedAt.UnixMilli())
		}
	}

	desc := sortOrder == "desc"
	sort.SliceStable(agents, func(i, j int) bool {
		if desc {
			return key(agents[i]) > key(agents[j])
		}
		return key(agents[i]) < key(agents[j])
	})
}
