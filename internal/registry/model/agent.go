package model

import (
	"crypto/rand"
	"encoding/base32"
	"strings"
	"time"
)

// AgentStatus represents the lifecycle state of a registered agent.
type AgentStatus string

const (
	AgentStatusPending   AgentStatus = "pending"
	AgentStatusActive    AgentStatus = "active"
	AgentStatusPaused    AgentStatus = "paused"
	AgentStatusSuspended AgentStatus = "suspended"
	// AgentStatusTerminated is declared for wire compatibility but no
	// lifecycle operation transitions an agent into it.
	AgentStatusTerminated AgentStatus = "terminated"
	AgentStatusError      AgentStatus = "error"
)

// AgentType categorizes what a registered agent does.
type AgentType string

const (
	AgentTypeTrading         AgentType = "trading"
	AgentTypeDataAnalysis    AgentType = "data_analysis"
	AgentTypeServiceProvider AgentType = "service_provider"
	AgentTypeMarketplace     AgentType = "marketplace"
	AgentTypeOracle          AgentType = "oracle"
	AgentTypeCustom          AgentType = "custom"
)

// Network identifies the Solana cluster an agent targets.
type Network string

const (
	NetworkDevnet  Network = "devnet"
	NetworkTestnet Network = "testnet"
	NetworkMainnet Network = "mainnet-beta"
)

// AgentTypes lists every valid agent type.
func AgentTypes() []AgentType {
	return []AgentType{
		AgentTypeTrading, AgentTypeDataAnalysis, AgentTypeServiceProvider,
		AgentTypeMarketplace, AgentTypeOracle, AgentTypeCustom,
	}
}

// AgentStatuses lists every valid agent status.
func AgentStatuses() []AgentStatus {
	return []AgentStatus{
		AgentStatusPending, AgentStatusActive, AgentStatusPaused,
		AgentStatusSuspended, AgentStatusTerminated, AgentStatusError,
	}
}

// Networks lists every valid network.
func Networks() []Network {
	return []Network{NetworkDevnet, NetworkTestnet, NetworkMainnet}
}

// Capability is a named, versioned function an agent claims to perform.
// The ID is generated at agent creation time.
type Capability struct {
	ID          string         `json:"id"`
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Version     string         `json:"version"`
	Parameters  map[string]any `json:"parameters,omitempty"`
}

// OperatingHours bounds when an agent accepts work, in HH:mm wall-clock times.
type OperatingHours struct {
	Start    string `json:"start"`
	End      string `json:"end"`
	Timezone string `json:"timezone"`
}

// Notifications holds optional delivery targets for agent alerts.
type Notifications struct {
	Email   string `json:"email,omitempty"`
	Webhook string `json:"webhook,omitempty"`
	Discord string `json:"discord,omitempty"`
}

// Configuration constrains what an agent is allowed to transact.
type Configuration struct {
	MaxTransactionAmount  float64         `json:"maxTransactionAmount"`
	DailyTransactionLimit float64         `json:"dailyTransactionLimit"`
	AllowedTokens         []string        `json:"allowedTokens"`
	RiskThreshold         float64         `json:"riskThreshold"`
	OperatingHours        *OperatingHours `json:"operatingHours,omitempty"`
	Notifications         Notifications   `json:"notifications"`
	CustomParameters      map[string]any  `json:"customParameters,omitempty"`
}

// Review is a single counterparty rating attached to an agent's reputation.
type Review struct {
	ID            string    `json:"id"`
	ReviewerID    string    `json:"reviewerId"`
	Rating        int       `json:"rating"` // 1-5
	Comment       string    `json:"comment,omitempty"`
	TransactionID string    `json:"transactionId,omitempty"`
	CreatedAt     time.Time `json:"createdAt"`
}

// Reputation aggregates an agent's performance into a 0-100 score.
type Reputation struct {
	Score                  int       `json:"score"`
	TotalTransactions      int       `json:"totalTransactions"`
	SuccessfulTransactions int       `json:"successfulTransactions"`
	AverageResponseTime    float64   `json:"averageResponseTime"` // milliseconds
	Uptime                 float64   `json:"uptime"`              // percentage
	LastUpdated            time.Time `json:"lastUpdated"`
	Reviews                []Review  `json:"reviews"`
}

// Statistics tracks an agent's commercial activity.
type Statistics struct {
	TotalEarnings           float64    `json:"totalEarnings"`
	TransactionsCount       int        `json:"transactionsCount"`
	AverageTransactionValue float64    `json:"averageTransactionValue"`
	ActiveContracts         int        `json:"activeContracts"`
	LastActivityAt          *time.Time `json:"lastActivityAt,omitempty"`
	CreatedAt               time.Time  `json:"createdAt"`
	UpdatedAt               time.Time  `json:"updatedAt"`
}

// Agent is the core domain entity: a registered autonomous actor with
// configuration, reputation, and a deployment status.
type Agent struct {
	ID          string      `json:"id"`
	Name        string      `json:"name"`
	Description string      `json:"description"`
	Type        AgentType   `json:"type"`
	Status      AgentStatus `json:"status"`

	// Ownership — immutable after creation.
	OwnerID     string `json:"ownerId"`
	OwnerWallet string `json:"ownerWallet"`

	// ContractAddress and DeployedAt are set only by a successful deploy.
	Network         Network    `json:"network"`
	ContractAddress string     `json:"contractAddress,omitempty"`
	ProgramID       string     `json:"programId,omitempty"`
	DeployedAt      *time.Time `json:"deployedAt,omitempty"`

	Capabilities  []Capability  `json:"capabilities"`
	Configuration Configuration `json:"configuration"`

	Reputation Reputation `json:"reputation"`
	Statistics Statistics `json:"statistics"`

	Version  string   `json:"version"`
	Tags     []string `json:"tags"`
	IsPublic bool     `json:"isPublic"`

	CreatedAt    time.Time  `json:"createdAt"`
	UpdatedAt    time.Time  `json:"updatedAt"`
	LastActiveAt *time.Time `json:"lastActiveAt,omitempty"`
}

// Clone returns a deep copy so callers can mutate freely without aliasing
// store-owned state.
func (a *Agent) Clone() *Agent {
	cp := *a
	cp.Capabilities = append([]Capability(nil), a.Capabilities...)
	cp.Tags = append([]string(nil), a.Tags...)
	cp.Configuration.AllowedTokens = append([]string(nil), a.Configuration.AllowedTokens...)
	cp.Reputation.Reviews = append([]Review(nil), a.Reputation.Reviews...)
	if a.Configuration.OperatingHours != nil {
		oh := *a.Configuration.OperatingHours
		cp.Configuration.OperatingHours = &oh
	}
	return &cp
}

// CapabilityInput is a capability declaration without a generated ID.
type CapabilityInput struct {
	Name        string         `json:"name"        binding:"required"`
	Description string         `json:"description" binding:"required"`
	Version     string         `json:"version"     binding:"required"`
	Parameters  map[string]any `json:"parameters,omitempty"`
}

// CreateAgentInput is the payload for registering a new agent.
type CreateAgentInput struct {
	Name          string            `json:"name"          binding:"required"`
	Description   string            `json:"description"   binding:"required"`
	Type          AgentType         `json:"type"          binding:"required"`
	Network       Network           `json:"network"       binding:"required"`
	Capabilities  []CapabilityInput `json:"capabilities"  binding:"required"`
	Configuration Configuration     `json:"configuration" binding:"required"`
	Tags          []string          `json:"tags"`
	IsPublic      bool              `json:"isPublic"`
}

// UpdateAgentInput carries the mutable fields of an agent. Status is
// deliberately absent: lifecycle operations are the only writers of status.
type UpdateAgentInput struct {
	Name          *string             `json:"name,omitempty"`
	Description   *string             `json:"description,omitempty"`
	Configuration *ConfigurationPatch `json:"configuration,omitempty"`
	Tags          *[]string           `json:"tags,omitempty"`
	IsPublic      *bool               `json:"isPublic,omitempty"`
}

// ConfigurationPatch is a partial configuration merged field-by-field into
// the agent's existing configuration.
type ConfigurationPatch struct {
	MaxTransactionAmount  *float64        `json:"maxTransactionAmount,omitempty"`
	DailyTransactionLimit *float64        `json:"dailyTransactionLimit,omitempty"`
	AllowedTokens         *[]string       `json:"allowedTokens,omitempty"`
	RiskThreshold         *float64        `json:"riskThreshold,omitempty"`
	OperatingHours        *OperatingHours `json:"operatingHours,omitempty"`
	Notifications         *Notifications  `json:"notifications,omitempty"`
	CustomParameters      map[string]any  `json:"customParameters,omitempty"`
}

// ApplyTo merges the patch into cfg and returns the result.
func (p *ConfigurationPatch) ApplyTo(cfg Configuration) Configuration {
	if p.MaxTransactionAmount != nil {
		cfg.MaxTransactionAmount = *p.MaxTransactionAmount
	}
	if p.DailyTransactionLimit != nil {
		cfg.DailyTransactionLimit = *p.DailyTransactionLimit
	}
	if p.AllowedTokens != nil {
		cfg.AllowedTokens = append([]string(nil), (*p.AllowedTokens)...)
	}
	if p.RiskThreshold != nil {
		cfg.RiskThreshold = *p.RiskThreshold
	}
	if p.OperatingHours != nil {
		oh := *p.OperatingHours
		cfg.OperatingHours = &oh
	}
	if p.Notifications != nil {
		cfg.Notifications = *p.Notifications
	}
	if p.CustomParameters != nil {
		cfg.CustomParameters = p.CustomParameters
	}
	return cfg
}

// QueryFilters narrows and orders a registry listing. All filters combine
// with AND; multi-valued fields use OR semantics within the field.
type QueryFilters struct {
	Types         []AgentType
	Statuses      []AgentStatus
	Networks      []Network
	OwnerID       string
	IsPublic      *bool
	Tags          []string
	MinReputation *int
	Search        string
	SortBy        string // createdAt | reputation | earnings | activity
	SortOrder     string // asc | desc
	Limit         int
	Offset        int
}

// DeploymentConfig is the payload for deploying an agent on-chain.
type DeploymentConfig struct {
	Network        Network `json:"network" binding:"required"`
	Wallet         string  `json:"wallet"  binding:"required"`
	ProgramID      string  `json:"programId,omitempty"`
	InitialFunding float64 `json:"initialFunding,omitempty"`
	ComputeUnits   uint64  `json:"computeUnits,omitempty"`
	PriorityFee    float64 `json:"priorityFee,omitempty"`
}

// DeploymentResult reports the outcome of a deploy operation.
type DeploymentResult struct {
	Success         bool      `json:"success"`
	ContractAddress string    `json:"contractAddress,omitempty"`
	TransactionID   string    `json:"transactionId,omitempty"`
	Error           string    `json:"error,omitempty"`
	DeployedAt      time.Time `json:"deployedAt"`
}

// ReputationMetrics are the raw inputs to a reputation recomputation.
type ReputationMetrics struct {
	SuccessRate      float64 `json:"successRate"`
	ResponseTime     float64 `json:"responseTime"` // milliseconds
	Uptime           float64 `json:"uptime"`
	TransactionCount int     `json:"transactionCount"`
}

// NewAgentID produces a unique, roughly time-sortable agent identifier.
func NewAgentID() string {
	return "agent_" + randomToken(10)
}

// NewCapabilityID produces a capability identifier.
func NewCapabilityID() string {
	return "cap_" + randomToken(6)
}

// NewReviewID produces a review identifier.
func NewReviewID() string {
	return "rev_" + randomToken(6)
}

// randomToken encodes a millisecond timestamp plus n random bytes as
// lowercase unpadded Base32, so identifiers sort roughly by creation time.
func randomToken(n int) string {
	buf := make([]byte, n)
	_, _ = rand.Read(buf)
	ts := time.Now().UnixMilli()
	tsBuf := make([]byte, 8)
	for i := 7; i >= 0; i-- {
		tsBuf[i] = byte(ts & 0xff)
		ts >>= 8
	}
	combined := append(tsBuf, buf...)
	encoded := base32.StdEncoding.WithPadding(base32.NoPadding).EncodeToString(combined)
	return strings.ToLower(encoded)
}
