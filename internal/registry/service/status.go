package service

import (
	"github.com/solace-protocol/acp/internal/registry/model"
)

// op names a lifecycle operation on an agent.
type op string

const (
	opDeploy  op = "deploy"
	opPause   op = "pause"
	opResume  op = "resume"
	opSuspend op = "suspend"
)

// transitions is the status state machine: for each operation, the set of
// statuses it may start from and the status it lands in. Any operation
// attempted from a status not present here is rejected.
//
// model.AgentStatusTerminated has no inbound edge: the value is declared
// in the status enum but nothing transitions an agent into it.
var transitions = map[op]map[model.AgentStatus]model.AgentStatus{
	opDeploy: {
		model.AgentStatusPending: model.AgentStatusActive,
	},
	opPause: {
		model.AgentStatusActive: model.AgentStatusPaused,
	},
	opResume: {
		model.AgentStatusPaused: model.AgentStatusActive,
	},
	// Suspension is administrative and applies from every status.
	opSuspend: {
		model.AgentStatusPending:    model.AgentStatusSuspended,
		model.AgentStatusActive:     model.AgentStatusSuspended,
		model.AgentStatusPaused:     model.AgentStatusSuspended,
		model.AgentStatusSuspended:  model.AgentStatusSuspended,
		model.AgentStatusTerminated: model.AgentStatusSuspended,
		model.AgentStatusError:      model.AgentStatusSuspended,
	},
}

// nextStatus returns the status an operation lands in from the current
// status, or false when the transition is not in the table.
func nextStatus(operation op, current model.AgentStatus) (model.AgentStatus, bool) {
	next, ok := transitions[operation][current]
	return next, ok
}
