package types

import "time"

// AgentState is the lifecycle state of an ephemeral agent record.
type AgentState string

const (
	AgentPending   AgentState = "pending"
	AgentRunning   AgentState = "running"
	AgentCompleted AgentState = "completed"
	AgentFailed    AgentState = "failed"
)

// IsTerminal reports whether the state will never transition again.
func (s AgentState) IsTerminal() bool {
	return s == AgentCompleted || s == AgentFailed
}

// Agent is the value record the orchestrator owns for one task's
// execution. It is not a long-lived worker: once it reaches a terminal
// state it is retained only briefly for reporting.
type Agent struct {
	ID          string     `json:"id"`
	TaskID      string     `json:"task_id"`
	Mode        Mode       `json:"mode"`
	Status      AgentState `json:"status"`
	StartedAt   time.Time  `json:"started_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	Result      string     `json:"result,omitempty"`
	Error       string     `json:"error,omitempty"`
}

// validAgentTransitions enumerates the legal AgentState graph.
var validAgentTransitions = map[AgentState][]AgentState{
	AgentPending: {AgentRunning},
	AgentRunning: {AgentCompleted, AgentFailed},
}

// CanTransitionTo reports whether the transition from s to next is legal.
func (s AgentState) CanTransitionTo(next AgentState) bool {
	for _, allowed := range validAgentTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// WorkerStatus is the point-in-time snapshot persisted to the reporting
// store for historical queries after an agent's record is pruned from
// memory.
type WorkerStatus struct {
	ID        string     `json:"id"`
	TaskID    string     `json:"task_id"`
	Mode      Mode       `json:"mode"`
	State     AgentState `json:"state"`
	StartedAt time.Time  `json:"started_at"`
	EndedAt   *time.Time `json:"ended_at,omitempty"`
	Result    string     `json:"result,omitempty"`
	Error     string     `json:"error,omitempty"`
}
