package models

import "time"

// ExecutionStatus represents the run state machine of a plan execution:
// pending -> running -> {paused | completed | failed | cancelled}.
// paused can be resumed back to running; the rest are terminal.
type ExecutionStatus string

const (
	ExecutionPending   ExecutionStatus = "pending"
	ExecutionRunning   ExecutionStatus = "running"
	ExecutionPaused    ExecutionStatus = "paused"
	ExecutionCompleted ExecutionStatus = "completed"
	ExecutionFailed    ExecutionStatus = "failed"
	ExecutionCancelled ExecutionStatus = "cancelled"
)

// IsTerminal returns true for statuses an execution can never leave.
func (s ExecutionStatus) IsTerminal() bool {
	switch s {
	case ExecutionCompleted, ExecutionFailed, ExecutionCancelled:
		return true
	default:
		return false
	}
}

// StepStatus represents the per-step outcome within an execution.
type StepStatus string

const (
	StepPending   StepStatus = "pending"
	StepRunning   StepStatus = "running"
	StepCompleted StepStatus = "completed"
	StepFailed    StepStatus = "failed"
	StepSkipped   StepStatus = "skipped"
)

// StepResult is the runtime record of one plan step. Results mirror the
// plan's step list positionally: Results[i].StepID == Steps[i].ID always.
type StepResult struct {
	StepID       string        `json:"step_id"`
	Status       StepStatus    `json:"status"`
	StartedAt    *time.Time    `json:"started_at,omitempty"`
	CompletedAt  *time.Time    `json:"completed_at,omitempty"`
	Duration     time.Duration `json:"duration,omitempty"`
	Output       string        `json:"output,omitempty"`
	Error        string        `json:"error,omitempty"`
	FilesChanged []string      `json:"files_changed,omitempty"`
}

// TaskExecution is the runtime record of a plan being executed.
type TaskExecution struct {
	ID           string          `json:"id"`
	PlanID       string          `json:"plan_id"`
	Status       ExecutionStatus `json:"status"`
	CurrentStep  int             `json:"current_step"` // Index of the step currently being considered
	StartedAt    time.Time       `json:"started_at"`
	CompletedAt  *time.Time      `json:"completed_at,omitempty"`
	Results      []StepResult    `json:"results"`
	CheckpointID string          `json:"checkpoint_id,omitempty"` // Pre-execution snapshot, if one was taken
}

// CompletedSteps counts results with status "completed".
func (e *TaskExecution) CompletedSteps() int {
	n := 0
	for _, r := range e.Results {
		if r.Status == StepCompleted {
			n++
		}
	}
	return n
}

// Result returns the recorded result for a step id, or nil if the id
// is not part of this execution.
func (e *TaskExecution) Result(stepID string) *StepResult {
	for i := range e.Results {
		if e.Results[i].StepID == stepID {
			return &e.Results[i]
		}
	}
	return nil
}
