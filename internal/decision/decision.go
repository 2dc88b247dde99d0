// Package decision abstracts the external choices the core cannot make
// on its own: what to do when a step fails, and whether a rollback may
// overwrite divergent files. The original system asks a user; headless
// deployments configure fixed answers via Static.
package decision

import "context"

// FailureChoice is the answer to a step-failure prompt.
type FailureChoice string

const (
	FailureContinue FailureChoice = "continue"
	FailurePause    FailureChoice = "pause"
	FailureCancel   FailureChoice = "cancel"
)

// ConflictChoice is the answer to a rollback-conflict prompt.
type ConflictChoice string

const (
	ConflictProceed ConflictChoice = "proceed"
	ConflictAbort   ConflictChoice = "abort"
)

// StepFailure describes a failed step for the decision prompt.
type StepFailure struct {
	ExecutionID string
	PlanName    string
	StepID      string
	Description string
	Err         string
}

// RollbackConflict describes diverged files blocking a rollback.
type RollbackConflict struct {
	CheckpointID string
	Name         string
	Conflicts    []string
}

// Provider supplies decisions for the two prompt kinds. Implementations
// may block (interactive prompt) or answer immediately (configured
// default, test double). A provider error is always treated as the
// conservative choice by callers: cancel for failures, abort for
// conflicts.
type Provider interface {
	AskStepFailure(ctx context.Context, failure StepFailure) (FailureChoice, error)
	AskRollbackConflict(ctx context.Context, conflict RollbackConflict) (ConflictChoice, error)
}

// Static answers every prompt with a configured choice. Zero values
// fall back to the conservative defaults (cancel, abort).
type Static struct {
	OnStepFailure      FailureChoice
	OnRollbackConflict ConflictChoice
}

// AskStepFailure returns the configured failure choice.
func (s Static) AskStepFailure(ctx context.Context, _ StepFailure) (FailureChoice, error) {
	switch s.OnStepFailure {
	case FailureContinue, FailurePause, FailureCancel:
		return s.OnStepFailure, nil
	default:
		return FailureCancel, nil
	}
}

// AskRollbackConflict returns the configured conflict choice.
func (s Static) AskRollbackConflict(ctx context.Context, _ RollbackConflict) (ConflictChoice, error) {
	switch s.OnRollbackConflict {
	case ConflictProceed, ConflictAbort:
		return s.OnRollbackConflict, nil
	default:
		return ConflictAbort, nil
	}
}

// Ensure Static implements Provider
var _ Provider = Static{}
