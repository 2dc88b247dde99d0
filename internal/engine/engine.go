// Package engine drives a plan's steps through the execution state
// machine: pending -> running -> {paused | completed | failed | cancelled}.
//
// Steps run strictly sequentially, never in parallel, because later
// steps may depend on files written by earlier ones. Pause and cancel
// are cooperative signals observed only at the top of the per-step
// loop; a step already in flight always runs to completion first.
package engine

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/harrison/maestro/internal/checkpoint"
	"github.com/harrison/maestro/internal/decision"
	"github.com/harrison/maestro/internal/logger"
	"github.com/harrison/maestro/internal/models"
	"github.com/harrison/maestro/internal/workspace"
)

// Engine executes plans. Multiple executions over disjoint plans may
// run concurrently; the engine provides no mutual exclusion between
// executions that touch overlapping files.
type Engine struct {
	mu         sync.Mutex
	executions map[string]*execution

	files       workspace.FileMutator
	commands    workspace.CommandRunner
	decisions   decision.Provider
	checkpoints *checkpoint.Store
	log         logger.Logger

	clock func() time.Time
	newID func() string
}

// execution pairs the immutable plan with its mutable runtime record.
type execution struct {
	mu   sync.Mutex
	cond *sync.Cond // broadcast whenever the run loop exits

	plan       models.TaskPlan
	record     models.TaskExecution
	loopActive bool
}

// New creates an Engine. checkpoints may be nil to run without
// pre-execution snapshots (tests); decisions may be nil, in which case
// every step failure cancels the execution.
func New(files workspace.FileMutator, commands workspace.CommandRunner, decisions decision.Provider, checkpoints *checkpoint.Store, log logger.Logger) *Engine {
	return &Engine{
		executions:  make(map[string]*execution),
		files:       files,
		commands:    commands,
		decisions:   decisions,
		checkpoints: checkpoints,
		log:         logger.OrNop(log),
		clock:       time.Now,
		newID:       func() string { return uuid.NewString() },
	}
}

// Execute validates the plan, snapshots its affected file set, and
// starts the run asynchronously. The returned handle reflects the
// execution at submission time, status pending; the run loop moves it
// to running on its first iteration and proceeds independently.
func (e *Engine) Execute(ctx context.Context, plan models.TaskPlan) (*models.TaskExecution, error) {
	if err := plan.Validate(); err != nil {
		return nil, fmt.Errorf("invalid plan: %w", err)
	}
	if plan.ID == "" {
		plan.ID = e.newID()
	}

	var checkpointID string
	if e.checkpoints != nil {
		if affected := plan.AffectedFiles(); len(affected) > 0 {
			cp, err := e.checkpoints.Create(ctx, fmt.Sprintf("Before: %s", plan.Name),
				fmt.Sprintf("Automatic snapshot before executing plan %s", plan.Name),
				affected,
				models.CheckpointMeta{TaskID: plan.TaskID, Action: "execute_plan", Auto: true})
			if err != nil {
				return nil, fmt.Errorf("pre-execution checkpoint: %w", err)
			}
			checkpointID = cp.ID
		}
	}

	results := make([]models.StepResult, len(plan.Steps))
	for i, step := range plan.Steps {
		results[i] = models.StepResult{StepID: step.ID, Status: models.StepPending}
	}

	ex := &execution{
		plan: plan,
		record: models.TaskExecution{
			ID:           e.newID(),
			PlanID:       plan.ID,
			Status:       models.ExecutionPending,
			StartedAt:    e.clock(),
			Results:      results,
			CheckpointID: checkpointID,
		},
	}
	ex.cond = sync.NewCond(&ex.mu)
	ex.loopActive = true

	e.mu.Lock()
	e.executions[ex.record.ID] = ex
	e.mu.Unlock()

	e.log.Infof("execution %s: starting plan %q (%d steps)", ex.record.ID, plan.Name, len(plan.Steps))
	handle := snapshotRecord(ex)
	go e.run(ex)

	return handle, nil
}

// Get returns the current state of an execution. Unknown ids are a
// contract violation and reported as errors.
func (e *Engine) Get(executionID string) (*models.TaskExecution, error) {
	ex, err := e.lookup(executionID)
	if err != nil {
		return nil, err
	}
	return snapshotRecord(ex), nil
}

// ListActive returns all executions that have not reached a terminal
// status, including paused ones.
func (e *Engine) ListActive() []models.TaskExecution {
	e.mu.Lock()
	defer e.mu.Unlock()

	var active []models.TaskExecution
	for _, ex := range e.executions {
		ex.mu.Lock()
		if !ex.record.Status.IsTerminal() {
			active = append(active, *copyRecord(&ex.record))
		}
		ex.mu.Unlock()
	}
	return active
}

// Pause requests a pause. Only a running execution can be paused; the
// signal takes effect at the next step boundary.
func (e *Engine) Pause(executionID string) error {
	ex, err := e.lookup(executionID)
	if err != nil {
		return err
	}

	ex.mu.Lock()
	defer ex.mu.Unlock()
	if ex.record.Status != models.ExecutionRunning {
		return fmt.Errorf("execution %s is %s, only running executions can be paused", executionID, ex.record.Status)
	}
	ex.record.Status = models.ExecutionPaused
	e.log.Infof("execution %s: pause requested at step index %d", executionID, ex.record.CurrentStep)
	return nil
}

// Resume restarts a paused execution from the recorded current-step
// index, not from the beginning.
func (e *Engine) Resume(executionID string) error {
	ex, err := e.lookup(executionID)
	if err != nil {
		return err
	}

	ex.mu.Lock()
	defer ex.mu.Unlock()
	if ex.record.Status != models.ExecutionPaused {
		return fmt.Errorf("execution %s is %s, only paused executions can be resumed", executionID, ex.record.Status)
	}
	ex.record.Status = models.ExecutionRunning
	e.log.Infof("execution %s: resuming from step index %d", executionID, ex.record.CurrentStep)

	// If the step loop drained after the pause took effect, restart it.
	// If the pause signal was never observed (a step was still in
	// flight), the existing loop simply keeps going.
	if !ex.loopActive {
		ex.loopActive = true
		go e.run(ex)
	}
	return nil
}

// Cancel terminates an execution. Cancellation is cooperative: an
// in-flight step runs to completion before the signal is observed.
func (e *Engine) Cancel(executionID string) error {
	ex, err := e.lookup(executionID)
	if err != nil {
		return err
	}

	ex.mu.Lock()
	defer ex.mu.Unlock()
	if ex.record.Status.IsTerminal() {
		return fmt.Errorf("execution %s is already %s", executionID, ex.record.Status)
	}
	ex.record.Status = models.ExecutionCancelled
	if !ex.loopActive {
		now := e.clock()
		ex.record.CompletedAt = &now
	}
	e.log.Infof("execution %s: cancelled", executionID)
	return nil
}

// Wait blocks until the execution's step loop is idle (paused or
// terminal) and returns the final record. Intended for CLIs and tests.
func (e *Engine) Wait(executionID string) (*models.TaskExecution, error) {
	ex, err := e.lookup(executionID)
	if err != nil {
		return nil, err
	}

	ex.mu.Lock()
	for ex.loopActive {
		ex.cond.Wait()
	}
	record := copyRecord(&ex.record)
	ex.mu.Unlock()
	return record, nil
}

func (e *Engine) lookup(executionID string) (*execution, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	ex, ok := e.executions[executionID]
	if !ok {
		return nil, fmt.Errorf("execution %s not found", executionID)
	}
	return ex, nil
}

// run is the per-step loop. It owns ex.record while loopActive is set
// and exits on pause, cancel, failure-policy stop, or plan completion.
func (e *Engine) run(ex *execution) {
	ctx := context.Background()

	defer func() {
		ex.mu.Lock()
		// A Resume can land between the loop observing a pause and this
		// cleanup: it sees loopActive still true and starts no goroutine.
		// Keep the loop alive here instead of stranding the run.
		if ex.record.Status == models.ExecutionRunning {
			ex.mu.Unlock()
			go e.run(ex)
			return
		}
		if ex.record.Status.IsTerminal() && ex.record.CompletedAt == nil {
			now := e.clock()
			ex.record.CompletedAt = &now
		}
		ex.loopActive = false
		ex.cond.Broadcast()
		completed := ex.record.CompletedSteps()
		total := len(ex.plan.Steps)
		status := ex.record.Status
		id := ex.record.ID
		ex.mu.Unlock()
		e.log.Infof("execution %s: %s (%d/%d steps completed)", id, status, completed, total)
	}()

	for {
		ex.mu.Lock()

		// First iteration moves the freshly submitted execution into running.
		if ex.record.Status == models.ExecutionPending {
			ex.record.Status = models.ExecutionRunning
		}

		// Pause/cancel/failure signals are observed only here.
		if ex.record.Status != models.ExecutionRunning {
			if ex.record.Status.IsTerminal() && ex.record.CompletedAt == nil {
				now := e.clock()
				ex.record.CompletedAt = &now
			}
			ex.mu.Unlock()
			return
		}

		i := ex.record.CurrentStep
		if i >= len(ex.plan.Steps) {
			now := e.clock()
			ex.record.Status = models.ExecutionCompleted
			ex.record.CompletedAt = &now
			ex.mu.Unlock()
			return
		}

		step := ex.plan.Steps[i]
		result := &ex.record.Results[i]

		// Dependency gate: every declared dependency must already show
		// completed in the results. Anything else skips the step.
		if unmet := unmetDependency(&ex.record, step.DependsOn); unmet != "" {
			result.Status = models.StepSkipped
			result.Error = "dependencies not met"
			ex.record.CurrentStep++
			ex.mu.Unlock()
			e.log.Warnf("execution %s: step %s skipped, dependency %s not completed", ex.record.ID, step.ID, unmet)
			continue
		}

		started := e.clock()
		result.Status = models.StepRunning
		result.StartedAt = &started
		executionID := ex.record.ID
		ex.mu.Unlock()

		e.log.Debugf("execution %s: step %s (%s) running", executionID, step.ID, step.Type)
		output, changed, err := e.dispatch(ctx, step)
		ended := e.clock()

		ex.mu.Lock()
		result.CompletedAt = &ended
		result.Duration = ended.Sub(started)

		if err == nil {
			result.Status = models.StepCompleted
			result.Output = output
			result.FilesChanged = changed
			ex.record.CurrentStep++
			ex.mu.Unlock()
			continue
		}

		result.Status = models.StepFailed
		result.Error = err.Error()
		result.Output = output
		ex.record.CurrentStep++
		planName := ex.plan.Name
		ex.mu.Unlock()

		e.log.Errorf("execution %s: step %s failed: %v", executionID, step.ID, err)
		choice := e.askStepFailure(ctx, executionID, planName, step, err)

		ex.mu.Lock()
		switch choice {
		case decision.FailureContinue:
			// Leave the failed result as-is, keep going.
		case decision.FailurePause:
			if ex.record.Status == models.ExecutionRunning {
				ex.record.Status = models.ExecutionPaused
			}
		default: // cancel, and the conservative fallback
			if !ex.record.Status.IsTerminal() {
				ex.record.Status = models.ExecutionCancelled
			}
		}
		ex.mu.Unlock()
	}
}

// askStepFailure obtains a continue/pause/cancel decision for a failed
// step. If no decision can be obtained, the conservative default is
// cancel.
func (e *Engine) askStepFailure(ctx context.Context, executionID, planName string, step models.TaskStep, stepErr error) decision.FailureChoice {
	if e.decisions == nil {
		return decision.FailureCancel
	}
	choice, err := e.decisions.AskStepFailure(ctx, decision.StepFailure{
		ExecutionID: executionID,
		PlanName:    planName,
		StepID:      step.ID,
		Description: step.Description,
		Err:         stepErr.Error(),
	})
	if err != nil {
		e.log.Warnf("execution %s: no failure decision available, cancelling: %v", executionID, err)
		return decision.FailureCancel
	}
	return choice
}

// unmetDependency returns the first dependency step id that is missing
// or not completed, or "" when all dependencies are satisfied.
func unmetDependency(record *models.TaskExecution, deps []string) string {
	for _, dep := range deps {
		r := record.Result(dep)
		if r == nil || r.Status != models.StepCompleted {
			return dep
		}
	}
	return ""
}

// dispatch applies a single step's side effect through the collaborators.
func (e *Engine) dispatch(ctx context.Context, step models.TaskStep) (output string, filesChanged []string, err error) {
	switch step.Type {
	case models.StepFileCreate:
		err = e.files.Apply(ctx, step.TargetPath, workspace.OpCreate, step.Content)
		if err == nil {
			output = fmt.Sprintf("created %s", step.TargetPath)
			filesChanged = []string{step.TargetPath}
		}
	case models.StepFileModify:
		err = e.files.Apply(ctx, step.TargetPath, workspace.OpModify, step.Content)
		if err == nil {
			output = fmt.Sprintf("modified %s", step.TargetPath)
			filesChanged = []string{step.TargetPath}
		}
	case models.StepFileDelete:
		err = e.files.Apply(ctx, step.TargetPath, workspace.OpDelete, "")
		if err == nil {
			output = fmt.Sprintf("deleted %s", step.TargetPath)
			filesChanged = []string{step.TargetPath}
		}
	case models.StepCommand:
		output, err = e.commands.Run(ctx, step.Command)
	case models.StepAnalysis:
		// Analysis steps have no side effects; the description is the output.
		output = step.Description
	default:
		err = fmt.Errorf("unknown step type %q", step.Type)
	}
	return output, filesChanged, err
}

// snapshotRecord copies an execution's record under its lock.
func snapshotRecord(ex *execution) *models.TaskExecution {
	ex.mu.Lock()
	defer ex.mu.Unlock()
	return copyRecord(&ex.record)
}

// copyRecord returns a defensive copy of a TaskExecution.
func copyRecord(record *models.TaskExecution) *models.TaskExecution {
	out := *record
	out.Results = append([]models.StepResult(nil), record.Results...)
	return &out
}
