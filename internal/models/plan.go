package models

import "fmt"

// StepType identifies the kind of side effect a plan step performs.
type StepType string

const (
	StepFileCreate StepType = "file_create"
	StepFileModify StepType = "file_modify"
	StepFileDelete StepType = "file_delete"
	StepCommand    StepType = "command_execute"
	StepAnalysis   StepType = "analysis"
)

// knownStepTypes is the set of step types the engine can dispatch.
var knownStepTypes = map[StepType]bool{
	StepFileCreate: true,
	StepFileModify: true,
	StepFileDelete: true,
	StepCommand:    true,
	StepAnalysis:   true,
}

// TaskStep is a single step within a plan. Steps are immutable once
// authored; only their execution result changes over time.
type TaskStep struct {
	ID          string   `yaml:"id" json:"id"`
	Description string   `yaml:"description" json:"description"`
	Type        StepType `yaml:"type" json:"type"`
	TargetPath  string   `yaml:"path,omitempty" json:"path,omitempty"`       // File operations only
	Content     string   `yaml:"content,omitempty" json:"content,omitempty"` // file_create / file_modify payload
	Command     string   `yaml:"command,omitempty" json:"command,omitempty"` // command_execute payload
	DependsOn   []string `yaml:"depends_on,omitempty" json:"depends_on,omitempty"`
}

// IsFileOp returns true for step types that mutate a file.
func (s *TaskStep) IsFileOp() bool {
	switch s.Type {
	case StepFileCreate, StepFileModify, StepFileDelete:
		return true
	default:
		return false
	}
}

// TaskPlan is an ordered sequence of steps produced for one task.
// Step dependencies are scoped to the plan, not the global task graph.
type TaskPlan struct {
	ID     string     `yaml:"id,omitempty" json:"id"`
	TaskID string     `yaml:"task_id,omitempty" json:"task_id,omitempty"`
	Name   string     `yaml:"name" json:"name"`
	Steps  []TaskStep `yaml:"steps" json:"steps"`
}

// Validate checks plan structure: non-empty step ids, no duplicates,
// known step types, payloads matching the type, and dependencies that
// reference steps within the same plan.
func (p *TaskPlan) Validate() error {
	if len(p.Steps) == 0 {
		return fmt.Errorf("plan has no steps")
	}

	ids := make(map[string]bool, len(p.Steps))
	for i, step := range p.Steps {
		if step.ID == "" {
			return fmt.Errorf("step %d: id is required", i+1)
		}
		if ids[step.ID] {
			return fmt.Errorf("step %s: duplicate step id", step.ID)
		}
		ids[step.ID] = true

		if !knownStepTypes[step.Type] {
			return fmt.Errorf("step %s: unknown step type %q", step.ID, step.Type)
		}
		if step.IsFileOp() && step.TargetPath == "" {
			return fmt.Errorf("step %s: %s requires a target path", step.ID, step.Type)
		}
		if step.Type == StepCommand && step.Command == "" {
			return fmt.Errorf("step %s: command_execute requires a command", step.ID)
		}
	}

	for _, step := range p.Steps {
		for _, dep := range step.DependsOn {
			if dep == step.ID {
				return fmt.Errorf("step %s: depends on itself", step.ID)
			}
			if !ids[dep] {
				return fmt.Errorf("step %s: depends on unknown step %s", step.ID, dep)
			}
		}
	}

	return nil
}

// AffectedFiles returns the unique target paths of all file-operation
// steps, in plan order. This is the file set snapshotted before a run.
func (p *TaskPlan) AffectedFiles() []string {
	seen := make(map[string]bool)
	var files []string
	for _, step := range p.Steps {
		if !step.IsFileOp() || step.TargetPath == "" {
			continue
		}
		if !seen[step.TargetPath] {
			seen[step.TargetPath] = true
			files = append(files, step.TargetPath)
		}
	}
	return files
}

// Step returns the step with the given id, or nil if not present.
func (p *TaskPlan) Step(id string) *TaskStep {
	for i := range p.Steps {
		if p.Steps[i].ID == id {
			return &p.Steps[i]
		}
	}
	return nil
}
