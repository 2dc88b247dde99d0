package models

import (
	"errors"
	"time"
)

// TaskStatus represents the lifecycle state of a backlog task.
type TaskStatus string

const (
	TaskPending    TaskStatus = "pending"
	TaskInProgress TaskStatus = "in-progress"
	TaskCompleted  TaskStatus = "completed"
	TaskCancelled  TaskStatus = "cancelled"
)

// Priority represents the scheduling priority of a task.
// Priorities are derived from topological position by the graph
// (see graph.AutoAssignPriorities) but may also be set explicitly.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

// Task represents a single unit of backlog work produced by an upstream planner.
type Task struct {
	ID           string     `json:"id"`
	Description  string     `json:"description"`
	Status       TaskStatus `json:"status"`
	Type         string     `json:"type,omitempty"`
	Priority     Priority   `json:"priority"`
	Dependencies []string   `json:"dependencies,omitempty"` // Task IDs this task depends on
	Subtasks     []string   `json:"subtasks,omitempty"`     // Child task IDs (optional)
	Tags         []string   `json:"tags,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
	CompletedAt  *time.Time `json:"completed_at,omitempty"`

	// EstimatedDuration and ActualDuration are informational only.
	EstimatedDuration time.Duration `json:"estimated_duration,omitempty"`
	ActualDuration    time.Duration `json:"actual_duration,omitempty"`
}

// Validate checks that the task has all required fields.
func (t *Task) Validate() error {
	if t.ID == "" {
		return errors.New("task id is required")
	}
	if t.Description == "" {
		return errors.New("task description is required")
	}
	return nil
}

// IsCompleted returns true if the task status is "completed".
func (t *Task) IsCompleted() bool {
	return t.Status == TaskCompleted
}

// IsTerminal returns true if the task can no longer change status
// through normal execution (completed or cancelled).
func (t *Task) IsTerminal() bool {
	return t.Status == TaskCompleted || t.Status == TaskCancelled
}
