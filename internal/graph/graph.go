// Package graph maintains the global dependency relationships between
// backlog tasks and provides the ordering primitives schedulers rely on:
// cycle detection, topological execution order, and priority derivation.
//
// All three ordering operations are pure computations over the current
// in-memory graph. They never fail; malformed graphs degrade to empty or
// partial results. Dangling dependency ids (referencing tasks that do not
// exist) are tolerated at insertion but never satisfied, so tasks behind
// them are never emitted as runnable.
package graph

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/harrison/maestro/internal/models"
)

// TaskGraph owns the backlog of tasks and their dependency edges.
// It is safe for concurrent use.
type TaskGraph struct {
	mu    sync.RWMutex
	tasks map[string]*models.Task
	order []string // Task ids in insertion order (discovery order for Kahn)

	clock func() time.Time
}

// New creates an empty TaskGraph.
func New() *TaskGraph {
	return &TaskGraph{
		tasks: make(map[string]*models.Task),
		clock: time.Now,
	}
}

// Add inserts a task into the graph. The task id must be unique.
// Dependencies referencing unknown tasks are accepted as-is; they simply
// never become satisfied.
func (g *TaskGraph) Add(task models.Task) error {
	if err := task.Validate(); err != nil {
		return err
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	if _, exists := g.tasks[task.ID]; exists {
		return fmt.Errorf("task %s already exists", task.ID)
	}

	now := g.clock()
	if task.CreatedAt.IsZero() {
		task.CreatedAt = now
	}
	task.UpdatedAt = now
	if task.Status == "" {
		task.Status = models.TaskPending
	}
	if task.Priority == "" {
		task.Priority = models.PriorityMedium
	}

	g.tasks[task.ID] = &task
	g.order = append(g.order, task.ID)
	return nil
}

// Get returns a copy of the task with the given id.
func (g *TaskGraph) Get(id string) (models.Task, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	task, ok := g.tasks[id]
	if !ok {
		return models.Task{}, false
	}
	return *task, true
}

// Tasks returns copies of all tasks in insertion order.
func (g *TaskGraph) Tasks() []models.Task {
	g.mu.RLock()
	defer g.mu.RUnlock()

	tasks := make([]models.Task, 0, len(g.order))
	for _, id := range g.order {
		tasks = append(tasks, *g.tasks[id])
	}
	return tasks
}

// UpdateStatus transitions a task's status, touching UpdatedAt.
// Marking a task completed also stamps CompletedAt.
func (g *TaskGraph) UpdateStatus(id string, status models.TaskStatus) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	task, ok := g.tasks[id]
	if !ok {
		return fmt.Errorf("task %s not found", id)
	}

	now := g.clock()
	task.Status = status
	task.UpdatedAt = now
	if status == models.TaskCompleted {
		task.CompletedAt = &now
	}
	return nil
}

// Update applies fn to the stored task under the graph lock and
// touches UpdatedAt. Status transitions should go through UpdateStatus.
func (g *TaskGraph) Update(id string, fn func(*models.Task)) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	task, ok := g.tasks[id]
	if !ok {
		return fmt.Errorf("task %s not found", id)
	}
	fn(task)
	task.UpdatedAt = g.clock()
	return nil
}

// Remove deletes a task from the graph. Deletion is explicit and never
// cascades; tasks depending on the removed id are left with a dangling
// dependency.
func (g *TaskGraph) Remove(id string) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if _, ok := g.tasks[id]; !ok {
		return fmt.Errorf("task %s not found", id)
	}
	delete(g.tasks, id)
	for i, tid := range g.order {
		if tid == id {
			g.order = append(g.order[:i], g.order[i+1:]...)
			break
		}
	}
	return nil
}

// Len returns the number of tasks in the graph.
func (g *TaskGraph) Len() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.tasks)
}

// DependencyGraph returns a read-only view of each task's declared
// dependencies: task id -> dependency ids.
func (g *TaskGraph) DependencyGraph() map[string][]string {
	g.mu.RLock()
	defer g.mu.RUnlock()

	deps := make(map[string][]string, len(g.tasks))
	for id, task := range g.tasks {
		deps[id] = append([]string(nil), task.Dependencies...)
	}
	return deps
}

// DetectCycles finds dependency cycles using DFS with a per-branch
// visiting set. Each cycle is reported as the full path string ending
// back at the revisited id, e.g. "t1 -> t2 -> t3 -> t1". Dangling
// dependency ids are dead ends, not cycles. Multiple disjoint cycles
// may be reported.
func (g *TaskGraph) DetectCycles() []string {
	g.mu.RLock()
	defer g.mu.RUnlock()

	var cycles []string
	visited := make(map[string]bool)  // fully explored nodes
	visiting := make(map[string]bool) // nodes on the current DFS branch

	var path []string
	var dfs func(id string)
	dfs = func(id string) {
		visiting[id] = true
		path = append(path, id)

		for _, dep := range g.tasks[id].Dependencies {
			if _, exists := g.tasks[dep]; !exists {
				continue // dangling dependency, dead end
			}
			if visiting[dep] {
				cycle := append(append([]string(nil), path...), dep)
				cycles = append(cycles, strings.Join(cycle, " -> "))
				continue
			}
			if !visited[dep] {
				dfs(dep)
			}
		}

		path = path[:len(path)-1]
		visiting[id] = false
		visited[id] = true
	}

	for _, id := range g.order {
		if !visited[id] {
			dfs(id)
		}
	}

	return cycles
}

// ExecutionOrder computes a Kahn-style topological order over the
// dependency edges. Tasks with zero unsatisfied dependencies enter the
// ready queue in discovery order. Tasks on a cycle, and tasks stranded
// behind dangling dependencies, are never emitted; callers that need
// completeness must call DetectCycles first. Ordering never deadlocks.
func (g *TaskGraph) ExecutionOrder() []string {
	g.mu.RLock()
	defer g.mu.RUnlock()

	// In-degree counts every declared dependency, including dangling
	// ones: a dangling dependency is never satisfied, so its dependents
	// never become runnable.
	inDegree := make(map[string]int, len(g.tasks))
	dependents := make(map[string][]string, len(g.tasks))
	for _, id := range g.order {
		inDegree[id] = len(g.tasks[id].Dependencies)
		for _, dep := range g.tasks[id].Dependencies {
			dependents[dep] = append(dependents[dep], id)
		}
	}

	var queue []string
	for _, id := range g.order {
		if inDegree[id] == 0 {
			queue = append(queue, id)
		}
	}

	var result []string
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		result = append(result, id)

		for _, dependent := range dependents[id] {
			inDegree[dependent]--
			if inDegree[dependent] == 0 {
				queue = append(queue, dependent)
			}
		}
	}

	return result
}

// AutoAssignPriorities buckets tasks into quartiles by their position in
// ExecutionOrder and overwrites each task's priority: earliest quartile
// urgent, then high, medium, low. Tasks absent from the order (on a
// cycle or stranded behind one) are left untouched.
func (g *TaskGraph) AutoAssignPriorities() {
	order := g.ExecutionOrder()
	if len(order) == 0 {
		return
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	buckets := []models.Priority{
		models.PriorityUrgent,
		models.PriorityHigh,
		models.PriorityMedium,
		models.PriorityLow,
	}

	now := g.clock()
	for i, id := range order {
		task, ok := g.tasks[id]
		if !ok {
			continue
		}
		quartile := i * 4 / len(order)
		task.Priority = buckets[quartile]
		task.UpdatedAt = now
	}
}
