package graph

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/harrison/maestro/internal/models"
)

// backlogKey is the persistence key under which the task backlog is stored.
const backlogKey = "tasks"

// ListStore is the persistence collaborator contract: a plain key-value
// blob store holding JSON lists.
type ListStore interface {
	LoadList(ctx context.Context, key string) ([]json.RawMessage, error)
	SaveList(ctx context.Context, key string, v interface{}) error
}

// Load replaces the graph's contents with the persisted backlog.
// A missing key yields an empty graph, not an error.
func (g *TaskGraph) Load(ctx context.Context, s ListStore) error {
	raws, err := s.LoadList(ctx, backlogKey)
	if err != nil {
		return fmt.Errorf("load task backlog: %w", err)
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	g.tasks = make(map[string]*models.Task, len(raws))
	g.order = g.order[:0]
	for _, raw := range raws {
		var task models.Task
		if err := json.Unmarshal(raw, &task); err != nil {
			return fmt.Errorf("decode persisted task: %w", err)
		}
		if _, exists := g.tasks[task.ID]; exists {
			continue
		}
		t := task
		g.tasks[task.ID] = &t
		g.order = append(g.order, task.ID)
	}
	return nil
}

// Save persists the current backlog in insertion order.
func (g *TaskGraph) Save(ctx context.Context, s ListStore) error {
	if err := s.SaveList(ctx, backlogKey, g.Tasks()); err != nil {
		return fmt.Errorf("save task backlog: %w", err)
	}
	return nil
}
