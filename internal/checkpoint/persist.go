package checkpoint

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/harrison/maestro/internal/models"
)

// checkpointsKey is the persistence key for the checkpoint list.
const checkpointsKey = "checkpoints"

// ListStore is the persistence collaborator contract (see store package).
type ListStore interface {
	LoadList(ctx context.Context, key string) ([]json.RawMessage, error)
	SaveList(ctx context.Context, key string, v interface{}) error
}

// Load replaces the store's contents with the persisted checkpoint list.
func (s *Store) Load(ctx context.Context, ls ListStore) error {
	raws, err := ls.LoadList(ctx, checkpointsKey)
	if err != nil {
		return fmt.Errorf("load checkpoints: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.checkpoints = make(map[string]*models.Checkpoint, len(raws))
	for _, raw := range raws {
		var cp models.Checkpoint
		if err := json.Unmarshal(raw, &cp); err != nil {
			return fmt.Errorf("decode persisted checkpoint: %w", err)
		}
		c := cp
		s.checkpoints[cp.ID] = &c
	}
	return nil
}

// Save persists the current checkpoint list, newest first.
func (s *Store) Save(ctx context.Context, ls ListStore) error {
	if err := ls.SaveList(ctx, checkpointsKey, s.List()); err != nil {
		return fmt.Errorf("save checkpoints: %w", err)
	}
	return nil
}
