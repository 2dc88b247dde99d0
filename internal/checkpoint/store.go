// Package checkpoint implements the content-addressed checkpoint store:
// capture, compare, restore, and retire file snapshots. A checkpoint is
// the undo guarantee behind every plan execution; rollback never
// silently overwrites state that diverged since capture.
package checkpoint

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/harrison/maestro/internal/decision"
	"github.com/harrison/maestro/internal/logger"
	"github.com/harrison/maestro/internal/models"
	"github.com/harrison/maestro/internal/workspace"
)

// DefaultLimit is the retention cap applied when none is configured.
const DefaultLimit = 50

// Store owns all Checkpoint objects. It is the only component permitted
// to create or delete them. Safe for concurrent use.
type Store struct {
	mu          sync.RWMutex
	checkpoints map[string]*models.Checkpoint

	files     workspace.FileMutator
	decisions decision.Provider
	limit     int
	log       logger.Logger

	clock func() time.Time
	newID func() string
}

// NewStore creates a checkpoint store. limit <= 0 applies DefaultLimit.
// decisions may be nil; rollbacks over conflicts then always abort.
func NewStore(files workspace.FileMutator, decisions decision.Provider, limit int, log logger.Logger) *Store {
	if limit <= 0 {
		limit = DefaultLimit
	}
	return &Store{
		checkpoints: make(map[string]*models.Checkpoint),
		files:       files,
		decisions:   decisions,
		limit:       limit,
		log:         logger.OrNop(log),
		clock:       time.Now,
		newID:       func() string { return uuid.NewString() },
	}
}

// hashContent computes the SHA-256 hex digest of content.
func hashContent(content string) string {
	sum := sha256.Sum256([]byte(content))
	return hex.EncodeToString(sum[:])
}

// Create captures a snapshot of the given paths. Capture is best-effort:
// unreadable files are skipped with a warning, not fatal. Retention
// cleanup runs after the new checkpoint is stored.
func (s *Store) Create(ctx context.Context, name, description string, paths []string, meta models.CheckpointMeta) (*models.Checkpoint, error) {
	cp := &models.Checkpoint{
		ID:          s.newID(),
		Name:        name,
		Description: description,
		CreatedAt:   s.clock(),
		Meta:        meta,
	}

	for _, path := range paths {
		content, err := s.files.Read(ctx, path)
		if err != nil {
			s.log.Warnf("checkpoint %s: skipping unreadable file %s: %v", name, path, err)
			continue
		}

		file := models.CheckpointFile{
			Path:    path,
			Content: content,
			Hash:    hashContent(content),
			Size:    int64(len(content)),
		}
		if info, err := s.files.Stat(ctx, path); err == nil {
			file.Size = info.Size
			file.ModTime = info.ModTime
		}
		cp.Files = append(cp.Files, file)
	}

	s.mu.Lock()
	s.checkpoints[cp.ID] = cp
	evicted := s.enforceLimitLocked()
	s.mu.Unlock()

	for _, old := range evicted {
		s.log.Debugf("checkpoint retention: evicted %s (%s)", old.Name, old.ID)
	}
	s.log.Infof("created checkpoint %s with %d file(s)", name, len(cp.Files))

	return s.copyOf(cp), nil
}

// enforceLimitLocked drops the oldest checkpoints beyond the configured
// cap and returns the evicted ones. Caller holds s.mu.
func (s *Store) enforceLimitLocked() []*models.Checkpoint {
	if len(s.checkpoints) <= s.limit {
		return nil
	}

	all := make([]*models.Checkpoint, 0, len(s.checkpoints))
	for _, cp := range s.checkpoints {
		all = append(all, cp)
	}
	sort.Slice(all, func(i, j int) bool {
		return all[i].CreatedAt.After(all[j].CreatedAt)
	})

	evicted := all[s.limit:]
	for _, cp := range evicted {
		delete(s.checkpoints, cp.ID)
	}
	return evicted
}

// DetectConflicts re-reads every captured file and compares a freshly
// computed hash against the stored one. A mismatch, or the file no
// longer existing, counts as a conflict. This is the only correctness
// gate before a rollback.
func (s *Store) DetectConflicts(ctx context.Context, cp *models.Checkpoint) []string {
	var conflicts []string
	for _, file := range cp.Files {
		content, err := s.files.Read(ctx, file.Path)
		if err != nil {
			conflicts = append(conflicts, file.Path)
			continue
		}
		if hashContent(content) != file.Hash {
			conflicts = append(conflicts, file.Path)
		}
	}
	return conflicts
}

// Rollback restores every file captured in the checkpoint. If any file
// diverged since capture, the decision provider must explicitly answer
// proceed; otherwise the rollback aborts with the conflicts reported.
// Restoration is best-effort: every file is attempted, per-file write
// failures are recorded without aborting the rest, and Success is false
// if any file failed.
func (s *Store) Rollback(ctx context.Context, id string) (*models.RollbackResult, error) {
	s.mu.RLock()
	cp, ok := s.checkpoints[id]
	s.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("checkpoint %s not found", id)
	}

	result := &models.RollbackResult{CheckpointID: id}

	conflicts := s.DetectConflicts(ctx, cp)
	if len(conflicts) > 0 {
		result.Conflicts = conflicts

		choice := decision.ConflictAbort
		if s.decisions != nil {
			c, err := s.decisions.AskRollbackConflict(ctx, decision.RollbackConflict{
				CheckpointID: cp.ID,
				Name:         cp.Name,
				Conflicts:    conflicts,
			})
			if err != nil {
				s.log.Warnf("rollback %s: no conflict decision available, aborting: %v", cp.Name, err)
			} else {
				choice = c
			}
		}

		if choice != decision.ConflictProceed {
			s.log.Infof("rollback %s aborted: %d conflicting file(s)", cp.Name, len(conflicts))
			return result, nil
		}
	}

	for _, file := range cp.Files {
		if err := s.files.Apply(ctx, file.Path, workspace.OpCreate, file.Content); err != nil {
			s.log.Errorf("rollback %s: failed to restore %s: %v", cp.Name, file.Path, err)
			result.FailedFiles = append(result.FailedFiles, file.Path)
			continue
		}
		result.RestoredFiles = append(result.RestoredFiles, file.Path)
	}

	result.Success = len(result.FailedFiles) == 0
	s.log.Infof("rollback %s: restored %d file(s), %d failed", cp.Name, len(result.RestoredFiles), len(result.FailedFiles))

	return result, nil
}

// List returns copies of all checkpoints, newest first.
func (s *Store) List() []models.Checkpoint {
	s.mu.RLock()
	defer s.mu.RUnlock()

	all := make([]models.Checkpoint, 0, len(s.checkpoints))
	for _, cp := range s.checkpoints {
		all = append(all, *s.copyOf(cp))
	}
	sort.Slice(all, func(i, j int) bool {
		return all[i].CreatedAt.After(all[j].CreatedAt)
	})
	return all
}

// Get returns a copy of the checkpoint with the given id.
func (s *Store) Get(id string) (*models.Checkpoint, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	cp, ok := s.checkpoints[id]
	if !ok {
		return nil, fmt.Errorf("checkpoint %s not found", id)
	}
	return s.copyOf(cp), nil
}

// Delete retires a single checkpoint. Deletion never cascades.
func (s *Store) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.checkpoints[id]; !ok {
		return fmt.Errorf("checkpoint %s not found", id)
	}
	delete(s.checkpoints, id)
	return nil
}

// copyOf returns a defensive copy so callers cannot mutate stored state.
func (s *Store) copyOf(cp *models.Checkpoint) *models.Checkpoint {
	out := *cp
	out.Files = append([]models.CheckpointFile(nil), cp.Files...)
	out.Meta.Tags = append([]string(nil), cp.Meta.Tags...)
	return &out
}
