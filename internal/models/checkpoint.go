package models

import "time"

// CheckpointFile is a point-in-time capture of a single file.
// Hash is always recomputed from Content at capture time, never
// trusted from elsewhere. Size and ModTime are informational only.
type CheckpointFile struct {
	Path    string    `json:"path"`
	Content string    `json:"content"`
	Hash    string    `json:"hash"`
	Size    int64     `json:"size"`
	ModTime time.Time `json:"mod_time"`
}

// CheckpointMeta records why a checkpoint was taken.
type CheckpointMeta struct {
	TaskID string   `json:"task_id,omitempty"`
	Action string   `json:"action,omitempty"`
	Auto   bool     `json:"auto"` // true for system-initiated checkpoints
	Tags   []string `json:"tags,omitempty"`
}

// Checkpoint is an immutable content snapshot of a file set.
// Checkpoints are created and deleted only by the checkpoint store.
type Checkpoint struct {
	ID          string           `json:"id"`
	Name        string           `json:"name"`
	Description string           `json:"description,omitempty"`
	CreatedAt   time.Time        `json:"created_at"`
	Files       []CheckpointFile `json:"files"`
	Meta        CheckpointMeta   `json:"meta"`
}

// RollbackResult reports the itemized outcome of restoring a checkpoint.
// Rollback is best-effort: every file is attempted, failures are listed
// alongside successes, and Success is false if any file failed.
type RollbackResult struct {
	CheckpointID  string   `json:"checkpoint_id"`
	Success       bool     `json:"success"`
	RestoredFiles []string `json:"restored_files,omitempty"`
	FailedFiles   []string `json:"failed_files,omitempty"`
	Conflicts     []string `json:"conflicts,omitempty"`
}
