// Package workspace provides the file-mutation and command-execution
// collaborators used by the execution engine and the checkpoint store.
// All mutations go through the FileMutator interface so tests can swap
// in an in-memory implementation.
package workspace

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// FileOp identifies the kind of mutation Apply performs.
type FileOp string

const (
	OpCreate FileOp = "create"
	OpModify FileOp = "modify"
	OpDelete FileOp = "delete"
)

// FileInfo carries the stat fields the core cares about.
type FileInfo struct {
	Size    int64
	ModTime time.Time
}

// FileMutator abstracts file reads and writes. Apply must be atomic
// per call: a reader never observes a partially written file.
type FileMutator interface {
	Apply(ctx context.Context, path string, op FileOp, content string) error
	Read(ctx context.Context, path string) (string, error)
	Stat(ctx context.Context, path string) (FileInfo, error)
}

// OSFileMutator implements FileMutator against the real file system.
// Writes use a temp-file-and-rename strategy so partial writes are
// never visible, even if the process dies mid-write.
type OSFileMutator struct{}

// NewOSFileMutator creates a FileMutator backed by the os package.
func NewOSFileMutator() *OSFileMutator {
	return &OSFileMutator{}
}

// Apply performs a single file mutation.
// create and modify both write the full content (parent directories
// created as needed); delete removes the file.
func (m *OSFileMutator) Apply(ctx context.Context, path string, op FileOp, content string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if path == "" {
		return fmt.Errorf("file path cannot be empty")
	}

	switch op {
	case OpCreate, OpModify:
		return AtomicWrite(path, []byte(content))
	case OpDelete:
		if err := os.Remove(path); err != nil {
			return fmt.Errorf("failed to delete %s: %w", path, err)
		}
		return nil
	default:
		return fmt.Errorf("unknown file operation %q", op)
	}
}

// Read returns the full content of a file.
func (m *OSFileMutator) Read(ctx context.Context, path string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", path, err)
	}
	return string(data), nil
}

// Stat returns size and modification time for a file.
func (m *OSFileMutator) Stat(ctx context.Context, path string) (FileInfo, error) {
	if err := ctx.Err(); err != nil {
		return FileInfo{}, err
	}
	info, err := os.Stat(path)
	if err != nil {
		return FileInfo{}, fmt.Errorf("failed to stat %s: %w", path, err)
	}
	return FileInfo{Size: info.Size(), ModTime: info.ModTime()}, nil
}

// AtomicWrite writes data to a file atomically using a temp file and
// rename. The temp file is created in the target's directory so the
// rename stays on one filesystem.
func AtomicWrite(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}

	tempFile, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tempPath := tempFile.Name()

	defer func() {
		if tempFile != nil {
			tempFile.Close()
			os.Remove(tempPath)
		}
	}()

	if _, err := tempFile.Write(data); err != nil {
		return fmt.Errorf("failed to write to temp file: %w", err)
	}
	if err := tempFile.Sync(); err != nil {
		return fmt.Errorf("failed to sync temp file: %w", err)
	}
	if err := tempFile.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Chmod(tempPath, 0644); err != nil {
		return fmt.Errorf("failed to set permissions: %w", err)
	}
	if err := os.Rename(tempPath, path); err != nil {
		return fmt.Errorf("failed to rename temp file to %s: %w", path, err)
	}

	tempFile = nil
	return nil
}

// Ensure OSFileMutator implements FileMutator
var _ FileMutator = (*OSFileMutator)(nil)
