package workspace

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOSFileMutatorApplyReadStat(t *testing.T) {
	ctx := context.Background()
	m := NewOSFileMutator()
	path := filepath.Join(t.TempDir(), "notes.txt")

	require.NoError(t, m.Apply(ctx, path, OpCreate, "hello"))

	content, err := m.Read(ctx, path)
	require.NoError(t, err)
	assert.Equal(t, "hello", content)

	info, err := m.Stat(ctx, path)
	require.NoError(t, err)
	assert.Equal(t, int64(5), info.Size)
	assert.False(t, info.ModTime.IsZero())

	require.NoError(t, m.Apply(ctx, path, OpModify, "hello world"))
	content, err = m.Read(ctx, path)
	require.NoError(t, err)
	assert.Equal(t, "hello world", content)

	require.NoError(t, m.Apply(ctx, path, OpDelete, ""))
	_, err = m.Read(ctx, path)
	assert.Error(t, err)
	_, err = m.Stat(ctx, path)
	assert.Error(t, err)
}

func TestOSFileMutatorErrors(t *testing.T) {
	ctx := context.Background()
	m := NewOSFileMutator()
	dir := t.TempDir()

	err := m.Apply(ctx, "", OpCreate, "x")
	assert.Error(t, err)

	err = m.Apply(ctx, filepath.Join(dir, "missing.txt"), OpDelete, "")
	assert.Error(t, err)

	err = m.Apply(ctx, filepath.Join(dir, "f.txt"), FileOp("truncate"), "")
	assert.Error(t, err)
}

func TestOSFileMutatorHonorsContext(t *testing.T) {
	m := NewOSFileMutator()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	path := filepath.Join(t.TempDir(), "f.txt")
	assert.Error(t, m.Apply(ctx, path, OpCreate, "x"))
	_, err := m.Read(ctx, path)
	assert.Error(t, err)
}

func TestAtomicWriteCreatesParentDirs(t *testing.T) {
	path := filepath.Join(t.TempDir(), "a", "b", "c.txt")
	require.NoError(t, AtomicWrite(path, []byte("deep")))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "deep", string(data))
}

func TestAtomicWriteLeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "f.txt")
	require.NoError(t, AtomicWrite(path, []byte("one")))
	require.NoError(t, AtomicWrite(path, []byte("two")))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "f.txt", entries[0].Name())
}

func TestShellRunnerRun(t *testing.T) {
	r := NewShellRunner("", 0)

	output, err := r.Run(context.Background(), "echo hello")
	require.NoError(t, err)
	assert.Equal(t, "hello", strings.TrimSpace(output))
}

func TestShellRunnerWorkDir(t *testing.T) {
	dir := t.TempDir()
	r := NewShellRunner(dir, 0)

	output, err := r.Run(context.Background(), "pwd")
	require.NoError(t, err)
	// On macOS t.TempDir can sit behind a symlink, so compare resolved paths.
	resolved, err := filepath.EvalSymlinks(dir)
	require.NoError(t, err)
	assert.Equal(t, resolved, strings.TrimSpace(output))
}

func TestShellRunnerFailureKeepsOutput(t *testing.T) {
	r := NewShellRunner("", 0)

	output, err := r.Run(context.Background(), "echo partial; exit 3")
	require.Error(t, err)
	assert.Contains(t, output, "partial")
}

func TestShellRunnerRejectsEmptyCommand(t *testing.T) {
	r := NewShellRunner("", 0)
	_, err := r.Run(context.Background(), "")
	assert.Error(t, err)
}

func TestShellRunnerTimeout(t *testing.T) {
	r := NewShellRunner("", 50*time.Millisecond)

	_, err := r.Run(context.Background(), "sleep 5")
	assert.Error(t, err)
}
