package checkpoint

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harrison/maestro/internal/decision"
	"github.com/harrison/maestro/internal/models"
	"github.com/harrison/maestro/internal/workspace"
)

// memFiles is an in-memory FileMutator for tests.
type memFiles struct {
	mu        sync.Mutex
	files     map[string]string
	failWrite map[string]bool
}

func newMemFiles(files map[string]string) *memFiles {
	if files == nil {
		files = make(map[string]string)
	}
	return &memFiles{files: files, failWrite: make(map[string]bool)}
}

func (m *memFiles) Apply(_ context.Context, path string, op workspace.FileOp, content string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWrite[path] {
		return fmt.Errorf("write %s: permission denied", path)
	}
	switch op {
	case workspace.OpCreate, workspace.OpModify:
		m.files[path] = content
	case workspace.OpDelete:
		if _, ok := m.files[path]; !ok {
			return fmt.Errorf("delete %s: no such file", path)
		}
		delete(m.files, path)
	}
	return nil
}

func (m *memFiles) Read(_ context.Context, path string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	content, ok := m.files[path]
	if !ok {
		return "", fmt.Errorf("read %s: no such file", path)
	}
	return content, nil
}

func (m *memFiles) Stat(_ context.Context, path string) (workspace.FileInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	content, ok := m.files[path]
	if !ok {
		return workspace.FileInfo{}, fmt.Errorf("stat %s: no such file", path)
	}
	return workspace.FileInfo{Size: int64(len(content)), ModTime: time.Now()}, nil
}

func (m *memFiles) set(path, content string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.files[path] = content
}

func (m *memFiles) get(path string) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	content, ok := m.files[path]
	return content, ok
}

func TestCreateCapturesContentAndHash(t *testing.T) {
	files := newMemFiles(map[string]string{"a.txt": "alpha", "b.txt": "beta"})
	s := NewStore(files, decision.Static{}, 0, nil)

	cp, err := s.Create(context.Background(), "snap", "test snapshot",
		[]string{"a.txt", "b.txt"}, models.CheckpointMeta{TaskID: "t1", Auto: true})
	require.NoError(t, err)

	require.Len(t, cp.Files, 2)
	assert.Equal(t, "alpha", cp.Files[0].Content)
	assert.Equal(t, hashContent("alpha"), cp.Files[0].Hash)
	assert.Equal(t, int64(5), cp.Files[0].Size)
	assert.NotEmpty(t, cp.ID)
	assert.True(t, cp.Meta.Auto)
}

func TestCreateSkipsUnreadableFiles(t *testing.T) {
	files := newMemFiles(map[string]string{"a.txt": "alpha"})
	s := NewStore(files, decision.Static{}, 0, nil)

	cp, err := s.Create(context.Background(), "snap", "", []string{"a.txt", "missing.txt"}, models.CheckpointMeta{})
	require.NoError(t, err)

	require.Len(t, cp.Files, 1)
	assert.Equal(t, "a.txt", cp.Files[0].Path)
}

func TestDetectConflicts(t *testing.T) {
	files := newMemFiles(map[string]string{"a.txt": "alpha", "b.txt": "beta"})
	s := NewStore(files, decision.Static{}, 0, nil)
	ctx := context.Background()

	cp, err := s.Create(ctx, "snap", "", []string{"a.txt", "b.txt"}, models.CheckpointMeta{})
	require.NoError(t, err)

	// Immediately after capture there are no conflicts.
	assert.Empty(t, s.DetectConflicts(ctx, cp))

	// Mutating a.txt makes a.txt, and only a.txt, a conflict.
	files.set("a.txt", "changed")
	assert.Equal(t, []string{"a.txt"}, s.DetectConflicts(ctx, cp))

	// A file disappearing counts as a conflict too.
	require.NoError(t, files.Apply(ctx, "b.txt", workspace.OpDelete, ""))
	assert.ElementsMatch(t, []string{"a.txt", "b.txt"}, s.DetectConflicts(ctx, cp))
}

func TestRollbackRestoresContent(t *testing.T) {
	files := newMemFiles(map[string]string{"a.txt": "alpha"})
	s := NewStore(files, decision.Static{OnRollbackConflict: decision.ConflictProceed}, 0, nil)
	ctx := context.Background()

	cp, err := s.Create(ctx, "snap", "", []string{"a.txt"}, models.CheckpointMeta{})
	require.NoError(t, err)

	files.set("a.txt", "changed")

	result, err := s.Rollback(ctx, cp.ID)
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, []string{"a.txt"}, result.RestoredFiles)
	assert.Equal(t, []string{"a.txt"}, result.Conflicts)

	content, _ := files.get("a.txt")
	assert.Equal(t, "alpha", content)

	// Rolling back twice with no intervening edits restores identical
	// content and reports no conflicts the second time.
	result2, err := s.Rollback(ctx, cp.ID)
	require.NoError(t, err)
	assert.True(t, result2.Success)
	assert.Empty(t, result2.Conflicts)
	content, _ = files.get("a.txt")
	assert.Equal(t, "alpha", content)
}

func TestRollbackAbortsOnConflictByDefault(t *testing.T) {
	files := newMemFiles(map[string]string{"a.txt": "alpha"})
	s := NewStore(files, decision.Static{}, 0, nil) // zero value answers abort
	ctx := context.Background()

	cp, err := s.Create(ctx, "snap", "", []string{"a.txt"}, models.CheckpointMeta{})
	require.NoError(t, err)

	files.set("a.txt", "changed")

	result, err := s.Rollback(ctx, cp.ID)
	require.NoError(t, err)
	assert.False(t, result.Success)
	assert.Empty(t, result.RestoredFiles)
	assert.Equal(t, []string{"a.txt"}, result.Conflicts)

	// Divergent state is never overwritten without consent.
	content, _ := files.get("a.txt")
	assert.Equal(t, "changed", content)
}

func TestRollbackIsBestEffort(t *testing.T) {
	files := newMemFiles(map[string]string{"a.txt": "alpha", "b.txt": "beta"})
	s := NewStore(files, decision.Static{OnRollbackConflict: decision.ConflictProceed}, 0, nil)
	ctx := context.Background()

	cp, err := s.Create(ctx, "snap", "", []string{"a.txt", "b.txt"}, models.CheckpointMeta{})
	require.NoError(t, err)

	files.set("a.txt", "changed")
	files.set("b.txt", "changed")
	files.failWrite["a.txt"] = true

	result, err := s.Rollback(ctx, cp.ID)
	require.NoError(t, err)
	assert.False(t, result.Success)
	assert.Equal(t, []string{"a.txt"}, result.FailedFiles)
	assert.Equal(t, []string{"b.txt"}, result.RestoredFiles)

	// The failing file did not abort the rest of the restore.
	content, _ := files.get("b.txt")
	assert.Equal(t, "beta", content)
}

func TestRollbackUnknownCheckpoint(t *testing.T) {
	s := NewStore(newMemFiles(nil), decision.Static{}, 0, nil)
	_, err := s.Rollback(context.Background(), "nope")
	assert.Error(t, err)
}

func TestRetentionEvictsOldest(t *testing.T) {
	files := newMemFiles(map[string]string{"a.txt": "alpha"})
	s := NewStore(files, decision.Static{}, 2, nil)
	ctx := context.Background()

	// Deterministic, strictly increasing clock.
	now := time.Now()
	s.clock = func() time.Time {
		now = now.Add(time.Second)
		return now
	}

	first, err := s.Create(ctx, "first", "", []string{"a.txt"}, models.CheckpointMeta{})
	require.NoError(t, err)
	_, err = s.Create(ctx, "second", "", []string{"a.txt"}, models.CheckpointMeta{})
	require.NoError(t, err)
	_, err = s.Create(ctx, "third", "", []string{"a.txt"}, models.CheckpointMeta{})
	require.NoError(t, err)

	list := s.List()
	require.Len(t, list, 2)
	assert.Equal(t, "third", list[0].Name)
	assert.Equal(t, "second", list[1].Name)

	_, err = s.Get(first.ID)
	assert.Error(t, err, "oldest checkpoint should have been evicted")
}

func TestDelete(t *testing.T) {
	files := newMemFiles(map[string]string{"a.txt": "alpha"})
	s := NewStore(files, decision.Static{}, 0, nil)
	ctx := context.Background()

	cp, err := s.Create(ctx, "snap", "", []string{"a.txt"}, models.CheckpointMeta{})
	require.NoError(t, err)

	require.NoError(t, s.Delete(cp.ID))
	_, err = s.Get(cp.ID)
	assert.Error(t, err)
	assert.Error(t, s.Delete(cp.ID))
}
