package store

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSaveAndLoadList(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	type item struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	}
	saved := []item{{ID: "1", Name: "first"}, {ID: "2", Name: "second"}}
	require.NoError(t, s.SaveList(ctx, "items", saved))

	raw, err := s.LoadList(ctx, "items")
	require.NoError(t, err)
	require.Len(t, raw, 2)

	var loaded []item
	for _, r := range raw {
		var it item
		require.NoError(t, json.Unmarshal(r, &it))
		loaded = append(loaded, it)
	}
	assert.Equal(t, saved, loaded)
}

func TestLoadMissingKeyReturnsEmpty(t *testing.T) {
	s := newTestStore(t)

	raw, err := s.LoadList(context.Background(), "never-saved")
	require.NoError(t, err)
	assert.Empty(t, raw)
}

func TestSaveListOverwrites(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.SaveList(ctx, "k", []string{"a", "b", "c"}))
	require.NoError(t, s.SaveList(ctx, "k", []string{"z"}))

	raw, err := s.LoadList(ctx, "k")
	require.NoError(t, err)
	require.Len(t, raw, 1)
	assert.JSONEq(t, `"z"`, string(raw[0]))
}

func TestKeysAreIndependent(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.SaveList(ctx, "a", []int{1, 2}))
	require.NoError(t, s.SaveList(ctx, "b", []int{3}))

	rawA, err := s.LoadList(ctx, "a")
	require.NoError(t, err)
	rawB, err := s.LoadList(ctx, "b")
	require.NoError(t, err)
	assert.Len(t, rawA, 2)
	assert.Len(t, rawB, 1)
}

func TestFileStorePersistsAcrossReopen(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "state.db")
	ctx := context.Background()

	s, err := NewStore(dbPath)
	require.NoError(t, err)
	require.NoError(t, s.SaveList(ctx, "tasks", []string{"t1"}))
	require.NoError(t, s.Close())

	s2, err := NewStore(dbPath)
	require.NoError(t, err)
	defer s2.Close()

	raw, err := s2.LoadList(ctx, "tasks")
	require.NoError(t, err)
	require.Len(t, raw, 1)
	assert.JSONEq(t, `"t1"`, string(raw[0]))
}

func TestSecondProcessCannotShareStateDir(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "state.db")

	s, err := NewStore(dbPath)
	require.NoError(t, err)
	defer s.Close()

	_, err = NewStore(dbPath)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "in use")
}
