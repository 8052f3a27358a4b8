// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package notes

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/research-agent/pkg/types"
)

func testStore(t *testing.T, withIndex bool) *Store {
	t.Helper()
	tmpDir := t.TempDir()
	cfg := types.NotesConfig{
		OutputDir:  filepath.Join(tmpDir, "outputs"),
		MaxResults: 20,
	}
	if withIndex {
		cfg.IndexDir = filepath.Join(tmpDir, "index")
	}
	store, err := NewStore(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestSanitize(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"AI and machine learning in FinTech startups", "ai-and-machine-learning-in-fintech-startups"},
		{"Hello, World!", "hello-world"},
		{"  spaced   out  ", "spaced-out"},
		{"already-clean", "already-clean"},
		{"UPPER_case/slash", "upper-case-slash"},
		{"", "note"},
		{"!!!", "note"},
		{strings.Repeat("a", 100), strings.Repeat("a", 64)},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := Sanitize(tt.input); got != tt.want {
				t.Errorf("Sanitize(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestSanitizeDeterministic(t *testing.T) {
	first := Sanitize("Some Topic: With Punctuation")
	for i := 0; i < 5; i++ {
		assert.Equal(t, first, Sanitize("Some Topic: With Punctuation"))
	}
}

func TestSaveWritesNote(t *testing.T) {
	store := testStore(t, false)

	path, err := store.Save("FinTech trends", "raw findings")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(store.Dir(), "fintech-trends.txt"), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "raw findings")
}

func TestSaveOverwrites(t *testing.T) {
	store := testStore(t, false)

	first, err := store.Save("topic", "first body")
	require.NoError(t, err)
	second, err := store.Save("topic", "second body")
	require.NoError(t, err)
	assert.Equal(t, first, second)

	data, err := os.ReadFile(second)
	require.NoError(t, err)
	assert.Contains(t, string(data), "second body")
	assert.NotContains(t, string(data), "first body")
}

func TestSaveFailureReturnsError(t *testing.T) {
	store := testStore(t, false)
	// Remove the output directory so the write fails.
	require.NoError(t, os.RemoveAll(store.Dir()))

	_, err := store.Save("topic", "body")
	assert.Error(t, err)
}

func TestIndexSearchAndList(t *testing.T) {
	store := testStore(t, true)
	require.NotNil(t, store.Index())

	_, err := store.Save("quantum computing", "qubits and superposition research")
	require.NoError(t, err)
	_, err = store.Save("fintech", "payment fraud detection models")
	require.NoError(t, err)

	ctx := context.Background()

	hits, err := store.Index().Search(ctx, "fraud", 10)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "fintech", hits[0].Topic)
	assert.NotEmpty(t, hits[0].Snippet)

	all, err := store.Index().List(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestIndexUpsertsByPath(t *testing.T) {
	store := testStore(t, true)

	_, err := store.Save("topic", "original body text")
	require.NoError(t, err)
	_, err = store.Save("topic", "replacement body text")
	require.NoError(t, err)

	ctx := context.Background()
	all, err := store.Index().List(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)

	hits, err := store.Index().Search(ctx, "replacement", 10)
	require.NoError(t, err)
	assert.Len(t, hits, 1)

	stale, err := store.Index().Search(ctx, "original", 10)
	require.NoError(t, err)
	assert.Empty(t, stale)
}

func TestIndexSearchEmptyQuery(t *testing.T) {
	store := testStore(t, true)
	_, err := store.Index().Search(context.Background(), "", 10)
	assert.Error(t, err)
}
