package searchengine

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestIndex(t *testing.T) string {
	t.Helper()
	dir := filepath.Join(t.TempDir(), "index")
	return dir
}

func writeMarkdown(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestIndexAndSearchByTitle(t *testing.T) {
	indexDir := newTestIndex(t)
	idx, err := OpenIndex(indexDir)
	require.NoError(t, err)
	defer idx.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	w := NewWriter(idx)
	go w.Run(ctx)

	dir := t.TempDir()
	path := writeMarkdown(t, dir, "a.md", "# Hello\n\nbody text\n")

	now := time.Now().UTC()
	require.NoError(t, w.Index(ctx, SourceDocument{Path: path, WatchID: 1, CreatedAt: now, ModifiedAt: now}))

	r := NewReader(idx)
	results, err := r.SearchDocument("Hello", SortRelevance, 0, 10)
	require.NoError(t, err)
	assert.Equal(t, 1, results.Count)
	require.Len(t, results.Documents, 1)
	assert.Equal(t, path, results.Documents[0].Path)
	require.NotNil(t, results.Documents[0].Title)
	assert.Equal(t, "Hello", *results.Documents[0].Title)
}

func TestSearchWithTagFilter(t *testing.T) {
	indexDir := newTestIndex(t)
	idx, err := OpenIndex(indexDir)
	require.NoError(t, err)
	defer idx.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	w := NewWriter(idx)
	go w.Run(ctx)

	dir := t.TempDir()
	path := writeMarkdown(t, dir, "b.md", "---\ntitle: T\ntags: [x, y]\n---\n# H\n")

	now := time.Now().UTC()
	require.NoError(t, w.Index(ctx, SourceDocument{Path: path, WatchID: 1, CreatedAt: now, ModifiedAt: now}))

	r := NewReader(idx)

	withTag, err := r.SearchDocumentWithTags("", []string{"x"}, SortRelevance, 0, 10)
	require.NoError(t, err)
	assert.Equal(t, 1, withTag.Count)

	withoutMatch, err := r.SearchDocumentWithTags("", []string{"z"}, SortRelevance, 0, 10)
	require.NoError(t, err)
	assert.Equal(t, 0, withoutMatch.Count)
}

func TestDeleteByWatchID(t *testing.T) {
	indexDir := newTestIndex(t)
	idx, err := OpenIndex(indexDir)
	require.NoError(t, err)
	defer idx.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	w := NewWriter(idx)
	go w.Run(ctx)

	dir := t.TempDir()
	now := time.Now().UTC()
	for _, name := range []string{"a.md", "b.md", "c.md"} {
		path := writeMarkdown(t, dir, name, "# "+name+"\n")
		require.NoError(t, w.Index(ctx, SourceDocument{Path: path, WatchID: 7, CreatedAt: now, ModifiedAt: now}))
	}

	r := NewReader(idx)
	countBefore, err := r.CountDocumentsUnderPath(dir)
	require.NoError(t, err)
	assert.Equal(t, uint32(3), countBefore)

	require.NoError(t, w.DeleteByWatchID(ctx, 7))

	countAfter, err := r.CountDocumentsUnderPath(dir)
	require.NoError(t, err)
	assert.Equal(t, uint32(0), countAfter)
}

func TestCountDocumentsByPath(t *testing.T) {
	indexDir := newTestIndex(t)
	idx, err := OpenIndex(indexDir)
	require.NoError(t, err)
	defer idx.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	w := NewWriter(idx)
	go w.Run(ctx)

	dir := t.TempDir()
	path := writeMarkdown(t, dir, "a.md", "# Hi\n")
	now := time.Now().UTC()
	require.NoError(t, w.Index(ctx, SourceDocument{Path: path, WatchID: 1, CreatedAt: now, ModifiedAt: now}))

	r := NewReader(idx)
	count, err := r.CountDocumentsByPath(path)
	require.NoError(t, err)
	assert.Equal(t, uint32(1), count)

	count, err = r.CountDocumentsByPath(filepath.Join(dir, "missing.md"))
	require.NoError(t, err)
	assert.Equal(t, uint32(0), count)
}
