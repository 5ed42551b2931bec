package jobs

import (
	"os"
	"testing"
	"time"

	"notebit/pkg/searchengine"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSyncWatchJobAddsChangedAndRemovesStale(t *testing.T) {
	db, docs, gk, ctx := newTestEnv(t)
	watch := createWatch(t, db, t.TempDir())

	stale := writeMarkdown(t, watch.Path, "stale.md", "# Stale\n")
	require.NoError(t, docs.AddDocumentWithWatch(ctx, stale, watch.ID))
	require.NoError(t, docs.CommitToSearchEngine(ctx))

	// the file disappeared while the app was closed
	require.NoError(t, os.Remove(stale))

	// a new file showed up while the app was closed
	writeMarkdown(t, watch.Path, "fresh.md", "# Fresh\n\nbrand new\n")

	job := NewSyncWatchJob(db, docs, gk, nil, 4)
	require.NoError(t, job.Start(ctx, watch))

	doc, err := docs.FindDocumentByPath(ctx, stale)
	require.NoError(t, err)
	assert.Nil(t, doc, "stale document should have been removed")

	results, err := docs.SearchDocuments("brand", searchengine.SortRelevance, 0, 10)
	require.NoError(t, err)
	assert.Equal(t, 1, results.Count)
}

func TestSyncWatchJobReindexesModifiedFile(t *testing.T) {
	db, docs, gk, ctx := newTestEnv(t)
	watch := createWatch(t, db, t.TempDir())

	path := writeMarkdown(t, watch.Path, "a.md", "# Old\n\nbefore\n")
	require.NoError(t, docs.AddDocumentWithWatch(ctx, path, watch.ID))
	require.NoError(t, docs.CommitToSearchEngine(ctx))

	time.Sleep(10 * time.Millisecond)
	require.NoError(t, os.WriteFile(path, []byte("# New\n\nafter\n"), 0644))

	job := NewSyncWatchJob(db, docs, gk, nil, 4)
	require.NoError(t, job.Start(ctx, watch))

	results, err := docs.SearchDocuments("after", searchengine.SortRelevance, 0, 10)
	require.NoError(t, err)
	assert.Equal(t, 1, results.Count)
}
