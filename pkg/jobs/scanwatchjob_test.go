package jobs

import (
	"testing"

	"notebit/pkg/database"
	"notebit/pkg/searchengine"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScanWatchJobIndexesTreeAndActivatesWatch(t *testing.T) {
	db, docs, gk, ctx := newTestEnv(t)
	watch := createWatch(t, db, t.TempDir())
	writeMarkdown(t, watch.Path, "a.md", "# A\n\none\n")
	writeMarkdown(t, watch.Path, "b.md", "# B\n\ntwo\n")

	events := make(chan Event, 16)
	job := NewScanWatchJob(db, docs, gk, events, 4)
	require.NoError(t, job.Start(ctx, watch))

	var activated database.Watch
	require.NoError(t, db.First(&activated, watch.ID).Error)
	assert.Equal(t, database.WatchStatusActive, activated.Status)

	rows, err := docs.FindDocumentsByWatchID(watch.ID)
	require.NoError(t, err)
	assert.Len(t, rows, 2)

	results, err := docs.SearchDocuments("one", searchengine.SortRelevance, 0, 10)
	require.NoError(t, err)
	assert.Equal(t, 1, results.Count)

	var sawFinished bool
	for {
		select {
		case ev := <-events:
			if ev.Kind == AddWatchFinished {
				sawFinished = true
			}
		default:
			assert.True(t, sawFinished, "expected an AddWatchFinished event")
			return
		}
	}
}
