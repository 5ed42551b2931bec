package watchstate

import (
	"path/filepath"
	"testing"
	"time"

	"notebit/pkg/database"
	"notebit/pkg/documents"
	"notebit/pkg/jobs"
	"notebit/pkg/searchengine"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func newTestSync(t *testing.T) (*Sync, *gorm.DB, *documents.Service) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&database.Watch{}, &database.Document{}, &database.Job{}))

	idx, err := searchengine.OpenIndex(filepath.Join(t.TempDir(), "index"))
	require.NoError(t, err)
	t.Cleanup(func() { idx.Close() })

	dbProc := database.NewDocumentDBProcessor(db)
	writer := searchengine.NewWriter(idx)
	reader := searchengine.NewReader(idx)
	docs := documents.New(db, dbProc, writer, reader)

	s, err := New(db, docs)
	require.NoError(t, err)
	return s, db, docs
}

func TestNewLoadsExistingWatchesAndCounts(t *testing.T) {
	s, db, docs := newTestSync(t)
	state := s.Latest()
	assert.Empty(t, state.Watches, "Sync built before the watch existed should not see it")

	watch := database.Watch{Path: t.TempDir(), Status: database.WatchStatusActive}
	require.NoError(t, db.Create(&watch).Error)

	reloaded, err := New(db, docs)
	require.NoError(t, err)
	state = reloaded.Latest()
	require.Len(t, state.Watches, 1)
	assert.Equal(t, watch.ID, state.Watches[0].ID)
	assert.Equal(t, uint32(0), state.Watches[0].DocumentCount)
}

func TestHandleJobEventTracksLifecycle(t *testing.T) {
	s, _, _ := newTestSync(t)
	watch := database.Watch{ID: 1, Status: database.WatchStatusAdding}

	s.handleJobEvent(jobs.Event{
		Kind:  jobs.AddWatchStarted,
		Watch: watch,
		Report: jobs.Report{
			Watch:   watch,
			JobType: database.JobTypeScanWatchPath,
			Status:  database.JobStatusRunning,
		},
	})
	state := s.Latest()
	require.Len(t, state.Watches, 1)
	require.Len(t, state.JobReports, 1)

	finished := watch
	finished.Status = database.WatchStatusActive
	progress := jobs.Progress{Done: 3}
	s.handleJobEvent(jobs.Event{
		Kind:  jobs.AddWatchFinished,
		Watch: finished,
		Report: jobs.Report{
			Watch:    finished,
			Progress: progress,
			JobType:  database.JobTypeScanWatchPath,
			Status:   database.JobStatusFinished,
		},
	})

	state = s.Latest()
	require.Len(t, state.Watches, 1)
	assert.Equal(t, database.WatchStatusActive, state.Watches[0].Status)
	assert.Equal(t, uint32(3), state.Watches[0].DocumentCount)
	assert.Empty(t, state.JobReports, "finished job should no longer report live progress")
}

func TestHandleJobEventDeleteRemovesWatch(t *testing.T) {
	s, _, _ := newTestSync(t)
	watch := database.Watch{ID: 7, Status: database.WatchStatusDeleting}
	s.NotifyWatchAdded(watch)

	s.handleJobEvent(jobs.Event{Kind: jobs.DeleteWatchFinished, Watch: watch})

	state := s.Latest()
	assert.Empty(t, state.Watches)
}

func TestHandleDocumentEventAdjustsCountSaturatingAtZero(t *testing.T) {
	s, _, _ := newTestSync(t)
	watch := database.Watch{ID: 2, Status: database.WatchStatusActive}
	s.NotifyWatchAdded(watch)

	s.handleDocumentEvent(documents.Event{Kind: documents.DocumentDeleted, WatchID: 2})
	state := s.Latest()
	require.Len(t, state.Watches, 1)
	assert.Equal(t, uint32(0), state.Watches[0].DocumentCount, "count must not underflow")

	s.handleDocumentEvent(documents.Event{Kind: documents.DocumentAdded, WatchID: 2})
	s.handleDocumentEvent(documents.Event{Kind: documents.DocumentAdded, WatchID: 2})
	state = s.Latest()
	assert.Equal(t, uint32(2), state.Watches[0].DocumentCount)
}

func TestNotifyWatchAddedSignalsUpdated(t *testing.T) {
	s, _, _ := newTestSync(t)
	watch := database.Watch{ID: 9}

	s.NotifyWatchAdded(watch)

	select {
	case <-s.Updated():
	case <-time.After(time.Second):
		t.Fatal("expected Updated() to fire after NotifyWatchAdded")
	}
}
