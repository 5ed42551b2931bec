package watchservice

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"notebit/pkg/database"
	"notebit/pkg/documents"
	"notebit/pkg/gatekeeper"
	"notebit/pkg/jobs"
	"notebit/pkg/searchengine"
	"notebit/pkg/watcher"
	"notebit/pkg/watchstate"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func newTestService(t *testing.T) (*Service, context.Context) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&database.Watch{}, &database.Document{}, &database.Job{}))

	dbProc := database.NewDocumentDBProcessor(db)
	idx, err := searchengine.OpenIndex(filepath.Join(t.TempDir(), "index"))
	require.NoError(t, err)
	t.Cleanup(func() { idx.Close() })
	writer := searchengine.NewWriter(idx)
	reader := searchengine.NewReader(idx)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go dbProc.Run(ctx)
	go writer.Run(ctx)

	docs := documents.New(db, dbProc, writer, reader)
	gk := gatekeeper.New("", nil)

	fw, err := watcher.NewFileWatcher(gk, 64)
	require.NoError(t, err)
	go fw.Run(ctx)

	handler := watcher.NewEventHandler(fw.Events(), docs)
	go handler.Run(ctx)

	jobEvents := make(chan jobs.Event, 64)
	queue := jobs.NewQueue(db)
	manager := jobs.NewJobManager(db, queue, docs, gk, jobEvents, 4)
	go manager.Run(ctx)

	docEvents, unsubscribe := docs.Subscribe(64)
	t.Cleanup(unsubscribe)

	state, err := watchstate.New(db, docs)
	require.NoError(t, err)
	go state.Run(ctx, jobEvents, docEvents)

	return New(db, fw, manager, state), ctx
}

func TestAddWatchRejectsDuplicatePath(t *testing.T) {
	svc, ctx := newTestService(t)
	dir := t.TempDir()

	_, err := svc.AddWatch(ctx, dir)
	require.NoError(t, err)

	_, err = svc.AddWatch(ctx, dir)
	var wsErr *Error
	require.ErrorAs(t, err, &wsErr)
	assert.Equal(t, KindWatchAlreadyExists, wsErr.Kind)
}

func TestAddWatchRejectsParentChildRelationship(t *testing.T) {
	svc, ctx := newTestService(t)
	dir := t.TempDir()

	_, err := svc.AddWatch(ctx, dir)
	require.NoError(t, err)

	_, err = svc.AddWatch(ctx, filepath.Join(dir, "nested"))
	var wsErr *Error
	require.ErrorAs(t, err, &wsErr)
	assert.Equal(t, KindParentChildRelationship, wsErr.Kind)
}

func TestAddWatchScansAndActivates(t *testing.T) {
	svc, ctx := newTestService(t)
	dir := t.TempDir()
	writeMD(t, dir, "a.md", "# A\n\nhello\n")

	watch, err := svc.AddWatch(ctx, dir)
	require.NoError(t, err)
	assert.Equal(t, database.WatchStatusAdding, watch.Status)

	require.Eventually(t, func() bool {
		watches, err := svc.GetAllWatches()
		if err != nil || len(watches) != 1 {
			return false
		}
		return watches[0].Status == database.WatchStatusActive
	}, 2*time.Second, 10*time.Millisecond)

	require.Eventually(t, func() bool {
		state := svc.GetState()
		return len(state.Watches) == 1 && state.Watches[0].DocumentCount == 1
	}, 2*time.Second, 10*time.Millisecond)
}

func TestDeleteWatchRemovesRowEventually(t *testing.T) {
	svc, ctx := newTestService(t)
	dir := t.TempDir()
	writeMD(t, dir, "a.md", "# A\n")

	_, err := svc.AddWatch(ctx, dir)
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		watches, err := svc.GetAllWatches()
		return err == nil && len(watches) == 1 && watches[0].Status == database.WatchStatusActive
	}, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, svc.DeleteWatch(ctx, dir))

	require.Eventually(t, func() bool {
		watches, err := svc.GetAllWatches()
		return err == nil && len(watches) == 0
	}, 2*time.Second, 10*time.Millisecond)
}

func TestDeleteWatchNotExists(t *testing.T) {
	svc, ctx := newTestService(t)
	err := svc.DeleteWatch(ctx, t.TempDir())
	var wsErr *Error
	require.ErrorAs(t, err, &wsErr)
	assert.Equal(t, KindNotExists, wsErr.Kind)
}

func writeMD(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0644))
}
