package documents

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"notebit/pkg/database"
	"notebit/pkg/searchengine"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func newTestService(t *testing.T) (*Service, *database.Watch, context.Context) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&database.Watch{}, &database.Document{}, &database.Job{}))

	watch := &database.Watch{Path: t.TempDir(), Status: database.WatchStatusActive}
	require.NoError(t, db.Create(watch).Error)

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

	return New(db, dbProc, writer, reader), watch, ctx
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestAddDocumentWithWatchEmitsEventAndIndexes(t *testing.T) {
	svc, watch, ctx := newTestService(t)
	events, unsubscribe := svc.Subscribe(4)
	defer unsubscribe()

	path := writeFile(t, watch.Path, "a.md", "# Title\n\nhello world\n")
	require.NoError(t, svc.AddDocumentWithWatch(ctx, path, watch.ID))

	select {
	case ev := <-events:
		assert.Equal(t, DocumentAdded, ev.Kind)
		assert.Equal(t, watch.ID, ev.WatchID)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for DocumentAdded event")
	}

	doc, err := svc.FindDocumentByPath(ctx, path)
	require.NoError(t, err)
	require.NotNil(t, doc)
	require.NotNil(t, doc.IndexedAt)

	results, err := svc.SearchDocuments("hello", searchengine.SortRelevance, 0, 10)
	require.NoError(t, err)
	assert.Equal(t, 1, results.Count)
}

func TestAddDocumentWithWatchDuplicateReturnsAlreadyExists(t *testing.T) {
	svc, watch, ctx := newTestService(t)
	path := writeFile(t, watch.Path, "a.md", "# T\n")
	require.NoError(t, svc.AddDocumentWithWatch(ctx, path, watch.ID))

	err := svc.AddDocumentWithWatch(ctx, path, watch.ID)
	assert.ErrorIs(t, err, ErrAlreadyExists)
}

func TestAddDocumentResolvesOwningWatch(t *testing.T) {
	svc, watch, ctx := newTestService(t)
	path := writeFile(t, watch.Path, "a.md", "# T\n")

	require.NoError(t, svc.AddDocument(ctx, path))

	doc, err := svc.FindDocumentByPath(ctx, path)
	require.NoError(t, err)
	require.NotNil(t, doc)
	assert.Equal(t, watch.ID, doc.WatchID)
}

func TestAddDocumentNoWatchFound(t *testing.T) {
	svc, _, ctx := newTestService(t)
	orphan := filepath.Join(t.TempDir(), "orphan.md")
	require.NoError(t, os.WriteFile(orphan, []byte("# T\n"), 0644))

	err := svc.AddDocument(ctx, orphan)
	assert.ErrorIs(t, err, ErrNoWatchFound)
}

func TestUpdateDocumentWithWatchIDNotExists(t *testing.T) {
	svc, watch, ctx := newTestService(t)
	path := writeFile(t, watch.Path, "missing.md", "# T\n")

	err := svc.UpdateDocumentWithWatchID(ctx, path, watch.ID)
	assert.ErrorIs(t, err, ErrNotExists)
}

func TestUpdateDocumentWithWatchIDReindexes(t *testing.T) {
	svc, watch, ctx := newTestService(t)
	path := writeFile(t, watch.Path, "a.md", "# Old\n\noriginal body\n")
	require.NoError(t, svc.AddDocumentWithWatch(ctx, path, watch.ID))

	require.NoError(t, os.WriteFile(path, []byte("# New\n\nupdated body\n"), 0644))
	require.NoError(t, svc.UpdateDocumentWithWatchID(ctx, path, watch.ID))

	results, err := svc.SearchDocuments("New", searchengine.SortRelevance, 0, 10)
	require.NoError(t, err)
	assert.Equal(t, 1, results.Count)

	stale, err := svc.SearchDocuments("original", searchengine.SortRelevance, 0, 10)
	require.NoError(t, err)
	assert.Equal(t, 0, stale.Count)
}

func TestDeleteDocumentRemovesFromBothStores(t *testing.T) {
	svc, watch, ctx := newTestService(t)
	events, unsubscribe := svc.Subscribe(4)
	defer unsubscribe()

	path := writeFile(t, watch.Path, "a.md", "# T\n\nbody\n")
	require.NoError(t, svc.AddDocumentWithWatch(ctx, path, watch.ID))
	<-events // drain the add event

	require.NoError(t, svc.DeleteDocument(ctx, path))

	select {
	case ev := <-events:
		assert.Equal(t, DocumentDeleted, ev.Kind)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for DocumentDeleted event")
	}

	doc, err := svc.FindDocumentByPath(ctx, path)
	require.NoError(t, err)
	assert.Nil(t, doc)

	count, err := svc.CountDocumentsUnderPath(watch.Path)
	require.NoError(t, err)
	assert.Equal(t, uint32(0), count)
}

func TestDeleteDocumentNotExists(t *testing.T) {
	svc, watch, ctx := newTestService(t)
	path := writeFile(t, watch.Path, "missing.md", "# T\n")

	err := svc.DeleteDocument(ctx, path)
	assert.ErrorIs(t, err, ErrNotExists)
}

func TestDeleteDocumentsByWatchIDRemovesAllNoEvents(t *testing.T) {
	svc, watch, ctx := newTestService(t)
	for _, name := range []string{"a.md", "b.md"} {
		path := writeFile(t, watch.Path, name, "# "+name+"\n")
		require.NoError(t, svc.AddDocumentWithWatch(ctx, path, watch.ID))
	}

	events, unsubscribe := svc.Subscribe(8)
	defer unsubscribe()

	require.NoError(t, svc.DeleteDocumentsByWatchID(ctx, watch.ID))

	select {
	case ev := <-events:
		t.Fatalf("expected no per-document event, got %v", ev)
	case <-time.After(100 * time.Millisecond):
	}

	docs, err := svc.FindDocumentsByWatchID(watch.ID)
	require.NoError(t, err)
	assert.Empty(t, docs)

	count, err := svc.CountDocumentsUnderPath(watch.Path)
	require.NoError(t, err)
	assert.Equal(t, uint32(0), count)
}
