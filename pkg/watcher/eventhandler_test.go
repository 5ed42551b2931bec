package watcher

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"notebit/pkg/database"
	"notebit/pkg/documents"
	"notebit/pkg/searchengine"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func newTestDocsService(t *testing.T) (*documents.Service, *database.Watch, context.Context) {
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

	return documents.New(db, dbProc, writer, reader), watch, ctx
}

func TestEventHandlerAppliesCreatedAndCommits(t *testing.T) {
	docs, watch, ctx := newTestDocsService(t)
	path := filepath.Join(watch.Path, "a.md")
	require.NoError(t, os.WriteFile(path, []byte("# Hi\n"), 0644))

	events := make(chan Event, 1)
	handler := NewEventHandler(events, docs)
	go handler.Run(ctx)

	events <- Event{Kind: Created, Path: path}

	require.Eventually(t, func() bool {
		doc, err := docs.FindDocumentByPath(ctx, path)
		return err == nil && doc != nil
	}, 2*time.Second, 10*time.Millisecond)
}

func TestEventHandlerAppliesRemoved(t *testing.T) {
	docs, watch, ctx := newTestDocsService(t)
	path := filepath.Join(watch.Path, "a.md")
	require.NoError(t, os.WriteFile(path, []byte("# Hi\n"), 0644))
	require.NoError(t, docs.AddDocument(ctx, path))

	events := make(chan Event, 1)
	handler := NewEventHandler(events, docs)
	go handler.Run(ctx)

	require.NoError(t, os.Remove(path))
	events <- Event{Kind: Removed, Path: path}

	require.Eventually(t, func() bool {
		doc, err := docs.FindDocumentByPath(ctx, path)
		return err == nil && doc == nil
	}, 2*time.Second, 10*time.Millisecond)
}

func TestEventHandlerIgnoresDuplicateCreate(t *testing.T) {
	docs, watch, ctx := newTestDocsService(t)
	path := filepath.Join(watch.Path, "a.md")
	require.NoError(t, os.WriteFile(path, []byte("# Hi\n"), 0644))
	require.NoError(t, docs.AddDocument(ctx, path))

	events := make(chan Event, 1)
	handler := NewEventHandler(events, docs)
	go handler.Run(ctx)

	events <- Event{Kind: Created, Path: path}
	time.Sleep(100 * time.Millisecond)

	doc, err := docs.FindDocumentByPath(ctx, path)
	require.NoError(t, err)
	assert.NotNil(t, doc)
}
