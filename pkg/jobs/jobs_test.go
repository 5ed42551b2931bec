package jobs

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"notebit/pkg/database"
	"notebit/pkg/documents"
	"notebit/pkg/gatekeeper"
	"notebit/pkg/searchengine"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func newTestEnv(t *testing.T) (*gorm.DB, *documents.Service, *gatekeeper.Gatekeeper, context.Context) {
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

	return db, docs, gk, ctx
}

func createWatch(t *testing.T, db *gorm.DB, path string) database.Watch {
	t.Helper()
	watch := database.Watch{Path: path, Status: database.WatchStatusAdding}
	require.NoError(t, db.Create(&watch).Error)
	return watch
}

func writeMarkdown(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}
