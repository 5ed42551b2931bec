package jobs

import (
	"context"
	"errors"
	"os"
	"path/filepath"

	"notebit/pkg/database"
	"notebit/pkg/documents"
	"notebit/pkg/gatekeeper"
	"notebit/pkg/logger"
)

// ScanDirectory walks root recursively, sending every gatekeeper-eligible
// path to paths. It never descends into a directory the gatekeeper already
// classifies as a package directory, since nothing under one is ever
// eligible and walking it just burns time on node_modules-sized trees.
func ScanDirectory(ctx context.Context, root string, gk *gatekeeper.Gatekeeper, paths chan<- string, progress *Progress) error {
	defer close(paths)

	return filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if d.IsDir() {
			if path != root && gk.IsPackageDir(path) {
				return filepath.SkipDir
			}
			return nil
		}

		if !gk.IsEligible(path) {
			return nil
		}

		progress.addTotal()
		select {
		case paths <- path:
		case <-ctx.Done():
			return ctx.Err()
		}
		return nil
	})
}

// GetDocuments returns every metadata row owned by watchID. Grounded on the
// original's streaming get_documents task, simplified to a single slice
// since pkg/documents.FindDocumentsByWatchID already makes the same choice.
func GetDocuments(docs *documents.Service, watchID uint) ([]database.Document, error) {
	return docs.FindDocumentsByWatchID(watchID)
}

// AddDocuments drains paths, registering each one through docs. Duplicate
// and no-watch-found errors are expected races (a path already registered by
// an earlier add, or a watch being torn down concurrently) and are not
// counted as failures; anything else increments Failed.
func AddDocuments(ctx context.Context, docs *documents.Service, watchID uint, paths <-chan string, progress *Progress) {
	for path := range paths {
		select {
		case <-ctx.Done():
			return
		default:
		}

		err := docs.AddDocumentWithWatch(ctx, path, watchID)
		switch {
		case err == nil:
			progress.addDone()
		case errors.Is(err, documents.ErrAlreadyExists), errors.Is(err, documents.ErrNoWatchFound):
			// not counted as failure: expected races with concurrent scans/deletes
		default:
			logger.Warn("jobs: failed to register document %s: %v", path, err)
			progress.addFailed()
		}
	}
}

// UpdateDocuments reconciles already-known documents against the
// filesystem: a document whose file vanished (or is no longer gatekeeper
// eligible) is deleted; one whose file is newer than its last indexed_at is
// re-indexed; everything else is left alone.
func UpdateDocuments(ctx context.Context, docs *documents.Service, gk *gatekeeper.Gatekeeper, rows []database.Document, progress *Progress) {
	for _, row := range rows {
		select {
		case <-ctx.Done():
			return
		default:
		}

		if !gk.IsEligible(row.Path) {
			if err := docs.DeleteDocument(ctx, row.Path); err != nil && !errors.Is(err, documents.ErrNotExists) {
				logger.Warn("jobs: failed to delete stale document %s: %v", row.Path, err)
			}
			continue
		}

		info, err := os.Stat(row.Path)
		if err != nil {
			logger.Warn("jobs: failed to stat %s: %v", row.Path, err)
			continue
		}
		modTime := info.ModTime().UTC()

		if row.IndexedAt != nil && !row.IndexedAt.Before(modTime) {
			continue
		}

		if err := docs.UpdateDocumentWithWatchID(ctx, row.Path, row.WatchID); err != nil {
			logger.Warn("jobs: failed to update document %s: %v", row.Path, err)
			progress.addFailed()
			continue
		}
		progress.addDone()
	}
}
