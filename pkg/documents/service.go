// Package documents wires the metadata store and the full-text index
// together behind a single façade: every mutation touches both stores (or
// compensates when the second half fails) and every successful mutation is
// broadcast as an Event so other subsystems (the job pipeline, the UI layer)
// can react without polling either store directly.
package documents

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"notebit/pkg/database"
	"notebit/pkg/logger"
	"notebit/pkg/pathnorm"
	"notebit/pkg/searchengine"

	"gorm.io/gorm"
)

// Service is cloneable: every field is a shared handle (a *gorm.DB, mailbox
// actors, a broadcaster), so copying a Service by value is safe and cheap,
// mirroring the original's clone-shares-mailboxes façade.
type Service struct {
	db     *gorm.DB
	dbProc *database.DocumentDBProcessor
	writer *searchengine.Writer
	reader *searchengine.Reader
	events *broadcaster
}

// New builds a Service over an already-running DocumentDBProcessor and
// Writer/Reader pair. db is used only for read-only lookups that don't need
// to go through the single-writer mailbox, such as resolving a path's owning
// watch.
func New(db *gorm.DB, dbProc *database.DocumentDBProcessor, writer *searchengine.Writer, reader *searchengine.Reader) *Service {
	return &Service{
		db:     db,
		dbProc: dbProc,
		writer: writer,
		reader: reader,
		events: newBroadcaster(),
	}
}

// Subscribe returns a channel of every Event published from this point
// forward, and an unsubscribe function that must be called when the
// listener is done.
func (s *Service) Subscribe(bufferSize int) (<-chan Event, func()) {
	return s.events.Subscribe(bufferSize)
}

// AddDocumentWithWatch inserts path's metadata row under watchID, then
// builds and writes its search document. If indexing fails after the
// metadata insert succeeded, the metadata row is rolled back with a
// compensating delete so the two stores never drift out of sync.
func (s *Service) AddDocumentWithWatch(ctx context.Context, path string, watchID uint) error {
	modTime, err := modTimeOf(path)
	if err != nil {
		return fmt.Errorf("documents: stat %s: %w", path, err)
	}

	doc, err := s.dbProc.Insert(ctx, watchID, path, nil)
	if err != nil {
		if errors.Is(err, database.ErrUniqueConstraintViolation) {
			return ErrAlreadyExists
		}
		return fmt.Errorf("documents: insert metadata for %s: %w", path, err)
	}

	indexErr := s.writer.Index(ctx, searchengine.SourceDocument{
		Path:       path,
		WatchID:    watchID,
		CreatedAt:  doc.CreatedAt,
		ModifiedAt: modTime,
	})
	if indexErr != nil {
		if _, delErr := s.dbProc.DeleteByPath(ctx, path); delErr != nil {
			logger.Error("documents: compensating delete for %s failed after index error: %v", path, delErr)
		}
		return fmt.Errorf("documents: index %s: %w", path, indexErr)
	}

	now := time.Now().UTC()
	if _, err := s.dbProc.UpdateByPath(ctx, path, now); err != nil {
		logger.Error("documents: failed to stamp indexed_at for %s: %v", path, err)
	}

	s.events.publish(Event{Kind: DocumentAdded, Path: pathnorm.Normalize(path), WatchID: watchID})
	return nil
}

// AddDocument resolves the watch whose root contains path and delegates to
// AddDocumentWithWatch. Returns ErrNoWatchFound if no registered watch
// contains path.
func (s *Service) AddDocument(ctx context.Context, path string) error {
	watch, err := s.findOwningWatch(path)
	if err != nil {
		return err
	}
	if watch == nil {
		return ErrNoWatchFound
	}
	return s.AddDocumentWithWatch(ctx, path, watch.ID)
}

// UpdateDocument resolves the watch whose root contains path and delegates
// to UpdateDocumentWithWatchID. Returns ErrNoWatchFound if no registered
// watch contains path.
func (s *Service) UpdateDocument(ctx context.Context, path string) error {
	watch, err := s.findOwningWatch(path)
	if err != nil {
		return err
	}
	if watch == nil {
		return ErrNoWatchFound
	}
	return s.UpdateDocumentWithWatchID(ctx, path, watch.ID)
}

// findOwningWatch returns the longest-matching registered Watch whose Path
// is a directory ancestor of path, or nil if none match. This is a plain
// read against the metadata store rather than a mailbox round trip: watch
// registration is rare compared to document churn, and reads don't need the
// single-writer serialization the mailbox exists for.
func (s *Service) findOwningWatch(path string) (*database.Watch, error) {
	normalized := pathnorm.Normalize(path)

	var watches []database.Watch
	if err := s.db.Find(&watches).Error; err != nil {
		return nil, fmt.Errorf("documents: list watches: %w", err)
	}

	var best *database.Watch
	for i := range watches {
		w := &watches[i]
		if !isPathUnder(normalized, w.Path) {
			continue
		}
		if best == nil || len(w.Path) > len(best.Path) {
			best = w
		}
	}
	return best, nil
}

func isPathUnder(path, root string) bool {
	if path == root {
		return true
	}
	return strings.HasPrefix(path, strings.TrimSuffix(root, "/")+"/")
}

// UpdateDocumentWithWatchID re-indexes an already-known document: the stale
// search document is deleted before the fresh one is written so a document
// that shrinks (loses tags, say) doesn't retain stale field values, then the
// metadata row's indexed_at is stamped to now. Returns ErrNotExists if no
// metadata row exists at path.
func (s *Service) UpdateDocumentWithWatchID(ctx context.Context, path string, watchID uint) error {
	existing, err := s.dbProc.FindByPath(ctx, path)
	if err != nil {
		return fmt.Errorf("documents: find metadata for %s: %w", path, err)
	}
	if existing == nil {
		return ErrNotExists
	}

	modTime, err := modTimeOf(path)
	if err != nil {
		return fmt.Errorf("documents: stat %s: %w", path, err)
	}

	if err := s.writer.DeleteByPath(ctx, path); err != nil {
		return fmt.Errorf("documents: delete stale index entry for %s: %w", path, err)
	}
	if err := s.writer.Index(ctx, searchengine.SourceDocument{
		Path:       path,
		WatchID:    watchID,
		CreatedAt:  existing.CreatedAt,
		ModifiedAt: modTime,
	}); err != nil {
		return fmt.Errorf("documents: re-index %s: %w", path, err)
	}

	if _, err := s.dbProc.UpdateByPath(ctx, path, time.Now().UTC()); err != nil {
		return fmt.Errorf("documents: stamp indexed_at for %s: %w", path, err)
	}

	s.events.publish(Event{Kind: DocumentUpdated, Path: pathnorm.Normalize(path), WatchID: watchID})
	return nil
}

// DeleteDocument removes path's metadata row and, if one existed, its search
// document. Returns ErrNotExists if no metadata row exists at path.
func (s *Service) DeleteDocument(ctx context.Context, path string) error {
	deleted, err := s.dbProc.DeleteByPath(ctx, path)
	if err != nil {
		return fmt.Errorf("documents: delete metadata for %s: %w", path, err)
	}
	if deleted == nil {
		return ErrNotExists
	}

	if err := s.writer.DeleteByPath(ctx, path); err != nil {
		return fmt.Errorf("documents: delete index entry for %s: %w", path, err)
	}

	s.events.publish(Event{Kind: DocumentDeleted, Path: pathnorm.Normalize(path), WatchID: deleted.WatchID})
	return nil
}

// DeleteDocumentsByWatchID removes every document owned by watchID from
// both stores. No per-document events are emitted; callers that need to
// react to a watch's removal should listen for the watch lifecycle instead.
func (s *Service) DeleteDocumentsByWatchID(ctx context.Context, watchID uint) error {
	if err := s.dbProc.DeleteByWatchID(ctx, watchID); err != nil {
		return fmt.Errorf("documents: delete metadata for watch %d: %w", watchID, err)
	}
	if err := s.writer.DeleteByWatchID(ctx, int64(watchID)); err != nil {
		return fmt.Errorf("documents: delete index entries for watch %d: %w", watchID, err)
	}
	return nil
}

// CommitToSearchEngine makes every write issued so far visible to readers.
func (s *Service) CommitToSearchEngine(ctx context.Context) error {
	return s.writer.Commit(ctx)
}

// FindDocumentByPath returns the metadata row at path, or nil if none exists.
func (s *Service) FindDocumentByPath(ctx context.Context, path string) (*database.Document, error) {
	return s.dbProc.FindByPath(ctx, path)
}

// FindDocumentsByWatchID returns every metadata row owned by watchID. The
// original streams rows one at a time over an async channel; a plain slice
// is used here instead since per-watch row counts are small enough that
// buffering them costs nothing and callers don't have to manage a consumer
// loop for the common case.
func (s *Service) FindDocumentsByWatchID(watchID uint) ([]database.Document, error) {
	var docs []database.Document
	if err := s.db.Where("watch_id = ?", watchID).Find(&docs).Error; err != nil {
		return nil, fmt.Errorf("documents: find documents for watch %d: %w", watchID, err)
	}
	return docs, nil
}

// SearchDocuments runs a free-text query against the full-text index.
func (s *Service) SearchDocuments(q string, sort searchengine.Sort, offset, limit int) (searchengine.SearchResults, error) {
	return s.reader.SearchDocument(q, sort, offset, limit)
}

// SearchDocumentsWithTags runs a free-text query ANDed with a tag filter.
func (s *Service) SearchDocumentsWithTags(q string, tags []string, sort searchengine.Sort, offset, limit int) (searchengine.SearchResults, error) {
	return s.reader.SearchDocumentWithTags(q, tags, sort, offset, limit)
}

// GetAllDocuments returns every indexed document, most recently modified first.
func (s *Service) GetAllDocuments(offset, limit int) (searchengine.SearchResults, error) {
	return s.reader.GetAllDocuments(offset, limit)
}

// CountDocumentsUnderPath counts indexed documents nested under path.
func (s *Service) CountDocumentsUnderPath(path string) (uint32, error) {
	return s.reader.CountDocumentsUnderPath(path)
}

func modTimeOf(path string) (time.Time, error) {
	info, err := os.Stat(path)
	if err != nil {
		return time.Time{}, err
	}
	return info.ModTime().UTC(), nil
}
