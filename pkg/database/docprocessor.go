package database

import (
	"context"
	"errors"
	"strings"
	"time"

	"notebit/pkg/logger"
	"notebit/pkg/pathnorm"

	"gorm.io/gorm"
)

// ErrUniqueConstraintViolation is returned by Insert when a document already
// exists at the given path.
var ErrUniqueConstraintViolation = errors.New("document path already exists")

// docCommandKind discriminates the DocumentDB processor's mailbox commands.
type docCommandKind int

const (
	cmdInsert docCommandKind = iota
	cmdUpdateByPath
	cmdDeleteByPath
	cmdDeleteByWatchID
	cmdFindByPath
)

// docResult carries every possible processor reply shape. Exactly one of
// Document/err is meaningful per command kind; callers only read the field
// their issuing helper promises.
type docResult struct {
	doc *Document
	err error
}

// docCommand is a single mailbox message: a command plus a one-shot reply
// channel the processor is responsible for closing with exactly one send.
type docCommand struct {
	kind      docCommandKind
	watchID   uint
	path      string
	indexedAt *time.Time
	replyTo   chan docResult
}

// DocumentDBProcessor is the single-writer actor over the documents table.
// All mutating access to the documents table flows through its mailbox so
// writes are globally serialized without needing row or table locks; reads
// issued through the same mailbox are also serialized behind it, trading a
// little read concurrency for a single code path to reason about.
type DocumentDBProcessor struct {
	db      *gorm.DB
	mailbox chan docCommand
}

// NewDocumentDBProcessor creates a processor bound to db. Run must be started
// in its own goroutine before any request function is called against it.
func NewDocumentDBProcessor(db *gorm.DB) *DocumentDBProcessor {
	return &DocumentDBProcessor{
		db:      db,
		mailbox: make(chan docCommand, 4096),
	}
}

// Run processes commands strictly in receive order until ctx is canceled.
func (p *DocumentDBProcessor) Run(ctx context.Context) {
	for {
		select {
		case cmd := <-p.mailbox:
			p.handle(ctx, cmd)
		case <-ctx.Done():
			return
		}
	}
}

func (p *DocumentDBProcessor) handle(ctx context.Context, cmd docCommand) {
	var result docResult
	switch cmd.kind {
	case cmdInsert:
		result.doc, result.err = p.insert(cmd.watchID, cmd.path, cmd.indexedAt)
	case cmdUpdateByPath:
		result.doc, result.err = p.updateByPath(cmd.path, cmd.indexedAt)
	case cmdDeleteByPath:
		result.doc, result.err = p.deleteByPath(cmd.path)
	case cmdDeleteByWatchID:
		result.err = p.deleteByWatchID(cmd.watchID)
	case cmdFindByPath:
		result.doc, result.err = p.findByPath(cmd.path)
	}

	select {
	case cmd.replyTo <- result:
	case <-ctx.Done():
	default:
		// Reply channel is always buffered size 1 by the request helpers
		// below, so this branch only triggers if a caller stopped listening.
		logger.Warn("DocumentDBProcessor: reply dropped, caller stopped listening")
	}
}

func (p *DocumentDBProcessor) insert(watchID uint, path string, indexedAt *time.Time) (*Document, error) {
	normalized := pathnorm.Normalize(path)
	doc := Document{
		Path:      normalized,
		WatchID:   watchID,
		CreatedAt: time.Now().UTC(),
		IndexedAt: indexedAt,
	}
	if err := p.db.Create(&doc).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) || isUniqueConstraintErr(err) {
			return nil, ErrUniqueConstraintViolation
		}
		return nil, &DatabaseError{Op: "insert_document", Err: err}
	}
	return p.findByPath(normalized)
}

func (p *DocumentDBProcessor) updateByPath(path string, indexedAt *time.Time) (*Document, error) {
	normalized := pathnorm.Normalize(path)
	if err := p.db.Model(&Document{}).
		Where("path = ?", normalized).
		Update("indexed_at", indexedAt).Error; err != nil {
		return nil, &DatabaseError{Op: "update_document", Err: err}
	}
	return p.findByPath(normalized)
}

func (p *DocumentDBProcessor) deleteByPath(path string) (*Document, error) {
	normalized := pathnorm.Normalize(path)
	existing, err := p.findByPath(normalized)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		return nil, nil
	}
	if err := p.db.Unscoped().Where("path = ?", normalized).Delete(&Document{}).Error; err != nil {
		return nil, &DatabaseError{Op: "delete_document", Err: err}
	}
	return existing, nil
}

func (p *DocumentDBProcessor) deleteByWatchID(watchID uint) error {
	if err := p.db.Unscoped().Where("watch_id = ?", watchID).Delete(&Document{}).Error; err != nil {
		return &DatabaseError{Op: "delete_documents_by_watch_id", Err: err}
	}
	return nil
}

func (p *DocumentDBProcessor) findByPath(path string) (*Document, error) {
	normalized := pathnorm.Normalize(path)
	var doc Document
	err := p.db.Where("path = ?", normalized).First(&doc).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, &DatabaseError{Op: "find_document_by_path", Err: err}
	}
	return &doc, nil
}

func isUniqueConstraintErr(err error) bool {
	// gorm/sqlite surfaces constraint violations as plain driver errors;
	// match on the message since the sqlite3 driver does not export a typed
	// constraint-violation sentinel through the gorm dialector.
	if err == nil {
		return false
	}
	return strings.Contains(strings.ToLower(err.Error()), "unique constraint")
}

func newReplyChan() chan docResult {
	return make(chan docResult, 1)
}

func sendCommand(ctx context.Context, mailbox chan docCommand, cmd docCommand) (docResult, error) {
	select {
	case mailbox <- cmd:
	case <-ctx.Done():
		return docResult{}, ctx.Err()
	}

	select {
	case res := <-cmd.replyTo:
		return res, nil
	case <-ctx.Done():
		return docResult{}, ctx.Err()
	}
}

// Insert stores a new document under watchID at path. Returns
// ErrUniqueConstraintViolation if a document already exists at that path.
func (p *DocumentDBProcessor) Insert(ctx context.Context, watchID uint, path string, indexedAt *time.Time) (*Document, error) {
	res, err := sendCommand(ctx, p.mailbox, docCommand{
		kind:      cmdInsert,
		watchID:   watchID,
		path:      path,
		indexedAt: indexedAt,
		replyTo:   newReplyChan(),
	})
	if err != nil {
		return nil, err
	}
	return res.doc, res.err
}

// UpdateByPath sets indexed_at for the document at path and returns the
// updated row, or nil if no document exists at that path.
func (p *DocumentDBProcessor) UpdateByPath(ctx context.Context, path string, indexedAt time.Time) (*Document, error) {
	res, err := sendCommand(ctx, p.mailbox, docCommand{
		kind:      cmdUpdateByPath,
		path:      path,
		indexedAt: &indexedAt,
		replyTo:   newReplyChan(),
	})
	if err != nil {
		return nil, err
	}
	return res.doc, res.err
}

// DeleteByPath removes the document at path and returns the row that was
// deleted, or nil if no document existed there.
func (p *DocumentDBProcessor) DeleteByPath(ctx context.Context, path string) (*Document, error) {
	res, err := sendCommand(ctx, p.mailbox, docCommand{
		kind:    cmdDeleteByPath,
		path:    path,
		replyTo: newReplyChan(),
	})
	if err != nil {
		return nil, err
	}
	return res.doc, res.err
}

// DeleteByWatchID removes every document owned by watchID. Idempotent.
func (p *DocumentDBProcessor) DeleteByWatchID(ctx context.Context, watchID uint) error {
	res, err := sendCommand(ctx, p.mailbox, docCommand{
		kind:    cmdDeleteByWatchID,
		watchID: watchID,
		replyTo: newReplyChan(),
	})
	if err != nil {
		return err
	}
	return res.err
}

// FindByPath returns the document at path, or nil if none exists.
func (p *DocumentDBProcessor) FindByPath(ctx context.Context, path string) (*Document, error) {
	res, err := sendCommand(ctx, p.mailbox, docCommand{
		kind:    cmdFindByPath,
		path:    path,
		replyTo: newReplyChan(),
	})
	if err != nil {
		return nil, err
	}
	return res.doc, res.err
}
