package searchengine

import (
	"context"
	"fmt"

	"notebit/pkg/logger"
	"notebit/pkg/pathnorm"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/search/query"
)

type writerCommandKind int

const (
	writerCmdIndex writerCommandKind = iota
	writerCmdDeleteByPath
	writerCmdDeleteByWatchID
	writerCmdCommit
)

type writerCommand struct {
	kind    writerCommandKind
	id      string
	doc     map[string]interface{}
	watchID int64
	replyTo chan error
}

// Writer is the single-writer actor over the full-text index. All mutating
// access goes through its mailbox so concurrent stages never race on the
// same bleve.Index.
type Writer struct {
	index   bleve.Index
	mailbox chan writerCommand
}

// NewWriter creates a Writer over an already-open index. Run must be started
// in its own goroutine before any request method is called.
func NewWriter(index bleve.Index) *Writer {
	return &Writer{
		index:   index,
		mailbox: make(chan writerCommand, 4096),
	}
}

// Run processes commands strictly in receive order until ctx is canceled.
func (w *Writer) Run(ctx context.Context) {
	logger.Info("search index writer started")
	for {
		select {
		case cmd := <-w.mailbox:
			w.handle(cmd)
		case <-ctx.Done():
			logger.Info("search index writer stopped")
			return
		}
	}
}

func (w *Writer) handle(cmd writerCommand) {
	var err error
	switch cmd.kind {
	case writerCmdIndex:
		err = w.index.Index(cmd.id, cmd.doc)
	case writerCmdDeleteByPath:
		err = w.index.Delete(cmd.id)
	case writerCmdDeleteByWatchID:
		err = w.deleteByWatchID(cmd.watchID)
	case writerCmdCommit:
		// bleve auto-commits each Index/Delete/Batch call, so there is no
		// separate writer-side commit step; this is kept as a no-op command
		// so callers written against the actor's command surface (mirroring
		// the tantivy original's explicit commit) don't need special-casing.
	}

	select {
	case cmd.replyTo <- err:
	default:
		logger.Warn("searchengine writer: reply dropped, caller stopped listening")
	}
}

// deleteByWatchID removes every indexed document under watchID, paging
// through the match in deleteByWatchIDPageSize-sized batches so a watch with
// more hits than a single search page can return is still fully purged.
const deleteByWatchIDPageSize = 10_000

func (w *Writer) deleteByWatchID(watchID int64) error {
	inclusive := true
	q := query.NewNumericRangeInclusiveQuery(floatPtr(float64(watchID)), floatPtr(float64(watchID)), &inclusive, &inclusive)
	q.SetField(FieldWatchID)

	for {
		req := bleve.NewSearchRequestOptions(q, deleteByWatchIDPageSize, 0, false)
		req.Fields = []string{FieldPath}

		result, err := w.index.Search(req)
		if err != nil {
			return fmt.Errorf("searchengine: query documents for watch %d: %w", watchID, err)
		}
		if len(result.Hits) == 0 {
			return nil
		}

		batch := w.index.NewBatch()
		for _, hit := range result.Hits {
			batch.Delete(hit.ID)
		}
		if err := w.index.Batch(batch); err != nil {
			return fmt.Errorf("searchengine: delete documents for watch %d: %w", watchID, err)
		}

		if len(result.Hits) < deleteByWatchIDPageSize {
			return nil
		}
	}
}

func floatPtr(f float64) *float64 { return &f }

func send(ctx context.Context, mailbox chan writerCommand, cmd writerCommand) error {
	select {
	case mailbox <- cmd:
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case err := <-cmd.replyTo:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Index writes (or overwrites) src's document under its normalized path.
func (w *Writer) Index(ctx context.Context, src SourceDocument) error {
	doc, err := MakeSearchDocument(src)
	if err != nil {
		return err
	}
	id := pathnorm.Normalize(src.Path)
	return send(ctx, w.mailbox, writerCommand{
		kind:    writerCmdIndex,
		id:      id,
		doc:     doc,
		replyTo: make(chan error, 1),
	})
}

// DeleteByPath removes the document at path, if any.
func (w *Writer) DeleteByPath(ctx context.Context, path string) error {
	return send(ctx, w.mailbox, writerCommand{
		kind:    writerCmdDeleteByPath,
		id:      pathnorm.Normalize(path),
		replyTo: make(chan error, 1),
	})
}

// DeleteByWatchID removes every document belonging to watchID.
func (w *Writer) DeleteByWatchID(ctx context.Context, watchID int64) error {
	return send(ctx, w.mailbox, writerCommand{
		kind:    writerCmdDeleteByWatchID,
		watchID: watchID,
		replyTo: make(chan error, 1),
	})
}

// Commit is a no-op kept for parity with the mailbox's command surface; see
// the comment in handle for why bleve needs no explicit commit step.
func (w *Writer) Commit(ctx context.Context) error {
	return send(ctx, w.mailbox, writerCommand{
		kind:    writerCmdCommit,
		replyTo: make(chan error, 1),
	})
}
