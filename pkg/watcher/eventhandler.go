package watcher

import (
	"context"
	"errors"

	"notebit/pkg/documents"
	"notebit/pkg/logger"
)

// EventHandler applies FileWatcher events to the document service, committing
// the search index after every successful Created, Modified or Removed
// application.
type EventHandler struct {
	events <-chan Event
	docs   *documents.Service
}

// NewEventHandler subscribes to events and applies them through docs.
func NewEventHandler(events <-chan Event, docs *documents.Service) *EventHandler {
	return &EventHandler{events: events, docs: docs}
}

// Run consumes events until the channel is closed or ctx is canceled.
func (h *EventHandler) Run(ctx context.Context) {
	logger.Info("watch event handler started")
	for {
		select {
		case event, ok := <-h.events:
			if !ok {
				logger.Info("watch event handler stopped: event channel closed")
				return
			}
			h.apply(ctx, event)
		case <-ctx.Done():
			logger.Info("watch event handler stopped")
			return
		}
	}
}

func (h *EventHandler) apply(ctx context.Context, event Event) {
	switch event.Kind {
	case Created:
		h.applyCreated(ctx, event.Path)
	case Modified:
		h.applyModified(ctx, event.Path)
	case Removed:
		h.applyRemoved(ctx, event.Path)
	}
}

func (h *EventHandler) applyCreated(ctx context.Context, path string) {
	err := h.docs.AddDocument(ctx, path)
	switch {
	case err == nil:
		if err := h.docs.CommitToSearchEngine(ctx); err != nil {
			logger.Error("watch event handler: commit after create %s: %v", path, err)
		}
	case errors.Is(err, documents.ErrAlreadyExists), errors.Is(err, documents.ErrNoWatchFound):
		// ignored: the document is already tracked, or no watch claims this
		// path (a race with watch removal)
	default:
		logger.Error("watch event handler: error adding document %s: %v", path, err)
	}
}

func (h *EventHandler) applyModified(ctx context.Context, path string) {
	err := h.docs.UpdateDocument(ctx, path)
	switch {
	case err == nil:
		if err := h.docs.CommitToSearchEngine(ctx); err != nil {
			logger.Error("watch event handler: commit after update %s: %v", path, err)
		}
	case errors.Is(err, documents.ErrNoWatchFound):
		// ignored: no watch claims this path
	case errors.Is(err, documents.ErrNotExists):
		logger.Warn("watch event handler: document %s does not exist", path)
	default:
		logger.Error("watch event handler: error updating document %s: %v", path, err)
	}
}

func (h *EventHandler) applyRemoved(ctx context.Context, path string) {
	err := h.docs.DeleteDocument(ctx, path)
	switch {
	case err == nil:
		if err := h.docs.CommitToSearchEngine(ctx); err != nil {
			logger.Error("watch event handler: commit after delete %s: %v", path, err)
		}
	case errors.Is(err, documents.ErrNotExists):
		// ignored
	default:
		logger.Error("watch event handler: error deleting document %s: %v", path, err)
	}
}
