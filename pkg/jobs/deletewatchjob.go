package jobs

import (
	"context"
	"fmt"
	"time"

	"notebit/pkg/database"
	"notebit/pkg/documents"
	"notebit/pkg/logger"

	"gorm.io/gorm"
)

// DeleteWatchJob tears a watch down: every document it owns is removed from
// both the metadata store and the search index, then the watch row itself
// goes away.
type DeleteWatchJob struct {
	db     *gorm.DB
	docs   *documents.Service
	events chan<- Event
}

func NewDeleteWatchJob(db *gorm.DB, docs *documents.Service, events chan<- Event) *DeleteWatchJob {
	return &DeleteWatchJob{db: db, docs: docs, events: events}
}

func (j *DeleteWatchJob) Start(ctx context.Context, watch database.Watch) error {
	start := time.Now()
	j.publish(DeleteWatchStarted, watch)

	if err := j.docs.DeleteDocumentsByWatchID(ctx, watch.ID); err != nil {
		return fmt.Errorf("jobs: delete watch %d: remove documents: %w", watch.ID, err)
	}

	if err := j.docs.CommitToSearchEngine(ctx); err != nil {
		return fmt.Errorf("jobs: commit after delete watch %d: %w", watch.ID, err)
	}

	if err := j.db.Unscoped().Delete(&database.Watch{}, watch.ID).Error; err != nil {
		return fmt.Errorf("jobs: delete watch %d: remove watch row: %w", watch.ID, err)
	}

	j.publish(DeleteWatchFinished, watch)
	logger.Info("jobs: deleted watch %d in %s", watch.ID, time.Since(start).Round(time.Second))
	return nil
}

func (j *DeleteWatchJob) publish(kind EventKind, watch database.Watch) {
	if j.events == nil {
		return
	}
	status := database.JobStatusRunning
	if kind == DeleteWatchFinished {
		status = database.JobStatusFinished
	}
	report := Report{Watch: watch, JobType: database.JobTypeDeleteWatch, Status: status}
	select {
	case j.events <- Event{Kind: kind, Watch: watch, Report: report}:
	default:
		logger.Warn("jobs: dropping progress event for watch %d, listener not keeping up", watch.ID)
	}
}
