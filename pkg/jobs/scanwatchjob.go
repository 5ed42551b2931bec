package jobs

import (
	"context"
	"fmt"
	"sync"
	"time"

	"notebit/pkg/database"
	"notebit/pkg/documents"
	"notebit/pkg/gatekeeper"
	"notebit/pkg/logger"

	"github.com/dustin/go-humanize"
	"gorm.io/gorm"
)

// ScanWatchJob walks a newly added watch's directory tree, registering every
// eligible file the metadata store doesn't already know about.
type ScanWatchJob struct {
	db          *gorm.DB
	docs        *documents.Service
	gatekeeper  *gatekeeper.Gatekeeper
	events      chan<- Event
	parallelism int
}

// NewScanWatchJob builds a ScanWatchJob. events may be nil if no listener
// cares about progress.
func NewScanWatchJob(db *gorm.DB, docs *documents.Service, gk *gatekeeper.Gatekeeper, events chan<- Event, parallelism int) *ScanWatchJob {
	return &ScanWatchJob{db: db, docs: docs, gatekeeper: gk, events: events, parallelism: parallelism}
}

// Start scans watch.Path, fanning the directory walk out to
// addDocumentsWorkerCount(parallelism) concurrent writers, then commits the
// index and marks the watch Active.
func (j *ScanWatchJob) Start(ctx context.Context, watch database.Watch) error {
	start := time.Now()
	progress := &Progress{}

	j.publish(AddWatchStarted, watch, progress)

	paths := make(chan string, 1024)
	var wg sync.WaitGroup
	var scanErr error

	wg.Add(1)
	go func() {
		defer wg.Done()
		scanErr = ScanDirectory(ctx, watch.Path, j.gatekeeper, paths, progress)
	}()

	workerCount := addDocumentsWorkerCount(j.parallelism)
	wg.Add(workerCount)
	for i := 0; i < workerCount; i++ {
		go func() {
			defer wg.Done()
			AddDocuments(ctx, j.docs, watch.ID, paths, progress)
		}()
	}

	done := make(chan struct{})
	go func() { wg.Wait(); close(done) }()
	j.reportUntil(done, watch, progress)

	if scanErr != nil {
		return fmt.Errorf("jobs: scan watch %d: %w", watch.ID, scanErr)
	}

	if err := j.docs.CommitToSearchEngine(ctx); err != nil {
		return fmt.Errorf("jobs: commit after scan watch %d: %w", watch.ID, err)
	}

	watch.Status = database.WatchStatusActive
	if err := j.db.Model(&database.Watch{}).Where("id = ?", watch.ID).Update("status", database.WatchStatusActive).Error; err != nil {
		return fmt.Errorf("jobs: mark watch %d active: %w", watch.ID, err)
	}

	final := progress.Snapshot()
	j.publish(AddWatchFinished, watch, progress)
	logger.Info("jobs: finished scan of watch %d in %s (%s documents)", watch.ID, time.Since(start).Round(time.Second), humanize.Comma(int64(final.Done)))
	return nil
}

// reportUntil periodically publishes a running-progress event until done is
// closed. A ticker is a deliberate simplification of the original's
// event-per-increment reporting: UI consumers only need a progress bar to
// move smoothly, not one update per file.
func (j *ScanWatchJob) reportUntil(done <-chan struct{}, watch database.Watch, progress *Progress) {
	ticker := time.NewTicker(200 * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			j.publish(AddWatchProgressed, watch, progress)
		case <-done:
			return
		}
	}
}

func (j *ScanWatchJob) publish(kind EventKind, watch database.Watch, progress *Progress) {
	if j.events == nil {
		return
	}
	report := Report{Watch: watch, Progress: progress.Snapshot(), JobType: database.JobTypeScanWatchPath, Status: database.JobStatusRunning}
	if kind == AddWatchFinished {
		report.Status = database.JobStatusFinished
	}
	select {
	case j.events <- Event{Kind: kind, Watch: watch, Report: report}:
	default:
		logger.Warn("jobs: dropping progress event for watch %d, listener not keeping up", watch.ID)
	}
}
