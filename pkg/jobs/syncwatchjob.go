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

	"gorm.io/gorm"
)

// SyncWatchJob reconciles an existing watch against the filesystem: documents
// whose files moved or changed since the last sync get updated or removed,
// and files that showed up while the app wasn't running get added.
type SyncWatchJob struct {
	db          *gorm.DB
	docs        *documents.Service
	gatekeeper  *gatekeeper.Gatekeeper
	events      chan<- Event
	parallelism int
}

func NewSyncWatchJob(db *gorm.DB, docs *documents.Service, gk *gatekeeper.Gatekeeper, events chan<- Event, parallelism int) *SyncWatchJob {
	return &SyncWatchJob{db: db, docs: docs, gatekeeper: gk, events: events, parallelism: parallelism}
}

// Start reconciles watch. GetDocuments is deliberately run to completion
// before the scan/update/add fan-out is spawned: it holds a read over the
// documents table, and starting the rest of the pipeline concurrently with
// that read risks a long-running transaction colliding with the writers the
// scan itself will spawn, which SQLite reports back as "database is locked".
func (j *SyncWatchJob) Start(ctx context.Context, watch database.Watch) error {
	start := time.Now()
	progress := &Progress{}
	j.publish(SyncWatchStarted, watch, progress)

	rows, err := GetDocuments(j.docs, watch.ID)
	if err != nil {
		return fmt.Errorf("jobs: sync watch %d: get documents: %w", watch.ID, err)
	}
	progress.Total = uint32(len(rows))

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

	wg.Add(1)
	go func() {
		defer wg.Done()
		UpdateDocuments(ctx, j.docs, j.gatekeeper, rows, progress)
	}()

	done := make(chan struct{})
	go func() { wg.Wait(); close(done) }()
	j.reportUntil(done, watch, progress)

	if scanErr != nil {
		return fmt.Errorf("jobs: sync watch %d: scan: %w", watch.ID, scanErr)
	}

	if err := j.docs.CommitToSearchEngine(ctx); err != nil {
		return fmt.Errorf("jobs: commit after sync watch %d: %w", watch.ID, err)
	}

	watch.Status = database.WatchStatusActive
	if err := j.db.Model(&database.Watch{}).Where("id = ?", watch.ID).Update("status", database.WatchStatusActive).Error; err != nil {
		return fmt.Errorf("jobs: mark watch %d active: %w", watch.ID, err)
	}

	final := progress.Snapshot()
	j.publish(SyncWatchFinished, watch, progress)
	logger.Info("jobs: finished sync of watch %d in %s (%d added/updated, %d failed)", watch.ID, time.Since(start).Round(time.Second), final.Done, final.Failed)
	return nil
}

func (j *SyncWatchJob) reportUntil(done <-chan struct{}, watch database.Watch, progress *Progress) {
	ticker := time.NewTicker(200 * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			j.publish(SyncWatchProgressed, watch, progress)
		case <-done:
			return
		}
	}
}

func (j *SyncWatchJob) publish(kind EventKind, watch database.Watch, progress *Progress) {
	if j.events == nil {
		return
	}
	report := Report{Watch: watch, Progress: progress.Snapshot(), JobType: database.JobTypeSyncWatch, Status: database.JobStatusRunning}
	if kind == SyncWatchFinished {
		report.Status = database.JobStatusFinished
	}
	select {
	case j.events <- Event{Kind: kind, Watch: watch, Report: report}:
	default:
		logger.Warn("jobs: dropping progress event for watch %d, listener not keeping up", watch.ID)
	}
}
