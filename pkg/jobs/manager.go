package jobs

import (
	"context"
	"fmt"

	"notebit/pkg/database"
	"notebit/pkg/documents"
	"notebit/pkg/gatekeeper"
	"notebit/pkg/logger"

	"gorm.io/gorm"
)

type commandKind int

const (
	cmdRunNext commandKind = iota
	cmdEnqueueScanWatch
	cmdEnqueueDeleteWatch
	cmdEnqueueSyncWatch
	cmdJobCompleted
	cmdCancelForWatch
)

type command struct {
	kind    commandKind
	watchID uint
	jobID   uint
}

// runningJob tracks the one job JobManager ever has in flight at a time, and
// the cancel func lets a delete request abort a job still scanning the
// watch being torn down.
type runningJob struct {
	jobID   uint
	watchID uint
	cancel  context.CancelFunc
}

// JobManager serializes background work against a watch's documents: only
// one scan/sync/delete job runs at a time, queued and persisted so a crash
// mid-scan resumes on the next startup instead of silently losing work.
type JobManager struct {
	db          *gorm.DB
	queue       *Queue
	docs        *documents.Service
	gatekeeper  *gatekeeper.Gatekeeper
	events      chan<- Event
	parallelism int

	commands chan command
	current  *runningJob
}

func NewJobManager(db *gorm.DB, queue *Queue, docs *documents.Service, gk *gatekeeper.Gatekeeper, events chan<- Event, parallelism int) *JobManager {
	return &JobManager{
		db:          db,
		queue:       queue,
		docs:        docs,
		gatekeeper:  gk,
		events:      events,
		parallelism: parallelism,
		commands:    make(chan command, 64),
	}
}

// EnqueueScanWatch queues a scan job for a newly added watch.
func (m *JobManager) EnqueueScanWatch(watchID uint) {
	m.commands <- command{kind: cmdEnqueueScanWatch, watchID: watchID}
}

// EnqueueSyncWatch queues a reconciliation job for an existing watch,
// canceling any job currently running against the same watch first.
func (m *JobManager) EnqueueSyncWatch(watchID uint) {
	m.commands <- command{kind: cmdCancelForWatch, watchID: watchID}
	m.commands <- command{kind: cmdEnqueueSyncWatch, watchID: watchID}
}

// EnqueueDeleteWatch queues a teardown job, canceling any job currently
// running against the same watch first.
func (m *JobManager) EnqueueDeleteWatch(watchID uint) {
	m.commands <- command{kind: cmdCancelForWatch, watchID: watchID}
	m.commands <- command{kind: cmdEnqueueDeleteWatch, watchID: watchID}
}

// Run drives the command mailbox until ctx is canceled. Call it from its own
// goroutine.
func (m *JobManager) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case cmd := <-m.commands:
			m.handle(ctx, cmd)
		}
	}
}

func (m *JobManager) handle(ctx context.Context, cmd command) {
	switch cmd.kind {
	case cmdEnqueueScanWatch:
		if _, err := m.queue.Push(database.JobTypeScanWatchPath, cmd.watchID); err != nil {
			logger.Error("jobs: enqueue scan for watch %d: %v", cmd.watchID, err)
			return
		}
		m.tryStartNext(ctx)
	case cmdEnqueueSyncWatch:
		if _, err := m.queue.Push(database.JobTypeSyncWatch, cmd.watchID); err != nil {
			logger.Error("jobs: enqueue sync for watch %d: %v", cmd.watchID, err)
			return
		}
		m.tryStartNext(ctx)
	case cmdEnqueueDeleteWatch:
		if err := m.queue.DeletePendingJobsByWatchID(cmd.watchID); err != nil {
			logger.Error("jobs: clear pending jobs for watch %d: %v", cmd.watchID, err)
		}
		if _, err := m.queue.Push(database.JobTypeDeleteWatch, cmd.watchID); err != nil {
			logger.Error("jobs: enqueue delete for watch %d: %v", cmd.watchID, err)
			return
		}
		m.tryStartNext(ctx)
	case cmdCancelForWatch:
		m.cancelCurrentJobForWatchID(ctx, cmd.watchID)
	case cmdJobCompleted:
		if m.current != nil && m.current.jobID == cmd.jobID {
			m.current = nil
		}
		if err := m.queue.DeleteByJobID(cmd.jobID); err != nil {
			logger.Error("jobs: remove completed job %d: %v", cmd.jobID, err)
		}
		m.tryStartNext(ctx)
	case cmdRunNext:
		m.tryStartNext(ctx)
	}
}

// cancelCurrentJobForWatchID aborts the in-flight job for watchID, if any.
// It commits the index right after canceling: canceling the writer goroutine mid-batch can
// leave uncommitted segments behind, and a bare abort without a commit has
// been observed to leave the index in a state the reader can't open.
func (m *JobManager) cancelCurrentJobForWatchID(ctx context.Context, watchID uint) {
	if m.current == nil || m.current.watchID != watchID {
		return
	}
	job := m.current
	job.cancel()
	if err := m.docs.CommitToSearchEngine(ctx); err != nil {
		logger.Warn("jobs: commit while canceling job for watch %d: %v", watchID, err)
	}
	if err := m.queue.DeleteByJobID(job.jobID); err != nil {
		logger.Error("jobs: remove canceled job %d: %v", job.jobID, err)
	}
	m.current = nil
}

// tryStartNext pops the oldest pending job and runs it in its own goroutine,
// unless a job is already in flight.
func (m *JobManager) tryStartNext(ctx context.Context) {
	if m.current != nil {
		return
	}
	job, err := m.queue.PopForRun()
	if err != nil {
		logger.Error("jobs: pop next job: %v", err)
		return
	}
	if job == nil {
		return
	}

	var watch database.Watch
	if err := m.db.First(&watch, job.WatchID).Error; err != nil {
		logger.Error("jobs: job %d references missing watch %d: %v", job.ID, job.WatchID, err)
		if delErr := m.queue.DeleteByJobID(job.ID); delErr != nil {
			logger.Error("jobs: remove orphaned job %d: %v", job.ID, delErr)
		}
		return
	}

	jobCtx, cancel := context.WithCancel(ctx)
	m.current = &runningJob{jobID: job.ID, watchID: watch.ID, cancel: cancel}

	go func() {
		defer cancel()
		defer func() {
			if r := recover(); r != nil {
				logger.Error("jobs: job %d (%s) for watch %d panicked: %v", job.ID, job.JobType, watch.ID, r)
				m.commands <- command{kind: cmdJobCompleted, jobID: job.ID}
			}
		}()
		if err := m.runJob(jobCtx, *job, watch); err != nil {
			logger.Error("jobs: job %d (%s) for watch %d failed: %v", job.ID, job.JobType, watch.ID, err)
		}
		m.commands <- command{kind: cmdJobCompleted, jobID: job.ID}
	}()
}

func (m *JobManager) runJob(ctx context.Context, job database.Job, watch database.Watch) error {
	switch job.JobType {
	case database.JobTypeScanWatchPath:
		return NewScanWatchJob(m.db, m.docs, m.gatekeeper, m.events, m.parallelism).Start(ctx, watch)
	case database.JobTypeSyncWatch:
		return NewSyncWatchJob(m.db, m.docs, m.gatekeeper, m.events, m.parallelism).Start(ctx, watch)
	case database.JobTypeDeleteWatch:
		return NewDeleteWatchJob(m.db, m.docs, m.events).Start(ctx, watch)
	default:
		return fmt.Errorf("jobs: unknown job type %q", job.JobType)
	}
}

// EnqueueSyncWatchJobsForExistingWatches runs once at startup: every watch
// without a queued or running job gets a sync job, regardless of its stored
// status, so a watch stuck mid-lifecycle (e.g. left in Adding or Deleting by
// a crash) gets reconciled back to a consistent state instead of being
// silently skipped forever.
func (m *JobManager) EnqueueSyncWatchJobsForExistingWatches(ctx context.Context) error {
	// A job still marked running was interrupted by the previous process;
	// put it back in the queue so it runs again.
	if err := m.db.Model(&database.Job{}).Where("status = ?", database.JobStatusRunning).Update("status", database.JobStatusPending).Error; err != nil {
		return fmt.Errorf("jobs: requeue interrupted jobs: %w", err)
	}
	var watches []database.Watch
	if err := m.db.Find(&watches).Error; err != nil {
		return fmt.Errorf("jobs: list watches for startup sync: %w", err)
	}
	for _, watch := range watches {
		has, err := m.queue.HasJobForWatchID(watch.ID)
		if err != nil {
			return fmt.Errorf("jobs: check existing job for watch %d: %w", watch.ID, err)
		}
		if has {
			continue
		}
		if _, err := m.queue.Push(database.JobTypeSyncWatch, watch.ID); err != nil {
			return fmt.Errorf("jobs: enqueue startup sync for watch %d: %w", watch.ID, err)
		}
	}
	m.commands <- command{kind: cmdRunNext}
	return nil
}
