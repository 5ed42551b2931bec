package jobs

import (
	"fmt"
	"time"

	"notebit/pkg/database"

	"gorm.io/gorm"
)

// Queue is the persistent work queue backing JobManager: every push survives
// a process restart, and JobManager's startup reconciliation walks it to
// resume interrupted work.
type Queue struct {
	db *gorm.DB
}

// NewQueue wraps an already-migrated *gorm.DB.
func NewQueue(db *gorm.DB) *Queue {
	return &Queue{db: db}
}

// Push enqueues a pending job for watchID.
func (q *Queue) Push(jobType database.JobType, watchID uint) (*database.Job, error) {
	job := database.Job{
		WatchID:   watchID,
		JobType:   jobType,
		Status:    database.JobStatusPending,
		CreatedAt: time.Now().UTC(),
	}
	if err := q.db.Create(&job).Error; err != nil {
		return nil, fmt.Errorf("jobs: push %s for watch %d: %w", jobType, watchID, err)
	}
	return &job, nil
}

// PopForRun returns the oldest pending job, marking it Running, or nil if
// the queue is empty.
func (q *Queue) PopForRun() (*database.Job, error) {
	var job database.Job
	err := q.db.Where("status = ?", database.JobStatusPending).
		Order("created_at").
		First(&job).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("jobs: pop for run: %w", err)
	}

	now := time.Now().UTC()
	job.Status = database.JobStatusRunning
	job.StartedAt = &now
	if err := q.db.Save(&job).Error; err != nil {
		return nil, fmt.Errorf("jobs: mark job %d running: %w", job.ID, err)
	}
	return &job, nil
}

// DeletePendingJobsByWatchID removes every not-yet-started job for watchID,
// leaving a currently running job (if any) untouched.
func (q *Queue) DeletePendingJobsByWatchID(watchID uint) error {
	if err := q.db.Unscoped().
		Where("watch_id = ? AND status = ?", watchID, database.JobStatusPending).
		Delete(&database.Job{}).Error; err != nil {
		return fmt.Errorf("jobs: delete pending jobs for watch %d: %w", watchID, err)
	}
	return nil
}

// DeleteByJobID removes a job outright, regardless of its status.
func (q *Queue) DeleteByJobID(jobID uint) error {
	if err := q.db.Unscoped().Delete(&database.Job{}, jobID).Error; err != nil {
		return fmt.Errorf("jobs: delete job %d: %w", jobID, err)
	}
	return nil
}

// HasJobForWatchID reports whether any job, pending or running, targets watchID.
func (q *Queue) HasJobForWatchID(watchID uint) (bool, error) {
	var count int64
	if err := q.db.Model(&database.Job{}).Where("watch_id = ?", watchID).Count(&count).Error; err != nil {
		return false, fmt.Errorf("jobs: check jobs for watch %d: %w", watchID, err)
	}
	return count > 0, nil
}
