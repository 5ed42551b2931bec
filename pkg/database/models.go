package database

import "time"

// WatchStatus tracks a Watch's lifecycle stage.
type WatchStatus string

const (
	WatchStatusAdding   WatchStatus = "adding"
	WatchStatusActive   WatchStatus = "active"
	WatchStatusDeleting WatchStatus = "deleting"
)

// Watch is a registered root directory being monitored for Markdown files.
//
// Rows are hard-deleted: a Watch is only ever removed by DeleteWatchJob once
// every document under it has been purged from both stores, so there is no
// "was deleted" state worth soft-preserving.
type Watch struct {
	ID        uint        `gorm:"primarykey" json:"id"`
	Path      string      `gorm:"uniqueIndex;not null" json:"path"` // absolute, NFC-normalized
	Status    WatchStatus `gorm:"index;not null;size:16" json:"status"`
	CreatedAt time.Time   `json:"created_at"`
}

// TableName specifies the table name for Watch
func (Watch) TableName() string {
	return "watches"
}

// Document is a Markdown file known to the system, owned by exactly one Watch.
type Document struct {
	ID        uint       `gorm:"primarykey" json:"id"`
	Path      string     `gorm:"uniqueIndex;not null" json:"path"` // NFC-normalized absolute path
	WatchID   uint        `gorm:"not null;index" json:"watch_id"`
	Watch     *Watch      `gorm:"constraint:OnDelete:CASCADE" json:"-"`
	CreatedAt time.Time  `json:"created_at"`
	IndexedAt *time.Time `json:"indexed_at"` // nil until first successful index write
}

// TableName specifies the table name for Document
func (Document) TableName() string {
	return "documents"
}

// JobType enumerates the kinds of background work the job queue carries.
type JobType string

const (
	JobTypeScanWatchPath JobType = "scan_watch_path"
	JobTypeDeleteWatch   JobType = "delete_watch"
	JobTypeSyncWatch     JobType = "sync_watch"
)

// JobStatus tracks a Job's position in the queue's lifecycle.
type JobStatus string

const (
	JobStatusPending JobStatus = "pending"
	JobStatusRunning JobStatus = "running"
	JobStatusFinished JobStatus = "finished"
)

// Job is an entry in the persistent work queue. Rows are hard-deleted on
// completion or cancellation; the queue only ever holds outstanding work.
type Job struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	WatchID   uint      `gorm:"not null;index" json:"watch_id"`
	Watch     *Watch    `gorm:"constraint:OnDelete:CASCADE" json:"-"`
	JobType   JobType   `gorm:"not null;size:32" json:"job_type"`
	Status    JobStatus `gorm:"index;not null;size:16" json:"status"`
	CreatedAt time.Time `gorm:"index" json:"created_at"`
	StartedAt *time.Time `json:"started_at"`
}

// TableName specifies the table name for Job
func (Job) TableName() string {
	return "jobs"
}
