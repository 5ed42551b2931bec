// Package jobs runs the background work that keeps a watch's documents in
// sync with its search index: scanning a directory tree for new files,
// reconciling stale ones, and tearing a watch down. Work items are
// persisted in the jobs table so they survive a restart, and JobManager
// runs at most one at a time.
package jobs

import (
	"sync"

	"notebit/pkg/database"
)

// Progress tracks a running job's counters. Safe for concurrent use: every
// pipeline stage that discovers, adds, or fails a document calls one of its
// methods, and the job's own publish step reads a snapshot into a Report.
type Progress struct {
	mu     sync.Mutex
	Done   uint32
	Failed uint32
	Total  uint32
}

func (p *Progress) addDone()   { p.mu.Lock(); p.Done++; p.mu.Unlock() }
func (p *Progress) addFailed() { p.mu.Lock(); p.Failed++; p.mu.Unlock() }
func (p *Progress) addTotal()  { p.mu.Lock(); p.Total++; p.mu.Unlock() }

// Snapshot returns a copy of the current counters.
func (p *Progress) Snapshot() Progress {
	p.mu.Lock()
	defer p.mu.Unlock()
	return Progress{Done: p.Done, Failed: p.Failed, Total: p.Total}
}

// Report pairs a watch with the running or final state of the job acting on it.
type Report struct {
	Watch    database.Watch
	Progress Progress
	JobType  database.JobType
	Status   database.JobStatus
}

// EventKind discriminates the lifecycle events jobs publish to whatever is
// listening for watch-state changes (pkg/watchstate in this process).
type EventKind int

const (
	AddWatchStarted EventKind = iota
	AddWatchProgressed
	AddWatchFinished
	SyncWatchStarted
	SyncWatchProgressed
	SyncWatchFinished
	DeleteWatchStarted
	DeleteWatchFinished
)

// Event is published by a running job. Watch and Report are populated for
// every kind.
type Event struct {
	Kind   EventKind
	Watch  database.Watch
	Report Report
}
