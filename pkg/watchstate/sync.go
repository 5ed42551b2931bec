package watchstate

import (
	"context"
	"fmt"
	"sync"

	"notebit/pkg/database"
	"notebit/pkg/documents"
	"notebit/pkg/jobs"
	"notebit/pkg/logger"

	"gorm.io/gorm"
)

// Sync maintains the in-memory maps backing State and publishes a fresh
// snapshot onto a single-latest-value channel after every event: Go has no
// tokio::sync::watch equivalent, so late subscribers instead call Latest
// and are woken by a buffered-size-1 notify channel that coalesces bursts.
type Sync struct {
	db *gorm.DB

	mu      sync.Mutex
	watches map[uint]database.Watch
	counts  map[uint]uint32
	live    map[uint]jobs.Report

	latest State
	notify chan struct{}
}

// New loads every existing watch and its current document count, then
// returns a Sync ready to Run.
func New(db *gorm.DB, docs *documents.Service) (*Sync, error) {
	var rows []database.Watch
	if err := db.Order("created_at").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("watchstate: load watches: %w", err)
	}

	watches := make(map[uint]database.Watch, len(rows))
	counts := make(map[uint]uint32, len(rows))
	for _, w := range rows {
		watches[w.ID] = w
		count, err := docs.CountDocumentsUnderPath(w.Path)
		if err != nil {
			return nil, fmt.Errorf("watchstate: count documents for watch %d: %w", w.ID, err)
		}
		counts[w.ID] = count
	}

	s := &Sync{
		db:      db,
		watches: watches,
		counts:  counts,
		live:    make(map[uint]jobs.Report),
		notify:  make(chan struct{}, 1),
	}
	s.latest = buildState(watches, counts, s.live)
	return s, nil
}

// Latest returns the most recently published snapshot.
func (s *Sync) Latest() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.latest
}

// Updated fires (a coalesced, best-effort signal) whenever a fresh
// snapshot is available via Latest.
func (s *Sync) Updated() <-chan struct{} {
	return s.notify
}

// NotifyWatchAdded makes a newly created watch visible immediately, rather
// than waiting for its ScanWatch job to actually start (which may be
// delayed behind another running job).
func (s *Sync) NotifyWatchAdded(watch database.Watch) {
	s.mu.Lock()
	s.watches[watch.ID] = watch
	if _, ok := s.counts[watch.ID]; !ok {
		s.counts[watch.ID] = 0
	}
	s.publishLocked()
	s.mu.Unlock()
}

// Run drains job and document events until ctx is canceled. Call it from
// its own goroutine.
func (s *Sync) Run(ctx context.Context, jobEvents <-chan jobs.Event, docEvents <-chan documents.Event) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-jobEvents:
			if !ok {
				return
			}
			s.handleJobEvent(ev)
		case ev, ok := <-docEvents:
			if !ok {
				return
			}
			s.handleDocumentEvent(ev)
		}
	}
}

func (s *Sync) handleJobEvent(ev jobs.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()

	watch := ev.Watch
	switch ev.Kind {
	case jobs.AddWatchStarted, jobs.AddWatchProgressed, jobs.SyncWatchStarted, jobs.SyncWatchProgressed:
		s.watches[watch.ID] = watch
		s.live[watch.ID] = ev.Report
	case jobs.AddWatchFinished:
		s.watches[watch.ID] = watch
		s.counts[watch.ID] = ev.Report.Progress.Done
		delete(s.live, watch.ID)
	case jobs.SyncWatchFinished:
		// Unlike AddWatchFinished, a synced watch doesn't start from zero:
		// handleDocumentEvent already tracked its count live as documents
		// were added/updated/removed during the sync, so the job's own Done
		// counter (new/changed documents this run, not the total) must not
		// overwrite it.
		s.watches[watch.ID] = watch
		delete(s.live, watch.ID)
	case jobs.DeleteWatchStarted:
		s.watches[watch.ID] = watch
		s.live[watch.ID] = ev.Report
	case jobs.DeleteWatchFinished:
		delete(s.watches, watch.ID)
		delete(s.counts, watch.ID)
		delete(s.live, watch.ID)
	default:
		logger.Warn("watchstate: unhandled job event kind %d", ev.Kind)
	}

	s.publishLocked()
}

func (s *Sync) handleDocumentEvent(ev documents.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch ev.Kind {
	case documents.DocumentAdded:
		s.counts[ev.WatchID]++
	case documents.DocumentDeleted:
		if s.counts[ev.WatchID] > 0 {
			s.counts[ev.WatchID]--
		}
	case documents.DocumentUpdated:
		// document count unaffected
	}

	s.publishLocked()
}

func (s *Sync) publishLocked() {
	s.latest = buildState(s.watches, s.counts, s.live)
	select {
	case s.notify <- struct{}{}:
	default:
	}
}
