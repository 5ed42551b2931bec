// Package watchservice exposes the user-facing watch lifecycle: adding a
// root directory to index, tearing one down, and listing current state.
// It is the entry point the host UI calls into; everything past it (job
// scheduling, filesystem watching, indexing) runs asynchronously.
package watchservice

import (
	"context"
	"fmt"

	"notebit/pkg/database"
	"notebit/pkg/jobs"
	"notebit/pkg/pathnorm"
	"notebit/pkg/watcher"
	"notebit/pkg/watchstate"

	"gorm.io/gorm"
)

type Service struct {
	db          *gorm.DB
	fileWatcher *watcher.FileWatcher
	jobManager  *jobs.JobManager
	state       *watchstate.Sync
}

func New(db *gorm.DB, fileWatcher *watcher.FileWatcher, jobManager *jobs.JobManager, state *watchstate.Sync) *Service {
	return &Service{db: db, fileWatcher: fileWatcher, jobManager: jobManager, state: state}
}

// AddWatch registers a new root directory. It rejects a path identical to
// an existing watch, or one that stands in a parent/child relationship
// with an existing watch in either direction, since an indexed file must
// belong to exactly one watch.
func (s *Service) AddWatch(ctx context.Context, path string) (*database.Watch, error) {
	path = pathnorm.Normalize(path)

	var existing []database.Watch
	if err := s.db.Find(&existing).Error; err != nil {
		return nil, &Error{Op: "add_watch", Kind: KindOther, Err: err}
	}
	for _, w := range existing {
		if w.Path == path {
			return nil, &Error{Op: "add_watch", Kind: KindWatchAlreadyExists}
		}
		if isParent(w.Path, path) || isParent(path, w.Path) {
			return nil, &Error{Op: "add_watch", Kind: KindParentChildRelationship}
		}
	}

	watch := database.Watch{Path: path, Status: database.WatchStatusAdding}
	if err := s.db.Create(&watch).Error; err != nil {
		return nil, &Error{Op: "add_watch", Kind: KindOther, Err: err}
	}

	if s.fileWatcher != nil {
		if err := s.fileWatcher.WatchDirectory(ctx, path); err != nil {
			return nil, &Error{Op: "add_watch", Kind: KindOther, Err: fmt.Errorf("register directory: %w", err)}
		}
	}

	s.jobManager.EnqueueScanWatch(watch.ID)
	if s.state != nil {
		s.state.NotifyWatchAdded(watch)
	}

	return &watch, nil
}

// DeleteWatch marks path's watch Deleting, stops receiving live filesystem
// events for it, and enqueues the teardown job that purges its documents
// and finally removes the row.
func (s *Service) DeleteWatch(ctx context.Context, path string) error {
	path = pathnorm.Normalize(path)

	var watch database.Watch
	if err := s.db.Where("path = ?", path).First(&watch).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return &Error{Op: "delete_watch", Kind: KindNotExists}
		}
		return &Error{Op: "delete_watch", Kind: KindOther, Err: err}
	}

	watch.Status = database.WatchStatusDeleting
	if err := s.db.Model(&database.Watch{}).Where("id = ?", watch.ID).Update("status", database.WatchStatusDeleting).Error; err != nil {
		return &Error{Op: "delete_watch", Kind: KindOther, Err: err}
	}

	if s.fileWatcher != nil {
		if err := s.fileWatcher.UnwatchDirectory(ctx, path); err != nil {
			return &Error{Op: "delete_watch", Kind: KindOther, Err: fmt.Errorf("unregister directory: %w", err)}
		}
	}

	s.jobManager.EnqueueDeleteWatch(watch.ID)
	return nil
}

// GetAllWatches returns every watch row, oldest first.
func (s *Service) GetAllWatches() ([]database.Watch, error) {
	var watches []database.Watch
	if err := s.db.Order("created_at").Find(&watches).Error; err != nil {
		return nil, &Error{Op: "get_all_watches", Kind: KindOther, Err: err}
	}
	return watches, nil
}

// GetState returns the most recently published WatchState snapshot.
func (s *Service) GetState() watchstate.State {
	return s.state.Latest()
}
