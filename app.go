package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"notebit/pkg/config"
	"notebit/pkg/database"
	"notebit/pkg/documents"
	"notebit/pkg/gatekeeper"
	"notebit/pkg/jobs"
	"notebit/pkg/logger"
	"notebit/pkg/searchengine"
	"notebit/pkg/watcher"
	"notebit/pkg/watchservice"
	"notebit/pkg/watchstate"

	"gorm.io/gorm"
)

// App wires every subsystem together and exposes the public operations a
// host UI binds against. Unlike the teacher's App, it holds no AI/RAG/graph
// state: this process only indexes and searches Markdown, so its surface is
// watches and search results.
type App struct {
	ctx context.Context
	cfg *config.Config

	dbm   *database.Manager
	db    *gorm.DB
	index bleveIndex

	docs    *documents.Service
	watches *watchservice.Service
	state   *watchstate.Sync

	jobEvents chan jobs.Event
	cancel    context.CancelFunc
}

// bleveIndex is the subset of bleve.Index App needs to close on shutdown,
// named locally so this file doesn't have to import bleve directly.
type bleveIndex interface {
	Close() error
}

// NewApp creates a new App application struct.
func NewApp() *App {
	return NewAppWithConfig(config.Get())
}

func NewAppWithConfig(cfg *config.Config) *App {
	if cfg == nil {
		cfg = config.New()
	}
	return &App{cfg: cfg}
}

// startup is called once the host has a context to run background work on.
func (a *App) startup(ctx context.Context) {
	timer := logger.StartTimer()
	runCtx, cancel := context.WithCancel(ctx)
	a.ctx = runCtx
	a.cancel = cancel
	logger.Info("App startup initiated")

	if err := a.loadConfig(); err != nil {
		logger.WarnWithFields(runCtx, map[string]interface{}{"error": err.Error()}, "Failed to load config, using defaults")
	}

	if err := a.initStorage(); err != nil {
		logger.ErrorWithFields(runCtx, map[string]interface{}{"error": err.Error()}, "Failed to initialize storage")
		return
	}

	a.initPipeline(runCtx)

	logger.InfoWithDuration(runCtx, timer(), "App startup completed")
}

func (a *App) loadConfig() error {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return err
	}
	configPath := filepath.Join(configDir, "notebit", "config.json")
	return a.cfg.LoadFromFile(configPath)
}

// dataDir returns the directory the metadata store and search index live
// under, isolated from any watched tree by the gatekeeper's data-dir check.
func dataDir() (string, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, "notebit", "data"), nil
}

// initStorage opens the metadata store and the search index.
func (a *App) initStorage() error {
	dir, err := dataDir()
	if err != nil {
		return fmt.Errorf("resolve data directory: %w", err)
	}

	dbm := database.GetInstance()
	if err := dbm.Init(dir); err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	a.dbm = dbm
	a.db = dbm.GetDB()

	searchCfg := a.cfg.GetSearchConfig()
	indexDir := searchCfg.IndexDir
	if !filepath.IsAbs(indexDir) {
		indexDir = filepath.Join(dir, indexDir)
	}
	idx, err := searchengine.OpenIndex(indexDir)
	if err != nil {
		return fmt.Errorf("open search index: %w", err)
	}
	a.index = idx

	dbProc := database.NewDocumentDBProcessor(a.db)
	writer := searchengine.NewWriter(idx)
	reader := searchengine.NewReader(idx)
	go dbProc.Run(a.ctx)
	go writer.Run(a.ctx)

	a.docs = documents.New(a.db, dbProc, writer, reader)
	return nil
}

// initPipeline wires the file watcher, job manager and watch-state sync on
// top of the already-open storage, then starts background reconciliation.
func (a *App) initPipeline(ctx context.Context) {
	gkCfg := a.cfg.GetGatekeeperConfig()
	dir, _ := dataDir()
	gk := gatekeeper.New(dir, gkCfg.ExtraIgnoredDirs)

	jobsCfg := a.cfg.GetJobsConfig()
	watcherCfg := a.cfg.GetWatcherConfig()

	a.jobEvents = make(chan jobs.Event, 256)
	queue := jobs.NewQueue(a.db)
	manager := jobs.NewJobManager(a.db, queue, a.docs, gk, a.jobEvents, jobsCfg.Parallelism)
	go manager.Run(ctx)

	var fileWatcher *watcher.FileWatcher
	if watcherCfg.Enabled {
		fw, err := watcher.NewFileWatcher(gk, watcherCfg.EventBufferSize)
		if err != nil {
			logger.ErrorWithFields(ctx, map[string]interface{}{"error": err.Error()}, "Failed to start file watcher")
		} else {
			fileWatcher = fw
			go fw.Run(ctx)
			handler := watcher.NewEventHandler(fw.Events(), a.docs)
			go handler.Run(ctx)
		}
	}

	state, err := watchstate.New(a.db, a.docs)
	if err != nil {
		logger.ErrorWithFields(ctx, map[string]interface{}{"error": err.Error()}, "Failed to build watch-state sync")
		state = nil
	} else {
		docEvents, _ := a.docs.Subscribe(jobsCfg.FileWatcherEventCapacity)
		go state.Run(ctx, a.jobEvents, docEvents)
	}
	a.state = state

	a.watches = watchservice.New(a.db, fileWatcher, manager, state)

	if err := manager.EnqueueSyncWatchJobsForExistingWatches(ctx); err != nil {
		logger.WarnWithFields(ctx, map[string]interface{}{"error": err.Error()}, "Failed to enqueue startup resync")
	}
}

// ============ PUBLIC OPERATIONS ============

// GetAllDocuments returns a page of every indexed document, most recently
// modified first.
func (a *App) GetAllDocuments(offset, limit int) (searchengine.SearchResults, error) {
	if limit <= 0 {
		limit = a.cfg.GetSearchConfig().DefaultResultCount
	}
	return a.docs.GetAllDocuments(offset, limit)
}

// SearchDocuments runs a full-text query, optionally narrowed by tags.
func (a *App) SearchDocuments(query string, tags []string, sort searchengine.Sort, offset, limit int) (searchengine.SearchResults, error) {
	if limit <= 0 {
		limit = a.cfg.GetSearchConfig().DefaultResultCount
	}
	if len(tags) > 0 {
		return a.docs.SearchDocumentsWithTags(query, tags, sort, offset, limit)
	}
	return a.docs.SearchDocuments(query, sort, offset, limit)
}

// GetAllWatches lists every registered watch.
func (a *App) GetAllWatches() ([]database.Watch, error) {
	return a.watches.GetAllWatches()
}

// GetWatchState returns the latest aggregate snapshot of watches and their
// live job progress.
func (a *App) GetWatchState() watchstate.State {
	return a.watches.GetState()
}

// AddWatch registers path as a new watch root and schedules its initial scan.
func (a *App) AddWatch(path string) (*database.Watch, error) {
	return a.watches.AddWatch(a.ctx, path)
}

// DeleteWatch tears down path's watch and everything indexed beneath it.
func (a *App) DeleteWatch(path string) error {
	return a.watches.DeleteWatch(a.ctx, path)
}

// WatchStates streams a WatchState snapshot every time one changes, coalesced
// to at most one per throttle interval. The returned func stops the stream.
func (a *App) WatchStates() (<-chan watchstate.State, func()) {
	out := make(chan watchstate.State, 1)
	stop := make(chan struct{})

	throttle := time.Duration(a.cfg.GetJobsConfig().WatchStatePublishThrottleMS) * time.Millisecond
	if throttle <= 0 {
		throttle = 150 * time.Millisecond
	}

	var updated <-chan struct{}
	if a.state != nil {
		updated = a.state.Updated()
	}

	go func() {
		defer close(out)
		ticker := time.NewTicker(throttle)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-a.ctx.Done():
				return
			case <-updated:
			case <-ticker.C:
			}
			select {
			case out <- a.watches.GetState():
			default:
			}
		}
	}()

	return out, func() { close(stop) }
}

// shutdown is called when the app is shutting down.
func (a *App) shutdown(context.Context) {
	if a.cancel != nil {
		a.cancel()
	}
	if a.index != nil {
		_ = a.index.Close()
	}
	if a.dbm != nil {
		_ = a.dbm.Close()
	}
}
