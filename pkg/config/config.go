package config

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"sync"
)

// Config holds the application configuration
type Config struct {
	mu         sync.RWMutex
	configPath string

	// Watcher Configuration
	Watcher WatcherConfig `json:"watcher"`

	// Search Configuration
	Search SearchConfig `json:"search"`

	// Gatekeeper Configuration
	Gatekeeper GatekeeperConfig `json:"gatekeeper"`

	// Jobs Configuration
	Jobs JobsConfig `json:"jobs"`
}

// WatcherConfig holds file watcher configuration
type WatcherConfig struct {
	// Enabled enables automatic file watching and live indexing
	Enabled bool `json:"enabled"`

	// EventBufferSize bounds the broadcast channel for translated filesystem events
	EventBufferSize int `json:"event_buffer_size"`
}

// SearchConfig holds full-text index configuration
type SearchConfig struct {
	// IndexDir is the directory holding the on-disk bleve index
	IndexDir string `json:"index_dir"`

	// CommitBatchIntervalMS is loaded and saved with the config (milliseconds);
	// no component reads it, and the index is committed only by the explicit
	// per-job and per-event commits
	CommitBatchIntervalMS int `json:"commit_batch_interval_ms"`

	// DefaultResultCount is used when a caller does not specify a limit
	DefaultResultCount int `json:"default_result_count"`
}

// GatekeeperConfig holds eligibility-predicate tuning
type GatekeeperConfig struct {
	// ExtraIgnoredDirs lists additional ancestor directory names treated as
	// package directories, beyond the built-in set (node_modules, vendor, ...)
	ExtraIgnoredDirs []string `json:"extra_ignored_dirs"`
}

// JobsConfig holds job-pipeline tuning
type JobsConfig struct {
	// Parallelism overrides max(1, GOMAXPROCS/2) when > 0
	Parallelism int `json:"parallelism"`

	// ScanPathChannelCapacity is loaded and saved with the config; ScanWatchJob
	// and SyncWatchJob do not read it and buffer their path channel at 1024
	ScanPathChannelCapacity int `json:"scan_path_channel_capacity"`

	// FileWatcherEventCapacity sizes the document-event subscription that
	// watch-state sync reads from; the FileWatcher's own channel is sized by
	// Watcher.EventBufferSize
	FileWatcherEventCapacity int `json:"file_watcher_event_capacity"`

	// WatchStatePublishThrottleMS bounds WatchState snapshot publication rate
	WatchStatePublishThrottleMS int `json:"watch_state_publish_throttle_ms"`
}

var (
	globalConfig *Config
	once         sync.Once
)

func New() *Config {
	cfg := &Config{}
	cfg.setDefaults()
	return cfg
}

// Get returns the global configuration instance
func Get() *Config {
	once.Do(func() {
		globalConfig = New()
	})
	return globalConfig
}

// setDefaults sets default values for configuration
func (c *Config) setDefaults() {
	c.mu.Lock()
	defer c.mu.Unlock()

	// Watcher Defaults
	c.Watcher.Enabled = true
	c.Watcher.EventBufferSize = 100

	// Search Defaults
	c.Search.IndexDir = "index"
	c.Search.CommitBatchIntervalMS = 500
	c.Search.DefaultResultCount = 10

	// Gatekeeper Defaults
	c.Gatekeeper.ExtraIgnoredDirs = nil

	// Jobs Defaults
	c.Jobs.Parallelism = parallelism()
	c.Jobs.ScanPathChannelCapacity = 10_000
	c.Jobs.FileWatcherEventCapacity = 100
	c.Jobs.WatchStatePublishThrottleMS = 150
}

func parallelism() int {
	n := runtime.GOMAXPROCS(0) / 2
	if n < 1 {
		return 1
	}
	return n
}

// LoadFromFile loads configuration from a JSON file
func (c *Config) LoadFromFile(path string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.configPath = path

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			// File doesn't exist, use defaults
			return nil
		}
		return err
	}

	// Create a temporary config to unmarshal into
	temp := Config{}
	if err := json.Unmarshal(data, &temp); err != nil {
		return err
	}

	// Merge with defaults (keep defaults for unset fields)
	c.mergeWithDefaults(&temp)

	return nil
}

// SaveToFile saves the current configuration to a JSON file
func (c *Config) SaveToFile(path string) error {
	c.mu.RLock()
	defer c.mu.RUnlock()

	// Ensure directory exists
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}

// Save saves the configuration to the last loaded path
func (c *Config) Save() error {
	c.mu.RLock()
	path := c.configPath
	c.mu.RUnlock()
	if path == "" {
		return errors.New("no config path set")
	}
	return c.SaveToFile(path)
}

// mergeWithDefaults merges loaded config with defaults
func (c *Config) mergeWithDefaults(loaded *Config) {
	// Watcher Config
	c.Watcher.Enabled = loaded.Watcher.Enabled
	if loaded.Watcher.EventBufferSize > 0 {
		c.Watcher.EventBufferSize = loaded.Watcher.EventBufferSize
	}

	// Search Config
	if loaded.Search.IndexDir != "" {
		c.Search.IndexDir = loaded.Search.IndexDir
	}
	if loaded.Search.CommitBatchIntervalMS > 0 {
		c.Search.CommitBatchIntervalMS = loaded.Search.CommitBatchIntervalMS
	}
	if loaded.Search.DefaultResultCount > 0 {
		c.Search.DefaultResultCount = loaded.Search.DefaultResultCount
	}

	// Gatekeeper Config
	if len(loaded.Gatekeeper.ExtraIgnoredDirs) > 0 {
		c.Gatekeeper.ExtraIgnoredDirs = loaded.Gatekeeper.ExtraIgnoredDirs
	}

	// Jobs Config
	if loaded.Jobs.Parallelism > 0 {
		c.Jobs.Parallelism = loaded.Jobs.Parallelism
	}
	if loaded.Jobs.ScanPathChannelCapacity > 0 {
		c.Jobs.ScanPathChannelCapacity = loaded.Jobs.ScanPathChannelCapacity
	}
	if loaded.Jobs.FileWatcherEventCapacity > 0 {
		c.Jobs.FileWatcherEventCapacity = loaded.Jobs.FileWatcherEventCapacity
	}
	if loaded.Jobs.WatchStatePublishThrottleMS > 0 {
		c.Jobs.WatchStatePublishThrottleMS = loaded.Jobs.WatchStatePublishThrottleMS
	}
}

// GetWatcherConfig returns a copy of the watcher configuration
func (c *Config) GetWatcherConfig() WatcherConfig {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.Watcher
}

// SetWatcherConfig sets the watcher configuration
func (c *Config) SetWatcherConfig(cfg WatcherConfig) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Watcher = cfg
}

// GetSearchConfig returns a copy of the search configuration
func (c *Config) GetSearchConfig() SearchConfig {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.Search
}

// SetSearchConfig sets the search configuration
func (c *Config) SetSearchConfig(cfg SearchConfig) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Search = cfg
}

// GetGatekeeperConfig returns a copy of the gatekeeper configuration
func (c *Config) GetGatekeeperConfig() GatekeeperConfig {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.Gatekeeper
}

// SetGatekeeperConfig sets the gatekeeper configuration
func (c *Config) SetGatekeeperConfig(cfg GatekeeperConfig) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Gatekeeper = cfg
}

// GetJobsConfig returns a copy of the jobs configuration
func (c *Config) GetJobsConfig() JobsConfig {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.Jobs
}

// SetJobsConfig sets the jobs configuration
func (c *Config) SetJobsConfig(cfg JobsConfig) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Jobs = cfg
}

// Reset resets the global configuration singleton (for testing purposes)
func Reset() {
	once = sync.Once{}
	globalConfig = nil
}
