package database

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"notebit/pkg/logger"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

const defaultSQLiteDriver = "sqlite3"

// Manager handles database operations
type Manager struct {
	db      *gorm.DB
	dbPath  string
	dataDir string
	mu      sync.RWMutex
	initErr error
}

var (
	instance *Manager
	once     sync.Once
)

// GetInstance returns the singleton database manager
func GetInstance() *Manager {
	once.Do(func() {
		instance = &Manager{}
	})
	return instance
}

// Init opens (or reopens, if dataDir changed) the metadata store rooted at
// dataDir. Unlike the teacher, which derived its data directory from the
// single notes folder the user opened, dataDir here is fixed process-wide:
// watches point at arbitrary, possibly many, directories, so the store
// itself lives outside of anything a watch could walk into.
func (m *Manager) Init(dataDir string) error {
	timer := logger.StartTimer()
	logger.InfoWithFields(context.TODO(), map[string]interface{}{"data_dir": dataDir}, "Initializing database")

	m.mu.Lock()
	sameDir := m.dataDir == dataDir && dataDir != ""
	if sameDir && m.db != nil && m.initErr == nil {
		m.mu.Unlock()
		return nil
	}
	if m.db != nil {
		if sqlDB, err := m.db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	}
	m.db = nil
	m.dbPath = ""
	m.dataDir = dataDir
	m.initErr = nil
	m.mu.Unlock()

	if err := os.MkdirAll(dataDir, 0755); err != nil {
		logger.ErrorWithFields(context.TODO(), map[string]interface{}{
			"data_dir": dataDir,
			"error":    err.Error(),
		}, "Failed to create data directory")
		m.mu.Lock()
		m.initErr = &DatabaseError{Op: "create_data_dir", Err: err}
		m.mu.Unlock()
		return m.initErr
	}

	dbPath := filepath.Join(dataDir, "notebit.sqlite")
	dsn := fmt.Sprintf("file:%s?_busy_timeout=5000&_foreign_keys=1", dbPath)

	dialector := sqlite.New(sqlite.Config{
		DriverName: defaultSQLiteDriver,
		DSN:        dsn,
	})

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		logger.ErrorWithFields(context.TODO(), map[string]interface{}{
			"db_path": dbPath,
			"error":   err.Error(),
		}, "Failed to open database")
		m.mu.Lock()
		m.initErr = &DatabaseError{Op: "open_database", Err: err}
		m.mu.Unlock()
		return m.initErr
	}

	if err := applyPragmas(db); err != nil {
		logger.WarnWithFields(context.TODO(), map[string]interface{}{
			"error": err.Error(),
		}, "Failed to apply one or more SQLite PRAGMA settings")
	}

	m.mu.Lock()
	m.db = db
	m.dbPath = dbPath
	m.dataDir = dataDir
	m.initErr = nil
	m.mu.Unlock()

	if err := m.AutoMigrate(); err != nil {
		logger.ErrorWithFields(context.TODO(), map[string]interface{}{
			"error": err.Error(),
		}, "Failed to run database migrations")
		if sqlDB, closeErr := db.DB(); closeErr == nil {
			_ = sqlDB.Close()
		}
		m.mu.Lock()
		m.db = nil
		m.initErr = &DatabaseError{Op: "migrate", Err: err}
		m.mu.Unlock()
		return m.initErr
	}

	logger.InfoWithDuration(context.TODO(), timer(), "Database initialized successfully: %s", dbPath)
	return nil
}

func applyPragmas(db *gorm.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA cache_size=-64000",
		"PRAGMA mmap_size=268435456",
		"PRAGMA foreign_keys=ON",
	}

	for _, pragma := range pragmas {
		if err := db.Exec(pragma).Error; err != nil {
			return err
		}
	}

	return nil
}

// Close closes the database connection
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.db != nil {
		sqlDB, err := m.db.DB()
		if err != nil {
			return err
		}
		return sqlDB.Close()
	}
	return nil
}

// GetDB returns the GORM DB instance (internal use)
func (m *Manager) GetDB() *gorm.DB {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.db
}

// GetDBPath returns the database file path
func (m *Manager) GetDBPath() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.dbPath
}

// GetDataDir returns the metadata store's data directory
func (m *Manager) GetDataDir() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.dataDir
}

// IsInitialized returns true if the database has been initialized
func (m *Manager) IsInitialized() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.db != nil
}

// Reset resets the singleton (for testing purposes)
func Reset() {
	once = sync.Once{}
	instance = nil
}
