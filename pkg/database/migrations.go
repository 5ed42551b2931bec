package database

// AutoMigrate runs auto-migration for all models
func (m *Manager) AutoMigrate() error {
	db := m.GetDB()
	return db.AutoMigrate(
		&Watch{},
		&Document{},
		&Job{},
	)
}

// EnsureIndexes creates additional indexes for performance
// Note: Most indexes are defined via gorm tags in models
func (m *Manager) EnsureIndexes() error {
	return nil
}
