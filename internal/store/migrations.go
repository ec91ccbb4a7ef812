package store

// runMigrations executes all database migrations.
func (s *Store) runMigrations() error {
	migrations := []string{
		// Calibrations table - one rest-pose record per hand side
		`CREATE TABLE IF NOT EXISTS calibrations (
			side TEXT PRIMARY KEY CHECK(side IN ('Left', 'Right')),
			id TEXT NOT NULL,
			offsets TEXT NOT NULL,
			rest_pose TEXT NOT NULL,
			timestamp_ms INTEGER NOT NULL
		)`,

		// Models table - registered target-model joint graphs
		`CREATE TABLE IF NOT EXISTS models (
			name TEXT PRIMARY KEY,
			spec TEXT NOT NULL,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,

		// Settings table - application settings as key-value pairs
		`CREATE TABLE IF NOT EXISTS settings (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		)`,
	}

	for _, migration := range migrations {
		if _, err := s.db.Exec(migration); err != nil {
			return err
		}
	}

	return nil
}
