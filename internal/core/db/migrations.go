package db

import (
	"fmt"
)

// runMigrations applies database migrations for existing databases
func (db *DB) runMigrations() error {
	// Migration 1: record which user made the change
	if err := db.migration001AddUserID(); err != nil {
		return fmt.Errorf("migration 001: %w", err)
	}

	return nil
}

// migration001AddUserID adds the user_id column to databases created before it existed
func (db *DB) migration001AddUserID() error {
	var hasUserID bool
	err := db.conn.QueryRow(`
		SELECT COUNT(*) FROM pragma_table_info('acceleration_changes')
		WHERE name='user_id'
	`).Scan(&hasUserID)
	if err != nil {
		return err
	}
	if hasUserID {
		return nil
	}

	_, err = db.conn.Exec(`ALTER TABLE acceleration_changes ADD COLUMN user_id TEXT;`)
	if err != nil {
		return fmt.Errorf("add user_id column: %w", err)
	}
	return nil
}
