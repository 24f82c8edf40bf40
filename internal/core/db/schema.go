package db

func (db *DB) initSchema() error {
	schema := `
	-- One row per attempted acceleration update
	CREATE TABLE IF NOT EXISTS acceleration_changes (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		server_url TEXT NOT NULL,
		site_id TEXT NOT NULL,
		workbook_path TEXT NOT NULL,
		workbook_id TEXT,
		sheet TEXT,
		action TEXT NOT NULL CHECK (action IN ('enable', 'disable')),
		accelerate_now INTEGER NOT NULL DEFAULT 0,
		succeeded INTEGER NOT NULL,
		error TEXT,
		created_at INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_changes_created_at ON acceleration_changes(created_at);
	CREATE INDEX IF NOT EXISTS idx_changes_workbook_path ON acceleration_changes(workbook_path);
	`

	_, err := db.conn.Exec(schema)
	return err
}
