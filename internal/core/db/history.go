package db

import (
	"database/sql"
	"fmt"
	"strings"
	"time"
)

// Change is one recorded acceleration update attempt
type Change struct {
	ID            int64
	ServerURL     string
	SiteID        string
	UserID        string
	WorkbookPath  string
	WorkbookID    string
	Sheet         string
	Action        string // "enable" or "disable"
	AccelerateNow bool
	Succeeded     bool
	Error         string
	CreatedAt     time.Time
}

// ChangeFilter narrows ListChanges. Zero values mean no filter.
type ChangeFilter struct {
	Since        time.Time
	WorkbookPath string // Substring match
	Limit        int
}

// RecordChange stores a change and returns its ID. CreatedAt defaults to now.
func (db *DB) RecordChange(c Change) (int64, error) {
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now()
	}

	res, err := db.conn.Exec(`
		INSERT INTO acceleration_changes
		(server_url, site_id, user_id, workbook_path, workbook_id, sheet, action, accelerate_now, succeeded, error, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, c.ServerURL, c.SiteID, nullIfEmpty(c.UserID), c.WorkbookPath, nullIfEmpty(c.WorkbookID), nullIfEmpty(c.Sheet),
		c.Action, c.AccelerateNow, c.Succeeded, nullIfEmpty(c.Error), c.CreatedAt.UnixNano())
	if err != nil {
		return 0, fmt.Errorf("insert change: %w", err)
	}
	return res.LastInsertId()
}

// ListChanges returns recorded changes, newest first
func (db *DB) ListChanges(f ChangeFilter) ([]Change, error) {
	var where []string
	var args []interface{}

	if !f.Since.IsZero() {
		where = append(where, "created_at >= ?")
		args = append(args, f.Since.UnixNano())
	}
	if f.WorkbookPath != "" {
		where = append(where, "workbook_path LIKE ?")
		args = append(args, "%"+f.WorkbookPath+"%")
	}

	query := `
		SELECT id, server_url, site_id, user_id, workbook_path, workbook_id, sheet,
		       action, accelerate_now, succeeded, error, created_at
		FROM acceleration_changes`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY created_at DESC, id DESC"
	if f.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, f.Limit)
	}

	rows, err := db.conn.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var changes []Change
	for rows.Next() {
		var c Change
		var userID, workbookID, sheet, errText sql.NullString
		var createdAt int64
		if err := rows.Scan(&c.ID, &c.ServerURL, &c.SiteID, &userID, &c.WorkbookPath, &workbookID, &sheet,
			&c.Action, &c.AccelerateNow, &c.Succeeded, &errText, &createdAt); err != nil {
			return nil, err
		}
		c.UserID = userID.String
		c.WorkbookID = workbookID.String
		c.Sheet = sheet.String
		c.Error = errText.String
		c.CreatedAt = time.Unix(0, createdAt)
		changes = append(changes, c)
	}
	return changes, rows.Err()
}

func nullIfEmpty(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
