package store

import (
	"database/sql"
	"fmt"
	"time"
)

// Setting operations

// GetSetting returns the stored value for key. ok is false when the key has
// never been written.
func (s *Store) GetSetting(key string) (value string, ok bool, err error) {
	err = s.db.QueryRow(`SELECT value FROM settings WHERE key = ?`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, wrapQueryErr(fmt.Sprintf("failed to get setting %s", key), err)
	}
	return value, true, nil
}

// SetSetting inserts or replaces the value for key.
func (s *Store) SetSetting(key, value string) error {
	query := `
		INSERT INTO settings (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at
	`
	if _, err := s.db.Exec(query, key, value, time.Now().Format(time.RFC3339)); err != nil {
		return wrapQueryErr(fmt.Sprintf("failed to set setting %s", key), err)
	}
	return nil
}

// ListSettings returns every stored setting ordered by key.
func (s *Store) ListSettings() ([]*Setting, error) {
	rows, err := s.db.Query(`SELECT key, value, updated_at FROM settings ORDER BY key`)
	if err != nil {
		return nil, wrapQueryErr("failed to list settings", err)
	}
	defer rows.Close()

	var settings []*Setting
	for rows.Next() {
		var st Setting
		var updatedAt string
		if err := rows.Scan(&st.Key, &st.Value, &updatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan setting: %w", err)
		}
		st.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)
		settings = append(settings, &st)
	}
	return settings, rows.Err()
}

// Ignore list operations

// ListIgnored returns the ignored package names in the order they were added.
func (s *Store) ListIgnored() ([]*IgnoredPackage, error) {
	rows, err := s.db.Query(`SELECT name, added_at FROM ignored_packages ORDER BY rowid`)
	if err != nil {
		return nil, wrapQueryErr("failed to list ignored packages", err)
	}
	defer rows.Close()

	var ignored []*IgnoredPackage
	for rows.Next() {
		var pkg IgnoredPackage
		var addedAt string
		if err := rows.Scan(&pkg.Name, &addedAt); err != nil {
			return nil, fmt.Errorf("failed to scan ignored package: %w", err)
		}
		pkg.AddedAt, _ = time.Parse(time.RFC3339, addedAt)
		ignored = append(ignored, &pkg)
	}
	return ignored, rows.Err()
}

// AddIgnored adds names to the ignore list and returns how many were new.
func (s *Store) AddIgnored(names ...string) (int, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}

	now := time.Now().Format(time.RFC3339)
	added := 0
	for _, name := range names {
		res, err := tx.Exec(`INSERT OR IGNORE INTO ignored_packages (name, added_at) VALUES (?, ?)`, name, now)
		if err != nil {
			tx.Rollback() //nolint:errcheck
			return 0, wrapQueryErr(fmt.Sprintf("failed to ignore %s", name), err)
		}
		n, _ := res.RowsAffected()
		added += int(n)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit: %w", err)
	}
	return added, nil
}

// RemoveIgnored removes names from the ignore list and returns how many were
// present.
func (s *Store) RemoveIgnored(names ...string) (int, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}

	removed := 0
	for _, name := range names {
		res, err := tx.Exec(`DELETE FROM ignored_packages WHERE name = ?`, name)
		if err != nil {
			tx.Rollback() //nolint:errcheck
			return 0, wrapQueryErr(fmt.Sprintf("failed to unignore %s", name), err)
		}
		n, _ := res.RowsAffected()
		removed += int(n)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit: %w", err)
	}
	return removed, nil
}

// ReplaceIgnored replaces the whole ignore list in one transaction.
func (s *Store) ReplaceIgnored(names []string) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	if _, err := tx.Exec(`DELETE FROM ignored_packages`); err != nil {
		tx.Rollback() //nolint:errcheck
		return wrapQueryErr("failed to clear ignored packages", err)
	}

	now := time.Now().Format(time.RFC3339)
	for _, name := range names {
		if _, err := tx.Exec(`INSERT OR IGNORE INTO ignored_packages (name, added_at) VALUES (?, ?)`, name, now); err != nil {
			tx.Rollback() //nolint:errcheck
			return wrapQueryErr(fmt.Sprintf("failed to ignore %s", name), err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit: %w", err)
	}
	return nil
}
