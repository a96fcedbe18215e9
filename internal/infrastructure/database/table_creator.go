// Package database creates the element store schema.
package database

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/AtRiskMedia/tractstack-elements/internal/domain/entities/element"
)

// TableCreator handles the creation of the element store schema.
type TableCreator struct{}

// NewTableCreator creates a new TableCreator.
func NewTableCreator() *TableCreator {
	return &TableCreator{}
}

// CreateSchema executes all necessary queries to build the tables and indexes.
func (tc *TableCreator) CreateSchema(db *sql.DB) error {
	for _, tableSQL := range tables {
		if _, err := db.Exec(tableSQL); err != nil {
			return fmt.Errorf("failed to create table for query [%s]: %w", tableSQL, err)
		}
	}

	for _, indexSQL := range indexes {
		if _, err := db.Exec(indexSQL); err != nil {
			return fmt.Errorf("failed to create index for query [%s]: %w", indexSQL, err)
		}
	}
	return nil
}

// SeedInitialContent idempotently creates the root element every tree
// hangs from.
func (tc *TableCreator) SeedInitialContent(db *sql.DB) error {
	var exists bool
	err := db.QueryRow("SELECT EXISTS(SELECT 1 FROM elements WHERE id = ?)", element.RootID).Scan(&exists)
	if err != nil {
		return fmt.Errorf("failed to check for root element: %w", err)
	}
	if exists {
		return nil
	}

	now := time.Now().UTC().Format(time.RFC3339Nano)
	if _, err := db.Exec(`INSERT INTO elements (id, type, parent_id, created) VALUES (?, ?, NULL, ?)`,
		element.RootID, string(element.TypeRoot), now); err != nil {
		return fmt.Errorf("failed to insert root element: %w", err)
	}
	if _, err := db.Exec(`INSERT INTO element_versions (element_id, version, state, definition, payload) VALUES (?, 1, ?, ?, '{}')`,
		element.RootID, element.StatePublished, "root"); err != nil {
		return fmt.Errorf("failed to insert root version: %w", err)
	}
	return nil
}

var tables = []string{
	`CREATE TABLE IF NOT EXISTS elements (id TEXT PRIMARY KEY, type TEXT NOT NULL, parent_id TEXT, created TEXT NOT NULL, changed TEXT)`,
	`CREATE TABLE IF NOT EXISTS element_versions (element_id TEXT NOT NULL REFERENCES elements(id), version INTEGER NOT NULL, state TEXT NOT NULL, definition TEXT NOT NULL, payload TEXT NOT NULL, PRIMARY KEY (element_id, version))`,
	`CREATE TABLE IF NOT EXISTS url_pointers (url TEXT PRIMARY KEY, element_id TEXT NOT NULL, languages TEXT NOT NULL, is_default BOOLEAN NOT NULL DEFAULT 0, deprecated BOOLEAN NOT NULL DEFAULT 0)`,
	`CREATE TABLE IF NOT EXISTS url_mapping_state (id INTEGER PRIMARY KEY CHECK (id = 1), valid BOOLEAN NOT NULL, updated_at TEXT NOT NULL)`,
	`CREATE TABLE IF NOT EXISTS file_meta (id TEXT PRIMARY KEY, name TEXT NOT NULL, mime_type TEXT NOT NULL, size INTEGER NOT NULL, width INTEGER NOT NULL DEFAULT 0, height INTEGER NOT NULL DEFAULT 0, checksum TEXT, created TEXT NOT NULL)`,
	`CREATE TABLE IF NOT EXISTS transactions (id TEXT PRIMARY KEY, author_id TEXT NOT NULL, author_name TEXT NOT NULL, kinds TEXT NOT NULL, element_ids TEXT NOT NULL, created_at TEXT NOT NULL)`,
}

var indexes = []string{
	`CREATE INDEX IF NOT EXISTS idx_elements_parent_id ON elements(parent_id)`,
	`CREATE INDEX IF NOT EXISTS idx_element_versions_element_id ON element_versions(element_id)`,
	`CREATE INDEX IF NOT EXISTS idx_url_pointers_element_id ON url_pointers(element_id)`,
	`CREATE INDEX IF NOT EXISTS idx_transactions_created_at ON transactions(created_at)`,
}
