package content

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/AtRiskMedia/tractstack-elements/internal/domain/entities/element"
	"github.com/AtRiskMedia/tractstack-elements/internal/infrastructure/observability/logging"
	"github.com/AtRiskMedia/tractstack-elements/internal/infrastructure/persistence/database"
)

// UrlMappingRepository keeps the durable copy of the URL index in
// url_pointers, guarded by the single-row url_mapping_state flag.
type UrlMappingRepository struct {
	db     *sql.DB
	logger *logging.ChanneledLogger
}

func NewUrlMappingRepository(db *sql.DB, logger *logging.ChanneledLogger) *UrlMappingRepository {
	return &UrlMappingRepository{db: db, logger: logger}
}

func (r *UrlMappingRepository) UrlMappingValid() (bool, error) {
	var valid bool
	err := r.db.QueryRow(`SELECT valid FROM url_mapping_state WHERE id = 1`).Scan(&valid)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to read url mapping state: %w", err)
	}
	return valid, nil
}

func (r *UrlMappingRepository) LoadUrlMapping() (map[string]element.UrlPointer, bool, error) {
	valid, err := r.UrlMappingValid()
	if err != nil || !valid {
		return nil, false, err
	}

	query := `SELECT url, element_id, languages, is_default, deprecated FROM url_pointers`
	start := time.Now()
	rows, err := r.db.Query(query)
	if err != nil {
		r.logger.Database().Error("URL mapping load failed", "error", err.Error())
		return nil, false, fmt.Errorf("failed to query url pointers: %w", err)
	}
	defer rows.Close()

	mapping := make(map[string]element.UrlPointer)
	for rows.Next() {
		var (
			p         element.UrlPointer
			languages string
		)
		if err := rows.Scan(&p.URL, &p.ElementID, &languages, &p.Default, &p.Deprecated); err != nil {
			return nil, false, fmt.Errorf("failed to scan url pointer: %w", err)
		}
		if err := json.Unmarshal([]byte(languages), &p.Languages); err != nil {
			return nil, false, fmt.Errorf("failed to decode languages of %s: %w", p.URL, err)
		}
		mapping[p.URL] = p
	}
	if err := rows.Err(); err != nil {
		return nil, false, err
	}

	duration := time.Since(start)
	r.logger.Database().Info("URL mapping load completed", "pointers", len(mapping), "duration", duration)
	database.CheckAndLogSlowQuery(r.logger, "BULK_URL_MAPPING_LOAD", duration)
	return mapping, true, nil
}

// StoreUrlMapping replaces the stored index and marks it valid.
func (r *UrlMappingRepository) StoreUrlMapping(mapping map[string]element.UrlPointer) error {
	start := time.Now()
	r.logger.Database().Debug("Executing url mapping store", "pointers", len(mapping))

	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin url mapping transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM url_pointers`); err != nil {
		return fmt.Errorf("failed to clear url pointers: %w", err)
	}

	stmt, err := tx.Prepare(`INSERT INTO url_pointers (url, element_id, languages, is_default, deprecated) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare url pointer insert: %w", err)
	}
	defer stmt.Close()

	for url, p := range mapping {
		languages, _ := json.Marshal(p.Languages)
		if _, err := stmt.Exec(url, p.ElementID, string(languages), p.Default, p.Deprecated); err != nil {
			r.logger.Database().Error("URL pointer insert failed", "error", err.Error(), "url", url)
			return fmt.Errorf("failed to insert url pointer %s: %w", url, err)
		}
	}

	if err := setMappingState(tx, true); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit url mapping: %w", err)
	}

	duration := time.Since(start)
	r.logger.Database().Info("URL mapping store completed", "pointers", len(mapping), "duration", duration)
	database.CheckAndLogSlowQuery(r.logger, "BULK_URL_MAPPING_STORE", duration)
	return nil
}

// InvalidateUrlMapping clears the valid flag; the pointers stay until the
// next store.
func (r *UrlMappingRepository) InvalidateUrlMapping() error {
	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin url mapping transaction: %w", err)
	}
	defer tx.Rollback()

	if err := setMappingState(tx, false); err != nil {
		return err
	}
	return tx.Commit()
}

func setMappingState(tx *sql.Tx, valid bool) error {
	query := `INSERT INTO url_mapping_state (id, valid, updated_at) VALUES (1, ?, ?)
		ON CONFLICT(id) DO UPDATE SET valid = excluded.valid, updated_at = excluded.updated_at`
	if _, err := tx.Exec(query, valid, time.Now().UTC().Format(timeLayout)); err != nil {
		return fmt.Errorf("failed to update url mapping state: %w", err)
	}
	return nil
}
