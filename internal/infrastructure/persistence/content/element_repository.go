// Package content provides the SQL repositories behind the storage adapter.
package content

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/AtRiskMedia/tractstack-elements/internal/domain/entities/element"
	"github.com/AtRiskMedia/tractstack-elements/internal/infrastructure/caching/interfaces"
	"github.com/AtRiskMedia/tractstack-elements/internal/infrastructure/observability/logging"
	"github.com/AtRiskMedia/tractstack-elements/internal/infrastructure/persistence/database"
)

const timeLayout = time.RFC3339Nano

// versionPayload is the JSON column of element_versions.
type versionPayload struct {
	Children   []string                            `json:"children,omitempty"`
	References map[string]string                   `json:"references,omitempty"`
	Contents   map[string]*element.ElementContents `json:"contents,omitempty"`
	Slugs      []element.Slug                      `json:"slugs,omitempty"`
}

type ElementRepository struct {
	db     *sql.DB
	cache  interfaces.ElementCache
	logger *logging.ChanneledLogger
}

func NewElementRepository(db *sql.DB, cache interfaces.ElementCache, logger *logging.ChanneledLogger) *ElementRepository {
	return &ElementRepository{
		db:     db,
		cache:  cache,
		logger: logger,
	}
}

// LoadElement returns the element with all its versions, cache first.
func (r *ElementRepository) LoadElement(id string) (*element.Element, error) {
	if e, found := r.cache.GetElement(id); found {
		return e, nil
	}

	e, err := r.loadFromDB(id)
	if err != nil {
		return nil, err
	}
	if e == nil {
		return nil, nil
	}

	r.cache.SetElement(e)
	return e, nil
}

// EnumAllElementIDs lists every stored element id.
func (r *ElementRepository) EnumAllElementIDs() ([]string, error) {
	if ids, found := r.cache.GetAllElementIDs(); found {
		return ids, nil
	}

	ids, err := r.loadAllIDsFromDB()
	if err != nil {
		return nil, err
	}

	r.cache.SetAllElementIDs(ids)
	return ids, nil
}

// StoreElement upserts the element row and its versions in one transaction.
// Versions missing from e are removed.
func (r *ElementRepository) StoreElement(e *element.Element) error {
	start := time.Now()
	r.logger.Database().Debug("Executing element store", "id", e.ID, "versions", len(e.Versions))

	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin element transaction: %w", err)
	}
	defer tx.Rollback()

	var existed bool
	if err := tx.QueryRow(`SELECT EXISTS(SELECT 1 FROM elements WHERE id = ?)`, e.ID).Scan(&existed); err != nil {
		return fmt.Errorf("failed to check element %s: %w", e.ID, err)
	}

	var changed any
	if e.Changed != nil {
		changed = e.Changed.UTC().Format(timeLayout)
	}
	var parent any
	if e.ParentID != "" {
		parent = e.ParentID
	}

	query := `INSERT INTO elements (id, type, parent_id, created, changed) VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET type = excluded.type, parent_id = excluded.parent_id, changed = excluded.changed`
	if _, err := tx.Exec(query, e.ID, string(e.Type), parent, e.Created.UTC().Format(timeLayout), changed); err != nil {
		r.logger.Database().Error("Element store failed", "error", err.Error(), "id", e.ID)
		return fmt.Errorf("failed to store element %s: %w", e.ID, err)
	}

	if _, err := tx.Exec(`DELETE FROM element_versions WHERE element_id = ?`, e.ID); err != nil {
		return fmt.Errorf("failed to clear versions of %s: %w", e.ID, err)
	}
	for _, n := range e.VersionNumbers() {
		v := e.Versions[n]
		payload, err := json.Marshal(versionPayload{
			Children:   v.Children,
			References: v.References,
			Contents:   v.Contents,
			Slugs:      v.Slugs,
		})
		if err != nil {
			return fmt.Errorf("failed to encode version %d of %s: %w", n, e.ID, err)
		}
		if _, err := tx.Exec(`INSERT INTO element_versions (element_id, version, state, definition, payload) VALUES (?, ?, ?, ?, ?)`,
			e.ID, n, v.State, v.Definition, string(payload)); err != nil {
			r.logger.Database().Error("Element version store failed", "error", err.Error(), "id", e.ID, "version", n)
			return fmt.Errorf("failed to store version %d of %s: %w", n, e.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit element %s: %w", e.ID, err)
	}

	duration := time.Since(start)
	r.logger.Database().Info("Element store completed", "id", e.ID, "duration", duration)
	database.CheckAndLogSlowQuery(r.logger, query, duration)

	r.cache.SetElement(e)
	if !existed {
		r.cache.InvalidateAllElementIDs()
	}
	return nil
}

func (r *ElementRepository) loadAllIDsFromDB() ([]string, error) {
	query := `SELECT id FROM elements ORDER BY id`

	start := time.Now()
	rows, err := r.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to query element ids: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan element id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	database.CheckAndLogSlowQuery(r.logger, query, time.Since(start))
	return ids, nil
}

func (r *ElementRepository) loadFromDB(id string) (*element.Element, error) {
	query := `SELECT type, parent_id, created, changed FROM elements WHERE id = ?`

	start := time.Now()
	var (
		typ     string
		parent  sql.NullString
		created string
		changed sql.NullString
	)
	err := r.db.QueryRow(query, id).Scan(&typ, &parent, &created, &changed)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.logger.Database().Error("Element load failed", "error", err.Error(), "id", id)
		return nil, fmt.Errorf("failed to load element %s: %w", id, err)
	}

	e := &element.Element{
		ID:       id,
		Type:     element.Type(typ),
		ParentID: parent.String,
		Versions: make(map[int]*element.ElementVersion),
	}
	if e.Created, err = time.Parse(timeLayout, created); err != nil {
		return nil, fmt.Errorf("failed to parse created time of %s: %w", id, err)
	}
	if changed.Valid {
		t, err := time.Parse(timeLayout, changed.String)
		if err != nil {
			return nil, fmt.Errorf("failed to parse changed time of %s: %w", id, err)
		}
		e.Changed = &t
	}

	rows, err := r.db.Query(`SELECT version, state, definition, payload FROM element_versions WHERE element_id = ? ORDER BY version`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to query versions of %s: %w", id, err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			v       element.ElementVersion
			payload string
			decoded versionPayload
		)
		if err := rows.Scan(&v.Version, &v.State, &v.Definition, &payload); err != nil {
			return nil, fmt.Errorf("failed to scan version of %s: %w", id, err)
		}
		if err := json.Unmarshal([]byte(payload), &decoded); err != nil {
			return nil, fmt.Errorf("failed to decode version %d of %s: %w", v.Version, id, err)
		}
		v.Children = decoded.Children
		v.References = decoded.References
		v.Contents = decoded.Contents
		v.Slugs = decoded.Slugs
		e.Versions[v.Version] = &v
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	database.CheckAndLogSlowQuery(r.logger, query, time.Since(start))
	return e, nil
}
