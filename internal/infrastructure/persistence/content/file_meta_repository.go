package content

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/AtRiskMedia/tractstack-elements/internal/domain/entities/element"
	"github.com/AtRiskMedia/tractstack-elements/internal/infrastructure/observability/logging"
	"github.com/AtRiskMedia/tractstack-elements/internal/infrastructure/persistence/database"
)

type FileMetaRepository struct {
	db     *sql.DB
	logger *logging.ChanneledLogger
}

func NewFileMetaRepository(db *sql.DB, logger *logging.ChanneledLogger) *FileMetaRepository {
	return &FileMetaRepository{db: db, logger: logger}
}

func (r *FileMetaRepository) LoadFileMeta(id string) (*element.FileMeta, error) {
	query := `SELECT id, name, mime_type, size, width, height, checksum, created FROM file_meta WHERE id = ?`

	var (
		m        element.FileMeta
		checksum sql.NullString
		created  string
	)
	err := r.db.QueryRow(query, id).Scan(&m.ID, &m.Name, &m.MimeType, &m.Size, &m.Width, &m.Height, &checksum, &created)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load file meta %s: %w", id, err)
	}
	m.Checksum = checksum.String
	if m.Created, err = time.Parse(timeLayout, created); err != nil {
		return nil, fmt.Errorf("failed to parse created time of file %s: %w", id, err)
	}
	return &m, nil
}

func (r *FileMetaRepository) StoreFileMeta(meta *element.FileMeta) error {
	query := `INSERT INTO file_meta (id, name, mime_type, size, width, height, checksum, created) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET name = excluded.name, mime_type = excluded.mime_type, size = excluded.size,
		width = excluded.width, height = excluded.height, checksum = excluded.checksum`

	created := meta.Created
	if created.IsZero() {
		created = time.Now().UTC()
	}

	start := time.Now()
	r.logger.Database().Debug("Executing file meta store", "id", meta.ID)

	_, err := r.db.Exec(query, meta.ID, meta.Name, meta.MimeType, meta.Size, meta.Width, meta.Height,
		meta.Checksum, created.UTC().Format(timeLayout))
	if err != nil {
		r.logger.Database().Error("File meta store failed", "error", err.Error(), "id", meta.ID)
		return fmt.Errorf("failed to store file meta %s: %w", meta.ID, err)
	}

	duration := time.Since(start)
	r.logger.Database().Info("File meta store completed", "id", meta.ID, "duration", duration)
	database.CheckAndLogSlowQuery(r.logger, query, duration)
	return nil
}

func (r *FileMetaRepository) DeleteFileMeta(id string) error {
	if _, err := r.db.Exec(`DELETE FROM file_meta WHERE id = ?`, id); err != nil {
		r.logger.Database().Error("File meta delete failed", "error", err.Error(), "id", id)
		return fmt.Errorf("failed to delete file meta %s: %w", id, err)
	}
	return nil
}
