package content

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/AtRiskMedia/tractstack-elements/internal/domain/repositories"
	"github.com/AtRiskMedia/tractstack-elements/internal/infrastructure/observability/logging"
)

// TransactionRepository is the append-only log of applied transactions.
type TransactionRepository struct {
	db     *sql.DB
	logger *logging.ChanneledLogger
}

func NewTransactionRepository(db *sql.DB, logger *logging.ChanneledLogger) *TransactionRepository {
	return &TransactionRepository{db: db, logger: logger}
}

func (r *TransactionRepository) RecordTransaction(rec *repositories.TransactionRecord) error {
	kinds, _ := json.Marshal(rec.Kinds)
	ids, _ := json.Marshal(rec.ElementIDs)

	created := rec.Created
	if created.IsZero() {
		created = time.Now().UTC()
	}

	_, err := r.db.Exec(`INSERT INTO transactions (id, author_id, author_name, kinds, element_ids, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.AuthorID, rec.AuthorName, string(kinds), string(ids), created.UTC().Format(timeLayout))
	if err != nil {
		r.logger.Database().Error("Transaction record failed", "error", err.Error(), "id", rec.ID)
		return fmt.Errorf("failed to record transaction %s: %w", rec.ID, err)
	}
	return nil
}

// RecentTransactions returns up to limit records, newest first.
func (r *TransactionRepository) RecentTransactions(limit int) ([]*repositories.TransactionRecord, error) {
	rows, err := r.db.Query(`SELECT id, author_id, author_name, kinds, element_ids, created_at FROM transactions
		ORDER BY created_at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query transactions: %w", err)
	}
	defer rows.Close()

	var records []*repositories.TransactionRecord
	for rows.Next() {
		var (
			rec        repositories.TransactionRecord
			kinds, ids string
			created    string
		)
		if err := rows.Scan(&rec.ID, &rec.AuthorID, &rec.AuthorName, &kinds, &ids, &created); err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		if err := json.Unmarshal([]byte(kinds), &rec.Kinds); err != nil {
			return nil, fmt.Errorf("failed to decode transaction %s kinds: %w", rec.ID, err)
		}
		if err := json.Unmarshal([]byte(ids), &rec.ElementIDs); err != nil {
			return nil, fmt.Errorf("failed to decode transaction %s element ids: %w", rec.ID, err)
		}
		if rec.Created, err = time.Parse(timeLayout, created); err != nil {
			return nil, fmt.Errorf("failed to parse transaction time: %w", err)
		}
		records = append(records, &rec)
	}
	return records, rows.Err()
}
