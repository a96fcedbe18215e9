// Package repositories defines the storage adapter contracts for elements,
// the durable URL mapping, file metadata and the transaction log.
// These repositories abstract the data persistence details, ensuring the core
// application is clean and decoupled from the database.
package repositories

import (
	"time"

	"github.com/AtRiskMedia/tractstack-elements/internal/domain/entities/element"
)

// ElementLoader is the read side used by slug resolution and change validation.
// LoadElement returns nil, nil when the element does not exist.
type ElementLoader interface {
	LoadElement(id string) (*element.Element, error)
}

// ElementRepository persists elements.
type ElementRepository interface {
	ElementLoader
	StoreElement(e *element.Element) error
	EnumAllElementIDs() ([]string, error)
}

// UrlMappingRepository is the durable copy of the inverted URL index.
// LoadUrlMapping reports found=false when no valid copy exists.
type UrlMappingRepository interface {
	LoadUrlMapping() (mapping map[string]element.UrlPointer, found bool, err error)
	StoreUrlMapping(mapping map[string]element.UrlPointer) error
	InvalidateUrlMapping() error
	UrlMappingValid() (bool, error)
}

// FileMetaRepository persists uploaded file metadata.
// LoadFileMeta returns nil, nil when missing.
type FileMetaRepository interface {
	LoadFileMeta(id string) (*element.FileMeta, error)
	StoreFileMeta(meta *element.FileMeta) error
	DeleteFileMeta(id string) error
}

// TransactionRecord is the persisted trace of an applied transaction.
type TransactionRecord struct {
	ID         string    `json:"id"`
	AuthorID   string    `json:"authorId"`
	AuthorName string    `json:"authorName"`
	Kinds      []string  `json:"kinds"`
	ElementIDs []string  `json:"elementIds"`
	Created    time.Time `json:"created"`
}

// TransactionLogRepository records applied transactions.
type TransactionLogRepository interface {
	RecordTransaction(rec *TransactionRecord) error
	RecentTransactions(limit int) ([]*TransactionRecord, error)
}

// StorageAdapter is everything the change engine and URL cache need.
type StorageAdapter interface {
	ElementRepository
	UrlMappingRepository
	FileMetaRepository
	TransactionLogRepository
}
