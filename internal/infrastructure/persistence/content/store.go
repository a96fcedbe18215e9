package content

import (
	"database/sql"

	"github.com/AtRiskMedia/tractstack-elements/internal/domain/repositories"
	"github.com/AtRiskMedia/tractstack-elements/internal/infrastructure/caching/interfaces"
	"github.com/AtRiskMedia/tractstack-elements/internal/infrastructure/observability/logging"
)

// Store bundles the SQL repositories into a storage adapter.
type Store struct {
	*ElementRepository
	*UrlMappingRepository
	*FileMetaRepository
	*TransactionRepository
}

var _ repositories.StorageAdapter = (*Store)(nil)

func NewStore(db *sql.DB, cache interfaces.ElementCache, logger *logging.ChanneledLogger) *Store {
	return &Store{
		ElementRepository:     NewElementRepository(db, cache, logger),
		UrlMappingRepository:  NewUrlMappingRepository(db, logger),
		FileMetaRepository:    NewFileMetaRepository(db, logger),
		TransactionRepository: NewTransactionRepository(db, logger),
	}
}
