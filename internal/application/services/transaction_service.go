package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/AtRiskMedia/tractstack-elements/internal/domain/changes"
	"github.com/AtRiskMedia/tractstack-elements/internal/domain/repositories"
	"github.com/AtRiskMedia/tractstack-elements/internal/domain/urlmap"
	"github.com/AtRiskMedia/tractstack-elements/internal/infrastructure/messaging"
	"github.com/AtRiskMedia/tractstack-elements/internal/infrastructure/observability/logging"
	"github.com/AtRiskMedia/tractstack-elements/internal/infrastructure/observability/metrics"
	"github.com/AtRiskMedia/tractstack-elements/internal/infrastructure/observability/performance"
	"github.com/AtRiskMedia/tractstack-elements/internal/infrastructure/security"
)

// Transaction outcomes reported to callers and metrics.
const (
	StateValidated        = "validated"
	StateRejected         = "rejected"
	StateApplied          = "applied"
	StatePartiallyApplied = "partially-applied-with-rollback-attempted"
)

// URLUpdater re-resolves the URLs of modified elements.
type URLUpdater interface {
	UpdateFor(ids []string) error
}

// TransactionReport is the engine result plus what happened while persisting it.
type TransactionReport struct {
	*changes.Result
	TransactionID string `json:"transactionId"`
	State         string `json:"state"`
	// RevertUnsupported lists persisted changes whose kind cannot be reverted.
	RevertUnsupported []string `json:"revertUnsupported,omitempty"`
	// RevertFailed lists reverts that were attempted and failed.
	RevertFailed []string `json:"revertFailed,omitempty"`
	// URLMappingStale is set when the URL index could not be updated for
	// the touched elements and may still serve their old URLs.
	URLMappingStale bool `json:"urlMappingStale,omitempty"`
}

// TransactionService validates, applies and persists transactions one at a time
type TransactionService struct {
	mu          sync.Mutex
	engine      *changes.Engine
	store       repositories.StorageAdapter
	urls        URLUpdater
	broadcaster messaging.Broadcaster
	tracker     *performance.Tracker
	logger      *logging.ChanneledLogger
}

// NewTransactionService creates a new transaction application service.
// broadcaster may be nil.
func NewTransactionService(engine *changes.Engine, store repositories.StorageAdapter, urls URLUpdater, broadcaster messaging.Broadcaster, tracker *performance.Tracker, logger *logging.ChanneledLogger) *TransactionService {
	return &TransactionService{
		engine:      engine,
		store:       store,
		urls:        urls,
		broadcaster: broadcaster,
		tracker:     tracker,
		logger:      logger,
	}
}

// ValidateTransaction checks txn without applying it
func (s *TransactionService) ValidateTransaction(ctx context.Context, txn *changes.Transaction) (*TransactionReport, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	ensureID(txn)

	res := s.engine.ValidateTransaction(txn)
	report := &TransactionReport{Result: res, TransactionID: txn.ID, State: StateValidated}
	if !res.IsSuccess() {
		report.State = StateRejected
	}
	return report, nil
}

// ApplyTransaction applies txn, persists every touched object, updates the
// URL index for the touched elements and their descendants, logs the
// transaction and notifies subscribers. A persistence failure reverts the
// already persisted changes in reverse order.
func (s *TransactionService) ApplyTransaction(ctx context.Context, txn *changes.Transaction, visit changes.Visitor) (*TransactionReport, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	ensureID(txn)
	marker := s.tracker.StartOperation("txn:apply", txn.ID)
	defer marker.Complete()
	marker.AddMetadata("changes", len(txn.Changes))

	start := time.Now()
	res := s.engine.ApplyTransaction(txn, visit)
	report := &TransactionReport{Result: res, TransactionID: txn.ID, State: StateApplied}

	if !res.IsSuccess() {
		report.State = StateRejected
		marker.SetSuccess(false)
		metrics.Transaction("rejected")
		s.logger.Transaction().Info("Transaction rejected", "transactionId", txn.ID, "errors", res.Errors)
		return report, nil
	}

	persisted, err := s.persist(res)
	if err != nil {
		s.logger.Transaction().Error("Transaction persistence failed", "transactionId", txn.ID, "error", err)
		res.Success = false
		res.Errors = append(res.Errors, fmt.Sprintf("persistence failed: %v", err))
		report.State = StatePartiallyApplied
		s.rollback(txn, res, persisted, report)
		s.updateURLs(txn.ID, res, report)
		marker.SetError(err)
		metrics.Transaction("rolled_back")
		return report, nil
	}

	s.updateURLs(txn.ID, res, report)
	s.record(txn, res)

	for _, kind := range txn.Changes.Kinds() {
		metrics.ChangeApplied(kind)
	}
	metrics.Transaction("applied")
	s.logger.Transaction().Info("Transaction applied",
		"transactionId", txn.ID,
		"changes", len(txn.Changes),
		"touched", len(res.Touched),
		"duration", time.Since(start))

	if s.broadcaster != nil && len(res.Touched) > 0 {
		event := &messaging.ChangeEvent{
			TransactionID: txn.ID,
			Kinds:         txn.Changes.Kinds(),
			ClientInfo:    res.ClientInfo,
			TouchedURLs:   res.TouchedURLs,
			Created:       time.Now().UTC(),
		}
		if txn.Author != nil {
			event.AuthorID = txn.Author.ID
		}
		s.broadcaster.Broadcast(event)
	}
	return report, nil
}

// persist stores every touched object and returns the keys that reached storage.
func (s *TransactionService) persist(res *changes.Result) (map[string]bool, error) {
	persisted := make(map[string]bool, len(res.Touched))
	for _, st := range res.Touched {
		var err error
		switch {
		case st.Element != nil:
			err = s.store.StoreElement(st.Element)
		case st.File != nil:
			err = s.store.StoreFileMeta(st.File)
		}
		if err != nil {
			return persisted, fmt.Errorf("failed to store %s: %w", st.Key(), err)
		}
		persisted[st.Key()] = true
	}
	return persisted, nil
}

// rollback reverts, newest first, the changes whose subject was persisted.
func (s *TransactionService) rollback(txn *changes.Transaction, res *changes.Result, persisted map[string]bool, report *TransactionReport) {
	for i := len(res.Rollbacks) - 1; i >= 0; i-- {
		rb := res.Rollbacks[i]
		subject := txn.Changes[rb.Index].Subject()
		if !persisted["element:"+subject] && !persisted["file:"+subject] {
			continue
		}

		label := fmt.Sprintf("change %d (%s)", rb.Index+1, rb.Kind)
		err := changes.Revert(s.store, rb)
		switch {
		case err == nil:
			res.Infos = append(res.Infos, label+" reverted")
		case errors.Is(err, changes.ErrRevertNotImplemented):
			report.RevertUnsupported = append(report.RevertUnsupported, label)
		default:
			report.RevertFailed = append(report.RevertFailed, fmt.Sprintf("%s: %v", label, err))
			s.logger.Alert().Error("Revert failed", "transactionId", txn.ID, "change", label, "error", err)
		}
	}
	if len(report.RevertUnsupported) > 0 {
		s.logger.Transaction().Warn("Some persisted changes cannot be reverted", "transactionId", txn.ID, "changes", report.RevertUnsupported)
	}
}

// updateURLs refreshes the URL index for every URL-affecting element and
// its descendants, since relative slugs derive from ancestors.
func (s *TransactionService) updateURLs(txnID string, res *changes.Result, report *TransactionReport) {
	if len(res.TouchedURLs) == 0 {
		return
	}
	ids, err := s.expandDescendants(res.TouchedURLs)
	if err == nil {
		err = s.urls.UpdateFor(ids)
	}
	if err == nil {
		return
	}
	report.URLMappingStale = true
	res.Infos = append(res.Infos, fmt.Sprintf("url mapping not updated: %v", err))
	s.logger.Alert().Error("URL mapping is stale after transaction",
		"transactionId", txnID,
		"elements", res.TouchedURLs,
		"corrupt", urlmap.IsCorruption(err),
		"error", err)
}

func (s *TransactionService) expandDescendants(ids []string) ([]string, error) {
	seen := make(map[string]bool, len(ids))
	queue := append([]string(nil), ids...)
	var out []string
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		if seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)

		e, err := s.store.LoadElement(id)
		if err != nil {
			return nil, err
		}
		if e == nil {
			continue
		}
		if v := e.NewestVersion(); v != nil {
			queue = append(queue, v.Children...)
		}
	}
	return out, nil
}

func (s *TransactionService) record(txn *changes.Transaction, res *changes.Result) {
	rec := &repositories.TransactionRecord{
		ID:         txn.ID,
		Kinds:      txn.Changes.Kinds(),
		ElementIDs: res.TouchedElementIDs(),
		Created:    time.Now().UTC(),
	}
	if txn.Author != nil {
		rec.AuthorID, rec.AuthorName = txn.Author.ID, txn.Author.Name
	}
	if err := s.store.RecordTransaction(rec); err != nil {
		s.logger.Transaction().Warn("Failed to record transaction", "transactionId", txn.ID, "error", err)
	}
}

// RecentTransactions returns the newest logged transactions
func (s *TransactionService) RecentTransactions(limit int) ([]*repositories.TransactionRecord, error) {
	if limit <= 0 {
		limit = 20
	}
	return s.store.RecentTransactions(limit)
}

func ensureID(txn *changes.Transaction) {
	if txn.ID == "" {
		txn.ID = security.GenerateULID()
	}
}
