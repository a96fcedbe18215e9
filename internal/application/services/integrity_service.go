package services

import (
	"crypto/md5"
	"encoding/json"
	"fmt"
	"time"

	"github.com/AtRiskMedia/tractstack-elements/internal/domain/entities/element"
	"github.com/AtRiskMedia/tractstack-elements/internal/domain/repositories"
	domainservices "github.com/AtRiskMedia/tractstack-elements/internal/domain/services"
	"github.com/AtRiskMedia/tractstack-elements/internal/infrastructure/observability/logging"
)

// IntegrityService loads the whole tree and reports structural problems
type IntegrityService struct {
	store    repositories.StorageAdapter
	analyzer *domainservices.IntegrityService
	logger   *logging.ChanneledLogger
}

// NewIntegrityService creates a new integrity analysis service
func NewIntegrityService(store repositories.StorageAdapter, logger *logging.ChanneledLogger) *IntegrityService {
	return &IntegrityService{
		store:    store,
		analyzer: domainservices.NewIntegrityService(),
		logger:   logger,
	}
}

// Analyze returns the integrity report and an ETag derived from its contents
func (s *IntegrityService) Analyze() (*domainservices.IntegrityReport, string, error) {
	start := time.Now()
	ids, err := s.store.EnumAllElementIDs()
	if err != nil {
		return nil, "", fmt.Errorf("failed to enumerate elements: %w", err)
	}

	elements := make(map[string]*element.Element, len(ids))
	for _, id := range ids {
		e, err := s.store.LoadElement(id)
		if err != nil {
			return nil, "", fmt.Errorf("failed to load element %s: %w", id, err)
		}
		if e != nil {
			elements[id] = e
		}
	}

	report := s.analyzer.Analyze(elements, func(id string) bool {
		meta, err := s.store.LoadFileMeta(id)
		return err == nil && meta != nil
	})

	etag, err := generateETag(report)
	if err != nil {
		return nil, "", err
	}

	s.logger.Content().Info("Integrity analysis complete",
		"elements", report.Elements,
		"clean", report.IsClean(),
		"orphans", len(report.Orphans),
		"unreachable", len(report.Unreachable),
		"duration", time.Since(start))
	return report, etag, nil
}

// generateETag hashes the serialized report
func generateETag(report *domainservices.IntegrityReport) (string, error) {
	data, err := json.Marshal(report)
	if err != nil {
		return "", err
	}
	hash := md5.Sum(data)
	return fmt.Sprintf("\"%x\"", hash), nil
}
