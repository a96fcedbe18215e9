package services

import (
	"context"
	"fmt"

	"github.com/AtRiskMedia/tractstack-elements/internal/domain/changes"
	"github.com/AtRiskMedia/tractstack-elements/internal/domain/user"
	"github.com/AtRiskMedia/tractstack-elements/internal/infrastructure/media"
	"github.com/AtRiskMedia/tractstack-elements/internal/infrastructure/security"
)

// UploadResult is the outcome of a file upload.
type UploadResult struct {
	*TransactionReport
	FileID string `json:"fileId"`
	Path   string `json:"path,omitempty"`
}

// FileService stores uploads and registers their metadata through an AddFileMeta transaction
type FileService struct {
	files        *media.FileProcessor
	transactions *TransactionService
	maxSize      int64
}

// NewFileService creates a new file application service
func NewFileService(files *media.FileProcessor, transactions *TransactionService, maxSize int64) *FileService {
	return &FileService{files: files, transactions: transactions, maxSize: maxSize}
}

// Upload probes and stores data, then applies the metadata change. The
// stored file is removed again when the transaction does not apply.
func (s *FileService) Upload(ctx context.Context, author *user.User, name string, data []byte) (*UploadResult, error) {
	if s.maxSize > 0 && int64(len(data)) > s.maxSize {
		return nil, fmt.Errorf("file exceeds the maximum upload size of %d bytes", s.maxSize)
	}
	probe, err := media.ProbeFile(name, data)
	if err != nil {
		return nil, err
	}

	id := security.GenerateElementID()
	path, err := s.files.Save(id, name, data, probe)
	if err != nil {
		return nil, err
	}

	meta := &changes.AddFileMeta{
		FileID:   id,
		Name:     name,
		MimeType: probe.MimeType,
		Size:     probe.Size,
		Width:    probe.Width,
		Height:   probe.Height,
		Checksum: probe.Checksum,
	}
	txn := &changes.Transaction{ID: security.GenerateULID(), Author: author, Changes: changes.List{meta}}
	report, err := s.transactions.ApplyTransaction(ctx, txn, nil)
	if err != nil || !report.IsSuccess() {
		_ = s.files.Delete(id, name)
		if err != nil {
			return nil, err
		}
		return &UploadResult{TransactionReport: report, FileID: id}, nil
	}
	return &UploadResult{TransactionReport: report, FileID: id, Path: path}, nil
}
