package services

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/markdave123-py/pdfchat/internal/core/session"
	"github.com/markdave123-py/pdfchat/internal/models"
	"github.com/markdave123-py/pdfchat/internal/pkg/logger"
)

const module = "DOCUMENTS"

type UploadFile struct {
	Filename string
	Data     []byte
}

type UploadFailure struct {
	Filename  string `json:"filename"`
	ErrorCode string `json:"error_code"`
	Message   string `json:"message"`
}

type UploadResult struct {
	Loaded         []models.DocumentInfo `json:"loaded"`
	Failed         []UploadFailure       `json:"failed"`
	TotalDocuments int                   `json:"total_documents"`
}

type DocumentService struct {
	registry *session.Registry
	log      logger.ILogger
}

func NewDocumentService(registry *session.Registry, log logger.ILogger) *DocumentService {
	return &DocumentService{registry: registry, log: log}
}

// Upload loads files into the session in order. Per-file failures are
// collected; the call only fails outright when the session is unusable or
// nothing could be loaded.
func (s *DocumentService) Upload(ctx context.Context, sessionID string, files []UploadFile) (*UploadResult, error) {
	if len(files) == 0 {
		return nil, fmt.Errorf("%w: no file provided", ErrInvalidRequest)
	}
	sess, err := s.registry.Get(sessionID)
	if err != nil {
		return nil, err
	}

	res := &UploadResult{Loaded: []models.DocumentInfo{}, Failed: []UploadFailure{}}
	var firstErr error
	for _, f := range files {
		name := CleanFilename(f.Filename)
		info, err := sess.LoadDocument(ctx, name, f.Data)
		if err != nil {
			if errors.Is(err, session.ErrSessionExpired) {
				return nil, err
			}
			if firstErr == nil {
				firstErr = err
			}
			res.Failed = append(res.Failed, UploadFailure{
				Filename:  name,
				ErrorCode: session.KindOf(err),
				Message:   err.Error(),
			})
			continue
		}
		res.Loaded = append(res.Loaded, info)
	}

	if len(res.Loaded) == 0 {
		return nil, firstErr
	}
	if len(res.Failed) > 0 {
		s.log.Warn(module, "Some documents were rejected", map[string]interface{}{
			"session_id": sessionID,
			"loaded":     len(res.Loaded),
			"failed":     len(res.Failed),
		})
	}
	res.TotalDocuments = len(sess.Documents())
	return res, nil
}

func (s *DocumentService) List(sessionID string) ([]models.DocumentInfo, error) {
	sess, err := s.registry.Get(sessionID)
	if err != nil {
		return nil, err
	}
	return sess.Documents(), nil
}

func (s *DocumentService) Remove(ctx context.Context, sessionID, filename string) error {
	sess, err := s.registry.Get(sessionID)
	if err != nil {
		return err
	}
	return sess.RemoveDocument(ctx, CleanFilename(filename))
}

// CleanFilename strips any directory components a client sent along with the name.
func CleanFilename(name string) string {
	name = strings.TrimSpace(strings.ReplaceAll(name, "\\", "/"))
	if name == "" {
		return ""
	}
	base := filepath.Base(name)
	if base == "." || base == "/" {
		return ""
	}
	return base
}
