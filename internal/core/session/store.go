package session

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"

	"github.com/markdave123-py/pdfchat/internal/core"
	"github.com/markdave123-py/pdfchat/internal/models"
)

// DocumentStore holds the documents of one session in insertion order.
// It is not safe for concurrent use; the owning session serializes access.
type DocumentStore struct {
	extractor core.DocumentExtractor
	maxBytes  int
	timeout   time.Duration
	now       func() time.Time

	order []string
	docs  map[string]models.Document
}

func NewDocumentStore(extractor core.DocumentExtractor, maxBytes int, timeout time.Duration, now func() time.Time) *DocumentStore {
	if now == nil {
		now = time.Now
	}
	return &DocumentStore{
		extractor: extractor,
		maxBytes:  maxBytes,
		timeout:   timeout,
		now:       now,
		docs:      make(map[string]models.Document),
	}
}

// Add validates the upload, extracts its text and stores the resulting document.
// Nothing is stored unless extraction yields non-blank text.
func (s *DocumentStore) Add(ctx context.Context, filename string, data []byte) (models.Document, error) {
	if err := s.validate(filename, data); err != nil {
		return models.Document{}, err
	}

	extractCtx := ctx
	if s.timeout > 0 {
		var cancel context.CancelFunc
		extractCtx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	res, err := s.extractor.Extract(extractCtx, data)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(extractCtx.Err(), context.DeadlineExceeded) {
			return models.Document{}, fmt.Errorf("%w: %s", ErrExtractionTimeout, filename)
		}
		return models.Document{}, fmt.Errorf("%w: %s: %v", ErrExtractionFailed, filename, err)
	}
	if res == nil || strings.TrimSpace(res.Text) == "" {
		return models.Document{}, fmt.Errorf("%w: %s: empty text", ErrExtractionFailed, filename)
	}

	doc := models.Document{
		Filename:         filename,
		RawText:          res.Text,
		ExtractionMethod: res.Method,
		PageCount:        max(res.Pages, 0),
		ByteSize:         len(data),
		EstimatedTokens:  EstimateTokens(res.Text),
		UploadedAt:       s.now(),
	}
	s.order = append(s.order, filename)
	s.docs[filename] = doc
	return doc, nil
}

func (s *DocumentStore) validate(filename string, data []byte) error {
	if filename == "" || !strings.EqualFold(filepath.Ext(filename), ".pdf") {
		return fmt.Errorf("%w: %q", ErrInvalidFileType, filename)
	}
	if s.maxBytes > 0 && len(data) > s.maxBytes {
		return fmt.Errorf("%w: %d bytes, limit is %d", ErrFileTooLarge, len(data), s.maxBytes)
	}
	if !mimetype.Detect(data).Is("application/pdf") {
		return fmt.Errorf("%w: %q does not look like a PDF", ErrInvalidFileType, filename)
	}
	if _, exists := s.docs[filename]; exists {
		return fmt.Errorf("%w: %q", ErrDuplicateFilename, filename)
	}
	return nil
}

// Remove deletes the named document and reports whether it was present.
func (s *DocumentStore) Remove(filename string) bool {
	if _, ok := s.docs[filename]; !ok {
		return false
	}
	delete(s.docs, filename)
	for i, name := range s.order {
		if name == filename {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return true
}

// All returns the documents in insertion order.
func (s *DocumentStore) All() []models.Document {
	out := make([]models.Document, 0, len(s.order))
	for _, name := range s.order {
		out = append(out, s.docs[name])
	}
	return out
}

func (s *DocumentStore) Len() int {
	return len(s.order)
}
