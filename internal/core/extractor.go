package core

import (
	"context"

	"github.com/markdave123-py/pdfchat/internal/models"
)

// ExtractedText represents the result of text extraction.
type ExtractedText struct {
	Text   string
	Method models.ExtractionMethod
	Pages  int
}

// DocumentExtractor defines the interface for turning raw PDF bytes into text.
// Implementations may return empty text; callers decide whether that is a failure.
type DocumentExtractor interface {
	Extract(ctx context.Context, data []byte) (*ExtractedText, error)
}
