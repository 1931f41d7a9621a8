package ingestion_engine

import (
	"bytes"
	"context"
	"fmt"
	"strconv"
	"strings"

	"code.sajari.com/docconv"

	"github.com/markdave123-py/pdfchat/internal/core"
	"github.com/markdave123-py/pdfchat/internal/models"
)

var _ core.DocumentExtractor = (*DocconvExtractor)(nil)

// DocconvExtractor reads the text layer of a PDF with sajari/docconv.
// docconv shells out to pdftotext, so poppler-utils must be installed.
type DocconvExtractor struct {
	useReadability bool
}

func NewDocconvExtractor(useReadability bool) *DocconvExtractor {
	return &DocconvExtractor{useReadability: useReadability}
}

// Extract converts data and returns its text with blank lines dropped.
// docconv has no cancellation hook, so a cancelled ctx abandons the
// conversion goroutine rather than stopping it.
func (e *DocconvExtractor) Extract(ctx context.Context, data []byte) (*core.ExtractedText, error) {
	type result struct {
		res *docconv.Response
		err error
	}
	done := make(chan result, 1)

	go func() {
		res, err := docconv.Convert(bytes.NewReader(data), "application/pdf", e.useReadability)
		done <- result{res: res, err: err}
	}()

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case r := <-done:
		if r.err != nil {
			return nil, fmt.Errorf("docconv: %w", r.err)
		}
		if r.res == nil {
			return nil, fmt.Errorf("docconv: empty response")
		}
		pages, _ := strconv.Atoi(strings.TrimSpace(r.res.Meta["Pages"]))
		return &core.ExtractedText{
			Text:   compactLines(r.res.Body),
			Method: models.ExtractionDirect,
			Pages:  pages,
		}, nil
	}
}

// compactLines trims every line and drops the empty ones.
func compactLines(text string) string {
	lines := strings.Split(text, "\n")
	kept := lines[:0]
	for _, line := range lines {
		if line = strings.TrimSpace(line); line == "" {
			continue
		}
		kept = append(kept, line)
	}
	return strings.Join(kept, "\n")
}
