package ingestion_engine

import (
	"context"
	"strings"
	"unicode"

	"github.com/markdave123-py/pdfchat/internal/core"
	"github.com/markdave123-py/pdfchat/internal/pkg/logger"
)

const module = "EXTRACTOR"

// MinDirectChars is the number of non-space characters below which the text
// layer is treated as missing and OCR is attempted.
const MinDirectChars = 50

var _ core.DocumentExtractor = (*HybridExtractor)(nil)

// OCRExtractor is an extractor that may be switched off by configuration.
type OCRExtractor interface {
	core.DocumentExtractor
	Available() bool
}

// HybridExtractor reads the text layer first and falls back to OCR for
// scanned documents.
type HybridExtractor struct {
	direct core.DocumentExtractor
	ocr    OCRExtractor
	log    logger.ILogger
}

func NewHybridExtractor(direct core.DocumentExtractor, ocr OCRExtractor, log logger.ILogger) *HybridExtractor {
	if log == nil {
		log = logger.NewNop()
	}
	return &HybridExtractor{direct: direct, ocr: ocr, log: log}
}

func (h *HybridExtractor) Extract(ctx context.Context, data []byte) (*core.ExtractedText, error) {
	res, directErr := h.direct.Extract(ctx, data)
	if directErr == nil && res != nil && meaningfulChars(res.Text) >= MinDirectChars {
		h.log.Debug(module, "Text layer extracted", map[string]interface{}{"chars": len(res.Text), "pages": res.Pages})
		return res, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if h.ocr == nil || !h.ocr.Available() {
		if directErr != nil {
			return nil, directErr
		}
		// short text layer and no OCR: keep what there is
		return res, nil
	}

	h.log.Info(module, "Text layer missing or too short, trying OCR", map[string]interface{}{
		"bytes":        len(data),
		"direct_error": errString(directErr),
	})
	ocrRes, err := h.ocr.Extract(ctx, data)
	if err != nil {
		h.log.Error(module, "OCR extraction failed", map[string]interface{}{"error": err})
		if directErr == nil && res != nil && strings.TrimSpace(res.Text) != "" {
			return res, nil
		}
		return nil, err
	}
	if ocrRes.Pages == 0 && res != nil {
		ocrRes.Pages = res.Pages
	}
	return ocrRes, nil
}

func meaningfulChars(s string) int {
	n := 0
	for _, r := range s {
		if !unicode.IsSpace(r) {
			n++
		}
	}
	return n
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
