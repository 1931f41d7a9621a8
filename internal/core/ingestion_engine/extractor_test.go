package ingestion_engine

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/markdave123-py/pdfchat/internal/core"
	"github.com/markdave123-py/pdfchat/internal/models"
)

type stubExtractor struct {
	text  string
	err   error
	calls int
}

func (s *stubExtractor) Extract(context.Context, []byte) (*core.ExtractedText, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return &core.ExtractedText{Text: s.text, Method: models.ExtractionDirect, Pages: 2}, nil
}

func ocrServer(t *testing.T, status int, body string) (*httptest.Server, *http.Request) {
	t.Helper()
	var captured http.Request
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseMultipartForm(1<<20))
		captured = *r
		w.WriteHeader(status)
		_, _ = io.WriteString(w, body)
	}))
	t.Cleanup(srv.Close)
	return srv, &captured
}

func TestOCRSpaceClientExtract(t *testing.T) {
	srv, req := ocrServer(t, http.StatusOK, `{
		"ParsedResults": [{"ParsedText": "Página uno"}, {"ParsedText": "Página dos"}],
		"IsErroredOnProcessing": false
	}`)
	client := NewOCRSpaceClient(srv.URL, "k-123", "", srv.Client())

	res, err := client.Extract(context.Background(), []byte("%PDF-1.4 scanned"))

	require.NoError(t, err)
	assert.Equal(t, "Página uno\nPágina dos", res.Text)
	assert.Equal(t, models.ExtractionOCR, res.Method)
	assert.Equal(t, 2, res.Pages)

	assert.Equal(t, "k-123", req.FormValue("apikey"))
	assert.Equal(t, "spa", req.FormValue("language"))
	assert.Equal(t, "2", req.FormValue("OCREngine"))
	assert.Equal(t, "true", req.FormValue("isTable"))
	require.NotNil(t, req.MultipartForm)
	assert.Len(t, req.MultipartForm.File["file"], 1)
}

func TestOCRSpaceClientErrors(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantErr string
	}{
		{"processing error string", http.StatusOK, `{"IsErroredOnProcessing": true, "ErrorMessage": "quota"}`, "quota"},
		{"processing error list", http.StatusOK, `{"IsErroredOnProcessing": true, "ErrorMessage": ["bad file", "retry"]}`, "bad file; retry"},
		{"http error", http.StatusForbidden, `forbidden`, "403"},
		{"malformed json", http.StatusOK, `{`, "ocr decode"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, _ := ocrServer(t, tt.status, tt.body)
			client := NewOCRSpaceClient(srv.URL, "k", "spa", srv.Client())

			_, err := client.Extract(context.Background(), []byte("%PDF-1.4"))

			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestOCRSpaceClientWithoutKey(t *testing.T) {
	client := NewOCRSpaceClient("", "", "", nil)
	assert.False(t, client.Available())
	_, err := client.Extract(context.Background(), []byte("%PDF"))
	assert.Error(t, err)
}

func TestHybridExtractorPrefersTextLayer(t *testing.T) {
	direct := &stubExtractor{text: strings.Repeat("texto legible ", 10)}
	srv, _ := ocrServer(t, http.StatusOK, `{"ParsedResults": [{"ParsedText": "no debería usarse"}]}`)
	h := NewHybridExtractor(direct, NewOCRSpaceClient(srv.URL, "k", "spa", srv.Client()), nil)

	res, err := h.Extract(context.Background(), []byte("%PDF"))

	require.NoError(t, err)
	assert.Equal(t, models.ExtractionDirect, res.Method)
	assert.Equal(t, direct.text, res.Text)
}

func TestHybridExtractorFallsBackToOCR(t *testing.T) {
	srv, _ := ocrServer(t, http.StatusOK, `{"ParsedResults": [{"ParsedText": "Resolución escaneada N° 12"}]}`)
	ocr := NewOCRSpaceClient(srv.URL, "k", "spa", srv.Client())

	for name, direct := range map[string]*stubExtractor{
		"short text layer": {text: "  p. 1  "},
		"direct failure":   {err: errors.New("no text layer")},
	} {
		t.Run(name, func(t *testing.T) {
			res, err := NewHybridExtractor(direct, ocr, nil).Extract(context.Background(), []byte("%PDF"))

			require.NoError(t, err)
			assert.Equal(t, models.ExtractionOCR, res.Method)
			assert.Equal(t, "Resolución escaneada N° 12", res.Text)
		})
	}
}

func TestHybridExtractorWithoutOCR(t *testing.T) {
	t.Run("keeps short text", func(t *testing.T) {
		h := NewHybridExtractor(&stubExtractor{text: "corto"}, NewOCRSpaceClient("", "", "", nil), nil)
		res, err := h.Extract(context.Background(), []byte("%PDF"))
		require.NoError(t, err)
		assert.Equal(t, "corto", res.Text)
	})

	t.Run("surfaces direct error", func(t *testing.T) {
		h := NewHybridExtractor(&stubExtractor{err: errors.New("broken")}, nil, nil)
		_, err := h.Extract(context.Background(), []byte("%PDF"))
		assert.EqualError(t, err, "broken")
	})
}

func TestHybridExtractorOCRTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-time.After(time.Second):
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	h := NewHybridExtractor(&stubExtractor{}, NewOCRSpaceClient(srv.URL, "k", "spa", srv.Client()), nil)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	_, err := h.Extract(ctx, []byte("%PDF"))

	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestCompactLines(t *testing.T) {
	assert.Equal(t, "uno\ndos", compactLines("  uno \n\n\t\n dos\n"))
	assert.Equal(t, "", compactLines("\n \n"))
}
