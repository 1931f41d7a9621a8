package app

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/markdave123-py/pdfchat/internal/config"
	"github.com/markdave123-py/pdfchat/internal/core"
	"github.com/markdave123-py/pdfchat/internal/core/session"
	"github.com/markdave123-py/pdfchat/internal/models"
	"github.com/markdave123-py/pdfchat/internal/pkg/logger"
	"github.com/markdave123-py/pdfchat/internal/services"
)

type nopExtractor struct{}

func (nopExtractor) Extract(context.Context, []byte) (*core.ExtractedText, error) {
	return &core.ExtractedText{Text: "texto", Method: models.ExtractionDirect}, nil
}

type nopLLM struct{}

func (nopLLM) Complete(context.Context, string, []models.Turn) (string, error) {
	return "ok", nil
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	webDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(webDir, "index.html"), []byte("<h1>PDF Chat</h1>"), 0o644))
	return &config.Config{
		AIAPIKey:                 "k",
		GenModel:                 "gemini-test",
		ModelTokenLimit:          1_000_000,
		OCRLanguage:              "spa",
		MaxPDFSizeMB:             1,
		SessionTimeoutMinutes:    30,
		SweepIntervalSeconds:     60,
		CompletionTimeoutSeconds: 5,
		ExtractionTimeoutSeconds: 5,
		MaxConversationLength:    20,
		Port:                     "0",
		AllowedOrigins:           []string{"*"},
		WebDir:                   webDir,
		LogFilePath:              filepath.Join(t.TempDir(), "test.log"),
		AppEnv:                   "test",
	}
}

func newTestServer(t *testing.T) *Server {
	cfg := testConfig(t)
	log := logger.NewNop()
	registry := NewRegistry(cfg, session.Deps{Extractor: nopExtractor{}, LLM: nopLLM{}, Logger: log})
	return NewServer(cfg, log,
		services.NewSessionService(registry, services.SystemInfo{Model: cfg.GenModel}, log),
		services.NewDocumentService(registry, log),
	)
}

func TestServerRoutesAPI(t *testing.T) {
	h := newTestServer(t).Handler()

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/sessions", nil))
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/health", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var health services.HealthReport
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &health))
	assert.Equal(t, 1, health.ActiveSessions)
}

func TestServerServesWebUI(t *testing.T) {
	h := newTestServer(t).Handler()

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "PDF Chat")
}

func TestServerCORSPreflight(t *testing.T) {
	h := newTestServer(t).Handler()

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/sessions", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestSessionConfigFromEnvironment(t *testing.T) {
	cfg := testConfig(t)
	sc := SessionConfig(cfg)

	assert.Equal(t, cfg.SessionTimeout(), sc.Timeout)
	assert.Equal(t, 1<<20, sc.MaxDocumentBytes)
	assert.Equal(t, cfg.ModelTokenLimit, sc.ModelTokenLimit)
}
