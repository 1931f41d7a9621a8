package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/markdave123-py/pdfchat/internal/core"
	"github.com/markdave123-py/pdfchat/internal/core/session"
	"github.com/markdave123-py/pdfchat/internal/models"
)

type echoExtractor struct{}

func (echoExtractor) Extract(_ context.Context, data []byte) (*core.ExtractedText, error) {
	return &core.ExtractedText{Text: string(data), Method: models.ExtractionDirect, Pages: 1}, nil
}

type cannedLLM struct{ reply string }

func (c cannedLLM) Complete(context.Context, string, []models.Turn) (string, error) {
	return c.reply, nil
}

func newTestSession(t *testing.T) *session.ChatSession {
	t.Helper()
	return session.New("pdf_chat_test", "", session.Config{
		Timeout:               time.Hour,
		ModelTokenLimit:       1_000_000,
		MaxConversationLength: 20,
		MaxDocumentBytes:      1 << 20,
		ExtractionTimeout:     time.Second,
		CompletionTimeout:     time.Second,
	}, session.Deps{Extractor: echoExtractor{}, LLM: cannedLLM{reply: "The invoice total is 42."}})
}

func writePDF(t *testing.T, name, text string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte("%PDF-1.4\n"+text), 0o644))
	return path
}

func TestVersionCmd(t *testing.T) {
	cmd := newRootCmd()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs([]string{"version"})

	require.NoError(t, cmd.Execute())
	assert.Contains(t, buf.String(), "pdfchat dev")
	assert.Contains(t, buf.String(), "commit: none")
}

func TestChatCmdRequiresFiles(t *testing.T) {
	cmd := newRootCmd()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs([]string{"chat"})

	assert.Error(t, cmd.Execute())
}

func TestLoadFilesReportsFailures(t *testing.T) {
	s := newTestSession(t)
	good := writePDF(t, "invoice.pdf", "Invoice total: 42 EUR")
	notPDF := filepath.Join(t.TempDir(), "notes.txt")
	require.NoError(t, os.WriteFile(notPDF, []byte("plain"), 0o644))
	missing := filepath.Join(t.TempDir(), "missing.pdf")

	out := new(bytes.Buffer)
	loaded := loadFiles(context.Background(), s, []string{good, notPDF, missing}, out)

	assert.Equal(t, 1, loaded)
	assert.Contains(t, out.String(), "✓ invoice.pdf")
	assert.Contains(t, out.String(), "INVALID_FILE_TYPE")
	assert.Len(t, s.Documents(), 1)
}

func TestChatLoopExchangesAndCommands(t *testing.T) {
	s := newTestSession(t)
	require.Equal(t, 1, loadFiles(context.Background(), s, []string{writePDF(t, "invoice.pdf", "Invoice total: 42 EUR")}, new(bytes.Buffer)))

	in := strings.NewReader(strings.Join([]string{
		"What is the total?",
		"/docs",
		"/stats",
		"/clear",
		"/bogus",
		"/quit",
		"never sent",
	}, "\n"))
	out := new(bytes.Buffer)

	require.NoError(t, chatLoop(context.Background(), s, in, out))

	text := out.String()
	assert.Contains(t, text, "The invoice total is 42.")
	assert.Contains(t, text, "invoice.pdf")
	assert.Contains(t, text, "exchanges: 1")
	assert.Contains(t, text, "History cleared.")
	assert.Contains(t, text, "unknown command /bogus")
	assert.Contains(t, text, "bye")
	assert.NotContains(t, text, "never sent")
	assert.Empty(t, s.History())
}

func TestChatLoopEndsAtEOF(t *testing.T) {
	s := newTestSession(t)
	require.Equal(t, 1, loadFiles(context.Background(), s, []string{writePDF(t, "a.pdf", "alpha")}, new(bytes.Buffer)))

	out := new(bytes.Buffer)
	require.NoError(t, chatLoop(context.Background(), s, strings.NewReader("hello\n"), out))

	assert.Len(t, s.History(), 2)
}
