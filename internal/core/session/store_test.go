package session

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/markdave123-py/pdfchat/internal/models"
)

func TestDocumentStoreAdd(t *testing.T) {
	clock := newFakeClock()
	store := NewDocumentStore(&fakeExtractor{}, 10<<20, time.Second, clock.Now)
	text := strings.Repeat("a", 1660)

	doc, err := store.Add(context.Background(), "oficio.pdf", pdfBytes(text))

	require.NoError(t, err)
	assert.Equal(t, "oficio.pdf", doc.Filename)
	assert.Equal(t, text, doc.RawText)
	assert.Equal(t, 415, doc.EstimatedTokens)
	assert.Equal(t, models.ExtractionDirect, doc.ExtractionMethod)
	assert.Equal(t, len(pdfBytes(text)), doc.ByteSize)
	assert.Equal(t, clock.Now(), doc.UploadedAt)
	assert.Equal(t, 1, store.Len())
}

func TestDocumentStoreValidation(t *testing.T) {
	tests := []struct {
		name     string
		filename string
		data     []byte
		want     error
	}{
		{"wrong extension", "notes.txt", pdfBytes("x"), ErrInvalidFileType},
		{"no name", "", pdfBytes("x"), ErrInvalidFileType},
		{"too large", "big.pdf", pdfBytes(strings.Repeat("x", 200)), ErrFileTooLarge},
		{"not a pdf", "fake.pdf", []byte("just some plain text"), ErrInvalidFileType},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			extractor := &fakeExtractor{}
			store := NewDocumentStore(extractor, 100, time.Second, nil)

			_, err := store.Add(context.Background(), tt.filename, tt.data)

			assert.ErrorIs(t, err, tt.want)
			assert.Zero(t, store.Len())
			assert.Zero(t, extractor.calls.Load(), "validation must not reach the extractor")
		})
	}
}

func TestDocumentStoreUppercaseExtension(t *testing.T) {
	store := NewDocumentStore(&fakeExtractor{}, 0, 0, nil)
	_, err := store.Add(context.Background(), "SCAN.PDF", pdfBytes("texto"))
	assert.NoError(t, err)
}

func TestDocumentStoreRejectsDuplicate(t *testing.T) {
	store := NewDocumentStore(&fakeExtractor{}, 0, 0, nil)
	_, err := store.Add(context.Background(), "a.pdf", pdfBytes("uno"))
	require.NoError(t, err)

	_, err = store.Add(context.Background(), "a.pdf", pdfBytes("dos"))

	assert.ErrorIs(t, err, ErrDuplicateFilename)
	require.Len(t, store.All(), 1)
	assert.Equal(t, "uno", store.All()[0].RawText)
}

func TestDocumentStoreExtractionFailures(t *testing.T) {
	t.Run("extractor error", func(t *testing.T) {
		store := NewDocumentStore(&fakeExtractor{err: errors.New("corrupt xref")}, 0, time.Second, nil)
		_, err := store.Add(context.Background(), "a.pdf", pdfBytes("x"))
		assert.ErrorIs(t, err, ErrExtractionFailed)
		assert.Zero(t, store.Len())
	})

	t.Run("blank text", func(t *testing.T) {
		store := NewDocumentStore(&fakeExtractor{}, 0, time.Second, nil)
		_, err := store.Add(context.Background(), "a.pdf", pdfBytes("   \n\t"))
		assert.ErrorIs(t, err, ErrExtractionFailed)
		assert.Zero(t, store.Len())
	})

	t.Run("timeout", func(t *testing.T) {
		store := NewDocumentStore(&fakeExtractor{delay: time.Second}, 0, 20*time.Millisecond, nil)
		_, err := store.Add(context.Background(), "a.pdf", pdfBytes("x"))
		assert.ErrorIs(t, err, ErrExtractionTimeout)
		assert.Zero(t, store.Len())
	})
}

func TestDocumentStoreRemoveKeepsOrder(t *testing.T) {
	store := NewDocumentStore(&fakeExtractor{}, 0, 0, nil)
	for _, name := range []string{"a.pdf", "b.pdf", "c.pdf"} {
		_, err := store.Add(context.Background(), name, pdfBytes(name))
		require.NoError(t, err)
	}

	assert.True(t, store.Remove("b.pdf"))
	assert.False(t, store.Remove("b.pdf"))

	names := make([]string, 0)
	for _, d := range store.All() {
		names = append(names, d.Filename)
	}
	assert.Equal(t, []string{"a.pdf", "c.pdf"}, names)
}
