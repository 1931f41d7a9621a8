package session

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/markdave123-py/pdfchat/internal/core"
	"github.com/markdave123-py/pdfchat/internal/models"
)

const pdfHeader = "%PDF-1.4\n"

// pdfBytes wraps text in a PDF signature so content sniffing accepts it.
// fakeExtractor returns the text back.
func pdfBytes(text string) []byte {
	return []byte(pdfHeader + text)
}

type fakeExtractor struct {
	err   error
	delay time.Duration
	calls atomic.Int32
}

func (f *fakeExtractor) Extract(ctx context.Context, data []byte) (*core.ExtractedText, error) {
	f.calls.Add(1)
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if f.err != nil {
		return nil, f.err
	}
	return &core.ExtractedText{
		Text:   strings.TrimPrefix(string(data), pdfHeader),
		Method: models.ExtractionDirect,
		Pages:  1,
	}, nil
}

type fakeLLM struct {
	mu        sync.Mutex
	reply     string
	err       error
	delay     time.Duration
	prompts   []string
	histories [][]models.Turn

	inFlight    atomic.Int32
	maxInFlight atomic.Int32
}

func (f *fakeLLM) Complete(ctx context.Context, prompt string, history []models.Turn) (string, error) {
	n := f.inFlight.Add(1)
	defer f.inFlight.Add(-1)
	for {
		seen := f.maxInFlight.Load()
		if n <= seen || f.maxInFlight.CompareAndSwap(seen, n) {
			break
		}
	}

	f.mu.Lock()
	f.prompts = append(f.prompts, prompt)
	f.histories = append(f.histories, history)
	reply, err, delay := f.reply, f.err, f.delay
	f.mu.Unlock()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	if err != nil {
		return "", err
	}
	if reply == "" {
		reply = "Respuesta de prueba."
	}
	return reply, nil
}

func (f *fakeLLM) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.prompts)
}

func (f *fakeLLM) lastPrompt() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.prompts) == 0 {
		return ""
	}
	return f.prompts[len(f.prompts)-1]
}

func (f *fakeLLM) setErr(err error) {
	f.mu.Lock()
	f.err = err
	f.mu.Unlock()
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 3, 14, 9, 30, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func testConfig() Config {
	return Config{
		Timeout:               30 * time.Minute,
		ModelTokenLimit:       1_000_000,
		MaxConversationLength: 20,
		MaxDocumentBytes:      10 << 20,
		ExtractionTimeout:     time.Second,
		CompletionTimeout:     time.Second,
	}
}

type harness struct {
	extractor *fakeExtractor
	llm       *fakeLLM
	clock     *fakeClock
	deps      Deps
}

func newHarness() *harness {
	h := &harness{
		extractor: &fakeExtractor{},
		llm:       &fakeLLM{},
		clock:     newFakeClock(),
	}
	h.deps = Deps{Extractor: h.extractor, LLM: h.llm, Now: h.clock.Now}
	return h
}

func (h *harness) session(cfg Config) *ChatSession {
	return New("pdf_chat_test", "", cfg, h.deps)
}
