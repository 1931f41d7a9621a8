package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/markdave123-py/pdfchat/internal/core"
	"github.com/markdave123-py/pdfchat/internal/core/events"
	"github.com/markdave123-py/pdfchat/internal/models"
	"github.com/markdave123-py/pdfchat/internal/pkg/logger"
)

const module = "SESSION"

// recentExchanges is how many ledger entries Stats reports.
const recentExchanges = 10

var tracer = otel.Tracer("github.com/markdave123-py/pdfchat/internal/core/session")

// Config holds the per-session policy knobs.
type Config struct {
	Timeout               time.Duration
	ModelTokenLimit       int
	MaxConversationLength int
	MaxDocumentBytes      int
	ExtractionTimeout     time.Duration
	CompletionTimeout     time.Duration
}

// Deps are the collaborators a session talks to.
type Deps struct {
	Extractor core.DocumentExtractor
	LLM       core.LLMProvider
	Publisher events.Publisher
	Logger    logger.ILogger
	Now       func() time.Time
}

func (d Deps) withDefaults() Deps {
	if d.Publisher == nil {
		d.Publisher = events.Nop{}
	}
	if d.Logger == nil {
		d.Logger = logger.NewNop()
	}
	if d.Now == nil {
		d.Now = time.Now
	}
	return d
}

// ChatSession owns one conversation: its documents, its message log and its
// token accounting. Mutating operations run one at a time under mu, including
// the external extraction and completion calls. Reads go through an atomically
// published snapshot and never wait for a writer.
type ChatSession struct {
	id        string
	name      string
	createdAt time.Time
	cfg       Config
	deps      Deps
	composer  *Composer

	mu           sync.Mutex
	busy         atomic.Bool // set while a lockActive holder runs
	status       models.SessionStatus
	lastActivity time.Time
	docs         *DocumentStore
	log          *ConversationLog

	snap atomic.Pointer[snapshot]
}

type snapshot struct {
	status       models.SessionStatus
	lastActivity time.Time
	documents    []models.Document
	messages     []models.Message
	exchanges    []models.ExchangeRecord
	totalTokens  int
}

// New creates an active session.
func New(id, name string, cfg Config, deps Deps) *ChatSession {
	deps = deps.withDefaults()
	now := deps.Now()
	s := &ChatSession{
		id:           id,
		name:         name,
		createdAt:    now,
		cfg:          cfg,
		deps:         deps,
		composer:     NewComposer(),
		status:       models.StatusActive,
		lastActivity: now,
		docs:         NewDocumentStore(deps.Extractor, cfg.MaxDocumentBytes, cfg.ExtractionTimeout, deps.Now),
		log:          NewConversationLog(),
	}
	s.publishSnapshot()
	return s
}

func (s *ChatSession) ID() string           { return s.id }
func (s *ChatSession) Name() string         { return s.name }
func (s *ChatSession) CreatedAt() time.Time { return s.createdAt }
func (s *ChatSession) Timeout() time.Duration {
	return s.cfg.Timeout
}

// LoadDocument validates, extracts and attaches a PDF to the session.
func (s *ChatSession) LoadDocument(ctx context.Context, filename string, data []byte) (models.DocumentInfo, error) {
	ctx, span := tracer.Start(ctx, "session.LoadDocument", trace.WithAttributes(
		attribute.String("session.id", s.id),
		attribute.String("document.filename", filename),
		attribute.Int("document.bytes", len(data)),
	))
	defer span.End()

	if err := s.lockActive(ctx); err != nil {
		return models.DocumentInfo{}, endSpan(span, err)
	}
	defer s.unlock()

	doc, err := s.docs.Add(ctx, filename, data)
	if err != nil {
		s.deps.Logger.Warn(module, "Document rejected", map[string]interface{}{
			"session_id": s.id,
			"filename":   filename,
			"error":      err.Error(),
		})
		return models.DocumentInfo{}, endSpan(span, err)
	}

	s.lastActivity = s.deps.Now()
	s.publishSnapshot()

	s.deps.Logger.Info(module, "Document loaded", map[string]interface{}{
		"session_id":       s.id,
		"filename":         doc.Filename,
		"bytes":            doc.ByteSize,
		"pages":            doc.PageCount,
		"method":           doc.ExtractionMethod,
		"content_length":   len([]rune(doc.RawText)),
		"estimated_tokens": doc.EstimatedTokens,
		"document_count":   s.docs.Len(),
	})
	s.deps.Publisher.Publish(ctx, events.Event{
		Type:      events.DocumentLoaded,
		SessionID: s.id,
		Data: map[string]interface{}{
			"filename":         doc.Filename,
			"estimated_tokens": doc.EstimatedTokens,
			"method":           doc.ExtractionMethod,
		},
	})
	return doc.Info(), nil
}

// RemoveDocument detaches a document. History is kept.
func (s *ChatSession) RemoveDocument(ctx context.Context, filename string) error {
	if err := s.lockActive(ctx); err != nil {
		return err
	}
	defer s.unlock()

	if !s.docs.Remove(filename) {
		return fmt.Errorf("%w: %q", ErrDocumentNotFound, filename)
	}
	s.lastActivity = s.deps.Now()
	s.publishSnapshot()

	s.deps.Logger.Info(module, "Document removed", map[string]interface{}{
		"session_id":     s.id,
		"filename":       filename,
		"document_count": s.docs.Len(),
	})
	s.deps.Publisher.Publish(ctx, events.Event{
		Type:      events.DocumentRemoved,
		SessionID: s.id,
		Data:      map[string]interface{}{"filename": filename},
	})
	return nil
}

// SendMessage runs one exchange: it re-injects every loaded document into the
// prompt, calls the completion provider with the prior turns and records both
// messages. On any failure the session state is left exactly as it was.
func (s *ChatSession) SendMessage(ctx context.Context, text string) (*models.ExchangeReport, error) {
	ctx, span := tracer.Start(ctx, "session.SendMessage", trace.WithAttributes(
		attribute.String("session.id", s.id),
	))
	defer span.End()

	if err := s.lockActive(ctx); err != nil {
		return nil, endSpan(span, err)
	}
	defer s.unlock()

	docs := s.docs.All()
	if len(docs) == 0 {
		return nil, endSpan(span, ErrNoDocumentLoaded)
	}
	if strings.TrimSpace(text) == "" {
		return nil, endSpan(span, ErrEmptyMessage)
	}

	startedAt := s.deps.Now()
	history := s.log.All()
	promptTokens := EstimateExchange(
		s.composer.Overhead(docs, history),
		s.composer.DocumentsText(docs),
		history,
		text,
	)
	if limit := s.cfg.ModelTokenLimit; limit > 0 && s.log.Tokens()+promptTokens > limit {
		err := fmt.Errorf("%w: session has used %d tokens, this message needs about %d, limit is %d",
			ErrTokenBudgetExceeded, s.log.Tokens(), promptTokens, limit)
		s.deps.Logger.Warn(module, "Token budget exceeded", map[string]interface{}{
			"session_id":    s.id,
			"session_total": s.log.Tokens(),
			"prompt_tokens": promptTokens,
			"limit":         limit,
		})
		return nil, endSpan(span, err)
	}

	highUsage := s.cfg.ModelTokenLimit > 0 && promptTokens*2 > s.cfg.ModelTokenLimit
	if highUsage {
		s.deps.Logger.Warn(module, "High token usage", map[string]interface{}{
			"session_id":    s.id,
			"prompt_tokens": promptTokens,
			"percentage":    s.percentage(promptTokens),
		})
	}

	prompt := s.composer.Compose(docs, history, text)
	reply, err := s.complete(ctx, prompt, s.log.Turns())
	if err != nil {
		s.deps.Logger.Error(module, "Completion failed", map[string]interface{}{
			"session_id": s.id,
			"error":      err,
		})
		return nil, endSpan(span, err)
	}

	finishedAt := s.deps.Now()
	responseTokens := EstimateTokens(reply)
	s.log.Append(models.Message{Role: models.RoleUser, Content: text, Tokens: promptTokens, Timestamp: startedAt})
	s.log.Append(models.Message{Role: models.RoleAssistant, Content: reply, Tokens: responseTokens, Timestamp: finishedAt})

	exchangeTokens := promptTokens + responseTokens
	s.log.Record(models.ExchangeRecord{
		Timestamp:        finishedAt,
		MessageTokens:    EstimateTokens(text),
		PromptTokens:     promptTokens,
		ResponseTokens:   responseTokens,
		ExchangeTokens:   exchangeTokens,
		CumulativeTokens: s.log.Tokens(),
	})
	s.lastActivity = finishedAt
	s.publishSnapshot()

	total := s.log.Tokens()
	span.SetAttributes(
		attribute.Int("tokens.exchange", exchangeTokens),
		attribute.Int("tokens.session_total", total),
	)
	s.deps.Logger.Info(module, "Chat exchange completed", map[string]interface{}{
		"session_id":      s.id,
		"exchange_tokens": exchangeTokens,
		"session_total":   total,
		"document_count":  len(docs),
	})
	s.deps.Publisher.Publish(ctx, events.Event{
		Type:      events.ExchangeCompleted,
		SessionID: s.id,
		Data: map[string]interface{}{
			"exchange_tokens": exchangeTokens,
			"session_total":   total,
		},
	})

	return &models.ExchangeReport{
		ReplyText:              reply,
		ExchangeTokens:         exchangeTokens,
		SessionTotalTokens:     total,
		PercentageOfModelLimit: s.percentage(total),
		HighUsage:              highUsage,
		SuggestNewSession:      s.suggestNewSession(s.log.Len()),
	}, nil
}

func (s *ChatSession) complete(ctx context.Context, prompt string, turns []models.Turn) (string, error) {
	callCtx := ctx
	if s.cfg.CompletionTimeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, s.cfg.CompletionTimeout)
		defer cancel()
	}

	reply, err := s.deps.LLM.Complete(callCtx, prompt, turns)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(callCtx.Err(), context.DeadlineExceeded) {
			return "", fmt.Errorf("%w: %v", ErrCompletionTimeout, err)
		}
		return "", fmt.Errorf("%w: %v", ErrCompletionFailed, err)
	}
	if strings.TrimSpace(reply) == "" {
		return "", fmt.Errorf("%w: empty response from model", ErrCompletionFailed)
	}
	return reply, nil
}

// ClearHistory empties the conversation and resets token accounting.
// Documents stay loaded.
func (s *ChatSession) ClearHistory(ctx context.Context) error {
	if err := s.lockActive(ctx); err != nil {
		return err
	}
	defer s.unlock()

	cleared := s.log.Len()
	s.log.Clear()
	s.lastActivity = s.deps.Now()
	s.publishSnapshot()

	s.deps.Logger.Info(module, "Conversation cleared", map[string]interface{}{
		"session_id":       s.id,
		"cleared_messages": cleared,
	})
	s.deps.Publisher.Publish(ctx, events.Event{
		Type:      events.HistoryCleared,
		SessionID: s.id,
		Data:      map[string]interface{}{"cleared_messages": cleared},
	})
	return nil
}

// History returns the ordered conversation. Allowed on expired sessions.
func (s *ChatSession) History() []models.Message {
	return s.snap.Load().messages
}

// Documents returns document metadata in insertion order.
func (s *ChatSession) Documents() []models.DocumentInfo {
	docs := s.snap.Load().documents
	out := make([]models.DocumentInfo, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.Info())
	}
	return out
}

// Summary returns the lifecycle summary of the session.
func (s *ChatSession) Summary() models.SessionSummary {
	return s.summary(s.snap.Load())
}

// Stats returns a read-only snapshot of counts and token totals.
func (s *ChatSession) Stats() models.SessionStats {
	snap := s.snap.Load()
	now := s.deps.Now()

	stats := models.SessionStats{
		SessionSummary:         s.summary(snap),
		DurationMinutes:        now.Sub(s.createdAt).Minutes(),
		Documents:              make([]models.DocumentInfo, 0, len(snap.documents)),
		ExchangeCount:          len(snap.exchanges),
		ModelTokenLimit:        s.cfg.ModelTokenLimit,
		PercentageOfModelLimit: s.percentage(snap.totalTokens),
		SuggestNewSession:      s.suggestNewSession(len(snap.messages)),
	}
	for _, d := range snap.documents {
		stats.Documents = append(stats.Documents, d.Info())
		stats.DocumentTokens += d.EstimatedTokens
	}
	if n := len(snap.exchanges); n > 0 {
		stats.AverageExchangeTokens = float64(snap.totalTokens) / float64(n)
		stats.RecentExchanges = snap.exchanges[max(0, n-recentExchanges):]
	} else {
		stats.RecentExchanges = []models.ExchangeRecord{}
	}
	return stats
}

// Expired reports whether the session is expired, without changing it.
func (s *ChatSession) Expired() bool {
	return s.expiredView(s.snap.Load())
}

// tryExpire marks an idle session expired. It returns false when the session
// is busy with an operation or still within its timeout.
func (s *ChatSession) tryExpire(ctx context.Context) bool {
	if !s.mu.TryLock() {
		return false
	}
	defer s.mu.Unlock()

	if !s.isExpired(s.status, s.lastActivity) {
		return false
	}
	s.expireLocked(ctx)
	return true
}

// lockActive acquires mu for a mutating operation. When the session is
// expired it releases mu and returns ErrSessionExpired.
func (s *ChatSession) lockActive(ctx context.Context) error {
	s.mu.Lock()
	if s.isExpired(s.status, s.lastActivity) {
		s.expireLocked(ctx)
		s.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrSessionExpired, s.id)
	}
	s.busy.Store(true)
	return nil
}

// unlock releases mu taken by lockActive.
func (s *ChatSession) unlock() {
	s.busy.Store(false)
	s.mu.Unlock()
}

func (s *ChatSession) expireLocked(ctx context.Context) {
	if s.status == models.StatusExpired {
		return
	}
	s.status = models.StatusExpired
	s.publishSnapshot()

	idle := s.deps.Now().Sub(s.lastActivity)
	s.deps.Logger.Info(module, "Session expired", map[string]interface{}{
		"session_id":   s.id,
		"idle_minutes": idle.Minutes(),
	})
	s.deps.Publisher.Publish(ctx, events.Event{
		Type:      events.SessionExpired,
		SessionID: s.id,
		Data:      map[string]interface{}{"idle_minutes": idle.Minutes()},
	})
}

func (s *ChatSession) isExpired(status models.SessionStatus, lastActivity time.Time) bool {
	if status == models.StatusExpired {
		return true
	}
	return s.cfg.Timeout > 0 && s.deps.Now().Sub(lastActivity) > s.cfg.Timeout
}

// publishSnapshot must be called with mu held.
func (s *ChatSession) publishSnapshot() {
	s.snap.Store(&snapshot{
		status:       s.status,
		lastActivity: s.lastActivity,
		documents:    s.docs.All(),
		messages:     s.log.All(),
		exchanges:    s.log.Exchanges(),
		totalTokens:  s.log.Tokens(),
	})
}

// expiredView is the expiry seen by lock-free readers. A session that was
// active when its current operation started stays active until it finishes.
func (s *ChatSession) expiredView(snap *snapshot) bool {
	if snap.status == models.StatusExpired {
		return true
	}
	if s.busy.Load() {
		return false
	}
	return s.isExpired(snap.status, snap.lastActivity)
}

func (s *ChatSession) summary(snap *snapshot) models.SessionSummary {
	status := models.StatusActive
	if s.expiredView(snap) {
		status = models.StatusExpired
	}
	return models.SessionSummary{
		SessionID:       s.id,
		SessionName:     s.name,
		Status:          status,
		CreatedAt:       s.createdAt,
		LastActivityAt:  snap.lastActivity,
		HasDocuments:    len(snap.documents) > 0,
		MessageCount:    len(snap.messages),
		TotalTokensUsed: snap.totalTokens,
	}
}

func (s *ChatSession) percentage(tokens int) float64 {
	if s.cfg.ModelTokenLimit <= 0 {
		return 0
	}
	return float64(tokens) / float64(s.cfg.ModelTokenLimit) * 100
}

func (s *ChatSession) suggestNewSession(messages int) bool {
	return s.cfg.MaxConversationLength > 0 && messages >= s.cfg.MaxConversationLength
}

func endSpan(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, KindOf(err))
	return err
}
