package models

import (
	"time"
)

// ExtractionMethod records how a document's text was obtained.
type ExtractionMethod string

const (
	ExtractionDirect ExtractionMethod = "direct" // text layer present
	ExtractionOCR    ExtractionMethod = "ocr"    // image based, external recognition
)

// Role identifies the author of a conversation message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// SessionStatus is the lifecycle state of a chat session.
type SessionStatus string

const (
	StatusActive  SessionStatus = "active"
	StatusExpired SessionStatus = "expired"
)

// Document is the extracted text and metadata of one PDF attached to a session.
// It is immutable once stored.
type Document struct {
	Filename         string           `json:"filename"`
	RawText          string           `json:"-"`
	ExtractionMethod ExtractionMethod `json:"extraction_method"`
	PageCount        int              `json:"page_count"`
	ByteSize         int              `json:"byte_size"`
	EstimatedTokens  int              `json:"estimated_tokens"`
	UploadedAt       time.Time        `json:"uploaded_at"`
}

// DocumentInfo is the outward view of a Document (no text body).
type DocumentInfo struct {
	Filename         string           `json:"filename"`
	ByteSize         int              `json:"byte_size"`
	PageCount        int              `json:"page_count"`
	ContentLength    int              `json:"content_length"`
	EstimatedTokens  int              `json:"estimated_tokens"`
	ExtractionMethod ExtractionMethod `json:"extraction_method"`
	UploadedAt       time.Time        `json:"uploaded_at"`
}

// Info returns the outward metadata of the document.
func (d Document) Info() DocumentInfo {
	return DocumentInfo{
		Filename:         d.Filename,
		ByteSize:         d.ByteSize,
		PageCount:        d.PageCount,
		ContentLength:    len([]rune(d.RawText)),
		EstimatedTokens:  d.EstimatedTokens,
		ExtractionMethod: d.ExtractionMethod,
		UploadedAt:       d.UploadedAt,
	}
}

// Message is one entry of a session's conversation log.
type Message struct {
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	Tokens    int       `json:"tokens"`
	Timestamp time.Time `json:"timestamp"`
}

// Turn is a role/content pair handed to the completion provider as prior chat history.
type Turn struct {
	Role    Role
	Content string
}

// ExchangeRecord is the token ledger entry written for every successful exchange.
type ExchangeRecord struct {
	Timestamp        time.Time `json:"timestamp"`
	MessageTokens    int       `json:"message_tokens"`
	PromptTokens     int       `json:"prompt_tokens"`
	ResponseTokens   int       `json:"response_tokens"`
	ExchangeTokens   int       `json:"exchange_tokens"`
	CumulativeTokens int       `json:"cumulative_tokens"`
}

// ExchangeReport is returned to the caller of a successful send.
type ExchangeReport struct {
	ReplyText              string  `json:"reply_text"`
	ExchangeTokens         int     `json:"exchange_tokens"`
	SessionTotalTokens     int     `json:"session_total_tokens"`
	PercentageOfModelLimit float64 `json:"percentage_of_model_limit"`
	HighUsage              bool    `json:"high_usage"`
	SuggestNewSession      bool    `json:"suggest_new_session"`
}

// SessionSummary is the lifecycle summary exposed for listings.
type SessionSummary struct {
	SessionID       string        `json:"session_id"`
	SessionName     string        `json:"session_name,omitempty"`
	Status          SessionStatus `json:"status"`
	CreatedAt       time.Time     `json:"created_at"`
	LastActivityAt  time.Time     `json:"last_activity_at"`
	HasDocuments    bool          `json:"has_documents"`
	MessageCount    int           `json:"message_count"`
	TotalTokensUsed int           `json:"total_tokens_used"`
}

// SessionStats is the read-only snapshot returned by a session's Stats.
type SessionStats struct {
	SessionSummary
	DurationMinutes        float64          `json:"duration_minutes"`
	Documents              []DocumentInfo   `json:"documents"`
	DocumentTokens         int              `json:"document_tokens"`
	ExchangeCount          int              `json:"exchange_count"`
	AverageExchangeTokens  float64          `json:"average_tokens_per_exchange"`
	ModelTokenLimit        int              `json:"model_token_limit"`
	PercentageOfModelLimit float64          `json:"percentage_of_model_limit"`
	SuggestNewSession      bool             `json:"suggest_new_session"`
	RecentExchanges        []ExchangeRecord `json:"recent_exchanges"`
}
