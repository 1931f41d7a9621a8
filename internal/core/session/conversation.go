package session

import "github.com/markdave123-py/pdfchat/internal/models"

// ConversationLog is the append-only message history of a session together
// with its exchange ledger. Only Clear removes entries.
type ConversationLog struct {
	messages  []models.Message
	exchanges []models.ExchangeRecord
	tokens    int
}

func NewConversationLog() *ConversationLog {
	return &ConversationLog{}
}

func (l *ConversationLog) Append(m models.Message) {
	l.messages = append(l.messages, m)
	l.tokens += m.Tokens
}

// Record adds an exchange to the ledger. It does not touch the token total,
// which is always the sum over messages.
func (l *ConversationLog) Record(r models.ExchangeRecord) {
	l.exchanges = append(l.exchanges, r)
}

// All returns a copy of the messages in order.
func (l *ConversationLog) All() []models.Message {
	out := make([]models.Message, len(l.messages))
	copy(out, l.messages)
	return out
}

// Exchanges returns a copy of the ledger in order.
func (l *ConversationLog) Exchanges() []models.ExchangeRecord {
	out := make([]models.ExchangeRecord, len(l.exchanges))
	copy(out, l.exchanges)
	return out
}

func (l *ConversationLog) Len() int {
	return len(l.messages)
}

// Tokens is the sum of Message.Tokens over the log.
func (l *ConversationLog) Tokens() int {
	return l.tokens
}

func (l *ConversationLog) Clear() {
	l.messages = nil
	l.exchanges = nil
	l.tokens = 0
}

// Turns converts the log into provider chat turns.
func (l *ConversationLog) Turns() []models.Turn {
	out := make([]models.Turn, 0, len(l.messages))
	for _, m := range l.messages {
		out = append(out, models.Turn{Role: m.Role, Content: m.Content})
	}
	return out
}
