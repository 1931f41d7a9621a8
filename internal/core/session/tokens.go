package session

import (
	"strings"

	"github.com/markdave123-py/pdfchat/internal/models"
)

// EstimateTokens is a cheap token estimator (~4 chars ≈ 1 token, rounded up).
// It is an approximation for budgeting, not a tokenizer.
func EstimateTokens(s string) int {
	n := len([]rune(s))
	if n <= 0 {
		return 0
	}
	return (n + 3) / 4
}

// EstimateExchange sums the estimate over every part of an outbound request.
func EstimateExchange(preamble, documentsText string, history []models.Message, message string) int {
	return EstimateTokens(preamble) +
		EstimateTokens(documentsText) +
		EstimateTokens(serializeHistory(history)) +
		EstimateTokens(message)
}

func serializeHistory(history []models.Message) string {
	var b strings.Builder
	for _, m := range history {
		b.WriteString(string(m.Role))
		b.WriteString(": ")
		b.WriteString(m.Content)
		b.WriteString("\n")
	}
	return b.String()
}
