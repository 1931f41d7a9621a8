package core

import (
	"context"

	"github.com/markdave123-py/pdfchat/internal/models"
)

// LLMProvider is the completion collaborator. The prompt carries the full
// document context; history carries the prior turns of the conversation.
type LLMProvider interface {
	Complete(ctx context.Context, prompt string, history []models.Turn) (string, error)
}
