package llm

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"github.com/markdave123-py/pdfchat/internal/core"
	"github.com/markdave123-py/pdfchat/internal/models"
)

// ErrEmptyResponse is returned when the model answers with no text.
var ErrEmptyResponse = errors.New("gemini returned an empty response")

type GeminiLLM struct {
	client          *genai.Client
	modelName       string
	temperature     float32
	maxOutputTokens int32
}

// Options tunes generation. Zero values keep the model defaults.
type Options struct {
	Temperature     float32
	MaxOutputTokens int32
}

func NewGeminiLLM(ctx context.Context, apiKey, modelName string, opts Options) (*GeminiLLM, error) {
	if apiKey == "" {
		apiKey = os.Getenv("GEMINI_API_KEY")
	}
	cl, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, err
	}
	if modelName == "" {
		modelName = "gemini-2.0-flash"
	}
	return &GeminiLLM{
		client:          cl,
		modelName:       modelName,
		temperature:     opts.Temperature,
		maxOutputTokens: opts.MaxOutputTokens,
	}, nil
}

func (g *GeminiLLM) Close() error {
	if g.client != nil {
		return g.client.Close()
	}
	return nil
}

// Complete sends prompt as the newest user turn of a chat seeded with history.
func (g *GeminiLLM) Complete(ctx context.Context, prompt string, history []models.Turn) (string, error) {
	m := g.client.GenerativeModel(g.modelName)
	if g.temperature > 0 {
		m.SetTemperature(g.temperature)
	}
	if g.maxOutputTokens > 0 {
		m.SetMaxOutputTokens(g.maxOutputTokens)
	}

	cs := m.StartChat()
	cs.History = toContents(history)

	resp, err := cs.SendMessage(ctx, genai.Text(prompt))
	if err != nil {
		return "", fmt.Errorf("gemini chat: %w", err)
	}

	text := responseText(resp)
	if strings.TrimSpace(text) == "" {
		return "", ErrEmptyResponse
	}
	return text, nil
}

func toContents(history []models.Turn) []*genai.Content {
	out := make([]*genai.Content, 0, len(history))
	for _, t := range history {
		out = append(out, &genai.Content{
			Role:  roleFor(t.Role),
			Parts: []genai.Part{genai.Text(t.Content)},
		})
	}
	return out
}

func roleFor(r models.Role) string {
	if r == models.RoleAssistant {
		return "model"
	}
	return "user"
}

func responseText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}
	var b strings.Builder
	for _, p := range resp.Candidates[0].Content.Parts {
		if t, ok := p.(genai.Text); ok {
			b.WriteString(string(t))
		}
	}
	return b.String()
}

var _ core.LLMProvider = (*GeminiLLM)(nil)
