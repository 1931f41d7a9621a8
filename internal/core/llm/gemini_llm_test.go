package llm

import (
	"testing"

	"github.com/google/generative-ai-go/genai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/markdave123-py/pdfchat/internal/models"
)

func TestToContentsMapsRoles(t *testing.T) {
	got := toContents([]models.Turn{
		{Role: models.RoleUser, Content: "¿De qué trata?"},
		{Role: models.RoleAssistant, Content: "De un contrato."},
	})

	require.Len(t, got, 2)
	assert.Equal(t, "user", got[0].Role)
	assert.Equal(t, "model", got[1].Role)
	assert.Equal(t, []genai.Part{genai.Text("De un contrato.")}, got[1].Parts)
}

func TestResponseText(t *testing.T) {
	resp := &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content: &genai.Content{Parts: []genai.Part{genai.Text("Hola, "), genai.Text("mundo")}},
		}},
	}
	assert.Equal(t, "Hola, mundo", responseText(resp))
	assert.Equal(t, "", responseText(nil))
	assert.Equal(t, "", responseText(&genai.GenerateContentResponse{}))
}
