package session

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/markdave123-py/pdfchat/internal/models"
)

func TestEstimateTokens(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want int
	}{
		{"empty", "", 0},
		{"one char rounds up", "a", 1},
		{"exact multiple", "abcd", 1},
		{"five chars", "abcde", 2},
		{"runes not bytes", "ñandú", 2},
		{"document sized", strings.Repeat("x", 1660), 415},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, EstimateTokens(tt.in))
		})
	}
}

func TestEstimateTokensIsPure(t *testing.T) {
	text := strings.Repeat("Oficio N° 1234. ", 100)
	assert.Equal(t, EstimateTokens(text), EstimateTokens(text))
}

func TestEstimateExchangeSumsParts(t *testing.T) {
	history := []models.Message{
		{Role: models.RoleUser, Content: "hola"},
		{Role: models.RoleAssistant, Content: "buenas"},
	}
	got := EstimateExchange("abcd", "abcdefgh", history, "abc")

	want := 1 + 2 + EstimateTokens("user: hola\nassistant: buenas\n") + 1
	assert.Equal(t, want, got)
	assert.Equal(t, 0, EstimateExchange("", "", nil, ""))
}
