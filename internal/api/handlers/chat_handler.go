package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/markdave123-py/pdfchat/internal/pkg/logger"
	"github.com/markdave123-py/pdfchat/internal/services"
)

type ChatHandler struct {
	svc *services.SessionService
	log logger.ILogger
}

func NewChatHandler(svc *services.SessionService, log logger.ILogger) *ChatHandler {
	return &ChatHandler{svc: svc, log: log}
}

func (h *ChatHandler) SendMessage(w http.ResponseWriter, r *http.Request) {
	var req services.ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, h.log, fmt.Errorf("%w: %v", services.ErrInvalidRequest, err))
		return
	}

	id := chi.URLParam(r, "session_id")
	report, err := h.svc.SendMessage(r.Context(), id, req)
	if err != nil {
		writeError(w, h.log, err)
		return
	}

	writeOK(w, http.StatusOK, "", map[string]interface{}{
		"session_id": id,
		"response":   report.ReplyText,
		"token_usage": map[string]interface{}{
			"exchange_tokens":           report.ExchangeTokens,
			"session_total_tokens":      report.SessionTotalTokens,
			"percentage_of_model_limit": report.PercentageOfModelLimit,
			"high_usage":                report.HighUsage,
		},
		"suggest_new_session": report.SuggestNewSession,
	})
}
