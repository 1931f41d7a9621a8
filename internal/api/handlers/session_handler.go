package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/markdave123-py/pdfchat/internal/pkg/logger"
	"github.com/markdave123-py/pdfchat/internal/services"
)

type SessionHandler struct {
	svc *services.SessionService
	log logger.ILogger
}

func NewSessionHandler(svc *services.SessionService, log logger.ILogger) *SessionHandler {
	return &SessionHandler{svc: svc, log: log}
}

// CreateSession accepts an optional body; an empty one uses server defaults.
func (h *SessionHandler) CreateSession(w http.ResponseWriter, r *http.Request) {
	var req services.CreateSessionRequest
	if err := decodeOptional(r, &req); err != nil {
		writeError(w, h.log, err)
		return
	}

	summary, err := h.svc.Create(r.Context(), req)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeOK(w, http.StatusCreated, "Session created", summary)
}

func (h *SessionHandler) ListSessions(w http.ResponseWriter, r *http.Request) {
	list := h.svc.List()
	writeOK(w, http.StatusOK, "", map[string]interface{}{
		"sessions":       list,
		"total_sessions": len(list),
	})
}

func (h *SessionHandler) GetSession(w http.ResponseWriter, r *http.Request) {
	summary, err := h.svc.Get(chi.URLParam(r, "session_id"))
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeOK(w, http.StatusOK, "", summary)
}

func (h *SessionHandler) DeleteSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "session_id")
	if err := h.svc.Delete(id); err != nil {
		writeError(w, h.log, err)
		return
	}
	writeOK(w, http.StatusOK, "Session deleted", map[string]string{"session_id": id})
}

func (h *SessionHandler) GetHistory(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "session_id")
	history, err := h.svc.History(id)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeOK(w, http.StatusOK, "", map[string]interface{}{
		"session_id":     id,
		"messages":       history,
		"total_messages": len(history),
	})
}

func (h *SessionHandler) ClearHistory(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.ClearHistory(r.Context(), chi.URLParam(r, "session_id")); err != nil {
		writeError(w, h.log, err)
		return
	}
	writeOK(w, http.StatusOK, "Conversation history cleared", nil)
}

func (h *SessionHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.svc.Stats(chi.URLParam(r, "session_id"))
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeOK(w, http.StatusOK, "", stats)
}

func (h *SessionHandler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.svc.Health())
}

func decodeOptional(r *http.Request, v interface{}) error {
	if r.Body == nil {
		return nil
	}
	err := json.NewDecoder(r.Body).Decode(v)
	if err == nil || errors.Is(err, io.EOF) {
		return nil
	}
	return fmt.Errorf("%w: %v", services.ErrInvalidRequest, err)
}
