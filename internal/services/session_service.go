package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/markdave123-py/pdfchat/internal/core/session"
	"github.com/markdave123-py/pdfchat/internal/models"
	"github.com/markdave123-py/pdfchat/internal/pkg/logger"
)

// ErrInvalidRequest marks a request body that failed validation.
var ErrInvalidRequest = errors.New("invalid request")

type CreateSessionRequest struct {
	SessionName    string `json:"session_name" validate:"max=100"`
	TimeoutMinutes int    `json:"timeout_minutes" validate:"omitempty,min=1,max=1440"`
}

type ChatRequest struct {
	Message string `json:"message" validate:"max=10000"`
}

// SystemInfo describes the running service for health reports.
type SystemInfo struct {
	Model        string
	OCRAvailable bool
	StartedAt    time.Time
}

type HealthReport struct {
	Status         string    `json:"status"`
	UptimeSeconds  float64   `json:"uptime_seconds"`
	ActiveSessions int       `json:"active_sessions"`
	Model          string    `json:"model"`
	OCRAvailable   bool      `json:"ocr_available"`
	Timestamp      time.Time `json:"timestamp"`
}

// SessionService exposes session lifecycle and chat to the transport layer.
type SessionService struct {
	registry *session.Registry
	validate *validator.Validate
	log      logger.ILogger
	info     SystemInfo
}

func NewSessionService(registry *session.Registry, info SystemInfo, log logger.ILogger) *SessionService {
	if info.StartedAt.IsZero() {
		info.StartedAt = time.Now()
	}
	return &SessionService{
		registry: registry,
		validate: validator.New(),
		log:      log,
		info:     info,
	}
}

func (s *SessionService) Create(ctx context.Context, req CreateSessionRequest) (models.SessionSummary, error) {
	if err := s.validate.Struct(req); err != nil {
		return models.SessionSummary{}, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	sess, err := s.registry.Create(ctx, session.CreateOptions{
		Name:    req.SessionName,
		Timeout: time.Duration(req.TimeoutMinutes) * time.Minute,
	})
	if err != nil {
		return models.SessionSummary{}, err
	}
	return sess.Summary(), nil
}

func (s *SessionService) Get(id string) (models.SessionSummary, error) {
	sess, err := s.registry.Get(id)
	if err != nil {
		return models.SessionSummary{}, err
	}
	return sess.Summary(), nil
}

func (s *SessionService) List() []models.SessionSummary {
	return s.registry.ListActive()
}

func (s *SessionService) Delete(id string) error {
	if !s.registry.Delete(id) {
		return fmt.Errorf("%w: %s", session.ErrSessionNotFound, id)
	}
	return nil
}

func (s *SessionService) SendMessage(ctx context.Context, id string, req ChatRequest) (*models.ExchangeReport, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	sess, err := s.registry.Get(id)
	if err != nil {
		return nil, err
	}
	return sess.SendMessage(ctx, req.Message)
}

func (s *SessionService) History(id string) ([]models.Message, error) {
	sess, err := s.registry.Get(id)
	if err != nil {
		return nil, err
	}
	return sess.History(), nil
}

func (s *SessionService) ClearHistory(ctx context.Context, id string) error {
	sess, err := s.registry.Get(id)
	if err != nil {
		return err
	}
	return sess.ClearHistory(ctx)
}

func (s *SessionService) Stats(id string) (models.SessionStats, error) {
	sess, err := s.registry.Get(id)
	if err != nil {
		return models.SessionStats{}, err
	}
	return sess.Stats(), nil
}

func (s *SessionService) Health() HealthReport {
	now := time.Now()
	return HealthReport{
		Status:         "healthy",
		UptimeSeconds:  now.Sub(s.info.StartedAt).Seconds(),
		ActiveSessions: s.registry.Count(),
		Model:          s.info.Model,
		OCRAvailable:   s.info.OCRAvailable,
		Timestamp:      now,
	}
}
