package events

import (
	"context"

	"github.com/markdave123-py/pdfchat/internal/pkg/logger"
)

// LogConsumer writes every lifecycle event to the audit log until ctx ends.
func LogConsumer(ctx context.Context, bus *Bus, log logger.ILogger) error {
	events, err := bus.Subscribe(ctx)
	if err != nil {
		return err
	}

	go func() {
		for evt := range events {
			details := map[string]interface{}{
				"session_id":  evt.SessionID,
				"occurred_at": evt.OccurredAt,
			}
			for k, v := range evt.Data {
				details[k] = v
			}
			log.Info("AUDIT", evt.Type, details)
		}
	}()
	return nil
}
