package postgres

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

func (s *Store) IsEventProcessed(ctx context.Context, eventID string) (bool, error) {
	var count int

	err := s.sess.
		Select("COUNT(*)").
		From("stripe_webhook_events").
		Where("event_id = ?", eventID).
		LoadOneContext(ctx, &count)

	if err != nil {
		s.logger.Error("failed to check processed event",
			zap.String("event_id", eventID),
			zap.Error(err),
		)
		return false, fmt.Errorf("is event processed: %w", err)
	}

	return count > 0, nil
}

func (s *Store) MarkEventProcessed(ctx context.Context, eventID, eventType string) error {
	query := `
		INSERT INTO stripe_webhook_events (event_id, event_type, processed_at)
		VALUES (?, ?, NOW())
		ON CONFLICT (event_id) DO NOTHING
	`

	_, err := s.sess.
		InsertBySql(query, eventID, eventType).
		ExecContext(ctx)

	if err != nil {
		s.logger.Error("failed to mark event processed",
			zap.String("event_id", eventID),
			zap.String("event_type", eventType),
			zap.Error(err),
		)
		return fmt.Errorf("mark event processed: %w", err)
	}

	return nil
}
