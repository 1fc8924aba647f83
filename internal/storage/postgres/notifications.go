package postgres

import (
	"context"
	"fmt"
	"time"

	"krewup/internal/models"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// CreateNotification appends a notification. ID and CreatedAt are filled in
// when empty.
func (s *Store) CreateNotification(ctx context.Context, n *models.Notification) error {
	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now()
	}

	_, err := s.sess.
		InsertInto("notifications").
		Columns("id", "user_id", "type", "title", "message", "data", "created_at").
		Values(n.ID, n.UserID, n.Type, n.Title, n.Message, n.Data, n.CreatedAt).
		ExecContext(ctx)

	if err != nil {
		s.logger.Error("failed to create notification",
			zap.String("user_id", n.UserID),
			zap.String("type", n.Type),
			zap.Error(err),
		)
		return fmt.Errorf("create notification: %w", err)
	}

	return nil
}
