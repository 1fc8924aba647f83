package postgres

import (
	"context"
	"fmt"
	"time"

	"krewup/internal/models"

	"github.com/lib/pq"
	"go.uber.org/zap"
)

type alertRow struct {
	UserID         string         `db:"user_id"`
	RadiusKm       float64        `db:"radius_km"`
	Trades         pq.StringArray `db:"trades"`
	IsActive       bool           `db:"is_active"`
	UpdatedAt      time.Time      `db:"updated_at"`
	Lat            *float64       `db:"lat"`
	Lng            *float64       `db:"lng"`
	TelegramChatID *int64         `db:"telegram_chat_id"`
}

// GetActiveAlertSubscribers returns every active proximity alert together
// with the owner's current location.
func (s *Store) GetActiveAlertSubscribers(ctx context.Context) ([]models.AlertSubscriber, error) {
	query := `
		SELECT pa.user_id, pa.radius_km, pa.trades, pa.is_active, pa.updated_at,
		       ST_Y(p.location_coords::geometry) AS lat,
		       ST_X(p.location_coords::geometry) AS lng,
		       p.telegram_chat_id
		FROM proximity_alerts pa
		JOIN profiles p ON p.id = pa.user_id
		WHERE pa.is_active = true
	`

	var rows []alertRow
	_, err := s.sess.
		SelectBySql(query).
		LoadContext(ctx, &rows)

	if err != nil {
		s.logger.Error("failed to get active alerts", zap.Error(err))
		return nil, fmt.Errorf("get active alerts: %w", err)
	}

	subs := make([]models.AlertSubscriber, 0, len(rows))
	for _, r := range rows {
		subs = append(subs, models.AlertSubscriber{
			Alert: models.ProximityAlert{
				UserID:    r.UserID,
				RadiusKm:  r.RadiusKm,
				Trades:    []string(r.Trades),
				IsActive:  r.IsActive,
				UpdatedAt: r.UpdatedAt,
			},
			Coords:         toCoordinate(r.Lat, r.Lng),
			TelegramChatID: r.TelegramChatID,
		})
	}

	s.logger.Debug("active alerts loaded", zap.Int("count", len(subs)))

	return subs, nil
}
