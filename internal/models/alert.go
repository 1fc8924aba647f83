package models

import (
	"time"

	"krewup/internal/geo"
)

// ProximityAlert is a worker's saved search. One per user.
type ProximityAlert struct {
	UserID    string    `db:"user_id"`
	RadiusKm  float64   `db:"radius_km"`
	Trades    []string  `db:"trades"`
	IsActive  bool      `db:"is_active"`
	UpdatedAt time.Time `db:"updated_at"`
}

func (a *ProximityAlert) HasTrade(trade string) bool {
	for _, t := range a.Trades {
		if t == trade {
			return true
		}
	}
	return false
}

// AlertSubscriber is an active alert joined with its owner's current location.
type AlertSubscriber struct {
	Alert          ProximityAlert
	Coords         *geo.Coordinate
	TelegramChatID *int64
}
