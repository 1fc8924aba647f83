package models

import (
	"database/sql/driver"
	"encoding/json"
	"time"
)

const NotificationTypeNewJob = "new_job"

type Notification struct {
	ID        string    `db:"id"`
	UserID    string    `db:"user_id"`
	Type      string    `db:"type"`
	Title     string    `db:"title"`
	Message   string    `db:"message"`
	Data      RawJSON   `db:"data"`
	CreatedAt time.Time `db:"created_at"`
}

// NewJobPayload is the data attached to a new_job notification.
type NewJobPayload struct {
	JobID      string  `json:"job_id"`
	JobTitle   string  `json:"job_title"`
	Trade      string  `json:"trade"`
	Location   string  `json:"location"`
	DistanceKm float64 `json:"distance_km"`
}

type RawJSON json.RawMessage

func (r RawJSON) Value() (driver.Value, error) {
	if r == nil {
		return nil, nil
	}
	return string(r), nil
}

func (r *RawJSON) Scan(value interface{}) error {
	if value == nil {
		*r = nil
		return nil
	}

	switch v := value.(type) {
	case []byte:
		*r = append(RawJSON(nil), v...)
	case string:
		*r = RawJSON(v)
	}
	return nil
}

func (r RawJSON) MarshalJSON() ([]byte, error) {
	if r == nil {
		return []byte("null"), nil
	}
	return []byte(r), nil
}
