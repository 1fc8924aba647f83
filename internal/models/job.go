package models

import (
	"time"

	"krewup/internal/geo"
)

type JobStatus string

const (
	JobStatusDraft   JobStatus = "draft"
	JobStatusActive  JobStatus = "active"
	JobStatusFilled  JobStatus = "filled"
	JobStatusExpired JobStatus = "expired"
)

type Job struct {
	ID           string          `db:"id"`
	Title        string          `db:"title"`
	Trade        string          `db:"trade"`
	Location     string          `db:"location"`
	Coords       *geo.Coordinate `db:"-"`
	EmployerName string          `db:"employer_name"`
	CreatedAt    time.Time       `db:"created_at"`
	Status       JobStatus       `db:"status"`
}

func (j Job) Coordinates() *geo.Coordinate {
	return j.Coords
}
