package postgres

import (
	"context"
	"fmt"
	"time"

	"krewup/internal/geo"
	"krewup/internal/models"

	"go.uber.org/zap"
)

type jobRow struct {
	ID           string    `db:"id"`
	Title        string    `db:"title"`
	Trade        string    `db:"trade"`
	Location     string    `db:"location"`
	Lat          *float64  `db:"lat"`
	Lng          *float64  `db:"lng"`
	EmployerName string    `db:"employer_name"`
	CreatedAt    time.Time `db:"created_at"`
	Status       string    `db:"status"`
}

func (r *jobRow) toModel() models.Job {
	return models.Job{
		ID:           r.ID,
		Title:        r.Title,
		Trade:        r.Trade,
		Location:     r.Location,
		Coords:       toCoordinate(r.Lat, r.Lng),
		EmployerName: r.EmployerName,
		CreatedAt:    r.CreatedAt,
		Status:       models.JobStatus(r.Status),
	}
}

// GetNewActiveJobs returns active jobs created at or after since, oldest first.
func (s *Store) GetNewActiveJobs(ctx context.Context, since time.Time) ([]models.Job, error) {
	query := `
		SELECT j.id, j.title, j.trade,
		       COALESCE(j.location, '')            AS location,
		       ST_Y(j.coords::geometry)            AS lat,
		       ST_X(j.coords::geometry)            AS lng,
		       COALESCE(p.company_name, p.name, '') AS employer_name,
		       j.created_at, j.status
		FROM jobs j
		LEFT JOIN profiles p ON p.id = j.employer_id
		WHERE j.status = ?
		AND j.created_at >= ?
		ORDER BY j.created_at
	`

	var rows []jobRow
	_, err := s.sess.
		SelectBySql(query, string(models.JobStatusActive), since).
		LoadContext(ctx, &rows)

	if err != nil {
		s.logger.Error("failed to get new jobs",
			zap.Time("since", since),
			zap.Error(err),
		)
		return nil, fmt.Errorf("get new jobs: %w", err)
	}

	jobs := make([]models.Job, 0, len(rows))
	for i := range rows {
		jobs = append(jobs, rows[i].toModel())
	}

	s.logger.Debug("new jobs loaded",
		zap.Time("since", since),
		zap.Int("count", len(jobs)),
	)

	return jobs, nil
}

func toCoordinate(lat, lng *float64) *geo.Coordinate {
	if lat == nil || lng == nil {
		return nil
	}
	return &geo.Coordinate{Lat: *lat, Lng: *lng}
}
