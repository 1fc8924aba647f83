package scheduler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"time"

	"krewup/internal/geo"
	"krewup/internal/models"

	"go.uber.org/zap"
)

// ErrTransport marks a failed upstream read that aborted the whole run.
var ErrTransport = errors.New("upstream fetch failed")

type AlertStore interface {
	GetNewActiveJobs(ctx context.Context, since time.Time) ([]models.Job, error)
	GetActiveAlertSubscribers(ctx context.Context) ([]models.AlertSubscriber, error)
	CreateNotification(ctx context.Context, n *models.Notification) error
}

// RunState persists the matcher's cursor and guards against overlapping runs.
type RunState interface {
	ProximityCursor(ctx context.Context) (time.Time, bool, error)
	SetProximityCursor(ctx context.Context, t time.Time) error
	TryProximityLock(ctx context.Context) (string, bool, error)
	ReleaseProximityLock(ctx context.Context, token string) error
}

type Pusher interface {
	PushJobAlert(ctx context.Context, chatID int64, job *models.Job, distanceKm float64) error
}

type RunResult struct {
	JobsProcessed        int
	NotificationsCreated int
	Failed               int
	Skipped              bool
}

type ProximityChecker struct {
	store      AlertStore
	state      RunState
	pusher     Pusher
	lookback   time.Duration
	maxCatchup time.Duration
	logger     *zap.Logger
}

// NewProximityChecker wires the matcher. state and pusher may be nil: without
// state the matcher uses a fixed lookback window and no lock.
func NewProximityChecker(
	store AlertStore,
	state RunState,
	pusher Pusher,
	lookback time.Duration,
	maxCatchup time.Duration,
	logger *zap.Logger,
) *ProximityChecker {
	if maxCatchup < lookback {
		maxCatchup = lookback
	}

	return &ProximityChecker{
		store:      store,
		state:      state,
		pusher:     pusher,
		lookback:   lookback,
		maxCatchup: maxCatchup,
		logger:     logger,
	}
}

// Run notifies every worker whose active alert matches a job created since
// the last run. Notification inserts are best effort; only failures to load
// jobs or alerts abort the run.
func (pc *ProximityChecker) Run(ctx context.Context, now time.Time) (RunResult, error) {
	var result RunResult

	if pc.state != nil {
		token, ok, err := pc.state.TryProximityLock(ctx)
		switch {
		case err != nil:
			pc.logger.Warn("proximity lock unavailable, running unlocked", zap.Error(err))
		case !ok:
			pc.logger.Info("proximity check already running, skipping")
			result.Skipped = true
			return result, nil
		default:
			defer func() {
				if err := pc.state.ReleaseProximityLock(context.WithoutCancel(ctx), token); err != nil {
					pc.logger.Warn("failed to release proximity lock", zap.Error(err))
				}
			}()
		}
	}

	since := pc.windowStart(ctx, now)

	pc.logger.Info("starting proximity alert check", zap.Time("since", since))

	jobs, err := pc.store.GetNewActiveJobs(ctx, since)
	if err != nil {
		return result, fmt.Errorf("%w: jobs: %v", ErrTransport, err)
	}

	if len(jobs) == 0 {
		pc.logger.Debug("no new jobs")
		pc.advanceCursor(ctx, now)
		return result, nil
	}

	subscribers, err := pc.store.GetActiveAlertSubscribers(ctx)
	if err != nil {
		return result, fmt.Errorf("%w: alerts: %v", ErrTransport, err)
	}

	result.JobsProcessed = len(jobs)

	for i := range jobs {
		if err := ctx.Err(); err != nil {
			return result, fmt.Errorf("proximity check interrupted: %w", err)
		}

		job := &jobs[i]
		if job.Coords == nil {
			continue
		}

		for _, sub := range subscribers {
			if sub.Coords == nil || !sub.Alert.HasTrade(job.Trade) {
				continue
			}

			distance := geo.CalculateDistanceKm(job.Coords, sub.Coords)
			if *distance > sub.Alert.RadiusKm {
				continue
			}

			if pc.notify(ctx, job, &sub, *distance) {
				result.NotificationsCreated++
			} else {
				result.Failed++
			}
		}
	}

	pc.advanceCursor(ctx, now)

	pc.logger.Info("finished proximity alert check",
		zap.Int("jobs", result.JobsProcessed),
		zap.Int("subscribers", len(subscribers)),
		zap.Int("notifications", result.NotificationsCreated),
		zap.Int("failed", result.Failed),
	)

	return result, nil
}

func (pc *ProximityChecker) notify(ctx context.Context, job *models.Job, sub *models.AlertSubscriber, distanceKm float64) bool {
	n, err := NewJobNotification(sub.Alert.UserID, job, distanceKm)
	if err != nil {
		pc.logger.Error("failed to build notification",
			zap.String("user_id", sub.Alert.UserID),
			zap.String("job_id", job.ID),
			zap.Error(err),
		)
		return false
	}

	if err := pc.store.CreateNotification(ctx, n); err != nil {
		pc.logger.Error("failed to create job notification",
			zap.String("user_id", sub.Alert.UserID),
			zap.String("job_id", job.ID),
			zap.Error(err),
		)
		return false
	}

	if pc.pusher != nil && sub.TelegramChatID != nil {
		if err := pc.pusher.PushJobAlert(ctx, *sub.TelegramChatID, job, distanceKm); err != nil {
			pc.logger.Warn("telegram push failed",
				zap.String("user_id", sub.Alert.UserID),
				zap.String("job_id", job.ID),
				zap.Error(err),
			)
		}
	}

	return true
}

// windowStart is now minus the lookback, stretched back to the last run's
// cursor when the scheduler fell behind, but never past maxCatchup.
func (pc *ProximityChecker) windowStart(ctx context.Context, now time.Time) time.Time {
	since := now.Add(-pc.lookback)
	if pc.state == nil {
		return since
	}

	last, ok, err := pc.state.ProximityCursor(ctx)
	if err != nil {
		pc.logger.Warn("failed to read proximity cursor, using fixed window", zap.Error(err))
		return since
	}

	if !ok || !last.Before(since) {
		return since
	}

	floor := now.Add(-pc.maxCatchup)
	if last.Before(floor) {
		pc.logger.Warn("proximity cursor older than max catchup, capping window",
			zap.Time("cursor", last),
			zap.Time("floor", floor),
		)
		return floor
	}

	return last
}

func (pc *ProximityChecker) advanceCursor(ctx context.Context, now time.Time) {
	if pc.state == nil {
		return
	}

	if err := pc.state.SetProximityCursor(ctx, now); err != nil {
		pc.logger.Warn("failed to advance proximity cursor", zap.Error(err))
	}
}

// NewJobNotification builds the new_job notification for one matched pair.
func NewJobNotification(userID string, job *models.Job, distanceKm float64) (*models.Notification, error) {
	rounded := math.Round(distanceKm*10) / 10

	payload, err := json.Marshal(models.NewJobPayload{
		JobID:      job.ID,
		JobTitle:   job.Title,
		Trade:      job.Trade,
		Location:   job.Location,
		DistanceKm: rounded,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal payload: %w", err)
	}

	employer := job.EmployerName
	if employer == "" {
		employer = "An employer"
	}

	return &models.Notification{
		UserID:  userID,
		Type:    models.NotificationTypeNewJob,
		Title:   fmt.Sprintf("New %s job near you", job.Trade),
		Message: fmt.Sprintf("%s (%.1f km away) posted by %s", job.Title, rounded, employer),
		Data:    models.RawJSON(payload),
	}, nil
}
