package scheduler

import (
	"context"
	"errors"
	"sync"
	"time"

	"krewup/internal/geo"
	"krewup/internal/models"
)

// kmPerDegreeLat is the length of one degree of latitude on a 6371 km sphere.
const kmPerDegreeLat = 111.19492664455873

// north returns the point km kilometres due north of c.
func north(c geo.Coordinate, km float64) *geo.Coordinate {
	return &geo.Coordinate{Lat: c.Lat + km/kmPerDegreeLat, Lng: c.Lng}
}

type fakeAlertStore struct {
	mu sync.Mutex

	jobs        []models.Job
	subscribers []models.AlertSubscriber
	jobsErr     error
	alertsErr   error
	failFor     map[string]bool // user IDs whose inserts fail

	jobsCalls   int
	alertsCalls int
	since       time.Time
	created     []models.Notification
}

func (f *fakeAlertStore) GetNewActiveJobs(_ context.Context, since time.Time) ([]models.Job, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.jobsCalls++
	f.since = since
	if f.jobsErr != nil {
		return nil, f.jobsErr
	}
	return f.jobs, nil
}

func (f *fakeAlertStore) GetActiveAlertSubscribers(_ context.Context) ([]models.AlertSubscriber, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.alertsCalls++
	if f.alertsErr != nil {
		return nil, f.alertsErr
	}
	return f.subscribers, nil
}

func (f *fakeAlertStore) CreateNotification(_ context.Context, n *models.Notification) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failFor[n.UserID] {
		return errors.New("insert failed")
	}
	f.created = append(f.created, *n)
	return nil
}

type fakeRunState struct {
	cursor    time.Time
	hasCursor bool
	cursorErr error
	locked    bool
	lockErr   error

	setCursor []time.Time
	released  []string
}

func (f *fakeRunState) ProximityCursor(context.Context) (time.Time, bool, error) {
	return f.cursor, f.hasCursor, f.cursorErr
}

func (f *fakeRunState) SetProximityCursor(_ context.Context, t time.Time) error {
	f.setCursor = append(f.setCursor, t)
	return nil
}

func (f *fakeRunState) TryProximityLock(context.Context) (string, bool, error) {
	if f.lockErr != nil {
		return "", false, f.lockErr
	}
	if f.locked {
		return "", false, nil
	}
	f.locked = true
	return "token-1", true, nil
}

func (f *fakeRunState) ReleaseProximityLock(_ context.Context, token string) error {
	f.released = append(f.released, token)
	f.locked = false
	return nil
}

type pushed struct {
	chatID     int64
	jobID      string
	distanceKm float64
}

type fakePusher struct {
	err  error
	sent []pushed
}

func (f *fakePusher) PushJobAlert(_ context.Context, chatID int64, job *models.Job, distanceKm float64) error {
	f.sent = append(f.sent, pushed{chatID, job.ID, distanceKm})
	return f.err
}

type fakeMaintenanceStore struct {
	synced     int64
	expired    int64
	syncErr    error
	expireErr  error
	expireNow  time.Time
	syncCalls  int
	expireCall int
}

func (f *fakeMaintenanceStore) SyncProfileTiers(context.Context) (int64, error) {
	f.syncCalls++
	return f.synced, f.syncErr
}

func (f *fakeMaintenanceStore) ExpireBoosts(_ context.Context, now time.Time) (int64, error) {
	f.expireCall++
	f.expireNow = now
	return f.expired, f.expireErr
}
