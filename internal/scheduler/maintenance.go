package scheduler

import (
	"context"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"
)

type MaintenanceStore interface {
	SyncProfileTiers(ctx context.Context) (int64, error)
	ExpireBoosts(ctx context.Context, now time.Time) (int64, error)
}

type MaintenanceResult struct {
	TiersSynced   int64
	BoostsExpired int64
}

// MaintenanceJob repairs profile state that webhook processing can leave
// behind: a tier that disagrees with the subscription row (crash between the
// two writes) and boosts past their expiry.
type MaintenanceJob struct {
	store  MaintenanceStore
	logger *zap.Logger
}

func NewMaintenanceJob(store MaintenanceStore, logger *zap.Logger) *MaintenanceJob {
	return &MaintenanceJob{
		store:  store,
		logger: logger,
	}
}

// Run executes both sweeps; a failure in one does not skip the other.
func (m *MaintenanceJob) Run(ctx context.Context, now time.Time) (MaintenanceResult, error) {
	var (
		result MaintenanceResult
		errs   error
	)

	synced, err := m.store.SyncProfileTiers(ctx)
	if err != nil {
		errs = multierr.Append(errs, err)
	} else {
		result.TiersSynced = synced
	}

	expired, err := m.store.ExpireBoosts(ctx, now)
	if err != nil {
		errs = multierr.Append(errs, err)
	} else {
		result.BoostsExpired = expired
	}

	if result.TiersSynced > 0 {
		m.logger.Warn("profile tiers were out of sync with subscriptions",
			zap.Int64("repaired", result.TiersSynced),
		)
	}

	m.logger.Info("maintenance finished",
		zap.Int64("tiers_synced", result.TiersSynced),
		zap.Int64("boosts_expired", result.BoostsExpired),
		zap.Error(errs),
	)

	return result, errs
}
