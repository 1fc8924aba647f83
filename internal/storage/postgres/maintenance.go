package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/gocraft/dbr/v2"
	"go.uber.org/zap"
)

// SyncProfileTiers re-derives profiles.subscription_status from the
// subscriptions table for every non-lifetime profile that disagrees with it.
func (s *Store) SyncProfileTiers(ctx context.Context) (int64, error) {
	query := `
		UPDATE profiles p
		SET subscription_status = CASE WHEN s.status = 'canceled' THEN 'free' ELSE 'pro' END
		FROM subscriptions s
		WHERE s.user_id = p.id
		AND p.is_lifetime_pro = false
		AND p.subscription_status IS DISTINCT FROM
			(CASE WHEN s.status = 'canceled' THEN 'free' ELSE 'pro' END)
	`

	res, err := s.sess.UpdateBySql(query).ExecContext(ctx)
	if err != nil {
		s.logger.Error("failed to sync profile tiers", zap.Error(err))
		return 0, fmt.Errorf("sync profile tiers: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("sync profile tiers: %w", err)
	}

	return n, nil
}

// expiredBoosts matches boosted non-lifetime profiles whose boost ended before now.
func expiredBoosts(now time.Time) dbr.Builder {
	return dbr.And(
		dbr.Eq("is_profile_boosted", true),
		dbr.Lt("boost_expires_at", now),
		dbr.Eq("is_lifetime_pro", false),
	)
}

// ExpireBoosts clears boosts whose expiry is before now. Lifetime Pro
// profiles are left alone like every other profile write.
func (s *Store) ExpireBoosts(ctx context.Context, now time.Time) (int64, error) {
	res, err := s.sess.
		Update("profiles").
		Set("is_profile_boosted", false).
		Set("boost_expires_at", nil).
		Where(expiredBoosts(now)).
		ExecContext(ctx)

	if err != nil {
		s.logger.Error("failed to expire boosts", zap.Error(err))
		return 0, fmt.Errorf("expire boosts: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("expire boosts: %w", err)
	}

	return n, nil
}
