package postgres

import (
	"context"
	"fmt"
	"time"

	"krewup/internal/models"

	"github.com/gocraft/dbr/v2"
	"go.uber.org/zap"
)

// Profile writes below never touch lifetime-Pro rows.

// GetProfile returns nil, nil when the profile does not exist.
func (s *Store) GetProfile(ctx context.Context, userID string) (*models.Profile, error) {
	var profile models.Profile

	err := s.sess.
		Select("id", "role", "subscription_status", "is_lifetime_pro",
			"is_profile_boosted", "boost_expires_at", "telegram_chat_id").
		From("profiles").
		Where("id = ?", userID).
		LoadOneContext(ctx, &profile)

	if err == dbr.ErrNotFound {
		return nil, nil
	}

	if err != nil {
		s.logger.Error("failed to get profile",
			zap.String("user_id", userID),
			zap.Error(err),
		)
		return nil, fmt.Errorf("get profile: %w", err)
	}

	return &profile, nil
}

func (s *Store) SetSubscriptionTier(ctx context.Context, userID string, tier models.ProfileTier) error {
	_, err := s.sess.
		Update("profiles").
		Set("subscription_status", string(tier)).
		Where("id = ? AND is_lifetime_pro = ?", userID, false).
		ExecContext(ctx)

	if err != nil {
		s.logger.Error("failed to set subscription tier",
			zap.String("user_id", userID),
			zap.String("tier", string(tier)),
			zap.Error(err),
		)
		return fmt.Errorf("set subscription tier: %w", err)
	}

	s.logger.Info("subscription tier updated",
		zap.String("user_id", userID),
		zap.String("tier", string(tier)),
	)

	return nil
}

func (s *Store) BoostProfile(ctx context.Context, userID string, until time.Time) error {
	_, err := s.sess.
		Update("profiles").
		Set("is_profile_boosted", true).
		Set("boost_expires_at", until).
		Where("id = ? AND is_lifetime_pro = ?", userID, false).
		ExecContext(ctx)

	if err != nil {
		s.logger.Error("failed to boost profile",
			zap.String("user_id", userID),
			zap.Error(err),
		)
		return fmt.Errorf("boost profile: %w", err)
	}

	s.logger.Info("profile boosted",
		zap.String("user_id", userID),
		zap.Time("until", until),
	)

	return nil
}

// DowngradeProfile sets the tier to free and clears any boost.
func (s *Store) DowngradeProfile(ctx context.Context, userID string) error {
	_, err := s.sess.
		Update("profiles").
		Set("subscription_status", string(models.TierFree)).
		Set("is_profile_boosted", false).
		Set("boost_expires_at", nil).
		Where("id = ? AND is_lifetime_pro = ?", userID, false).
		ExecContext(ctx)

	if err != nil {
		s.logger.Error("failed to downgrade profile",
			zap.String("user_id", userID),
			zap.Error(err),
		)
		return fmt.Errorf("downgrade profile: %w", err)
	}

	s.logger.Info("profile downgraded", zap.String("user_id", userID))
	return nil
}
