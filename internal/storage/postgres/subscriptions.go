package postgres

import (
	"context"
	"fmt"
	"time"

	"krewup/internal/models"

	"github.com/gocraft/dbr/v2"
	"go.uber.org/zap"
)

// UpsertSubscription writes the subscription keyed by user_id and sets sub.ID.
func (s *Store) UpsertSubscription(ctx context.Context, sub *models.Subscription) error {
	query := `
		INSERT INTO subscriptions (
			user_id, stripe_customer_id, stripe_subscription_id, stripe_price_id,
			status, plan_type, current_period_start, current_period_end,
			cancel_at_period_end, updated_at
		)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, NOW())
		ON CONFLICT (user_id) DO UPDATE SET
			stripe_customer_id     = EXCLUDED.stripe_customer_id,
			stripe_subscription_id = EXCLUDED.stripe_subscription_id,
			stripe_price_id        = EXCLUDED.stripe_price_id,
			status                 = EXCLUDED.status,
			plan_type              = EXCLUDED.plan_type,
			current_period_start   = EXCLUDED.current_period_start,
			current_period_end     = EXCLUDED.current_period_end,
			cancel_at_period_end   = EXCLUDED.cancel_at_period_end,
			updated_at             = NOW()
		RETURNING id
	`

	var id string
	err := s.sess.
		SelectBySql(query,
			sub.UserID,
			sub.StripeCustomerID,
			sub.StripeSubscriptionID,
			sub.StripePriceID,
			string(sub.Status),
			string(sub.PlanType),
			sub.CurrentPeriodStart,
			sub.CurrentPeriodEnd,
			sub.CancelAtPeriodEnd,
		).
		LoadOneContext(ctx, &id)
	if err != nil {
		s.logger.Error("failed to upsert subscription",
			zap.String("user_id", sub.UserID),
			zap.String("stripe_customer_id", sub.StripeCustomerID),
			zap.Error(err),
		)
		return fmt.Errorf("upsert subscription: %w", err)
	}

	sub.ID = id

	s.logger.Info("subscription upserted",
		zap.String("user_id", sub.UserID),
		zap.String("status", string(sub.Status)),
		zap.String("plan_type", string(sub.PlanType)),
	)

	return nil
}

// GetSubscriptionByCustomer returns nil, nil when no row matches.
func (s *Store) GetSubscriptionByCustomer(ctx context.Context, customerID string) (*models.Subscription, error) {
	var sub models.Subscription

	err := s.sess.
		Select("*").
		From("subscriptions").
		Where("stripe_customer_id = ?", customerID).
		LoadOneContext(ctx, &sub)

	if err == dbr.ErrNotFound {
		return nil, nil
	}

	if err != nil {
		s.logger.Error("failed to get subscription",
			zap.String("stripe_customer_id", customerID),
			zap.Error(err),
		)
		return nil, fmt.Errorf("get subscription: %w", err)
	}

	return &sub, nil
}

// UpdateSubscription overwrites the mutable lifecycle fields of an existing row.
func (s *Store) UpdateSubscription(ctx context.Context, sub *models.Subscription) error {
	_, err := s.sess.
		Update("subscriptions").
		Set("stripe_subscription_id", sub.StripeSubscriptionID).
		Set("stripe_price_id", sub.StripePriceID).
		Set("status", string(sub.Status)).
		Set("plan_type", string(sub.PlanType)).
		Set("current_period_start", sub.CurrentPeriodStart).
		Set("current_period_end", sub.CurrentPeriodEnd).
		Set("cancel_at_period_end", sub.CancelAtPeriodEnd).
		Set("updated_at", time.Now()).
		Where("id = ?", sub.ID).
		ExecContext(ctx)

	if err != nil {
		s.logger.Error("failed to update subscription",
			zap.String("subscription_id", sub.ID),
			zap.Error(err),
		)
		return fmt.Errorf("update subscription: %w", err)
	}

	s.logger.Info("subscription updated",
		zap.String("subscription_id", sub.ID),
		zap.String("status", string(sub.Status)),
	)

	return nil
}
