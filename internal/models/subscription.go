package models

import "time"

type SubscriptionStatus string

const (
	SubscriptionActive   SubscriptionStatus = "active"
	SubscriptionPastDue  SubscriptionStatus = "past_due"
	SubscriptionCanceled SubscriptionStatus = "canceled"
)

type PlanType string

const (
	PlanMonthly PlanType = "monthly"
	PlanAnnual  PlanType = "annual"
)

// Subscription is one logical row per user, upserted by user_id.
type Subscription struct {
	ID                   string             `db:"id"`
	UserID               string             `db:"user_id"`
	StripeCustomerID     string             `db:"stripe_customer_id"`
	StripeSubscriptionID string             `db:"stripe_subscription_id"`
	StripePriceID        string             `db:"stripe_price_id"`
	Status               SubscriptionStatus `db:"status"`
	PlanType             PlanType           `db:"plan_type"`
	CurrentPeriodStart   time.Time          `db:"current_period_start"`
	CurrentPeriodEnd     time.Time          `db:"current_period_end"`
	CancelAtPeriodEnd    bool               `db:"cancel_at_period_end"`
	UpdatedAt            time.Time          `db:"updated_at"`
}
