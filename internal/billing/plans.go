package billing

import (
	"fmt"
	"time"

	stripe "github.com/stripe/stripe-go"

	"krewup/internal/models"
)

// Plans maps configured Stripe price IDs to local plan types.
type Plans struct {
	MonthlyPriceID string
	AnnualPriceID  string
}

func (p Plans) PlanFor(priceID string) (models.PlanType, error) {
	switch {
	case priceID == "":
		return "", fmt.Errorf("%w: subscription has no price", ErrUnknownPrice)
	case priceID == p.MonthlyPriceID:
		return models.PlanMonthly, nil
	case priceID == p.AnnualPriceID:
		return models.PlanAnnual, nil
	default:
		return "", fmt.Errorf("%w: %s", ErrUnknownPrice, priceID)
	}
}

// PriceID is the price of the subscription's first item, falling back to the
// legacy single-plan field.
func PriceID(sub *stripe.Subscription) string {
	if sub.Items != nil {
		for _, item := range sub.Items.Data {
			if item != nil && item.Plan != nil && item.Plan.ID != "" {
				return item.Plan.ID
			}
		}
	}
	if sub.Plan != nil {
		return sub.Plan.ID
	}
	return ""
}

// PeriodDefaults fills billing period bounds Stripe left unset.
type PeriodDefaults struct {
	// StartFallback is added to now when the start is missing.
	StartFallback time.Duration
	// EndFallback is added to now when the end is missing.
	EndFallback time.Duration
}

func DefaultPeriodDefaults() PeriodDefaults {
	return PeriodDefaults{
		StartFallback: 0,
		EndFallback:   30 * 24 * time.Hour,
	}
}

// Period converts Stripe's epoch seconds into timestamps.
func (d PeriodDefaults) Period(start, end int64, now time.Time) (time.Time, time.Time) {
	periodStart := now.Add(d.StartFallback)
	if start > 0 {
		periodStart = time.Unix(start, 0).UTC()
	}

	periodEnd := now.Add(d.EndFallback)
	if end > 0 {
		periodEnd = time.Unix(end, 0).UTC()
	}

	return periodStart, periodEnd
}

// MapStatus folds Stripe's subscription states onto the three local ones.
// States this mapping does not know are treated as past_due: Pro access is
// kept while the row is flagged.
func MapStatus(status stripe.SubscriptionStatus) models.SubscriptionStatus {
	switch status {
	case stripe.SubscriptionStatusActive, stripe.SubscriptionStatusTrialing:
		return models.SubscriptionActive
	case stripe.SubscriptionStatusCanceled, stripe.SubscriptionStatusIncompleteExpired:
		return models.SubscriptionCanceled
	default:
		return models.SubscriptionPastDue
	}
}
