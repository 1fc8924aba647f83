package billing

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	stripe "github.com/stripe/stripe-go"

	"krewup/internal/models"
)

func TestPlans_PlanFor(t *testing.T) {
	plan, err := plans.PlanFor("price_monthly")
	require.NoError(t, err)
	assert.Equal(t, models.PlanMonthly, plan)

	plan, err = plans.PlanFor("price_annual")
	require.NoError(t, err)
	assert.Equal(t, models.PlanAnnual, plan)

	_, err = plans.PlanFor("price_lifetime")
	assert.ErrorIs(t, err, ErrUnknownPrice)

	_, err = plans.PlanFor("")
	assert.ErrorIs(t, err, ErrUnknownPrice)
}

func TestPriceID(t *testing.T) {
	s := stripeSub("sub_1", "cus_1", "price_annual")
	assert.Equal(t, "price_annual", PriceID(&s))

	legacy := stripe.Subscription{Plan: &stripe.Plan{ID: "price_monthly"}}
	assert.Equal(t, "price_monthly", PriceID(&legacy))

	assert.Empty(t, PriceID(&stripe.Subscription{}))
}

func TestPeriodDefaults(t *testing.T) {
	d := DefaultPeriodDefaults()

	start, end := d.Period(0, 0, fixedNow)
	assert.Equal(t, fixedNow, start)
	assert.Equal(t, fixedNow.Add(30*24*time.Hour), end)

	start, end = d.Period(periodStart, periodEnd, fixedNow)
	assert.Equal(t, time.Unix(periodStart, 0).UTC(), start)
	assert.Equal(t, time.Unix(periodEnd, 0).UTC(), end)
}

func TestMapStatus_UnknownIsPastDue(t *testing.T) {
	assert.Equal(t, models.SubscriptionPastDue, MapStatus(stripe.SubscriptionStatus("paused")))
}
