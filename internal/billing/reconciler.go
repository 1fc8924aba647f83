// Package billing applies Stripe subscription lifecycle events to local
// subscription and profile state.
package billing

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	stripe "github.com/stripe/stripe-go"
	"go.uber.org/zap"

	"krewup/internal/billing/gateway"
	"krewup/internal/models"
)

const (
	EventCheckoutCompleted   = "checkout.session.completed"
	EventSubscriptionUpdated = "customer.subscription.updated"
	EventSubscriptionDeleted = "customer.subscription.deleted"
	EventPaymentFailed       = "invoice.payment_failed"
)

// Store is the subscription and profile persistence the reconciler mutates.
// Lookups return nil, nil when nothing matches.
type Store interface {
	UpsertSubscription(ctx context.Context, sub *models.Subscription) error
	GetSubscriptionByCustomer(ctx context.Context, customerID string) (*models.Subscription, error)
	UpdateSubscription(ctx context.Context, sub *models.Subscription) error

	GetProfile(ctx context.Context, userID string) (*models.Profile, error)
	SetSubscriptionTier(ctx context.Context, userID string, tier models.ProfileTier) error
	BoostProfile(ctx context.Context, userID string, until time.Time) error
	DowngradeProfile(ctx context.Context, userID string) error
}

// EventLog remembers which Stripe events were already applied.
type EventLog interface {
	IsEventProcessed(ctx context.Context, eventID string) (bool, error)
	MarkEventProcessed(ctx context.Context, eventID, eventType string) error
}

type Reconciler struct {
	store         Store
	events        EventLog
	gw            gateway.StripeGateway
	plans         Plans
	periods       PeriodDefaults
	boostDuration time.Duration
	now           func() time.Time
	logger        *zap.Logger
}

type Option func(*Reconciler)

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(r *Reconciler) { r.now = now }
}

func WithPeriodDefaults(d PeriodDefaults) Option {
	return func(r *Reconciler) { r.periods = d }
}

func NewReconciler(
	store Store,
	events EventLog,
	gw gateway.StripeGateway,
	plans Plans,
	boostDuration time.Duration,
	logger *zap.Logger,
	opts ...Option,
) *Reconciler {
	r := &Reconciler{
		store:         store,
		events:        events,
		gw:            gw,
		plans:         plans,
		periods:       DefaultPeriodDefaults(),
		boostDuration: boostDuration,
		now:           time.Now,
		logger:        logger,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// HandleEvent applies a verified Stripe event exactly once. Duplicates and
// unrecognized types return nil; anything else that fails returns an error
// so Stripe retries the delivery.
func (r *Reconciler) HandleEvent(ctx context.Context, event stripe.Event) error {
	log := r.logger.With(
		zap.String("event_id", event.ID),
		zap.String("event_type", event.Type),
	)

	processed, err := r.events.IsEventProcessed(ctx, event.ID)
	if err != nil {
		return fmt.Errorf("%w: check event: %v", ErrTransport, err)
	}
	if processed {
		log.Info("event already processed, skipping")
		return nil
	}

	switch event.Type {
	case EventCheckoutCompleted:
		err = r.handleCheckoutCompleted(ctx, event, log)
	case EventSubscriptionUpdated:
		err = r.handleSubscriptionUpdated(ctx, event, log)
	case EventSubscriptionDeleted:
		err = r.handleSubscriptionDeleted(ctx, event, log)
	case EventPaymentFailed:
		err = r.handlePaymentFailed(ctx, event, log)
	default:
		log.Info("unhandled event type")
		return nil
	}
	if err != nil {
		log.Error("failed to handle event", zap.Error(err))
		return err
	}

	if err := r.events.MarkEventProcessed(ctx, event.ID, event.Type); err != nil {
		return fmt.Errorf("%w: mark event: %v", ErrTransport, err)
	}

	log.Info("event processed")
	return nil
}

func (r *Reconciler) handleCheckoutCompleted(ctx context.Context, event stripe.Event, log *zap.Logger) error {
	var session stripe.CheckoutSession
	if err := decode(event, &session); err != nil {
		return err
	}

	userID := session.Metadata["user_id"]
	if userID == "" {
		return fmt.Errorf("%w: user_id on session %s", ErrMissingMetadata, session.ID)
	}
	if session.Subscription == nil || session.Subscription.ID == "" {
		return fmt.Errorf("%w: session %s has no subscription", ErrValidation, session.ID)
	}

	stripeSub, err := r.gw.GetSubscription(ctx, session.Subscription.ID)
	if err != nil {
		return fmt.Errorf("%w: get subscription %s: %v", ErrTransport, session.Subscription.ID, err)
	}

	priceID := PriceID(&stripeSub)
	plan, err := r.plans.PlanFor(priceID)
	if err != nil {
		return err
	}

	customerID := customerOf(session.Customer)
	if customerID == "" {
		customerID = customerOf(stripeSub.Customer)
	}

	now := r.now()
	start, end := r.periods.Period(stripeSub.CurrentPeriodStart, stripeSub.CurrentPeriodEnd, now)

	sub := &models.Subscription{
		UserID:               userID,
		StripeCustomerID:     customerID,
		StripeSubscriptionID: session.Subscription.ID,
		StripePriceID:        priceID,
		Status:               models.SubscriptionActive,
		PlanType:             plan,
		CurrentPeriodStart:   start,
		CurrentPeriodEnd:     end,
		CancelAtPeriodEnd:    stripeSub.CancelAtPeriodEnd,
	}
	if err := r.store.UpsertSubscription(ctx, sub); err != nil {
		return fmt.Errorf("%w: %v", ErrTransport, err)
	}

	log = log.With(zap.String("user_id", userID))
	log.Info("subscription activated", zap.String("plan", string(plan)))

	profile, err := r.profile(ctx, userID)
	if err != nil {
		return err
	}
	if profile.IsLifetimePro {
		log.Info("lifetime pro profile, leaving tier untouched")
		return nil
	}

	if err := r.store.SetSubscriptionTier(ctx, userID, models.TierFor(sub.Status)); err != nil {
		return fmt.Errorf("%w: %v", ErrTransport, err)
	}

	if profile.IsWorker() {
		r.boost(ctx, userID, now, log)
	}

	return nil
}

func (r *Reconciler) handleSubscriptionUpdated(ctx context.Context, event stripe.Event, log *zap.Logger) error {
	var stripeSub stripe.Subscription
	if err := decode(event, &stripeSub); err != nil {
		return err
	}

	existing, err := r.subscriptionByCustomer(ctx, customerOf(stripeSub.Customer))
	if err != nil {
		return err
	}

	priceID := PriceID(&stripeSub)
	plan, err := r.plans.PlanFor(priceID)
	if err != nil {
		return err
	}

	now := r.now()
	start, end := r.periods.Period(stripeSub.CurrentPeriodStart, stripeSub.CurrentPeriodEnd, now)

	existing.Status = MapStatus(stripeSub.Status)
	existing.PlanType = plan
	existing.StripePriceID = priceID
	existing.StripeSubscriptionID = stripeSub.ID
	existing.CurrentPeriodStart = start
	existing.CurrentPeriodEnd = end
	existing.CancelAtPeriodEnd = stripeSub.CancelAtPeriodEnd

	if err := r.store.UpdateSubscription(ctx, existing); err != nil {
		return fmt.Errorf("%w: %v", ErrTransport, err)
	}

	log = log.With(zap.String("user_id", existing.UserID))
	log.Info("subscription updated",
		zap.String("status", string(existing.Status)),
		zap.Bool("cancel_at_period_end", existing.CancelAtPeriodEnd),
	)

	if existing.Status != models.SubscriptionActive {
		return nil
	}

	profile, err := r.profile(ctx, existing.UserID)
	if errors.Is(err, ErrNotFound) {
		log.Warn("profile not found, skipping boost")
		return nil
	}
	if err != nil {
		return err
	}
	if !profile.IsLifetimePro && profile.IsWorker() {
		r.boost(ctx, existing.UserID, now, log)
	}

	return nil
}

func (r *Reconciler) handleSubscriptionDeleted(ctx context.Context, event stripe.Event, log *zap.Logger) error {
	var stripeSub stripe.Subscription
	if err := decode(event, &stripeSub); err != nil {
		return err
	}

	existing, err := r.subscriptionByCustomer(ctx, customerOf(stripeSub.Customer))
	if err != nil {
		return err
	}

	existing.Status = models.SubscriptionCanceled
	existing.CancelAtPeriodEnd = false
	if err := r.store.UpdateSubscription(ctx, existing); err != nil {
		return fmt.Errorf("%w: %v", ErrTransport, err)
	}

	log = log.With(zap.String("user_id", existing.UserID))
	log.Info("subscription canceled")

	profile, err := r.profile(ctx, existing.UserID)
	if err != nil {
		return err
	}
	if profile.IsLifetimePro {
		log.Info("lifetime pro profile, leaving tier untouched")
		return nil
	}

	if err := r.store.DowngradeProfile(ctx, existing.UserID); err != nil {
		return fmt.Errorf("%w: %v", ErrTransport, err)
	}

	return nil
}

func (r *Reconciler) handlePaymentFailed(ctx context.Context, event stripe.Event, log *zap.Logger) error {
	var invoice stripe.Invoice
	if err := decode(event, &invoice); err != nil {
		return err
	}

	existing, err := r.subscriptionByCustomer(ctx, customerOf(invoice.Customer))
	if err != nil {
		return err
	}

	existing.Status = models.SubscriptionPastDue
	if err := r.store.UpdateSubscription(ctx, existing); err != nil {
		return fmt.Errorf("%w: %v", ErrTransport, err)
	}

	log.Warn("payment failed, subscription past due", zap.String("user_id", existing.UserID))
	return nil
}

// boost is best effort: the subscription write already happened.
func (r *Reconciler) boost(ctx context.Context, userID string, now time.Time, log *zap.Logger) {
	until := now.Add(r.boostDuration)
	if err := r.store.BoostProfile(ctx, userID, until); err != nil {
		log.Warn("failed to boost profile", zap.Error(err))
		return
	}
	log.Info("profile boosted", zap.Time("until", until))
}

func (r *Reconciler) profile(ctx context.Context, userID string) (*models.Profile, error) {
	profile, err := r.store.GetProfile(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTransport, err)
	}
	if profile == nil {
		return nil, fmt.Errorf("%w: profile %s", ErrNotFound, userID)
	}
	return profile, nil
}

func (r *Reconciler) subscriptionByCustomer(ctx context.Context, customerID string) (*models.Subscription, error) {
	if customerID == "" {
		return nil, fmt.Errorf("%w: event has no customer", ErrValidation)
	}

	sub, err := r.store.GetSubscriptionByCustomer(ctx, customerID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTransport, err)
	}
	if sub == nil {
		return nil, fmt.Errorf("%w: subscription for customer %s", ErrNotFound, customerID)
	}
	return sub, nil
}

func decode(event stripe.Event, v interface{}) error {
	if event.Data == nil || len(event.Data.Raw) == 0 {
		return fmt.Errorf("%w: %s has no data", ErrValidation, event.Type)
	}
	if err := json.Unmarshal(event.Data.Raw, v); err != nil {
		return fmt.Errorf("%w: decode %s: %v", ErrValidation, event.Type, err)
	}
	return nil
}

func customerOf(c *stripe.Customer) string {
	if c == nil {
		return ""
	}
	return c.ID
}
