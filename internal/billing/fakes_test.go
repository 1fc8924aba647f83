package billing

import (
	"context"
	"errors"
	"time"

	stripe "github.com/stripe/stripe-go"

	"krewup/internal/models"
)

type fakeStore struct {
	subs     map[string]*models.Subscription // by user ID
	profiles map[string]*models.Profile

	upsertErr error
	boostErr  error
	lookupErr error

	upserts int
	updates int
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		subs:     map[string]*models.Subscription{},
		profiles: map[string]*models.Profile{},
	}
}

func (f *fakeStore) UpsertSubscription(_ context.Context, sub *models.Subscription) error {
	if f.upsertErr != nil {
		return f.upsertErr
	}
	f.upserts++
	cp := *sub
	cp.ID = "sub-row-" + sub.UserID
	sub.ID = cp.ID
	f.subs[sub.UserID] = &cp
	return nil
}

func (f *fakeStore) GetSubscriptionByCustomer(_ context.Context, customerID string) (*models.Subscription, error) {
	if f.lookupErr != nil {
		return nil, f.lookupErr
	}
	for _, s := range f.subs {
		if s.StripeCustomerID == customerID {
			cp := *s
			return &cp, nil
		}
	}
	return nil, nil
}

func (f *fakeStore) UpdateSubscription(_ context.Context, sub *models.Subscription) error {
	f.updates++
	cp := *sub
	f.subs[sub.UserID] = &cp
	return nil
}

func (f *fakeStore) GetProfile(_ context.Context, userID string) (*models.Profile, error) {
	p, ok := f.profiles[userID]
	if !ok {
		return nil, nil
	}
	cp := *p
	return &cp, nil
}

// Profile writes honour the lifetime-Pro guard the way the SQL does.
func (f *fakeStore) SetSubscriptionTier(_ context.Context, userID string, tier models.ProfileTier) error {
	if p, ok := f.profiles[userID]; ok && !p.IsLifetimePro {
		p.SubscriptionStatus = tier
	}
	return nil
}

func (f *fakeStore) BoostProfile(_ context.Context, userID string, until time.Time) error {
	if f.boostErr != nil {
		return f.boostErr
	}
	if p, ok := f.profiles[userID]; ok && !p.IsLifetimePro {
		p.IsProfileBoosted = true
		p.BoostExpiresAt = &until
	}
	return nil
}

func (f *fakeStore) DowngradeProfile(_ context.Context, userID string) error {
	if p, ok := f.profiles[userID]; ok && !p.IsLifetimePro {
		p.SubscriptionStatus = models.TierFree
		p.IsProfileBoosted = false
		p.BoostExpiresAt = nil
	}
	return nil
}

type fakeEventLog struct {
	processed map[string]string
	checkErr  error
}

func newFakeEventLog() *fakeEventLog {
	return &fakeEventLog{processed: map[string]string{}}
}

func (f *fakeEventLog) IsEventProcessed(_ context.Context, eventID string) (bool, error) {
	if f.checkErr != nil {
		return false, f.checkErr
	}
	_, ok := f.processed[eventID]
	return ok, nil
}

func (f *fakeEventLog) MarkEventProcessed(_ context.Context, eventID, eventType string) error {
	f.processed[eventID] = eventType
	return nil
}

type fakeGateway struct {
	subs  map[string]stripe.Subscription
	err   error
	calls int
}

func (f *fakeGateway) GetSubscription(_ context.Context, id string) (stripe.Subscription, error) {
	f.calls++
	if f.err != nil {
		return stripe.Subscription{}, f.err
	}
	s, ok := f.subs[id]
	if !ok {
		return stripe.Subscription{}, errors.New("resource_missing")
	}
	return s, nil
}
