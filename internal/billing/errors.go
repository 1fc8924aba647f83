package billing

import (
	"errors"
	"fmt"
)

// Webhook handling errors. Callers match them with errors.Is; every one of
// them makes the HTTP layer answer 500 so the provider retries delivery.
var (
	// ErrValidation is the parent of event content that can never be applied.
	ErrValidation = errors.New("invalid event")
	// ErrMissingMetadata means checkout.session.completed carried no user_id.
	ErrMissingMetadata = fmt.Errorf("%w: missing metadata", ErrValidation)
	// ErrUnknownPrice means the price ID maps to no configured plan.
	ErrUnknownPrice = fmt.Errorf("%w: unknown price", ErrValidation)
	// ErrNotFound means no local subscription or profile matched the event.
	ErrNotFound = errors.New("not found")
	// ErrTransport wraps failures talking to the datastore or to Stripe.
	ErrTransport = errors.New("transport error")
)
