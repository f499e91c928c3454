package billing

import (
	"context"
	"errors"

	"github.com/rs/zerolog"
)

// Register runs checkouts for a Session against a Persistence port, allowing
// one checkout in flight at a time.
type Register struct {
	Store Persistence

	guard Guard
}

// InFlight reports whether a checkout is currently being submitted.
func (r *Register) InFlight() bool {
	return r.guard.InFlight(OpCheckout)
}

// Checkout submits the session's sale. On success the returned session is
// reset for the next sale; on failure the input session is returned as is.
func (r *Register) Checkout(ctx context.Context, s Session) (Session, CheckoutResult, error) {
	token, err := r.guard.Acquire(OpCheckout)
	if err != nil {
		return s, CheckoutResult{}, err
	}
	defer r.guard.Release(token)

	logger := zerolog.Ctx(ctx)
	result, err := Checkout(ctx, r.Store, s.Request())
	if err != nil {
		var transport *TransportError
		if errors.As(err, &transport) {
			logger.Warn().Err(err).Int("status", transport.Status).Msg("checkout_failed")
		} else {
			logger.Debug().Err(err).Msg("checkout_rejected")
		}
		return s, CheckoutResult{}, err
	}
	logger.Info().
		Str("bill_id", result.Bill.ID).
		Str("bill_number", result.Bill.Number).
		Float64("grand_total", result.Bill.GrandTotal).
		Int("transactions", len(result.Transactions)).
		Msg("checkout_completed")

	next, _ := s.Apply(Reset{})
	return next, result, nil
}
