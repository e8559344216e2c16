package service

import (
	"errors"
	"time"

	"github.com/Akanksha-Dhamdhere/mobile-store/pkg/storefront/domain/model"
)

const (
	OutcomePlaced   = "placed"
	OutcomeRejected = "rejected"
	OutcomeFailed   = "failed"
)

// CheckoutObserver receives checkout measurements.
type CheckoutObserver interface {
	ObserveCheckout(outcome string, elapsed time.Duration)
	BillGenerationFailed()
	CompensationApplied(lines int)
}

type NopObserver struct{}

func (NopObserver) ObserveCheckout(string, time.Duration) {}
func (NopObserver) BillGenerationFailed()                 {}
func (NopObserver) CompensationApplied(int)               {}

func checkoutOutcome(err error) string {
	switch {
	case err == nil:
		return OutcomePlaced
	case errors.Is(err, model.ErrValidation),
		errors.Is(err, model.ErrNotFound),
		errors.Is(err, model.ErrConflict),
		errors.Is(err, model.ErrForbidden):
		return OutcomeRejected
	}
	return OutcomeFailed
}
