package voucher

import (
	"errors"
	"time"

	"github.com/noah-isme/backend-pos/internal/pricing"
)

var (
	// ErrNegativeSubtotal indicates corrupt upstream order data. The resolver
	// rejects instead of clamping so the order source can be investigated.
	ErrNegativeSubtotal = errors.New("voucher: negative subtotal")
	// ErrMinimumSpendUnmet indicates the order total did not reach the voucher threshold.
	ErrMinimumSpendUnmet = errors.New("voucher: minimum spend not met")
	// ErrInvalidPercent is returned for percent vouchers without a usable rate.
	ErrInvalidPercent = errors.New("voucher: invalid percent value")
	// ErrVoucherInactive is returned outside of the voucher's active window.
	ErrVoucherInactive = errors.New("voucher: not active")
	// ErrVoucherExpired is returned when the voucher window has closed.
	ErrVoucherExpired = errors.New("voucher: expired")
)

// Kind discriminates how a voucher's value is interpreted.
type Kind string

const (
	// KindPercent vouchers discount a fraction of the subtotal, expressed in basis points.
	KindPercent Kind = "percent"
	// KindCash vouchers discount a fixed amount.
	KindCash Kind = "cash"
)

// Voucher captures the runtime constraints of a redeemable discount.
type Voucher struct {
	Code       string
	Kind       Kind
	Value      pricing.Money
	PercentBps int32
	MinSpend   pricing.Money
	ValidFrom  *time.Time
	ValidTo    *time.Time
}

// Active reports whether the voucher may be redeemed at the provided instant.
func (v Voucher) Active(now time.Time) error {
	if v.ValidFrom != nil && now.Before(*v.ValidFrom) {
		return ErrVoucherInactive
	}
	if v.ValidTo != nil && now.After(*v.ValidTo) {
		return ErrVoucherExpired
	}
	return nil
}

// Resolve converts an applied voucher into an absolute discount for the given
// subtotal. Walk-in customers (customerPresent == false) are ineligible and
// always resolve to zero, regardless of what the till has selected; this is a
// deliberate second line of defense against stale session state.
//
// The discount is clamped to the subtotal: a cash voucher larger than the
// order never drives the amount due negative.
func Resolve(subtotal pricing.Money, v *Voucher, customerPresent bool) (pricing.Money, error) {
	if subtotal < 0 {
		return 0, ErrNegativeSubtotal
	}
	if v == nil || !customerPresent {
		return 0, nil
	}
	if subtotal < v.MinSpend {
		return 0, ErrMinimumSpendUnmet
	}
	var discount pricing.Money
	switch v.Kind {
	case KindPercent:
		if v.PercentBps <= 0 {
			return 0, ErrInvalidPercent
		}
		discount = (subtotal * pricing.Money(v.PercentBps)) / 10000
	default:
		discount = v.Value
	}
	if discount > subtotal {
		discount = subtotal
	}
	if discount < 0 {
		discount = 0
	}
	return discount, nil
}

// Gap returns how much more the order must total before the candidate voucher
// unlocks. Zero means the voucher is redeemable now. Used for upsell prompts.
func Gap(subtotal pricing.Money, v *Voucher) pricing.Money {
	if v == nil || subtotal < 0 {
		return 0
	}
	gap := v.MinSpend - subtotal
	if gap < 0 {
		return 0
	}
	return gap
}
