package tipping

import (
	"fmt"
	"math"

	"nxt-tipbot/domain"
	"nxt-tipbot/errors"
)

// Balances carries the externally supplied balances a check runs against,
// both in base units. UnitQNT mirrors NativeQNT for the native unit.
type Balances struct {
	NativeQNT int64
	UnitQNT   int64
}

// Validator decides whether a transfer can go through: unit resolution
// against the registry, then funds and fee-margin arithmetic. It performs
// no I/O; callers fetch balances first.
type Validator struct {
	registry *domain.Registry
}

func NewValidator(registry *domain.Registry) Validator {
	return Validator{registry: registry}
}

// Resolve maps a unit token to a registered transferable. The empty token
// means the native unit. An unresolved token is ErrUnknownUnit.
func (v Validator) Resolve(token string) (domain.Transferable, error) {
	if token == "" {
		return v.registry.Native(), nil
	}
	t, ok := v.registry.Lookup(token)
	if !ok {
		return domain.Transferable{}, fmt.Errorf("%w: %q", errors.ErrUnknownUnit, token)
	}
	return t, nil
}

// Check enforces the funds and fee invariants for a transfer of amountQNT
// base units of t to each of recipientCount recipients. Every recipient
// costs one transaction, and every transaction one whole native unit in
// fees, so:
//
//   - native: a balance covering the total but not the fee of a single
//     transfer is a fee-margin failure; anything below total plus one fee
//     per recipient is an insufficient-funds failure.
//   - non-native: the native balance must hold one fee per recipient
//     before the unit's own balance is even considered.
func (v Validator) Check(t domain.Transferable, balances Balances, amountQNT int64, recipientCount int) error {
	if recipientCount < 1 {
		return fmt.Errorf("%w: no recipients", errors.ErrInvalidAmount)
	}
	if amountQNT > math.MaxInt64/int64(recipientCount) {
		return errors.ErrInsufficientFunds
	}
	totalQNT := amountQNT * int64(recipientCount)
	feeQNT := v.registry.Native().BaseUnit()
	// Totals whose fee addition would wrap int64 cannot be covered by any
	// balance either.
	if totalQNT > math.MaxInt64-feeQNT*int64(recipientCount) {
		return errors.ErrInsufficientFunds
	}

	if t.IsNative() {
		if recipientCount == 1 && balances.NativeQNT >= totalQNT && balances.NativeQNT < totalQNT+feeQNT {
			return errors.ErrInsufficientFeeMargin
		}
		if balances.NativeQNT < totalQNT+feeQNT*int64(recipientCount) {
			return errors.ErrInsufficientFunds
		}
		return nil
	}

	if balances.NativeQNT < feeQNT*int64(recipientCount) {
		return errors.ErrInsufficientFeeMargin
	}
	if balances.UnitQNT < totalQNT {
		return errors.ErrInsufficientFunds
	}
	return nil
}
