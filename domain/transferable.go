package domain

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"nxt-tipbot/errors"
)

// Kind discriminates the three unit variants. Dispatch happens on the tag,
// there is no behavioral hierarchy behind it.
type Kind int

const (
	KindNative Kind = iota
	KindAsset
	KindCurrency
)

func (k Kind) String() string {
	switch k {
	case KindNative:
		return "native"
	case KindAsset:
		return "asset"
	case KindCurrency:
		return "currency"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Transferable is a unit of value the bot can move: the native ledger unit,
// or a configured asset or currency. Monikers are alternate names accepted
// wherever the canonical name is. ReceivedTemplate, when set, is sent to a
// recipient on first receipt of the unit; {sender} and {amount} placeholders
// are substituted at send time. Reaction, when set, names the emoji reaction
// that tips one unit of this transferable.
type Transferable struct {
	Kind             Kind
	ID               uint64
	Name             string
	Decimals         uint32
	Monikers         []string
	ReceivedTemplate string
	Reaction         string
}

// Native returns the pre-registered native ledger unit.
func Native() Transferable {
	return Transferable{Kind: KindNative, Name: "NXT", Decimals: 8}
}

func (t Transferable) IsNative() bool {
	return t.Kind == KindNative
}

// BaseUnit returns one whole unit expressed in base (smallest) units.
func (t Transferable) BaseUnit() int64 {
	n := int64(1)
	for i := uint32(0); i < t.Decimals; i++ {
		n *= 10
	}
	return n
}

// ParseAmount converts decimal text into base units at the unit's precision.
// Negative amounts and amounts finer than the precision are rejected.
func (t Transferable) ParseAmount(text string) (int64, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(text))
	if err != nil {
		return 0, fmt.Errorf("%w: %q", errors.ErrInvalidAmount, text)
	}
	if d.IsNegative() {
		return 0, fmt.Errorf("%w: %q is negative", errors.ErrInvalidAmount, text)
	}
	shifted := d.Shift(int32(t.Decimals))
	if !shifted.IsInteger() {
		return 0, fmt.Errorf("%w: %q exceeds %d decimals", errors.ErrInvalidAmount, text, t.Decimals)
	}
	if !shifted.BigInt().IsInt64() {
		return 0, fmt.Errorf("%w: %q does not fit the ledger range", errors.ErrInvalidAmount, text)
	}
	return shifted.IntPart(), nil
}

// FormatAmount renders base units as decimal text, trimming trailing zeros.
func (t Transferable) FormatAmount(baseUnits int64) string {
	return decimal.New(baseUnits, -int32(t.Decimals)).String()
}
