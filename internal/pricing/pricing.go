// Package pricing computes order totals from line subtotals and discount/surcharge
// adjustments, and parses the user-entered numbers those computations consume.
// It has no storage dependencies.
package pricing

import "github.com/shopspring/decimal"

// Scale is the number of decimal places kept for every parsed or computed amount.
const Scale = 6

var (
	// Epsilon is the tolerance used for balance comparisons.
	Epsilon = decimal.New(1, -Scale)

	hundred = decimal.NewFromInt(100)
)

// Adjustment is one side (discount or surcharge) of an order's pricing rules.
// After an edit at most one of Fixed and Percent is non-zero.
type Adjustment struct {
	Fixed   decimal.Decimal
	Percent decimal.Decimal
}

// IsZero reports whether the adjustment has no effect.
func (a Adjustment) IsZero() bool {
	return a.Fixed.IsZero() && a.Percent.IsZero()
}

// Breakdown is the full result of a total computation.
type Breakdown struct {
	ItemsTotal       decimal.Decimal
	FixedDiscount    decimal.Decimal
	PercentDiscount  decimal.Decimal
	FixedSurcharge   decimal.Decimal
	PercentSurcharge decimal.Decimal
	GrandTotal       decimal.Decimal
}

// Compute evaluates the pricing rules. Percent amounts are taken from the items total only,
// never compounded with each other or with the fixed amounts.
func Compute(subtotals []decimal.Decimal, discount, surcharge Adjustment) Breakdown {
	itemsTotal := decimal.Sum(decimal.Zero, subtotals...)

	b := Breakdown{
		ItemsTotal:       itemsTotal,
		FixedDiscount:    nonNegative(discount.Fixed),
		PercentDiscount:  percentOf(itemsTotal, discount.Percent),
		FixedSurcharge:   nonNegative(surcharge.Fixed),
		PercentSurcharge: percentOf(itemsTotal, surcharge.Percent),
	}

	total := itemsTotal.
		Sub(b.PercentDiscount).
		Sub(b.FixedDiscount).
		Add(b.FixedSurcharge).
		Add(b.PercentSurcharge)
	b.GrandTotal = nonNegative(total)

	return b
}

// ComputeTotal returns only the grand total of Compute.
func ComputeTotal(subtotals []decimal.Decimal, discount, surcharge Adjustment) decimal.Decimal {
	return Compute(subtotals, discount, surcharge).GrandTotal
}

// Subtotal returns quantity × unit price.
func Subtotal(quantity int, unitPrice decimal.Decimal) decimal.Decimal {
	return unitPrice.Mul(decimal.NewFromInt(int64(quantity))).Round(Scale)
}

// Remaining is total minus paid, floored at zero.
func Remaining(total, paid decimal.Decimal) decimal.Decimal {
	return nonNegative(total.Sub(paid))
}

// IsSettled reports whether a remaining balance counts as paid off.
func IsSettled(remaining decimal.Decimal) bool {
	return remaining.LessThanOrEqual(Epsilon)
}

// Exceeds reports whether amount is over limit by at least Epsilon.
func Exceeds(amount, limit decimal.Decimal) bool {
	return amount.Sub(limit).GreaterThanOrEqual(Epsilon)
}

func percentOf(base, percent decimal.Decimal) decimal.Decimal {
	p := ClampPercent(percent)
	if !p.IsPositive() {
		return decimal.Zero
	}
	return base.Mul(p).Div(hundred).Round(Scale)
}

// ClampPercent limits a percentage to [0, 100].
func ClampPercent(p decimal.Decimal) decimal.Decimal {
	if p.IsNegative() {
		return decimal.Zero
	}
	if p.GreaterThan(hundred) {
		return hundred
	}
	return p
}

func nonNegative(d decimal.Decimal) decimal.Decimal {
	if d.IsNegative() {
		return decimal.Zero
	}
	return d
}
