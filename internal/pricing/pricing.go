// Package pricing computes invoice totals. It is pure: no I/O, no clock, no
// hidden state, so identical input always produces identical output.
//
// All money passes through shopspring decimals and is rounded half-up to two
// places after every arithmetic step, which keeps line totals reproducible
// regardless of how many lines an invoice carries.
package pricing

import (
	"errors"

	"github.com/shopspring/decimal"
)

// ErrInvalidDiscount reports a discount outside its legal range: a
// percentage not in [0,100] or a flat amount exceeding the gross total.
var ErrInvalidDiscount = errors.New("invalid_discount")

// DiscountKind selects how Discount.Value is applied.
type DiscountKind string

const (
	DiscountNone       DiscountKind = ""
	DiscountFlat       DiscountKind = "flat"
	DiscountPercentage DiscountKind = "percentage"
)

// Discount is an absolute or proportional deduction from the gross total.
type Discount struct {
	Kind  DiscountKind
	Value decimal.Decimal
}

// LineInput is one priced line: unit price, tax rate percent and quantity.
type LineInput struct {
	UnitPrice decimal.Decimal
	TaxRate   decimal.Decimal
	Quantity  int64
}

// LineTotal is the rounded breakdown for one line.
type LineTotal struct {
	Subtotal  decimal.Decimal
	TaxAmount decimal.Decimal
	LineTotal decimal.Decimal
}

// Result is the full computation output.
type Result struct {
	Lines      []LineTotal
	GrossTotal decimal.Decimal
	FinalTotal decimal.Decimal
}

var (
	hundred = decimal.NewFromInt(100)
)

func round2(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

// Compute prices the given lines and applies the discount.
//
// Per line: subtotal = round2(unitPrice * qty), tax = round2(subtotal *
// rate/100), lineTotal = round2(subtotal + tax). The gross total is the sum
// of line totals; the discount is validated and applied last, and the final
// total is clamped at zero.
func Compute(lines []LineInput, discount Discount) (Result, error) {
	result := Result{Lines: make([]LineTotal, 0, len(lines))}

	gross := decimal.Zero
	for _, line := range lines {
		qty := decimal.NewFromInt(line.Quantity)
		subtotal := round2(line.UnitPrice.Mul(qty))
		tax := round2(subtotal.Mul(line.TaxRate.Div(hundred)))
		total := round2(subtotal.Add(tax))

		result.Lines = append(result.Lines, LineTotal{
			Subtotal:  subtotal,
			TaxAmount: tax,
			LineTotal: total,
		})
		gross = gross.Add(total)
	}
	result.GrossTotal = round2(gross)

	final, err := applyDiscount(result.GrossTotal, discount)
	if err != nil {
		return Result{}, err
	}

	if final.IsNegative() {
		final = decimal.Zero
	}
	result.FinalTotal = round2(final)
	return result, nil
}

func applyDiscount(gross decimal.Decimal, discount Discount) (decimal.Decimal, error) {
	value := round2(discount.Value)
	if value.IsZero() || discount.Kind == DiscountNone {
		if value.IsNegative() {
			return decimal.Decimal{}, ErrInvalidDiscount
		}
		return gross, nil
	}

	switch discount.Kind {
	case DiscountPercentage:
		if value.IsNegative() || value.GreaterThan(hundred) {
			return decimal.Decimal{}, ErrInvalidDiscount
		}
		return gross.Sub(gross.Mul(value.Div(hundred))), nil
	case DiscountFlat:
		if value.IsNegative() || value.GreaterThan(gross) {
			return decimal.Decimal{}, ErrInvalidDiscount
		}
		return gross.Sub(value), nil
	default:
		return decimal.Decimal{}, ErrInvalidDiscount
	}
}
