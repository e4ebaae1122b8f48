package pricing

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func dec(s string) decimal.Decimal {
	d, _ := decimal.NewFromString(s)
	return d
}

func TestCompute_SingleLineWithTaxAndFlatDiscount(t *testing.T) {
	// price=100, tax=18%, qty=2 -> subtotal=200, tax=36, lineTotal=236;
	// flat discount 36 -> final 200.
	result, err := Compute(
		[]LineInput{{UnitPrice: dec("100"), TaxRate: dec("18"), Quantity: 2}},
		Discount{Kind: DiscountFlat, Value: dec("36")},
	)
	assert.NoError(t, err)
	assert.True(t, dec("200").Equal(result.Lines[0].Subtotal), "subtotal %s", result.Lines[0].Subtotal)
	assert.True(t, dec("36").Equal(result.Lines[0].TaxAmount), "tax %s", result.Lines[0].TaxAmount)
	assert.True(t, dec("236").Equal(result.Lines[0].LineTotal), "line total %s", result.Lines[0].LineTotal)
	assert.True(t, dec("236").Equal(result.GrossTotal), "gross %s", result.GrossTotal)
	assert.True(t, dec("200").Equal(result.FinalTotal), "final %s", result.FinalTotal)
}

func TestCompute_RoundsHalfUpEachStep(t *testing.T) {
	// 3 * 33.335 = 100.005 -> 100.01 after the subtotal rounding step.
	result, err := Compute(
		[]LineInput{{UnitPrice: dec("33.335"), TaxRate: dec("0"), Quantity: 3}},
		Discount{},
	)
	assert.NoError(t, err)
	assert.True(t, dec("100.01").Equal(result.Lines[0].Subtotal), "subtotal %s", result.Lines[0].Subtotal)
	assert.True(t, dec("100.01").Equal(result.FinalTotal), "final %s", result.FinalTotal)
}

func TestCompute_PercentageDiscount(t *testing.T) {
	result, err := Compute(
		[]LineInput{{UnitPrice: dec("50"), TaxRate: dec("10"), Quantity: 4}},
		Discount{Kind: DiscountPercentage, Value: dec("25")},
	)
	assert.NoError(t, err)
	// 4*50=200, tax=20, gross=220, minus 25% = 165.
	assert.True(t, dec("220").Equal(result.GrossTotal), "gross %s", result.GrossTotal)
	assert.True(t, dec("165").Equal(result.FinalTotal), "final %s", result.FinalTotal)
}

func TestCompute_InvalidDiscounts(t *testing.T) {
	lines := []LineInput{{UnitPrice: dec("10"), TaxRate: dec("0"), Quantity: 1}}

	cases := []struct {
		name     string
		discount Discount
	}{
		{"percentage over 100", Discount{Kind: DiscountPercentage, Value: dec("110")}},
		{"negative percentage", Discount{Kind: DiscountPercentage, Value: dec("-5")}},
		{"flat over gross", Discount{Kind: DiscountFlat, Value: dec("10.01")}},
		{"negative flat", Discount{Kind: DiscountFlat, Value: dec("-1")}},
		{"unknown kind", Discount{Kind: DiscountKind("coupon"), Value: dec("5")}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Compute(lines, tc.discount)
			assert.ErrorIs(t, err, ErrInvalidDiscount)
		})
	}
}

func TestCompute_ZeroOrAbsentDiscountIsNoop(t *testing.T) {
	lines := []LineInput{{UnitPrice: dec("10"), TaxRate: dec("0"), Quantity: 1}}

	noDiscount, err := Compute(lines, Discount{})
	assert.NoError(t, err)

	zeroFlat, err := Compute(lines, Discount{Kind: DiscountFlat, Value: decimal.Zero})
	assert.NoError(t, err)

	assert.True(t, noDiscount.FinalTotal.Equal(zeroFlat.FinalTotal))
	assert.True(t, dec("10").Equal(noDiscount.FinalTotal))
}

func TestCompute_FullFlatDiscountClampsAtZero(t *testing.T) {
	result, err := Compute(
		[]LineInput{{UnitPrice: dec("10"), TaxRate: dec("0"), Quantity: 1}},
		Discount{Kind: DiscountFlat, Value: dec("10")},
	)
	assert.NoError(t, err)
	assert.True(t, result.FinalTotal.IsZero())
}

func TestCompute_Deterministic(t *testing.T) {
	lines := []LineInput{
		{UnitPrice: dec("19.99"), TaxRate: dec("18"), Quantity: 3},
		{UnitPrice: dec("4.55"), TaxRate: dec("5"), Quantity: 7},
		{UnitPrice: dec("1200"), TaxRate: dec("28"), Quantity: 1},
	}
	discount := Discount{Kind: DiscountPercentage, Value: dec("12.5")}

	first, err := Compute(lines, discount)
	assert.NoError(t, err)
	second, err := Compute(lines, discount)
	assert.NoError(t, err)

	assert.Equal(t, first.FinalTotal.String(), second.FinalTotal.String())
	assert.Equal(t, first.GrossTotal.String(), second.GrossTotal.String())
	for i := range first.Lines {
		assert.Equal(t, first.Lines[i].LineTotal.String(), second.Lines[i].LineTotal.String())
	}
}
