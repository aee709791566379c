package finance_test

import (
	"testing"

	"backend/internal/finance"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func line(qty, price int64, taxType finance.ItemTaxType, rate int64) finance.TaxLine {
	return finance.TaxLine{
		Quantity:  decimal.NewFromInt(qty),
		UnitPrice: decimal.NewFromInt(price),
		TaxType:   taxType,
		TaxRate:   decimal.NewFromInt(rate),
	}
}

func TestComputeTotals_SingleTaxableLine(t *testing.T) {
	totals, err := finance.ComputeTotals([]finance.TaxLine{
		line(1, 1_000_000, finance.TaxTypeTaxable, 10),
	}, finance.RoundingRound)
	require.NoError(t, err)

	assert.True(t, totals.Subtotal.Equal(decimal.NewFromInt(1_000_000)), "subtotal = %s", totals.Subtotal)
	assert.True(t, totals.TaxAmount.Equal(decimal.NewFromInt(100_000)), "tax = %s", totals.TaxAmount)
	assert.True(t, totals.TaxAmount10.Equal(decimal.NewFromInt(100_000)))
	assert.True(t, totals.TaxAmount8.IsZero())
	assert.True(t, totals.TotalAmount.Equal(decimal.NewFromInt(1_100_000)), "total = %s", totals.TotalAmount)
}

func TestComputeTotals_TaxIncludedLine(t *testing.T) {
	// 1,100,000 gross at 10% included carries the same tax as 1,000,000 net.
	totals, err := finance.ComputeTotals([]finance.TaxLine{
		line(1, 1_100_000, finance.TaxTypeTaxIncluded, 10),
	}, finance.RoundingRound)
	require.NoError(t, err)

	assert.True(t, totals.Subtotal.Equal(decimal.NewFromInt(1_000_000)), "subtotal = %s", totals.Subtotal)
	assert.True(t, totals.TaxAmount.Equal(decimal.NewFromInt(100_000)), "tax = %s", totals.TaxAmount)
	assert.True(t, totals.TotalAmount.Equal(decimal.NewFromInt(1_100_000)))
}

func TestComputeTotals_NonTaxableLine(t *testing.T) {
	totals, err := finance.ComputeTotals([]finance.TaxLine{
		line(2, 5_000, finance.TaxTypeNonTaxable, 10),
	}, finance.RoundingRound)
	require.NoError(t, err)

	assert.True(t, totals.Subtotal.Equal(decimal.NewFromInt(10_000)))
	assert.True(t, totals.TaxAmount.IsZero())
	assert.True(t, totals.TotalAmount.Equal(decimal.NewFromInt(10_000)))
}

func TestComputeTotals_MixedRateBuckets(t *testing.T) {
	totals, err := finance.ComputeTotals([]finance.TaxLine{
		line(1, 10_000, finance.TaxTypeTaxable, 10),
		line(1, 5_000, finance.TaxTypeTaxable, 8),
		line(1, 3_000, finance.TaxTypeNonTaxable, 10),
	}, finance.RoundingRound)
	require.NoError(t, err)

	assert.True(t, totals.Subtotal.Equal(decimal.NewFromInt(18_000)))
	assert.True(t, totals.TaxAmount10.Equal(decimal.NewFromInt(1_000)))
	assert.True(t, totals.TaxAmount8.Equal(decimal.NewFromInt(400)))
	// The displayed breakdown sums to the displayed total.
	assert.True(t, totals.TaxAmount.Equal(totals.TaxAmount8.Add(totals.TaxAmount10)))
	assert.True(t, totals.TotalAmount.Equal(totals.Subtotal.Add(totals.TaxAmount)))
}

func TestComputeTotals_RoundsPerBucketNotPerLine(t *testing.T) {
	// Three lines of 333 at 10% produce 33.3 tax each. Rounding per line
	// would give 33*3 = 99; rounding the bucket gives round(99.9) = 100.
	lines := []finance.TaxLine{
		line(1, 333, finance.TaxTypeTaxable, 10),
		line(1, 333, finance.TaxTypeTaxable, 10),
		line(1, 333, finance.TaxTypeTaxable, 10),
	}

	totals, err := finance.ComputeTotals(lines, finance.RoundingRound)
	require.NoError(t, err)
	assert.True(t, totals.TaxAmount.Equal(decimal.NewFromInt(100)), "tax = %s", totals.TaxAmount)

	floored, err := finance.ComputeTotals(lines, finance.RoundingFloor)
	require.NoError(t, err)
	assert.True(t, floored.TaxAmount.Equal(decimal.NewFromInt(99)), "tax = %s", floored.TaxAmount)

	ceiled, err := finance.ComputeTotals(lines, finance.RoundingCeil)
	require.NoError(t, err)
	assert.True(t, ceiled.TaxAmount.Equal(decimal.NewFromInt(100)), "tax = %s", ceiled.TaxAmount)
}

func TestComputeTotals_EmptyLines(t *testing.T) {
	totals, err := finance.ComputeTotals(nil, finance.RoundingRound)
	require.NoError(t, err)
	assert.True(t, totals.Subtotal.IsZero())
	assert.True(t, totals.TaxAmount.IsZero())
	assert.True(t, totals.TotalAmount.IsZero())
}

func TestComputeTotals_UnknownTaxType(t *testing.T) {
	_, err := finance.ComputeTotals([]finance.TaxLine{
		line(1, 1_000, finance.ItemTaxType("reduced"), 10),
	}, finance.RoundingRound)
	assert.Error(t, err)
}

func TestComputeTotals_UnknownRounding(t *testing.T) {
	_, err := finance.ComputeTotals(nil, finance.Rounding("bankers"))
	assert.Error(t, err)
}

func TestApplyRounding_Idempotent(t *testing.T) {
	cases := []struct {
		value    string
		rounding finance.Rounding
		want     int64
	}{
		{"10.5", finance.RoundingRound, 11},
		{"10.4", finance.RoundingRound, 10},
		{"10.9", finance.RoundingFloor, 10},
		{"10.1", finance.RoundingCeil, 11},
	}
	for _, tc := range cases {
		d := decimal.RequireFromString(tc.value)
		once := finance.ApplyRounding(d, tc.rounding)
		assert.True(t, once.Equal(decimal.NewFromInt(tc.want)), "%s %s -> %s", tc.rounding, tc.value, once)
		twice := finance.ApplyRounding(once, tc.rounding)
		assert.True(t, twice.Equal(once), "rounding an already rounded value must not move it")
	}
}

func TestItemTaxTypeValid(t *testing.T) {
	assert.True(t, finance.TaxTypeTaxable.Valid())
	assert.True(t, finance.TaxTypeNonTaxable.Valid())
	assert.True(t, finance.TaxTypeTaxIncluded.Valid())
	assert.False(t, finance.ItemTaxType("").Valid())
	assert.False(t, finance.ItemTaxType("exempt").Valid())
}
