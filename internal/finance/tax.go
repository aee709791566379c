package finance

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// ItemTaxType is the per-line tax treatment. It is a closed set: every place
// that computes totals switches over all three cases and rejects anything else.
type ItemTaxType string

const (
	TaxTypeTaxable     ItemTaxType = "taxable"      // tax added on top of the line amount
	TaxTypeNonTaxable  ItemTaxType = "non_taxable"  // no tax
	TaxTypeTaxIncluded ItemTaxType = "tax_included" // tax extracted from the line amount
)

// Valid reports whether t is one of the three known treatments.
func (t ItemTaxType) Valid() bool {
	switch t {
	case TaxTypeTaxable, TaxTypeNonTaxable, TaxTypeTaxIncluded:
		return true
	}
	return false
}

// Rounding is the document-level policy applied once to the tax amount.
type Rounding string

const (
	RoundingRound Rounding = "round" // nearest yen, half-up
	RoundingFloor Rounding = "floor" // truncate
	RoundingCeil  Rounding = "ceil"  // up to the next yen
)

// Valid reports whether r is a known rounding policy.
func (r Rounding) Valid() bool {
	switch r {
	case RoundingRound, RoundingFloor, RoundingCeil:
		return true
	}
	return false
}

// TaxLine is one document line as the calculator sees it. Quantity and
// UnitPrice are assumed non-negative; validation happens upstream.
type TaxLine struct {
	Quantity  decimal.Decimal
	UnitPrice decimal.Decimal
	TaxType   ItemTaxType
	TaxRate   decimal.Decimal // percent, e.g. 10
}

// Amount is the raw line amount (quantity × unit price) before any tax handling.
func (l TaxLine) Amount() decimal.Decimal {
	return l.Quantity.Mul(l.UnitPrice)
}

// Totals is the derived five-field output persisted on a financial document.
// Invariants: TotalAmount = Subtotal + TaxAmount, and TaxAmount is the sum of
// the per-rate buckets (TaxAmount8 + TaxAmount10 when only 8%/10% are used).
type Totals struct {
	Subtotal    decimal.Decimal `json:"subtotal"`
	TaxAmount   decimal.Decimal `json:"tax_amount"`
	TaxAmount8  decimal.Decimal `json:"tax_amount_8"`
	TaxAmount10 decimal.Decimal `json:"tax_amount_10"`
	TotalAmount decimal.Decimal `json:"total_amount"`
}

var (
	hundred = decimal.NewFromInt(100)
	rate8   = decimal.NewFromInt(8)
	rate10  = decimal.NewFromInt(10)
)

// ComputeTotals derives subtotal, per-rate tax buckets and total for a set of
// document lines.
//
// Tax is accumulated unrounded per rate bucket and rounded exactly once at the
// end, one rounding per bucket rather than per line, so a long document cannot
// drift by accumulated rounding error. The bucket sum is the authoritative
// TaxAmount: displayed breakdowns always sum to the displayed total.
func ComputeTotals(lines []TaxLine, rounding Rounding) (Totals, error) {
	if !rounding.Valid() {
		return Totals{}, fmt.Errorf("unknown rounding policy %q", rounding)
	}

	subtotal := decimal.Zero
	buckets := map[string]decimal.Decimal{} // rate string -> unrounded tax sum

	for i, line := range lines {
		amount := line.Amount()

		switch line.TaxType {
		case TaxTypeTaxable:
			subtotal = subtotal.Add(amount)
			tax := amount.Mul(line.TaxRate).Div(hundred)
			key := line.TaxRate.String()
			buckets[key] = buckets[key].Add(tax)

		case TaxTypeTaxIncluded:
			// Extract the tax portion from the gross amount: tax = amount × r / (100 + r)
			tax := amount.Mul(line.TaxRate).Div(hundred.Add(line.TaxRate))
			subtotal = subtotal.Add(amount.Sub(tax))
			key := line.TaxRate.String()
			buckets[key] = buckets[key].Add(tax)

		case TaxTypeNonTaxable:
			subtotal = subtotal.Add(amount)

		default:
			return Totals{}, fmt.Errorf("line %d: unknown tax type %q", i, line.TaxType)
		}
	}

	totals := Totals{
		Subtotal:    subtotal,
		TaxAmount:   decimal.Zero,
		TaxAmount8:  decimal.Zero,
		TaxAmount10: decimal.Zero,
	}

	for key, sum := range buckets {
		rounded := ApplyRounding(sum, rounding)
		totals.TaxAmount = totals.TaxAmount.Add(rounded)

		rate, err := decimal.NewFromString(key)
		if err != nil {
			return Totals{}, fmt.Errorf("invalid tax rate %q: %w", key, err)
		}
		switch {
		case rate.Equal(rate8):
			totals.TaxAmount8 = totals.TaxAmount8.Add(rounded)
		case rate.Equal(rate10):
			totals.TaxAmount10 = totals.TaxAmount10.Add(rounded)
		}
		// Other rates stay in TaxAmount only; 8% and 10% get regulatory
		// display buckets of their own.
	}

	totals.TotalAmount = totals.Subtotal.Add(totals.TaxAmount)
	return totals, nil
}

// ApplyRounding rounds d to whole yen under the given policy. Rounding an
// already-rounded value is a no-op.
func ApplyRounding(d decimal.Decimal, rounding Rounding) decimal.Decimal {
	switch rounding {
	case RoundingFloor:
		return d.Floor()
	case RoundingCeil:
		return d.Ceil()
	default:
		// Half-up. Amounts here are non-negative, so half away from zero
		// and half-up coincide.
		return d.Round(0)
	}
}
