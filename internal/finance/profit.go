package finance

import "github.com/shopspring/decimal"

// ProfitBand buckets a gross profit rate for presentation. The thresholds are
// a stable contract: dashboards key their styling off these exact values.
type ProfitBand string

const (
	BandSevereNegative ProfitBand = "severe_negative" // rate < 0%
	BandLow            ProfitBand = "low"             // 0% <= rate < 10%
	BandMedium         ProfitBand = "medium"          // 10% <= rate < 30%
	BandHealthy        ProfitBand = "healthy"         // rate >= 30%
)

var (
	bandLowUpper    = decimal.NewFromInt(10)
	bandMediumUpper = decimal.NewFromInt(30)
)

// GrossProfit is order amount minus all costs attributed to the project.
func GrossProfit(orderAmount, outsourcingCost, serverDomainCost, laborCost decimal.Decimal) decimal.Decimal {
	return orderAmount.Sub(outsourcingCost).Sub(serverDomainCost).Sub(laborCost)
}

// GrossProfitRate is gross profit over order amount as a percentage.
// Zero when the order amount is zero — a prospect with costs but no order is
// reported flat, not as a division error.
func GrossProfitRate(grossProfit, orderAmount decimal.Decimal) decimal.Decimal {
	if orderAmount.IsZero() {
		return decimal.Zero
	}
	return grossProfit.Div(orderAmount).Mul(decimal.NewFromInt(100))
}

// BandFor classifies a gross profit rate (percent).
func BandFor(rate decimal.Decimal) ProfitBand {
	switch {
	case rate.IsNegative():
		return BandSevereNegative
	case rate.LessThan(bandLowUpper):
		return BandLow
	case rate.LessThan(bandMediumUpper):
		return BandMedium
	default:
		return BandHealthy
	}
}
