package finance

import (
	"time"

	"github.com/shopspring/decimal"
)

// EVMInput is everything the earned-value calculator needs about a project:
// its plan (budget, planned hours, schedule window) and the current labor
// aggregate. The calculator never touches storage.
type EVMInput struct {
	Budget          decimal.Decimal
	PlannedHours    decimal.Decimal
	PlannedStart    *time.Time
	PlannedEnd      *time.Time
	TotalLaborHours decimal.Decimal
	TotalLaborCost  decimal.Decimal
}

// EVMPoint is one sample of the planned/earned/actual series.
type EVMPoint struct {
	Date time.Time       `json:"date"`
	PV   decimal.Decimal `json:"pv"`
	EV   decimal.Decimal `json:"ev"`
	AC   decimal.Decimal `json:"ac"`
}

// EVMSnapshot is the earned-value picture of a project at one evaluation time.
// SPI and CPI are nil — not zero, not infinity — when their denominator is
// zero; callers must treat nil as "not yet meaningful".
type EVMSnapshot struct {
	AsOf time.Time       `json:"as_of"`
	PV   decimal.Decimal `json:"pv"`
	EV   decimal.Decimal `json:"ev"`
	AC   decimal.Decimal `json:"ac"`
	SV   decimal.Decimal `json:"sv"`
	CV   decimal.Decimal `json:"cv"`
	SPI  *decimal.Decimal `json:"spi,omitempty"`
	CPI  *decimal.Decimal `json:"cpi,omitempty"`
	ETC  decimal.Decimal `json:"etc"`
	EAC  decimal.Decimal `json:"eac"`

	// Series samples one point per day across the planned window up to AsOf.
	// EV and AC in past samples are projected from the current labor
	// aggregate, not reconstructed from history — there is no point-in-time
	// snapshot of actuals to reconstruct from. SeriesApproximate flags this
	// for consumers charting the series.
	Series            []EVMPoint `json:"series"`
	SeriesApproximate bool       `json:"series_approximate"`
}

// ComputeEVM evaluates the standard earned-value metrics for a project as of
// the given date. Pure and reentrant.
func ComputeEVM(in EVMInput, asOf time.Time) EVMSnapshot {
	snap := EVMSnapshot{
		AsOf:              asOf,
		PV:                plannedValue(in, asOf),
		EV:                earnedValue(in),
		AC:                in.TotalLaborCost,
		SeriesApproximate: true,
	}

	snap.SV = snap.EV.Sub(snap.PV)
	snap.CV = snap.EV.Sub(snap.AC)

	if snap.PV.IsPositive() {
		spi := snap.EV.Div(snap.PV)
		snap.SPI = &spi
	}
	if snap.AC.IsPositive() {
		cpi := snap.EV.Div(snap.AC)
		snap.CPI = &cpi
	}

	remaining := in.Budget.Sub(snap.EV)
	if snap.CPI != nil && snap.CPI.IsPositive() {
		snap.ETC = remaining.Div(*snap.CPI)
	} else {
		snap.ETC = remaining
	}
	snap.EAC = snap.AC.Add(snap.ETC)

	snap.Series = buildSeries(in, asOf)
	return snap
}

// plannedValue is the elapsed fraction of the schedule window times budget,
// clamped to [0, budget]. Zero before the window opens or when no window is set.
func plannedValue(in EVMInput, asOf time.Time) decimal.Decimal {
	if in.PlannedStart == nil || in.PlannedEnd == nil {
		return decimal.Zero
	}
	start, end := *in.PlannedStart, *in.PlannedEnd
	if !end.After(start) || asOf.Before(start) {
		return decimal.Zero
	}
	if !asOf.Before(end) {
		return in.Budget
	}

	elapsed := decimal.NewFromInt(int64(asOf.Sub(start) / (24 * time.Hour)))
	window := decimal.NewFromInt(int64(end.Sub(start) / (24 * time.Hour)))
	if !window.IsPositive() {
		return in.Budget
	}
	return elapsed.Div(window).Mul(in.Budget)
}

// earnedValue is the completed fraction of planned hours times budget, capped
// at budget. Zero when no hours were planned.
func earnedValue(in EVMInput) decimal.Decimal {
	if !in.PlannedHours.IsPositive() {
		return decimal.Zero
	}
	fraction := in.TotalLaborHours.Div(in.PlannedHours)
	if fraction.GreaterThan(decimal.NewFromInt(1)) {
		fraction = decimal.NewFromInt(1)
	}
	return fraction.Mul(in.Budget)
}

// buildSeries samples one point per day from plannedStart to min(asOf, plannedEnd).
func buildSeries(in EVMInput, asOf time.Time) []EVMPoint {
	if in.PlannedStart == nil || in.PlannedEnd == nil {
		return nil
	}
	start := *in.PlannedStart
	end := *in.PlannedEnd
	if asOf.Before(end) {
		end = asOf
	}
	if end.Before(start) {
		return nil
	}

	ev := earnedValue(in)
	var series []EVMPoint
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		series = append(series, EVMPoint{
			Date: d,
			PV:   plannedValue(in, d),
			EV:   ev,
			AC:   in.TotalLaborCost,
		})
	}
	return series
}
