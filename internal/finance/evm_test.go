package finance_test

import (
	"testing"
	"time"

	"backend/internal/finance"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func datePtr(y int, m time.Month, d int) *time.Time {
	t := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	return &t
}

func evmInput() finance.EVMInput {
	return finance.EVMInput{
		Budget:          decimal.NewFromInt(1_000_000),
		PlannedHours:    decimal.NewFromInt(100),
		PlannedStart:    datePtr(2025, 4, 1),
		PlannedEnd:      datePtr(2025, 4, 21), // 20-day window
		TotalLaborHours: decimal.NewFromInt(50),
		TotalLaborCost:  decimal.NewFromInt(400_000),
	}
}

func TestComputeEVM_MidWindow(t *testing.T) {
	asOf := time.Date(2025, 4, 11, 0, 0, 0, 0, time.UTC) // 10 of 20 days elapsed
	snap := finance.ComputeEVM(evmInput(), asOf)

	assert.True(t, snap.PV.Equal(decimal.NewFromInt(500_000)), "pv = %s", snap.PV)
	assert.True(t, snap.EV.Equal(decimal.NewFromInt(500_000)), "ev = %s", snap.EV)
	assert.True(t, snap.AC.Equal(decimal.NewFromInt(400_000)))
	assert.True(t, snap.SV.IsZero())
	assert.True(t, snap.CV.Equal(decimal.NewFromInt(100_000)))

	require.NotNil(t, snap.SPI)
	require.NotNil(t, snap.CPI)
	assert.True(t, snap.SPI.Equal(decimal.NewFromInt(1)), "spi = %s", snap.SPI)
	assert.True(t, snap.CPI.Equal(decimal.RequireFromString("1.25")), "cpi = %s", snap.CPI)

	// ETC = (budget - EV) / CPI = 500,000 / 1.25 = 400,000; EAC = AC + ETC.
	assert.True(t, snap.ETC.Equal(decimal.NewFromInt(400_000)), "etc = %s", snap.ETC)
	assert.True(t, snap.EAC.Equal(decimal.NewFromInt(800_000)), "eac = %s", snap.EAC)
}

func TestComputeEVM_PlannedValueClamps(t *testing.T) {
	in := evmInput()

	before := finance.ComputeEVM(in, time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC))
	assert.True(t, before.PV.IsZero(), "pv before the window must be zero")
	assert.Nil(t, before.SPI, "spi is omitted when pv is zero")

	after := finance.ComputeEVM(in, time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC))
	assert.True(t, after.PV.Equal(in.Budget), "pv after the window caps at budget")
}

func TestComputeEVM_NoScheduleWindow(t *testing.T) {
	in := evmInput()
	in.PlannedStart = nil
	in.PlannedEnd = nil

	snap := finance.ComputeEVM(in, time.Date(2025, 4, 11, 0, 0, 0, 0, time.UTC))
	assert.True(t, snap.PV.IsZero())
	assert.Nil(t, snap.SPI)
	assert.Empty(t, snap.Series)
}

func TestComputeEVM_ZeroPlannedHours(t *testing.T) {
	in := evmInput()
	in.PlannedHours = decimal.Zero

	snap := finance.ComputeEVM(in, time.Date(2025, 4, 11, 0, 0, 0, 0, time.UTC))
	assert.True(t, snap.EV.IsZero(), "no planned hours means no earned value")
	// CPI is still computed from AC, EV/AC = 0.
	require.NotNil(t, snap.CPI)
	assert.True(t, snap.CPI.IsZero())
	// CPI of zero falls back to ETC = budget - EV.
	assert.True(t, snap.ETC.Equal(in.Budget))
}

func TestComputeEVM_EarnedValueCapsAtBudget(t *testing.T) {
	in := evmInput()
	in.TotalLaborHours = decimal.NewFromInt(250) // 2.5x planned

	snap := finance.ComputeEVM(in, time.Date(2025, 4, 11, 0, 0, 0, 0, time.UTC))
	assert.True(t, snap.EV.Equal(in.Budget), "ev caps at budget, got %s", snap.EV)
}

func TestComputeEVM_ZeroActualCost(t *testing.T) {
	in := evmInput()
	in.TotalLaborCost = decimal.Zero
	in.TotalLaborHours = decimal.Zero

	snap := finance.ComputeEVM(in, time.Date(2025, 4, 11, 0, 0, 0, 0, time.UTC))
	assert.Nil(t, snap.CPI, "cpi is omitted when nothing was spent")
	assert.True(t, snap.ETC.Equal(in.Budget))
	assert.True(t, snap.EAC.Equal(in.Budget))
}

func TestComputeEVM_SeriesBounds(t *testing.T) {
	in := evmInput()
	asOf := time.Date(2025, 4, 5, 0, 0, 0, 0, time.UTC)

	snap := finance.ComputeEVM(in, asOf)
	require.NotEmpty(t, snap.Series)
	assert.True(t, snap.SeriesApproximate)

	first := snap.Series[0]
	last := snap.Series[len(snap.Series)-1]
	assert.Equal(t, *in.PlannedStart, first.Date)
	assert.Equal(t, asOf, last.Date)
	assert.Len(t, snap.Series, 5)

	// Projected series: EV and AC are the current aggregate at every point,
	// only PV moves.
	for _, p := range snap.Series {
		assert.True(t, p.EV.Equal(snap.EV))
		assert.True(t, p.AC.Equal(snap.AC))
	}
	assert.True(t, first.PV.LessThanOrEqual(last.PV))
}

func TestComputeEVM_SeriesStopsAtPlannedEnd(t *testing.T) {
	in := evmInput()
	asOf := time.Date(2025, 12, 31, 0, 0, 0, 0, time.UTC)

	snap := finance.ComputeEVM(in, asOf)
	require.NotEmpty(t, snap.Series)
	assert.Equal(t, *in.PlannedEnd, snap.Series[len(snap.Series)-1].Date)
}
