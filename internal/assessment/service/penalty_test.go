package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

var defaultRates = penaltyRates{SurchargePercent: 25, InterestPercent: 2}

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestComputePenalty_NotLate(t *testing.T) {
	due := date(2025, time.June, 30)

	assert.Equal(t, penaltyResult{}, computePenalty(100_000, due, due, defaultRates))
	assert.Equal(t, penaltyResult{}, computePenalty(100_000, due, due.Add(-time.Hour), defaultRates))
}

func TestComputePenalty_NoBasis(t *testing.T) {
	due := date(2025, time.June, 30)
	now := date(2025, time.December, 1)

	assert.Equal(t, penaltyResult{}, computePenalty(0, due, now, defaultRates))
	assert.Equal(t, penaltyResult{}, computePenalty(-500, due, now, defaultRates))
}

func TestComputePenalty_PartialMonthRoundsUp(t *testing.T) {
	due := date(2025, time.January, 1)

	// One second late still bills a full month.
	got := computePenalty(100_000, due, due.Add(time.Second), defaultRates)
	assert.Equal(t, int64(1), got.MonthsDelayed)
	assert.Equal(t, int64(1), got.YearsDelayed)
	assert.Equal(t, int64(25_000), got.SurchargeAmount)
	assert.Equal(t, int64(2_000), got.InterestAmount)
}

func TestComputePenalty_ThreeAndAHalfMonths(t *testing.T) {
	due := date(2025, time.January, 1)
	now := date(2025, time.April, 15)

	got := computePenalty(100_000, due, now, defaultRates)
	assert.Equal(t, int64(4), got.MonthsDelayed)
	assert.Equal(t, int64(1), got.YearsDelayed)
	assert.Equal(t, int64(25_000), got.SurchargeAmount)
	assert.Equal(t, int64(8_000), got.InterestAmount)
}

func TestComputePenalty_ExactMonthBoundary(t *testing.T) {
	due := date(2025, time.January, 1)
	now := date(2025, time.March, 1)

	got := computePenalty(100_000, due, now, defaultRates)
	assert.Equal(t, int64(2), got.MonthsDelayed)
}

func TestComputePenalty_SecondYearSurcharge(t *testing.T) {
	due := date(2024, time.January, 1)
	now := date(2025, time.February, 15)

	got := computePenalty(100_000, due, now, defaultRates)
	assert.Equal(t, int64(14), got.MonthsDelayed)
	assert.Equal(t, int64(2), got.YearsDelayed)
	assert.Equal(t, int64(50_000), got.SurchargeAmount)
	assert.Equal(t, int64(28_000), got.InterestAmount)
}

func TestComputePenalty_TruncatingDivision(t *testing.T) {
	// 3 centavos at 25% truncates to 0, never rounds.
	got := computePenalty(3, date(2025, time.January, 1), date(2025, time.February, 2), defaultRates)
	assert.Equal(t, int64(0), got.SurchargeAmount)
	assert.Equal(t, int64(0), got.InterestAmount)
}

func TestMonthsDelayed_EndOfMonthNormalization(t *testing.T) {
	// Jan 31 + 1 month normalizes to Mar 3; a Feb 28 check is still within
	// the first month.
	due := date(2025, time.January, 31)
	assert.Equal(t, int64(1), monthsDelayed(due, date(2025, time.February, 28)))
	assert.Equal(t, int64(2), monthsDelayed(due, date(2025, time.March, 31)))
}

func TestComputePenalty_Deterministic(t *testing.T) {
	due := date(2025, time.January, 1)
	now := date(2025, time.August, 9)
	first := computePenalty(987_654, due, now, defaultRates)
	for i := 0; i < 100; i++ {
		assert.Equal(t, first, computePenalty(987_654, due, now, defaultRates))
	}
}
