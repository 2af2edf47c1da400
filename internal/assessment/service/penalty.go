package service

import "time"

// penaltyRates are whole-percent rates from system settings.
type penaltyRates struct {
	SurchargePercent int64
	InterestPercent  int64
}

// penaltyResult is the deterministic outcome of the late-fee formula for a
// given (basis, due, now, rates) tuple.
type penaltyResult struct {
	MonthsDelayed   int64
	YearsDelayed    int64
	SurchargeAmount int64
	InterestAmount  int64
}

// computePenalty applies the canonical late-fee formula: surcharge is charged
// once per elapsed fiscal year and interest is simple, linear in months.
// Amounts are centavos; divisions truncate, so results are bit-identical for
// identical inputs. Returns the zero result when the assessment is not late
// or has no renewal basis.
func computePenalty(renewalBasis int64, due, now time.Time, rates penaltyRates) penaltyResult {
	if renewalBasis <= 0 || !now.After(due) {
		return penaltyResult{}
	}

	months := monthsDelayed(due, now)
	years := (months + 11) / 12

	return penaltyResult{
		MonthsDelayed:   months,
		YearsDelayed:    years,
		SurchargeAmount: renewalBasis * rates.SurchargePercent * years / 100,
		InterestAmount:  renewalBasis * rates.InterestPercent * months / 100,
	}
}

// monthsDelayed counts calendar months from due to now, rounding any partial
// month up and flooring at 1: any lateness bills at least one month.
func monthsDelayed(due, now time.Time) int64 {
	months := int64((now.Year()-due.Year())*12 + int(now.Month()) - int(due.Month()))
	if months < 0 {
		months = 0
	}
	// Walk back while the whole-month anchor overshoots now, then round the
	// remaining partial month up.
	for months > 0 && due.AddDate(0, int(months), 0).After(now) {
		months--
	}
	if due.AddDate(0, int(months), 0).Before(now) {
		months++
	}
	if months < 1 {
		months = 1
	}
	return months
}
