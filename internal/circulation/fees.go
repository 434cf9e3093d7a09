// internal/circulation/fees.go
package circulation

import (
	"time"

	"github.com/shopspring/decimal"

	"libraloan/internal/clock"
)

// DefaultLoanDays is the loan period used when no expected return date is given.
const DefaultLoanDays = 20

// DefaultRatePerDay is the late fee charged per day.
var DefaultRatePerDay = decimal.New(200, -2)

// FeeSchedule computes late fees at a fixed daily rate.
type FeeSchedule struct {
	RatePerDay decimal.Decimal
}

// DaysLate returns the whole days between expected and at, never negative.
func (f FeeSchedule) DaysLate(expected, at time.Time) int {
	days := clock.DaysBetween(expected, at)
	if days < 0 {
		return 0
	}
	return days
}

// Fine returns daysLate * RatePerDay rounded to cents.
func (f FeeSchedule) Fine(daysLate int) decimal.Decimal {
	if daysLate <= 0 {
		return decimal.Zero
	}
	return f.RatePerDay.Mul(decimal.NewFromInt(int64(daysLate))).Round(2)
}

// Accrued combines DaysLate and Fine.
func (f FeeSchedule) Accrued(expected, at time.Time) (int, decimal.Decimal) {
	days := f.DaysLate(expected, at)
	return days, f.Fine(days)
}

// Policy holds the loan rules the engine enforces.
type Policy struct {
	Fees            FeeSchedule
	DefaultLoanDays int
}

// DefaultPolicy returns the 20-day period and 2.00 per day fee.
func DefaultPolicy() Policy {
	return Policy{
		Fees:            FeeSchedule{RatePerDay: DefaultRatePerDay},
		DefaultLoanDays: DefaultLoanDays,
	}
}
