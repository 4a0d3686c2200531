// Package billing converts prices on different billing cycles into comparable
// monthly amounts.
package billing

import (
	"github.com/shopspring/decimal"

	"github.com/sells-group/subscan/internal/model"
)

var (
	// WeeksPerMonth is the single weekly-to-monthly factor used everywhere.
	WeeksPerMonth = decimal.RequireFromString("4.33")

	monthsPerQuarter = decimal.NewFromInt(3)
	monthsPerYear    = decimal.NewFromInt(12)
)

// MonthlyEquivalent converts price on the given cycle to a monthly amount.
// Unknown cycles are assumed to be monthly.
func MonthlyEquivalent(price decimal.Decimal, cycle model.BillingCycle) decimal.Decimal {
	switch cycle {
	case model.CycleWeekly:
		return price.Mul(WeeksPerMonth)
	case model.CycleQuarterly:
		return price.Div(monthsPerQuarter)
	case model.CycleYearly:
		return price.Div(monthsPerYear)
	default:
		return price
	}
}

// MonthlyTotal sums the monthly equivalents of the given records.
func MonthlyTotal(records []model.Candidate) decimal.Decimal {
	total := decimal.Zero
	for _, r := range records {
		total = total.Add(MonthlyEquivalent(r.Price, r.Cycle))
	}
	return total
}

// AnnualTotal is the monthly total projected over twelve months.
func AnnualTotal(records []model.Candidate) decimal.Decimal {
	return MonthlyTotal(records).Mul(monthsPerYear)
}
