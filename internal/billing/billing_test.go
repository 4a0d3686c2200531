package billing

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/sells-group/subscan/internal/model"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func assertDecimal(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()
	assert.True(t, dec(want).Equal(got), "want %s, got %s", want, got)
}

func TestMonthlyEquivalent(t *testing.T) {
	tests := []struct {
		name  string
		price string
		cycle model.BillingCycle
		want  string
	}{
		{"weekly", "10", model.CycleWeekly, "43.3"},
		{"monthly", "15.99", model.CycleMonthly, "15.99"},
		{"quarterly", "12", model.CycleQuarterly, "4"},
		{"yearly", "30", model.CycleYearly, "2.5"},
		{"unknown assumes monthly", "9.99", model.CycleUnknown, "9.99"},
		{"zero price", "0", model.CycleYearly, "0"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assertDecimal(t, tt.want, MonthlyEquivalent(dec(tt.price), tt.cycle))
		})
	}
}

func TestMonthlyEquivalent_YearlyRounding(t *testing.T) {
	got := MonthlyEquivalent(dec("99.99"), model.CycleYearly)
	assert.Equal(t, "8.33", got.StringFixed(2))
}

func TestMonthlyTotal(t *testing.T) {
	records := []model.Candidate{
		{Price: dec("10"), Cycle: model.CycleWeekly},
		{Price: dec("15.99"), Cycle: model.CycleMonthly},
		{Price: dec("12"), Cycle: model.CycleQuarterly},
		{Price: dec("120"), Cycle: model.CycleYearly},
	}
	// 43.30 + 15.99 + 4 + 10
	assertDecimal(t, "73.29", MonthlyTotal(records))
	assertDecimal(t, "879.48", AnnualTotal(records))
}

func TestMonthlyTotal_Empty(t *testing.T) {
	assert.True(t, MonthlyTotal(nil).IsZero())
	assert.True(t, AnnualTotal(nil).IsZero())
}

func TestWeeklyFactorIsUniform(t *testing.T) {
	// The same weekly conversion backs both the per-record and aggregate paths.
	r := model.Candidate{Price: dec("5"), Cycle: model.CycleWeekly}
	assertDecimal(t, MonthlyEquivalent(r.Price, r.Cycle).String(), MonthlyTotal([]model.Candidate{r}))
	assertDecimal(t, "21.65", MonthlyTotal([]model.Candidate{r}))
}
