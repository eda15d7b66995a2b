package services

import (
	"testing"
	"time"

	"finledger/internal/core"
	"finledger/internal/ledger"
)

func seedAnalytics(t *testing.T) *AnalyticsService {
	t.Helper()
	expenses := ledger.NewStore(core.KindExpense)
	incomes := ledger.NewStore(core.KindIncome)

	food := core.NewCategory("CAT_1", "Food", "", "")
	rent := core.NewCategory("CAT_2", "Housing", "", "")
	work := core.NewCategory("CAT_3", "Work", "", "")

	add := func(s *ledger.Store, op core.Operation) {
		if err := s.Add(op); err != nil {
			t.Fatalf("seed %s: %v", op.ID, err)
		}
	}

	add(expenses, core.NewExpense("EXP_1", "groceries", core.Cents(15000), core.NewDate(2026, 8, 3), "", food, core.ExpenseVariable, ""))
	add(expenses, core.NewExpense("EXP_2", "restaurant", core.Cents(5000), core.NewDate(2026, 8, 14), "", food, core.ExpenseVariable, ""))
	add(expenses, core.NewExpense("EXP_3", "rent", core.Cents(80000), core.NewDate(2026, 8, 1), "", rent, core.ExpenseFixed, ""))
	add(expenses, core.NewExpense("EXP_OLD", "july rent", core.Cents(80000), core.NewDate(2026, 7, 1), "", rent, core.ExpenseFixed, ""))

	add(incomes, core.NewIncome("INC_1", "salary", core.Cents(200000), core.NewDate(2026, 8, 1), "", work, core.SourceSalary, ""))
	add(incomes, core.NewIncome("INC_2", "dividend", core.Cents(10000), core.NewDate(2026, 8, 20), "", work, core.SourceInvestment, ""))

	svc := NewAnalyticsService(expenses, incomes)
	svc.now = func() time.Time { return time.Date(2026, 8, 25, 12, 0, 0, 0, time.UTC) }
	return svc
}

func TestTotals(t *testing.T) {
	svc := seedAnalytics(t)

	if got := svc.TotalExpenses().Cents; got != 180000 {
		t.Fatalf("total expenses: %d", got)
	}
	if got := svc.TotalIncomes().Cents; got != 210000 {
		t.Fatalf("total incomes: %d", got)
	}
	if got := svc.TotalBalance().Cents; got != 30000 {
		t.Fatalf("total balance: %d", got)
	}
}

func TestTotalByCategorySumsMatchGrandTotal(t *testing.T) {
	svc := seedAnalytics(t)

	ranked := svc.TotalByCategory()
	var sum int64
	for _, r := range ranked {
		sum += r.Total.Cents
	}
	if sum != svc.TotalExpenses().Cents {
		t.Fatalf("category totals %d != grand total %d", sum, svc.TotalExpenses().Cents)
	}
	if ranked[0].Name != "Housing" || ranked[0].Total.Cents != 160000 {
		t.Fatalf("top bucket: %+v", ranked[0])
	}
}

func TestTotalByCategoryForPeriod(t *testing.T) {
	svc := seedAnalytics(t)

	start, end := core.MonthWindow(2026, int(time.August))
	ranked, err := svc.TotalByCategoryForPeriod(start, end)
	if err != nil {
		t.Fatalf("period: %v", err)
	}
	// The July rent is excluded; August splits 800.00 housing, 200.00 food.
	if len(ranked) != 2 || ranked[0].Name != "Housing" || ranked[0].Total.Cents != 80000 {
		t.Fatalf("ranked: %+v", ranked)
	}
	if ranked[1].Name != "Food" || ranked[1].Total.Cents != 20000 {
		t.Fatalf("ranked: %+v", ranked)
	}

	if _, err := svc.TotalByCategoryForPeriod(core.Date{}, end); err == nil {
		t.Fatal("expected error for zero start date")
	}
}

func TestTopCategoryAndSource(t *testing.T) {
	svc := seedAnalytics(t)

	top, ok := svc.TopCategory()
	if !ok || top.Name != "Housing" {
		t.Fatalf("top category: %+v ok=%v", top, ok)
	}
	src, ok := svc.TopSource()
	if !ok || src.Name != core.SourceSalary.DisplayName() {
		t.Fatalf("top source: %+v ok=%v", src, ok)
	}

	empty := NewAnalyticsService(ledger.NewStore(core.KindExpense), ledger.NewStore(core.KindIncome))
	if _, ok := empty.TopCategory(); ok {
		t.Fatal("expected no top category on empty stores")
	}
}

func TestMonthlyReportWindowsByDate(t *testing.T) {
	svc := seedAnalytics(t)

	aug, err := svc.MonthlyReport(2026, time.August)
	if err != nil {
		t.Fatalf("august: %v", err)
	}
	// The July rent must not leak into August.
	if aug.Expenses.Cents != 100000 || aug.Incomes.Cents != 210000 {
		t.Fatalf("august stats: %+v", aug)
	}
	if !aug.Positive || aug.Balance.Cents != 110000 {
		t.Fatalf("august balance: %+v", aug)
	}

	jul, err := svc.MonthlyReport(2026, time.July)
	if err != nil {
		t.Fatalf("july: %v", err)
	}
	if jul.Expenses.Cents != 80000 || jul.Incomes.Cents != 0 {
		t.Fatalf("july stats: %+v", jul)
	}
}

func TestHealthThresholds(t *testing.T) {
	cases := []struct {
		name            string
		incomes, spends int64
		want            HealthStatus
	}{
		{"excellent at half", 100000, 50000, HealthExcellent},
		{"stable just above half", 100000, 50001, HealthStable},
		{"stable at seventy", 100000, 70000, HealthStable},
		{"risky above seventy", 100000, 70001, HealthRisky},
		{"risky at ninety", 100000, 90000, HealthRisky},
		{"critical above ninety", 100000, 90001, HealthCritical},
		{"critical when overspent", 100000, 150000, HealthCritical},
		{"critical with no income", 0, 100, HealthCritical},
		{"excellent when empty", 0, 0, HealthExcellent},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			expenses := ledger.NewStore(core.KindExpense)
			incomes := ledger.NewStore(core.KindIncome)
			cat := core.NewCategory("CAT_1", "Misc", "", "")
			if tc.spends > 0 {
				op := core.NewExpense("EXP_1", "spend", core.Cents(tc.spends), core.NewDate(2026, 8, 10), "", cat, core.ExpenseVariable, "")
				if err := expenses.Add(op); err != nil {
					t.Fatalf("seed expense: %v", err)
				}
			}
			if tc.incomes > 0 {
				op := core.NewIncome("INC_1", "earn", core.Cents(tc.incomes), core.NewDate(2026, 8, 10), "", cat, core.SourceSalary, "")
				if err := incomes.Add(op); err != nil {
					t.Fatalf("seed income: %v", err)
				}
			}
			svc := NewAnalyticsService(expenses, incomes)
			svc.now = func() time.Time { return time.Date(2026, 8, 25, 0, 0, 0, 0, time.UTC) }

			got, err := svc.Health()
			if err != nil {
				t.Fatalf("health: %v", err)
			}
			if got != tc.want {
				t.Fatalf("got %s, want %s", got, tc.want)
			}
		})
	}
}

func TestStatisticsWithoutIncome(t *testing.T) {
	expenses := ledger.NewStore(core.KindExpense)
	incomes := ledger.NewStore(core.KindIncome)
	cat := core.NewCategory("CAT_1", "Misc", "", "")
	op := core.NewExpense("EXP_1", "spend", core.Cents(5000), core.NewDate(2026, 8, 10), "", cat, core.ExpenseVariable, "")
	if err := expenses.Add(op); err != nil {
		t.Fatalf("seed expense: %v", err)
	}
	svc := NewAnalyticsService(expenses, incomes)

	stats := svc.Statistics()
	// Zero incomes leave the ratio at 0; the classifier still flags the
	// uncovered spending as critical.
	if stats.ExpenseRatio != 0 {
		t.Fatalf("ratio: %v", stats.ExpenseRatio)
	}
	if stats.Balance.Cents != -5000 || stats.Positive {
		t.Fatalf("stats: %+v", stats)
	}
	if got := svc.HealthOverall(); got != HealthCritical {
		t.Fatalf("health: %s", got)
	}
}

func TestHealthForPeriod(t *testing.T) {
	svc := seedAnalytics(t)

	// July: 800.00 spent, nothing earned.
	start, end := core.MonthWindow(2026, int(time.July))
	got, err := svc.HealthForPeriod(start, end)
	if err != nil {
		t.Fatalf("health: %v", err)
	}
	if got != HealthCritical {
		t.Fatalf("got %s, want %s", got, HealthCritical)
	}
}
