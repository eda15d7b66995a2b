package services

import (
	"sort"
	"time"

	"finledger/internal/core"
	"finledger/internal/ledger"
)

// HealthStatus classifies spending pressure against income.
type HealthStatus string

const (
	HealthExcellent HealthStatus = "excellent"
	HealthStable    HealthStatus = "stable"
	HealthRisky     HealthStatus = "risky"
	HealthCritical  HealthStatus = "critical"
)

// Statistics is the aggregate view over a set of operations. Amounts are
// magnitudes: Expenses is positive even though the underlying records are
// negative.
type Statistics struct {
	Incomes      core.Money `json:"incomes_cents"`
	Expenses     core.Money `json:"expenses_cents"`
	Balance      core.Money `json:"balance_cents"`
	ExpenseRatio float64    `json:"expense_ratio"`
	Positive     bool       `json:"positive"`
}

// RankedTotal is one bucket of an aggregation, used for category and
// source breakdowns.
type RankedTotal struct {
	Name  string     `json:"name"`
	Total core.Money `json:"total_cents"`
}

// AnalyticsService answers read-only aggregate queries over both stores.
// It holds no state of its own; every call recomputes from snapshots.
type AnalyticsService struct {
	expenses *ledger.Store
	incomes  *ledger.Store
	now      func() time.Time
}

func NewAnalyticsService(expenses, incomes *ledger.Store) *AnalyticsService {
	return &AnalyticsService{
		expenses: expenses,
		incomes:  incomes,
		now:      time.Now,
	}
}

// TotalExpenses returns the summed magnitude of every expense.
func (a *AnalyticsService) TotalExpenses() core.Money {
	return sumAbs(a.expenses.FindAll())
}

// TotalIncomes returns the summed magnitude of every income.
func (a *AnalyticsService) TotalIncomes() core.Money {
	return sumAbs(a.incomes.FindAll())
}

// TotalBalance returns the signed sum over both stores: incomes minus
// expenses.
func (a *AnalyticsService) TotalBalance() core.Money {
	total := sumSigned(a.incomes.FindAll())
	return total.Add(sumSigned(a.expenses.FindAll()))
}

// TotalByCategory sums expense magnitudes per category name, sorted by
// descending total.
func (a *AnalyticsService) TotalByCategory() []RankedTotal {
	totals := make(map[string]core.Money)
	for _, op := range a.expenses.FindAll() {
		name := op.Category.Name
		totals[name] = totals[name].Add(op.AbsoluteAmount())
	}
	return rank(totals)
}

// TotalBySource sums income magnitudes per source, sorted by descending
// total.
func (a *AnalyticsService) TotalBySource() []RankedTotal {
	totals := make(map[string]core.Money)
	for _, op := range a.incomes.FindAll() {
		name := op.IncomeSource.DisplayName()
		totals[name] = totals[name].Add(op.AbsoluteAmount())
	}
	return rank(totals)
}

// TotalByCategoryForPeriod is TotalByCategory restricted to [start, end].
func (a *AnalyticsService) TotalByCategoryForPeriod(start, end core.Date) ([]RankedTotal, error) {
	ops, err := a.expenses.FindByDateRange(start, end)
	if err != nil {
		return nil, err
	}
	totals := make(map[string]core.Money)
	for _, op := range ops {
		name := op.Category.Name
		totals[name] = totals[name].Add(op.AbsoluteAmount())
	}
	return rank(totals), nil
}

// TotalBySourceForPeriod is TotalBySource restricted to [start, end].
func (a *AnalyticsService) TotalBySourceForPeriod(start, end core.Date) ([]RankedTotal, error) {
	ops, err := a.incomes.FindByDateRange(start, end)
	if err != nil {
		return nil, err
	}
	totals := make(map[string]core.Money)
	for _, op := range ops {
		name := op.IncomeSource.DisplayName()
		totals[name] = totals[name].Add(op.AbsoluteAmount())
	}
	return rank(totals), nil
}

// TopCategory returns the expense category with the largest total, or
// false when no expenses exist.
func (a *AnalyticsService) TopCategory() (RankedTotal, bool) {
	return first(a.TotalByCategory())
}

// TopSource returns the income source with the largest total, or false
// when no incomes exist.
func (a *AnalyticsService) TopSource() (RankedTotal, bool) {
	return first(a.TotalBySource())
}

// Statistics computes the aggregate view over every stored operation.
func (a *AnalyticsService) Statistics() Statistics {
	return buildStatistics(a.expenses.FindAll(), a.incomes.FindAll())
}

// StatisticsForPeriod computes the aggregate view over [start, end].
func (a *AnalyticsService) StatisticsForPeriod(start, end core.Date) (Statistics, error) {
	expenses, err := a.expenses.FindByDateRange(start, end)
	if err != nil {
		return Statistics{}, err
	}
	incomes, err := a.incomes.FindByDateRange(start, end)
	if err != nil {
		return Statistics{}, err
	}
	return buildStatistics(expenses, incomes), nil
}

// MonthlyReport computes statistics for one calendar month.
func (a *AnalyticsService) MonthlyReport(year int, month time.Month) (Statistics, error) {
	start, end := core.MonthWindow(year, int(month))
	return a.StatisticsForPeriod(start, end)
}

// Health classifies the current calendar month.
func (a *AnalyticsService) Health() (HealthStatus, error) {
	now := a.now()
	stats, err := a.MonthlyReport(now.Year(), now.Month())
	if err != nil {
		return "", err
	}
	return classifyHealth(stats), nil
}

// HealthForPeriod classifies spending over [start, end].
func (a *AnalyticsService) HealthForPeriod(start, end core.Date) (HealthStatus, error) {
	stats, err := a.StatisticsForPeriod(start, end)
	if err != nil {
		return "", err
	}
	return classifyHealth(stats), nil
}

// HealthOverall classifies all stored operations regardless of date.
func (a *AnalyticsService) HealthOverall() HealthStatus {
	return classifyHealth(a.Statistics())
}

func buildStatistics(expenses, incomes []core.Operation) Statistics {
	expTotal := sumAbs(expenses)
	incTotal := sumAbs(incomes)
	balance := incTotal.Sub(expTotal)

	// The ratio is 0 without income to measure against; the classifier
	// handles that case on its own.
	var ratio float64
	if incTotal.Cents > 0 {
		ratio = float64(expTotal.Cents) / float64(incTotal.Cents) * 100
	}

	return Statistics{
		Incomes:      incTotal,
		Expenses:     expTotal,
		Balance:      balance,
		ExpenseRatio: ratio,
		Positive:     balance.Cents >= 0,
	}
}

// classifyHealth maps the expense ratio to a status. Spending without any
// income is always critical; an empty period is excellent.
func classifyHealth(stats Statistics) HealthStatus {
	if stats.Incomes.IsZero() {
		if stats.Expenses.Cents > 0 {
			return HealthCritical
		}
		return HealthExcellent
	}
	switch {
	case stats.ExpenseRatio > 90:
		return HealthCritical
	case stats.ExpenseRatio > 70:
		return HealthRisky
	case stats.ExpenseRatio > 50:
		return HealthStable
	default:
		return HealthExcellent
	}
}

func sumAbs(ops []core.Operation) core.Money {
	var total core.Money
	for _, op := range ops {
		total = total.Add(op.AbsoluteAmount())
	}
	return total
}

func sumSigned(ops []core.Operation) core.Money {
	var total core.Money
	for _, op := range ops {
		total = total.Add(op.Amount)
	}
	return total
}

func rank(totals map[string]core.Money) []RankedTotal {
	ranked := make([]RankedTotal, 0, len(totals))
	for name, total := range totals {
		ranked = append(ranked, RankedTotal{Name: name, Total: total})
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].Total.Cents != ranked[j].Total.Cents {
			return ranked[i].Total.Cents > ranked[j].Total.Cents
		}
		return ranked[i].Name < ranked[j].Name
	})
	return ranked
}

func first(ranked []RankedTotal) (RankedTotal, bool) {
	if len(ranked) == 0 {
		return RankedTotal{}, false
	}
	return ranked[0], true
}
