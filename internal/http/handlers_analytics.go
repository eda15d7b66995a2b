package http

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"finledger/internal/core"
)

// cachedJSON serves a dashboard payload from the LRU, computing and
// caching it on a miss.
func (s *Server) cachedJSON(w http.ResponseWriter, key string, compute func() (any, error)) {
	if body, ok := s.dashboardCache.Get(key); ok {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(body)
		return
	}

	v, err := compute()
	if err != nil {
		writeDomainError(w, err)
		return
	}
	body, err := json.Marshal(v)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	s.dashboardCache.Set(key, body)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}

// parseYearMonth reads year/month query parameters, defaulting to the
// current month.
func parseYearMonth(r *http.Request) (int, time.Month) {
	now := time.Now()
	year, month := now.Year(), now.Month()

	if v := strings.TrimSpace(r.URL.Query().Get("year")); v != "" {
		if y, err := strconv.Atoi(v); err == nil {
			year = y
		}
	}
	if v := strings.TrimSpace(r.URL.Query().Get("month")); v != "" {
		if m, err := strconv.Atoi(v); err == nil && m >= 1 && m <= 12 {
			month = time.Month(m)
		}
	}
	return year, month
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	year, month := parseYearMonth(r)
	key := "summary/" + strconv.Itoa(year) + "-" + strconv.Itoa(int(month))
	s.cachedJSON(w, key, func() (any, error) {
		return s.analytics.MonthlyReport(year, month)
	})
}

// handleByCategory breaks expenses down per category. Without year/month
// parameters it covers all time.
func (s *Server) handleByCategory(w http.ResponseWriter, r *http.Request) {
	if !hasWindow(r) {
		s.cachedJSON(w, "by-category", func() (any, error) {
			return s.analytics.TotalByCategory(), nil
		})
		return
	}
	year, month := parseYearMonth(r)
	key := "by-category/" + strconv.Itoa(year) + "-" + strconv.Itoa(int(month))
	s.cachedJSON(w, key, func() (any, error) {
		start, end := core.MonthWindow(year, int(month))
		return s.analytics.TotalByCategoryForPeriod(start, end)
	})
}

// handleBySource breaks incomes down per source, windowed the same way.
func (s *Server) handleBySource(w http.ResponseWriter, r *http.Request) {
	if !hasWindow(r) {
		s.cachedJSON(w, "by-source", func() (any, error) {
			return s.analytics.TotalBySource(), nil
		})
		return
	}
	year, month := parseYearMonth(r)
	key := "by-source/" + strconv.Itoa(year) + "-" + strconv.Itoa(int(month))
	s.cachedJSON(w, key, func() (any, error) {
		start, end := core.MonthWindow(year, int(month))
		return s.analytics.TotalBySourceForPeriod(start, end)
	})
}

func hasWindow(r *http.Request) bool {
	q := r.URL.Query()
	return strings.TrimSpace(q.Get("year")) != "" || strings.TrimSpace(q.Get("month")) != ""
}

type healthResponse struct {
	Status       string  `json:"status"`
	ExpenseRatio float64 `json:"expense_ratio"`
	IncomeCents  int64   `json:"income_cents"`
	ExpenseCents int64   `json:"expense_cents"`
	BalanceCents int64   `json:"balance_cents"`
	Period       string  `json:"period"`
}

func (s *Server) handleFinancialHealth(w http.ResponseWriter, r *http.Request) {
	year, month := parseYearMonth(r)
	key := "health/" + strconv.Itoa(year) + "-" + strconv.Itoa(int(month))
	s.cachedJSON(w, key, func() (any, error) {
		stats, err := s.analytics.MonthlyReport(year, month)
		if err != nil {
			return nil, err
		}
		start, end := core.MonthWindow(year, int(month))
		status, err := s.analytics.HealthForPeriod(start, end)
		if err != nil {
			return nil, err
		}
		return healthResponse{
			Status:       string(status),
			ExpenseRatio: stats.ExpenseRatio,
			IncomeCents:  stats.Incomes.Cents,
			ExpenseCents: stats.Expenses.Cents,
			BalanceCents: stats.Balance.Cents,
			Period:       strconv.Itoa(year) + "-" + month.String(),
		}, nil
	})
}
