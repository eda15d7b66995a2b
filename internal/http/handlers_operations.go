package http

import (
	"fmt"
	"net/http"
	"sort"
	"strings"

	"finledger/internal/core"
	"finledger/internal/ident"
	"finledger/internal/services"
)

type operationRequest struct {
	Name         string `json:"name"`
	Amount       string `json:"amount"`
	Date         string `json:"date"`
	Description  string `json:"description"`
	Category     string `json:"category"`
	CreditCardID string `json:"credit_card_id"`
	ExpenseType  string `json:"expense_type"`
	IncomeSource string `json:"income_source"`
}

// parseCommon validates the fields shared by expenses and incomes.
func (s *Server) parseCommon(req operationRequest) (core.Money, core.Date, core.Category, error) {
	cents, err := core.ParseDecimalToCents(strings.TrimSpace(req.Amount))
	if err != nil {
		return core.Money{}, core.Date{}, core.Category{}, err
	}
	amount := core.Cents(cents)
	date, err := core.ParseDate(strings.TrimSpace(req.Date))
	if err != nil {
		return core.Money{}, core.Date{}, core.Category{}, err
	}
	category, ok := s.categories.Resolve(sanitizeInput(req.Category))
	if !ok {
		return core.Money{}, core.Date{}, core.Category{}, fmt.Errorf("category %q: %w", req.Category, services.ErrCategoryNotFound)
	}
	return amount, date, category, nil
}

func (s *Server) buildExpense(id string, req operationRequest) (core.Operation, error) {
	amount, date, category, err := s.parseCommon(req)
	if err != nil {
		return core.Operation{}, err
	}
	op := core.NewExpense(id, sanitizeInput(req.Name), amount, date, sanitizeInput(req.Description),
		category, core.ExpenseType(req.ExpenseType), sanitizeInput(req.CreditCardID))
	return op, op.Validate()
}

func (s *Server) buildIncome(id string, req operationRequest) (core.Operation, error) {
	amount, date, category, err := s.parseCommon(req)
	if err != nil {
		return core.Operation{}, err
	}
	op := core.NewIncome(id, sanitizeInput(req.Name), amount, date, sanitizeInput(req.Description),
		category, core.IncomeSource(req.IncomeSource), sanitizeInput(req.CreditCardID))
	return op, op.Validate()
}

func (s *Server) handleCreateExpense(w http.ResponseWriter, r *http.Request) {
	var req operationRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	op, err := s.buildExpense(ident.New(ident.PrefixExpense), req)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if err := s.expenses.Create(r.Context(), op); err != nil {
		writeDomainError(w, err)
		return
	}
	s.dashboardCache.Purge()
	writeJSON(w, http.StatusCreated, op)
}

func (s *Server) handleCreateIncome(w http.ResponseWriter, r *http.Request) {
	var req operationRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	op, err := s.buildIncome(ident.New(ident.PrefixIncome), req)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if err := s.incomes.Create(r.Context(), op); err != nil {
		writeDomainError(w, err)
		return
	}
	s.dashboardCache.Purge()
	writeJSON(w, http.StatusCreated, op)
}

func (s *Server) handleUpdateExpense(w http.ResponseWriter, r *http.Request) {
	s.updateOperation(w, r, s.expenses, s.buildExpense)
}

func (s *Server) handleUpdateIncome(w http.ResponseWriter, r *http.Request) {
	s.updateOperation(w, r, s.incomes, s.buildIncome)
}

func (s *Server) updateOperation(w http.ResponseWriter, r *http.Request, svc *services.OperationService, build func(string, operationRequest) (core.Operation, error)) {
	id := r.PathValue("id")
	var req operationRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	op, err := build(id, req)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if err := svc.Update(r.Context(), op); err != nil {
		writeDomainError(w, err)
		return
	}
	s.dashboardCache.Purge()
	writeJSON(w, http.StatusOK, op)
}

func (s *Server) handleDeleteExpense(w http.ResponseWriter, r *http.Request) {
	s.deleteOperation(w, r, s.expenses)
}

func (s *Server) handleDeleteIncome(w http.ResponseWriter, r *http.Request) {
	s.deleteOperation(w, r, s.incomes)
}

func (s *Server) deleteOperation(w http.ResponseWriter, r *http.Request, svc *services.OperationService) {
	if err := svc.Delete(r.Context(), r.PathValue("id")); err != nil {
		writeDomainError(w, err)
		return
	}
	s.dashboardCache.Purge()
	w.WriteHeader(http.StatusNoContent)
}

// handleListOperations returns expenses and incomes together, newest
// first. Optional from/to query parameters filter by date.
func (s *Server) handleListOperations(w http.ResponseWriter, r *http.Request) {
	fromStr := strings.TrimSpace(r.URL.Query().Get("from"))
	toStr := strings.TrimSpace(r.URL.Query().Get("to"))

	var ops []core.Operation
	if fromStr != "" || toStr != "" {
		if fromStr == "" || toStr == "" {
			writeError(w, http.StatusBadRequest, "both from and to are required for a date range")
			return
		}
		from, err := core.ParseDate(fromStr)
		if err != nil {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid from date: %v", err))
			return
		}
		to, err := core.ParseDate(toStr)
		if err != nil {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid to date: %v", err))
			return
		}

		expenses, err := s.expenses.ListByDateRange(from, to)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		incomes, err := s.incomes.ListByDateRange(from, to)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		ops = append(expenses, incomes...)
	} else {
		ops = append(s.expenses.List(), s.incomes.List()...)
	}

	sort.SliceStable(ops, func(i, j int) bool {
		return ops[i].Date.After(ops[j].Date.Time)
	})
	writeJSON(w, http.StatusOK, ops)
}
