// Package ledger implements the in-memory operation store: a keyed,
// internally synchronized collection of financial operations of one kind.
// Two stores exist in a running system, one for expenses and one for
// incomes; both are safe for concurrent use without external locking.
package ledger

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"finledger/internal/core"
)

var (
	ErrDuplicateKey = errors.New("operation id already exists")
	ErrNotFound     = errors.New("operation not found")
	ErrKindMismatch = errors.New("operation kind does not match store")
)

// Store owns the lifetime of its operation records. Category and card
// fields on stored operations are references by id only; deleting a
// category or card elsewhere never cascades here.
type Store struct {
	mu   sync.RWMutex
	kind core.OperationKind
	ops  map[string]core.Operation
}

func NewStore(kind core.OperationKind) *Store {
	return &Store{
		kind: kind,
		ops:  make(map[string]core.Operation),
	}
}

// Kind returns the operation kind this store accepts.
func (s *Store) Kind() core.OperationKind {
	return s.kind
}

// Add inserts a new operation. It fails with ErrDuplicateKey when the id
// is already present and with a validation error when the operation does
// not satisfy its variant's validity rules.
func (s *Store) Add(op core.Operation) error {
	if err := op.Validate(); err != nil {
		return fmt.Errorf("validate operation: %w", err)
	}
	if op.Kind != s.kind {
		return fmt.Errorf("add %s to %s store: %w", op.Kind, s.kind, ErrKindMismatch)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.ops[op.ID]; ok {
		return fmt.Errorf("operation %q: %w", op.ID, ErrDuplicateKey)
	}
	s.ops[op.ID] = op
	return nil
}

// Update replaces the stored operation with the same id. The replacement
// is a full overwrite, not a merge.
func (s *Store) Update(op core.Operation) error {
	if err := op.Validate(); err != nil {
		return fmt.Errorf("validate operation: %w", err)
	}
	if op.Kind != s.kind {
		return fmt.Errorf("update %s in %s store: %w", op.Kind, s.kind, ErrKindMismatch)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.ops[op.ID]; !ok {
		return fmt.Errorf("operation %q: %w", op.ID, ErrNotFound)
	}
	s.ops[op.ID] = op
	return nil
}

func (s *Store) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.ops[id]; !ok {
		return fmt.Errorf("operation %q: %w", id, ErrNotFound)
	}
	delete(s.ops, id)
	return nil
}

func (s *Store) FindByID(id string) (core.Operation, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	op, ok := s.ops[id]
	return op, ok
}

// FindAll returns a snapshot copy of every operation, order unspecified.
func (s *Store) FindAll() []core.Operation {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]core.Operation, 0, len(s.ops))
	for _, op := range s.ops {
		out = append(out, op)
	}
	return out
}

// FindByDateRange returns the operations dated within [start, end]
// inclusive, newest first. Zero dates are rejected.
func (s *Store) FindByDateRange(start, end core.Date) ([]core.Operation, error) {
	if start.IsZero() || end.IsZero() {
		return nil, fmt.Errorf("date range bounds are required: %w", core.ErrInvalidDate)
	}
	s.mu.RLock()
	var out []core.Operation
	for _, op := range s.ops {
		if op.InDateRange(start, end) {
			out = append(out, op)
		}
	}
	s.mu.RUnlock()
	sortByDateDesc(out)
	return out, nil
}

// FindByCategory returns the operations whose category id matches,
// newest first.
func (s *Store) FindByCategory(categoryID string) []core.Operation {
	s.mu.RLock()
	var out []core.Operation
	for _, op := range s.ops {
		if op.Category.ID == categoryID {
			out = append(out, op)
		}
	}
	s.mu.RUnlock()
	sortByDateDesc(out)
	return out
}

// FindByExpenseType returns expenses of the given type, newest first.
func (s *Store) FindByExpenseType(t core.ExpenseType) []core.Operation {
	s.mu.RLock()
	var out []core.Operation
	for _, op := range s.ops {
		if op.Kind == core.KindExpense && op.ExpenseType == t {
			out = append(out, op)
		}
	}
	s.mu.RUnlock()
	sortByDateDesc(out)
	return out
}

// FindByIncomeSource returns incomes from the given source, newest first.
func (s *Store) FindByIncomeSource(src core.IncomeSource) []core.Operation {
	s.mu.RLock()
	var out []core.Operation
	for _, op := range s.ops {
		if op.Kind == core.KindIncome && op.IncomeSource == src {
			out = append(out, op)
		}
	}
	s.mu.RUnlock()
	sortByDateDesc(out)
	return out
}

func (s *Store) Exists(id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.ops[id]
	return ok
}

func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.ops)
}

func sortByDateDesc(ops []core.Operation) {
	sort.SliceStable(ops, func(i, j int) bool {
		return ops[i].Date.After(ops[j].Date.Time)
	})
}
