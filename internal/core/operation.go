package core

import (
	"errors"
	"fmt"
	"strings"
)

// OperationKind tags the two operation variants.
type OperationKind string

const (
	KindExpense OperationKind = "expense"
	KindIncome  OperationKind = "income"
)

func (k OperationKind) Valid() bool {
	return k == KindExpense || k == KindIncome
}

// ExpenseType classifies how predictable an expense is.
type ExpenseType string

const (
	ExpenseFixed      ExpenseType = "fixed"
	ExpenseVariable   ExpenseType = "variable"
	ExpenseUnexpected ExpenseType = "unexpected"
)

func (t ExpenseType) Valid() bool {
	switch t {
	case ExpenseFixed, ExpenseVariable, ExpenseUnexpected:
		return true
	}
	return false
}

func (t ExpenseType) DisplayName() string {
	switch t {
	case ExpenseFixed:
		return "Fixed"
	case ExpenseVariable:
		return "Variable"
	case ExpenseUnexpected:
		return "Unexpected"
	}
	return string(t)
}

// IncomeSource classifies where an income came from.
type IncomeSource string

const (
	SourceSalary     IncomeSource = "salary"
	SourceInvestment IncomeSource = "investment"
	SourceFreelance  IncomeSource = "freelance"
	SourceBusiness   IncomeSource = "business"
	SourceGifts      IncomeSource = "gifts"
	SourceOther      IncomeSource = "other"
)

func (s IncomeSource) Valid() bool {
	switch s {
	case SourceSalary, SourceInvestment, SourceFreelance, SourceBusiness, SourceGifts, SourceOther:
		return true
	}
	return false
}

func (s IncomeSource) DisplayName() string {
	switch s {
	case SourceSalary:
		return "Salary"
	case SourceInvestment:
		return "Investment"
	case SourceFreelance:
		return "Freelance"
	case SourceBusiness:
		return "Business"
	case SourceGifts:
		return "Gifts"
	case SourceOther:
		return "Other"
	}
	return string(s)
}

var (
	ErrEmptyID         = errors.New("empty operation id")
	ErrEmptyName       = errors.New("empty operation name")
	ErrMissingCategory = errors.New("missing category")
	ErrUnknownKind     = errors.New("unknown operation kind")
)

// Operation is a single dated financial record, either an expense or an
// income depending on Kind. Identity is the id alone; two operations with
// the same id are the same record regardless of other fields.
//
// The amount sign is an invariant of the type boundary: expenses hold a
// negative amount, incomes a positive one. The constructors normalize
// whatever magnitude they are given, and Validate rejects a violation.
type Operation struct {
	ID           string        `json:"id"`
	Kind         OperationKind `json:"kind"`
	Name         string        `json:"name"`
	Amount       Money         `json:"amount_cents"`
	Date         Date          `json:"date"`
	Description  string        `json:"description,omitempty"`
	Category     Category      `json:"category"`
	CreditCardID string        `json:"credit_card_id,omitempty"`
	ExpenseType  ExpenseType   `json:"expense_type,omitempty"`
	IncomeSource IncomeSource  `json:"income_source,omitempty"`
}

// NewExpense builds an expense operation. The amount magnitude is stored
// negated; creditCardID may be empty for cash operations.
func NewExpense(id, name string, amount Money, date Date, description string, category Category, expenseType ExpenseType, creditCardID string) Operation {
	return Operation{
		ID:           id,
		Kind:         KindExpense,
		Name:         name,
		Amount:       amount.Abs().Neg(),
		Date:         date,
		Description:  description,
		Category:     category,
		CreditCardID: creditCardID,
		ExpenseType:  expenseType,
	}
}

// NewIncome builds an income operation with a positive stored amount.
func NewIncome(id, name string, amount Money, date Date, description string, category Category, source IncomeSource, creditCardID string) Operation {
	return Operation{
		ID:           id,
		Kind:         KindIncome,
		Name:         name,
		Amount:       amount.Abs(),
		Date:         date,
		Description:  description,
		Category:     category,
		CreditCardID: creditCardID,
		IncomeSource: source,
	}
}

func (o Operation) Validate() error {
	if strings.TrimSpace(o.ID) == "" {
		return ErrEmptyID
	}
	if strings.TrimSpace(o.Name) == "" {
		return ErrEmptyName
	}
	if err := o.Date.Validate(); err != nil {
		return err
	}
	if o.Category.IsZero() {
		return ErrMissingCategory
	}
	if err := o.Category.Validate(); err != nil {
		return fmt.Errorf("category: %w", err)
	}
	switch o.Kind {
	case KindExpense:
		if o.Amount.Cents >= 0 {
			return fmt.Errorf("expense amount must be negative: %w", ErrInvalidAmount)
		}
		if !o.ExpenseType.Valid() {
			return fmt.Errorf("expense type %q: %w", o.ExpenseType, ErrUnknownKind)
		}
	case KindIncome:
		if o.Amount.Cents <= 0 {
			return fmt.Errorf("income amount must be positive: %w", ErrInvalidAmount)
		}
		if !o.IncomeSource.Valid() {
			return fmt.Errorf("income source %q: %w", o.IncomeSource, ErrUnknownKind)
		}
	default:
		return fmt.Errorf("kind %q: %w", o.Kind, ErrUnknownKind)
	}
	return nil
}

// AbsoluteAmount returns the unsigned magnitude of the operation.
func (o Operation) AbsoluteAmount() Money {
	return o.Amount.Abs()
}

// HasCreditCard reports whether the operation is linked to a card.
func (o Operation) HasCreditCard() bool {
	return o.CreditCardID != ""
}

// InDateRange reports whether the operation date lies in [start, end].
func (o Operation) InDateRange(start, end Date) bool {
	return o.Date.InRange(start, end)
}
