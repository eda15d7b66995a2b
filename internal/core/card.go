package core

import (
	"errors"
	"fmt"
	"strings"
)

var ErrInsufficientCredit = errors.New("insufficient credit")

// ErrValidation tags rejected field values that have no sentinel of
// their own.
var ErrValidation = errors.New("validation failed")

// InsufficientCreditError reports a withdrawal that exceeds the card's
// available credit. It unwraps to ErrInsufficientCredit.
type InsufficientCreditError struct {
	CardID    string
	Requested Money
	Available Money
}

func (e *InsufficientCreditError) Error() string {
	return fmt.Sprintf("card %s: requested %s but only %s available: insufficient credit",
		e.CardID, e.Requested, e.Available)
}

func (e *InsufficientCreditError) Unwrap() error {
	return ErrInsufficientCredit
}

// CreditCard tracks outstanding debt against a credit limit.
// The invariant 0 <= CurrentBalance <= CreditLimit holds after every
// mutation; AvailableCredit is the headroom left under the limit.
//
// The balance counts debt, so Deposit reduces it and Withdraw grows it.
type CreditCard struct {
	ID             string `json:"id"`
	Number         string `json:"number"`
	OwnerName      string `json:"owner_name"`
	CreditLimit    Money  `json:"credit_limit_cents"`
	CurrentBalance Money  `json:"current_balance_cents"`
	ExpiryDate     Date   `json:"expiry_date"`
}

// NewCreditCard builds a card with zero outstanding debt.
func NewCreditCard(id, number, ownerName string, creditLimit Money, expiryDate Date) (CreditCard, error) {
	card := CreditCard{
		ID:          id,
		Number:      number,
		OwnerName:   ownerName,
		CreditLimit: creditLimit,
		ExpiryDate:  expiryDate,
	}
	if err := card.Validate(); err != nil {
		return CreditCard{}, err
	}
	return card, nil
}

func (c CreditCard) Validate() error {
	if strings.TrimSpace(c.ID) == "" {
		return fmt.Errorf("empty card id: %w", ErrValidation)
	}
	if strings.TrimSpace(c.Number) == "" {
		return fmt.Errorf("empty card number: %w", ErrValidation)
	}
	if strings.TrimSpace(c.OwnerName) == "" {
		return fmt.Errorf("empty card owner name: %w", ErrValidation)
	}
	if c.CreditLimit.Cents < 0 {
		return fmt.Errorf("credit limit must not be negative: %w", ErrInvalidAmount)
	}
	if c.CurrentBalance.Cents < 0 || c.CurrentBalance.Cents > c.CreditLimit.Cents {
		return fmt.Errorf("balance %s outside [0, %s]: %w", c.CurrentBalance, c.CreditLimit, ErrInvalidAmount)
	}
	return nil
}

// AvailableCredit is the credit limit minus the outstanding balance.
func (c CreditCard) AvailableCredit() Money {
	return c.CreditLimit.Sub(c.CurrentBalance)
}

// Deposit reduces the outstanding debt by amount, clamped at zero: paying
// back more than is owed absorbs the overshoot instead of failing.
func (c *CreditCard) Deposit(amount Money) error {
	if amount.Cents <= 0 {
		return fmt.Errorf("deposit amount must be positive: %w", ErrInvalidAmount)
	}
	c.CurrentBalance = c.CurrentBalance.Sub(amount)
	if c.CurrentBalance.Cents < 0 {
		c.CurrentBalance = Money{}
	}
	return nil
}

// Withdraw grows the outstanding debt by amount. It fails without mutating
// the balance when amount exceeds the available credit.
func (c *CreditCard) Withdraw(amount Money) error {
	if amount.Cents <= 0 {
		return fmt.Errorf("withdraw amount must be positive: %w", ErrInvalidAmount)
	}
	if amount.Cents > c.AvailableCredit().Cents {
		return &InsufficientCreditError{
			CardID:    c.ID,
			Requested: amount,
			Available: c.AvailableCredit(),
		}
	}
	c.CurrentBalance = c.CurrentBalance.Add(amount)
	return nil
}
