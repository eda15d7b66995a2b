// Package services orchestrates the core: the operation/card linkage
// coordinator and the analytics queries built on top of the stores.
package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"finledger/internal/amqp"
	"finledger/internal/cards"
	"finledger/internal/core"
	"finledger/internal/ledger"
)

// OperationService coordinates one operation store with the shared
// credit-card ledger. Creating, editing or deleting an operation that
// references a card must mutate that card's balance in the same logical
// step; this service is the only code path allowed to do so.
//
// A single mutex serializes mutations so the check-then-act sequences
// spanning store and ledger cannot interleave. Reads go straight to the
// store. Services sharing a card ledger must share the mutex too;
// NewOperationPair sets that up.
type OperationService struct {
	mu     *sync.Mutex
	store  *ledger.Store
	cards  *cards.Ledger
	events *amqp.Client
}

// NewOperationService wires a store of either kind to the card ledger.
// events may be nil; mutations then skip publication.
func NewOperationService(store *ledger.Store, cardLedger *cards.Ledger, events *amqp.Client) *OperationService {
	return &OperationService{
		mu:     &sync.Mutex{},
		store:  store,
		cards:  cardLedger,
		events: events,
	}
}

// NewOperationPair wires the expense and income stores to one card
// ledger behind a shared mutex, so a mutation on one side can never
// slip between the reversal and rollback of an edit on the other.
func NewOperationPair(expenses, incomes *ledger.Store, cardLedger *cards.Ledger, events *amqp.Client) (*OperationService, *OperationService) {
	mu := &sync.Mutex{}
	exp := &OperationService{mu: mu, store: expenses, cards: cardLedger, events: events}
	inc := &OperationService{mu: mu, store: incomes, cards: cardLedger, events: events}
	return exp, inc
}

// Create validates op, applies its card linkage and commits it to the
// store. A failed withdrawal (insufficient credit) aborts the create with
// nothing persisted and the card untouched.
func (s *OperationService) Create(ctx context.Context, op core.Operation) error {
	if err := op.Validate(); err != nil {
		return fmt.Errorf("validate operation: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// The duplicate check runs before the card mutation so a DuplicateKey
	// can never strand a debited card.
	if s.store.Exists(op.ID) {
		return fmt.Errorf("operation %q: %w", op.ID, ledger.ErrDuplicateKey)
	}
	if err := s.applyLinkage(op); err != nil {
		return fmt.Errorf("apply card linkage: %w", err)
	}
	if err := s.store.Add(op); err != nil {
		// Unreachable after the exists check; undo the card mutation anyway.
		if revErr := s.reverseLinkage(op); revErr != nil {
			slog.ErrorContext(ctx, "Failed to undo card linkage after rejected add",
				"operation_id", op.ID, "error", revErr)
		}
		return err
	}

	s.publish(ctx, amqp.OperationCreated, op)
	return nil
}

// Update replaces the stored operation with the same id. The old card
// linkage is reversed first, then the new one applied; when applying the
// new linkage fails the reversal is rolled back, leaving the ledger in
// its pre-edit state.
func (s *OperationService) Update(ctx context.Context, op core.Operation) error {
	if err := op.Validate(); err != nil {
		return fmt.Errorf("validate operation: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	old, ok := s.store.FindByID(op.ID)
	if !ok {
		return fmt.Errorf("operation %q: %w", op.ID, ledger.ErrNotFound)
	}

	// Reversal always uses the stored amount, never the incoming one.
	if err := s.reverseLinkage(old); err != nil {
		return fmt.Errorf("reverse previous card linkage: %w", err)
	}
	if err := s.applyLinkage(op); err != nil {
		if rbErr := s.applyLinkage(old); rbErr != nil {
			slog.ErrorContext(ctx, "Failed to restore previous card linkage after rejected edit",
				"operation_id", op.ID, "card_id", old.CreditCardID, "error", rbErr)
		}
		return fmt.Errorf("apply card linkage: %w", err)
	}
	if err := s.store.Update(op); err != nil {
		// Unreachable through the HTTP surface; undo the card mutations
		// anyway so the ledger never drifts from the store.
		if revErr := s.reverseLinkage(op); revErr != nil {
			slog.ErrorContext(ctx, "Failed to undo new card linkage after rejected update",
				"operation_id", op.ID, "card_id", op.CreditCardID, "error", revErr)
		}
		if rbErr := s.applyLinkage(old); rbErr != nil {
			slog.ErrorContext(ctx, "Failed to restore previous card linkage after rejected update",
				"operation_id", op.ID, "card_id", old.CreditCardID, "error", rbErr)
		}
		return err
	}

	s.publish(ctx, amqp.OperationUpdated, op)
	return nil
}

// Delete removes the operation after reversing its card linkage. A
// linkage to a card that no longer exists is skipped silently; the delete
// still proceeds.
func (s *OperationService) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	old, ok := s.store.FindByID(id)
	if !ok {
		return fmt.Errorf("operation %q: %w", id, ledger.ErrNotFound)
	}
	if err := s.reverseLinkage(old); err != nil {
		return fmt.Errorf("reverse card linkage: %w", err)
	}
	if err := s.store.Delete(id); err != nil {
		return err
	}

	s.publish(ctx, amqp.OperationDeleted, old)
	return nil
}

// applyLinkage mutates the linked card the way the operation demands:
// an expense withdraws its magnitude (growing debt), an income deposits
// it (reducing debt). Operations without a card are a no-op.
func (s *OperationService) applyLinkage(op core.Operation) error {
	if !op.HasCreditCard() {
		return nil
	}
	amount := op.AbsoluteAmount()
	if op.Kind == core.KindExpense {
		return s.cards.Withdraw(op.CreditCardID, amount)
	}
	return s.cards.Deposit(op.CreditCardID, amount)
}

// reverseLinkage undoes applyLinkage for a stored operation. A card that
// has since been removed is skipped silently.
func (s *OperationService) reverseLinkage(op core.Operation) error {
	if !op.HasCreditCard() {
		return nil
	}
	amount := op.AbsoluteAmount()
	var err error
	if op.Kind == core.KindExpense {
		err = s.cards.Deposit(op.CreditCardID, amount)
	} else {
		err = s.cards.Withdraw(op.CreditCardID, amount)
	}
	if errors.Is(err, cards.ErrCardNotFound) {
		return nil
	}
	return err
}

func (s *OperationService) publish(ctx context.Context, typ amqp.EventType, op core.Operation) {
	if s.events == nil {
		return
	}
	if err := s.events.PublishOperationEvent(ctx, amqp.NewOperationEvent(typ, op)); err != nil {
		// The mutation is committed; publication is best effort.
		slog.ErrorContext(ctx, "Failed to publish operation event",
			"type", typ, "operation_id", op.ID, "error", err)
	}
}

// Get returns the operation with the given id.
func (s *OperationService) Get(id string) (core.Operation, bool) {
	return s.store.FindByID(id)
}

// List returns a snapshot of every operation, order unspecified.
func (s *OperationService) List() []core.Operation {
	return s.store.FindAll()
}

// ListByDateRange returns operations dated in [start, end], newest first.
func (s *OperationService) ListByDateRange(start, end core.Date) ([]core.Operation, error) {
	return s.store.FindByDateRange(start, end)
}

// ListByCategory returns operations in the category, newest first.
func (s *OperationService) ListByCategory(categoryID string) []core.Operation {
	return s.store.FindByCategory(categoryID)
}

// Exists reports whether an operation with the id is stored.
func (s *OperationService) Exists(id string) bool {
	return s.store.Exists(id)
}
