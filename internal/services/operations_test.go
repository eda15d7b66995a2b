package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"finledger/internal/cards"
	"finledger/internal/core"
	"finledger/internal/ledger"
)

func newExpenseService(t *testing.T) (*OperationService, *ledger.Store, *cards.Ledger) {
	t.Helper()
	store := ledger.NewStore(core.KindExpense)
	cardLedger := cards.NewLedger()
	return NewOperationService(store, cardLedger, nil), store, cardLedger
}

func newIncomeService(t *testing.T, cardLedger *cards.Ledger) (*OperationService, *ledger.Store) {
	t.Helper()
	store := ledger.NewStore(core.KindIncome)
	return NewOperationService(store, cardLedger, nil), store
}

func mustAddCard(t *testing.T, l *cards.Ledger, id string, limit int64) {
	t.Helper()
	card, err := core.NewCreditCard(id, "4276", "Alex Smith", core.Cents(limit), core.NewDate(2030, 1, 31))
	if err != nil {
		t.Fatalf("new card: %v", err)
	}
	if err := l.Add(card); err != nil {
		t.Fatalf("add card: %v", err)
	}
}

func testExpense(id string, cents int64, cardID string) core.Operation {
	return core.NewExpense(id, "purchase", core.Cents(cents), core.NewDate(2026, 8, 10), "",
		core.NewCategory("CAT_1", "Food", "", ""), core.ExpenseVariable, cardID)
}

func testIncome(id string, cents int64, cardID string) core.Operation {
	return core.NewIncome(id, "payout", core.Cents(cents), core.NewDate(2026, 8, 10), "",
		core.NewCategory("CAT_2", "Work", "", ""), core.SourceSalary, cardID)
}

func cardBalance(t *testing.T, l *cards.Ledger, id string) int64 {
	t.Helper()
	card, ok := l.Get(id)
	if !ok {
		t.Fatalf("card %q missing", id)
	}
	return card.CurrentBalance.Cents
}

func TestCreateWithdrawsFromLinkedCard(t *testing.T) {
	svc, store, cardLedger := newExpenseService(t)
	mustAddCard(t, cardLedger, "CARD_1", 100000)

	if err := svc.Create(context.Background(), testExpense("EXP_1", 20000, "CARD_1")); err != nil {
		t.Fatalf("create: %v", err)
	}
	if got := cardBalance(t, cardLedger, "CARD_1"); got != 20000 {
		t.Fatalf("balance after create: %d", got)
	}
	if store.Count() != 1 {
		t.Fatalf("count: %d", store.Count())
	}
}

func TestCreateInsufficientCreditPersistsNothing(t *testing.T) {
	svc, store, cardLedger := newExpenseService(t)
	mustAddCard(t, cardLedger, "CARD_1", 100000)

	err := svc.Create(context.Background(), testExpense("EXP_1", 120000, "CARD_1"))
	if !errors.Is(err, core.ErrInsufficientCredit) {
		t.Fatalf("expected insufficient credit, got %v", err)
	}
	if store.Count() != 0 {
		t.Fatalf("operation persisted despite failed linkage")
	}
	if got := cardBalance(t, cardLedger, "CARD_1"); got != 0 {
		t.Fatalf("card mutated despite failure: %d", got)
	}
}

func TestCreateDuplicateDoesNotTouchCard(t *testing.T) {
	svc, _, cardLedger := newExpenseService(t)
	mustAddCard(t, cardLedger, "CARD_1", 100000)

	if err := svc.Create(context.Background(), testExpense("EXP_1", 20000, "CARD_1")); err != nil {
		t.Fatalf("create: %v", err)
	}
	err := svc.Create(context.Background(), testExpense("EXP_1", 30000, "CARD_1"))
	if !errors.Is(err, ledger.ErrDuplicateKey) {
		t.Fatalf("expected duplicate key, got %v", err)
	}
	if got := cardBalance(t, cardLedger, "CARD_1"); got != 20000 {
		t.Fatalf("duplicate create mutated card: %d", got)
	}
}

func TestCreateUnknownCardFails(t *testing.T) {
	svc, store, _ := newExpenseService(t)

	err := svc.Create(context.Background(), testExpense("EXP_1", 100, "CARD_MISSING"))
	if !errors.Is(err, cards.ErrCardNotFound) {
		t.Fatalf("expected card not found, got %v", err)
	}
	if store.Count() != 0 {
		t.Fatalf("operation persisted with dangling card link")
	}
}

func TestDeleteRestoresCardBalance(t *testing.T) {
	svc, store, cardLedger := newExpenseService(t)
	mustAddCard(t, cardLedger, "CARD_1", 100000)

	if err := svc.Create(context.Background(), testExpense("EXP_1", 30000, "CARD_1")); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := svc.Delete(context.Background(), "EXP_1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if got := cardBalance(t, cardLedger, "CARD_1"); got != 0 {
		t.Fatalf("balance after delete: %d", got)
	}
	if store.Count() != 0 {
		t.Fatalf("count: %d", store.Count())
	}
}

func TestDeleteSkipsReversalWhenCardGone(t *testing.T) {
	svc, store, cardLedger := newExpenseService(t)
	mustAddCard(t, cardLedger, "CARD_1", 100000)

	if err := svc.Create(context.Background(), testExpense("EXP_1", 30000, "CARD_1")); err != nil {
		t.Fatalf("create: %v", err)
	}
	cardLedger.Remove("CARD_1")

	if err := svc.Delete(context.Background(), "EXP_1"); err != nil {
		t.Fatalf("delete after card removal: %v", err)
	}
	if store.Count() != 0 {
		t.Fatalf("count: %d", store.Count())
	}
}

func TestUpdateMovesLinkageBetweenCards(t *testing.T) {
	svc, _, cardLedger := newExpenseService(t)
	mustAddCard(t, cardLedger, "CARD_A", 100000)
	mustAddCard(t, cardLedger, "CARD_B", 100000)

	if err := svc.Create(context.Background(), testExpense("EXP_1", 25000, "CARD_A")); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := svc.Update(context.Background(), testExpense("EXP_1", 40000, "CARD_B")); err != nil {
		t.Fatalf("update: %v", err)
	}
	if got := cardBalance(t, cardLedger, "CARD_A"); got != 0 {
		t.Fatalf("card A not refunded: %d", got)
	}
	if got := cardBalance(t, cardLedger, "CARD_B"); got != 40000 {
		t.Fatalf("card B not debited: %d", got)
	}
}

func TestUpdateRollsBackWhenNewLinkageFails(t *testing.T) {
	svc, store, cardLedger := newExpenseService(t)
	mustAddCard(t, cardLedger, "CARD_A", 100000)
	mustAddCard(t, cardLedger, "CARD_B", 10000)

	if err := svc.Create(context.Background(), testExpense("EXP_1", 25000, "CARD_A")); err != nil {
		t.Fatalf("create: %v", err)
	}
	// Card B cannot absorb 250.00; the edit must leave card A debited and
	// the stored record unchanged.
	err := svc.Update(context.Background(), testExpense("EXP_1", 25000, "CARD_B"))
	if !errors.Is(err, core.ErrInsufficientCredit) {
		t.Fatalf("expected insufficient credit, got %v", err)
	}
	if got := cardBalance(t, cardLedger, "CARD_A"); got != 25000 {
		t.Fatalf("rollback failed on card A: %d", got)
	}
	if got := cardBalance(t, cardLedger, "CARD_B"); got != 0 {
		t.Fatalf("card B mutated: %d", got)
	}
	stored, ok := store.FindByID("EXP_1")
	if !ok || stored.CreditCardID != "CARD_A" {
		t.Fatalf("stored record changed: %+v", stored)
	}
}

func TestUpdateReversesByStoredAmount(t *testing.T) {
	svc, _, cardLedger := newExpenseService(t)
	mustAddCard(t, cardLedger, "CARD_1", 100000)

	if err := svc.Create(context.Background(), testExpense("EXP_1", 20000, "CARD_1")); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := svc.Update(context.Background(), testExpense("EXP_1", 50000, "CARD_1")); err != nil {
		t.Fatalf("update: %v", err)
	}
	if got := cardBalance(t, cardLedger, "CARD_1"); got != 50000 {
		t.Fatalf("balance after amount edit: %d", got)
	}
}

func TestUpdateRestoresLinkageWhenStoreRejects(t *testing.T) {
	svc, store, cardLedger := newExpenseService(t)
	mustAddCard(t, cardLedger, "CARD_A", 100000)
	mustAddCard(t, cardLedger, "CARD_B", 100000)
	if err := cardLedger.Withdraw("CARD_B", core.Cents(30000)); err != nil {
		t.Fatalf("withdraw: %v", err)
	}

	if err := svc.Create(context.Background(), testExpense("EXP_1", 25000, "CARD_A")); err != nil {
		t.Fatalf("create: %v", err)
	}
	// An income cannot replace an expense record; the store rejects it
	// after both card mutations already ran, so both must be undone.
	err := svc.Update(context.Background(), testIncome("EXP_1", 25000, "CARD_B"))
	if !errors.Is(err, ledger.ErrKindMismatch) {
		t.Fatalf("expected kind mismatch, got %v", err)
	}
	if got := cardBalance(t, cardLedger, "CARD_A"); got != 25000 {
		t.Fatalf("card A not restored: %d", got)
	}
	if got := cardBalance(t, cardLedger, "CARD_B"); got != 30000 {
		t.Fatalf("card B not restored: %d", got)
	}
	stored, ok := store.FindByID("EXP_1")
	if !ok || stored.Kind != core.KindExpense || stored.CreditCardID != "CARD_A" {
		t.Fatalf("stored record changed: %+v", stored)
	}
}

func TestOperationPairSerializesCardMutations(t *testing.T) {
	expStore := ledger.NewStore(core.KindExpense)
	incStore := ledger.NewStore(core.KindIncome)
	cardLedger := cards.NewLedger()
	mustAddCard(t, cardLedger, "CARD_1", 100000)
	expSvc, incSvc := NewOperationPair(expStore, incStore, cardLedger, nil)

	if expSvc.mu != incSvc.mu {
		t.Fatal("pair does not share one mutex")
	}

	// Seed debt so concurrent income deposits never clamp at zero.
	if err := expSvc.Create(context.Background(), testExpense("EXP_SEED", 50000, "CARD_1")); err != nil {
		t.Fatalf("seed: %v", err)
	}

	ctx := context.Background()
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; i < 50; i++ {
			id := fmt.Sprintf("EXP_%d", i)
			if err := expSvc.Create(ctx, testExpense(id, 10000, "CARD_1")); err != nil {
				t.Errorf("create expense: %v", err)
				return
			}
			if err := expSvc.Delete(ctx, id); err != nil {
				t.Errorf("delete expense: %v", err)
				return
			}
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < 50; i++ {
			id := fmt.Sprintf("INC_%d", i)
			if err := incSvc.Create(ctx, testIncome(id, 10000, "CARD_1")); err != nil {
				t.Errorf("create income: %v", err)
				return
			}
			if err := incSvc.Delete(ctx, id); err != nil {
				t.Errorf("delete income: %v", err)
				return
			}
		}
	}()
	wg.Wait()

	if got := cardBalance(t, cardLedger, "CARD_1"); got != 50000 {
		t.Fatalf("balance drifted: %d", got)
	}
}

func TestUpdateMissingOperation(t *testing.T) {
	svc, _, _ := newExpenseService(t)
	err := svc.Update(context.Background(), testExpense("EXP_NOPE", 100, ""))
	if !errors.Is(err, ledger.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestIncomeLinkagePaysDownDebt(t *testing.T) {
	cardLedger := cards.NewLedger()
	mustAddCard(t, cardLedger, "CARD_1", 100000)
	incSvc, _ := newIncomeService(t, cardLedger)

	if err := cardLedger.Withdraw("CARD_1", core.Cents(30000)); err != nil {
		t.Fatalf("withdraw: %v", err)
	}
	if err := incSvc.Create(context.Background(), testIncome("INC_1", 30000, "CARD_1")); err != nil {
		t.Fatalf("create income: %v", err)
	}
	if got := cardBalance(t, cardLedger, "CARD_1"); got != 0 {
		t.Fatalf("debt not paid down: %d", got)
	}

	// Deleting the income re-withdraws; the balance returns to 300.00.
	if err := incSvc.Delete(context.Background(), "INC_1"); err != nil {
		t.Fatalf("delete income: %v", err)
	}
	if got := cardBalance(t, cardLedger, "CARD_1"); got != 30000 {
		t.Fatalf("income reversal: %d", got)
	}
}

func TestIncomeDeleteFailsWhenReversalExceedsCredit(t *testing.T) {
	cardLedger := cards.NewLedger()
	mustAddCard(t, cardLedger, "CARD_1", 10000)
	incSvc, store := newIncomeService(t, cardLedger)

	if err := cardLedger.Withdraw("CARD_1", core.Cents(10000)); err != nil {
		t.Fatalf("withdraw: %v", err)
	}
	// Income of 500.00 deposits and clamps debt at zero. Reversing it
	// needs a 500.00 withdrawal that the 100.00 limit cannot cover.
	if err := incSvc.Create(context.Background(), testIncome("INC_1", 50000, "CARD_1")); err != nil {
		t.Fatalf("create income: %v", err)
	}
	err := incSvc.Delete(context.Background(), "INC_1")
	if !errors.Is(err, core.ErrInsufficientCredit) {
		t.Fatalf("expected insufficient credit, got %v", err)
	}
	if !store.Exists("INC_1") {
		t.Fatalf("income deleted despite failed reversal")
	}
}
