package cards

import (
	"errors"
	"testing"

	"finledger/internal/core"
)

func newCard(t *testing.T, id string, limitCents int64) core.CreditCard {
	t.Helper()
	card, err := core.NewCreditCard(id, "4276 0000 "+id, "Alex Smith", core.Cents(limitCents), core.NewDate(2028, 12, 31))
	if err != nil {
		t.Fatalf("new card: %v", err)
	}
	return card
}

func TestAddRemoveGet(t *testing.T) {
	l := NewLedger()
	if err := l.Add(newCard(t, "A", 100000)); err != nil {
		t.Fatalf("add: %v", err)
	}
	if err := l.Add(newCard(t, "A", 50000)); !errors.Is(err, ErrDuplicateCard) {
		t.Fatalf("duplicate add: got %v", err)
	}

	got, ok := l.Get("A")
	if !ok || got.CreditLimit.Cents != 100000 {
		t.Fatalf("get: %v %+v", ok, got)
	}
	if _, ok := l.Get("missing"); ok {
		t.Fatal("get missing card succeeded")
	}

	l.Remove("A")
	if l.Size() != 0 {
		t.Fatalf("size after remove: %d", l.Size())
	}
	// Removing an absent id is not an error.
	l.Remove("A")
}

func TestUpdateAbsentIsNoOp(t *testing.T) {
	l := NewLedger()
	if err := l.Update(newCard(t, "A", 100000)); err != nil {
		t.Fatalf("update absent: %v", err)
	}
	if l.Size() != 0 {
		t.Fatal("update inserted a card")
	}

	if err := l.Add(newCard(t, "A", 100000)); err != nil {
		t.Fatalf("add: %v", err)
	}
	replacement := newCard(t, "A", 200000)
	if err := l.Update(replacement); err != nil {
		t.Fatalf("update: %v", err)
	}
	got, _ := l.Get("A")
	if got.CreditLimit.Cents != 200000 {
		t.Fatalf("update did not replace: %+v", got)
	}
}

func TestTotals(t *testing.T) {
	l := NewLedger()
	for id, limit := range map[string]int64{"A": 100000, "B": 50000} {
		if err := l.Add(newCard(t, id, limit)); err != nil {
			t.Fatalf("add %s: %v", id, err)
		}
	}
	if err := l.Withdraw("A", core.Cents(30000)); err != nil {
		t.Fatalf("withdraw: %v", err)
	}
	if err := l.Withdraw("B", core.Cents(10000)); err != nil {
		t.Fatalf("withdraw: %v", err)
	}

	if got := l.TotalCreditLimit(); got.Cents != 150000 {
		t.Fatalf("total limit: %d", got.Cents)
	}
	if got := l.TotalDebt(); got.Cents != 40000 {
		t.Fatalf("total debt: %d", got.Cents)
	}
	if got := l.TotalAvailableCredit(); got.Cents != 110000 {
		t.Fatalf("total available: %d", got.Cents)
	}
}

func TestWithdrawDepositThroughLedger(t *testing.T) {
	l := NewLedger()
	if err := l.Add(newCard(t, "A", 100000)); err != nil {
		t.Fatalf("add: %v", err)
	}

	if err := l.Withdraw("missing", core.Cents(100)); !errors.Is(err, ErrCardNotFound) {
		t.Fatalf("withdraw missing card: got %v", err)
	}
	if err := l.Deposit("missing", core.Cents(100)); !errors.Is(err, ErrCardNotFound) {
		t.Fatalf("deposit missing card: got %v", err)
	}

	if err := l.Withdraw("A", core.Cents(120000)); !errors.Is(err, core.ErrInsufficientCredit) {
		t.Fatalf("over-limit withdraw: got %v", err)
	}
	card, _ := l.Get("A")
	if card.CurrentBalance.Cents != 0 {
		t.Fatalf("failed withdraw mutated balance: %d", card.CurrentBalance.Cents)
	}

	if err := l.Withdraw("A", core.Cents(30000)); err != nil {
		t.Fatalf("withdraw: %v", err)
	}
	if err := l.Deposit("A", core.Cents(30000)); err != nil {
		t.Fatalf("deposit: %v", err)
	}
	card, _ = l.Get("A")
	if card.CurrentBalance.Cents != 0 {
		t.Fatalf("balance should return to 0: %d", card.CurrentBalance.Cents)
	}
}

func TestSubscribers(t *testing.T) {
	l := NewLedger()
	var calls [][]core.CreditCard
	cancel := l.Subscribe(func(cards []core.CreditCard) {
		calls = append(calls, cards)
	})

	if err := l.Add(newCard(t, "B", 50000)); err != nil {
		t.Fatalf("add: %v", err)
	}
	if err := l.Add(newCard(t, "A", 100000)); err != nil {
		t.Fatalf("add: %v", err)
	}
	if err := l.Withdraw("A", core.Cents(1000)); err != nil {
		t.Fatalf("withdraw: %v", err)
	}
	l.Remove("B")
	l.Clear()

	if len(calls) != 5 {
		t.Fatalf("notifications: got %d, want 5", len(calls))
	}
	// Snapshot reflects the state after the mutation, sorted by id.
	second := calls[1]
	if len(second) != 2 || second[0].ID != "A" || second[1].ID != "B" {
		t.Fatalf("second snapshot: %+v", second)
	}
	third := calls[2]
	if third[0].CurrentBalance.Cents != 1000 {
		t.Fatalf("withdraw snapshot: %+v", third)
	}
	if len(calls[4]) != 0 {
		t.Fatalf("clear snapshot: %+v", calls[4])
	}

	// Snapshots are copies; mutating one must not affect the ledger.
	second[0].CurrentBalance = core.Cents(999999)
	if card, _ := l.Get("A"); card.CurrentBalance.Cents == 999999 {
		t.Fatal("snapshot aliased ledger state")
	}

	cancel()
	if err := l.Add(newCard(t, "C", 1000)); err != nil {
		t.Fatalf("add: %v", err)
	}
	if len(calls) != 5 {
		t.Fatalf("cancelled subscriber still notified: %d", len(calls))
	}
}
