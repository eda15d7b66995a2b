// Package cards implements the credit-card ledger: a keyed collection of
// cards whose balances are mutated through deposit/withdraw, with a
// subscription registry that fans out a snapshot of the card set after
// every mutation.
package cards

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"finledger/internal/core"
)

var (
	ErrCardNotFound  = errors.New("credit card not found")
	ErrDuplicateCard = errors.New("credit card id already exists")
)

// Subscriber receives a snapshot copy of the card set after a mutation.
// Delivery is synchronous from the mutating call; a panicking subscriber
// propagates to the caller.
type Subscriber func(cards []core.CreditCard)

// Ledger owns the lifetime of card records and is safe for concurrent use.
type Ledger struct {
	mu      sync.Mutex
	cards   map[string]*core.CreditCard
	subs    map[int]Subscriber
	nextSub int
}

func NewLedger() *Ledger {
	return &Ledger{
		cards: make(map[string]*core.CreditCard),
		subs:  make(map[int]Subscriber),
	}
}

// Subscribe registers fn for change notifications and returns a cancel
// function that removes the registration. No ordering is guaranteed
// between subscribers.
func (l *Ledger) Subscribe(fn Subscriber) (cancel func()) {
	l.mu.Lock()
	id := l.nextSub
	l.nextSub++
	l.subs[id] = fn
	l.mu.Unlock()
	return func() {
		l.mu.Lock()
		delete(l.subs, id)
		l.mu.Unlock()
	}
}

// Add inserts a new card. The id must be unique.
func (l *Ledger) Add(card core.CreditCard) error {
	if err := card.Validate(); err != nil {
		return fmt.Errorf("validate card: %w", err)
	}
	l.mu.Lock()
	if _, ok := l.cards[card.ID]; ok {
		l.mu.Unlock()
		return fmt.Errorf("card %q: %w", card.ID, ErrDuplicateCard)
	}
	c := card
	l.cards[card.ID] = &c
	snapshot, subs := l.snapshotLocked()
	l.mu.Unlock()
	notify(snapshot, subs)
	return nil
}

// Remove deletes the card with the given id. Removing an absent id is not
// an error; subscribers are notified either way.
func (l *Ledger) Remove(id string) {
	l.mu.Lock()
	delete(l.cards, id)
	snapshot, subs := l.snapshotLocked()
	l.mu.Unlock()
	notify(snapshot, subs)
}

// Update replaces the card with the same id. An absent id is a no-op, not
// an error; subscribers are notified either way.
func (l *Ledger) Update(card core.CreditCard) error {
	if err := card.Validate(); err != nil {
		return fmt.Errorf("validate card: %w", err)
	}
	l.mu.Lock()
	if _, ok := l.cards[card.ID]; ok {
		c := card
		l.cards[card.ID] = &c
	}
	snapshot, subs := l.snapshotLocked()
	l.mu.Unlock()
	notify(snapshot, subs)
	return nil
}

// Clear removes every card.
func (l *Ledger) Clear() {
	l.mu.Lock()
	l.cards = make(map[string]*core.CreditCard)
	snapshot, subs := l.snapshotLocked()
	l.mu.Unlock()
	notify(snapshot, subs)
}

func (l *Ledger) Get(id string) (core.CreditCard, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	c, ok := l.cards[id]
	if !ok {
		return core.CreditCard{}, false
	}
	return *c, true
}

// All returns a snapshot copy of every card, sorted by id.
func (l *Ledger) All() []core.CreditCard {
	l.mu.Lock()
	snapshot, _ := l.snapshotLocked()
	l.mu.Unlock()
	return snapshot
}

func (l *Ledger) Size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.cards)
}

// TotalDebt sums the outstanding balance across all cards.
func (l *Ledger) TotalDebt() core.Money {
	l.mu.Lock()
	defer l.mu.Unlock()
	var total core.Money
	for _, c := range l.cards {
		total = total.Add(c.CurrentBalance)
	}
	return total
}

// TotalAvailableCredit sums the remaining headroom across all cards.
func (l *Ledger) TotalAvailableCredit() core.Money {
	l.mu.Lock()
	defer l.mu.Unlock()
	var total core.Money
	for _, c := range l.cards {
		total = total.Add(c.AvailableCredit())
	}
	return total
}

// TotalCreditLimit sums the credit limit across all cards.
func (l *Ledger) TotalCreditLimit() core.Money {
	l.mu.Lock()
	defer l.mu.Unlock()
	var total core.Money
	for _, c := range l.cards {
		total = total.Add(c.CreditLimit)
	}
	return total
}

// Deposit reduces the card's outstanding debt, clamped at zero.
func (l *Ledger) Deposit(id string, amount core.Money) error {
	return l.mutate(id, func(c *core.CreditCard) error {
		return c.Deposit(amount)
	})
}

// Withdraw grows the card's outstanding debt; it fails with the card
// untouched when amount exceeds the available credit.
func (l *Ledger) Withdraw(id string, amount core.Money) error {
	return l.mutate(id, func(c *core.CreditCard) error {
		return c.Withdraw(amount)
	})
}

func (l *Ledger) mutate(id string, op func(*core.CreditCard) error) error {
	l.mu.Lock()
	c, ok := l.cards[id]
	if !ok {
		l.mu.Unlock()
		return fmt.Errorf("card %q: %w", id, ErrCardNotFound)
	}
	if err := op(c); err != nil {
		l.mu.Unlock()
		return err
	}
	snapshot, subs := l.snapshotLocked()
	l.mu.Unlock()
	notify(snapshot, subs)
	return nil
}

// snapshotLocked copies the card set and subscriber list under l.mu so the
// fan-out can run without holding the lock.
func (l *Ledger) snapshotLocked() ([]core.CreditCard, []Subscriber) {
	snapshot := make([]core.CreditCard, 0, len(l.cards))
	for _, c := range l.cards {
		snapshot = append(snapshot, *c)
	}
	sort.Slice(snapshot, func(i, j int) bool { return snapshot[i].ID < snapshot[j].ID })
	subs := make([]Subscriber, 0, len(l.subs))
	for _, fn := range l.subs {
		subs = append(subs, fn)
	}
	return snapshot, subs
}

func notify(snapshot []core.CreditCard, subs []Subscriber) {
	for _, fn := range subs {
		fn(snapshot)
	}
}
