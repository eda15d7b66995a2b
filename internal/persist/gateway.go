// Package persist saves and restores ledger snapshots. The server loads
// one snapshot at startup and writes one after every mutation batch; the
// gateway interface lets the backend be a JSON directory or SQLite.
package persist

import (
	"log/slog"

	"finledger/internal/cards"
	"finledger/internal/core"
	"finledger/internal/ledger"
	"finledger/internal/services"
)

// Snapshot is everything a gateway persists.
type Snapshot struct {
	Expenses   []core.Operation  `json:"expenses"`
	Incomes    []core.Operation  `json:"incomes"`
	Categories []core.Category   `json:"categories"`
	Cards      []core.CreditCard `json:"credit_cards"`
}

// Gateway stores snapshots. Save overwrites the previous snapshot; Load
// returns an empty snapshot when nothing was saved yet.
type Gateway interface {
	Save(snap Snapshot) error
	Load() (Snapshot, error)
	Close() error
}

// DefaultCategories seeds a fresh install.
func DefaultCategories() []core.Category {
	return []core.Category{
		core.NewCategory("CAT_food", "Food", "Groceries and dining", "#e74c3c"),
		core.NewCategory("CAT_housing", "Housing", "Rent, mortgage and utilities", "#3498db"),
		core.NewCategory("CAT_transport", "Transport", "Fuel, transit and car costs", "#f39c12"),
		core.NewCategory("CAT_health", "Health", "Medical and insurance", "#2ecc71"),
		core.NewCategory("CAT_leisure", "Leisure", "Entertainment and hobbies", "#9b59b6"),
		core.NewCategory("CAT_work", "Work", "Salary and professional income", "#1abc9c"),
		core.NewCategory("CAT_other", "Other", "Everything else", "#95a5a6"),
	}
}

// Collect builds a snapshot from the live stores.
func Collect(expenses, incomes *ledger.Store, categories *services.CategoryService, cardLedger *cards.Ledger) Snapshot {
	return Snapshot{
		Expenses:   expenses.FindAll(),
		Incomes:    incomes.FindAll(),
		Categories: categories.All(),
		Cards:      cardLedger.All(),
	}
}

// Restore loads a snapshot into the live stores. Records whose id is
// already present are skipped, so restoring twice is harmless. Invalid
// records are logged and skipped rather than aborting the whole load.
func Restore(snap Snapshot, expenses, incomes *ledger.Store, categories *services.CategoryService, cardLedger *cards.Ledger) {
	for _, c := range snap.Categories {
		if _, ok := categories.ByID(c.ID); ok {
			continue
		}
		if err := categories.Add(c); err != nil {
			slog.Warn("Skipping category from snapshot", "id", c.ID, "error", err)
		}
	}

	for _, card := range snap.Cards {
		if _, ok := cardLedger.Get(card.ID); ok {
			continue
		}
		if err := cardLedger.Add(card); err != nil {
			slog.Warn("Skipping credit card from snapshot", "id", card.ID, "error", err)
		}
	}

	restoreOps(snap.Expenses, expenses)
	restoreOps(snap.Incomes, incomes)
}

func restoreOps(ops []core.Operation, store *ledger.Store) {
	for _, op := range ops {
		if store.Exists(op.ID) {
			continue
		}
		if err := store.Add(op); err != nil {
			slog.Warn("Skipping operation from snapshot", "id", op.ID, "error", err)
		}
	}
}
