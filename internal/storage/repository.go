// Package storage is the SQLite snapshot backend. It persists the same
// snapshot shape as the JSON file gateway, with the schema managed by
// embedded migrations.
package storage

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"finledger/internal/core"
	"finledger/internal/persist"

	_ "modernc.org/sqlite"
)

type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Save replaces the stored snapshot inside one transaction.
func (r *SQLiteRepository) Save(snap persist.Snapshot) error {
	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, table := range []string{"operations", "categories", "credit_cards"} {
		if _, err := tx.Exec("DELETE FROM " + table); err != nil {
			return fmt.Errorf("clear %s: %w", table, err)
		}
	}

	for _, c := range snap.Categories {
		_, err := tx.Exec(
			`INSERT INTO categories (id, name, description, color_code) VALUES (?, ?, ?, ?)`,
			c.ID, c.Name, c.Description, c.ColorCode,
		)
		if err != nil {
			return fmt.Errorf("insert category %s: %w", c.ID, err)
		}
	}

	for _, ops := range [][]core.Operation{snap.Expenses, snap.Incomes} {
		for _, op := range ops {
			_, err := tx.Exec(
				`INSERT INTO operations
					(id, kind, name, amount_cents, date, description,
					 category_id, category_name, credit_card_id, expense_type, income_source)
				 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
				op.ID, string(op.Kind), op.Name, op.Amount.Cents, op.Date.String(), op.Description,
				op.Category.ID, op.Category.Name, op.CreditCardID,
				string(op.ExpenseType), string(op.IncomeSource),
			)
			if err != nil {
				return fmt.Errorf("insert operation %s: %w", op.ID, err)
			}
		}
	}

	for _, card := range snap.Cards {
		_, err := tx.Exec(
			`INSERT INTO credit_cards (id, number, owner_name, limit_cents, balance_cents, expiry_date)
			 VALUES (?, ?, ?, ?, ?, ?)`,
			card.ID, card.Number, card.OwnerName,
			card.CreditLimit.Cents, card.CurrentBalance.Cents, card.ExpiryDate.String(),
		)
		if err != nil {
			return fmt.Errorf("insert credit card %s: %w", card.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit snapshot: %w", err)
	}
	return nil
}

// Load reads the stored snapshot. An empty database yields an empty
// snapshot.
func (r *SQLiteRepository) Load() (persist.Snapshot, error) {
	var snap persist.Snapshot

	catRows, err := r.db.Query(`SELECT id, name, description, color_code FROM categories`)
	if err != nil {
		return persist.Snapshot{}, fmt.Errorf("query categories: %w", err)
	}
	defer catRows.Close()
	for catRows.Next() {
		var c core.Category
		if err := catRows.Scan(&c.ID, &c.Name, &c.Description, &c.ColorCode); err != nil {
			return persist.Snapshot{}, fmt.Errorf("scan category: %w", err)
		}
		snap.Categories = append(snap.Categories, c)
	}
	if err := catRows.Err(); err != nil {
		return persist.Snapshot{}, fmt.Errorf("iterate categories: %w", err)
	}

	opRows, err := r.db.Query(
		`SELECT id, kind, name, amount_cents, date, description,
		        category_id, category_name, credit_card_id, expense_type, income_source
		 FROM operations`)
	if err != nil {
		return persist.Snapshot{}, fmt.Errorf("query operations: %w", err)
	}
	defer opRows.Close()
	for opRows.Next() {
		op, err := scanOperation(opRows)
		if err != nil {
			return persist.Snapshot{}, err
		}
		if op.Kind == core.KindExpense {
			snap.Expenses = append(snap.Expenses, op)
		} else {
			snap.Incomes = append(snap.Incomes, op)
		}
	}
	if err := opRows.Err(); err != nil {
		return persist.Snapshot{}, fmt.Errorf("iterate operations: %w", err)
	}

	cardRows, err := r.db.Query(
		`SELECT id, number, owner_name, limit_cents, balance_cents, expiry_date FROM credit_cards`)
	if err != nil {
		return persist.Snapshot{}, fmt.Errorf("query credit cards: %w", err)
	}
	defer cardRows.Close()
	for cardRows.Next() {
		card, err := scanCard(cardRows)
		if err != nil {
			return persist.Snapshot{}, err
		}
		snap.Cards = append(snap.Cards, card)
	}
	if err := cardRows.Err(); err != nil {
		return persist.Snapshot{}, fmt.Errorf("iterate credit cards: %w", err)
	}

	return snap, nil
}

func scanOperation(rows *sql.Rows) (core.Operation, error) {
	var (
		op                  core.Operation
		kind, date          string
		expType, incSource  string
		categoryID, catName string
	)
	err := rows.Scan(
		&op.ID, &kind, &op.Name, &op.Amount.Cents, &date, &op.Description,
		&categoryID, &catName, &op.CreditCardID, &expType, &incSource,
	)
	if err != nil {
		return core.Operation{}, fmt.Errorf("scan operation: %w", err)
	}

	op.Kind = core.OperationKind(kind)
	op.Category = core.Category{ID: categoryID, Name: catName}
	op.ExpenseType = core.ExpenseType(expType)
	op.IncomeSource = core.IncomeSource(incSource)

	op.Date, err = core.ParseDate(date)
	if err != nil {
		return core.Operation{}, fmt.Errorf("parse operation date %q: %w", date, err)
	}
	return op, nil
}

func scanCard(rows *sql.Rows) (core.CreditCard, error) {
	var (
		card   core.CreditCard
		expiry string
	)
	err := rows.Scan(
		&card.ID, &card.Number, &card.OwnerName,
		&card.CreditLimit.Cents, &card.CurrentBalance.Cents, &expiry,
	)
	if err != nil {
		return core.CreditCard{}, fmt.Errorf("scan credit card: %w", err)
	}

	card.ExpiryDate, err = core.ParseDate(expiry)
	if err != nil {
		return core.CreditCard{}, fmt.Errorf("parse card expiry %q: %w", expiry, err)
	}
	return card, nil
}
