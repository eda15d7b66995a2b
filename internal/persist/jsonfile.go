package persist

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// FileGateway stores the snapshot as JSON files in one directory, one
// file per record set.
type FileGateway struct {
	dir string
}

const (
	expensesFile   = "expenses.json"
	incomesFile    = "incomes.json"
	categoriesFile = "categories.json"
	cardsFile      = "credit_cards.json"
)

// NewFileGateway creates the data directory if needed.
func NewFileGateway(dir string) (*FileGateway, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create data directory: %w", err)
	}
	return &FileGateway{dir: dir}, nil
}

func (g *FileGateway) Save(snap Snapshot) error {
	if err := g.writeFile(expensesFile, snap.Expenses); err != nil {
		return err
	}
	if err := g.writeFile(incomesFile, snap.Incomes); err != nil {
		return err
	}
	if err := g.writeFile(categoriesFile, snap.Categories); err != nil {
		return err
	}
	return g.writeFile(cardsFile, snap.Cards)
}

func (g *FileGateway) Load() (Snapshot, error) {
	var snap Snapshot
	if err := g.readFile(expensesFile, &snap.Expenses); err != nil {
		return Snapshot{}, err
	}
	if err := g.readFile(incomesFile, &snap.Incomes); err != nil {
		return Snapshot{}, err
	}
	if err := g.readFile(categoriesFile, &snap.Categories); err != nil {
		return Snapshot{}, err
	}
	if err := g.readFile(cardsFile, &snap.Cards); err != nil {
		return Snapshot{}, err
	}
	return snap, nil
}

func (g *FileGateway) Close() error { return nil }

// writeFile marshals v and renames it into place so a crash mid-write
// never truncates the previous snapshot.
func (g *FileGateway) writeFile(name string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal %s: %w", name, err)
	}

	path := filepath.Join(g.dir, name)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", name, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("replace %s: %w", name, err)
	}
	return nil
}

func (g *FileGateway) readFile(name string, v any) error {
	data, err := os.ReadFile(filepath.Join(g.dir, name))
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read %s: %w", name, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("parse %s: %w", name, err)
	}
	return nil
}
