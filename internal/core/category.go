package core

import (
	"errors"
	"fmt"
	"strings"
)

var ErrEmptyCategoryName = errors.New("empty category name")

const defaultColorCode = "#000000"

// Category classifies operations. The id is immutable; name, description
// and color are display attributes and may change.
type Category struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	ColorCode   string `json:"color_code,omitempty"`
}

func NewCategory(id, name, description, colorCode string) Category {
	if colorCode == "" {
		colorCode = defaultColorCode
	}
	return Category{
		ID:          id,
		Name:        name,
		Description: description,
		ColorCode:   colorCode,
	}
}

func (c Category) Validate() error {
	if strings.TrimSpace(c.ID) == "" {
		return fmt.Errorf("empty category id: %w", ErrValidation)
	}
	if strings.TrimSpace(c.Name) == "" {
		return ErrEmptyCategoryName
	}
	return nil
}

// IsZero reports whether the category reference is absent.
func (c Category) IsZero() bool {
	return c.ID == "" && c.Name == ""
}
