package services

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"finledger/internal/core"
)

// CategoryService holds the category set. Categories are referenced by
// operations but never deleted out from under them; removal is only
// rejected here when the id is unknown.
type CategoryService struct {
	mu         sync.RWMutex
	categories map[string]core.Category
}

// ErrDuplicateCategory is returned when an id or name is already taken.
var ErrDuplicateCategory = fmt.Errorf("category already exists")

// ErrCategoryNotFound is returned by lookups and removals that miss.
var ErrCategoryNotFound = fmt.Errorf("category not found")

// NewCategoryService seeds the service with the given categories.
// Invalid or duplicate seeds are skipped.
func NewCategoryService(seed []core.Category) *CategoryService {
	s := &CategoryService{categories: make(map[string]core.Category)}
	for _, c := range seed {
		_ = s.Add(c)
	}
	return s
}

// Add stores a new category. Both the id and the name (case-insensitive)
// must be unused.
func (s *CategoryService) Add(c core.Category) error {
	if err := c.Validate(); err != nil {
		return fmt.Errorf("validate category: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.categories[c.ID]; ok {
		return fmt.Errorf("category %q: %w", c.ID, ErrDuplicateCategory)
	}
	for _, existing := range s.categories {
		if strings.EqualFold(existing.Name, c.Name) {
			return fmt.Errorf("category name %q: %w", c.Name, ErrDuplicateCategory)
		}
	}
	s.categories[c.ID] = c
	return nil
}

// ByID returns the category with the given id.
func (s *CategoryService) ByID(id string) (core.Category, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.categories[id]
	return c, ok
}

// ByName returns the category with the given name, case-insensitive.
func (s *CategoryService) ByName(name string) (core.Category, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, c := range s.categories {
		if strings.EqualFold(c.Name, name) {
			return c, true
		}
	}
	return core.Category{}, false
}

// Resolve finds a category by id first, then by name.
func (s *CategoryService) Resolve(idOrName string) (core.Category, bool) {
	if c, ok := s.ByID(idOrName); ok {
		return c, true
	}
	return s.ByName(idOrName)
}

// Remove deletes the category with the given id.
func (s *CategoryService) Remove(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.categories[id]; !ok {
		return fmt.Errorf("category %q: %w", id, ErrCategoryNotFound)
	}
	delete(s.categories, id)
	return nil
}

// All returns the categories sorted by name.
func (s *CategoryService) All() []core.Category {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]core.Category, 0, len(s.categories))
	for _, c := range s.categories {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Size returns the number of stored categories.
func (s *CategoryService) Size() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.categories)
}
