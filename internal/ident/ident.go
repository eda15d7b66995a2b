// Package ident generates the short prefixed identifiers used for
// operations, cards and categories (e.g. "EXP_1a2b3c4d").
package ident

import "github.com/google/uuid"

const (
	PrefixExpense  = "EXP"
	PrefixIncome   = "INC"
	PrefixCard     = "CARD"
	PrefixCategory = "CAT"
)

// New returns a unique identifier: the first 8 characters of a random
// UUID, prefixed with prefix and an underscore when prefix is non-empty.
func New(prefix string) string {
	id := uuid.NewString()[:8]
	if prefix == "" {
		return id
	}
	return prefix + "_" + id
}
