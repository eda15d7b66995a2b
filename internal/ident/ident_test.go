package ident

import (
	"strings"
	"testing"
)

func TestNew(t *testing.T) {
	id := New(PrefixExpense)
	if !strings.HasPrefix(id, "EXP_") {
		t.Fatalf("missing prefix: %q", id)
	}
	if len(id) != len("EXP_")+8 {
		t.Fatalf("unexpected length: %q", id)
	}

	bare := New("")
	if strings.Contains(bare, "_") || len(bare) != 8 {
		t.Fatalf("bare id: %q", bare)
	}
}

func TestNewIsUnique(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 1000; i++ {
		id := New(PrefixCard)
		if seen[id] {
			t.Fatalf("duplicate id after %d draws: %q", i, id)
		}
		seen[id] = true
	}
}
