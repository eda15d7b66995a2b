package core

import (
	"errors"
	"testing"
)

var testCategory = NewCategory("1", "Food", "groceries and eating out", "#FF6B6B")

func TestNewExpenseNormalizesSign(t *testing.T) {
	for _, cents := range []int64{10000, -10000} {
		e := NewExpense("EXP_1", "groceries", Cents(cents), NewDate(2026, 8, 1), "", testCategory, ExpenseVariable, "")
		if e.Amount.Cents != -10000 {
			t.Fatalf("amount from %d cents: got %d, want -10000", cents, e.Amount.Cents)
		}
		if err := e.Validate(); err != nil {
			t.Fatalf("expected valid expense, got %v", err)
		}
	}
}

func TestNewIncomeNormalizesSign(t *testing.T) {
	in := NewIncome("INC_1", "salary", Cents(-250000), NewDate(2026, 8, 5), "", testCategory, SourceSalary, "")
	if in.Amount.Cents != 250000 {
		t.Fatalf("amount: got %d, want 250000", in.Amount.Cents)
	}
	if err := in.Validate(); err != nil {
		t.Fatalf("expected valid income, got %v", err)
	}
}

func TestOperationValidate(t *testing.T) {
	valid := NewExpense("EXP_1", "rent", Cents(90000), NewDate(2026, 8, 1), "", testCategory, ExpenseFixed, "")

	cases := []struct {
		name    string
		mutate  func(*Operation)
		wantErr error
	}{
		{"empty id", func(o *Operation) { o.ID = " " }, ErrEmptyID},
		{"empty name", func(o *Operation) { o.Name = "" }, ErrEmptyName},
		{"zero date", func(o *Operation) { o.Date = Date{} }, ErrInvalidDate},
		{"missing category", func(o *Operation) { o.Category = Category{} }, ErrMissingCategory},
		{"zero amount", func(o *Operation) { o.Amount = Money{} }, ErrInvalidAmount},
		{"positive expense", func(o *Operation) { o.Amount = Cents(100) }, ErrInvalidAmount},
		{"bad expense type", func(o *Operation) { o.ExpenseType = "weird" }, ErrUnknownKind},
		{"bad kind", func(o *Operation) { o.Kind = "transfer" }, ErrUnknownKind},
	}
	for _, tc := range cases {
		op := valid
		tc.mutate(&op)
		if err := op.Validate(); !errors.Is(err, tc.wantErr) {
			t.Fatalf("%s: got %v, want %v", tc.name, err, tc.wantErr)
		}
	}

	income := NewIncome("INC_1", "salary", Cents(100), NewDate(2026, 8, 1), "", testCategory, SourceSalary, "")
	income.Amount = Cents(-100)
	if err := income.Validate(); !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("negative income: got %v, want ErrInvalidAmount", err)
	}
	income.Amount = Cents(100)
	income.IncomeSource = "lottery"
	if err := income.Validate(); !errors.Is(err, ErrUnknownKind) {
		t.Fatalf("bad income source: got %v, want ErrUnknownKind", err)
	}
}

func TestInDateRange(t *testing.T) {
	op := NewExpense("EXP_1", "x", Cents(100), NewDate(2026, 8, 15), "", testCategory, ExpenseVariable, "")
	cases := []struct {
		start, end Date
		want       bool
	}{
		{NewDate(2026, 8, 1), NewDate(2026, 8, 31), true},
		{NewDate(2026, 8, 15), NewDate(2026, 8, 15), true}, // inclusive both ends
		{NewDate(2026, 8, 16), NewDate(2026, 8, 31), false},
		{NewDate(2026, 7, 1), NewDate(2026, 8, 14), false},
	}
	for i, tc := range cases {
		if got := op.InDateRange(tc.start, tc.end); got != tc.want {
			t.Fatalf("case %d: got %v, want %v", i, got, tc.want)
		}
	}
}

func TestDateJSONRoundTrip(t *testing.T) {
	d := NewDate(2026, 2, 28)
	b, err := d.MarshalJSON()
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(b) != `"2026-02-28"` {
		t.Fatalf("got %s", b)
	}
	var back Date
	if err := back.UnmarshalJSON(b); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !back.Equal(d.Time) {
		t.Fatalf("round trip mismatch: %v != %v", back, d)
	}
}

func TestMonthWindow(t *testing.T) {
	start, end := MonthWindow(2026, 2)
	if start.String() != "2026-02-01" || end.String() != "2026-02-28" {
		t.Fatalf("got [%s, %s]", start, end)
	}
	start, end = MonthWindow(2024, 2)
	if end.String() != "2024-02-29" {
		t.Fatalf("leap year end: got %s", end)
	}
}
