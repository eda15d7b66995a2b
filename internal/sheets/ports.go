// Package sheets defines the outbound reporting ports. The worker mirrors
// operation events into a spreadsheet through these interfaces; the google
// subpackage is the real adapter.
package sheets

import "context"

// OperationRow is one spreadsheet line mirroring an operation event.
type OperationRow struct {
	OperationID string
	Kind        string
	Name        string
	Amount      float64
	Date        string
	Category    string
	EventType   string
}

// SummaryRow is one periodic rollup line.
type SummaryRow struct {
	Period        string
	IncomeTotal   float64
	ExpenseTotal  float64
	Balance       float64
	OperationsLen int
}

// ReportWriter appends rows to the report spreadsheet.
type ReportWriter interface {
	AppendRow(ctx context.Context, row OperationRow) error
	WriteSummary(ctx context.Context, row SummaryRow) error
}
