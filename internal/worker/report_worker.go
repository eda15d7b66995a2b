// Package worker mirrors ledger events into the report spreadsheet.
package worker

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"finledger/internal/amqp"
	"finledger/internal/sheets"
)

// ReportWorker consumes ledger events. Every operation event becomes a
// spreadsheet row; card events are logged. Running totals accumulate so a
// periodic summary row can be flushed.
type ReportWorker struct {
	writer sheets.ReportWriter

	mu           sync.Mutex
	incomeCents  int64
	expenseCents int64
	operations   int
}

func NewReportWorker(writer sheets.ReportWriter) *ReportWorker {
	return &ReportWorker{writer: writer}
}

// HandleOperationEvent appends one row per operation mutation. Deletions
// are recorded as rows too; the event type column tells them apart.
func (w *ReportWorker) HandleOperationEvent(ctx context.Context, ev amqp.OperationEvent) error {
	row := sheets.OperationRow{
		OperationID: ev.OperationID,
		Kind:        string(ev.Kind),
		Name:        ev.Name,
		Amount:      float64(ev.AmountCents) / 100.0,
		Date:        ev.Date,
		Category:    ev.CategoryName,
		EventType:   string(ev.Type),
	}
	if err := w.writer.AppendRow(ctx, row); err != nil {
		return fmt.Errorf("append operation row: %w", err)
	}

	w.track(ev)
	return nil
}

// HandleCardsChanged logs the aggregate card position. Card state does
// not go to the sheet; the totals are useful in the worker logs.
func (w *ReportWorker) HandleCardsChanged(ctx context.Context, ev amqp.CardsChangedEvent) error {
	var balance, available, limit int64
	for _, c := range ev.Cards {
		balance += c.BalanceCents
		available += c.AvailableCents
		limit += c.LimitCents
	}
	slog.InfoContext(ctx, "Card set changed",
		"cards", len(ev.Cards),
		"total_debt_cents", balance,
		"total_available_cents", available,
		"total_limit_cents", limit)
	return nil
}

func (w *ReportWorker) track(ev amqp.OperationEvent) {
	w.mu.Lock()
	defer w.mu.Unlock()

	// A deletion reverses the operation's contribution. Edits restate an
	// amount already counted, so they stay out of the rollup.
	amount := ev.AmountCents
	switch ev.Type {
	case amqp.OperationCreated:
		w.operations++
	case amqp.OperationDeleted:
		amount = -amount
		w.operations--
	default:
		return
	}

	if amount >= 0 {
		w.incomeCents += amount
	} else {
		w.expenseCents += -amount
	}
}

// FlushSummary writes the accumulated totals as one summary row and
// resets the counters. Nothing is written when no events arrived.
func (w *ReportWorker) FlushSummary(ctx context.Context, period time.Time) error {
	w.mu.Lock()
	income, expense, count := w.incomeCents, w.expenseCents, w.operations
	w.incomeCents, w.expenseCents, w.operations = 0, 0, 0
	w.mu.Unlock()

	if income == 0 && expense == 0 && count == 0 {
		return nil
	}

	row := sheets.SummaryRow{
		Period:        period.UTC().Format("2006-01-02 15:04"),
		IncomeTotal:   float64(income) / 100.0,
		ExpenseTotal:  float64(expense) / 100.0,
		Balance:       float64(income-expense) / 100.0,
		OperationsLen: count,
	}
	if err := w.writer.WriteSummary(ctx, row); err != nil {
		return fmt.Errorf("write summary row: %w", err)
	}

	slog.InfoContext(ctx, "Summary row flushed",
		"period", row.Period,
		"operations", count)
	return nil
}

// RunSummaryLoop flushes a summary row every interval until ctx ends.
func (w *ReportWorker) RunSummaryLoop(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			// Final flush so a clean shutdown does not lose the tail.
			flushCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := w.FlushSummary(flushCtx, time.Now()); err != nil {
				slog.ErrorContext(flushCtx, "Failed to flush summary on shutdown", "error", err)
			}
			return ctx.Err()
		case now := <-ticker.C:
			if err := w.FlushSummary(ctx, now); err != nil {
				slog.ErrorContext(ctx, "Failed to flush summary row", "error", err)
			}
		}
	}
}
