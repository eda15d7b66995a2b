// Package google is the Google Sheets adapter for the report worker.
package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/avast/retry-go"
	"google.golang.org/api/googleapi"
	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	ports "finledger/internal/sheets"
)

type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	// Year-prefixed sheet names, e.g. "2026 Operations".
	operationsSheet string
	summarySheet    string
}

var _ ports.ReportWriter = (*Client)(nil)

// NewFromEnv creates a Sheets client from environment variables.
// Required: GOOGLE_SPREADSHEET_ID plus service account credentials in
// GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or
// GOOGLE_APPLICATION_CREDENTIALS.
// Optional: GOOGLE_OPERATIONS_SHEET_NAME (default "Operations") and
// GOOGLE_SUMMARY_SHEET_NAME (default "Summary").
func NewFromEnv(ctx context.Context) (*Client, error) {
	spreadsheetID := strings.TrimSpace(os.Getenv("GOOGLE_SPREADSHEET_ID"))
	if spreadsheetID == "" {
		return nil, errors.New("missing GOOGLE_SPREADSHEET_ID")
	}

	operationsBase := strings.TrimSpace(os.Getenv("GOOGLE_OPERATIONS_SHEET_NAME"))
	if operationsBase == "" {
		operationsBase = "Operations"
	}
	summaryBase := strings.TrimSpace(os.Getenv("GOOGLE_SUMMARY_SHEET_NAME"))
	if summaryBase == "" {
		summaryBase = "Summary"
	}

	svc, err := newSheetsService(ctx)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}

	year := time.Now().Year()
	return &Client{
		svc:             svc,
		spreadsheetID:   spreadsheetID,
		operationsSheet: fmt.Sprintf("%d %s", year, operationsBase),
		summarySheet:    fmt.Sprintf("%d %s", year, summaryBase),
	}, nil
}

// newSheetsService initializes a Sheets Service using Service Account
// credentials.
func newSheetsService(ctx context.Context) (*gsheet.Service, error) {
	serviceAccountJSON := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_JSON"))
	serviceAccountFile := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_FILE"))
	if serviceAccountJSON == "" && serviceAccountFile == "" {
		serviceAccountFile = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}

	var credentialsJSON []byte
	var err error
	switch {
	case serviceAccountJSON != "":
		credentialsJSON = []byte(serviceAccountJSON)
	case serviceAccountFile != "":
		credentialsJSON, err = os.ReadFile(serviceAccountFile)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")
	}

	service, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(credentialsJSON),
		goption.WithScopes(gsheet.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return service, nil
}

// AppendRow appends one operation line, retrying on rate limiting.
func (c *Client) AppendRow(ctx context.Context, row ports.OperationRow) error {
	values := [][]any{{
		row.Date, row.OperationID, row.Kind, row.Name, row.Amount, row.Category, row.EventType,
	}}
	if err := c.append(ctx, c.operationsSheet, values); err != nil {
		return fmt.Errorf("append operation row: %w", err)
	}

	slog.InfoContext(ctx, "Operation row appended to sheet",
		"sheet", c.operationsSheet,
		"operation_id", row.OperationID,
		"event_type", row.EventType)
	return nil
}

// WriteSummary appends one rollup line to the summary sheet.
func (c *Client) WriteSummary(ctx context.Context, row ports.SummaryRow) error {
	values := [][]any{{
		row.Period, row.IncomeTotal, row.ExpenseTotal, row.Balance, row.OperationsLen,
	}}
	if err := c.append(ctx, c.summarySheet, values); err != nil {
		return fmt.Errorf("append summary row: %w", err)
	}

	slog.InfoContext(ctx, "Summary row appended to sheet",
		"sheet", c.summarySheet,
		"period", row.Period)
	return nil
}

func (c *Client) append(ctx context.Context, sheet string, values [][]any) error {
	if c.svc == nil {
		return errors.New("sheets service not initialized")
	}

	writeRange := fmt.Sprintf("%s!A:G", sheet)
	req := gsheet.ValueRange{Values: values}

	return retry.Do(
		func() error {
			_, err := c.svc.Spreadsheets.Values.Append(c.spreadsheetID, writeRange, &req).
				ValueInputOption("USER_ENTERED").
				InsertDataOption("INSERT_ROWS").
				Context(ctx).
				Do()
			return err
		},
		retry.RetryIf(func(err error) bool {
			var apiErr *googleapi.Error
			if errors.As(err, &apiErr) && apiErr.Code == http.StatusTooManyRequests {
				slog.WarnContext(ctx, "Rate limited by Sheets API, will retry", "error", err)
				return true
			}
			return false
		}),
		retry.Attempts(3),
		retry.Delay(30*time.Second),
		retry.LastErrorOnly(true),
	)
}
