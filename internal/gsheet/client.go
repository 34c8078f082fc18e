// Package gsheet pushes compiled export ledgers to a Google spreadsheet.
// The worker is its only caller.
package gsheet

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	goption "google.golang.org/api/option"
	sheets "google.golang.org/api/sheets/v4"

	"tally/internal/core"
)

// ExportWriter is the outbound port the worker writes through.
type ExportWriter interface {
	WriteExport(ctx context.Context, year int, rows []core.ExportRow) (ref string, err error)
}

type Client struct {
	svc           *sheets.Service
	spreadsheetID string
	sheetBase     string
}

var _ ExportWriter = (*Client)(nil)

// NewFromEnv creates a Sheets client from environment variables.
// Required: GOOGLE_SPREADSHEET_ID plus service-account credentials via
// GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or
// GOOGLE_APPLICATION_CREDENTIALS. Optional: EXPORT_SHEET_NAME (default
// "Deductions"); the year is prefixed per tab, e.g. "2025 Deductions".
func NewFromEnv(ctx context.Context) (*Client, error) {
	spreadsheetID := strings.TrimSpace(os.Getenv("GOOGLE_SPREADSHEET_ID"))
	if spreadsheetID == "" {
		return nil, errors.New("missing GOOGLE_SPREADSHEET_ID")
	}

	sheetBase := strings.TrimSpace(os.Getenv("EXPORT_SHEET_NAME"))
	if sheetBase == "" {
		sheetBase = "Deductions"
	}

	svc, err := newSheetsService(ctx)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}

	return &Client{svc: svc, spreadsheetID: spreadsheetID, sheetBase: sheetBase}, nil
}

func newSheetsService(ctx context.Context) (*sheets.Service, error) {
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

	service, err := sheets.NewService(ctx,
		goption.WithCredentialsJSON(credentialsJSON),
		goption.WithScopes(sheets.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return service, nil
}

var exportHeader = []any{"Date", "Vendor", "Category", "Amount", "Description", "Source"}

// WriteExport replaces the year's tab contents with the given ledger and
// returns the written range reference. The whole export is rewritten each
// time; rows carry no identity worth diffing against.
func (c *Client) WriteExport(ctx context.Context, year int, rows []core.ExportRow) (string, error) {
	if c.svc == nil {
		return "", errors.New("sheets service not initialized")
	}

	sheetName := fmt.Sprintf("%d %s", year, c.sheetBase)

	clearRange := fmt.Sprintf("%s!A:F", sheetName)
	if _, err := c.svc.Spreadsheets.Values.Clear(c.spreadsheetID, clearRange, &sheets.ClearValuesRequest{}).
		Context(ctx).Do(); err != nil {
		return "", fmt.Errorf("clear sheet %s: %w", sheetName, err)
	}

	values := make([][]any, 0, len(rows)+1)
	values = append(values, exportHeader)
	for _, row := range rows {
		values = append(values, []any{
			row.Date.Format(time.DateOnly),
			row.Vendor,
			row.Category,
			core.Money{Cents: row.AmountCents}.Dollars(),
			row.Description,
			row.Source,
		})
	}

	writeRange := fmt.Sprintf("%s!A1:F%d", sheetName, len(values))
	vr := &sheets.ValueRange{Values: values}
	if _, err := c.svc.Spreadsheets.Values.Update(c.spreadsheetID, writeRange, vr).
		ValueInputOption("USER_ENTERED").Context(ctx).Do(); err != nil {
		return "", fmt.Errorf("write sheet %s: %w", sheetName, err)
	}

	return writeRange, nil
}
