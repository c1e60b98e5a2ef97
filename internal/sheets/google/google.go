package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"marquee/internal/core"
	ports "marquee/internal/sheets"
)

type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	payoutsSheet  string
}

// Ensure interface conformance
var _ ports.PayoutWriter = (*Client)(nil)

// NewFromEnv creates a Sheets client using environment variables.
// Required: GOOGLE_SPREADSHEET_ID
// Optional: GOOGLE_SHEET_NAME (default "Payouts"); credentials via
// GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or
// GOOGLE_APPLICATION_CREDENTIALS.
func NewFromEnv(ctx context.Context) (*Client, error) {
	spreadsheetID := strings.TrimSpace(os.Getenv("GOOGLE_SPREADSHEET_ID"))
	if spreadsheetID == "" {
		return nil, errors.New("missing GOOGLE_SPREADSHEET_ID")
	}

	sheetName := strings.TrimSpace(os.Getenv("GOOGLE_SHEET_NAME"))
	if sheetName == "" {
		sheetName = "Payouts"
	}

	svc, err := newSheetsService(ctx)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}

	return &Client{
		svc:           svc,
		spreadsheetID: spreadsheetID,
		payoutsSheet:  sheetName,
	}, nil
}

// newSheetsService initializes a Sheets Service using Service Account credentials.
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

	slog.InfoContext(ctx, "Google Sheets service created")
	return service, nil
}

// ExportPayouts appends one row per payment record to the payouts
// sheet. Columns: show date, venue, performer, amount, paid, payee
// handle, notes, exported-at.
func (c *Client) ExportPayouts(ctx context.Context, venue, showDate string, records []core.PaymentRecord) error {
	if c.svc == nil {
		return errors.New("sheets service not initialized")
	}
	if len(records) == 0 {
		return nil
	}

	exportedAt := time.Now().UTC().Format(time.RFC3339)
	values := make([][]any, 0, len(records))
	for _, r := range records {
		paid := "no"
		if r.Paid {
			paid = "yes"
		}
		values = append(values, []any{
			showDate,
			venue,
			r.Name,
			r.Amount.StringFixed(2),
			paid,
			r.PayeeHandle,
			r.Notes,
			exportedAt,
		})
	}

	rng := fmt.Sprintf("%s!A:H", c.payoutsSheet)
	vr := &gsheet.ValueRange{Values: values}

	_, err := c.svc.Spreadsheets.Values.Append(c.spreadsheetID, rng, vr).
		ValueInputOption("USER_ENTERED").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("append payouts to sheet %s: %w", c.payoutsSheet, err)
	}

	slog.InfoContext(ctx, "Payouts exported to Google Sheets",
		"venue", venue,
		"show_date", showDate,
		"rows", len(values),
		"sheet", c.payoutsSheet)
	return nil
}
