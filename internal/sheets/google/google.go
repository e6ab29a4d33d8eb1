package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/controlboxthe-coder/THE-BOX/internal/core"
	ports "github.com/controlboxthe-coder/THE-BOX/internal/sheets"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

// Client mirrors snapshots into a Google Spreadsheet. Each transaction is
// one row keyed by the identity email in column A.
type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	sheetName     string
}

// Ensure interface conformance
var _ ports.SnapshotMirror = (*Client)(nil)

// NewFromEnv creates a Sheets client using environment variables.
// Required: GOOGLE_SPREADSHEET_ID
// Optional: GOOGLE_SHEET_NAME (default "Transactions")
// Credentials: GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or
// GOOGLE_APPLICATION_CREDENTIALS.
func NewFromEnv(ctx context.Context) (*Client, error) {
	spreadsheetID := strings.TrimSpace(os.Getenv("GOOGLE_SPREADSHEET_ID"))
	if spreadsheetID == "" {
		return nil, errors.New("missing GOOGLE_SPREADSHEET_ID")
	}

	sheetName := strings.TrimSpace(os.Getenv("GOOGLE_SHEET_NAME"))
	if sheetName == "" {
		sheetName = "Transactions"
	}

	svc, err := newSheetsService(ctx)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}

	return &Client{
		svc:           svc,
		spreadsheetID: spreadsheetID,
		sheetName:     sheetName,
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

	return service, nil
}

// WriteSnapshot replaces the identity's mirror rows with the snapshot's
// transactions. Rows of other identities are untouched.
func (c *Client) WriteSnapshot(ctx context.Context, email string, snap core.Snapshot) error {
	if c.svc == nil {
		return errors.New("sheets service not initialized")
	}
	email = strings.TrimSpace(email)
	if email == "" {
		return errors.New("empty identity key")
	}

	// Read column A to locate the identity's existing rows.
	rng := fmt.Sprintf("%s!A:A", c.sheetName)
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("failed to get sheet dimensions for %s: %w", c.sheetName, err)
	}

	for i, row := range resp.Values {
		if len(row) == 0 {
			continue
		}
		if owner, ok := row[0].(string); ok && owner == email {
			clearRange := fmt.Sprintf("%s!A%d:H%d", c.sheetName, i+1, i+1)
			if _, err := c.svc.Spreadsheets.Values.Clear(c.spreadsheetID, clearRange, &gsheet.ClearValuesRequest{}).
				Context(ctx).Do(); err != nil {
				return fmt.Errorf("failed to clear row %d in sheet %s: %w", i+1, c.sheetName, err)
			}
		}
	}

	rows := rowsForSnapshot(email, snap)
	if len(rows) == 0 {
		slog.InfoContext(ctx, "Mirrored empty snapshot", "email", email)
		return nil
	}

	vr := &gsheet.ValueRange{Values: rows}
	_, err = c.svc.Spreadsheets.Values.Append(c.spreadsheetID, rng, vr).
		ValueInputOption("USER_ENTERED").InsertDataOption("INSERT_ROWS").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("failed to append rows to sheet %s: %w", c.sheetName, err)
	}

	slog.InfoContext(ctx, "Mirrored snapshot",
		"email", email,
		"rows", len(rows),
		"sheet", c.sheetName)

	return nil
}

// rowsForSnapshot lays a snapshot out as mirror rows:
// email, transaction id, type, category, description, amount, date, saved at.
func rowsForSnapshot(email string, snap core.Snapshot) [][]any {
	rows := make([][]any, 0, len(snap.Transactions))
	savedAt := snap.UpdatedAt.UTC().Format(time.RFC3339)
	for _, tx := range snap.Transactions {
		rows = append(rows, []any{
			email,
			tx.ID,
			string(tx.Type),
			tx.Category,
			tx.Description,
			tx.Amount.Decimal(),
			tx.Date.String(),
			savedAt,
		})
	}
	return rows
}
