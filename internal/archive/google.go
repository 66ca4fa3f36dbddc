package archive

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"coopmanager/internal/core"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

type SheetsClient struct {
	svc           *gsheet.Service
	spreadsheetID string
	sheetName     string
}

// Ensure interface conformance
var _ PaymentWriter = (*SheetsClient)(nil)

// NewSheetsClient creates a Sheets-backed archive writer using Service Account
// credentials. Either serviceAccountJSON or serviceAccountFile must be set;
// when both are empty GOOGLE_APPLICATION_CREDENTIALS is tried as a fallback.
func NewSheetsClient(ctx context.Context, spreadsheetID, sheetName, serviceAccountFile, serviceAccountJSON string) (*SheetsClient, error) {
	spreadsheetID = strings.TrimSpace(spreadsheetID)
	if spreadsheetID == "" {
		return nil, errors.New("missing spreadsheet ID")
	}
	sheetName = strings.TrimSpace(sheetName)
	if sheetName == "" {
		sheetName = "Payments"
	}

	svc, err := newSheetsService(ctx, serviceAccountFile, serviceAccountJSON)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}

	return &SheetsClient{
		svc:           svc,
		spreadsheetID: spreadsheetID,
		sheetName:     sheetName,
	}, nil
}

func newSheetsService(ctx context.Context, serviceAccountFile, serviceAccountJSON string) (*gsheet.Service, error) {
	serviceAccountJSON = strings.TrimSpace(serviceAccountJSON)
	serviceAccountFile = strings.TrimSpace(serviceAccountFile)

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

// AppendPayment writes one payment as a row (date, apartment, owner, amount,
// id) and returns the cell range it landed in.
func (c *SheetsClient) AppendPayment(ctx context.Context, p core.Payment) (string, error) {
	if c.svc == nil {
		return "", errors.New("sheets service not initialized")
	}

	// Find the next empty row by getting the sheet dimensions first
	rng := fmt.Sprintf("%s!A:A", c.sheetName)
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("failed to get sheet dimensions for %s: %w", c.sheetName, err)
	}

	nextRow := len(resp.Values) + 1

	dataRange := fmt.Sprintf("%s!A%d:E%d", c.sheetName, nextRow, nextRow)
	vr := &gsheet.ValueRange{Values: [][]any{{p.Date, p.ApartmentNumber, p.Owner, p.Amount, p.ID}}}

	_, err = c.svc.Spreadsheets.Values.Update(c.spreadsheetID, dataRange, vr).
		ValueInputOption("USER_ENTERED").Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("failed to update %s: %w", dataRange, err)
	}

	return dataRange, nil
}
