package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"financas/internal/core"
	ports "financas/internal/sheets"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

// Client reads import ranges from any spreadsheet the service account can
// see and writes settlements into the configured household spreadsheet.
type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
}

var (
	_ ports.RowReader          = (*Client)(nil)
	_ ports.SettlementExporter = (*Client)(nil)
)

// Credentials selects how the service account is supplied. JSON wins over
// File; when both are empty GOOGLE_APPLICATION_CREDENTIALS is consulted.
type Credentials struct {
	JSON string
	File string
}

// New creates a Sheets client for the household spreadsheet.
func New(ctx context.Context, spreadsheetID string, creds Credentials) (*Client, error) {
	spreadsheetID = strings.TrimSpace(spreadsheetID)
	if spreadsheetID == "" {
		return nil, errors.New("missing spreadsheet id")
	}
	svc, err := newSheetsService(ctx, creds)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}
	return &Client{svc: svc, spreadsheetID: spreadsheetID}, nil
}

// newSheetsService initializes a Sheets Service using Service Account credentials.
func newSheetsService(ctx context.Context, creds Credentials) (*gsheet.Service, error) {
	serviceAccountJSON := strings.TrimSpace(creds.JSON)
	serviceAccountFile := strings.TrimSpace(creds.File)
	if serviceAccountJSON == "" && serviceAccountFile == "" {
		serviceAccountFile = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}

	var credentialsJSON []byte
	switch {
	case serviceAccountJSON != "":
		credentialsJSON = []byte(serviceAccountJSON)
	case serviceAccountFile != "":
		data, err := os.ReadFile(serviceAccountFile)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		credentialsJSON = data
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")
	}

	slog.InfoContext(ctx, "Creating Google Sheets service with Service Account",
		"credentials_size", len(credentialsJSON),
		"scope", gsheet.SpreadsheetsScope)

	service, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(credentialsJSON),
		goption.WithScopes(gsheet.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return service, nil
}

// ReadRows reads rng from spreadsheetID. An empty spreadsheetID reads from
// the household spreadsheet.
func (c *Client) ReadRows(ctx context.Context, spreadsheetID, rng string) ([][]string, error) {
	if c.svc == nil {
		return nil, errors.New("sheets service not initialized")
	}
	if spreadsheetID == "" {
		spreadsheetID = c.spreadsheetID
	}
	resp, err := c.svc.Spreadsheets.Values.Get(spreadsheetID, rng).
		ValueRenderOption("FORMATTED_VALUE").Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", rng, err)
	}
	out := make([][]string, 0, len(resp.Values))
	for _, row := range resp.Values {
		out = append(out, toStrings(row))
	}
	return out, nil
}

// ExportSettlement overwrites the month's tab with the rendered settlement,
// creating the tab on first export.
func (c *Client) ExportSettlement(ctx context.Context, s core.HouseholdSettlement) error {
	if c.svc == nil {
		return errors.New("sheets service not initialized")
	}
	tab := ports.TabName(s.Month)
	if err := c.ensureTab(ctx, tab); err != nil {
		return err
	}

	rng := fmt.Sprintf("'%s'!A:C", tab)
	if _, err := c.svc.Spreadsheets.Values.Clear(c.spreadsheetID, rng, &gsheet.ClearValuesRequest{}).
		Context(ctx).Do(); err != nil {
		return fmt.Errorf("clear %s: %w", tab, err)
	}

	vr := &gsheet.ValueRange{Values: toCells(ports.SettlementValues(s))}
	_, err := c.svc.Spreadsheets.Values.Update(c.spreadsheetID, fmt.Sprintf("'%s'!A1", tab), vr).
		ValueInputOption("RAW").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("write %s: %w", tab, err)
	}
	return nil
}

func (c *Client) ensureTab(ctx context.Context, title string) error {
	ss, err := c.svc.Spreadsheets.Get(c.spreadsheetID).Fields("sheets.properties.title").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("read spreadsheet: %w", err)
	}
	for _, sh := range ss.Sheets {
		if sh.Properties != nil && sh.Properties.Title == title {
			return nil
		}
	}
	req := &gsheet.BatchUpdateSpreadsheetRequest{
		Requests: []*gsheet.Request{{
			AddSheet: &gsheet.AddSheetRequest{Properties: &gsheet.SheetProperties{Title: title}},
		}},
	}
	if _, err := c.svc.Spreadsheets.BatchUpdate(c.spreadsheetID, req).Context(ctx).Do(); err != nil {
		return fmt.Errorf("add sheet %s: %w", title, err)
	}
	slog.InfoContext(ctx, "Created settlement tab", "tab", title)
	return nil
}

func toStrings(in []interface{}) []string {
	out := make([]string, len(in))
	for i, v := range in {
		out[i] = strings.TrimSpace(fmt.Sprint(v))
	}
	return out
}

func toCells(rows [][]string) [][]interface{} {
	out := make([][]interface{}, len(rows))
	for i, row := range rows {
		cells := make([]interface{}, len(row))
		for j, v := range row {
			cells[j] = v
		}
		out[i] = cells
	}
	return out
}
