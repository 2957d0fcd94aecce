package sheets

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/nospicy/possync/pkg/config"
	pkgerrors "github.com/nospicy/possync/pkg/errors"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	sheetsapi "google.golang.org/api/sheets/v4"
)

const (
	valueInputRaw = "RAW"
	// bodyStart is the first cell below the header row.
	bodyStart = "A2"
)

var (
	errSpreadsheetIDRequired = errors.New("spreadsheet id is required")
	errClientNotInitialized  = errors.New("sheets client not initialized")
)

// Client reads and writes one spreadsheet through the Sheets v4 API.
type Client struct {
	svc           *sheetsapi.Service
	spreadsheetID string
}

// NewClient builds a client for spreadsheetID authenticated with the service
// account from gcp. extra is appended after the credential options.
func NewClient(ctx context.Context, gcp config.GCPConfig, spreadsheetID string, extra ...option.ClientOption) (*Client, error) {
	id := strings.TrimSpace(spreadsheetID)
	if id == "" {
		return nil, errSpreadsheetIDRequired
	}

	opts := append(clientOptions(gcp), extra...)
	svc, err := sheetsapi.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating sheets service: %w", err)
	}
	return &Client{svc: svc, spreadsheetID: id}, nil
}

func clientOptions(gcp config.GCPConfig) []option.ClientOption {
	opts := []option.ClientOption{option.WithScopes(sheetsapi.SpreadsheetsScope)}
	switch {
	case strings.TrimSpace(gcp.CredentialsJSON) != "":
		opts = append(opts, option.WithCredentialsJSON([]byte(gcp.CredentialsJSON)))
	case strings.TrimSpace(gcp.ApplicationCredentials) != "":
		opts = append(opts, option.WithCredentialsFile(gcp.ApplicationCredentials))
	}
	return opts
}

// Title loads the document metadata and returns its title.
func (c *Client) Title(ctx context.Context) (string, error) {
	if c == nil || c.svc == nil {
		return "", errClientNotInitialized
	}
	doc, err := c.svc.Spreadsheets.Get(c.spreadsheetID).Fields("properties.title").Context(ctx).Do()
	if err != nil {
		return "", wrapAPIError(err, "load spreadsheet metadata")
	}
	if doc.Properties == nil {
		return "", nil
	}
	return doc.Properties.Title, nil
}

// Ping checks the spreadsheet is reachable with the configured credentials.
func (c *Client) Ping(ctx context.Context) error {
	_, err := c.Title(ctx)
	return err
}

// EnsureSheet returns the id of the sheet titled title, adding it when it does
// not exist yet. created is true when the sheet was added by this call.
func (c *Client) EnsureSheet(ctx context.Context, title string) (sheetID int64, created bool, err error) {
	if c == nil || c.svc == nil {
		return 0, false, errClientNotInitialized
	}

	doc, err := c.svc.Spreadsheets.Get(c.spreadsheetID).Fields("sheets.properties").Context(ctx).Do()
	if err != nil {
		return 0, false, wrapAPIError(err, "load spreadsheet metadata")
	}
	for _, sheet := range doc.Sheets {
		if sheet.Properties != nil && sheet.Properties.Title == title {
			return sheet.Properties.SheetId, false, nil
		}
	}

	resp, err := c.svc.Spreadsheets.BatchUpdate(c.spreadsheetID, &sheetsapi.BatchUpdateSpreadsheetRequest{
		Requests: []*sheetsapi.Request{{
			AddSheet: &sheetsapi.AddSheetRequest{
				Properties: &sheetsapi.SheetProperties{Title: title},
			},
		}},
	}).Context(ctx).Do()
	if err != nil {
		return 0, false, wrapAPIError(err, fmt.Sprintf("add sheet %q", title))
	}
	if len(resp.Replies) == 0 || resp.Replies[0].AddSheet == nil || resp.Replies[0].AddSheet.Properties == nil {
		return 0, false, pkgerrors.New(pkgerrors.CodeSinkWrite, fmt.Sprintf("add sheet %q: empty reply", title))
	}
	return resp.Replies[0].AddSheet.Properties.SheetId, true, nil
}

// Clear removes every value from the sheet. Formatting is left untouched.
func (c *Client) Clear(ctx context.Context, title string) error {
	if c == nil || c.svc == nil {
		return errClientNotInitialized
	}
	_, err := c.svc.Spreadsheets.Values.Clear(c.spreadsheetID, QuoteTitle(title), &sheetsapi.ClearValuesRequest{}).Context(ctx).Do()
	if err != nil {
		return wrapAPIError(err, fmt.Sprintf("clear sheet %q", title))
	}
	return nil
}

// WriteHeader overwrites the first row of the sheet.
func (c *Client) WriteHeader(ctx context.Context, title string, header []string) error {
	if c == nil || c.svc == nil {
		return errClientNotInitialized
	}
	row := make([]any, len(header))
	for i, h := range header {
		row[i] = h
	}
	_, err := c.svc.Spreadsheets.Values.Update(c.spreadsheetID, QuoteTitle(title)+"!A1", &sheetsapi.ValueRange{
		Values: [][]any{row},
	}).ValueInputOption(valueInputRaw).Context(ctx).Do()
	if err != nil {
		return wrapAPIError(err, fmt.Sprintf("write header of %q", title))
	}
	return nil
}

// WriteRows overwrites the rows below the header, starting at A2. The grid is
// only extended when rows needs more space than the sheet already has, so a
// clear followed by WriteRows of the same data leaves the sheet unchanged.
func (c *Client) WriteRows(ctx context.Context, title string, rows [][]any) error {
	if c == nil || c.svc == nil {
		return errClientNotInitialized
	}
	if len(rows) == 0 {
		return nil
	}
	_, err := c.svc.Spreadsheets.Values.Update(c.spreadsheetID, QuoteTitle(title)+"!"+bodyStart, &sheetsapi.ValueRange{
		Values: rows,
	}).ValueInputOption(valueInputRaw).Context(ctx).Do()
	if err != nil {
		return wrapAPIError(err, fmt.Sprintf("write %d rows to %q", len(rows), title))
	}
	return nil
}

// AppendRows inserts new grid rows after the last non-empty row of the sheet.
// Only append-only sheets such as the run log use it.
func (c *Client) AppendRows(ctx context.Context, title string, rows [][]any) error {
	if c == nil || c.svc == nil {
		return errClientNotInitialized
	}
	if len(rows) == 0 {
		return nil
	}
	_, err := c.svc.Spreadsheets.Values.Append(c.spreadsheetID, QuoteTitle(title)+"!A1", &sheetsapi.ValueRange{
		Values: rows,
	}).ValueInputOption(valueInputRaw).InsertDataOption("INSERT_ROWS").Context(ctx).Do()
	if err != nil {
		return wrapAPIError(err, fmt.Sprintf("append %d rows to %q", len(rows), title))
	}
	return nil
}

// ReadRange loads the values of an A1 range relative to the sheet, e.g. "A1:Z1".
func (c *Client) ReadRange(ctx context.Context, title, a1 string) ([][]any, error) {
	if c == nil || c.svc == nil {
		return nil, errClientNotInitialized
	}
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, QuoteTitle(title)+"!"+a1).Context(ctx).Do()
	if err != nil {
		return nil, wrapAPIError(err, fmt.Sprintf("read %s of %q", a1, title))
	}
	return resp.Values, nil
}

// FormatNumberColumns applies a NUMBER pattern to the data rows [1, rows] of
// every listed zero-based column in a single batch.
func (c *Client) FormatNumberColumns(ctx context.Context, sheetID int64, columns []int, rows int, pattern string) error {
	if c == nil || c.svc == nil {
		return errClientNotInitialized
	}
	if rows <= 0 || len(columns) == 0 {
		return nil
	}

	requests := make([]*sheetsapi.Request, 0, len(columns))
	for _, col := range columns {
		requests = append(requests, &sheetsapi.Request{
			RepeatCell: &sheetsapi.RepeatCellRequest{
				Range: &sheetsapi.GridRange{
					SheetId:          sheetID,
					StartRowIndex:    1,
					EndRowIndex:      int64(rows) + 1,
					StartColumnIndex: int64(col),
					EndColumnIndex:   int64(col) + 1,
					ForceSendFields:  []string{"SheetId", "StartColumnIndex"},
				},
				Cell: &sheetsapi.CellData{
					UserEnteredFormat: &sheetsapi.CellFormat{
						NumberFormat: &sheetsapi.NumberFormat{Type: "NUMBER", Pattern: pattern},
					},
				},
				Fields: "userEnteredFormat.numberFormat",
			},
		})
	}

	_, err := c.svc.Spreadsheets.BatchUpdate(c.spreadsheetID, &sheetsapi.BatchUpdateSpreadsheetRequest{
		Requests: requests,
	}).Context(ctx).Do()
	if err != nil {
		return wrapAPIError(err, "format numeric columns")
	}
	return nil
}

// QuoteTitle renders a sheet title as an A1 sheet reference.
func QuoteTitle(title string) string {
	return "'" + strings.ReplaceAll(title, "'", "''") + "'"
}

func wrapAPIError(err error, msg string) error {
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) && apiErr != nil && apiErr.Code == http.StatusTooManyRequests {
		return pkgerrors.Wrap(pkgerrors.CodeRateLimit, err, msg)
	}
	return pkgerrors.Wrap(pkgerrors.CodeSinkWrite, err, msg)
}
