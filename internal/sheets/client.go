package sheets

import (
	"context"
	"fmt"
	"log"

	sheetsapi "google.golang.org/api/sheets/v4"

	"github.com/alexrabarts/ceo-agent/internal/apperr"
)

// Client is the Google Sheets backed Store.
type Client struct {
	Service       *sheetsapi.Service
	SpreadsheetID string
}

// NewClient wraps an authenticated Sheets service for one spreadsheet.
func NewClient(service *sheetsapi.Service, spreadsheetID string) *Client {
	return &Client{Service: service, SpreadsheetID: spreadsheetID}
}

// AppendRow appends one row after the last non-empty row of the sheet.
func (c *Client) AppendRow(ctx context.Context, sheet string, values []string) error {
	body := &sheetsapi.ValueRange{Values: [][]interface{}{toCells(values)}}

	_, err := c.Service.Spreadsheets.Values.
		Append(c.SpreadsheetID, SheetRange(sheet, "A1"), body).
		ValueInputOption("RAW").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).
		Do()
	if err != nil {
		return apperr.StoreWrite("append "+sheet, err)
	}

	return nil
}

// ReadRange returns the formatted values of a range as strings.
func (c *Client) ReadRange(ctx context.Context, sheet, a1 string) ([][]string, error) {
	resp, err := c.Service.Spreadsheets.Values.
		Get(c.SpreadsheetID, SheetRange(sheet, a1)).
		Context(ctx).
		Do()
	if err != nil {
		return nil, apperr.Upstream("read "+sheet, err)
	}

	rows := make([][]string, 0, len(resp.Values))
	for _, raw := range resp.Values {
		row := make([]string, len(raw))
		for i, v := range raw {
			row[i] = fmt.Sprint(v)
		}
		rows = append(rows, row)
	}

	return rows, nil
}

// UpdateRow overwrites one row in place, starting at column A.
func (c *Client) UpdateRow(ctx context.Context, sheet string, row int, values []string) error {
	if row < 1 {
		return apperr.StoreWrite("update "+sheet, fmt.Errorf("invalid row %d", row))
	}

	body := &sheetsapi.ValueRange{Values: [][]interface{}{toCells(values)}}
	rng := RowRange(sheet, row, len(values))

	resp, err := c.Service.Spreadsheets.Values.
		Update(c.SpreadsheetID, rng, body).
		ValueInputOption("RAW").
		Context(ctx).
		Do()
	if err != nil {
		return apperr.StoreWrite("update "+rng, err)
	}

	log.Printf("Updated %s (%d cells)", resp.UpdatedRange, resp.UpdatedCells)
	return nil
}

func toCells(values []string) []interface{} {
	cells := make([]interface{}, len(values))
	for i, v := range values {
		cells[i] = v
	}
	return cells
}
