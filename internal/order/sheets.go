package order

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/rs/zerolog/log"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

const (
	SheetTitle   = "Orders"
	headerRange  = SheetTitle + "!A1:E1"
	appendRange  = SheetTitle + "!A2"
	sheetRows    = 1000
	sheetColumns = 5
)

// ErrMissingSheetID means no spreadsheet was configured for orders.
var ErrMissingSheetID = errors.New("missing Google Sheet ID configuration")

var header = []interface{}{"Timestamp", "Name", "Email", "Phone", "Order Details"}

// SheetsLog appends orders to the "Orders" sheet of a spreadsheet.
type SheetsLog struct {
	srv           *sheets.Service
	spreadsheetID string
}

func NewSheetsLog(ctx context.Context, client *http.Client, spreadsheetID string, opts ...option.ClientOption) (*SheetsLog, error) {
	opts = append([]option.ClientOption{option.WithHTTPClient(client)}, opts...)

	srv, err := sheets.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("unable to retrieve Sheets client: %w", err)
	}
	return &SheetsLog{srv: srv, spreadsheetID: spreadsheetID}, nil
}

// EnsureSheet creates the Orders sheet with its header row when it does not exist yet.
func (l *SheetsLog) EnsureSheet(ctx context.Context) error {
	if l.spreadsheetID == "" {
		return ErrMissingSheetID
	}

	spreadsheet, err := l.srv.Spreadsheets.Get(l.spreadsheetID).
		Fields("sheets.properties.title").
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("get spreadsheet: %w", err)
	}

	for _, s := range spreadsheet.Sheets {
		if s.Properties != nil && s.Properties.Title == SheetTitle {
			return nil
		}
	}

	add := &sheets.BatchUpdateSpreadsheetRequest{
		Requests: []*sheets.Request{{
			AddSheet: &sheets.AddSheetRequest{
				Properties: &sheets.SheetProperties{
					Title: SheetTitle,
					GridProperties: &sheets.GridProperties{
						RowCount:    sheetRows,
						ColumnCount: sheetColumns,
					},
				},
			},
		}},
	}
	if _, err := l.srv.Spreadsheets.BatchUpdate(l.spreadsheetID, add).Context(ctx).Do(); err != nil {
		return fmt.Errorf("add %s sheet: %w", SheetTitle, err)
	}
	log.Info().Str("sheet", SheetTitle).Msg("order: created sheet")

	headerRow := &sheets.ValueRange{Values: [][]interface{}{header}}
	if _, err := l.srv.Spreadsheets.Values.Update(l.spreadsheetID, headerRange, headerRow).
		ValueInputOption("RAW").
		Context(ctx).
		Do(); err != nil {
		return fmt.Errorf("write %s header: %w", SheetTitle, err)
	}
	return nil
}

// Append adds one row below the header.
func (l *SheetsLog) Append(ctx context.Context, row []string) error {
	if l.spreadsheetID == "" {
		return ErrMissingSheetID
	}

	values := make([]interface{}, len(row))
	for i, v := range row {
		values[i] = v
	}

	resp, err := l.srv.Spreadsheets.Values.Append(l.spreadsheetID, appendRange, &sheets.ValueRange{
		Values: [][]interface{}{values},
	}).
		ValueInputOption("USER_ENTERED").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("append order row: %w", err)
	}

	var updated int64
	if resp.Updates != nil {
		updated = resp.Updates.UpdatedCells
	}
	log.Info().Int64("updated_cells", updated).Msg("order: row appended")
	return nil
}
