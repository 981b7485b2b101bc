package sheets

import (
	"context"
	"fmt"
	"time"

	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"

	"github.com/studmisto/opsbot/internal/models"
)

const timeLayout = "02.01.2006 15:04"

// Ledger column positions (1-based) within a worksheet.
const (
	colTicketCode    = 1
	colStatus        = 6
	colEditTimestamp = 9
)

var titleRow = []interface{}{
	"ID",
	"ПІБ",
	"Телефон",
	"Гуртожиток",
	"Опис проблеми",
	"Статус",
	"Повідомлення в телеграм",
	"Час створення заяви",
	"Час оновлення статусу",
	"Примітки",
}

// Mirror is the best-effort ledger sink. Both calls may fail independently
// of the lifecycle operation that triggered them; callers log and move on.
type Mirror interface {
	AppendRequest(ctx context.Context, code, telegramURL string, req models.Request) error
	UpdateStatus(ctx context.Context, code string, status models.Status, category models.Category, editedAt time.Time) error
}

// Service mirrors requests into one worksheet per category. A zero-value
// spreadsheet id makes every call a no-op so the bot runs without a ledger.
type Service struct {
	svc           *sheets.Service
	spreadsheetID string
}

func NewService(ctx context.Context, spreadsheetID, serviceAccountJSON string) (*Service, error) {
	if spreadsheetID == "" || serviceAccountJSON == "" {
		return &Service{}, nil
	}
	svc, err := sheets.NewService(ctx,
		option.WithCredentialsJSON([]byte(serviceAccountJSON)),
		option.WithScopes(sheets.SpreadsheetsScope))
	if err != nil {
		return nil, err
	}
	return &Service{svc: svc, spreadsheetID: spreadsheetID}, nil
}

// Enabled reports whether the mirror is configured.
func (s *Service) Enabled() bool { return s.svc != nil }

func (s *Service) AppendRequest(ctx context.Context, code, telegramURL string, req models.Request) error {
	if s.svc == nil {
		return nil
	}
	name := req.Category.Name()
	if err := s.ensureWorksheet(ctx, name); err != nil {
		return err
	}
	row := []interface{}{
		code,
		req.Name,
		req.Phone,
		req.Dorm,
		req.Details,
		req.Status.SheetName(),
		telegramURL,
		req.CreatedAt.Format(timeLayout),
		req.EditedAt.Format(timeLayout),
	}
	_, err := s.svc.Spreadsheets.Values.Append(s.spreadsheetID,
		fmt.Sprintf("'%s'!A1", name),
		&sheets.ValueRange{Values: [][]interface{}{row}}).
		ValueInputOption("USER_ENTERED").
		Context(ctx).Do()
	return err
}

func (s *Service) UpdateStatus(ctx context.Context, code string, status models.Status, category models.Category, editedAt time.Time) error {
	if s.svc == nil {
		return nil
	}
	name := category.Name()
	rowNum, err := s.findRowByCode(ctx, name, code)
	if err != nil {
		return err
	}
	_, err = s.svc.Spreadsheets.Values.BatchUpdate(s.spreadsheetID, &sheets.BatchUpdateValuesRequest{
		ValueInputOption: "USER_ENTERED",
		Data: []*sheets.ValueRange{
			{
				Range:  fmt.Sprintf("'%s'!%s%d", name, columnLetter(colStatus), rowNum),
				Values: [][]interface{}{{status.SheetName()}},
			},
			{
				Range:  fmt.Sprintf("'%s'!%s%d", name, columnLetter(colEditTimestamp), rowNum),
				Values: [][]interface{}{{editedAt.Format(timeLayout)}},
			},
		},
	}).Context(ctx).Do()
	return err
}

// ensureWorksheet creates the category's worksheet with a frozen title row
// the first time a request of that category is mirrored.
func (s *Service) ensureWorksheet(ctx context.Context, name string) error {
	sp, err := s.svc.Spreadsheets.Get(s.spreadsheetID).Context(ctx).Do()
	if err != nil {
		return err
	}
	for _, sh := range sp.Sheets {
		if sh.Properties != nil && sh.Properties.Title == name {
			return nil
		}
	}
	_, err = s.svc.Spreadsheets.BatchUpdate(s.spreadsheetID, &sheets.BatchUpdateSpreadsheetRequest{
		Requests: []*sheets.Request{{
			AddSheet: &sheets.AddSheetRequest{
				Properties: &sheets.SheetProperties{
					Title:          name,
					GridProperties: &sheets.GridProperties{FrozenRowCount: 1},
				},
			},
		}},
	}).Context(ctx).Do()
	if err != nil {
		return err
	}
	_, err = s.svc.Spreadsheets.Values.Append(s.spreadsheetID,
		fmt.Sprintf("'%s'!A1", name),
		&sheets.ValueRange{Values: [][]interface{}{titleRow}}).
		ValueInputOption("USER_ENTERED").
		Context(ctx).Do()
	return err
}

func (s *Service) findRowByCode(ctx context.Context, worksheet, code string) (int, error) {
	resp, err := s.svc.Spreadsheets.Values.Get(s.spreadsheetID,
		fmt.Sprintf("'%s'!%s:%s", worksheet, columnLetter(colTicketCode), columnLetter(colTicketCode))).
		Context(ctx).Do()
	if err != nil {
		return 0, err
	}
	for i, row := range resp.Values {
		if len(row) > 0 && fmt.Sprint(row[0]) == code {
			return i + 1, nil
		}
	}
	return 0, fmt.Errorf("sheets: code %s not found in worksheet %s", code, worksheet)
}

func columnLetter(n int) string {
	return string(rune('A' + n - 1))
}
