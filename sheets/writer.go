package sheets

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"strings"

	"page-notifier/models"

	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

// DefaultSheetName is the tab notifications are appended to
const DefaultSheetName = "Notifications"

var header = []interface{}{"Timestamp", "Title", "Changed page"}

// Writer appends every sent notification to a Google Sheets tab
type Writer struct {
	service       *sheets.Service
	spreadsheetID string
	sheetName     string
}

// NewWriter creates a new Google Sheets writer from service account credentials.
// The credentials file wins over inline JSON when both are given.
func NewWriter(ctx context.Context, spreadsheetID, credentialsPath, credentialsJSON string) (*Writer, error) {
	credsJSON, err := loadCredentials(credentialsPath, credentialsJSON)
	if err != nil {
		return nil, err
	}

	return NewWriterWithOptions(ctx, spreadsheetID, DefaultSheetName, option.WithCredentialsJSON(credsJSON))
}

func loadCredentials(credentialsPath, credentialsJSON string) ([]byte, error) {
	var credsJSON []byte
	if credentialsPath != "" {
		data, err := os.ReadFile(credentialsPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read credentials file: %w", err)
		}
		credsJSON = data
	} else {
		credentialsJSON = strings.TrimSpace(credentialsJSON)
		if credentialsJSON == "" {
			return nil, fmt.Errorf("credentials not found: set sheets.credentials_path or GOOGLE_SHEETS_CREDENTIALS")
		}
		log.Printf("Reading credentials from GOOGLE_SHEETS_CREDENTIALS environment variable (%d bytes)\n", len(credentialsJSON))
		credsJSON = []byte(credentialsJSON)
	}

	var creds map[string]interface{}
	if err := json.Unmarshal(credsJSON, &creds); err != nil {
		return nil, fmt.Errorf("invalid credentials JSON (check if JSON is properly formatted): %w", err)
	}
	if creds["type"] != "service_account" {
		return nil, fmt.Errorf("credentials must be a service account JSON file (type: service_account), got type: %v", creds["type"])
	}
	return credsJSON, nil
}

// NewWriterWithOptions creates a writer with explicit client options
func NewWriterWithOptions(ctx context.Context, spreadsheetID, sheetName string, opts ...option.ClientOption) (*Writer, error) {
	if spreadsheetID == "" {
		return nil, fmt.Errorf("spreadsheet ID is required")
	}

	service, err := sheets.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create sheets service: %w", err)
	}

	return &Writer{
		service:       service,
		spreadsheetID: spreadsheetID,
		sheetName:     sanitizeSheetName(sheetName),
	}, nil
}

// EnsureSheet creates the notifications tab with a header row if it does not exist yet
func (w *Writer) EnsureSheet(ctx context.Context) error {
	spreadsheet, err := w.service.Spreadsheets.Get(w.spreadsheetID).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("failed to get spreadsheet: %w", err)
	}

	for _, s := range spreadsheet.Sheets {
		if s.Properties != nil && s.Properties.Title == w.sheetName {
			return nil
		}
	}

	req := &sheets.BatchUpdateSpreadsheetRequest{
		Requests: []*sheets.Request{{
			AddSheet: &sheets.AddSheetRequest{
				Properties: &sheets.SheetProperties{Title: w.sheetName},
			},
		}},
	}
	if _, err := w.service.Spreadsheets.BatchUpdate(w.spreadsheetID, req).Context(ctx).Do(); err != nil {
		return fmt.Errorf("failed to create sheet: %w", err)
	}

	valueRange := &sheets.ValueRange{Values: [][]interface{}{header}}
	_, err = w.service.Spreadsheets.Values.Update(w.spreadsheetID, w.sheetName+"!A1", valueRange).
		ValueInputOption("RAW").
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	log.Printf("Created sheet '%s'\n", w.sheetName)
	return nil
}

// Record appends one row per changed page, or a single row when nothing
// changed. It implements notifier.Recorder.
func (w *Writer) Record(ctx context.Context, msg models.Message) error {
	valueRange := &sheets.ValueRange{Values: messageRows(msg)}

	_, err := w.service.Spreadsheets.Values.Append(w.spreadsheetID, w.sheetName+"!A:C", valueRange).
		ValueInputOption("RAW").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("failed to append to sheet: %w", err)
	}

	return nil
}

func messageRows(msg models.Message) [][]interface{} {
	ts := msg.Timestamp.Format(models.TimestampLayout)
	if len(msg.ChangedURLs) == 0 {
		return [][]interface{}{{ts, msg.Title, ""}}
	}

	rows := make([][]interface{}, 0, len(msg.ChangedURLs))
	for _, url := range msg.ChangedURLs {
		rows = append(rows, []interface{}{ts, msg.Title, url})
	}
	return rows
}

// sanitizeSheetName removes invalid characters from sheet name
func sanitizeSheetName(name string) string {
	// Google Sheets sheet names cannot contain: / \ ? * [ ]
	invalidChars := []string{"/", "\\", "?", "*", "[", "]"}
	result := name
	for _, char := range invalidChars {
		result = strings.ReplaceAll(result, char, "_")
	}
	result = strings.TrimSpace(result)
	if result == "" {
		result = DefaultSheetName
	}
	return result
}

// ExtractSpreadsheetID extracts the spreadsheet ID from a Google Sheets URL
func ExtractSpreadsheetID(url string) string {
	// https://docs.google.com/spreadsheets/d/SPREADSHEET_ID/edit?usp=sharing
	parts := strings.Split(url, "/d/")
	if len(parts) < 2 {
		return ""
	}

	idPart := parts[1]
	if idx := strings.Index(idPart, "/"); idx != -1 {
		idPart = idPart[:idx]
	}
	if idx := strings.Index(idPart, "?"); idx != -1 {
		idPart = idPart[:idx]
	}

	return idPart
}
