package sheets

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"

	"google.golang.org/api/option"
	sheetsapi "google.golang.org/api/sheets/v4"
)

// Record is one data row keyed by the header row
type Record map[string]string

// Client reads worksheets of one spreadsheet
type Client struct {
	srv           *sheetsapi.Service
	spreadsheetID string
}

// ParseCredentials resolves a service-account key given either inline or as a file path.
// The value is parsed as strict JSON first; anything that is not a JSON object is read as a path.
func ParseCredentials(value string) ([]byte, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, fmt.Errorf("empty credentials")
	}

	var obj map[string]interface{}
	if err := json.Unmarshal([]byte(value), &obj); err == nil {
		return []byte(value), nil
	}

	data, err := os.ReadFile(value)
	if err != nil {
		return nil, fmt.Errorf("read credentials file: %w", err)
	}
	if err := json.Unmarshal(data, &obj); err != nil {
		return nil, fmt.Errorf("parse credentials file: %w", err)
	}
	return data, nil
}

// NewClient creates a read-only client authenticated with a service-account key (inline JSON or path)
func NewClient(ctx context.Context, spreadsheetID, credentials string) (*Client, error) {
	creds, err := ParseCredentials(credentials)
	if err != nil {
		return nil, err
	}
	return NewClientWithOptions(ctx, spreadsheetID,
		option.WithCredentialsJSON(creds),
		option.WithScopes(sheetsapi.SpreadsheetsReadonlyScope),
	)
}

// NewClientWithOptions creates a client with explicit API options
func NewClientWithOptions(ctx context.Context, spreadsheetID string, opts ...option.ClientOption) (*Client, error) {
	if spreadsheetID == "" {
		return nil, fmt.Errorf("spreadsheet ID is required")
	}
	srv, err := sheetsapi.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return &Client{srv: srv, spreadsheetID: spreadsheetID}, nil
}

// Records reads a whole worksheet. The first row is the header;
// blank rows are dropped and missing trailing cells read as "".
func (c *Client) Records(ctx context.Context, sheetName string) ([]Record, error) {
	resp, err := c.srv.Spreadsheets.Values.Get(c.spreadsheetID, quoteSheet(sheetName)).
		ValueRenderOption("FORMATTED_VALUE").
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("get values of %q: %w", sheetName, err)
	}

	if len(resp.Values) == 0 {
		return nil, nil
	}

	header := make([]string, len(resp.Values[0]))
	for i, cell := range resp.Values[0] {
		header[i] = strings.TrimSpace(cellString(cell))
	}

	records := make([]Record, 0, len(resp.Values)-1)
	for _, row := range resp.Values[1:] {
		rec := make(Record, len(header))
		blank := true
		for i, key := range header {
			if key == "" {
				continue
			}
			var v string
			if i < len(row) {
				v = cellString(row[i])
			}
			if strings.TrimSpace(v) != "" {
				blank = false
			}
			rec[key] = v
		}
		if !blank {
			records = append(records, rec)
		}
	}

	fmt.Printf("[Sheets] Read %d rows from %q\n", len(records), sheetName)
	return records, nil
}

func quoteSheet(name string) string {
	return "'" + strings.ReplaceAll(name, "'", "''") + "'"
}

func cellString(v interface{}) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		// no exponent, so phone numbers survive
		return strconv.FormatFloat(t, 'f', -1, 64)
	default:
		return fmt.Sprint(t)
	}
}
