// Package google exports monthly summaries to a Google Sheets spreadsheet,
// one tab per month.
package google

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"strings"
	"time"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"fintrack/internal/core"
	"fintrack/internal/log"
	ports "fintrack/internal/sheets"
)

// DefaultSheetPrefix names tabs "Resumo YYYY-MM".
const DefaultSheetPrefix = "Resumo"

// Config selects the spreadsheet and the service account used to reach it.
type Config struct {
	SpreadsheetID string
	SheetPrefix   string
	// CredentialsJSON takes precedence over CredentialsFile.
	CredentialsJSON string
	CredentialsFile string
}

type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	prefix        string
	logger        *log.Logger
}

// Ensure interface conformance
var _ ports.SummaryStore = (*Client)(nil)

// New creates a Sheets client authenticated with a service account.
func New(ctx context.Context, cfg Config, logger *log.Logger) (*Client, error) {
	if strings.TrimSpace(cfg.SpreadsheetID) == "" {
		return nil, errors.New("missing GOOGLE_SPREADSHEET_ID")
	}
	if logger == nil {
		logger = log.Discard()
	}
	logger = logger.WithComponent(log.ComponentSheets)

	credentialsJSON, err := loadCredentials(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	svc, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(credentialsJSON),
		goption.WithScopes(gsheet.SpreadsheetsScope),
		goption.WithHTTPClient(newHTTPClientWithPooling()))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}

	logger.InfoContext(ctx, "Google Sheets service created")
	return NewWithService(svc, cfg.SpreadsheetID, cfg.SheetPrefix, logger), nil
}

// NewWithService wraps an existing service, for tests and custom endpoints.
func NewWithService(svc *gsheet.Service, spreadsheetID, prefix string, logger *log.Logger) *Client {
	if strings.TrimSpace(prefix) == "" {
		prefix = DefaultSheetPrefix
	}
	if logger == nil {
		logger = log.Discard()
	}
	return &Client{
		svc:           svc,
		spreadsheetID: spreadsheetID,
		prefix:        strings.TrimSpace(prefix),
		logger:        logger.WithComponent(log.ComponentSheets),
	}
}

func loadCredentials(ctx context.Context, cfg Config, logger *log.Logger) ([]byte, error) {
	inline := strings.TrimSpace(cfg.CredentialsJSON)
	file := strings.TrimSpace(cfg.CredentialsFile)
	if inline == "" && file == "" {
		file = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}

	switch {
	case inline != "":
		logger.DebugContext(ctx, "Using inline JSON credentials")
		return []byte(inline), nil
	case file != "":
		logger.DebugContext(ctx, "Reading credentials from file", "path", file)
		data, err := os.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		return data, nil
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")
	}
}

// newHTTPClientWithPooling creates an HTTP client tuned for the Sheets API.
func newHTTPClientWithPooling() *http.Client {
	dialer := &net.Dialer{
		Timeout:   30 * time.Second,
		KeepAlive: 30 * time.Second,
	}

	transport := &http.Transport{
		DialContext:           dialer.DialContext,
		MaxIdleConns:          20,
		MaxIdleConnsPerHost:   5,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: 30 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		ForceAttemptHTTP2:     true,
	}

	return &http.Client{
		Transport: transport,
		Timeout:   60 * time.Second,
	}
}

// SheetName returns the tab that holds month, e.g. "Resumo 2026-01".
func (c *Client) SheetName(month string) string {
	return c.prefix + " " + month
}

// a1 quotes the tab name, which contains a space.
func a1(sheet, cells string) string {
	return "'" + strings.ReplaceAll(sheet, "'", "''") + "'!" + cells
}

// WriteSummary clears the month's tab, creating it when missing, and writes
// the summary from A1.
func (c *Client) WriteSummary(ctx context.Context, s core.MonthlySummary) (string, error) {
	if c.svc == nil {
		return "", errors.New("sheets service not initialized")
	}
	if _, err := core.ParseMonth(s.Month); err != nil {
		return "", fmt.Errorf("write summary: %w", err)
	}

	sheet := c.SheetName(s.Month)
	exists, err := c.hasSheet(ctx, sheet)
	if err != nil {
		return "", err
	}
	if !exists {
		if err := c.addSheet(ctx, sheet); err != nil {
			return "", err
		}
	}

	if _, err := c.svc.Spreadsheets.Values.Clear(c.spreadsheetID, a1(sheet, "A:E"), &gsheet.ClearValuesRequest{}).
		Context(ctx).Do(); err != nil {
		return "", fmt.Errorf("clear %s: %w", sheet, err)
	}

	rows := summaryRows(s)
	ref := a1(sheet, fmt.Sprintf("A1:E%d", len(rows)))
	if _, err := c.svc.Spreadsheets.Values.Update(c.spreadsheetID, ref, &gsheet.ValueRange{Values: rows}).
		ValueInputOption("RAW").Context(ctx).Do(); err != nil {
		return "", fmt.Errorf("update %s: %w", ref, err)
	}

	c.logger.InfoContext(ctx, "Summary exported",
		log.FieldMonth, s.Month,
		log.FieldSheetsRef, ref)
	return ref, nil
}

// ReadSummary parses a previously exported tab back into a summary.
func (c *Client) ReadSummary(ctx context.Context, month string) (core.MonthlySummary, bool, error) {
	if c.svc == nil {
		return core.MonthlySummary{}, false, errors.New("sheets service not initialized")
	}
	sheet := c.SheetName(month)
	exists, err := c.hasSheet(ctx, sheet)
	if err != nil || !exists {
		return core.MonthlySummary{}, false, err
	}

	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, a1(sheet, "A:E")).Context(ctx).Do()
	if err != nil {
		return core.MonthlySummary{}, false, fmt.Errorf("read %s: %w", sheet, err)
	}
	if len(resp.Values) == 0 {
		return core.MonthlySummary{}, false, nil
	}
	s, err := parseSummary(resp.Values)
	if err != nil {
		return core.MonthlySummary{}, false, fmt.Errorf("parse %s: %w", sheet, err)
	}
	return s, true, nil
}

func (c *Client) hasSheet(ctx context.Context, title string) (bool, error) {
	ss, err := c.svc.Spreadsheets.Get(c.spreadsheetID).Fields("sheets.properties.title").Context(ctx).Do()
	if err != nil {
		return false, fmt.Errorf("read spreadsheet %s: %w", c.spreadsheetID, err)
	}
	for _, sh := range ss.Sheets {
		if sh.Properties != nil && sh.Properties.Title == title {
			return true, nil
		}
	}
	return false, nil
}

func (c *Client) addSheet(ctx context.Context, title string) error {
	req := &gsheet.BatchUpdateSpreadsheetRequest{
		Requests: []*gsheet.Request{{
			AddSheet: &gsheet.AddSheetRequest{
				Properties: &gsheet.SheetProperties{Title: title},
			},
		}},
	}
	if _, err := c.svc.Spreadsheets.BatchUpdate(c.spreadsheetID, req).Context(ctx).Do(); err != nil {
		return fmt.Errorf("add sheet %s: %w", title, err)
	}
	c.logger.InfoContext(ctx, "Sheet created", "sheet", title)
	return nil
}
