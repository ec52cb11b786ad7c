// Package google writes the ledger journal to a Google Sheets tab.
package google

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	ports "budgetbuddy/internal/sheets"

	"golang.org/x/oauth2"
	goauth "golang.org/x/oauth2/google"
	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

// Config selects the spreadsheet and the credentials. A service account
// takes precedence over an OAuth client and token.
type Config struct {
	SpreadsheetID string
	SheetName     string // base name; the current year is prefixed

	ServiceAccountJSON string
	ServiceAccountFile string

	OAuthClientJSON string
	OAuthClientFile string
	OAuthTokenJSON  string
	OAuthTokenFile  string
}

type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	journalSheet  string
}

var (
	_ ports.JournalWriter = (*Client)(nil)
	_ ports.JournalReader = (*Client)(nil)
)

// jsonUnmarshal is indirected for tests.
var jsonUnmarshal = json.Unmarshal

// New creates a Sheets client for cfg.
func New(ctx context.Context, cfg Config) (*Client, error) {
	spreadsheetID := strings.TrimSpace(cfg.SpreadsheetID)
	if spreadsheetID == "" {
		return nil, errors.New("missing GOOGLE_SPREADSHEET_ID")
	}
	base := strings.TrimSpace(cfg.SheetName)
	if base == "" {
		base = "Journal"
	}

	svc, err := newSheetsService(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}
	return &Client{
		svc:           svc,
		spreadsheetID: spreadsheetID,
		journalSheet:  yearPrefixedName(base, time.Now().Year()),
	}, nil
}

func newSheetsService(ctx context.Context, cfg Config) (*gsheet.Service, error) {
	saJSON := strings.TrimSpace(cfg.ServiceAccountJSON)
	saFile := strings.TrimSpace(cfg.ServiceAccountFile)
	if saJSON != "" || saFile != "" {
		creds := []byte(saJSON)
		if saJSON == "" {
			b, err := os.ReadFile(saFile)
			if err != nil {
				return nil, fmt.Errorf("read service account file: %w", err)
			}
			creds = b
		}
		slog.InfoContext(ctx, "Creating Google Sheets service with Service Account",
			"credentials_size", len(creds),
			"scope", gsheet.SpreadsheetsScope)
		svc, err := gsheet.NewService(ctx,
			goption.WithCredentialsJSON(creds),
			goption.WithScopes(gsheet.SpreadsheetsScope))
		if err != nil {
			return nil, fmt.Errorf("create sheets service: %w", err)
		}
		return svc, nil
	}

	clientJSON, err := readEither(cfg.OAuthClientJSON, cfg.OAuthClientFile)
	if err != nil {
		return nil, fmt.Errorf("read oauth client file: %w", err)
	}
	if clientJSON == nil {
		return nil, errors.New("missing oauth client (set GOOGLE_OAUTH_CLIENT_JSON or GOOGLE_OAUTH_CLIENT_FILE)")
	}
	tokenJSON, err := readEither(cfg.OAuthTokenJSON, cfg.OAuthTokenFile)
	if err != nil {
		return nil, fmt.Errorf("read oauth token file: %w", err)
	}
	if tokenJSON == nil {
		return nil, errors.New("missing oauth token (set GOOGLE_OAUTH_TOKEN_JSON or GOOGLE_OAUTH_TOKEN_FILE)")
	}

	oauthCfg, err := goauth.ConfigFromJSON(clientJSON, gsheet.SpreadsheetsScope)
	if err != nil {
		return nil, fmt.Errorf("oauth config: %w", err)
	}
	var tok oauth2.Token
	if err := jsonUnmarshal(tokenJSON, &tok); err != nil {
		return nil, fmt.Errorf("oauth token: %w", err)
	}

	// token refreshes go through the pooled client too
	ctx = context.WithValue(ctx, oauth2.HTTPClient, newHTTPClientWithPooling())
	svc, err := gsheet.NewService(ctx, goption.WithHTTPClient(oauthCfg.Client(ctx, &tok)))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return svc, nil
}

// readEither returns inline data, the file contents, or nil when both are empty.
func readEither(inline, path string) ([]byte, error) {
	if s := strings.TrimSpace(inline); s != "" {
		return []byte(s), nil
	}
	if p := strings.TrimSpace(path); p != "" {
		return os.ReadFile(p)
	}
	return nil, nil
}

// newHTTPClientWithPooling creates an HTTP client tuned for the Sheets API.
func newHTTPClientWithPooling() *http.Client {
	dialer := &net.Dialer{
		Timeout:   30 * time.Second,
		KeepAlive: 30 * time.Second,
	}
	transport := &http.Transport{
		DialContext:           dialer.DialContext,
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   10,
		MaxConnsPerHost:       50,
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

// AppendJournal appends row after the last filled row of the journal tab.
func (c *Client) AppendJournal(ctx context.Context, row ports.JournalRow) (string, error) {
	if c.svc == nil {
		return "", errors.New("sheets service not initialized")
	}
	rng := fmt.Sprintf("%s!A:N", c.journalSheet)
	vr := &gsheet.ValueRange{Values: [][]any{row.Values()}}

	resp, err := c.svc.Spreadsheets.Values.Append(c.spreadsheetID, rng, vr).
		ValueInputOption("RAW").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("append to sheet %s: %w", c.journalSheet, err)
	}
	if resp.Updates != nil && resp.Updates.UpdatedRange != "" {
		return resp.Updates.UpdatedRange, nil
	}
	return rng, nil
}

// ListJournal reads every journal row, skipping the header and blank rows.
func (c *Client) ListJournal(ctx context.Context) ([]ports.JournalRow, error) {
	if c.svc == nil {
		return nil, errors.New("sheets service not initialized")
	}
	rng := fmt.Sprintf("%s!A:N", c.journalSheet)
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", rng, err)
	}
	return parseRows(resp.Values), nil
}

func parseRows(values [][]any) []ports.JournalRow {
	var out []ports.JournalRow
	for _, raw := range values {
		if row, ok := ports.ParseRow(toStrings(raw)); ok {
			out = append(out, row)
		}
	}
	return out
}

func toStrings(in []any) []string {
	out := make([]string, len(in))
	for i, v := range in {
		out[i] = strings.TrimSpace(fmt.Sprint(v))
	}
	return out
}

// yearPrefixedName returns "<year> <base>" unless base already starts with a 4-digit year.
func yearPrefixedName(base string, year int) string {
	base = strings.TrimSpace(base)
	if base == "" {
		return base
	}
	if len(base) >= 5 {
		if y, err := strconv.Atoi(base[0:4]); err == nil && base[4] == ' ' && y > 1900 && y < 3000 {
			return base
		}
	}
	return fmt.Sprintf("%d %s", year, base)
}
