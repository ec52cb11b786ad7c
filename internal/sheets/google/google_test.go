package google

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"budgetbuddy/internal/sheets"

	"golang.org/x/oauth2"
)

const testClientJSON = `{"installed":{"client_id":"test","client_secret":"test","redirect_uris":["http://localhost"],"auth_uri":"https://accounts.google.com/o/oauth2/auth","token_uri":"https://oauth2.googleapis.com/token"}}`

func TestNew_MissingSpreadsheetID(t *testing.T) {
	_, err := New(context.Background(), Config{})
	if err == nil {
		t.Fatal("expected error for missing spreadsheet id")
	}
	if err.Error() != "missing GOOGLE_SPREADSHEET_ID" {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestJsonUnmarshalIndirection(t *testing.T) {
	var token oauth2.Token
	if err := jsonUnmarshal([]byte(`{"access_token":"test","token_type":"Bearer"}`), &token); err != nil {
		t.Fatalf("jsonUnmarshal failed: %v", err)
	}
	if token.AccessToken != "test" {
		t.Errorf("expected access token 'test', got %s", token.AccessToken)
	}
	if err := jsonUnmarshal([]byte(`{invalid json}`), &token); err == nil {
		t.Fatal("expected error with invalid JSON")
	}
}

func TestNewSheetsService_Credentials(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr string
	}{
		{
			name:    "missing oauth client",
			cfg:     Config{},
			wantErr: "missing oauth client (set GOOGLE_OAUTH_CLIENT_JSON or GOOGLE_OAUTH_CLIENT_FILE)",
		},
		{
			name:    "missing oauth token",
			cfg:     Config{OAuthClientJSON: testClientJSON},
			wantErr: "missing oauth token (set GOOGLE_OAUTH_TOKEN_JSON or GOOGLE_OAUTH_TOKEN_FILE)",
		},
		{
			name:    "invalid token JSON",
			cfg:     Config{OAuthClientJSON: testClientJSON, OAuthTokenJSON: "invalid-json"},
			wantErr: "oauth token",
		},
		{
			name:    "invalid client JSON",
			cfg:     Config{OAuthClientJSON: "invalid-json", OAuthTokenJSON: `{"access_token":"test"}`},
			wantErr: "oauth config",
		},
		{
			name:    "unreadable client file",
			cfg:     Config{OAuthClientFile: filepath.Join(os.TempDir(), "does-not-exist", "client.json")},
			wantErr: "read oauth client file",
		},
		{
			name:    "unreadable service account file",
			cfg:     Config{ServiceAccountFile: filepath.Join(os.TempDir(), "does-not-exist", "sa.json")},
			wantErr: "read service account file",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := newSheetsService(context.Background(), tt.cfg)
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("expected error containing %q, got %q", tt.wantErr, err.Error())
			}
		})
	}
}

func TestNewSheetsService_OAuthFromFiles(t *testing.T) {
	dir := t.TempDir()
	clientFile := filepath.Join(dir, "client.json")
	tokenFile := filepath.Join(dir, "token.json")
	if err := os.WriteFile(clientFile, []byte(testClientJSON), 0o600); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(tokenFile, []byte(`{"access_token":"test","token_type":"Bearer"}`), 0o600); err != nil {
		t.Fatal(err)
	}

	svc, err := newSheetsService(context.Background(), Config{OAuthClientFile: clientFile, OAuthTokenFile: tokenFile})
	if err != nil {
		t.Fatalf("newSheetsService: %v", err)
	}
	if svc == nil {
		t.Fatal("expected a service")
	}
}

func TestYearPrefixedName(t *testing.T) {
	tests := []struct {
		base string
		want string
	}{
		{"Journal", "2025 Journal"},
		{"  Journal  ", "2025 Journal"},
		{"2024 Journal", "2024 Journal"},
		{"1234Journal", "2025 1234Journal"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := yearPrefixedName(tt.base, 2025); got != tt.want {
			t.Errorf("yearPrefixedName(%q) = %q, want %q", tt.base, got, tt.want)
		}
	}
}

func TestParseRows(t *testing.T) {
	header := make([]any, len(sheets.JournalHeader))
	for i, h := range sheets.JournalHeader {
		header[i] = h
	}
	rows := parseRows([][]any{
		header,
		{},
		{"2024-02-01T10:00:00Z", "e1", "transaction.recorded", "t1", "expense", "Lunch", "Food", "12.50"},
	})
	if len(rows) != 1 {
		t.Fatalf("expected one row, got %d", len(rows))
	}
	if rows[0].TransactionID != "t1" || rows[0].Amount != "12.50" || rows[0].Fee != "" {
		t.Errorf("unexpected row: %+v", rows[0])
	}
}

func TestClientNotInitialized(t *testing.T) {
	c := &Client{spreadsheetID: "test"}
	if _, err := c.AppendJournal(context.Background(), sheets.JournalRow{}); err == nil {
		t.Error("AppendJournal should fail without a service")
	}
	if _, err := c.ListJournal(context.Background()); err == nil {
		t.Error("ListJournal should fail without a service")
	}
}
