// Command oauth-init runs the OAuth consent flow once and stores the token
// the journal worker uses to write to Google Sheets.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"time"

	"budgetbuddy/internal/cli"
	"budgetbuddy/internal/config"
	"budgetbuddy/internal/log"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/sheets/v4"
)

const (
	defaultRedirectPort = "8085"
	defaultTokenFile    = "token.json"
	authTimeout         = 5 * time.Minute
)

func main() {
	cli.LoadEnvFile()
	cfg := config.Load()
	logger := cli.SetupLoggerOutput(cfg.LogLevel, os.Stderr)

	if err := run(cfg, logger); err != nil {
		logger.Error("OAuth initialization failed", log.FieldError, err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *log.Logger) error {
	b, err := clientCredentials(cfg)
	if err != nil {
		return err
	}
	oauthCfg, err := google.ConfigFromJSON(b, sheets.SpreadsheetsScope)
	if err != nil {
		return fmt.Errorf("oauth config: %w", err)
	}

	// The redirect URI must be registered on the OAuth client.
	redirectPort := os.Getenv("OAUTH_REDIRECT_PORT")
	if redirectPort == "" {
		redirectPort = defaultRedirectPort
	}
	oauthCfg.RedirectURL = "http://localhost:" + redirectPort + "/callback"

	codeCh := make(chan string, 1)
	mux := http.NewServeMux()
	srv := &http.Server{Addr: ":" + redirectPort, Handler: mux, ReadHeaderTimeout: 10 * time.Second}
	mux.HandleFunc("/callback", func(w http.ResponseWriter, r *http.Request) {
		if errStr := r.URL.Query().Get("error"); errStr != "" {
			http.Error(w, "OAuth error: "+errStr, http.StatusBadRequest)
			return
		}
		fmt.Fprintln(w, "You may close this window and return to the terminal.")
		select {
		case codeCh <- r.URL.Query().Get("code"):
		default:
		}
	})
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Callback server failed", log.FieldError, err)
		}
	}()
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}()

	fmt.Printf("Open this URL to authorize:\n%s\n", oauthCfg.AuthCodeURL("state-token", oauth2.AccessTypeOffline))

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt)

	select {
	case code := <-codeCh:
		tok, err := oauthCfg.Exchange(context.Background(), code)
		if err != nil {
			return fmt.Errorf("token exchange: %w", err)
		}
		outFile := cfg.GoogleOAuthTokenFile
		if outFile == "" {
			outFile = defaultTokenFile
		}
		if err := saveToken(outFile, tok); err != nil {
			return err
		}
		logger.Info("Saved OAuth token", "path", outFile)
		return nil
	case <-time.After(authTimeout):
		return errors.New("authorization timed out")
	case <-sigCh:
		return errors.New("interrupted")
	}
}

func clientCredentials(cfg *config.Config) ([]byte, error) {
	switch {
	case cfg.GoogleOAuthClientJSON != "":
		return []byte(cfg.GoogleOAuthClientJSON), nil
	case cfg.GoogleOAuthClientFile != "":
		b, err := os.ReadFile(cfg.GoogleOAuthClientFile)
		if err != nil {
			return nil, fmt.Errorf("read client file: %w", err)
		}
		return b, nil
	default:
		return nil, errors.New("set GOOGLE_OAUTH_CLIENT_JSON or GOOGLE_OAUTH_CLIENT_FILE")
	}
}

func saveToken(path string, tok *oauth2.Token) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0600)
	if err != nil {
		return fmt.Errorf("open token file: %w", err)
	}
	defer f.Close()
	if err := json.NewEncoder(f).Encode(tok); err != nil {
		return fmt.Errorf("write token: %w", err)
	}
	return nil
}
