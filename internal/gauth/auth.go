// Package gauth authenticates against Google APIs, either through the OAuth
// device code flow with a token cached on disk or through a service account key.
package gauth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/jwt"

	"github.com/Tiliavir/nt-hours/internal/log"
	"github.com/Tiliavir/nt-hours/internal/storage"
)

// Scopes needed to read the Drive inbox and write spreadsheet ranges.
var Scopes = []string{
	"https://www.googleapis.com/auth/spreadsheets",
	"https://www.googleapis.com/auth/drive",
}

// Google is the OAuth endpoint used for the device code flow.
var Google = oauth2.Endpoint{
	DeviceAuthURL: "https://oauth2.googleapis.com/device/code",
	TokenURL:      "https://oauth2.googleapis.com/token",
	AuthStyle:     oauth2.AuthStyleInParams,
}

// ErrNotAuthenticated is returned when no usable token is stored.
var ErrNotAuthenticated = errors.New("not authenticated with Google; run 'nthours auth'")

// Options selects the credentials used for Google API calls.
type Options struct {
	ClientID           string
	ClientSecret       string
	ServiceAccountFile string
	// TokenFile overrides ~/.nthours/auth/google_tokens.json.
	TokenFile string
	// Endpoint overrides Google.
	Endpoint *oauth2.Endpoint
}

func (o Options) oauth2Config() *oauth2.Config {
	ep := Google
	if o.Endpoint != nil {
		ep = *o.Endpoint
	}
	return &oauth2.Config{
		ClientID:     o.ClientID,
		ClientSecret: o.ClientSecret,
		Scopes:       Scopes,
		Endpoint:     ep,
	}
}

func (o Options) tokenFile() (string, error) {
	if o.TokenFile != "" {
		return o.TokenFile, nil
	}
	base, err := storage.BaseDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(base, "auth", "google_tokens.json"), nil
}

// loadToken loads a previously saved token from disk. A missing file yields
// a nil token and no error.
func loadToken(path string) (*oauth2.Token, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading token file: %w", err)
	}
	var tok oauth2.Token
	if err := json.Unmarshal(data, &tok); err != nil {
		return nil, fmt.Errorf("corrupt token file (delete %s to re-authenticate): %w", path, err)
	}
	return &tok, nil
}

// saveToken persists a token to disk.
func saveToken(path string, tok *oauth2.Token) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("creating auth directory: %w", err)
	}
	data, err := json.MarshalIndent(tok, "", "  ")
	if err != nil {
		return fmt.Errorf("marshalling token: %w", err)
	}
	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0o600); err != nil {
		return fmt.Errorf("writing token file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("saving token file: %w", err)
	}
	return nil
}

// savingTokenSource wraps a TokenSource and persists refreshed tokens.
type savingTokenSource struct {
	ts   oauth2.TokenSource
	path string
	last string
}

func (s *savingTokenSource) Token() (*oauth2.Token, error) {
	tok, err := s.ts.Token()
	if err != nil {
		return nil, err
	}
	if tok.AccessToken != s.last {
		s.last = tok.AccessToken
		if err := saveToken(s.path, tok); err != nil {
			log.Error("saving refreshed token", err)
		}
	}
	return tok, nil
}

// HTTPClient returns an authenticated HTTP client. A configured service
// account takes precedence; otherwise the stored device flow token is used
// and refreshed as needed.
func HTTPClient(ctx context.Context, o Options) (*http.Client, error) {
	if o.ServiceAccountFile != "" {
		cfg, err := serviceAccountConfig(o.ServiceAccountFile)
		if err != nil {
			return nil, err
		}
		return cfg.Client(ctx), nil
	}

	path, err := o.tokenFile()
	if err != nil {
		return nil, err
	}
	tok, err := loadToken(path)
	if err != nil {
		return nil, err
	}
	if tok == nil || (!tok.Valid() && tok.RefreshToken == "") {
		return nil, ErrNotAuthenticated
	}
	ts := o.oauth2Config().TokenSource(ctx, tok)
	return oauth2.NewClient(ctx, &savingTokenSource{ts: ts, path: path, last: tok.AccessToken}), nil
}

// Login runs the device code flow, printing the verification URL and user
// code to out, and stores the resulting token.
func Login(ctx context.Context, o Options, out io.Writer) error {
	if o.ClientID == "" {
		return errors.New("google.client_id is not configured")
	}
	path, err := o.tokenFile()
	if err != nil {
		return err
	}
	cfg := o.oauth2Config()

	resp, err := cfg.DeviceAuth(ctx)
	if err != nil {
		return fmt.Errorf("device auth request failed: %w", err)
	}

	fmt.Fprintln(out)
	fmt.Fprintln(out, "To sign in, use a web browser to open the page:")
	fmt.Fprintf(out, "  %s\n", resp.VerificationURI)
	fmt.Fprintf(out, "Enter the code: %s\n", resp.UserCode)
	fmt.Fprintln(out)

	tok, err := cfg.DeviceAccessToken(ctx, resp)
	if err != nil {
		return fmt.Errorf("device authentication failed: %w", err)
	}
	return saveToken(path, tok)
}

// serviceAccountKey is the subset of a Google service account JSON key we need.
type serviceAccountKey struct {
	Type         string `json:"type"`
	ClientEmail  string `json:"client_email"`
	PrivateKey   string `json:"private_key"`
	PrivateKeyID string `json:"private_key_id"`
	TokenURI     string `json:"token_uri"`
}

func serviceAccountConfig(path string) (*jwt.Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading service account key: %w", err)
	}
	var key serviceAccountKey
	if err := json.Unmarshal(data, &key); err != nil {
		return nil, fmt.Errorf("parsing service account key %s: %w", path, err)
	}
	if key.Type != "service_account" || key.ClientEmail == "" || key.PrivateKey == "" {
		return nil, fmt.Errorf("%s is not a service account key", path)
	}
	tokenURL := key.TokenURI
	if tokenURL == "" {
		tokenURL = Google.TokenURL
	}
	return &jwt.Config{
		Email:        key.ClientEmail,
		PrivateKey:   []byte(key.PrivateKey),
		PrivateKeyID: key.PrivateKeyID,
		Scopes:       Scopes,
		TokenURL:     tokenURL,
	}, nil
}
