package sheets

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/drive/v3"
	"google.golang.org/api/option"
	sheetsapi "google.golang.org/api/sheets/v4"
)

// AuthMode selects how the source authenticates against Google.
type AuthMode string

const (
	AuthServiceAccount AuthMode = "service"
	AuthOAuth2         AuthMode = "oauth2"
)

const defaultRedirectURL = "http://localhost:9999"

// ErrAuthorizationRequired is returned when an OAuth2 credentials file holds
// neither a refresh token nor an authorization code. The error text carries
// the consent URL.
var ErrAuthorizationRequired = errors.New("oauth2 authorization required")

// Scopes are the read-only scopes the source needs.
var Scopes = []string{
	drive.DriveMetadataReadonlyScope,
	sheetsapi.SpreadsheetsReadonlyScope,
}

// ServiceAccount holds inline service account credentials. They are used
// instead of the key file when ProjectID, PrivateKey and ClientEmail are set.
type ServiceAccount struct {
	ProjectID    string
	PrivateKey   string //nolint:gosec // G117: credential config
	PrivateKeyID string
	ClientEmail  string
	ClientID     string
}

// Complete reports whether the inline credentials can be used.
func (s ServiceAccount) Complete() bool {
	return s.ProjectID != "" && s.PrivateKey != "" && s.ClientEmail != ""
}

// AuthConfig is resolved once, when the source is built.
type AuthConfig struct {
	Mode           AuthMode
	KeyFile        string
	ServiceAccount ServiceAccount
	OAuth2File     string
	// OAuth2Endpoint overrides google.Endpoint.
	OAuth2Endpoint oauth2.Endpoint
}

// oauth2File is the on-disk OAuth2 credentials format.
type oauth2File struct {
	RedirectURL       string `json:"redirect_url,omitempty"`
	ClientID          string `json:"client_id"`
	ClientSecret      string `json:"client_secret"` //nolint:gosec // G117: credential file
	AuthorizationCode string `json:"authorization_code,omitempty"`
	AccessToken       string `json:"access_token,omitempty"`
	RefreshToken      string `json:"refresh_token,omitempty"`
}

// ClientOption builds the API client option for cfg.
func ClientOption(ctx context.Context, cfg AuthConfig) (option.ClientOption, error) {
	switch cfg.Mode {
	case AuthOAuth2:
		ts, err := OAuth2TokenSource(ctx, cfg)
		if err != nil {
			return nil, err
		}
		return option.WithTokenSource(ts), nil
	case AuthServiceAccount, "":
		creds, err := serviceAccountCredentials(ctx, cfg)
		if err != nil {
			return nil, err
		}
		return option.WithCredentials(creds), nil
	default:
		return nil, fmt.Errorf("unknown auth mode %q", cfg.Mode)
	}
}

func serviceAccountCredentials(ctx context.Context, cfg AuthConfig) (*google.Credentials, error) {
	var (
		data []byte
		err  error
	)
	if cfg.ServiceAccount.Complete() {
		data, err = serviceAccountJSON(cfg.ServiceAccount)
	} else {
		data, err = os.ReadFile(cfg.KeyFile)
	}
	if err != nil {
		return nil, fmt.Errorf("service account credentials: %w", err)
	}

	creds, err := google.CredentialsFromJSON(ctx, data, Scopes...) //nolint:staticcheck // SA1019
	if err != nil {
		return nil, fmt.Errorf("parse service account credentials: %w", err)
	}
	return creds, nil
}

func serviceAccountJSON(sa ServiceAccount) ([]byte, error) {
	return json.Marshal(map[string]string{
		"type":           "service_account",
		"project_id":     sa.ProjectID,
		"private_key_id": sa.PrivateKeyID,
		// Keys passed through env vars usually carry literal \n sequences.
		"private_key":  strings.ReplaceAll(sa.PrivateKey, `\n`, "\n"),
		"client_email": sa.ClientEmail,
		"client_id":    sa.ClientID,
		"token_uri":    google.Endpoint.TokenURL,
	})
}

// OAuth2TokenSource reads cfg.OAuth2File. A file holding only an
// authorization code is exchanged once and rewritten with the tokens.
func OAuth2TokenSource(ctx context.Context, cfg AuthConfig) (oauth2.TokenSource, error) {
	creds, err := readOAuth2File(cfg.OAuth2File)
	if err != nil {
		return nil, err
	}

	endpoint := cfg.OAuth2Endpoint
	if endpoint.TokenURL == "" {
		endpoint = google.Endpoint
	}
	redirectURL := creds.RedirectURL
	if redirectURL == "" {
		redirectURL = defaultRedirectURL
	}
	conf := &oauth2.Config{
		ClientID:     creds.ClientID,
		ClientSecret: creds.ClientSecret,
		RedirectURL:  redirectURL,
		Endpoint:     endpoint,
		Scopes:       Scopes,
	}

	// Token refreshes outlive the startup context.
	ctx = context.WithoutCancel(ctx)

	switch {
	case creds.RefreshToken != "":
	case creds.AuthorizationCode != "":
		tok, exchangeErr := conf.Exchange(ctx, creds.AuthorizationCode)
		if exchangeErr != nil {
			return nil, fmt.Errorf("exchange authorization code: %w", exchangeErr)
		}
		creds.AccessToken = tok.AccessToken
		creds.RefreshToken = tok.RefreshToken
		creds.AuthorizationCode = ""
		if err = writeOAuth2File(cfg.OAuth2File, creds); err != nil {
			return nil, err
		}
	default:
		url := conf.AuthCodeURL("redirector", oauth2.AccessTypeOffline)
		return nil, fmt.Errorf("%w: open %s and add the code to %s as authorization_code",
			ErrAuthorizationRequired, url, cfg.OAuth2File)
	}

	tok := &oauth2.Token{AccessToken: creds.AccessToken, RefreshToken: creds.RefreshToken}
	return conf.TokenSource(ctx, tok), nil
}

func readOAuth2File(path string) (*oauth2File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read oauth2 credentials: %w", err)
	}
	var creds oauth2File
	if err = json.Unmarshal(data, &creds); err != nil {
		return nil, fmt.Errorf("parse oauth2 credentials %s: %w", path, err)
	}
	return &creds, nil
}

func writeOAuth2File(path string, creds *oauth2File) error {
	data, err := json.MarshalIndent(creds, "", "    ")
	if err != nil {
		return fmt.Errorf("encode oauth2 credentials: %w", err)
	}
	if err = os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("write oauth2 credentials: %w", err)
	}
	return nil
}
