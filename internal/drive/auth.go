package drive

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/drive/v3"
	"google.golang.org/api/sheets/v4"
)

// ErrMissingCredentials is returned when neither a service account nor a refresh token is configured.
var ErrMissingCredentials = errors.New("google credentials are not configured")

// Credentials is either a service-account JSON document or an OAuth client plus refresh token.
type Credentials struct {
	ClientID        string
	ClientSecret    string
	RedirectURI     string
	RefreshToken    string
	CredentialsJSON string
}

// Scopes requested for both the gallery folder and the order sheet.
var Scopes = []string{drive.DriveScope, sheets.SpreadsheetsScope}

// NewHTTPClient returns an HTTP client that authorises requests against Google APIs.
// Service-account JSON wins when both forms are configured.
func NewHTTPClient(ctx context.Context, creds Credentials) (*http.Client, error) {
	// oauth2 picks the base transport up from the context
	base := &http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport)}
	ctx = context.WithValue(ctx, oauth2.HTTPClient, base)

	if creds.CredentialsJSON != "" {
		jwtConfig, err := google.JWTConfigFromJSON([]byte(creds.CredentialsJSON), Scopes...)
		if err != nil {
			return nil, fmt.Errorf("unable to parse service account credentials: %w", err)
		}
		return jwtConfig.Client(ctx), nil
	}

	if creds.ClientID == "" || creds.ClientSecret == "" || creds.RefreshToken == "" {
		return nil, ErrMissingCredentials
	}

	conf := &oauth2.Config{
		ClientID:     creds.ClientID,
		ClientSecret: creds.ClientSecret,
		RedirectURL:  creds.RedirectURI,
		Endpoint:     google.Endpoint,
		Scopes:       Scopes,
	}

	// The access token is empty so the first request triggers a refresh.
	return conf.Client(ctx, &oauth2.Token{RefreshToken: creds.RefreshToken}), nil
}
