package google

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
	sheetsapi "google.golang.org/api/sheets/v4"
	speechapi "google.golang.org/api/speech/v1"

	"github.com/alexrabarts/ceo-agent/internal/config"
)

// Scopes requested from the service account
var Scopes = []string{
	sheetsapi.SpreadsheetsScope,
	speechapi.CloudPlatformScope,
}

// Clients holds all Google API services
type Clients struct {
	Sheets *sheetsapi.Service
	Speech *speechapi.Service
}

// NewClients creates the Sheets and Speech services from the credentials file
func NewClients(ctx context.Context, cfg *config.Config) (*Clients, error) {
	tokenSource, err := TokenSource(ctx, cfg.Store.CredentialsFile)
	if err != nil {
		return nil, err
	}

	// Create Sheets service
	sheetsService, err := sheetsapi.NewService(ctx, option.WithTokenSource(tokenSource))
	if err != nil {
		return nil, fmt.Errorf("failed to create Sheets service: %w", err)
	}

	// Create Speech service
	speechService, err := speechapi.NewService(ctx, option.WithTokenSource(tokenSource))
	if err != nil {
		return nil, fmt.Errorf("failed to create Speech service: %w", err)
	}

	return &Clients{
		Sheets: sheetsService,
		Speech: speechService,
	}, nil
}

// TokenSource reads a service account (or authorized user) JSON key and
// returns a refreshing token source for Scopes.
func TokenSource(ctx context.Context, credentialsFile string) (oauth2.TokenSource, error) {
	path, err := expandHome(credentialsFile)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read credentials file: %w", err)
	}

	creds, err := google.CredentialsFromJSON(ctx, data, Scopes...)
	if err != nil {
		return nil, fmt.Errorf("failed to parse credentials: %w", err)
	}

	// Fail at startup rather than on the first user message
	if _, err := creds.TokenSource.Token(); err != nil {
		return nil, fmt.Errorf("failed to obtain access token: %w", err)
	}

	log.Printf("Google credentials loaded from %s", path)
	return oauth2.ReuseTokenSource(nil, creds.TokenSource), nil
}

func expandHome(path string) (string, error) {
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		return filepath.Join(home, path[2:]), nil
	}
	return path, nil
}
