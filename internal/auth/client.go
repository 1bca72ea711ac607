package auth

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	calendar "google.golang.org/api/calendar/v3"
	drive "google.golang.org/api/drive/v3"
	gmail "google.golang.org/api/gmail/v1"
	tasks "google.golang.org/api/tasks/v1"

	"github.com/joshsymonds/gworkspace/internal/apierr"
)

// DefaultScopes grants full access to every API this module wraps.
var DefaultScopes = []string{
	calendar.CalendarScope,
	gmail.MailGoogleComScope,
	drive.DriveScope,
	tasks.TasksScope,
}

// LoadClientConfig reads an OAuth client registration (credentials.json, of
// either the "installed" or "web" kind) downloaded from the Cloud console.
func LoadClientConfig(path string, scopes []string) (*oauth2.Config, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s not found", apierr.ErrMissingConfig, path)
	}
	if err != nil {
		return nil, fmt.Errorf("read client credentials: %w", err)
	}
	if len(scopes) == 0 {
		scopes = DefaultScopes
	}
	conf, err := google.ConfigFromJSON(data, scopes...)
	if err != nil {
		return nil, fmt.Errorf("parse client credentials %s: %w", path, err)
	}
	return conf, nil
}

// refreshConfig builds the minimal config needed to refresh st, or nil if the
// stored record lacks the client registration.
func refreshConfig(st *StoredToken) *oauth2.Config {
	if st.ClientID == "" {
		return nil
	}
	tokenURL := st.TokenURI
	if tokenURL == "" {
		tokenURL = google.Endpoint.TokenURL
	}
	return &oauth2.Config{
		ClientID:     st.ClientID,
		ClientSecret: st.ClientSecret,
		Scopes:       st.Scopes,
		Endpoint: oauth2.Endpoint{
			AuthURL:   google.Endpoint.AuthURL,
			TokenURL:  tokenURL,
			AuthStyle: oauth2.AuthStyleInParams,
		},
	}
}
