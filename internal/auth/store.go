package auth

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/oauth2"
)

// StoredToken is what we persist between runs: the token plus enough of the
// client registration to refresh it without re-reading credentials.json.
type StoredToken struct {
	Token        *oauth2.Token
	TokenURI     string
	ClientID     string
	ClientSecret string
	Scopes       []string
}

// TokenStore persists a single user's token.
type TokenStore interface {
	// Load returns an error wrapping fs.ErrNotExist when nothing is stored.
	Load() (*StoredToken, error)
	Save(*StoredToken) error
}

// tokenFile is the on-disk JSON shape, shared with the authorized-user files
// written by Google's own client libraries.
type tokenFile struct {
	Token        string    `json:"token"`
	RefreshToken string    `json:"refresh_token,omitempty"`
	TokenURI     string    `json:"token_uri,omitempty"`
	ClientID     string    `json:"client_id,omitempty"`
	ClientSecret string    `json:"client_secret,omitempty"`
	Scopes       []string  `json:"scopes,omitempty"`
	Expiry       time.Time `json:"expiry,omitzero"`
}

// FileStore keeps the token in a JSON file readable only by the owner.
type FileStore struct {
	Path string
}

func (s FileStore) Load() (*StoredToken, error) {
	data, err := os.ReadFile(s.Path)
	if err != nil {
		return nil, fmt.Errorf("read token file: %w", err)
	}
	var tf tokenFile
	if err := json.Unmarshal(data, &tf); err != nil {
		return nil, fmt.Errorf("decode token file: %w", err)
	}
	if tf.Token == "" && tf.RefreshToken == "" {
		return nil, errors.New("decode token file: no access or refresh token")
	}
	return &StoredToken{
		Token: &oauth2.Token{
			AccessToken:  tf.Token,
			TokenType:    "Bearer",
			RefreshToken: tf.RefreshToken,
			Expiry:       tf.Expiry,
		},
		TokenURI:     tf.TokenURI,
		ClientID:     tf.ClientID,
		ClientSecret: tf.ClientSecret,
		Scopes:       tf.Scopes,
	}, nil
}

func (s FileStore) Save(st *StoredToken) error {
	if st == nil || st.Token == nil {
		return errors.New("save token: nothing to save")
	}
	if err := os.MkdirAll(filepath.Dir(s.Path), 0o700); err != nil {
		return fmt.Errorf("create token directory: %w", err)
	}
	tf := tokenFile{
		Token:        st.Token.AccessToken,
		RefreshToken: st.Token.RefreshToken,
		TokenURI:     st.TokenURI,
		ClientID:     st.ClientID,
		ClientSecret: st.ClientSecret,
		Scopes:       st.Scopes,
		Expiry:       st.Token.Expiry.UTC(),
	}
	data, err := json.MarshalIndent(tf, "", "  ")
	if err != nil {
		return fmt.Errorf("encode token: %w", err)
	}
	if err := os.WriteFile(s.Path, data, 0o600); err != nil {
		return fmt.Errorf("write token file: %w", err)
	}
	return nil
}

var _ TokenStore = FileStore{}
