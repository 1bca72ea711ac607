// Package auth acquires, refreshes and persists the OAuth2 token shared by
// every Google API client, and memoizes one client handle per API.
package auth

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"sync"

	"golang.org/x/oauth2"
	calendar "google.golang.org/api/calendar/v3"
	drive "google.golang.org/api/drive/v3"
	gmail "google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"
	tasks "google.golang.org/api/tasks/v1"

	"github.com/joshsymonds/gworkspace/internal/apierr"
)

type Config struct {
	TokenPath       string
	CredentialsPath string
	Scopes          []string
	RedirectPort    int
}

// Authorizer runs the interactive consent flow.
type Authorizer interface {
	Authorize(ctx context.Context, conf *oauth2.Config) (*oauth2.Token, error)
}

type Option func(*Manager)

func WithTokenStore(s TokenStore) Option { return func(m *Manager) { m.store = s } }

func WithAuthorizer(a Authorizer) Option { return func(m *Manager) { m.authorizer = a } }

func WithLogger(l *slog.Logger) Option { return func(m *Manager) { m.logger = l } }

// WithHTTPClient sets the client used for token refresh and exchange.
func WithHTTPClient(c *http.Client) Option { return func(m *Manager) { m.httpClient = c } }

// WithClientOptions appends options passed to every API client built by
// Service (e.g. an endpoint override).
func WithClientOptions(opts ...option.ClientOption) Option {
	return func(m *Manager) { m.clientOpts = append(m.clientOpts, opts...) }
}

// ServiceKey identifies a memoized API client.
type ServiceKey struct {
	Name    string
	Version string
}

type serviceBuilder func(ctx context.Context, opts ...option.ClientOption) (any, error)

var builders = map[ServiceKey]serviceBuilder{
	{"gmail", "v1"}: func(ctx context.Context, opts ...option.ClientOption) (any, error) {
		return gmail.NewService(ctx, opts...)
	},
	{"calendar", "v3"}: func(ctx context.Context, opts ...option.ClientOption) (any, error) {
		return calendar.NewService(ctx, opts...)
	},
	{"tasks", "v1"}: func(ctx context.Context, opts ...option.ClientOption) (any, error) {
		return tasks.NewService(ctx, opts...)
	},
	{"drive", "v3"}: func(ctx context.Context, opts ...option.ClientOption) (any, error) {
		return drive.NewService(ctx, opts...)
	},
}

// Manager owns the credential for one user. It is safe for concurrent use;
// refresh is serialized so two callers never race to rewrite the token file.
type Manager struct {
	cfg        Config
	store      TokenStore
	authorizer Authorizer
	logger     *slog.Logger
	httpClient *http.Client
	clientOpts []option.ClientOption

	mu    sync.Mutex
	token *oauth2.Token

	svcMu    sync.Mutex
	services map[ServiceKey]any
}

func NewManager(cfg Config, opts ...Option) *Manager {
	if len(cfg.Scopes) == 0 {
		cfg.Scopes = DefaultScopes
	}
	m := &Manager{
		cfg:      cfg,
		store:    FileStore{Path: cfg.TokenPath},
		services: map[ServiceKey]any{},
	}
	for _, o := range opts {
		o(m)
	}
	if m.logger == nil {
		m.logger = slog.Default()
	}
	if m.authorizer == nil {
		m.authorizer = &LoopbackAuthorizer{Port: cfg.RedirectPort, HTTPClient: m.httpClient}
	}
	return m
}

func (m *Manager) oauthContext(ctx context.Context) context.Context {
	if m.httpClient == nil {
		return ctx
	}
	return context.WithValue(ctx, oauth2.HTTPClient, m.httpClient)
}

// Credentials returns a valid access token. Without force, a cached valid
// token is returned with no I/O. Otherwise the stored token is loaded,
// refreshed if expired, and as a last resort the interactive flow runs.
func (m *Manager) Credentials(ctx context.Context, force bool) (*oauth2.Token, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !force && m.token.Valid() {
		return m.token, nil
	}

	stored, err := m.store.Load()
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			m.logger.Warn("stored token unusable", "error", err)
		}
		stored = nil
	}

	if stored != nil && stored.Token.Valid() {
		m.token = stored.Token
		return m.token, nil
	}

	var refreshErr error
	if stored != nil && stored.Token.RefreshToken != "" {
		tok, err := m.refresh(ctx, stored)
		if err == nil {
			stored.Token = tok
			m.persist(stored)
			m.token = tok
			return tok, nil
		}
		refreshErr = err
		m.logger.Warn("token refresh failed", "error", err)
	}

	conf, err := LoadClientConfig(m.cfg.CredentialsPath, m.cfg.Scopes)
	if err != nil {
		if refreshErr != nil {
			return nil, apierr.New(apierr.Auth, nil, "refresh token", refreshErr)
		}
		if errors.Is(err, apierr.ErrMissingConfig) {
			return nil, err
		}
		return nil, apierr.New(apierr.Auth, nil, "load client config", err)
	}

	m.logger.Info("starting interactive authorization")
	tok, err := m.authorizer.Authorize(m.oauthContext(ctx), conf)
	if err != nil {
		return nil, apierr.New(apierr.Auth, nil, "authorize", err)
	}
	m.persist(&StoredToken{
		Token:        tok,
		TokenURI:     conf.Endpoint.TokenURL,
		ClientID:     conf.ClientID,
		ClientSecret: conf.ClientSecret,
		Scopes:       conf.Scopes,
	})
	m.token = tok
	return tok, nil
}

func (m *Manager) refresh(ctx context.Context, st *StoredToken) (*oauth2.Token, error) {
	conf := refreshConfig(st)
	if conf == nil {
		c, err := LoadClientConfig(m.cfg.CredentialsPath, m.cfg.Scopes)
		if err != nil {
			return nil, fmt.Errorf("no client registration to refresh with: %w", err)
		}
		conf = c
	}
	// An expired copy forces the token source to hit the token endpoint.
	expired := *st.Token
	expired.AccessToken = ""
	tok, err := conf.TokenSource(m.oauthContext(ctx), &expired).Token()
	if err != nil {
		return nil, err
	}
	if tok.RefreshToken == "" {
		tok.RefreshToken = st.Token.RefreshToken
	}
	return tok, nil
}

func (m *Manager) persist(st *StoredToken) {
	if err := m.store.Save(st); err != nil {
		m.logger.Warn("could not persist token", "error", err)
	}
}

// TokenSource adapts the manager to oauth2.TokenSource so API clients pick up
// refreshed tokens transparently.
func (m *Manager) TokenSource(ctx context.Context) oauth2.TokenSource {
	return &tokenSource{m: m, ctx: context.WithoutCancel(ctx)}
}

type tokenSource struct {
	m   *Manager
	ctx context.Context
}

func (t *tokenSource) Token() (*oauth2.Token, error) {
	return t.m.Credentials(t.ctx, false)
}

// Service returns the memoized client for name/version, building it on first
// use. The credential is checked up front so auth failures surface here
// rather than on the first request.
func (m *Manager) Service(ctx context.Context, name, version string) (any, error) {
	key := ServiceKey{Name: name, Version: version}
	build, ok := builders[key]
	if !ok {
		return nil, apierr.Invalidf("unsupported service %s %s", name, version)
	}

	m.svcMu.Lock()
	defer m.svcMu.Unlock()
	if svc, ok := m.services[key]; ok {
		return svc, nil
	}
	if _, err := m.Credentials(ctx, false); err != nil {
		return nil, err
	}
	opts := append([]option.ClientOption{option.WithTokenSource(m.TokenSource(ctx))}, m.clientOpts...)
	svc, err := build(ctx, opts...)
	if err != nil {
		return nil, apierr.New(apierr.Auth, nil, "build "+name+" client", err)
	}
	m.services[key] = svc
	m.logger.Debug("built api client", "service", name, "version", version)
	return svc, nil
}

func (m *Manager) Gmail(ctx context.Context) (*gmail.Service, error) {
	svc, err := m.Service(ctx, "gmail", "v1")
	if err != nil {
		return nil, err
	}
	return svc.(*gmail.Service), nil
}

func (m *Manager) Calendar(ctx context.Context) (*calendar.Service, error) {
	svc, err := m.Service(ctx, "calendar", "v3")
	if err != nil {
		return nil, err
	}
	return svc.(*calendar.Service), nil
}

func (m *Manager) Tasks(ctx context.Context) (*tasks.Service, error) {
	svc, err := m.Service(ctx, "tasks", "v1")
	if err != nil {
		return nil, err
	}
	return svc.(*tasks.Service), nil
}

func (m *Manager) Drive(ctx context.Context) (*drive.Service, error) {
	svc, err := m.Service(ctx, "drive", "v3")
	if err != nil {
		return nil, err
	}
	return svc.(*drive.Service), nil
}

// InvalidateCache drops the cached token and every memoized client. The next
// call re-reads the token store.
func (m *Manager) InvalidateCache() {
	m.mu.Lock()
	m.token = nil
	m.mu.Unlock()

	m.svcMu.Lock()
	m.services = map[ServiceKey]any{}
	m.svcMu.Unlock()
}
