package runtime

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/mbrt/gmailctl/cmd/gmailctl/localcred"

	"github.com/joshsymonds/gworkspace/internal/auth"
	"github.com/joshsymonds/gworkspace/internal/calendar"
	"github.com/joshsymonds/gworkspace/internal/config"
	"github.com/joshsymonds/gworkspace/internal/drive"
	gc "github.com/joshsymonds/gworkspace/internal/gmail"
	"github.com/joshsymonds/gworkspace/internal/rate"
	"github.com/joshsymonds/gworkspace/internal/tasks"
)

func DefaultLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))
}

// NewManager builds the credential manager described by cfg.
func NewManager(cfg config.Config, logger *slog.Logger, opts ...auth.Option) *auth.Manager {
	if logger == nil {
		logger = DefaultLogger()
	}
	return auth.NewManager(auth.Config{
		TokenPath:       cfg.TokenPath,
		CredentialsPath: cfg.CredentialsPath,
		Scopes:          cfg.Scopes,
		RedirectPort:    cfg.RedirectPort,
	}, append([]auth.Option{auth.WithLogger(logger)}, opts...)...)
}

// Workspace bundles one service wrapper per API, all sharing a credential.
type Workspace struct {
	Gmail    *gc.Service
	Calendar *calendar.Service
	Tasks    *tasks.Service
	Drive    *drive.Service
}

// Open resolves every API client through m. Each wrapper gets its own rate
// limiter; rps overrides the default rates when positive.
func Open(ctx context.Context, m *auth.Manager, rps float64, logger *slog.Logger) (*Workspace, error) {
	if logger == nil {
		logger = DefaultLogger()
	}
	gsvc, err := m.Gmail(ctx)
	if err != nil {
		return nil, fmt.Errorf("gmail service: %w", err)
	}
	csvc, err := m.Calendar(ctx)
	if err != nil {
		return nil, fmt.Errorf("calendar service: %w", err)
	}
	tsvc, err := m.Tasks(ctx)
	if err != nil {
		return nil, fmt.Errorf("tasks service: %w", err)
	}
	dsvc, err := m.Drive(ctx)
	if err != nil {
		return nil, fmt.Errorf("drive service: %w", err)
	}
	return &Workspace{
		Gmail:    gc.NewService(NewGoogleAPIClient(gsvc), rate.ForAPI(rate.Gmail, rps), logger.With("api", "gmail")),
		Calendar: calendar.NewService(NewCalendarClient(csvc), rate.ForAPI(rate.Calendar, rps), logger.With("api", "calendar")),
		Tasks:    tasks.NewService(NewTasksClient(tsvc), rate.ForAPI(rate.Tasks, rps), logger.With("api", "tasks")),
		Drive:    drive.NewService(NewDriveClient(dsvc), rate.ForAPI(rate.Drive, rps), logger.With("api", "drive")),
	}, nil
}

// GmailctlGmail reuses a gmailctl auth directory (credentials.json and
// token.json) instead of this module's own token file. The scopes are the
// ones gmailctl requested when that token was issued.
func GmailctlGmail(ctx context.Context, cfgDir string) (gc.Client, error) {
	svc, err := (localcred.Provider{}).Service(ctx, cfgDir)
	if err != nil {
		return nil, fmt.Errorf("gmailctl credentials: %w", err)
	}
	return NewGoogleAPIClient(svc), nil
}
