package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joshsymonds/gworkspace/internal/config"
	"github.com/joshsymonds/gworkspace/internal/gmail"
	"github.com/joshsymonds/gworkspace/internal/rate"
	"github.com/joshsymonds/gworkspace/internal/runtime"
	"github.com/joshsymonds/gworkspace/internal/sweep"
)

type sweepConfig struct {
	gmailctlDir   string
	label         string
	grace         time.Duration
	graceMap      string
	exclude       string
	expiredLabel  string
	pageSize      int
	rps           float64
	dryRun        bool
	pauseWeekends bool
}

func main() {
	cfg := parseSweepFlags()
	if err := run(cfg); err != nil {
		runtime.DefaultLogger().Error("gworkspace-sweep failed", "error", err)
		os.Exit(1)
	}
}

func parseSweepFlags() sweepConfig {
	gmailctlDir := flag.String("gmailctl", "", "reuse a gmailctl auth directory instead of the gworkspace token")
	label := flag.String("label", "", "limit sweep to this label")
	grace := flag.Duration("grace", 48*time.Hour, "default grace period")
	graceMapFlag := flag.String("grace-map", "", "comma separated label=duration overrides")
	excludeFlag := flag.String("exclude-labels", "", "comma separated labels to protect")
	expiredLabel := flag.String("expired-label", sweep.DefaultExpiredLabel, "label applied to swept mail")
	pageSize := flag.Int("page-size", sweep.DefaultPageSize, "Gmail list page size")
	rps := flag.Float64("rps", 0, "max requests per second (0 uses the config or default rate)")
	dryRun := flag.Bool("dry-run", false, "log only; skip modifications")
	pauseWeekends := flag.Bool("pause-weekends", false, "skip runs on Saturday/Sunday")
	flag.Parse()

	return sweepConfig{
		gmailctlDir:   *gmailctlDir,
		label:         *label,
		grace:         *grace,
		graceMap:      *graceMapFlag,
		exclude:       *excludeFlag,
		expiredLabel:  *expiredLabel,
		pageSize:      *pageSize,
		rps:           *rps,
		dryRun:        *dryRun,
		pauseWeekends: *pauseWeekends,
	}
}

func run(cfg sweepConfig) error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	overrides, err := sweep.ParseGraceMap(cfg.graceMap)
	if err != nil {
		return fmt.Errorf("parse grace map: %w", err)
	}

	logger := runtime.DefaultLogger()
	g, err := gmailService(ctx, cfg)
	if err != nil {
		return err
	}
	svc := sweep.NewService(g, logger)

	spec := sweep.Spec{
		Label:          cfg.label,
		Grace:          cfg.grace,
		DryRun:         cfg.dryRun,
		PauseWeekends:  cfg.pauseWeekends,
		GraceOverrides: overrides,
		ExcludeLabels:  splitList(cfg.exclude),
		ExpiredLabel:   cfg.expiredLabel,
		PageSize:       cfg.pageSize,
	}
	results, err := svc.RunAll(ctx, spec)
	if err != nil {
		return err
	}
	for _, r := range results {
		logger.Info("sweep result", "label", r.Label, "matched", r.Matched, "swept", r.Swept, "skipped", r.Skipped)
	}
	return nil
}

func gmailService(ctx context.Context, cfg sweepConfig) (*gmail.Service, error) {
	conf, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	rps := cfg.rps
	if rps <= 0 {
		rps = conf.RequestsPerSecond
	}
	logger := runtime.DefaultLogger()

	if cfg.gmailctlDir != "" {
		client, err := runtime.GmailctlGmail(ctx, os.ExpandEnv(cfg.gmailctlDir))
		if err != nil {
			return nil, fmt.Errorf("create gmail client: %w", err)
		}
		return gmail.NewService(client, rate.ForAPI(rate.Gmail, rps), logger), nil
	}

	api, err := runtime.NewManager(conf, logger).Gmail(ctx)
	if err != nil {
		return nil, fmt.Errorf("create gmail client: %w", err)
	}
	return gmail.NewService(runtime.NewGoogleAPIClient(api), rate.ForAPI(rate.Gmail, rps), logger), nil
}

func splitList(input string) []string {
	if strings.TrimSpace(input) == "" {
		return nil
	}
	parts := strings.Split(input, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		out = append(out, part)
	}
	return out
}
