// Package sweep archives unread inbox mail that has sat past a grace period,
// tagging it with an "expired" label so nothing is lost.
package sweep

import (
	"context"
	"fmt"
	"log/slog"
	"maps"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/joshsymonds/gworkspace/internal/apierr"
	"github.com/joshsymonds/gworkspace/internal/gmail"
	"github.com/joshsymonds/gworkspace/internal/validate"
)

const (
	DefaultExpiredLabel = "auto-archived/expired"
	DefaultPageSize     = 500
)

type Spec struct {
	Label          string        // optional: restrict sweep to this label
	Grace          time.Duration // how long unread mail may sit before sweeping
	DryRun         bool
	PauseWeekends  bool
	GraceOverrides map[string]time.Duration // per-label grace, swept separately
	ExcludeLabels  []string
	ExpiredLabel   string
	PageSize       int
}

// Result summarizes one sweep pass.
type Result struct {
	Label   string
	Matched int
	Swept   int
	Skipped bool // paused for the weekend
}

type Service struct {
	Gmail  *gmail.Service
	Logger *slog.Logger
	Clock  func() time.Time
}

func NewService(g *gmail.Service, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(os.Stderr, nil))
	}
	return &Service{Gmail: g, Logger: logger, Clock: time.Now}
}

// ParseGraceMap parses "label=duration" pairs separated by commas.
func ParseGraceMap(s string) (map[string]time.Duration, error) {
	out := map[string]time.Duration{}
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		label, raw, ok := strings.Cut(part, "=")
		label = strings.TrimSpace(label)
		if !ok || label == "" {
			return nil, fmt.Errorf("grace map entry %q: want label=duration", part)
		}
		d, err := time.ParseDuration(strings.TrimSpace(raw))
		if err != nil {
			return nil, fmt.Errorf("grace map entry %q: %w", part, err)
		}
		if d <= 0 {
			return nil, fmt.Errorf("grace map entry %q: duration must be positive", part)
		}
		out[label] = d
	}
	return out, nil
}

func (spec Spec) validate() error {
	if spec.Grace <= 0 {
		return apierr.Invalidf("grace must be positive, got %s", spec.Grace)
	}
	if spec.PageSize != 0 {
		if err := validate.Limit(spec.PageSize, gmail.MaxResultsLimit); err != nil {
			return err
		}
	}
	return nil
}

// query describes the mail spec would sweep. Without a label, labels that
// carry their own grace override are left for their own pass.
func (s *Service) query(spec Spec, now time.Time) *gmail.QueryBuilder {
	b := s.Gmail.Query().
		IsUnread().
		NotStarred().
		NotImportant().
		InFolder("inbox").
		ReceivedBefore(now.Add(-spec.Grace))
	if spec.Label != "" {
		b.WithLabel(spec.Label)
	}
	exclude := slices.Clone(spec.ExcludeLabels)
	if spec.Label == "" {
		exclude = append(exclude, slices.Collect(maps.Keys(spec.GraceOverrides))...)
	}
	slices.Sort(exclude)
	for _, l := range slices.Compact(exclude) {
		if l != spec.Label {
			b.WithoutLabel(l)
		}
	}
	pageSize := spec.PageSize
	if pageSize == 0 {
		pageSize = DefaultPageSize
	}
	return b.Limit(pageSize)
}

// Run sweeps the mail matched by spec once.
func (s *Service) Run(ctx context.Context, spec Spec) (Result, error) {
	res := Result{Label: spec.Label}
	if err := spec.validate(); err != nil {
		return res, err
	}
	now := s.Clock()
	if spec.PauseWeekends && (now.Weekday() == time.Saturday || now.Weekday() == time.Sunday) {
		s.Logger.Info("paused for the weekend", "label", spec.Label)
		res.Skipped = true
		return res, nil
	}

	opts, err := s.query(spec, now).Options()
	if err != nil {
		return res, err
	}
	var all []string
	for {
		ids, next, err := s.Gmail.ListMessageIDs(ctx, opts)
		if err != nil {
			return res, fmt.Errorf("list sweep candidates: %w", err)
		}
		all = append(all, ids...)
		if next == "" {
			break
		}
		opts.PageToken = next
	}
	res.Matched = len(all)
	if len(all) == 0 {
		s.Logger.Info("no messages to sweep", "label", spec.Label, "grace", spec.Grace)
		return res, nil
	}
	if spec.DryRun {
		s.Logger.Info("dry-run", "label", spec.Label, "grace", spec.Grace, "count", len(all))
		return res, nil
	}

	name := spec.ExpiredLabel
	if name == "" {
		name = DefaultExpiredLabel
	}
	expired, err := s.Gmail.EnsureLabel(ctx, name)
	if err != nil {
		return res, err
	}
	ops := gmail.ModifyOps{
		AddLabels: []string{expired.ID},
		MarkRead:  true,
		Archive:   true,
	}
	if err := s.Gmail.BatchModify(ctx, all, ops); err != nil {
		return res, fmt.Errorf("archive swept messages: %w", err)
	}
	res.Swept = len(all)
	s.Logger.Info("swept", "label", spec.Label, "grace", spec.Grace, "count", len(all))
	return res, nil
}

// RunAll sweeps spec and then, unless spec names a label, each grace
// override in label order.
func (s *Service) RunAll(ctx context.Context, spec Spec) ([]Result, error) {
	first, err := s.Run(ctx, spec)
	if err != nil {
		return nil, fmt.Errorf("run sweep: %w", err)
	}
	out := []Result{first}
	if spec.Label != "" {
		return out, nil
	}
	for _, lbl := range slices.Sorted(maps.Keys(spec.GraceOverrides)) {
		override := spec
		override.Label = lbl
		override.Grace = spec.GraceOverrides[lbl]
		res, err := s.Run(ctx, override)
		if err != nil {
			return out, fmt.Errorf("run sweep override for %s: %w", lbl, err)
		}
		out = append(out, res)
	}
	return out, nil
}
