package calendar

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/joshsymonds/gworkspace/internal/apierr"
	"github.com/joshsymonds/gworkspace/internal/fanout"
	"github.com/joshsymonds/gworkspace/internal/logsafe"
	"github.com/joshsymonds/gworkspace/internal/rate"
)

// Service wraps a Calendar Client.
type Service struct {
	Client  Client
	Limiter rate.Limiter
	Logger  *slog.Logger
	Clock   func() time.Time
}

func NewService(client Client, limiter rate.Limiter, logger *slog.Logger) *Service {
	if limiter == nil {
		limiter = rate.Unlimited{}
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(os.Stderr, nil))
	}
	return &Service{Client: client, Limiter: limiter, Logger: logger, Clock: time.Now}
}

// Query starts a fluent event search.
func (s *Service) Query() *QueryBuilder {
	return newQueryBuilder(s)
}

func (s *Service) wait(ctx context.Context) error {
	if err := s.Limiter.Wait(ctx); err != nil {
		return fmt.Errorf("calendar: %w", err)
	}
	return nil
}

func wrap(op string, err error) error {
	return apierr.FromGoogle(apierr.Calendar, op, err)
}

// ListEvents fetches one page of events, expanded into single instances and
// ordered by start time.
func (s *Service) ListEvents(ctx context.Context, opts ListOptions) ([]Event, error) {
	calendarID, params, err := opts.params()
	if err != nil {
		return nil, err
	}
	s.Logger.Info("listing events",
		"calendar_id", logsafe.ID(calendarID),
		"max_results", params.MaxResults,
		"time_min", params.TimeMin,
		"time_max", params.TimeMax,
		"query", logsafe.Query(params.Query))
	if err := s.wait(ctx); err != nil {
		return nil, err
	}
	raw, err := s.Client.ListEvents(ctx, calendarID, params)
	if err != nil {
		return nil, wrap("list events", err)
	}
	out := make([]Event, 0, len(raw))
	for _, ev := range raw {
		out = append(out, fromAPIEvent(ev, s.Logger))
	}
	return out, nil
}

func (s *Service) GetEvent(ctx context.Context, calendarID, eventID string) (*Event, error) {
	if strings.TrimSpace(eventID) == "" {
		return nil, apierr.Invalidf("event id is required")
	}
	if err := s.wait(ctx); err != nil {
		return nil, err
	}
	raw, err := s.Client.GetEvent(ctx, calendarOrDefault(calendarID), eventID)
	if err != nil {
		return nil, wrap("get event", err)
	}
	ev := fromAPIEvent(raw, s.Logger)
	return &ev, nil
}

// CreateEvent inserts e. A blank summary becomes DefaultSummary.
func (s *Service) CreateEvent(ctx context.Context, calendarID string, e Event) (*Event, error) {
	if strings.TrimSpace(e.Summary) == "" {
		e.Summary = DefaultSummary
	}
	body, err := eventToAPI(e)
	if err != nil {
		return nil, err
	}
	s.Logger.Info("creating event",
		"summary", logsafe.Subject(e.Summary),
		"start", e.Start.Format(time.RFC3339),
		"end", e.End.Format(time.RFC3339))
	if err := s.wait(ctx); err != nil {
		return nil, err
	}
	raw, err := s.Client.InsertEvent(ctx, calendarOrDefault(calendarID), body)
	if err != nil {
		return nil, wrap("create event", err)
	}
	created := fromAPIEvent(raw, s.Logger)
	s.Logger.Info("created event", "event_id", logsafe.ID(created.ID))
	return &created, nil
}

// UpdateEvent replaces the stored event with e and returns the provider's
// view of the result.
func (s *Service) UpdateEvent(ctx context.Context, calendarID string, e *Event) (*Event, error) {
	if e == nil || strings.TrimSpace(e.ID) == "" {
		return nil, apierr.Invalidf("event id is required")
	}
	body, err := eventToAPI(*e)
	if err != nil {
		return nil, err
	}
	if err := s.wait(ctx); err != nil {
		return nil, err
	}
	raw, err := s.Client.UpdateEvent(ctx, calendarOrDefault(calendarID), e.ID, body)
	if err != nil {
		return nil, wrap("update event", err)
	}
	updated := fromAPIEvent(raw, s.Logger)
	return &updated, nil
}

func (s *Service) DeleteEvent(ctx context.Context, e *Event, calendarID string) error {
	if e == nil || strings.TrimSpace(e.ID) == "" {
		return apierr.Invalidf("event id is required")
	}
	if err := s.wait(ctx); err != nil {
		return err
	}
	if err := s.Client.DeleteEvent(ctx, calendarOrDefault(calendarID), e.ID); err != nil {
		return wrap("delete event", err)
	}
	s.Logger.Info("deleted event", "event_id", logsafe.ID(e.ID))
	return nil
}

func (s *Service) batchOptions(opts fanout.Options, def fanout.Policy, label string) fanout.Options {
	opts = opts.WithDefault(def)
	if opts.Logger == nil {
		opts.Logger = s.Logger
	}
	if opts.Label == "" {
		opts.Label = label
	}
	return opts
}

// BatchGetEvents fetches ids concurrently, skipping failures by default.
func (s *Service) BatchGetEvents(ctx context.Context, calendarID string, ids []string, opts fanout.Options) ([]Event, error) {
	return fanout.Map(ctx, ids, s.batchOptions(opts, fanout.Skip, "get events"), func(ctx context.Context, id string) (Event, error) {
		ev, err := s.GetEvent(ctx, calendarID, id)
		if err != nil {
			return Event{}, err
		}
		return *ev, nil
	})
}

// BatchCreateEvents creates each event, failing on the first error by
// default. Events created before a failure stay created.
func (s *Service) BatchCreateEvents(ctx context.Context, calendarID string, events []Event, opts fanout.Options) ([]Event, error) {
	return fanout.Map(ctx, events, s.batchOptions(opts, fanout.Raise, "create events"), func(ctx context.Context, e Event) (Event, error) {
		ev, err := s.CreateEvent(ctx, calendarID, e)
		if err != nil {
			return Event{}, err
		}
		return *ev, nil
	})
}

// BatchUpdateEvents updates each event, failing on the first error by
// default.
func (s *Service) BatchUpdateEvents(ctx context.Context, calendarID string, events []Event, opts fanout.Options) ([]Event, error) {
	return fanout.Map(ctx, events, s.batchOptions(opts, fanout.Raise, "update events"), func(ctx context.Context, e Event) (Event, error) {
		ev, err := s.UpdateEvent(ctx, calendarID, &e)
		if err != nil {
			return Event{}, err
		}
		return *ev, nil
	})
}

// ListCalendars returns the user's calendar list.
func (s *Service) ListCalendars(ctx context.Context) ([]Calendar, error) {
	if err := s.wait(ctx); err != nil {
		return nil, err
	}
	raw, err := s.Client.ListCalendars(ctx)
	if err != nil {
		return nil, wrap("list calendars", err)
	}
	out := make([]Calendar, 0, len(raw))
	for _, c := range raw {
		out = append(out, fromAPICalendar(c))
	}
	return out, nil
}

// IsNotFound reports whether err is a Calendar 404.
func IsNotFound(err error) bool {
	return errors.Is(err, apierr.ErrCalendar) && errors.Is(err, apierr.ErrNotFound)
}
