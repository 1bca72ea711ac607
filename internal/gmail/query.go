package gmail

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/joshsymonds/gworkspace/internal/apierr"
	"github.com/joshsymonds/gworkspace/internal/daterange"
	"github.com/joshsymonds/gworkspace/internal/validate"
)

const queryDateLayout = "2006/01/02"

// QueryBuilder assembles a Gmail search. Chain methods record the first
// invalid argument; Err and every terminal method return it. Tokens render
// in a fixed order by filter type regardless of call order. A builder is not
// safe for concurrent use.
type QueryBuilder struct {
	svc *Service
	now func() time.Time
	err error

	limit            int
	includeSpamTrash bool
	labelIDs         []string

	text        []string
	from        []string
	to          []string
	subject     []string
	attachments *bool
	unread      *bool
	starred     *bool
	important   *bool
	folders     []string
	labels      []string
	notLabels   []string
	after       string
	before      string
	larger      int
	smaller     int
}

func newQueryBuilder(s *Service) *QueryBuilder {
	now := time.Now
	if s != nil && s.Clock != nil {
		now = s.Clock
	}
	return &QueryBuilder{svc: s, now: now, limit: DefaultMaxResults}
}

func (b *QueryBuilder) fail(err error) *QueryBuilder {
	if b.err == nil {
		b.err = err
	}
	return b
}

// Err is the first invalid argument given to the chain, if any.
func (b *QueryBuilder) Err() error { return b.err }

func (b *QueryBuilder) Limit(n int) *QueryBuilder {
	if err := validate.Limit(n, MaxResultsLimit); err != nil {
		return b.fail(err)
	}
	b.limit = n
	return b
}

func nonEmpty(field, v string) error {
	if strings.TrimSpace(v) == "" {
		return apierr.Invalidf("%s must not be empty", field)
	}
	return nil
}

// Search adds free text.
func (b *QueryBuilder) Search(text string) *QueryBuilder {
	if err := nonEmpty("search text", text); err != nil {
		return b.fail(err)
	}
	b.text = append(b.text, text)
	return b
}

func (b *QueryBuilder) FromSender(email string) *QueryBuilder {
	if err := nonEmpty("sender", email); err != nil {
		return b.fail(err)
	}
	b.from = append(b.from, email)
	return b
}

func (b *QueryBuilder) ToRecipient(email string) *QueryBuilder {
	if err := nonEmpty("recipient", email); err != nil {
		return b.fail(err)
	}
	b.to = append(b.to, email)
	return b
}

func (b *QueryBuilder) WithSubject(subject string) *QueryBuilder {
	if err := nonEmpty("subject", subject); err != nil {
		return b.fail(err)
	}
	b.subject = append(b.subject, subject)
	return b
}

func boolPtr(v bool) *bool { return &v }

func (b *QueryBuilder) WithAttachments() *QueryBuilder {
	b.attachments = boolPtr(true)
	return b
}

func (b *QueryBuilder) WithoutAttachments() *QueryBuilder {
	b.attachments = boolPtr(false)
	return b
}

func (b *QueryBuilder) IsRead() *QueryBuilder {
	b.unread = boolPtr(false)
	return b
}

func (b *QueryBuilder) IsUnread() *QueryBuilder {
	b.unread = boolPtr(true)
	return b
}

func (b *QueryBuilder) IsStarred() *QueryBuilder {
	b.starred = boolPtr(true)
	return b
}

func (b *QueryBuilder) NotStarred() *QueryBuilder {
	b.starred = boolPtr(false)
	return b
}

func (b *QueryBuilder) IsImportant() *QueryBuilder {
	b.important = boolPtr(true)
	return b
}

func (b *QueryBuilder) NotImportant() *QueryBuilder {
	b.important = boolPtr(false)
	return b
}

// InFolder restricts to a system folder such as inbox, sent or spam.
func (b *QueryBuilder) InFolder(folder string) *QueryBuilder {
	if err := nonEmpty("folder", folder); err != nil {
		return b.fail(err)
	}
	b.folders = append(b.folders, folder)
	return b
}

func (b *QueryBuilder) WithLabel(name string) *QueryBuilder {
	if err := nonEmpty("label", name); err != nil {
		return b.fail(err)
	}
	b.labels = append(b.labels, name)
	return b
}

func (b *QueryBuilder) WithoutLabel(name string) *QueryBuilder {
	if err := nonEmpty("label", name); err != nil {
		return b.fail(err)
	}
	b.notLabels = append(b.notLabels, name)
	return b
}

func (b *QueryBuilder) AfterDate(t time.Time) *QueryBuilder {
	b.after = t.Format(queryDateLayout)
	return b
}

func (b *QueryBuilder) BeforeDate(t time.Time) *QueryBuilder {
	b.before = t.Format(queryDateLayout)
	return b
}

// OlderThan matches mail received more than d ago, to the second.
func (b *QueryBuilder) OlderThan(d time.Duration) *QueryBuilder {
	if d <= 0 {
		return b.fail(apierr.Invalidf("age must be positive, got %s", d))
	}
	return b.ReceivedBefore(b.now().Add(-d))
}

// ReceivedBefore matches mail received before t, to the second.
func (b *QueryBuilder) ReceivedBefore(t time.Time) *QueryBuilder {
	b.before = strconv.FormatInt(t.Unix(), 10)
	return b
}

func (b *QueryBuilder) InDateRange(start, end time.Time) *QueryBuilder {
	if !start.Before(end) {
		return b.fail(apierr.Invalidf("start date must be before end date"))
	}
	b.after = start.Format(queryDateLayout)
	b.before = end.Format(queryDateLayout)
	return b
}

func (b *QueryBuilder) Today() *QueryBuilder {
	return b.AfterDate(daterange.StartOfDay(b.now()))
}

func (b *QueryBuilder) Yesterday() *QueryBuilder {
	today := daterange.StartOfDay(b.now())
	b.after = today.AddDate(0, 0, -1).Format(queryDateLayout)
	b.before = today.Format(queryDateLayout)
	return b
}

// LastDays matches mail from the last n days.
func (b *QueryBuilder) LastDays(n int) *QueryBuilder {
	if err := validate.Positive("days", n); err != nil {
		return b.fail(err)
	}
	return b.AfterDate(daterange.StartOfDay(b.now()).AddDate(0, 0, -n))
}

func (b *QueryBuilder) ThisWeek() *QueryBuilder {
	return b.LastDays(daterange.DaysSinceMonday(b.now()) + 1)
}

func (b *QueryBuilder) ThisMonth() *QueryBuilder {
	return b.LastDays(b.now().Day())
}

// LargerThan matches messages over mb megabytes.
func (b *QueryBuilder) LargerThan(mb int) *QueryBuilder {
	if err := validate.Positive("size", mb); err != nil {
		return b.fail(err)
	}
	b.larger = mb
	return b
}

func (b *QueryBuilder) SmallerThan(mb int) *QueryBuilder {
	if err := validate.Positive("size", mb); err != nil {
		return b.fail(err)
	}
	b.smaller = mb
	return b
}

func (b *QueryBuilder) IncludeSpamTrash() *QueryBuilder {
	b.includeSpamTrash = true
	return b
}

func (b *QueryBuilder) WithLabelIDs(ids ...string) *QueryBuilder {
	b.labelIDs = append(b.labelIDs, ids...)
	return b
}

// queryValueStripper drops characters that would end or group an operator
// value.
var queryValueStripper = strings.NewReplacer(`"`, "", "(", "", ")", "", "{", "", "}", "")

func quoteIfSpaced(v string) string {
	v = queryValueStripper.Replace(v)
	if strings.ContainsAny(v, " \t") {
		return `"` + v + `"`
	}
	return v
}

func flag(v *bool, token string) string {
	switch {
	case v == nil:
		return ""
	case *v:
		return token
	default:
		return "-" + token
	}
}

// Query renders the q string.
func (b *QueryBuilder) Query() string {
	var parts []string
	add := func(tokens ...string) {
		for _, t := range tokens {
			if t != "" {
				parts = append(parts, t)
			}
		}
	}
	prefixed := func(prefix string, vs []string) {
		for _, v := range vs {
			if q := quoteIfSpaced(v); q != "" {
				add(prefix + q)
			}
		}
	}

	add(b.text...)
	prefixed("from:", b.from)
	prefixed("to:", b.to)
	prefixed("subject:", b.subject)
	add(flag(b.attachments, "has:attachment"))
	add(flag(b.unread, "is:unread"))
	add(flag(b.starred, "is:starred"))
	add(flag(b.important, "is:important"))
	prefixed("in:", b.folders)
	prefixed("label:", b.labels)
	prefixed("-label:", b.notLabels)
	if b.after != "" {
		add("after:" + b.after)
	}
	if b.before != "" {
		add("before:" + b.before)
	}
	if b.larger > 0 {
		add(fmt.Sprintf("larger:%dM", b.larger))
	}
	if b.smaller > 0 {
		add(fmt.Sprintf("smaller:%dM", b.smaller))
	}
	return strings.Join(parts, " ")
}

// Options is the list request this builder describes.
func (b *QueryBuilder) Options() (ListOptions, error) {
	if b.err != nil {
		return ListOptions{}, b.err
	}
	return ListOptions{
		MaxResults:       b.limit,
		Query:            b.Query(),
		IncludeSpamTrash: b.includeSpamTrash,
		LabelIDs:         b.labelIDs,
	}, nil
}

func (b *QueryBuilder) Execute(ctx context.Context) ([]Message, error) {
	opts, err := b.Options()
	if err != nil {
		return nil, err
	}
	return b.svc.ListEmails(ctx, opts)
}

// Count is the number of matches, up to MaxResultsLimit. Ids are listed
// page by page, since one list call returns at most 500; messages are not
// fetched.
func (b *QueryBuilder) Count(ctx context.Context) (int, error) {
	opts, err := b.Options()
	if err != nil {
		return 0, err
	}
	n := 0
	for n < MaxResultsLimit {
		opts.MaxResults = MaxResultsLimit - n
		ids, next, err := b.svc.ListMessageIDs(ctx, opts)
		if err != nil {
			return 0, err
		}
		n += len(ids)
		if next == "" {
			break
		}
		opts.PageToken = next
	}
	return min(n, MaxResultsLimit), nil
}

// First returns the first match, or nil when nothing matches.
func (b *QueryBuilder) First(ctx context.Context) (*Message, error) {
	saved := b.limit
	b.limit = 1
	defer func() { b.limit = saved }()
	msgs, err := b.Execute(ctx)
	if err != nil || len(msgs) == 0 {
		return nil, err
	}
	return &msgs[0], nil
}

func (b *QueryBuilder) Exists(ctx context.Context) (bool, error) {
	m, err := b.First(ctx)
	return m != nil, err
}

func (b *QueryBuilder) String() string {
	return fmt.Sprintf("gmail.QueryBuilder{query=%q limit=%d}", b.Query(), b.limit)
}
