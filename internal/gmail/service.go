package gmail

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joshsymonds/gworkspace/internal/apierr"
	"github.com/joshsymonds/gworkspace/internal/fanout"
	"github.com/joshsymonds/gworkspace/internal/logsafe"
	"github.com/joshsymonds/gworkspace/internal/rate"
	"github.com/joshsymonds/gworkspace/internal/validate"
)

// Service wraps a Gmail Client with validation, record mapping, throttling
// and error classification.
type Service struct {
	Client  Client
	Limiter rate.Limiter
	Logger  *slog.Logger
	Clock   func() time.Time
}

// NewService constructs a Service with sane defaults.
func NewService(client Client, limiter rate.Limiter, logger *slog.Logger) *Service {
	if limiter == nil {
		limiter = rate.Unlimited{}
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(os.Stderr, nil))
	}
	return &Service{Client: client, Limiter: limiter, Logger: logger, Clock: time.Now}
}

// Query starts a fluent search over this mailbox.
func (s *Service) Query() *QueryBuilder {
	return newQueryBuilder(s)
}

func (s *Service) wait(ctx context.Context) error {
	if err := s.Limiter.Wait(ctx); err != nil {
		return fmt.Errorf("gmail: %w", err)
	}
	return nil
}

func wrap(op string, err error) error {
	return apierr.FromGoogle(apierr.Gmail, op, err)
}

func (o ListOptions) normalized() (ListOptions, error) {
	if o.MaxResults == 0 {
		o.MaxResults = DefaultMaxResults
	}
	if err := validate.Limit(o.MaxResults, MaxResultsLimit); err != nil {
		return o, err
	}
	return o, nil
}

// ListMessageIDs returns one page of ids matching opts.
func (s *Service) ListMessageIDs(ctx context.Context, opts ListOptions) ([]string, string, error) {
	opts, err := opts.normalized()
	if err != nil {
		return nil, "", err
	}
	if err := s.wait(ctx); err != nil {
		return nil, "", err
	}
	ids, next, err := s.Client.ListMessages(ctx, opts)
	if err != nil {
		return nil, "", wrap("list messages", err)
	}
	return ids, next, nil
}

// ListEmails lists one page of matching ids and fetches each message. A
// message that fails to fetch is logged and left out.
func (s *Service) ListEmails(ctx context.Context, opts ListOptions) ([]Message, error) {
	ids, _, err := s.ListMessageIDs(ctx, opts)
	if err != nil {
		return nil, err
	}
	s.Logger.Debug("listed messages", "query", logsafe.Query(opts.Query), "count", len(ids))
	return s.BatchGetEmails(ctx, ids, fanout.Options{OnError: fanout.Skip})
}

func (s *Service) GetEmail(ctx context.Context, id string) (*Message, error) {
	if strings.TrimSpace(id) == "" {
		return nil, apierr.Invalidf("message id is required")
	}
	if err := s.wait(ctx); err != nil {
		return nil, err
	}
	raw, err := s.Client.GetMessage(ctx, id)
	if err != nil {
		return nil, wrap("get message", err)
	}
	m := fromAPIMessage(raw, s.Logger)
	return &m, nil
}

// BatchGetEmails fetches ids concurrently. Failures are skipped unless
// opts asks to raise.
func (s *Service) BatchGetEmails(ctx context.Context, ids []string, opts fanout.Options) ([]Message, error) {
	opts = s.batchOptions(opts, fanout.Skip, "get emails")
	return fanout.Map(ctx, ids, opts, func(ctx context.Context, id string) (Message, error) {
		m, err := s.GetEmail(ctx, id)
		if err != nil {
			return Message{}, err
		}
		return *m, nil
	})
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

// SendEmail validates d, builds the MIME message and sends it. The sent
// message is re-fetched so the caller gets provider-assigned fields.
func (s *Service) SendEmail(ctx context.Context, d Draft) (*Message, error) {
	if err := d.Validate(); err != nil {
		return nil, err
	}
	attachments := append([]AttachmentData(nil), d.Attachments...)
	for _, p := range d.AttachmentPaths {
		a, err := loadAttachment(p)
		if err != nil {
			return nil, apierr.Invalidf("attachment %s: %v", filepath.Base(p), err)
		}
		attachments = append(attachments, a)
	}
	raw, err := buildRaw(d, attachments)
	if err != nil {
		return nil, fmt.Errorf("build message: %w", err)
	}
	if err := s.wait(ctx); err != nil {
		return nil, err
	}
	sent, err := s.Client.SendMessage(ctx, raw, d.ThreadID)
	if err != nil {
		return nil, wrap("send message", err)
	}
	s.Logger.Info("sent message",
		"to", logsafe.Emails(d.To),
		"subject", logsafe.Subject(d.Subject),
		"message_id", logsafe.ID(sent.Id))
	return s.GetEmail(ctx, sent.Id)
}

// BatchSendEmails sends each draft. Failures are skipped unless opts asks to
// raise.
func (s *Service) BatchSendEmails(ctx context.Context, drafts []Draft, opts fanout.Options) ([]Message, error) {
	opts = s.batchOptions(opts, fanout.Skip, "send emails")
	return fanout.Map(ctx, drafts, opts, func(ctx context.Context, d Draft) (Message, error) {
		m, err := s.SendEmail(ctx, d)
		if err != nil {
			return Message{}, err
		}
		return *m, nil
	})
}

type ReplyOptions struct {
	BodyText        string
	BodyHTML        string
	AttachmentPaths []string
	// ReplyAll copies the original's other To and Cc recipients.
	ReplyAll bool
}

// Reply answers original in its thread. Replying to our own message goes to
// its recipients rather than back to ourselves.
func (s *Service) Reply(ctx context.Context, original *Message, r ReplyOptions) (*Message, error) {
	var to, cc []string
	switch {
	case original.IsFrom("me"):
		to = original.RecipientEmails()
	case original.Sender != nil:
		to = []string{original.Sender.Email}
	default:
		return nil, apierr.Invalidf("cannot reply: message %s has no sender", original.ID)
	}
	if r.ReplyAll {
		seen := map[string]bool{}
		for _, e := range to {
			seen[strings.ToLower(e)] = true
		}
		for _, e := range append(original.RecipientEmails(), emails(original.Cc)...) {
			if !seen[strings.ToLower(e)] {
				seen[strings.ToLower(e)] = true
				cc = append(cc, e)
			}
		}
	}
	subject := original.Subject
	if !strings.HasPrefix(strings.ToLower(subject), "re:") {
		subject = strings.TrimSpace("Re: " + subject)
	}
	s.Logger.Info("replying", "message_id", logsafe.ID(original.ID))
	return s.SendEmail(ctx, Draft{
		To:              to,
		Cc:              cc,
		Subject:         subject,
		BodyText:        r.BodyText,
		BodyHTML:        r.BodyHTML,
		AttachmentPaths: r.AttachmentPaths,
		InReplyTo:       original.ReplyToID,
		References:      referencesFor(original),
		ThreadID:        original.ThreadID,
	})
}

// Forward sends original to new recipients, quoting its body and optionally
// re-attaching its attachments.
func (s *Service) Forward(ctx context.Context, original *Message, to []string, includeAttachments bool) (*Message, error) {
	d := Draft{To: to, Subject: "Fwd:"}
	if original.Subject != "" {
		d.Subject = "Fwd: " + original.Subject
	}
	if original.BodyText != "" {
		d.BodyText = forwardBodyText(original)
	}
	if original.BodyHTML != "" {
		d.BodyHTML = forwardBodyHTML(original)
	}
	if d.BodyText == "" && d.BodyHTML == "" {
		d.BodyText = forwardBodyText(original)
	}
	if includeAttachments {
		for _, a := range original.Attachments {
			data, err := s.GetAttachment(ctx, a)
			if err != nil {
				return nil, err
			}
			d.Attachments = append(d.Attachments, AttachmentData{Filename: a.Filename, MimeType: a.MimeType, Data: data})
		}
	}
	s.Logger.Info("forwarding", "message_id", logsafe.ID(original.ID), "to", logsafe.Emails(to))
	return s.SendEmail(ctx, d)
}

func (s *Service) modify(ctx context.Context, m *Message, op string, add, remove []string) error {
	if err := s.wait(ctx); err != nil {
		return err
	}
	if err := s.Client.ModifyMessage(ctx, m.ID, add, remove); err != nil {
		return wrap(op, err)
	}
	m.applyLabels(add, remove)
	return nil
}

func (s *Service) MarkAsRead(ctx context.Context, m *Message) error {
	return s.modify(ctx, m, "mark as read", nil, []string{LabelUnread})
}

func (s *Service) MarkAsUnread(ctx context.Context, m *Message) error {
	return s.modify(ctx, m, "mark as unread", []string{LabelUnread}, nil)
}

func (s *Service) AddLabels(ctx context.Context, m *Message, labelIDs []string) error {
	if len(labelIDs) == 0 {
		return apierr.Invalidf("no labels to add")
	}
	return s.modify(ctx, m, "add labels", labelIDs, nil)
}

func (s *Service) RemoveLabels(ctx context.Context, m *Message, labelIDs []string) error {
	if len(labelIDs) == 0 {
		return apierr.Invalidf("no labels to remove")
	}
	return s.modify(ctx, m, "remove labels", nil, labelIDs)
}

// DeleteEmail moves m to the trash, or removes it for good when permanent.
func (s *Service) DeleteEmail(ctx context.Context, m *Message, permanent bool) error {
	if err := s.wait(ctx); err != nil {
		return err
	}
	if permanent {
		if err := s.Client.DeleteMessage(ctx, m.ID); err != nil {
			return wrap("delete message", err)
		}
		return nil
	}
	if err := s.Client.TrashMessage(ctx, m.ID); err != nil {
		return wrap("trash message", err)
	}
	m.applyLabels([]string{LabelTrash}, []string{LabelInbox})
	return nil
}

// BatchModify applies ops to ids in chunks the API accepts.
func (s *Service) BatchModify(ctx context.Context, ids []string, ops ModifyOps) error {
	remove := ops.remove()
	for i := 0; i < len(ids); i += batchModifyChunk {
		j := min(i+batchModifyChunk, len(ids))
		if err := s.wait(ctx); err != nil {
			return err
		}
		if err := s.Client.BatchModify(ctx, ids[i:j], ops.AddLabels, remove); err != nil {
			return wrap("batch modify", err)
		}
	}
	return nil
}

func (s *Service) GetAttachment(ctx context.Context, a Attachment) ([]byte, error) {
	if a.MessageID == "" || a.AttachmentID == "" {
		return nil, apierr.Invalidf("attachment is missing its message or attachment id")
	}
	if err := s.wait(ctx); err != nil {
		return nil, err
	}
	data, err := s.Client.GetAttachment(ctx, a.MessageID, a.AttachmentID)
	if err != nil {
		return nil, wrap("get attachment", err)
	}
	return data, nil
}

// DownloadAttachment writes a into dir and returns the path written. The
// filename is reduced to its base name so it cannot escape dir.
func (s *Service) DownloadAttachment(ctx context.Context, a Attachment, dir string) (string, error) {
	data, err := s.GetAttachment(ctx, a)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create download dir: %w", err)
	}
	path := filepath.Join(dir, safeFilename(a.Filename))
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write attachment: %w", err)
	}
	s.Logger.Info("downloaded attachment", "file", logsafe.Filename(a.Filename), "bytes", len(data))
	return path, nil
}

func safeFilename(name string) string {
	name = sanitizeHeaderValue(strings.ReplaceAll(name, `\`, "/"))
	name = filepath.Base(name)
	if name == "." || name == ".." || name == "/" || name == "" {
		return "attachment"
	}
	return name
}

func (s *Service) ListLabels(ctx context.Context) ([]Label, error) {
	if err := s.wait(ctx); err != nil {
		return nil, err
	}
	raw, err := s.Client.ListLabels(ctx)
	if err != nil {
		return nil, wrap("list labels", err)
	}
	out := make([]Label, 0, len(raw))
	for _, l := range raw {
		out = append(out, fromAPILabel(l))
	}
	return out, nil
}

func (s *Service) GetLabel(ctx context.Context, id string) (*Label, error) {
	if err := s.wait(ctx); err != nil {
		return nil, err
	}
	raw, err := s.Client.GetLabel(ctx, id)
	if err != nil {
		return nil, wrap("get label", err)
	}
	l := fromAPILabel(raw)
	return &l, nil
}

func (s *Service) CreateLabel(ctx context.Context, name string) (*Label, error) {
	if strings.TrimSpace(name) == "" {
		return nil, apierr.Invalidf("label name is required")
	}
	if err := s.wait(ctx); err != nil {
		return nil, err
	}
	raw, err := s.Client.CreateLabel(ctx, name)
	if err != nil {
		return nil, wrap("create label", err)
	}
	l := fromAPILabel(raw)
	return &l, nil
}

// UpdateLabel renames l and returns the provider's view of it.
func (s *Service) UpdateLabel(ctx context.Context, l *Label, newName string) (*Label, error) {
	if strings.TrimSpace(newName) == "" {
		return nil, apierr.Invalidf("label name is required")
	}
	if err := s.wait(ctx); err != nil {
		return nil, err
	}
	raw, err := s.Client.RenameLabel(ctx, l.ID, newName)
	if err != nil {
		return nil, wrap("update label", err)
	}
	updated := fromAPILabel(raw)
	return &updated, nil
}

func (s *Service) DeleteLabel(ctx context.Context, l *Label) error {
	if err := s.wait(ctx); err != nil {
		return err
	}
	return wrap("delete label", s.Client.DeleteLabel(ctx, l.ID))
}

// EnsureLabel returns the label called name, creating it if needed.
func (s *Service) EnsureLabel(ctx context.Context, name string) (*Label, error) {
	labels, err := s.ListLabels(ctx)
	if err != nil {
		return nil, err
	}
	for _, l := range labels {
		if l.Name == name {
			return &l, nil
		}
	}
	created, err := s.CreateLabel(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("create label %q: %w", name, err)
	}
	return created, nil
}

// ListThreads lists one page of threads and fetches each in full; threads
// that fail to fetch are skipped.
func (s *Service) ListThreads(ctx context.Context, opts ListOptions) ([]Thread, error) {
	opts, err := opts.normalized()
	if err != nil {
		return nil, err
	}
	if err := s.wait(ctx); err != nil {
		return nil, err
	}
	stubs, _, err := s.Client.ListThreads(ctx, opts)
	if err != nil {
		return nil, wrap("list threads", err)
	}
	ids := make([]string, 0, len(stubs))
	for _, t := range stubs {
		ids = append(ids, t.Id)
	}
	return fanout.Map(ctx, ids, s.batchOptions(fanout.Options{}, fanout.Skip, "get threads"), func(ctx context.Context, id string) (Thread, error) {
		t, err := s.GetThread(ctx, id)
		if err != nil {
			return Thread{}, err
		}
		return *t, nil
	})
}

func (s *Service) GetThread(ctx context.Context, id string) (*Thread, error) {
	if strings.TrimSpace(id) == "" {
		return nil, apierr.Invalidf("thread id is required")
	}
	if err := s.wait(ctx); err != nil {
		return nil, err
	}
	raw, err := s.Client.GetThread(ctx, id)
	if err != nil {
		return nil, wrap("get thread", err)
	}
	t := fromAPIThread(raw, s.Logger)
	return &t, nil
}

func (s *Service) DeleteThread(ctx context.Context, t *Thread, permanent bool) error {
	if err := s.wait(ctx); err != nil {
		return err
	}
	if permanent {
		return wrap("delete thread", s.Client.DeleteThread(ctx, t.ID))
	}
	return wrap("trash thread", s.Client.TrashThread(ctx, t.ID))
}

func (s *Service) ModifyThreadLabels(ctx context.Context, t *Thread, add, remove []string) error {
	if len(add) == 0 && len(remove) == 0 {
		return apierr.Invalidf("no label changes given")
	}
	if err := s.wait(ctx); err != nil {
		return err
	}
	if err := s.Client.ModifyThread(ctx, t.ID, add, remove); err != nil {
		return wrap("modify thread", err)
	}
	for i := range t.Messages {
		t.Messages[i].applyLabels(add, remove)
	}
	return nil
}

func (s *Service) UntrashThread(ctx context.Context, t *Thread) error {
	if err := s.wait(ctx); err != nil {
		return err
	}
	return wrap("untrash thread", s.Client.UntrashThread(ctx, t.ID))
}

// IsNotFound reports whether err is a Gmail 404.
func IsNotFound(err error) bool {
	return errors.Is(err, apierr.ErrGmail) && errors.Is(err, apierr.ErrNotFound)
}
