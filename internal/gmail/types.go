package gmail

import (
	"slices"
	"strings"
	"time"

	"github.com/joshsymonds/gworkspace/internal/apierr"
	"github.com/joshsymonds/gworkspace/internal/validate"
)

const (
	MaxResultsLimit   = 2500
	DefaultMaxResults = 30
	MaxSubjectLength  = 998
	MaxBodyLength     = 25_000_000
	// batchModifyChunk is the most ids messages.batchModify accepts at once.
	batchModifyChunk = 1000
)

// System label ids.
const (
	LabelInbox     = "INBOX"
	LabelUnread    = "UNREAD"
	LabelStarred   = "STARRED"
	LabelImportant = "IMPORTANT"
	LabelSent      = "SENT"
	LabelTrash     = "TRASH"
)

type Address struct {
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
}

func NewAddress(email, name string) (Address, error) {
	if err := validate.Email("address", email); err != nil {
		return Address{}, err
	}
	return Address{Email: email, Name: name}, nil
}

func (a Address) String() string {
	if a.Name == "" {
		return a.Email
	}
	return a.Name + " <" + a.Email + ">"
}

type Attachment struct {
	Filename     string `json:"filename"`
	MimeType     string `json:"mime_type"`
	Size         int64  `json:"size"`
	AttachmentID string `json:"attachment_id"`
	MessageID    string `json:"message_id"`
}

// AttachmentData is an attachment already in memory, e.g. one being
// forwarded.
type AttachmentData struct {
	Filename string
	MimeType string
	Data     []byte
}

type Label struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Type string `json:"type,omitempty"`
}

func NewLabel(id, name, typ string) (Label, error) {
	if strings.TrimSpace(id) == "" || strings.TrimSpace(name) == "" {
		return Label{}, apierr.Invalidf("label id and name are required")
	}
	return Label{ID: id, Name: name, Type: typ}, nil
}

// Message is a fetched email.
type Message struct {
	ID          string       `json:"message_id"`
	ThreadID    string       `json:"thread_id,omitempty"`
	ReplyToID   string       `json:"reply_to_id,omitempty"` // the Message-ID header
	References  string       `json:"references,omitempty"`
	Subject     string       `json:"subject,omitempty"`
	Sender      *Address     `json:"sender,omitempty"`
	To          []Address    `json:"to,omitempty"`
	Cc          []Address    `json:"cc,omitempty"`
	Bcc         []Address    `json:"bcc,omitempty"`
	Date        time.Time    `json:"date,omitzero"`
	BodyText    string       `json:"body_text,omitempty"`
	BodyHTML    string       `json:"body_html,omitempty"`
	Attachments []Attachment `json:"attachments,omitempty"`
	LabelIDs    []string     `json:"label_ids,omitempty"`
	IsRead      bool         `json:"is_read"`
	IsStarred   bool         `json:"is_starred"`
	IsImportant bool         `json:"is_important"`
	Snippet     string       `json:"snippet,omitempty"`
	ListID      string       `json:"list_id,omitempty"` // the List-Id header, as sent
}

// NewMessage validates m's text limits and addresses.
func NewMessage(m Message) (*Message, error) {
	if err := validate.MaxLen("subject", m.Subject, MaxSubjectLength); err != nil {
		return nil, err
	}
	if err := validate.MaxLen("body text", m.BodyText, MaxBodyLength); err != nil {
		return nil, err
	}
	if err := validate.MaxLen("body html", m.BodyHTML, MaxBodyLength); err != nil {
		return nil, err
	}
	if m.Sender != nil {
		if err := validate.Email("sender", m.Sender.Email); err != nil {
			return nil, err
		}
	}
	for _, list := range [][]Address{m.To, m.Cc, m.Bcc} {
		for _, a := range list {
			if err := validate.Email("recipient", a.Email); err != nil {
				return nil, err
			}
		}
	}
	return &m, nil
}

// PlainText prefers the text body and falls back to the snippet.
func (m *Message) PlainText() string {
	if m.BodyText != "" {
		return m.BodyText
	}
	return m.Snippet
}

func (m *Message) HasAttachments() bool { return len(m.Attachments) > 0 }

func (m *Message) HasLabel(id string) bool { return slices.Contains(m.LabelIDs, id) }

// IsFrom matches the sender address case-insensitively. "me" matches mail
// the authenticated user sent.
func (m *Message) IsFrom(email string) bool {
	if strings.EqualFold(email, "me") {
		return m.HasLabel(LabelSent)
	}
	return m.Sender != nil && strings.EqualFold(m.Sender.Email, email)
}

func (m *Message) RecipientEmails() []string {
	return emails(m.To)
}

// AllRecipientEmails covers To, Cc and Bcc.
func (m *Message) AllRecipientEmails() []string {
	out := emails(m.To)
	out = append(out, emails(m.Cc)...)
	return append(out, emails(m.Bcc)...)
}

func emails(as []Address) []string {
	out := make([]string, 0, len(as))
	for _, a := range as {
		out = append(out, a.Email)
	}
	return out
}

// applyLabels mirrors a successful provider label change onto m.
func (m *Message) applyLabels(add, remove []string) {
	for _, id := range add {
		if !slices.Contains(m.LabelIDs, id) {
			m.LabelIDs = append(m.LabelIDs, id)
		}
	}
	m.LabelIDs = slices.DeleteFunc(m.LabelIDs, func(id string) bool { return slices.Contains(remove, id) })
	m.IsRead = !m.HasLabel(LabelUnread)
	m.IsStarred = m.HasLabel(LabelStarred)
	m.IsImportant = m.HasLabel(LabelImportant)
}

type Thread struct {
	ID        string    `json:"thread_id"`
	Snippet   string    `json:"snippet,omitempty"`
	HistoryID uint64    `json:"history_id,omitempty"`
	Messages  []Message `json:"messages,omitempty"`
}

// LabelIDs is the union of every message's labels.
func (t *Thread) LabelIDs() []string {
	var out []string
	for _, m := range t.Messages {
		for _, id := range m.LabelIDs {
			if !slices.Contains(out, id) {
				out = append(out, id)
			}
		}
	}
	return out
}

func (t *Thread) HasUnread() bool {
	return slices.ContainsFunc(t.Messages, func(m Message) bool { return !m.IsRead })
}

// Draft is an outgoing message.
type Draft struct {
	To              []string
	Cc              []string
	Bcc             []string
	Subject         string
	BodyText        string
	BodyHTML        string
	AttachmentPaths []string
	Attachments     []AttachmentData
	// Threading.
	InReplyTo  string
	References string
	ThreadID   string
}

// Validate runs every local check SendEmail would, without I/O.
func (d Draft) Validate() error {
	if len(d.To) == 0 {
		return apierr.Invalidf("at least one recipient is required")
	}
	for _, list := range [][]string{d.To, d.Cc, d.Bcc} {
		for _, addr := range list {
			if err := validate.Email("recipient", addr); err != nil {
				return err
			}
		}
	}
	if err := validate.MaxLen("subject", d.Subject, MaxSubjectLength); err != nil {
		return err
	}
	if err := validate.MaxLen("body text", d.BodyText, MaxBodyLength); err != nil {
		return err
	}
	return validate.MaxLen("body html", d.BodyHTML, MaxBodyLength)
}

// ListOptions parameterizes messages.list and threads.list.
type ListOptions struct {
	MaxResults       int
	Query            string
	IncludeSpamTrash bool
	LabelIDs         []string
	PageToken        string
}

// ModifyOps is a label change applied to many messages at once.
type ModifyOps struct {
	AddLabels    []string
	RemoveLabels []string
	MarkRead     bool // implies removing UNREAD
	Archive      bool // implies removing INBOX
}

func (o ModifyOps) remove() []string {
	out := slices.Clone(o.RemoveLabels)
	if o.MarkRead && !slices.Contains(out, LabelUnread) {
		out = append(out, LabelUnread)
	}
	if o.Archive && !slices.Contains(out, LabelInbox) {
		out = append(out, LabelInbox)
	}
	return out
}
