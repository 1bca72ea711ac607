package gmail

import (
	"context"
	"encoding/base64"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"google.golang.org/api/googleapi"
	gmailapi "google.golang.org/api/gmail/v1"
)

func slogDiscard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type modifyCall struct {
	id          string
	add, remove []string
}

type fakeClient struct {
	listOpts    []ListOptions
	listIDs     []string
	listNext    string
	listPages   map[string]fakePage // by page token, overrides listIDs
	listErr     error
	messages    map[string]*gmailapi.Message
	getErr      map[string]error
	sent        []string
	sentThread  []string
	sendErr     error
	modified    []modifyCall
	modifyErr   error
	batches     [][]string
	batchOps    []modifyCall
	trashed     []string
	deleted     []string
	attachments map[string][]byte
	labels      []*gmailapi.Label
	created     []string
	threads     map[string]*gmailapi.Thread
}

type fakePage struct {
	ids  []string
	next string
}

func newFakeClient() *fakeClient {
	return &fakeClient{
		messages:    map[string]*gmailapi.Message{},
		getErr:      map[string]error{},
		attachments: map[string][]byte{},
		threads:     map[string]*gmailapi.Thread{},
	}
}

func notFound() error { return &googleapi.Error{Code: http.StatusNotFound, Message: "Requested entity was not found."} }

func (f *fakeClient) ListMessages(_ context.Context, opts ListOptions) ([]string, string, error) {
	f.listOpts = append(f.listOpts, opts)
	if f.listErr != nil {
		return nil, "", f.listErr
	}
	if f.listPages != nil {
		p := f.listPages[opts.PageToken]
		return p.ids, p.next, nil
	}
	ids := f.listIDs
	if len(ids) > opts.MaxResults {
		ids = ids[:opts.MaxResults]
	}
	return ids, f.listNext, nil
}

func (f *fakeClient) GetMessage(_ context.Context, id string) (*gmailapi.Message, error) {
	if err := f.getErr[id]; err != nil {
		return nil, err
	}
	m, ok := f.messages[id]
	if !ok {
		return nil, notFound()
	}
	return m, nil
}

func (f *fakeClient) SendMessage(_ context.Context, raw, threadID string) (*gmailapi.Message, error) {
	if f.sendErr != nil {
		return nil, f.sendErr
	}
	f.sent = append(f.sent, raw)
	f.sentThread = append(f.sentThread, threadID)
	id := "sent-" + strconv.Itoa(len(f.sent))
	f.messages[id] = &gmailapi.Message{Id: id, ThreadId: threadID, LabelIds: []string{LabelSent}}
	return &gmailapi.Message{Id: id}, nil
}

func (f *fakeClient) ModifyMessage(_ context.Context, id string, add, remove []string) error {
	if f.modifyErr != nil {
		return f.modifyErr
	}
	f.modified = append(f.modified, modifyCall{id, add, remove})
	return nil
}

func (f *fakeClient) BatchModify(_ context.Context, ids []string, add, remove []string) error {
	f.batches = append(f.batches, append([]string(nil), ids...))
	f.batchOps = append(f.batchOps, modifyCall{"", add, remove})
	return nil
}

func (f *fakeClient) TrashMessage(_ context.Context, id string) error {
	f.trashed = append(f.trashed, id)
	return nil
}

func (f *fakeClient) DeleteMessage(_ context.Context, id string) error {
	f.deleted = append(f.deleted, id)
	return nil
}

func (f *fakeClient) GetAttachment(_ context.Context, messageID, attachmentID string) ([]byte, error) {
	data, ok := f.attachments[messageID+"/"+attachmentID]
	if !ok {
		return nil, notFound()
	}
	return data, nil
}

func (f *fakeClient) ListLabels(context.Context) ([]*gmailapi.Label, error) {
	return f.labels, nil
}

func (f *fakeClient) GetLabel(_ context.Context, id string) (*gmailapi.Label, error) {
	for _, l := range f.labels {
		if l.Id == id {
			return l, nil
		}
	}
	return nil, notFound()
}

func (f *fakeClient) CreateLabel(_ context.Context, name string) (*gmailapi.Label, error) {
	f.created = append(f.created, name)
	l := &gmailapi.Label{Id: "Label_" + strconv.Itoa(len(f.labels)+1), Name: name, Type: "user"}
	f.labels = append(f.labels, l)
	return l, nil
}

func (f *fakeClient) RenameLabel(_ context.Context, id, name string) (*gmailapi.Label, error) {
	for _, l := range f.labels {
		if l.Id == id {
			l.Name = name
			return l, nil
		}
	}
	return nil, notFound()
}

func (f *fakeClient) DeleteLabel(_ context.Context, id string) error {
	for i, l := range f.labels {
		if l.Id == id {
			f.labels = append(f.labels[:i], f.labels[i+1:]...)
			return nil
		}
	}
	return notFound()
}

func (f *fakeClient) ListThreads(_ context.Context, opts ListOptions) ([]*gmailapi.Thread, string, error) {
	var out []*gmailapi.Thread
	for id := range f.threads {
		out = append(out, &gmailapi.Thread{Id: id})
	}
	return out, "", nil
}

func (f *fakeClient) GetThread(_ context.Context, id string) (*gmailapi.Thread, error) {
	t, ok := f.threads[id]
	if !ok {
		return nil, notFound()
	}
	return t, nil
}

func (f *fakeClient) ModifyThread(_ context.Context, id string, add, remove []string) error {
	f.modified = append(f.modified, modifyCall{id, add, remove})
	return nil
}

func (f *fakeClient) TrashThread(_ context.Context, id string) error {
	f.trashed = append(f.trashed, id)
	return nil
}

func (f *fakeClient) UntrashThread(_ context.Context, id string) error {
	if _, ok := f.threads[id]; !ok {
		return notFound()
	}
	return nil
}

func (f *fakeClient) DeleteThread(_ context.Context, id string) error {
	f.deleted = append(f.deleted, id)
	return nil
}

var _ Client = (*fakeClient)(nil)

var errBoom = errors.New("boom")

func b64(s string) string { return base64.URLEncoding.EncodeToString([]byte(s)) }

// apiMessage builds a full-format message with a text/html alternative body.
func apiMessage(id, from, subject string, labels ...string) *gmailapi.Message {
	return &gmailapi.Message{
		Id:       id,
		ThreadId: "t-" + id,
		LabelIds: labels,
		Snippet:  "Hi &amp; welcome",
		Payload: &gmailapi.MessagePart{
			MimeType: "multipart/alternative",
			Headers: []*gmailapi.MessagePartHeader{
				{Name: "From", Value: from},
				{Name: "To", Value: "Alice <alice@example.com>, bob@example.com"},
				{Name: "Subject", Value: " " + subject + " "},
				{Name: "Date", Value: "Mon, 02 Mar 2026 10:15:00 +0000"},
				{Name: "Message-ID", Value: "<" + id + "@mail.example.com>"},
			},
			Parts: []*gmailapi.MessagePart{
				{MimeType: "text/plain", Body: &gmailapi.MessagePartBody{Data: b64("plain body")}},
				{MimeType: "text/html", Body: &gmailapi.MessagePartBody{Data: b64("<p>html body</p>")}},
			},
		},
	}
}
