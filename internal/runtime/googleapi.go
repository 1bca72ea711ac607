// Package runtime adapts the generated Google API clients to the narrow
// Client interfaces and wires credentials, limiters and loggers together.
package runtime

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"

	"google.golang.org/api/gmail/v1"

	gc "github.com/joshsymonds/gworkspace/internal/gmail"
)

const me = "me"

type googleClient struct{ svc *gmail.Service }

func NewGoogleAPIClient(svc *gmail.Service) gc.Client { return &googleClient{svc} }

func (g *googleClient) ListMessages(ctx context.Context, opts gc.ListOptions) ([]string, string, error) {
	call := g.svc.Users.Messages.List(me).MaxResults(int64(opts.MaxResults))
	if opts.Query != "" {
		call = call.Q(opts.Query)
	}
	if opts.IncludeSpamTrash {
		call = call.IncludeSpamTrash(true)
	}
	if len(opts.LabelIDs) > 0 {
		call = call.LabelIds(opts.LabelIDs...)
	}
	if opts.PageToken != "" {
		call = call.PageToken(opts.PageToken)
	}
	res, err := call.Context(ctx).Do()
	if err != nil {
		return nil, "", err
	}
	ids := make([]string, 0, len(res.Messages))
	for _, m := range res.Messages {
		ids = append(ids, m.Id)
	}
	return ids, res.NextPageToken, nil
}

func (g *googleClient) GetMessage(ctx context.Context, id string) (*gmail.Message, error) {
	return g.svc.Users.Messages.Get(me, id).Format("full").Context(ctx).Do()
}

func (g *googleClient) SendMessage(ctx context.Context, raw, threadID string) (*gmail.Message, error) {
	return g.svc.Users.Messages.Send(me, &gmail.Message{Raw: raw, ThreadId: threadID}).Context(ctx).Do()
}

func (g *googleClient) ModifyMessage(ctx context.Context, id string, add, remove []string) error {
	req := &gmail.ModifyMessageRequest{AddLabelIds: add, RemoveLabelIds: remove}
	_, err := g.svc.Users.Messages.Modify(me, id, req).Context(ctx).Do()
	return err
}

func (g *googleClient) BatchModify(ctx context.Context, ids []string, add, remove []string) error {
	req := &gmail.BatchModifyMessagesRequest{Ids: ids}
	if len(add) > 0 {
		req.AddLabelIds = add
	}
	if len(remove) > 0 {
		req.RemoveLabelIds = remove
	}
	return g.svc.Users.Messages.BatchModify(me, req).Context(ctx).Do()
}

func (g *googleClient) TrashMessage(ctx context.Context, id string) error {
	_, err := g.svc.Users.Messages.Trash(me, id).Context(ctx).Do()
	return err
}

func (g *googleClient) DeleteMessage(ctx context.Context, id string) error {
	return g.svc.Users.Messages.Delete(me, id).Context(ctx).Do()
}

func (g *googleClient) GetAttachment(ctx context.Context, messageID, attachmentID string) ([]byte, error) {
	body, err := g.svc.Users.Messages.Attachments.Get(me, messageID, attachmentID).Context(ctx).Do()
	if err != nil {
		return nil, err
	}
	data, err := base64.RawURLEncoding.DecodeString(strings.TrimRight(body.Data, "="))
	if err != nil {
		return nil, fmt.Errorf("decode attachment %s: %w", attachmentID, err)
	}
	return data, nil
}

func (g *googleClient) ListLabels(ctx context.Context) ([]*gmail.Label, error) {
	lr, err := g.svc.Users.Labels.List(me).Context(ctx).Do()
	if err != nil {
		return nil, err
	}
	return lr.Labels, nil
}

func (g *googleClient) GetLabel(ctx context.Context, id string) (*gmail.Label, error) {
	return g.svc.Users.Labels.Get(me, id).Context(ctx).Do()
}

func (g *googleClient) CreateLabel(ctx context.Context, name string) (*gmail.Label, error) {
	l := &gmail.Label{Name: name, LabelListVisibility: "labelShow", MessageListVisibility: "show"}
	return g.svc.Users.Labels.Create(me, l).Context(ctx).Do()
}

func (g *googleClient) RenameLabel(ctx context.Context, id, name string) (*gmail.Label, error) {
	return g.svc.Users.Labels.Patch(me, id, &gmail.Label{Name: name}).Context(ctx).Do()
}

func (g *googleClient) DeleteLabel(ctx context.Context, id string) error {
	return g.svc.Users.Labels.Delete(me, id).Context(ctx).Do()
}

func (g *googleClient) ListThreads(ctx context.Context, opts gc.ListOptions) ([]*gmail.Thread, string, error) {
	call := g.svc.Users.Threads.List(me).MaxResults(int64(opts.MaxResults))
	if opts.Query != "" {
		call = call.Q(opts.Query)
	}
	if opts.IncludeSpamTrash {
		call = call.IncludeSpamTrash(true)
	}
	if len(opts.LabelIDs) > 0 {
		call = call.LabelIds(opts.LabelIDs...)
	}
	if opts.PageToken != "" {
		call = call.PageToken(opts.PageToken)
	}
	res, err := call.Context(ctx).Do()
	if err != nil {
		return nil, "", err
	}
	return res.Threads, res.NextPageToken, nil
}

func (g *googleClient) GetThread(ctx context.Context, id string) (*gmail.Thread, error) {
	return g.svc.Users.Threads.Get(me, id).Format("full").Context(ctx).Do()
}

func (g *googleClient) ModifyThread(ctx context.Context, id string, add, remove []string) error {
	req := &gmail.ModifyThreadRequest{AddLabelIds: add, RemoveLabelIds: remove}
	_, err := g.svc.Users.Threads.Modify(me, id, req).Context(ctx).Do()
	return err
}

func (g *googleClient) TrashThread(ctx context.Context, id string) error {
	_, err := g.svc.Users.Threads.Trash(me, id).Context(ctx).Do()
	return err
}

func (g *googleClient) UntrashThread(ctx context.Context, id string) error {
	_, err := g.svc.Users.Threads.Untrash(me, id).Context(ctx).Do()
	return err
}

func (g *googleClient) DeleteThread(ctx context.Context, id string) error {
	return g.svc.Users.Threads.Delete(me, id).Context(ctx).Do()
}

var _ gc.Client = (*googleClient)(nil)
