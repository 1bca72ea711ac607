package gmail

import (
	"context"

	gmailapi "google.golang.org/api/gmail/v1"
)

// Client is the narrow Gmail surface the service needs. runtime adapts
// *gmailapi.Service to it; tests use fakes.
type Client interface {
	ListMessages(ctx context.Context, opts ListOptions) (ids []string, nextPageToken string, err error)
	GetMessage(ctx context.Context, id string) (*gmailapi.Message, error)
	SendMessage(ctx context.Context, raw, threadID string) (*gmailapi.Message, error)
	ModifyMessage(ctx context.Context, id string, add, remove []string) error
	BatchModify(ctx context.Context, ids []string, add, remove []string) error
	TrashMessage(ctx context.Context, id string) error
	DeleteMessage(ctx context.Context, id string) error
	GetAttachment(ctx context.Context, messageID, attachmentID string) ([]byte, error)

	ListLabels(ctx context.Context) ([]*gmailapi.Label, error)
	GetLabel(ctx context.Context, id string) (*gmailapi.Label, error)
	CreateLabel(ctx context.Context, name string) (*gmailapi.Label, error)
	RenameLabel(ctx context.Context, id, name string) (*gmailapi.Label, error)
	DeleteLabel(ctx context.Context, id string) error

	ListThreads(ctx context.Context, opts ListOptions) (threads []*gmailapi.Thread, nextPageToken string, err error)
	GetThread(ctx context.Context, id string) (*gmailapi.Thread, error)
	ModifyThread(ctx context.Context, id string, add, remove []string) error
	TrashThread(ctx context.Context, id string) error
	UntrashThread(ctx context.Context, id string) error
	DeleteThread(ctx context.Context, id string) error
}
