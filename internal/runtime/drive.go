package runtime

import (
	"context"
	"io"

	driveapi "google.golang.org/api/drive/v3"
	"google.golang.org/api/googleapi"

	"github.com/joshsymonds/gworkspace/internal/drive"
)

const fileFields = googleapi.Field(drive.FileFields)

type driveClient struct{ svc *driveapi.Service }

func NewDriveClient(svc *driveapi.Service) drive.Client { return &driveClient{svc} }

func (c *driveClient) ListFiles(ctx context.Context, p drive.ListParams) ([]*driveapi.File, error) {
	call := c.svc.Files.List().
		PageSize(int64(p.PageSize)).
		Fields("nextPageToken", "files("+fileFields+")")
	if p.Query != "" {
		call = call.Q(p.Query)
	}
	if p.OrderBy != "" {
		call = call.OrderBy(p.OrderBy)
	}
	res, err := call.Context(ctx).Do()
	if err != nil {
		return nil, err
	}
	return res.Files, nil
}

func (c *driveClient) GetFile(ctx context.Context, fileID string) (*driveapi.File, error) {
	return c.svc.Files.Get(fileID).Fields(fileFields).Context(ctx).Do()
}

func (c *driveClient) CreateFile(ctx context.Context, f *driveapi.File, media io.Reader, mimeType string) (*driveapi.File, error) {
	call := c.svc.Files.Create(f).Fields(fileFields)
	if media != nil {
		call = call.Media(media, googleapi.ContentType(mimeType))
	}
	return call.Context(ctx).Do()
}

func (c *driveClient) UpdateFile(ctx context.Context, fileID string, f *driveapi.File, addParents, removeParents string) (*driveapi.File, error) {
	call := c.svc.Files.Update(fileID, f).Fields(fileFields)
	if addParents != "" {
		call = call.AddParents(addParents)
	}
	if removeParents != "" {
		call = call.RemoveParents(removeParents)
	}
	return call.Context(ctx).Do()
}

func (c *driveClient) CopyFile(ctx context.Context, fileID string, f *driveapi.File) (*driveapi.File, error) {
	return c.svc.Files.Copy(fileID, f).Fields(fileFields).Context(ctx).Do()
}

func (c *driveClient) DeleteFile(ctx context.Context, fileID string) error {
	return c.svc.Files.Delete(fileID).Context(ctx).Do()
}

func (c *driveClient) Download(ctx context.Context, fileID string) (io.ReadCloser, error) {
	resp, err := c.svc.Files.Get(fileID).Context(ctx).Download()
	if err != nil {
		return nil, err
	}
	return resp.Body, nil
}

func (c *driveClient) Export(ctx context.Context, fileID, mimeType string) (io.ReadCloser, error) {
	resp, err := c.svc.Files.Export(fileID, mimeType).Context(ctx).Download()
	if err != nil {
		return nil, err
	}
	return resp.Body, nil
}

func (c *driveClient) CreatePermission(ctx context.Context, fileID string, p *driveapi.Permission, notify bool, message string) (*driveapi.Permission, error) {
	call := c.svc.Permissions.Create(fileID, p).
		SendNotificationEmail(notify).
		Fields("*")
	if message != "" {
		call = call.EmailMessage(message)
	}
	return call.Context(ctx).Do()
}

func (c *driveClient) ListPermissions(ctx context.Context, fileID string) ([]*driveapi.Permission, error) {
	res, err := c.svc.Permissions.List(fileID).Fields("permissions(*)").Context(ctx).Do()
	if err != nil {
		return nil, err
	}
	return res.Permissions, nil
}

func (c *driveClient) DeletePermission(ctx context.Context, fileID, permissionID string) error {
	return c.svc.Permissions.Delete(fileID, permissionID).Context(ctx).Do()
}

var _ drive.Client = (*driveClient)(nil)
