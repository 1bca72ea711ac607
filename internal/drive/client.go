package drive

import (
	"context"
	"io"

	driveapi "google.golang.org/api/drive/v3"
)

// Client is the subset of the Drive API the service needs. Implementations
// request FileFields on every file response.
type Client interface {
	ListFiles(ctx context.Context, p ListParams) ([]*driveapi.File, error)
	GetFile(ctx context.Context, fileID string) (*driveapi.File, error)
	// CreateFile creates metadata f, uploading media when it is non-nil.
	CreateFile(ctx context.Context, f *driveapi.File, media io.Reader, mimeType string) (*driveapi.File, error)
	UpdateFile(ctx context.Context, fileID string, f *driveapi.File, addParents, removeParents string) (*driveapi.File, error)
	CopyFile(ctx context.Context, fileID string, f *driveapi.File) (*driveapi.File, error)
	DeleteFile(ctx context.Context, fileID string) error
	// Download streams stored content; Export converts a Google Workspace file.
	Download(ctx context.Context, fileID string) (io.ReadCloser, error)
	Export(ctx context.Context, fileID, mimeType string) (io.ReadCloser, error)

	CreatePermission(ctx context.Context, fileID string, p *driveapi.Permission, notify bool, message string) (*driveapi.Permission, error)
	ListPermissions(ctx context.Context, fileID string) ([]*driveapi.Permission, error)
	DeletePermission(ctx context.Context, fileID, permissionID string) error
}
