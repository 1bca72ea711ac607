package drive

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"os"
	"path/filepath"
	"strings"

	driveapi "google.golang.org/api/drive/v3"

	"github.com/joshsymonds/gworkspace/internal/apierr"
	"github.com/joshsymonds/gworkspace/internal/logsafe"
	"github.com/joshsymonds/gworkspace/internal/rate"
	"github.com/joshsymonds/gworkspace/internal/validate"
)

// Service wraps a Drive Client.
type Service struct {
	Client  Client
	Limiter rate.Limiter
	Logger  *slog.Logger
}

func NewService(client Client, limiter rate.Limiter, logger *slog.Logger) *Service {
	if limiter == nil {
		limiter = rate.Unlimited{}
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(os.Stderr, nil))
	}
	return &Service{Client: client, Limiter: limiter, Logger: logger}
}

// Query starts a fluent file search.
func (s *Service) Query() *QueryBuilder {
	return newQueryBuilder(s)
}

func (s *Service) wait(ctx context.Context) error {
	if err := s.Limiter.Wait(ctx); err != nil {
		return fmt.Errorf("drive: %w", err)
	}
	return nil
}

func wrap(op string, err error) error {
	return apierr.FromGoogle(apierr.Drive, op, err)
}

func requireItem(it Item) error {
	switch v := it.(type) {
	case nil:
		return apierr.Invalidf("item is required")
	case *File:
		if v == nil {
			return apierr.Invalidf("item is required")
		}
	case *Folder:
		if v == nil {
			return apierr.Invalidf("item is required")
		}
	}
	if strings.TrimSpace(it.ItemID()) == "" {
		return apierr.Invalidf("item id is required")
	}
	return nil
}

// List runs a raw files.list query. A malformed query surfaces as
// apierr.ErrInvalidQuery.
func (s *Service) List(ctx context.Context, opts ListOptions) ([]Item, error) {
	params, err := opts.params()
	if err != nil {
		return nil, err
	}
	s.Logger.Debug("listing files", "query", logsafe.Query(params.Query), "page_size", params.PageSize)
	if err := s.wait(ctx); err != nil {
		return nil, err
	}
	raw, err := s.Client.ListFiles(ctx, params)
	if err != nil {
		return nil, wrap("list files", err)
	}
	out := make([]Item, 0, len(raw))
	for _, f := range raw {
		out = append(out, fromAPIItem(f, s.Logger))
	}
	s.Logger.Info("listed files", "count", len(out))
	return out, nil
}

func (s *Service) Get(ctx context.Context, id string) (Item, error) {
	raw, err := s.getRaw(ctx, id, "get file")
	if err != nil {
		return nil, err
	}
	return fromAPIItem(raw, s.Logger), nil
}

func (s *Service) getRaw(ctx context.Context, id, op string) (*driveapi.File, error) {
	if strings.TrimSpace(id) == "" {
		return nil, apierr.Invalidf("file id is required")
	}
	if err := s.wait(ctx); err != nil {
		return nil, err
	}
	raw, err := s.Client.GetFile(ctx, id)
	if err != nil {
		return nil, wrap(op, err)
	}
	return raw, nil
}

func (s *Service) getFolder(ctx context.Context, id string) (*Folder, error) {
	raw, err := s.getRaw(ctx, id, "get folder")
	if err != nil {
		return nil, err
	}
	return fromAPIFolder(raw, s.Logger), nil
}

func guessMimeType(path string) string {
	if t := mime.TypeByExtension(filepath.Ext(path)); t != "" {
		return t
	}
	return "application/octet-stream"
}

// UploadFile uploads the local file at path. A missing path is rejected
// before any call.
func (s *Service) UploadFile(ctx context.Context, path string, opts UploadOptions) (*File, error) {
	st, err := os.Stat(path)
	if err != nil {
		return nil, apierr.Invalidf("local file %s: %v", filepath.Base(path), err)
	}
	if st.IsDir() {
		return nil, apierr.Invalidf("local path %s is a directory", filepath.Base(path))
	}
	if opts.Name == "" {
		opts.Name = filepath.Base(path)
	}
	if opts.MimeType == "" {
		opts.MimeType = guessMimeType(path)
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", filepath.Base(path), err)
	}
	defer f.Close()
	return s.upload(ctx, f, opts)
}

// UploadContent uploads r as a new file named name. The MIME type defaults
// to text/plain.
func (s *Service) UploadContent(ctx context.Context, r io.Reader, name string, opts UploadOptions) (*File, error) {
	if strings.TrimSpace(name) == "" {
		return nil, apierr.Invalidf("file name is required")
	}
	opts.Name = name
	if opts.MimeType == "" {
		opts.MimeType = "text/plain"
	}
	return s.upload(ctx, r, opts)
}

func (s *Service) upload(ctx context.Context, r io.Reader, opts UploadOptions) (*File, error) {
	meta := fileMetadata(opts.Name, opts.ParentID, opts.Description, "")
	s.Logger.Info("uploading file", "name", logsafe.Filename(meta.Name), "mime_type", opts.MimeType)
	if err := s.wait(ctx); err != nil {
		return nil, err
	}
	raw, err := s.Client.CreateFile(ctx, meta, r, opts.MimeType)
	if err != nil {
		return nil, wrap("upload file", err)
	}
	f := fromAPIFile(raw, s.Logger)
	s.Logger.Info("uploaded file", "file_id", logsafe.ID(f.ID))
	return f, nil
}

// DownloadContent returns the bytes of f. Google Workspace files are
// exported: documents and slides as text, sheets as CSV, drawings as PNG.
func (s *Service) DownloadContent(ctx context.Context, f *File) ([]byte, error) {
	if err := requireItem(f); err != nil {
		return nil, err
	}
	if err := s.wait(ctx); err != nil {
		return nil, err
	}
	var (
		body io.ReadCloser
		err  error
	)
	if f.IsGoogleDoc() {
		format, ok := exportFormats[f.MimeType]
		if !ok {
			return nil, apierr.Invalidf("%s files cannot be downloaded", f.MimeType)
		}
		body, err = s.Client.Export(ctx, f.ID, format)
	} else {
		body, err = s.Client.Download(ctx, f.ID)
	}
	if err != nil {
		return nil, wrap("download file", err)
	}
	defer body.Close()
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, body); err != nil {
		return nil, wrap("download file", err)
	}
	s.Logger.Info("downloaded file", "file_id", logsafe.ID(f.ID), "bytes", buf.Len())
	return buf.Bytes(), nil
}

// DownloadFile writes f to localPath, creating parent directories.
func (s *Service) DownloadFile(ctx context.Context, f *File, localPath string) (string, error) {
	data, err := s.DownloadContent(ctx, f)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(localPath), 0o755); err != nil {
		return "", fmt.Errorf("create directory: %w", err)
	}
	if err := os.WriteFile(localPath, data, 0o644); err != nil {
		return "", fmt.Errorf("write %s: %w", filepath.Base(localPath), err)
	}
	return localPath, nil
}

// CreateFolder creates name under parent, or at the drive root when parent
// is nil.
func (s *Service) CreateFolder(ctx context.Context, name string, parent *Folder, description string) (*Folder, error) {
	if strings.TrimSpace(name) == "" {
		return nil, apierr.Invalidf("folder name is required")
	}
	parentID := ""
	if parent != nil {
		parentID = parent.ID
	}
	meta := fileMetadata(name, parentID, description, FolderMimeType)
	if err := s.wait(ctx); err != nil {
		return nil, err
	}
	raw, err := s.Client.CreateFile(ctx, meta, nil, "")
	if err != nil {
		return nil, wrap("create folder", err)
	}
	folder := fromAPIFolder(raw, s.Logger)
	s.Logger.Info("created folder", "folder_id", logsafe.ID(folder.ID), "name", logsafe.Filename(folder.Name))
	return folder, nil
}

func (s *Service) Delete(ctx context.Context, it Item) error {
	if err := requireItem(it); err != nil {
		return err
	}
	if err := s.wait(ctx); err != nil {
		return err
	}
	if err := s.Client.DeleteFile(ctx, it.ItemID()); err != nil {
		return wrap("delete file", err)
	}
	s.Logger.Info("deleted item", "file_id", logsafe.ID(it.ItemID()))
	return nil
}

// Copy duplicates it. An empty newName keeps the provider's default name
// and a nil parent keeps the source's location.
func (s *Service) Copy(ctx context.Context, it Item, newName string, parent *Folder) (Item, error) {
	if err := requireItem(it); err != nil {
		return nil, err
	}
	body := &driveapi.File{}
	if newName != "" {
		body.Name = sanitizeName(newName)
	}
	if parent != nil {
		body.Parents = []string{parent.ID}
	}
	if err := s.wait(ctx); err != nil {
		return nil, err
	}
	raw, err := s.Client.CopyFile(ctx, it.ItemID(), body)
	if err != nil {
		return nil, wrap("copy file", err)
	}
	return fromAPIItem(raw, s.Logger), nil
}

func (s *Service) Rename(ctx context.Context, it Item, name string) (Item, error) {
	if err := requireItem(it); err != nil {
		return nil, err
	}
	if strings.TrimSpace(name) == "" {
		return nil, apierr.Invalidf("new name is required")
	}
	if err := s.wait(ctx); err != nil {
		return nil, err
	}
	raw, err := s.Client.UpdateFile(ctx, it.ItemID(), &driveapi.File{Name: sanitizeName(name)}, "", "")
	if err != nil {
		return nil, wrap("rename file", err)
	}
	return fromAPIItem(raw, s.Logger), nil
}

// Share grants email access to it.
func (s *Service) Share(ctx context.Context, it Item, email string, opts ShareOptions) (*Permission, error) {
	if err := requireItem(it); err != nil {
		return nil, err
	}
	if opts.Role == "" {
		opts.Role = RoleReader
	}
	if err := validate.OneOf("role", opts.Role, shareRoles...); err != nil {
		return nil, err
	}
	perm, err := NewPermission(TypeUser, opts.Role, email, "")
	if err != nil {
		return nil, err
	}
	s.Logger.Info("sharing item", "file_id", logsafe.ID(it.ItemID()), "email", logsafe.Email(email), "role", opts.Role)
	if err := s.wait(ctx); err != nil {
		return nil, err
	}
	raw, err := s.Client.CreatePermission(ctx, it.ItemID(), permissionToAPI(*perm), !opts.SkipNotification, opts.Message)
	if err != nil {
		return nil, wrap("share file", err)
	}
	p := fromAPIPermission(raw)
	return &p, nil
}

func (s *Service) Permissions(ctx context.Context, it Item) ([]Permission, error) {
	if err := requireItem(it); err != nil {
		return nil, err
	}
	if err := s.wait(ctx); err != nil {
		return nil, err
	}
	raw, err := s.Client.ListPermissions(ctx, it.ItemID())
	if err != nil {
		return nil, wrap("list permissions", err)
	}
	out := make([]Permission, 0, len(raw))
	for _, p := range raw {
		out = append(out, fromAPIPermission(p))
	}
	return out, nil
}

func (s *Service) RemovePermission(ctx context.Context, it Item, permissionID string) error {
	if err := requireItem(it); err != nil {
		return err
	}
	if strings.TrimSpace(permissionID) == "" {
		return apierr.Invalidf("permission id is required")
	}
	if err := s.wait(ctx); err != nil {
		return err
	}
	if err := s.Client.DeletePermission(ctx, it.ItemID(), permissionID); err != nil {
		return wrap("remove permission", err)
	}
	s.Logger.Info("removed permission", "file_id", logsafe.ID(it.ItemID()), "permission_id", logsafe.ID(permissionID))
	return nil
}

func (s *Service) ListFolderContents(ctx context.Context, folder *Folder, opts ContentsOptions) ([]Item, error) {
	if err := requireItem(folder); err != nil {
		return nil, err
	}
	b := s.Query().InFolder(folder.ID)
	switch opts.Kind {
	case FolderKind:
		b.FoldersOnly()
	case FileKind:
		b.FilesOnly()
	}
	if opts.MaxResults != 0 {
		b.Limit(opts.MaxResults)
	}
	if opts.OrderBy != "" {
		b.OrderBy(opts.OrderBy)
	}
	return b.Execute(ctx)
}

// MoveToFolder adds target as a parent of it. Unless keepParents is set the
// current parents are removed, which makes this a move rather than a link.
func (s *Service) MoveToFolder(ctx context.Context, it Item, target *Folder, keepParents bool) (Item, error) {
	if err := requireItem(it); err != nil {
		return nil, err
	}
	if err := requireItem(target); err != nil {
		return nil, err
	}
	remove := ""
	if !keepParents {
		remove = strings.Join(it.ParentIDs(), ",")
	}
	if err := s.wait(ctx); err != nil {
		return nil, err
	}
	raw, err := s.Client.UpdateFile(ctx, it.ItemID(), &driveapi.File{}, target.ID, remove)
	if err != nil {
		return nil, wrap("move file", err)
	}
	s.Logger.Info("moved item", "file_id", logsafe.ID(it.ItemID()), "folder_id", logsafe.ID(target.ID))
	return fromAPIItem(raw, s.Logger), nil
}

// ParentFolder returns the first parent of it, or nil when it has none or
// the parent is gone.
func (s *Service) ParentFolder(ctx context.Context, it Item) (*Folder, error) {
	if err := requireItem(it); err != nil {
		return nil, err
	}
	parents := it.ParentIDs()
	if len(parents) == 0 {
		return nil, nil
	}
	folder, err := s.getFolder(ctx, parents[0])
	if apierr.IsNotFound(err) {
		s.Logger.Warn("parent folder not found", "folder_id", logsafe.ID(parents[0]))
		return nil, nil
	}
	return folder, err
}

func rootOrDefault(id string) string {
	if strings.TrimSpace(id) == "" {
		return RootFolderID
	}
	return id
}

func (s *Service) childFolderID(ctx context.Context, parentID, name string) (string, error) {
	it, err := s.Query().InFolder(parentID).FoldersNamed(name).First(ctx)
	if err != nil || it == nil {
		return "", err
	}
	return it.ItemID(), nil
}

// FolderByPath resolves a slash-separated path such as "/Documents/Projects"
// below rootID (default the drive root). It returns nil when any segment is
// missing.
func (s *Service) FolderByPath(ctx context.Context, path, rootID string) (*Folder, error) {
	current := rootOrDefault(rootID)
	for _, name := range parseFolderPath(path) {
		id, err := s.childFolderID(ctx, current, name)
		if err != nil {
			return nil, fmt.Errorf("resolve %q: %w", path, err)
		}
		if id == "" {
			s.Logger.Info("folder path segment not found", "segment", logsafe.Filename(name))
			return nil, nil
		}
		current = id
	}
	folder, err := s.getFolder(ctx, current)
	if apierr.IsNotFound(err) {
		return nil, nil
	}
	return folder, err
}

// CreateFolderPath resolves path below rootID, creating missing segments.
// description is applied only to a newly created final folder.
func (s *Service) CreateFolderPath(ctx context.Context, path, rootID, description string) (*Folder, error) {
	names := parseFolderPath(path)
	if len(names) == 0 {
		return nil, apierr.Invalidf("invalid folder path %q", path)
	}
	current := rootOrDefault(rootID)
	for i, name := range names {
		id, err := s.childFolderID(ctx, current, name)
		if err != nil {
			return nil, fmt.Errorf("resolve %q: %w", path, err)
		}
		if id != "" {
			current = id
			continue
		}
		desc := ""
		if i == len(names)-1 {
			desc = description
		}
		created, err := s.CreateFolder(ctx, name, &Folder{ID: current}, desc)
		if err != nil {
			return nil, err
		}
		current = created.ID
	}
	return s.getFolder(ctx, current)
}

// IsNotFound reports whether err is a Drive 404.
func IsNotFound(err error) bool {
	return errors.Is(err, apierr.ErrDrive) && errors.Is(err, apierr.ErrNotFound)
}
