package drive

import (
	"log/slog"
	"strings"
	"time"

	driveapi "google.golang.org/api/drive/v3"

	"github.com/joshsymonds/gworkspace/internal/logsafe"
)

func parseTime(raw, field, id string, logger *slog.Logger) time.Time {
	if raw == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		logger.Warn("unparsable drive timestamp", "file_id", logsafe.ID(id), "field", field)
		return time.Time{}
	}
	return t.UTC()
}

func fromAPIPermission(p *driveapi.Permission) Permission {
	return Permission{
		ID:           p.Id,
		Type:         p.Type,
		Role:         p.Role,
		EmailAddress: p.EmailAddress,
		Domain:       p.Domain,
		DisplayName:  p.DisplayName,
		Deleted:      p.Deleted,
	}
}

func permissionToAPI(p Permission) *driveapi.Permission {
	return &driveapi.Permission{
		Type:         p.Type,
		Role:         p.Role,
		EmailAddress: p.EmailAddress,
		Domain:       p.Domain,
	}
}

func owners(users []*driveapi.User) []string {
	var out []string
	for _, u := range users {
		if u != nil && u.EmailAddress != "" {
			out = append(out, u.EmailAddress)
		}
	}
	return out
}

func permissions(raw []*driveapi.Permission) []Permission {
	var out []Permission
	for _, p := range raw {
		if p != nil {
			out = append(out, fromAPIPermission(p))
		}
	}
	return out
}

func fromAPIFile(f *driveapi.File, logger *slog.Logger) *File {
	out := &File{
		ID:               f.Id,
		Name:             strings.TrimSpace(f.Name),
		MimeType:         f.MimeType,
		Size:             f.Size,
		CreatedTime:      parseTime(f.CreatedTime, "createdTime", f.Id, logger),
		ModifiedTime:     parseTime(f.ModifiedTime, "modifiedTime", f.Id, logger),
		Parents:          f.Parents,
		WebViewLink:      f.WebViewLink,
		WebContentLink:   f.WebContentLink,
		Owners:           owners(f.Owners),
		Permissions:      permissions(f.Permissions),
		Description:      f.Description,
		Starred:          f.Starred,
		Trashed:          f.Trashed,
		Shared:           f.Shared,
		OriginalFilename: f.OriginalFilename,
		FileExtension:    f.FileExtension,
		MD5Checksum:      f.Md5Checksum,
	}
	if out.IsGoogleDoc() {
		out.Size = -1
	}
	return out
}

func fromAPIFolder(f *driveapi.File, logger *slog.Logger) *Folder {
	return &Folder{
		ID:           f.Id,
		Name:         strings.TrimSpace(f.Name),
		CreatedTime:  parseTime(f.CreatedTime, "createdTime", f.Id, logger),
		ModifiedTime: parseTime(f.ModifiedTime, "modifiedTime", f.Id, logger),
		Parents:      f.Parents,
		WebViewLink:  f.WebViewLink,
		Owners:       owners(f.Owners),
		Permissions:  permissions(f.Permissions),
		Description:  f.Description,
		Starred:      f.Starred,
		Trashed:      f.Trashed,
		Shared:       f.Shared,
	}
}

// fromAPIItem dispatches on the MIME type.
func fromAPIItem(f *driveapi.File, logger *slog.Logger) Item {
	if f.MimeType == FolderMimeType {
		return fromAPIFolder(f, logger)
	}
	return fromAPIFile(f, logger)
}

// fileMetadata builds a create body. Unset optionals are omitted.
func fileMetadata(name, parentID, description, mimeType string) *driveapi.File {
	f := &driveapi.File{Name: sanitizeName(name), Description: description, MimeType: mimeType}
	if parentID != "" {
		f.Parents = []string{parentID}
	}
	return f
}
