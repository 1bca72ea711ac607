package drive

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/joshsymonds/gworkspace/internal/apierr"
	"github.com/joshsymonds/gworkspace/internal/validate"
)

const (
	MaxResultsLimit   = 1000
	DefaultMaxResults = 100
	RootFolderID      = "root"

	// FileFields is the partial response requested for every file.
	FileFields = "id, name, mimeType, size, createdTime, modifiedTime, parents, " +
		"webViewLink, webContentLink, owners, permissions, description, starred, " +
		"trashed, shared, originalFilename, fileExtension, md5Checksum"
)

const (
	FolderMimeType        = "application/vnd.google-apps.folder"
	GoogleDocMimeType     = "application/vnd.google-apps.document"
	GoogleSheetMimeType   = "application/vnd.google-apps.spreadsheet"
	GoogleSlidesMimeType  = "application/vnd.google-apps.presentation"
	GoogleDrawingMimeType = "application/vnd.google-apps.drawing"
	GoogleFormMimeType    = "application/vnd.google-apps.form"
)

var googleDocTypes = []string{
	GoogleDocMimeType, GoogleSheetMimeType, GoogleSlidesMimeType,
	GoogleDrawingMimeType, GoogleFormMimeType,
}

// exportFormats is what DownloadContent converts Google Workspace files to.
// Forms have no export.
var exportFormats = map[string]string{
	GoogleDocMimeType:     "text/plain",
	GoogleSheetMimeType:   "text/csv",
	GoogleSlidesMimeType:  "text/plain",
	GoogleDrawingMimeType: "image/png",
}

// Permission roles and grantee types.
const (
	RoleReader    = "reader"
	RoleCommenter = "commenter"
	RoleWriter    = "writer"
	RoleOwner     = "owner"

	TypeUser   = "user"
	TypeGroup  = "group"
	TypeDomain = "domain"
	TypeAnyone = "anyone"
)

var (
	roles      = []string{RoleReader, RoleCommenter, RoleWriter, RoleOwner}
	shareRoles = []string{RoleReader, RoleCommenter, RoleWriter}
	grantTypes = []string{TypeUser, TypeGroup, TypeDomain, TypeAnyone}
)

type Permission struct {
	ID           string `json:"permission_id,omitempty"`
	Type         string `json:"type"`
	Role         string `json:"role"`
	EmailAddress string `json:"email_address,omitempty"`
	Domain       string `json:"domain,omitempty"`
	DisplayName  string `json:"display_name,omitempty"`
	Deleted      bool   `json:"deleted,omitempty"`
}

// NewPermission validates a grant. User and group grants need an email,
// domain grants a domain.
func NewPermission(typ, role, email, domain string) (*Permission, error) {
	if err := validate.OneOf("permission type", typ, grantTypes...); err != nil {
		return nil, err
	}
	if err := validate.OneOf("role", role, roles...); err != nil {
		return nil, err
	}
	switch typ {
	case TypeUser, TypeGroup:
		if err := validate.Email("email", email); err != nil {
			return nil, err
		}
	case TypeDomain:
		if strings.TrimSpace(domain) == "" {
			return nil, apierr.Invalidf("domain is required for domain permissions")
		}
	}
	return &Permission{Type: typ, Role: role, EmailAddress: email, Domain: domain}, nil
}

func (p Permission) String() string {
	switch {
	case p.EmailAddress != "":
		name := p.DisplayName
		if name == "" {
			name = p.EmailAddress
		}
		return fmt.Sprintf("%s (%s)", name, p.Role)
	case p.Domain != "":
		return fmt.Sprintf("Domain: %s (%s)", p.Domain, p.Role)
	default:
		return fmt.Sprintf("%s (%s)", p.Type, p.Role)
	}
}

// Item is a File or a Folder.
type Item interface {
	ItemID() string
	ItemName() string
	ParentIDs() []string
	IsFolder() bool
}

type File struct {
	ID       string `json:"file_id"`
	Name     string `json:"name"`
	MimeType string `json:"mime_type"`
	// Size is -1 for Google Workspace files, which have no stored size.
	Size             int64        `json:"size"`
	CreatedTime      time.Time    `json:"created_time,omitzero"`
	ModifiedTime     time.Time    `json:"modified_time,omitzero"`
	Parents          []string     `json:"parents,omitempty"`
	WebViewLink      string       `json:"web_view_link,omitempty"`
	WebContentLink   string       `json:"web_content_link,omitempty"`
	Owners           []string     `json:"owners,omitempty"`
	Permissions      []Permission `json:"permissions,omitempty"`
	Description      string       `json:"description,omitempty"`
	Starred          bool         `json:"starred"`
	Trashed          bool         `json:"trashed"`
	Shared           bool         `json:"shared"`
	OriginalFilename string       `json:"original_filename,omitempty"`
	FileExtension    string       `json:"file_extension,omitempty"`
	MD5Checksum      string       `json:"md5_checksum,omitempty"`
}

func (f *File) ItemID() string      { return f.ID }
func (f *File) ItemName() string    { return f.Name }
func (f *File) ParentIDs() []string { return slices.Clone(f.Parents) }
func (f *File) IsFolder() bool      { return false }

func (f *File) IsGoogleDoc() bool {
	return slices.Contains(googleDocTypes, f.MimeType)
}

// HumanSize renders Size in binary units with one decimal, e.g. "1.5 MB".
func (f *File) HumanSize() string {
	return humanSize(f.Size)
}

func humanSize(n int64) string {
	if n < 0 {
		return "Unknown"
	}
	if n == 0 {
		return "0 B"
	}
	units := []string{"B", "KB", "MB", "GB", "TB"}
	size := float64(n)
	i := 0
	for size >= 1024 && i < len(units)-1 {
		size /= 1024
		i++
	}
	return fmt.Sprintf("%.1f %s", size, units[i])
}

// ParentID is the first parent, or "" at the top of a drive.
func (f *File) ParentID() string          { return firstParent(f.Parents) }
func (f *File) HasParent() bool           { return len(f.Parents) > 0 }
func (f *File) IsInFolder(id string) bool { return slices.Contains(f.Parents, id) }

func (f *File) String() string {
	return fmt.Sprintf("%s (%s)", f.Name, f.HumanSize())
}

type Folder struct {
	ID           string       `json:"folder_id"`
	Name         string       `json:"name"`
	CreatedTime  time.Time    `json:"created_time,omitzero"`
	ModifiedTime time.Time    `json:"modified_time,omitzero"`
	Parents      []string     `json:"parents,omitempty"`
	WebViewLink  string       `json:"web_view_link,omitempty"`
	Owners       []string     `json:"owners,omitempty"`
	Permissions  []Permission `json:"permissions,omitempty"`
	Description  string       `json:"description,omitempty"`
	Starred      bool         `json:"starred"`
	Trashed      bool         `json:"trashed"`
	Shared       bool         `json:"shared"`
}

func (f *Folder) ItemID() string            { return f.ID }
func (f *Folder) ItemName() string          { return f.Name }
func (f *Folder) ParentIDs() []string       { return slices.Clone(f.Parents) }
func (f *Folder) IsFolder() bool            { return true }
func (f *Folder) ParentID() string          { return firstParent(f.Parents) }
func (f *Folder) HasParent() bool           { return len(f.Parents) > 0 }
func (f *Folder) IsInFolder(id string) bool { return slices.Contains(f.Parents, id) }

func (f *Folder) String() string { return "[Folder] " + f.Name }

func firstParent(parents []string) string {
	if len(parents) == 0 {
		return ""
	}
	return parents[0]
}

// ListOptions parameterizes files.list. Query is raw Drive query grammar.
type ListOptions struct {
	Query      string
	MaxResults int
	OrderBy    string
}

// ListParams is the files.list request as sent on the wire.
type ListParams struct {
	Query    string
	PageSize int
	OrderBy  string
}

func (o ListOptions) params() (ListParams, error) {
	limit := o.MaxResults
	if limit == 0 {
		limit = DefaultMaxResults
	}
	if err := validate.Limit(limit, MaxResultsLimit); err != nil {
		return ListParams{}, err
	}
	return ListParams{Query: o.Query, PageSize: limit, OrderBy: o.OrderBy}, nil
}

// UploadOptions describes the metadata of a new file. Zero values take the
// local file name, the drive root and a guessed MIME type.
type UploadOptions struct {
	Name        string
	ParentID    string
	Description string
	MimeType    string
}

// ShareOptions tunes a share. The zero value grants reader and notifies the
// grantee.
type ShareOptions struct {
	Role             string
	SkipNotification bool
	Message          string
}

// ItemKind narrows folder listings.
type ItemKind int

const (
	AnyKind ItemKind = iota
	FileKind
	FolderKind
)

type ContentsOptions struct {
	Kind       ItemKind
	MaxResults int
	OrderBy    string
}

// parseFolderPath splits "/a/b/" into ["a", "b"].
func parseFolderPath(path string) []string {
	var out []string
	for _, part := range strings.Split(path, "/") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

const maxNameLength = 255

// sanitizeName strips characters that break Drive names or local paths.
func sanitizeName(name string) string {
	name = strings.Map(func(r rune) rune {
		switch {
		case r < 0x20 || r == 0x7f:
			return -1
		case strings.ContainsRune(`<>:"/\|?*`, r):
			return '_'
		}
		return r
	}, name)
	name = strings.TrimSpace(name)
	if r := []rune(name); len(r) > maxNameLength {
		name = string(r[:maxNameLength])
	}
	if name == "" {
		return "untitled"
	}
	return name
}
