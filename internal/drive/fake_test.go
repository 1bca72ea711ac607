package drive

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"net/http"
	"regexp"
	"slices"
	"strconv"
	"strings"
	"sync"

	driveapi "google.golang.org/api/drive/v3"
	"google.golang.org/api/googleapi"
)

func slogDiscard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func statusErr(code int) error { return &googleapi.Error{Code: code, Message: http.StatusText(code)} }

type upload struct {
	meta     *driveapi.File
	content  string
	mimeType string
}

type update struct {
	fileID                    string
	body                      *driveapi.File
	addParents, removeParents string
}

type permCall struct {
	fileID  string
	perm    *driveapi.Permission
	notify  bool
	message string
}

// fakeClient keeps files in insertion order and understands just enough
// query grammar for name, parent and folder filters.
type fakeClient struct {
	mu        sync.Mutex
	order     []string
	files     map[string]*driveapi.File
	content   map[string][]byte
	lists     []ListParams
	listErr   error
	createErr error
	uploads   []upload
	updates   []update
	copies    []string
	exports   []string
	perms     map[string][]*driveapi.Permission
	permCalls []permCall
	nextID    int
}

func newFakeClient() *fakeClient {
	return &fakeClient{
		files:   map[string]*driveapi.File{},
		content: map[string][]byte{},
		perms:   map[string][]*driveapi.Permission{},
	}
}

func (f *fakeClient) add(file *driveapi.File) *driveapi.File {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.order = append(f.order, file.Id)
	f.files[file.Id] = file
	return file
}

var (
	reName   = regexp.MustCompile(`name = '([^']*)'`)
	reParent = regexp.MustCompile(`'([^']*)' in parents`)
)

func (f *fakeClient) matches(q string, file *driveapi.File) bool {
	if m := reName.FindStringSubmatch(q); m != nil && file.Name != m[1] {
		return false
	}
	if m := reParent.FindStringSubmatch(q); m != nil && !slices.Contains(file.Parents, m[1]) {
		return false
	}
	if strings.Contains(q, "mimeType = '"+FolderMimeType+"'") && file.MimeType != FolderMimeType {
		return false
	}
	if strings.Contains(q, "mimeType != '"+FolderMimeType+"'") && file.MimeType == FolderMimeType {
		return false
	}
	if strings.Contains(q, "trashed = false") && file.Trashed {
		return false
	}
	return true
}

func (f *fakeClient) ListFiles(_ context.Context, p ListParams) ([]*driveapi.File, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lists = append(f.lists, p)
	if f.listErr != nil {
		return nil, f.listErr
	}
	var out []*driveapi.File
	for _, id := range f.order {
		file, ok := f.files[id]
		if ok && f.matches(p.Query, file) {
			out = append(out, file)
		}
		if len(out) == p.PageSize {
			break
		}
	}
	return out, nil
}

func (f *fakeClient) GetFile(_ context.Context, id string) (*driveapi.File, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	file, ok := f.files[id]
	if !ok {
		return nil, statusErr(http.StatusNotFound)
	}
	return file, nil
}

func (f *fakeClient) CreateFile(_ context.Context, meta *driveapi.File, media io.Reader, mimeType string) (*driveapi.File, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}
	up := upload{meta: meta, mimeType: mimeType}
	if media != nil {
		b, err := io.ReadAll(media)
		if err != nil {
			return nil, err
		}
		up.content = string(b)
	}
	f.mu.Lock()
	f.nextID++
	id := "file-" + strconv.Itoa(f.nextID)
	f.uploads = append(f.uploads, up)
	f.mu.Unlock()

	out := *meta
	out.Id = id
	if out.MimeType == "" {
		out.MimeType = mimeType
	}
	out.Size = int64(len(up.content))
	f.add(&out)
	return &out, nil
}

func (f *fakeClient) UpdateFile(_ context.Context, id string, body *driveapi.File, add, remove string) (*driveapi.File, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	file, ok := f.files[id]
	if !ok {
		return nil, statusErr(http.StatusNotFound)
	}
	f.updates = append(f.updates, update{id, body, add, remove})
	out := *file
	if body.Name != "" {
		out.Name = body.Name
	}
	if remove != "" {
		out.Parents = slices.DeleteFunc(slices.Clone(out.Parents), func(p string) bool {
			return slices.Contains(strings.Split(remove, ","), p)
		})
	}
	if add != "" {
		out.Parents = append(out.Parents, add)
	}
	f.files[id] = &out
	return &out, nil
}

func (f *fakeClient) CopyFile(_ context.Context, id string, body *driveapi.File) (*driveapi.File, error) {
	f.mu.Lock()
	file, ok := f.files[id]
	f.copies = append(f.copies, id)
	f.mu.Unlock()
	if !ok {
		return nil, statusErr(http.StatusNotFound)
	}
	out := *file
	out.Id = id + "-copy"
	out.Name = "Copy of " + file.Name
	if body.Name != "" {
		out.Name = body.Name
	}
	if body.Parents != nil {
		out.Parents = body.Parents
	}
	return f.add(&out), nil
}

func (f *fakeClient) DeleteFile(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.files[id]; !ok {
		return statusErr(http.StatusNotFound)
	}
	delete(f.files, id)
	return nil
}

func (f *fakeClient) Download(_ context.Context, id string) (io.ReadCloser, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	b, ok := f.content[id]
	if !ok {
		return nil, statusErr(http.StatusNotFound)
	}
	return io.NopCloser(bytes.NewReader(b)), nil
}

func (f *fakeClient) Export(_ context.Context, id, mimeType string) (io.ReadCloser, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.exports = append(f.exports, mimeType)
	b, ok := f.content[id]
	if !ok {
		return nil, statusErr(http.StatusNotFound)
	}
	return io.NopCloser(bytes.NewReader(b)), nil
}

func (f *fakeClient) CreatePermission(_ context.Context, fileID string, p *driveapi.Permission, notify bool, message string) (*driveapi.Permission, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.files[fileID]; !ok {
		return nil, statusErr(http.StatusNotFound)
	}
	f.permCalls = append(f.permCalls, permCall{fileID, p, notify, message})
	out := *p
	out.Id = "perm-" + strconv.Itoa(len(f.permCalls))
	f.perms[fileID] = append(f.perms[fileID], &out)
	return &out, nil
}

func (f *fakeClient) ListPermissions(_ context.Context, fileID string) ([]*driveapi.Permission, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.files[fileID]; !ok {
		return nil, statusErr(http.StatusNotFound)
	}
	return f.perms[fileID], nil
}

func (f *fakeClient) DeletePermission(_ context.Context, fileID, permissionID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	before := len(f.perms[fileID])
	f.perms[fileID] = slices.DeleteFunc(f.perms[fileID], func(p *driveapi.Permission) bool { return p.Id == permissionID })
	if len(f.perms[fileID]) == before {
		return statusErr(http.StatusNotFound)
	}
	return nil
}

var _ Client = (*fakeClient)(nil)

func apiFolder(id, name string, parents ...string) *driveapi.File {
	return &driveapi.File{Id: id, Name: name, MimeType: FolderMimeType, Parents: parents}
}

func apiFile(id, name, mimeType string, parents ...string) *driveapi.File {
	return &driveapi.File{Id: id, Name: name, MimeType: mimeType, Parents: parents}
}
