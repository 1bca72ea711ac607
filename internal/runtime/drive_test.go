package runtime

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	driveapi "google.golang.org/api/drive/v3"
	"google.golang.org/api/option"

	"github.com/joshsymonds/gworkspace/internal/apierr"
	"github.com/joshsymonds/gworkspace/internal/drive"
)

func newTestDrive(t *testing.T, h http.Handler) *driveapi.Service {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	svc, err := driveapi.NewService(context.Background(),
		option.WithEndpoint(srv.URL+"/"),
		option.WithHTTPClient(srv.Client()))
	require.NoError(t, err)
	return svc
}

func TestDriveQueryWireParams(t *testing.T) {
	var last atomic.Pointer[url.Values]
	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		last.Store(&q)
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(&driveapi.FileList{Files: []*driveapi.File{
			{Id: "d1", Name: "Specs", MimeType: drive.FolderMimeType},
			{Id: "f1", Name: "spec.pdf", MimeType: "application/pdf", Size: 2048},
		}})
	})
	s := drive.NewService(NewDriveClient(newTestDrive(t, h)), nil, slogDiscard())

	items, err := s.Query().NameContains("spec").InFolder("p1").OrderBy("name").Limit(25).Execute(context.Background())
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.True(t, items[0].IsFolder())
	file, ok := items[1].(*drive.File)
	require.True(t, ok)
	assert.Equal(t, "2.0 KB", file.HumanSize())

	q := *last.Load()
	assert.Equal(t, "name contains 'spec' and 'p1' in parents and trashed = false", q.Get("q"))
	assert.Equal(t, "25", q.Get("pageSize"))
	assert.Equal(t, "name", q.Get("orderBy"))
	assert.True(t, strings.HasPrefix(q.Get("fields"), "nextPageToken,files(id, name"), q.Get("fields"))
}

func TestDriveUploadTooLarge(t *testing.T) {
	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusRequestEntityTooLarge)
		_, _ = w.Write([]byte(`{"error":{"code":413,"message":"Request Too Large"}}`))
	})
	s := drive.NewService(NewDriveClient(newTestDrive(t, h)), nil, slogDiscard())

	_, err := s.UploadContent(context.Background(), strings.NewReader("payload"), "big.txt", drive.UploadOptions{})
	require.Error(t, err)
	assert.ErrorIs(t, err, apierr.ErrTooLarge)
	assert.ErrorIs(t, err, apierr.ErrDrive)
}
