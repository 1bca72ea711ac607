package runtime

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	gmailapi "google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"

	gc "github.com/joshsymonds/gworkspace/internal/gmail"
)

func newTestGmail(t *testing.T, h http.Handler) *gmailapi.Service {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	svc, err := gmailapi.NewService(context.Background(),
		option.WithEndpoint(srv.URL+"/"),
		option.WithHTTPClient(srv.Client()))
	require.NoError(t, err)
	return svc
}

func TestGmailQueryWireParams(t *testing.T) {
	var (
		mu      sync.Mutex
		listQ   url.Values
		formats []string
	)
	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		defer mu.Unlock()
		w.Header().Set("Content-Type", "application/json")
		switch {
		case strings.HasSuffix(r.URL.Path, "/users/me/messages"):
			listQ = r.URL.Query()
			_ = json.NewEncoder(w).Encode(&gmailapi.ListMessagesResponse{
				Messages: []*gmailapi.Message{{Id: "m1"}},
			})
		case strings.HasSuffix(r.URL.Path, "/users/me/messages/m1"):
			formats = append(formats, r.URL.Query().Get("format"))
			_ = json.NewEncoder(w).Encode(&gmailapi.Message{
				Id:       "m1",
				ThreadId: "t1",
				LabelIds: []string{"INBOX", "UNREAD"},
				Payload: &gmailapi.MessagePart{
					MimeType: "text/plain",
					Headers: []*gmailapi.MessagePartHeader{
						{Name: "From", Value: "Bob <bob@x.com>"},
						{Name: "Subject", Value: "quarterly report"},
					},
				},
			})
		default:
			http.NotFound(w, r)
		}
	})

	s := gc.NewService(NewGoogleAPIClient(newTestGmail(t, h)), nil, slogDiscard())
	msgs, err := s.Query().
		FromSender("bob@x.com").
		WithSubject("quarterly report").
		IsUnread().
		WithLabelIDs(gc.LabelInbox).
		Limit(5).
		Execute(context.Background())
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, "quarterly report", msgs[0].Subject)
	require.NotNil(t, msgs[0].Sender)
	assert.Equal(t, "bob@x.com", msgs[0].Sender.Email)
	assert.False(t, msgs[0].IsRead)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, `from:bob@x.com subject:"quarterly report" is:unread`, listQ.Get("q"))
	assert.Equal(t, "5", listQ.Get("maxResults"))
	assert.Equal(t, []string{gc.LabelInbox}, listQ["labelIds"])
	assert.Empty(t, listQ.Get("includeSpamTrash"))
	assert.Equal(t, []string{"full"}, formats)
}

func TestGmailBatchModifyBody(t *testing.T) {
	var (
		mu     sync.Mutex
		bodies []gmailapi.BatchModifyMessagesRequest
	)
	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/messages/batchModify") || r.Method != http.MethodPost {
			http.NotFound(w, r)
			return
		}
		var req gmailapi.BatchModifyMessagesRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		mu.Lock()
		bodies = append(bodies, req)
		mu.Unlock()
		w.WriteHeader(http.StatusNoContent)
	})

	s := gc.NewService(NewGoogleAPIClient(newTestGmail(t, h)), nil, slogDiscard())
	err := s.BatchModify(context.Background(), []string{"a", "b"}, gc.ModifyOps{
		AddLabels: []string{"Label_9"},
		MarkRead:  true,
		Archive:   true,
	})
	require.NoError(t, err)

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, bodies, 1)
	assert.Equal(t, []string{"a", "b"}, bodies[0].Ids)
	assert.Equal(t, []string{"Label_9"}, bodies[0].AddLabelIds)
	assert.ElementsMatch(t, []string{gc.LabelUnread, gc.LabelInbox}, bodies[0].RemoveLabelIds)
}

func TestGmailErrorStatusMapping(t *testing.T) {
	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":{"code":404,"message":"Requested entity was not found."}}`))
	})
	s := gc.NewService(NewGoogleAPIClient(newTestGmail(t, h)), nil, slogDiscard())

	_, err := s.GetEmail(context.Background(), "gone")
	require.Error(t, err)
	assert.True(t, gc.IsNotFound(err))
}
